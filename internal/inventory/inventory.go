// Package inventory stores coupon codes and hands each one out at most once.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"referral-coupon-bot/internal/database"
	"referral-coupon-bot/internal/models"
)

type ClaimOutcome string

const (
	Claimed    ClaimOutcome = "claimed"
	OutOfStock ClaimOutcome = "out_of_stock"
)

type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// WithTx returns a Store whose operations run inside tx.
func (s *Store) WithTx(tx *gorm.DB) *Store {
	return &Store{db: tx}
}

// Claim reserves one unused coupon of denomination d for userID.
//
// The flip to used is a compare-and-set on is_used, so two claimers can never
// both observe the same coupon as unused. A claimer that loses the race picks
// another candidate until none is left.
func (s *Store) Claim(ctx context.Context, d models.Denomination, userID int64) (*models.Coupon, ClaimOutcome, error) {
	if _, err := models.CostOf(d); err != nil {
		return nil, "", err
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, "", err
		}

		var candidate models.Coupon
		query := s.db.WithContext(ctx).Where("amount = ? AND is_used = ?", d, false)
		if database.IsPostgres(s.db) {
			query = query.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
		}
		err := query.Order("id").Take(&candidate).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, OutOfStock, nil
		}
		if err != nil {
			return nil, "", fmt.Errorf("find coupon %d: %w", d, err)
		}

		now := time.Now()
		res := s.db.WithContext(ctx).Model(&models.Coupon{}).
			Where("id = ? AND is_used = ?", candidate.ID, false).
			Updates(map[string]any{
				"is_used": true,
				"used_by": userID,
				"used_at": now,
			})
		if res.Error != nil {
			return nil, "", fmt.Errorf("claim coupon %d: %w", candidate.ID, res.Error)
		}
		if res.RowsAffected == 1 {
			candidate.IsUsed = true
			candidate.UsedBy = &userID
			candidate.UsedAt = &now
			return &candidate, Claimed, nil
		}
	}
}

// Stock returns the number of unused coupons per known denomination.
func (s *Store) Stock(ctx context.Context) (map[models.Denomination]int64, error) {
	var rows []struct {
		Amount models.Denomination
		Count  int64
	}
	err := s.db.WithContext(ctx).Model(&models.Coupon{}).
		Select("amount, COUNT(*) AS count").
		Where("is_used = ?", false).
		Group("amount").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("count stock: %w", err)
	}

	stock := make(map[models.Denomination]int64, len(rows))
	for _, d := range models.Denominations() {
		stock[d] = 0
	}
	for _, row := range rows {
		stock[row.Amount] = row.Count
	}
	return stock, nil
}

type Stats struct {
	Total     int64
	Used      int64
	Available int64
}

func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	if err := s.db.WithContext(ctx).Model(&models.Coupon{}).Count(&st.Total).Error; err != nil {
		return st, fmt.Errorf("count coupons: %w", err)
	}
	if err := s.db.WithContext(ctx).Model(&models.Coupon{}).Where("is_used = ?", true).Count(&st.Used).Error; err != nil {
		return st, fmt.Errorf("count used coupons: %w", err)
	}
	st.Available = st.Total - st.Used
	return st, nil
}
