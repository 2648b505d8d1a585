// Package ledger owns user accounts: creation, referral credit and balance
// mutation.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"referral-coupon-bot/internal/models"
)

var ErrUserNotFound = errors.New("user not found")

type Ledger struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

// WithTx returns a Ledger whose operations run inside tx.
func (l *Ledger) WithTx(tx *gorm.DB) *Ledger {
	return &Ledger{db: tx}
}

// Get returns the account for userID or ErrUserNotFound.
func (l *Ledger) Get(ctx context.Context, userID int64) (*models.User, error) {
	var user models.User
	err := l.db.WithContext(ctx).Where("user_id = ?", userID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", userID, err)
	}
	return &user, nil
}

// Create inserts the account if it does not exist yet. It reports false when
// the account already existed; referred_by is only ever written here.
func (l *Ledger) Create(ctx context.Context, identity models.Identity, referrer *int64) (bool, error) {
	if referrer != nil && *referrer == identity.UserID {
		referrer = nil
	}
	now := time.Now()
	user := models.User{
		UserID:     identity.UserID,
		Username:   identity.Username,
		FirstName:  identity.FirstName,
		LastName:   identity.LastName,
		Balance:    decimal.Zero,
		ReferredBy: referrer,
		CreatedAt:  now,
		LastActive: now,
	}
	res := l.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, DoNothing: true}).
		Create(&user)
	if res.Error != nil {
		return false, fmt.Errorf("create user %d: %w", identity.UserID, res.Error)
	}
	return res.RowsAffected == 1, nil
}

// CreditReferral adds the referral reward and bumps referral_count for the
// referrer. A missing referrer is logged and reported as not credited.
func (l *Ledger) CreditReferral(ctx context.Context, referrerID int64) (bool, error) {
	res := l.db.WithContext(ctx).Model(&models.User{}).
		Where("user_id = ?", referrerID).
		Updates(map[string]any{
			"balance":        gorm.Expr("balance + ?", models.ReferralReward),
			"referral_count": gorm.Expr("referral_count + ?", 1),
			"last_active":    time.Now(),
		})
	if res.Error != nil {
		return false, fmt.Errorf("credit referral %d: %w", referrerID, res.Error)
	}
	if res.RowsAffected == 0 {
		log.WithField("referrer_id", referrerID).Warn("Referral credit skipped: referrer has no account")
		return false, nil
	}
	return true, nil
}

// Register creates the account and, only when it was actually created with a
// referrer, credits that referrer. Both happen in one transaction.
func (l *Ledger) Register(ctx context.Context, identity models.Identity, referrer *int64) (created, credited bool, err error) {
	err = l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txLedger := l.WithTx(tx)
		var errTx error
		created, errTx = txLedger.Create(ctx, identity, referrer)
		if errTx != nil || !created {
			return errTx
		}
		if referrer != nil && *referrer != identity.UserID {
			credited, errTx = txLedger.CreditReferral(ctx, *referrer)
		}
		return errTx
	})
	if err != nil {
		return false, false, err
	}
	return created, credited, nil
}

// Debit decrements the balance unconditionally.
func (l *Ledger) Debit(ctx context.Context, userID int64, cost int64) error {
	res := l.db.WithContext(ctx).Model(&models.User{}).
		Where("user_id = ?", userID).
		Update("balance", gorm.Expr("balance - ?", cost))
	if res.Error != nil {
		return fmt.Errorf("debit user %d: %w", userID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// DebitIfSufficient decrements the balance only if it covers cost, checked in
// the same statement as the decrement.
func (l *Ledger) DebitIfSufficient(ctx context.Context, userID int64, cost int64) (bool, error) {
	res := l.db.WithContext(ctx).Model(&models.User{}).
		Where("user_id = ? AND balance >= ?", userID, cost).
		Update("balance", gorm.Expr("balance - ?", cost))
	if res.Error != nil {
		return false, fmt.Errorf("debit user %d: %w", userID, res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (l *Ledger) Touch(ctx context.Context, userID int64) error {
	err := l.db.WithContext(ctx).Model(&models.User{}).
		Where("user_id = ?", userID).
		Update("last_active", time.Now()).Error
	if err != nil {
		return fmt.Errorf("touch user %d: %w", userID, err)
	}
	return nil
}

func (l *Ledger) SetBanned(ctx context.Context, userID int64, banned bool) error {
	res := l.db.WithContext(ctx).Model(&models.User{}).
		Where("user_id = ?", userID).
		Update("is_banned", banned)
	if res.Error != nil {
		return fmt.Errorf("ban user %d: %w", userID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

type Stats struct {
	TotalUsers  int64
	ActiveToday int64
}

// Stats counts all users and those active since local midnight of now.
func (l *Ledger) Stats(ctx context.Context, now time.Time) (Stats, error) {
	var s Stats
	if err := l.db.WithContext(ctx).Model(&models.User{}).Count(&s.TotalUsers).Error; err != nil {
		return s, fmt.Errorf("count users: %w", err)
	}
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if err := l.db.WithContext(ctx).Model(&models.User{}).
		Where("last_active >= ?", midnight).
		Count(&s.ActiveToday).Error; err != nil {
		return s, fmt.Errorf("count active users: %w", err)
	}
	return s, nil
}
