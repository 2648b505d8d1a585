// Package redemption exchanges balance credits for coupon codes.
package redemption

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"referral-coupon-bot/internal/inventory"
	"referral-coupon-bot/internal/ledger"
	"referral-coupon-bot/internal/models"
	"referral-coupon-bot/internal/notify"
)

type Outcome string

const (
	Success             Outcome = "success"
	InsufficientBalance Outcome = "insufficient_balance"
	OutOfStock          Outcome = "out_of_stock"
	Banned              Outcome = "banned"
)

// Result describes a redemption attempt. Balance is the balance after the
// attempt.
type Result struct {
	Outcome      Outcome
	Code         string
	Denomination models.Denomination
	Cost         int64
	Balance      decimal.Decimal
}

var errDebitRejected = errors.New("balance no longer covers cost")

type Service struct {
	db       *gorm.DB
	ledger   *ledger.Ledger
	coupons  *inventory.Store
	notifier notify.Notifier
}

func NewService(db *gorm.DB, l *ledger.Ledger, coupons *inventory.Store, notifier notify.Notifier) *Service {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &Service{db: db, ledger: l, coupons: coupons, notifier: notifier}
}

// Redeem spends the cost of d from the user's balance on one coupon of d.
//
// The claim, the debit and the redemption record commit together. The debit
// re-checks the balance in the same statement, so concurrent redemptions by
// one user can never take the balance below zero; a rejected debit rolls the
// claim back.
func (s *Service) Redeem(ctx context.Context, who models.Identity, d models.Denomination) (Result, error) {
	cost, err := models.CostOf(d)
	if err != nil {
		return Result{}, err
	}
	result := Result{Denomination: d, Cost: cost, Balance: decimal.Zero}

	user, err := s.ledger.Get(ctx, who.UserID)
	if errors.Is(err, ledger.ErrUserNotFound) {
		result.Outcome = InsufficientBalance
		return result, nil
	}
	if err != nil {
		return Result{}, err
	}
	result.Balance = user.Balance
	if user.IsBanned {
		result.Outcome = Banned
		return result, nil
	}
	if user.Balance.LessThan(decimal.NewFromInt(cost)) {
		result.Outcome = InsufficientBalance
		return result, nil
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		coupon, claim, err := s.coupons.WithTx(tx).Claim(ctx, d, who.UserID)
		if err != nil {
			return err
		}
		if claim == inventory.OutOfStock {
			result.Outcome = OutOfStock
			return nil
		}

		txLedger := s.ledger.WithTx(tx)
		debited, err := txLedger.DebitIfSufficient(ctx, who.UserID, cost)
		if err != nil {
			return err
		}
		if !debited {
			return errDebitRejected
		}

		record := models.Redemption{
			UserID:     who.UserID,
			Code:       coupon.Code,
			Amount:     d,
			Cost:       cost,
			RedeemedAt: time.Now(),
		}
		if err := tx.Create(&record).Error; err != nil {
			return fmt.Errorf("record redemption: %w", err)
		}

		after, err := txLedger.Get(ctx, who.UserID)
		if err != nil {
			return err
		}
		result.Outcome = Success
		result.Code = coupon.Code
		result.Balance = after.Balance
		return nil
	})

	if errors.Is(err, errDebitRejected) {
		result.Outcome = InsufficientBalance
		if current, errGet := s.ledger.Get(ctx, who.UserID); errGet == nil {
			result.Balance = current.Balance
		}
		return result, nil
	}
	if err != nil {
		log.WithError(err).WithFields(log.Fields{"user_id": who.UserID, "denomination": d}).Error("Redemption failed")
		return Result{}, fmt.Errorf("redeem %d for user %d: %w", d, who.UserID, err)
	}

	if result.Outcome == Success {
		log.WithFields(log.Fields{"user_id": who.UserID, "denomination": d, "cost": cost}).Info("Coupon redeemed")
		s.notifier.Notify(ctx, fmt.Sprintf("🎟 New Redemption\n\n👤 User: %s (ID: %d)\n💰 Amount: %d ₪\n🔢 Code: %s\n🕒 Time: %s",
			who.FirstName, who.UserID, d, result.Code, time.Now().Format(notify.TimeLayout)))
	}
	return result, nil
}

type History struct {
	Count int64
	Last  *models.Redemption
}

// History returns how many coupons the user redeemed and the latest one.
func (s *Service) History(ctx context.Context, userID int64) (History, error) {
	var h History
	db := s.db.WithContext(ctx)
	if err := db.Model(&models.Redemption{}).Where("user_id = ?", userID).Count(&h.Count).Error; err != nil {
		return h, fmt.Errorf("count redemptions: %w", err)
	}
	if h.Count == 0 {
		return h, nil
	}
	var last models.Redemption
	if err := db.Where("user_id = ?", userID).Order("redeemed_at desc").First(&last).Error; err != nil {
		return h, fmt.Errorf("last redemption: %w", err)
	}
	h.Last = &last
	return h, nil
}
