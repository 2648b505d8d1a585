package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReferralReward is the credit granted to a referrer per confirmed referral.
const ReferralReward int64 = 1

type User struct {
	ID            uint            `gorm:"primaryKey"`
	UserID        int64           `gorm:"uniqueIndex;not null"`
	Username      string          `gorm:"size:255"`
	FirstName     string          `gorm:"size:255"`
	LastName      string          `gorm:"size:255"`
	Balance       decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0"`
	ReferralCount int64           `gorm:"not null;default:0"`
	ReferredBy    *int64          `gorm:"index"`
	IsBanned      bool            `gorm:"not null;default:false"`
	CreatedAt     time.Time
	LastActive    time.Time `gorm:"index"`
}

// Identity carries the chat-platform fields used to create a user.
type Identity struct {
	UserID    int64
	Username  string
	FirstName string
	LastName  string
}
