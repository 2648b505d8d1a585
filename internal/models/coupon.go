package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Coupon struct {
	ID      uint         `gorm:"primaryKey"`
	Code    string       `gorm:"size:255;uniqueIndex;not null"`
	Amount  Denomination `gorm:"not null;index:idx_coupon_stock,priority:1"`
	IsUsed  bool         `gorm:"not null;default:false;index:idx_coupon_stock,priority:2"`
	UsedBy  *int64
	UsedAt  *time.Time
	AddedAt time.Time `gorm:"autoCreateTime"`
}

type Redemption struct {
	ID         uuid.UUID    `gorm:"type:uuid;primaryKey"`
	UserID     int64        `gorm:"not null;index"`
	Code       string       `gorm:"size:255;not null"`
	Amount     Denomination `gorm:"not null"`
	Cost       int64        `gorm:"not null"`
	RedeemedAt time.Time    `gorm:"not null;index"`
}

func (r *Redemption) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

type AdminLog struct {
	ID           uuid.UUID    `gorm:"type:uuid;primaryKey"`
	AdminID      int64        `gorm:"not null;index"`
	Action       string       `gorm:"size:64;not null"`
	Denomination Denomination `gorm:"not null"`
	Added        int          `gorm:"not null"`
	Duplicates   int          `gorm:"not null"`
	Details      string       `gorm:"size:512"`
	Timestamp    time.Time    `gorm:"not null"`
}

func (a *AdminLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
