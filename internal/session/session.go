// Package session keeps short-lived per-user conversation state in Redis.
package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"referral-coupon-bot/internal/models"
)

// AdminState is the admin conversation state.
type AdminState struct {
	AwaitingCodes bool
	Denomination  models.Denomination
}

type Store struct {
	rdb             *redis.Client
	pendingTTL      time.Duration
	adminSessionTTL time.Duration
}

func NewStore(rdb *redis.Client, pendingTTL, adminSessionTTL time.Duration) *Store {
	return &Store{rdb: rdb, pendingTTL: pendingTTL, adminSessionTTL: adminSessionTTL}
}

func pendingKey(userID int64) string {
	return fmt.Sprintf("pending_referrer:%d", userID)
}

func adminKey(adminID int64) string {
	return fmt.Sprintf("admin_session:%d", adminID)
}

// SetPendingReferrer remembers the referrer of a user who has not passed the
// gate yet.
func (s *Store) SetPendingReferrer(ctx context.Context, userID, referrerID int64) error {
	if err := s.rdb.Set(ctx, pendingKey(userID), referrerID, s.pendingTTL).Err(); err != nil {
		return fmt.Errorf("set pending referrer: %w", err)
	}
	return nil
}

// TakePendingReferrer returns and forgets the cached referrer, or nil.
func (s *Store) TakePendingReferrer(ctx context.Context, userID int64) (*int64, error) {
	raw, err := s.rdb.GetDel(ctx, pendingKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("take pending referrer: %w", err)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, nil
	}
	return &id, nil
}

// BeginAwaitingCodes moves the admin into awaiting_codes(d). The state falls
// back to idle when the TTL expires.
func (s *Store) BeginAwaitingCodes(ctx context.Context, adminID int64, d models.Denomination) error {
	if err := s.rdb.Set(ctx, adminKey(adminID), int(d), s.adminSessionTTL).Err(); err != nil {
		return fmt.Errorf("begin admin session: %w", err)
	}
	return nil
}

func (s *Store) State(ctx context.Context, adminID int64) (AdminState, error) {
	raw, err := s.rdb.Get(ctx, adminKey(adminID)).Result()
	if errors.Is(err, redis.Nil) {
		return AdminState{}, nil
	}
	if err != nil {
		return AdminState{}, fmt.Errorf("admin session: %w", err)
	}
	d, err := models.ParseDenomination(raw)
	if err != nil {
		return AdminState{}, nil
	}
	return AdminState{AwaitingCodes: true, Denomination: d}, nil
}

// Reset returns the admin to idle.
func (s *Store) Reset(ctx context.Context, adminID int64) error {
	if err := s.rdb.Del(ctx, adminKey(adminID)).Err(); err != nil {
		return fmt.Errorf("reset admin session: %w", err)
	}
	return nil
}
