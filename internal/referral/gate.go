// Package referral admits new users once they have joined every gating group
// and credits whoever referred them.
package referral

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"referral-coupon-bot/internal/ledger"
	"referral-coupon-bot/internal/membership"
	"referral-coupon-bot/internal/models"
	"referral-coupon-bot/internal/notify"
)

// PendingStore caches the referrer of a user who has not passed the gate.
type PendingStore interface {
	SetPendingReferrer(ctx context.Context, userID, referrerID int64) error
	TakePendingReferrer(ctx context.Context, userID int64) (*int64, error)
}

// Admission is the gate verdict for one interaction.
type Admission struct {
	Joined   bool
	Created  bool
	Credited bool
	Referrer *int64
}

type Gate struct {
	oracle   membership.Oracle
	groups   []int64
	pending  PendingStore
	ledger   *ledger.Ledger
	notifier notify.Notifier
}

func NewGate(oracle membership.Oracle, groups []int64, pending PendingStore, l *ledger.Ledger, notifier notify.Notifier) *Gate {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &Gate{oracle: oracle, groups: groups, pending: pending, ledger: l, notifier: notifier}
}

// ParseReferrer extracts a referrer id from a /start argument. Anything but
// plain digits, and the user's own id, yields nil.
func ParseReferrer(arg string, selfID int64) *int64 {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return nil
	}
	for _, r := range arg {
		if r < '0' || r > '9' {
			return nil
		}
	}
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id == selfID {
		return nil
	}
	return &id
}

// Groups returns the configured gating groups.
func (g *Gate) Groups() []int64 {
	return g.groups
}

// Joined reports whether userID is a member of every gating group. Failed
// checks count as not joined.
func (g *Gate) Joined(ctx context.Context, userID int64) bool {
	if len(g.groups) == 0 {
		return true
	}

	results := make([]bool, len(g.groups))
	eg, egCtx := errgroup.WithContext(ctx)
	for i, groupID := range g.groups {
		eg.Go(func() error {
			ok, err := g.oracle.IsMember(egCtx, groupID, userID)
			if err != nil {
				log.WithError(err).WithFields(log.Fields{"chat_id": groupID, "user_id": userID}).Warn("Membership check failed")
				return nil
			}
			results[i] = ok
			return nil
		})
	}
	_ = eg.Wait()

	for _, ok := range results {
		if !ok {
			return false
		}
	}
	return true
}

// Start handles /start. A user outside the gating groups is held pending with
// the referrer from startArg cached; otherwise the account is registered.
func (g *Gate) Start(ctx context.Context, who models.Identity, startArg string) (Admission, error) {
	referrer := ParseReferrer(startArg, who.UserID)

	if !g.Joined(ctx, who.UserID) {
		if referrer != nil {
			if err := g.pending.SetPendingReferrer(ctx, who.UserID, *referrer); err != nil {
				log.WithError(err).WithField("user_id", who.UserID).Warn("Failed to cache pending referrer")
			}
		}
		return Admission{Referrer: referrer}, nil
	}

	cached, err := g.pending.TakePendingReferrer(ctx, who.UserID)
	if err != nil {
		log.WithError(err).WithField("user_id", who.UserID).Warn("Failed to read pending referrer")
	}
	if referrer == nil {
		referrer = cached
	}
	return g.admit(ctx, who, referrer)
}

// Confirm re-checks membership after the user says they joined.
func (g *Gate) Confirm(ctx context.Context, who models.Identity) (Admission, error) {
	if !g.Joined(ctx, who.UserID) {
		return Admission{}, nil
	}
	referrer, err := g.pending.TakePendingReferrer(ctx, who.UserID)
	if err != nil {
		log.WithError(err).WithField("user_id", who.UserID).Warn("Failed to read pending referrer")
	}
	if referrer != nil && *referrer == who.UserID {
		referrer = nil
	}
	return g.admit(ctx, who, referrer)
}

func (g *Gate) admit(ctx context.Context, who models.Identity, referrer *int64) (Admission, error) {
	created, credited, err := g.ledger.Register(ctx, who, referrer)
	if err != nil {
		return Admission{}, fmt.Errorf("register user %d: %w", who.UserID, err)
	}
	adm := Admission{Joined: true, Created: created, Credited: credited}
	if !created {
		if err := g.ledger.Touch(ctx, who.UserID); err != nil {
			log.WithError(err).WithField("user_id", who.UserID).Warn("Failed to update last_active")
		}
		return adm, nil
	}

	adm.Referrer = referrer
	fields := log.Fields{"user_id": who.UserID, "credited": credited}
	if referrer != nil {
		fields["referrer_id"] = *referrer
	}
	log.WithFields(fields).Info("New user registered")
	g.notifier.Notify(ctx, fmt.Sprintf("#NewUser Joined 🚀\n\n👤 Name: %s\n🆔 ID: %d\n🕒 Time: %s",
		who.FirstName, who.UserID, time.Now().Format(notify.TimeLayout)))
	return adm, nil
}
