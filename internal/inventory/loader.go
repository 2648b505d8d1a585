package inventory

import (
	"context"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"referral-coupon-bot/internal/models"
	"referral-coupon-bot/internal/notify"
)

type LoadResult struct {
	Added      int
	Duplicates int
}

// Loader bulk-inserts coupon codes on behalf of an admin.
type Loader struct {
	db       *gorm.DB
	notifier notify.Notifier
}

func NewLoader(db *gorm.DB, notifier notify.Notifier) *Loader {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &Loader{db: db, notifier: notifier}
}

// Load inserts every non-blank code as an unused coupon of denomination d.
// Codes already present, including repeats within codes, are counted as
// duplicates. The batch is not atomic: on error the codes inserted so far stay
// committed and are reported in the result.
func (l *Loader) Load(ctx context.Context, codes []string, d models.Denomination, adminID int64) (LoadResult, error) {
	var result LoadResult
	if _, err := models.CostOf(d); err != nil {
		return result, err
	}

	var loadErr error
	for _, raw := range codes {
		code := strings.TrimSpace(raw)
		if code == "" {
			continue
		}
		res := l.db.WithContext(ctx).
			Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "code"}}, DoNothing: true}).
			Create(&models.Coupon{Code: code, Amount: d})
		if res.Error != nil {
			loadErr = fmt.Errorf("insert coupon %q: %w", code, res.Error)
			break
		}
		if res.RowsAffected == 0 {
			result.Duplicates++
			continue
		}
		result.Added++
	}

	entry := models.AdminLog{
		AdminID:      adminID,
		Action:       fmt.Sprintf("add_coupons_%d", d),
		Denomination: d,
		Added:        result.Added,
		Duplicates:   result.Duplicates,
		Details:      fmt.Sprintf("Added %d coupons", result.Added),
		Timestamp:    time.Now(),
	}
	if loadErr != nil {
		entry.Details += ", aborted: " + loadErr.Error()
	}
	if err := l.db.WithContext(ctx).Create(&entry).Error; err != nil {
		log.WithError(err).WithField("admin_id", adminID).Error("Failed to write admin log")
		if loadErr == nil {
			loadErr = fmt.Errorf("write admin log: %w", err)
		}
	}

	if result.Added > 0 {
		l.notifier.Notify(ctx, fmt.Sprintf("👑 Admin Action\n\n👤 Admin ID: %d\n🎟 Added: %d x %d ₪ coupons\n🕒 Time: %s",
			adminID, result.Added, d, time.Now().Format(notify.TimeLayout)))
	}
	return result, loadErr
}
