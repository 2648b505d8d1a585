package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"referral-coupon-bot/internal/models"
	"referral-coupon-bot/internal/notify"
)

type StockCounter interface {
	Stock(ctx context.Context) (map[models.Denomination]int64, error)
}

// StockWatcher warns the log channel when a denomination runs low.
type StockWatcher struct {
	Stock     StockCounter
	Redis     *redis.Client
	Notifier  notify.Notifier
	Interval  time.Duration
	Threshold int64
}

func NewStockWatcher(stock StockCounter, rdb *redis.Client, notifier notify.Notifier, interval time.Duration, threshold int64) *StockWatcher {
	return &StockWatcher{
		Stock:     stock,
		Redis:     rdb,
		Notifier:  notifier,
		Interval:  interval,
		Threshold: threshold,
	}
}

// Run checks stock once at start and then on every tick until ctx is done.
func (w *StockWatcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()
	log.WithField("interval", w.Interval).Info("Stock watcher started")

	w.CheckStock(ctx)
	for {
		select {
		case <-ctx.Done():
			log.Info("Stock watcher stopped")
			return nil
		case <-ticker.C:
			w.CheckStock(ctx)
		}
	}
}

// CheckStock sends one warning per low denomination. The warning is not
// repeated until the dedupe key expires.
func (w *StockWatcher) CheckStock(ctx context.Context) {
	stock, err := w.Stock.Stock(ctx)
	if err != nil {
		log.WithError(err).Error("Error counting coupon stock")
		return
	}

	for _, d := range models.Denominations() {
		left := stock[d]
		key := fmt.Sprintf("low_stock_notified:%d", d)
		if left >= w.Threshold {
			if err := w.Redis.Del(ctx, key).Err(); err != nil {
				log.WithError(err).WithField("denomination", d).Warn("Failed to clear low stock marker")
			}
			continue
		}

		marked, err := w.Redis.SetNX(ctx, key, "true", 24*time.Hour).Result()
		if err != nil {
			log.WithError(err).WithField("denomination", d).Warn("Failed to set low stock marker")
			continue
		}
		if !marked {
			continue
		}

		w.Notifier.Notify(ctx, fmt.Sprintf("⚠️ Low Stock\n\n🎟 %d ₪ coupons left: %d\nPlease add more codes from the admin panel.", d, left))
		log.WithFields(log.Fields{"denomination": d, "left": left}).Warn("Coupon stock is low")
	}
}
