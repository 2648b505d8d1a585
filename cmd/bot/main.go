package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/mymmrac/telego"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"referral-coupon-bot/internal/bot"
	"referral-coupon-bot/internal/config"
	"referral-coupon-bot/internal/database"
	"referral-coupon-bot/internal/health"
	"referral-coupon-bot/internal/inventory"
	"referral-coupon-bot/internal/ledger"
	"referral-coupon-bot/internal/logging"
	"referral-coupon-bot/internal/membership"
	"referral-coupon-bot/internal/notify"
	"referral-coupon-bot/internal/redemption"
	"referral-coupon-bot/internal/referral"
	"referral-coupon-bot/internal/session"
	"referral-coupon-bot/internal/worker"
)

func main() {
	// Load Configuration
	cfg, err := config.LoadConfig()
	if errors.Is(err, config.ErrMissingBotToken) {
		log.Fatal("BOT_TOKEN not found in environment variables")
	}
	if err != nil {
		log.Fatalf("Could not load config: %v", err)
	}

	logCloser := logging.Setup(cfg.LogLevel, cfg.LogFile)
	defer logCloser.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to Database
	db, err := database.Open(cfg.DSN())
	if err != nil {
		log.Fatalf("Could not connect to database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Could not migrate database: %v", err)
	}

	// Connect to Redis
	rdb, err := database.ConnectRedis(ctx, cfg)
	if err != nil {
		log.Fatalf("Could not connect to redis: %v", err)
	}
	defer rdb.Close()

	tgBot, err := telego.NewBot(cfg.BotToken)
	if err != nil {
		log.Fatalf("Could not create bot: %v", err)
	}

	notifier := notify.NewChannel(tgBot, cfg.LogChannelID)
	oracle := membership.NewChatMemberOracle(tgBot)
	sessions := session.NewStore(rdb, cfg.PendingReferralTTL, cfg.AdminSessionTTL)

	accounts := ledger.New(db)
	coupons := inventory.NewStore(db)
	loader := inventory.NewLoader(db, notifier)
	redemptions := redemption.NewService(db, accounts, coupons, notifier)
	gate := referral.NewGate(oracle, cfg.GateChannelIDs, sessions, accounts, notifier)

	app := bot.NewBot(tgBot, cfg, accounts, coupons, loader, redemptions, gate, oracle, sessions)
	watcher := worker.NewStockWatcher(coupons, rdb, notifier, cfg.StockCheckInterval, cfg.LowStockThreshold)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return app.Start(gctx)
	})
	g.Go(func() error {
		return health.Serve(gctx, ":"+cfg.Port, health.NewRouter(db))
	})
	g.Go(func() error {
		return watcher.Run(gctx)
	})

	log.WithFields(log.Fields{
		"admins":        len(cfg.AdminIDs),
		"gating_groups": len(cfg.GateChannelIDs),
	}).Info("Service started successfully")

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Errorf("Service stopped with error: %v", err)
		os.Exit(1)
	}
	log.Info("Service stopped")
}
