package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigRequiresBotToken(t *testing.T) {
	t.Setenv("BOT_TOKEN", "")
	t.Setenv("TELEGRAM_BOT_TOKEN", "")

	cfg, err := LoadConfig()

	assert.ErrorIs(t, err, ErrMissingBotToken)
	assert.Nil(t, cfg)
}

func TestLoadConfigReadsLists(t *testing.T) {
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("ADMIN_IDS", "11, 22,,33")
	t.Setenv("FSUB_CHANNEL_IDS", "-1001,-1002")
	t.Setenv("LOG_CHANNEL_ID", "-1009")
	t.Setenv("ADMIN_SESSION_TTL", "2m")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, []int64{11, 22, 33}, cfg.AdminIDs)
	assert.Equal(t, []int64{-1001, -1002}, cfg.GateChannelIDs)
	assert.Equal(t, int64(-1009), cfg.LogChannelID)
	assert.Equal(t, 2*time.Minute, cfg.AdminSessionTTL)
	assert.True(t, cfg.IsAdmin(22))
	assert.False(t, cfg.IsAdmin(44))
}

func TestLoadConfigMalformedListDegradesToEmpty(t *testing.T) {
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("ADMIN_IDS", "11,abc")
	t.Setenv("FSUB_CHANNEL_IDS", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Empty(t, cfg.AdminIDs)
	assert.Empty(t, cfg.GateChannelIDs)
}

func TestLoadConfigFallsBackOnBadNumbers(t *testing.T) {
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("LOG_CHANNEL_ID", "channel")
	t.Setenv("LOW_STOCK_THRESHOLD", "x")
	t.Setenv("STOCK_CHECK_INTERVAL", "-5m")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, int64(0), cfg.LogChannelID)
	assert.Equal(t, int64(5), cfg.LowStockThreshold)
	assert.Equal(t, 30*time.Minute, cfg.StockCheckInterval)
}

func TestDSN(t *testing.T) {
	cfg := &Config{DBHost: "db", DBUser: "u", DBPassword: "p", DBName: "n", DBPort: "5433"}
	assert.Equal(t, "host=db user=u password=p dbname=n port=5433 sslmode=disable TimeZone=UTC", cfg.DSN())

	cfg.DatabaseURL = "file:coupons.db"
	assert.Equal(t, "file:coupons.db", cfg.DSN())
}
