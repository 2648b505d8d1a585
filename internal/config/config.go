package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

// ErrMissingBotToken is returned when no bot credential is configured.
var ErrMissingBotToken = errors.New("config: BOT_TOKEN is not set")

type Config struct {
	BotToken    string
	DatabaseURL string

	DBUser     string
	DBPassword string
	DBName     string
	DBHost     string
	DBPort     string

	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	LogChannelID   int64
	AdminIDs       []int64
	GateChannelIDs []int64

	Port     string
	LogLevel string
	LogFile  string

	AdminSessionTTL    time.Duration
	PendingReferralTTL time.Duration
	StockCheckInterval time.Duration
	LowStockThreshold  int64
}

func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Info("No .env file found, using system environment variables")
	}

	cfg := &Config{
		BotToken:           getEnv("BOT_TOKEN", getEnv("TELEGRAM_BOT_TOKEN", "")),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		DBUser:             getEnv("DB_USER", "postgres"),
		DBPassword:         getEnv("DB_PASSWORD", "postgres"),
		DBName:             getEnv("DB_NAME", "coupon_bot"),
		DBHost:             getEnv("DB_HOST", "localhost"),
		DBPort:             getEnv("DB_PORT", "5432"),
		RedisHost:          getEnv("REDIS_HOST", "localhost"),
		RedisPort:          getEnv("REDIS_PORT", "6379"),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		RedisDB:            getEnvInt("REDIS_DB", 0),
		LogChannelID:       getEnvInt64("LOG_CHANNEL_ID", 0),
		AdminIDs:           parseIDList("ADMIN_IDS", getEnv("ADMIN_IDS", "")),
		GateChannelIDs:     parseIDList("FSUB_CHANNEL_IDS", getEnv("FSUB_CHANNEL_IDS", "")),
		Port:               getEnv("PORT", "8080"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogFile:            getEnv("LOG_FILE", ""),
		AdminSessionTTL:    getEnvDuration("ADMIN_SESSION_TTL", 10*time.Minute),
		PendingReferralTTL: getEnvDuration("PENDING_REFERRAL_TTL", 24*time.Hour),
		StockCheckInterval: getEnvDuration("STOCK_CHECK_INTERVAL", 30*time.Minute),
		LowStockThreshold:  getEnvInt64("LOW_STOCK_THRESHOLD", 5),
	}

	if strings.TrimSpace(cfg.BotToken) == "" {
		return nil, ErrMissingBotToken
	}
	return cfg, nil
}

// DSN returns DATABASE_URL, or a keyword/value Postgres DSN built from the DB_* settings.
func (c *Config) DSN() string {
	if strings.TrimSpace(c.DatabaseURL) != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort)
}

// IsAdmin reports whether userID is listed in ADMIN_IDS.
func (c *Config) IsAdmin(userID int64) bool {
	for _, id := range c.AdminIDs {
		if id == userID {
			return true
		}
	}
	return false
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	raw := strings.TrimSpace(getEnv(key, ""))
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		log.Warnf("Invalid %s=%q, using %d", key, raw, fallback)
		return fallback
	}
	return v
}

func getEnvInt64(key string, fallback int64) int64 {
	raw := strings.TrimSpace(getEnv(key, ""))
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		log.Warnf("Invalid %s=%q, using %d", key, raw, fallback)
		return fallback
	}
	return v
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(getEnv(key, ""))
	if raw == "" {
		return fallback
	}
	v, err := time.ParseDuration(raw)
	if err != nil || v <= 0 {
		log.Warnf("Invalid %s=%q, using %s", key, raw, fallback)
		return fallback
	}
	return v
}

// parseIDList parses a comma separated list of chat ids. Any malformed entry
// empties the whole list.
func parseIDList(key, raw string) []int64 {
	ids := []int64{}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			log.Warnf("%s not set correctly (%q is not an id), ignoring the list", key, part)
			return []int64{}
		}
		ids = append(ids, id)
	}
	return ids
}
