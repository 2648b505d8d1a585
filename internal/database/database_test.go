package database

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"referral-coupon-bot/internal/models"
)

func TestDetectDialect(t *testing.T) {
	cases := map[string]string{
		"postgres://u:p@localhost:5432/db":                DialectPostgres,
		"postgresql://localhost/db":                       DialectPostgres,
		"host=localhost user=u dbname=db sslmode=disable": DialectPostgres,
		"file:coupons.db":                                 DialectSQLite,
		"sqlite://data/coupons.db":                        DialectSQLite,
		"coupons.db":                                      DialectSQLite,
	}
	for dsn, want := range cases {
		got, err := detectDialect(dsn)
		require.NoError(t, err, dsn)
		assert.Equal(t, want, got, dsn)
	}

	_, err := detectDialect("mysql://localhost/db")
	assert.Error(t, err)
}

func TestOpenEmptyDSN(t *testing.T) {
	_, err := Open("  ")
	assert.Error(t, err)
}

func TestOpenSQLiteAndMigrate(t *testing.T) {
	dsn := fmt.Sprintf("file:database_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := Open(dsn)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	require.NoError(t, Migrate(db))
	assert.False(t, IsPostgres(db))

	for _, model := range []any{&models.User{}, &models.Coupon{}, &models.Redemption{}, &models.AdminLog{}} {
		assert.True(t, db.Migrator().HasTable(model))
	}

	require.NoError(t, db.Create(&models.Coupon{Code: "DUP", Amount: 500}).Error)
	assert.Error(t, db.Create(&models.Coupon{Code: "DUP", Amount: 1000}).Error, "code must be unique")
}

func TestOpenSQLiteFileCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "coupons.db")
	db, err := Open("file:" + path)
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())
	assert.FileExists(t, path)
}
