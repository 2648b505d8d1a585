package inventory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"referral-coupon-bot/internal/models"
	"referral-coupon-bot/internal/testutil"
)

func seed(t *testing.T, db *gorm.DB, d models.Denomination, codes ...string) {
	t.Helper()
	for _, code := range codes {
		require.NoError(t, db.Create(&models.Coupon{Code: code, Amount: d}).Error)
	}
}

func TestClaimMarksCouponUsed(t *testing.T) {
	db := testutil.NewDB(t)
	store := NewStore(db)
	seed(t, db, 500, "ABC123")

	coupon, outcome, err := store.Claim(context.Background(), 500, 77)
	require.NoError(t, err)
	require.Equal(t, Claimed, outcome)
	assert.Equal(t, "ABC123", coupon.Code)

	var stored models.Coupon
	require.NoError(t, db.Where("code = ?", "ABC123").First(&stored).Error)
	assert.True(t, stored.IsUsed)
	require.NotNil(t, stored.UsedBy)
	assert.Equal(t, int64(77), *stored.UsedBy)
	assert.NotNil(t, stored.UsedAt)

	_, outcome, err = store.Claim(context.Background(), 500, 78)
	require.NoError(t, err)
	assert.Equal(t, OutOfStock, outcome)
}

func TestClaimOnlyMatchingDenomination(t *testing.T) {
	db := testutil.NewDB(t)
	store := NewStore(db)
	seed(t, db, 1000, "K1")

	_, outcome, err := store.Claim(context.Background(), 500, 1)
	require.NoError(t, err)
	assert.Equal(t, OutOfStock, outcome)
}

func TestClaimTakesOldestCoupon(t *testing.T) {
	db := testutil.NewDB(t)
	store := NewStore(db)
	seed(t, db, 2000, "ZZ-FIRST", "AA-SECOND", "MM-THIRD")

	for _, want := range []string{"ZZ-FIRST", "AA-SECOND", "MM-THIRD"} {
		coupon, outcome, err := store.Claim(context.Background(), 2000, 5)
		require.NoError(t, err)
		require.Equal(t, Claimed, outcome)
		assert.Equal(t, want, coupon.Code)
	}
}

func TestClaimUnknownDenomination(t *testing.T) {
	store := NewStore(testutil.NewDB(t))

	_, _, err := store.Claim(context.Background(), 750, 1)
	assert.ErrorIs(t, err, models.ErrUnknownDenomination)
}

func TestConcurrentClaimsAreExclusive(t *testing.T) {
	db := testutil.NewDB(t)
	store := NewStore(db)
	seed(t, db, 2000, "ONLY")

	const workers = 16
	var wg sync.WaitGroup
	outcomes := make(chan ClaimOutcome, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(userID int64) {
			defer wg.Done()
			_, outcome, err := store.Claim(context.Background(), 2000, userID)
			assert.NoError(t, err)
			outcomes <- outcome
		}(int64(i + 1))
	}
	wg.Wait()
	close(outcomes)

	counts := map[ClaimOutcome]int{}
	for o := range outcomes {
		counts[o]++
	}
	assert.Equal(t, 1, counts[Claimed])
	assert.Equal(t, workers-1, counts[OutOfStock])
}

func TestConcurrentClaimsNeverShareCodes(t *testing.T) {
	db := testutil.NewDB(t)
	store := NewStore(db)
	seed(t, db, 500, "A", "B", "C", "D", "E")

	var wg sync.WaitGroup
	var mu sync.Mutex
	seen := map[string]int{}
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func(userID int64) {
			defer wg.Done()
			coupon, outcome, err := store.Claim(context.Background(), 500, userID)
			assert.NoError(t, err)
			if outcome == Claimed {
				mu.Lock()
				seen[coupon.Code]++
				mu.Unlock()
			}
		}(int64(i + 1))
	}
	wg.Wait()

	assert.Len(t, seen, 5)
	for code, n := range seen {
		assert.Equal(t, 1, n, "code %s handed out %d times", code, n)
	}
}

func TestStockAndStats(t *testing.T) {
	db := testutil.NewDB(t)
	store := NewStore(db)
	seed(t, db, 500, "A", "B")
	seed(t, db, 4000, "Z")
	_, _, err := store.Claim(context.Background(), 500, 1)
	require.NoError(t, err)

	stock, err := store.Stock(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[models.Denomination]int64{500: 1, 1000: 0, 2000: 0, 4000: 1}, stock)

	stats, err := store.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Stats{Total: 3, Used: 1, Available: 2}, stats)
}
