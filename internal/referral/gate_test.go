package referral

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"referral-coupon-bot/internal/ledger"
	"referral-coupon-bot/internal/models"
	"referral-coupon-bot/internal/session"
	"referral-coupon-bot/internal/testutil"
)

type fakeOracle struct {
	mu      sync.Mutex
	members map[int64]map[int64]bool
	failing map[int64]bool
}

func newFakeOracle() *fakeOracle {
	return &fakeOracle{members: map[int64]map[int64]bool{}, failing: map[int64]bool{}}
}

func (o *fakeOracle) join(groupID, userID int64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.members[groupID] == nil {
		o.members[groupID] = map[int64]bool{}
	}
	o.members[groupID][userID] = true
}

func (o *fakeOracle) IsMember(_ context.Context, groupID, userID int64) (bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.failing[groupID] {
		return false, errors.New("telegram unavailable")
	}
	return o.members[groupID][userID], nil
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Notify(ctx context.Context, text string) {
	m.Called(ctx, text)
}

type fixture struct {
	gate     *Gate
	oracle   *fakeOracle
	ledger   *ledger.Ledger
	notifier *mockNotifier
}

func newFixture(t *testing.T, groups ...int64) *fixture {
	_, rdb := testutil.NewRedis(t)
	l := ledger.New(testutil.NewDB(t))
	oracle := newFakeOracle()
	n := new(mockNotifier)
	n.On("Notify", mock.Anything, mock.Anything).Maybe()
	return &fixture{
		gate:     NewGate(oracle, groups, session.NewStore(rdb, time.Hour, time.Minute), l, n),
		oracle:   oracle,
		ledger:   l,
		notifier: n,
	}
}

func TestParseReferrer(t *testing.T) {
	ref := ParseReferrer("12345", 1)
	require.NotNil(t, ref)
	assert.Equal(t, int64(12345), *ref)

	assert.Nil(t, ParseReferrer("", 1))
	assert.Nil(t, ParseReferrer("abc", 1))
	assert.Nil(t, ParseReferrer("-5", 1))
	assert.Nil(t, ParseReferrer("12a", 1))
	assert.Nil(t, ParseReferrer("99999999999999999999999", 1))
	assert.Nil(t, ParseReferrer("7", 7), "self referral")
}

func TestStartWithoutGroupsRegistersImmediately(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, _, err := f.ledger.Register(ctx, models.Identity{UserID: 100}, nil)
	require.NoError(t, err)

	adm, err := f.gate.Start(ctx, models.Identity{UserID: 200, FirstName: "Bob"}, "100")
	require.NoError(t, err)
	assert.True(t, adm.Joined)
	assert.True(t, adm.Created)
	assert.True(t, adm.Credited)

	referrer, err := f.ledger.Get(ctx, 100)
	require.NoError(t, err)
	assert.True(t, referrer.Balance.Equal(decimal.NewFromInt(1)))
	f.notifier.AssertCalled(t, "Notify", mock.Anything, mock.Anything)
}

func TestStartIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, _, err := f.ledger.Register(ctx, models.Identity{UserID: 100}, nil)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := f.gate.Start(ctx, models.Identity{UserID: 200}, "100")
		require.NoError(t, err)
	}

	referrer, err := f.ledger.Get(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, int64(1), referrer.ReferralCount)
}

func TestPendingUntilConfirmed(t *testing.T) {
	f := newFixture(t, -1001, -1002)
	ctx := context.Background()
	_, _, err := f.ledger.Register(ctx, models.Identity{UserID: 100}, nil)
	require.NoError(t, err)
	who := models.Identity{UserID: 200}

	adm, err := f.gate.Start(ctx, who, "100")
	require.NoError(t, err)
	assert.False(t, adm.Joined)
	_, err = f.ledger.Get(ctx, 200)
	assert.ErrorIs(t, err, ledger.ErrUserNotFound, "no account while pending")

	f.oracle.join(-1001, 200)
	adm, err = f.gate.Confirm(ctx, who)
	require.NoError(t, err)
	assert.False(t, adm.Joined, "must be member of every group")

	f.oracle.join(-1002, 200)
	adm, err = f.gate.Confirm(ctx, who)
	require.NoError(t, err)
	assert.True(t, adm.Joined)
	assert.True(t, adm.Created)
	assert.True(t, adm.Credited)

	user, err := f.ledger.Get(ctx, 200)
	require.NoError(t, err)
	require.NotNil(t, user.ReferredBy)
	assert.Equal(t, int64(100), *user.ReferredBy)

	adm, err = f.gate.Confirm(ctx, who)
	require.NoError(t, err)
	assert.True(t, adm.Joined)
	assert.False(t, adm.Created)
	assert.False(t, adm.Credited)

	referrer, err := f.ledger.Get(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, int64(1), referrer.ReferralCount)
}

func TestOracleErrorCountsAsNotJoined(t *testing.T) {
	f := newFixture(t, -1001)
	f.oracle.join(-1001, 200)
	f.oracle.failing[-1001] = true

	assert.False(t, f.gate.Joined(context.Background(), 200))

	adm, err := f.gate.Start(context.Background(), models.Identity{UserID: 200}, "")
	require.NoError(t, err)
	assert.False(t, adm.Joined)
}

func TestSelfReferralViaStartIsIgnored(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	adm, err := f.gate.Start(ctx, models.Identity{UserID: 300}, "300")
	require.NoError(t, err)
	assert.True(t, adm.Created)
	assert.False(t, adm.Credited)

	user, err := f.ledger.Get(ctx, 300)
	require.NoError(t, err)
	assert.Nil(t, user.ReferredBy)
}
