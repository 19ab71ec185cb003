package registry

import (
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ociswap/registry/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	owner    = common.HexToAddress("0x1111111111111111111111111111111111111111")
	stranger = common.HexToAddress("0x2222222222222222222222222222222222222222")
	pool     = common.HexToAddress("0x3333333333333333333333333333333333333333")
)

func defaultConfig() Config {
	return Config{FeeProtocolShare: dec("0.1"), SyncPeriod: 10080, SyncSlots: 20}
}

func newTestRegistry(t *testing.T, now time.Time) *Registry {
	t.Helper()
	r, err := Instantiate(NewOwnerBadge(owner), defaultConfig(), WithClock(FixedClock(now)))
	require.NoError(t, err)
	return r
}

func TestInstantiateRejectsInvalidConfig(t *testing.T) {
	_, err := Instantiate(NewOwnerBadge(owner), Config{FeeProtocolShare: dec("0.3"), SyncPeriod: 1, SyncSlots: 1})
	assert.ErrorIs(t, err, ErrFeeShareOutOfBounds)

	_, err = Instantiate(NewOwnerBadge(owner), Config{FeeProtocolShare: dec("0.1"), SyncPeriod: 1, SyncSlots: 2})
	assert.ErrorIs(t, err, ErrSlotsExceedPeriod)

	_, err = Instantiate(nil, defaultConfig())
	assert.Error(t, err)
}

func TestInstantiateBoundaryGranularity(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	for _, slots := range []uint64{1, 10080} {
		cfg := defaultConfig()
		cfg.SyncSlots = slots
		r, err := Instantiate(NewOwnerBadge(owner), cfg, WithClock(FixedClock(now)))
		require.NoError(t, err)

		_, next, err := r.Synchronize(pool, model.EmptyBucket(tokenX), model.EmptyBucket(tokenY))
		require.NoError(t, err)
		assert.GreaterOrEqual(t, next-uint64(now.Unix()), cfg.SyncPeriod)
		assert.Less(t, next-uint64(now.Unix()), 2*cfg.SyncPeriod)
	}
}

func TestSynchronizeThenWithdraw(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	r := newTestRegistry(t, now)

	share, next, err := r.Synchronize(pool, model.NewBucket(tokenX, dec("1")), model.NewBucket(tokenY, dec("2")))
	require.NoError(t, err)
	assert.True(t, dec("0.1").Equal(share))
	start := uint64(now.Unix())
	assert.GreaterOrEqual(t, next, start+10080)
	assert.Less(t, next, start+20160)

	out, err := r.WithdrawProtocolFees(Proof{Holder: owner}, []common.Address{tokenX, tokenY})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, tokenX, out[0].Token)
	assert.True(t, dec("1").Equal(out[0].Amount))
	assert.Equal(t, tokenY, out[1].Token)
	assert.True(t, dec("2").Equal(out[1].Amount))

	again, err := r.WithdrawProtocolFees(Proof{Holder: owner}, []common.Address{tokenX, tokenY})
	require.NoError(t, err)
	require.Len(t, again, 2)
	assert.True(t, again[0].IsEmpty())
	assert.True(t, again[1].IsEmpty())
}

func TestSynchronizeSameTokenTwice(t *testing.T) {
	r := newTestRegistry(t, time.Unix(1_700_000_000, 0))
	_, _, err := r.Synchronize(pool, model.NewBucket(tokenX, dec("1")), model.NewBucket(tokenX, dec("2")))
	require.NoError(t, err)

	balances := r.Balances()
	require.Len(t, balances, 1)
	assert.True(t, dec("3").Equal(balances[0].Amount))
}

func TestSynchronizeRejectsInvalidBucketWithoutDepositing(t *testing.T) {
	r := newTestRegistry(t, time.Unix(1_700_000_000, 0))
	_, _, err := r.Synchronize(pool, model.NewBucket(tokenX, dec("1")), model.NewBucket(tokenY, dec("-1")))
	assert.ErrorIs(t, err, ErrInvalidBucket)
	assert.Empty(t, r.Balances())

	_, _, err = r.Synchronize(pool, model.NewBucket(tokenX, dec("0.0000000000000000001")), model.EmptyBucket(tokenY))
	assert.ErrorIs(t, err, ErrInvalidBucket)
	assert.Empty(t, r.Balances())
}

func TestSynchronizeIsStableWithinACycle(t *testing.T) {
	r := newTestRegistry(t, time.Unix(1_700_000_000, 0))
	_, first, err := r.Synchronize(pool, model.EmptyBucket(tokenX), model.EmptyBucket(tokenY))
	require.NoError(t, err)
	_, second, err := r.Synchronize(pool, model.EmptyBucket(tokenX), model.EmptyBucket(tokenY))
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, first, r.PreviewNextSync(pool))
}

func TestUpdateConfig(t *testing.T) {
	r := newTestRegistry(t, time.Unix(1_700_000_000, 0))

	updated := Config{FeeProtocolShare: dec("0.2"), SyncPeriod: 100, SyncSlots: 42}
	require.NoError(t, r.UpdateConfig(Proof{Holder: owner}, updated))
	assert.Equal(t, updated, r.Config())

	share, _, err := r.Synchronize(pool, model.EmptyBucket(tokenX), model.EmptyBucket(tokenY))
	require.NoError(t, err)
	assert.True(t, dec("0.2").Equal(share))
}

func TestUpdateConfigRejectsAtomically(t *testing.T) {
	r := newTestRegistry(t, time.Unix(1_700_000_000, 0))
	before := r.Config()

	err := r.UpdateConfig(Proof{Holder: owner}, Config{FeeProtocolShare: dec("0.2"), SyncPeriod: 10, SyncSlots: 11})
	assert.ErrorIs(t, err, ErrSlotsExceedPeriod)
	assert.Equal(t, before, r.Config())

	err = r.UpdateConfig(Proof{Holder: stranger}, Config{FeeProtocolShare: dec("0.2"), SyncPeriod: 10, SyncSlots: 5})
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, before, r.Config())

	err = r.UpdateConfig(Proof{}, Config{FeeProtocolShare: dec("0.2"), SyncPeriod: 10, SyncSlots: 5})
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestWithdrawUnauthorizedLeavesLedger(t *testing.T) {
	r := newTestRegistry(t, time.Unix(1_700_000_000, 0))
	_, _, err := r.Synchronize(pool, model.NewBucket(tokenX, dec("1")), model.EmptyBucket(tokenY))
	require.NoError(t, err)

	out, err := r.WithdrawProtocolFees(Proof{Holder: stranger}, []common.Address{tokenX})
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Nil(t, out)

	x := r.Entries(tokenX)
	require.Len(t, x, 1)
	assert.True(t, dec("1").Equal(x[0].Amount))
}

func TestWithdrawNeverDepositedToken(t *testing.T) {
	r := newTestRegistry(t, time.Unix(1_700_000_000, 0))
	out, err := r.WithdrawProtocolFees(Proof{Holder: owner}, []common.Address{tokenZ})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, tokenZ, out[0].Token)
	assert.True(t, out[0].IsEmpty())
}

func TestSnapshotRestore(t *testing.T) {
	r := newTestRegistry(t, time.Unix(1_700_000_000, 0))
	_, _, err := r.Synchronize(pool, model.NewBucket(tokenX, dec("1")), model.NewBucket(tokenY, dec("2")))
	require.NoError(t, err)

	snap := r.Snapshot()
	_, _, err = r.Synchronize(pool, model.NewBucket(tokenX, dec("5")), model.NewBucket(tokenZ, dec("5")))
	require.NoError(t, err)
	require.NoError(t, r.UpdateConfig(Proof{Holder: owner}, Config{FeeProtocolShare: decimal.Zero, SyncPeriod: 5, SyncSlots: 5}))

	require.NoError(t, r.Restore(snap))
	assert.Equal(t, defaultConfig(), r.Config())
	balances := r.Balances()
	require.Len(t, balances, 2)
	assert.True(t, dec("1").Equal(balances[0].Amount))
	assert.True(t, dec("2").Equal(balances[1].Amount))

	bad := snap
	bad.Config.SyncSlots = 0
	assert.ErrorIs(t, r.Restore(bad), ErrZeroSyncSlots)
	assert.Len(t, r.Balances(), 2)
}

func TestEntriesSkipsUnknownAndDuplicates(t *testing.T) {
	r := newTestRegistry(t, time.Unix(1_700_000_000, 0))
	_, _, err := r.Synchronize(pool, model.NewBucket(tokenX, dec("1")), model.NewBucket(tokenY, dec("2")))
	require.NoError(t, err)

	entries := r.Entries(tokenY, tokenZ, tokenY)
	require.Len(t, entries, 1)
	assert.Equal(t, tokenY, entries[0].Token)
}
