package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ociswap/registry/internal/model"
	"github.com/ociswap/registry/internal/registry"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	owner  = common.HexToAddress("0x1111111111111111111111111111111111111111")
	pool   = common.HexToAddress("0x3333333333333333333333333333333333333333")
	tokenX = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	tokenY = common.HexToAddress("0x00000000000000000000000000000000000000bb")
)

func seedConfig() registry.Config {
	return registry.Config{FeeProtocolShare: decimal.RequireFromString("0.1"), SyncPeriod: 10080, SyncSlots: 20}
}

type flakyStore struct {
	*MemoryStateStore
	fail bool
}

func (s *flakyStore) Commit(ctx context.Context, change Change) error {
	if s.fail {
		return errors.New("database unavailable")
	}
	return s.MemoryStateStore.Commit(ctx, change)
}

func newService(t *testing.T, store StateStore, hub *EventHub) *RegistryService {
	t.Helper()
	svc, err := NewRegistryService(context.Background(), registry.NewOwnerBadge(owner), seedConfig(), store, hub,
		registry.WithClock(registry.FixedClock(time.Unix(1_700_000_000, 0))))
	require.NoError(t, err)
	return svc
}

func bucket(token common.Address, amount string) model.Bucket {
	return model.NewBucket(token, decimal.RequireFromString(amount))
}

func TestRegistryServiceSyncAndWithdraw(t *testing.T) {
	store := NewMemoryStateStore()
	svc := newService(t, store, nil)
	ctx := context.Background()

	resp, err := svc.Sync(ctx, pool, bucket(tokenX, "1"), bucket(tokenY, "2"))
	require.NoError(t, err)
	assert.Equal(t, "0.1", resp.FeeProtocolShare.String())
	assert.GreaterOrEqual(t, resp.NextSyncTime, uint64(1_700_000_000+10080))
	assert.Less(t, resp.NextSyncTime, uint64(1_700_000_000+20160))

	state, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, state.Balances, 2)
	assert.Equal(t, "1", state.Balances[0].Amount.String())

	out, err := svc.Withdraw(ctx, registry.Proof{Holder: owner}, []common.Address{tokenX, tokenY})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "1", out[0].Amount.String())
	assert.Equal(t, "2", out[1].Amount.String())

	state, err = store.Load(ctx)
	require.NoError(t, err)
	for _, b := range state.Balances {
		assert.True(t, b.IsEmpty(), "store must hold the drained balances")
	}
}

func TestRegistryServiceRollsBackFailedCommit(t *testing.T) {
	store := &flakyStore{MemoryStateStore: NewMemoryStateStore()}
	svc := newService(t, store, nil)
	ctx := context.Background()

	_, err := svc.Sync(ctx, pool, bucket(tokenX, "1"), bucket(tokenY, "2"))
	require.NoError(t, err)

	store.fail = true
	_, err = svc.Sync(ctx, pool, bucket(tokenX, "5"), bucket(tokenY, "5"))
	assert.Error(t, err)

	err = svc.UpdateConfig(ctx, registry.Proof{Holder: owner}, registry.Config{FeeProtocolShare: decimal.Zero, SyncPeriod: 10, SyncSlots: 10})
	assert.Error(t, err)
	assert.Equal(t, uint64(10080), svc.Config().SyncPeriod)

	_, err = svc.Withdraw(ctx, registry.Proof{Holder: owner}, []common.Address{tokenX})
	assert.Error(t, err)

	balances := svc.Balances()
	require.Len(t, balances, 2)
	assert.Equal(t, "1", balances[0].Amount.String())
	assert.Equal(t, "2", balances[1].Amount.String())
}

func TestRegistryServiceRejectsWithoutCommitting(t *testing.T) {
	store := NewMemoryStateStore()
	svc := newService(t, store, nil)
	ctx := context.Background()

	err := svc.UpdateConfig(ctx, registry.Proof{}, registry.Config{FeeProtocolShare: decimal.Zero, SyncPeriod: 10, SyncSlots: 10})
	assert.ErrorIs(t, err, registry.ErrUnauthorized)

	err = svc.UpdateConfig(ctx, registry.Proof{Holder: owner}, registry.Config{FeeProtocolShare: decimal.RequireFromString("0.26"), SyncPeriod: 10, SyncSlots: 10})
	assert.ErrorIs(t, err, registry.ErrFeeShareOutOfBounds)

	state, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(10080), state.Config.SyncPeriod)

	_, err = svc.Withdraw(ctx, registry.Proof{Holder: pool}, []common.Address{tokenX})
	assert.ErrorIs(t, err, registry.ErrUnauthorized)
}

func TestRegistryServiceRestoresFromStore(t *testing.T) {
	store := NewMemoryStateStore()
	ctx := context.Background()

	first := newService(t, store, nil)
	_, err := first.Sync(ctx, pool, bucket(tokenX, "1.5"), bucket(tokenY, "0"))
	require.NoError(t, err)
	require.NoError(t, first.UpdateConfig(ctx, registry.Proof{Holder: owner}, registry.Config{FeeProtocolShare: decimal.RequireFromString("0.2"), SyncPeriod: 100, SyncSlots: 42}))

	second := newService(t, store, nil)
	cfg := second.Config()
	assert.Equal(t, owner, cfg.Owner)
	assert.Equal(t, "0.2", cfg.FeeProtocolShare.String())
	assert.Equal(t, uint64(100), cfg.SyncPeriod)
	assert.Equal(t, uint64(42), cfg.SyncSlots)

	balances := second.Balances()
	require.Len(t, balances, 2)
	assert.Equal(t, "1.5", balances[0].Amount.String())
}

func TestRegistryServicePublishesEvents(t *testing.T) {
	hub := NewEventHub(8)
	events, cancel := hub.Subscribe()
	defer cancel()

	svc := newService(t, NewMemoryStateStore(), hub)
	ctx := context.Background()

	resp, err := svc.Sync(ctx, pool, bucket(tokenX, "1"), bucket(tokenY, "2"))
	require.NoError(t, err)

	e := <-events
	assert.Equal(t, model.EventSync, e.Type)
	require.NotNil(t, e.Pool)
	assert.Equal(t, pool, *e.Pool)
	assert.Equal(t, resp.NextSyncTime, e.NextSyncTime)

	_, err = svc.Withdraw(ctx, registry.Proof{Holder: owner}, []common.Address{tokenX})
	require.NoError(t, err)
	e = <-events
	assert.Equal(t, model.EventFeesWithdrawn, e.Type)
	require.Len(t, e.Buckets, 1)
}

func TestRegistryServiceSchedule(t *testing.T) {
	svc := newService(t, NewMemoryStateStore(), nil)
	sched := svc.Schedule(pool)
	assert.Equal(t, registry.PoolSlotKey(pool)%20, sched.Slot)

	resp, err := svc.Sync(context.Background(), pool, model.EmptyBucket(tokenX), model.EmptyBucket(tokenY))
	require.NoError(t, err)
	assert.Equal(t, resp.NextSyncTime, sched.NextSyncTime)
}

// gateClock blocks every reading until released, like a node that is slow to answer.
type gateClock struct {
	entered chan struct{}
	release chan struct{}
}

func (c *gateClock) Now() time.Time {
	c.entered <- struct{}{}
	<-c.release
	return time.Unix(1_700_000_000, 0)
}

func TestRegistryServiceReadsClockOutsideLock(t *testing.T) {
	clock := &gateClock{entered: make(chan struct{}, 1), release: make(chan struct{})}
	svc, err := NewRegistryService(context.Background(), registry.NewOwnerBadge(owner), seedConfig(), nil, nil,
		registry.WithClock(clock))
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := svc.Sync(context.Background(), pool, bucket(tokenX, "1"), bucket(tokenY, "1"))
		done <- err
	}()
	<-clock.entered

	// the sync is parked on the clock; other calls must not queue behind it
	read := make(chan struct{})
	go func() {
		_ = svc.Config()
		_ = svc.Balances()
		close(read)
	}()
	select {
	case <-read:
	case <-time.After(2 * time.Second):
		t.Fatal("reads blocked while sync waited on the clock")
	}

	close(clock.release)
	require.NoError(t, <-done)
	require.Len(t, svc.Balances(), 2)
}
