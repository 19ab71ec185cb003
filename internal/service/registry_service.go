package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ociswap/registry/internal/model"
	"github.com/ociswap/registry/internal/pkg/apperrors"
	"github.com/ociswap/registry/internal/pkg/logger"
	"github.com/ociswap/registry/internal/pkg/metrics"
	"github.com/ociswap/registry/internal/registry"
)

// RegistryService hosts a single registry: it runs every call to completion
// under one lock and commits the result to the state store. A call whose
// commit fails is rolled back, so callers never observe state the store does
// not hold.
type RegistryService struct {
	mu     sync.Mutex
	reg    *registry.Registry
	store  StateStore
	events *EventHub
	log    *slog.Logger
}

// NewRegistryService instantiates the registry from seed, then replaces its
// state with whatever the store already holds. On a fresh store the seed
// config is committed.
func NewRegistryService(ctx context.Context, owner registry.Authorizer, seed registry.Config, store StateStore, events *EventHub, opts ...registry.Option) (*RegistryService, error) {
	if store == nil {
		store = NewMemoryStateStore()
	}
	reg, err := registry.Instantiate(owner, seed, opts...)
	if err != nil {
		return nil, err
	}
	s := &RegistryService{
		reg:    reg,
		store:  store,
		events: events,
		log:    logger.Component("registry"),
	}

	state, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load registry state: %w", err)
	}
	if state != nil {
		if err := reg.Restore(*state); err != nil {
			return nil, fmt.Errorf("restore registry state: %w", err)
		}
		s.log.Info("Registry state restored",
			"fee_protocol_share", state.Config.FeeProtocolShare.String(),
			"sync_period", state.Config.SyncPeriod,
			"sync_slots", state.Config.SyncSlots,
			"tokens", len(state.Balances))
		return s, nil
	}

	if err := store.Commit(ctx, Change{Config: &seed}); err != nil {
		return nil, fmt.Errorf("commit initial registry config: %w", err)
	}
	s.log.Info("Registry instantiated",
		"fee_protocol_share", seed.FeeProtocolShare.String(),
		"sync_period", seed.SyncPeriod,
		"sync_slots", seed.SyncSlots)
	return s, nil
}

// Sync deposits the pool's fees and returns its schedule.
func (s *RegistryService) Sync(ctx context.Context, pool common.Address, a, b model.Bucket) (model.SyncResponse, error) {
	// a block clock may round-trip to the node; never hold the lock across it
	now := s.reg.Clock().Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.reg.Snapshot()
	share, next, err := s.reg.SynchronizeAt(pool, a, b, now)
	if err != nil {
		s.reject(err)
		return model.SyncResponse{}, err
	}
	if err := s.commit(ctx, snap, Change{Balances: s.reg.Entries(a.Token, b.Token)}); err != nil {
		return model.SyncResponse{}, err
	}

	metrics.SyncsTotal.Inc()
	for _, bucket := range []model.Bucket{a, b} {
		metrics.DepositedAmount.WithLabelValues(bucket.Token.Hex()).Add(bucket.Amount.InexactFloat64())
	}
	s.log.Info("Pool synchronized",
		"pool", pool.Hex(),
		"token_a", a.Token.Hex(), "amount_a", a.Amount.String(),
		"token_b", b.Token.Hex(), "amount_b", b.Amount.String(),
		"next_sync_time", next)

	p := pool
	s.events.Publish(model.Event{
		Type:             model.EventSync,
		Pool:             &p,
		Buckets:          []model.Bucket{a, b},
		FeeProtocolShare: &share,
		NextSyncTime:     next,
		At:               time.Now().UTC(),
	})
	return model.SyncResponse{FeeProtocolShare: share, NextSyncTime: next}, nil
}

func (s *RegistryService) UpdateConfig(ctx context.Context, proof registry.Proof, cfg registry.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.reg.Snapshot()
	if err := s.reg.UpdateConfig(proof, cfg); err != nil {
		s.reject(err)
		return err
	}
	if err := s.commit(ctx, snap, Change{Config: &cfg}); err != nil {
		return err
	}

	metrics.ConfigUpdates.Inc()
	s.log.Info("Registry config updated",
		"owner", proof.Holder.Hex(),
		"fee_protocol_share", cfg.FeeProtocolShare.String(),
		"sync_period", cfg.SyncPeriod,
		"sync_slots", cfg.SyncSlots)

	share := cfg.FeeProtocolShare
	s.events.Publish(model.Event{
		Type:             model.EventConfigUpdated,
		FeeProtocolShare: &share,
		SyncPeriod:       cfg.SyncPeriod,
		SyncSlots:        cfg.SyncSlots,
		At:               time.Now().UTC(),
	})
	return nil
}

func (s *RegistryService) Withdraw(ctx context.Context, proof registry.Proof, tokens []common.Address) ([]model.Bucket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.reg.Snapshot()
	out, err := s.reg.WithdrawProtocolFees(proof, tokens)
	if err != nil {
		s.reject(err)
		return nil, err
	}
	if err := s.commit(ctx, snap, Change{Balances: s.reg.Entries(tokens...)}); err != nil {
		return nil, err
	}

	for _, bucket := range out {
		if bucket.IsEmpty() {
			continue
		}
		metrics.WithdrawnAmount.WithLabelValues(bucket.Token.Hex()).Add(bucket.Amount.InexactFloat64())
		s.log.Info("Protocol fees withdrawn", "owner", proof.Holder.Hex(), "token", bucket.Token.Hex(), "amount", bucket.Amount.String())
	}
	s.events.Publish(model.Event{
		Type:    model.EventFeesWithdrawn,
		Buckets: out,
		At:      time.Now().UTC(),
	})
	return out, nil
}

// Authorize checks an owner proof for read-only owner endpoints.
func (s *RegistryService) Authorize(proof registry.Proof) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.reg.Authorize(proof); err != nil {
		s.reject(err)
		return err
	}
	return nil
}

func (s *RegistryService) Config() model.ConfigResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg := s.reg.Config()
	resp := model.ConfigResponse{
		FeeProtocolShare:    cfg.FeeProtocolShare,
		FeeProtocolShareMax: registry.FeeProtocolShareMax,
		SyncPeriod:          cfg.SyncPeriod,
		SyncSlots:           cfg.SyncSlots,
	}
	if badge, ok := s.reg.Owner().(registry.OwnerBadge); ok {
		resp.Owner = badge.Address
	}
	return resp
}

func (s *RegistryService) Balances() []model.Bucket {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reg.Balances()
}

// Schedule previews the sync time a pool would get right now, without depositing.
func (s *RegistryService) Schedule(pool common.Address) model.ScheduleResponse {
	now := s.reg.Clock().Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	cfg := s.reg.Config()
	return model.ScheduleResponse{
		Pool:         pool,
		Slot:         cfg.Slot(pool),
		NextSyncTime: s.reg.PreviewNextSyncAt(pool, now),
		SyncPeriod:   cfg.SyncPeriod,
		SyncSlots:    cfg.SyncSlots,
	}
}

func (s *RegistryService) commit(ctx context.Context, snap registry.State, change Change) error {
	if change.IsEmpty() {
		return nil
	}
	if err := s.store.Commit(ctx, change); err != nil {
		if rerr := s.reg.Restore(snap); rerr != nil {
			// unreachable: snap came from a valid registry
			panic(fmt.Sprintf("registry rollback failed: %v", rerr))
		}
		logger.LogError(ctx, err, "Registry commit failed, call rolled back")
		metrics.Rejections.WithLabelValues(string(apperrors.ErrInternal)).Inc()
		return fmt.Errorf("commit registry state: %w", err)
	}
	return nil
}

func (s *RegistryService) reject(err error) {
	appErr := apperrors.FromRegistry(err)
	metrics.Rejections.WithLabelValues(string(appErr.Type)).Inc()
	s.log.Warn("Registry call rejected", "code", appErr.Type, "error", err.Error())
}
