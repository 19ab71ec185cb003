package service

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ociswap/registry/internal/model"
	"github.com/ociswap/registry/internal/registry"
)

// Change is what one committed call wrote: the new config, if it changed, and
// the new balance of every ledger entry it touched.
type Change struct {
	Config   *registry.Config
	Balances []model.Bucket
}

func (c Change) IsEmpty() bool {
	return c.Config == nil && len(c.Balances) == 0
}

// StateStore persists registry state. Commit must apply a change atomically.
type StateStore interface {
	// Load returns nil, nil when nothing has been committed yet.
	Load(ctx context.Context) (*registry.State, error)
	Commit(ctx context.Context, change Change) error
}

// MemoryStateStore keeps state in process; used when no database is configured.
type MemoryStateStore struct {
	mu       sync.RWMutex
	config   *registry.Config
	balances map[common.Address]model.Bucket
	order    []common.Address
}

func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{
		balances: make(map[common.Address]model.Bucket),
	}
}

func (s *MemoryStateStore) Load(ctx context.Context) (*registry.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.config == nil {
		return nil, nil
	}
	state := &registry.State{
		Config:   *s.config,
		Balances: make([]model.Bucket, 0, len(s.order)),
	}
	for _, token := range s.order {
		state.Balances = append(state.Balances, s.balances[token])
	}
	return state, nil
}

func (s *MemoryStateStore) Commit(ctx context.Context, change Change) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if change.Config != nil {
		cfg := *change.Config
		s.config = &cfg
	}
	for _, b := range change.Balances {
		if _, ok := s.balances[b.Token]; !ok {
			s.order = append(s.order, b.Token)
		}
		s.balances[b.Token] = b
	}
	return nil
}
