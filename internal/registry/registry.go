package registry

import (
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ociswap/registry/internal/model"
	"github.com/shopspring/decimal"
)

var ErrInvalidBucket = errors.New("invalid bucket")

// Registry sets and collects the protocol fees of a family of pools.
//
// A Registry is not safe for concurrent use: the hosting environment runs
// every call to completion before starting the next. Every operation checks
// its inputs before mutating anything, so a failed call leaves the registry
// exactly as it found it.
type Registry struct {
	owner  Authorizer
	config Config
	fees   *FeeLedger
	clock  Clock
}

type Option func(*Registry)

// WithClock replaces the system clock used for scheduling.
func WithClock(clock Clock) Option {
	return func(r *Registry) {
		if clock != nil {
			r.clock = clock
		}
	}
}

// Instantiate creates a registry owned by owner with an empty fee ledger.
func Instantiate(owner Authorizer, cfg Config, opts ...Option) (*Registry, error) {
	if owner == nil {
		return nil, errors.New("registry requires an owner authorizer")
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	r := &Registry{
		owner:  owner,
		config: cfg,
		fees:   NewFeeLedger(),
		clock:  SystemClock{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Synchronize deposits the protocol fees of pool and tells it the current
// fee share and when to come back.
func (r *Registry) Synchronize(pool common.Address, a, b model.Bucket) (decimal.Decimal, uint64, error) {
	return r.SynchronizeAt(pool, a, b, r.clock.Now())
}

// SynchronizeAt is Synchronize against a clock reading the caller already took.
func (r *Registry) SynchronizeAt(pool common.Address, a, b model.Bucket, at time.Time) (decimal.Decimal, uint64, error) {
	if err := a.Validate(); err != nil {
		return decimal.Zero, 0, fmt.Errorf("%w: %v", ErrInvalidBucket, err)
	}
	if err := b.Validate(); err != nil {
		return decimal.Zero, 0, fmt.Errorf("%w: %v", ErrInvalidBucket, err)
	}
	r.fees.Deposit(a)
	r.fees.Deposit(b)

	return r.config.FeeProtocolShare, r.config.NextSyncTime(pool, unixSeconds(at)), nil
}

// UpdateConfig replaces all three config fields at once.
func (r *Registry) UpdateConfig(proof Proof, cfg Config) error {
	if err := r.owner.Authorize(proof); err != nil {
		return err
	}
	if err := Validate(cfg); err != nil {
		return err
	}
	r.config = cfg
	return nil
}

// WithdrawProtocolFees drains the fees collected for tokens, in request order.
func (r *Registry) WithdrawProtocolFees(proof Proof, tokens []common.Address) ([]model.Bucket, error) {
	if err := r.owner.Authorize(proof); err != nil {
		return nil, err
	}
	return r.fees.WithdrawAll(tokens), nil
}

// Authorize checks proof against the owner without touching any state.
func (r *Registry) Authorize(proof Proof) error {
	return r.owner.Authorize(proof)
}

func (r *Registry) Config() Config {
	return r.config
}

func (r *Registry) Owner() Authorizer {
	return r.owner
}

// Balances lists every ledger entry, drained ones included.
func (r *Registry) Balances() []model.Bucket {
	return r.fees.Entries()
}

// Entries returns the current entries for tokens, skipping tokens without an entry and duplicates.
func (r *Registry) Entries(tokens ...common.Address) []model.Bucket {
	seen := make(map[common.Address]struct{}, len(tokens))
	out := make([]model.Bucket, 0, len(tokens))
	for _, token := range tokens {
		if _, dup := seen[token]; dup {
			continue
		}
		seen[token] = struct{}{}
		if amount, ok := r.fees.Balance(token); ok {
			out = append(out, model.NewBucket(token, amount))
		}
	}
	return out
}

// PreviewNextSync computes the sync time Synchronize would return for pool right now.
func (r *Registry) PreviewNextSync(pool common.Address) uint64 {
	return r.PreviewNextSyncAt(pool, r.clock.Now())
}

func (r *Registry) PreviewNextSyncAt(pool common.Address, at time.Time) uint64 {
	return r.config.NextSyncTime(pool, unixSeconds(at))
}

// Clock is fixed at instantiation, so it may be read without serializing on the registry.
func (r *Registry) Clock() Clock {
	return r.clock
}

// State is a detached copy of everything a registry persists.
type State struct {
	Config   Config
	Balances []model.Bucket
}

func (r *Registry) Snapshot() State {
	return State{
		Config:   r.config,
		Balances: r.fees.Entries(),
	}
}

// Restore replaces config and ledger with s. The config is validated first.
func (r *Registry) Restore(s State) error {
	if err := Validate(s.Config); err != nil {
		return err
	}
	for _, b := range s.Balances {
		if err := b.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidBucket, err)
		}
	}
	r.config = s.Config
	r.fees = ledgerFromEntries(s.Balances)
	return nil
}
