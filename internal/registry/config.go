package registry

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// FeeProtocolShareMax is the largest fraction of pool fees the protocol may claim.
var FeeProtocolShareMax = decimal.RequireFromString("0.25")

var (
	ErrFeeShareOutOfBounds = errors.New("protocol fee share out of bounds")
	ErrZeroSyncSlots       = errors.New("number of sync slots needs to be greater than zero")
	ErrZeroSyncPeriod      = errors.New("sync period needs to be greater than zero")
	ErrSlotsExceedPeriod   = errors.New("number of sync slots needs to be less or equal than the sync period")
)

// Config holds the parameters reported to pools on every synchronization.
type Config struct {
	// FeeProtocolShare is the fraction of collected pool fees reserved as protocol revenue.
	FeeProtocolShare decimal.Decimal `json:"fee_protocol_share"`
	// SyncPeriod is how often, in seconds, a pool should send its protocol fees.
	SyncPeriod uint64 `json:"sync_period"`
	// SyncSlots is the number of offsets a period is divided into.
	SyncSlots uint64 `json:"sync_slots"`
}

// Validate checks a config before it is allowed to take effect.
func Validate(cfg Config) error {
	if cfg.FeeProtocolShare.IsNegative() || cfg.FeeProtocolShare.GreaterThan(FeeProtocolShareMax) {
		return fmt.Errorf("%w: %s not in [0, %s]", ErrFeeShareOutOfBounds, cfg.FeeProtocolShare, FeeProtocolShareMax)
	}
	if cfg.SyncSlots == 0 {
		return ErrZeroSyncSlots
	}
	if cfg.SyncPeriod == 0 {
		return ErrZeroSyncPeriod
	}
	if cfg.SyncSlots > cfg.SyncPeriod {
		return fmt.Errorf("%w: %d slots, %d seconds", ErrSlotsExceedPeriod, cfg.SyncSlots, cfg.SyncPeriod)
	}
	return nil
}

// IsValidationError reports whether err was produced by Validate.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrFeeShareOutOfBounds) ||
		errors.Is(err, ErrZeroSyncSlots) ||
		errors.Is(err, ErrZeroSyncPeriod) ||
		errors.Is(err, ErrSlotsExceedPeriod)
}

// NextSyncTime schedules pool against this config. The config must be valid.
func (c Config) NextSyncTime(pool common.Address, now uint64) uint64 {
	return NextSyncTime(pool, now, c.SyncPeriod, c.SyncSlots)
}

// Slot returns the slot index pool occupies under this config.
func (c Config) Slot(pool common.Address) uint64 {
	return PoolSlotKey(pool) % c.SyncSlots
}
