package registry

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
)

// PoolSlotKey folds the leading eight bytes of a pool address into a big-endian integer.
func PoolSlotKey(pool common.Address) uint64 {
	return binary.BigEndian.Uint64(pool[:8])
}

// NextSyncTime returns when pool should synchronize again.
//
// Every pool owns a fixed slot inside the global cycle of length period. The
// result lands on that slot between one and two periods after now, so a pool
// calling again before its slot comes around gets the same answer.
// period and slots must satisfy Validate.
func NextSyncTime(pool common.Address, now, period, slots uint64) uint64 {
	slot := PoolSlotKey(pool) % slots

	cycleStart := (now / period) * period
	slotOffset := (period / slots) * slot
	next := cycleStart + slotOffset + period

	// never hand out a sync time less than one full period away
	if next-now < period {
		return next + period
	}
	return next
}
