package model

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

type EventType string

const (
	EventSync          EventType = "sync"
	EventConfigUpdated EventType = "config_updated"
	EventFeesWithdrawn EventType = "fees_withdrawn"
)

// Event describes a committed registry state change.
type Event struct {
	Type             EventType        `json:"type"`
	Pool             *common.Address  `json:"pool,omitempty"`
	Buckets          []Bucket         `json:"buckets,omitempty"`
	FeeProtocolShare *decimal.Decimal `json:"fee_protocol_share,omitempty"`
	SyncPeriod       uint64           `json:"sync_period,omitempty"`
	SyncSlots        uint64           `json:"sync_slots,omitempty"`
	NextSyncTime     uint64           `json:"next_sync_time,omitempty"`
	At               time.Time        `json:"at"`
}
