package model

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// SyncRequest is sent by a pool forwarding its collected protocol fees.
type SyncRequest struct {
	Pool common.Address `json:"pool"`
	A    Bucket         `json:"a"`
	B    Bucket         `json:"b"`
}

type SyncResponse struct {
	FeeProtocolShare decimal.Decimal `json:"fee_protocol_share"`
	NextSyncTime     uint64          `json:"next_sync_time"`
}

type ConfigRequest struct {
	FeeProtocolShare decimal.Decimal `json:"fee_protocol_share"`
	SyncPeriod       uint64          `json:"sync_period"`
	SyncSlots        uint64          `json:"sync_slots"`
}

type ConfigResponse struct {
	Owner               common.Address  `json:"owner"`
	FeeProtocolShare    decimal.Decimal `json:"fee_protocol_share"`
	FeeProtocolShareMax decimal.Decimal `json:"fee_protocol_share_max"`
	SyncPeriod          uint64          `json:"sync_period"`
	SyncSlots           uint64          `json:"sync_slots"`
}

type WithdrawRequest struct {
	Tokens []common.Address `json:"tokens" binding:"required"`
}

type WithdrawResponse struct {
	Buckets []Bucket `json:"buckets"`
}

type BalancesResponse struct {
	Balances []Bucket `json:"balances"`
}

type ScheduleResponse struct {
	Pool         common.Address `json:"pool"`
	Slot         uint64         `json:"slot"`
	NextSyncTime uint64         `json:"next_sync_time"`
	SyncPeriod   uint64         `json:"sync_period"`
	SyncSlots    uint64         `json:"sync_slots"`
}
