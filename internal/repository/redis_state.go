package repository

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ociswap/registry/internal/model"
	"github.com/ociswap/registry/internal/registry"
	"github.com/ociswap/registry/internal/service"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// RedisStateStore keeps the config in a hash, balances in a token->amount hash
// and the first-deposit order in a sorted set.
type RedisStateStore struct {
	client *RedisClient
}

func NewRedisStateStore(client *RedisClient) *RedisStateStore {
	return &RedisStateStore{client: client}
}

func (s *RedisStateStore) Load(ctx context.Context) (*registry.State, error) {
	raw, err := s.client.Client.HGetAll(ctx, s.client.Key("config")).Result()
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, nil
	}

	cfg, err := decodeConfigHash(raw)
	if err != nil {
		return nil, err
	}

	order, err := s.client.Client.ZRange(ctx, s.client.Key("fee_order"), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	amounts, err := s.client.Client.HGetAll(ctx, s.client.Key("fees")).Result()
	if err != nil {
		return nil, err
	}

	state := &registry.State{Config: cfg, Balances: make([]model.Bucket, 0, len(order))}
	for _, token := range order {
		v, ok := amounts[token]
		if !ok {
			continue
		}
		amount, err := decimal.NewFromString(v)
		if err != nil {
			return nil, fmt.Errorf("fee balance %s: %w", token, err)
		}
		state.Balances = append(state.Balances, model.NewBucket(common.HexToAddress(token), amount))
	}
	return state, nil
}

func (s *RedisStateStore) Commit(ctx context.Context, change service.Change) error {
	if change.IsEmpty() {
		return nil
	}
	now := time.Now().UnixMicro()
	_, err := s.client.Client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if change.Config != nil {
			pipe.HSet(ctx, s.client.Key("config"), map[string]interface{}{
				"fee_protocol_share": change.Config.FeeProtocolShare.String(),
				"sync_period":        strconv.FormatUint(change.Config.SyncPeriod, 10),
				"sync_slots":         strconv.FormatUint(change.Config.SyncSlots, 10),
			})
		}
		for i, b := range change.Balances {
			token := b.Token.Hex()
			pipe.HSet(ctx, s.client.Key("fees"), token, b.Amount.String())
			pipe.ZAddNX(ctx, s.client.Key("fee_order"), redis.Z{Score: float64(now + int64(i)), Member: token})
		}
		return nil
	})
	return err
}

func decodeConfigHash(raw map[string]string) (registry.Config, error) {
	var cfg registry.Config
	share, err := decimal.NewFromString(raw["fee_protocol_share"])
	if err != nil {
		return cfg, fmt.Errorf("fee_protocol_share: %w", err)
	}
	period, err := strconv.ParseUint(raw["sync_period"], 10, 64)
	if err != nil {
		return cfg, fmt.Errorf("sync_period: %w", err)
	}
	slots, err := strconv.ParseUint(raw["sync_slots"], 10, 64)
	if err != nil {
		return cfg, fmt.Errorf("sync_slots: %w", err)
	}
	cfg.FeeProtocolShare = share
	cfg.SyncPeriod = period
	cfg.SyncSlots = slots
	return cfg, nil
}
