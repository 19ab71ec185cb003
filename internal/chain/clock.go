package chain

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ociswap/registry/internal/pkg/logger"
	"github.com/ociswap/registry/internal/registry"
)

// HeaderSource is the part of ethclient.Client the clock needs.
type HeaderSource interface {
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
}

// BlockClock reports the timestamp of the latest block, so every registry
// replica schedules pools against the same notion of now.
// When the node is unreachable it falls back to the last block time seen, then to the fallback clock.
type BlockClock struct {
	source   HeaderSource
	fallback registry.Clock
	timeout  time.Duration

	mu       sync.Mutex
	lastSeen time.Time
}

func Dial(rpcURL string, timeout time.Duration) (*BlockClock, error) {
	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to eth client: %w", err)
	}
	return NewBlockClock(client, timeout, registry.SystemClock{}), nil
}

func NewBlockClock(source HeaderSource, timeout time.Duration, fallback registry.Clock) *BlockClock {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	if fallback == nil {
		fallback = registry.SystemClock{}
	}
	return &BlockClock{
		source:   source,
		fallback: fallback,
		timeout:  timeout,
	}
}

func (c *BlockClock) Now() time.Time {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	header, err := c.source.HeaderByNumber(ctx, nil)
	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil || header == nil {
		if err == nil {
			err = fmt.Errorf("empty header")
		}
		if !c.lastSeen.IsZero() {
			logger.Warn("Latest block unavailable, reusing last block time", "error", err, "block_time", c.lastSeen.Unix())
			return c.lastSeen
		}
		logger.Warn("Latest block unavailable, using local time", "error", err)
		return c.fallback.Now()
	}

	blockTime := time.Unix(int64(header.Time), 0)
	// block timestamps may repeat but never go backwards for our purposes
	if blockTime.After(c.lastSeen) {
		c.lastSeen = blockTime
	}
	return c.lastSeen
}
