package repository

import (
	"context"
	"time"

	"github.com/ociswap/registry/internal/pkg/logger"
)

// RedisReplayGuard shares consumed owner signatures across replicas.
type RedisReplayGuard struct {
	client *RedisClient
}

func NewRedisReplayGuard(client *RedisClient) *RedisReplayGuard {
	return &RedisReplayGuard{client: client}
}

func (g *RedisReplayGuard) Consume(key string, ttl time.Duration) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	fresh, err := g.client.Client.SetNX(ctx, g.client.Key("owner_sig", key), 1, ttl).Result()
	if err != nil {
		// fail closed: an unverifiable signature grants nothing
		logger.Error("Replay guard unavailable, rejecting owner proof", "error", err)
		return false
	}
	return fresh
}
