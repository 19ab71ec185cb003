package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/ociswap/registry/internal/config"
	"github.com/redis/go-redis/v9"
)

type RedisClient struct {
	Client *redis.Client
	prefix string
}

func NewRedisClient(cfg *config.Config) (*RedisClient, error) {
	if cfg.Redis.Addr == "" {
		return nil, fmt.Errorf("redis address is empty")
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return WrapRedisClient(rdb, cfg.Redis.KeyPrefix), nil
}

// WrapRedisClient reuses an existing go-redis client; keys are namespaced under prefix.
func WrapRedisClient(rdb *redis.Client, prefix string) *RedisClient {
	if prefix == "" {
		prefix = "feereg"
	}
	return &RedisClient{Client: rdb, prefix: prefix}
}

func (r *RedisClient) Key(parts ...string) string {
	key := r.prefix
	for _, p := range parts {
		key += ":" + p
	}
	return key
}

func (r *RedisClient) Close() error {
	return r.Client.Close()
}
