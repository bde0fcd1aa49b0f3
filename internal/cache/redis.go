// Package cache provides a Redis-backed cache used to front hot reads,
// currently SME reputation scores.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/aimd54/sme-dispatch/internal/config"
	"github.com/aimd54/sme-dispatch/pkg/logger"
)

// Cache is the minimal cache surface the services depend on. Get returns
// an empty string for missing keys, mirroring Redis semantics.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// RedisCache implements Cache on top of go-redis.
type RedisCache struct {
	client *redis.Client
	log    *logger.Logger
}

// NewRedisCache connects to Redis and verifies the connection.
func NewRedisCache(cfg *config.RedisConfig, log *logger.Logger) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Info().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Int("db", cfg.DB).
		Msg("Connected to Redis")

	return &RedisCache{client: client, log: log}, nil
}

// NewRedisCacheWithClient wraps an existing client (useful for testing).
func NewRedisCacheWithClient(client *redis.Client, log *logger.Logger) *RedisCache {
	return &RedisCache{client: client, log: log}
}

// Get retrieves a value. Missing keys return an empty string, not an error.
func (c *RedisCache) Get(ctx context.Context, key string) (string, error) {
	val, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", fmt.Errorf("failed to get cache key %s: %w", key, err)
	}
	return val, nil
}

// Set stores a value with an expiration.
func (c *RedisCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if err := c.client.Set(ctx, key, value, expiration).Err(); err != nil {
		return fmt.Errorf("failed to set cache key %s: %w", key, err)
	}
	return nil
}

// Del removes keys.
func (c *RedisCache) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete cache keys: %w", err)
	}
	return nil
}

// Close closes the underlying client.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
