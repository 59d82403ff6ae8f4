// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

const (
	// DefaultRedisTTL bounds how long an unacknowledged copy survives (30 days)
	DefaultRedisTTL = 30 * 24 * time.Hour
	// DefaultRedisKeyPrefix is the prefix for all cache keys
	DefaultRedisKeyPrefix = "account_sync:"
)

// RedisCacheConfig holds configuration for RedisCache.
type RedisCacheConfig struct {
	KeyPrefix string
	TTL       time.Duration
}

// RedisCache is a LocalCache backed by a local Redis instance with persistence enabled.
type RedisCache struct {
	client *redis.Client
	cfg    RedisCacheConfig
}

// NewRedisCache creates a Redis-backed cache; zero config values take the defaults.
func NewRedisCache(client *redis.Client, cfg RedisCacheConfig) *RedisCache {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = DefaultRedisKeyPrefix
	}
	if cfg.TTL == 0 {
		cfg.TTL = DefaultRedisTTL
	}

	return &RedisCache{
		client: client,
		cfg:    cfg,
	}
}

func (c *RedisCache) makeKey(key string) string {
	return c.cfg.KeyPrefix + key
}

// Get retrieves a value; redis.Nil means absent.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := c.client.Get(ctx, c.makeKey(key)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		logrus.Errorf("failed to get cache key %s: %v", key, err)
		return nil, false, fmt.Errorf("failed to get cache key %s: %w", key, err)
	}

	return data, true, nil
}

// Set stores a value with the configured TTL.
func (c *RedisCache) Set(ctx context.Context, key string, value []byte) error {
	if err := c.client.Set(ctx, c.makeKey(key), value, c.cfg.TTL).Err(); err != nil {
		logrus.Errorf("failed to set cache key %s: %v", key, err)
		return fmt.Errorf("failed to set cache key %s: %w", key, err)
	}

	logrus.Debugf("stored cache key %s with TTL %v", key, c.cfg.TTL)
	return nil
}

// Clear deletes a value.
func (c *RedisCache) Clear(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.makeKey(key)).Err(); err != nil {
		logrus.Errorf("failed to clear cache key %s: %v", key, err)
		return fmt.Errorf("failed to clear cache key %s: %w", key, err)
	}

	return nil
}
