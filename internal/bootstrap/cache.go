// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/AccelByte/extend-account-sync/internal/config"
	"github.com/AccelByte/extend-account-sync/pkg/cache"
)

// InitLocalCache opens the backend selected by CACHE_BACKEND. The returned close function
// releases it.
func InitLocalCache(ctx context.Context, cfg *config.Config) (cache.LocalCache, func() error, error) {
	switch cfg.CacheBackend {
	case config.CacheBackendRedis:
		client, err := initRedis(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		c := cache.NewRedisCache(client, cache.RedisCacheConfig{
			KeyPrefix: cfg.RedisKeyPrefix,
			TTL:       cfg.RedisTTL,
		})
		logrus.Infof("using redis local cache at %s:%s", cfg.RedisHost, cfg.RedisPort)
		return c, client.Close, nil

	case config.CacheBackendSQLite:
		c, err := cache.OpenSQLiteCache(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open sqlite cache %s: %w", cfg.SQLitePath, err)
		}
		logrus.Infof("using sqlite local cache at %s", cfg.SQLitePath)
		return c, c.Close, nil

	case config.CacheBackendMemory:
		logrus.Warn("using in-memory local cache; unsynced writes will not survive a restart")
		return cache.NewMemoryCache(), func() error { return nil }, nil
	}

	return nil, nil, fmt.Errorf("unknown cache backend %q", cfg.CacheBackend)
}

// initRedis connects to Redis, retrying with exponential backoff.
func initRedis(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisHost + ":" + cfg.RedisPort,
		Password:     cfg.RedisPassword,
		DB:           0, // use default DB
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Duration(cfg.RedisRetryDelayMs) * time.Millisecond
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(cfg.RedisMaxRetries)), ctx)

	err := backoff.Retry(
		func() error {
			if err := client.Ping(ctx).Err(); err != nil {
				logrus.Warnf("Redis connection failed: %v, retrying...", err)
				return err
			}
			return nil
		},
		policy,
	)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return client, nil
}
