// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Cache backends selectable with CACHE_BACKEND.
const (
	CacheBackendRedis  = "redis"
	CacheBackendSQLite = "sqlite"
	CacheBackendMemory = "memory"
)

// Load reads configuration from environment variables.
// It attempts to load from .env file first (for local development),
// then parses environment variables into the Config struct.
func Load() (*Config, error) {
	// In production (Docker/K8s), environment variables are injected directly
	if err := godotenv.Load(); err != nil {
		logrus.Warnf("no .env file found or error loading it: %v (this is normal in production)", err)
	} else {
		logrus.Infof("loaded environment variables from .env file")
	}

	return Parse()
}

// Parse reads the process environment without touching .env files.
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config from environment: %w", err)
	}

	return cfg, nil
}

// Validate performs custom validation on the configuration.
func (c *Config) Validate() error {
	if c.GRPCPort < 1 || c.GRPCPort > 65535 {
		return fmt.Errorf("invalid GRPC_PORT: %d (must be 1-65535)", c.GRPCPort)
	}

	if c.MetricsPort < 1 || c.MetricsPort > 65535 {
		return fmt.Errorf("invalid METRICS_PORT: %d (must be 1-65535)", c.MetricsPort)
	}

	switch c.CacheBackend {
	case CacheBackendRedis, CacheBackendMemory:
	case CacheBackendSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required for the sqlite cache backend")
		}
	default:
		return fmt.Errorf("invalid CACHE_BACKEND: %q (must be redis, sqlite or memory)", c.CacheBackend)
	}

	if c.SyncDebounce <= 0 || c.SyncFlushTimeout <= 0 {
		return fmt.Errorf("SYNC_DEBOUNCE and SYNC_FLUSH_TIMEOUT must be positive")
	}
	if c.SyncRetryMultiplier < 1 {
		return fmt.Errorf("invalid SYNC_RETRY_MULTIPLIER: %v (must be >= 1)", c.SyncRetryMultiplier)
	}
	if c.RefreshInterval < 0 {
		return fmt.Errorf("REFRESH_INTERVAL must not be negative")
	}
	if c.LoadMaxRetries < 0 || c.OutboxCapacity < 1 || c.OutboxMaxAttempts < 1 {
		return fmt.Errorf("LOAD_MAX_RETRIES, OUTBOX_CAPACITY and OUTBOX_MAX_ATTEMPTS out of range")
	}
	if c.EconomyTimeout <= 0 {
		return fmt.Errorf("ECONOMY_TIMEOUT must be positive")
	}
	if c.BotEnabled && c.BotInterval <= 0 {
		return fmt.Errorf("BOT_INTERVAL must be positive when BOT_ENABLED is set")
	}

	if c.PlatformMirrorEnabled && c.ABNamespace == "" {
		return fmt.Errorf("AB_NAMESPACE is required when PLATFORM_MIRROR_ENABLED is set")
	}

	return nil
}
