// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package config

import "time"

// Config holds all application configuration loaded from environment variables.
// This struct uses github.com/caarlos0/env for automatic environment variable parsing.
type Config struct {
	// ============================================================
	// Server configuration
	// ============================================================
	GRPCPort    int    `env:"GRPC_PORT" envDefault:"6565"`
	MetricsPort int    `env:"METRICS_PORT" envDefault:"8080"`
	Environment string `env:"ENVIRONMENT" envDefault:"dev"`
	ServiceName string `env:"SERVICE_NAME" envDefault:"AccountSyncAgent"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	OtelEnabled bool   `env:"OTEL_ENABLED" envDefault:"true"`

	// ============================================================
	// Session
	// ============================================================
	AccountID string `env:"ACCOUNT_ID,required,notEmpty"`

	// ============================================================
	// Remote store (Postgres)
	// ============================================================
	PostgresDSN            string        `env:"POSTGRES_DSN,required,notEmpty"`
	PostgresMaxOpenConns   int           `env:"POSTGRES_MAX_OPEN_CONNS" envDefault:"10"`
	PostgresConnMaxLife    time.Duration `env:"POSTGRES_CONN_MAX_LIFETIME" envDefault:"30m"`
	PostgresConnectRetries uint64        `env:"POSTGRES_CONNECT_RETRIES" envDefault:"5"`

	// ============================================================
	// Local cache
	// ============================================================
	CacheBackend      string        `env:"CACHE_BACKEND" envDefault:"sqlite"`
	SQLitePath        string        `env:"SQLITE_PATH" envDefault:"account-sync.db"`
	RedisHost         string        `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort         string        `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword     string        `env:"REDIS_PASSWORD"`
	RedisMaxRetries   int           `env:"REDIS_MAX_RETRIES" envDefault:"5"`
	RedisRetryDelayMs int           `env:"REDIS_RETRY_DELAY_MS" envDefault:"1000"`
	RedisKeyPrefix    string        `env:"REDIS_KEY_PREFIX" envDefault:"account_sync:"`
	RedisTTL          time.Duration `env:"REDIS_TTL" envDefault:"720h"`

	// ============================================================
	// Sync tuning
	// ============================================================
	SyncDebounce             time.Duration `env:"SYNC_DEBOUNCE" envDefault:"2s"`
	SyncFlushTimeout         time.Duration `env:"SYNC_FLUSH_TIMEOUT" envDefault:"10s"`
	SyncRetryInitialInterval time.Duration `env:"SYNC_RETRY_INITIAL_INTERVAL" envDefault:"1s"`
	SyncRetryMaxInterval     time.Duration `env:"SYNC_RETRY_MAX_INTERVAL" envDefault:"1m"`
	SyncRetryMultiplier      float64       `env:"SYNC_RETRY_MULTIPLIER" envDefault:"2"`
	RefreshInterval          time.Duration `env:"REFRESH_INTERVAL" envDefault:"1m"`
	LoadMaxRetries           int           `env:"LOAD_MAX_RETRIES" envDefault:"5"`
	OutboxCapacity           int           `env:"OUTBOX_CAPACITY" envDefault:"256"`
	OutboxMaxAttempts        int           `env:"OUTBOX_MAX_ATTEMPTS" envDefault:"8"`

	// ============================================================
	// Economy
	// ============================================================
	EconomyConfigPath string        `env:"ECONOMY_CONFIG_PATH" envDefault:"config/economy.yaml"`
	EconomyTimeout    time.Duration `env:"ECONOMY_TIMEOUT" envDefault:"10s"`

	// ============================================================
	// Bot loop (synthetic game completions for soak testing)
	// ============================================================
	BotEnabled  bool          `env:"BOT_ENABLED" envDefault:"false"`
	BotInterval time.Duration `env:"BOT_INTERVAL" envDefault:"30s"`
	BotSeed     int64         `env:"BOT_SEED" envDefault:"0"`

	// ============================================================
	// AccelByte platform mirror (optional)
	// ============================================================
	PlatformMirrorEnabled bool   `env:"PLATFORM_MIRROR_ENABLED" envDefault:"false"`
	ABNamespace           string `env:"AB_NAMESPACE"`
	ABBaseURL             string `env:"AB_BASE_URL"`
	ABClientID            string `env:"AB_CLIENT_ID"`
	ABClientSecret        string `env:"AB_CLIENT_SECRET"`
	MirrorItemPrefix      string `env:"MIRROR_ITEM_PREFIX"`
	MirrorStatGames       string `env:"MIRROR_STAT_GAMES_PLAYED" envDefault:"account-sync-games-played"`
	MirrorStatCountries   string `env:"MIRROR_STAT_COUNTRIES_FOUND" envDefault:"account-sync-countries-found"`
	MirrorStatCoins       string `env:"MIRROR_STAT_COINS_EARNED"`
	MirrorMaxRetries      uint64 `env:"MIRROR_MAX_RETRIES" envDefault:"3"`
}
