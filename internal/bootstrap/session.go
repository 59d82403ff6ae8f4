// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package bootstrap

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/AccelByte/extend-account-sync/internal/config"
	"github.com/AccelByte/extend-account-sync/pkg/account"
	"github.com/AccelByte/extend-account-sync/pkg/cache"
	"github.com/AccelByte/extend-account-sync/pkg/economy"
	"github.com/AccelByte/extend-account-sync/pkg/outbox"
	"github.com/AccelByte/extend-account-sync/pkg/remote"
	"github.com/AccelByte/extend-account-sync/pkg/schedule"
	"github.com/AccelByte/extend-account-sync/pkg/syncer"
)

// Session is the wired sync stack of one player session.
type Session struct {
	Container *account.Container
	Syncer    *syncer.Service
	Outbox    *outbox.Queue
}

// InitSession wires the sync service, the append outbox and the account container.
// The outbox worker is started; Load has not been called yet.
//
// ============================================================
// DEVELOPER: Sync stack wiring
// ============================================================
// Container → SyncService → RemoteStore
//
//	↘ Outbox → RemoteStore
//
// Both SyncService and Outbox keep their crash-safe copies in the
// same LocalCache, so pick a persistent CACHE_BACKEND in production.
// ============================================================
func InitSession(
	cfg *config.Config,
	store remote.Store,
	localCache cache.LocalCache,
	actions *economy.Registry,
	mirror account.Mirror,
) (*Session, error) {
	scheduler := schedule.NewRealScheduler()

	syncService := syncer.NewService(syncer.Config{
		Debounce:     cfg.SyncDebounce,
		FlushTimeout: cfg.SyncFlushTimeout,
		Retry: syncer.RetryConfig{
			InitialInterval:     cfg.SyncRetryInitialInterval,
			MaxInterval:         cfg.SyncRetryMaxInterval,
			Multiplier:          cfg.SyncRetryMultiplier,
			RandomizationFactor: syncer.DefaultConfig().Retry.RandomizationFactor,
		},
	}, store, localCache, scheduler)

	outboxCfg := outbox.DefaultConfig()
	outboxCfg.Capacity = cfg.OutboxCapacity
	outboxCfg.MaxAttempts = cfg.OutboxMaxAttempts
	queue := outbox.NewQueue(outboxCfg, store, localCache, scheduler)
	queue.Start()

	container, err := account.NewContainer(account.Deps{
		Remote:    store,
		Syncer:    syncService,
		Outbox:    queue,
		Actions:   actions,
		Scheduler: scheduler,
		Mirror:    mirror,
	},
		account.WithRefreshInterval(cfg.RefreshInterval),
		account.WithEconomyTimeout(cfg.EconomyTimeout),
		account.WithLoadRetry(cfg.LoadMaxRetries, 0),
	)
	if err != nil {
		queue.Close()
		return nil, fmt.Errorf("failed to create account container: %w", err)
	}

	logrus.Infof("initialized sync stack (debounce %s, refresh %s)", cfg.SyncDebounce, cfg.RefreshInterval)
	return &Session{Container: container, Syncer: syncService, Outbox: queue}, nil
}

// Close stops the outbox worker and releases the container.
func (s *Session) Close() {
	s.Container.Close()
	s.Outbox.Close()
}
