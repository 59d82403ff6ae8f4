// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package service

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"github.com/AccelByte/extend-account-sync/pkg/account"
)

// MirrorConfig maps account events onto platform items and statistics.
// An empty stat code disables that statistic.
type MirrorConfig struct {
	ItemPrefix          string
	StatGamesPlayed     string
	StatCountriesFound  string
	StatCoinsEarned     string
	MaxRetries          uint64
	RetryInitialBackoff time.Duration
}

// PlatformMirror copies confirmed account events to the AccelByte platform.
type PlatformMirror struct {
	granter EntitlementGranter
	stats   StatIncrementer
	cfg     MirrorConfig
}

var _ account.Mirror = (*PlatformMirror)(nil)

// NewPlatformMirror creates a mirror. Either dependency may be nil to skip that half.
func NewPlatformMirror(granter EntitlementGranter, stats StatIncrementer, cfg MirrorConfig) *PlatformMirror {
	if cfg.RetryInitialBackoff <= 0 {
		cfg.RetryInitialBackoff = 500 * time.Millisecond
	}
	return &PlatformMirror{granter: granter, stats: stats, cfg: cfg}
}

// CosmeticPurchased grants the platform item of a purchased cosmetic.
func (m *PlatformMirror) CosmeticPurchased(ctx context.Context, accountID, itemID string) error {
	if m.granter == nil {
		return nil
	}
	platformItem := m.cfg.ItemPrefix + itemID
	return m.retry(ctx, func() error {
		return m.granter.GrantEntitlement(ctx, accountID, platformItem, 1)
	})
}

// GameCompleted increments the configured statistics for a finished game.
func (m *PlatformMirror) GameCompleted(ctx context.Context, accountID string, result account.GameResult) error {
	if m.stats == nil {
		return nil
	}

	increments := []struct {
		code string
		inc  int64
	}{
		{m.cfg.StatGamesPlayed, 1},
		{m.cfg.StatCountriesFound, result.CountriesFound},
		{m.cfg.StatCoinsEarned, result.CoinReward},
	}

	var errs []error
	for _, it := range increments {
		if it.code == "" || it.inc <= 0 {
			continue
		}
		code, inc := it.code, float64(it.inc)
		err := m.retry(ctx, func() error {
			return m.stats.IncrementStat(ctx, accountID, code, inc)
		})
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *PlatformMirror) retry(ctx context.Context, op func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = m.cfg.RetryInitialBackoff
	policy := backoff.WithContext(backoff.WithMaxRetries(b, m.cfg.MaxRetries), ctx)

	return backoff.RetryNotify(op, policy, func(err error, d time.Duration) {
		logrus.Warnf("platform call failed: %v, retrying in %s", err, d)
	})
}
