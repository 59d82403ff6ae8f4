// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package account

import (
	"fmt"
	"time"

	"github.com/AccelByte/extend-account-sync/pkg/economy"
	"github.com/AccelByte/extend-account-sync/pkg/outbox"
	"github.com/AccelByte/extend-account-sync/pkg/remote"
	"github.com/AccelByte/extend-account-sync/pkg/schedule"
	"github.com/AccelByte/extend-account-sync/pkg/syncer"
)

// Deps are the collaborators of a Container. Mirror is optional.
type Deps struct {
	Remote    remote.Store
	Syncer    *syncer.Service
	Outbox    *outbox.Queue
	Actions   *economy.Registry
	Scheduler schedule.Scheduler
	Mirror    Mirror
}

func (d Deps) validate() error {
	switch {
	case d.Remote == nil:
		return fmt.Errorf("%w: remote store is required", ErrInvalidArgument)
	case d.Syncer == nil:
		return fmt.Errorf("%w: sync service is required", ErrInvalidArgument)
	case d.Outbox == nil:
		return fmt.Errorf("%w: outbox is required", ErrInvalidArgument)
	case d.Actions == nil:
		return fmt.Errorf("%w: economy registry is required", ErrInvalidArgument)
	}
	return nil
}

type options struct {
	refreshInterval   time.Duration
	economyTimeout    time.Duration
	loadMaxRetries    uint64
	loadRetryInterval time.Duration
	now               func() time.Time
}

func defaultOptions() options {
	return options{
		refreshInterval:   time.Minute,
		economyTimeout:    10 * time.Second,
		loadMaxRetries:    5,
		loadRetryInterval: 500 * time.Millisecond,
		now:               time.Now,
	}
}

// Option configures a Container.
type Option func(*options)

// WithRefreshInterval sets the period of the background refresh. Zero disables it.
func WithRefreshInterval(d time.Duration) Option {
	return func(o *options) { o.refreshInterval = d }
}

// WithEconomyTimeout bounds each economy procedure call.
func WithEconomyTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.economyTimeout = d
		}
	}
}

// WithLoadRetry sets how often and how soon a failed session load is retried.
func WithLoadRetry(maxRetries int, initialInterval time.Duration) Option {
	return func(o *options) {
		if maxRetries >= 0 {
			o.loadMaxRetries = uint64(maxRetries)
		}
		if initialInterval > 0 {
			o.loadRetryInterval = initialInterval
		}
	}
}

// WithClock replaces the wall clock used for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}
