// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package syncer

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Config tunes the write path.
type Config struct {
	// Debounce is the coalescing window between the first mutation of a record and its push.
	Debounce time.Duration

	// FlushTimeout bounds a single push; exceeding it counts as a network failure.
	FlushTimeout time.Duration

	Retry RetryConfig
}

// RetryConfig shapes the backoff curve of the retry queue.
type RetryConfig struct {
	InitialInterval     time.Duration
	MaxInterval         time.Duration
	Multiplier          float64
	RandomizationFactor float64
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		Debounce:     2 * time.Second,
		FlushTimeout: 10 * time.Second,
		Retry: RetryConfig{
			InitialInterval:     time.Second,
			MaxInterval:         time.Minute,
			Multiplier:          2.0,
			RandomizationFactor: 0.3,
		},
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Debounce <= 0 {
		c.Debounce = d.Debounce
	}
	if c.FlushTimeout <= 0 {
		c.FlushTimeout = d.FlushTimeout
	}
	if c.Retry.InitialInterval <= 0 {
		c.Retry.InitialInterval = d.Retry.InitialInterval
	}
	if c.Retry.MaxInterval <= 0 {
		c.Retry.MaxInterval = d.Retry.MaxInterval
	}
	if c.Retry.Multiplier < 1 {
		c.Retry.Multiplier = d.Retry.Multiplier
	}
	if c.Retry.RandomizationFactor < 0 || c.Retry.RandomizationFactor >= 1 {
		c.Retry.RandomizationFactor = d.Retry.RandomizationFactor
	}
	return c
}

// NewBackOff builds a never-expiring exponential backoff from the retry curve.
func (r RetryConfig) NewBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.InitialInterval
	b.MaxInterval = r.MaxInterval
	b.Multiplier = r.Multiplier
	b.RandomizationFactor = r.RandomizationFactor
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}
