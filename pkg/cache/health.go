// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package cache

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Pinger is implemented by backends that can report liveness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthChecker reports whether the local cache backend is reachable.
type HealthChecker struct {
	cache LocalCache
}

// NewHealthChecker creates a new health checker
func NewHealthChecker(cache LocalCache) *HealthChecker {
	return &HealthChecker{cache: cache}
}

// Check pings the backend when it supports it; in-process backends are always healthy.
func (h *HealthChecker) Check(ctx context.Context) error {
	p, ok := h.cache.(Pinger)
	if !ok {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := p.Ping(ctx); err != nil {
		logrus.Errorf("local cache health check failed: %v", err)
		return err
	}

	logrus.Debugf("local cache health check passed")
	return nil
}

// IsHealthy returns true if the cache is accessible
func (h *HealthChecker) IsHealthy(ctx context.Context) bool {
	return h.Check(ctx) == nil
}

// Ping implements Pinger.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Ping implements Pinger.
func (c *SQLiteCache) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}
