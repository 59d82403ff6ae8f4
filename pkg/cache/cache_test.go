// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package cache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
)

// setupTestRedis creates a miniredis instance for testing
func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	return client, mr
}

// checkContract exercises the behaviour every LocalCache backend must share.
func checkContract(t *testing.T, c LocalCache) {
	t.Helper()
	ctx := context.Background()

	if _, ok, err := c.Get(ctx, "missing"); err != nil || ok {
		t.Fatalf("Get(missing) = ok %v, err %v, expected absent without error", ok, err)
	}

	if err := c.Set(ctx, "k", []byte("v1")); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := c.Set(ctx, "k", []byte("v2")); err != nil {
		t.Fatalf("Set() overwrite error = %v", err)
	}

	got, ok, err := c.Get(ctx, "k")
	if err != nil || !ok {
		t.Fatalf("Get(k) = ok %v, err %v", ok, err)
	}
	if string(got) != "v2" {
		t.Errorf("Get(k) = %q, expected %q", got, "v2")
	}

	if err := c.Clear(ctx, "k"); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if err := c.Clear(ctx, "k"); err != nil {
		t.Errorf("Clear() of missing key error = %v, expected nil", err)
	}
	if _, ok, _ := c.Get(ctx, "k"); ok {
		t.Error("Get(k) after Clear found a value")
	}
}

func TestMemoryCache_Contract(t *testing.T) {
	checkContract(t, NewMemoryCache())
}

func TestMemoryCache_CopiesValues(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	buf := []byte("abc")
	_ = c.Set(ctx, "k", buf)
	buf[0] = 'x'

	got, _, _ := c.Get(ctx, "k")
	if string(got) != "abc" {
		t.Errorf("Get(k) = %q, expected stored copy %q", got, "abc")
	}
}

func TestRedisCache_Contract(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer mr.Close()

	checkContract(t, NewRedisCache(client, RedisCacheConfig{}))
}

func TestRedisCache_PrefixAndTTL(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer mr.Close()

	c := NewRedisCache(client, RedisCacheConfig{KeyPrefix: "test:", TTL: time.Hour})
	if err := c.Set(context.Background(), PendingWriteKey("acc-1", "profile"), []byte("{}")); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	key := "test:pending:acc-1:profile"
	if !mr.Exists(key) {
		t.Fatalf("key %s not found in redis", key)
	}
	if ttl := mr.TTL(key); ttl != time.Hour {
		t.Errorf("TTL = %v, expected %v", ttl, time.Hour)
	}
}

func TestRedisCache_HealthCheck(t *testing.T) {
	client, mr := setupTestRedis(t)

	h := NewHealthChecker(NewRedisCache(client, RedisCacheConfig{}))
	if !h.IsHealthy(context.Background()) {
		t.Error("IsHealthy() = false with redis running")
	}

	mr.Close()
	if h.IsHealthy(context.Background()) {
		t.Error("IsHealthy() = true with redis stopped")
	}
}

func TestSQLiteCache_Contract(t *testing.T) {
	c, err := OpenSQLiteCache(context.Background(), filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("OpenSQLiteCache() error = %v", err)
	}
	defer c.Close()

	checkContract(t, c)
}

func TestSQLiteCache_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cache.db")

	first, err := OpenSQLiteCache(ctx, path)
	if err != nil {
		t.Fatalf("OpenSQLiteCache() error = %v", err)
	}
	if err := first.Set(ctx, OutboxKey("acc-1"), []byte(`[{"id":"r1"}]`)); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	second, err := OpenSQLiteCache(ctx, path)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer second.Close()

	got, ok, err := second.Get(ctx, OutboxKey("acc-1"))
	if err != nil || !ok {
		t.Fatalf("Get() after reopen = ok %v, err %v", ok, err)
	}
	if string(got) != `[{"id":"r1"}]` {
		t.Errorf("Get() after reopen = %s", got)
	}
}

func TestSQLiteCache_ClosedReturnsError(t *testing.T) {
	c, err := OpenSQLiteCache(context.Background(), filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("OpenSQLiteCache() error = %v", err)
	}
	_ = c.Close()

	if err := c.Set(context.Background(), "k", []byte("v")); err != ErrClosed {
		t.Errorf("Set() after Close error = %v, expected %v", err, ErrClosed)
	}
}

func TestSQLiteCache_PragmasOnEveryConnection(t *testing.T) {
	ctx := context.Background()
	c, err := OpenSQLiteCache(ctx, filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("OpenSQLiteCache() error = %v", err)
	}
	defer c.Close()

	// no idle connections: every query below runs on a newly opened one
	c.db.SetMaxIdleConns(0)

	for i := 0; i < 2; i++ {
		var synchronous, busyTimeout int
		if err := c.db.QueryRowContext(ctx, "PRAGMA synchronous").Scan(&synchronous); err != nil {
			t.Fatalf("PRAGMA synchronous error = %v", err)
		}
		if err := c.db.QueryRowContext(ctx, "PRAGMA busy_timeout").Scan(&busyTimeout); err != nil {
			t.Fatalf("PRAGMA busy_timeout error = %v", err)
		}
		if synchronous != 2 {
			t.Errorf("synchronous = %d, expected 2 (FULL)", synchronous)
		}
		if busyTimeout != 5000 {
			t.Errorf("busy_timeout = %d, expected 5000", busyTimeout)
		}
	}
}

func TestSQLiteDSN(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"cache.db", "cache.db?_pragma=journal_mode(WAL)&_pragma=synchronous(FULL)&_pragma=busy_timeout(5000)"},
		{"file:cache.db?mode=rwc", "file:cache.db?mode=rwc&_pragma=journal_mode(WAL)&_pragma=synchronous(FULL)&_pragma=busy_timeout(5000)"},
	}
	for _, tt := range tests {
		if got := sqliteDSN(tt.path); got != tt.want {
			t.Errorf("sqliteDSN(%q) = %q, expected %q", tt.path, got, tt.want)
		}
	}
}
