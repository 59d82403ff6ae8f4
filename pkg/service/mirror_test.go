// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/AccelByte/extend-account-sync/pkg/account"
	"github.com/AccelByte/extend-account-sync/pkg/service/mock"
)

func testMirrorConfig() MirrorConfig {
	return MirrorConfig{
		ItemPrefix:          "cosmetic-",
		StatGamesPlayed:     "games-played",
		StatCountriesFound:  "countries-found",
		StatCoinsEarned:     "",
		MaxRetries:          2,
		RetryInitialBackoff: time.Millisecond,
	}
}

func TestPlatformMirror_CosmeticPurchased(t *testing.T) {
	granter := &mock.EntitlementGranter{}
	m := NewPlatformMirror(granter, nil, testMirrorConfig())

	if err := m.CosmeticPurchased(context.Background(), "acc-1", "hat"); err != nil {
		t.Fatalf("CosmeticPurchased() error = %v", err)
	}

	calls := granter.Calls()
	if len(calls) != 1 {
		t.Fatalf("grant calls = %d, expected 1", len(calls))
	}
	if calls[0].ItemID != "cosmetic-hat" || calls[0].UserID != "acc-1" || calls[0].Quantity != 1 {
		t.Errorf("grant call = %+v", calls[0])
	}
}

func TestPlatformMirror_RetriesThenGivesUp(t *testing.T) {
	failure := errors.New("platform down")
	granter := &mock.EntitlementGranter{
		GrantEntitlementFunc: func(ctx context.Context, userID, itemID string, quantity int) error {
			return failure
		},
	}
	m := NewPlatformMirror(granter, nil, testMirrorConfig())

	err := m.CosmeticPurchased(context.Background(), "acc-1", "hat")
	if !errors.Is(err, failure) {
		t.Fatalf("CosmeticPurchased() error = %v, expected %v", err, failure)
	}
	if got := len(granter.Calls()); got != 3 {
		t.Errorf("grant calls = %d, expected 3", got)
	}
}

func TestPlatformMirror_GameCompleted(t *testing.T) {
	stats := &mock.StatIncrementer{}
	m := NewPlatformMirror(nil, stats, testMirrorConfig())

	err := m.GameCompleted(context.Background(), "acc-1", account.GameResult{CountriesFound: 4, CoinReward: 30})
	if err != nil {
		t.Fatalf("GameCompleted() error = %v", err)
	}

	calls := stats.Calls()
	want := map[string]float64{"games-played": 1, "countries-found": 4}
	if len(calls) != len(want) {
		t.Fatalf("increment calls = %+v, expected %d", calls, len(want))
	}
	for _, c := range calls {
		if want[c.StatCode] != c.Inc {
			t.Errorf("stat %s incremented by %v, expected %v", c.StatCode, c.Inc, want[c.StatCode])
		}
	}
}

func TestPlatformMirror_SkipsZeroIncrements(t *testing.T) {
	stats := &mock.StatIncrementer{}
	m := NewPlatformMirror(nil, stats, testMirrorConfig())

	if err := m.GameCompleted(context.Background(), "acc-1", account.GameResult{}); err != nil {
		t.Fatalf("GameCompleted() error = %v", err)
	}
	if got := len(stats.Calls()); got != 1 {
		t.Errorf("increment calls = %d, expected 1 (games played only)", got)
	}
}

func TestPlatformMirror_NilDependencies(t *testing.T) {
	m := NewPlatformMirror(nil, nil, testMirrorConfig())
	if err := m.CosmeticPurchased(context.Background(), "acc-1", "hat"); err != nil {
		t.Errorf("CosmeticPurchased() error = %v", err)
	}
	if err := m.GameCompleted(context.Background(), "acc-1", account.GameResult{}); err != nil {
		t.Errorf("GameCompleted() error = %v", err)
	}
}
