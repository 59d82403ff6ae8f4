// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package account

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AccelByte/extend-account-sync/pkg/economy"
	"github.com/AccelByte/extend-account-sync/pkg/model"
	"github.com/AccelByte/extend-account-sync/pkg/remote"
)

type fakeMirror struct {
	mu        sync.Mutex
	purchases []string
	games     []GameResult
}

func (f *fakeMirror) CosmeticPurchased(ctx context.Context, accountID, itemID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.purchases = append(f.purchases, accountID+"/"+itemID)
	return nil
}

func (f *fakeMirror) GameCompleted(ctx context.Context, accountID string, result GameResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.games = append(f.games, result)
	return nil
}

func (f *fakeMirror) purchaseCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.purchases)
}

// blockProcedure makes the next procedure call wait for release before falling through to the store.
func blockProcedure(h *harness) (started, release chan struct{}) {
	started = make(chan struct{})
	release = make(chan struct{})
	var once sync.Once
	h.store.OnProcedure(func(ctx context.Context, name string, params model.ProcedureParams) (*model.ProcedureResult, error) {
		once.Do(func() { close(started) })
		select {
		case <-release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		return nil, nil
	})
	return started, release
}

func TestReconciler_PurchaseConfirmed(t *testing.T) {
	h := newHarness(t)
	mirror := &fakeMirror{}
	h.c.deps.Mirror = mirror
	h.store.Seed(seeded("acc-1", 500))
	h.load(t, "acc-1")

	res := h.c.PurchaseCosmetic(context.Background(), "hat")

	require.Equal(t, economy.StatusConfirmed, res.Status, "reason: %s", res.Reason)
	assert.True(t, res.OK())
	assert.Equal(t, int64(400), res.Balance)
	assert.Equal(t, int64(400), h.c.Balance())
	assert.True(t, h.c.AccountState().OwnsCosmetic("hat"))

	require.Len(t, h.store.ProcedureCalls, 1)
	call := h.store.ProcedureCalls[0]
	assert.Equal(t, model.ProcedurePurchaseCosmetic, call.Name)
	assert.Equal(t, int64(100), call.Params.Price)
	assert.NotEmpty(t, call.Params.RequestID)

	assert.Eventually(t, func() bool { return mirror.purchaseCount() == 1 }, time.Second, 5*time.Millisecond)

	h.sched.Advance(testDebounce)
	stored, _ := h.store.Account("acc-1")
	assert.Equal(t, int64(400), stored.Profile.Coins)
	assert.Contains(t, stored.AccountState.OwnedCosmetics, "hat")
}

// A balance change made while the procedure is pending survives the authoritative answer.
func TestReconciler_ConcurrentEarningSurvivesConfirmation(t *testing.T) {
	h := newHarness(t)
	h.store.Seed(seeded("acc-1", 500))
	h.load(t, "acc-1")
	started, release := blockProcedure(h)

	done := make(chan economy.Result, 1)
	go func() {
		done <- h.c.PurchaseCosmetic(context.Background(), "hat")
	}()
	<-started

	assert.Equal(t, int64(400), h.c.Balance(), "optimistic debit applied before the procedure answers")

	completion, err := h.c.RecordGameCompletion(context.Background(), GameResult{Score: 300, CoinReward: 50})
	require.NoError(t, err)
	assert.Equal(t, int64(450), completion.Balance)
	assert.Contains(t, completion.Flush.Pending, model.KindProfile, "profile push is held while the purchase is pending")
	assert.Equal(t, 0, h.store.UpsertCount(model.KindProfile))

	close(release)
	res := <-done

	require.Equal(t, economy.StatusConfirmed, res.Status, "reason: %s", res.Reason)
	assert.Equal(t, int64(450), res.Balance)
	assert.Equal(t, int64(450), h.c.Balance())

	h.sched.Advance(testDebounce)
	assert.Equal(t, 1, h.store.UpsertCount(model.KindProfile))
	stored, _ := h.store.Account("acc-1")
	assert.Equal(t, int64(450), stored.Profile.Coins)
	assert.Equal(t, int64(1), stored.Profile.GamesPlayed)
}

func TestReconciler_RejectedPurchaseReverts(t *testing.T) {
	h := newHarness(t)
	h.store.Seed(seeded("acc-1", 500))
	h.load(t, "acc-1")
	h.store.OnProcedure(func(ctx context.Context, name string, params model.ProcedureParams) (*model.ProcedureResult, error) {
		return &model.ProcedureResult{Success: false, ResultingBalance: 500, Error: model.RejectAlreadyOwned}, nil
	})

	res := h.c.PurchaseCosmetic(context.Background(), "hat")

	assert.Equal(t, economy.StatusRejected, res.Status)
	assert.ErrorIs(t, res.Err, economy.ErrAlreadyOwned)
	assert.Equal(t, model.RejectAlreadyOwned, res.Reason)
	assert.Equal(t, int64(500), h.c.Balance())
	assert.False(t, h.c.AccountState().OwnsCosmetic("hat"))
}

func TestReconciler_NetworkFailureIsIndeterminate(t *testing.T) {
	h := newHarness(t)
	h.store.Seed(seeded("acc-1", 500))
	h.load(t, "acc-1")
	h.store.OnProcedure(func(ctx context.Context, name string, params model.ProcedureParams) (*model.ProcedureResult, error) {
		return nil, remote.ErrUnavailable
	})

	res := h.c.PurchaseAvatarPart(context.Background(), "wings")

	assert.Equal(t, economy.StatusIndeterminate, res.Status)
	assert.ErrorIs(t, res.Err, remote.ErrUnavailable)
	assert.Equal(t, int64(250), res.Balance)
	assert.Equal(t, int64(250), h.c.Balance(), "optimistic change is kept")
	assert.True(t, h.c.AccountState().OwnsAvatarPart("wings"))
}

func TestReconciler_ProcedureTimeoutIsIndeterminate(t *testing.T) {
	h := newHarness(t, WithEconomyTimeout(20*time.Millisecond))
	h.store.Seed(seeded("acc-1", 500))
	h.load(t, "acc-1")
	_, release := blockProcedure(h)
	defer close(release)

	res := h.c.PurchaseCosmetic(context.Background(), "hat")

	assert.Equal(t, economy.StatusIndeterminate, res.Status)
	assert.ErrorIs(t, res.Err, context.DeadlineExceeded)
	assert.Equal(t, int64(400), h.c.Balance())
}

// An action that cannot get past an earlier in-flight push is never sent and must not leak into
// the ordinary record writes.
func TestReconciler_BlockedByInFlightPushReverts(t *testing.T) {
	h := newHarness(t)
	h.store.Seed(seeded("acc-1", 500))
	h.load(t, "acc-1")

	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	h.store.OnUpsert(func(ctx context.Context, kind model.RecordKind, accountID string) error {
		if kind != model.KindSettings {
			return nil
		}
		once.Do(func() { close(started) })
		select {
		case <-release:
		case <-ctx.Done():
		}
		return nil
	})

	require.NoError(t, h.c.UpdateSettings(model.SettingsUpdate{Haptics: model.SetTo(false)}))
	flushed := make(chan struct{})
	go func() {
		defer close(flushed)
		h.c.Flush(context.Background())
	}()
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	res := h.c.PurchaseCosmetic(ctx, "hat")

	assert.Equal(t, economy.StatusDeclined, res.Status)
	assert.ErrorIs(t, res.Err, context.DeadlineExceeded)
	assert.Equal(t, int64(500), res.Balance)
	assert.Equal(t, 0, h.store.ProcedureCount())
	assert.Equal(t, int64(500), h.c.Balance())
	assert.False(t, h.c.AccountState().OwnsCosmetic("hat"))

	close(release)
	<-flushed
	h.sched.Advance(testDebounce)

	stored, _ := h.store.Account("acc-1")
	assert.Equal(t, int64(500), stored.Profile.Coins)
	assert.NotContains(t, stored.AccountState.OwnedCosmetics, "hat")
}

func TestReconciler_DeclinedLocally(t *testing.T) {
	h := newHarness(t)
	h.store.Seed(seeded("acc-1", 300))
	h.load(t, "acc-1")

	tests := []struct {
		name string
		run  func() economy.Result
		want error
	}{
		{"unknown item", func() economy.Result { return h.c.PurchaseCosmetic(context.Background(), "nope") }, economy.ErrUnknownItem},
		{"wrong kind", func() economy.Result { return h.c.PurchaseCosmetic(context.Background(), "wings") }, economy.ErrUnknownItem},
		{"too expensive", func() economy.Result { return h.c.PurchaseCosmetic(context.Background(), "trail") }, economy.ErrInsufficientFunds},
		{"transfer to self", func() economy.Result { return h.c.TransferCoins(context.Background(), "acc-1", 10) }, economy.ErrInvalidTarget},
		{"transfer zero", func() economy.Result { return h.c.TransferCoins(context.Background(), "acc-2", 0) }, economy.ErrInvalidAmount},
		{"unknown action", func() economy.Result {
			return h.c.RunAction(context.Background(), "missing", economy.Request{})
		}, economy.ErrActionNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := tt.run()
			assert.Equal(t, economy.StatusDeclined, res.Status)
			assert.ErrorIs(t, res.Err, tt.want)
		})
	}

	assert.Equal(t, int64(300), h.c.Balance())
	assert.Equal(t, 0, h.store.ProcedureCount())
}

func TestReconciler_TransferAndGift(t *testing.T) {
	h := newHarness(t)
	h.store.Seed(seeded("acc-1", 500))
	h.store.Seed(seeded("acc-2", 20))
	h.load(t, "acc-1")

	transfer := h.c.TransferCoins(context.Background(), "acc-2", 100)
	require.Equal(t, economy.StatusConfirmed, transfer.Status, "reason: %s", transfer.Reason)
	assert.Equal(t, int64(400), transfer.Balance)

	gift := h.c.GiftCosmetic(context.Background(), "acc-2", "hat")
	require.Equal(t, economy.StatusConfirmed, gift.Status, "reason: %s", gift.Reason)
	assert.Equal(t, int64(300), gift.Balance)
	assert.False(t, h.c.AccountState().OwnsCosmetic("hat"), "gifts are granted to the target only")

	target, _ := h.store.Account("acc-2")
	assert.Equal(t, int64(120), target.Profile.Coins)
	assert.Contains(t, target.AccountState.OwnedCosmetics, "hat")

	again := h.c.GiftCosmetic(context.Background(), "acc-2", "hat")
	assert.Equal(t, economy.StatusRejected, again.Status)
	assert.ErrorIs(t, again.Err, economy.ErrAlreadyOwned)
	assert.Equal(t, int64(300), h.c.Balance())
}

func TestReconciler_SessionSwitchDiscardsOutcome(t *testing.T) {
	h := newHarness(t)
	h.store.Seed(seeded("acc-1", 500))
	h.store.Seed(seeded("acc-2", 20))
	h.load(t, "acc-1")
	started, release := blockProcedure(h)

	done := make(chan economy.Result, 1)
	go func() {
		done <- h.c.PurchaseCosmetic(context.Background(), "hat")
	}()
	<-started

	h.load(t, "acc-2")
	close(release)
	res := <-done

	assert.Equal(t, economy.StatusIndeterminate, res.Status)
	assert.ErrorIs(t, res.Err, ErrSessionChanged)
	assert.Equal(t, "acc-2", h.c.AccountID())
	assert.Equal(t, int64(20), h.c.Balance())
	assert.False(t, h.c.AccountState().OwnsCosmetic("hat"))

	h.sched.Advance(testDebounce)
	for _, call := range h.store.UpsertCalls {
		assert.Equal(t, "acc-2", call.AccountID)
	}
}

func TestRejection(t *testing.T) {
	assert.ErrorIs(t, rejection(model.RejectNotEnoughCoins), economy.ErrInsufficientFunds)
	assert.ErrorIs(t, rejection(model.RejectUnknownAccount), economy.ErrInvalidTarget)
	assert.EqualError(t, rejection("SOMETHING_ELSE"), "SOMETHING_ELSE")
}
