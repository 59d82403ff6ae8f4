// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package mock

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AccelByte/extend-account-sync/pkg/model"
	"github.com/AccelByte/extend-account-sync/pkg/remote"
)

func seeded(coins int64) (*Store, model.Snapshot) {
	m := NewStore()
	snap := model.NewSnapshot("acc-1")
	snap.Profile.Coins = coins
	m.Seed(snap)
	return m, snap
}

func TestStore_LoadNotFound(t *testing.T) {
	m := NewStore()
	_, err := m.Load(context.Background(), "nobody")
	assert.ErrorIs(t, err, remote.ErrNotFound)
	assert.Equal(t, 1, m.LoadCount())
}

func TestStore_LoadReturnsCopy(t *testing.T) {
	m, _ := seeded(10)

	got, err := m.Load(context.Background(), "acc-1")
	require.NoError(t, err)
	got.AccountState.OwnedCosmetics = append(got.AccountState.OwnedCosmetics, "leak")

	stored, _ := m.Account("acc-1")
	assert.Empty(t, stored.AccountState.OwnedCosmetics)
}

func TestStore_PartialAccountIsIncomplete(t *testing.T) {
	m := NewStore()
	ctx := context.Background()
	p := model.NewPlayerProfile("acc-1")
	p.Coins = 70

	require.NoError(t, m.UpsertProfile(ctx, "acc-1", p))
	_, err := m.Load(ctx, "acc-1")
	assert.ErrorIs(t, err, remote.ErrIncomplete)

	require.NoError(t, m.CreateAccount(ctx, model.NewSnapshot("acc-1")))
	got, err := m.Load(ctx, "acc-1")
	require.NoError(t, err)
	assert.Equal(t, int64(70), got.Profile.Coins)
	assert.Equal(t, 1, m.CreateCount())
}

func TestStore_CreateAccountKeepsExisting(t *testing.T) {
	m, _ := seeded(10)
	ctx := context.Background()

	require.NoError(t, m.CreateAccount(ctx, model.NewSnapshot("acc-1")))
	stored, _ := m.Account("acc-1")
	assert.Equal(t, int64(10), stored.Profile.Coins)

	m.OnCreate(func(ctx context.Context, accountID string) error { return remote.ErrUnavailable })
	assert.ErrorIs(t, m.CreateAccount(ctx, model.NewSnapshot("acc-2")), remote.ErrUnavailable)
	_, ok := m.Account("acc-2")
	assert.False(t, ok)
}

func TestStore_UpsertHookFailsCall(t *testing.T) {
	m, snap := seeded(10)
	m.OnUpsert(func(ctx context.Context, kind model.RecordKind, accountID string) error {
		return remote.ErrUnavailable
	})

	snap.Profile.Coins = 99
	err := m.UpsertProfile(context.Background(), snap.AccountID, snap.Profile)
	assert.ErrorIs(t, err, remote.ErrUnavailable)

	stored, _ := m.Account("acc-1")
	assert.Equal(t, int64(10), stored.Profile.Coins)
	assert.Equal(t, 1, m.UpsertCount(model.KindProfile))
}

func TestStore_AppendDedupesByID(t *testing.T) {
	m, _ := seeded(0)
	entry, err := model.NewCoinActivityEntry(model.CoinActivityRecord{AccountID: "acc-1", Delta: 5, Source: "game"})
	require.NoError(t, err)

	require.NoError(t, m.AppendRecord(context.Background(), entry))
	require.NoError(t, m.AppendRecord(context.Background(), entry))

	assert.Len(t, m.Records("acc-1", model.CollectionCoinActivity), 1)
	assert.Equal(t, 2, m.AppendCount())
}

func TestStore_AfterAppendLosesAck(t *testing.T) {
	m, _ := seeded(0)
	lost := errors.New("connection reset")
	m.AfterAppend(func(model.AppendEntry) error { return lost })

	entry, err := model.NewScoreEntry(model.ScoreRecord{AccountID: "acc-1", Score: 10})
	require.NoError(t, err)

	assert.ErrorIs(t, m.AppendRecord(context.Background(), entry), lost)
	assert.Len(t, m.Records("acc-1", model.CollectionScores), 1)
}

func TestStore_Procedures(t *testing.T) {
	ctx := context.Background()

	t.Run("purchase", func(t *testing.T) {
		m, _ := seeded(500)
		res, err := m.InvokeEconomyProcedure(ctx, model.ProcedurePurchaseCosmetic,
			model.ProcedureParams{RequestID: "r1", AccountID: "acc-1", ItemID: "hat", Price: 100})
		require.NoError(t, err)
		assert.True(t, res.Success)
		assert.Equal(t, int64(400), res.ResultingBalance)

		stored, _ := m.Account("acc-1")
		assert.True(t, stored.AccountState.OwnsCosmetic("hat"))
	})

	t.Run("replayed request id", func(t *testing.T) {
		m, _ := seeded(500)
		p := model.ProcedureParams{RequestID: "r1", AccountID: "acc-1", ItemID: "hat", Price: 100}
		_, _ = m.InvokeEconomyProcedure(ctx, model.ProcedurePurchaseCosmetic, p)
		res, err := m.InvokeEconomyProcedure(ctx, model.ProcedurePurchaseCosmetic, p)
		require.NoError(t, err)
		assert.True(t, res.Success)
		assert.Equal(t, int64(400), res.ResultingBalance)
	})

	t.Run("not enough coins", func(t *testing.T) {
		m, _ := seeded(50)
		res, err := m.InvokeEconomyProcedure(ctx, model.ProcedurePurchaseAvatarPart,
			model.ProcedureParams{RequestID: "r1", AccountID: "acc-1", ItemID: "wings", Price: 100})
		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.Equal(t, model.RejectNotEnoughCoins, res.Error)
		assert.Equal(t, int64(50), res.ResultingBalance)
	})

	t.Run("transfer", func(t *testing.T) {
		m, _ := seeded(300)
		m.Seed(model.NewSnapshot("acc-2"))
		res, err := m.InvokeEconomyProcedure(ctx, model.ProcedureTransferCoins,
			model.ProcedureParams{RequestID: "r1", AccountID: "acc-1", TargetAccountID: "acc-2", Amount: 120})
		require.NoError(t, err)
		assert.True(t, res.Success)
		assert.Equal(t, int64(180), res.ResultingBalance)

		to, _ := m.Account("acc-2")
		assert.Equal(t, int64(120), to.Profile.Coins)
	})

	t.Run("unknown target", func(t *testing.T) {
		m, _ := seeded(300)
		res, err := m.InvokeEconomyProcedure(ctx, model.ProcedureGiftCosmetic,
			model.ProcedureParams{RequestID: "r1", AccountID: "acc-1", TargetAccountID: "ghost", ItemID: "hat", Price: 10})
		require.NoError(t, err)
		assert.Equal(t, model.RejectUnknownAccount, res.Error)
	})

	t.Run("hook short-circuits", func(t *testing.T) {
		m, _ := seeded(300)
		m.OnProcedure(func(ctx context.Context, name string, p model.ProcedureParams) (*model.ProcedureResult, error) {
			return nil, context.DeadlineExceeded
		})
		_, err := m.InvokeEconomyProcedure(ctx, model.ProcedurePurchaseCosmetic,
			model.ProcedureParams{RequestID: "r1", AccountID: "acc-1", ItemID: "hat", Price: 10})
		assert.ErrorIs(t, err, context.DeadlineExceeded)

		stored, _ := m.Account("acc-1")
		assert.Equal(t, int64(300), stored.Profile.Coins)
	})
}
