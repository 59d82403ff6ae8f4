// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package remote

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AccelByte/extend-account-sync/pkg/model"
)

// setupTestPostgres connects to the database named by ACCOUNT_SYNC_TEST_POSTGRES_DSN.
// Tests are skipped when it is unset.
func setupTestPostgres(t *testing.T) *PostgresStore {
	t.Helper()

	dsn := os.Getenv("ACCOUNT_SYNC_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("ACCOUNT_SYNC_TEST_POSTGRES_DSN not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s, err := OpenPostgresStore(ctx, PostgresStoreConfig{DSN: dsn, ConnectRetries: 1})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seedAccount(t *testing.T, s *PostgresStore, coins int64) model.Snapshot {
	t.Helper()
	ctx := context.Background()

	snap := model.NewSnapshot("pg-" + model.NewRecordID())
	snap.Profile.Coins = coins
	snap.Profile.Username = "pilot"
	require.NoError(t, s.UpsertProfile(ctx, snap.AccountID, snap.Profile))
	require.NoError(t, s.UpsertAccountState(ctx, snap.AccountID, snap.AccountState))
	require.NoError(t, s.UpsertSettings(ctx, snap.AccountID, snap.Settings))
	return snap
}

func TestPostgresStore_LoadNotFound(t *testing.T) {
	s := setupTestPostgres(t)

	_, err := s.Load(context.Background(), "pg-missing-"+model.NewRecordID())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresStore_CreateAccountCompletesPartialAccount(t *testing.T) {
	s := setupTestPostgres(t)
	ctx := context.Background()

	// the profile committed, the account state and settings never did
	p := model.NewPlayerProfile("pg-partial-" + model.NewRecordID())
	p.Coins = 70
	require.NoError(t, s.UpsertProfile(ctx, p.AccountID, p))

	_, err := s.Load(ctx, p.AccountID)
	require.ErrorIs(t, err, ErrIncomplete)

	require.NoError(t, s.CreateAccount(ctx, model.NewSnapshot(p.AccountID)))

	got, err := s.Load(ctx, p.AccountID)
	require.NoError(t, err)
	assert.Equal(t, int64(70), got.Profile.Coins, "existing profile is kept")
	assert.Equal(t, model.NewSettings().Units, got.Settings.Units)
}

func TestPostgresStore_CreateAccountKeepsExisting(t *testing.T) {
	s := setupTestPostgres(t)
	ctx := context.Background()
	snap := seedAccount(t, s, 120)

	require.NoError(t, s.CreateAccount(ctx, model.NewSnapshot(snap.AccountID)))

	got, err := s.Load(ctx, snap.AccountID)
	require.NoError(t, err)
	assert.Equal(t, int64(120), got.Profile.Coins)
	assert.Equal(t, "pilot", got.Profile.Username)
}

func TestPostgresStore_CreateAccount(t *testing.T) {
	s := setupTestPostgres(t)
	ctx := context.Background()
	accountID := "pg-new-" + model.NewRecordID()

	require.NoError(t, s.CreateAccount(ctx, model.NewSnapshot(accountID)))

	got, err := s.Load(ctx, accountID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Profile.Level)
}

func TestPostgresStore_RoundTrip(t *testing.T) {
	s := setupTestPostgres(t)
	ctx := context.Background()
	snap := seedAccount(t, s, 120)

	snap.AccountState.OwnedCosmetics = []string{"hat_red"}
	snap.AccountState.Equipped = map[string]string{"hat": "hat_red"}
	snap.AccountState.Daily = model.DailyStreak{Current: 3, Longest: 5, TotalCompletions: 9, LastCompletedDate: "2026-10-18"}
	require.NoError(t, s.UpsertAccountState(ctx, snap.AccountID, snap.AccountState))

	got, err := s.Load(ctx, snap.AccountID)
	require.NoError(t, err)
	assert.Equal(t, int64(120), got.Profile.Coins)
	assert.Equal(t, "pilot", got.Profile.Username)
	assert.Equal(t, []string{"hat_red"}, got.AccountState.OwnedCosmetics)
	assert.Equal(t, "hat_red", got.AccountState.Equipped["hat"])
	assert.Equal(t, int64(5), got.AccountState.Daily.Longest)
}

func TestPostgresStore_AppendIsIdempotent(t *testing.T) {
	s := setupTestPostgres(t)
	ctx := context.Background()
	snap := seedAccount(t, s, 0)

	entry, err := model.NewScoreEntry(model.ScoreRecord{
		AccountID: snap.AccountID,
		Score:     900,
		Region:    "europe",
		Rounds:    5,
		CreatedAt: time.Now().UTC(),
	})
	require.NoError(t, err)

	require.NoError(t, s.AppendRecord(ctx, entry))
	require.NoError(t, s.AppendRecord(ctx, entry))

	var n int
	require.NoError(t, s.db.QueryRowContext(ctx, `SELECT count(*) FROM score_history WHERE id = $1`, entry.ID).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestPostgresStore_PurchaseCosmetic(t *testing.T) {
	s := setupTestPostgres(t)
	ctx := context.Background()
	snap := seedAccount(t, s, 500)

	params := model.ProcedureParams{RequestID: model.NewRecordID(), AccountID: snap.AccountID, ItemID: "hat_red", Price: 100}
	res, err := s.InvokeEconomyProcedure(ctx, model.ProcedurePurchaseCosmetic, params)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, int64(400), res.ResultingBalance)

	// replay of the same request is not charged twice
	res, err = s.InvokeEconomyProcedure(ctx, model.ProcedurePurchaseCosmetic, params)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, int64(400), res.ResultingBalance)

	params.RequestID = model.NewRecordID()
	res, err = s.InvokeEconomyProcedure(ctx, model.ProcedurePurchaseCosmetic, params)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, model.RejectAlreadyOwned, res.Error)

	got, err := s.Load(ctx, snap.AccountID)
	require.NoError(t, err)
	assert.Equal(t, int64(400), got.Profile.Coins)
	assert.True(t, got.AccountState.OwnsCosmetic("hat_red"))
}

func TestPostgresStore_PurchaseRejectedLeavesBalance(t *testing.T) {
	s := setupTestPostgres(t)
	ctx := context.Background()
	snap := seedAccount(t, s, 50)

	res, err := s.InvokeEconomyProcedure(ctx, model.ProcedurePurchaseAvatarPart, model.ProcedureParams{
		RequestID: model.NewRecordID(), AccountID: snap.AccountID, ItemID: "wings_gold", Price: 80,
	})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, model.RejectNotEnoughCoins, res.Error)
	assert.Equal(t, int64(50), res.ResultingBalance)
}

func TestPostgresStore_TransferCoins(t *testing.T) {
	s := setupTestPostgres(t)
	ctx := context.Background()
	from := seedAccount(t, s, 300)
	to := seedAccount(t, s, 10)

	res, err := s.InvokeEconomyProcedure(ctx, model.ProcedureTransferCoins, model.ProcedureParams{
		RequestID: model.NewRecordID(), AccountID: from.AccountID, TargetAccountID: to.AccountID, Amount: 120,
	})
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.Equal(t, int64(180), res.ResultingBalance)

	got, err := s.Load(ctx, to.AccountID)
	require.NoError(t, err)
	assert.Equal(t, int64(130), got.Profile.Coins)
}

func TestPostgresStore_UnknownProcedure(t *testing.T) {
	s := setupTestPostgres(t)

	res, err := s.InvokeEconomyProcedure(context.Background(), "mint_coins", model.ProcedureParams{AccountID: "x"})
	require.NoError(t, err)
	assert.Equal(t, model.RejectUnknownProcedure, res.Error)
}
