// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package remote

import (
	"context"

	"github.com/AccelByte/extend-account-sync/pkg/model"
)

// Store is the authoritative remote store of account records.
//
// Upserts carry the complete current record and replace the stored one.
// Economy procedures are atomic on the server; they re-validate and apply the single
// authoritative balance change. AppendRecord is idempotent on AppendEntry.ID.
type Store interface {
	// Load reads the profile, account state and settings of one account.
	// It returns ErrNotFound for an account that has never been created and ErrIncomplete
	// when only some of its records exist.
	Load(ctx context.Context, accountID string) (*model.Snapshot, error)

	// CreateAccount writes every record of snap that does not exist yet, in one transaction.
	// Existing records are left untouched, so it is safe to race another device and it
	// completes an account whose first creation was interrupted.
	CreateAccount(ctx context.Context, snap model.Snapshot) error

	UpsertProfile(ctx context.Context, accountID string, profile model.PlayerProfile) error
	UpsertAccountState(ctx context.Context, accountID string, state model.AccountState) error
	UpsertSettings(ctx context.Context, accountID string, settings model.Settings) error

	// InvokeEconomyProcedure runs the named procedure. A rejection is reported in the result;
	// the error is reserved for outcomes that are unknown to the caller (network, timeout).
	InvokeEconomyProcedure(ctx context.Context, name string, params model.ProcedureParams) (model.ProcedureResult, error)

	AppendRecord(ctx context.Context, entry model.AppendEntry) error
}

// Upsert writes the record of the given kind taken from snap.
func Upsert(ctx context.Context, s Store, kind model.RecordKind, snap model.Snapshot) error {
	switch kind {
	case model.KindProfile:
		return s.UpsertProfile(ctx, snap.AccountID, snap.Profile)
	case model.KindAccountState:
		return s.UpsertAccountState(ctx, snap.AccountID, snap.AccountState)
	case model.KindSettings:
		return s.UpsertSettings(ctx, snap.AccountID, snap.Settings)
	default:
		return ErrUnknownKind
	}
}
