// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package remote

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/AccelByte/extend-account-sync/pkg/model"
)

// procedureFunc runs inside a transaction. Returning a rejected result rolls the transaction back.
type procedureFunc func(ctx context.Context, tx *sql.Tx, name string, p model.ProcedureParams) (model.ProcedureResult, error)

func builtinProcedures() map[string]procedureFunc {
	return map[string]procedureFunc{
		model.ProcedurePurchaseCosmetic:   purchaseInto("owned_cosmetics"),
		model.ProcedurePurchaseAvatarPart: purchaseInto("owned_avatar_parts"),
		model.ProcedureTransferCoins:      transferCoins,
		model.ProcedureGiftCosmetic:       giftCosmetic,
	}
}

// InvokeEconomyProcedure runs one named procedure atomically. A procedure whose request id
// already has a ledger line is reported as applied without running it again.
func (s *PostgresStore) InvokeEconomyProcedure(ctx context.Context, name string, p model.ProcedureParams) (model.ProcedureResult, error) {
	proc, ok := s.procedures[name]
	if !ok {
		return rejected(model.RejectUnknownProcedure, 0), nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.ProcedureResult{}, classify(err)
	}
	defer tx.Rollback()

	if p.RequestID != "" {
		var applied bool
		err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM coin_activity WHERE id = $1)`, p.RequestID).Scan(&applied)
		if err != nil {
			return model.ProcedureResult{}, classify(err)
		}
		if applied {
			var coins int64
			if err := tx.QueryRowContext(ctx, `SELECT coins FROM player_profiles WHERE account_id = $1`, p.AccountID).Scan(&coins); err != nil {
				return model.ProcedureResult{}, classify(err)
			}
			logrus.Infof("economy procedure %s request %s already applied", name, p.RequestID)
			return model.ProcedureResult{Success: true, ResultingBalance: coins}, nil
		}
	}

	res, err := proc(ctx, tx, name, p)
	if err != nil {
		return model.ProcedureResult{}, classify(err)
	}
	if !res.Success {
		logrus.Infof("economy procedure %s rejected for %s: %s", name, p.AccountID, res.Error)
		return res, nil
	}

	if err := tx.Commit(); err != nil {
		return model.ProcedureResult{}, classify(err)
	}
	return res, nil
}

func purchaseInto(column string) procedureFunc {
	return func(ctx context.Context, tx *sql.Tx, name string, p model.ProcedureParams) (model.ProcedureResult, error) {
		if p.Price < 0 || p.ItemID == "" {
			return rejected(model.RejectInvalidAmount, 0), nil
		}

		var coins int64
		var ownedRaw []byte
		err := tx.QueryRowContext(ctx, `
			SELECT p.coins, s.`+column+`
			FROM player_profiles p JOIN account_states s ON s.account_id = p.account_id
			WHERE p.account_id = $1
			FOR UPDATE
		`, p.AccountID).Scan(&coins, &ownedRaw)
		if errors.Is(err, sql.ErrNoRows) {
			return rejected(model.RejectUnknownAccount, 0), nil
		}
		if err != nil {
			return model.ProcedureResult{}, err
		}

		var owned []string
		if err := json.Unmarshal(ownedRaw, &owned); err != nil {
			return model.ProcedureResult{}, fmt.Errorf("%w: %s: %v", ErrMalformed, column, err)
		}
		for _, id := range owned {
			if id == p.ItemID {
				return rejected(model.RejectAlreadyOwned, coins), nil
			}
		}
		if coins < p.Price {
			return rejected(model.RejectNotEnoughCoins, coins), nil
		}

		coins -= p.Price
		if err := setCoins(ctx, tx, p.AccountID, coins); err != nil {
			return model.ProcedureResult{}, err
		}
		if err := setOwned(ctx, tx, column, p.AccountID, model.AddToSet(owned, p.ItemID)); err != nil {
			return model.ProcedureResult{}, err
		}
		if err := insertLedger(ctx, tx, p.RequestID, p.AccountID, -p.Price, name, coins); err != nil {
			return model.ProcedureResult{}, err
		}

		return model.ProcedureResult{Success: true, ResultingBalance: coins}, nil
	}
}

func transferCoins(ctx context.Context, tx *sql.Tx, name string, p model.ProcedureParams) (model.ProcedureResult, error) {
	if p.Amount <= 0 || p.TargetAccountID == "" || p.TargetAccountID == p.AccountID {
		return rejected(model.RejectInvalidAmount, 0), nil
	}

	balances, err := lockBalances(ctx, tx, p.AccountID, p.TargetAccountID)
	if err != nil {
		return model.ProcedureResult{}, err
	}
	from, okFrom := balances[p.AccountID]
	to, okTo := balances[p.TargetAccountID]
	if !okFrom || !okTo {
		return rejected(model.RejectUnknownAccount, from), nil
	}
	if from < p.Amount {
		return rejected(model.RejectNotEnoughCoins, from), nil
	}

	from -= p.Amount
	to += p.Amount
	if err := setCoins(ctx, tx, p.AccountID, from); err != nil {
		return model.ProcedureResult{}, err
	}
	if err := setCoins(ctx, tx, p.TargetAccountID, to); err != nil {
		return model.ProcedureResult{}, err
	}
	if err := insertLedger(ctx, tx, p.RequestID, p.AccountID, -p.Amount, name, from); err != nil {
		return model.ProcedureResult{}, err
	}
	if err := insertLedger(ctx, tx, p.RequestID+":in", p.TargetAccountID, p.Amount, name, to); err != nil {
		return model.ProcedureResult{}, err
	}

	return model.ProcedureResult{Success: true, ResultingBalance: from}, nil
}

func giftCosmetic(ctx context.Context, tx *sql.Tx, name string, p model.ProcedureParams) (model.ProcedureResult, error) {
	if p.Price < 0 || p.ItemID == "" || p.TargetAccountID == "" || p.TargetAccountID == p.AccountID {
		return rejected(model.RejectInvalidAmount, 0), nil
	}

	balances, err := lockBalances(ctx, tx, p.AccountID, p.TargetAccountID)
	if err != nil {
		return model.ProcedureResult{}, err
	}
	from, okFrom := balances[p.AccountID]
	if _, okTo := balances[p.TargetAccountID]; !okFrom || !okTo {
		return rejected(model.RejectUnknownAccount, from), nil
	}

	var ownedRaw []byte
	err = tx.QueryRowContext(ctx, `SELECT owned_cosmetics FROM account_states WHERE account_id = $1 FOR UPDATE`,
		p.TargetAccountID).Scan(&ownedRaw)
	if errors.Is(err, sql.ErrNoRows) {
		return rejected(model.RejectUnknownAccount, from), nil
	}
	if err != nil {
		return model.ProcedureResult{}, err
	}
	var owned []string
	if err := json.Unmarshal(ownedRaw, &owned); err != nil {
		return model.ProcedureResult{}, fmt.Errorf("%w: owned_cosmetics: %v", ErrMalformed, err)
	}
	for _, id := range owned {
		if id == p.ItemID {
			return rejected(model.RejectAlreadyOwned, from), nil
		}
	}
	if from < p.Price {
		return rejected(model.RejectNotEnoughCoins, from), nil
	}

	from -= p.Price
	if err := setCoins(ctx, tx, p.AccountID, from); err != nil {
		return model.ProcedureResult{}, err
	}
	if err := setOwned(ctx, tx, "owned_cosmetics", p.TargetAccountID, model.AddToSet(owned, p.ItemID)); err != nil {
		return model.ProcedureResult{}, err
	}
	if err := insertLedger(ctx, tx, p.RequestID, p.AccountID, -p.Price, name, from); err != nil {
		return model.ProcedureResult{}, err
	}

	return model.ProcedureResult{Success: true, ResultingBalance: from}, nil
}

// lockBalances locks the profile rows in account id order so concurrent transfers cannot deadlock.
func lockBalances(ctx context.Context, tx *sql.Tx, ids ...string) (map[string]int64, error) {
	sorted := append([]string{}, ids...)
	sort.Strings(sorted)

	out := make(map[string]int64, len(sorted))
	for _, id := range sorted {
		var coins int64
		err := tx.QueryRowContext(ctx, `SELECT coins FROM player_profiles WHERE account_id = $1 FOR UPDATE`, id).Scan(&coins)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out[id] = coins
	}
	return out, nil
}

func setCoins(ctx context.Context, tx *sql.Tx, accountID string, coins int64) error {
	_, err := tx.ExecContext(ctx, `UPDATE player_profiles SET coins = $1, updated_at = now() WHERE account_id = $2`, coins, accountID)
	return err
}

func setOwned(ctx context.Context, tx *sql.Tx, column, accountID string, owned []string) error {
	b, err := json.Marshal(owned)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `UPDATE account_states SET `+column+` = $1, updated_at = now() WHERE account_id = $2`, b, accountID)
	return err
}

func insertLedger(ctx context.Context, tx *sql.Tx, id, accountID string, delta int64, source string, balance int64) error {
	if id == "" {
		id = model.NewRecordID()
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO coin_activity (id, account_id, delta, source, balance_after, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING
	`, id, accountID, delta, source, balance, time.Now().UTC())
	return err
}

func rejected(code string, balance int64) model.ProcedureResult {
	return model.ProcedureResult{Success: false, ResultingBalance: balance, Error: code}
}
