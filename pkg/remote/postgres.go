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
	"time"

	"github.com/cenkalti/backoff/v4"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/AccelByte/extend-account-sync/pkg/model"
)

// PostgresStoreConfig holds connection settings for PostgresStore.
type PostgresStoreConfig struct {
	DSN             string
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	ConnectRetries  uint64
}

// PostgresStore implements Store on a Postgres database.
type PostgresStore struct {
	db         *sql.DB
	procedures map[string]procedureFunc
}

// OpenPostgresStore connects, waits for the database with exponential backoff and applies migrations.
func OpenPostgresStore(ctx context.Context, cfg PostgresStoreConfig) (*PostgresStore, error) {
	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	retries := cfg.ConnectRetries
	if retries == 0 {
		retries = 5
	}
	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), retries), ctx)
	err = backoff.Retry(func() error {
		if err := db.PingContext(ctx); err != nil {
			logrus.Warnf("postgres connection failed: %v, retrying...", err)
			return err
		}
		return nil
	}, b)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	s := NewPostgresStore(db)
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	logrus.Info("postgres remote store initialized")
	return s, nil
}

// NewPostgresStore wraps an open database handle.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{
		db:         db,
		procedures: builtinProcedures(),
	}
}

// Migrate applies the schema.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	for i, stmt := range Migrations() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply migration %d: %w", i, err)
		}
	}
	return nil
}

// Close closes the database handle.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// Ping checks connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return classify(s.db.PingContext(ctx))
}

// Load reads all three records inside one read-only transaction so they form a consistent snapshot.
func (s *PostgresStore) Load(ctx context.Context, accountID string) (*model.Snapshot, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true, Isolation: sql.LevelRepeatableRead})
	if err != nil {
		return nil, classify(err)
	}
	defer tx.Rollback()

	snap := &model.Snapshot{AccountID: accountID}

	var clueCorrect []byte
	p := &snap.Profile
	err = tx.QueryRowContext(ctx, `
		SELECT account_id, username, level, experience, coins, games_played, best_score, best_time_ms,
		       total_flight_time_ms, countries_found, clue_correct, best_streak, updated_at
		FROM player_profiles WHERE account_id = $1
	`, accountID).Scan(&p.AccountID, &p.Username, &p.Level, &p.Experience, &p.Coins, &p.GamesPlayed,
		&p.BestScore, &p.BestTimeMs, &p.TotalFlightTimeMs, &p.CountriesFound, &clueCorrect, &p.BestStreak, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, classify(err)
	}
	if err := json.Unmarshal(clueCorrect, &p.ClueCorrect); err != nil {
		return nil, fmt.Errorf("%w: clue_correct: %v", ErrMalformed, err)
	}

	var avatar, license, cosmetics, parts, equipped, regions, lastDaily []byte
	st := &snap.AccountState
	err = tx.QueryRowContext(ctx, `
		SELECT avatar, license, owned_cosmetics, owned_avatar_parts, equipped, unlocked_regions,
		       daily_current, daily_longest, daily_total, daily_last_date, last_daily_result, updated_at
		FROM account_states WHERE account_id = $1
	`, accountID).Scan(&avatar, &license, &cosmetics, &parts, &equipped, &regions,
		&st.Daily.Current, &st.Daily.Longest, &st.Daily.TotalCompletions, &st.Daily.LastCompletedDate, &lastDaily, &st.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: account state missing for %s", ErrIncomplete, accountID)
	}
	if err != nil {
		return nil, classify(err)
	}
	columns := []struct {
		name string
		data []byte
		dst  interface{}
	}{
		{"avatar", avatar, &st.Avatar},
		{"license", license, &st.License},
		{"owned_cosmetics", cosmetics, &st.OwnedCosmetics},
		{"owned_avatar_parts", parts, &st.OwnedAvatarParts},
		{"equipped", equipped, &st.Equipped},
		{"unlocked_regions", regions, &st.UnlockedRegions},
	}
	for _, c := range columns {
		if err := json.Unmarshal(c.data, c.dst); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, c.name, err)
		}
	}
	if lastDaily != nil {
		st.LastDailyResult = &model.DailyResult{}
		if err := json.Unmarshal(lastDaily, st.LastDailyResult); err != nil {
			return nil, fmt.Errorf("%w: last_daily_result: %v", ErrMalformed, err)
		}
	}

	var settings []byte
	err = tx.QueryRowContext(ctx, `SELECT payload FROM account_settings WHERE account_id = $1`, accountID).Scan(&settings)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: settings missing for %s", ErrIncomplete, accountID)
	}
	if err != nil {
		return nil, classify(err)
	}
	if err := json.Unmarshal(settings, &snap.Settings); err != nil {
		return nil, fmt.Errorf("%w: settings: %v", ErrMalformed, err)
	}

	snap.Normalize()
	if err := snap.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return snap, nil
}

const (
	insertProfile = `
		INSERT INTO player_profiles (account_id, username, level, experience, coins, games_played, best_score,
			best_time_ms, total_flight_time_ms, countries_found, clue_correct, best_streak, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, now())`

	insertAccountState = `
		INSERT INTO account_states (account_id, avatar, license, owned_cosmetics, owned_avatar_parts, equipped,
			unlocked_regions, daily_current, daily_longest, daily_total, daily_last_date, last_daily_result, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, now())`

	insertSettings = `
		INSERT INTO account_settings (account_id, payload, updated_at) VALUES ($1, $2, now())`

	onConflictKeep = `
		ON CONFLICT (account_id) DO NOTHING`
)

func profileArgs(accountID string, p model.PlayerProfile) ([]interface{}, error) {
	clueCorrect, err := json.Marshal(p.ClueCorrect)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal clue counts: %w", err)
	}
	return []interface{}{accountID, p.Username, p.Level, p.Experience, p.Coins, p.GamesPlayed, p.BestScore,
		p.BestTimeMs, p.TotalFlightTimeMs, p.CountriesFound, clueCorrect, p.BestStreak}, nil
}

func accountStateArgs(accountID string, st model.AccountState) ([]interface{}, error) {
	var lastDaily []byte
	if st.LastDailyResult != nil {
		b, err := json.Marshal(st.LastDailyResult)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal last daily result: %w", err)
		}
		lastDaily = b
	}
	cols, err := marshalAll(st.Avatar, st.License, st.OwnedCosmetics, st.OwnedAvatarParts, st.Equipped, st.UnlockedRegions)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal account state: %w", err)
	}
	return []interface{}{accountID, cols[0], cols[1], cols[2], cols[3], cols[4], cols[5],
		st.Daily.Current, st.Daily.Longest, st.Daily.TotalCompletions, st.Daily.LastCompletedDate, lastDaily}, nil
}

func settingsArgs(accountID string, settings model.Settings) ([]interface{}, error) {
	payload, err := json.Marshal(settings)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal settings: %w", err)
	}
	return []interface{}{accountID, payload}, nil
}

// CreateAccount inserts the missing records of snap.AccountID in one transaction.
func (s *PostgresStore) CreateAccount(ctx context.Context, snap model.Snapshot) error {
	profile, err := profileArgs(snap.AccountID, snap.Profile)
	if err != nil {
		return err
	}
	state, err := accountStateArgs(snap.AccountID, snap.AccountState)
	if err != nil {
		return err
	}
	settings, err := settingsArgs(snap.AccountID, snap.Settings)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to create account %s: %w", snap.AccountID, classify(err))
	}
	defer tx.Rollback()

	inserts := []struct {
		query string
		args  []interface{}
	}{
		{insertProfile + onConflictKeep, profile},
		{insertAccountState + onConflictKeep, state},
		{insertSettings + onConflictKeep, settings},
	}
	for _, in := range inserts {
		if _, err := tx.ExecContext(ctx, in.query, in.args...); err != nil {
			return fmt.Errorf("failed to create account %s: %w", snap.AccountID, classify(err))
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to create account %s: %w", snap.AccountID, classify(err))
	}
	return nil
}

func (s *PostgresStore) UpsertProfile(ctx context.Context, accountID string, p model.PlayerProfile) error {
	args, err := profileArgs(accountID, p)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, insertProfile+`
		ON CONFLICT (account_id) DO UPDATE SET
			username             = excluded.username,
			level                = excluded.level,
			experience           = excluded.experience,
			coins                = excluded.coins,
			games_played         = excluded.games_played,
			best_score           = excluded.best_score,
			best_time_ms         = excluded.best_time_ms,
			total_flight_time_ms = excluded.total_flight_time_ms,
			countries_found      = excluded.countries_found,
			clue_correct         = excluded.clue_correct,
			best_streak          = excluded.best_streak,
			updated_at           = now()
	`, args...)
	if err != nil {
		return fmt.Errorf("failed to upsert profile %s: %w", accountID, classify(err))
	}
	return nil
}

func (s *PostgresStore) UpsertAccountState(ctx context.Context, accountID string, st model.AccountState) error {
	args, err := accountStateArgs(accountID, st)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, insertAccountState+`
		ON CONFLICT (account_id) DO UPDATE SET
			avatar             = excluded.avatar,
			license            = excluded.license,
			owned_cosmetics    = excluded.owned_cosmetics,
			owned_avatar_parts = excluded.owned_avatar_parts,
			equipped           = excluded.equipped,
			unlocked_regions   = excluded.unlocked_regions,
			daily_current      = excluded.daily_current,
			daily_longest      = excluded.daily_longest,
			daily_total        = excluded.daily_total,
			daily_last_date    = excluded.daily_last_date,
			last_daily_result  = excluded.last_daily_result,
			updated_at         = now()
	`, args...)
	if err != nil {
		return fmt.Errorf("failed to upsert account state %s: %w", accountID, classify(err))
	}
	return nil
}

func (s *PostgresStore) UpsertSettings(ctx context.Context, accountID string, settings model.Settings) error {
	args, err := settingsArgs(accountID, settings)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, insertSettings+`
		ON CONFLICT (account_id) DO UPDATE SET
			payload    = excluded.payload,
			updated_at = now()
	`, args...)
	if err != nil {
		return fmt.Errorf("failed to upsert settings %s: %w", accountID, classify(err))
	}
	return nil
}

// AppendRecord inserts an append-only record; a repeated id is a no-op.
func (s *PostgresStore) AppendRecord(ctx context.Context, entry model.AppendEntry) error {
	switch entry.Collection {
	case model.CollectionScores:
		r, err := entry.ScoreRecord()
		if err != nil {
			return err
		}
		breakdown, err := json.Marshal(r.RoundBreakdown)
		if err != nil {
			return fmt.Errorf("failed to marshal round breakdown: %w", err)
		}
		_, err = s.db.ExecContext(ctx, `
			INSERT INTO score_history (id, account_id, score, elapsed_ms, region, rounds, round_breakdown, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (id) DO NOTHING
		`, entry.ID, entry.AccountID, r.Score, r.ElapsedMs, r.Region, r.Rounds, breakdown, r.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to append score %s: %w", entry.ID, classify(err))
		}
		return nil

	case model.CollectionCoinActivity:
		r, err := entry.CoinActivityRecord()
		if err != nil {
			return err
		}
		_, err = s.db.ExecContext(ctx, `
			INSERT INTO coin_activity (id, account_id, delta, source, balance_after, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (id) DO NOTHING
		`, entry.ID, entry.AccountID, r.Delta, r.Source, r.BalanceAfter, r.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to append coin activity %s: %w", entry.ID, classify(err))
		}
		return nil

	default:
		return fmt.Errorf("unknown collection %q", entry.Collection)
	}
}

func marshalAll(values ...interface{}) ([][]byte, error) {
	out := make([][]byte, len(values))
	for i, v := range values {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		out[i] = b
	}
	return out, nil
}
