// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package remote

// ─── Schema ─────────────────────────────────────────────────────────────────

// Migrations returns the schema statements, applied in order. Every statement is idempotent.
func Migrations() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS player_profiles (
			account_id           TEXT PRIMARY KEY,
			username             TEXT NOT NULL DEFAULT '',
			level                INTEGER NOT NULL DEFAULT 1,
			experience           BIGINT NOT NULL DEFAULT 0,
			coins                BIGINT NOT NULL DEFAULT 0 CHECK (coins >= 0),
			games_played         BIGINT NOT NULL DEFAULT 0,
			best_score           BIGINT NOT NULL DEFAULT 0,
			best_time_ms         BIGINT NOT NULL DEFAULT 0,
			total_flight_time_ms BIGINT NOT NULL DEFAULT 0,
			countries_found      BIGINT NOT NULL DEFAULT 0,
			clue_correct         JSONB NOT NULL DEFAULT '{}'::jsonb,
			best_streak          BIGINT NOT NULL DEFAULT 0,
			updated_at           TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,

		`CREATE TABLE IF NOT EXISTS account_states (
			account_id         TEXT PRIMARY KEY,
			avatar             JSONB NOT NULL,
			license            JSONB NOT NULL,
			owned_cosmetics    JSONB NOT NULL DEFAULT '[]'::jsonb,
			owned_avatar_parts JSONB NOT NULL DEFAULT '[]'::jsonb,
			equipped           JSONB NOT NULL DEFAULT '{}'::jsonb,
			unlocked_regions   JSONB NOT NULL DEFAULT '[]'::jsonb,
			daily_current      BIGINT NOT NULL DEFAULT 0,
			daily_longest      BIGINT NOT NULL DEFAULT 0,
			daily_total        BIGINT NOT NULL DEFAULT 0,
			daily_last_date    TEXT NOT NULL DEFAULT '',
			last_daily_result  JSONB,
			updated_at         TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,

		`CREATE TABLE IF NOT EXISTS account_settings (
			account_id TEXT PRIMARY KEY,
			payload    JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,

		// Append-only; id is the client idempotency key.
		`CREATE TABLE IF NOT EXISTS score_history (
			id              TEXT PRIMARY KEY,
			account_id      TEXT NOT NULL,
			score           BIGINT NOT NULL,
			elapsed_ms      BIGINT NOT NULL,
			region          TEXT NOT NULL,
			rounds          INTEGER NOT NULL,
			round_breakdown JSONB,
			created_at      TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_score_history_account ON score_history(account_id, created_at)`,

		`CREATE TABLE IF NOT EXISTS coin_activity (
			id            TEXT PRIMARY KEY,
			account_id    TEXT NOT NULL,
			delta         BIGINT NOT NULL,
			source        TEXT NOT NULL,
			balance_after BIGINT NOT NULL,
			created_at    TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_coin_activity_account ON coin_activity(account_id, created_at)`,
	}
}
