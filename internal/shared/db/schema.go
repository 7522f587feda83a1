package db

import (
	"context"
	"database/sql"
	"fmt"
)

// EnsureSchema creates the core tables when missing. Services call it on
// startup so a fresh database is usable without an external migration step.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS accounts (
			id         UUID PRIMARY KEY,
			user_id    TEXT NOT NULL UNIQUE,
			balance    NUMERIC(18,2) NOT NULL DEFAULT 0 CHECK (balance >= 0),
			version    BIGINT NOT NULL DEFAULT 1,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS transactions (
			id         UUID PRIMARY KEY,
			account_id UUID NOT NULL REFERENCES accounts(id),
			kind       TEXT NOT NULL,
			amount     NUMERIC(18,2) NOT NULL CHECK (amount > 0),
			status     TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			settled_at TIMESTAMPTZ
		)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_account ON transactions(account_id)`,
		`CREATE TABLE IF NOT EXISTS markets (
			id            UUID PRIMARY KEY,
			name          TEXT NOT NULL,
			opening_time  TIMESTAMPTZ NOT NULL,
			closing_time  TIMESTAMPTZ NOT NULL,
			status        TEXT NOT NULL DEFAULT 'UPCOMING',
			result_status TEXT NOT NULL DEFAULT 'PENDING',
			result_value  TEXT,
			declared_at   TIMESTAMPTZ
		)`,
		`CREATE TABLE IF NOT EXISTS market_game_configs (
			market_id UUID NOT NULL REFERENCES markets(id),
			game_type TEXT NOT NULL,
			odds      NUMERIC(8,2) NOT NULL,
			both_odds NUMERIC(8,2),
			active    BOOLEAN NOT NULL DEFAULT TRUE,
			PRIMARY KEY (market_id, game_type)
		)`,
		`CREATE TABLE IF NOT EXISTS option_games (
			id            UUID PRIMARY KEY,
			team_a        TEXT NOT NULL,
			team_b        TEXT NOT NULL,
			opening_time  TIMESTAMPTZ NOT NULL,
			closing_time  TIMESTAMPTZ NOT NULL,
			status        TEXT NOT NULL DEFAULT 'UPCOMING',
			result_status TEXT NOT NULL DEFAULT 'PENDING',
			winning_team  TEXT,
			odds          NUMERIC(8,2) NOT NULL,
			declared_at   TIMESTAMPTZ
		)`,
		`CREATE TABLE IF NOT EXISTS bets (
			id                UUID PRIMARY KEY,
			account_id        UUID NOT NULL REFERENCES accounts(id),
			target_kind       TEXT NOT NULL,
			target_id         UUID NOT NULL,
			game_type         TEXT,
			selection         TEXT NOT NULL,
			amount            NUMERIC(18,2) NOT NULL CHECK (amount > 0),
			potential_winning NUMERIC(18,2) NOT NULL,
			status            TEXT NOT NULL DEFAULT 'PENDING',
			created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			settled_at        TIMESTAMPTZ
		)`,
		`CREATE INDEX IF NOT EXISTS idx_bets_target_pending ON bets(target_id) WHERE status = 'PENDING'`,
		`CREATE INDEX IF NOT EXISTS idx_bets_account ON bets(account_id)`,
	}

	for _, s := range stmts {
		if _, err := db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
