package database

import (
	"context"
	"fmt"
)

// schemaStatements creates the tables behind the pgx repositories.
// All statements are idempotent.
var schemaStatements = []string{
	`CREATE SCHEMA IF NOT EXISTS selection`,
	`CREATE SCHEMA IF NOT EXISTS portfolio`,
	`CREATE SCHEMA IF NOT EXISTS execution`,
	`CREATE SCHEMA IF NOT EXISTS audit`,

	`CREATE TABLE IF NOT EXISTS selection.scored_candidates (
		run_id          TEXT        NOT NULL,
		ticker          TEXT        NOT NULL,
		rank            INTEGER     NOT NULL,
		sector          TEXT        NOT NULL,
		composite_score DOUBLE PRECISION NOT NULL,
		disqualified    BOOLEAN     NOT NULL,
		factor_scores   JSONB       NOT NULL,
		sentiment       JSONB       NOT NULL,
		risk_flags      JSONB       NOT NULL,
		scored_at       TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (run_id, ticker)
	)`,

	`CREATE TABLE IF NOT EXISTS portfolio.allocations (
		run_id                     TEXT PRIMARY KEY,
		constructed_at             TIMESTAMPTZ NOT NULL,
		horizon_end                TIMESTAMPTZ NOT NULL,
		total_weight               DOUBLE PRECISION NOT NULL,
		target_count               INTEGER NOT NULL,
		config_hash                TEXT NOT NULL DEFAULT '',
		warnings                   TEXT[],
		relies_on_sector_tolerance BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE TABLE IF NOT EXISTS portfolio.holdings (
		run_id          TEXT NOT NULL REFERENCES portfolio.allocations (run_id) ON DELETE CASCADE,
		ticker          TEXT NOT NULL,
		weight          DOUBLE PRECISION NOT NULL,
		sector          TEXT NOT NULL,
		theme           TEXT NOT NULL DEFAULT '',
		rationale       TEXT NOT NULL DEFAULT '',
		composite_score DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (run_id, ticker)
	)`,
	`CREATE TABLE IF NOT EXISTS portfolio.run_prices (
		run_id TEXT NOT NULL REFERENCES portfolio.allocations (run_id) ON DELETE CASCADE,
		ticker TEXT NOT NULL,
		price  DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (run_id, ticker)
	)`,

	`CREATE TABLE IF NOT EXISTS execution.trade_orders (
		run_id       TEXT    NOT NULL,
		seq          INTEGER NOT NULL,
		side         TEXT    NOT NULL,
		ticker       TEXT    NOT NULL,
		qty          BIGINT  NOT NULL,
		price        DOUBLE PRECISION NOT NULL,
		principal    DOUBLE PRECISION NOT NULL,
		price_source TEXT    NOT NULL,
		PRIMARY KEY (run_id, seq)
	)`,

	`CREATE TABLE IF NOT EXISTS audit.pnl_ledger (
		run_id                           TEXT PRIMARY KEY,
		run_date                         TIMESTAMPTZ NOT NULL,
		period_pnl                       DOUBLE PRECISION NOT NULL,
		portfolio_value_before_rebalance DOUBLE PRECISION NOT NULL,
		target_notional                  DOUBLE PRECISION NOT NULL,
		created_at                       TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS audit.data_quality_snapshots (
		run_id           TEXT PRIMARY KEY,
		snapshot_date    TIMESTAMPTZ NOT NULL,
		quality_score    DOUBLE PRECISION NOT NULL,
		total_candidates INTEGER NOT NULL,
		coverage         JSONB NOT NULL,
		warnings         JSONB NOT NULL,
		passed           BOOLEAN NOT NULL
	)`,
}

// EnsureSchema creates missing schemas and tables
func (db *DB) EnsureSchema(ctx context.Context) error {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, stmt := range schemaStatements {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit schema: %w", err)
	}
	return nil
}
