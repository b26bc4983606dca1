package portfolio

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/romanpTAMU/astro-llm/internal/contracts"
)

// Repository handles portfolio data persistence
// ⭐ SSOT: Portfolio 데이터 저장/조회는 여기서만 (DB)
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new portfolio repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// SaveRun saves an allocation, its holdings and run prices
func (r *Repository) SaveRun(ctx context.Context, alloc *contracts.Allocation, prices map[string]float64) error {
	// Begin transaction
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO portfolio.allocations (
			run_id, constructed_at, horizon_end, total_weight, target_count,
			config_hash, warnings, relies_on_sector_tolerance
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (run_id) DO UPDATE SET
			constructed_at = EXCLUDED.constructed_at,
			horizon_end = EXCLUDED.horizon_end,
			total_weight = EXCLUDED.total_weight,
			target_count = EXCLUDED.target_count,
			config_hash = EXCLUDED.config_hash,
			warnings = EXCLUDED.warnings,
			relies_on_sector_tolerance = EXCLUDED.relies_on_sector_tolerance
	`,
		alloc.RunID, alloc.ConstructedAt, alloc.HorizonEnd, alloc.TotalWeight, alloc.TargetCount,
		alloc.ConfigHash, alloc.Warnings, alloc.ReliesOnSectorTolerance,
	)
	if err != nil {
		return fmt.Errorf("failed to save allocation: %w", err)
	}

	// Replace holdings and prices for the run
	if _, err := tx.Exec(ctx, "DELETE FROM portfolio.holdings WHERE run_id = $1", alloc.RunID); err != nil {
		return fmt.Errorf("failed to delete old holdings: %w", err)
	}
	if _, err := tx.Exec(ctx, "DELETE FROM portfolio.run_prices WHERE run_id = $1", alloc.RunID); err != nil {
		return fmt.Errorf("failed to delete old prices: %w", err)
	}

	batch := &pgx.Batch{}
	for _, h := range alloc.Holdings {
		batch.Queue(`
			INSERT INTO portfolio.holdings (
				run_id, ticker, weight, sector, theme, rationale, composite_score
			) VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, alloc.RunID, h.Ticker, h.Weight, h.Sector, h.Theme, h.Rationale, h.Composite.Float())
	}
	for ticker, price := range prices {
		batch.Queue(`
			INSERT INTO portfolio.run_prices (run_id, ticker, price) VALUES ($1, $2, $3)
		`, alloc.RunID, ticker, price)
	}

	results := tx.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return fmt.Errorf("failed to insert run row %d: %w", i, err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("failed to close batch: %w", err)
	}

	// Commit transaction
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// LoadRun retrieves an allocation and its prices
func (r *Repository) LoadRun(ctx context.Context, runID string) (*contracts.Allocation, map[string]float64, error) {
	alloc := &contracts.Allocation{RunID: runID}
	err := r.pool.QueryRow(ctx, `
		SELECT constructed_at, horizon_end, total_weight, target_count,
		       config_hash, warnings, relies_on_sector_tolerance
		FROM portfolio.allocations
		WHERE run_id = $1
	`, runID).Scan(
		&alloc.ConstructedAt, &alloc.HorizonEnd, &alloc.TotalWeight, &alloc.TargetCount,
		&alloc.ConfigHash, &alloc.Warnings, &alloc.ReliesOnSectorTolerance,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, fmt.Errorf("run %s: %w", runID, contracts.ErrNotFound)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get allocation: %w", err)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT ticker, weight, sector, theme, rationale, composite_score
		FROM portfolio.holdings
		WHERE run_id = $1
		ORDER BY weight DESC, ticker
	`, runID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query holdings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			h     contracts.Holding
			score float64
		)
		if err := rows.Scan(&h.Ticker, &h.Weight, &h.Sector, &h.Theme, &h.Rationale, &score); err != nil {
			return nil, nil, fmt.Errorf("failed to scan holding: %w", err)
		}
		h.Composite = compositeFromFloat(score)
		alloc.Holdings = append(alloc.Holdings, h)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("error iterating rows: %w", err)
	}

	prices, err := r.loadPrices(ctx, runID)
	if err != nil {
		return nil, nil, err
	}

	return alloc, prices, nil
}

func (r *Repository) loadPrices(ctx context.Context, runID string) (map[string]float64, error) {
	rows, err := r.pool.Query(ctx, "SELECT ticker, price FROM portfolio.run_prices WHERE run_id = $1", runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query run prices: %w", err)
	}
	defer rows.Close()

	prices := make(map[string]float64)
	for rows.Next() {
		var (
			ticker string
			price  float64
		)
		if err := rows.Scan(&ticker, &price); err != nil {
			return nil, fmt.Errorf("failed to scan price: %w", err)
		}
		prices[ticker] = price
	}
	return prices, rows.Err()
}

// PreviousRunID returns the latest run strictly before the given run
func (r *Repository) PreviousRunID(ctx context.Context, before string) (string, error) {
	return r.scanRunID(ctx, `
		SELECT run_id FROM portfolio.allocations
		WHERE run_id < $1
		ORDER BY run_id DESC
		LIMIT 1
	`, before)
}

// LatestRunID returns the most recent run
func (r *Repository) LatestRunID(ctx context.Context) (string, error) {
	return r.scanRunID(ctx, `
		SELECT run_id FROM portfolio.allocations
		ORDER BY run_id DESC
		LIMIT 1
	`)
}

func (r *Repository) scanRunID(ctx context.Context, query string, args ...interface{}) (string, error) {
	var runID string
	err := r.pool.QueryRow(ctx, query, args...).Scan(&runID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", contracts.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get run id: %w", err)
	}
	return runID, nil
}

func compositeFromFloat(v float64) contracts.CompositeScore {
	if v == contracts.DisqualifiedSentinel {
		return contracts.Disqualified(nil)
	}
	return contracts.Scored(v)
}

var _ contracts.AllocationStore = (*Repository)(nil)
