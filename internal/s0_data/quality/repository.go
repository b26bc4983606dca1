package quality

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository handles data quality snapshot persistence
// ⭐ SSOT: S0 품질 스냅샷 저장/조회
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new quality repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// SaveSnapshot saves a data quality snapshot for a run
func (r *Repository) SaveSnapshot(ctx context.Context, runID string, snapshot *Snapshot) error {
	coverage, err := json.Marshal(snapshot.Coverage)
	if err != nil {
		return fmt.Errorf("marshal coverage: %w", err)
	}
	warnings, err := json.Marshal(snapshot.Warnings)
	if err != nil {
		return fmt.Errorf("marshal warnings: %w", err)
	}

	query := `
		INSERT INTO audit.data_quality_snapshots (
			run_id, snapshot_date, quality_score, total_candidates,
			coverage, warnings, passed
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (run_id) DO UPDATE SET
			snapshot_date = EXCLUDED.snapshot_date,
			quality_score = EXCLUDED.quality_score,
			total_candidates = EXCLUDED.total_candidates,
			coverage = EXCLUDED.coverage,
			warnings = EXCLUDED.warnings,
			passed = EXCLUDED.passed
	`

	_, err = r.pool.Exec(ctx, query,
		runID, snapshot.Date, snapshot.QualityScore, snapshot.Total,
		coverage, warnings, snapshot.Passed,
	)
	if err != nil {
		return fmt.Errorf("failed to save quality snapshot: %w", err)
	}

	return nil
}

// GetLatestSnapshot returns the most recent snapshot
func (r *Repository) GetLatestSnapshot(ctx context.Context) (*Snapshot, error) {
	query := `
		SELECT snapshot_date, quality_score, total_candidates, coverage, warnings, passed
		FROM audit.data_quality_snapshots
		ORDER BY snapshot_date DESC
		LIMIT 1
	`

	var (
		s        Snapshot
		coverage []byte
		warnings []byte
	)
	err := r.pool.QueryRow(ctx, query).Scan(&s.Date, &s.QualityScore, &s.Total, &coverage, &warnings, &s.Passed)
	if err != nil {
		return nil, fmt.Errorf("failed to query quality snapshot: %w", err)
	}

	if err := json.Unmarshal(coverage, &s.Coverage); err != nil {
		return nil, fmt.Errorf("unmarshal coverage: %w", err)
	}
	if len(warnings) > 0 {
		if err := json.Unmarshal(warnings, &s.Warnings); err != nil {
			return nil, fmt.Errorf("unmarshal warnings: %w", err)
		}
	}

	return &s, nil
}
