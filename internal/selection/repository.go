package selection

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/romanpTAMU/astro-llm/internal/contracts"
)

// Repository handles scoring pass persistence
// ⭐ SSOT: 점수 결과 저장/조회는 여기서만
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new selection repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// SaveScoredCandidates replaces the scoring results of a run
func (r *Repository) SaveScoredCandidates(ctx context.Context, runID string, candidates []contracts.ScoredCandidate) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "DELETE FROM selection.scored_candidates WHERE run_id = $1", runID); err != nil {
		return fmt.Errorf("failed to delete old results: %w", err)
	}

	query := `
		INSERT INTO selection.scored_candidates (
			run_id, ticker, rank, sector, composite_score, disqualified,
			factor_scores, sentiment, risk_flags, scored_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	for _, c := range candidates {
		factors, err := json.Marshal(c.Factors)
		if err != nil {
			return fmt.Errorf("failed to marshal factors for %s: %w", c.Ticker, err)
		}
		sentiment, err := json.Marshal(c.Sentiment)
		if err != nil {
			return fmt.Errorf("failed to marshal sentiment for %s: %w", c.Ticker, err)
		}
		risk, err := json.Marshal(c.Risk)
		if err != nil {
			return fmt.Errorf("failed to marshal risk flags for %s: %w", c.Ticker, err)
		}

		_, err = tx.Exec(ctx, query,
			runID, c.Ticker, c.Rank, c.Sector, c.Composite.Float(), c.Composite.IsDisqualified(),
			factors, sentiment, risk, c.ScoredAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert scored candidate %s: %w", c.Ticker, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetScoredCandidates returns the ranked candidates of a run, best first
func (r *Repository) GetScoredCandidates(ctx context.Context, runID string) ([]contracts.ScoredCandidate, error) {
	query := `
		SELECT ticker, rank, sector, composite_score, disqualified,
		       factor_scores, sentiment, risk_flags, scored_at
		FROM selection.scored_candidates
		WHERE run_id = $1
		ORDER BY rank ASC
	`

	rows, err := r.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query scored candidates: %w", err)
	}
	defer rows.Close()

	results := make([]contracts.ScoredCandidate, 0)
	for rows.Next() {
		var c contracts.ScoredCandidate
		var score float64
		var disqualified bool
		var factors, sentiment, risk []byte

		if err := rows.Scan(&c.Ticker, &c.Rank, &c.Sector, &score, &disqualified,
			&factors, &sentiment, &risk, &c.ScoredAt); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		if err := json.Unmarshal(factors, &c.Factors); err != nil {
			return nil, fmt.Errorf("failed to unmarshal factors: %w", err)
		}
		if err := json.Unmarshal(sentiment, &c.Sentiment); err != nil {
			return nil, fmt.Errorf("failed to unmarshal sentiment: %w", err)
		}
		if err := json.Unmarshal(risk, &c.Risk); err != nil {
			return nil, fmt.Errorf("failed to unmarshal risk flags: %w", err)
		}

		if disqualified {
			c.Composite = contracts.Disqualified(c.Risk.Reasons)
		} else {
			c.Composite = contracts.Scored(score)
		}
		results = append(results, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}

	if len(results) == 0 {
		return nil, fmt.Errorf("run %s: %w", runID, contracts.ErrNotFound)
	}

	return results, nil
}
