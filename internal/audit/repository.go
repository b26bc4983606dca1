package audit

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/romanpTAMU/astro-llm/internal/contracts"
)

// Repository handles audit data persistence
// ⭐ SSOT: Audit 데이터 저장/조회는 여기서만 (DB)
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new audit repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Append inserts a ledger entry; an existing run id is rejected
func (r *Repository) Append(ctx context.Context, entry contracts.PnLLedgerEntry) (*contracts.PnLLedger, error) {
	query := `
		INSERT INTO audit.pnl_ledger (
			run_id, run_date, period_pnl, portfolio_value_before_rebalance, target_notional, created_at
		) VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (run_id) DO NOTHING
	`

	tag, err := r.pool.Exec(ctx, query,
		entry.RunID, entry.RunDate, entry.PeriodPnL,
		entry.PortfolioValueBeforeRebalance, entry.TargetNotional,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to save ledger entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, fmt.Errorf("run %s: %w", entry.RunID, contracts.ErrDuplicateRun)
	}

	return r.Load(ctx)
}

// Load retrieves all ledger entries in run order
func (r *Repository) Load(ctx context.Context) (*contracts.PnLLedger, error) {
	query := `
		SELECT run_id, run_date, period_pnl, portfolio_value_before_rebalance, target_notional
		FROM audit.pnl_ledger
		ORDER BY run_date, run_id
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger: %w", err)
	}
	defer rows.Close()

	ledger := &contracts.PnLLedger{Entries: make([]contracts.PnLLedgerEntry, 0)}
	for rows.Next() {
		var e contracts.PnLLedgerEntry
		if err := rows.Scan(&e.RunID, &e.RunDate, &e.PeriodPnL, &e.PortfolioValueBeforeRebalance, &e.TargetNotional); err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		ledger.Entries = append(ledger.Entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return ledger, nil
}

var _ contracts.LedgerStore = (*Repository)(nil)
