package execution

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/romanpTAMU/astro-llm/internal/contracts"
)

// Repository handles execution data persistence
// ⭐ SSOT: Execution 데이터 저장/조회는 여기서만
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new execution repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// SaveOrders replaces the trade batch of a run
func (r *Repository) SaveOrders(ctx context.Context, runID string, orders []contracts.TradeOrder) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "DELETE FROM execution.trade_orders WHERE run_id = $1", runID); err != nil {
		return fmt.Errorf("failed to delete old orders: %w", err)
	}

	rows := make([][]interface{}, len(orders))
	for i, o := range orders {
		rows[i] = []interface{}{
			runID, i + 1, string(o.Side), o.Ticker, o.Qty,
			o.Price.InexactFloat64(), o.Principal.InexactFloat64(), string(o.PriceSource),
		}
	}

	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"execution", "trade_orders"},
		[]string{"run_id", "seq", "side", "ticker", "qty", "price", "principal", "price_source"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("failed to insert orders: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetOrders retrieves the trade batch of a run in emission order
func (r *Repository) GetOrders(ctx context.Context, runID string) ([]contracts.TradeOrder, error) {
	query := `
		SELECT side, ticker, qty, price::text, principal::text, price_source
		FROM execution.trade_orders
		WHERE run_id = $1
		ORDER BY seq
	`

	rows, err := r.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	orders := make([]contracts.TradeOrder, 0)
	for rows.Next() {
		var (
			o                contracts.TradeOrder
			side, source     string
			price, principal string
		)
		if err := rows.Scan(&side, &o.Ticker, &o.Qty, &price, &principal, &source); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		o.Side = contracts.OrderSide(side)
		o.PriceSource = contracts.PriceOrigin(source)
		if o.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("invalid price for %s: %w", o.Ticker, err)
		}
		if o.Principal, err = decimal.NewFromString(principal); err != nil {
			return nil, fmt.Errorf("invalid principal for %s: %w", o.Ticker, err)
		}
		orders = append(orders, o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return orders, nil
}

var _ contracts.OrderStore = (*Repository)(nil)
