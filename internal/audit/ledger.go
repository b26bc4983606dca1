package audit

import (
	"context"
	"fmt"
	"math"

	"github.com/romanpTAMU/astro-llm/internal/contracts"
	"github.com/romanpTAMU/astro-llm/pkg/logger"
)

// Ledger implements S7: append-only P&L ledger
// ⭐ SSOT: 기간 손익 기록은 여기서만
type Ledger struct {
	store  contracts.LedgerStore
	logger *logger.Logger
}

// NewLedger creates a ledger over a store
func NewLedger(store contracts.LedgerStore, log *logger.Logger) *Ledger {
	return &Ledger{store: store, logger: log}
}

// Record appends one period result. A run can only be recorded once.
func (l *Ledger) Record(ctx context.Context, entry contracts.PnLLedgerEntry) (*contracts.PnLLedger, error) {
	if entry.RunID == "" {
		return nil, fmt.Errorf("ledger entry has no run id")
	}
	if math.IsNaN(entry.PeriodPnL) || math.IsInf(entry.PeriodPnL, 0) {
		return nil, fmt.Errorf("ledger entry %s has invalid period pnl", entry.RunID)
	}

	entry.PeriodPnL = contracts.RoundCents(entry.PeriodPnL)
	entry.PortfolioValueBeforeRebalance = contracts.RoundCents(entry.PortfolioValueBeforeRebalance)

	ledger, err := l.store.Append(ctx, entry)
	if err != nil {
		return nil, fmt.Errorf("failed to record %s: %w", entry.RunID, err)
	}

	l.logger.WithFields(map[string]interface{}{
		"run_id":         entry.RunID,
		"period_pnl":     entry.PeriodPnL,
		"cumulative_pnl": ledger.Cumulative(),
		"entries":        len(ledger.Entries),
	}).Info("PnL recorded")

	return ledger, nil
}

// Load returns the full ledger
func (l *Ledger) Load(ctx context.Context) (*contracts.PnLLedger, error) {
	return l.store.Load(ctx)
}
