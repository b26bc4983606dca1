package contracts

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// PnLLedgerEntry records the realized result of one rebalance period
type PnLLedgerEntry struct {
	RunID                         string    `json:"run_folder"`
	RunDate                       time.Time `json:"run_date"`
	PeriodPnL                     float64   `json:"period_pnl"`
	PortfolioValueBeforeRebalance float64   `json:"portfolio_value_before_rebalance"`
	TargetNotional                float64   `json:"target_notional"`
}

// PnLLedger is an append-only list of period results.
// The cumulative figure is derived on every read and never stored.
// ⭐ SSOT: 누적 손익은 Cumulative()에서만 계산
type PnLLedger struct {
	Entries []PnLLedgerEntry `json:"entries"`
}

// Cumulative sums all period P&L entries, rounded to cents
func (l *PnLLedger) Cumulative() float64 {
	total := decimal.Zero
	for _, e := range l.Entries {
		total = total.Add(decimal.NewFromFloat(e.PeriodPnL))
	}
	f, _ := total.Round(2).Float64()
	return f
}

// Has reports whether an entry for runID is already recorded
func (l *PnLLedger) Has(runID string) bool {
	for _, e := range l.Entries {
		if e.RunID == runID {
			return true
		}
	}
	return false
}

type ledgerJSON struct {
	Entries       []PnLLedgerEntry `json:"entries"`
	CumulativePnL float64          `json:"cumulative_pnl"`
}

// MarshalJSON writes the derived cumulative_pnl for readers
func (l PnLLedger) MarshalJSON() ([]byte, error) {
	entries := l.Entries
	if entries == nil {
		entries = []PnLLedgerEntry{}
	}
	return json.Marshal(ledgerJSON{Entries: entries, CumulativePnL: l.Cumulative()})
}

// UnmarshalJSON discards any stored cumulative_pnl
func (l *PnLLedger) UnmarshalJSON(data []byte) error {
	var raw ledgerJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	l.Entries = raw.Entries
	return nil
}

// RoundCents rounds a money amount to 2 decimal places
func RoundCents(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}
