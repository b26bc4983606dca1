package contracts

import "context"

// SentimentSynthesizer produces sentiment for one candidate.
// The production implementation is LLM-backed and lives outside this module.
type SentimentSynthesizer interface {
	Synthesize(ctx context.Context, input SentimentInput) (Sentiment, error)
}

// SentimentInput is what a synthesizer may use
type SentimentInput struct {
	Ticker  string       `json:"ticker"`
	Price   *float64     `json:"price,omitempty"`
	Analyst *AnalystData `json:"analyst,omitempty"`
	News    []NewsItem   `json:"news,omitempty"`
}

// PriceSource resolves a current price for a ticker on demand.
// Returns ErrMissingInput (wrapped) when no price exists.
type PriceSource interface {
	GetCurrentPrice(ctx context.Context, ticker string) (float64, error)
}

// AllocationStore persists allocations and the prices they were built with
type AllocationStore interface {
	SaveRun(ctx context.Context, alloc *Allocation, prices map[string]float64) error
	LoadRun(ctx context.Context, runID string) (*Allocation, map[string]float64, error)
	PreviousRunID(ctx context.Context, before string) (string, error)
	LatestRunID(ctx context.Context) (string, error)
}

// LedgerStore persists the P&L ledger
type LedgerStore interface {
	Load(ctx context.Context) (*PnLLedger, error)
	Append(ctx context.Context, entry PnLLedgerEntry) (*PnLLedger, error)
}

// OrderStore persists trade batches
type OrderStore interface {
	SaveOrders(ctx context.Context, runID string, orders []TradeOrder) error
}
