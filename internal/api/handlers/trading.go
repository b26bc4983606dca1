package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/romanpTAMU/astro-llm/internal/brain"
	"github.com/romanpTAMU/astro-llm/internal/contracts"
	"github.com/romanpTAMU/astro-llm/internal/execution"
	"github.com/romanpTAMU/astro-llm/pkg/logger"
)

// TradingHandler serves rebalance orders and the P&L ledger
// ⭐ SSOT: S6/S7 API 핸들러는 이 구조체에서만
type TradingHandler struct {
	orch     *brain.Orchestrator
	diff     *execution.DiffEngine
	notional float64
	logger   *logger.Logger
}

// NewTradingHandler creates a new trading handler
func NewTradingHandler(orch *brain.Orchestrator, diff *execution.DiffEngine, notional float64, log *logger.Logger) *TradingHandler {
	return &TradingHandler{
		orch:     orch,
		diff:     diff,
		notional: notional,
		logger:   log,
	}
}

// TradesRequest diffs two allocations supplied by the caller
type TradesRequest struct {
	RunID          string                `json:"run_id,omitempty"`
	Current        *contracts.Allocation `json:"current"`
	CurrentPrices  map[string]float64    `json:"current_prices"`
	Previous       *contracts.Allocation `json:"previous,omitempty"`
	PreviousPrices map[string]float64    `json:"previous_prices,omitempty"`
	Notional       float64               `json:"notional,omitempty"`
}

// ComputeTrades returns the ordered trade batch; ?format=csv returns trades.csv
// POST /api/trades
func (h *TradingHandler) ComputeTrades(w http.ResponseWriter, r *http.Request) {
	var req TradesRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Current == nil {
		respondError(w, http.StatusBadRequest, "current allocation is required")
		return
	}
	if req.Notional <= 0 {
		req.Notional = h.notional
	}
	runID := req.RunID
	if runID == "" {
		runID = req.Current.RunID
	}

	result, err := h.diff.Diff(r.Context(), execution.DiffInput{
		RunID:          runID,
		RunDate:        time.Now(),
		Current:        req.Current,
		CurrentPrices:  req.CurrentPrices,
		Notional:       req.Notional,
		Previous:       req.Previous,
		PreviousPrices: req.PreviousPrices,
	})
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if r.URL.Query().Get("format") == "csv" {
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", "attachment; filename="+execution.TradesFileName)
		if err := execution.WriteTradesCSV(w, result.Orders); err != nil {
			h.logger.WithError(err).Error("Failed to write trades csv")
		}
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// RebalanceRequest rebalances into a saved run
type RebalanceRequest struct {
	RunID    string  `json:"run_id,omitempty"` // empty = latest
	Notional float64 `json:"notional,omitempty"`
	DryRun   bool    `json:"dry_run"`
}

// Rebalance diffs a saved run against its predecessor and records the period P&L
// POST /api/rebalance
func (h *TradingHandler) Rebalance(w http.ResponseWriter, r *http.Request) {
	var req RebalanceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Notional <= 0 {
		req.Notional = h.notional
	}

	result, err := h.orch.Rebalance(r.Context(), brain.RebalanceConfig{
		RunID:    req.RunID,
		Notional: req.Notional,
		DryRun:   req.DryRun,
	})
	if err != nil {
		h.logger.WithError(err).Error("Rebalance failed")
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// GetLedger returns the P&L ledger with its derived cumulative total
// GET /api/ledger
func (h *TradingHandler) GetLedger(w http.ResponseWriter, r *http.Request) {
	ledger, err := h.orch.Ledger(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to load ledger")
		respondError(w, http.StatusInternalServerError, "Failed to load ledger")
		return
	}

	respondJSON(w, http.StatusOK, ledger)
}

// GetPerformance returns the ledger performance report
// GET /api/ledger/performance
func (h *TradingHandler) GetPerformance(w http.ResponseWriter, r *http.Request) {
	report, err := h.orch.Performance(r.Context())
	if err != nil {
		if errors.Is(err, contracts.ErrNotFound) {
			respondError(w, http.StatusNotFound, "No ledger entries yet")
			return
		}
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, report)
}
