package brain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/romanpTAMU/astro-llm/internal/audit"
	"github.com/romanpTAMU/astro-llm/internal/contracts"
	"github.com/romanpTAMU/astro-llm/internal/execution"
	"github.com/romanpTAMU/astro-llm/internal/portfolio"
	"github.com/romanpTAMU/astro-llm/internal/s0_data/collector"
	"github.com/romanpTAMU/astro-llm/internal/s0_data/quality"
	"github.com/romanpTAMU/astro-llm/internal/selection"
	"github.com/romanpTAMU/astro-llm/pkg/logger"
)

// Orchestrator coordinates scoring, construction, rebalance and audit
// ⭐ SSOT: 파이프라인 조율은 여기서만
type Orchestrator struct {
	// Stage components
	collector   *collector.Collector // optional
	gate        *quality.QualityGate // optional
	scorer      *selection.Service
	constructor *portfolio.Constructor
	diff        *execution.DiffEngine
	ledger      *audit.Ledger
	analyzer    *audit.Analyzer

	// Persistence
	runs    contracts.AllocationStore
	exports *portfolio.RunStore   // trades.csv, period_pnl.json
	orders  contracts.OrderStore  // optional
	scores  *selection.Repository // optional
	quality *quality.Repository   // optional

	logger *logger.Logger
}

// Deps groups the orchestrator collaborators
type Deps struct {
	Collector   *collector.Collector
	Gate        *quality.QualityGate
	Scorer      *selection.Service
	Constructor *portfolio.Constructor
	Diff        *execution.DiffEngine
	Ledger      *audit.Ledger
	Analyzer    *audit.Analyzer
	Runs        contracts.AllocationStore
	Exports     *portfolio.RunStore
	Orders      contracts.OrderStore
	Scores      *selection.Repository
	Quality     *quality.Repository
}

// RunConfig holds configuration for a full pipeline run
type RunConfig struct {
	Date       time.Time
	Candidates []contracts.CandidateData
	Proposal   *contracts.ProposedAllocation
	Notional   float64
	DryRun     bool // If true, construct only: nothing is saved and no trades are written
}

// RunResult holds the results of a complete pipeline run
type RunResult struct {
	RunID           string                      `json:"run_id"`
	Date            time.Time                   `json:"date"`
	Success         bool                        `json:"success"`
	CompletedStages []string                    `json:"completed_stages"`
	Quality         *quality.Snapshot           `json:"quality,omitempty"`
	Ranked          []contracts.ScoredCandidate `json:"ranked,omitempty"`
	Allocation      *contracts.Allocation       `json:"allocation,omitempty"`
	Rebalance       *RebalanceResult            `json:"rebalance,omitempty"`
	Performance     *audit.PerformanceReport    `json:"performance,omitempty"`
	Duration        time.Duration               `json:"duration"`
}

// RebalanceConfig selects the run to rebalance into
type RebalanceConfig struct {
	RunID    string // empty = latest run
	Date     time.Time
	Notional float64
	DryRun   bool // If true, compute orders without writing files or ledger entries
}

// RebalanceResult is the outcome of one rebalance
type RebalanceResult struct {
	RunID         string                `json:"run_id"`
	PreviousRunID string                `json:"previous_run_id,omitempty"`
	Diff          *execution.DiffResult `json:"diff"`
	TradesFile    string                `json:"trades_file,omitempty"`
	Ledger        *contracts.PnLLedger  `json:"ledger,omitempty"`
}

// NewOrchestrator creates a new orchestrator
func NewOrchestrator(deps Deps, log *logger.Logger) *Orchestrator {
	return &Orchestrator{
		collector:   deps.Collector,
		gate:        deps.Gate,
		scorer:      deps.Scorer,
		constructor: deps.Constructor,
		diff:        deps.Diff,
		ledger:      deps.Ledger,
		analyzer:    deps.Analyzer,
		runs:        deps.Runs,
		exports:     deps.Exports,
		orders:      deps.Orders,
		scores:      deps.Scores,
		quality:     deps.Quality,
		logger:      log.WithComponent("orchestrator"),
	}
}

// Run executes the pipeline: score → construct → rebalance → audit
func (o *Orchestrator) Run(ctx context.Context, config RunConfig) (*RunResult, error) {
	startTime := time.Now()
	if config.Date.IsZero() {
		config.Date = startTime
	}

	result := &RunResult{
		Date:            config.Date,
		CompletedStages: make([]string, 0),
	}

	o.logger.WithFields(map[string]interface{}{
		"date":       config.Date.Format("2006-01-02"),
		"candidates": len(config.Candidates),
		"proposal":   config.Proposal != nil,
		"notional":   config.Notional,
		"dry_run":    config.DryRun,
	}).Info("Starting pipeline run")

	// S0: Data Quality Gate
	if o.collector != nil || o.gate != nil {
		snapshot, err := o.runS0(ctx, config)
		result.Quality = snapshot
		if err != nil {
			return result, fmt.Errorf("data quality failed: %w", err)
		}
		result.CompletedStages = append(result.CompletedStages, "S0:Quality")
	}

	// S3: Scoring
	ranking, err := o.Score(ctx, config.Candidates)
	if err != nil {
		return result, fmt.Errorf("scoring failed: %w", err)
	}
	result.Ranked = ranking.Candidates
	result.CompletedStages = append(result.CompletedStages, "S3:Ranking")

	// S5: Portfolio Construction
	alloc, err := o.Build(ctx, ranking.Candidates, config.Proposal, nil, !config.DryRun)
	if err != nil {
		return result, fmt.Errorf("portfolio construction failed: %w", err)
	}
	result.RunID = alloc.RunID
	result.Allocation = alloc
	result.CompletedStages = append(result.CompletedStages, "S5:Portfolio")

	if o.scores != nil && !config.DryRun {
		if err := o.scores.SaveScoredCandidates(ctx, alloc.RunID, ranking.Candidates); err != nil {
			return result, fmt.Errorf("save scored candidates: %w", err)
		}
	}
	if o.quality != nil && result.Quality != nil && !config.DryRun {
		if err := o.quality.SaveSnapshot(ctx, alloc.RunID, result.Quality); err != nil {
			return result, fmt.Errorf("save quality snapshot: %w", err)
		}
	}

	if config.DryRun {
		o.logger.Info("Skipping S6:Rebalance (dry run mode)")
	} else {
		// S6: Rebalance
		rebalance, err := o.Rebalance(ctx, RebalanceConfig{
			RunID:    alloc.RunID,
			Date:     config.Date,
			Notional: config.Notional,
		})
		if err != nil {
			return result, fmt.Errorf("rebalance failed: %w", err)
		}
		result.Rebalance = rebalance
		result.CompletedStages = append(result.CompletedStages, "S6:Rebalance")

		// S7: Performance Analysis (첫 실행은 원장이 비어 있음)
		report, err := o.analyzer.Analyze(ctx)
		switch {
		case err == nil:
			result.Performance = report
			result.CompletedStages = append(result.CompletedStages, "S7:Audit")
		case errors.Is(err, contracts.ErrNotFound):
			o.logger.Info("Skipping S7:Audit (empty ledger)")
		default:
			return result, fmt.Errorf("performance analysis failed: %w", err)
		}
	}

	result.Success = true
	result.Duration = time.Since(startTime)

	o.logger.WithFields(map[string]interface{}{
		"run_id":   result.RunID,
		"duration": result.Duration.Seconds(),
		"stages":   len(result.CompletedStages),
	}).Info("Pipeline run completed successfully")

	return result, nil
}

// runS0 fills missing prices and checks pool coverage
func (o *Orchestrator) runS0(ctx context.Context, config RunConfig) (*quality.Snapshot, error) {
	o.logger.Info("Running S0: Data Quality Gate")

	if o.collector != nil {
		if _, err := o.collector.FillPrices(ctx, config.Candidates, collector.DefaultConfig()); err != nil {
			return nil, fmt.Errorf("price collection: %w", err)
		}
	}
	if o.gate == nil {
		return nil, nil
	}

	snapshot, err := o.gate.Check(config.Date, config.Candidates)
	if err != nil {
		return snapshot, err
	}
	for _, w := range snapshot.Warnings {
		o.logger.WithField("warning", w).Warn("Data quality warning")
	}
	return snapshot, nil
}

// Score runs the scoring pass
func (o *Orchestrator) Score(ctx context.Context, candidates []contracts.CandidateData) (*selection.RankingResult, error) {
	o.logger.Info("Running S3: Scoring")
	return o.scorer.Score(ctx, candidates)
}

// Build constructs an allocation from ranked candidates and optionally saves it
// together with the candidate prices seen at build time
func (o *Orchestrator) Build(
	ctx context.Context,
	ranked []contracts.ScoredCandidate,
	proposal *contracts.ProposedAllocation,
	prices map[string]float64,
	save bool,
) (*contracts.Allocation, error) {
	o.logger.Info("Running S5: Portfolio Construction")

	alloc, err := o.constructor.Construct(ctx, ranked, proposal)
	if err != nil {
		return nil, err
	}

	if !save {
		return alloc, nil
	}

	snapshot := BuildPrices(alloc, ranked, prices)
	if err := o.runs.SaveRun(ctx, alloc, snapshot); err != nil {
		return nil, fmt.Errorf("save run: %w", err)
	}

	o.logger.WithFields(map[string]interface{}{
		"run_id":   alloc.RunID,
		"holdings": len(alloc.Holdings),
		"prices":   len(snapshot),
	}).Info("S5 completed")

	return alloc, nil
}

// Rebalance diffs a saved run against the run before it, writes the
// trade batch and records the period P&L
func (o *Orchestrator) Rebalance(ctx context.Context, config RebalanceConfig) (*RebalanceResult, error) {
	o.logger.Info("Running S6: Rebalance")

	if config.Date.IsZero() {
		config.Date = time.Now()
	}

	runID := config.RunID
	if runID == "" {
		latest, err := o.runs.LatestRunID(ctx)
		if err != nil {
			return nil, fmt.Errorf("find latest run: %w", err)
		}
		runID = latest
	}

	current, currentPrices, err := o.runs.LoadRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load run %s: %w", runID, err)
	}

	result := &RebalanceResult{RunID: runID}
	input := execution.DiffInput{
		RunID:         runID,
		RunDate:       config.Date,
		Current:       current,
		CurrentPrices: currentPrices,
		Notional:      config.Notional,
	}

	prevID, err := o.runs.PreviousRunID(ctx, runID)
	switch {
	case err == nil:
		previous, previousPrices, err := o.runs.LoadRun(ctx, prevID)
		if err != nil {
			return nil, fmt.Errorf("load previous run %s: %w", prevID, err)
		}
		result.PreviousRunID = prevID
		input.Previous = previous
		input.PreviousPrices = previousPrices
	case errors.Is(err, contracts.ErrNotFound):
		o.logger.WithField("run_id", runID).Info("No previous run, initial build")
	default:
		return nil, fmt.Errorf("find previous run: %w", err)
	}

	diff, err := o.diff.Diff(ctx, input)
	if err != nil {
		return nil, err
	}
	result.Diff = diff

	if config.DryRun {
		return result, nil
	}

	runDir := o.exports.RunDir(runID)
	path, err := execution.SaveTradesFile(runDir, diff.Orders)
	if err != nil {
		return nil, err
	}
	result.TradesFile = path

	if o.orders != nil {
		if err := o.orders.SaveOrders(ctx, runID, diff.Orders); err != nil {
			return nil, fmt.Errorf("save orders: %w", err)
		}
	}

	if diff.PnL != nil {
		ledger, err := o.ledger.Record(ctx, *diff.PnL)
		switch {
		case err == nil:
			result.Ledger = ledger
		case errors.Is(err, contracts.ErrDuplicateRun):
			// 재실행: 기존 원장 유지
			o.logger.WithField("run_id", runID).Warn("Period P&L already recorded")
			if result.Ledger, err = o.ledger.Load(ctx); err != nil {
				return nil, err
			}
		default:
			return nil, err
		}
		if err := audit.WritePeriodPnL(runDir, *diff.PnL); err != nil {
			return nil, err
		}
	}

	o.logger.WithFields(map[string]interface{}{
		"run_id":   runID,
		"previous": result.PreviousRunID,
		"orders":   len(diff.Orders),
		"file":     path,
	}).Info("S6 completed")

	return result, nil
}

// Performance returns the ledger performance report
func (o *Orchestrator) Performance(ctx context.Context) (*audit.PerformanceReport, error) {
	return o.analyzer.Analyze(ctx)
}

// Ledger returns the P&L ledger
func (o *Orchestrator) Ledger(ctx context.Context) (*contracts.PnLLedger, error) {
	return o.ledger.Load(ctx)
}

// LoadRun returns a saved allocation; empty runID loads the latest
func (o *Orchestrator) LoadRun(ctx context.Context, runID string) (*contracts.Allocation, map[string]float64, error) {
	if runID == "" {
		latest, err := o.runs.LatestRunID(ctx)
		if err != nil {
			return nil, nil, err
		}
		runID = latest
	}
	return o.runs.LoadRun(ctx, runID)
}

// BuildPrices snapshots the price of every holding: explicit prices win
// over the price carried on the scored candidate
func BuildPrices(alloc *contracts.Allocation, ranked []contracts.ScoredCandidate, explicit map[string]float64) map[string]float64 {
	byTicker := make(map[string]float64, len(ranked))
	for _, c := range ranked {
		if c.Price != nil && *c.Price > 0 {
			byTicker[c.Ticker] = *c.Price
		}
	}

	prices := make(map[string]float64, len(alloc.Holdings))
	for _, h := range alloc.Holdings {
		if p, ok := explicit[h.Ticker]; ok && p > 0 {
			prices[h.Ticker] = p
			continue
		}
		if p, ok := byTicker[h.Ticker]; ok {
			prices[h.Ticker] = p
		}
	}
	return prices
}
