package brain

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/romanpTAMU/astro-llm/internal/audit"
	"github.com/romanpTAMU/astro-llm/internal/contracts"
	"github.com/romanpTAMU/astro-llm/internal/execution"
	"github.com/romanpTAMU/astro-llm/internal/portfolio"
	"github.com/romanpTAMU/astro-llm/internal/s0_data/collector"
	"github.com/romanpTAMU/astro-llm/internal/s0_data/quality"
	"github.com/romanpTAMU/astro-llm/internal/s2_signals"
	"github.com/romanpTAMU/astro-llm/internal/selection"
	"github.com/romanpTAMU/astro-llm/pkg/logger"
)

type fixture struct {
	orch  *Orchestrator
	runs  *portfolio.RunStore
	clock time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	log := logger.Nop()

	fx := &fixture{
		runs:  portfolio.NewRunStore(dir),
		clock: time.Date(2026, 10, 19, 14, 0, 0, 0, time.UTC),
	}

	constructor := portfolio.NewConstructor(portfolio.DefaultPortfolioConfig(), portfolio.DefaultConstraints(), log).
		WithClock(func() time.Time { return fx.clock })
	scorer := selection.NewService(
		s2_signals.NewBuilder(nil, log),
		selection.NewScreener(selection.DefaultScreenerConfig(), log),
		selection.NewRanker(selection.DefaultWeightConfig(), selection.DefaultUpsidePenalty(), log),
		log,
	)
	ledger := audit.NewLedger(audit.NewFileStore(dir), log)

	fx.orch = NewOrchestrator(Deps{
		Collector:   collector.NewCollector(execution.NewStaticPrices(map[string]float64{"T24": 100}), log),
		Gate:        quality.NewQualityGate(quality.DefaultConfig(), log),
		Scorer:      scorer,
		Constructor: constructor,
		Diff:        execution.NewDiffEngine(nil, log),
		Ledger:      ledger,
		Analyzer:    audit.NewAnalyzer(ledger, log),
		Runs:        fx.runs,
		Exports:     fx.runs,
	}, log)
	return fx
}

// 25 candidates over 5 sectors; no factor data so ranking falls back to ticker order
func candidates(price float64) []contracts.CandidateData {
	sectors := []string{"Tech", "Health", "Energy", "Financials", "Industrials"}
	out := make([]contracts.CandidateData, 25)
	for i := range out {
		out[i] = contracts.CandidateData{
			Ticker:    fmt.Sprintf("T%02d", i),
			Sector:    sectors[i%len(sectors)],
			Price:     contracts.Float(price),
			AvgVolume: contracts.Float(1_000_000),
		}
	}
	return out
}

func TestRun_InitialThenRebalance(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)

	first, err := fx.orch.Run(ctx, RunConfig{Candidates: candidates(100), Notional: 50000})
	require.NoError(t, err)
	assert.True(t, first.Success)
	assert.Equal(t, []string{"S0:Quality", "S3:Ranking", "S5:Portfolio", "S6:Rebalance"}, first.CompletedStages)

	require.Len(t, first.Allocation.Holdings, 20)
	assert.Empty(t, first.Rebalance.PreviousRunID)
	assert.Nil(t, first.Rebalance.Diff.PnL)
	assert.Len(t, first.Rebalance.Diff.Buys(), 20)
	assert.Empty(t, first.Rebalance.Diff.Sells())
	assert.FileExists(t, first.Rebalance.TradesFile)
	assert.Equal(t, int64(25), first.Rebalance.Diff.TargetQty["T00"])

	// 2주 후, 가격 10% 상승
	fx.clock = fx.clock.AddDate(0, 0, 14)
	second, err := fx.orch.Run(ctx, RunConfig{Candidates: candidates(110), Notional: 50000})
	require.NoError(t, err)
	assert.Contains(t, second.CompletedStages, "S7:Audit")

	reb := second.Rebalance
	assert.Equal(t, first.RunID, reb.PreviousRunID)
	require.NotNil(t, reb.Diff.PnL)
	assert.InDelta(t, 55000, reb.Diff.PnL.PortfolioValueBeforeRebalance, 1e-6)
	assert.InDelta(t, 5000, reb.Diff.PnL.PeriodPnL, 1e-6)

	// 25주 → round(2500/110) = 23주
	assert.Len(t, reb.Diff.Sells(), 20)
	assert.Empty(t, reb.Diff.Buys())
	for _, o := range reb.Diff.Orders {
		assert.Equal(t, int64(2), o.Qty)
	}

	require.NotNil(t, reb.Ledger)
	assert.Equal(t, 5000.0, reb.Ledger.Cumulative())
	assert.FileExists(t, filepath.Join(fx.runs.RunDir(second.RunID), audit.PeriodPnLFileName))

	require.NotNil(t, second.Performance)
	assert.Equal(t, 1, second.Performance.Periods)
}

func TestRebalance_RerunKeepsLedger(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)

	_, err := fx.orch.Run(ctx, RunConfig{Candidates: candidates(100), Notional: 50000})
	require.NoError(t, err)
	fx.clock = fx.clock.AddDate(0, 0, 14)
	second, err := fx.orch.Run(ctx, RunConfig{Candidates: candidates(90), Notional: 50000})
	require.NoError(t, err)

	again, err := fx.orch.Rebalance(ctx, RebalanceConfig{Notional: 50000})
	require.NoError(t, err)
	assert.Equal(t, second.RunID, again.RunID)
	require.NotNil(t, again.Ledger)
	assert.Len(t, again.Ledger.Entries, 1)
	assert.Equal(t, -5000.0, again.Ledger.Cumulative())
}

func TestRun_DryRunSavesNothing(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)

	result, err := fx.orch.Run(ctx, RunConfig{Candidates: candidates(100), Notional: 50000, DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"S0:Quality", "S3:Ranking", "S5:Portfolio"}, result.CompletedStages)
	assert.Nil(t, result.Rebalance)

	_, err = fx.runs.LatestRunID(ctx)
	assert.ErrorIs(t, err, contracts.ErrNotFound)
}

func TestRun_QualityGate(t *testing.T) {
	fx := newFixture(t)

	// T24 가격은 수집기가 채움
	data := candidates(100)
	data[24].Price = nil
	result, err := fx.orch.Run(context.Background(), RunConfig{Candidates: data, DryRun: true})
	require.NoError(t, err)
	require.NotNil(t, result.Quality)
	assert.Equal(t, 1.0, result.Quality.Coverage["price"])
	assert.Equal(t, 100.0, *data[24].Price)

	// 가격 없는 후보 5개 → 80% < 95%
	data = candidates(100)
	for i := 0; i < 5; i++ {
		data[i].Price = nil
	}
	result, err = fx.orch.Run(context.Background(), RunConfig{Candidates: data, DryRun: true})
	require.Error(t, err)
	var gerr *quality.GateError
	assert.ErrorAs(t, err, &gerr)
	assert.False(t, result.Quality.Passed)
}

func TestRun_InfeasibleSectorCap(t *testing.T) {
	fx := newFixture(t)

	data := candidates(100)
	for i := range data {
		data[i].Sector = "Tech"
	}

	_, err := fx.orch.Run(context.Background(), RunConfig{Candidates: data, Notional: 50000})
	require.Error(t, err)
	assert.True(t, contracts.IsInfeasible(err))
}

func TestRebalance_DryRunWritesNoFiles(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)

	result, err := fx.orch.Run(ctx, RunConfig{Candidates: candidates(100), DryRun: true})
	require.NoError(t, err)

	ranked := result.Ranked
	alloc, err := fx.orch.Build(ctx, ranked, nil, map[string]float64{"T00": 50}, true)
	require.NoError(t, err)

	_, prices, err := fx.orch.LoadRun(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 50.0, prices["T00"])
	assert.Equal(t, 100.0, prices["T01"])

	reb, err := fx.orch.Rebalance(ctx, RebalanceConfig{RunID: alloc.RunID, Notional: 10000, DryRun: true})
	require.NoError(t, err)
	assert.Empty(t, reb.TradesFile)
	assert.Equal(t, int64(10), reb.Diff.TargetQty["T00"])

	_, err = os.Stat(filepath.Join(fx.runs.RunDir(alloc.RunID), execution.TradesFileName))
	assert.True(t, os.IsNotExist(err))
}
