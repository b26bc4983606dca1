package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/romanpTAMU/astro-llm/internal/audit"
	"github.com/romanpTAMU/astro-llm/internal/brain"
	"github.com/romanpTAMU/astro-llm/internal/contracts"
	"github.com/romanpTAMU/astro-llm/internal/execution"
	"github.com/romanpTAMU/astro-llm/internal/portfolio"
	"github.com/romanpTAMU/astro-llm/internal/s0_data"
	"github.com/romanpTAMU/astro-llm/internal/s2_signals"
	"github.com/romanpTAMU/astro-llm/internal/scheduler"
	"github.com/romanpTAMU/astro-llm/internal/selection"
	"github.com/romanpTAMU/astro-llm/pkg/logger"
)

// 2026-10-19 is ISO week 43, 2026-10-26 is week 44
var (
	week43 = time.Date(2026, 10, 19, 14, 0, 0, 0, time.UTC)
	week44 = time.Date(2026, 10, 26, 14, 0, 0, 0, time.UTC)
)

func TestIsRebalanceWeek(t *testing.T) {
	tests := []struct {
		name   string
		t      time.Time
		every  int
		parity int
		want   bool
	}{
		{"weekly always runs", week44, 1, 0, true},
		{"odd week, odd parity", week43, 2, 1, true},
		{"even week, odd parity", week44, 2, 1, false},
		{"even week, even parity", week44, 2, 0, true},
		{"every third week", week43, 3, 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRebalanceWeek(tt.t, tt.every, tt.parity))
		})
	}
}

type jobFixture struct {
	job  *RebalanceJob
	dir  string
	pool string
}

func newJobFixture(t *testing.T, now time.Time) *jobFixture {
	t.Helper()
	dir := t.TempDir()
	log := logger.Nop()

	runs := portfolio.NewRunStore(dir)
	ledger := audit.NewLedger(audit.NewFileStore(dir), log)
	orch := brain.NewOrchestrator(brain.Deps{
		Scorer: selection.NewService(
			s2_signals.NewBuilder(nil, log),
			selection.NewScreener(selection.DefaultScreenerConfig(), log),
			selection.NewRanker(selection.DefaultWeightConfig(), selection.DefaultUpsidePenalty(), log),
			log,
		),
		Constructor: portfolio.NewConstructor(portfolio.DefaultPortfolioConfig(), portfolio.DefaultConstraints(), log).
			WithClock(func() time.Time { return now }),
		Diff:     execution.NewDiffEngine(nil, log),
		Ledger:   ledger,
		Analyzer: audit.NewAnalyzer(ledger, log),
		Runs:     runs,
		Exports:  runs,
	}, log)

	poolPath := filepath.Join(dir, s0_data.CandidatesFileName)
	job := NewRebalanceJob(orch, s0_data.NewFileSource(poolPath), RebalanceConfig{
		Cron:        "0 0 14 * * MON",
		EveryNWeeks: 2,
		WeekParity:  1,
		Notional:    50000,
		MaxPoolAge:  7 * 24 * time.Hour,
		Location:    time.UTC,
	}, log)
	job.now = func() time.Time { return now }

	return &jobFixture{job: job, dir: dir, pool: poolPath}
}

func (f *jobFixture) writePool(t *testing.T, asOf time.Time, sectors ...string) {
	t.Helper()
	pool := s0_data.CandidatePool{AsOf: asOf}
	for i := 0; i < 25; i++ {
		pool.Candidates = append(pool.Candidates, contracts.CandidateData{
			Ticker:    fmt.Sprintf("T%02d", i),
			Sector:    sectors[i%len(sectors)],
			Price:     contracts.Float(100),
			AvgVolume: contracts.Float(1_000_000),
		})
	}
	data, err := json.Marshal(pool)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(f.pool, data, 0o644))
}

func TestRebalanceJob_Skips(t *testing.T) {
	tests := []struct {
		name     string
		now      time.Time
		withPool bool
		poolAge  time.Duration
		message  string
	}{
		{"off-cycle week", week44, true, time.Hour, "off-cycle"},
		{"no pool file", week43, false, 0, "no candidate pool"},
		{"stale pool", week43, true, 10 * 24 * time.Hour, "stale"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newJobFixture(t, tt.now)
			if tt.withPool {
				f.writePool(t, tt.now.Add(-tt.poolAge), "Tech", "Health", "Energy", "Financials", "Industrials")
			}

			err := f.job.Run(context.Background())
			require.Error(t, err)
			assert.True(t, errors.Is(err, scheduler.ErrSkipped))
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestRebalanceJob_Run(t *testing.T) {
	f := newJobFixture(t, week43)
	f.writePool(t, week43.Add(-time.Hour), "Tech", "Health", "Energy", "Financials", "Industrials")

	require.NoError(t, f.job.Run(context.Background()))

	runs := portfolio.NewRunStore(f.dir)
	runID, err := runs.LatestRunID(context.Background())
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(runs.RunDir(runID), execution.TradesFileName))
}

func TestRebalanceJob_InfeasibleIsNotRetried(t *testing.T) {
	f := newJobFixture(t, week43)
	f.writePool(t, week43, "Tech")

	err := f.job.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, scheduler.ErrSkipped))
	assert.Contains(t, err.Error(), "sector_cap")
}

func TestPerformanceReportJob(t *testing.T) {
	dir := t.TempDir()
	ledger := audit.NewLedger(audit.NewFileStore(dir), logger.Nop())
	job := NewPerformanceReportJob(audit.NewAnalyzer(ledger, logger.Nop()), "", logger.Nop())

	assert.Equal(t, "performance_report", job.Name())
	assert.Equal(t, "0 0 18 * * FRI", job.Schedule())
	assert.NoError(t, job.Run(context.Background()), "empty ledger is not an error")

	_, err := ledger.Record(context.Background(), contracts.PnLLedgerEntry{
		RunID: "run-1", RunDate: week43, PeriodPnL: 120, TargetNotional: 50000,
	})
	require.NoError(t, err)
	assert.NoError(t, job.Run(context.Background()))
}
