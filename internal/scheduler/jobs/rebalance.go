package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/romanpTAMU/astro-llm/internal/brain"
	"github.com/romanpTAMU/astro-llm/internal/contracts"
	"github.com/romanpTAMU/astro-llm/internal/s0_data"
	"github.com/romanpTAMU/astro-llm/internal/scheduler"
	"github.com/romanpTAMU/astro-llm/pkg/logger"
)

// RebalanceConfig controls the biweekly rebalance job
type RebalanceConfig struct {
	Cron        string         // robfig/cron with seconds, e.g. "0 0 14 * * MON"
	EveryNWeeks int            // 2 = biweekly
	WeekParity  int            // run when ISO week % EveryNWeeks == WeekParity
	Notional    float64        // target notional (USD)
	MaxPoolAge  time.Duration  // older candidate pools are skipped; 0 = no limit
	Location    *time.Location // ISO week is evaluated here
}

// RebalanceJob runs the full pipeline on the latest candidate pool
type RebalanceJob struct {
	orch   *brain.Orchestrator
	source *s0_data.FileSource
	cfg    RebalanceConfig
	now    func() time.Time
	logger *logger.Logger
}

// NewRebalanceJob creates a new rebalance job
func NewRebalanceJob(orch *brain.Orchestrator, source *s0_data.FileSource, cfg RebalanceConfig, log *logger.Logger) *RebalanceJob {
	if cfg.EveryNWeeks < 1 {
		cfg.EveryNWeeks = 1
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	return &RebalanceJob{
		orch:   orch,
		source: source,
		cfg:    cfg,
		now:    time.Now,
		logger: log,
	}
}

// Name returns the job name
func (j *RebalanceJob) Name() string {
	return "rebalance"
}

// Schedule returns the cron schedule (weekly tick; parity decides)
func (j *RebalanceJob) Schedule() string {
	return j.cfg.Cron
}

// Run executes the rebalance when this is a rebalance week
func (j *RebalanceJob) Run(ctx context.Context) error {
	now := j.now().In(j.cfg.Location)

	if !IsRebalanceWeek(now, j.cfg.EveryNWeeks, j.cfg.WeekParity) {
		_, week := now.ISOWeek()
		return fmt.Errorf("ISO week %d is off-cycle: %w", week, scheduler.ErrSkipped)
	}

	pool, err := j.source.Load(ctx)
	if err != nil {
		if errors.Is(err, contracts.ErrNotFound) {
			return fmt.Errorf("no candidate pool at %s: %w", j.source.Path(), scheduler.ErrSkipped)
		}
		return err
	}
	if j.cfg.MaxPoolAge > 0 && !pool.AsOf.IsZero() && now.Sub(pool.AsOf) > j.cfg.MaxPoolAge {
		return fmt.Errorf("candidate pool as of %s is stale: %w", pool.AsOf.Format(time.RFC3339), scheduler.ErrSkipped)
	}

	result, err := j.orch.Run(ctx, brain.RunConfig{
		Date:       now,
		Candidates: pool.Candidates,
		Proposal:   pool.Proposal,
		Notional:   j.cfg.Notional,
	})
	if err != nil {
		// 제약 불만족은 재시도해도 동일
		if contracts.IsInfeasible(err) {
			j.logger.WithError(err).Error("Rebalance infeasible, run aborted")
			return fmt.Errorf("%v: %w", err, scheduler.ErrSkipped)
		}
		return err
	}

	fields := map[string]interface{}{
		"run_id": result.RunID,
		"stages": len(result.CompletedStages),
	}
	if result.Rebalance != nil {
		fields["orders"] = len(result.Rebalance.Diff.Orders)
		fields["trades_file"] = result.Rebalance.TradesFile
		if result.Rebalance.Ledger != nil {
			fields["cumulative_pnl"] = result.Rebalance.Ledger.Cumulative()
		}
	}
	j.logger.WithFields(fields).Info("Scheduled rebalance completed")

	return nil
}

// IsRebalanceWeek reports whether t falls on a rebalance week
func IsRebalanceWeek(t time.Time, everyNWeeks, parity int) bool {
	if everyNWeeks <= 1 {
		return true
	}
	_, week := t.ISOWeek()
	return week%everyNWeeks == parity
}
