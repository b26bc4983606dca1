package jobs

import (
	"context"
	"errors"

	"github.com/romanpTAMU/astro-llm/internal/audit"
	"github.com/romanpTAMU/astro-llm/internal/contracts"
	"github.com/romanpTAMU/astro-llm/pkg/logger"
)

// PerformanceReportJob logs the ledger performance summary
type PerformanceReportJob struct {
	analyzer *audit.Analyzer
	schedule string
	logger   *logger.Logger
}

// NewPerformanceReportJob creates a new performance report job
func NewPerformanceReportJob(analyzer *audit.Analyzer, schedule string, log *logger.Logger) *PerformanceReportJob {
	if schedule == "" {
		schedule = "0 0 18 * * FRI"
	}
	return &PerformanceReportJob{
		analyzer: analyzer,
		schedule: schedule,
		logger:   log,
	}
}

// Name returns the job name
func (j *PerformanceReportJob) Name() string {
	return "performance_report"
}

// Schedule returns the cron schedule (Fridays 18:00 by default)
func (j *PerformanceReportJob) Schedule() string {
	return j.schedule
}

// Run executes the performance report
func (j *PerformanceReportJob) Run(ctx context.Context) error {
	report, err := j.analyzer.Analyze(ctx)
	if err != nil {
		if errors.Is(err, contracts.ErrNotFound) {
			j.logger.Debug("No ledger entries, performance report skipped")
			return nil
		}
		return err
	}

	j.logger.WithFields(map[string]interface{}{
		"periods":        report.Periods,
		"cumulative_pnl": report.CumulativePnL,
		"total_return":   report.TotalReturn,
		"sharpe":         report.Sharpe,
		"max_drawdown":   report.MaxDrawdown,
		"win_rate":       report.WinRate,
	}).Info("Performance report")

	return nil
}
