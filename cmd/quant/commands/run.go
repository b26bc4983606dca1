package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/romanpTAMU/astro-llm/internal/brain"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "전체 파이프라인 실행",
	Long: `후보 풀로 전체 파이프라인을 순차 실행합니다.

S0 → S3 → S5 → S6 → S7

각 단계:
- S0: 가격 보완 + Data Quality Gate
- S3: Screening + Composite Ranking
- S5: Portfolio Construction (정수 % 가중치, 섹터 상한)
- S6: Rebalance (trades.csv, 주문 저장)
- S7: P&L Ledger

Flags:
  --candidates 후보 풀 JSON (기본: $DATA_DIR/candidates.json)
  --date       실행 날짜 (기본: 지금)
  --notional   목표 투자금 USD (기본: 설정값)
  --dry-run    구성만 수행 (저장/주문 파일 X)

Example:
  go run ./cmd/quant run
  go run ./cmd/quant run --dry-run
  go run ./cmd/quant run --notional 100000`,
	RunE: runPipeline,
}

var (
	runCandidates string
	runDate       string
	runNotional   float64
	runDryRun     bool
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runCandidates, "candidates", "", "후보 풀 JSON")
	runCmd.Flags().StringVar(&runDate, "date", "", "실행 날짜 (YYYY-MM-DD, 기본: 지금)")
	runCmd.Flags().Float64Var(&runNotional, "notional", 0, "목표 투자금 (USD)")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "구성만 수행 (저장/주문 X)")
}

func runPipeline(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	date := time.Now()
	if runDate != "" {
		date, err = time.ParseInLocation("2006-01-02", runDate, a.location())
		if err != nil {
			return fmt.Errorf("invalid date format: %w", err)
		}
	}
	notional := a.cfg.Notional
	if runNotional > 0 {
		notional = runNotional
	}

	pool, err := a.loadPool(ctx, runCandidates)
	if err != nil {
		return err
	}

	PrintHeader("Pipeline Run", [][2]string{
		{"Date", date.Format("2006-01-02")},
		{"Candidates", fmt.Sprintf("%d", len(pool.Candidates))},
		{"Notional", formatMoney(notional)},
		{"Dry Run", fmt.Sprintf("%v", runDryRun)},
	})

	result, err := a.orch.Run(ctx, brain.RunConfig{
		Date:       date,
		Candidates: pool.Candidates,
		Proposal:   pool.Proposal,
		Notional:   notional,
		DryRun:     runDryRun,
	})
	if err != nil {
		printInfeasible(err)
		return err
	}

	if result.Quality != nil {
		PrintInfo(fmt.Sprintf("Data quality %.2f (%d candidates)", result.Quality.QualityScore, result.Quality.Total))
		for _, w := range result.Quality.Warnings {
			PrintWarning(w)
		}
	}
	if result.Allocation != nil {
		printAllocation(result.Allocation)
	}
	if result.Rebalance != nil {
		printRebalance(result.Rebalance)
	}
	if !runDryRun && result.RunID != "" {
		if err := a.writeDecisionSnapshot(result.RunID); err != nil {
			return fmt.Errorf("write decision snapshot: %w", err)
		}
	}

	fmt.Println()
	PrintSuccess(fmt.Sprintf("Completed %s in %s", strings.Join(result.CompletedStages, " → "), result.Duration.Round(time.Millisecond)))
	return nil
}
