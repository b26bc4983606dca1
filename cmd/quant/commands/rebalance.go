package commands

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/romanpTAMU/astro-llm/internal/brain"
)

// rebalanceCmd represents the rebalance command
var rebalanceCmd = &cobra.Command{
	Use:   "rebalance",
	Short: "저장된 run 기준 리밸런싱 주문 생성",
	Long: `저장된 포트폴리오(기본: 최신)를 직전 run과 비교해 매도 → 매수 순서의
주문을 생성하고, trades.csv와 기간 손익을 기록합니다.

Example:
  go run ./cmd/quant rebalance
  go run ./cmd/quant rebalance --run-id 20261019_140000_ab12cd34 --dry-run`,
	RunE: runRebalance,
}

var (
	rebalanceRunID    string
	rebalanceNotional float64
	rebalanceDryRun   bool
)

func init() {
	rootCmd.AddCommand(rebalanceCmd)

	rebalanceCmd.Flags().StringVar(&rebalanceRunID, "run-id", "", "대상 run (기본: 최신)")
	rebalanceCmd.Flags().Float64Var(&rebalanceNotional, "notional", 0, "목표 투자금 (USD)")
	rebalanceCmd.Flags().BoolVar(&rebalanceDryRun, "dry-run", false, "주문만 계산 (파일/원장 기록 X)")
}

func runRebalance(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	notional := a.cfg.Notional
	if rebalanceNotional > 0 {
		notional = rebalanceNotional
	}

	result, err := a.orch.Rebalance(ctx, brain.RebalanceConfig{
		RunID:    rebalanceRunID,
		Notional: notional,
		DryRun:   rebalanceDryRun,
	})
	if err != nil {
		return err
	}

	printRebalance(result)
	return nil
}

func printRebalance(r *brain.RebalanceResult) {
	previous := r.PreviousRunID
	if previous == "" {
		previous = "(initial build)"
	}
	PrintHeader("Rebalance", [][2]string{
		{"Run ID", r.RunID},
		{"Previous", previous},
		{"Orders", strconv.Itoa(len(r.Diff.Orders))},
	})

	widths := []int{5, 8, 8, 12, 14, 10}
	PrintTableHeader([]string{"Side", "Ticker", "Qty", "Price", "Principal", "Source"}, widths)
	for _, o := range r.Diff.Orders {
		PrintTableRow([]string{
			string(o.Side),
			o.Ticker,
			strconv.FormatInt(o.Qty, 10),
			o.Price.StringFixed(2),
			o.Principal.StringFixed(2),
			string(o.PriceSource),
		}, widths)
	}
	fmt.Println()

	for _, t := range r.Diff.Skipped {
		PrintWarning("Skipped " + t)
	}
	for _, w := range r.Diff.Warnings {
		PrintWarning(w)
	}
	if pnl := r.Diff.PnL; pnl != nil {
		PrintKeyValue("Value before", formatMoney(pnl.PortfolioValueBeforeRebalance), 14)
		PrintKeyValue("Period P&L", formatMoney(pnl.PeriodPnL), 14)
	}
	if r.Ledger != nil {
		PrintKeyValue("Cumulative", formatMoney(r.Ledger.Cumulative()), 14)
	}
	if r.TradesFile != "" {
		PrintSuccess("Trades written to " + r.TradesFile)
	}
}
