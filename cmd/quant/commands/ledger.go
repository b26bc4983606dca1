package commands

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/romanpTAMU/astro-llm/internal/contracts"
)

// ledgerCmd represents the ledger command
var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "P&L 원장 조회",
	Long: `기간 손익 원장과 누적 손익을 조회합니다.
누적 손익은 조회할 때마다 원장 항목에서 다시 계산됩니다.

Subcommands:
  show         - 원장 항목 + 누적 손익
  performance  - 수익률/샤프/MDD 요약

Example:
  go run ./cmd/quant ledger show
  go run ./cmd/quant ledger performance`,
}

var (
	ledgerShowCmd = &cobra.Command{
		Use:   "show",
		Short: "원장 항목 조회",
		RunE:  runLedgerShow,
	}

	ledgerPerformanceCmd = &cobra.Command{
		Use:   "performance",
		Short: "성과 요약",
		RunE:  runLedgerPerformance,
	}
)

func init() {
	rootCmd.AddCommand(ledgerCmd)
	ledgerCmd.AddCommand(ledgerShowCmd)
	ledgerCmd.AddCommand(ledgerPerformanceCmd)
}

func runLedgerShow(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	ledger, err := a.orch.Ledger(ctx)
	if err != nil {
		return err
	}

	PrintHeader("P&L Ledger", [][2]string{
		{"Entries", strconv.Itoa(len(ledger.Entries))},
	})

	widths := []int{28, 12, 14, 16, 14}
	PrintTableHeader([]string{"Run", "Date", "Period P&L", "Value Before", "Notional"}, widths)
	for _, e := range ledger.Entries {
		PrintTableRow([]string{
			e.RunID,
			e.RunDate.Format("2006-01-02"),
			formatMoney(e.PeriodPnL),
			formatMoney(e.PortfolioValueBeforeRebalance),
			formatMoney(e.TargetNotional),
		}, widths)
	}
	fmt.Println()
	PrintKeyValue("Cumulative P&L", formatMoney(ledger.Cumulative()), 16)
	return nil
}

func runLedgerPerformance(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	report, err := a.orch.Performance(ctx)
	if err != nil {
		if errors.Is(err, contracts.ErrNotFound) {
			PrintWarning("Ledger is empty")
			return nil
		}
		return err
	}

	PrintHeader("Performance", [][2]string{
		{"Periods", strconv.Itoa(report.Periods)},
		{"From", report.StartDate.Format("2006-01-02")},
		{"To", report.EndDate.Format("2006-01-02")},
	})
	PrintKeyValue("Cumulative P&L", formatMoney(report.CumulativePnL), 16)
	PrintKeyValue("Total Return", formatPct(report.TotalReturn), 16)
	PrintKeyValue("Annual Return", formatPct(report.AnnualReturn), 16)
	PrintKeyValue("Volatility", formatPct(report.Volatility), 16)
	PrintKeyValue("Sharpe", fmt.Sprintf("%.2f", report.Sharpe), 16)
	PrintKeyValue("Max Drawdown", formatPct(report.MaxDrawdown), 16)
	PrintKeyValue("Win Rate", formatPct(report.WinRate), 16)
	return nil
}
