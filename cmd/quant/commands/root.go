package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	configFile string
	env        string
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "quant",
	Short: "Astro Quant - 미국 주식 격주 리밸런싱 엔진",
	Long: `Astro Quant Unified CLI

후보 풀 점수화 → 포트폴리오 구성 → 리밸런싱 주문 → 손익 원장.

Usage:
  go run ./cmd/quant [command]

Examples:
  go run ./cmd/quant score --candidates data/candidates.json
  go run ./cmd/quant run --dry-run
  go run ./cmd/quant rebalance
  go run ./cmd/quant ledger performance
  go run ./cmd/quant api
  go run ./cmd/quant scheduler start`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "strategy YAML (default is $STRATEGY_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&env, "env", "", "environment (development|staging|production)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
