package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/romanpTAMU/astro-llm/internal/strategyconfig"
	"github.com/romanpTAMU/astro-llm/pkg/config"
)

// strategyCmd represents the strategy command
var strategyCmd = &cobra.Command{
	Use:   "strategy",
	Short: "전략 설정 검증/조회",
	Long: `strategy YAML을 검증하고 해시와 경고를 출력합니다.

Example:
  go run ./cmd/quant strategy validate
  go run ./cmd/quant strategy validate --config config/strategy.yaml`,
}

var strategyValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "전략 설정 검증",
	RunE:  runStrategyValidate,
}

func init() {
	rootCmd.AddCommand(strategyCmd)
	strategyCmd.AddCommand(strategyValidateCmd)
}

func runStrategyValidate(cmd *cobra.Command, args []string) error {
	path := configFile
	if path == "" {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		path = cfg.StrategyConfig
	}

	strategy, _, err := strategyconfig.Load(path)
	if err != nil {
		PrintError(fmt.Sprintf("%s is invalid", path))
		var multi interface{ Unwrap() []error }
		if errors.As(err, &multi) {
			for _, e := range multi.Unwrap() {
				fmt.Printf("   • %v\n", e)
			}
		} else {
			fmt.Printf("   • %v\n", err)
		}
		return err
	}

	hash, err := strategyconfig.Hash(strategy)
	if err != nil {
		return err
	}

	PrintHeader("Strategy", [][2]string{
		{"File", path},
		{"ID", strategy.Meta.StrategyID},
		{"Version", strategy.Meta.Version},
		{"Hash", hash[:16]},
	})
	PrintKeyValue("Target count", fmt.Sprintf("%d", strategy.Portfolio.TargetCount), 14)
	PrintKeyValue("Weights", fmt.Sprintf("%s ~ %s", formatPct(strategy.Portfolio.MinWeight), formatPct(strategy.Portfolio.MaxWeight)), 14)
	PrintKeyValue("Sector cap", formatPct(strategy.Portfolio.SectorCap), 14)
	PrintKeyValue("Notional", formatMoney(strategy.Execution.Notional), 14)
	PrintKeyValue("Schedule", strategy.Schedule.Cron, 14)

	for _, w := range strategyconfig.Warn(strategy) {
		PrintWarning(fmt.Sprintf("[%s] %s", w.Code, w.Message))
	}
	fmt.Println()
	PrintSuccess("Strategy is valid")
	return nil
}
