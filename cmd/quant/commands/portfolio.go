package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/romanpTAMU/astro-llm/internal/contracts"
)

// portfolioCmd represents the portfolio command
var portfolioCmd = &cobra.Command{
	Use:   "portfolio",
	Short: "목표 포트폴리오 구성 및 조회",
	Long: `목표 포트폴리오를 구성하거나 저장된 포트폴리오를 조회/검증합니다.

Subcommands:
  build     - 후보 풀로 포트폴리오 구성 (--save 시 run 폴더 생성)
  show      - 저장된 포트폴리오 조회 (기본: 최신)
  validate  - allocation JSON 제약 검증

Example:
  go run ./cmd/quant portfolio build --save
  go run ./cmd/quant portfolio show 20261019_140000_ab12cd34
  go run ./cmd/quant portfolio validate allocation.json`,
}

var (
	portfolioBuildCmd = &cobra.Command{
		Use:   "build",
		Short: "후보 풀로 포트폴리오 구성",
		RunE:  runPortfolioBuild,
	}

	portfolioShowCmd = &cobra.Command{
		Use:   "show [run_id]",
		Short: "저장된 포트폴리오 조회",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runPortfolioShow,
	}

	portfolioValidateCmd = &cobra.Command{
		Use:   "validate [allocation.json]",
		Short: "allocation 제약 검증",
		Args:  cobra.ExactArgs(1),
		RunE:  runPortfolioValidate,
	}

	buildCandidates string
	buildSave       bool
)

func init() {
	rootCmd.AddCommand(portfolioCmd)
	portfolioCmd.AddCommand(portfolioBuildCmd)
	portfolioCmd.AddCommand(portfolioShowCmd)
	portfolioCmd.AddCommand(portfolioValidateCmd)

	portfolioBuildCmd.Flags().StringVar(&buildCandidates, "candidates", "", "후보 풀 JSON (기본: $DATA_DIR/candidates.json)")
	portfolioBuildCmd.Flags().BoolVar(&buildSave, "save", false, "run 폴더에 저장")
}

func runPortfolioBuild(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	pool, err := a.loadPool(ctx, buildCandidates)
	if err != nil {
		return err
	}

	ranked, err := a.orch.Score(ctx, pool.Candidates)
	if err != nil {
		return fmt.Errorf("score: %w", err)
	}

	alloc, err := a.orch.Build(ctx, ranked.Candidates, pool.Proposal, nil, buildSave)
	if err != nil {
		printInfeasible(err)
		return err
	}

	printAllocation(alloc)
	if buildSave {
		if err := a.writeDecisionSnapshot(alloc.RunID); err != nil {
			return fmt.Errorf("write decision snapshot: %w", err)
		}
		PrintSuccess(fmt.Sprintf("Saved run %s", alloc.RunID))
	}
	return nil
}

func runPortfolioShow(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	runID := ""
	if len(args) == 1 {
		runID = args[0]
	}

	alloc, prices, err := a.orch.LoadRun(ctx, runID)
	if err != nil {
		if errors.Is(err, contracts.ErrNotFound) {
			PrintWarning("No saved portfolio")
			return nil
		}
		return err
	}

	printAllocation(alloc)
	PrintInfo(fmt.Sprintf("%d run prices recorded", len(prices)))
	return nil
}

func runPortfolioValidate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read allocation: %w", err)
	}
	var alloc contracts.Allocation
	if err := json.Unmarshal(data, &alloc); err != nil {
		return fmt.Errorf("parse allocation: %w", err)
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	report, err := a.validator.Validate(&alloc)
	for _, w := range report.Warnings {
		PrintWarning(w)
	}

	var verr *contracts.ValidationError
	if errors.As(err, &verr) {
		PrintError(fmt.Sprintf("%d violation(s)", len(verr.Violations)))
		for _, v := range verr.Violations {
			fmt.Printf("   • [%s] %s\n", v.Constraint, v.Detail)
		}
		return err
	}
	if err != nil {
		return err
	}

	PrintSuccess(fmt.Sprintf("%s is valid (%d holdings)", args[0], len(alloc.Holdings)))
	return nil
}

func printAllocation(alloc *contracts.Allocation) {
	PrintHeader("Target Portfolio", [][2]string{
		{"Run ID", alloc.RunID},
		{"Built", alloc.ConstructedAt.Format("2006-01-02 15:04 MST")},
		{"Horizon", alloc.HorizonEnd.Format("2006-01-02")},
		{"Holdings", strconv.Itoa(len(alloc.Holdings))},
	})

	widths := []int{8, 8, 22, 10}
	PrintTableHeader([]string{"Ticker", "Weight", "Sector", "Score"}, widths)
	for _, h := range alloc.Holdings {
		PrintTableRow([]string{h.Ticker, strconv.Itoa(h.Percent()) + "%", h.Sector, h.Composite.String()}, widths)
	}

	fmt.Println()
	sectors := alloc.SectorAllocation()
	names := make([]string, 0, len(sectors))
	for s := range sectors {
		names = append(names, s)
	}
	sort.Strings(names)
	for _, s := range names {
		PrintKeyValue(s, formatPct(sectors[s]), 22)
	}

	if alloc.ReliesOnSectorTolerance {
		PrintWarning("Sector cap satisfied only within tolerance")
	}
	for _, w := range alloc.Warnings {
		PrintWarning(w)
	}
}

func printInfeasible(err error) {
	var ie *contracts.InfeasibilityError
	if errors.As(err, &ie) {
		PrintError(fmt.Sprintf("Infeasible at %s (%s): %s", ie.Stage, ie.Constraint, ie.Detail))
	}
}
