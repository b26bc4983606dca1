package commands

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/romanpTAMU/astro-llm/internal/contracts"
)

// scoreCmd represents the score command
var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "후보 풀 점수화 및 순위",
	Long: `후보 풀의 팩터 점수, 리스크 필터, 복합 점수를 계산해 순위를 출력합니다.
아무것도 저장하지 않습니다.

Example:
  go run ./cmd/quant score
  go run ./cmd/quant score --candidates pool.json --top 30`,
	RunE: runScore,
}

var (
	scoreCandidates string
	scoreTop        int
)

func init() {
	rootCmd.AddCommand(scoreCmd)

	scoreCmd.Flags().StringVar(&scoreCandidates, "candidates", "", "후보 풀 JSON (기본: $DATA_DIR/candidates.json)")
	scoreCmd.Flags().IntVar(&scoreTop, "top", 25, "출력할 상위 종목 수 (0 = 전체)")
}

func runScore(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	pool, err := a.loadPool(ctx, scoreCandidates)
	if err != nil {
		return err
	}

	result, err := a.orch.Score(ctx, pool.Candidates)
	if err != nil {
		return fmt.Errorf("score: %w", err)
	}

	PrintHeader("Candidate Ranking", [][2]string{
		{"Candidates", strconv.Itoa(len(pool.Candidates))},
		{"Strategy", a.strategy.Meta.StrategyID},
	})
	printRanking(result.Candidates, scoreTop)
	return nil
}

func printRanking(ranked []contracts.ScoredCandidate, top int) {
	widths := []int{4, 8, 22, 10, 10, 10}
	PrintTableHeader([]string{"#", "Ticker", "Sector", "Score", "Factors", "Sentiment"}, widths)

	disqualified := 0
	for i, c := range ranked {
		if c.Composite.IsDisqualified() {
			disqualified++
		}
		if top > 0 && i >= top {
			continue
		}
		PrintTableRow([]string{
			strconv.Itoa(c.Rank),
			c.Ticker,
			c.Sector,
			c.Composite.String(),
			fmt.Sprintf("%d/6", c.Factors.Present()),
			string(c.Sentiment.Overall),
		}, widths)
	}

	fmt.Println()
	PrintInfo(fmt.Sprintf("%d ranked, %d disqualified", len(ranked)-disqualified, disqualified))
}
