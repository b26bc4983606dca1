package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/romanpTAMU/astro-llm/internal/contracts"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "시스템 상태 조회",
	Long: `저장소 연결 상태와 최신 run, 원장 요약을 출력합니다.

표시 정보:
- Database: 연결/커넥션 풀 (DATABASE_URL 설정 시)
- Redis: 시세 캐시 사용 여부
- Latest run: 최신 포트폴리오
- Ledger: 기간 수, 누적 손익

Example:
  go run ./cmd/quant status`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	PrintHeader("Astro Quant Status", [][2]string{
		{"Env", a.cfg.Env},
		{"Data dir", a.cfg.DataDir},
		{"Strategy", a.strategy.Meta.StrategyID + " v" + a.strategy.Meta.Version},
	})

	if a.db == nil {
		PrintKeyValue("Database", "disabled (file stores)", 12)
	} else {
		health, err := a.db.HealthCheck(ctx)
		if err != nil {
			PrintKeyValue("Database", "❌ "+err.Error(), 12)
		} else {
			PrintKeyValue("Database", fmt.Sprintf("✅ %s (%d/%d conns)",
				health.ResponseTime.Round(time.Millisecond), health.Stats.TotalConns, health.Stats.MaxConns), 12)
		}
	}

	if a.redis.Enabled() {
		PrintKeyValue("Redis", "enabled", 12)
	} else {
		PrintKeyValue("Redis", "disabled", 12)
	}

	alloc, _, err := a.orch.LoadRun(ctx, "")
	switch {
	case errors.Is(err, contracts.ErrNotFound):
		PrintKeyValue("Latest run", "none", 12)
	case err != nil:
		return err
	default:
		PrintKeyValue("Latest run", fmt.Sprintf("%s (%d holdings, horizon %s)",
			alloc.RunID, len(alloc.Holdings), alloc.HorizonEnd.Format("2006-01-02")), 12)
	}

	ledger, err := a.orch.Ledger(ctx)
	if err != nil {
		return err
	}
	PrintKeyValue("Ledger", fmt.Sprintf("%d periods, cumulative %s", len(ledger.Entries), formatMoney(ledger.Cumulative())), 12)

	return nil
}
