package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/romanpTAMU/astro-llm/internal/api"
	"github.com/romanpTAMU/astro-llm/internal/api/handlers"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "API 서버 시작",
	Long: `REST API 서버를 시작합니다.

Endpoints:
  GET  /health                    - Health check
  POST /api/score                 - 후보 점수화
  POST /api/portfolio             - 포트폴리오 구성
  POST /api/portfolio/validate    - allocation 검증
  GET  /api/portfolio/latest      - 최신 포트폴리오
  GET  /api/portfolio/{runID}     - run 조회
  POST /api/pipeline/run          - 전체 파이프라인
  POST /api/trades                - 주문 diff (?format=csv)
  POST /api/rebalance             - 저장된 run 리밸런싱
  GET  /api/ledger                - P&L 원장
  GET  /api/ledger/performance    - 성과 요약

Example:
  go run ./cmd/quant api
  go run ./cmd/quant api --port 8080`,
	RunE: runAPIServer,
}

var (
	apiPort string
)

func init() {
	rootCmd.AddCommand(apiCmd)

	// Flags
	apiCmd.Flags().StringVar(&apiPort, "port", "", "API 서버 포트 (기본: $PORT)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	// Override port if flag is set
	if apiPort != "" {
		a.cfg.Port = apiPort
	}

	pipeline := handlers.NewPipelineHandler(a.orch, a.validator, a.cfg.Notional, a.log)
	trading := handlers.NewTradingHandler(a.orch, a.diff, a.cfg.Notional, a.log)
	server := api.New(a.cfg, a.log, api.NewRouter(pipeline, trading, a.log))

	fmt.Printf("\n✅ Server running on http://localhost:%s\n", a.cfg.Port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Run(ctx); err != nil {
		return err
	}

	a.log.Info("Server stopped")
	return nil
}
