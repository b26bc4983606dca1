package commands

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/romanpTAMU/astro-llm/internal/audit"
	"github.com/romanpTAMU/astro-llm/internal/brain"
	"github.com/romanpTAMU/astro-llm/internal/contracts"
	"github.com/romanpTAMU/astro-llm/internal/execution"
	"github.com/romanpTAMU/astro-llm/internal/external/quote"
	"github.com/romanpTAMU/astro-llm/internal/portfolio"
	"github.com/romanpTAMU/astro-llm/internal/s0_data"
	"github.com/romanpTAMU/astro-llm/internal/s0_data/collector"
	"github.com/romanpTAMU/astro-llm/internal/s0_data/quality"
	"github.com/romanpTAMU/astro-llm/internal/s2_signals"
	"github.com/romanpTAMU/astro-llm/internal/selection"
	"github.com/romanpTAMU/astro-llm/internal/strategyconfig"
	"github.com/romanpTAMU/astro-llm/pkg/config"
	"github.com/romanpTAMU/astro-llm/pkg/database"
	"github.com/romanpTAMU/astro-llm/pkg/httputil"
	"github.com/romanpTAMU/astro-llm/pkg/logger"
	"github.com/romanpTAMU/astro-llm/pkg/redis"
)

// app holds the wired components shared by every command
type app struct {
	cfg          *config.Config
	strategy     *strategyconfig.Config
	strategyYAML []byte
	configHash   string
	log          *logger.Logger

	db    *database.DB  // nil when DATABASE_URL is empty
	redis *redis.Client // disabled when REDIS_ENABLED=false

	orch      *brain.Orchestrator
	diff      *execution.DiffEngine
	validator *portfolio.Validator
	analyzer  *audit.Analyzer
	runs      *portfolio.RunStore
	pool      *s0_data.FileSource
}

// newApp loads configuration and wires the pipeline
// ⭐ SSOT: 컴포넌트 조립은 여기서만
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if env != "" {
		cfg.Env = env
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	if configFile != "" {
		cfg.StrategyConfig = configFile
	}

	log := logger.New(cfg)

	strategy, yamlData, err := strategyconfig.LoadOrDefault(cfg.StrategyConfig)
	if err != nil {
		return nil, fmt.Errorf("load strategy: %w", err)
	}
	for _, w := range strategyconfig.Warn(strategy) {
		log.WithFields(map[string]interface{}{
			"code": w.Code,
		}).Warn(w.Message)
	}
	hash, err := strategyconfig.Hash(strategy)
	if err != nil {
		return nil, fmt.Errorf("hash strategy: %w", err)
	}
	if cfg.Notional == 0 {
		cfg.Notional = strategy.Execution.Notional
	}

	a := &app{
		cfg:          cfg,
		strategy:     strategy,
		strategyYAML: yamlData,
		configHash:   hash,
		log:          log,
		runs:         portfolio.NewRunStore(cfg.DataDir),
		pool:         s0_data.NewFileSource(filepath.Join(cfg.DataDir, s0_data.CandidatesFileName)),
	}

	// Database (optional)
	db, err := database.New(cfg)
	switch {
	case errors.Is(err, database.ErrDisabled):
		log.Debug("DATABASE_URL not set, using file stores")
	case err != nil:
		return nil, fmt.Errorf("connect to database: %w", err)
	default:
		a.db = db
		if err := db.EnsureSchema(ctx); err != nil {
			a.Close()
			return nil, err
		}
		log.Info("Connected to database")
	}

	// Redis (optional quote cache)
	redisClient, err := redis.New(cfg)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	a.redis = redisClient

	a.wire()
	return a, nil
}

func (a *app) wire() {
	log := a.log

	httpClient := httputil.New(a.cfg, log)
	quoteClient := quote.NewClient(httpClient, redis.NewCache(a.redis, "quant"), a.cfg.Quote, log).
		WithSharedLimiter(redis.NewRateLimiter(a.redis, "quant"))

	var prices contracts.PriceSource
	if a.cfg.Quote.APIKey != "" {
		prices = quoteClient
	} else {
		log.Warn("QUOTE_API_KEY not set, price fetch disabled")
	}

	scorer := selection.NewService(
		s2_signals.NewBuilder(s2_signals.NewHeuristicSynthesizer(log), log),
		selection.NewScreener(a.strategy.ScreenerConfig(), log),
		selection.NewRanker(a.strategy.WeightConfig(), a.strategy.Penalty(), log),
		log,
	)
	constraints := a.strategy.Constraints()
	constructor := portfolio.NewConstructor(a.strategy.PortfolioConfig(a.configHash), constraints, log)
	a.diff = execution.NewDiffEngine(prices, log)
	a.validator = portfolio.NewValidator(constraints)

	deps := brain.Deps{
		Gate:        quality.NewQualityGate(quality.DefaultConfig(), log),
		Scorer:      scorer,
		Constructor: constructor,
		Diff:        a.diff,
		Runs:        a.runs,
		Exports:     a.runs,
	}
	if prices != nil {
		deps.Collector = collector.NewCollector(prices, log)
	}

	var ledgerStore contracts.LedgerStore = audit.NewFileStore(a.cfg.DataDir)
	if a.db != nil {
		ledgerStore = audit.NewRepository(a.db.Pool)
		deps.Runs = portfolio.NewRepository(a.db.Pool)
		deps.Orders = execution.NewRepository(a.db.Pool)
		deps.Scores = selection.NewRepository(a.db.Pool)
		deps.Quality = quality.NewRepository(a.db.Pool)
	}
	deps.Ledger = audit.NewLedger(ledgerStore, log)
	deps.Analyzer = audit.NewAnalyzer(deps.Ledger, log)
	a.analyzer = deps.Analyzer

	a.orch = brain.NewOrchestrator(deps, log)
}

// writeDecisionSnapshot stores the strategy that produced a run next to it
func (a *app) writeDecisionSnapshot(runID string) error {
	snapshot, err := strategyconfig.NewDecisionSnapshot(a.strategy, a.strategyYAML, runID)
	if err != nil {
		return err
	}
	return strategyconfig.WriteSnapshot(a.runs.RunDir(runID), snapshot)
}

// loadPool reads the candidate pool from path, or DATA_DIR/candidates.json
func (a *app) loadPool(ctx context.Context, path string) (*s0_data.CandidatePool, error) {
	source := a.pool
	if path != "" {
		source = s0_data.NewFileSource(path)
	}
	pool, err := source.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load candidates %s: %w", source.Path(), err)
	}
	return pool, nil
}

// location returns the strategy timezone
func (a *app) location() *time.Location {
	loc, err := time.LoadLocation(a.strategy.Meta.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Close releases connections
func (a *app) Close() {
	if a.db != nil {
		a.db.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
}
