package strategyconfig

import (
	"time"

	"github.com/romanpTAMU/astro-llm/internal/portfolio"
	"github.com/romanpTAMU/astro-llm/internal/selection"
)

// Config는 종목 선정 전략의 전체 설정
type Config struct {
	Meta      Meta      `yaml:"meta" json:"meta"`
	Screening Screening `yaml:"screening" json:"screening"`
	Ranking   Ranking   `yaml:"ranking" json:"ranking"`
	Portfolio Portfolio `yaml:"portfolio" json:"portfolio"`
	Execution Execution `yaml:"execution" json:"execution"`
	Schedule  Schedule  `yaml:"schedule" json:"schedule"`
}

// Meta 메타 정보
type Meta struct {
	StrategyID string `yaml:"strategy_id" json:"strategy_id"`
	Version    string `yaml:"version" json:"version"`
	Timezone   string `yaml:"timezone" json:"timezone"`
}

// Screening S3: 필수 리스크 필터
type Screening struct {
	MinPrice           float64 `yaml:"min_price" json:"min_price"`
	MinAvgDollarVolume float64 `yaml:"min_avg_dollar_volume" json:"min_avg_dollar_volume"`
}

// Ranking S3: 복합 점수 가중치
type Ranking struct {
	Weights       RankingWeights `yaml:"weights" json:"weights"`
	UpsidePenalty UpsidePenalty  `yaml:"upside_penalty" json:"upside_penalty"`
}

type RankingWeights struct {
	Value     float64 `yaml:"value" json:"value"`
	Quality   float64 `yaml:"quality" json:"quality"`
	Growth    float64 `yaml:"growth" json:"growth"`
	Stability float64 `yaml:"stability" json:"stability"`
	Revisions float64 `yaml:"revisions" json:"revisions"`
	Momentum  float64 `yaml:"momentum" json:"momentum"`
	Sentiment float64 `yaml:"sentiment" json:"sentiment"`
}

// Sum returns the total of all factor weights
func (w RankingWeights) Sum() float64 {
	return w.Value + w.Quality + w.Growth + w.Stability + w.Revisions + w.Momentum + w.Sentiment
}

type UpsidePenalty struct {
	Multiplier float64 `yaml:"multiplier" json:"multiplier"`
	Floor      float64 `yaml:"floor" json:"floor"`
}

// Portfolio S5: 포트폴리오 제약
type Portfolio struct {
	TargetCount            int      `yaml:"target_count" json:"target_count"`
	MinWeight              float64  `yaml:"min_weight" json:"min_weight"`
	MaxWeight              float64  `yaml:"max_weight" json:"max_weight"`
	SectorCap              float64  `yaml:"sector_cap" json:"sector_cap"`
	SectorTolerance        float64  `yaml:"sector_tolerance" json:"sector_tolerance"`
	MaxRebalanceIterations int      `yaml:"max_rebalance_iterations" json:"max_rebalance_iterations"`
	WeightingMode          string   `yaml:"weighting_mode" json:"weighting_mode"` // equal, score_based
	HorizonDays            int      `yaml:"horizon_days" json:"horizon_days"`
	Blacklist              []string `yaml:"blacklist" json:"blacklist"`
}

// Execution S6: 리밸런싱 주문
type Execution struct {
	Notional float64 `yaml:"notional" json:"notional"` // 목표 투자금 (USD)
}

// Schedule 격주 리밸런싱 일정
type Schedule struct {
	Cron        string `yaml:"cron" json:"cron"`                   // robfig/cron with seconds
	EveryNWeeks int    `yaml:"every_n_weeks" json:"every_n_weeks"` // ISO 주차 기준
	WeekParity  int    `yaml:"week_parity" json:"week_parity"`     // week % n == parity 일 때 실행
}

// DecisionSnapshot 의사결정 스냅샷 (재현성용)
type DecisionSnapshot struct {
	ConfigHash string    `json:"config_hash"`
	ConfigYAML string    `json:"config_yaml"`
	StrategyID string    `json:"strategy_id"`
	RunID      string    `json:"run_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// Default returns the built-in strategy used when no file is configured
func Default() *Config {
	return &Config{
		Meta: Meta{
			StrategyID: "us_equity_biweekly",
			Version:    "1",
			Timezone:   "America/New_York",
		},
		Screening: Screening{
			MinPrice:           3.0,
			MinAvgDollarVolume: 5_000_000,
		},
		Ranking: Ranking{
			Weights: RankingWeights{
				Value: 0.20, Quality: 0.25, Growth: 0.20, Stability: 0.10,
				Revisions: 0.10, Momentum: 0.05, Sentiment: 0.15,
			},
			UpsidePenalty: UpsidePenalty{Multiplier: 2.0, Floor: -0.20},
		},
		Portfolio: Portfolio{
			TargetCount:            20,
			MinWeight:              0.02,
			MaxWeight:              0.10,
			SectorCap:              0.25,
			SectorTolerance:        0.02,
			MaxRebalanceIterations: 100,
			WeightingMode:          portfolio.WeightingEqual,
			HorizonDays:            14,
			Blacklist:              []string{},
		},
		Execution: Execution{Notional: 50_000},
		Schedule: Schedule{
			Cron:        "0 0 14 * * MON",
			EveryNWeeks: 2,
			WeekParity:  0,
		},
	}
}

// ScreenerConfig converts screening settings
func (c *Config) ScreenerConfig() selection.ScreenerConfig {
	return selection.ScreenerConfig{
		MinPrice:           c.Screening.MinPrice,
		MinAvgDollarVolume: c.Screening.MinAvgDollarVolume,
	}
}

// WeightConfig converts ranking weights
func (c *Config) WeightConfig() selection.WeightConfig {
	w := c.Ranking.Weights
	return selection.WeightConfig{
		Value:     w.Value,
		Quality:   w.Quality,
		Growth:    w.Growth,
		Stability: w.Stability,
		Revisions: w.Revisions,
		Momentum:  w.Momentum,
		Sentiment: w.Sentiment,
	}
}

// Penalty converts the upside penalty
func (c *Config) Penalty() selection.UpsidePenalty {
	return selection.UpsidePenalty{
		Multiplier: c.Ranking.UpsidePenalty.Multiplier,
		Floor:      c.Ranking.UpsidePenalty.Floor,
	}
}

// Constraints converts portfolio constraints
func (c *Config) Constraints() portfolio.Constraints {
	p := c.Portfolio
	blacklist := make([]string, len(p.Blacklist))
	copy(blacklist, p.Blacklist)
	return portfolio.Constraints{
		TargetCount:     p.TargetCount,
		MinWeight:       p.MinWeight,
		MaxWeight:       p.MaxWeight,
		SectorCap:       p.SectorCap,
		SectorTolerance: p.SectorTolerance,
		MaxIterations:   p.MaxRebalanceIterations,
		BlackList:       blacklist,
	}
}

// PortfolioConfig converts construction settings; hash is recorded on every allocation
func (c *Config) PortfolioConfig(hash string) portfolio.PortfolioConfig {
	return portfolio.PortfolioConfig{
		WeightingMode: c.Portfolio.WeightingMode,
		HorizonDays:   c.Portfolio.HorizonDays,
		ConfigHash:    hash,
	}
}
