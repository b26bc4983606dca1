package strategyconfig

import (
	"errors"
	"fmt"
	"math"
	"time"
	_ "time/tzdata" // meta.timezone 검증용

	"github.com/robfig/cron/v3"

	"github.com/romanpTAMU/astro-llm/internal/portfolio"
)

// ValidationError 검증 실패 (프로그램 중단)
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Warning 권장 위반 (경고만)
type Warning struct {
	Code    string
	Message string
}

// Validate checks all required constraints and joins every failure
// 실패 시 error 반환 (프로그램 중단)
func Validate(cfg *Config) error {
	var errs []error
	fail := func(field, format string, args ...interface{}) {
		errs = append(errs, ValidationError{field, fmt.Sprintf(format, args...)})
	}

	// === Meta ===
	if cfg.Meta.StrategyID == "" {
		fail("meta.strategy_id", "required")
	}
	if cfg.Meta.Timezone != "" {
		if _, err := time.LoadLocation(cfg.Meta.Timezone); err != nil {
			fail("meta.timezone", "unknown timezone %q", cfg.Meta.Timezone)
		}
	}

	// === Screening ===
	if cfg.Screening.MinPrice < 0 {
		fail("screening.min_price", "must be >= 0")
	}
	if cfg.Screening.MinAvgDollarVolume < 0 {
		fail("screening.min_avg_dollar_volume", "must be >= 0")
	}

	// === Ranking ===
	w := cfg.Ranking.Weights
	for name, v := range map[string]float64{
		"value": w.Value, "quality": w.Quality, "growth": w.Growth, "stability": w.Stability,
		"revisions": w.Revisions, "momentum": w.Momentum, "sentiment": w.Sentiment,
	} {
		if v < 0 {
			fail("ranking.weights."+name, "must be >= 0")
		}
	}
	// 가중치는 존재하는 항목끼리 정규화됨: 합계 1.0 불필요
	if w.Sum() <= 0 {
		fail("ranking.weights", "at least one weight must be > 0")
	}
	if cfg.Ranking.UpsidePenalty.Multiplier < 0 {
		fail("ranking.upside_penalty.multiplier", "must be >= 0")
	}
	if cfg.Ranking.UpsidePenalty.Floor > 0 {
		fail("ranking.upside_penalty.floor", "must be <= 0")
	}

	// === Portfolio ===
	p := cfg.Portfolio
	if p.TargetCount <= 0 {
		fail("portfolio.target_count", "must be > 0")
	}
	if err := validatePctRange(p.MinWeight, "portfolio.min_weight"); err != nil {
		errs = append(errs, err)
	}
	if err := validatePctRange(p.MaxWeight, "portfolio.max_weight"); err != nil {
		errs = append(errs, err)
	}
	if err := validatePctRange(p.SectorCap, "portfolio.sector_cap"); err != nil {
		errs = append(errs, err)
	}
	if p.MinWeight > p.MaxWeight {
		fail("portfolio", "min_weight must be <= max_weight")
	}
	if p.SectorCap < p.MaxWeight {
		fail("portfolio", "sector_cap must be >= max_weight")
	}
	if p.SectorTolerance < 0 || p.SectorTolerance > 0.1 {
		fail("portfolio.sector_tolerance", "must be in [0, 0.1]")
	}
	if p.MaxRebalanceIterations <= 0 {
		fail("portfolio.max_rebalance_iterations", "must be > 0")
	}
	if p.WeightingMode != portfolio.WeightingEqual && p.WeightingMode != portfolio.WeightingScoreBased {
		fail("portfolio.weighting_mode", "must be %s or %s", portfolio.WeightingEqual, portfolio.WeightingScoreBased)
	}
	if p.HorizonDays <= 0 {
		fail("portfolio.horizon_days", "must be > 0")
	}

	// 정수 퍼센트로 100을 만들 수 있는지 확인
	if p.TargetCount > 0 {
		minPct := int(math.Round(p.MinWeight * 100))
		maxPct := int(math.Round(p.MaxWeight * 100))
		if p.TargetCount*minPct > 100 || p.TargetCount*maxPct < 100 {
			fail("portfolio", "target_count=%d cannot sum to 100%% within [%d%%, %d%%]", p.TargetCount, minPct, maxPct)
		}
	}

	// === Execution ===
	if cfg.Execution.Notional <= 0 {
		fail("execution.notional", "must be > 0")
	}

	// === Schedule ===
	if _, err := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow).Parse(cfg.Schedule.Cron); err != nil {
		fail("schedule.cron", "invalid: %v", err)
	}
	if cfg.Schedule.EveryNWeeks < 1 {
		fail("schedule.every_n_weeks", "must be >= 1")
	} else if cfg.Schedule.WeekParity < 0 || cfg.Schedule.WeekParity >= cfg.Schedule.EveryNWeeks {
		fail("schedule.week_parity", "must be in [0, every_n_weeks)")
	}

	return errors.Join(errs...)
}

// Warn checks recommended constraints (non-fatal)
func Warn(cfg *Config) []Warning {
	var warnings []Warning

	// 유동성 기준 낮음
	if cfg.Screening.MinAvgDollarVolume < 1_000_000 {
		warnings = append(warnings, Warning{
			Code:    "LOW_LIQUIDITY_FLOOR",
			Message: "min_avg_dollar_volume < $1M: fills may move the price",
		})
	}

	// 페니주 허용
	if cfg.Screening.MinPrice < 1 {
		warnings = append(warnings, Warning{
			Code:    "PENNY_STOCKS",
			Message: "min_price < $1 admits penny stocks",
		})
	}

	// 섹터 허용 오차가 큼
	if cfg.Portfolio.SectorTolerance > 0.05 {
		warnings = append(warnings, Warning{
			Code:    "WIDE_SECTOR_TOLERANCE",
			Message: "sector_tolerance > 5%p weakens the sector cap",
		})
	}

	// 감성 가중치 과다
	if cfg.Ranking.Weights.Sentiment > 0.3 {
		warnings = append(warnings, Warning{
			Code:    "SENTIMENT_HEAVY",
			Message: "sentiment weight > 30%: ranking dominated by synthesized sentiment",
		})
	}

	return warnings
}

// validatePctRange는 퍼센트 값이 0~1 범위인지 검증
func validatePctRange(pct float64, field string) error {
	if pct < 0 || pct > 1 {
		return ValidationError{field, "must be in range [0, 1]"}
	}
	return nil
}
