package s2_signals

import (
	"fmt"

	"github.com/romanpTAMU/astro-llm/internal/contracts"
	"github.com/romanpTAMU/astro-llm/pkg/logger"
)

var (
	roicBuckets      = []bucket{{20, 1.0}, {15, 0.7}, {10, 0.4}, {5, 0.0}}
	opMarginBuckets  = []bucket{{20, 1.0}, {15, 0.7}, {10, 0.4}, {5, 0.0}}
	revGrowthBuckets = []bucket{{20, 1.0}, {15, 0.7}, {10, 0.5}, {5, 0.2}, {0, 0.0}}
)

// QualityCalculator calculates the quality factor from ROIC and operating margin
// ⭐ SSOT: 퀄리티 지표 계산은 여기서만
type QualityCalculator struct {
	logger *logger.Logger
}

// NewQualityCalculator creates a new quality calculator
func NewQualityCalculator(log *logger.Logger) *QualityCalculator {
	return &QualityCalculator{logger: log}
}

// Calculate averages the ROIC and operating margin sub-scores that are present
func (c *QualityCalculator) Calculate(ticker string, f contracts.Fundamentals) (float64, error) {
	var roic, margin *float64

	if f.ROIC != nil {
		s := stepAbove(*f.ROIC, roicBuckets, -0.5)
		roic = &s
	}
	if f.OperatingMargin != nil {
		s := stepAbove(*f.OperatingMargin, opMarginBuckets, -0.3)
		margin = &s
	}

	score := meanPresent(roic, margin)
	if score == nil {
		return 0, fmt.Errorf("quality %s: %w", ticker, contracts.ErrMissingInput)
	}

	c.logger.WithFields(map[string]interface{}{
		"ticker": ticker,
		"score":  *score,
	}).Debug("Calculated quality signal")

	return *score, nil
}

// GrowthCalculator calculates the growth factor from revenue growth
type GrowthCalculator struct {
	logger *logger.Logger
}

// NewGrowthCalculator creates a new growth calculator
func NewGrowthCalculator(log *logger.Logger) *GrowthCalculator {
	return &GrowthCalculator{logger: log}
}

// Calculate buckets year-over-year revenue growth (percent)
func (c *GrowthCalculator) Calculate(ticker string, f contracts.Fundamentals) (float64, error) {
	if f.RevenueGrowth == nil {
		return 0, fmt.Errorf("growth %s: %w", ticker, contracts.ErrMissingInput)
	}

	score := stepAbove(*f.RevenueGrowth, revGrowthBuckets, -0.5)

	c.logger.WithFields(map[string]interface{}{
		"ticker":         ticker,
		"revenue_growth": *f.RevenueGrowth,
		"score":          score,
	}).Debug("Calculated growth signal")

	return score, nil
}
