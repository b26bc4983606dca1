package s2_signals

import (
	"fmt"

	"gonum.org/v1/gonum/stat"

	"github.com/romanpTAMU/astro-llm/internal/contracts"
	"github.com/romanpTAMU/astro-llm/pkg/logger"
)

// MinBetaObservations is the shortest aligned return series used to derive beta
const MinBetaObservations = 20

var betaBuckets = []bucket{{0.8, 1.0}, {1.0, 0.5}, {1.2, 0.0}, {1.5, -0.3}}

// StabilityCalculator scores price stability from beta (lower beta = more stable)
// ⭐ SSOT: 안정성 지표 계산은 여기서만
type StabilityCalculator struct {
	logger *logger.Logger
}

// NewStabilityCalculator creates a new stability calculator
func NewStabilityCalculator(log *logger.Logger) *StabilityCalculator {
	return &StabilityCalculator{logger: log}
}

// Calculate uses the reported beta, or derives it from daily return series
func (c *StabilityCalculator) Calculate(ticker string, f contracts.Fundamentals, r contracts.Returns) (float64, error) {
	beta, source := 0.0, "reported"

	switch {
	case f.Beta != nil:
		beta = *f.Beta
	default:
		derived, ok := DeriveBeta(r.Daily, r.BenchmarkDaily)
		if !ok {
			return 0, fmt.Errorf("stability %s: %w", ticker, contracts.ErrMissingInput)
		}
		beta, source = derived, "derived"
	}

	score := stepAtMost(beta, betaBuckets, -0.6)

	c.logger.WithFields(map[string]interface{}{
		"ticker": ticker,
		"beta":   beta,
		"source": source,
		"score":  score,
	}).Debug("Calculated stability signal")

	return score, nil
}

// DeriveBeta computes Cov(r, b) / Var(b) over the most recent aligned observations
func DeriveBeta(returns, benchmark []float64) (float64, bool) {
	n := len(returns)
	if len(benchmark) < n {
		n = len(benchmark)
	}
	if n < MinBetaObservations {
		return 0, false
	}

	r := returns[len(returns)-n:]
	b := benchmark[len(benchmark)-n:]

	variance := stat.Variance(b, nil)
	if variance == 0 {
		return 0, false
	}

	return stat.Covariance(r, b, nil) / variance, true
}
