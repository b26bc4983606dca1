package s2_signals

import (
	"fmt"

	"github.com/romanpTAMU/astro-llm/internal/contracts"
	"github.com/romanpTAMU/astro-llm/pkg/logger"
)

// Momentum horizons: return divisor (percent) and weight
var momentumTerms = []struct {
	name    string
	divisor float64
	weight  float64
	pick    func(contracts.Returns) *float64
}{
	{"return_20d", 20, 0.5, func(r contracts.Returns) *float64 { return r.Return20D }},
	{"return_5d", 10, 0.3, func(r contracts.Returns) *float64 { return r.Return5D }},
	{"return_1d", 5, 0.2, func(r contracts.Returns) *float64 { return r.Return1D }},
}

// MomentumCalculator calculates the momentum factor
// ⭐ SSOT: 모멘텀 계산은 여기서만
type MomentumCalculator struct {
	logger *logger.Logger
}

// NewMomentumCalculator creates a new momentum calculator
func NewMomentumCalculator(log *logger.Logger) *MomentumCalculator {
	return &MomentumCalculator{logger: log}
}

// Calculate scales each available return by its divisor, clamps it,
// and takes the weighted mean over the horizons present
func (c *MomentumCalculator) Calculate(ticker string, r contracts.Returns) (float64, error) {
	sum, weights := 0.0, 0.0
	fields := map[string]interface{}{"ticker": ticker}

	for _, term := range momentumTerms {
		v := term.pick(r)
		if v == nil {
			continue
		}
		sum += clamp(*v/term.divisor) * term.weight
		weights += term.weight
		fields[term.name] = *v
	}

	if weights == 0 {
		return 0, fmt.Errorf("momentum %s: %w", ticker, contracts.ErrMissingInput)
	}

	score := clamp(sum / weights)
	fields["score"] = score
	c.logger.WithFields(fields).Debug("Calculated momentum signal")

	return score, nil
}
