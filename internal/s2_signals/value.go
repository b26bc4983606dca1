package s2_signals

import (
	"fmt"

	"github.com/romanpTAMU/astro-llm/internal/contracts"
	"github.com/romanpTAMU/astro-llm/pkg/logger"
)

var (
	evEbitdaBuckets = []bucket{{8, 1.0}, {12, 0.7}, {16, 0.4}, {20, 0.0}, {25, -0.3}}
	peBuckets       = []bucket{{12, 1.0}, {18, 0.7}, {25, 0.4}, {35, 0.0}, {50, -0.3}}
	fcfBuckets      = []bucket{{20, 1.0}, {15, 0.7}, {10, 0.4}, {5, 0.0}, {0, -0.3}}
)

// ValueCalculator calculates the value factor
// ⭐ SSOT: 가치 지표 계산은 여기서만
type ValueCalculator struct {
	logger *logger.Logger
}

// NewValueCalculator creates a new value calculator
func NewValueCalculator(log *logger.Logger) *ValueCalculator {
	return &ValueCalculator{logger: log}
}

// Calculate averages the EV/EBITDA, P/E and FCF margin sub-scores that are present.
// Non-positive multiples are meaningless and count as missing.
func (c *ValueCalculator) Calculate(ticker string, f contracts.Fundamentals) (float64, error) {
	var ev, pe, fcf *float64

	if f.EVToEBITDA != nil && *f.EVToEBITDA > 0 {
		s := stepAtMost(*f.EVToEBITDA, evEbitdaBuckets, -0.6)
		ev = &s
	}
	if f.PERatio != nil && *f.PERatio > 0 {
		s := stepAtMost(*f.PERatio, peBuckets, -0.6)
		pe = &s
	}
	if f.FCFMargin != nil {
		s := stepAbove(*f.FCFMargin, fcfBuckets, -0.6)
		fcf = &s
	}

	score := meanPresent(ev, pe, fcf)
	if score == nil {
		return 0, fmt.Errorf("value %s: %w", ticker, contracts.ErrMissingInput)
	}

	c.logger.WithFields(map[string]interface{}{
		"ticker": ticker,
		"score":  *score,
	}).Debug("Calculated value signal")

	return *score, nil
}
