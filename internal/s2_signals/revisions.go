package s2_signals

import (
	"fmt"
	"strings"

	"github.com/romanpTAMU/astro-llm/internal/contracts"
	"github.com/romanpTAMU/astro-llm/pkg/logger"
)

// RevisionsCalculator scores analyst revision momentum
type RevisionsCalculator struct {
	logger *logger.Logger
}

// NewRevisionsCalculator creates a new revisions calculator
func NewRevisionsCalculator(log *logger.Logger) *RevisionsCalculator {
	return &RevisionsCalculator{logger: log}
}

// Calculate combines recommendation balance, recent rating changes and target coverage
func (c *RevisionsCalculator) Calculate(ticker string, a *contracts.AnalystData) (float64, error) {
	if a == nil {
		return 0, fmt.Errorf("revisions %s: %w", ticker, contracts.ErrMissingInput)
	}

	score := 0.0
	hasSignal := false

	if total := a.Total(); total > 0 {
		buys := float64(a.StrongBuy + a.Buy)
		sells := float64(a.Sell + a.StrongSell)
		score = (buys - sells) / float64(total)
		hasSignal = true
	} else {
		switch strings.ToLower(strings.TrimSpace(a.Consensus)) {
		case "buy", "strong buy", "strong_buy", "outperform":
			score, hasSignal = 0.5, true
		case "sell", "strong sell", "strong_sell", "underperform":
			score, hasSignal = -0.5, true
		case "hold", "neutral":
			hasSignal = true
		}
	}

	if a.Upgrades > 0 || a.Downgrades > 0 {
		score += 0.2*float64(a.Upgrades) - 0.2*float64(a.Downgrades)
		hasSignal = true
	}

	if a.PriceTarget != nil && *a.PriceTarget > 0 {
		score += 0.1
		hasSignal = true
	}

	if !hasSignal {
		return 0, fmt.Errorf("revisions %s: %w", ticker, contracts.ErrMissingInput)
	}

	score = clamp(score)

	c.logger.WithFields(map[string]interface{}{
		"ticker":     ticker,
		"upgrades":   a.Upgrades,
		"downgrades": a.Downgrades,
		"score":      score,
	}).Debug("Calculated revisions signal")

	return score, nil
}
