package selection

import (
	"fmt"

	"github.com/romanpTAMU/astro-llm/internal/contracts"
	"github.com/romanpTAMU/astro-llm/pkg/logger"
)

// Screener applies the mandatory risk screens
// ⭐ SSOT: 리스크 스크리닝 로직은 여기서만
type Screener struct {
	config ScreenerConfig
	logger *logger.Logger
}

// ScreenerConfig defines hard screen thresholds
// SSOT: config/strategy.yaml screening
type ScreenerConfig struct {
	MinPrice           float64 // 최저 주가 (예: 3.00)
	MinAvgDollarVolume float64 // 최소 평균 거래대금 (예: 5,000,000)
}

// DefaultScreenerConfig returns the default thresholds
func DefaultScreenerConfig() ScreenerConfig {
	return ScreenerConfig{
		MinPrice:           3.0,
		MinAvgDollarVolume: 5_000_000,
	}
}

// NewScreener creates a new screener
func NewScreener(config ScreenerConfig, logger *logger.Logger) *Screener {
	return &Screener{
		config: config,
		logger: logger,
	}
}

// Check computes the risk flags for one candidate. Pure.
func (s *Screener) Check(c contracts.CandidateData) contracts.RiskFlags {
	flags := contracts.RiskFlags{
		PriceOK:        true,
		LiquidityOK:    true,
		NoTradingHalts: !isSet(c.TradingHalted),
		NoPendingMA:    !isSet(c.PendingMA),
		EarningsClear:  !isSet(c.EarningsBlackout),
	}

	switch {
	case c.Price == nil:
		flags.PriceOK = false
		flags.Reasons = append(flags.Reasons, "price unavailable")
	case *c.Price < s.config.MinPrice:
		flags.PriceOK = false
		flags.Reasons = append(flags.Reasons, fmt.Sprintf("price %.2f below floor %.2f", *c.Price, s.config.MinPrice))
	}

	switch {
	case c.Price == nil || c.AvgVolume == nil:
		flags.LiquidityOK = false
		flags.Reasons = append(flags.Reasons, "average dollar volume unavailable")
	default:
		dollarVolume := *c.Price * *c.AvgVolume
		if dollarVolume < s.config.MinAvgDollarVolume {
			flags.LiquidityOK = false
			flags.Reasons = append(flags.Reasons, fmt.Sprintf("average dollar volume %.0f below %.0f", dollarVolume, s.config.MinAvgDollarVolume))
		}
	}

	if !flags.NoTradingHalts {
		flags.Reasons = append(flags.Reasons, "trading halted")
	}
	if !flags.NoPendingMA {
		flags.Reasons = append(flags.Reasons, "pending M&A")
	}
	if !flags.EarningsClear {
		flags.Reasons = append(flags.Reasons, "earnings inside blackout window")
	}

	flags.PassedAllChecks = flags.PriceOK && flags.LiquidityOK &&
		flags.NoTradingHalts && flags.NoPendingMA && flags.EarningsClear

	return flags
}

// Screen checks every candidate and returns flags keyed by ticker
func (s *Screener) Screen(candidates []contracts.CandidateData) map[string]contracts.RiskFlags {
	result := make(map[string]contracts.RiskFlags, len(candidates))
	filtered := make(map[string]int) // filter name -> count

	for _, c := range candidates {
		flags := s.Check(c)
		result[c.Ticker] = flags

		if !flags.PriceOK {
			filtered["price"]++
		}
		if !flags.LiquidityOK {
			filtered["liquidity"]++
		}
		if !flags.NoTradingHalts {
			filtered["halt"]++
		}
		if !flags.NoPendingMA {
			filtered["ma"]++
		}
		if !flags.EarningsClear {
			filtered["earnings"]++
		}
	}

	passed := 0
	for _, f := range result {
		if f.PassedAllChecks {
			passed++
		}
	}

	s.logger.WithFields(map[string]interface{}{
		"total_input":  len(candidates),
		"passed":       passed,
		"filtered_out": len(result) - passed,
		"filters":      filtered,
	}).Info("Screening completed")

	return result
}

func isSet(b *bool) bool {
	return b != nil && *b
}
