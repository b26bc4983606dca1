package audit

import (
	"context"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/romanpTAMU/astro-llm/internal/contracts"
	"github.com/romanpTAMU/astro-llm/pkg/logger"
)

// PeriodsPerYear is the number of biweekly rebalance periods in a year
const PeriodsPerYear = 26

// Analyzer implements S7: Performance analysis over the P&L ledger
// ⭐ SSOT: S7 성과 분석 로직은 여기서만
type Analyzer struct {
	ledger *Ledger
	logger *logger.Logger
}

// NewAnalyzer creates a new performance analyzer
func NewAnalyzer(ledger *Ledger, logger *logger.Logger) *Analyzer {
	return &Analyzer{
		ledger: ledger,
		logger: logger,
	}
}

// PerformanceReport represents performance analysis report
type PerformanceReport struct {
	Periods   int       `json:"periods"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`

	// 손익
	CumulativePnL float64 `json:"cumulative_pnl"`
	TotalReturn   float64 `json:"total_return"`
	AnnualReturn  float64 `json:"annual_return"`

	// 리스크 지표
	Volatility  float64 `json:"volatility"`
	Sharpe      float64 `json:"sharpe"`
	MaxDrawdown float64 `json:"max_drawdown"`

	// 기간 VaR (minVaRPeriods 이상일 때만)
	VaR *VaRResult `json:"var,omitempty"`

	// 기간 지표
	WinRate      float64 `json:"win_rate"`
	AvgWin       float64 `json:"avg_win"`
	AvgLoss      float64 `json:"avg_loss"`
	ProfitFactor float64 `json:"profit_factor"`
}

// Analyze builds a report from every ledger entry
func (a *Analyzer) Analyze(ctx context.Context) (*PerformanceReport, error) {
	ledger, err := a.ledger.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger: %w", err)
	}
	if len(ledger.Entries) == 0 {
		return nil, fmt.Errorf("no ledger entries: %w", contracts.ErrNotFound)
	}

	report := Summarize(ledger)

	a.logger.WithFields(map[string]interface{}{
		"periods":        report.Periods,
		"cumulative_pnl": report.CumulativePnL,
		"max_drawdown":   report.MaxDrawdown,
	}).Info("Performance analyzed")

	return report, nil
}

// Summarize computes the report; period return = period_pnl / target_notional
func Summarize(ledger *contracts.PnLLedger) *PerformanceReport {
	report := &PerformanceReport{
		Periods:       len(ledger.Entries),
		CumulativePnL: ledger.Cumulative(),
	}
	if len(ledger.Entries) == 0 {
		return report
	}

	report.StartDate = ledger.Entries[0].RunDate
	report.EndDate = ledger.Entries[len(ledger.Entries)-1].RunDate

	returns := make([]float64, 0, len(ledger.Entries))
	pnls := make([]float64, 0, len(ledger.Entries))
	for _, e := range ledger.Entries {
		pnls = append(pnls, e.PeriodPnL)
		if e.TargetNotional > 0 {
			returns = append(returns, e.PeriodPnL/e.TargetNotional)
		}
	}

	report.TotalReturn = calculateTotalReturn(returns)
	report.AnnualReturn = annualize(report.TotalReturn, len(returns))
	report.Volatility = calculateVolatility(returns)
	report.Sharpe = calculateSharpe(report.AnnualReturn, report.Volatility)
	report.MaxDrawdown = calculateMaxDrawdown(returns)
	if len(returns) >= minVaRPeriods {
		v := CalculateVaR(returns, VaRConfidence)
		report.VaR = &v
	}

	report.WinRate = calculateWinRate(pnls)
	report.AvgWin, report.AvgLoss = calculateAvgWinLoss(pnls)
	report.ProfitFactor = calculateProfitFactor(pnls)

	return report
}

// calculateTotalReturn calculates compounded return
func calculateTotalReturn(returns []float64) float64 {
	cumReturn := 1.0
	for _, r := range returns {
		cumReturn *= (1.0 + r)
	}
	return cumReturn - 1.0
}

// annualize converts return to annualized return
func annualize(totalReturn float64, periods int) float64 {
	if periods == 0 {
		return 0
	}
	return math.Pow(1.0+totalReturn, float64(PeriodsPerYear)/float64(periods)) - 1.0
}

// calculateVolatility calculates annualized volatility
func calculateVolatility(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	return stat.StdDev(returns, nil) * math.Sqrt(PeriodsPerYear)
}

// calculateSharpe calculates Sharpe ratio
func calculateSharpe(annualReturn, volatility float64) float64 {
	if volatility == 0 {
		return 0
	}
	riskFreeRate := 0.03 // 3% 무위험 수익률
	return (annualReturn - riskFreeRate) / volatility
}

// calculateMaxDrawdown calculates maximum drawdown
func calculateMaxDrawdown(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}

	cumValue := 1.0
	peak := 1.0
	maxDD := 0.0

	for _, r := range returns {
		cumValue *= (1.0 + r)
		if cumValue > peak {
			peak = cumValue
		}
		dd := (cumValue - peak) / peak
		if dd < maxDD {
			maxDD = dd
		}
	}

	return maxDD
}

// calculateWinRate calculates the share of profitable periods
func calculateWinRate(pnls []float64) float64 {
	if len(pnls) == 0 {
		return 0
	}

	wins := 0
	for _, p := range pnls {
		if p > 0 {
			wins++
		}
	}

	return float64(wins) / float64(len(pnls))
}

// calculateAvgWinLoss calculates average win and loss
func calculateAvgWinLoss(pnls []float64) (float64, float64) {
	var sumWin, sumLoss float64
	var countWin, countLoss int

	for _, p := range pnls {
		if p > 0 {
			sumWin += p
			countWin++
		} else if p < 0 {
			sumLoss += p
			countLoss++
		}
	}

	avgWin := 0.0
	if countWin > 0 {
		avgWin = contracts.RoundCents(sumWin / float64(countWin))
	}

	avgLoss := 0.0
	if countLoss > 0 {
		avgLoss = contracts.RoundCents(sumLoss / float64(countLoss))
	}

	return avgWin, avgLoss
}

// calculateProfitFactor calculates profit factor
func calculateProfitFactor(pnls []float64) float64 {
	var totalWin, totalLoss float64

	for _, p := range pnls {
		if p > 0 {
			totalWin += p
		} else if p < 0 {
			totalLoss += math.Abs(p)
		}
	}

	if totalLoss == 0 {
		return 0
	}

	return totalWin / totalLoss
}
