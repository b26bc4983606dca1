package audit

import (
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// VaRConfidence is the confidence level reported with every performance summary
const VaRConfidence = 0.95

// minVaRPeriods is the history needed before a period VaR is meaningful
const minVaRPeriods = 4

// VaRResult is a one-period loss estimate. Losses are positive fractions of notional.
type VaRResult struct {
	Confidence float64 `json:"confidence"`
	VaR        float64 `json:"var"`            // historical simulation
	CVaR       float64 `json:"cvar"`           // mean loss beyond VaR
	Parametric float64 `json:"parametric_var"` // normal approximation
}

// CalculateVaR estimates period VaR from realized period returns
func CalculateVaR(returns []float64, confidence float64) VaRResult {
	result := VaRResult{Confidence: confidence}
	if len(returns) == 0 || confidence <= 0 || confidence >= 1 {
		return result
	}

	sorted := make([]float64, len(returns))
	copy(sorted, returns)
	sort.Float64s(sorted)

	// 하위 (1-confidence) 분위수
	threshold := stat.Quantile(1-confidence, stat.Empirical, sorted, nil)
	result.VaR = lossOf(threshold)

	var tail []float64
	for _, r := range sorted {
		if r > threshold {
			break
		}
		tail = append(tail, r)
	}
	result.CVaR = lossOf(stat.Mean(tail, nil))

	if len(sorted) > 1 {
		mean, std := stat.MeanStdDev(sorted, nil)
		if std > 0 {
			normal := distuv.Normal{Mu: mean, Sigma: std}
			result.Parametric = lossOf(normal.Quantile(1 - confidence))
		}
	}

	return result
}

func lossOf(r float64) float64 {
	if r < 0 {
		return -r
	}
	return 0
}
