package selection

import (
	"math"

	"github.com/romanpTAMU/astro-llm/internal/contracts"
)

// WeightConfig defines composite weights per factor
type WeightConfig struct {
	Value     float64 `json:"value"`
	Quality   float64 `json:"quality"`
	Growth    float64 `json:"growth"`
	Stability float64 `json:"stability"`
	Revisions float64 `json:"revisions"`
	Momentum  float64 `json:"momentum"`
	Sentiment float64 `json:"sentiment"`
}

// UpsidePenalty penalizes candidates trading above their price target
type UpsidePenalty struct {
	Multiplier float64 `json:"multiplier"` // applied to upside/100
	Floor      float64 `json:"floor"`      // most negative adjustment
}

// DefaultWeightConfig returns the default composite weights
func DefaultWeightConfig() WeightConfig {
	return WeightConfig{
		Value:     0.20,
		Quality:   0.25,
		Growth:    0.20,
		Stability: 0.10,
		Revisions: 0.10,
		Momentum:  0.05,
		Sentiment: 0.15,
	}
}

// DefaultUpsidePenalty returns the default penalty (x2, floored at -0.20)
func DefaultUpsidePenalty() UpsidePenalty {
	return UpsidePenalty{Multiplier: 2, Floor: -0.20}
}

// ValidateWeights checks that every weight is non-negative and at least one is positive
func (w *WeightConfig) ValidateWeights() bool {
	all := []float64{w.Value, w.Quality, w.Growth, w.Stability, w.Revisions, w.Momentum, w.Sentiment}
	total := 0.0
	for _, v := range all {
		if v < 0 {
			return false
		}
		total += v
	}
	return total > 0
}

// CompositeScore combines factor and sentiment signals into one ranking score.
// Failed risk checks yield Disqualified. Only present factors count in both
// numerator and denominator; the upside penalty is added after normalisation.
func CompositeScore(f contracts.FactorScores, s contracts.Sentiment, risk contracts.RiskFlags, w WeightConfig, p UpsidePenalty) contracts.CompositeScore {
	if !risk.PassedAllChecks {
		return contracts.Disqualified(risk.Reasons)
	}

	terms := []struct {
		score  *float64
		weight float64
	}{
		{f.Value, w.Value},
		{f.Quality, w.Quality},
		{f.Growth, w.Growth},
		{f.Stability, w.Stability},
		{f.Revisions, w.Revisions},
		{f.Momentum, w.Momentum},
		{&s.Score, w.Sentiment},
	}

	sum, weights := 0.0, 0.0
	for _, t := range terms {
		if t.score == nil || t.weight == 0 {
			continue
		}
		sum += *t.score * t.weight
		weights += t.weight
	}

	score := 0.0
	if weights > 0 {
		score = sum / weights
	}

	if up := s.PriceTargetUpside; up != nil && *up < 0 {
		score += math.Max(p.Floor, *up/100*p.Multiplier)
	}

	return contracts.Scored(score)
}
