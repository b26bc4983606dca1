package selection

import (
	"context"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/romanpTAMU/astro-llm/internal/contracts"
	"github.com/romanpTAMU/astro-llm/pkg/logger"
)

// Ranker computes composite scores and orders candidates
// ⭐ SSOT: 종합 점수 산출과 순위는 여기서만
type Ranker struct {
	weights WeightConfig
	penalty UpsidePenalty
	logger  *logger.Logger
}

// RankStats summarises a ranking pass
type RankStats struct {
	Total        int     `json:"total"`
	Qualified    int     `json:"qualified"`
	Disqualified int     `json:"disqualified"`
	Duplicates   int     `json:"duplicates"`
	MeanScore    float64 `json:"mean_score"`
	StdDevScore  float64 `json:"stddev_score"`
}

// NewRanker creates a new ranker
func NewRanker(weights WeightConfig, penalty UpsidePenalty, logger *logger.Logger) *Ranker {
	return &Ranker{
		weights: weights,
		penalty: penalty,
		logger:  logger,
	}
}

// Rank scores each candidate and returns them best-first with 1-based ranks.
// Duplicate tickers keep their first occurrence. Disqualified candidates rank last.
func (r *Ranker) Rank(
	ctx context.Context,
	candidates []contracts.CandidateData,
	signals []contracts.CandidateSignals,
	risk map[string]contracts.RiskFlags,
) ([]contracts.ScoredCandidate, RankStats) {
	bySignal := make(map[string]contracts.CandidateSignals, len(signals))
	for _, s := range signals {
		bySignal[s.Ticker] = s
	}

	now := time.Now().UTC()
	seen := make(map[string]bool, len(candidates))
	ranked := make([]contracts.ScoredCandidate, 0, len(candidates))
	stats := RankStats{}

	for _, c := range candidates {
		if seen[c.Ticker] {
			stats.Duplicates++
			r.logger.WithField("ticker", c.Ticker).Warn("Duplicate candidate ignored")
			continue
		}
		seen[c.Ticker] = true

		sig := bySignal[c.Ticker]
		flags, ok := risk[c.Ticker]
		if !ok {
			flags = contracts.RiskFlags{Reasons: []string{"risk screen not run"}}
		}

		ranked = append(ranked, contracts.ScoredCandidate{
			Ticker:    c.Ticker,
			Name:      c.Name,
			Sector:    contracts.NormalizeSector(c.Sector),
			Theme:     c.Theme,
			Factors:   sig.Factors,
			Sentiment: sig.Sentiment,
			Risk:      flags,
			Composite: CompositeScore(sig.Factors, sig.Sentiment, flags, r.weights, r.penalty),
			Price:     c.Price,
			MarketCap: c.MarketCap,
			ScoredAt:  now,
		})
	}

	SortCandidates(ranked)

	scores := make([]float64, 0, len(ranked))
	for i := range ranked {
		ranked[i].Rank = i + 1
		if v, ok := ranked[i].Composite.Value(); ok {
			scores = append(scores, v)
		}
	}

	stats.Total = len(ranked)
	stats.Qualified = len(scores)
	stats.Disqualified = len(ranked) - len(scores)
	if len(scores) > 1 {
		stats.MeanScore, stats.StdDevScore = stat.MeanStdDev(scores, nil)
	} else if len(scores) == 1 {
		stats.MeanScore = scores[0]
	}

	r.logger.WithFields(map[string]interface{}{
		"total":        stats.Total,
		"qualified":    stats.Qualified,
		"disqualified": stats.Disqualified,
		"mean_score":   stats.MeanScore,
	}).Info("Ranking completed")

	return ranked, stats
}

// SortCandidates orders best-first: Disqualified last, ties broken by ticker
func SortCandidates(candidates []contracts.ScoredCandidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		return contracts.RankedBefore(candidates[i], candidates[j])
	})
}
