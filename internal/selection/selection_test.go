package selection

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/romanpTAMU/astro-llm/internal/contracts"
	"github.com/romanpTAMU/astro-llm/internal/s2_signals"
	"github.com/romanpTAMU/astro-llm/pkg/logger"
)

var f = contracts.Float

func passed() contracts.RiskFlags {
	return contracts.RiskFlags{PassedAllChecks: true, PriceOK: true, LiquidityOK: true, NoTradingHalts: true, NoPendingMA: true, EarningsClear: true}
}

func TestCompositeScore_NormalizesOverPresentFactors(t *testing.T) {
	w := DefaultWeightConfig()
	p := DefaultUpsidePenalty()

	// value 1.0 (w .20) and sentiment 0.5 (w .15): (0.20 + 0.075) / 0.35
	got := CompositeScore(
		contracts.FactorScores{Value: f(1.0)},
		contracts.Sentiment{Score: 0.5},
		passed(), w, p,
	)
	v, ok := got.Value()
	require.True(t, ok)
	assert.InDelta(t, 0.275/0.35, v, 1e-12)
}

func TestCompositeScore_AllFactors(t *testing.T) {
	factors := contracts.FactorScores{
		Value: f(1), Quality: f(1), Growth: f(1), Stability: f(1), Revisions: f(1), Momentum: f(1),
	}
	got := CompositeScore(factors, contracts.Sentiment{Score: 1}, passed(), DefaultWeightConfig(), DefaultUpsidePenalty())

	v, ok := got.Value()
	require.True(t, ok)
	assert.InDelta(t, 1.0, v, 1e-12)
}

func TestCompositeScore_UpsidePenalty(t *testing.T) {
	tests := []struct {
		name   string
		upside *float64
		want   float64
	}{
		{"no target", nil, 0.5},
		{"positive upside untouched", f(30), 0.5},
		{"small negative", f(-5), 0.4},
		{"floored", f(-40), 0.3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CompositeScore(
				contracts.FactorScores{Quality: f(0.5)},
				contracts.Sentiment{Score: 0.5, PriceTargetUpside: tt.upside},
				passed(), DefaultWeightConfig(), DefaultUpsidePenalty(),
			)
			v, _ := got.Value()
			assert.InDelta(t, tt.want, v, 1e-12)
		})
	}
}

func TestCompositeScore_Disqualified(t *testing.T) {
	risk := contracts.RiskFlags{PassedAllChecks: false, Reasons: []string{"price below floor"}}
	got := CompositeScore(contracts.FactorScores{Value: f(1)}, contracts.Sentiment{Score: 1}, risk, DefaultWeightConfig(), DefaultUpsidePenalty())

	assert.True(t, got.IsDisqualified())
	assert.Equal(t, contracts.DisqualifiedSentinel, got.Float())
	assert.Equal(t, []string{"price below floor"}, got.Reasons())
}

func TestScreener_Check(t *testing.T) {
	s := NewScreener(DefaultScreenerConfig(), logger.Nop())
	halted := true

	tests := []struct {
		name      string
		candidate contracts.CandidateData
		pass      bool
		reasons   int
	}{
		{"liquid large cap", contracts.CandidateData{Ticker: "A", Price: f(150), AvgVolume: f(1_000_000)}, true, 0},
		{"penny stock", contracts.CandidateData{Ticker: "P", Price: f(2.5), AvgVolume: f(10_000_000)}, false, 1},
		{"illiquid", contracts.CandidateData{Ticker: "I", Price: f(20), AvgVolume: f(1000)}, false, 1},
		{"no price", contracts.CandidateData{Ticker: "N"}, false, 2},
		{"halted", contracts.CandidateData{Ticker: "H", Price: f(50), AvgVolume: f(1_000_000), TradingHalted: &halted}, false, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flags := s.Check(tt.candidate)
			assert.Equal(t, tt.pass, flags.PassedAllChecks)
			assert.Len(t, flags.Reasons, tt.reasons)
		})
	}
}

func TestRanker_DisqualifiedSortLastAndDedupe(t *testing.T) {
	ranker := NewRanker(DefaultWeightConfig(), DefaultUpsidePenalty(), logger.Nop())

	candidates := []contracts.CandidateData{
		{Ticker: "BAD", Sector: "Energy"},
		{Ticker: "LOW"},
		{Ticker: "HIGH", Sector: "Technology"},
		{Ticker: "LOW"},
	}
	signals := []contracts.CandidateSignals{
		{Ticker: "BAD", Factors: contracts.FactorScores{Value: f(1)}},
		{Ticker: "LOW", Factors: contracts.FactorScores{Value: f(-0.9)}, Sentiment: contracts.Sentiment{Score: -1}},
		{Ticker: "HIGH", Factors: contracts.FactorScores{Value: f(0.8)}},
	}
	risk := map[string]contracts.RiskFlags{
		"BAD":  {Reasons: []string{"illiquid"}},
		"LOW":  passed(),
		"HIGH": passed(),
	}

	ranked, stats := ranker.Rank(context.Background(), candidates, signals, risk)
	require.Len(t, ranked, 3)

	assert.Equal(t, "HIGH", ranked[0].Ticker)
	assert.Equal(t, "LOW", ranked[1].Ticker)
	assert.Equal(t, "BAD", ranked[2].Ticker)
	assert.True(t, ranked[2].Composite.IsDisqualified())
	assert.Equal(t, 3, ranked[2].Rank)
	assert.Equal(t, contracts.UnknownSector, ranked[1].Sector)

	assert.Equal(t, 1, stats.Duplicates)
	assert.Equal(t, 2, stats.Qualified)
	assert.Equal(t, 1, stats.Disqualified)
}

func TestService_Score(t *testing.T) {
	log := logger.Nop()
	svc := NewService(
		s2_signals.NewBuilder(nil, log),
		NewScreener(DefaultScreenerConfig(), log),
		NewRanker(DefaultWeightConfig(), DefaultUpsidePenalty(), log),
		log,
	)

	result, err := svc.Score(context.Background(), []contracts.CandidateData{
		{Ticker: "GOOD", Price: f(100), AvgVolume: f(500_000), Fundamentals: contracts.Fundamentals{EVToEBITDA: f(7), ROIC: f(25)}},
		{Ticker: "PENNY", Price: f(1), AvgVolume: f(100_000_000), Fundamentals: contracts.Fundamentals{EVToEBITDA: f(5)}},
	})
	require.NoError(t, err)
	require.Len(t, result.Candidates, 2)

	assert.Equal(t, "GOOD", result.Candidates[0].Ticker)
	assert.Equal(t, contracts.DisqualifiedSentinel, result.Candidates[1].Composite.Float())

	_, err = svc.Score(context.Background(), nil)
	assert.Error(t, err)
}
