package s2_signals

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/romanpTAMU/astro-llm/internal/contracts"
	"github.com/romanpTAMU/astro-llm/pkg/logger"
)

var f = contracts.Float

func TestValueCalculator_EVEBITDABuckets(t *testing.T) {
	calc := NewValueCalculator(logger.Nop())

	tests := []struct {
		evEbitda float64
		want     float64
	}{
		{5, 1.0},
		{8, 1.0},
		{10, 0.7},
		{12, 0.7},
		{16, 0.4},
		{19.9, 0.0},
		{25, -0.3},
		{40, -0.6},
	}

	for _, tt := range tests {
		got, err := calc.Calculate("T", contracts.Fundamentals{EVToEBITDA: f(tt.evEbitda)})
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "ev/ebitda %v", tt.evEbitda)
	}
}

func TestValueCalculator_AveragesPresentMetricsOnly(t *testing.T) {
	calc := NewValueCalculator(logger.Nop())

	// EV/EBITDA 8 -> 1.0, FCF margin 10 -> 0.0, P/E missing
	got, err := calc.Calculate("T", contracts.Fundamentals{EVToEBITDA: f(8), FCFMargin: f(10)})
	require.NoError(t, err)
	assert.InDelta(t, 0.5, got, 1e-12)

	// negative P/E is treated as missing
	got, err = calc.Calculate("T", contracts.Fundamentals{PERatio: f(-5), FCFMargin: f(25)})
	require.NoError(t, err)
	assert.Equal(t, 1.0, got)
}

func TestCalculators_MissingInput(t *testing.T) {
	log := logger.Nop()
	empty := contracts.Fundamentals{}

	tests := []struct {
		name string
		run  func() error
	}{
		{"value", func() error { _, err := NewValueCalculator(log).Calculate("T", empty); return err }},
		{"quality", func() error { _, err := NewQualityCalculator(log).Calculate("T", empty); return err }},
		{"growth", func() error { _, err := NewGrowthCalculator(log).Calculate("T", empty); return err }},
		{"stability", func() error {
			_, err := NewStabilityCalculator(log).Calculate("T", empty, contracts.Returns{})
			return err
		}},
		{"revisions", func() error { _, err := NewRevisionsCalculator(log).Calculate("T", nil); return err }},
		{"momentum", func() error { _, err := NewMomentumCalculator(log).Calculate("T", contracts.Returns{}); return err }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, errors.Is(tt.run(), contracts.ErrMissingInput))
		})
	}
}

func TestQualityAndGrowth(t *testing.T) {
	log := logger.Nop()

	q, err := NewQualityCalculator(log).Calculate("T", contracts.Fundamentals{ROIC: f(22), OperatingMargin: f(3)})
	require.NoError(t, err)
	assert.InDelta(t, 0.35, q, 1e-12) // (1.0 + -0.3) / 2

	tests := []struct {
		growth float64
		want   float64
	}{
		{25, 1.0},
		{20, 0.7},
		{15, 0.5},
		{12, 0.5},
		{6, 0.2},
		{3, 0.0},
		{0, -0.5},
		{-3, -0.5},
	}
	for _, tt := range tests {
		got, err := NewGrowthCalculator(log).Calculate("T", contracts.Fundamentals{RevenueGrowth: f(tt.growth)})
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "growth %v", tt.growth)
	}
}

func TestQualityCalculator_BoundsFallLow(t *testing.T) {
	calc := NewQualityCalculator(logger.Nop())

	tests := []struct {
		name  string
		input contracts.Fundamentals
		want  float64
	}{
		{"roic above 20", contracts.Fundamentals{ROIC: f(20.01)}, 1.0},
		{"roic at 20", contracts.Fundamentals{ROIC: f(20)}, 0.7},
		{"roic at 5", contracts.Fundamentals{ROIC: f(5)}, -0.5},
		{"margin at 20", contracts.Fundamentals{OperatingMargin: f(20)}, 0.7},
		{"margin at 10", contracts.Fundamentals{OperatingMargin: f(10)}, 0.0},
		{"margin at 5", contracts.Fundamentals{OperatingMargin: f(5)}, -0.3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := calc.Calculate("T", tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStabilityCalculator(t *testing.T) {
	calc := NewStabilityCalculator(logger.Nop())

	got, err := calc.Calculate("T", contracts.Fundamentals{Beta: f(0.7)}, contracts.Returns{})
	require.NoError(t, err)
	assert.Equal(t, 1.0, got)

	got, err = calc.Calculate("T", contracts.Fundamentals{Beta: f(1.8)}, contracts.Returns{})
	require.NoError(t, err)
	assert.Equal(t, -0.6, got)

	// derived beta: stock moves exactly 2x the benchmark
	bench := make([]float64, 30)
	stock := make([]float64, 30)
	for i := range bench {
		bench[i] = float64(i%5-2) / 100
		stock[i] = 2 * bench[i]
	}
	got, err = calc.Calculate("T", contracts.Fundamentals{}, contracts.Returns{Daily: stock, BenchmarkDaily: bench})
	require.NoError(t, err)
	assert.Equal(t, -0.6, got)
}

func TestDeriveBeta(t *testing.T) {
	bench := make([]float64, 25)
	stock := make([]float64, 40)
	for i := range bench {
		bench[i] = float64(i%4-1) / 100
	}
	for i := range stock {
		stock[i] = 0.5 * bench[(i+10)%25]
	}
	copy(stock[15:], scaled(bench, 0.5))

	beta, ok := DeriveBeta(stock, bench)
	require.True(t, ok)
	assert.InDelta(t, 0.5, beta, 1e-9)

	_, ok = DeriveBeta(stock[:10], bench[:10])
	assert.False(t, ok)

	_, ok = DeriveBeta(stock, make([]float64, 25))
	assert.False(t, ok, "flat benchmark has zero variance")
}

func scaled(xs []float64, k float64) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = x * k
	}
	return out
}

func TestRevisionsCalculator(t *testing.T) {
	calc := NewRevisionsCalculator(logger.Nop())

	tests := []struct {
		name    string
		analyst *contracts.AnalystData
		want    float64
	}{
		{"counts", &contracts.AnalystData{Buy: 6, Hold: 2, Sell: 2}, 0.4},
		{"consensus buy with upgrade", &contracts.AnalystData{Consensus: "Buy", Upgrades: 1}, 0.7},
		{"consensus sell with target", &contracts.AnalystData{Consensus: "sell", PriceTarget: f(100)}, -0.4},
		{"clamped", &contracts.AnalystData{StrongBuy: 10, Upgrades: 3, PriceTarget: f(50)}, 1.0},
		{"downgrades", &contracts.AnalystData{Hold: 4, Downgrades: 2}, -0.4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := calc.Calculate("T", tt.analyst)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-12)
		})
	}

	_, err := calc.Calculate("T", &contracts.AnalystData{})
	assert.ErrorIs(t, err, contracts.ErrMissingInput)
}

func TestMomentumCalculator(t *testing.T) {
	calc := NewMomentumCalculator(logger.Nop())

	// 20d +10% -> 0.5, 5d +5% -> 0.5, 1d +5% -> 1.0 => 0.25+0.15+0.2 = 0.6
	got, err := calc.Calculate("T", contracts.Returns{Return20D: f(10), Return5D: f(5), Return1D: f(5)})
	require.NoError(t, err)
	assert.InDelta(t, 0.6, got, 1e-12)

	// only 1d present, clamped at -1
	got, err = calc.Calculate("T", contracts.Returns{Return1D: f(-12)})
	require.NoError(t, err)
	assert.Equal(t, -1.0, got)
}

func TestHeuristicSynthesizer(t *testing.T) {
	s := NewHeuristicSynthesizer(logger.Nop())

	sentiment, err := s.Synthesize(context.Background(), contracts.SentimentInput{
		Ticker:  "T",
		Price:   f(100),
		Analyst: &contracts.AnalystData{Buy: 8, Hold: 2, PriceTarget: f(120)},
		News: []contracts.NewsItem{
			{Tone: "positive"}, {Tone: "positive"}, {Tone: "neutral"}, {Tone: "negative"},
		},
	})
	require.NoError(t, err)

	// analyst 0.8, news 0.25
	assert.InDelta(t, 0.525, sentiment.Score, 1e-12)
	assert.Equal(t, contracts.SentimentBullish, sentiment.Overall)
	require.NotNil(t, sentiment.PriceTargetUpside)
	assert.InDelta(t, 20, *sentiment.PriceTargetUpside, 1e-9)

	neutral, err := s.Synthesize(context.Background(), contracts.SentimentInput{Ticker: "N"})
	require.NoError(t, err)
	assert.Equal(t, contracts.SentimentNeutral, neutral.Overall)
	assert.Nil(t, neutral.PriceTargetUpside)
}

func TestPriceTargetUpside_Capped(t *testing.T) {
	up := PriceTargetUpside(f(1), &contracts.AnalystData{PriceTarget: f(50)})
	require.NotNil(t, up)
	assert.Equal(t, contracts.MaxPriceTargetUpside, *up)
}

type failingSynthesizer struct{}

func (failingSynthesizer) Synthesize(ctx context.Context, in contracts.SentimentInput) (contracts.Sentiment, error) {
	return contracts.Sentiment{}, errors.New("llm unavailable")
}

func TestBuilder_BuildAll(t *testing.T) {
	b := NewBuilder(failingSynthesizer{}, logger.Nop())

	signals := b.BuildAll(context.Background(), []contracts.CandidateData{
		{
			Ticker:       "FULL",
			Price:        f(100),
			Fundamentals: contracts.Fundamentals{EVToEBITDA: f(9), ROIC: f(18), RevenueGrowth: f(11), Beta: f(0.9)},
			Returns:      contracts.Returns{Return20D: f(4)},
			Analyst:      &contracts.AnalystData{Buy: 1, PriceTarget: f(90)},
		},
		{Ticker: "EMPTY"},
	})
	require.Len(t, signals, 2)

	full := signals[0]
	assert.Equal(t, 6, full.Factors.Present())
	assert.Equal(t, contracts.SentimentNeutral, full.Sentiment.Overall)
	require.NotNil(t, full.Sentiment.PriceTargetUpside, "upside survives synthesizer failure")
	assert.InDelta(t, -10, *full.Sentiment.PriceTargetUpside, 1e-9)

	empty := signals[1]
	assert.Equal(t, 0, empty.Factors.Present())
	assert.Nil(t, empty.Factors.Value)
}

func TestBuilder_Deterministic(t *testing.T) {
	b := NewBuilder(nil, logger.Nop())
	c := contracts.CandidateData{
		Ticker:       "D",
		Fundamentals: contracts.Fundamentals{PERatio: f(14), FCFMargin: f(7), OperatingMargin: f(16)},
		Returns:      contracts.Returns{Return5D: f(-2), Return1D: f(0.5)},
	}

	assert.Equal(t, b.Factors(c), b.Factors(c))
}
