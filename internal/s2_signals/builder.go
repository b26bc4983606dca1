package s2_signals

import (
	"context"
	"errors"
	"time"

	"github.com/romanpTAMU/astro-llm/internal/contracts"
	"github.com/romanpTAMU/astro-llm/pkg/logger"
)

// Builder orchestrates the factor calculators and the sentiment synthesizer
// ⭐ SSOT: 시그널 생성 오케스트레이션은 여기서만
type Builder struct {
	value     *ValueCalculator
	quality   *QualityCalculator
	growth    *GrowthCalculator
	stability *StabilityCalculator
	revisions *RevisionsCalculator
	momentum  *MomentumCalculator

	synthesizer contracts.SentimentSynthesizer

	logger *logger.Logger
}

// NewBuilder creates a builder with all factor calculators.
// A nil synthesizer falls back to the heuristic one.
func NewBuilder(synthesizer contracts.SentimentSynthesizer, log *logger.Logger) *Builder {
	if synthesizer == nil {
		synthesizer = NewHeuristicSynthesizer(log)
	}
	return &Builder{
		value:       NewValueCalculator(log),
		quality:     NewQualityCalculator(log),
		growth:      NewGrowthCalculator(log),
		stability:   NewStabilityCalculator(log),
		revisions:   NewRevisionsCalculator(log),
		momentum:    NewMomentumCalculator(log),
		synthesizer: synthesizer,
		logger:      log,
	}
}

// Factors computes all factor sub-scores for a candidate. Pure.
func (b *Builder) Factors(c contracts.CandidateData) contracts.FactorScores {
	return contracts.FactorScores{
		Value:     b.optional(b.value.Calculate(c.Ticker, c.Fundamentals)),
		Quality:   b.optional(b.quality.Calculate(c.Ticker, c.Fundamentals)),
		Growth:    b.optional(b.growth.Calculate(c.Ticker, c.Fundamentals)),
		Stability: b.optional(b.stability.Calculate(c.Ticker, c.Fundamentals, c.Returns)),
		Revisions: b.optional(b.revisions.Calculate(c.Ticker, c.Analyst)),
		Momentum:  b.optional(b.momentum.Calculate(c.Ticker, c.Returns)),
	}
}

// Build computes factors and sentiment for one candidate
func (b *Builder) Build(ctx context.Context, c contracts.CandidateData) contracts.CandidateSignals {
	return contracts.CandidateSignals{
		Ticker:    c.Ticker,
		Factors:   b.Factors(c),
		Sentiment: b.sentiment(ctx, c),
	}
}

// BuildAll computes signals for every candidate in input order
func (b *Builder) BuildAll(ctx context.Context, candidates []contracts.CandidateData) []contracts.CandidateSignals {
	start := time.Now()
	out := make([]contracts.CandidateSignals, 0, len(candidates))
	missing := 0

	for _, c := range candidates {
		s := b.Build(ctx, c)
		missing += 6 - s.Factors.Present()
		out = append(out, s)
	}

	b.logger.WithFields(map[string]interface{}{
		"candidates":      len(candidates),
		"missing_factors": missing,
		"duration":        time.Since(start),
	}).Info("Signals built")

	return out
}

// sentiment calls the synthesizer; errors degrade to neutral (upside still computed)
func (b *Builder) sentiment(ctx context.Context, c contracts.CandidateData) contracts.Sentiment {
	s, err := b.synthesizer.Synthesize(ctx, contracts.SentimentInput{
		Ticker:  c.Ticker,
		Price:   c.Price,
		Analyst: c.Analyst,
		News:    c.News,
	})
	if err != nil {
		b.logger.WithFields(map[string]interface{}{
			"ticker": c.Ticker,
			"error":  err.Error(),
		}).Warn("Sentiment synthesis failed, using neutral")

		s = contracts.NeutralSentiment()
		s.PriceTargetUpside = PriceTargetUpside(c.Price, c.Analyst)
	}

	if s.PriceTargetUpside != nil && *s.PriceTargetUpside > contracts.MaxPriceTargetUpside {
		capped := contracts.MaxPriceTargetUpside
		s.PriceTargetUpside = &capped
	}
	s.Score = clamp(s.Score)

	return s
}

// optional converts a calculator result into an optional sub-score
func (b *Builder) optional(score float64, err error) *float64 {
	if err != nil {
		if !errors.Is(err, contracts.ErrMissingInput) {
			b.logger.WithError(err).Warn("Factor calculation failed")
		}
		return nil
	}
	return &score
}
