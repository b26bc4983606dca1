package s2_signals

import (
	"context"
	"math"
	"strings"

	"github.com/romanpTAMU/astro-llm/internal/contracts"
	"github.com/romanpTAMU/astro-llm/pkg/logger"
)

const (
	bullishThreshold = 0.2
	bearishThreshold = -0.2
)

// HeuristicSynthesizer is a deterministic SentimentSynthesizer built from
// news tone counts and analyst balance. Used offline and as the default
// when no LLM-backed synthesizer is configured.
type HeuristicSynthesizer struct {
	logger *logger.Logger
}

// NewHeuristicSynthesizer creates a heuristic synthesizer
func NewHeuristicSynthesizer(log *logger.Logger) *HeuristicSynthesizer {
	return &HeuristicSynthesizer{logger: log}
}

// Synthesize implements contracts.SentimentSynthesizer
func (s *HeuristicSynthesizer) Synthesize(ctx context.Context, in contracts.SentimentInput) (contracts.Sentiment, error) {
	var parts []*float64

	if news := newsTone(in.News); news != nil {
		parts = append(parts, news)
	}
	if in.Analyst != nil && in.Analyst.Total() > 0 {
		a := in.Analyst
		balance := float64(a.StrongBuy+a.Buy-a.Sell-a.StrongSell) / float64(a.Total())
		parts = append(parts, &balance)
	}

	sentiment := contracts.NeutralSentiment()
	if avg := meanPresent(parts...); avg != nil {
		sentiment.Score = clamp(*avg)
		sentiment.Overall = Label(sentiment.Score)
	}
	sentiment.PriceTargetUpside = PriceTargetUpside(in.Price, in.Analyst)

	s.logger.WithFields(map[string]interface{}{
		"ticker":    in.Ticker,
		"score":     sentiment.Score,
		"sentiment": sentiment.Overall,
	}).Debug("Synthesized heuristic sentiment")

	return sentiment, nil
}

// Label maps a sentiment score to its direction
func Label(score float64) contracts.SentimentLabel {
	switch {
	case score > bullishThreshold:
		return contracts.SentimentBullish
	case score < bearishThreshold:
		return contracts.SentimentBearish
	default:
		return contracts.SentimentNeutral
	}
}

// PriceTargetUpside returns (target/price - 1) in percent, capped at +400
func PriceTargetUpside(price *float64, a *contracts.AnalystData) *float64 {
	if price == nil || *price <= 0 || a == nil || a.PriceTarget == nil || *a.PriceTarget <= 0 {
		return nil
	}
	upside := math.Min((*a.PriceTarget / *price - 1)*100, contracts.MaxPriceTargetUpside)
	return &upside
}

func newsTone(items []contracts.NewsItem) *float64 {
	pos, neg, n := 0, 0, 0
	for _, item := range items {
		switch strings.ToLower(item.Tone) {
		case "positive", "bullish":
			pos++
		case "negative", "bearish":
			neg++
		}
		n++
	}
	if n == 0 {
		return nil
	}
	tone := float64(pos-neg) / float64(n)
	return &tone
}
