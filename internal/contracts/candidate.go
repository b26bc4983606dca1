package contracts

import (
	"encoding/json"
	"time"
)

// CandidateData is the raw per-ticker input to the scoring pass.
// Every metric is optional; nil means the upstream fetcher had no value.
// ⭐ SSOT: S0 fetcher → S2 signals 입력 계약
type CandidateData struct {
	Ticker    string   `json:"ticker"`
	Name      string   `json:"name,omitempty"`
	Sector    string   `json:"sector,omitempty"`
	Theme     string   `json:"theme,omitempty"`
	Price     *float64 `json:"price,omitempty"`
	MarketCap *float64 `json:"market_cap,omitempty"`
	AvgVolume *float64 `json:"avg_volume,omitempty"` // shares/day

	Fundamentals Fundamentals `json:"fundamentals"`
	Returns      Returns      `json:"returns"`
	Analyst      *AnalystData `json:"analyst,omitempty"`
	News         []NewsItem   `json:"news,omitempty"`

	// Event flags (nil = no information, treated as clear)
	TradingHalted    *bool `json:"trading_halted,omitempty"`
	PendingMA        *bool `json:"pending_ma,omitempty"`
	EarningsBlackout *bool `json:"earnings_blackout,omitempty"`
}

// Fundamentals holds valuation and profitability metrics (percent values are 0-100 scale)
type Fundamentals struct {
	EVToEBITDA      *float64 `json:"ev_ebitda,omitempty"`
	PERatio         *float64 `json:"pe_ratio,omitempty"`
	FCFMargin       *float64 `json:"fcf_margin,omitempty"`
	ROIC            *float64 `json:"roic,omitempty"`
	OperatingMargin *float64 `json:"operating_margin,omitempty"`
	RevenueGrowth   *float64 `json:"revenue_growth,omitempty"`
	Beta            *float64 `json:"beta,omitempty"`
}

// Returns holds trailing price returns in percent and optional daily series for beta
type Returns struct {
	Return20D *float64 `json:"return_20d,omitempty"`
	Return5D  *float64 `json:"return_5d,omitempty"`
	Return1D  *float64 `json:"return_1d,omitempty"`

	Daily          []float64 `json:"daily,omitempty"`           // daily returns, fraction
	BenchmarkDaily []float64 `json:"benchmark_daily,omitempty"` // aligned benchmark returns
}

// AnalystData holds recommendation counts and recent rating changes
type AnalystData struct {
	StrongBuy   int      `json:"strong_buy"`
	Buy         int      `json:"buy"`
	Hold        int      `json:"hold"`
	Sell        int      `json:"sell"`
	StrongSell  int      `json:"strong_sell"`
	Consensus   string   `json:"consensus,omitempty"` // "buy", "strong buy", "hold", "sell", ...
	Upgrades    int      `json:"upgrades"`
	Downgrades  int      `json:"downgrades"`
	PriceTarget *float64 `json:"price_target,omitempty"`
}

// Total returns the total number of recommendations
func (a *AnalystData) Total() int {
	return a.StrongBuy + a.Buy + a.Hold + a.Sell + a.StrongSell
}

// NewsItem is a single headline with an upstream tone label
type NewsItem struct {
	Headline    string    `json:"headline"`
	Source      string    `json:"source,omitempty"`
	PublishedAt time.Time `json:"published_at,omitempty"`
	Tone        string    `json:"tone,omitempty"` // positive, negative, neutral
}

// FactorScores holds the bounded factor sub-scores.
// nil means the underlying input was missing; absent factors are never weighted.
type FactorScores struct {
	Value     *float64 `json:"value"`
	Quality   *float64 `json:"quality"`
	Growth    *float64 `json:"growth"`
	Stability *float64 `json:"stability"`
	Revisions *float64 `json:"revisions"`
	Momentum  *float64 `json:"momentum"`
}

// Present counts the factors that have a value
func (f FactorScores) Present() int {
	n := 0
	for _, v := range []*float64{f.Value, f.Quality, f.Growth, f.Stability, f.Revisions, f.Momentum} {
		if v != nil {
			n++
		}
	}
	return n
}

// SentimentLabel is the overall sentiment direction
type SentimentLabel string

const (
	SentimentBullish SentimentLabel = "bullish"
	SentimentNeutral SentimentLabel = "neutral"
	SentimentBearish SentimentLabel = "bearish"
)

// MaxPriceTargetUpside caps the upside percent reported by synthesizers
const MaxPriceTargetUpside = 400.0

// Sentiment is the output contract of a SentimentSynthesizer
type Sentiment struct {
	Overall           SentimentLabel `json:"overall_sentiment"`
	Score             float64        `json:"sentiment_score"` // [-1, 1]
	PriceTargetUpside *float64       `json:"price_target_upside,omitempty"`
	Summary           string         `json:"summary,omitempty"`
}

// NeutralSentiment is the fallback when synthesis is unavailable
func NeutralSentiment() Sentiment {
	return Sentiment{Overall: SentimentNeutral, Score: 0}
}

// RiskFlags holds the mandatory screen results for a candidate
type RiskFlags struct {
	PassedAllChecks bool     `json:"passed_all_checks"`
	PriceOK         bool     `json:"price_ok"`
	LiquidityOK     bool     `json:"liquidity_ok"`
	NoTradingHalts  bool     `json:"no_trading_halts"`
	NoPendingMA     bool     `json:"no_pending_ma"`
	EarningsClear   bool     `json:"earnings_clear"`
	Reasons         []string `json:"reasons,omitempty"`
}

// ScoredCandidate is the immutable output of one scoring pass
// ⭐ SSOT: S3 → S5 후보 점수 전달
type ScoredCandidate struct {
	Rank      int            `json:"rank"`
	Ticker    string         `json:"ticker"`
	Name      string         `json:"name,omitempty"`
	Sector    string         `json:"sector"`
	Theme     string         `json:"theme,omitempty"`
	Factors   FactorScores   `json:"factor_scores"`
	Sentiment Sentiment      `json:"sentiment"`
	Risk      RiskFlags      `json:"risk_flags"`
	Composite CompositeScore `json:"composite_score"`
	Price     *float64       `json:"price,omitempty"`
	MarketCap *float64       `json:"market_cap,omitempty"`
	ScoredAt  time.Time      `json:"scored_at"`
}

type scoredCandidateJSON ScoredCandidate

// MarshalJSON writes the disqualification reasons next to the numeric score
func (c ScoredCandidate) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		scoredCandidateJSON
		DisqualificationReasons []string `json:"disqualification_reasons,omitempty"`
	}{
		scoredCandidateJSON:     scoredCandidateJSON(c),
		DisqualificationReasons: c.Composite.Reasons(),
	})
}

// UnmarshalJSON restores the reasons of a disqualified score.
// Older files without disqualification_reasons fall back to risk_flags.reasons.
func (c *ScoredCandidate) UnmarshalJSON(data []byte) error {
	var raw struct {
		scoredCandidateJSON
		DisqualificationReasons []string `json:"disqualification_reasons"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*c = ScoredCandidate(raw.scoredCandidateJSON)
	if c.Composite.IsDisqualified() {
		reasons := raw.DisqualificationReasons
		if len(reasons) == 0 {
			reasons = c.Risk.Reasons
		}
		c.Composite = Disqualified(reasons)
	}
	return nil
}

// UnknownSector is used when a candidate has no sector classification
const UnknownSector = "Unknown"

// NormalizeSector maps an empty sector to UnknownSector
func NormalizeSector(sector string) string {
	if sector == "" {
		return UnknownSector
	}
	return sector
}

// Float is a helper for building optional metrics
func Float(v float64) *float64 {
	return &v
}

// CandidateSignals is the S2 output for one candidate
// ⭐ SSOT: S2 → S3 시그널 전달
type CandidateSignals struct {
	Ticker    string       `json:"ticker"`
	Factors   FactorScores `json:"factor_scores"`
	Sentiment Sentiment    `json:"sentiment"`
}
