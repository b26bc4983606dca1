package portfolio

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/romanpTAMU/astro-llm/internal/contracts"
	"github.com/romanpTAMU/astro-llm/pkg/logger"
)

var testSectors = []string{"Tech", "Health", "Energy", "Utilities", "Materials", "Financials"}

// rankedPool builds n candidates with scores descending by index and sectors cycling over k sectors
func rankedPool(n, k int) []contracts.ScoredCandidate {
	pool := make([]contracts.ScoredCandidate, n)
	for i := range pool {
		pool[i] = contracts.ScoredCandidate{
			Rank:      i + 1,
			Ticker:    fmt.Sprintf("T%02d", i),
			Sector:    testSectors[i%k],
			Composite: contracts.Scored(1 - float64(i)*0.01),
			Factors:   contracts.FactorScores{Quality: contracts.Float(0.7)},
		}
	}
	return pool
}

func newTestConstructor(mode string) *Constructor {
	cfg := DefaultPortfolioConfig()
	cfg.WeightingMode = mode
	c := NewConstructor(cfg, DefaultConstraints(), logger.Nop())
	c.now = func() time.Time { return time.Date(2026, 10, 19, 14, 0, 0, 0, time.UTC) }
	return c
}

func assertAllocationInvariants(t *testing.T, alloc *contracts.Allocation) {
	t.Helper()

	require.Len(t, alloc.Holdings, 20)
	assert.InDelta(t, 1.0, alloc.Sum(), contracts.WeightTolerance)

	seen := make(map[string]bool)
	for _, h := range alloc.Holdings {
		assert.False(t, seen[h.Ticker], "duplicate %s", h.Ticker)
		seen[h.Ticker] = true
		assert.GreaterOrEqual(t, h.Percent(), 2, h.Ticker)
		assert.LessOrEqual(t, h.Percent(), 10, h.Ticker)
		assert.False(t, h.Composite.IsDisqualified(), h.Ticker)
	}
	for sector, w := range alloc.SectorAllocation() {
		assert.LessOrEqual(t, w, 0.25+0.02+1e-9, sector)
	}
}

func TestConstructor_DefaultEqualWeight(t *testing.T) {
	alloc, err := newTestConstructor(WeightingEqual).Construct(context.Background(), rankedPool(30, 6), nil)
	require.NoError(t, err)

	assertAllocationInvariants(t, alloc)
	for _, h := range alloc.Holdings {
		assert.Equal(t, 5, h.Percent())
		assert.Equal(t, "Strong Quality signal", h.Rationale)
	}
	assert.NotContains(t, alloc.Tickers(), "T25")
	assert.Equal(t, time.Date(2026, 11, 2, 14, 0, 0, 0, time.UTC), alloc.HorizonEnd)
	assert.Contains(t, alloc.RunID, "20261019-140000-")
	assert.False(t, alloc.ReliesOnSectorTolerance)
}

func TestConstructor_ScoreBased(t *testing.T) {
	alloc, err := newTestConstructor(WeightingScoreBased).Construct(context.Background(), rankedPool(30, 6), nil)
	require.NoError(t, err)

	assertAllocationInvariants(t, alloc)
	w := alloc.Weights()
	assert.GreaterOrEqual(t, w["T00"], w["T19"])
}

func TestConstructor_ProposalKeepsMixedWeights(t *testing.T) {
	pool := rankedPool(25, 5)
	proposal := &contracts.ProposedAllocation{Source: "llm"}
	weights := []float64{0.081, 0.079, 0.02}
	for i := 0; i < 17; i++ {
		weights = append(weights, 0.82/17)
	}
	for i, w := range weights {
		proposal.Holdings = append(proposal.Holdings, contracts.ProposedHolding{Ticker: fmt.Sprintf("T%02d", i), Weight: w})
	}

	alloc, err := newTestConstructor(WeightingEqual).Construct(context.Background(), pool, proposal)
	require.NoError(t, err)

	assertAllocationInvariants(t, alloc)
	w := alloc.Weights()
	assert.InDelta(t, 0.08, w["T00"], 1e-9)
	assert.InDelta(t, 0.08, w["T01"], 1e-9)
	assert.InDelta(t, 0.02, w["T02"], 1e-9)
	assert.Empty(t, alloc.Warnings)
}

func TestConstructor_SingleSectorIsInfeasible(t *testing.T) {
	_, err := newTestConstructor(WeightingEqual).Construct(context.Background(), rankedPool(20, 1), nil)

	var ie *contracts.InfeasibilityError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, "sector_cap", ie.Stage)
}

func TestConstructor_SectorSwapSkipsBlacklist(t *testing.T) {
	pool := make([]contracts.ScoredCandidate, 0, 40)
	for i := 0; i < 20; i++ {
		pool = append(pool, contracts.ScoredCandidate{
			Ticker:    fmt.Sprintf("T%02d", i),
			Sector:    "Tech",
			Composite: contracts.Scored(1 - float64(i)*0.01),
		})
	}
	for i := 0; i < 20; i++ {
		pool = append(pool, contracts.ScoredCandidate{
			Ticker:    fmt.Sprintf("X%02d", i),
			Sector:    testSectors[1+i%5],
			Composite: contracts.Scored(0.5 - float64(i)*0.01),
		})
	}

	cons := DefaultConstraints()
	cons.BlackList = []string{"X00"}
	c := NewConstructor(DefaultPortfolioConfig(), cons, logger.Nop())

	alloc, err := c.Construct(context.Background(), pool, nil)
	require.NoError(t, err)

	assertAllocationInvariants(t, alloc)
	assert.NotContains(t, alloc.Tickers(), "X00")
	assert.Contains(t, alloc.Tickers(), "X01")
}

func TestConstructor_DisqualifiedNeverSelected(t *testing.T) {
	pool := rankedPool(25, 5)
	pool[0].Composite = contracts.Disqualified([]string{"price below floor"})
	pool[1].Composite = contracts.Disqualified([]string{"pending M&A"})

	proposal := &contracts.ProposedAllocation{Holdings: []contracts.ProposedHolding{
		{Ticker: "T00", Weight: 0.5},
		{Ticker: "T02", Weight: 0.5},
	}}

	for _, p := range []*contracts.ProposedAllocation{nil, proposal} {
		alloc, err := newTestConstructor(WeightingEqual).Construct(context.Background(), pool, p)
		require.NoError(t, err)

		assertAllocationInvariants(t, alloc)
		assert.NotContains(t, alloc.Tickers(), "T00")
		assert.NotContains(t, alloc.Tickers(), "T01")
	}
}

func TestConstructor_InfeasibleBounds(t *testing.T) {
	cons := DefaultConstraints()
	cons.TargetCount = 3
	c := NewConstructor(DefaultPortfolioConfig(), cons, logger.Nop())

	_, err := c.Construct(context.Background(), rankedPool(10, 5), nil)

	var ie *contracts.InfeasibilityError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, "max_percent", ie.Constraint)
}

func TestConstructor_NotEnoughCandidates(t *testing.T) {
	_, err := newTestConstructor(WeightingEqual).Construct(context.Background(), rankedPool(12, 6), nil)

	var ie *contracts.InfeasibilityError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, "selection", ie.Stage)
	assert.Equal(t, 8.0, ie.Shortfall)
}

func TestSanitizeProposal(t *testing.T) {
	pool := rankedPool(25, 5)
	pool[24].Composite = contracts.Disqualified([]string{"halted"})
	cons := DefaultConstraints()
	cons.TargetCount = 4
	cons.BlackList = []string{"T03"}

	proposal := &contracts.ProposedAllocation{Holdings: []contracts.ProposedHolding{
		{Ticker: "t01", Weight: 0.4, Sector: "Wrong"},
		{Ticker: "T01", Weight: 0.1},
		{Ticker: "ZZZZ", Weight: 0.2},
		{Ticker: "T24", Weight: 0.2},
		{Ticker: "T03", Weight: 0.2},
		{Ticker: "T05", Weight: -0.1},
		{Ticker: "T06", Weight: 0.3},
	}}

	picks, warnings, err := SanitizeProposal(proposal, pool, cons)
	require.NoError(t, err)
	require.Len(t, picks, 4)

	tickers := make([]string, len(picks))
	total := 0.0
	for i, p := range picks {
		tickers[i] = p.Candidate.Ticker
		total += p.Weight
	}
	// T01 and T06 kept, T00 and T02 filled from the top of the ranking
	assert.Equal(t, []string{"T01", "T06", "T00", "T02"}, tickers)
	assert.InDelta(t, 1.0, total, 1e-12)
	assert.Equal(t, "Health", picks[0].Candidate.Sector)

	assert.Len(t, warnings, 8)
}

func TestSanitizeProposal_TrimsToTargetCount(t *testing.T) {
	pool := rankedPool(10, 5)
	cons := DefaultConstraints()
	cons.TargetCount = 2

	proposal := &contracts.ProposedAllocation{Holdings: []contracts.ProposedHolding{
		{Ticker: "T00", Weight: 0.1},
		{Ticker: "T01", Weight: 0.5},
		{Ticker: "T02", Weight: 0.4},
	}}

	picks, warnings, err := SanitizeProposal(proposal, pool, cons)
	require.NoError(t, err)
	require.Len(t, picks, 2)
	assert.Equal(t, "T01", picks[0].Candidate.Ticker)
	assert.Equal(t, "T02", picks[1].Candidate.Ticker)
	assert.Len(t, warnings, 1)
}
