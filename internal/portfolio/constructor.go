package portfolio

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/romanpTAMU/astro-llm/internal/contracts"
	"github.com/romanpTAMU/astro-llm/pkg/logger"
)

// Weighting modes for the default (no proposal) construction path
const (
	WeightingEqual      = "equal"
	WeightingScoreBased = "score_based"
)

// Constructor implements S5: Portfolio construction
// ⭐ SSOT: S5 포트폴리오 구성 로직은 여기서만
type Constructor struct {
	config      PortfolioConfig
	constraints Constraints
	rounder     *Rounder
	rebalancer  *SectorRebalancer
	validator   *Validator
	logger      *logger.Logger
	now         func() time.Time
}

// PortfolioConfig defines portfolio construction parameters
type PortfolioConfig struct {
	WeightingMode string // "equal", "score_based"
	HorizonDays   int    // 보유 기간 (일)
	ConfigHash    string // strategy config hash recorded on the allocation
}

// DefaultPortfolioConfig returns default configuration
func DefaultPortfolioConfig() PortfolioConfig {
	return PortfolioConfig{
		WeightingMode: WeightingEqual, // 기본: 동일 비중
		HorizonDays:   14,             // 격주 리밸런싱
	}
}

// NewConstructor creates a new portfolio constructor
func NewConstructor(config PortfolioConfig, constraints Constraints, log *logger.Logger) *Constructor {
	return &Constructor{
		config:      config,
		constraints: constraints,
		rounder:     NewRounder(log),
		rebalancer:  NewSectorRebalancer(constraints.MaxIterations, log),
		validator:   NewValidator(constraints),
		logger:      log,
		now:         time.Now,
	}
}

// WithClock overrides the construction timestamp source
func (c *Constructor) WithClock(now func() time.Time) *Constructor {
	c.now = now
	return c
}

// NewRunID returns a sortable run identifier (timestamp + short uuid)
func NewRunID(t time.Time) string {
	return t.UTC().Format("20060102-150405") + "-" + uuid.NewString()[:8]
}

// Pick is one selected candidate with its continuous target weight
type Pick struct {
	Candidate contracts.ScoredCandidate
	Weight    float64
	Theme     string
	Rationale string
}

// Construct builds a validated allocation from ranked candidates.
// proposal may be nil, in which case the top qualified candidates are weighted by WeightingMode.
func (c *Constructor) Construct(ctx context.Context, ranked []contracts.ScoredCandidate, proposal *contracts.ProposedAllocation) (*contracts.Allocation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := c.checkFeasible(); err != nil {
		return nil, err
	}

	pool := make([]contracts.ScoredCandidate, len(ranked))
	copy(pool, ranked)
	sort.SliceStable(pool, func(i, j int) bool {
		return contracts.RankedBefore(pool[i], pool[j])
	})

	// 1. Select (proposal or top N)
	var (
		picks    []Pick
		warnings []string
		err      error
	)
	if proposal != nil && len(proposal.Holdings) > 0 {
		picks, warnings, err = SanitizeProposal(proposal, pool, c.constraints)
	} else {
		picks, err = c.selectTopN(pool)
	}
	if err != nil {
		return nil, err
	}

	// 2. Round
	b := c.constraints.Bounds()
	pct, err := c.rounder.Round(roundEntries(picks), b)
	if err != nil {
		return nil, fmt.Errorf("initial rounding: %w", err)
	}

	slots := make([]Slot, len(picks))
	selected := make(map[string]bool, len(picks))
	for i, p := range picks {
		slots[i] = Slot{
			Ticker:    p.Candidate.Ticker,
			Sector:    contracts.NormalizeSector(p.Candidate.Sector),
			Theme:     p.Theme,
			Rationale: p.Rationale,
			Composite: p.Candidate.Composite,
			Percent:   pct[i],
		}
		selected[p.Candidate.Ticker] = true
	}

	// 3. Sector caps
	slots, stats, err := c.rebalancer.Enforce(slots, pool, selected, b, c.constraints.CapPercent(), c.constraints.IsBlackListed)
	if err != nil {
		return nil, err
	}
	for _, s := range stats.Swaps {
		warnings = append(warnings, "sector-cap swap "+s)
	}

	// 4. Re-round
	entries := make([]RoundEntry, len(slots))
	for i, s := range slots {
		entries[i] = RoundEntry{Ticker: s.Ticker, Weight: float64(s.Percent) / 100, Composite: s.Composite}
	}
	pct, err = c.rounder.Round(entries, b)
	if err != nil {
		return nil, fmt.Errorf("final rounding: %w", err)
	}

	// 5. Allocation
	now := c.now()
	alloc := &contracts.Allocation{
		RunID:         NewRunID(now),
		Holdings:      make([]contracts.Holding, len(slots)),
		TargetCount:   c.constraints.TargetCount,
		ConstructedAt: now,
		HorizonEnd:    now.AddDate(0, 0, c.config.HorizonDays),
		ConfigHash:    c.config.ConfigHash,
	}
	for i, s := range slots {
		alloc.Holdings[i] = contracts.Holding{
			Ticker:    s.Ticker,
			Weight:    float64(pct[i]) / 100,
			Sector:    s.Sector,
			Theme:     s.Theme,
			Rationale: s.Rationale,
			Composite: s.Composite,
		}
	}
	alloc.SortByWeight()
	alloc.TotalWeight = alloc.Sum()

	// 6. Validate
	report, err := c.validator.Validate(alloc)
	if err != nil {
		return nil, err
	}
	alloc.Warnings = append(warnings, report.Warnings...)
	alloc.ReliesOnSectorTolerance = report.ReliesOnSectorTolerance

	c.logger.WithFields(map[string]interface{}{
		"run_id":       alloc.RunID,
		"positions":    len(alloc.Holdings),
		"total_weight": alloc.TotalWeight,
		"sectors":      len(alloc.SectorAllocation()),
		"swaps":        len(stats.Swaps),
		"warnings":     len(alloc.Warnings),
	}).Info("Portfolio constructed")

	return alloc, nil
}

// checkFeasible rejects bounds that can never sum to 100
func (c *Constructor) checkFeasible() error {
	b := c.constraints.Bounds()
	n := c.constraints.TargetCount
	if n*b.MinPercent > 100 {
		return &contracts.InfeasibilityError{
			Stage:      "constraints",
			Constraint: "min_percent",
			Detail:     fmt.Sprintf("%d holdings at %d%% minimum exceed 100%%", n, b.MinPercent),
			Shortfall:  float64(n*b.MinPercent - 100),
		}
	}
	if n*b.MaxPercent < 100 {
		return &contracts.InfeasibilityError{
			Stage:      "constraints",
			Constraint: "max_percent",
			Detail:     fmt.Sprintf("%d holdings at %d%% maximum cannot reach 100%%", n, b.MaxPercent),
			Shortfall:  float64(100 - n*b.MaxPercent),
		}
	}
	return nil
}

// selectTopN selects the top qualified candidates and weights them
func (c *Constructor) selectTopN(pool []contracts.ScoredCandidate) ([]Pick, error) {
	n := c.constraints.TargetCount
	picks := make([]Pick, 0, n)
	for _, cand := range pool {
		if len(picks) == n {
			break
		}
		if cand.Composite.IsDisqualified() || c.constraints.IsBlackListed(cand.Ticker) {
			continue
		}
		picks = append(picks, Pick{Candidate: cand, Theme: cand.Theme, Rationale: getActionReason(cand)})
	}

	if len(picks) < n {
		return nil, &contracts.InfeasibilityError{
			Stage:      "selection",
			Constraint: "count",
			Detail:     fmt.Sprintf("only %d qualified candidates for %d holdings", len(picks), n),
			Shortfall:  float64(n - len(picks)),
		}
	}

	switch c.config.WeightingMode {
	case WeightingScoreBased:
		scoreBasedWeight(picks)
	case WeightingEqual, "":
		equalWeight(picks)
	default:
		c.logger.WithField("mode", c.config.WeightingMode).Warn("Unknown weighting mode, using equal weight")
		equalWeight(picks)
	}

	return picks, nil
}

// equalWeight assigns equal weights to all picks
func equalWeight(picks []Pick) {
	w := 1.0 / float64(len(picks))
	for i := range picks {
		picks[i].Weight = w
	}
}

// scoreBasedWeight assigns weights proportional to (score+1)/2
func scoreBasedWeight(picks []Pick) {
	var total float64
	norm := make([]float64, len(picks))
	for i, p := range picks {
		v, _ := p.Candidate.Composite.Value()
		norm[i] = math.Max(0, (v+1.0)/2.0)
		total += norm[i]
	}

	if total == 0 {
		equalWeight(picks)
		return
	}
	for i := range picks {
		picks[i].Weight = norm[i] / total
	}
}

// SanitizeProposal turns an untrusted proposal into exactly TargetCount qualified picks
// with weights summing to 1.0. Every dropped or adjusted entry yields a warning.
func SanitizeProposal(proposal *contracts.ProposedAllocation, pool []contracts.ScoredCandidate, cons Constraints) ([]Pick, []string, error) {
	byTicker := make(map[string]contracts.ScoredCandidate, len(pool))
	for _, cand := range pool {
		if _, ok := byTicker[cand.Ticker]; !ok {
			byTicker[cand.Ticker] = cand
		}
	}

	var warnings []string
	warn := func(format string, args ...interface{}) {
		warnings = append(warnings, fmt.Sprintf(format, args...))
	}

	picks := make([]Pick, 0, len(proposal.Holdings))
	seen := make(map[string]bool)
	for _, ph := range proposal.Holdings {
		ticker := strings.ToUpper(strings.TrimSpace(ph.Ticker))
		cand, ok := byTicker[ticker]
		switch {
		case !ok:
			warn("dropped %s: not in ranked candidates", ticker)
			continue
		case cand.Composite.IsDisqualified():
			warn("dropped %s: disqualified", ticker)
			continue
		case cons.IsBlackListed(ticker):
			warn("dropped %s: blacklisted", ticker)
			continue
		case seen[ticker]:
			warn("dropped duplicate %s", ticker)
			continue
		case math.IsNaN(ph.Weight) || math.IsInf(ph.Weight, 0) || ph.Weight <= 0:
			warn("dropped %s: invalid weight %v", ticker, ph.Weight)
			continue
		}
		seen[ticker] = true

		if ph.Sector != "" && ph.Sector != contracts.NormalizeSector(cand.Sector) {
			warn("%s sector %q replaced by %q", ticker, ph.Sector, contracts.NormalizeSector(cand.Sector))
		}
		theme := ph.Theme
		if theme == "" {
			theme = cand.Theme
		}
		rationale := ph.Rationale
		if rationale == "" {
			rationale = getActionReason(cand)
		}
		picks = append(picks, Pick{Candidate: cand, Weight: ph.Weight, Theme: theme, Rationale: rationale})
	}

	n := cons.TargetCount
	if len(picks) > n {
		sort.SliceStable(picks, func(i, j int) bool {
			if picks[i].Weight != picks[j].Weight {
				return picks[i].Weight > picks[j].Weight
			}
			return contracts.RankedBefore(picks[i].Candidate, picks[j].Candidate)
		})
		for _, p := range picks[n:] {
			warn("dropped %s: proposal exceeds %d holdings", p.Candidate.Ticker, n)
		}
		picks = picks[:n]
	}

	// fill from ranking
	for _, cand := range pool {
		if len(picks) >= n {
			break
		}
		if seen[cand.Ticker] || cand.Composite.IsDisqualified() || cons.IsBlackListed(cand.Ticker) {
			continue
		}
		seen[cand.Ticker] = true
		picks = append(picks, Pick{
			Candidate: cand,
			Weight:    cons.MinWeight,
			Theme:     cand.Theme,
			Rationale: getActionReason(cand),
		})
		warn("added %s from ranking at minimum weight", cand.Ticker)
	}

	if len(picks) < n {
		return nil, warnings, &contracts.InfeasibilityError{
			Stage:      "selection",
			Constraint: "count",
			Detail:     fmt.Sprintf("only %d usable candidates for %d holdings", len(picks), n),
			Shortfall:  float64(n - len(picks)),
		}
	}

	var total float64
	for _, p := range picks {
		total += p.Weight
	}
	for i := range picks {
		picks[i].Weight /= total
	}

	return picks, warnings, nil
}

func roundEntries(picks []Pick) []RoundEntry {
	entries := make([]RoundEntry, len(picks))
	for i, p := range picks {
		entries[i] = RoundEntry{Ticker: p.Candidate.Ticker, Weight: p.Weight, Composite: p.Candidate.Composite}
	}
	return entries
}

// getActionReason generates a rationale from the strongest factor
func getActionReason(cand contracts.ScoredCandidate) string {
	topSignal := ""
	maxScore := 0.0

	f := cand.Factors
	signals := []struct {
		name  string
		score *float64
	}{
		{"Value", f.Value},
		{"Quality", f.Quality},
		{"Growth", f.Growth},
		{"Stability", f.Stability},
		{"Revisions", f.Revisions},
		{"Momentum", f.Momentum},
	}

	for _, s := range signals {
		if s.score != nil && math.Abs(*s.score) > math.Abs(maxScore) {
			maxScore = *s.score
			topSignal = s.name
		}
	}

	if maxScore > 0 {
		return "Strong " + topSignal + " signal"
	} else if maxScore < 0 {
		return "Weak " + topSignal + " signal"
	}

	return "Selected by ranking"
}
