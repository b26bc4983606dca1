package portfolio

import (
	"fmt"
	"sort"

	"github.com/romanpTAMU/astro-llm/internal/contracts"
	"github.com/romanpTAMU/astro-llm/pkg/logger"
)

// DefaultMaxIterations bounds the sector-cap repair loop
const DefaultMaxIterations = 100

// trimCount is the number of lowest-weight holdings trimmed per iteration
const trimCount = 2

// Slot is a rounded holding while the allocation is being repaired
type Slot struct {
	Ticker    string
	Sector    string
	Theme     string
	Rationale string
	Composite contracts.CompositeScore
	Percent   int
}

// SectorRebalancer trims and swaps holdings until every sector is within the cap
// ⭐ SSOT: 섹터 캡 조정은 여기서만
type SectorRebalancer struct {
	maxIterations int
	logger        *logger.Logger
}

// RebalanceStats summarises one Enforce call
type RebalanceStats struct {
	Iterations  int
	PointsMoved int
	Swaps       []string // "OLD→NEW"
}

// NewSectorRebalancer creates a new sector-cap rebalancer
func NewSectorRebalancer(maxIterations int, log *logger.Logger) *SectorRebalancer {
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}
	return &SectorRebalancer{maxIterations: maxIterations, logger: log}
}

// Enforce mutates slots (and selected) until no sector exceeds capPercent.
// Swaps pull replacements from ranked, best first, skipping tickers for which
// exclude returns true (nil excludes nothing).
func (r *SectorRebalancer) Enforce(
	slots []Slot,
	ranked []contracts.ScoredCandidate,
	selected map[string]bool,
	b Bounds,
	capPercent int,
	exclude func(ticker string) bool,
) ([]Slot, RebalanceStats, error) {
	var stats RebalanceStats

	pool := make([]contracts.ScoredCandidate, 0, len(ranked))
	for _, c := range ranked {
		if exclude != nil && exclude(c.Ticker) {
			continue
		}
		pool = append(pool, c)
	}
	sort.SliceStable(pool, func(i, j int) bool {
		return contracts.RankedBefore(pool[i], pool[j])
	})

	for stats.Iterations < r.maxIterations {
		sums := sectorSums(slots)
		sector, over := mostOverweight(sums, capPercent)
		if over <= 0 {
			if stats.Iterations > 0 {
				r.logger.WithFields(map[string]interface{}{
					"iterations":   stats.Iterations,
					"points_moved": stats.PointsMoved,
					"swaps":        len(stats.Swaps),
				}).Info("Sector caps satisfied")
			}
			return slots, stats, nil
		}
		stats.Iterations++

		// 1. trim
		moved := r.trim(slots, sums, sector, over, b, capPercent)
		stats.PointsMoved += moved
		if moved >= over {
			continue
		}

		// 2. swap
		sums = sectorSums(slots)
		swap, err := r.swap(slots, pool, selected, sums, sector, capPercent)
		if err != nil {
			return nil, stats, err
		}
		stats.Swaps = append(stats.Swaps, swap)
	}

	sums := sectorSums(slots)
	if sector, over := mostOverweight(sums, capPercent); over > 0 {
		return nil, stats, &contracts.InfeasibilityError{
			Stage:      "sector_cap",
			Constraint: "iterations",
			Detail:     fmt.Sprintf("sector %s still at %d%% after %d iterations", sector, sums[sector], r.maxIterations),
			Shortfall:  float64(over),
		}
	}
	return slots, stats, nil
}

// trim moves points from the two lowest-weight members of sector to holdings outside it
func (r *SectorRebalancer) trim(slots []Slot, sums map[string]int, sector string, over int, b Bounds, capPercent int) int {
	members := make([]int, 0)
	for i, s := range slots {
		if s.Sector == sector {
			members = append(members, i)
		}
	}
	sort.SliceStable(members, func(x, y int) bool {
		a, c := slots[members[x]], slots[members[y]]
		if a.Percent != c.Percent {
			return a.Percent < c.Percent
		}
		return c.Composite.Better(a.Composite)
	})
	if len(members) > trimCount {
		members = members[:trimCount]
	}

	moved := 0
	for _, m := range members {
		for moved < over && slots[m].Percent > b.MinPercent {
			to := r.recipient(slots, sums, sector, b, capPercent)
			if to < 0 {
				return moved
			}
			slots[m].Percent--
			slots[to].Percent++
			sums[sector]--
			sums[slots[to].Sector]++
			moved++
		}
	}

	if moved > 0 {
		r.logger.WithFields(map[string]interface{}{
			"sector": sector,
			"moved":  moved,
			"over":   over,
		}).Debug("Trimmed overweight sector")
	}
	return moved
}

// recipient picks the best-scored holding outside sector that can take one point
func (r *SectorRebalancer) recipient(slots []Slot, sums map[string]int, sector string, b Bounds, capPercent int) int {
	best := -1
	for i, s := range slots {
		if s.Sector == sector || s.Percent >= b.MaxPercent || sums[s.Sector]+1 > capPercent {
			continue
		}
		if best < 0 || s.Composite.Better(slots[best].Composite) ||
			(s.Composite.Equal(slots[best].Composite) && s.Ticker < slots[best].Ticker) {
			best = i
		}
	}
	return best
}

// swap replaces the weakest member of sector with the best admissible unselected candidate
func (r *SectorRebalancer) swap(
	slots []Slot,
	pool []contracts.ScoredCandidate,
	selected map[string]bool,
	sums map[string]int,
	sector string,
	capPercent int,
) (string, error) {
	victim := -1
	for i, s := range slots {
		if s.Sector != sector {
			continue
		}
		if victim < 0 || slots[victim].Composite.Better(s.Composite) ||
			(s.Composite.Equal(slots[victim].Composite) && s.Ticker > slots[victim].Ticker) {
			victim = i
		}
	}
	if victim < 0 {
		return "", &contracts.InfeasibilityError{Stage: "sector_cap", Constraint: "sector_cap", Detail: "no holdings in sector " + sector}
	}

	freed := slots[victim].Percent
	after := make(map[string]int, len(sums))
	for k, v := range sums {
		after[k] = v
	}
	after[sector] -= freed

	for _, c := range pool {
		if selected[c.Ticker] || c.Composite.IsDisqualified() {
			continue
		}
		cs := contracts.NormalizeSector(c.Sector)
		if after[cs]+freed > capPercent {
			continue
		}

		old := slots[victim].Ticker
		slots[victim] = Slot{
			Ticker:    c.Ticker,
			Sector:    cs,
			Theme:     c.Theme,
			Rationale: fmt.Sprintf("sector-cap replacement for %s", old),
			Composite: c.Composite,
			Percent:   freed,
		}
		delete(selected, old)
		selected[c.Ticker] = true

		r.logger.WithFields(map[string]interface{}{
			"sector":  sector,
			"removed": old,
			"added":   c.Ticker,
			"percent": freed,
		}).Info("Swapped holding to satisfy sector cap")

		return old + "→" + c.Ticker, nil
	}

	return "", &contracts.InfeasibilityError{
		Stage:      "sector_cap",
		Constraint: "sector_cap",
		Detail: fmt.Sprintf("sector %s at %d%% exceeds %d%% cap and no replacement candidate fits",
			sector, sums[sector], capPercent),
		Shortfall: float64(sums[sector] - capPercent),
	}
}

func sectorSums(slots []Slot) map[string]int {
	sums := make(map[string]int)
	for _, s := range slots {
		sums[s.Sector] += s.Percent
	}
	return sums
}

// mostOverweight returns the sector furthest above cap (ties by name)
func mostOverweight(sums map[string]int, capPercent int) (string, int) {
	sector, over := "", 0
	for s, v := range sums {
		o := v - capPercent
		if o > over || (o == over && o > 0 && s < sector) {
			sector, over = s, o
		}
	}
	return sector, over
}
