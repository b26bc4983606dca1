package portfolio

import (
	"fmt"
	"math"
	"sort"

	"github.com/romanpTAMU/astro-llm/internal/contracts"
	"github.com/romanpTAMU/astro-llm/pkg/logger"
)

// floorEpsilon absorbs float noise so 0.29*100 floors to 29, not 28
const floorEpsilon = 1e-9

// RoundEntry is one holding with its continuous target weight
type RoundEntry struct {
	Ticker    string
	Weight    float64 // fraction of 1.0
	Composite contracts.CompositeScore
}

// Rounder maps continuous weights to integer percents summing to exactly 100
// ⭐ SSOT: 비중 정수화는 여기서만
type Rounder struct {
	logger *logger.Logger
}

// NewRounder creates a new weight rounder
func NewRounder(log *logger.Logger) *Rounder {
	return &Rounder{logger: log}
}

// Round returns integer percents (input order) within bounds and summing to 100.
// Running it on its own output returns the same percents.
func (r *Rounder) Round(entries []RoundEntry, b Bounds) ([]int, error) {
	if len(entries) == 0 {
		return nil, &contracts.InfeasibilityError{Stage: "rounder", Constraint: "count", Detail: "no holdings to round"}
	}
	if b.MinPercent < 0 || b.MinPercent > b.MaxPercent {
		return nil, &contracts.InfeasibilityError{
			Stage:      "rounder",
			Constraint: "bounds",
			Detail:     fmt.Sprintf("invalid bounds [%d, %d]", b.MinPercent, b.MaxPercent),
		}
	}

	pct := make([]int, len(entries))
	rem := make([]float64, len(entries))
	total := 0

	// 1. floor + remainder
	for i, e := range entries {
		raw := math.Max(0, e.Weight*100)
		fl := math.Floor(raw + floorEpsilon)
		pct[i] = int(fl)
		rem[i] = math.Max(0, raw-fl)
		total += pct[i]
	}

	// 2. distribute shortfall (or withdraw overshoot)
	if diff := 100 - total; diff > 0 {
		r.distribute(entries, pct, rem, diff, b)
	} else if diff < 0 {
		if err := r.withdraw(entries, pct, rem, -diff, b); err != nil {
			return nil, err
		}
	}

	// 3. minimum
	if err := r.enforceMin(entries, pct, b); err != nil {
		return nil, err
	}

	// 4. maximum
	if err := r.enforceMax(entries, pct, b); err != nil {
		return nil, err
	}

	// 5. sanity
	if err := r.fixTotal(entries, pct, b); err != nil {
		return nil, err
	}

	return pct, nil
}

// distribute hands out points by largest remainder, then higher composite
func (r *Rounder) distribute(entries []RoundEntry, pct []int, rem []float64, diff int, b Bounds) {
	order := indexOrder(len(entries), func(i, j int) bool {
		if rem[i] != rem[j] {
			return rem[i] > rem[j]
		}
		return entries[i].Composite.Better(entries[j].Composite)
	})

	for diff > 0 {
		progressed := false
		for _, i := range order {
			if diff == 0 {
				break
			}
			if pct[i] >= b.MaxPercent {
				continue
			}
			pct[i]++
			diff--
			progressed = true
		}

		if !progressed {
			// every holding is at max: bounds cannot reach 100
			r.logger.WithFields(map[string]interface{}{
				"holdings":    len(entries),
				"max_percent": b.MaxPercent,
				"remaining":   diff,
			}).Warn("All holdings at max_percent, force-incrementing past bound")

			for _, i := range order {
				if diff == 0 {
					break
				}
				pct[i]++
				diff--
			}
		}
	}
}

// withdraw removes points from the smallest remainders / weakest composites first
func (r *Rounder) withdraw(entries []RoundEntry, pct []int, rem []float64, excess int, b Bounds) error {
	order := indexOrder(len(entries), func(i, j int) bool {
		if rem[i] != rem[j] {
			return rem[i] < rem[j]
		}
		return entries[j].Composite.Better(entries[i].Composite)
	})

	for excess > 0 {
		progressed := false
		for _, i := range order {
			if excess == 0 {
				break
			}
			if pct[i] <= b.MinPercent {
				continue
			}
			pct[i]--
			excess--
			progressed = true
		}
		if !progressed {
			return &contracts.InfeasibilityError{
				Stage:      "rounder",
				Constraint: "min_percent",
				Detail:     fmt.Sprintf("%d holdings at %d%% minimum exceed 100%%", len(entries), b.MinPercent),
				Shortfall:  float64(excess),
			}
		}
	}

	return nil
}

// enforceMin raises entries below min by pulling from the largest donors
func (r *Rounder) enforceMin(entries []RoundEntry, pct []int, b Bounds) error {
	for i := range pct {
		if pct[i] >= b.MinPercent {
			continue
		}
		deficit := b.MinPercent - pct[i]

		donors := make([]int, 0, len(pct))
		available := 0
		for j := range pct {
			if j != i && pct[j] > b.MinPercent {
				donors = append(donors, j)
				available += pct[j] - b.MinPercent
			}
		}

		if available < deficit {
			return &contracts.InfeasibilityError{
				Stage:      "rounder",
				Constraint: "min_percent",
				Detail: fmt.Sprintf("%s needs %d pts to reach %d%%, donors can give %d",
					entries[i].Ticker, deficit, b.MinPercent, available),
				Shortfall: float64(deficit - available),
			}
		}

		sort.SliceStable(donors, func(x, y int) bool {
			a, c := donors[x], donors[y]
			if pct[a] != pct[c] {
				return pct[a] > pct[c]
			}
			return entries[c].Composite.Better(entries[a].Composite)
		})

		for _, j := range donors {
			if deficit == 0 {
				break
			}
			take := min(pct[j]-b.MinPercent, deficit)
			pct[j] -= take
			deficit -= take
		}
		pct[i] = b.MinPercent
	}

	return nil
}

// enforceMax clips entries above max and pushes the excess to the smallest entries
func (r *Rounder) enforceMax(entries []RoundEntry, pct []int, b Bounds) error {
	for i := range pct {
		if pct[i] <= b.MaxPercent {
			continue
		}
		excess := pct[i] - b.MaxPercent
		pct[i] = b.MaxPercent

		recipients := make([]int, 0, len(pct))
		for j := range pct {
			if j != i && pct[j] < b.MaxPercent {
				recipients = append(recipients, j)
			}
		}
		sort.SliceStable(recipients, func(x, y int) bool {
			a, c := recipients[x], recipients[y]
			if pct[a] != pct[c] {
				return pct[a] < pct[c]
			}
			return entries[a].Composite.Better(entries[c].Composite)
		})

		for _, j := range recipients {
			if excess == 0 {
				break
			}
			give := min(b.MaxPercent-pct[j], excess)
			pct[j] += give
			excess -= give
		}

		if excess > 0 {
			return &contracts.InfeasibilityError{
				Stage:      "rounder",
				Constraint: "max_percent",
				Detail: fmt.Sprintf("%d holdings capped at %d%% cannot absorb %s excess",
					len(entries), b.MaxPercent, entries[i].Ticker),
				Shortfall: float64(excess),
			}
		}
	}

	return nil
}

// fixTotal adjusts the best-scored entry that stays in bounds if the sum drifted
func (r *Rounder) fixTotal(entries []RoundEntry, pct []int, b Bounds) error {
	total := 0
	for _, p := range pct {
		total += p
	}
	delta := 100 - total
	if delta == 0 {
		return nil
	}

	order := indexOrder(len(entries), func(i, j int) bool {
		return entries[i].Composite.Better(entries[j].Composite)
	})
	for _, i := range order {
		next := pct[i] + delta
		if next >= b.MinPercent && next <= b.MaxPercent {
			r.logger.WithFields(map[string]interface{}{
				"ticker": entries[i].Ticker,
				"delta":  delta,
			}).Debug("Final rounding adjustment")
			pct[i] = next
			return nil
		}
	}

	return &contracts.InfeasibilityError{
		Stage:      "rounder",
		Constraint: "sum",
		Detail:     fmt.Sprintf("percents sum to %d and no single holding can absorb %+d", total, delta),
		Shortfall:  math.Abs(float64(delta)),
	}
}

// indexOrder returns 0..n-1 sorted by less, ties kept in input order
func indexOrder(n int, less func(i, j int) bool) []int {
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(x, y int) bool {
		return less(order[x], order[y])
	})
	return order
}
