package contracts

import (
	"encoding/json"
	"sort"
	"time"
)

// WeightTolerance is the allowed deviation of the total weight from 1.0
const WeightTolerance = 0.001

// Holding is one finalized position of an Allocation
type Holding struct {
	Ticker    string         `json:"ticker"`
	Weight    float64        `json:"weight"` // fraction of 1.0, integer-percent granularity
	Sector    string         `json:"sector"`
	Theme     string         `json:"theme,omitempty"`
	Rationale string         `json:"rationale,omitempty"`
	Composite CompositeScore `json:"composite_score"`
}

// Percent returns the holding weight as an integer percent
func (h Holding) Percent() int {
	return PercentOf(h.Weight)
}

// PercentOf converts a weight fraction to the nearest integer percent
func PercentOf(weight float64) int {
	p := weight * 100
	if p < 0 {
		return int(p - 0.5)
	}
	return int(p + 0.5)
}

// Allocation is a validated target portfolio
// ⭐ SSOT: S5 → S6 목표 포트폴리오 전달
type Allocation struct {
	RunID         string    `json:"run_id"`
	Holdings      []Holding `json:"holdings"`
	TotalWeight   float64   `json:"total_weight"`
	TargetCount   int       `json:"target_count"`
	ConstructedAt time.Time `json:"constructed_at"`
	HorizonEnd    time.Time `json:"horizon_end"`
	ConfigHash    string    `json:"config_hash,omitempty"`

	// Warnings lists soft issues (e.g. sector weight inside the tolerance band)
	Warnings []string `json:"warnings,omitempty"`

	// ReliesOnSectorTolerance is set when a sector exceeds the strict cap
	ReliesOnSectorTolerance bool `json:"relies_on_sector_tolerance"`
}

// SectorAllocation sums holding weights per sector. Never stored.
func (a *Allocation) SectorAllocation() map[string]float64 {
	sectors := make(map[string]float64)
	for _, h := range a.Holdings {
		sectors[NormalizeSector(h.Sector)] += h.Weight
	}
	return sectors
}

// Tickers returns the holding tickers in allocation order
func (a *Allocation) Tickers() []string {
	tickers := make([]string, len(a.Holdings))
	for i, h := range a.Holdings {
		tickers[i] = h.Ticker
	}
	return tickers
}

// Weights returns ticker → weight
func (a *Allocation) Weights() map[string]float64 {
	weights := make(map[string]float64, len(a.Holdings))
	for _, h := range a.Holdings {
		weights[h.Ticker] = h.Weight
	}
	return weights
}

// Sum recomputes the total weight of the holdings
func (a *Allocation) Sum() float64 {
	total := 0.0
	for _, h := range a.Holdings {
		total += h.Weight
	}
	return total
}

// SortByWeight orders holdings by weight desc, then ticker
func (a *Allocation) SortByWeight() {
	sort.SliceStable(a.Holdings, func(i, j int) bool {
		if a.Holdings[i].Weight != a.Holdings[j].Weight {
			return a.Holdings[i].Weight > a.Holdings[j].Weight
		}
		return a.Holdings[i].Ticker < a.Holdings[j].Ticker
	})
}

type allocationJSON Allocation

// MarshalJSON adds the derived sector_allocation
func (a Allocation) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		allocationJSON
		SectorAllocation map[string]float64 `json:"sector_allocation"`
	}{
		allocationJSON:   allocationJSON(a),
		SectorAllocation: a.SectorAllocation(),
	})
}

// UnmarshalJSON ignores any stored sector_allocation
func (a *Allocation) UnmarshalJSON(data []byte) error {
	var raw allocationJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*a = Allocation(raw)
	return nil
}

// ProposedHolding is one untrusted entry of an upstream proposal
type ProposedHolding struct {
	Ticker    string  `json:"ticker"`
	Weight    float64 `json:"weight"`
	Sector    string  `json:"sector,omitempty"`
	Theme     string  `json:"theme,omitempty"`
	Rationale string  `json:"rationale,omitempty"`
}

// ProposedAllocation is an opaque, possibly invalid weight proposal
// (e.g. LLM-assisted selection). The constructor is free to overrule it.
type ProposedAllocation struct {
	Source   string            `json:"source,omitempty"`
	Holdings []ProposedHolding `json:"holdings"`
}
