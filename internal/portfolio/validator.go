package portfolio

import (
	"fmt"
	"sort"

	"github.com/romanpTAMU/astro-llm/internal/contracts"
)

const (
	boundEpsilon   = 1e-9
	strictCapSlack = 0.001 // 초과분 경고 기준
)

// ValidatorConfig holds the checks applied to a finalized allocation
type ValidatorConfig struct {
	TargetCount     int
	MinWeight       float64
	MaxWeight       float64
	SectorCap       float64
	SectorTolerance float64
}

// Report carries soft findings of a passing validation
type Report struct {
	Warnings                []string
	ReliesOnSectorTolerance bool
}

// Validator checks every allocation invariant and reports all violations at once
type Validator struct {
	config ValidatorConfig
}

// NewValidator creates a validator from constraints
func NewValidator(c Constraints) *Validator {
	return &Validator{config: ValidatorConfig{
		TargetCount:     c.TargetCount,
		MinWeight:       c.MinWeight,
		MaxWeight:       c.MaxWeight,
		SectorCap:       c.SectorCap,
		SectorTolerance: c.SectorTolerance,
	}}
}

// Validate returns a Report and, when any invariant fails, a *contracts.ValidationError
func (v *Validator) Validate(alloc *contracts.Allocation) (Report, error) {
	var report Report
	verr := &contracts.ValidationError{}
	cfg := v.config

	if len(alloc.Holdings) != cfg.TargetCount {
		verr.Add("count", "expected %d holdings, got %d", cfg.TargetCount, len(alloc.Holdings))
	}

	seen := make(map[string]bool, len(alloc.Holdings))
	for _, h := range alloc.Holdings {
		if seen[h.Ticker] {
			verr.Add("duplicate", "ticker %s appears more than once", h.Ticker)
		}
		seen[h.Ticker] = true

		if h.Weight < cfg.MinWeight-boundEpsilon {
			verr.Add("min_weight", "%s weight %.4f below minimum %.4f", h.Ticker, h.Weight, cfg.MinWeight)
		}
		if h.Weight > cfg.MaxWeight+boundEpsilon {
			verr.Add("max_weight", "%s weight %.4f above maximum %.4f", h.Ticker, h.Weight, cfg.MaxWeight)
		}
		if h.Composite.IsDisqualified() {
			verr.Add("disqualified", "%s failed risk checks and cannot be held", h.Ticker)
		}
	}

	if total := alloc.Sum(); total < 1-contracts.WeightTolerance || total > 1+contracts.WeightTolerance {
		verr.Add("sum", "total weight %.4f not within %.3f of 1.0", total, contracts.WeightTolerance)
	}

	sectors := alloc.SectorAllocation()
	names := make([]string, 0, len(sectors))
	for s := range sectors {
		names = append(names, s)
	}
	sort.Strings(names)

	limit := cfg.SectorCap + cfg.SectorTolerance
	for _, s := range names {
		w := sectors[s]
		switch {
		case w > limit+boundEpsilon:
			verr.Add("sector_cap", "sector %s weight %.4f exceeds cap %.4f + tolerance %.4f", s, w, cfg.SectorCap, cfg.SectorTolerance)
		case w > cfg.SectorCap+strictCapSlack:
			report.ReliesOnSectorTolerance = true
			report.Warnings = append(report.Warnings,
				fmt.Sprintf("sector %s weight %.4f exceeds strict cap %.4f (within tolerance)", s, w, cfg.SectorCap))
		}
	}

	if verr.HasViolations() {
		return report, verr
	}
	return report, nil
}
