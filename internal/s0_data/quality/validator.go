package quality

import (
	"fmt"
	"sort"
	"time"

	"github.com/romanpTAMU/astro-llm/internal/contracts"
	"github.com/romanpTAMU/astro-llm/pkg/logger"
)

// QualityGate validates candidate pool coverage before scoring
type QualityGate struct {
	config Config
	logger *logger.Logger
}

// Config holds quality gate thresholds (fraction of candidates with the field)
type Config struct {
	MinCandidates           int     `yaml:"min_candidates"`            // 후보 최소 수
	MinPriceCoverage        float64 `yaml:"min_price_coverage"`        // 필수
	MinVolumeCoverage       float64 `yaml:"min_volume_coverage"`       // 필수
	MinSectorCoverage       float64 `yaml:"min_sector_coverage"`       // 경고만
	MinFundamentalsCoverage float64 `yaml:"min_fundamentals_coverage"` // 경고만
	MinAnalystCoverage      float64 `yaml:"min_analyst_coverage"`      // 경고만
}

// DefaultConfig returns the default thresholds
func DefaultConfig() Config {
	return Config{
		MinCandidates:           20,
		MinPriceCoverage:        0.95,
		MinVolumeCoverage:       0.95,
		MinSectorCoverage:       0.90,
		MinFundamentalsCoverage: 0.60,
		MinAnalystCoverage:      0.50,
	}
}

// Snapshot is the coverage report of one candidate pool
type Snapshot struct {
	Date         time.Time          `json:"date"`
	Total        int                `json:"total"`
	Coverage     map[string]float64 `json:"coverage"`
	QualityScore float64            `json:"quality_score"`
	Passed       bool               `json:"passed"`
	Failures     []string           `json:"failures,omitempty"`
	Warnings     []string           `json:"warnings,omitempty"`
}

// GateError is returned when a required coverage threshold is not met
type GateError struct {
	Failures []string
}

func (e *GateError) Error() string {
	return fmt.Sprintf("data quality gate failed: %v", e.Failures)
}

// NewQualityGate creates a new QualityGate instance
func NewQualityGate(config Config, log *logger.Logger) *QualityGate {
	return &QualityGate{
		config: config,
		logger: log,
	}
}

// Check computes coverage for the pool. Required fields below threshold
// produce a *GateError alongside the snapshot.
// ⭐ SSOT: S0 → S3 품질 검증
func (g *QualityGate) Check(date time.Time, candidates []contracts.CandidateData) (*Snapshot, error) {
	snapshot := &Snapshot{
		Date:     date,
		Total:    len(candidates),
		Coverage: coverage(candidates),
	}
	snapshot.QualityScore = score(snapshot.Coverage)

	if len(candidates) < g.config.MinCandidates {
		snapshot.Failures = append(snapshot.Failures,
			fmt.Sprintf("candidates %d below minimum %d", len(candidates), g.config.MinCandidates))
	}

	required := map[string]float64{
		"price":  g.config.MinPriceCoverage,
		"volume": g.config.MinVolumeCoverage,
	}
	advisory := map[string]float64{
		"sector":       g.config.MinSectorCoverage,
		"fundamentals": g.config.MinFundamentalsCoverage,
		"analyst":      g.config.MinAnalystCoverage,
	}
	snapshot.Failures = append(snapshot.Failures, belowThreshold(snapshot.Coverage, required)...)
	snapshot.Warnings = belowThreshold(snapshot.Coverage, advisory)
	snapshot.Passed = len(snapshot.Failures) == 0

	g.logger.WithFields(map[string]interface{}{
		"total":         snapshot.Total,
		"quality_score": snapshot.QualityScore,
		"passed":        snapshot.Passed,
		"warnings":      len(snapshot.Warnings),
	}).Info("Quality gate checked")

	if !snapshot.Passed {
		return snapshot, &GateError{Failures: snapshot.Failures}
	}
	return snapshot, nil
}

// coverage calculates the share of candidates carrying each data type
func coverage(candidates []contracts.CandidateData) map[string]float64 {
	counts := map[string]int{
		"price": 0, "volume": 0, "market_cap": 0, "sector": 0, "fundamentals": 0, "returns": 0, "analyst": 0,
	}
	for _, c := range candidates {
		if c.Price != nil && *c.Price > 0 {
			counts["price"]++
		}
		if c.AvgVolume != nil && *c.AvgVolume > 0 {
			counts["volume"]++
		}
		if c.MarketCap != nil {
			counts["market_cap"]++
		}
		if c.Sector != "" {
			counts["sector"]++
		}
		if hasFundamentals(c.Fundamentals) {
			counts["fundamentals"]++
		}
		if c.Returns.Return20D != nil || len(c.Returns.Daily) > 0 {
			counts["returns"]++
		}
		if c.Analyst != nil && c.Analyst.Total() > 0 {
			counts["analyst"]++
		}
	}

	out := make(map[string]float64, len(counts))
	for k, n := range counts {
		if len(candidates) == 0 {
			out[k] = 0
			continue
		}
		out[k] = float64(n) / float64(len(candidates))
	}
	return out
}

func hasFundamentals(f contracts.Fundamentals) bool {
	return f.EVToEBITDA != nil || f.PERatio != nil || f.FCFMargin != nil ||
		f.ROIC != nil || f.OperatingMargin != nil || f.RevenueGrowth != nil
}

// score weights required coverage double
func score(cov map[string]float64) float64 {
	weights := map[string]float64{
		"price": 2, "volume": 2, "market_cap": 1, "sector": 1, "fundamentals": 1, "returns": 1, "analyst": 1,
	}
	sum, total := 0.0, 0.0
	for k, w := range weights {
		sum += cov[k] * w
		total += w
	}
	return sum / total
}

func belowThreshold(cov map[string]float64, min map[string]float64) []string {
	names := make([]string, 0, len(min))
	for k := range min {
		names = append(names, k)
	}
	sort.Strings(names)

	var out []string
	for _, k := range names {
		if cov[k] < min[k] {
			out = append(out, fmt.Sprintf("%s coverage %.2f below %.2f", k, cov[k], min[k]))
		}
	}
	return out
}
