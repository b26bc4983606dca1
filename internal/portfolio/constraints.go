package portfolio

import (
	"fmt"
	"math"
	"slices"
)

// Constraints defines portfolio construction constraints
// ⭐ SSOT: 포트폴리오 제약조건은 여기서만
type Constraints struct {
	TargetCount     int      // 보유 종목 수
	MinWeight       float64  // 종목당 최소 비중 (0.0 ~ 1.0)
	MaxWeight       float64  // 종목당 최대 비중 (0.0 ~ 1.0)
	SectorCap       float64  // 섹터당 최대 비중 (0.0 ~ 1.0)
	SectorTolerance float64  // 리밸런스 후 허용 초과분 (0.02 = 2%p)
	MaxIterations   int      // 섹터 캡 반복 상한
	BlackList       []string // 제외 종목 리스트
}

// Bounds holds the per-holding limits in integer percent
type Bounds struct {
	MinPercent int
	MaxPercent int
}

// IsBlackListed checks if a ticker is in the blacklist
func (c *Constraints) IsBlackListed(ticker string) bool {
	return slices.Contains(c.BlackList, ticker)
}

// Bounds derives integer percent bounds by rounding the weight limits
func (c *Constraints) Bounds() Bounds {
	return Bounds{
		MinPercent: int(math.Round(c.MinWeight * 100)),
		MaxPercent: int(math.Round(c.MaxWeight * 100)),
	}
}

// CapPercent returns the sector cap in integer percent
func (c *Constraints) CapPercent() int {
	return int(math.Round(c.SectorCap * 100))
}

// Validate checks the constraints are internally consistent
func (c *Constraints) Validate() error {
	if c.TargetCount <= 0 {
		return fmt.Errorf("target_count must be positive, got %d", c.TargetCount)
	}
	if c.MinWeight < 0 || c.MaxWeight <= 0 || c.MinWeight > c.MaxWeight {
		return fmt.Errorf("invalid weight bounds [%v, %v]", c.MinWeight, c.MaxWeight)
	}
	if c.SectorCap <= 0 || c.SectorCap > 1 {
		return fmt.Errorf("sector_cap must be in (0, 1], got %v", c.SectorCap)
	}
	if c.SectorTolerance < 0 {
		return fmt.Errorf("sector_tolerance must be non-negative, got %v", c.SectorTolerance)
	}
	if c.MaxIterations <= 0 {
		return fmt.Errorf("max_iterations must be positive, got %d", c.MaxIterations)
	}
	return nil
}

// DefaultConstraints returns default constraint configuration
// SSOT: config/strategy.yaml portfolio
func DefaultConstraints() Constraints {
	return Constraints{
		TargetCount:     20,
		MinWeight:       0.02, // 종목당 최소 2%
		MaxWeight:       0.10, // 종목당 최대 10%
		SectorCap:       0.25, // 섹터당 최대 25%
		SectorTolerance: 0.02,
		MaxIterations:   100,
		BlackList:       []string{},
	}
}
