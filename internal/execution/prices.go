package execution

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/romanpTAMU/astro-llm/internal/contracts"
)

// StaticPrices implements contracts.PriceSource over a fixed price table
// ⭐ 실제 운영에서는 quote.Client 사용
type StaticPrices struct {
	mu     sync.RWMutex
	prices map[string]float64
}

// NewStaticPrices creates a price source from a ticker → price map
func NewStaticPrices(prices map[string]float64) *StaticPrices {
	s := &StaticPrices{prices: make(map[string]float64, len(prices))}
	for t, p := range prices {
		s.prices[strings.ToUpper(t)] = p
	}
	return s
}

// GetCurrentPrice returns the stored price or a wrapped ErrMissingInput
func (s *StaticPrices) GetCurrentPrice(ctx context.Context, ticker string) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if price, exists := s.prices[strings.ToUpper(ticker)]; exists && price > 0 {
		return price, nil
	}
	return 0, fmt.Errorf("price for %s: %w", ticker, contracts.ErrMissingInput)
}

// SetPrice sets a price
func (s *StaticPrices) SetPrice(ticker string, price float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prices[strings.ToUpper(ticker)] = price
}

// Snapshot returns a copy of the table
func (s *StaticPrices) Snapshot() map[string]float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]float64, len(s.prices))
	for t, p := range s.prices {
		out[t] = p
	}
	return out
}

var _ contracts.PriceSource = (*StaticPrices)(nil)
