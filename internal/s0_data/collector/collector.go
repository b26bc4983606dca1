package collector

import (
	"context"
	"errors"
	"sync"

	"github.com/romanpTAMU/astro-llm/internal/contracts"
	"github.com/romanpTAMU/astro-llm/pkg/logger"
)

// Collector fills gaps in the candidate pool from the quote source
// ⭐ SSOT: 데이터 수집 오케스트레이션은 이 패키지에서만
type Collector struct {
	prices contracts.PriceSource
	logger *logger.Logger
}

// Config holds collector configuration
type Config struct {
	Workers int // Number of concurrent workers
}

// DefaultConfig returns the default worker count
func DefaultConfig() Config {
	return Config{Workers: 4}
}

// NewCollector creates a new Collector instance
func NewCollector(prices contracts.PriceSource, log *logger.Logger) *Collector {
	return &Collector{
		prices: prices,
		logger: log.WithField("module", "collector"),
	}
}

// FetchResult represents the result of a fetch operation
type FetchResult struct {
	Ticker string
	Price  float64
	Error  error
}

// FillPrices fetches a price for every candidate without one, in place.
// Missing quotes leave Price nil so the screener disqualifies the candidate.
func (c *Collector) FillPrices(ctx context.Context, candidates []contracts.CandidateData, cfg Config) ([]FetchResult, error) {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}

	// 1. 가격 없는 후보
	pending := make([]int, 0)
	for i, cand := range candidates {
		if cand.Price == nil || *cand.Price <= 0 {
			pending = append(pending, i)
		}
	}
	if len(pending) == 0 {
		return nil, nil
	}

	c.logger.WithFields(map[string]interface{}{
		"missing": len(pending),
		"workers": cfg.Workers,
	}).Info("Starting price collection")

	// 2. Create worker pool
	indexCh := make(chan int, len(pending))
	resultCh := make(chan indexedResult, len(pending))

	var wg sync.WaitGroup
	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			c.priceWorker(ctx, workerID, candidates, indexCh, resultCh)
		}(i)
	}

	for _, idx := range pending {
		indexCh <- idx
	}
	close(indexCh)

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	// 3. Collect results (쓰기는 여기서만)
	results := make([]FetchResult, 0, len(pending))
	successCount, missingCount, failCount := 0, 0, 0
	for r := range resultCh {
		results = append(results, r.FetchResult)
		switch {
		case r.Error == nil:
			price := r.Price
			candidates[r.index].Price = &price
			successCount++
		case errors.Is(r.Error, contracts.ErrMissingInput):
			missingCount++
		default:
			failCount++
		}
	}

	c.logger.WithFields(map[string]interface{}{
		"success": successCount,
		"missing": missingCount,
		"failed":  failCount,
		"total":   len(results),
	}).Info("Price collection completed")

	if err := ctx.Err(); err != nil {
		return results, err
	}
	return results, nil
}

type indexedResult struct {
	FetchResult
	index int
}

// priceWorker fetches prices for candidate indexes
func (c *Collector) priceWorker(ctx context.Context, workerID int, candidates []contracts.CandidateData, indexCh <-chan int, resultCh chan<- indexedResult) {
	for idx := range indexCh {
		ticker := candidates[idx].Ticker

		select {
		case <-ctx.Done():
			resultCh <- indexedResult{FetchResult{Ticker: ticker, Error: ctx.Err()}, idx}
			continue
		default:
		}

		price, err := c.prices.GetCurrentPrice(ctx, ticker)
		if err != nil {
			if !errors.Is(err, contracts.ErrMissingInput) {
				c.logger.WithError(err).WithFields(map[string]interface{}{
					"worker": workerID,
					"ticker": ticker,
				}).Error("Failed to fetch price")
			}
			resultCh <- indexedResult{FetchResult{Ticker: ticker, Error: err}, idx}
			continue
		}

		c.logger.WithFields(map[string]interface{}{
			"worker": workerID,
			"ticker": ticker,
			"price":  price,
		}).Debug("Fetched price")

		resultCh <- indexedResult{FetchResult{Ticker: ticker, Price: price}, idx}
	}
}
