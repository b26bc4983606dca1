package execution

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/romanpTAMU/astro-llm/internal/contracts"
	"github.com/romanpTAMU/astro-llm/pkg/logger"
)

// DiffInput is everything one rebalance needs
type DiffInput struct {
	RunID         string
	RunDate       time.Time
	Current       *contracts.Allocation
	CurrentPrices map[string]float64
	Notional      float64

	// Previous is nil for the initial build
	Previous       *contracts.Allocation
	PreviousPrices map[string]float64
}

// DiffResult is the ordered trade batch plus the period P&L
type DiffResult struct {
	Orders      []contracts.TradeOrder    `json:"orders"`
	PnL         *contracts.PnLLedgerEntry `json:"period_pnl,omitempty"` // nil without a previous allocation
	TargetQty   map[string]int64          `json:"target_qty"`
	PreviousQty map[string]int64          `json:"previous_qty,omitempty"`
	Skipped     []string                  `json:"skipped,omitempty"`
	Warnings    []string                  `json:"warnings,omitempty"`
}

// Sells returns the sell orders
func (r *DiffResult) Sells() []contracts.TradeOrder {
	return r.filter(contracts.OrderSideSell)
}

// Buys returns the buy orders
func (r *DiffResult) Buys() []contracts.TradeOrder {
	return r.filter(contracts.OrderSideBuy)
}

func (r *DiffResult) filter(side contracts.OrderSide) []contracts.TradeOrder {
	out := make([]contracts.TradeOrder, 0)
	for _, o := range r.Orders {
		if o.Side == side {
			out = append(out, o)
		}
	}
	return out
}

// resolvedPrice is a price with its origin
type resolvedPrice struct {
	value  float64
	source contracts.PriceOrigin
}

// DiffEngine implements S6: Rebalance diff (target quantities → orders)
// ⭐ SSOT: S6 주문 계산 로직은 여기서만
type DiffEngine struct {
	prices contracts.PriceSource // optional fallback for missing prices
	logger *logger.Logger
}

// NewDiffEngine creates a new diff engine. prices may be nil.
func NewDiffEngine(prices contracts.PriceSource, log *logger.Logger) *DiffEngine {
	return &DiffEngine{prices: prices, logger: log}
}

// Diff computes Sell and Buy orders turning the previous allocation into the current one
func (e *DiffEngine) Diff(ctx context.Context, in DiffInput) (*DiffResult, error) {
	if in.Current == nil {
		return nil, fmt.Errorf("current allocation is required")
	}
	if in.Notional <= 0 || math.IsNaN(in.Notional) {
		return nil, fmt.Errorf("notional must be positive, got %v", in.Notional)
	}

	result := &DiffResult{
		TargetQty:   make(map[string]int64),
		PreviousQty: make(map[string]int64),
	}
	resolved := newPriceCache()
	skipped := make(map[string]bool)

	skip := func(ticker, format string, args ...interface{}) {
		if !skipped[ticker] {
			skipped[ticker] = true
			result.Skipped = append(result.Skipped, ticker)
		}
		result.Warnings = append(result.Warnings, fmt.Sprintf(format, args...))
	}

	// 1. 목표 수량 (현재 배분)
	for _, h := range in.Current.Holdings {
		p := e.resolve(ctx, h.Ticker, in.CurrentPrices, nil, resolved)
		if p == nil {
			skip(h.Ticker, "%s: no current price, holding skipped", h.Ticker)
			continue
		}
		result.TargetQty[h.Ticker] = shareQty(h.Weight, in.Notional, p.value)
	}

	// 2. 이전 수량 (이전 배분 + 이전 가격)
	if in.Previous != nil {
		for _, h := range in.Previous.Holdings {
			price, ok := positivePrice(in.PreviousPrices, h.Ticker)
			if !ok {
				p := e.resolve(ctx, h.Ticker, in.CurrentPrices, nil, resolved)
				if p == nil {
					skip(h.Ticker, "%s: no previous or current price, previous position skipped", h.Ticker)
					continue
				}
				price = p.value
				result.Warnings = append(result.Warnings,
					fmt.Sprintf("%s: no previous price, previous quantity sized at %s price", h.Ticker, p.source))
			}
			result.PreviousQty[h.Ticker] = shareQty(h.Weight, in.Notional, price)
		}
	}

	// 3. 주문 생성
	tickers := unionTickers(in.Current, in.Previous)
	sells := make([]contracts.TradeOrder, 0)
	buys := make([]contracts.TradeOrder, 0)

	for _, ticker := range tickers {
		if skipped[ticker] {
			continue
		}
		target, inCurrent := result.TargetQty[ticker]
		prev := result.PreviousQty[ticker]

		delta := target - prev
		if delta == 0 {
			continue
		}

		var p *resolvedPrice
		if inCurrent {
			p = e.resolve(ctx, ticker, in.CurrentPrices, nil, resolved)
		} else {
			// exited position: must always be sold
			p = e.resolve(ctx, ticker, in.CurrentPrices, in.PreviousPrices, resolved)
			if p == nil {
				skip(ticker, "%s: exited position has no price, sell skipped", ticker)
				continue
			}
			if p.source == contracts.PricePrevious {
				result.Warnings = append(result.Warnings,
					fmt.Sprintf("%s: no current price for exited position, using previous run price %.4f", ticker, p.value))
			}
		}

		if delta > 0 {
			buys = append(buys, contracts.NewTradeOrder(contracts.OrderSideBuy, ticker, delta, p.value, p.source))
		} else {
			sells = append(sells, contracts.NewTradeOrder(contracts.OrderSideSell, ticker, -delta, p.value, p.source))
		}
	}

	// 매도 먼저 (자금 확보), 이후 매수
	result.Orders = append(sells, buys...)

	// 4. 기간 손익
	if in.Previous != nil {
		result.PnL = e.periodPnL(ctx, in, result, resolved)
	}

	e.logger.WithFields(map[string]interface{}{
		"run_id":       in.RunID,
		"total_orders": len(result.Orders),
		"sell_orders":  len(sells),
		"buy_orders":   len(buys),
		"skipped":      len(result.Skipped),
		"initial":      in.Previous == nil,
	}).Info("Rebalance diff computed")

	return result, nil
}

// periodPnL marks the previous quantities to current prices
func (e *DiffEngine) periodPnL(ctx context.Context, in DiffInput, result *DiffResult, resolved *priceCache) *contracts.PnLLedgerEntry {
	value := 0.0
	for _, h := range in.Previous.Holdings {
		qty, ok := result.PreviousQty[h.Ticker]
		if !ok {
			continue
		}
		p := e.resolve(ctx, h.Ticker, in.CurrentPrices, in.PreviousPrices, resolved)
		if p == nil {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("%s: no price to value previous position, excluded from P&L", h.Ticker))
			continue
		}
		value += float64(qty) * p.value
	}

	return &contracts.PnLLedgerEntry{
		RunID:                         in.RunID,
		RunDate:                       in.RunDate,
		PeriodPnL:                     contracts.RoundCents(value - in.Notional),
		PortfolioValueBeforeRebalance: contracts.RoundCents(value),
		TargetNotional:                in.Notional,
	}
}

// priceCache remembers current and fetched prices; previous-run prices are never cached
type priceCache struct {
	live    map[string]resolvedPrice
	fetched map[string]bool
}

func newPriceCache() *priceCache {
	return &priceCache{live: make(map[string]resolvedPrice), fetched: make(map[string]bool)}
}

// resolve finds a price: current map → price source → previous map (when given)
func (e *DiffEngine) resolve(ctx context.Context, ticker string, current, previous map[string]float64, cache *priceCache) *resolvedPrice {
	if p, ok := cache.live[ticker]; ok {
		return &p
	}

	if v, ok := positivePrice(current, ticker); ok {
		cache.live[ticker] = resolvedPrice{value: v, source: contracts.PriceCurrent}
		return &resolvedPrice{value: v, source: contracts.PriceCurrent}
	}

	if e.prices != nil && !cache.fetched[ticker] {
		cache.fetched[ticker] = true
		v, err := e.prices.GetCurrentPrice(ctx, ticker)
		switch {
		case err == nil && v > 0:
			cache.live[ticker] = resolvedPrice{value: v, source: contracts.PriceFetched}
			return &resolvedPrice{value: v, source: contracts.PriceFetched}
		case err != nil && !errors.Is(err, contracts.ErrMissingInput):
			e.logger.WithError(err).WithField("ticker", ticker).Warn("Price fetch failed")
		}
	}

	if v, ok := positivePrice(previous, ticker); ok {
		return &resolvedPrice{value: v, source: contracts.PricePrevious}
	}

	return nil
}

// shareQty = round(weight × notional / price), half to even
func shareQty(weight, notional, price float64) int64 {
	return int64(math.RoundToEven(weight * notional / price))
}

func positivePrice(prices map[string]float64, ticker string) (float64, bool) {
	v, ok := prices[ticker]
	if !ok || v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// unionTickers returns every ticker of either allocation, sorted
func unionTickers(current, previous *contracts.Allocation) []string {
	set := make(map[string]bool)
	for _, h := range current.Holdings {
		set[h.Ticker] = true
	}
	if previous != nil {
		for _, h := range previous.Holdings {
			set[h.Ticker] = true
		}
	}

	tickers := make([]string, 0, len(set))
	for t := range set {
		tickers = append(tickers, t)
	}
	sort.Strings(tickers)
	return tickers
}
