package contracts

import "github.com/shopspring/decimal"

// OrderSide represents buy or sell
type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

// Code returns the single-letter export code (B/S)
func (s OrderSide) Code() string {
	if s == OrderSideSell {
		return "S"
	}
	return "B"
}

// PriceOrigin describes where an order price came from
type PriceOrigin string

const (
	PriceCurrent  PriceOrigin = "current"
	PriceFetched  PriceOrigin = "fetched"
	PricePrevious PriceOrigin = "previous"
)

// TradeOrder is one line of a rebalance batch
// ⭐ SSOT: S6 diff → trade export 전달
type TradeOrder struct {
	Side        OrderSide       `json:"side"`
	Ticker      string          `json:"ticker"`
	Qty         int64           `json:"qty"`
	Price       decimal.Decimal `json:"price"`
	Principal   decimal.Decimal `json:"principal"`
	PriceSource PriceOrigin     `json:"price_source"`
}

// NewTradeOrder builds an order with price rounded to 4 places and principal to cents
func NewTradeOrder(side OrderSide, ticker string, qty int64, price float64, source PriceOrigin) TradeOrder {
	p := decimal.NewFromFloat(price).Round(4)
	return TradeOrder{
		Side:        side,
		Ticker:      ticker,
		Qty:         qty,
		Price:       p,
		Principal:   p.Mul(decimal.NewFromInt(qty)).Round(2),
		PriceSource: source,
	}
}

// SignedQty returns +qty for buys and -qty for sells
func (o TradeOrder) SignedQty() int64 {
	if o.Side == OrderSideSell {
		return -o.Qty
	}
	return o.Qty
}
