package core

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

type Venue string

type Side string

type OrderType string

type OrderStatus string

const (
	VenueSpot    Venue = "spot"
	VenueFutures Venue = "futures"
	VenueOTC     Venue = "otc"
	VenueSavings Venue = "savings"
)

const (
	Buy  Side = "buy"
	Sell Side = "sell"
	// Own-trade sides come back capitalized from the venue.
	TradeBuy  Side = "Buy"
	TradeSell Side = "Sell"
)

const (
	MarketOrder     OrderType = "market"
	LimitOrder      OrderType = "limit"
	StopOrder       OrderType = "stop"
	StopLimitOrder  OrderType = "stop-limit"
	StopLossOrder   OrderType = "stop-loss"
	TakeProfitOrder OrderType = "take-profit"
)

const (
	OrderOpen     OrderStatus = "open"
	OrderClosed   OrderStatus = "closed"
	OrderCanceled OrderStatus = "canceled"
	OrderRejected OrderStatus = "rejected"
)

// Terminal reports whether no further fills can happen.
func (s OrderStatus) Terminal() bool {
	return s == OrderClosed || s == OrderCanceled || s == OrderRejected
}

type Fee struct {
	Currency string              `json:"currency,omitempty"`
	Cost     decimal.NullDecimal `json:"cost"`
	Rate     decimal.NullDecimal `json:"rate"`
}

type Order struct {
	ID                 string              `json:"id"`
	ClientOrderID      string              `json:"clientOrderId,omitempty"`
	Timestamp          time.Time           `json:"timestamp"`
	LastTradeTimestamp time.Time           `json:"lastTradeTimestamp"`
	Status             OrderStatus         `json:"status"`
	Symbol             string              `json:"symbol"`
	Type               OrderType           `json:"type"`
	Side               Side                `json:"side"`
	Price              decimal.NullDecimal `json:"price"`
	Average            decimal.NullDecimal `json:"average"`
	Amount             decimal.NullDecimal `json:"amount"`
	Filled             decimal.NullDecimal `json:"filled"`
	Remaining          decimal.NullDecimal `json:"remaining"`
	Cost               decimal.NullDecimal `json:"cost"`
	RejectReason       string              `json:"rejectReason,omitempty"`
	Fee                Fee                 `json:"fee"`
	Info               json.RawMessage     `json:"info,omitempty"`
}

type Trade struct {
	ID           string              `json:"id"`
	OrderID      string              `json:"order,omitempty"`
	Timestamp    time.Time           `json:"timestamp"`
	Symbol       string              `json:"symbol"`
	Type         OrderType           `json:"type,omitempty"`
	Side         Side                `json:"side"`
	TakerOrMaker string              `json:"takerOrMaker,omitempty"`
	Price        decimal.NullDecimal `json:"price"`
	Amount       decimal.NullDecimal `json:"amount"`
	Cost         decimal.NullDecimal `json:"cost"`
	Fee          Fee                 `json:"fee"`
	Info         json.RawMessage     `json:"info,omitempty"`
}

type Ticker struct {
	Symbol     string              `json:"symbol"`
	Timestamp  time.Time           `json:"timestamp"`
	High       decimal.NullDecimal `json:"high"`
	Low        decimal.NullDecimal `json:"low"`
	Open       decimal.NullDecimal `json:"open"`
	Close      decimal.NullDecimal `json:"close"`
	Last       decimal.NullDecimal `json:"last"`
	Change     decimal.NullDecimal `json:"change"`
	Percentage decimal.NullDecimal `json:"percentage"`
	Average    decimal.NullDecimal `json:"average"`
	Info       json.RawMessage     `json:"info,omitempty"`
}

type Balance struct {
	Free  decimal.Decimal `json:"free"`
	Used  decimal.Decimal `json:"used"`
	Total decimal.Decimal `json:"total"`
}

// Balances holds one purse worth of per-currency balances.
type Balances struct {
	Purse  Venue              `json:"purse"`
	Assets map[string]Balance `json:"assets"`
	Info   json.RawMessage    `json:"info,omitempty"`
}

type PriceLevel struct {
	Price  decimal.Decimal `json:"price"`
	Amount decimal.Decimal `json:"amount"`
}

type OrderBook struct {
	Symbol    string       `json:"symbol"`
	Timestamp time.Time    `json:"timestamp"`
	Bids      []PriceLevel `json:"bids"`
	Asks      []PriceLevel `json:"asks"`
}

// OHLCV is a single candle; Timestamp is in milliseconds.
type OHLCV struct {
	Timestamp int64           `json:"timestamp"`
	Open      decimal.Decimal `json:"open"`
	High      decimal.Decimal `json:"high"`
	Low       decimal.Decimal `json:"low"`
	Close     decimal.Decimal `json:"close"`
	Volume    decimal.Decimal `json:"volume"`
}

// Market is one entry of the venue instrument table. Symbol keeps the futures
// marker for contracts.
type Market struct {
	ID       string              `json:"id"`
	Symbol   string              `json:"symbol"`
	Base     string              `json:"base"`
	Quote    string              `json:"quote"`
	Code     string              `json:"code,omitempty"`
	Active   bool                `json:"active"`
	Maker    decimal.NullDecimal `json:"maker"`
	Taker    decimal.NullDecimal `json:"taker"`
	MinQty   decimal.NullDecimal `json:"minQty"`
	MaxQty   decimal.NullDecimal `json:"maxQty"`
	MinPrice decimal.NullDecimal `json:"minPrice"`
	MaxPrice decimal.NullDecimal `json:"maxPrice"`
}
