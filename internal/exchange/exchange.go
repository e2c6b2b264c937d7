package exchange

import (
	"context"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"aax-connector/internal/core"
)

// Exchange is the uniform operation set exposed over both venues. Every symbol
// argument is a logical symbol, optionally carrying the futures marker.
type Exchange interface {
	Name() string
	LoadMarkets(ctx context.Context, reload bool) ([]core.Market, error)

	CreateOrder(ctx context.Context, req OrderRequest) (core.Order, error)
	EditOrder(ctx context.Context, req EditRequest) (core.Order, error)
	CancelOrder(ctx context.Context, id, symbol string, venue core.Venue) (core.Order, error)
	CancelAllOrders(ctx context.Context, symbol string, venue core.Venue) (json.RawMessage, error)

	FetchOrder(ctx context.Context, id, symbol string, venue core.Venue) (core.Order, error)
	FetchOrders(ctx context.Context, symbol string, q Query) ([]core.Order, error)
	FetchOpenOrders(ctx context.Context, symbol string, q Query) ([]core.Order, error)
	FetchClosedOrders(ctx context.Context, symbol string, since time.Time, limit int) ([]core.Order, error)
	FetchMyTrades(ctx context.Context, symbol string, q Query) ([]core.Trade, error)
	FetchOrderTrades(ctx context.Context, id, symbol string, q Query) ([]core.Trade, error)

	FetchBalance(ctx context.Context, purse core.Venue) (core.Balances, error)

	FetchTicker(ctx context.Context, symbol string, venue core.Venue) (core.Ticker, error)
	FetchTickers(ctx context.Context, symbols []string, venue core.Venue) ([]core.Ticker, error)
	FetchOrderBook(ctx context.Context, symbol string, limit int, venue core.Venue) (core.OrderBook, error)
	FetchTrades(ctx context.Context, symbol string, q Query) ([]core.Trade, error)
	FetchOHLCV(ctx context.Context, symbol, timeframe string, q Query) ([]core.OHLCV, error)
}

// Query carries the optional filters shared by the list operations. A zero
// Venue selects the configured default.
type Query struct {
	Venue   core.Venue
	Since   time.Time
	Limit   int
	OrderID string
}

// OrderRequest describes a new order. Type and Side are matched case-insensitively.
type OrderRequest struct {
	Symbol        string
	Type          string
	Side          string
	Amount        decimal.Decimal
	Price         decimal.NullDecimal
	StopPrice     decimal.NullDecimal
	TimeInForce   string
	ClientOrderID string
	Venue         core.Venue
}

// EditRequest amends quantity and/or price of an open order. Unset fields are
// left untouched on the venue.
type EditRequest struct {
	ID        string
	Symbol    string
	Amount    decimal.NullDecimal
	Price     decimal.NullDecimal
	StopPrice decimal.NullDecimal
	Venue     core.Venue
}
