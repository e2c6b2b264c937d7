package aax

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"aax-connector/internal/core"
	"aax-connector/internal/exchange"
)

const (
	defaultOrderBookLevel = 20
	defaultOHLCVLimit     = 500
	defaultTradesLimit    = 100
	maxTradesLimit        = 2000
)

// timeframes maps the unified names to the bar length in minutes.
var timeframes = map[string]int{
	"1m":  1,
	"5m":  5,
	"15m": 15,
	"30m": 30,
	"1h":  60,
	"2h":  120,
	"4h":  240,
	"12h": 720,
	"1d":  1440,
	"3d":  4320,
	"1w":  10080,
}

// TimeframeDuration reports the bar length of a supported timeframe.
func TimeframeDuration(timeframe string) (time.Duration, bool) {
	minutes, ok := timeframes[timeframe]
	return time.Duration(minutes) * time.Minute, ok
}

func Timeframes() []string {
	return []string{"1m", "5m", "15m", "30m", "1h", "2h", "4h", "12h", "1d", "3d", "1w"}
}

func (c *Client) FetchTicker(ctx context.Context, symbol string, venue core.Venue) (core.Ticker, error) {
	const op = "fetchTicker"
	route, err := c.router.Resolve(symbol, venue)
	if err != nil {
		return core.Ticker{}, wrapOp(op, err)
	}
	if err := c.ensureMarkets(ctx); err != nil {
		return core.Ticker{}, err
	}
	market, err := c.market(op, route)
	if err != nil {
		return core.Ticker{}, err
	}
	all, err := c.tickers(ctx, op)
	if err != nil {
		return core.Ticker{}, err
	}
	for _, raw := range all.Tickers {
		var head struct {
			Symbol string `json:"s"`
		}
		if err := json.Unmarshal(raw, &head); err != nil {
			return core.Ticker{}, wrapOp(op, badResponse("ticker", err))
		}
		if head.Symbol != market.ID {
			continue
		}
		t, err := parseTicker(raw, all.Time, "", &market)
		return t, wrapOp(op, err)
	}
	return core.Ticker{}, opError(op, core.ErrBadResponse, "no ticker for %s", market.ID)
}

// FetchTickers returns tickers in the order the venue reports them. A spot
// pair and its futures contract share a logical symbol, so both come back as
// separate records. An empty symbol list returns every ticker.
func (c *Client) FetchTickers(ctx context.Context, symbols []string, venue core.Venue) ([]core.Ticker, error) {
	const op = "fetchTickers"
	if err := c.ensureMarkets(ctx); err != nil {
		return nil, err
	}
	wanted := make(map[string]string, len(symbols))
	for _, symbol := range symbols {
		route, err := c.router.Resolve(symbol, venue)
		if err != nil {
			return nil, wrapOp(op, err)
		}
		market, err := c.market(op, route)
		if err != nil {
			return nil, err
		}
		wanted[market.ID] = route.Symbol
	}
	all, err := c.tickers(ctx, op)
	if err != nil {
		return nil, err
	}
	n := c.norm()
	out := make([]core.Ticker, 0, len(all.Tickers))
	for _, raw := range all.Tickers {
		var head struct {
			Symbol string `json:"s"`
		}
		if err := json.Unmarshal(raw, &head); err != nil {
			return nil, wrapOp(op, badResponse("ticker", err))
		}
		remap := n.symbolFor(head.Symbol)
		if len(wanted) > 0 {
			symbol, ok := wanted[head.Symbol]
			if !ok {
				continue
			}
			remap = symbol
		}
		t, err := parseTicker(raw, all.Time, remap, nil)
		if err != nil {
			return nil, wrapOp(op, err)
		}
		out = append(out, t)
	}
	return out, nil
}

func (c *Client) tickers(ctx context.Context, op string) (wireTickers, error) {
	body, err := c.public(ctx, op, "/v2/market/tickers", nil)
	if err != nil {
		return wireTickers{}, err
	}
	var all wireTickers
	if err := json.Unmarshal(body, &all); err != nil {
		return wireTickers{}, wrapOp(op, badResponse("tickers", err))
	}
	return all, nil
}

// FetchOrderBook returns the top levels of the book. limit is 20 or 50; zero
// selects 20.
func (c *Client) FetchOrderBook(ctx context.Context, symbol string, limit int, venue core.Venue) (core.OrderBook, error) {
	const op = "fetchOrderBook"
	if limit == 0 {
		limit = defaultOrderBookLevel
	}
	if limit != 20 && limit != 50 {
		return core.OrderBook{}, opError(op, core.ErrBadRequest, "limit must be 20 or 50, got %d", limit)
	}
	route, err := c.router.Resolve(symbol, venue)
	if err != nil {
		return core.OrderBook{}, wrapOp(op, err)
	}
	if err := c.ensureMarkets(ctx); err != nil {
		return core.OrderBook{}, err
	}
	market, err := c.market(op, route)
	if err != nil {
		return core.OrderBook{}, err
	}
	body, err := c.public(ctx, op, "/v2/market/orderbook", Params{"symbol": market.ID, "level": limit})
	if err != nil {
		return core.OrderBook{}, err
	}
	book, err := parseOrderBook(market.Symbol, body)
	return book, wrapOp(op, err)
}

func (c *Client) FetchTrades(ctx context.Context, symbol string, q exchange.Query) ([]core.Trade, error) {
	const op = "fetchTrades"
	route, err := c.router.Resolve(symbol, q.Venue)
	if err != nil {
		return nil, wrapOp(op, err)
	}
	if err := c.ensureMarkets(ctx); err != nil {
		return nil, err
	}
	market, err := c.market(op, route)
	if err != nil {
		return nil, err
	}
	limit := q.Limit
	if limit <= 0 {
		limit = defaultTradesLimit
	}
	if limit > maxTradesLimit {
		limit = maxTradesLimit
	}
	body, err := c.public(ctx, op, "/v2/market/trades", Params{"symbol": market.ID, "limit": limit})
	if err != nil {
		return nil, err
	}
	var w wireTrades
	if err := json.Unmarshal(body, &w); err != nil {
		return nil, wrapOp(op, badResponse("trades", err))
	}
	trades, err := parsePublicTrades(w.Trades, &market, q.Since, q.Limit)
	return trades, wrapOp(op, err)
}

// FetchOHLCV returns candles oldest first with millisecond timestamps.
func (c *Client) FetchOHLCV(ctx context.Context, symbol, timeframe string, q exchange.Query) ([]core.OHLCV, error) {
	const op = "fetchOHLCV"
	scale, ok := timeframes[timeframe]
	if !ok {
		return nil, opError(op, core.ErrBadRequest, "unsupported timeframe %q", timeframe)
	}
	route, err := c.router.Resolve(symbol, q.Venue)
	if err != nil {
		return nil, wrapOp(op, err)
	}
	if err := c.ensureMarkets(ctx); err != nil {
		return nil, err
	}
	market, err := c.market(op, route)
	if err != nil {
		return nil, err
	}
	limit := q.Limit
	if limit <= 0 {
		limit = defaultOHLCVLimit
	}
	params := Params{
		"limit":      limit,
		"base":       market.Base,
		"quote":      market.Quote + market.Code,
		"format":     "array",
		"date_scale": scale,
	}
	if !q.Since.IsZero() {
		params["timestamp"] = q.Since.Unix()
	}
	body, err := c.public(ctx, op, "/marketdata/v1/getHistMarketData", params)
	if err != nil {
		return nil, err
	}
	body, err = unwrapArray(body)
	if err != nil {
		return nil, wrapOp(op, err)
	}
	candles, err := parseOHLCVs(body)
	return candles, wrapOp(op, err)
}

// unwrapArray accepts a bare JSON array or one wrapped in the data field.
func unwrapArray(body []byte) ([]byte, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return trimmed, nil
	}
	var env envelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, badResponse("ohlcv", err)
	}
	if env.Code != nil && *env.Code != apiCodeSuccess {
		return nil, fmt.Errorf("%w: code %d: %s", core.ErrBadResponse, *env.Code, env.Message)
	}
	return env.Data, nil
}
