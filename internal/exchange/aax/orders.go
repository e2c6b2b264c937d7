package aax

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"aax-connector/internal/core"
	"aax-connector/internal/exchange"
)

const closedOrderStatus = "2"

var (
	createOrderTypes = map[string]bool{"MARKET": true, "LIMIT": true, "STOP": true, "STOP-LIMIT": true}
	orderSides       = map[string]bool{"BUY": true, "SELL": true}
)

func (c *Client) CreateOrder(ctx context.Context, req exchange.OrderRequest) (core.Order, error) {
	const op = "createOrder"
	route, err := c.router.Resolve(req.Symbol, req.Venue)
	if err != nil {
		return core.Order{}, wrapOp(op, err)
	}
	orderType := strings.ToUpper(strings.TrimSpace(req.Type))
	side := strings.ToUpper(strings.TrimSpace(req.Side))
	if route.Symbol == "" || orderType == "" || side == "" || req.Amount.IsZero() {
		return core.Order{}, opError(op, core.ErrArgumentsRequired, "symbol, type, side and amount are required")
	}
	if !createOrderTypes[orderType] {
		return core.Order{}, opError(op, core.ErrBadRequest, "type must be MARKET, LIMIT, STOP or STOP-LIMIT, got %q", req.Type)
	}
	if !orderSides[side] {
		return core.Order{}, opError(op, core.ErrBadRequest, "side must be BUY or SELL, got %q", req.Side)
	}
	if req.Amount.IsNegative() {
		return core.Order{}, opError(op, core.ErrBadRequest, "amount must be positive, got %s", req.Amount)
	}
	needsPrice := orderType == "LIMIT" || orderType == "STOP-LIMIT"
	if needsPrice && (!req.Price.Valid || req.Price.Decimal.IsZero()) {
		return core.Order{}, opError(op, core.ErrArgumentsRequired, "%s order requires a price", orderType)
	}
	if err := c.requireCredentials(op); err != nil {
		return core.Order{}, err
	}
	if err := c.ensureMarkets(ctx); err != nil {
		return core.Order{}, err
	}
	market, err := c.market(op, route)
	if err != nil {
		return core.Order{}, err
	}
	tif := strings.ToUpper(strings.TrimSpace(req.TimeInForce))
	if tif == "" {
		tif = "GTC"
	}
	clientID := strings.TrimSpace(req.ClientOrderID)
	if clientID == "" {
		clientID = c.newClientOrderID()
	}
	params := Params{
		"orderType":   orderType,
		"symbol":      market.ID,
		"orderQty":    req.Amount.String(),
		"timeInForce": tif,
		"side":        side,
		"clOrdID":     clientID,
	}
	if needsPrice {
		params["price"] = req.Price.Decimal.String()
	}
	if req.StopPrice.Valid {
		params["stopPrice"] = req.StopPrice.Decimal.String()
	}
	env, err := c.private(ctx, op, http.MethodPost, venuePath(route.Venue, "orders"), params)
	if err != nil {
		return core.Order{}, err
	}
	order, err := c.norm().order(env.Data, env.TS)
	return order, wrapOp(op, err)
}

func (c *Client) EditOrder(ctx context.Context, req exchange.EditRequest) (core.Order, error) {
	const op = "editOrder"
	if strings.TrimSpace(req.ID) == "" {
		return core.Order{}, opError(op, core.ErrArgumentsRequired, "order id is required")
	}
	route, err := c.router.Resolve(req.Symbol, req.Venue)
	if err != nil {
		return core.Order{}, wrapOp(op, err)
	}
	if err := c.requireCredentials(op); err != nil {
		return core.Order{}, err
	}
	if err := c.ensureMarkets(ctx); err != nil {
		return core.Order{}, err
	}
	params := Params{"orderID": req.ID}
	if route.MarketSymbol != "" {
		market, err := c.market(op, route)
		if err != nil {
			return core.Order{}, err
		}
		params["symbol"] = market.ID
	}
	if req.Amount.Valid && !req.Amount.Decimal.IsZero() {
		params["orderQty"] = req.Amount.Decimal.String()
	}
	if req.Price.Valid && !req.Price.Decimal.IsZero() {
		params["price"] = req.Price.Decimal.String()
	}
	if req.StopPrice.Valid && !req.StopPrice.Decimal.IsZero() {
		params["stopPrice"] = req.StopPrice.Decimal.String()
	}
	env, err := c.private(ctx, op, http.MethodPut, venuePath(route.Venue, "orders"), params)
	if err != nil {
		return core.Order{}, err
	}
	order, err := c.norm().order(env.Data, env.TS)
	return order, wrapOp(op, err)
}

// CancelOrder cancels one order. When the acknowledged order is already
// closed or canceled the returned error matches core.ErrOrderNotFound and the
// order is returned alongside it.
func (c *Client) CancelOrder(ctx context.Context, id, symbol string, venue core.Venue) (core.Order, error) {
	const op = "cancelOrder"
	if strings.TrimSpace(id) == "" {
		return core.Order{}, opError(op, core.ErrArgumentsRequired, "order id is required")
	}
	route, err := c.router.Resolve(symbol, venue)
	if err != nil {
		return core.Order{}, wrapOp(op, err)
	}
	if err := c.requireCredentials(op); err != nil {
		return core.Order{}, err
	}
	if err := c.ensureMarkets(ctx); err != nil {
		return core.Order{}, err
	}
	if route.MarketSymbol != "" {
		if _, err := c.market(op, route); err != nil {
			return core.Order{}, err
		}
	}
	path := venuePath(route.Venue, "orders/cancel/"+url.PathEscape(id))
	env, err := c.privateRoute(ctx, op, http.MethodDelete, path, venuePath(route.Venue, "orders/cancel/{orderID}"), nil)
	if err != nil {
		return core.Order{}, err
	}
	order, err := c.norm().order(env.Data, env.TS)
	if err != nil {
		return core.Order{}, wrapOp(op, err)
	}
	if order.Status == core.OrderClosed || order.Status == core.OrderCanceled {
		return order, opError(op, core.ErrOrderNotFound, "order %s already %s: %s", id, order.Status, truncate(order.Info))
	}
	return order, nil
}

func (c *Client) CancelAllOrders(ctx context.Context, symbol string, venue core.Venue) (json.RawMessage, error) {
	const op = "cancelAllOrders"
	route, err := c.router.Resolve(symbol, venue)
	if err != nil {
		return nil, wrapOp(op, err)
	}
	if route.Symbol == "" {
		return nil, opError(op, core.ErrArgumentsRequired, "symbol is required")
	}
	if err := c.requireCredentials(op); err != nil {
		return nil, err
	}
	if err := c.ensureMarkets(ctx); err != nil {
		return nil, err
	}
	wireID, err := c.router.WireSymbol(c.markets, route)
	if err != nil {
		return nil, wrapOp(op, err)
	}
	env, err := c.private(ctx, op, http.MethodDelete, venuePath(route.Venue, "orders/cancel/all"), Params{"symbol": wireID})
	if err != nil {
		return nil, err
	}
	return env.Data, nil
}

// FetchOrder returns the order with the given id. Contracts are looked up on
// the futures venue even when the spot venue is selected.
func (c *Client) FetchOrder(ctx context.Context, id, symbol string, venue core.Venue) (core.Order, error) {
	const op = "fetchOrder"
	if strings.TrimSpace(id) == "" {
		return core.Order{}, opError(op, core.ErrArgumentsRequired, "order id is required")
	}
	orders, err := c.fetchOrders(ctx, op, symbol, exchange.Query{Venue: venue, OrderID: id}, "")
	if err != nil {
		return core.Order{}, err
	}
	for _, order := range orders {
		if order.ID == id {
			return order, nil
		}
	}
	return core.Order{}, opError(op, core.ErrOrderNotFound, "order %s", id)
}

func (c *Client) FetchOrders(ctx context.Context, symbol string, q exchange.Query) ([]core.Order, error) {
	return c.fetchOrders(ctx, "fetchOrders", symbol, q, "")
}

// FetchClosedOrders lists closed orders. The venue is taken from the symbol
// and the configured default only.
func (c *Client) FetchClosedOrders(ctx context.Context, symbol string, since time.Time, limit int) ([]core.Order, error) {
	return c.fetchOrders(ctx, "fetchClosedOrders", symbol, exchange.Query{Since: since, Limit: limit}, closedOrderStatus)
}

func (c *Client) fetchOrders(ctx context.Context, op, symbol string, q exchange.Query, status string) ([]core.Order, error) {
	route, err := c.router.Resolve(symbol, q.Venue)
	if err != nil {
		return nil, wrapOp(op, err)
	}
	if err := c.requireCredentials(op); err != nil {
		return nil, err
	}
	if err := c.ensureMarkets(ctx); err != nil {
		return nil, err
	}
	params := sinceLimit(q.Since, q.Limit)
	if q.OrderID != "" {
		params["orderID"] = q.OrderID
	}
	if status != "" {
		params["orderStatus"] = status
	}
	if route.MarketSymbol != "" {
		market, err := c.market(op, route)
		if err != nil {
			return nil, err
		}
		params["symbol"] = market.ID
	}
	v := core.VenueSpot
	if route.Futures() {
		v = core.VenueFutures
	}
	env, err := c.private(ctx, op, http.MethodGet, venuePath(v, "orders"), params)
	if err != nil {
		return nil, err
	}
	list, err := decodePage(op, env.Data)
	if err != nil {
		return nil, err
	}
	orders, err := c.norm().orders(list, env.TS)
	return orders, wrapOp(op, err)
}

func (c *Client) FetchOpenOrders(ctx context.Context, symbol string, q exchange.Query) ([]core.Order, error) {
	const op = "fetchOpenOrders"
	route, err := c.router.Resolve(symbol, q.Venue)
	if err != nil {
		return nil, wrapOp(op, err)
	}
	if err := c.requireCredentials(op); err != nil {
		return nil, err
	}
	if err := c.ensureMarkets(ctx); err != nil {
		return nil, err
	}
	params := sinceLimit(q.Since, q.Limit)
	if route.MarketSymbol != "" {
		market, err := c.market(op, route)
		if err != nil {
			return nil, err
		}
		params["symbol"] = market.ID
	}
	env, err := c.private(ctx, op, http.MethodGet, venuePath(route.Venue, "openOrders"), params)
	if err != nil {
		return nil, err
	}
	list, err := decodePage(op, env.Data)
	if err != nil {
		return nil, err
	}
	orders, err := c.norm().orders(list, env.TS)
	return orders, wrapOp(op, err)
}

func (c *Client) FetchMyTrades(ctx context.Context, symbol string, q exchange.Query) ([]core.Trade, error) {
	return c.fetchMyTrades(ctx, "fetchMyTrades", symbol, q)
}

func (c *Client) FetchOrderTrades(ctx context.Context, id, symbol string, q exchange.Query) ([]core.Trade, error) {
	const op = "fetchOrderTrades"
	if strings.TrimSpace(id) == "" {
		return nil, opError(op, core.ErrArgumentsRequired, "order id is required")
	}
	q.OrderID = id
	return c.fetchMyTrades(ctx, op, symbol, q)
}

func (c *Client) fetchMyTrades(ctx context.Context, op, symbol string, q exchange.Query) ([]core.Trade, error) {
	route, err := c.router.Resolve(symbol, q.Venue)
	if err != nil {
		return nil, wrapOp(op, err)
	}
	if err := c.requireCredentials(op); err != nil {
		return nil, err
	}
	if err := c.ensureMarkets(ctx); err != nil {
		return nil, err
	}
	params := sinceLimit(q.Since, q.Limit)
	if q.OrderID != "" {
		params["orderID"] = q.OrderID
	}
	if route.MarketSymbol != "" {
		market, err := c.market(op, route)
		if err != nil {
			return nil, err
		}
		params["symbol"] = market.ID
	}
	env, err := c.private(ctx, op, http.MethodGet, venuePath(route.Venue, "trades"), params)
	if err != nil {
		return nil, err
	}
	list, err := decodePage(op, env.Data)
	if err != nil {
		return nil, err
	}
	trades, err := c.norm().myTrades(list)
	return trades, wrapOp(op, err)
}

func sinceLimit(since time.Time, limit int) Params {
	params := Params{}
	if !since.IsZero() {
		params["startDate"] = since.UTC().Format("2006-01-02")
	}
	if limit > 0 {
		params["pageSize"] = limit
	}
	return params
}
