package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"
	"time"

	"aax-connector/internal/config"
	"aax-connector/internal/core"
	"aax-connector/internal/exchange"
	"aax-connector/internal/exchange/aax"
)

type command struct {
	usage string
	run   func(ctx context.Context, a *app, args []string) (any, error)
}

var commands = map[string]command{
	"markets":       {"[-reload] list markets", runMarkets},
	"ticker":        {"-symbol S [-venue V]", runTicker},
	"tickers":       {"[-symbols A,B] [-venue V]", runTickers},
	"book":          {"-symbol S [-limit 20|50] [-venue V]", runBook},
	"trades":        {"-symbol S [-since T] [-limit N] [-venue V]", runTrades},
	"ohlcv":         {"-symbol S [-timeframe 1h] [-since T] [-limit N]", runOHLCV},
	"balance":       {"[-purse spot|futures|otc|savings]", runBalance},
	"create":        {"-symbol S -type T -side S -amount A [-price P] [-stop-price P]", runCreate},
	"edit":          {"-id ID [-symbol S] [-amount A] [-price P] [-stop-price P]", runEdit},
	"cancel":        {"-id ID [-symbol S] [-venue V]", runCancel},
	"cancel-all":    {"-symbol S [-venue V]", runCancelAll},
	"order":         {"-id ID [-symbol S] [-venue V]", runOrder},
	"orders":        {"[-symbol S] [-since T] [-limit N] [-venue V]", runOrders},
	"open-orders":   {"[-symbol S] [-since T] [-limit N] [-venue V]", runOpenOrders},
	"closed-orders": {"[-symbol S] [-since T] [-limit N]", runClosedOrders},
	"my-trades":     {"[-symbol S] [-since T] [-limit N] [-venue V]", runMyTrades},
	"order-trades":  {"-id ID [-symbol S] [-since T] [-limit N] [-venue V]", runOrderTrades},
	"timeframes":    {"list supported OHLCV timeframes", runTimeframes},
}

// queryFlags are the filters shared by the list commands.
type queryFlags struct {
	symbol string
	venue  string
	since  string
	limit  int
	id     string
}

func newFlagSet(name string, q *queryFlags) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.StringVar(&q.symbol, "symbol", "", "logical symbol, e.g. BTC/USDT or BTC/USDFP")
	fs.StringVar(&q.venue, "venue", "", "spot or futures; configured default when empty")
	fs.StringVar(&q.since, "since", "", "start time (YYYY-MM-DD or RFC3339, UTC)")
	fs.IntVar(&q.limit, "limit", 0, "maximum number of records")
	fs.StringVar(&q.id, "id", "", "order id")
	return fs
}

func (q queryFlags) query() (exchange.Query, error) {
	since, err := parseSince(q.since)
	if err != nil {
		return exchange.Query{}, err
	}
	return exchange.Query{Venue: core.Venue(q.venue), Since: since, Limit: q.limit}, nil
}

func parseSince(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid since %q: want YYYY-MM-DD or RFC3339", raw)
}

func parseQuery(name string, args []string) (queryFlags, exchange.Query, error) {
	var q queryFlags
	if err := newFlagSet(name, &q).Parse(args); err != nil {
		return q, exchange.Query{}, err
	}
	query, err := q.query()
	return q, query, err
}

func runMarkets(ctx context.Context, a *app, args []string) (any, error) {
	fs := flag.NewFlagSet("markets", flag.ContinueOnError)
	reload := fs.Bool("reload", false, "bypass the cached market table")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if *reload {
		a.cached = false
	}
	return a.client.LoadMarkets(ctx, *reload)
}

func runTicker(ctx context.Context, a *app, args []string) (any, error) {
	q, _, err := parseQuery("ticker", args)
	if err != nil {
		return nil, err
	}
	return a.client.FetchTicker(ctx, q.symbol, core.Venue(q.venue))
}

func runTickers(ctx context.Context, a *app, args []string) (any, error) {
	fs := flag.NewFlagSet("tickers", flag.ContinueOnError)
	symbols := fs.String("symbols", "", "comma separated logical symbols; all when empty")
	venue := fs.String("venue", "", "spot or futures")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	var list []string
	for _, s := range strings.Split(*symbols, ",") {
		if s = strings.TrimSpace(s); s != "" {
			list = append(list, s)
		}
	}
	return a.client.FetchTickers(ctx, list, core.Venue(*venue))
}

func runBook(ctx context.Context, a *app, args []string) (any, error) {
	q, _, err := parseQuery("book", args)
	if err != nil {
		return nil, err
	}
	return a.client.FetchOrderBook(ctx, q.symbol, q.limit, core.Venue(q.venue))
}

func runTrades(ctx context.Context, a *app, args []string) (any, error) {
	q, query, err := parseQuery("trades", args)
	if err != nil {
		return nil, err
	}
	return a.client.FetchTrades(ctx, q.symbol, query)
}

func runOHLCV(ctx context.Context, a *app, args []string) (any, error) {
	var q queryFlags
	fs := newFlagSet("ohlcv", &q)
	timeframe := fs.String("timeframe", "1h", "bar size")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	query, err := q.query()
	if err != nil {
		return nil, err
	}
	return a.client.FetchOHLCV(ctx, q.symbol, *timeframe, query)
}

func runTimeframes(_ context.Context, _ *app, _ []string) (any, error) {
	return aax.Timeframes(), nil
}

func runBalance(ctx context.Context, a *app, args []string) (any, error) {
	fs := flag.NewFlagSet("balance", flag.ContinueOnError)
	purse := fs.String("purse", "", "spot, futures, otc or savings")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return a.client.FetchBalance(ctx, core.Venue(*purse))
}

type orderFlags struct {
	queryFlags
	orderType string
	side      string
	tif       string
	clientID  string
	amount    config.Decimal
	price     config.Decimal
	stopPrice config.Decimal
}

func parseOrderFlags(name string, args []string) (orderFlags, error) {
	var o orderFlags
	fs := newFlagSet(name, &o.queryFlags)
	fs.StringVar(&o.orderType, "type", "", "MARKET, LIMIT, STOP or STOP-LIMIT")
	fs.StringVar(&o.side, "side", "", "BUY or SELL")
	fs.StringVar(&o.tif, "tif", "", "time in force; GTC when empty")
	fs.StringVar(&o.clientID, "client-id", "", "client order id; generated when empty")
	fs.Var(&o.amount, "amount", "order quantity")
	fs.Var(&o.price, "price", "limit price")
	fs.Var(&o.stopPrice, "stop-price", "stop trigger price")
	err := fs.Parse(args)
	return o, err
}

func runCreate(ctx context.Context, a *app, args []string) (any, error) {
	o, err := parseOrderFlags("create", args)
	if err != nil {
		return nil, err
	}
	order, err := a.client.CreateOrder(ctx, exchange.OrderRequest{
		Symbol:        o.symbol,
		Type:          o.orderType,
		Side:          o.side,
		Amount:        o.amount.Decimal,
		Price:         o.price.Null(),
		StopPrice:     o.stopPrice.Null(),
		TimeInForce:   o.tif,
		ClientOrderID: o.clientID,
		Venue:         core.Venue(o.venue),
	})
	if err != nil {
		return nil, err
	}
	a.journal("create", order)
	return order, nil
}

func runEdit(ctx context.Context, a *app, args []string) (any, error) {
	o, err := parseOrderFlags("edit", args)
	if err != nil {
		return nil, err
	}
	order, err := a.client.EditOrder(ctx, exchange.EditRequest{
		ID:        o.id,
		Symbol:    o.symbol,
		Amount:    o.amount.Null(),
		Price:     o.price.Null(),
		StopPrice: o.stopPrice.Null(),
		Venue:     core.Venue(o.venue),
	})
	if err != nil {
		return nil, err
	}
	a.journal("edit", order)
	return order, nil
}

func runCancel(ctx context.Context, a *app, args []string) (any, error) {
	q, _, err := parseQuery("cancel", args)
	if err != nil {
		return nil, err
	}
	order, err := a.client.CancelOrder(ctx, q.id, q.symbol, core.Venue(q.venue))
	if err != nil {
		if errors.Is(err, core.ErrOrderNotFound) && order.ID != "" {
			a.log.WithField("order_id", order.ID).WithField("status", order.Status).Warn("order was already terminal")
		}
		return nil, err
	}
	a.journal("cancel", order)
	return order, nil
}

func runCancelAll(ctx context.Context, a *app, args []string) (any, error) {
	q, _, err := parseQuery("cancel-all", args)
	if err != nil {
		return nil, err
	}
	return a.client.CancelAllOrders(ctx, q.symbol, core.Venue(q.venue))
}

func runOrder(ctx context.Context, a *app, args []string) (any, error) {
	q, _, err := parseQuery("order", args)
	if err != nil {
		return nil, err
	}
	return a.client.FetchOrder(ctx, q.id, q.symbol, core.Venue(q.venue))
}

func runOrders(ctx context.Context, a *app, args []string) (any, error) {
	q, query, err := parseQuery("orders", args)
	if err != nil {
		return nil, err
	}
	return a.client.FetchOrders(ctx, q.symbol, query)
}

func runOpenOrders(ctx context.Context, a *app, args []string) (any, error) {
	q, query, err := parseQuery("open-orders", args)
	if err != nil {
		return nil, err
	}
	return a.client.FetchOpenOrders(ctx, q.symbol, query)
}

func runClosedOrders(ctx context.Context, a *app, args []string) (any, error) {
	q, query, err := parseQuery("closed-orders", args)
	if err != nil {
		return nil, err
	}
	if q.venue != "" {
		return nil, fmt.Errorf("closed-orders takes its venue from the symbol and the configured default")
	}
	return a.client.FetchClosedOrders(ctx, q.symbol, query.Since, query.Limit)
}

func runMyTrades(ctx context.Context, a *app, args []string) (any, error) {
	q, query, err := parseQuery("my-trades", args)
	if err != nil {
		return nil, err
	}
	return a.client.FetchMyTrades(ctx, q.symbol, query)
}

func runOrderTrades(ctx context.Context, a *app, args []string) (any, error) {
	q, query, err := parseQuery("order-trades", args)
	if err != nil {
		return nil, err
	}
	return a.client.FetchOrderTrades(ctx, q.id, q.symbol, query)
}
