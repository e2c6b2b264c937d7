package aax

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"aax-connector/internal/core"
)

var orderStatuses = map[string]core.OrderStatus{
	"0":  core.OrderOpen,
	"1":  core.OrderOpen,
	"2":  core.OrderClosed,
	"3":  core.OrderClosed,
	"4":  core.OrderCanceled,
	"5":  core.OrderCanceled,
	"6":  core.OrderRejected,
	"10": core.OrderCanceled,
	"11": core.OrderRejected,
}

var orderTypes = map[string]core.OrderType{
	"1": core.MarketOrder,
	"2": core.LimitOrder,
	"3": core.StopOrder,
	"4": core.StopLimitOrder,
	"7": core.StopLossOrder,
	"8": core.TakeProfitOrder,
}

var commonCurrencies = map[string]string{
	"PLA": "Plair",
}

var hundred = decimal.NewFromInt(100)

// ParseOrderStatus maps a venue status code. Unknown codes pass through.
func ParseOrderStatus(code string) core.OrderStatus {
	if status, ok := orderStatuses[code]; ok {
		return status
	}
	return core.OrderStatus(code)
}

// ParseOrderType maps a venue order type code. Unknown codes pass through.
func ParseOrderType(code string) core.OrderType {
	if t, ok := orderTypes[code]; ok {
		return t
	}
	return core.OrderType(code)
}

func parseOrderSide(code wireCode) core.Side {
	if code == "1" {
		return core.Buy
	}
	return core.Sell
}

func parseMyTradeSide(code wireCode) core.Side {
	if code == "1" {
		return core.TradeBuy
	}
	return core.TradeSell
}

func currencyCode(id string) string {
	code := strings.ToUpper(strings.TrimSpace(id))
	if mapped, ok := commonCurrencies[code]; ok {
		return mapped
	}
	return code
}

func parseDateTime(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: unparsable date-time %q", core.ErrBadResponse, raw)
}

func millis(ms int64) time.Time {
	if ms <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

func valid(d decimal.Decimal) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: d, Valid: true}
}

func mulNull(a, b decimal.NullDecimal) decimal.NullDecimal {
	if !a.Valid || !b.Valid {
		return decimal.NullDecimal{}
	}
	return valid(a.Decimal.Mul(b.Decimal))
}

func badResponse(kind string, err error) error {
	return fmt.Errorf("%w: decode %s: %v", core.ErrBadResponse, kind, err)
}

// normalizer turns wire records into canonical ones. markets resolves wire ids
// back to logical symbols.
type normalizer struct {
	markets MarketLookup
}

func (n normalizer) symbolFor(id string) string {
	if id == "" {
		return ""
	}
	if n.markets != nil {
		if m, ok := n.markets.MarketByID(id); ok {
			return StripMarker(m.Symbol)
		}
	}
	return StripMarker(id)
}

// order normalizes one order; ts is the envelope timestamp used when the
// record carries no creation time.
func (n normalizer) order(raw json.RawMessage, ts int64) (core.Order, error) {
	var w wireOrder
	if err := json.Unmarshal(raw, &w); err != nil {
		return core.Order{}, badResponse("order", err)
	}
	created, err := parseDateTime(optString(w.CreateTime))
	if err != nil {
		return core.Order{}, err
	}
	if created.IsZero() {
		created = millis(ts)
	}
	lastTrade, err := parseDateTime(optString(w.TransactTime))
	if err != nil {
		return core.Order{}, err
	}
	order := core.Order{
		ID:                 w.OrderID,
		ClientOrderID:      w.ClOrdID,
		Timestamp:          created,
		LastTradeTimestamp: lastTrade,
		Status:             ParseOrderStatus(string(w.OrderStatus)),
		Symbol:             n.symbolFor(w.Symbol),
		Type:               ParseOrderType(string(w.OrderType)),
		Side:               parseOrderSide(w.Side),
		Price:              w.Price.NullDecimal,
		Average:            w.AvgPrice.NullDecimal,
		Amount:             w.OrderQty.NullDecimal,
		Filled:             w.CumQty.NullDecimal,
		Remaining:          w.LeavesQty.NullDecimal,
		Cost:               mulNull(w.CumQty.NullDecimal, w.Price.NullDecimal),
		RejectReason:       optString(w.RejectReason),
		Fee: core.Fee{
			Currency: currencyCode(w.Quote),
			Cost:     w.Commission.NullDecimal,
		},
		Info: raw,
	}
	return order, nil
}

func (n normalizer) orders(list []json.RawMessage, ts int64) ([]core.Order, error) {
	out := make([]core.Order, 0, len(list))
	for _, raw := range list {
		order, err := n.order(raw, ts)
		if err != nil {
			return nil, err
		}
		out = append(out, order)
	}
	return out, nil
}

func (n normalizer) myTrade(raw json.RawMessage) (core.Trade, error) {
	var w wireMyTrade
	if err := json.Unmarshal(raw, &w); err != nil {
		return core.Trade{}, badResponse("trade", err)
	}
	ts, err := parseDateTime(optString(w.CreateTime))
	if err != nil {
		return core.Trade{}, err
	}
	return core.Trade{
		ID:           w.ID,
		OrderID:      w.OrderID,
		Timestamp:    ts,
		Symbol:       n.symbolFor(w.Symbol),
		Type:         ParseOrderType(string(w.OrderType)),
		Side:         parseMyTradeSide(w.Side),
		TakerOrMaker: "taker",
		Price:        w.Price.NullDecimal,
		Amount:       w.FilledQty.NullDecimal,
		Cost:         mulNull(w.Price.NullDecimal, w.FilledQty.NullDecimal),
		Fee:          core.Fee{Cost: w.Commission.NullDecimal},
		Info:         raw,
	}, nil
}

func (n normalizer) myTrades(list []json.RawMessage) ([]core.Trade, error) {
	out := make([]core.Trade, 0, len(list))
	for _, raw := range list {
		trade, err := n.myTrade(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, trade)
	}
	return out, nil
}

// parsePublicTrade derives the side from the sign of the price; price and cost
// are reported as absolute values.
func parsePublicTrade(raw json.RawMessage, market *core.Market) (core.Trade, error) {
	var w wirePublicTrade
	if err := json.Unmarshal(raw, &w); err != nil {
		return core.Trade{}, badResponse("public trade", err)
	}
	trade := core.Trade{
		ID:        string(w.TID),
		Timestamp: millis(w.Time.Value),
		Side:      core.Sell,
		Amount:    w.Qty.NullDecimal,
		Info:      raw,
	}
	if market != nil {
		trade.Symbol = StripMarker(market.Symbol)
		trade.Fee.Currency = market.Quote
	}
	if w.Price.Valid {
		if w.Price.Decimal.IsPositive() {
			trade.Side = core.Buy
		}
		trade.Price = valid(w.Price.Decimal.Abs())
	}
	if cost := mulNull(w.Price.NullDecimal, w.Qty.NullDecimal); cost.Valid {
		trade.Cost = valid(cost.Decimal.Abs())
	}
	return trade, nil
}

func parsePublicTrades(list []json.RawMessage, market *core.Market, since time.Time, limit int) ([]core.Trade, error) {
	out := make([]core.Trade, 0, len(list))
	for _, raw := range list {
		trade, err := parsePublicTrade(raw, market)
		if err != nil {
			return nil, err
		}
		if !since.IsZero() && trade.Timestamp.Before(since) {
			continue
		}
		out = append(out, trade)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

// parseTicker builds a ticker. remap is the symbol picked while filtering a
// ticker list; a supplied market wins over it.
func parseTicker(raw json.RawMessage, at int64, remap string, market *core.Market) (core.Ticker, error) {
	var w wireTicker
	if err := json.Unmarshal(raw, &w); err != nil {
		return core.Ticker{}, badResponse("ticker", err)
	}
	symbol := remap
	if market != nil {
		symbol = market.Symbol
	}
	t := core.Ticker{
		Symbol:    StripMarker(symbol),
		Timestamp: millis(at),
		High:      w.High.NullDecimal,
		Low:       w.Low.NullDecimal,
		Open:      w.Open.NullDecimal,
		Close:     w.Close.NullDecimal,
		Last:      w.Close.NullDecimal,
		Info:      raw,
	}
	if w.Close.Valid && w.Open.Valid {
		last, open := w.Close.Decimal, w.Open.Decimal
		change := last.Sub(open)
		t.Change = valid(change)
		t.Average = valid(last.Add(open).Div(decimal.NewFromInt(2)))
		if !open.IsZero() {
			t.Percentage = valid(change.Div(open).Mul(hundred))
		}
	}
	return t, nil
}

// parseOHLCVs keeps the first six fields of every row and converts the
// timestamp from seconds to milliseconds.
func parseOHLCVs(body []byte) ([]core.OHLCV, error) {
	var rows [][]json.RawMessage
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, badResponse("ohlcv", err)
	}
	out := make([]core.OHLCV, 0, len(rows))
	for i, row := range rows {
		if len(row) < 6 {
			return nil, fmt.Errorf("%w: ohlcv row %d has %d fields", core.ErrBadResponse, i, len(row))
		}
		var ts wireInt
		if err := json.Unmarshal(row[0], &ts); err != nil || !ts.Valid {
			return nil, fmt.Errorf("%w: ohlcv row %d timestamp %s", core.ErrBadResponse, i, row[0])
		}
		var fields [5]decimal.Decimal
		for j := range fields {
			var d wireDecimal
			if err := json.Unmarshal(row[j+1], &d); err != nil || !d.Valid {
				return nil, fmt.Errorf("%w: ohlcv row %d field %d %s", core.ErrBadResponse, i, j+1, row[j+1])
			}
			fields[j] = d.Decimal
		}
		out = append(out, core.OHLCV{
			Timestamp: ts.Value * 1000,
			Open:      fields[0],
			High:      fields[1],
			Low:       fields[2],
			Close:     fields[3],
			Volume:    fields[4],
		})
	}
	return out, nil
}

// parseBalances keeps rows of the requested purse; used and free default to
// zero when absent.
func parseBalances(purse core.Venue, purseID string, data json.RawMessage) (core.Balances, error) {
	var rows []wireBalance
	if err := json.Unmarshal(data, &rows); err != nil {
		return core.Balances{}, badResponse("balances", err)
	}
	out := core.Balances{Purse: purse, Assets: make(map[string]core.Balance, len(rows)), Info: data}
	for _, row := range rows {
		if row.PurseType != "" && row.PurseType != purseID {
			continue
		}
		code := currencyCode(row.Currency)
		if code == "" {
			continue
		}
		free := row.Available.Decimal
		used := row.Unavailable.Decimal
		out.Assets[code] = core.Balance{Free: free, Used: used, Total: free.Add(used)}
	}
	return out, nil
}

func parseOrderBook(symbol string, body []byte) (core.OrderBook, error) {
	var w wireOrderBook
	if err := json.Unmarshal(body, &w); err != nil {
		return core.OrderBook{}, badResponse("order book", err)
	}
	bids, err := parseLevels(w.Bids)
	if err != nil {
		return core.OrderBook{}, err
	}
	asks, err := parseLevels(w.Asks)
	if err != nil {
		return core.OrderBook{}, err
	}
	return core.OrderBook{
		Symbol:    StripMarker(symbol),
		Timestamp: millis(w.Time.Value),
		Bids:      bids,
		Asks:      asks,
	}, nil
}

func parseLevels(rows [][]wireDecimal) ([]core.PriceLevel, error) {
	out := make([]core.PriceLevel, 0, len(rows))
	for _, row := range rows {
		if len(row) < 2 || !row[0].Valid || !row[1].Valid {
			return nil, fmt.Errorf("%w: malformed order book level", core.ErrBadResponse)
		}
		out = append(out, core.PriceLevel{Price: row[0].Decimal, Amount: row[1].Decimal})
	}
	return out, nil
}

func parseInstrument(w wireInstrument) core.Market {
	base := strings.ToUpper(w.Base)
	quote := strings.ToUpper(w.Quote)
	code := optString(w.Code)
	return core.Market{
		ID:       w.Symbol,
		Symbol:   base + "/" + quote + code,
		Base:     base,
		Quote:    quote,
		Code:     code,
		Active:   w.Status == "enable",
		Maker:    w.MakerFee.NullDecimal,
		Taker:    w.TakerFee.NullDecimal,
		MinQty:   w.MinQuantity.NullDecimal,
		MaxQty:   w.MaxQuantity.NullDecimal,
		MinPrice: w.MinPrice.NullDecimal,
		MaxPrice: w.MaxPrice.NullDecimal,
	}
}
