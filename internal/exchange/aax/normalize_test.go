package aax

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"aax-connector/internal/core"
)

func TestParseOrderStatus(t *testing.T) {
	cases := map[string]core.OrderStatus{
		"0":  core.OrderOpen,
		"1":  core.OrderOpen,
		"2":  core.OrderClosed,
		"3":  core.OrderClosed,
		"4":  core.OrderCanceled,
		"5":  core.OrderCanceled,
		"6":  core.OrderRejected,
		"10": core.OrderCanceled,
		"11": core.OrderRejected,
		"99": core.OrderStatus("99"),
	}
	for code, want := range cases {
		if got := ParseOrderStatus(code); got != want {
			t.Fatalf("ParseOrderStatus(%s) = %s, want %s", code, got, want)
		}
	}
}

func TestParseOrderType(t *testing.T) {
	cases := map[string]core.OrderType{
		"1": core.MarketOrder,
		"2": core.LimitOrder,
		"3": core.StopOrder,
		"4": core.StopLimitOrder,
		"7": core.StopLossOrder,
		"8": core.TakeProfitOrder,
		"5": core.OrderType("5"),
	}
	for code, want := range cases {
		if got := ParseOrderType(code); got != want {
			t.Fatalf("ParseOrderType(%s) = %s, want %s", code, got, want)
		}
	}
}

func TestNormalizeOrder(t *testing.T) {
	n := normalizer{markets: testMarkets()}
	raw := json.RawMessage(`{
		"orderID":"o1","clOrdID":"c1","symbol":"BTCUSDFP","orderStatus":2,"orderType":2,
		"side":1,"price":"100","avgPrice":"99.5","orderQty":"2","cumQty":"1.5","leavesQty":"0.5",
		"commission":"0.01","quote":"usd","createTime":"2021-01-02T03:04:05.000Z","transactTime":null
	}`)
	order, err := n.order(raw, 0)
	if err != nil {
		t.Fatalf("order() error = %v", err)
	}
	if order.Symbol != "BTC/USD" {
		t.Fatalf("Symbol = %s, want BTC/USD", order.Symbol)
	}
	if order.Status != core.OrderClosed || order.Type != core.LimitOrder || order.Side != core.Buy {
		t.Fatalf("status/type/side = %s/%s/%s", order.Status, order.Type, order.Side)
	}
	if !order.Cost.Valid || !order.Cost.Decimal.Equal(decimal.RequireFromString("150")) {
		t.Fatalf("Cost = %v, want 150", order.Cost)
	}
	if order.Fee.Currency != "USD" {
		t.Fatalf("Fee.Currency = %s, want USD", order.Fee.Currency)
	}
	want := time.Date(2021, 1, 2, 3, 4, 5, 0, time.UTC)
	if !order.Timestamp.Equal(want) {
		t.Fatalf("Timestamp = %s, want %s", order.Timestamp, want)
	}
	if !order.LastTradeTimestamp.IsZero() {
		t.Fatalf("LastTradeTimestamp = %s, want zero", order.LastTradeTimestamp)
	}
}

func TestNormalizeOrderFallsBackToEnvelopeTime(t *testing.T) {
	n := normalizer{markets: testMarkets()}
	order, err := n.order(json.RawMessage(`{"orderID":"o1","symbol":"BTCUSDT","side":2,"price":null,"cumQty":""}`), 1600000000000)
	if err != nil {
		t.Fatalf("order() error = %v", err)
	}
	if order.Timestamp.UnixMilli() != 1600000000000 {
		t.Fatalf("Timestamp = %d, want 1600000000000", order.Timestamp.UnixMilli())
	}
	if order.Side != core.Sell {
		t.Fatalf("Side = %s, want sell", order.Side)
	}
	if order.Price.Valid || order.Filled.Valid || order.Cost.Valid {
		t.Fatalf("null and empty quantities must be unknown: %+v", order)
	}
}

func TestNormalizeOrderUnknownSymbolStripsMarker(t *testing.T) {
	n := normalizer{markets: testMarkets()}
	order, err := n.order(json.RawMessage(`{"orderID":"o1","symbol":"XRPUSDTFP"}`), 0)
	if err != nil {
		t.Fatalf("order() error = %v", err)
	}
	if order.Symbol != "XRPUSDT" {
		t.Fatalf("Symbol = %s, want XRPUSDT", order.Symbol)
	}
}

func TestNormalizeOrderBadQuantity(t *testing.T) {
	n := normalizer{markets: testMarkets()}
	if _, err := n.order(json.RawMessage(`{"orderID":"o1","price":"abc"}`), 0); !errors.Is(err, core.ErrBadResponse) {
		t.Fatalf("order(bad price) error = %v, want ErrBadResponse", err)
	}
	if _, err := n.order(json.RawMessage(`{"orderID":"o1","createTime":"yesterday"}`), 0); !errors.Is(err, core.ErrBadResponse) {
		t.Fatalf("order(bad time) error = %v, want ErrBadResponse", err)
	}
}

func TestNormalizeMyTradeSide(t *testing.T) {
	n := normalizer{markets: testMarkets()}
	trade, err := n.myTrade(json.RawMessage(`{"id":"t1","orderID":"o1","symbol":"ETHUSDT","orderType":1,"side":1,"price":"10","filledQty":"3"}`))
	if err != nil {
		t.Fatalf("myTrade() error = %v", err)
	}
	if trade.Side != core.TradeBuy || trade.Symbol != "ETH/USDT" || trade.Type != core.MarketOrder {
		t.Fatalf("trade = %+v", trade)
	}
	if !trade.Cost.Decimal.Equal(decimal.NewFromInt(30)) {
		t.Fatalf("Cost = %s, want 30", trade.Cost.Decimal)
	}
}

func TestParsePublicTradeSideFromPriceSign(t *testing.T) {
	market := core.Market{ID: "BTCUSDT", Symbol: "BTC/USDT", Quote: "USDT"}
	sell, err := parsePublicTrade(json.RawMessage(`{"tid":"1","p":"-100","q":"2","t":1600000000000}`), &market)
	if err != nil {
		t.Fatalf("parsePublicTrade() error = %v", err)
	}
	if sell.Side != core.Sell || !sell.Price.Decimal.Equal(decimal.NewFromInt(100)) || !sell.Cost.Decimal.Equal(decimal.NewFromInt(200)) {
		t.Fatalf("sell trade = %+v", sell)
	}
	buy, err := parsePublicTrade(json.RawMessage(`{"tid":"2","p":"100","q":"1","t":1600000000001}`), &market)
	if err != nil {
		t.Fatalf("parsePublicTrade() error = %v", err)
	}
	if buy.Side != core.Buy || buy.Symbol != "BTC/USDT" || buy.Fee.Currency != "USDT" {
		t.Fatalf("buy trade = %+v", buy)
	}
}

func TestParsePublicTradesFiltersSortsAndLimits(t *testing.T) {
	list := []json.RawMessage{
		json.RawMessage(`{"tid":"3","p":"1","q":"1","t":3000}`),
		json.RawMessage(`{"tid":"1","p":"1","q":"1","t":1000}`),
		json.RawMessage(`{"tid":"2","p":"1","q":"1","t":2000}`),
		json.RawMessage(`{"tid":"4","p":"1","q":"1","t":4000}`),
	}
	trades, err := parsePublicTrades(list, nil, time.UnixMilli(2000), 2)
	if err != nil {
		t.Fatalf("parsePublicTrades() error = %v", err)
	}
	if len(trades) != 2 || trades[0].ID != "3" || trades[1].ID != "4" {
		t.Fatalf("trades = %+v, want ids 3,4", trades)
	}
}

func TestParseTickerDerivedFields(t *testing.T) {
	market := core.Market{ID: "BTCUSDFP", Symbol: "BTC/USDFP"}
	ticker, err := parseTicker(json.RawMessage(`{"s":"BTCUSDFP","o":"100","h":"120","l":"90","c":"110","v":"5"}`), 1600000000000, "ignored", &market)
	if err != nil {
		t.Fatalf("parseTicker() error = %v", err)
	}
	if ticker.Symbol != "BTC/USD" {
		t.Fatalf("Symbol = %s, want BTC/USD", ticker.Symbol)
	}
	checks := map[string]decimal.NullDecimal{"10": ticker.Change, "10.0": ticker.Percentage, "105": ticker.Average, "110": ticker.Last}
	for want, got := range checks {
		if !got.Valid || !got.Decimal.Equal(decimal.RequireFromString(want)) {
			t.Fatalf("derived field = %v, want %s", got, want)
		}
	}
}

func TestParseTickerZeroOpenLeavesPercentageUnknown(t *testing.T) {
	ticker, err := parseTicker(json.RawMessage(`{"s":"X","o":"0","c":"1"}`), 0, "X/Y", nil)
	if err != nil {
		t.Fatalf("parseTicker() error = %v", err)
	}
	if ticker.Percentage.Valid {
		t.Fatalf("Percentage = %v, want unknown", ticker.Percentage)
	}
	if ticker.Symbol != "X/Y" {
		t.Fatalf("Symbol = %s, want X/Y", ticker.Symbol)
	}
}

func TestParseOHLCVs(t *testing.T) {
	body := []byte(`[[1600000000,1,2,0.5,1.5,100,"extra1","extra2"],[1600000060,"1.5","2","1","1.8","7"]]`)
	candles, err := parseOHLCVs(body)
	if err != nil {
		t.Fatalf("parseOHLCVs() error = %v", err)
	}
	if len(candles) != 2 {
		t.Fatalf("len = %d, want 2", len(candles))
	}
	c := candles[0]
	if c.Timestamp != 1600000000000 {
		t.Fatalf("Timestamp = %d, want 1600000000000", c.Timestamp)
	}
	want := []string{"1", "2", "0.5", "1.5", "100"}
	got := []decimal.Decimal{c.Open, c.High, c.Low, c.Close, c.Volume}
	for i := range want {
		if !got[i].Equal(decimal.RequireFromString(want[i])) {
			t.Fatalf("field %d = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestParseOHLCVsShortRow(t *testing.T) {
	if _, err := parseOHLCVs([]byte(`[[1600000000,1,2,3]]`)); !errors.Is(err, core.ErrBadResponse) {
		t.Fatalf("parseOHLCVs(short) error = %v, want ErrBadResponse", err)
	}
}

func TestParseBalancesKeepsRequestedPurse(t *testing.T) {
	data := json.RawMessage(`[
		{"purseType":"SPTP","currency":"BTC","available":"1.5","unavailable":"0.5"},
		{"purseType":"FUTP","currency":"USDT","available":"100","unavailable":"0"},
		{"purseType":"SPTP","currency":"pla","available":"3","unavailable":null}
	]`)
	b, err := parseBalances(core.VenueSpot, "SPTP", data)
	if err != nil {
		t.Fatalf("parseBalances() error = %v", err)
	}
	if _, ok := b.Assets["USDT"]; ok {
		t.Fatalf("futures purse row leaked into spot balances")
	}
	btc := b.Assets["BTC"]
	if !btc.Total.Equal(decimal.NewFromInt(2)) || !btc.Free.Equal(decimal.RequireFromString("1.5")) {
		t.Fatalf("BTC = %+v", btc)
	}
	plair, ok := b.Assets["Plair"]
	if !ok || !plair.Used.IsZero() || !plair.Total.Equal(decimal.NewFromInt(3)) {
		t.Fatalf("Plair = %+v, ok %v", plair, ok)
	}
}

func TestParseOrderBook(t *testing.T) {
	book, err := parseOrderBook("BTC/USDFP", []byte(`{"e":"BTCUSDFP@book_20","t":1600000000000,"bids":[["100","1"]],"asks":[["101","2"],["102","3"]]}`))
	if err != nil {
		t.Fatalf("parseOrderBook() error = %v", err)
	}
	if book.Symbol != "BTC/USD" || len(book.Bids) != 1 || len(book.Asks) != 2 {
		t.Fatalf("book = %+v", book)
	}
	if !book.Asks[1].Price.Equal(decimal.NewFromInt(102)) {
		t.Fatalf("ask[1] price = %s, want 102", book.Asks[1].Price)
	}
	if _, err := parseOrderBook("X", []byte(`{"bids":[["100"]]}`)); !errors.Is(err, core.ErrBadResponse) {
		t.Fatalf("parseOrderBook(short level) error = %v, want ErrBadResponse", err)
	}
}

func TestParseInstrument(t *testing.T) {
	code := "FP"
	m := parseInstrument(wireInstrument{Symbol: "BTCUSDFP", Base: "btc", Quote: "usd", Code: &code, Status: "enable"})
	if m.Symbol != "BTC/USDFP" || !m.Active || m.ID != "BTCUSDFP" {
		t.Fatalf("market = %+v", m)
	}
	m = parseInstrument(wireInstrument{Symbol: "ETHUSDT", Base: "ETH", Quote: "USDT", Status: "disable"})
	if m.Symbol != "ETH/USDT" || m.Active {
		t.Fatalf("market = %+v", m)
	}
}
