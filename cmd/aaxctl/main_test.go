package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"aax-connector/internal/exchange/aax"
	"aax-connector/internal/logger"
	"aax-connector/internal/store"
)

func TestParseSince(t *testing.T) {
	got, err := parseSince("2021-03-04")
	if err != nil {
		t.Fatalf("parseSince(date) error = %v", err)
	}
	if !got.Equal(time.Date(2021, 3, 4, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("parseSince(date) = %s", got)
	}
	got, err = parseSince("2021-03-04T05:06:07Z")
	if err != nil || got.Hour() != 5 {
		t.Fatalf("parseSince(rfc3339) = %s, %v", got, err)
	}
	if got, err := parseSince(""); err != nil || !got.IsZero() {
		t.Fatalf("parseSince(empty) = %s, %v", got, err)
	}
	if _, err := parseSince("yesterday"); err == nil {
		t.Fatalf("parseSince(yesterday) error = nil, want error")
	}
}

func newTestApp(t *testing.T, handler http.HandlerFunc) (*app, *bytes.Buffer, string) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := aax.NewClientWithOptions(aax.Options{
		APIKey:      "k",
		APISecret:   "s",
		RestBaseURL: srv.URL,
		Log:         logger.Discard(),
	})
	if err != nil {
		t.Fatalf("NewClientWithOptions() error = %v", err)
	}
	dir := t.TempDir()
	st, err := store.New(dir)
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	out := &bytes.Buffer{}
	return &app{
		client:     client,
		store:      st,
		baseURL:    srv.URL,
		marketsTTL: time.Hour,
		out:        out,
		log:        logger.Discard().WithComponent("aaxctl"),
	}, out, dir
}

const testInstruments = `{"code":1,"data":[{"symbol":"BTCUSDT","base":"BTC","quote":"USDT","status":"enable"}]}`

func TestExecuteTickerPrintsJSONAndCachesMarkets(t *testing.T) {
	var instrumentCalls int32
	a, out, _ := newTestApp(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v2/instruments":
			atomic.AddInt32(&instrumentCalls, 1)
			_, _ = w.Write([]byte(testInstruments))
		case "/v2/market/tickers":
			_, _ = w.Write([]byte(`{"t":1600000000000,"tickers":[{"s":"BTCUSDT","o":"100","c":"110"}]}`))
		default:
			http.NotFound(w, r)
		}
	})
	ctx := context.Background()
	if err := a.execute(ctx, commands["ticker"], []string{"-symbol", "BTC/USDT"}); err != nil {
		t.Fatalf("execute(ticker) error = %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out.String())
	}
	if got["symbol"] != "BTC/USDT" {
		t.Fatalf("symbol = %v, want BTC/USDT", got["symbol"])
	}
	if !a.cached {
		t.Fatalf("markets snapshot not persisted")
	}

	fresh, _, _ := newTestApp(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&instrumentCalls, 1)
		http.NotFound(w, r)
	})
	fresh.store = a.store
	fresh.baseURL = a.baseURL
	fresh.warmMarkets()
	if !fresh.client.MarketsLoaded() {
		t.Fatalf("markets not warmed from snapshot")
	}
	if n := atomic.LoadInt32(&instrumentCalls); n != 1 {
		t.Fatalf("instrument calls = %d, want 1", n)
	}
}

func TestExecuteCreateJournalsOrder(t *testing.T) {
	a, out, dir := newTestApp(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v2/instruments":
			_, _ = w.Write([]byte(testInstruments))
		case "/v2/spot/orders":
			_, _ = w.Write([]byte(`{"code":1,"data":{"orderID":"o1","symbol":"BTCUSDT","orderStatus":0,"side":1}}`))
		default:
			http.NotFound(w, r)
		}
	})
	args := []string{"-symbol", "BTC/USDT", "-type", "limit", "-side", "buy", "-amount", "0.1", "-price", "100"}
	if err := a.execute(context.Background(), commands["create"], args); err != nil {
		t.Fatalf("execute(create) error = %v", err)
	}
	if !bytes.Contains(out.Bytes(), []byte(`"id": "o1"`)) {
		t.Fatalf("output = %s", out.String())
	}
	matches, err := filepath.Glob(filepath.Join(dir, "orders", "*.jsonl"))
	if err != nil || len(matches) != 1 {
		t.Fatalf("journal files = %v, %v", matches, err)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil || !bytes.Contains(data, []byte(`"action":"create"`)) {
		t.Fatalf("journal = %s, %v", data, err)
	}
}

func TestExecuteRejectsBadFlags(t *testing.T) {
	a, _, _ := newTestApp(t, http.NotFound)
	if err := a.execute(context.Background(), commands["create"], []string{"-amount", "abc"}); err == nil {
		t.Fatalf("execute(create -amount abc) error = nil, want error")
	}
	if err := a.execute(context.Background(), commands["closed-orders"], []string{"-venue", "spot"}); err == nil {
		t.Fatalf("execute(closed-orders -venue) error = nil, want error")
	}
}

func TestRunExitCodes(t *testing.T) {
	cases := []struct {
		args []string
		want int
	}{
		{nil, 2},
		{[]string{"-bogus"}, 2},
		{[]string{"no-such-command"}, 2},
		{[]string{"-config", filepath.Join(t.TempDir(), "missing.yaml"), "timeframes"}, 1},
	}
	for _, tc := range cases {
		if got := run(tc.args); got != tc.want {
			t.Fatalf("run(%q) = %d, want %d", tc.args, got, tc.want)
		}
	}
}
