package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestRequestsObserveIsScraped(t *testing.T) {
	r := NewRequests()
	r.Observe("GET", "/v2/market/tickers", OutcomeOK, 20*time.Millisecond)
	r.Observe("GET", "/v2/market/tickers", OutcomeOK, 30*time.Millisecond)
	r.Observe("POST", "/v2/spot/orders", OutcomeVenue, time.Millisecond)

	srv := httptest.NewServer(r.Handler())
	defer srv.Close()
	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatalf("scrape error = %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	text := string(body)

	want := []string{
		`aax_requests_total{method="GET",outcome="ok",path="/v2/market/tickers"} 2`,
		`aax_requests_total{method="POST",outcome="venue_error",path="/v2/spot/orders"} 1`,
		`aax_request_duration_seconds_count{method="GET",path="/v2/market/tickers"} 2`,
	}
	for _, w := range want {
		if !strings.Contains(text, w) {
			t.Fatalf("scrape output missing %q", w)
		}
	}
}

func TestNilRequestsObserveIsNoop(t *testing.T) {
	var r *Requests
	r.Observe("GET", "/", OutcomeOK, time.Second)
}
