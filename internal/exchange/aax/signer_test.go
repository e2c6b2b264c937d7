package aax

import (
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"aax-connector/internal/core"
)

func fixedClock() time.Time {
	return time.UnixMilli(1600000000000)
}

func TestSignGETSignsPathWithQuery(t *testing.T) {
	s := NewSigner(Credentials{APIKey: "key", Secret: "secret"}, fixedClock)
	req, err := s.Sign(http.MethodGet, "https://api.example", "/v2/spot/orders", Params{"symbol": "BTCUSDT"})
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}
	if req.URL != "https://api.example/v2/spot/orders?symbol=BTCUSDT" {
		t.Fatalf("URL = %q", req.URL)
	}
	if req.Body != nil {
		t.Fatalf("GET body = %q, want nil", req.Body)
	}
	if got := req.Header.Get(headerNonce); got != "1600000000000" {
		t.Fatalf("nonce = %q, want 1600000000000", got)
	}
	if got := req.Header.Get(headerAPIKey); got != "key" {
		t.Fatalf("api key header = %q, want key", got)
	}
	const want = "4cea1427081e6ab3a1ef0e650785fefc4d4cbe373b20c15773a504aeb9aafe43"
	if got := req.Header.Get(headerSignature); got != want {
		t.Fatalf("signature = %s, want %s", got, want)
	}
}

func TestSignPOSTUsesJSONBodyAsData(t *testing.T) {
	s := NewSigner(Credentials{APIKey: "key", Secret: "secret"}, fixedClock)
	req, err := s.Sign(http.MethodPost, "https://api.example", "/v2/spot/orders", Params{"a": 1})
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}
	if string(req.Body) != `{"a":1}` {
		t.Fatalf("body = %s, want {\"a\":1}", req.Body)
	}
	if req.URL != "https://api.example/v2/spot/orders" {
		t.Fatalf("URL = %q", req.URL)
	}
	if got := req.Header.Get("Content-Type"); got != "application/json" {
		t.Fatalf("Content-Type = %q", got)
	}
	const want = "ce3fe86c70d7c5300ff7e14b551fb59efaed2155c5c4396c36ad763f1fa34e9a"
	if got := req.Header.Get(headerSignature); got != want {
		t.Fatalf("signature = %s, want %s", got, want)
	}
}

func TestSigningMessageLayout(t *testing.T) {
	if got := signingMessage("1", "GET", "/v2/spot/orders?a=b", ""); got != "1:GET/v2/spot/orders?a=b" {
		t.Fatalf("signingMessage(GET) = %q", got)
	}
	if got := signingMessage("1", "DELETE", "/v2/spot/orders/cancel/9", "{}"); !strings.HasSuffix(got, "/cancel/9{}") {
		t.Fatalf("signingMessage(DELETE) = %q", got)
	}
}

func TestSignDeleteWithoutParamsSendsEmptyObject(t *testing.T) {
	s := NewSigner(Credentials{APIKey: "key", Secret: "secret"}, fixedClock)
	req, err := s.Sign(http.MethodDelete, "https://api.example", "/v2/spot/orders/cancel/1", nil)
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}
	if string(req.Body) != "{}" {
		t.Fatalf("body = %s, want {}", req.Body)
	}
}

func TestSignRequiresCredentials(t *testing.T) {
	for _, creds := range []Credentials{{}, {APIKey: "k"}, {Secret: "s"}} {
		_, err := NewSigner(creds, fixedClock).Sign(http.MethodGet, "https://api.example", "/v2/account/balances", nil)
		if !errors.Is(err, core.ErrMissingCredentials) {
			t.Fatalf("Sign(%+v) error = %v, want ErrMissingCredentials", creds, err)
		}
	}
}

func TestParamsEncodeSortsKeys(t *testing.T) {
	got := Params{"symbol": "BTCUSDT", "level": 20, "active": true}.Encode()
	if got != "active=true&level=20&symbol=BTCUSDT" {
		t.Fatalf("Encode() = %q", got)
	}
	if got := Params(nil).Encode(); got != "" {
		t.Fatalf("Encode(nil) = %q, want empty", got)
	}
}

func TestPublicRequestCarriesNoAuthHeaders(t *testing.T) {
	req := PublicRequest("https://api.example", "/v2/market/tickers", nil)
	if req.URL != "https://api.example/v2/market/tickers" {
		t.Fatalf("URL = %q", req.URL)
	}
	if req.Header.Get(headerSignature) != "" || req.Header.Get(headerAPIKey) != "" {
		t.Fatalf("public request has auth headers: %v", req.Header)
	}
}
