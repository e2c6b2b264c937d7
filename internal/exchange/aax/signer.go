package aax

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"aax-connector/internal/core"
)

const (
	headerAPIKey    = "X-ACCESS-KEY"
	headerNonce     = "X-ACCESS-NONCE"
	headerSignature = "X-ACCESS-SIGN"
)

type Credentials struct {
	APIKey string
	Secret string
}

func (c Credentials) Complete() bool {
	return c.APIKey != "" && c.Secret != ""
}

// Params is a request payload. Values are rendered with fmt for query strings
// and with encoding/json for bodies, so slices stay JSON arrays.
type Params map[string]any

// Encode renders the params as a query string with keys in sorted order.
func (p Params) Encode() string {
	if len(p) == 0 {
		return ""
	}
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	values := url.Values{}
	for _, k := range keys {
		values.Set(k, formatParam(p[k]))
	}
	return values.Encode()
}

func formatParam(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

// Request is a fully built HTTP request ready for the transport.
type Request struct {
	Method string
	URL    string
	// Route is the path template used as the metrics label, e.g.
	// /v2/spot/orders/cancel/{orderID}. Empty means the URL path.
	Route  string
	Header http.Header
	Body   []byte
}

type Signer struct {
	creds Credentials
	now   func() time.Time
}

func NewSigner(creds Credentials, now func() time.Time) *Signer {
	if now == nil {
		now = time.Now
	}
	return &Signer{creds: creds, now: now}
}

// Sign builds an authenticated request. path is the versioned request path
// (e.g. /v2/spot/orders).
func (s *Signer) Sign(method, baseURL, path string, params Params) (Request, error) {
	if !s.creds.Complete() {
		return Request{}, fmt.Errorf("%w: api key and secret are required for %s %s", core.ErrMissingCredentials, method, path)
	}
	nonce := strconv.FormatInt(s.now().UnixMilli(), 10)
	header := http.Header{}
	header.Set(headerAPIKey, s.creds.APIKey)
	header.Set(headerNonce, nonce)

	req := Request{Method: method, Header: header}
	if method == http.MethodGet {
		if q := params.Encode(); q != "" {
			path += "?" + q
		}
		header.Set(headerSignature, sign(s.creds.Secret, signingMessage(nonce, method, path, "")))
		header.Set("accept", "application/json;charset=UTF-8")
		req.URL = baseURL + path
		return req, nil
	}
	if params == nil {
		params = Params{}
	}
	body, err := json.Marshal(params)
	if err != nil {
		return Request{}, fmt.Errorf("encode %s %s payload: %w", method, path, err)
	}
	header.Set(headerSignature, sign(s.creds.Secret, signingMessage(nonce, method, path, string(body))))
	header.Set("Content-Type", "application/json")
	req.URL = baseURL + path
	req.Body = body
	return req, nil
}

// PublicRequest builds an unsigned GET request.
func PublicRequest(baseURL, path string, params Params) Request {
	u := baseURL + path
	if q := params.Encode(); q != "" {
		u += "?" + q
	}
	return Request{Method: http.MethodGet, URL: u, Header: http.Header{}}
}

func signingMessage(nonce, verb, path, data string) string {
	return nonce + ":" + verb + path + data
}

func sign(secret, payload string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}
