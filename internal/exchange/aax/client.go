package aax

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"aax-connector/internal/config"
	"aax-connector/internal/core"
	"aax-connector/internal/exchange"
	"aax-connector/internal/logger"
	"aax-connector/internal/metrics"
)

const defaultBaseURL = "https://api.aaxpro.com"

var _ exchange.Exchange = (*Client)(nil)

// Client implements the uniform operation set over the spot and futures
// venues. Configuration is fixed at construction; the client is safe for
// concurrent use.
type Client struct {
	baseURL           string
	creds             Credentials
	clientOrderPrefix string

	router    *Router
	signer    *Signer
	transport Transport
	markets   *Markets
	loadMu    sync.Mutex
	log       *logrus.Entry
}

type Options struct {
	APIKey            string
	APISecret         string
	RestBaseURL       string
	DefaultVenue      core.Venue
	ClientOrderPrefix string
	HTTPTimeoutSec    int64
	RateLimitMs       int64
	// Transport replaces the HTTP transport built from the fields above.
	Transport Transport
	Metrics   *metrics.Requests
	Log       *logger.Log
	Now       func() time.Time
}

func NewClient(cfg config.ExchangeConfig, log *logger.Log, m *metrics.Requests) (*Client, error) {
	return NewClientWithOptions(Options{
		APIKey:            cfg.APIKey,
		APISecret:         cfg.APISecret,
		RestBaseURL:       cfg.RestBaseURL,
		DefaultVenue:      core.Venue(cfg.DefaultVenue),
		ClientOrderPrefix: cfg.ClientOrderPrefix,
		HTTPTimeoutSec:    cfg.HTTPTimeoutSec,
		RateLimitMs:       cfg.RateLimitMs,
		Metrics:           m,
		Log:               log,
	})
}

// NewClientWithOptions fails with core.ErrInvalidConfiguration when the
// default venue is not spot or futures.
func NewClientWithOptions(opts Options) (*Client, error) {
	router, err := NewRouter(opts.DefaultVenue)
	if err != nil {
		return nil, err
	}
	log := opts.Log
	if log == nil {
		log = logger.Get()
	}
	entry := log.WithComponent("aax_client")
	baseURL := strings.TrimRight(strings.TrimSpace(opts.RestBaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	creds := Credentials{APIKey: strings.TrimSpace(opts.APIKey), Secret: strings.TrimSpace(opts.APISecret)}
	transport := opts.Transport
	if transport == nil {
		transport = NewHTTPTransport(TransportOptions{
			Timeout:  time.Duration(opts.HTTPTimeoutSec) * time.Second,
			Interval: time.Duration(opts.RateLimitMs) * time.Millisecond,
			Metrics:  opts.Metrics,
			Log:      entry,
		})
	}
	return &Client{
		baseURL:           baseURL,
		creds:             creds,
		clientOrderPrefix: normalizeClientOrderPrefix(opts.ClientOrderPrefix),
		router:            router,
		signer:            NewSigner(creds, opts.Now),
		transport:         transport,
		markets:           NewMarkets(nil),
		log:               entry,
	}, nil
}

func (c *Client) Name() string { return "aax" }

func (c *Client) DefaultVenue() core.Venue { return c.router.DefaultVenue() }

// SetMarkets seeds the market table, e.g. from a cached snapshot.
func (c *Client) SetMarkets(markets []core.Market) {
	c.markets.Replace(markets)
}

// Markets exposes the read side of the loaded market table.
func (c *Client) Markets() MarketLookup { return c.markets }

func (c *Client) MarketsLoaded() bool { return c.markets.Loaded() }

func (c *Client) LoadMarkets(ctx context.Context, reload bool) ([]core.Market, error) {
	const op = "loadMarkets"
	c.loadMu.Lock()
	defer c.loadMu.Unlock()
	if !reload && c.markets.Loaded() {
		return c.markets.All(), nil
	}
	body, err := c.public(ctx, op, "/v2/instruments", nil)
	if err != nil {
		return nil, err
	}
	env, err := c.checkEnvelope(op, body, false)
	if err != nil {
		return nil, err
	}
	var rows []wireInstrument
	if err := json.Unmarshal(env.Data, &rows); err != nil {
		return nil, wrapOp(op, badResponse("instruments", err))
	}
	markets := make([]core.Market, 0, len(rows))
	for _, row := range rows {
		if row.Symbol == "" {
			continue
		}
		markets = append(markets, parseInstrument(row))
	}
	c.markets.Replace(markets)
	c.log.WithField("markets", len(markets)).Info("markets loaded")
	return c.markets.All(), nil
}

func (c *Client) ensureMarkets(ctx context.Context) error {
	if c.markets.Loaded() {
		return nil
	}
	_, err := c.LoadMarkets(ctx, false)
	return err
}

func (c *Client) requireCredentials(op string) error {
	if c.creds.Complete() {
		return nil
	}
	return opError(op, core.ErrMissingCredentials, "api key and secret are required")
}

func (c *Client) norm() normalizer {
	return normalizer{markets: c.markets}
}

// market resolves the route against the market table.
func (c *Client) market(op string, route Route) (core.Market, error) {
	if route.MarketSymbol == "" {
		return core.Market{}, opError(op, core.ErrArgumentsRequired, "symbol is required")
	}
	m, ok := c.markets.MarketBySymbol(route.MarketSymbol)
	if !ok {
		return core.Market{}, opError(op, core.ErrUnknownSymbol, "%s", route.MarketSymbol)
	}
	return m, nil
}

// private signs and dispatches a request and checks the embedded success code.
func (c *Client) private(ctx context.Context, op, method, path string, params Params) (envelope, error) {
	return c.privateRoute(ctx, op, method, path, path, params)
}

// privateRoute is private for paths that embed an id; route is the template
// reported to metrics.
func (c *Client) privateRoute(ctx context.Context, op, method, path, route string, params Params) (envelope, error) {
	req, err := c.signer.Sign(method, c.baseURL, path, params)
	if err != nil {
		return envelope{}, wrapOp(op, err)
	}
	req.Route = route
	c.log.WithFields(logrus.Fields{"op": op, "method": method, "path": path}).Debug("venue request")
	body, err := c.transport.Do(ctx, req)
	if err != nil {
		return envelope{}, wrapOp(op, err)
	}
	return c.checkEnvelope(op, body, true)
}

func (c *Client) public(ctx context.Context, op, path string, params Params) ([]byte, error) {
	c.log.WithFields(logrus.Fields{"op": op, "method": http.MethodGet, "path": path}).Debug("venue request")
	body, err := c.transport.Do(ctx, PublicRequest(c.baseURL, path, params))
	if err != nil {
		return nil, wrapOp(op, err)
	}
	return body, nil
}

// checkEnvelope decodes the response wrapper. code==1 is success; any other
// code is a logical failure even on HTTP 200. Public payloads may omit code.
func (c *Client) checkEnvelope(op string, body []byte, requireCode bool) (envelope, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return envelope{}, wrapOp(op, badResponse("envelope", err))
	}
	if env.Code == nil {
		if requireCode {
			return env, opError(op, core.ErrBadResponse, "response carries no code: %s", truncate(body))
		}
		return env, nil
	}
	if *env.Code != apiCodeSuccess {
		apiErr := APIError{Op: op, Code: strconv.Itoa(*env.Code), Msg: env.Message}
		c.log.WithFields(logrus.Fields{"op": op, "code": apiErr.Code, "msg": apiErr.Msg}).Warn("venue rejected request")
		return env, wrapOp(op, classifyAPIError(apiErr))
	}
	return env, nil
}

func decodePage(op string, data json.RawMessage) ([]json.RawMessage, error) {
	var page pageData
	if err := json.Unmarshal(data, &page); err != nil {
		return nil, wrapOp(op, badResponse("list", err))
	}
	return page.List, nil
}

func venuePath(v core.Venue, suffix string) string {
	segment := "spot"
	if v == core.VenueFutures {
		segment = "futures"
	}
	return "/v2/" + segment + "/" + suffix
}

func (c *Client) newClientOrderID() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return c.clientOrderPrefix + "-" + id[:16]
}

func normalizeClientOrderPrefix(v string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	b := strings.Builder{}
	for _, r := range v {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		}
	}
	out := b.String()
	if out == "" {
		return "aax"
	}
	if len(out) > 12 {
		out = out[:12]
	}
	return out
}

func truncate(body []byte) string {
	const max = 256
	s := strings.TrimSpace(string(body))
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
