package aax

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"aax-connector/internal/core"
	"aax-connector/internal/metrics"
)

// Transport issues a built request and returns the raw response body. Network
// failures wrap core.ErrTransport; venue error objects come back as APIError.
type Transport interface {
	Do(ctx context.Context, req Request) ([]byte, error)
}

type HTTPTransport struct {
	client  *http.Client
	limiter *rate.Limiter
	metrics *metrics.Requests
	log     *logrus.Entry
}

type TransportOptions struct {
	Timeout time.Duration
	// Interval is the minimum spacing between requests; zero disables pacing.
	Interval time.Duration
	Metrics  *metrics.Requests
	Log      *logrus.Entry
}

func NewHTTPTransport(opts TransportOptions) *HTTPTransport {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	t := &HTTPTransport{
		client:  &http.Client{Timeout: timeout},
		metrics: opts.Metrics,
		log:     opts.Log,
	}
	if opts.Interval > 0 {
		t.limiter = rate.NewLimiter(rate.Every(opts.Interval), 1)
	}
	return t
}

func (t *HTTPTransport) Do(ctx context.Context, req Request) ([]byte, error) {
	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: rate limiter: %v", core.ErrTransport, err)
		}
	}
	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", core.ErrTransport, err)
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	path := metricPath(req)
	started := time.Now()
	resp, err := t.client.Do(httpReq)
	if err != nil {
		t.observe(req.Method, path, metrics.OutcomeTransport, started)
		return nil, fmt.Errorf("%w: %s %s: %v", core.ErrTransport, req.Method, path, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.observe(req.Method, path, metrics.OutcomeTransport, started)
		return nil, fmt.Errorf("%w: read %s: %v", core.ErrTransport, path, err)
	}
	if resp.StatusCode/100 == 2 {
		t.observe(req.Method, path, metrics.OutcomeOK, started)
		return data, nil
	}
	httpErr := parseHTTPError(resp.StatusCode, data)
	if _, ok := AsAPIError(httpErr); ok {
		t.observe(req.Method, path, metrics.OutcomeVenue, started)
	} else {
		t.observe(req.Method, path, metrics.OutcomeTransport, started)
	}
	if t.log != nil {
		t.log.WithFields(logrus.Fields{
			"method": req.Method,
			"path":   path,
			"status": resp.StatusCode,
		}).Warn("venue request failed")
	}
	return nil, httpErr
}

func (t *HTTPTransport) observe(method, path, outcome string, started time.Time) {
	t.metrics.Observe(method, path, outcome, time.Since(started))
}

// parseHTTPError maps a 400 carrying a venue error object through the code
// table; anything else is a transport failure.
func parseHTTPError(status int, body []byte) error {
	if status == http.StatusBadRequest {
		var env envelope
		if err := json.Unmarshal(body, &env); err == nil && env.Error != nil {
			return classifyAPIError(APIError{
				Code:       string(env.Error.Code),
				Msg:        env.Error.Message,
				HTTPStatus: status,
			})
		}
	}
	return fmt.Errorf("%w: http error %d: %s", core.ErrTransport, status, strings.TrimSpace(string(body)))
}

// metricPath keeps the label set bounded: ids never reach the path label.
func metricPath(req Request) string {
	if req.Route != "" {
		return req.Route
	}
	u, err := url.Parse(req.URL)
	if err != nil {
		return req.URL
	}
	return u.Path
}
