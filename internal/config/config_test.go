package config

import (
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{EnvAPIKey, EnvAPISecret, EnvDefaultVenue, EnvRestBaseURL} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	clearEnv(t)
	cfgPath := writeTempConfig(t, `
exchange:
  api_key: k
  api_secret: s
`)

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Exchange.RestBaseURL != "https://api.aaxpro.com" {
		t.Fatalf("exchange.rest_base_url = %q", cfg.Exchange.RestBaseURL)
	}
	if cfg.Exchange.DefaultVenue != "spot" {
		t.Fatalf("exchange.default_venue = %q, want spot", cfg.Exchange.DefaultVenue)
	}
	if cfg.Exchange.RateLimitMs != 1000 {
		t.Fatalf("exchange.rate_limit_ms = %d, want 1000", cfg.Exchange.RateLimitMs)
	}
	if cfg.Exchange.HTTPTimeoutSec != 15 {
		t.Fatalf("exchange.http_timeout_sec = %d, want 15", cfg.Exchange.HTTPTimeoutSec)
	}
	if cfg.Exchange.ClientOrderPrefix != "aax" {
		t.Fatalf("exchange.client_order_prefix = %q, want aax", cfg.Exchange.ClientOrderPrefix)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "json" {
		t.Fatalf("log = %+v", cfg.Log)
	}
	if cfg.State.Dir != "state" || cfg.State.MarketsTTLSec != 3600 {
		t.Fatalf("state = %+v", cfg.State)
	}
}

func TestLoadNormalizesVenueAlias(t *testing.T) {
	clearEnv(t)
	cfgPath := writeTempConfig(t, `
exchange:
  default_venue: " Future "
  rest_base_url: https://example.test/
`)
	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Exchange.DefaultVenue != "futures" {
		t.Fatalf("exchange.default_venue = %q, want futures", cfg.Exchange.DefaultVenue)
	}
	if cfg.Exchange.RestBaseURL != "https://example.test" {
		t.Fatalf("exchange.rest_base_url = %q, want trailing slash trimmed", cfg.Exchange.RestBaseURL)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvAPIKey, "env-key")
	t.Setenv(EnvAPISecret, "env-secret")
	t.Setenv(EnvDefaultVenue, "futures")
	cfgPath := writeTempConfig(t, `
exchange:
  api_key: file-key
  api_secret: file-secret
  default_venue: spot
`)
	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Exchange.APIKey != "env-key" || cfg.Exchange.APISecret != "env-secret" {
		t.Fatalf("credentials = %q/%q, want env values", cfg.Exchange.APIKey, cfg.Exchange.APISecret)
	}
	if cfg.Exchange.DefaultVenue != "futures" {
		t.Fatalf("exchange.default_venue = %q, want futures", cfg.Exchange.DefaultVenue)
	}
}

func TestFromEnvReadsDotEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("AAX_API_KEY=dot-key\nAAX_API_SECRET=dot-secret\n"), 0o600); err != nil {
		t.Fatalf("write .env failed: %v", err)
	}
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd() error = %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir() error = %v", err)
	}
	t.Cleanup(func() {
		_ = os.Chdir(wd)
		os.Unsetenv(EnvAPIKey)
		os.Unsetenv(EnvAPISecret)
	})

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv() error = %v", err)
	}
	if cfg.Exchange.APIKey != "dot-key" || cfg.Exchange.APISecret != "dot-secret" {
		t.Fatalf("credentials = %q/%q, want .env values", cfg.Exchange.APIKey, cfg.Exchange.APISecret)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"venue": `
exchange:
  default_venue: otc
`,
		"url": `
exchange:
  rest_base_url: ftp://api.example
`,
		"timeout": `
exchange:
  http_timeout_sec: 500
`,
		"prefix": `
exchange:
  client_order_prefix: "bad-prefix!"
`,
		"half credentials": `
exchange:
  api_key: only-key
`,
		"log format": `
log:
  format: xml
`,
		"log level": `
log:
  level: loud
`,
		"listen addr": `
metrics:
  listen_addr: nope
`,
		"unknown field": `
exchange:
  recv_window_ms: 5000
`,
	}
	for name, content := range cases {
		clearEnv(t)
		if _, err := Load(writeTempConfig(t, content)); err == nil {
			t.Fatalf("Load(%s) error = nil, want validation error", name)
		}
	}
}

func TestLoadRejectsMultipleDocuments(t *testing.T) {
	clearEnv(t)
	cfgPath := writeTempConfig(t, `
exchange:
  default_venue: spot
---
exchange:
  default_venue: futures
`)
	_, err := Load(cfgPath)
	if err == nil || !strings.Contains(err.Error(), "single YAML document") {
		t.Fatalf("Load() error = %v, want single document error", err)
	}

	cfgPath = writeTempConfig(t, `
exchange:
  default_venue: spot
---
anything: 1
`)
	if _, err := Load(cfgPath); err == nil || !strings.Contains(err.Error(), "single YAML document") {
		t.Fatalf("Load(second doc with unknown key) error = %v, want single document error", err)
	}
}

func TestDecimalFlag(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	var price, amount Decimal
	fs.Var(&price, "price", "")
	fs.Var(&amount, "amount", "")
	if err := fs.Parse([]string{"-amount", "0.25"}); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if !amount.IsSet() || !amount.Equal(decimal.RequireFromString("0.25")) {
		t.Fatalf("amount = %s set=%v, want 0.25", amount.String(), amount.IsSet())
	}
	if price.IsSet() || price.Null().Valid {
		t.Fatalf("price unexpectedly set: %s", price.String())
	}
	if err := fs.Parse([]string{"-price", "abc"}); err == nil {
		t.Fatalf("Parse(-price abc) error = nil, want invalid decimal")
	}
}

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(strings.TrimSpace(content)+"\n"), 0o644); err != nil {
		t.Fatalf("write temp config failed: %v", err)
	}
	return path
}
