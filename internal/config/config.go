package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"net/url"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	EnvAPIKey       = "AAX_API_KEY"
	EnvAPISecret    = "AAX_API_SECRET"
	EnvDefaultVenue = "AAX_DEFAULT_VENUE"
	EnvRestBaseURL  = "AAX_REST_BASE_URL"
)

const defaultRestBaseURL = "https://api.aaxpro.com"

type Config struct {
	Exchange ExchangeConfig `yaml:"exchange"`
	Log      LogConfig      `yaml:"log"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	State    StateConfig    `yaml:"state"`
}

type ExchangeConfig struct {
	APIKey            string `yaml:"api_key"`
	APISecret         string `yaml:"api_secret"`
	RestBaseURL       string `yaml:"rest_base_url"`
	DefaultVenue      string `yaml:"default_venue"`
	HTTPTimeoutSec    int64  `yaml:"http_timeout_sec"`
	RateLimitMs       int64  `yaml:"rate_limit_ms"`
	ClientOrderPrefix string `yaml:"client_order_prefix"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

type MetricsConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

type StateConfig struct {
	Dir           string `yaml:"dir"`
	MarketsTTLSec int64  `yaml:"markets_ttl_sec"`
}

// Load reads a single-document YAML file, overlays the AAX_* environment
// (including an optional .env in the working directory), applies defaults and
// validates the result.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && err != io.EOF {
		return Config{}, err
	}
	var extra yaml.Node
	if err := dec.Decode(&extra); err != io.EOF {
		if err == nil {
			return Config{}, fmt.Errorf("config must contain a single YAML document")
		}
		return Config{}, err
	}
	return finish(cfg)
}

// FromEnv builds a configuration from the environment and defaults only.
func FromEnv() (Config, error) {
	return finish(Config{})
}

func finish(cfg Config) (Config, error) {
	if err := loadDotEnv(); err != nil {
		return Config{}, err
	}
	cfg.overlayEnv()
	cfg.normalize()
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// loadDotEnv never overrides variables already present in the environment.
func loadDotEnv() error {
	err := godotenv.Load()
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("load .env: %w", err)
}

func (c *Config) overlayEnv() {
	if v, ok := os.LookupEnv(EnvAPIKey); ok {
		c.Exchange.APIKey = v
	}
	if v, ok := os.LookupEnv(EnvAPISecret); ok {
		c.Exchange.APISecret = v
	}
	if v, ok := os.LookupEnv(EnvDefaultVenue); ok {
		c.Exchange.DefaultVenue = v
	}
	if v, ok := os.LookupEnv(EnvRestBaseURL); ok {
		c.Exchange.RestBaseURL = v
	}
}

func (c *Config) normalize() {
	c.Exchange.APIKey = strings.TrimSpace(c.Exchange.APIKey)
	c.Exchange.APISecret = strings.TrimSpace(c.Exchange.APISecret)
	c.Exchange.RestBaseURL = strings.TrimRight(strings.TrimSpace(c.Exchange.RestBaseURL), "/")
	c.Exchange.ClientOrderPrefix = strings.ToLower(strings.TrimSpace(c.Exchange.ClientOrderPrefix))
	venue := strings.ToLower(strings.TrimSpace(c.Exchange.DefaultVenue))
	if venue == "future" {
		venue = "futures"
	}
	c.Exchange.DefaultVenue = venue
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	c.Log.Format = strings.ToLower(strings.TrimSpace(c.Log.Format))
	c.Log.File = strings.TrimSpace(c.Log.File)
	c.Metrics.ListenAddr = strings.TrimSpace(c.Metrics.ListenAddr)
	c.State.Dir = strings.TrimSpace(c.State.Dir)
}

func (c *Config) applyDefaults() {
	if c.Exchange.RestBaseURL == "" {
		c.Exchange.RestBaseURL = defaultRestBaseURL
	}
	if c.Exchange.DefaultVenue == "" {
		c.Exchange.DefaultVenue = "spot"
	}
	if c.Exchange.HTTPTimeoutSec == 0 {
		c.Exchange.HTTPTimeoutSec = 15
	}
	if c.Exchange.RateLimitMs == 0 {
		c.Exchange.RateLimitMs = 1000
	}
	if c.Exchange.ClientOrderPrefix == "" {
		c.Exchange.ClientOrderPrefix = "aax"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Log.MaxSizeMB == 0 {
		c.Log.MaxSizeMB = 100
	}
	if c.Log.MaxBackups == 0 {
		c.Log.MaxBackups = 5
	}
	if c.Log.MaxAgeDays == 0 {
		c.Log.MaxAgeDays = 30
	}
	if c.State.Dir == "" {
		c.State.Dir = "state"
	}
	if c.State.MarketsTTLSec == 0 {
		c.State.MarketsTTLSec = 3600
	}
}

func (c Config) Validate() error {
	if c.Exchange.DefaultVenue != "spot" && c.Exchange.DefaultVenue != "futures" {
		return fmt.Errorf("exchange default_venue must be spot or futures")
	}
	if err := validateURL(c.Exchange.RestBaseURL, "http", "https"); err != nil {
		return fmt.Errorf("exchange rest_base_url %v", err)
	}
	if c.Exchange.HTTPTimeoutSec < 1 || c.Exchange.HTTPTimeoutSec > 120 {
		return fmt.Errorf("exchange http_timeout_sec must be between 1 and 120")
	}
	if c.Exchange.RateLimitMs < 0 || c.Exchange.RateLimitMs > 60000 {
		return fmt.Errorf("exchange rate_limit_ms must be between 0 and 60000")
	}
	if !isValidClientOrderPrefix(c.Exchange.ClientOrderPrefix) {
		return fmt.Errorf("exchange client_order_prefix must match [a-z0-9_], length 1..12")
	}
	if (c.Exchange.APIKey == "") != (c.Exchange.APISecret == "") {
		return fmt.Errorf("exchange api_key and api_secret must be set together")
	}
	switch c.Log.Level {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal", "panic":
	default:
		return fmt.Errorf("log level %q is not a valid level", c.Log.Level)
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return fmt.Errorf("log format must be json or text")
	}
	if c.Log.MaxSizeMB < 1 || c.Log.MaxBackups < 0 || c.Log.MaxAgeDays < 0 {
		return fmt.Errorf("log rotation limits must be positive")
	}
	if c.Metrics.ListenAddr != "" {
		if _, _, err := net.SplitHostPort(c.Metrics.ListenAddr); err != nil {
			return fmt.Errorf("metrics listen_addr must be host:port: %v", err)
		}
	}
	if c.State.MarketsTTLSec < 0 || c.State.MarketsTTLSec > 7*86400 {
		return fmt.Errorf("state.markets_ttl_sec must be between 0 and 604800")
	}
	return nil
}

func isValidClientOrderPrefix(v string) bool {
	if len(v) < 1 || len(v) > 12 {
		return false
	}
	for _, r := range v {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			continue
		}
		return false
	}
	return true
}

func validateURL(raw string, schemes ...string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("must be a valid URL: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("must include scheme and host")
	}
	for _, s := range schemes {
		if parsed.Scheme == s {
			return nil
		}
	}
	return fmt.Errorf("scheme must be %s", strings.Join(schemes, " or "))
}
