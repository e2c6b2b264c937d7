package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"aax-connector/internal/config"
	"aax-connector/internal/core"
	"aax-connector/internal/exchange"
	"aax-connector/internal/exchange/aax"
	"aax-connector/internal/logger"
)

const (
	defaultOutDir = "data/aax"
	defaultBatch  = 500
	dayLayout     = "2006-01-02"
)

// candleLine is one JSONL record. Price repeats close for tools that replay
// candles as a price series.
type candleLine struct {
	Time      string `json:"time"`
	Timestamp int64  `json:"timestamp"`
	Symbol    string `json:"symbol"`
	Timeframe string `json:"timeframe"`
	Open      string `json:"open"`
	High      string `json:"high"`
	Low       string `json:"low"`
	Close     string `json:"close"`
	Price     string `json:"price"`
	Volume    string `json:"volume"`
}

type ohlcvFetcher interface {
	FetchOHLCV(ctx context.Context, symbol, timeframe string, q exchange.Query) ([]core.OHLCV, error)
}

// dayFiles appends JSON records to <dir>/<UTC day>.jsonl, keeping only the
// current day's file open. A day's file is truncated the first time it is
// opened in a run.
type dayFiles struct {
	dir  string
	day  string
	file *os.File
	enc  *json.Encoder
}

func openDayFiles(dir string) (*dayFiles, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &dayFiles{dir: dir}, nil
}

func (d *dayFiles) append(at time.Time, record any) error {
	if day := at.UTC().Format(dayLayout); day != d.day || d.file == nil {
		if err := d.Close(); err != nil {
			return err
		}
		f, err := os.Create(filepath.Join(d.dir, day+".jsonl"))
		if err != nil {
			return err
		}
		d.day, d.file, d.enc = day, f, json.NewEncoder(f)
	}
	return d.enc.Encode(record)
}

func (d *dayFiles) Close() error {
	if d == nil || d.file == nil {
		return nil
	}
	f := d.file
	d.file, d.enc = nil, nil
	return errors.Join(f.Sync(), f.Close())
}

// window is the half-open range [from, to) of candle open times to fetch.
type window struct {
	from, to time.Time
}

// parseWindow reads -from/-to, or falls back to the last `months` months
// before now. A date-only -to covers that whole day.
func parseWindow(months int, fromRaw, toRaw string, now time.Time) (window, error) {
	fromRaw, toRaw = strings.TrimSpace(fromRaw), strings.TrimSpace(toRaw)
	switch {
	case fromRaw == "" && toRaw == "":
		if months < 1 {
			return window{}, errors.New("months must be >= 1")
		}
		now = now.UTC()
		return window{from: now.AddDate(0, -months, 0), to: now}, nil
	case fromRaw == "" || toRaw == "":
		return window{}, errors.New("from and to must be provided together")
	}
	from, err := parseBound(fromRaw, false)
	if err != nil {
		return window{}, fmt.Errorf("invalid from: %w", err)
	}
	to, err := parseBound(toRaw, true)
	if err != nil {
		return window{}, fmt.Errorf("invalid to: %w", err)
	}
	if !to.After(from) {
		return window{}, errors.New("to must be after from")
	}
	return window{from: from, to: to}, nil
}

var boundLayouts = []string{time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02 15:04"}

// parseBound parses a UTC instant. An upper date-only bound moves to the
// start of the next day.
func parseBound(raw string, upper bool) (time.Time, error) {
	if day, err := time.Parse(dayLayout, raw); err == nil {
		if upper {
			day = day.AddDate(0, 0, 1)
		}
		return day, nil
	}
	for _, layout := range boundLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%q is neither YYYY-MM-DD nor RFC3339", raw)
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("marketdata", flag.ContinueOnError)
	configPath := fs.String("config", "", "config yaml path; environment and defaults only when empty")
	symbol := fs.String("symbol", "BTC/USDT", "logical symbol, e.g. BTC/USDT or BTC/USDFP")
	timeframe := fs.String("timeframe", "1h", "bar size, e.g. 1m/5m/1h/1d")
	months := fs.Int("months", 6, "how many months to fetch back from now when -from/-to are empty")
	fromRaw := fs.String("from", "", "first candle time (YYYY-MM-DD or RFC3339, UTC)")
	toRaw := fs.String("to", "", "end time (YYYY-MM-DD or RFC3339, UTC); a date covers the whole day")
	outDir := fs.String("out-dir", defaultOutDir, "output root dir")
	batch := fs.Int("batch", defaultBatch, "candles per request")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	log := logger.Get()
	entry := log.WithComponent("marketdata")
	sym := strings.ToUpper(strings.TrimSpace(*symbol))
	tf := strings.TrimSpace(*timeframe)
	if sym == "" || tf == "" {
		entry.Error("symbol and timeframe are required")
		return 2
	}
	win, err := parseWindow(*months, *fromRaw, *toRaw, time.Now())
	if err != nil {
		entry.WithError(err).Error("bad window")
		return 2
	}
	cfg, err := loadConfig(*configPath)
	if err != nil {
		entry.WithError(err).Error("load config failed")
		return 1
	}
	if err := log.Configure(logger.Options{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	}); err != nil {
		entry.WithError(err).Error("configure logger failed")
		return 1
	}
	client, err := aax.NewClient(cfg.Exchange, log, nil)
	if err != nil {
		entry.WithError(err).Error("build client failed")
		return 1
	}

	targetDir := filepath.Join(*outDir, strings.ReplaceAll(sym, "/", ""), tf)
	files, err := openDayFiles(targetDir)
	if err != nil {
		entry.WithError(err).Error("open output failed")
		return 1
	}
	defer func() {
		if err := files.Close(); err != nil {
			entry.WithError(err).Error("close output failed")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	entry.WithFields(logrus.Fields{
		"symbol":    sym,
		"timeframe": tf,
		"from":      win.from.Format(time.RFC3339),
		"to":        win.to.Format(time.RFC3339),
	}).Info("fetching candles")
	d := downloader{fetcher: client, out: files, log: entry}
	total, requests, err := d.run(ctx, sym, tf, win.from, win.to, *batch)
	fields := logrus.Fields{"records": total, "requests": requests, "output": targetDir}
	if err != nil && !errors.Is(err, context.Canceled) {
		entry.WithFields(fields).WithError(err).Error("download failed")
		return 1
	}
	entry.WithFields(fields).Info("done")
	return 0
}

func loadConfig(path string) (config.Config, error) {
	if path == "" {
		return config.FromEnv()
	}
	return config.Load(path)
}

type downloader struct {
	fetcher ohlcvFetcher
	out     *dayFiles
	log     *logrus.Entry
}

// run pages forward from start until end. Each page starts one bar after the
// newest candle written so far; an empty or stale page ends the download.
func (d downloader) run(ctx context.Context, symbol, timeframe string, start, end time.Time, batch int) (int, int, error) {
	bar, ok := aax.TimeframeDuration(timeframe)
	if !ok {
		return 0, 0, fmt.Errorf("unsupported timeframe %q", timeframe)
	}
	if batch <= 0 {
		batch = defaultBatch
	}
	cursor := start
	endMs := end.UnixMilli()
	total, requests := 0, 0
	for cursor.Before(end) {
		candles, err := d.fetcher.FetchOHLCV(ctx, symbol, timeframe, exchange.Query{Since: cursor, Limit: batch})
		if err != nil {
			return total, requests, err
		}
		requests++
		next := cursor
		for _, c := range candles {
			if c.Timestamp < cursor.UnixMilli() || c.Timestamp >= endMs {
				continue
			}
			at := time.UnixMilli(c.Timestamp).UTC()
			line := candleLine{
				Time:      at.Format(time.RFC3339),
				Timestamp: c.Timestamp,
				Symbol:    symbol,
				Timeframe: timeframe,
				Open:      c.Open.String(),
				High:      c.High.String(),
				Low:       c.Low.String(),
				Close:     c.Close.String(),
				Price:     c.Close.String(),
				Volume:    c.Volume.String(),
			}
			if err := d.out.append(at, line); err != nil {
				return total, requests, err
			}
			total++
			if after := at.Add(bar); after.After(next) {
				next = after
			}
		}
		if !next.After(cursor) {
			break
		}
		cursor = next
		if requests%20 == 0 && d.log != nil {
			d.log.WithFields(logrus.Fields{"requests": requests, "records": total, "last": cursor.Format(time.RFC3339)}).Info("progress")
		}
	}
	return total, requests, nil
}
