package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"aax-connector/internal/config"
	"aax-connector/internal/core"
	"aax-connector/internal/exchange/aax"
	"aax-connector/internal/logger"
	"aax-connector/internal/metrics"
	"aax-connector/internal/store"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run returns the process exit code so deferred cleanup completes before exit.
func run(args []string) int {
	fs := flag.NewFlagSet("aaxctl", flag.ContinueOnError)
	configPath := fs.String("config", "", "config yaml path; environment and defaults only when empty")
	repeat := fs.Duration("repeat", 0, "re-run the command at this interval until interrupted")
	fs.Usage = func() { usage(fs) }
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() < 1 {
		usage(fs)
		return 2
	}
	cmd, ok := commands[fs.Arg(0)]
	if !ok {
		fmt.Fprintf(fs.Output(), "unknown command %q\n", fs.Arg(0))
		usage(fs)
		return 2
	}

	log := logger.Get()
	entry := log.WithComponent("aaxctl")
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.NewRequests()
	if cfg.Metrics.ListenAddr != "" {
		srv := serveMetrics(cfg.Metrics.ListenAddr, m, entry)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				entry.WithError(err).Warn("metrics server shutdown failed")
			}
		}()
	}

	client, err := aax.NewClient(cfg.Exchange, log, m)
	if err != nil {
		entry.WithError(err).Error("build client failed")
		return 1
	}
	st, err := store.New(cfg.State.Dir)
	if err != nil {
		entry.WithError(err).Error("open state dir failed")
		return 1
	}
	a := &app{
		client:     client,
		store:      st,
		baseURL:    cfg.Exchange.RestBaseURL,
		marketsTTL: time.Duration(cfg.State.MarketsTTLSec) * time.Second,
		out:        os.Stdout,
		log:        entry,
	}
	if err := a.loop(ctx, cmd, fs.Args()[1:], *repeat); err != nil && !errors.Is(err, context.Canceled) {
		entry.WithError(err).Error("aaxctl failed")
		return 1
	}
	return 0
}

func loadConfig(path string) (config.Config, error) {
	if path == "" {
		return config.FromEnv()
	}
	return config.Load(path)
}

type app struct {
	client     *aax.Client
	store      *store.Store
	baseURL    string
	marketsTTL time.Duration
	out        io.Writer
	log        *logrus.Entry
	cached     bool
}

func (a *app) loop(ctx context.Context, cmd command, args []string, repeat time.Duration) error {
	if err := a.execute(ctx, cmd, args); err != nil || repeat <= 0 {
		return err
	}
	ticker := time.NewTicker(repeat)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := a.execute(ctx, cmd, args); err != nil {
				a.log.WithError(err).Warn("command failed")
			}
		}
	}
}

// execute runs one command with the market table warmed from the on-disk
// snapshot and persists a freshly loaded table afterwards.
func (a *app) execute(ctx context.Context, cmd command, args []string) error {
	a.warmMarkets()
	result, err := cmd.run(ctx, a, args)
	a.persistMarkets(ctx)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func (a *app) warmMarkets() {
	if a.store == nil || a.cached {
		return
	}
	markets, ok, err := a.store.LoadMarkets(a.baseURL, a.marketsTTL)
	if err != nil {
		a.log.WithError(err).Warn("markets snapshot unreadable")
		return
	}
	if ok {
		a.client.SetMarkets(markets)
		a.cached = true
		a.log.WithField("markets", len(markets)).Debug("markets loaded from snapshot")
	}
}

func (a *app) persistMarkets(ctx context.Context) {
	if a.store == nil || a.cached || !a.client.MarketsLoaded() {
		return
	}
	markets, err := a.client.LoadMarkets(ctx, false)
	if err != nil {
		return
	}
	if err := a.store.SaveMarkets(a.baseURL, markets); err != nil {
		a.log.WithError(err).Warn("save markets snapshot failed")
		return
	}
	a.cached = true
}

// journal records an order acknowledgement; failures are logged only.
func (a *app) journal(action string, order core.Order) {
	if a.store == nil {
		return
	}
	if err := a.store.AppendOrder(action, order); err != nil {
		a.log.WithError(err).WithField("order_id", order.ID).Warn("journal order failed")
	}
}

func serveMetrics(addr string, m *metrics.Requests, log *logrus.Entry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("metrics server stopped")
		}
	}()
	log.WithField("addr", addr).Info("metrics server listening")
	return srv
}

func usage(fs *flag.FlagSet) {
	out := fs.Output()
	fmt.Fprintln(out, "usage: aaxctl [-config path] [-repeat interval] <command> [flags]")
	fmt.Fprintln(out, "\ncommands:")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(out, "  %-14s %s\n", name, commands[name].usage)
	}
	fmt.Fprintln(out, "\nglobal flags:")
	fs.PrintDefaults()
}
