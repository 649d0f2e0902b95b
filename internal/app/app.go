// Package app wires configuration into a ready-to-run guardian: storage,
// alert history, channel sources, notifiers, the evaluation cycle and
// its metrics.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"time"

	"github.com/ogulcanaydogan/ad-spend-guardian/internal/config"
	"github.com/ogulcanaydogan/ad-spend-guardian/internal/server"
	"github.com/ogulcanaydogan/ad-spend-guardian/pkg/alerts"
	"github.com/ogulcanaydogan/ad-spend-guardian/pkg/model"
	"github.com/ogulcanaydogan/ad-spend-guardian/pkg/monitor"
	"github.com/ogulcanaydogan/ad-spend-guardian/pkg/sources"
	"github.com/ogulcanaydogan/ad-spend-guardian/pkg/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"
)

// collectLimit bounds concurrent channel fetches.
const collectLimit = 4

// App holds the wired components of one guardian process.
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	Store    *storage.SQLite
	History  storage.HistoryStore
	Sources  *sources.Registry
	Metrics  *monitor.Metrics
	Registry *prometheus.Registry
	Cycle    *monitor.Cycle
}

// NewLogger creates a structured logger from config.
func NewLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	var handler slog.Handler
	if cfg.Logging.Format == "text" {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}

	return slog.New(handler)
}

// New builds an App from cfg. The caller must Close it.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	store, err := storage.NewSQLite(cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	a := &App{
		Config:   cfg,
		Logger:   logger,
		Store:    store,
		Registry: prometheus.NewRegistry(),
	}
	if err := a.wire(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) wire(ctx context.Context) error {
	cfg := a.Config

	a.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.Metrics = monitor.NewMetrics(a.Registry)

	history, err := newHistoryStore(ctx, cfg, a.Store)
	if err != nil {
		return err
	}
	a.History = history

	windows, err := cfg.Windows()
	if err != nil {
		return err
	}
	gate := monitor.NewCooldownGate(history, windows, a.Logger, a.Metrics).
		WithKeyMode(monitor.KeyMode(cfg.History.KeyMode))

	holidays, err := model.ParseHolidays(cfg.Calendar.Holidays)
	if err != nil {
		return fmt.Errorf("parse holidays: %w", err)
	}

	var budgets sources.BudgetSource = a.Store
	if cfg.Plan.Path != "" {
		plan, err := sources.LoadPlan(cfg.Plan.Path)
		if err != nil {
			return err
		}
		planned, err := model.ParseHolidays(plan.Holidays)
		if err != nil {
			return err
		}
		maps.Copy(holidays, planned)
		budgets = sources.FirstBudget(a.Store, plan)
	}

	a.Sources, err = newRegistry(cfg, a.Store, a.Logger)
	if err != nil {
		return err
	}

	opts := monitor.Options{
		Thresholds:  cfg.Thresholds,
		Multipliers: cfg.Multipliers(),
		Holidays:    holidays,
	}

	a.Cycle = monitor.NewCycle(monitor.CycleDeps{
		Monitor:    monitor.New(gate, opts, a.Logger),
		Collector:  sources.NewCollector(a.Sources, collectLimit, a.Logger),
		Budgets:    budgets,
		Series:     a.Store,
		History:    a.Store,
		Reports:    a.Store,
		Notifiers:  Notifiers(cfg),
		Thresholds: cfg.Thresholds,
	}, a.Logger, a.Metrics)
	return nil
}

// Serve runs the HTTP API on listen until ctx is cancelled. With
// schedule set, the evaluation scheduler runs alongside it.
func (a *App) Serve(ctx context.Context, listen string, schedule bool) error {
	readTimeout, _ := time.ParseDuration(a.Config.Server.ReadTimeout)
	if readTimeout == 0 {
		readTimeout = 30 * time.Second
	}
	writeTimeout, _ := time.ParseDuration(a.Config.Server.WriteTimeout)
	if writeTimeout == 0 {
		writeTimeout = 60 * time.Second
	}

	srv := server.NewServer(server.Deps{
		Reports:  a.Store,
		History:  a.History,
		Cycle:    a.Cycle,
		Gatherer: a.Registry,
	}, a.Logger)

	// A server error cancels the scheduler; Serve returns once both have
	// stopped so Close never races a running cycle.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Serve(gctx, listen, readTimeout, writeTimeout)
	})
	if schedule {
		sched := monitor.NewScheduler(a.Cycle, a.Config.CheckInterval(), monitor.CycleOptions{Notify: true}, a.Logger)
		g.Go(func() error {
			sched.Start(gctx)
			return nil
		})
	}
	return g.Wait()
}

// Close releases the history store and the database.
func (a *App) Close() error {
	var errs []error
	if a.History != nil && a.History != storage.HistoryStore(a.Store) {
		errs = append(errs, a.History.Close())
	}
	errs = append(errs, a.Store.Close())
	return errors.Join(errs...)
}

func newHistoryStore(ctx context.Context, cfg *config.Config, store *storage.SQLite) (storage.HistoryStore, error) {
	switch cfg.History.Backend {
	case "memory":
		return storage.NewMemory(), nil
	case "redis":
		return storage.NewRedis(ctx, cfg.History.Redis)
	default:
		return store, nil
	}
}

// newRegistry binds every configured channel to its source: the HTTP
// endpoint when a URL is set, the recorded daily metrics otherwise.
func newRegistry(cfg *config.Config, store *storage.SQLite, logger *slog.Logger) (*sources.Registry, error) {
	registry := sources.NewRegistry()
	for _, ch := range cfg.Channels {
		var src sources.SnapshotSource = store
		if ch.URL != "" {
			src = sources.NewHTTPSource(ch.ID, ch.URL, ch.Token, logger)
		}
		if err := registry.Register(ch.ID, src); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

// Notifiers creates alert notifiers from config.
func Notifiers(cfg *config.Config) []alerts.Notifier {
	var notifiers []alerts.Notifier

	if cfg.Alerts.Slack.Enabled && cfg.Alerts.Slack.WebhookURL != "" {
		notifiers = append(notifiers, alerts.NewSlackNotifier(
			cfg.Alerts.Slack.WebhookURL,
			cfg.Alerts.Slack.Channel,
		))
	}

	if cfg.Alerts.Webhook.Enabled && cfg.Alerts.Webhook.URL != "" {
		notifiers = append(notifiers, alerts.NewWebhookNotifier(
			cfg.Alerts.Webhook.URL,
			cfg.Alerts.Webhook.Secret,
		))
	}

	if cfg.Alerts.Desktop.Enabled {
		notifiers = append(notifiers, alerts.NewDesktopNotifier(model.Level(cfg.Alerts.Desktop.MinLevel)))
	}

	return notifiers
}
