package app_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ogulcanaydogan/ad-spend-guardian/internal/app"
	"github.com/ogulcanaydogan/ad-spend-guardian/internal/config"
	"github.com/ogulcanaydogan/ad-spend-guardian/pkg/model"
	"github.com/ogulcanaydogan/ad-spend-guardian/pkg/monitor"
	"github.com/ogulcanaydogan/ad-spend-guardian/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeConfig(t *testing.T, body string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)

	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	return cfg
}

func TestNew_RecordedChannelsWithPlan(t *testing.T) {
	dir := t.TempDir()
	planPath := filepath.Join(dir, "plan.yaml")
	require.NoError(t, os.WriteFile(planPath, []byte("default: 5000\nholidays: [\"2026-12-25\"]\n"), 0o644))

	cfg := writeConfig(t, fmt.Sprintf(`
storage:
  path: %s
history:
  backend: memory
plan:
  path: %s
channels:
  - id: google
  - id: meta
`, filepath.Join(dir, "guardian.db"), planPath))

	ctx := context.Background()
	a, err := app.New(ctx, cfg, discardLogger())
	require.NoError(t, err)
	defer a.Close()

	assert.IsType(t, &storage.Memory{}, a.History)
	assert.Equal(t, []string{"google", "meta"}, a.Sources.Channels())

	yesterday := time.Now().UTC().AddDate(0, 0, -1)
	for _, ch := range []string{"google", "meta"} {
		require.NoError(t, a.Store.RecordDailyMetrics(ctx, &model.DailyMetrics{
			Date: yesterday, Channel: ch, Spend: 100, Conversions: 10, Revenue: 300,
		}))
	}

	r, err := a.Cycle.Run(ctx, monitor.CycleOptions{})
	require.NoError(t, err)
	assert.Equal(t, 5000.0, r.PeriodMetrics.MonthlyBudget, "budget comes from the plan")
	assert.False(t, r.PartialData)

	saved, err := a.Store.LatestReport(ctx)
	require.NoError(t, err)
	assert.Equal(t, r.ID, saved.ID)
}

func TestNew_StoredBudgetWinsOverPlan(t *testing.T) {
	dir := t.TempDir()
	planPath := filepath.Join(dir, "plan.yaml")
	require.NoError(t, os.WriteFile(planPath, []byte("default: 5000\n"), 0o644))

	cfg := writeConfig(t, fmt.Sprintf(`
storage:
  path: %s
plan:
  path: %s
channels:
  - id: google
`, filepath.Join(dir, "guardian.db"), planPath))

	ctx := context.Background()
	a, err := app.New(ctx, cfg, discardLogger())
	require.NoError(t, err)
	defer a.Close()

	require.NoError(t, a.Store.SetBudget(ctx, &model.Budget{
		Period:    model.PeriodOf(time.Now().UTC()),
		AmountUSD: 8000,
	}))

	r, err := a.Cycle.Run(ctx, monitor.CycleOptions{DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, 8000.0, r.PeriodMetrics.MonthlyBudget)
}

func TestNew_HTTPChannel(t *testing.T) {
	var auth string
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"spend": 1200, "conversions": 80, "revenue": 3600}`)
	}))
	defer api.Close()

	dir := t.TempDir()
	cfg := writeConfig(t, fmt.Sprintf(`
storage:
  path: %s
channels:
  - id: google
    url: %s
    token: secret
`, filepath.Join(dir, "guardian.db"), api.URL))

	ctx := context.Background()
	a, err := app.New(ctx, cfg, discardLogger())
	require.NoError(t, err)
	defer a.Close()

	require.NoError(t, a.Store.SetBudget(ctx, &model.Budget{
		Period:    model.PeriodOf(time.Now().UTC()),
		AmountUSD: 5000,
	}))

	r, err := a.Cycle.Run(ctx, monitor.CycleOptions{DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, 1200.0, r.Blended.TotalSpend)
	assert.Equal(t, "Bearer secret", auth)
}

func TestNew_MissingPlanFile(t *testing.T) {
	dir := t.TempDir()
	cfg := writeConfig(t, fmt.Sprintf(`
storage:
  path: %s
plan:
  path: %s
`, filepath.Join(dir, "guardian.db"), filepath.Join(dir, "missing.yaml")))

	_, err := app.New(context.Background(), cfg, discardLogger())
	assert.Error(t, err)
}

func TestServe_ServerErrorStopsScheduler(t *testing.T) {
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer busy.Close()

	dir := t.TempDir()
	cfg := writeConfig(t, fmt.Sprintf(`
storage:
  path: %s
history:
  backend: memory
channels:
  - id: google
`, filepath.Join(dir, "guardian.db")))

	a, err := app.New(context.Background(), cfg, discardLogger())
	require.NoError(t, err)
	defer a.Close()

	done := make(chan error, 1)
	go func() { done <- a.Serve(context.Background(), busy.Addr().String(), true) }()

	select {
	case err := <-done:
		assert.ErrorContains(t, err, "server error")
	case <-time.After(5 * time.Second):
		t.Fatal("Serve kept running after the listener failed")
	}
}

func TestNotifiers(t *testing.T) {
	cfg := &config.Config{}
	assert.Empty(t, app.Notifiers(cfg))

	cfg.Alerts.Slack.Enabled = true
	cfg.Alerts.Slack.WebhookURL = "https://hooks.slack.com/services/x"
	cfg.Alerts.Webhook.Enabled = true
	cfg.Alerts.Desktop.Enabled = true

	notifiers := app.Notifiers(cfg)
	require.Len(t, notifiers, 2, "webhook without a URL is skipped")
	assert.Equal(t, "slack", notifiers[0].Name())
	assert.Equal(t, "desktop", notifiers[1].Name())
}
