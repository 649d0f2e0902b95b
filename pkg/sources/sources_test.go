package sources_test

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ogulcanaydogan/ad-spend-guardian/pkg/model"
	"github.com/ogulcanaydogan/ad-spend-guardian/pkg/sources"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

type staticSource struct {
	snap model.ChannelSnapshot
	err  error
}

func (s staticSource) FetchChannelSnapshot(_ context.Context, _ string) (model.ChannelSnapshot, error) {
	return s.snap, s.err
}

type staticBudget struct {
	amount float64
	err    error
}

func (s staticBudget) MonthlyBudget(context.Context, string) (float64, error) {
	return s.amount, s.err
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := sources.NewRegistry()
	require.NoError(t, r.Register("google_ads", staticSource{}))
	require.NoError(t, r.Register("meta_ads", staticSource{}))

	_, err := r.Get("google_ads")
	require.NoError(t, err)
	assert.Equal(t, []string{"google_ads", "meta_ads"}, r.Channels())
	assert.Equal(t, 2, r.Len())
}

func TestRegistry_DuplicateRegister(t *testing.T) {
	r := sources.NewRegistry()
	require.NoError(t, r.Register("google_ads", staticSource{}))

	err := r.Register("google_ads", staticSource{})
	assert.ErrorContains(t, err, "already registered")
	assert.Error(t, r.Register("", staticSource{}))
}

func TestRegistry_GetNotFound(t *testing.T) {
	_, err := sources.NewRegistry().Get("tiktok_ads")
	assert.ErrorContains(t, err, "not found")
}

func TestCollector_PartialFailure(t *testing.T) {
	r := sources.NewRegistry()
	require.NoError(t, r.Register("google_ads", staticSource{snap: model.NewChannelSnapshot("", 300, 20, 900)}))
	require.NoError(t, r.Register("meta_ads", staticSource{err: errors.New("timeout")}))
	require.NoError(t, r.Register("linkedin_ads", staticSource{snap: model.NewChannelSnapshot("", 100, 4, 250)}))

	got := sources.NewCollector(r, 2, testLogger()).Collect(context.Background())

	require.Len(t, got.Snapshots, 3)
	assert.Equal(t, "google_ads", got.Snapshots["google_ads"].ChannelID)
	assert.InDelta(t, 300.0, got.Snapshots["google_ads"].Spend, 1e-9)
	assert.True(t, got.Snapshots["meta_ads"].Missing)
	assert.Zero(t, got.Snapshots["meta_ads"].Spend)
	require.Len(t, got.Failed, 1)
	assert.ErrorContains(t, got.Failed["meta_ads"], "timeout")
}

func TestHTTPSource_Fetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "google_ads", r.URL.Query().Get("channel"))
		assert.Equal(t, "2026-10", r.URL.Query().Get("period"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"spend": 1200, "conversions": 80, "revenue": 4200}`))
	}))
	defer server.Close()

	src := sources.NewHTTPSource("google_ads", server.URL, "secret", testLogger(),
		sources.WithClock(func() time.Time { return time.Date(2026, time.October, 16, 0, 0, 0, 0, time.UTC) }))

	snap, err := src.FetchChannelSnapshot(context.Background(), "google_ads")
	require.NoError(t, err)
	assert.Equal(t, "google_ads", snap.ChannelID)
	assert.InDelta(t, 15.0, snap.CAC.Value, 1e-9)
	assert.InDelta(t, 3.5, snap.ROAS.Value, 1e-9)
}

func TestHTTPSource_RetriesTransientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"spend": 10, "conversions": 1, "revenue": 30}`))
	}))
	defer server.Close()

	src := sources.NewHTTPSource("meta_ads", server.URL, "", testLogger(), sources.WithRetry(2, time.Millisecond))
	snap, err := src.FetchChannelSnapshot(context.Background(), "meta_ads")
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
	assert.InDelta(t, 10.0, snap.Spend, 1e-9)
}

func TestHTTPSource_DoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	src := sources.NewHTTPSource("meta_ads", server.URL, "bad", testLogger(), sources.WithRetry(3, time.Millisecond))
	_, err := src.FetchChannelSnapshot(context.Background(), "meta_ads")
	assert.ErrorContains(t, err, "status 401")
	assert.Equal(t, int32(1), calls.Load())
}

func TestHTTPSource_BreakerOpens(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	src := sources.NewHTTPSource("bing_ads", server.URL, "", testLogger(), sources.WithRetry(0, time.Millisecond))
	ctx := context.Background()
	for range 3 {
		_, err := src.FetchChannelSnapshot(ctx, "bing_ads")
		require.Error(t, err)
	}
	assert.Equal(t, "open", src.BreakerState())

	_, err := src.FetchChannelSnapshot(ctx, "bing_ads")
	assert.Error(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestLoadPlan(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
default: 5000
budgets:
  "2026-10": 5271
holidays:
  - "2026-11-26"
`), 0o600))

	plan, err := sources.LoadPlan(path)
	require.NoError(t, err)

	ctx := context.Background()
	amount, err := plan.MonthlyBudget(ctx, "2026-10")
	require.NoError(t, err)
	assert.InDelta(t, 5271.0, amount, 1e-9)

	amount, err = plan.MonthlyBudget(ctx, "2026-12")
	require.NoError(t, err)
	assert.InDelta(t, 5000.0, amount, 1e-9)
	assert.Equal(t, []string{"2026-11-26"}, plan.Holidays)
}

func TestLoadPlanFromBytes_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"bad period", "budgets:\n  october: 100\n"},
		{"negative budget", "budgets:\n  \"2026-10\": -1\n"},
		{"bad holiday", "holidays:\n  - 26/11/2026\n"},
		{"not yaml", "budgets: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := sources.LoadPlanFromBytes([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestPlan_NoBudget(t *testing.T) {
	plan, err := sources.LoadPlanFromBytes([]byte("budgets:\n  \"2026-10\": 100\n"))
	require.NoError(t, err)

	_, err = plan.MonthlyBudget(context.Background(), "2026-11")
	assert.ErrorIs(t, err, sources.ErrNoBudget)
}

func TestFirstBudget(t *testing.T) {
	ctx := context.Background()
	chain := sources.FirstBudget(staticBudget{err: errors.New("not set")}, staticBudget{amount: 4000})

	amount, err := chain.MonthlyBudget(ctx, "2026-10")
	require.NoError(t, err)
	assert.InDelta(t, 4000.0, amount, 1e-9)

	_, err = sources.FirstBudget(staticBudget{err: errors.New("a")}, staticBudget{err: errors.New("b")}).MonthlyBudget(ctx, "2026-10")
	assert.ErrorContains(t, err, "a")
	assert.ErrorContains(t, err, "b")
}
