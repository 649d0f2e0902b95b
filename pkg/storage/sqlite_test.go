package storage_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/ogulcanaydogan/ad-spend-guardian/pkg/model"
	"github.com/ogulcanaydogan/ad-spend-guardian/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var evalDay = time.Date(2026, time.October, 16, 10, 0, 0, 0, time.UTC)

func newTestDB(t *testing.T) *storage.SQLite {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := storage.NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	db.SetClock(func() time.Time { return evalDay })
	return db
}

func day(d int) time.Time {
	return time.Date(2026, time.October, d, 0, 0, 0, 0, time.UTC)
}

func record(t *testing.T, db *storage.SQLite, d int, channel string, spend float64, conv int64, revenue float64) {
	t.Helper()
	require.NoError(t, db.RecordDailyMetrics(context.Background(), &model.DailyMetrics{
		Date: day(d), Channel: channel, Spend: spend, Conversions: conv, Revenue: revenue,
	}))
}

func TestSQLite_RecordDailyMetrics_Upsert(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	m := &model.DailyMetrics{Date: day(3), Channel: "google_ads", Spend: 100, Conversions: 5, Revenue: 300}
	require.NoError(t, db.RecordDailyMetrics(ctx, m))
	assert.NotEmpty(t, m.ID)

	record(t, db, 3, "google_ads", 150, 6, 420)

	rows, err := db.QueryDailyMetrics(ctx, model.MetricsFilter{Channel: "google_ads"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.InDelta(t, 150.0, rows[0].Spend, 1e-9)
	assert.Equal(t, int64(6), rows[0].Conversions)
	assert.True(t, rows[0].Date.Equal(day(3)))
}

func TestSQLite_RecordDailyMetrics_Invalid(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	assert.Error(t, db.RecordDailyMetrics(ctx, &model.DailyMetrics{Date: day(1), Spend: 10}))
	assert.Error(t, db.RecordDailyMetrics(ctx, &model.DailyMetrics{Date: day(1), Channel: "meta_ads", Spend: -1}))
}

func TestSQLite_QueryDailyMetrics_Filter(t *testing.T) {
	db := newTestDB(t)
	record(t, db, 1, "google_ads", 100, 5, 300)
	record(t, db, 2, "google_ads", 110, 5, 310)
	record(t, db, 2, "meta_ads", 90, 3, 200)
	record(t, db, 5, "meta_ads", 80, 2, 150)

	rows, err := db.QueryDailyMetrics(context.Background(), model.MetricsFilter{Start: day(2), End: day(5)})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "google_ads", rows[0].Channel)
	assert.Equal(t, "meta_ads", rows[1].Channel)
}

func TestSQLite_FetchChannelSnapshot_CompletedDaysOnly(t *testing.T) {
	db := newTestDB(t)
	record(t, db, 14, "google_ads", 200, 10, 700)
	record(t, db, 15, "google_ads", 100, 10, 200)
	record(t, db, 16, "google_ads", 999, 99, 999) // today, not complete
	record(t, db, 15, "meta_ads", 50, 1, 100)

	snap, err := db.FetchChannelSnapshot(context.Background(), "google_ads")
	require.NoError(t, err)
	assert.InDelta(t, 300.0, snap.Spend, 1e-9)
	assert.Equal(t, int64(20), snap.Conversions)
	assert.InDelta(t, 15.0, snap.CAC.Value, 1e-9)
	assert.InDelta(t, 3.0, snap.ROAS.Value, 1e-9)

	empty, err := db.FetchChannelSnapshot(context.Background(), "tiktok_ads")
	require.NoError(t, err)
	assert.Zero(t, empty.Spend)
	assert.False(t, empty.CAC.Valid)
}

func TestSQLite_DailySpendSeries(t *testing.T) {
	db := newTestDB(t)
	record(t, db, 14, "google_ads", 100, 1, 1)
	record(t, db, 14, "meta_ads", 40, 1, 1)
	record(t, db, 15, "google_ads", 140, 1, 1)
	record(t, db, 16, "google_ads", 500, 1, 1)

	series, err := db.DailySpendSeries(context.Background(), "2026-10")
	require.NoError(t, err)
	require.Len(t, series, 2)
	assert.True(t, series[0].Date.Equal(day(14)))
	assert.InDelta(t, 140.0, series[0].Amount, 1e-9)
	assert.InDelta(t, 140.0, series[1].Amount, 1e-9)

	_, err = db.DailySpendSeries(context.Background(), "bogus")
	assert.Error(t, err)
}

func TestSQLite_Budgets(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.SetBudget(ctx, &model.Budget{Period: "2026-10", AmountUSD: 5271}))
	require.NoError(t, db.SetBudget(ctx, &model.Budget{Period: "2026-09", AmountUSD: 4000}))
	require.NoError(t, db.SetBudget(ctx, &model.Budget{Period: "2026-10", AmountUSD: 6000}))

	amount, err := db.MonthlyBudget(ctx, "2026-10")
	require.NoError(t, err)
	assert.InDelta(t, 6000.0, amount, 1e-9)

	budgets, err := db.ListBudgets(ctx)
	require.NoError(t, err)
	require.Len(t, budgets, 2)
	assert.Equal(t, "2026-10", budgets[0].Period)

	_, err = db.GetBudget(ctx, "2026-11")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	assert.Error(t, db.SetBudget(ctx, &model.Budget{Period: "October", AmountUSD: 1}))
	assert.Error(t, db.SetBudget(ctx, &model.Budget{Period: "2026-12", AmountUSD: -5}))
}

func TestSQLite_Reports(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	_, err := db.LatestReport(ctx)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	older := &model.Report{
		ID: "r-1", Date: evalDay.Add(-4 * time.Hour), Period: "2026-10",
		OverallStatus: model.StatusWarning,
		Alerts:        []model.Alert{{Level: model.LevelWarning, Dimension: model.DimensionBudget, Value: 82}},
		PeriodMetrics: model.PeriodMetrics{BudgetPercentage: model.Some(82), CurrentCAC: model.None()},
	}
	newer := &model.Report{
		ID: "r-2", Date: evalDay, Period: "2026-10",
		OverallStatus: model.StatusCritical, PartialData: true, MissingChannels: []string{"meta_ads"},
	}
	require.NoError(t, db.SaveReport(ctx, older))
	require.NoError(t, db.SaveReport(ctx, newer))

	latest, err := db.LatestReport(ctx)
	require.NoError(t, err)
	assert.Equal(t, "r-2", latest.ID)
	assert.True(t, latest.PartialData)
	assert.Equal(t, []string{"meta_ads"}, latest.MissingChannels)

	reports, err := db.ListReports(ctx, 10)
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, "r-1", reports[1].ID)
	assert.Equal(t, model.Some(82), reports[1].PeriodMetrics.BudgetPercentage)
	assert.False(t, reports[1].PeriodMetrics.CurrentCAC.Valid)
	require.Len(t, reports[1].Alerts, 1)
	assert.Equal(t, model.DimensionBudget, reports[1].Alerts[0].Dimension)
}
