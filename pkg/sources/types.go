// Package sources provides the data feeding an evaluation cycle: channel
// snapshots, monthly budgets and the daily spend series.
package sources

import (
	"context"

	"github.com/ogulcanaydogan/ad-spend-guardian/pkg/model"
)

// SnapshotSource fetches the month-to-date snapshot of one ad channel.
type SnapshotSource interface {
	FetchChannelSnapshot(ctx context.Context, channelID string) (model.ChannelSnapshot, error)
}

// BudgetSource returns the planned budget of a monthly period ("2026-10").
type BudgetSource interface {
	MonthlyBudget(ctx context.Context, period string) (float64, error)
}

// SeriesSource returns the daily spend of a period ordered by date.
type SeriesSource interface {
	DailySpendSeries(ctx context.Context, period string) ([]model.DailySpend, error)
}

// MetricsSource returns recorded per-channel daily metrics.
type MetricsSource interface {
	QueryDailyMetrics(ctx context.Context, filter model.MetricsFilter) ([]model.DailyMetrics, error)
}
