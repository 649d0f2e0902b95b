package storage

import (
	"context"
	"errors"

	"github.com/ogulcanaydogan/ad-spend-guardian/pkg/model"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// HistoryStore persists the alert cooldown history.
type HistoryStore interface {
	// GetAlertHistory returns the entry of key, or nil, nil if absent.
	GetAlertHistory(ctx context.Context, key model.HistoryKey) (*model.AlertHistoryEntry, error)

	// PutAlertHistory overwrites the entry of key.
	PutAlertHistory(ctx context.Context, key model.HistoryKey, entry model.AlertHistoryEntry) error

	// SwapAlertHistory writes next only if the stored entry still equals
	// old (nil meaning absent). It reports whether the write happened.
	SwapAlertHistory(ctx context.Context, key model.HistoryKey, old *model.AlertHistoryEntry, next model.AlertHistoryEntry) (bool, error)

	// ListAlertHistory returns every entry ordered by key.
	ListAlertHistory(ctx context.Context) ([]model.AlertHistoryRecord, error)

	// ResetAlertHistory deletes every entry.
	ResetAlertHistory(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// Storage defines the persistence layer for metrics, budgets, reports
// and alert history.
type Storage interface {
	HistoryStore

	// RecordDailyMetrics upserts one channel's metrics for one day.
	RecordDailyMetrics(ctx context.Context, m *model.DailyMetrics) error

	// QueryDailyMetrics returns recorded metrics matching the filter,
	// ordered by date then channel.
	QueryDailyMetrics(ctx context.Context, filter model.MetricsFilter) ([]model.DailyMetrics, error)

	// SetBudget creates or updates the budget of a period.
	SetBudget(ctx context.Context, budget *model.Budget) error

	// GetBudget retrieves the budget of a period.
	GetBudget(ctx context.Context, period string) (*model.Budget, error)

	// ListBudgets returns all budgets, newest period first.
	ListBudgets(ctx context.Context) ([]model.Budget, error)

	// SaveReport persists a completed report.
	SaveReport(ctx context.Context, report *model.Report) error

	// LatestReport returns the most recent report.
	LatestReport(ctx context.Context) (*model.Report, error)

	// ListReports returns up to limit reports, newest first.
	ListReports(ctx context.Context, limit int) ([]model.Report, error)
}

func sameEntry(a, b *model.AlertHistoryEntry) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.LastSentAt.Equal(b.LastSentAt) && a.SentCount == b.SentCount && a.LastLevel == b.LastLevel
}
