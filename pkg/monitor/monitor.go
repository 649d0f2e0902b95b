package monitor

import (
	"context"
	"log/slog"
	"time"

	"github.com/ogulcanaydogan/ad-spend-guardian/pkg/model"
)

// Input is everything one evaluation needs, already fetched.
type Input struct {
	Snapshots        map[string]model.ChannelSnapshot
	MonthlyBudget    float64
	DailySpend       []model.DailySpend
	CACWarningStreak bool
	// MissingChannels lists channels whose snapshot is an empty stand-in.
	MissingChannels []string
	// ReportID fixes the report id; a random one is used when empty.
	ReportID string
}

// Options tunes the evaluation.
type Options struct {
	Thresholds  Thresholds
	Multipliers Multipliers
	Holidays    model.HolidaySet
}

// DefaultOptions returns the standard thresholds and multipliers with no holidays.
func DefaultOptions() Options {
	return Options{
		Thresholds:  DefaultThresholds(),
		Multipliers: DefaultMultipliers(),
	}
}

// Monitor runs the evaluation pipeline: blend, project, evaluate,
// prioritize, gate, recommend and assemble.
type Monitor struct {
	opts   Options
	gate   *CooldownGate
	logger *slog.Logger
}

// New creates a Monitor. The gate decides which alerts notify.
func New(gate *CooldownGate, opts Options, logger *slog.Logger) *Monitor {
	return &Monitor{opts: opts, gate: gate, logger: logger}
}

// Evaluate runs one evaluation at now and records notified alerts in
// the cooldown history. Callers that persist or deliver the report
// before it counts as sent use Preview and Commit instead.
func (m *Monitor) Evaluate(ctx context.Context, in Input, now time.Time) (*model.Report, error) {
	return m.evaluate(ctx, in, now, m.gate.Allow)
}

// Preview runs one evaluation at now without touching the cooldown
// history. The report lists the alerts that would notify.
func (m *Monitor) Preview(ctx context.Context, in Input, now time.Time) (*model.Report, error) {
	return m.evaluate(ctx, in, now, m.gate.Peek)
}

// Commit records delivered alerts in the cooldown history and returns
// the ones recorded.
func (m *Monitor) Commit(ctx context.Context, delivered []model.Alert, now time.Time) []model.Alert {
	return m.gate.Commit(ctx, delivered, now)
}

type gateFunc func(ctx context.Context, alerts []model.Alert, now time.Time) []model.Alert

func (m *Monitor) evaluate(ctx context.Context, in Input, now time.Time, gate gateFunc) (*model.Report, error) {
	blended, err := Blend(in.Snapshots)
	if err != nil {
		return nil, err
	}
	if in.MonthlyBudget < 0 {
		return nil, &InvalidInputError{Reason: "negative monthly budget"}
	}

	cal := model.NewCalendar(now, m.opts.Holidays)
	pm := NewPeriodMetrics(in.MonthlyBudget, blended, cal, in.DailySpend, in.CACWarningStreak)
	pm = Project(pm, cal, m.opts.Multipliers)

	status, alerts := Prioritize(Evaluate(pm, m.opts.Thresholds), m.opts.Thresholds)
	notifications := gate(ctx, alerts, now)
	recs := Recommend(status, alerts, pm, blended, m.opts.Thresholds)

	report, err := NewReportBuilder().
		WithID(in.ReportID).
		WithDate(now).
		WithPeriodMetrics(pm).
		WithBlended(blended).
		WithAlerts(status, alerts).
		WithNotifications(notifications).
		WithRecommendations(recs).
		WithMissingChannels(in.MissingChannels).
		Build()
	if err != nil {
		return nil, err
	}

	m.logger.Info("evaluation complete",
		"period", report.Period,
		"status", report.OverallStatus,
		"alerts", len(report.Alerts),
		"notifications", len(report.Notifications),
		"partial_data", report.PartialData,
	)
	return report, nil
}
