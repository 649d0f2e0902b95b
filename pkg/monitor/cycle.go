package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ogulcanaydogan/ad-spend-guardian/pkg/alerts"
	"github.com/ogulcanaydogan/ad-spend-guardian/pkg/model"
	"github.com/ogulcanaydogan/ad-spend-guardian/pkg/sources"
)

// streakDays is how many consecutive prior days CAC must sit above
// target before a mild overshoot warns.
const streakDays = 3

// ReportSaver persists completed reports.
type ReportSaver interface {
	SaveReport(ctx context.Context, report *model.Report) error
}

// CycleOptions decides what a cycle does with its report.
type CycleOptions struct {
	// DryRun evaluates without saving the report, recording cooldown
	// history or notifying.
	DryRun bool
	// Notify sends the cooldown-cleared alerts to every notifier. Only
	// delivered alerts start a cooldown; without Notify nothing does.
	Notify bool
}

// CycleDeps wires the collaborators of a cycle.
type CycleDeps struct {
	Monitor   *Monitor
	Collector *sources.Collector
	Budgets   sources.BudgetSource
	Series    sources.SeriesSource
	// History feeds the CAC warning streak. Optional.
	History   sources.MetricsSource
	Reports   ReportSaver
	Notifiers []alerts.Notifier
	// Thresholds must match the ones the Monitor evaluates with.
	Thresholds Thresholds
	Now        func() time.Time
}

// Cycle runs one collect, evaluate, persist and notify pass.
type Cycle struct {
	deps    CycleDeps
	logger  *slog.Logger
	metrics *Metrics
}

// NewCycle creates a Cycle.
func NewCycle(deps CycleDeps, logger *slog.Logger, metrics *Metrics) *Cycle {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Cycle{deps: deps, logger: logger, metrics: metrics}
}

// Run executes one cycle. A failed cycle returns an error and neither
// saves, notifies nor records cooldown history. Channels that could not be fetched degrade the
// report to partial data instead of failing it.
func (c *Cycle) Run(ctx context.Context, opts CycleOptions) (*model.Report, error) {
	started := c.deps.Now()

	report, err := c.run(ctx, opts, started)
	if err != nil {
		c.metrics.observeCycle("failed", started, c.deps.Now())
		c.logger.Error("cycle failed", "error", err)
		return nil, err
	}

	result := "ok"
	if report.PartialData {
		result = "partial"
	}
	if opts.DryRun {
		result = "dry_run"
	}
	c.metrics.observeCycle(result, started, c.deps.Now())
	return report, nil
}

func (c *Cycle) run(ctx context.Context, opts CycleOptions, now time.Time) (*model.Report, error) {
	collection := c.deps.Collector.Collect(ctx)
	if len(collection.Snapshots) == 0 {
		return nil, &InvalidInputError{Reason: "no channels configured"}
	}

	var missing []string
	if len(collection.Failed) > 0 {
		partial := &PartialDataError{Channels: collection.Failed}
		if len(collection.Failed) == len(collection.Snapshots) {
			return nil, fmt.Errorf("every channel failed: %w", partial)
		}
		c.logger.Warn("evaluating with partial data", "error", partial)
		missing = partial.ChannelIDs()
	}

	period := model.PeriodOf(now)
	budget, err := c.deps.Budgets.MonthlyBudget(ctx, period)
	if err != nil {
		return nil, fmt.Errorf("monthly budget: %w", err)
	}

	series, err := c.deps.Series.DailySpendSeries(ctx, period)
	if err != nil {
		return nil, fmt.Errorf("daily spend series: %w", err)
	}

	in := Input{
		Snapshots:        collection.Snapshots,
		MonthlyBudget:    budget,
		DailySpend:       series,
		CACWarningStreak: c.cacStreak(ctx, now),
		MissingChannels:  missing,
	}

	report, err := c.deps.Monitor.Preview(ctx, in, now)
	if err != nil {
		return nil, err
	}
	if opts.DryRun {
		return report, nil
	}

	if c.deps.Reports != nil {
		if err := c.deps.Reports.SaveReport(ctx, report); err != nil {
			return nil, fmt.Errorf("save report: %w", err)
		}
	}
	c.metrics.observeReport(report)
	c.metrics.notifications("suppressed", len(report.Alerts)-len(report.Notifications))

	// Cooldown history only covers alerts that reached a notifier.
	if opts.Notify {
		delivered := c.dispatch(ctx, report)
		c.deps.Monitor.Commit(ctx, delivered, now)
	}
	return report, nil
}

func (c *Cycle) cacStreak(ctx context.Context, now time.Time) bool {
	if c.deps.History == nil {
		return false
	}
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	rows, err := c.deps.History.QueryDailyMetrics(ctx, model.MetricsFilter{
		Start: today.AddDate(0, 0, -streakDays),
		End:   today,
	})
	if err != nil {
		c.logger.Warn("cac streak unavailable", "error", err)
		return false
	}
	return CACStreak(rows, today, streakDays, c.deps.Thresholds.TargetCAC)
}

// CACStreak reports whether blended CAC was above target on each of the
// days immediately before today. A day without conversions breaks the
// streak.
func CACStreak(rows []model.DailyMetrics, today time.Time, days int, target float64) bool {
	type totals struct {
		spend       float64
		conversions int64
	}
	byDay := make(map[string]totals)
	for _, r := range rows {
		k := r.Date.Format(model.DateLayout)
		t := byDay[k]
		t.spend += r.Spend
		t.conversions += r.Conversions
		byDay[k] = t
	}

	for i := 1; i <= days; i++ {
		t, ok := byDay[today.AddDate(0, 0, -i).Format(model.DateLayout)]
		if !ok || t.conversions == 0 || t.spend/float64(t.conversions) <= target {
			return false
		}
	}
	return true
}

// dispatch sends every notification to every notifier and returns the
// alerts at least one notifier accepted.
func (c *Cycle) dispatch(ctx context.Context, report *model.Report) []model.Alert {
	var delivered []model.Alert
	for _, n := range alerts.NotificationsFor(report) {
		sent := false
		for _, notifier := range c.deps.Notifiers {
			if err := notifier.Send(ctx, n); err != nil {
				c.metrics.notification("failed")
				c.logger.Error("send alert failed",
					"notifier", notifier.Name(),
					"dimension", n.Alert.Dimension,
					"error", err,
				)
				continue
			}
			c.metrics.notification("sent")
			sent = true
		}
		if sent {
			delivered = append(delivered, n.Alert)
		}
	}
	return delivered
}

