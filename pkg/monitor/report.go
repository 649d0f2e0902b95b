package monitor

import (
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/ogulcanaydogan/ad-spend-guardian/pkg/model"
)

// ReportBuilder assembles a Report. It holds no business logic; Build
// refuses to produce a report with required parts missing.
type ReportBuilder struct {
	id              string
	date            time.Time
	pm              *model.PeriodMetrics
	blended         model.BlendedMetrics
	alerts          []model.Alert
	status          model.Status
	notifications   []model.Alert
	recommendations []string
	missing         []string
}

// NewReportBuilder returns an empty builder.
func NewReportBuilder() *ReportBuilder {
	return &ReportBuilder{}
}

// WithID sets the report id. A random id is generated when unset.
func (b *ReportBuilder) WithID(id string) *ReportBuilder {
	b.id = id
	return b
}

func (b *ReportBuilder) WithDate(date time.Time) *ReportBuilder {
	b.date = date
	return b
}

func (b *ReportBuilder) WithPeriodMetrics(pm model.PeriodMetrics) *ReportBuilder {
	b.pm = &pm
	return b
}

func (b *ReportBuilder) WithBlended(blended model.BlendedMetrics) *ReportBuilder {
	b.blended = blended
	return b
}

func (b *ReportBuilder) WithAlerts(status model.Status, alerts []model.Alert) *ReportBuilder {
	b.status = status
	b.alerts = alerts
	return b
}

func (b *ReportBuilder) WithNotifications(notifications []model.Alert) *ReportBuilder {
	b.notifications = notifications
	return b
}

func (b *ReportBuilder) WithRecommendations(recs []string) *ReportBuilder {
	b.recommendations = recs
	return b
}

// WithMissingChannels marks the report as built from partial data.
func (b *ReportBuilder) WithMissingChannels(ids []string) *ReportBuilder {
	b.missing = ids
	return b
}

// Build returns the assembled report or an *IncompleteReportError.
func (b *ReportBuilder) Build() (*model.Report, error) {
	var missing []string
	if b.date.IsZero() {
		missing = append(missing, "date")
	}
	if b.pm == nil {
		missing = append(missing, "period_metrics")
	}
	if b.status == "" {
		missing = append(missing, "overall_status")
	}
	if b.alerts == nil {
		missing = append(missing, "alerts")
	}
	if b.recommendations == nil {
		missing = append(missing, "recommendations")
	}
	if len(missing) > 0 {
		return nil, &IncompleteReportError{Missing: missing}
	}

	id := b.id
	if id == "" {
		id = uuid.New().String()
	}

	notifications := slices.Clone(b.notifications)
	if notifications == nil {
		notifications = []model.Alert{}
	}

	blended := b.blended
	blended.Weights = maps.Clone(b.blended.Weights)
	blended.PerChannel = maps.Clone(b.blended.PerChannel)

	return &model.Report{
		ID:              id,
		Date:            b.date,
		Period:          b.pm.Period,
		PeriodMetrics:   *b.pm,
		Blended:         blended,
		Alerts:          slices.Clone(b.alerts),
		OverallStatus:   b.status,
		Notifications:   notifications,
		Recommendations: slices.Clone(b.recommendations),
		PartialData:     len(b.missing) > 0,
		MissingChannels: slices.Clone(b.missing),
	}, nil
}
