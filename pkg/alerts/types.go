package alerts

import (
	"context"
	"time"

	"github.com/ogulcanaydogan/ad-spend-guardian/pkg/model"
)

// Notification is one alert ready for delivery together with the report
// context it was raised in.
type Notification struct {
	ReportID         string       `json:"report_id"`
	Period           string       `json:"period"`
	OverallStatus    model.Status `json:"overall_status"`
	Alert            model.Alert  `json:"alert"`
	MonthlyBudget    float64      `json:"monthly_budget"`
	MonthToDateSpend float64      `json:"month_to_date_spend"`
	Recommendations  []string     `json:"recommendations,omitempty"`
	PartialData      bool         `json:"partial_data,omitempty"`
	Timestamp        time.Time    `json:"timestamp"`
}

// Severity is the delivery severity of the notification.
func (n Notification) Severity() model.Level {
	return n.Alert.Severity()
}

// NotificationsFor builds one notification per cooldown-cleared alert of
// the report.
func NotificationsFor(r *model.Report) []Notification {
	out := make([]Notification, 0, len(r.Notifications))
	for _, a := range r.Notifications {
		out = append(out, Notification{
			ReportID:         r.ID,
			Period:           r.Period,
			OverallStatus:    r.OverallStatus,
			Alert:            a,
			MonthlyBudget:    r.PeriodMetrics.MonthlyBudget,
			MonthToDateSpend: r.PeriodMetrics.MonthToDateSpend,
			Recommendations:  r.Recommendations,
			PartialData:      r.PartialData,
			Timestamp:        r.Date,
		})
	}
	return out
}

// Notifier sends alerts to external systems.
type Notifier interface {
	// Name returns the notifier identifier.
	Name() string

	// Send delivers a notification. Implementations must be safe for concurrent use.
	Send(ctx context.Context, n Notification) error
}

func title(n Notification) string {
	return "Ad Spend Guardian: " + string(n.Alert.Dimension) + " " + string(n.Severity())
}
