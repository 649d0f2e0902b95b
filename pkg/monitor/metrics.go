package monitor

import (
	"time"

	"github.com/ogulcanaydogan/ad-spend-guardian/pkg/model"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors of the monitoring engine.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	Cycles           *prometheus.CounterVec
	Alerts           *prometheus.CounterVec
	Notifications    *prometheus.CounterVec
	HistoryErrors    *prometheus.CounterVec
	CycleDuration    prometheus.Histogram
	BudgetPercentage prometheus.Gauge
}

// NewMetrics creates the engine collectors and registers them with reg.
// Collectors already registered by an earlier call are reused.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "asg_cycles_total",
			Help: "Total number of evaluation cycles by result",
		}, []string{"result"}),
		Alerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "asg_alerts_total",
			Help: "Total number of alerts raised",
		}, []string{"dimension", "level"}),
		Notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "asg_notifications_total",
			Help: "Total number of alert notifications by outcome",
		}, []string{"outcome"}),
		HistoryErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "asg_history_store_errors_total",
			Help: "Total number of alert history store failures",
		}, []string{"op"}),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "asg_cycle_duration_seconds",
			Help:    "Evaluation cycle duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		BudgetPercentage: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "asg_budget_percentage",
			Help: "Share of the monthly budget spent as of the last cycle",
		}),
	}

	if reg == nil {
		return m
	}

	m.Cycles = register(reg, m.Cycles)
	m.Alerts = register(reg, m.Alerts)
	m.Notifications = register(reg, m.Notifications)
	m.HistoryErrors = register(reg, m.HistoryErrors)
	m.CycleDuration = register(reg, m.CycleDuration)
	m.BudgetPercentage = register(reg, m.BudgetPercentage)
	return m
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
	}
	return c
}

func (m *Metrics) observeCycle(result string, started, finished time.Time) {
	if m == nil {
		return
	}
	m.Cycles.WithLabelValues(result).Inc()
	m.CycleDuration.Observe(finished.Sub(started).Seconds())
}

func (m *Metrics) observeReport(r *model.Report) {
	if m == nil {
		return
	}
	for _, a := range r.Alerts {
		m.Alerts.WithLabelValues(string(a.Dimension), string(a.Severity())).Inc()
	}
	if r.PeriodMetrics.BudgetPercentage.Valid {
		m.BudgetPercentage.Set(r.PeriodMetrics.BudgetPercentage.Value)
	}
}

func (m *Metrics) notification(outcome string) {
	if m == nil {
		return
	}
	m.Notifications.WithLabelValues(outcome).Inc()
}

func (m *Metrics) notifications(outcome string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.Notifications.WithLabelValues(outcome).Add(float64(n))
}

func (m *Metrics) historyError(op string) {
	if m == nil {
		return
	}
	m.HistoryErrors.WithLabelValues(op).Inc()
}
