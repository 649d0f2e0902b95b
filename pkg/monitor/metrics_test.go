package monitor_test

import (
	"testing"

	"github.com/ogulcanaydogan/ad-spend-guardian/pkg/monitor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetrics_ReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()

	first := monitor.NewMetrics(reg)
	second := monitor.NewMetrics(reg)

	second.Cycles.WithLabelValues("ok").Inc()
	assert.Equal(t, 1.0, testutil.ToFloat64(first.Cycles.WithLabelValues("ok")))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "asg_cycles_total")
	assert.Contains(t, names, "asg_budget_percentage")
}

func TestNewMetrics_NilRegistry(t *testing.T) {
	m := monitor.NewMetrics(nil)
	require.NotNil(t, m)
	m.Notifications.WithLabelValues("sent").Inc()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Notifications.WithLabelValues("sent")))
}
