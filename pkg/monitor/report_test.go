package monitor_test

import (
	"errors"
	"testing"

	"github.com/ogulcanaydogan/ad-spend-guardian/pkg/model"
	"github.com/ogulcanaydogan/ad-spend-guardian/pkg/monitor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportBuilder_Incomplete(t *testing.T) {
	_, err := monitor.NewReportBuilder().Build()

	var incomplete *monitor.IncompleteReportError
	require.True(t, errors.As(err, &incomplete))
	assert.Equal(t, []string{"date", "period_metrics", "overall_status", "alerts", "recommendations"}, incomplete.Missing)
}

func TestReportBuilder_MissingRecommendations(t *testing.T) {
	_, err := monitor.NewReportBuilder().
		WithDate(t0).
		WithPeriodMetrics(budgetMetrics(10)).
		WithAlerts(model.StatusHealthy, []model.Alert{}).
		Build()

	var incomplete *monitor.IncompleteReportError
	require.True(t, errors.As(err, &incomplete))
	assert.Equal(t, []string{"recommendations"}, incomplete.Missing)
}

func completeBuilder(alerts []model.Alert, recs []string) *monitor.ReportBuilder {
	return monitor.NewReportBuilder().
		WithDate(t0).
		WithPeriodMetrics(budgetMetrics(85)).
		WithAlerts(model.StatusWarning, alerts).
		WithNotifications(alerts).
		WithRecommendations(recs)
}

func TestReportBuilder_Build(t *testing.T) {
	alerts := []model.Alert{{Level: model.LevelWarning, Dimension: model.DimensionBudget, Value: 85, Priority: 1}}
	recs := []string{"Slow spend."}

	r, err := completeBuilder(alerts, recs).Build()
	require.NoError(t, err)

	assert.NotEmpty(t, r.ID)
	assert.Equal(t, "2026-10", r.Period)
	assert.Equal(t, model.StatusWarning, r.OverallStatus)
	assert.False(t, r.PartialData)

	// The report owns its slices.
	alerts[0].Value = 0
	recs[0] = "changed"
	assert.Equal(t, 85.0, r.Alerts[0].Value)
	assert.Equal(t, 85.0, r.Notifications[0].Value)
	assert.Equal(t, "Slow spend.", r.Recommendations[0])
}

func TestReportBuilder_OwnsBlendedMaps(t *testing.T) {
	blended, err := monitor.Blend(map[string]model.ChannelSnapshot{
		"google": model.NewChannelSnapshot("google", 3000, 120, 7200),
		"meta":   model.NewChannelSnapshot("meta", 1000, 50, 2000),
	})
	require.NoError(t, err)

	r, err := completeBuilder([]model.Alert{}, []string{}).WithBlended(blended).Build()
	require.NoError(t, err)

	blended.Weights["google"] = 0
	blended.PerChannel["meta"] = model.MissingSnapshot("meta")
	delete(blended.PerChannel, "google")

	assert.InDelta(t, 0.75, r.Blended.Weights["google"], 1e-9)
	assert.Len(t, r.Blended.PerChannel, 2)
	assert.Equal(t, 1000.0, r.Blended.PerChannel["meta"].Spend)
}

func TestReportBuilder_Deterministic(t *testing.T) {
	alerts := []model.Alert{{Level: model.LevelWarning, Dimension: model.DimensionBudget, Value: 85}}

	a, err := completeBuilder(alerts, []string{"x"}).WithID("fixed").Build()
	require.NoError(t, err)
	b, err := completeBuilder(alerts, []string{"x"}).WithID("fixed").Build()
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestReportBuilder_PartialData(t *testing.T) {
	r, err := completeBuilder([]model.Alert{}, []string{}).
		WithNotifications(nil).
		WithMissingChannels([]string{"tiktok"}).
		Build()
	require.NoError(t, err)

	assert.True(t, r.PartialData)
	assert.Equal(t, []string{"tiktok"}, r.MissingChannels)
	assert.NotNil(t, r.Notifications)
	assert.Empty(t, r.Notifications)
}
