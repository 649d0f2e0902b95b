package model_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/ogulcanaydogan/ad-spend-guardian/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPeriodBounds_Monthly(t *testing.T) {
	start, end, err := model.PeriodBounds("2026-02")
	require.NoError(t, err)
	assert.Equal(t, 1, start.Day())
	assert.Equal(t, time.February, start.Month())
	assert.Equal(t, 28*24*time.Hour, end.Sub(start))
}

func TestPeriodBounds_Invalid(t *testing.T) {
	_, _, err := model.PeriodBounds("october")
	assert.Error(t, err)
}

func TestNewCalendar(t *testing.T) {
	// Saturday, 13 June 2026
	now := time.Date(2026, time.June, 13, 15, 30, 0, 0, time.UTC)
	cal := model.NewCalendar(now, nil)

	assert.Equal(t, 12, cal.DaysElapsed)
	assert.Equal(t, 30, cal.DaysInPeriod)
	assert.Equal(t, 18, cal.DaysRemaining)
	assert.True(t, cal.IsWeekend)
	assert.False(t, cal.IsHoliday)
	assert.Equal(t, "2026-06", cal.Period())
	assert.InDelta(t, 40.0, cal.TimePercentage(), 1e-9)
}

func TestNewCalendar_FirstOfMonth(t *testing.T) {
	cal := model.NewCalendar(time.Date(2026, time.October, 1, 8, 0, 0, 0, time.UTC), nil)
	assert.Equal(t, 0, cal.DaysElapsed)
	assert.Equal(t, 31, cal.DaysInPeriod)
	assert.Equal(t, 31, cal.DaysRemaining)
	assert.Equal(t, 0.0, cal.TimePercentage())
}

func TestNewCalendar_Holiday(t *testing.T) {
	holidays, err := model.ParseHolidays([]string{"2026-12-25"})
	require.NoError(t, err)

	cal := model.NewCalendar(time.Date(2026, time.December, 25, 9, 0, 0, 0, time.UTC), holidays)
	assert.True(t, cal.IsHoliday)
	assert.False(t, cal.IsWeekend)
}

func TestParseHolidays_Invalid(t *testing.T) {
	_, err := model.ParseHolidays([]string{"25/12/2026"})
	assert.Error(t, err)
}

func TestNewChannelSnapshot(t *testing.T) {
	s := model.NewChannelSnapshot("google_ads", 300, 20, 900)
	assert.True(t, s.CAC.Valid)
	assert.InDelta(t, 15.0, s.CAC.Value, 1e-9)
	assert.True(t, s.ROAS.Valid)
	assert.InDelta(t, 3.0, s.ROAS.Value, 1e-9)

	empty := model.NewChannelSnapshot("meta_ads", 0, 0, 0)
	assert.False(t, empty.CAC.Valid)
	assert.False(t, empty.ROAS.Valid)
}

func TestOptional_JSON(t *testing.T) {
	data, err := json.Marshal(struct {
		A model.Optional `json:"a"`
		B model.Optional `json:"b"`
	}{A: model.Some(2.5)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":2.5,"b":null}`, string(data))

	var decoded struct {
		A model.Optional `json:"a"`
		B model.Optional `json:"b"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, model.Some(2.5), decoded.A)
	assert.False(t, decoded.B.Valid)
}

func TestLevel_Rank(t *testing.T) {
	assert.Less(t, model.LevelInfo.Rank(), model.LevelWarning.Rank())
	assert.Less(t, model.LevelWarning.Rank(), model.LevelCritical.Rank())
	assert.Less(t, model.LevelCritical.Rank(), model.LevelExceeded.Rank())
	assert.Equal(t, 0, model.Level("bogus").Rank())
}

func TestAlert_Severity(t *testing.T) {
	a := model.Alert{Level: model.LevelCritical, Dimension: model.DimensionBudget, Exceeded: true}
	assert.Equal(t, model.LevelExceeded, a.Severity())

	a.Exceeded = false
	assert.Equal(t, model.LevelCritical, a.Severity())
}

func TestPeriodMetrics_RemainingBudget(t *testing.T) {
	pm := model.PeriodMetrics{MonthlyBudget: 100, MonthToDateSpend: 120}
	assert.Equal(t, 0.0, pm.RemainingBudget())

	pm.MonthToDateSpend = 40
	assert.Equal(t, 60.0, pm.RemainingBudget())
}
