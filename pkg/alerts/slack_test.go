package alerts_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ogulcanaydogan/ad-spend-guardian/pkg/alerts"
	"github.com/ogulcanaydogan/ad-spend-guardian/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func budgetNotification(level model.Level, exceeded bool) alerts.Notification {
	return alerts.Notification{
		ReportID:      "r-1",
		Period:        "2026-10",
		OverallStatus: model.StatusOf(level),
		Alert: model.Alert{
			Level:     level,
			Dimension: model.DimensionBudget,
			Message:   "Budget at 85.0%",
			Value:     85,
			Threshold: 80,
			Exceeded:  exceeded,
		},
		MonthlyBudget:    5000,
		MonthToDateSpend: 4250,
		Recommendations:  []string{"Slow spend on low-performing campaigns."},
		Timestamp:        time.Date(2026, time.October, 16, 9, 0, 0, 0, time.UTC),
	}
}

func TestSlackNotifier_Name(t *testing.T) {
	n := alerts.NewSlackNotifier("https://hooks.slack.com/test", "#test")
	assert.Equal(t, "slack", n.Name())
}

func TestSlackNotifier_Send(t *testing.T) {
	var received map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, http.MethodPost, r.Method)

		err := json.NewDecoder(r.Body).Decode(&received)
		require.NoError(t, err)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	n := alerts.NewSlackNotifier(server.URL, "#ad-spend")
	err := n.Send(context.Background(), budgetNotification(model.LevelWarning, false))
	require.NoError(t, err)
	assert.Equal(t, "#ad-spend", received["channel"])

	attachments, ok := received["attachments"].([]any)
	require.True(t, ok)
	require.Len(t, attachments, 1)
	att := attachments[0].(map[string]any)
	assert.Equal(t, "#ff9900", att["color"])
	assert.Equal(t, "Ad Spend Guardian: BUDGET WARNING", att["title"])
	assert.Equal(t, "Budget at 85.0%", att["text"])
}

func TestSlackNotifier_Send_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	n := alerts.NewSlackNotifier(server.URL, "#test")
	err := n.Send(context.Background(), budgetNotification(model.LevelWarning, false))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}

func TestSlackNotifier_AlertLevelColors(t *testing.T) {
	tests := []struct {
		name     string
		level    model.Level
		exceeded bool
		color    string
	}{
		{"info", model.LevelInfo, false, "#36a64f"},
		{"warning", model.LevelWarning, false, "#ff9900"},
		{"critical", model.LevelCritical, false, "#ff0000"},
		{"exceeded", model.LevelCritical, true, "#cc0000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var payload struct {
				Attachments []struct {
					Color string `json:"color"`
				} `json:"attachments"`
			}
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewDecoder(r.Body).Decode(&payload)
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			n := alerts.NewSlackNotifier(server.URL, "#test")
			require.NoError(t, n.Send(context.Background(), budgetNotification(tt.level, tt.exceeded)))
			require.Len(t, payload.Attachments, 1)
			assert.Equal(t, tt.color, payload.Attachments[0].Color)
		})
	}
}
