package cli

import (
	"bytes"
	"testing"
	"time"

	"github.com/ogulcanaydogan/ad-spend-guardian/pkg/model"
	"github.com/stretchr/testify/assert"
)

func TestPrintReport_UndefinedMetrics(t *testing.T) {
	r := &model.Report{
		ID:            "r1",
		Date:          time.Date(2026, time.October, 1, 6, 0, 0, 0, time.UTC),
		Period:        "2026-10",
		OverallStatus: model.StatusHealthy,
		PeriodMetrics: model.PeriodMetrics{Period: "2026-10"},
		Blended: model.BlendedMetrics{
			Weights:    map[string]float64{"google": 1},
			PerChannel: map[string]model.ChannelSnapshot{"google": model.NewChannelSnapshot("google", 0, 0, 0)},
		},
	}

	var out bytes.Buffer
	printReport(&out, r)

	assert.NotContains(t, out.String(), "$n/a")
	assert.NotContains(t, out.String(), "n/a%")
	assert.Contains(t, out.String(), "Spent to date:     $0.00 (n/a)")
	assert.Contains(t, out.String(), "Blended CAC:       n/a")
}

func TestPrintReport_DefinedMetrics(t *testing.T) {
	r := &model.Report{
		ID:            "r2",
		Date:          time.Date(2026, time.October, 16, 6, 0, 0, 0, time.UTC),
		Period:        "2026-10",
		OverallStatus: model.StatusWarning,
		PeriodMetrics: model.PeriodMetrics{
			Period:            "2026-10",
			MonthlyBudget:     5000,
			MonthToDateSpend:  4250,
			BudgetPercentage:  model.Some(85),
			YesterdaySpend:    model.Some(200),
			ExpectedDailyRate: 161.29,
			CurrentCAC:        model.Some(18.5),
		},
	}

	var out bytes.Buffer
	printReport(&out, r)

	assert.Contains(t, out.String(), "Spent to date:     $4250.00 (85.00%)")
	assert.Contains(t, out.String(), "Yesterday:         $200.00 (expected $161.29)")
	assert.Contains(t, out.String(), "Blended CAC:       $18.50")
}
