package model

import "time"

// PeriodMetrics is the evaluation unit: the blended month-to-date view
// placed against the monthly budget and the calendar.
type PeriodMetrics struct {
	Period           string   `json:"period"`
	MonthlyBudget    float64  `json:"monthly_budget"`
	MonthToDateSpend float64  `json:"month_to_date_spend"`
	BudgetPercentage Optional `json:"budget_percentage"`
	TimePercentage   float64  `json:"time_percentage"`
	SpendRate        Optional `json:"spend_rate"`
	YesterdaySpend   Optional `json:"yesterday_spend"`
	CurrentCAC       Optional `json:"current_cac"`
	CurrentROAS      Optional `json:"current_roas"`
	CACWarningStreak bool     `json:"cac_warning_streak"`
	Calendar         Calendar `json:"calendar"`

	// Projection fields.
	BaseDailyRate           float64    `json:"base_daily_rate"`
	SpendMultiplier         float64    `json:"spend_multiplier"`
	ExpectedDailyRate       float64    `json:"expected_daily_rate"`
	DailyVariancePercent    Optional   `json:"daily_variance_percent"`
	AverageDailySpend       Optional   `json:"average_daily_spend"`
	DaysUntilExhaustion     Optional   `json:"days_until_exhaustion"`
	ProjectedExhaustionDate *time.Time `json:"projected_exhaustion_date,omitempty"`
	ExhaustionDeltaDays     *int       `json:"exhaustion_delta_days,omitempty"`
}

// RemainingBudget is the unspent part of the monthly budget, never negative.
func (p PeriodMetrics) RemainingBudget() float64 {
	r := p.MonthlyBudget - p.MonthToDateSpend
	if r < 0 {
		return 0
	}
	return r
}

// DailySpendRatio is yesterday's spend as a percentage of the expected daily rate.
func (p PeriodMetrics) DailySpendRatio() Optional {
	if !p.DailyVariancePercent.Valid {
		return None()
	}
	return Some(100 + p.DailyVariancePercent.Value)
}

// Report is the terminal output of one evaluation cycle. It is treated
// as immutable once built.
type Report struct {
	ID              string         `json:"id"`
	Date            time.Time      `json:"date"`
	Period          string         `json:"period"`
	PeriodMetrics   PeriodMetrics  `json:"period_metrics"`
	Blended         BlendedMetrics `json:"blended"`
	Alerts          []Alert        `json:"alerts"`
	OverallStatus   Status         `json:"overall_status"`
	Notifications   []Alert        `json:"notifications"`
	Recommendations []string       `json:"recommendations"`
	PartialData     bool           `json:"partial_data"`
	MissingChannels []string       `json:"missing_channels,omitempty"`
}
