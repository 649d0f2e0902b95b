package monitor

import (
	"math"

	"github.com/ogulcanaydogan/ad-spend-guardian/pkg/model"
)

// Multipliers scale the expected daily spend on low-traffic days.
type Multipliers struct {
	Weekend float64
	Holiday float64
}

// DefaultMultipliers returns the standard weekend and holiday spend factors.
func DefaultMultipliers() Multipliers {
	return Multipliers{Weekend: 0.70, Holiday: 0.50}
}

// For returns the multiplier for the calendar date. Holidays take
// precedence over weekends.
func (m Multipliers) For(cal model.Calendar) float64 {
	switch {
	case cal.IsHoliday:
		return m.Holiday
	case cal.IsWeekend:
		return m.Weekend
	default:
		return 1.0
	}
}

// NewPeriodMetrics places the blended metrics against the monthly budget
// and calendar. Projection fields are left for Project.
func NewPeriodMetrics(budget float64, blended model.BlendedMetrics, cal model.Calendar, series []model.DailySpend, cacStreak bool) model.PeriodMetrics {
	pm := model.PeriodMetrics{
		Period:           cal.Period(),
		MonthlyBudget:    budget,
		MonthToDateSpend: blended.TotalSpend,
		TimePercentage:   cal.TimePercentage(),
		CurrentCAC:       blended.BlendedCAC,
		CurrentROAS:      blended.BlendedROAS,
		CACWarningStreak: cacStreak,
		Calendar:         cal,
	}

	if budget > 0 {
		pct := blended.TotalSpend / budget * 100
		pm.BudgetPercentage = model.Some(pct)
		pm.SpendRate = model.Some(pct - pm.TimePercentage)
	}

	if len(series) > 0 {
		pm.YesterdaySpend = model.Some(series[len(series)-1].Amount)
	}

	return pm
}

// Project derives the expected daily rate, yesterday's variance against
// it, and the run-rate budget exhaustion date.
//
// Exhaustion fields stay unset when no full day has elapsed, when
// nothing has been spent, or when there is no budget.
func Project(pm model.PeriodMetrics, cal model.Calendar, m Multipliers) model.PeriodMetrics {
	out := pm
	out.Calendar = cal
	out.BaseDailyRate = 0
	out.DailyVariancePercent = model.None()
	out.AverageDailySpend = model.None()
	out.DaysUntilExhaustion = model.None()
	out.ProjectedExhaustionDate = nil
	out.ExhaustionDeltaDays = nil

	if pm.MonthlyBudget > 0 && cal.DaysInPeriod > 0 {
		out.BaseDailyRate = pm.MonthlyBudget / float64(cal.DaysInPeriod)
	}
	out.SpendMultiplier = m.For(cal)
	out.ExpectedDailyRate = out.BaseDailyRate * out.SpendMultiplier

	if out.ExpectedDailyRate > 0 && pm.YesterdaySpend.Valid {
		out.DailyVariancePercent = model.Some((pm.YesterdaySpend.Value - out.ExpectedDailyRate) / out.ExpectedDailyRate * 100)
	}

	if cal.DaysElapsed <= 0 || pm.MonthlyBudget <= 0 {
		return out
	}
	avg := pm.MonthToDateSpend / float64(cal.DaysElapsed)
	if avg <= 0 {
		return out
	}
	out.AverageDailySpend = model.Some(avg)

	days := (pm.MonthlyBudget - pm.MonthToDateSpend) / avg
	if days < 0 {
		days = 0
	}
	out.DaysUntilExhaustion = model.Some(days)

	whole := int(math.Floor(days))
	date := cal.Date.AddDate(0, 0, whole)
	delta := cal.DaysInPeriod - (cal.DaysElapsed + whole)
	out.ProjectedExhaustionDate = &date
	out.ExhaustionDeltaDays = &delta

	return out
}
