package monitor

import (
	"fmt"

	"github.com/ogulcanaydogan/ad-spend-guardian/pkg/model"
)

// Thresholds is the fixed tiered threshold table. Only the values are
// tunable; the dimensions and bands are not.
type Thresholds struct {
	BudgetWarningPct  float64 `mapstructure:"budget_warning_pct"`
	BudgetCriticalPct float64 `mapstructure:"budget_critical_pct"`

	TargetCAC   float64 `mapstructure:"target_cac"`
	CACWarning  float64 `mapstructure:"cac_warning"`
	CACCritical float64 `mapstructure:"cac_critical"`

	DailyWarningPct  float64 `mapstructure:"daily_warning_pct"`
	DailyCriticalPct float64 `mapstructure:"daily_critical_pct"`

	TargetROAS float64 `mapstructure:"target_roas"`
	LowROAS    float64 `mapstructure:"low_roas"`
	MinROAS    float64 `mapstructure:"min_roas"`
}

// DefaultThresholds returns the standard threshold table.
func DefaultThresholds() Thresholds {
	return Thresholds{
		BudgetWarningPct:  80,
		BudgetCriticalPct: 90,
		TargetCAC:         15,
		CACWarning:        17,
		CACCritical:       20,
		DailyWarningPct:   120,
		DailyCriticalPct:  150,
		TargetROAS:        3.0,
		LowROAS:           2.5,
		MinROAS:           2.0,
	}
}

// Evaluate checks every dimension of pm independently and returns one
// alert per dimension outside its normal band. Undefined values are
// skipped. When nothing fires a single INFO "on track" alert is returned.
func Evaluate(pm model.PeriodMetrics, th Thresholds) []model.Alert {
	var out []model.Alert

	if a, ok := evaluateBudget(pm, th); ok {
		out = append(out, a)
	}
	if a, ok := evaluateCAC(pm, th); ok {
		out = append(out, a)
	}
	if a, ok := evaluateDailySpend(pm, th); ok {
		out = append(out, a)
	}
	if a, ok := evaluateROAS(pm, th); ok {
		out = append(out, a)
	}

	if len(out) == 0 {
		out = append(out, onTrack(pm, th))
	}
	return out
}

func evaluateBudget(pm model.PeriodMetrics, th Thresholds) (model.Alert, bool) {
	if !pm.BudgetPercentage.Valid {
		return model.Alert{}, false
	}
	pct := pm.BudgetPercentage.Value
	a := model.Alert{Dimension: model.DimensionBudget, Value: pct}

	switch {
	case pct >= 100:
		a.Level = model.LevelCritical
		a.Exceeded = true
		a.Threshold = 100
		a.Message = fmt.Sprintf("Monthly budget exceeded: %s of %s spent (%.1f%%)",
			money(pm.MonthToDateSpend), money(pm.MonthlyBudget), pct)
	case pct >= th.BudgetCriticalPct:
		a.Level = model.LevelCritical
		a.Threshold = th.BudgetCriticalPct
		a.Message = fmt.Sprintf("Budget at %.1f%% with %d days remaining in %s",
			pct, pm.Calendar.DaysRemaining, pm.Period)
	case pct >= th.BudgetWarningPct:
		a.Level = model.LevelWarning
		a.Threshold = th.BudgetWarningPct
		a.Message = fmt.Sprintf("Budget at %.1f%% with %.1f%% of the month elapsed",
			pct, pm.TimePercentage)
	default:
		return model.Alert{}, false
	}
	return a, true
}

func evaluateCAC(pm model.PeriodMetrics, th Thresholds) (model.Alert, bool) {
	if !pm.CurrentCAC.Valid {
		return model.Alert{}, false
	}
	cac := pm.CurrentCAC.Value
	a := model.Alert{Dimension: model.DimensionCAC, Value: cac}

	switch {
	case cac > th.CACCritical:
		a.Level = model.LevelCritical
		a.Threshold = th.CACCritical
		a.Message = fmt.Sprintf("Blended CAC %s is above the critical limit of %s", money(cac), money(th.CACCritical))
	case cac > th.CACWarning:
		a.Level = model.LevelWarning
		a.Threshold = th.CACWarning
		a.Message = fmt.Sprintf("Blended CAC %s is above %s", money(cac), money(th.CACWarning))
	case cac > th.TargetCAC && pm.CACWarningStreak:
		a.Level = model.LevelWarning
		a.Threshold = th.TargetCAC
		a.Message = fmt.Sprintf("Blended CAC %s has been above the %s target for 3 consecutive days",
			money(cac), money(th.TargetCAC))
	default:
		return model.Alert{}, false
	}
	return a, true
}

func evaluateDailySpend(pm model.PeriodMetrics, th Thresholds) (model.Alert, bool) {
	ratio := pm.DailySpendRatio()
	if !ratio.Valid {
		return model.Alert{}, false
	}
	a := model.Alert{Dimension: model.DimensionDailySpend, Value: ratio.Value}

	switch {
	case ratio.Value > th.DailyCriticalPct:
		a.Level = model.LevelCritical
		a.Threshold = th.DailyCriticalPct
	case ratio.Value >= th.DailyWarningPct:
		a.Level = model.LevelWarning
		a.Threshold = th.DailyWarningPct
	default:
		return model.Alert{}, false
	}
	a.Message = fmt.Sprintf("Yesterday's spend %s is %.0f%% of the expected %s",
		money(pm.YesterdaySpend.Value), ratio.Value, money(pm.ExpectedDailyRate))
	return a, true
}

func evaluateROAS(pm model.PeriodMetrics, th Thresholds) (model.Alert, bool) {
	if !pm.CurrentROAS.Valid {
		return model.Alert{}, false
	}
	roas := pm.CurrentROAS.Value
	a := model.Alert{Dimension: model.DimensionROAS, Value: roas}

	switch {
	case roas < th.MinROAS:
		a.Level = model.LevelCritical
		a.Threshold = th.MinROAS
		a.Message = fmt.Sprintf("ROAS %.2f is below the minimum of %.2f", roas, th.MinROAS)
	case roas < th.LowROAS:
		a.Level = model.LevelWarning
		a.Threshold = th.LowROAS
		a.Message = fmt.Sprintf("ROAS %.2f is below %.2f, campaigns are losing efficiency", roas, th.LowROAS)
	case roas < th.TargetROAS:
		a.Level = model.LevelWarning
		a.Threshold = th.TargetROAS
		a.Message = fmt.Sprintf("ROAS %.2f is below the %.2f target", roas, th.TargetROAS)
	default:
		return model.Alert{}, false
	}
	return a, true
}

func onTrack(pm model.PeriodMetrics, th Thresholds) model.Alert {
	a := model.Alert{
		Level:     model.LevelInfo,
		Dimension: model.DimensionBudget,
		Threshold: th.BudgetWarningPct,
		Message:   "All metrics on track",
	}
	if pm.BudgetPercentage.Valid {
		a.Value = pm.BudgetPercentage.Value
		a.Message = fmt.Sprintf("All metrics on track: budget at %.1f%% with %.1f%% of the month elapsed",
			pm.BudgetPercentage.Value, pm.TimePercentage)
	}
	return a
}
