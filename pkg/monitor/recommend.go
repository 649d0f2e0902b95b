package monitor

import (
	"fmt"
	"maps"
	"slices"

	"github.com/ogulcanaydogan/ad-spend-guardian/pkg/model"
	"github.com/shopspring/decimal"
)

// Recommend turns the ordered alerts into playbook actions, most severe
// first. An INFO or HEALTHY status yields a single "continue" line.
func Recommend(status model.Status, alerts []model.Alert, pm model.PeriodMetrics, blended model.BlendedMetrics, th Thresholds) []string {
	if status == model.StatusInfo || status == model.StatusHealthy {
		return []string{fmt.Sprintf("Continue current strategy: %s of budget remaining for %d days.",
			money(pm.RemainingBudget()), pm.Calendar.DaysRemaining)}
	}

	out := []string{}
	for _, a := range alerts {
		if a.Severity() == model.LevelInfo {
			continue
		}
		if line := playbook(a, pm, blended, th); line != "" {
			out = append(out, line)
		}
	}
	return out
}

func playbook(a model.Alert, pm model.PeriodMetrics, blended model.BlendedMetrics, th Thresholds) string {
	switch a.Dimension {
	case model.DimensionBudget:
		return budgetAction(a, pm)
	case model.DimensionCAC:
		line := "Review audience targeting and pause ad sets with rising acquisition cost."
		if a.Level == model.LevelCritical {
			line = "Pause the highest-CAC campaigns and shift budget to channels converting below target."
		}
		if id, ok := worstChannel(blended, func(s model.ChannelSnapshot) (float64, bool) { return s.CAC.Value, s.CAC.Valid }, true); ok {
			line += fmt.Sprintf(" Highest CAC: %s (%s).", id, money(blended.PerChannel[id].CAC.Value))
		}
		return line
	case model.DimensionDailySpend:
		if a.Level == model.LevelCritical {
			return fmt.Sprintf("Cap daily budgets now: yesterday ran at %.0f%% of the expected %s.", a.Value, money(pm.ExpectedDailyRate))
		}
		return fmt.Sprintf("Check pacing settings: yesterday ran at %.0f%% of the expected %s.", a.Value, money(pm.ExpectedDailyRate))
	case model.DimensionROAS:
		line := "Refresh creatives and review landing pages for underperforming campaigns."
		switch {
		case a.Level == model.LevelCritical:
			line = "Pause campaigns returning less than spend and reallocate to the best performing channel."
		case a.Value < th.LowROAS:
			line = "Reduce bids on low-return campaigns and test new creatives."
		}
		if id, ok := worstChannel(blended, func(s model.ChannelSnapshot) (float64, bool) { return s.ROAS.Value, s.ROAS.Valid }, false); ok {
			line += fmt.Sprintf(" Lowest ROAS: %s (%.2f).", id, blended.PerChannel[id].ROAS.Value)
		}
		return line
	}
	return ""
}

func budgetAction(a model.Alert, pm model.PeriodMetrics) string {
	remaining := money(pm.RemainingBudget())

	switch a.Severity() {
	case model.LevelExceeded:
		return fmt.Sprintf("Pause all non-essential campaigns: the %s budget of %s is spent with %d days left.",
			pm.Period, money(pm.MonthlyBudget), pm.Calendar.DaysRemaining)
	case model.LevelCritical:
		line := fmt.Sprintf("Reduce daily budgets immediately: %s remains for %d days.", remaining, pm.Calendar.DaysRemaining)
		if pm.ProjectedExhaustionDate != nil {
			line += " Budget runs out on " + pm.ProjectedExhaustionDate.Format(model.DateLayout) + " at the current rate."
		}
		return line
	default:
		line := fmt.Sprintf("Slow spend on low-performing campaigns: %s remains for %d days.", remaining, pm.Calendar.DaysRemaining)
		if pm.ProjectedExhaustionDate != nil && pm.ExhaustionDeltaDays != nil && *pm.ExhaustionDeltaDays > 0 {
			line += fmt.Sprintf(" Projected exhaustion %s, %d days before month end.",
				pm.ProjectedExhaustionDate.Format(model.DateLayout), *pm.ExhaustionDeltaDays)
		}
		return line
	}
}

// worstChannel picks the channel with the highest (or lowest) defined
// metric. It only reports when more than one channel contributes.
func worstChannel(b model.BlendedMetrics, metric func(model.ChannelSnapshot) (float64, bool), highest bool) (string, bool) {
	if len(b.PerChannel) < 2 {
		return "", false
	}
	var (
		worst string
		value float64
		found bool
	)
	for _, id := range slices.Sorted(maps.Keys(b.PerChannel)) {
		v, ok := metric(b.PerChannel[id])
		if !ok {
			continue
		}
		if !found || (highest && v > value) || (!highest && v < value) {
			worst, value, found = id, v, true
		}
	}
	return worst, found
}

func money(v float64) string {
	d := decimal.NewFromFloat(v).Round(2)
	if d.IsNegative() {
		return "-$" + d.Neg().StringFixed(2)
	}
	return "$" + d.StringFixed(2)
}
