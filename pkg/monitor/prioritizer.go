package monitor

import (
	"cmp"
	"slices"

	"github.com/ogulcanaydogan/ad-spend-guardian/pkg/model"
)

// Prioritize derives the overall status of a set of alerts and returns
// them ordered most severe first, then by dimension. No alert is dropped.
//
// Status rules, first match wins:
//  1. an exceeded BUDGET alert is EXCEEDED
//  2. CAC above the critical limit or ROAS below the minimum is CRITICAL
//  3. any CRITICAL alert is CRITICAL
//  4. any WARNING alert is WARNING
//  5. otherwise INFO
func Prioritize(alerts []model.Alert, th Thresholds) (model.Status, []model.Alert) {
	if len(alerts) == 0 {
		return model.StatusHealthy, nil
	}

	ordered := slices.Clone(alerts)
	slices.SortStableFunc(ordered, func(a, b model.Alert) int {
		if c := cmp.Compare(b.Severity().Rank(), a.Severity().Rank()); c != 0 {
			return c
		}
		return cmp.Compare(a.Dimension.Order(), b.Dimension.Order())
	})
	for i := range ordered {
		ordered[i].Priority = i + 1
	}

	return overallStatus(ordered, th), ordered
}

func overallStatus(alerts []model.Alert, th Thresholds) model.Status {
	for _, a := range alerts {
		if a.Dimension == model.DimensionBudget && a.Exceeded {
			return model.StatusExceeded
		}
	}
	for _, a := range alerts {
		if a.Dimension == model.DimensionCAC && a.Value > th.CACCritical {
			return model.StatusCritical
		}
		if a.Dimension == model.DimensionROAS && a.Value < th.MinROAS {
			return model.StatusCritical
		}
	}

	var worst model.Level
	for _, a := range alerts {
		if a.Level.Rank() > worst.Rank() {
			worst = a.Level
		}
	}
	switch worst {
	case model.LevelCritical, model.LevelExceeded:
		return model.StatusCritical
	case model.LevelWarning:
		return model.StatusWarning
	default:
		return model.StatusInfo
	}
}
