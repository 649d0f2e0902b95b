package monitor

import (
	"fmt"
	"maps"
	"math"
	"slices"

	"github.com/ogulcanaydogan/ad-spend-guardian/pkg/model"
	"github.com/shopspring/decimal"
)

// Blend combines per-channel snapshots into one spend-weighted aggregate.
//
// Each channel is weighted by its share of total spend, or evenly when
// nothing has been spent. A channel with an undefined CAC or ROAS adds
// zero to that blend while its weight still counts; the blended value is
// undefined only when no channel defines it. A single channel is passed
// through unchanged.
func Blend(snapshots map[string]model.ChannelSnapshot) (model.BlendedMetrics, error) {
	if len(snapshots) == 0 {
		return model.BlendedMetrics{}, &InvalidInputError{Reason: "no channel snapshots"}
	}

	ids := slices.Sorted(maps.Keys(snapshots))
	perChannel := make(map[string]model.ChannelSnapshot, len(ids))
	total := decimal.Zero
	var conversions int64

	for _, id := range ids {
		s := snapshots[id]
		if err := validateSnapshot(id, s); err != nil {
			return model.BlendedMetrics{}, err
		}
		s.ChannelID = id
		perChannel[id] = s
		total = total.Add(decimal.NewFromFloat(s.Spend))
		conversions += s.Conversions
	}

	blended := model.BlendedMetrics{
		TotalSpend:       total.InexactFloat64(),
		TotalConversions: conversions,
		Weights:          make(map[string]float64, len(ids)),
		PerChannel:       perChannel,
	}

	if len(ids) == 1 {
		s := perChannel[ids[0]]
		blended.TotalSpend = s.Spend
		blended.Weights[s.ChannelID] = 1
		blended.BlendedCAC = s.CAC
		blended.BlendedROAS = s.ROAS
		return blended, nil
	}

	even := 1 / float64(len(ids))
	for _, id := range ids {
		if total.IsPositive() {
			blended.Weights[id] = decimal.NewFromFloat(perChannel[id].Spend).Div(total).InexactFloat64()
		} else {
			blended.Weights[id] = even
		}
	}

	blended.BlendedCAC = weightedAverage(ids, blended.Weights, func(s model.ChannelSnapshot) model.Optional { return s.CAC }, perChannel)
	blended.BlendedROAS = weightedAverage(ids, blended.Weights, func(s model.ChannelSnapshot) model.Optional { return s.ROAS }, perChannel)
	return blended, nil
}

func weightedAverage(ids []string, weights map[string]float64, metric func(model.ChannelSnapshot) model.Optional, perChannel map[string]model.ChannelSnapshot) model.Optional {
	var sum float64
	defined := false
	for _, id := range ids {
		m := metric(perChannel[id])
		if !m.Valid {
			continue
		}
		defined = true
		sum += weights[id] * m.Value
	}
	if !defined {
		return model.None()
	}
	return model.Some(sum)
}

func validateSnapshot(id string, s model.ChannelSnapshot) error {
	switch {
	case id == "":
		return &InvalidInputError{Reason: "snapshot with empty channel id"}
	case math.IsNaN(s.Spend) || math.IsInf(s.Spend, 0) || s.Spend < 0:
		return &InvalidInputError{Reason: fmt.Sprintf("channel %q: invalid spend %v", id, s.Spend)}
	case s.Conversions < 0:
		return &InvalidInputError{Reason: fmt.Sprintf("channel %q: negative conversions %d", id, s.Conversions)}
	}
	return nil
}
