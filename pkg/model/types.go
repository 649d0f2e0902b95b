package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Level indicates the severity of an alert.
type Level string

const (
	LevelInfo     Level = "INFO"     // Within normal bounds
	LevelWarning  Level = "WARNING"  // Approaching a threshold
	LevelCritical Level = "CRITICAL" // Threshold breached
	LevelExceeded Level = "EXCEEDED" // Budget exhausted
)

// Rank orders levels from least (1) to most (4) severe. Unknown levels rank 0.
func (l Level) Rank() int {
	switch l {
	case LevelInfo:
		return 1
	case LevelWarning:
		return 2
	case LevelCritical:
		return 3
	case LevelExceeded:
		return 4
	default:
		return 0
	}
}

// Status is the overall state of an evaluation cycle.
type Status string

const (
	StatusHealthy  Status = "HEALTHY"
	StatusInfo     Status = "INFO"
	StatusWarning  Status = "WARNING"
	StatusCritical Status = "CRITICAL"
	StatusExceeded Status = "EXCEEDED"
)

// StatusOf maps an alert level onto the matching overall status.
func StatusOf(l Level) Status {
	switch l {
	case LevelInfo:
		return StatusInfo
	case LevelWarning:
		return StatusWarning
	case LevelCritical:
		return StatusCritical
	case LevelExceeded:
		return StatusExceeded
	default:
		return StatusHealthy
	}
}

// Dimension is one of the fixed metrics the engine evaluates.
type Dimension string

const (
	DimensionBudget     Dimension = "BUDGET"
	DimensionCAC        Dimension = "CAC"
	DimensionDailySpend Dimension = "DAILY_SPEND"
	DimensionROAS       Dimension = "ROAS"
)

// Dimensions lists every dimension in display order.
var Dimensions = []Dimension{DimensionBudget, DimensionCAC, DimensionDailySpend, DimensionROAS}

// Order returns the position of the dimension within Dimensions.
func (d Dimension) Order() int {
	for i, dim := range Dimensions {
		if dim == d {
			return i
		}
	}
	return len(Dimensions)
}

// Optional is a metric that may be undefined, e.g. CAC with zero conversions.
type Optional struct {
	Value float64
	Valid bool
}

// Some returns a defined Optional.
func Some(v float64) Optional {
	return Optional{Value: v, Valid: true}
}

// None returns an undefined Optional.
func None() Optional {
	return Optional{}
}

func (o Optional) String() string {
	if !o.Valid {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", o.Value)
}

func (o Optional) MarshalJSON() ([]byte, error) {
	if !o.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}

func (o *Optional) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*o = Optional{}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("decode optional metric: %w", err)
	}
	*o = Some(v)
	return nil
}

// ChannelSnapshot holds month-to-date metrics for one ad channel.
type ChannelSnapshot struct {
	ChannelID   string   `json:"channel_id"`
	Spend       float64  `json:"spend"`
	Conversions int64    `json:"conversions"`
	Revenue     float64  `json:"revenue"`
	CAC         Optional `json:"cac"`
	ROAS        Optional `json:"roas"`
	Missing     bool     `json:"missing,omitempty"`
}

// NewChannelSnapshot builds a snapshot and derives CAC and ROAS.
// CAC is undefined without conversions, ROAS without spend.
func NewChannelSnapshot(channelID string, spend float64, conversions int64, revenue float64) ChannelSnapshot {
	s := ChannelSnapshot{
		ChannelID:   channelID,
		Spend:       spend,
		Conversions: conversions,
		Revenue:     revenue,
	}
	if conversions > 0 {
		s.CAC = Some(spend / float64(conversions))
	}
	if spend > 0 {
		s.ROAS = Some(revenue / spend)
	}
	return s
}

// MissingSnapshot is the empty stand-in for a channel whose fetch failed.
func MissingSnapshot(channelID string) ChannelSnapshot {
	return ChannelSnapshot{ChannelID: channelID, Missing: true}
}

// BlendedMetrics is the spend-weighted aggregate of all channel snapshots.
type BlendedMetrics struct {
	TotalSpend       float64                    `json:"total_spend"`
	TotalConversions int64                      `json:"total_conversions"`
	BlendedCAC       Optional                   `json:"blended_cac"`
	BlendedROAS      Optional                   `json:"blended_roas"`
	Weights          map[string]float64         `json:"weights"`
	PerChannel       map[string]ChannelSnapshot `json:"per_channel"`
}

// Alert is a single threshold finding for one dimension.
type Alert struct {
	Level     Level     `json:"level"`
	Dimension Dimension `json:"dimension"`
	Message   string    `json:"message"`
	Value     float64   `json:"value"`
	Threshold float64   `json:"threshold"`
	Exceeded  bool      `json:"exceeded,omitempty"`
	Priority  int       `json:"priority,omitempty"`
}

// Severity returns LevelExceeded for an exceeded budget alert and the
// alert's own level otherwise.
func (a Alert) Severity() Level {
	if a.Exceeded {
		return LevelExceeded
	}
	return a.Level
}

// HistoryKey identifies a cooldown bucket in the alert history.
// Level is empty when history is kept per dimension.
type HistoryKey struct {
	Dimension Dimension `json:"dimension"`
	Level     Level     `json:"level,omitempty"`
}

func (k HistoryKey) String() string {
	if k.Level == "" {
		return string(k.Dimension)
	}
	return string(k.Dimension) + ":" + string(k.Level)
}

// AlertHistoryEntry records when an alert key last notified.
type AlertHistoryEntry struct {
	LastSentAt time.Time `json:"last_sent_at"`
	SentCount  int64     `json:"sent_count"`
	LastLevel  Level     `json:"last_level"`
}

// DailySpend is one entry of the daily spend series.
type DailySpend struct {
	Date   time.Time `json:"date"`
	Amount float64   `json:"amount"`
}

// DailyMetrics is a recorded day of metrics for one channel.
type DailyMetrics struct {
	ID          string    `json:"id" db:"id"`
	Date        time.Time `json:"date" db:"date"`
	Channel     string    `json:"channel" db:"channel"`
	Spend       float64   `json:"spend" db:"spend"`
	Conversions int64     `json:"conversions" db:"conversions"`
	Revenue     float64   `json:"revenue" db:"revenue"`
}

// Budget is the monthly spending plan for one period.
type Budget struct {
	Period    string    `json:"period" db:"period"`
	AmountUSD float64   `json:"amount_usd" db:"amount_usd"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// AlertHistoryRecord pairs a history key with its entry for listing.
type AlertHistoryRecord struct {
	Key   HistoryKey        `json:"key"`
	Entry AlertHistoryEntry `json:"entry"`
}

// MetricsFilter narrows queries over recorded daily metrics.
// Start is inclusive, End exclusive.
type MetricsFilter struct {
	Channel string
	Start   time.Time
	End     time.Time
}
