package alerts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ogulcanaydogan/ad-spend-guardian/pkg/model"
	"github.com/shopspring/decimal"
)

// SlackNotifier sends alerts to a Slack webhook.
type SlackNotifier struct {
	webhookURL string
	channel    string
	client     *http.Client
}

// NewSlackNotifier creates a Slack webhook notifier.
func NewSlackNotifier(webhookURL, channel string) *SlackNotifier {
	return &SlackNotifier{
		webhookURL: webhookURL,
		channel:    channel,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (s *SlackNotifier) Name() string { return "slack" }

func (s *SlackNotifier) Send(ctx context.Context, n Notification) error {
	fields := []slackField{
		{Title: "Dimension", Value: string(n.Alert.Dimension), Short: true},
		{Title: "Period", Value: n.Period, Short: true},
		{Title: "Value", Value: formatValue(n.Alert.Dimension, n.Alert.Value), Short: true},
		{Title: "Threshold", Value: formatValue(n.Alert.Dimension, n.Alert.Threshold), Short: true},
		{Title: "Spend", Value: usd(n.MonthToDateSpend) + " / " + usd(n.MonthlyBudget), Short: true},
		{Title: "Overall", Value: string(n.OverallStatus), Short: true},
	}
	if len(n.Recommendations) > 0 {
		fields = append(fields, slackField{Title: "Recommended actions", Value: "• " + strings.Join(n.Recommendations, "\n• ")})
	}
	if n.PartialData {
		fields = append(fields, slackField{Title: "Data", Value: "Partial: some channels were unavailable"})
	}

	payload := slackPayload{
		Channel: s.channel,
		Attachments: []slackAttachment{
			{
				Color:  color(n.Severity()),
				Title:  title(n),
				Text:   n.Alert.Message,
				Fields: fields,
				Footer: "Ad Spend Guardian",
				Ts:     n.Timestamp.Unix(),
			},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send slack alert: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack returned status %d", resp.StatusCode)
	}
	return nil
}

func color(l model.Level) string {
	switch l {
	case model.LevelWarning:
		return "#ff9900" // orange
	case model.LevelCritical:
		return "#ff0000" // red
	case model.LevelExceeded:
		return "#cc0000" // dark red
	default:
		return "#36a64f" // green
	}
}

func formatValue(d model.Dimension, v float64) string {
	switch d {
	case model.DimensionCAC:
		return usd(v)
	case model.DimensionROAS:
		return fmt.Sprintf("%.2fx", v)
	default:
		return fmt.Sprintf("%.1f%%", v)
	}
}

func usd(v float64) string {
	return "$" + decimal.NewFromFloat(v).StringFixed(2)
}

type slackPayload struct {
	Channel     string            `json:"channel,omitempty"`
	Attachments []slackAttachment `json:"attachments"`
}

type slackAttachment struct {
	Color  string       `json:"color"`
	Title  string       `json:"title"`
	Text   string       `json:"text"`
	Fields []slackField `json:"fields"`
	Footer string       `json:"footer"`
	Ts     int64        `json:"ts"`
}

type slackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}
