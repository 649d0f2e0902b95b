package cli

import (
	"fmt"
	"time"

	"github.com/ogulcanaydogan/ad-spend-guardian/pkg/model"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record daily metrics for a channel",
	Long: `Record one day of spend, conversions and revenue for a channel. Channels
configured without a URL are evaluated from these records. Recording the same
channel and date again replaces the earlier values.`,
	RunE: runRecord,
}

func init() {
	rootCmd.AddCommand(recordCmd)
	recordCmd.Flags().StringP("channel", "c", "", "Channel id (e.g., google, meta)")
	recordCmd.Flags().StringP("date", "d", "", "Day in YYYY-MM-DD (default: yesterday)")
	recordCmd.Flags().String("spend", "0", "Spend in USD")
	recordCmd.Flags().Int64("conversions", 0, "Number of conversions")
	recordCmd.Flags().String("revenue", "0", "Attributed revenue in USD")
	_ = recordCmd.MarkFlagRequired("channel")
}

func runRecord(cmd *cobra.Command, _ []string) error {
	channel, _ := cmd.Flags().GetString("channel")
	rawDate, _ := cmd.Flags().GetString("date")
	rawSpend, _ := cmd.Flags().GetString("spend")
	conversions, _ := cmd.Flags().GetInt64("conversions")
	rawRevenue, _ := cmd.Flags().GetString("revenue")

	date := time.Now().UTC().AddDate(0, 0, -1)
	if rawDate != "" {
		d, err := time.Parse(model.DateLayout, rawDate)
		if err != nil {
			return fmt.Errorf("invalid --date %q: %w", rawDate, err)
		}
		date = d
	}

	spend, err := parseUSD("spend", rawSpend)
	if err != nil {
		return err
	}
	revenue, err := parseUSD("revenue", rawRevenue)
	if err != nil {
		return err
	}

	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	m := &model.DailyMetrics{
		Date:        date,
		Channel:     channel,
		Spend:       spend,
		Conversions: conversions,
		Revenue:     revenue,
	}
	if err := a.Store.RecordDailyMetrics(cmd.Context(), m); err != nil {
		return fmt.Errorf("record metrics: %w", err)
	}

	fmt.Printf("Recorded metrics:\n")
	fmt.Printf("  Channel:     %s\n", m.Channel)
	fmt.Printf("  Date:        %s\n", m.Date.Format(model.DateLayout))
	fmt.Printf("  Spend:       $%.2f\n", m.Spend)
	fmt.Printf("  Conversions: %d\n", m.Conversions)
	fmt.Printf("  Revenue:     $%.2f\n", m.Revenue)

	return nil
}

// parseUSD parses a money flag and rounds it to cents.
func parseUSD(name, raw string) (float64, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid --%s %q: %w", name, raw, err)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("--%s must not be negative", name)
	}
	return d.Round(2).InexactFloat64(), nil
}
