package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"text/tabwriter"

	"github.com/ogulcanaydogan/ad-spend-guardian/pkg/model"
	"github.com/ogulcanaydogan/ad-spend-guardian/pkg/monitor"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run one evaluation cycle",
	Long: `Fetch every configured channel, evaluate the month-to-date metrics against
the budget and thresholds, save the report and send notifications for alerts
that are out of cooldown.`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().Bool("dry-run", false, "Evaluate without saving or recording alert history")
	checkCmd.Flags().Bool("no-notify", false, "Do not send notifications")
	checkCmd.Flags().Bool("json", false, "Print the report as JSON")
}

func runCheck(cmd *cobra.Command, _ []string) error {
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	noNotify, _ := cmd.Flags().GetBool("no-notify")
	asJSON, _ := cmd.Flags().GetBool("json")

	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	report, err := a.Cycle.Run(cmd.Context(), monitor.CycleOptions{
		DryRun: dryRun,
		Notify: !noNotify,
	})
	if err != nil {
		return fmt.Errorf("check: %w", err)
	}

	if asJSON {
		return printJSON(os.Stdout, report)
	}
	printReport(os.Stdout, report)
	if dryRun {
		fmt.Println("\n(dry run: report not saved, alert history unchanged)")
	}
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// usd formats o in dollars, or n/a when it is undefined.
func usd(o model.Optional) string {
	if !o.Valid {
		return "n/a"
	}
	return fmt.Sprintf("$%.2f", o.Value)
}

// pct formats o as a percentage, or n/a when it is undefined.
func pct(o model.Optional) string {
	if !o.Valid {
		return "n/a"
	}
	return fmt.Sprintf("%.2f%%", o.Value)
}

func printReport(out io.Writer, r *model.Report) {
	pm := r.PeriodMetrics

	fmt.Fprintf(out, "=== Ad Spend Report %s ===\n", r.Period)
	fmt.Fprintf(out, "ID:      %s\n", r.ID)
	fmt.Fprintf(out, "Date:    %s\n", r.Date.Format("2006-01-02 15:04 MST"))
	fmt.Fprintf(out, "Status:  %s\n\n", r.OverallStatus)

	fmt.Fprintf(out, "Budget:            $%.2f\n", pm.MonthlyBudget)
	fmt.Fprintf(out, "Spent to date:     $%.2f (%s)\n", pm.MonthToDateSpend, pct(pm.BudgetPercentage))
	fmt.Fprintf(out, "Month elapsed:     %.1f%%\n", pm.TimePercentage)
	fmt.Fprintf(out, "Remaining:         $%.2f for %d days\n", pm.RemainingBudget(), pm.Calendar.DaysRemaining)
	fmt.Fprintf(out, "Yesterday:         %s (expected $%.2f)\n", usd(pm.YesterdaySpend), pm.ExpectedDailyRate)
	fmt.Fprintf(out, "Blended CAC:       %s\n", usd(pm.CurrentCAC))
	fmt.Fprintf(out, "Blended ROAS:      %s\n", pm.CurrentROAS)
	if pm.ProjectedExhaustionDate != nil {
		fmt.Fprintf(out, "Projected exhaust: %s\n", pm.ProjectedExhaustionDate.Format("2006-01-02"))
	}

	if len(r.Blended.PerChannel) > 0 {
		fmt.Fprintf(out, "\nChannels:\n")
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "  CHANNEL\tSPEND\tCONV\tCAC\tROAS\tWEIGHT\n")
		for _, id := range sortedChannels(r.Blended.PerChannel) {
			s := r.Blended.PerChannel[id]
			if s.Missing {
				fmt.Fprintf(w, "  %s\tmissing\t\t\t\t\n", id)
				continue
			}
			fmt.Fprintf(w, "  %s\t$%.2f\t%d\t%s\t%s\t%.2f\n",
				id, s.Spend, s.Conversions, usd(s.CAC), s.ROAS, r.Blended.Weights[id])
		}
		w.Flush()
	}

	if len(r.Alerts) > 0 {
		fmt.Fprintf(out, "\nAlerts:\n")
		for _, al := range r.Alerts {
			fmt.Fprintf(out, "  [%s] %s: %s\n", al.Severity(), al.Dimension, al.Message)
		}
	}

	if len(r.Recommendations) > 0 {
		fmt.Fprintf(out, "\nRecommendations:\n")
		for _, rec := range r.Recommendations {
			fmt.Fprintf(out, "  - %s\n", rec)
		}
	}

	fmt.Fprintf(out, "\nNotifications sent: %d\n", len(r.Notifications))
	if r.PartialData {
		fmt.Fprintf(out, "Partial data, missing channels: %v\n", r.MissingChannels)
	}
}

func sortedChannels(m map[string]model.ChannelSnapshot) []string {
	return slices.Sorted(maps.Keys(m))
}
