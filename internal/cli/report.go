package cli

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/ogulcanaydogan/ad-spend-guardian/pkg/model"
	"github.com/ogulcanaydogan/ad-spend-guardian/pkg/storage"
	"github.com/spf13/cobra"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Show saved evaluation reports",
	Long: `Show the latest evaluation report, or list recent reports with --limit.
--chart plots the daily spend of the latest report's month.`,
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().IntP("limit", "n", 0, "List this many recent reports instead of the latest one")
	reportCmd.Flags().Bool("chart", false, "Plot daily spend for the month")
	reportCmd.Flags().Bool("json", false, "Print as JSON")
}

func runReport(cmd *cobra.Command, _ []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	chart, _ := cmd.Flags().GetBool("chart")
	asJSON, _ := cmd.Flags().GetBool("json")

	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	if limit > 0 {
		reports, err := a.Store.ListReports(cmd.Context(), limit)
		if err != nil {
			return fmt.Errorf("list reports: %w", err)
		}
		if asJSON {
			return printJSON(os.Stdout, reports)
		}
		printReportList(reports)
		return nil
	}

	report, err := a.Store.LatestReport(cmd.Context())
	if errors.Is(err, storage.ErrNotFound) {
		fmt.Println("No reports yet. Use 'asg check' to run an evaluation.")
		return nil
	}
	if err != nil {
		return fmt.Errorf("latest report: %w", err)
	}

	if asJSON {
		return printJSON(os.Stdout, report)
	}
	printReport(os.Stdout, report)

	if chart {
		series, err := a.Store.DailySpendSeries(cmd.Context(), report.Period)
		if err != nil {
			return fmt.Errorf("daily spend: %w", err)
		}
		fmt.Println()
		fmt.Println(spendChart(series, report.PeriodMetrics.ExpectedDailyRate))
	}
	return nil
}

func printReportList(reports []model.Report) {
	if len(reports) == 0 {
		fmt.Println("No reports yet.")
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "DATE\tID\tSTATUS\tSPENT\tBUDGET %%\tALERTS\tPARTIAL\n")
	for _, r := range reports {
		fmt.Fprintf(w, "%s\t%s\t%s\t$%.2f\t%s\t%d\t%t\n",
			r.Date.Format("2006-01-02 15:04"), r.ID, r.OverallStatus,
			r.PeriodMetrics.MonthToDateSpend, pct(r.PeriodMetrics.BudgetPercentage),
			len(r.Alerts), r.PartialData,
		)
	}
	w.Flush()
}

// spendChart plots daily spend against a flat line at the expected rate.
func spendChart(series []model.DailySpend, expected float64) string {
	if len(series) == 0 {
		return "No completed days to chart."
	}
	spend := make([]float64, len(series))
	target := make([]float64, len(series))
	for i, d := range series {
		spend[i] = d.Amount
		target[i] = expected
	}
	return asciigraph.PlotMany([][]float64{spend, target},
		asciigraph.Height(10),
		asciigraph.SeriesColors(asciigraph.Blue, asciigraph.Red),
		asciigraph.Caption(fmt.Sprintf("daily spend %s to %s (red: expected $%.2f)",
			series[0].Date.Format("01-02"), series[len(series)-1].Date.Format("01-02"), expected)),
	)
}
