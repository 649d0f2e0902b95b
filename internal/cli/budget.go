package cli

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/ogulcanaydogan/ad-spend-guardian/pkg/model"
	"github.com/ogulcanaydogan/ad-spend-guardian/pkg/storage"
	"github.com/spf13/cobra"
)

var budgetCmd = &cobra.Command{
	Use:   "budget",
	Short: "Manage monthly budgets",
}

var budgetSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Create or update the budget of a month",
	RunE:  runBudgetSet,
}

var budgetStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show budgets and the latest evaluation",
	RunE:  runBudgetStatus,
}

func init() {
	rootCmd.AddCommand(budgetCmd)
	budgetCmd.AddCommand(budgetSetCmd)
	budgetCmd.AddCommand(budgetStatusCmd)

	budgetSetCmd.Flags().StringP("period", "P", "", "Month in YYYY-MM (default: current month)")
	budgetSetCmd.Flags().StringP("amount", "a", "", "Monthly budget in USD")
	_ = budgetSetCmd.MarkFlagRequired("amount")
}

func runBudgetSet(cmd *cobra.Command, _ []string) error {
	period, _ := cmd.Flags().GetString("period")
	rawAmount, _ := cmd.Flags().GetString("amount")

	if period == "" {
		period = model.PeriodOf(time.Now().UTC())
	}
	amount, err := parseUSD("amount", rawAmount)
	if err != nil {
		return err
	}

	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	budget := &model.Budget{Period: period, AmountUSD: amount}
	if err := a.Store.SetBudget(cmd.Context(), budget); err != nil {
		return fmt.Errorf("set budget: %w", err)
	}

	fmt.Printf("Budget set:\n")
	fmt.Printf("  Period: %s\n", period)
	fmt.Printf("  Amount: $%.2f\n", amount)

	return nil
}

func runBudgetStatus(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	budgets, err := a.Store.ListBudgets(cmd.Context())
	if err != nil {
		return fmt.Errorf("list budgets: %w", err)
	}

	if len(budgets) == 0 {
		fmt.Println("No budgets configured. Use 'asg budget set' to create one.")
		return nil
	}

	latest, err := a.Store.LatestReport(cmd.Context())
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("latest report: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "PERIOD\tBUDGET\tSPENT\tREMAINING\tUSAGE\tSTATUS\n")
	for _, b := range budgets {
		if latest == nil || latest.Period != b.Period {
			fmt.Fprintf(w, "%s\t$%.2f\t-\t-\t-\t-\n", b.Period, b.AmountUSD)
			continue
		}
		pm := latest.PeriodMetrics
		fmt.Fprintf(w, "%s\t$%.2f\t$%.2f\t$%.2f\t%s\t%s\n",
			b.Period, b.AmountUSD, pm.MonthToDateSpend,
			pm.RemainingBudget(), pct(pm.BudgetPercentage), latest.OverallStatus,
		)
	}
	w.Flush()

	if latest != nil {
		fmt.Printf("\nLast evaluated %s (report %s)\n", latest.Date.Format("2006-01-02 15:04 MST"), latest.ID)
	}
	return nil
}
