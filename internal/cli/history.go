package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show alert cooldown history",
	RunE:  runHistory,
}

var historyResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear alert history so every alert notifies again",
	RunE:  runHistoryReset,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyResetCmd)
	historyCmd.Flags().Bool("json", false, "Print as JSON")
	historyResetCmd.Flags().Bool("yes", false, "Do not ask for confirmation")
}

func runHistory(cmd *cobra.Command, _ []string) error {
	asJSON, _ := cmd.Flags().GetBool("json")

	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	records, err := a.History.ListAlertHistory(cmd.Context())
	if err != nil {
		return fmt.Errorf("list alert history: %w", err)
	}
	if asJSON {
		return printJSON(os.Stdout, records)
	}

	if len(records) == 0 {
		fmt.Println("No alerts have been sent.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "KEY\tLAST LEVEL\tLAST SENT\tCOUNT\n")
	for _, r := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\n",
			r.Key, r.Entry.LastLevel,
			r.Entry.LastSentAt.Format("2006-01-02 15:04:05 MST"), r.Entry.SentCount,
		)
	}
	w.Flush()
	return nil
}

func runHistoryReset(cmd *cobra.Command, _ []string) error {
	yes, _ := cmd.Flags().GetBool("yes")
	if !yes {
		return fmt.Errorf("refusing to clear alert history without --yes")
	}

	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.History.ResetAlertHistory(cmd.Context()); err != nil {
		return fmt.Errorf("reset alert history: %w", err)
	}
	fmt.Println("Alert history cleared.")
	return nil
}
