package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/ogulcanaydogan/ad-spend-guardian/pkg/sources"
	"github.com/spf13/cobra"
)

var channelsCmd = &cobra.Command{
	Use:   "channels",
	Short: "Inspect ad channels",
}

var channelsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured channels and their sources",
	RunE:  runChannelsList,
}

func init() {
	rootCmd.AddCommand(channelsCmd)
	channelsCmd.AddCommand(channelsListCmd)
	channelsListCmd.Flags().Bool("fetch", false, "Fetch current month-to-date snapshots")
}

func runChannelsList(cmd *cobra.Command, _ []string) error {
	fetch, _ := cmd.Flags().GetBool("fetch")

	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	if len(a.Config.Channels) == 0 {
		fmt.Println("No channels configured. Add them under 'channels' in the config file.")
		return nil
	}

	var collection sources.Collection
	if fetch {
		collection = sources.NewCollector(a.Sources, 0, a.Logger).Collect(cmd.Context())
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	if fetch {
		fmt.Fprintf(w, "CHANNEL\tSOURCE\tSPEND\tCONV\tCAC\tROAS\n")
	} else {
		fmt.Fprintf(w, "CHANNEL\tSOURCE\n")
	}
	for _, ch := range a.Config.Channels {
		source := "recorded"
		if ch.URL != "" {
			source = ch.URL
		}
		if !fetch {
			fmt.Fprintf(w, "%s\t%s\n", ch.ID, source)
			continue
		}
		if err, failed := collection.Failed[ch.ID]; failed {
			fmt.Fprintf(w, "%s\t%s\terror: %v\t\t\t\n", ch.ID, source, err)
			continue
		}
		s := collection.Snapshots[ch.ID]
		fmt.Fprintf(w, "%s\t%s\t$%.2f\t%d\t%s\t%s\n",
			ch.ID, source, s.Spend, s.Conversions, usd(s.CAC), s.ROAS)
	}
	w.Flush()
	return nil
}
