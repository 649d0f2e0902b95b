package cli

import (
	"context"
	"os"

	"github.com/ogulcanaydogan/ad-spend-guardian/internal/app"
	"github.com/ogulcanaydogan/ad-spend-guardian/internal/config"
	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags.
var Version = "dev"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "asg",
	Short: "Ad Spend Guardian - ad budget monitoring and alerting",
	Long: `Ad Spend Guardian watches ad spend across channels against a monthly budget.
It blends channel metrics, projects budget exhaustion, raises budget, CAC,
daily spend and ROAS alerts with cooldowns, and sends notifications.`,
	SilenceUsage: true,
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.asg/config.yaml)")
}

// loadConfig loads the configuration.
func loadConfig() (*config.Config, error) {
	return config.Load(cfgFile)
}

// openApp loads config and wires a guardian. The caller must Close it.
func openApp(ctx context.Context) (*app.App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return app.New(ctx, cfg, app.NewLogger(cfg))
}
