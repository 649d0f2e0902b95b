package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ogulcanaydogan/ad-spend-guardian/internal/app"
	"github.com/ogulcanaydogan/ad-spend-guardian/internal/config"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Getenv("ASG_CONFIG"))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := app.NewLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	guardian, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer guardian.Close()

	logger.Info("guardian started",
		"channels", cfg.ChannelIDs(),
		"history_backend", cfg.History.Backend,
		"check_interval", cfg.CheckInterval().String(),
	)
	return guardian.Serve(ctx, cfg.Server.Listen, true)
}
