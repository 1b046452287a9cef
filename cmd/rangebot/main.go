// Package main implements the RangeBot entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/radio-control/rangebot/internal/config"
	"github.com/radio-control/rangebot/internal/logging"
)

// Version is reported by --version and the startup banner.
const Version = "1.0.0"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:           "rangebot",
		Short:         "Reply to mesh ping messages with the distance to the sender",
		Version:       Version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return run(ctx, configPath)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to the YAML configuration file")

	return cmd
}

// run starts the bot and blocks until ctx is cancelled.
func run(ctx context.Context, configPath string) error {
	// Step 1: Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	// Step 2: Set up process logging
	logger, logCloser := logging.Setup(cfg.Logging)
	defer logCloser.Close()

	logger.Printf("Starting RangeBot v%s", Version)
	logger.Println("Configuration loaded successfully")

	// Step 3: Wire components and open the link
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to start: %w", err)
	}
	if err := a.start(); err != nil {
		// Nothing is serving yet, so there is nothing to drain.
		a.shutdown(context.Background())
		return fmt.Errorf("failed to start: %w", err)
	}
	logger.Printf("RangeBot started on %s as %s", a.target, a.link.LocalID())

	// Step 4: Wait for shutdown signal
	<-ctx.Done()
	logger.Println("Received interrupt, shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	a.shutdown(shutdownCtx)

	fmt.Println("Exiting...")
	return nil
}
