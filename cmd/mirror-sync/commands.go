package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"mirror-sync-go/internal/app"
	"mirror-sync-go/internal/config"
	"mirror-sync-go/pkg/logger"

	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

type rootOptions struct {
	workspace string
	workers   int
}

func newRootCommand(log logger.Logger) *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "mirror-sync",
		Short:         "Mirror local git working copies to the internal gateway",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.workspace, "workspace", "", "workspace root laid out as <owner>/<repo> (overrides WORKSPACE_ROOT)")
	cmd.PersistentFlags().IntVar(&opts.workers, "workers", 0, "repositories processed concurrently (overrides SCAN_WORKERS)")

	cmd.AddCommand(newScanCommand(log, opts), newServeCommand(log, opts))
	return cmd
}

func newScanCommand(log logger.Logger, opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Run one scan over the workspace and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, log, opts)
			if err != nil {
				return err
			}

			application, err := app.New(cfg, log)
			if err != nil {
				return fmt.Errorf("init: %w", err)
			}
			defer func() {
				if err := application.Close(); err != nil {
					log.Error("app: close failed", "err", err)
				}
			}()

			summary, err := application.Scan(cmd.Context())
			if err != nil {
				return fmt.Errorf("scan: %w", err)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(summary)
		},
	}
}

func newServeCommand(log logger.Logger, opts *rootOptions) *cobra.Command {
	var (
		interval    time.Duration
		scanOnStart bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the admin API and run scheduled scans",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, log, opts)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("interval") {
				cfg.Scan.Interval = interval
			}
			if cmd.Flags().Changed("scan-on-start") {
				cfg.Scan.OnStart = scanOnStart
			}
			return serve(cmd.Context(), cfg, log)
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", 0, "time between scheduled scans, 0 disables (overrides SCAN_INTERVAL)")
	cmd.Flags().BoolVar(&scanOnStart, "scan-on-start", false, "start a scan as soon as the server is up (overrides SCAN_ON_START)")
	return cmd
}

func serve(ctx context.Context, cfg config.Config, log logger.Logger) error {
	application, err := app.New(cfg, log)
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}

	scheduler := application.Scheduler()
	scheduler.Start()
	if cfg.Scan.OnStart {
		if err := scheduler.Trigger(); err != nil {
			log.Warn("scheduler: initial scan not started", "err", err)
		}
	}

	runErr := application.HTTPServer().Run(ctx, shutdownTimeout)

	if err := application.Close(); err != nil {
		log.Error("app: close failed", "err", err)
		runErr = errors.Join(runErr, err)
	}

	if runErr == nil {
		log.Info("app: stopped")
	}
	return runErr
}

func loadConfig(cmd *cobra.Command, log logger.Logger, opts *rootOptions) (config.Config, error) {
	cfg, err := config.Load(log)
	if err != nil {
		return config.Config{}, err
	}

	flags := cmd.Flags()
	if flags.Changed("workspace") {
		cfg.Workspace.Root = opts.workspace
	}
	if flags.Changed("workers") {
		cfg.Scan.Workers = opts.workers
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
