package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"NewsDesk/internal/app"
	"NewsDesk/internal/config"
	"NewsDesk/internal/logging"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func newRootCommand() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "newsdesk",
		Short:         "Fetch, rewrite and publish news on a schedule",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			_ = godotenv.Load()
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file (default $NEWSDESK_CONFIG)")

	loadConfig := func() config.Config {
		if configPath != "" {
			return config.LoadFrom(configPath)
		}
		return config.Load()
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the scheduler and the read API until interrupted",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return serve(cmd.Context(), loadConfig())
			},
		},
		&cobra.Command{
			Use:   "run-once",
			Short: "Execute a single ingestion pass and exit",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runOnce(cmd.Context(), loadConfig())
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the version",
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprintln(cmd.OutOrStdout(), "newsdesk", version)
			},
		},
	)

	return root
}

func serve(parent context.Context, cfg config.Config) error {
	ctx, stop := signal.NotifyContext(contextOrBackground(parent), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeApp(application)

	return application.Serve(ctx)
}

func runOnce(parent context.Context, cfg config.Config) error {
	ctx, stop := signal.NotifyContext(contextOrBackground(parent), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeApp(application)

	job, err := application.RunOnce(ctx)
	if err != nil {
		return fmt.Errorf("run %s: %w", job.JobID, err)
	}
	logger.Info("run completed", "job_id", job.JobID, "processed", job.ArticlesProcessed)
	return nil
}

func closeApp(application *app.Application) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = application.Close(ctx)
}

func contextOrBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
