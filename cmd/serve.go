package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/linkstash/internal/app"
	"github.com/JakeFAU/linkstash/internal/logging"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		Long: `Starts the REST API. On SIGINT or SIGTERM the server stops admitting API
requests, waits for in-flight ones to finish (bounded by server.drain_timeout)
and then exits.`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := resolveConfig(cmd.Context())
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Logging.Development, cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
		}
	}()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize application services", zap.Error(err))
		return err
	}
	defer func() {
		if cerr := a.Close(); cerr != nil {
			logger.Warn("failed to close application services", zap.Error(cerr))
		}
	}()

	// A second signal during draining falls back to the default handler.
	go func() {
		<-ctx.Done()
		stop()
	}()

	if err := a.Run(ctx); err != nil {
		logger.Error("server stopped with error", zap.Error(err))
		return err
	}
	return nil
}
