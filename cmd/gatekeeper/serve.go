package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/gatekeeper/internal/engine"
	httpserver "github.com/fyrsmithlabs/gatekeeper/internal/http"
)

func newServeCmd() *cobra.Command {
	var (
		host string
		port int
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Long: `Start the HTTP API: validation, hooks, scoring, workflows, orchestration,
health and Prometheus metrics on /metrics.

On SIGINT or SIGTERM the server stops accepting requests, waits for in-flight
operations up to server.shutdown_timeout and exits.

Examples:
  gatekeeper serve
  gatekeeper serve --port 8080`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), host, port)
		},
	}
	cmd.Flags().StringVar(&host, "host", "", "listen host (default from config)")
	cmd.Flags().IntVar(&port, "port", 0, "listen port (default from config)")
	return cmd
}

// runServe starts the engine and HTTP server and blocks until ctx is
// cancelled.
func runServe(ctx context.Context, host string, port int) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if host != "" {
		cfg.Server.Host = host
	}
	if port != 0 {
		cfg.Server.Port = port
	}

	logger, err := newLogger(cfg, false)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	eng, err := engine.New(ctx, cfg, engine.WithLogger(logger), engine.WithVersion(version))
	if err != nil {
		return err
	}

	srv, err := httpserver.NewServer(eng, logger, &httpserver.Config{
		Host:    cfg.Server.Host,
		Port:    cfg.Server.Port,
		Version: version,
	})
	if err != nil {
		_ = eng.Shutdown(context.WithoutCancel(ctx))
		return err
	}

	logger.Info(ctx, "starting gatekeeper",
		zap.String("version", version),
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
		zap.Duration("shutdown_timeout", cfg.Server.ShutdownTimeout.Duration()))

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info(ctx, "received shutdown signal")
	case serveErr = <-errCh:
		if errors.Is(serveErr, http.ErrServerClosed) {
			serveErr = nil
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeout.Duration())
	defer cancel()

	// Stop taking requests before draining the engine so no new work arrives.
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn(ctx, "http shutdown", zap.Error(err))
	}
	if err := eng.Shutdown(shutdownCtx); err != nil {
		logger.Warn(ctx, "engine shutdown", zap.Error(err))
	}
	logger.Info(ctx, "shutdown complete")
	return serveErr
}
