package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	httpadapter "github.com/couchcryptid/quake-catalog-etl/internal/adapter/http"
	"github.com/couchcryptid/quake-catalog-etl/internal/config"
	"github.com/couchcryptid/quake-catalog-etl/internal/domain"
	"github.com/couchcryptid/quake-catalog-etl/internal/observability"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the run API with health, readiness and metrics endpoints",
		Long: `Start the HTTP server. Runs are triggered with POST /runs, observed with
GET /status and cancelled with DELETE /runs/current. At most one run is in
progress at a time.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	c := wire(cfg, logger, metrics, func(pr domain.Progress) {
		logger.Debug("run progress", "run_id", pr.RunID, "percent", pr.Percent, "status", pr.Status)
	})
	defer c.Close()

	srv := httpadapter.NewServer(cfg.HTTPAddr, c.pipeline, c.pipeline, logger)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		if c.pipeline.Cancel() {
			logger.Info("cancelled in-flight run")
		}
		shutdownErr := srv.Shutdown(shutdownCtx)
		if err := c.pipeline.Wait(shutdownCtx); err != nil {
			logger.Warn("in-flight run did not stop before shutdown timeout", "error", err)
		}
		return shutdownErr
	})

	if err := g.Wait(); err != nil {
		logger.Error("server error", "error", err)
		return err
	}
	logger.Info("shutdown complete")
	return nil
}
