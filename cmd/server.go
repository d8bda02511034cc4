package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"github.com/vzahanych/weather-report/internal/config"
	"github.com/vzahanych/weather-report/internal/scheduler"
	"github.com/vzahanych/weather-report/internal/server"
	"go.uber.org/zap"
)

func newServerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "server",
		Short: "Serve the weather report over HTTP",
		Long: `Start the HTTP server that exposes the aggregated weather as JSON (/weather) and
text (/report), refreshing it on a fixed interval, with health and Prometheus metrics endpoints.`,
		Args: cobra.NoArgs,
		RunE: runServer,
	}
}

func runServer(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := config.GetConfig()

	log.Info("Starting weather report server",
		zap.String("config_path", configPath),
		zap.Bool("telemetry_enabled", cfg.Telemetry.Enabled),
		zap.Int("server_port", cfg.Server.Port),
		zap.Duration("refresh_interval", cfg.Server.RefreshInterval),
		zap.Duration("snapshot_max_age", cfg.Server.SnapshotMaxAge))

	p, err := buildPipeline(ctx, cfg, log, tele)
	if err != nil {
		return err
	}
	defer p.Close()

	refresher := scheduler.New(p.aggregator, cfg.Server.RefreshInterval, log,
		scheduler.WithMaxAge(cfg.Server.SnapshotMaxAge))
	if err := refresher.Start(); err != nil {
		return err
	}
	defer refresher.Stop()

	srv := server.NewServer(cfg.Server, refresher, p.aggregator.Providers(), p.metrics, log, tele)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	select {
	case err := <-errChan:
		if err != nil {
			log.Error("Server error", zap.Error(err))
		}
		return err
	case <-ctx.Done():
		log.Info("Shutting down server")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("Error during server shutdown", zap.Error(err))
			return err
		}

		log.Info("Server shutdown complete")
		return nil
	}
}
