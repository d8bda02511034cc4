package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/vzahanych/weather-report/internal/aggregator"
	"github.com/vzahanych/weather-report/internal/cache"
	"github.com/vzahanych/weather-report/internal/config"
	"github.com/vzahanych/weather-report/internal/httpclient"
	"github.com/vzahanych/weather-report/internal/metrics"
	"github.com/vzahanych/weather-report/internal/provider"
	"github.com/vzahanych/weather-report/pkg/telemetry"
	"go.uber.org/zap"
)

// pipeline is the fetch -> cache -> provider -> aggregate chain shared by every command.
type pipeline struct {
	aggregator *aggregator.Aggregator
	store      cache.Store
	metrics    *metrics.Metrics
	logger     *zap.Logger
}

func buildPipeline(ctx context.Context, cfg *config.Config, logger *zap.Logger, tele *telemetry.Telemetry) (*pipeline, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	m := metrics.New()
	client := httpclient.NewFromConfig(cfg.HTTP, logger, tele)

	store, err := cache.New(cfg.Cache, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cache: %w", err)
	}

	var fetcher provider.Fetcher = client
	if cfg.Cache.Enabled {
		if removed := store.Sweep(ctx); removed > 0 {
			logger.Debug("Swept cache before run", zap.Int("removed", removed))
		}
		fetcher = cache.NewFetcher(client, store, logger, m)
	}

	providers := provider.FromConfig(cfg, fetcher,
		provider.WithLogger(logger),
		provider.WithTelemetry(tele),
		provider.WithMetrics(m),
	)
	if len(providers) == 0 {
		logger.Warn("No weather providers enabled")
	}

	agg := aggregator.NewFromConfig(cfg.Aggregator, providers,
		aggregator.WithLogger(logger),
		aggregator.WithTelemetry(tele),
		aggregator.WithMetrics(m),
	)

	logger.Info("Weather pipeline ready",
		zap.Strings("providers", agg.Providers()),
		zap.String("cache_backend", store.Backend()),
		zap.Bool("concurrent", cfg.Aggregator.Concurrent),
	)

	return &pipeline{
		aggregator: agg,
		store:      store,
		metrics:    m,
		logger:     logger,
	}, nil
}

// Close releases backend connections held by the cache store.
func (p *pipeline) Close() {
	closer, ok := p.store.(io.Closer)
	if !ok {
		return
	}
	if err := closer.Close(); err != nil {
		p.logger.Warn("Failed to close cache store", zap.Error(err))
	}
}
