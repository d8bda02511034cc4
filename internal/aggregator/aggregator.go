package aggregator

import (
	"context"
	"fmt"
	"time"

	"github.com/vzahanych/weather-report/internal/config"
	"github.com/vzahanych/weather-report/internal/provider"
	"github.com/vzahanych/weather-report/internal/weather"
	"github.com/vzahanych/weather-report/pkg/logger"
	"github.com/vzahanych/weather-report/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const DefaultDelay = 500 * time.Millisecond

// MetricsRecorder interface for recording metrics
type MetricsRecorder interface {
	RecordCollect(sources int)
}

// Aggregator asks every provider for a reading and keeps the ones that
// answered. It has no error path: total failure is an empty Aggregate.
type Aggregator struct {
	providers  []provider.Provider
	delay      time.Duration
	deadline   time.Duration
	concurrent bool
	sleep      func(ctx context.Context, d time.Duration) error
	logger     *zap.Logger
	tele       *telemetry.Telemetry
	metrics    MetricsRecorder
}

type Option func(*Aggregator)

// WithDelay sets the politeness pause between provider calls.
func WithDelay(d time.Duration) Option {
	return func(a *Aggregator) {
		if d >= 0 {
			a.delay = d
		}
	}
}

// WithDeadline bounds a whole Collect call. Zero means no bound.
func WithDeadline(d time.Duration) Option {
	return func(a *Aggregator) {
		if d >= 0 {
			a.deadline = d
		}
	}
}

func WithConcurrent(enabled bool) Option {
	return func(a *Aggregator) {
		a.concurrent = enabled
	}
}

func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(a *Aggregator) {
		if sleep != nil {
			a.sleep = sleep
		}
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(a *Aggregator) {
		if logger != nil {
			a.logger = logger
		}
	}
}

func WithTelemetry(tele *telemetry.Telemetry) Option {
	return func(a *Aggregator) {
		a.tele = tele
	}
}

// WithMetrics sets the metrics recorder for the aggregator
func WithMetrics(m MetricsRecorder) Option {
	return func(a *Aggregator) {
		a.metrics = m
	}
}

func New(providers []provider.Provider, opts ...Option) *Aggregator {
	a := &Aggregator{
		providers: providers,
		delay:     DefaultDelay,
		sleep:     sleepContext,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}

	a.logger.Info("Registered weather providers",
		zap.Strings("providers", a.Providers()),
		zap.Bool("concurrent", a.concurrent),
		zap.Duration("delay", a.delay),
	)

	return a
}

func NewFromConfig(cfg config.AggregatorConfig, providers []provider.Provider, opts ...Option) *Aggregator {
	base := []Option{
		WithDelay(cfg.Delay),
		WithDeadline(cfg.Deadline),
		WithConcurrent(cfg.Concurrent),
	}
	return New(providers, append(base, opts...)...)
}

func (a *Aggregator) Providers() []string {
	names := make([]string, 0, len(a.providers))
	for _, p := range a.providers {
		names = append(names, p.Name())
	}
	return names
}

// Collect runs one collection pass. Readings appear in provider order no
// matter which mode is used or which provider finished first.
func (a *Aggregator) Collect(ctx context.Context) weather.Aggregate {
	ctx, span := a.tele.StartSpan(ctx, "aggregator.Collect",
		attribute.Int("providers_count", len(a.providers)),
		attribute.Bool("concurrent", a.concurrent),
	)
	defer span.End()

	if a.deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.deadline)
		defer cancel()
	}

	start := time.Now()

	var agg weather.Aggregate
	if a.concurrent {
		agg = a.collectConcurrent(ctx)
	} else {
		agg = a.collectSequential(ctx)
	}

	span.SetAttributes(attribute.Int("sources_count", agg.Len()))

	log := logger.FromContext(ctx, a.logger)
	if agg.IsEmpty() {
		log.Warn("No provider returned a reading",
			zap.Int("providers_count", len(a.providers)),
			zap.Duration("elapsed", time.Since(start)),
		)
	} else {
		log.Info("Weather data collected",
			zap.Strings("sources", agg.Names()),
			zap.Int("providers_count", len(a.providers)),
			zap.Duration("elapsed", time.Since(start)),
		)
	}

	if a.metrics != nil {
		a.metrics.RecordCollect(agg.Len())
	}

	return agg
}

func (a *Aggregator) collectSequential(ctx context.Context) weather.Aggregate {
	var agg weather.Aggregate

	for i, p := range a.providers {
		if i > 0 && a.delay > 0 {
			if err := a.sleep(ctx, a.delay); err != nil {
				a.skipRemaining(a.providers[i:], err)
				break
			}
		}
		if err := ctx.Err(); err != nil {
			a.skipRemaining(a.providers[i:], err)
			break
		}

		if reading, ok := a.resolve(ctx, p); ok {
			agg.Add(p.Name(), reading)
		}
	}

	return agg
}

func (a *Aggregator) skipRemaining(rest []provider.Provider, err error) {
	names := make([]string, 0, len(rest))
	for _, p := range rest {
		names = append(names, p.Name())
	}
	a.logger.Warn("Collection deadline reached, skipping providers",
		zap.Strings("skipped", names),
		zap.Error(err),
	)
}

// resolve shields the pass from providers that panic instead of reporting failure.
func (a *Aggregator) resolve(ctx context.Context, p provider.Provider) (reading weather.Reading, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("Provider panicked", zap.String("provider", p.Name()), zap.Any("panic", r))
			a.tele.RecordError(ctx, fmt.Errorf("provider %s panicked: %v", p.Name(), r))
			reading, ok = weather.Reading{}, false
		}
	}()

	return p.Resolve(ctx)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
