package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"github.com/vzahanych/weather-report/internal/config"
	"github.com/vzahanych/weather-report/internal/httpclient"
	"github.com/vzahanych/weather-report/internal/weather"
	"github.com/vzahanych/weather-report/pkg/logger"
	"github.com/vzahanych/weather-report/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Provider yields one reading per call, or nothing. Implementations never
// return errors: every failure is logged and reported as ok == false.
type Provider interface {
	Name() string
	Resolve(ctx context.Context) (weather.Reading, bool)
}

// Adapter is the provider-specific half of a Provider: how to ask and how to
// read the answer.
type Adapter interface {
	Name() string
	Request() (rawURL string, params map[string]string)
	Parse(payload httpclient.Payload) (weather.Reading, error)
}

type Fetcher interface {
	Fetch(ctx context.Context, rawURL string, params map[string]string) (httpclient.Payload, error)
}

type MetricsRecorder interface {
	RecordResolve(provider, outcome string, d time.Duration)
}

const (
	outcomeSuccess = "success"
	outcomePanic   = "panic"
)

// Source turns an Adapter into a Provider by running it through the shared
// fetch path: circuit breaker, cache, HTTP client.
type Source struct {
	adapter Adapter
	fetcher Fetcher
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
	tele    *telemetry.Telemetry
	metrics MetricsRecorder
}

type SourceOption func(*Source)

func WithLogger(logger *zap.Logger) SourceOption {
	return func(s *Source) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithTelemetry(tele *telemetry.Telemetry) SourceOption {
	return func(s *Source) {
		s.tele = tele
	}
}

func WithMetrics(m MetricsRecorder) SourceOption {
	return func(s *Source) {
		s.metrics = m
	}
}

// WithBreaker trips the source open after cfg.MaxFailures consecutive fetch
// failures. While open, Resolve fails fast without touching the network.
func WithBreaker(cfg config.BreakerConfig) SourceOption {
	return func(s *Source) {
		if !cfg.Enabled {
			s.breaker = nil
			return
		}
		maxFailures := cfg.MaxFailures
		if maxFailures == 0 {
			maxFailures = 1
		}
		s.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        s.adapter.Name(),
			MaxRequests: 1,
			Timeout:     cfg.OpenTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= maxFailures
			},
			OnStateChange: func(_ string, from, to gobreaker.State) {
				s.logger.Info("Circuit breaker state changed",
					zap.String("from", from.String()),
					zap.String("to", to.String()),
				)
			},
		})
	}
}

func NewSource(adapter Adapter, fetcher Fetcher, opts ...SourceOption) *Source {
	s := &Source{
		adapter: adapter,
		fetcher: fetcher,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(zap.String("provider", adapter.Name()))
	return s
}

func (s *Source) Name() string {
	return s.adapter.Name()
}

func (s *Source) Resolve(ctx context.Context) (reading weather.Reading, ok bool) {
	start := time.Now()
	ctx, span := s.tele.StartSpan(ctx, "provider.Resolve", attribute.String("provider", s.Name()))
	defer span.End()

	log := logger.FromContext(ctx, s.logger)

	defer func() {
		if r := recover(); r != nil {
			log.Error("Provider panicked", zap.Any("panic", r))
			s.tele.RecordError(ctx, fmt.Errorf("provider panic: %v", r))
			s.record(outcomePanic, start)
			reading, ok = weather.Reading{}, false
		}
	}()

	reading, err := s.resolve(ctx)
	if err != nil {
		kind := weather.KindOf(err)
		log.Warn("Provider returned no reading",
			zap.String("kind", kind.String()),
			zap.Error(err),
		)
		s.tele.RecordError(ctx, err, attribute.String("kind", kind.String()))
		s.record(kind.String(), start)
		return weather.Reading{}, false
	}

	log.Debug("Provider resolved",
		zap.Float64("temperature", reading.Temperature),
		zap.String("description", reading.Description),
	)
	s.record(outcomeSuccess, start)
	return reading, true
}

func (s *Source) resolve(ctx context.Context) (weather.Reading, error) {
	rawURL, params := s.adapter.Request()

	payload, err := s.fetch(ctx, rawURL, params)
	if err != nil {
		return weather.Reading{}, err
	}

	reading, err := s.adapter.Parse(payload)
	if err != nil {
		return weather.Reading{}, err
	}

	if err := reading.Validate(); err != nil {
		return weather.Reading{}, weather.NewError(weather.KindMalformedResponse, "incomplete reading", err)
	}

	return reading, nil
}

func (s *Source) fetch(ctx context.Context, rawURL string, params map[string]string) (httpclient.Payload, error) {
	if s.breaker == nil {
		return s.fetcher.Fetch(ctx, rawURL, params)
	}

	result, err := s.breaker.Execute(func() (interface{}, error) {
		return s.fetcher.Fetch(ctx, rawURL, params)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, weather.NewError(weather.KindTransportFailure, "circuit breaker open", err)
		}
		return nil, err
	}

	payload, ok := result.(httpclient.Payload)
	if !ok {
		return nil, weather.Errorf(weather.KindMalformedResponse, "unexpected fetch result %T", result)
	}
	return payload, nil
}

func (s *Source) record(outcome string, start time.Time) {
	if s.metrics != nil {
		s.metrics.RecordResolve(s.Name(), outcome, time.Since(start))
	}
}

// FromConfig builds the enabled providers in their canonical order:
// Open-Meteo, wttr.in, WeatherAPI.
func FromConfig(cfg *config.Config, fetcher Fetcher, opts ...SourceOption) []Provider {
	var adapters []Adapter
	if cfg.Providers.OpenMeteo.Enabled {
		adapters = append(adapters, NewOpenMeteo(cfg.Providers.OpenMeteo, cfg.Location))
	}
	if cfg.Providers.Wttr.Enabled {
		adapters = append(adapters, NewWttr(cfg.Providers.Wttr, cfg.Location))
	}
	if cfg.Providers.WeatherAPI.Enabled {
		adapters = append(adapters, NewWeatherAPI(cfg.Providers.WeatherAPI, cfg.Location))
	}

	opts = append([]SourceOption{WithBreaker(cfg.Breaker)}, opts...)

	providers := make([]Provider, 0, len(adapters))
	for _, a := range adapters {
		providers = append(providers, NewSource(a, fetcher, opts...))
	}
	return providers
}
