package metrics

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for provider resolves.
const (
	OutcomeSuccess = "success"
)

// Metrics owns a private registry so several instances (one per test) never collide.
// All methods are safe on a nil receiver.
type Metrics struct {
	registry *prometheus.Registry

	resolves        *prometheus.CounterVec
	resolveDuration *prometheus.HistogramVec
	cacheRequests   *prometheus.CounterVec
	cacheHitRatio   *prometheus.GaugeVec
	sources         prometheus.Gauge
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec

	mu        sync.Mutex
	cacheHits map[string]float64
	cacheAll  map[string]float64
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		resolves: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "weather_provider_resolves_total",
				Help: "Provider resolve attempts by outcome (success or failure kind)",
			},
			[]string{"provider", "outcome"},
		),
		resolveDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "weather_provider_resolve_duration_seconds",
				Help:    "Time spent resolving one provider, retries included",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"provider"},
		),
		cacheRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "weather_cache_requests_total",
				Help: "Cache lookups by backend and result",
			},
			[]string{"backend", "result"},
		),
		cacheHitRatio: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "weather_cache_hit_ratio",
				Help: "Cache hit ratio (hits/total lookups)",
			},
			[]string{"backend"},
		),
		sources: factory.NewGauge(prometheus.GaugeOpts{
			Name: "weather_aggregate_sources",
			Help: "Number of providers that produced a reading in the last collection",
		}),
		httpRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		httpDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		cacheHits: make(map[string]float64),
		cacheAll:  make(map[string]float64),
	}
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) RecordCacheHit(ctx context.Context, backend string) {
	m.recordCache(backend, true)
}

func (m *Metrics) RecordCacheMiss(ctx context.Context, backend string) {
	m.recordCache(backend, false)
}

func (m *Metrics) recordCache(backend string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheRequests.WithLabelValues(backend, result).Inc()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.cacheAll[backend]++
	if hit {
		m.cacheHits[backend]++
	}
	m.cacheHitRatio.WithLabelValues(backend).Set(m.cacheHits[backend] / m.cacheAll[backend])
}

// RecordResolve records one provider resolve. outcome is OutcomeSuccess or a failure kind.
func (m *Metrics) RecordResolve(provider, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.resolves.WithLabelValues(provider, outcome).Inc()
	m.resolveDuration.WithLabelValues(provider).Observe(d.Seconds())
}

func (m *Metrics) RecordCollect(sources int) {
	if m == nil {
		return
	}
	m.sources.Set(float64(sources))
}

func (m *Metrics) RecordHTTPRequest(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
