package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vzahanych/weather-report/internal/config"
	"github.com/vzahanych/weather-report/internal/metrics"
	"github.com/vzahanych/weather-report/internal/report"
	"github.com/vzahanych/weather-report/internal/scheduler"
	"github.com/vzahanych/weather-report/internal/server/handlers"
	"github.com/vzahanych/weather-report/internal/weather"
	"go.uber.org/zap/zaptest"
)

type stubCollector struct {
	temps []float64
	calls atomic.Int32
}

func (c *stubCollector) Collect(ctx context.Context) weather.Aggregate {
	c.calls.Add(1)

	var agg weather.Aggregate
	if ctx.Err() != nil {
		return agg
	}
	for i, temp := range c.temps {
		name := []string{"Open-Meteo", "wttr.in", "WeatherAPI"}[i]
		agg.Add(name, weather.Reading{
			Temperature: temp,
			FeelsLike:   temp,
			Description: "Clear sky",
			Source:      name,
			City:        "Vilnius",
		})
	}
	return agg
}

func newTestServer(t *testing.T, temps ...float64) (*Server, *stubCollector, *metrics.Metrics) {
	t.Helper()

	collector := &stubCollector{temps: temps}
	refresher := scheduler.New(collector, 0, zaptest.NewLogger(t))
	m := metrics.New()

	s := NewServer(config.NewDefaultConfig().Server, refresher,
		[]string{"Open-Meteo", "wttr.in", "WeatherAPI"}, m, zaptest.NewLogger(t), nil)
	return s, collector, m
}

func do(t *testing.T, s *Server, target string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestWeatherEndpoint(t *testing.T) {
	s, collector, _ := newTestServer(t, 10, 20, 30)

	rec := do(t, s, "/weather", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var doc report.Document
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Equal(t, "Vilnius", doc.City)
	assert.Equal(t, 3, doc.SuccessfulSources)
	require.NotNil(t, doc.AverageTemperature)
	assert.Equal(t, 20.0, *doc.AverageTemperature)
	assert.Equal(t, "Open-Meteo", doc.Sources[0].Provider)

	do(t, s, "/weather", nil)
	assert.Equal(t, int32(1), collector.calls.Load(), "second request is served from the snapshot")

	do(t, s, "/weather?refresh=true", nil)
	assert.Equal(t, int32(2), collector.calls.Load())
}

func TestCancelledRefreshKeepsSnapshot(t *testing.T) {
	s, collector, _ := newTestServer(t, 10, 20, 30)

	require.Equal(t, http.StatusOK, do(t, s, "/weather", nil).Code)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodGet, "/weather?refresh=true", nil).WithContext(ctx)
	s.Handler().ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, int32(2), collector.calls.Load())

	var doc report.Document
	require.NoError(t, json.Unmarshal(do(t, s, "/weather", nil).Body.Bytes(), &doc))
	assert.Equal(t, 3, doc.SuccessfulSources)

	var health handlers.HealthResponse
	require.NoError(t, json.Unmarshal(do(t, s, "/health", nil).Body.Bytes(), &health))
	assert.Equal(t, "ok", health.Status)
}

func TestWeatherEndpointBadQuery(t *testing.T) {
	s, collector, _ := newTestServer(t, 10)

	rec := do(t, s, "/weather?refresh=maybe", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body handlers.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "INVALID_PARAMS", body.Code)
	assert.Equal(t, int32(0), collector.calls.Load())
}

func TestReportEndpoint(t *testing.T) {
	s, _, _ := newTestServer(t, 10, 20, 30)

	rec := do(t, s, "/report", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "Vilnius REPORT\n"))
	assert.Contains(t, rec.Body.String(), "Average Temperature: 20.0°C\n")
	assert.Contains(t, rec.Body.String(), "Successful sources: 3\n")
}

func TestReportEndpointNoData(t *testing.T) {
	s, _, _ := newTestServer(t)

	rec := do(t, s, "/report", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, report.NoData, rec.Body.String())
}

func TestHealthEndpoints(t *testing.T) {
	s, _, _ := newTestServer(t)

	assert.Equal(t, http.StatusOK, do(t, s, "/health/live", nil).Code)
	assert.Equal(t, http.StatusServiceUnavailable, do(t, s, "/health/ready", nil).Code)

	var health handlers.HealthResponse
	require.NoError(t, json.Unmarshal(do(t, s, "/health", nil).Body.Bytes(), &health))
	assert.Equal(t, "ok", health.Status)
	assert.Nil(t, health.Sources)
	assert.Len(t, health.Providers, 3)

	do(t, s, "/weather", nil)

	assert.Equal(t, http.StatusOK, do(t, s, "/health/ready", nil).Code)
	require.NoError(t, json.Unmarshal(do(t, s, "/health", nil).Body.Bytes(), &health))
	assert.Equal(t, "degraded", health.Status)
	require.NotNil(t, health.Sources)
	assert.Equal(t, 0, *health.Sources)
}

func TestRequestID(t *testing.T) {
	s, _, _ := newTestServer(t)

	rec := do(t, s, "/health/live", nil)
	_, err := uuid.Parse(rec.Header().Get("X-Request-ID"))
	assert.NoError(t, err)

	rec = do(t, s, "/health/live", http.Header{"X-Request-Id": {"abc-123"}})
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))

	rec = do(t, s, "/health/live", http.Header{"X-Request-Id": {"bad id with spaces"}})
	assert.NotEqual(t, "bad id with spaces", rec.Header().Get("X-Request-ID"))

	rec = do(t, s, "/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestMetricsEndpoint(t *testing.T) {
	s, _, m := newTestServer(t, 10)
	m.RecordResolve("Open-Meteo", metrics.OutcomeSuccess, 0)

	do(t, s, "/weather", nil)

	rec := do(t, s, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, `weather_provider_resolves_total{outcome="success",provider="Open-Meteo"} 1`)
	assert.Contains(t, body, `http_requests_total{method="GET",route="/weather",status="200"} 1`)
}

func TestShutdownWithoutStart(t *testing.T) {
	s, _, _ := newTestServer(t)
	assert.NoError(t, s.Shutdown(context.Background()))
}
