package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/vzahanych/weather-report/internal/config"
	"github.com/vzahanych/weather-report/internal/metrics"
	"github.com/vzahanych/weather-report/internal/report"
	"github.com/vzahanych/weather-report/internal/server/handlers"
	"github.com/vzahanych/weather-report/internal/server/middlewares"
	"github.com/vzahanych/weather-report/pkg/telemetry"
	"go.uber.org/zap"
)

type Server struct {
	engine    *gin.Engine
	server    *http.Server
	snapshots handlers.Snapshots
	providers []string
	metrics   *metrics.Metrics
	logger    *zap.Logger
	tele      *telemetry.Telemetry
}

func NewServer(
	cfg config.ServerConfig,
	snapshots handlers.Snapshots,
	providers []string,
	m *metrics.Metrics,
	logger *zap.Logger,
	tele *telemetry.Telemetry,
) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	engine.Use(middlewares.RequestIDMiddleware(logger))
	engine.Use(middlewares.LoggingMiddleware(logger, "/metrics", "/health/live", "/health/ready"))
	engine.Use(middlewares.RecoveryMiddleware(logger, true))
	engine.Use(middlewares.TelemetryMiddleware(logger, tele))
	engine.Use(middlewares.MetricsMiddleware(logger, m))

	s := &Server{
		engine:    engine,
		snapshots: snapshots,
		providers: providers,
		metrics:   m,
		logger:    logger,
		tele:      tele,
	}

	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      engine,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	weather := handlers.NewWeatherHandler(s.snapshots, report.NewFormatter(), s.logger)
	s.engine.GET("/weather", weather.GetWeather)
	s.engine.GET("/report", weather.GetReport)

	// Health endpoints (Kubernetes friendly)
	health := handlers.NewHealthHandler(s.logger, s.snapshots, s.providers)
	s.engine.GET("/health", health.Health)
	s.engine.GET("/health/live", health.Liveness)
	s.engine.GET("/health/ready", health.Readiness)

	s.engine.GET("/metrics", handlers.NewMetricsHandler(s.logger, s.metrics.Registry()).ServeMetrics)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start blocks until the server stops. A graceful Shutdown is not an error.
func (s *Server) Start() error {
	s.logger.Info("Starting server", zap.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	return s.server.Shutdown(ctx)
}
