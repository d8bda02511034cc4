package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type MetricsHandler struct {
	handler http.Handler
}

// NewMetricsHandler exposes registry in the Prometheus text format.
func NewMetricsHandler(logger *zap.Logger, registry *prometheus.Registry) *MetricsHandler {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	return &MetricsHandler{
		handler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{
			ErrorLog:      zap.NewStdLog(logger),
			ErrorHandling: promhttp.ContinueOnError,
		}),
	}
}

func (h *MetricsHandler) ServeMetrics(c *gin.Context) {
	h.handler.ServeHTTP(c.Writer, c.Request)
}
