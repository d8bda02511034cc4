package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type HealthHandler struct {
	logger    *zap.Logger
	snapshots Snapshots
	providers []string
	startTime time.Time
}

func NewHealthHandler(logger *zap.Logger, snapshots Snapshots, providers []string) *HealthHandler {
	return &HealthHandler{
		logger:    logger,
		snapshots: snapshots,
		providers: providers,
		startTime: time.Now(),
	}
}

func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status: "alive",
		Uptime: time.Since(h.startTime).String(),
	})
}

// Readiness reports ready once the first collection pass has finished.
func (h *HealthHandler) Readiness(c *gin.Context) {
	if _, ok := h.snapshots.Latest(); !ok {
		c.JSON(http.StatusServiceUnavailable, HealthResponse{
			Status: "unavailable",
			Uptime: time.Since(h.startTime).String(),
		})
		return
	}

	c.JSON(http.StatusOK, HealthResponse{
		Status: "ready",
		Uptime: time.Since(h.startTime).String(),
	})
}

// Health is degraded while the latest pass produced no readings.
func (h *HealthHandler) Health(c *gin.Context) {
	resp := HealthResponse{
		Status:    "ok",
		Uptime:    time.Since(h.startTime).String(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Providers: h.providers,
	}

	if snap, ok := h.snapshots.Latest(); ok {
		sources := snap.Aggregate.Len()
		resp.Sources = &sources
		resp.LastRefresh = snap.CollectedAt.UTC().Format(time.RFC3339)
		if sources == 0 {
			resp.Status = "degraded"
		}
	}

	c.JSON(http.StatusOK, resp)
}
