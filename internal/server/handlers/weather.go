package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/vzahanych/weather-report/internal/report"
	"github.com/vzahanych/weather-report/internal/scheduler"
	"github.com/vzahanych/weather-report/internal/server/utils"
	"go.uber.org/zap"
)

type WeatherHandler struct {
	snapshots Snapshots
	formatter *report.Formatter
	logger    *zap.Logger
}

func NewWeatherHandler(snapshots Snapshots, formatter *report.Formatter, logger *zap.Logger) *WeatherHandler {
	return &WeatherHandler{
		snapshots: snapshots,
		formatter: formatter,
		logger:    logger,
	}
}

// GetWeather serves the aggregate as JSON. An empty aggregate is still a 200:
// total provider failure is a valid result, not a server error.
func (h *WeatherHandler) GetWeather(c *gin.Context) {
	snap, ok := h.snapshot(c)
	if !ok {
		return
	}

	doc := h.formatter.Document(snap.Aggregate)
	doc.GeneratedAt = snap.CollectedAt.UTC()

	c.JSON(http.StatusOK, doc)
}

// GetReport serves the same data as the CLI's text report.
func (h *WeatherHandler) GetReport(c *gin.Context) {
	snap, ok := h.snapshot(c)
	if !ok {
		return
	}

	formatter := report.NewFormatter(report.WithClock(func() time.Time { return snap.CollectedAt }))
	c.String(http.StatusOK, formatter.Format(snap.Aggregate))
}

func (h *WeatherHandler) snapshot(c *gin.Context) (scheduler.Snapshot, bool) {
	ctx := utils.GetContextFromGinContext(c)
	reqLogger := utils.RequestLogger(c, h.logger)

	var query WeatherQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		reqLogger.Warn("Invalid request parameters", zap.Error(err))
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request parameters",
			Code:    "INVALID_PARAMS",
			Details: err.Error(),
		})
		return scheduler.Snapshot{}, false
	}

	var snap scheduler.Snapshot
	if query.Refresh {
		reqLogger.Info("Forced weather refresh requested")
		snap = h.snapshots.Refresh(ctx)
	} else {
		snap = h.snapshots.Current(ctx)
	}

	reqLogger.Debug("Serving weather snapshot",
		zap.Int("sources", snap.Aggregate.Len()),
		zap.Time("collected_at", snap.CollectedAt),
	)
	return snap, true
}
