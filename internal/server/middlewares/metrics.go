package middlewares

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const unmatchedRoute = "unmatched"

// HTTPRecorder receives one observation per finished request.
type HTTPRecorder interface {
	RecordHTTPRequest(method, route string, status int, d time.Duration)
}

// MetricsMiddleware labels requests by route template rather than raw path to
// keep label cardinality bounded.
func MetricsMiddleware(logger *zap.Logger, recorder HTTPRecorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}

		d := time.Since(start)
		if recorder != nil {
			recorder.RecordHTTPRequest(c.Request.Method, route, c.Writer.Status(), d)
		}

		logger.Debug("HTTP metrics recorded",
			zap.String("method", c.Request.Method),
			zap.String("route", route),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", d),
		)
	}
}
