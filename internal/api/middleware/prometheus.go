package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"paymentgw/internal/telemetry"
)

// Prometheus records per-request latency/count/in-flight metrics.
func Prometheus() gin.HandlerFunc {
	return func(c *gin.Context) {
		telemetry.HTTPRequestsInFlight.Inc()
		defer telemetry.HTTPRequestsInFlight.Dec()

		start := time.Now()
		c.Next()
		duration := time.Since(start)

		path := c.FullPath()
		if path == "" {
			path = "unknown"
		}
		status := strconv.Itoa(c.Writer.Status())
		telemetry.RecordHTTPRequest(c.Request.Method, path, status, duration)
	}
}
