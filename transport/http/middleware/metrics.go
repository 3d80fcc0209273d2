package middleware

import (
	"strconv"
	"time"

	"github.com/dshaw/letl-go/internal/metrics"
	"github.com/gin-gonic/gin"
)

// Metrics records request latency and counts, labeled by the matched
// route rather than the raw path, so unmatched wildcard segments don't
// explode cardinality.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := strconv.Itoa(c.Writer.Status())
		path := c.FullPath()
		if path == "" {
			path = "unknown"
		}
		method := c.Request.Method
		duration := time.Since(start).Seconds()

		metrics.HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration)
		metrics.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	}
}
