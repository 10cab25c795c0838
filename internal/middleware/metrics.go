package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/calebmorten/shiftrelief/pkg/metrics"
)

// Metrics records per-route latency. The scrape and probe endpoints are
// skipped so they do not dominate the histogram.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		if path == "/metrics" || path == "/health" {
			return
		}

		status := strconv.Itoa(c.Writer.Status())
		metrics.APILatency.WithLabelValues(c.Request.Method, path, status).Observe(time.Since(start).Seconds())
	}
}
