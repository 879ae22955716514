package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/navid-fn/mandi/internal/metrics"
)

// PrometheusMetrics records request count and latency per route template.
func PrometheusMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		method := c.Request.Method
		metrics.APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(c.Writer.Status())).Inc()
		metrics.APIRequestDuration.WithLabelValues(method, endpoint).Observe(time.Since(start).Seconds())
	}
}
