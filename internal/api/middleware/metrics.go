package middleware

import (
	"time"

	"github.com/Conceptual-Machines/aideas-relay/internal/metrics"
	"github.com/gin-gonic/gin"
)

const unmatchedRoute = "unmatched"

// PrometheusMetrics records request count and latency per route
func PrometheusMetrics(collector *metrics.Collector) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		// Route templates keep label cardinality bounded
		path := c.FullPath()
		if path == "" {
			path = unmatchedRoute
		}
		collector.ObserveHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}
