package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/andikafs/marketpulse-go/internal/metrics"
)

// RequestMetrics returns middleware that records a counter and timing metric
// for every request. The route pattern is used instead of the raw path so
// parameterized routes aggregate under one endpoint tag.
func RequestMetrics(collector *metrics.Collector) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		userID, _ := UserID(c)
		collector.RecordAPIRequestMetrics(c.Request.Method, endpoint, c.Writer.Status(), time.Since(start), userID)
	}
}
