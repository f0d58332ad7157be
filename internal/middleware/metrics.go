package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academic-registrar-api/internal/service"
)

// unmatchedRoute labels requests gin could not route, keeping raw paths out
// of the label set.
const unmatchedRoute = "unmatched"

// Metrics records latency, count and in-flight requests per route template.
// Paths in skip (typically the scrape endpoint) are not observed.
func Metrics(metrics *service.MetricsService, skip ...string) gin.HandlerFunc {
	skipped := make(map[string]struct{}, len(skip))
	for _, p := range skip {
		skipped[p] = struct{}{}
	}

	return func(c *gin.Context) {
		if metrics == nil {
			c.Next()
			return
		}
		if _, ok := skipped[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		done := metrics.TrackInFlight()
		start := time.Now()
		c.Next()
		done()

		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		metrics.ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
