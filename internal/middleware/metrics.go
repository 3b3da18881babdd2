package middleware

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/sma-timetable-api/internal/service"
)

const unmatchedRoute = "unmatched"

// Metrics records request latency per route template and copies the response meta of solve
// endpoints onto the active span.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		elapsed := time.Since(start)

		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		if meta := ExtractMeta(c); len(meta) > 0 {
			span := trace.SpanFromContext(c.Request.Context())
			for k, v := range meta {
				span.SetAttributes(attribute.String("timetable."+k, fmt.Sprint(v)))
			}
		}
		if metricsSvc != nil {
			metricsSvc.ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), elapsed)
		}
	}
}
