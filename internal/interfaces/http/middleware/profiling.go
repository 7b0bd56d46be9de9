package middleware

import (
	"context"
	"slices"

	"github.com/gin-gonic/gin"
	"github.com/printdesk/backend/internal/infrastructure/telemetry"
)

// Profiling labels CPU profiles with the method and route of the request
// being served. Unmatched routes and skipped paths run unlabelled.
func Profiling(skipPaths ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" || slices.Contains(skipPaths, route) {
			c.Next()
			return
		}
		telemetry.WithRouteLabels(c.Request.Context(), c.Request.Method, route, func(ctx context.Context) {
			c.Request = c.Request.WithContext(ctx)
			c.Next()
		})
	}
}
