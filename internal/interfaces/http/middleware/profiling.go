package middleware

import (
	"context"
	"slices"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/printshop/backend/internal/infrastructure/telemetry"
)

// Pyroscope label names. Values come from route patterns and roles, never
// from ids, so the label sets stay small.
const (
	ProfilingLabelMethod   = "http_method"
	ProfilingLabelRoute    = "http_route"
	ProfilingLabelResource = "resource"
	ProfilingLabelRole     = "user_role"
)

// ProfilingConfig holds configuration for the profiling middleware.
type ProfilingConfig struct {
	Enabled bool
	// SkipPaths are served without labels
	SkipPaths []string
}

// DefaultProfilingConfig labels everything except the health check
func DefaultProfilingConfig() ProfilingConfig {
	return ProfilingConfig{Enabled: true, SkipPaths: []string{"/health", "/api/v1/health"}}
}

// Profiling returns profiling middleware with default configuration.
func Profiling() gin.HandlerFunc {
	return ProfilingWithConfig(DefaultProfilingConfig())
}

// ProfilingWithConfig labels the CPU samples taken while a request is served
// with its method, route, resource and caller role. It must run after the JWT
// middleware for the role label to be present.
func ProfilingWithConfig(cfg ProfilingConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !cfg.Enabled || slices.Contains(cfg.SkipPaths, c.Request.URL.Path) {
			c.Next()
			return
		}
		telemetry.WithProfilingLabels(c.Request.Context(), extractProfilingLabels(c), func(ctx context.Context) {
			c.Request = c.Request.WithContext(ctx)
			c.Next()
		})
	}
}

func extractProfilingLabels(c *gin.Context) map[string]string {
	route := c.FullPath()
	candidates := map[string]string{
		ProfilingLabelMethod:   c.Request.Method,
		ProfilingLabelRoute:    route,
		ProfilingLabelResource: resourceFromRoute(route),
		ProfilingLabelRole:     GetRole(c),
	}
	labels := make(map[string]string, len(candidates))
	for k, v := range candidates {
		if v != "" {
			labels[k] = v
		}
	}
	return labels
}

// resourceFromRoute returns the first static segment after the API prefix:
// "/api/v1/orders/:id/items" -> "orders".
func resourceFromRoute(route string) string {
	for part := range strings.SplitSeq(route, "/") {
		if part == "" || part == "api" || isVersionSegment(part) || strings.HasPrefix(part, ":") {
			continue
		}
		return part
	}
	return ""
}

// isVersionSegment matches v1, v2, V12 and so on
func isVersionSegment(segment string) bool {
	if len(segment) < 2 || (segment[0] != 'v' && segment[0] != 'V') {
		return false
	}
	_, err := strconv.ParseUint(segment[1:], 10, 32)
	return err == nil
}
