package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/printshop/backend/internal/infrastructure/auth"
	"github.com/stretchr/testify/assert"
)

func TestResourceFromRoute(t *testing.T) {
	tests := []struct {
		route string
		want  string
	}{
		{"/api/v1/orders/:id/items", "orders"},
		{"/api/v1/pricing/calculate", "pricing"},
		{"/api/v2/jobs/:id", "jobs"},
		{"/health", "health"},
		{"", ""},
		{"/api/v1/:id", ""},
	}
	for _, tt := range tests {
		t.Run(tt.route, func(t *testing.T) {
			assert.Equal(t, tt.want, resourceFromRoute(tt.route))
		})
	}
}

func TestIsVersionSegment(t *testing.T) {
	assert.True(t, isVersionSegment("v1"))
	assert.True(t, isVersionSegment("V12"))
	assert.False(t, isVersionSegment("v"))
	assert.False(t, isVersionSegment("vip"))
	assert.False(t, isVersionSegment("orders"))
}

func TestExtractProfilingLabels(t *testing.T) {
	var labels map[string]string
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(JWTClaimsKey, &auth.Claims{UserID: 7, Role: "clerk"})
		c.Next()
	})
	router.POST("/api/v1/orders/:id/discount", func(c *gin.Context) {
		labels = extractProfilingLabels(c)
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/orders/5/discount", nil))

	assert.Equal(t, map[string]string{
		ProfilingLabelMethod:   http.MethodPost,
		ProfilingLabelRoute:    "/api/v1/orders/:id/discount",
		ProfilingLabelResource: "orders",
		ProfilingLabelRole:     "clerk",
	}, labels)
}

func TestProfilingWithConfig_PassesThrough(t *testing.T) {
	tests := []struct {
		name string
		cfg  ProfilingConfig
		path string
	}{
		{"disabled", ProfilingConfig{Enabled: false}, "/api/v1/orders/1"},
		{"enabled", DefaultProfilingConfig(), "/api/v1/orders/1"},
		{"skipped path", DefaultProfilingConfig(), "/health"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			router := gin.New()
			router.Use(ProfilingWithConfig(tt.cfg))
			router.GET("/api/v1/orders/:id", func(c *gin.Context) {
				called = true
				c.Status(http.StatusOK)
			})
			router.GET("/health", func(c *gin.Context) {
				called = true
				c.Status(http.StatusOK)
			})

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.True(t, called)
			assert.Equal(t, http.StatusOK, w.Code)
		})
	}
}
