package handler

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/printshop/backend/internal/infrastructure/logger"
	"github.com/printshop/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping() error
}

// Database states reported by the health check
const (
	dbUnchecked = "unchecked"
	dbOK        = "ok"
	dbError     = "error"
)

// SystemHandler serves the unauthenticated health and build endpoints
type SystemHandler struct {
	BaseHandler
	name    string
	version string
	db      Pinger
	started time.Time
}

// NewSystemHandler creates a SystemHandler. Without a db the health check
// reports the database as unchecked.
func NewSystemHandler(name, version string, db Pinger) *SystemHandler {
	return &SystemHandler{name: name, version: version, db: db, started: time.Now()}
}

// SystemInfoResponse represents the system information response
// @name HandlerSystemInfoResponse
type SystemInfoResponse struct {
	Name      string `json:"name" example:"printshop-backend"`
	Version   string `json:"version" example:"1.0.0"`
	GoVersion string `json:"go_version" example:"go1.25.5"`
	StartedAt string `json:"started_at" example:"2026-01-23T10:29:15Z"`
	Uptime    string `json:"uptime" example:"1h30m45s"`
}

// HealthResponse represents the health check response
// @name HandlerHealthResponse
type HealthResponse struct {
	Status   string `json:"status" example:"healthy"`
	Time     string `json:"time" example:"2026-01-23T12:00:00Z"`
	Database string `json:"database" example:"ok"`
}

// GetSystemInfo godoc
// @ID           getSystemSystemInfo
// @Summary      Get system information
// @Description  Returns the service name, build version and uptime
// @Tags         system
// @Produce      json
// @Success      200 {object} APIResponse[SystemInfoResponse]
// @Router       /system/info [get]
func (h *SystemHandler) GetSystemInfo(c *gin.Context) {
	h.Success(c, SystemInfoResponse{
		Name:      h.name,
		Version:   h.version,
		GoVersion: runtime.Version(),
		StartedAt: h.started.UTC().Format(time.RFC3339),
		Uptime:    time.Since(h.started).Round(time.Second).String(),
	})
}

// Health godoc
// @ID           getSystemHealth
// @Summary      Health check
// @Description  Reports whether the service and its database are reachable
// @Tags         system
// @Produce      json
// @Success      200 {object} APIResponse[HealthResponse]
// @Failure      503 {object} APIResponse[HealthResponse]
// @Router       /health [get]
func (h *SystemHandler) Health(c *gin.Context) {
	resp := HealthResponse{
		Status:   "healthy",
		Time:     time.Now().UTC().Format(time.RFC3339),
		Database: h.pingDatabase(c),
	}
	if resp.Database == dbError {
		resp.Status = "unhealthy"
		c.JSON(http.StatusServiceUnavailable, dto.Response{Success: false, Data: resp})
		return
	}
	h.Success(c, resp)
}

func (h *SystemHandler) pingDatabase(c *gin.Context) string {
	if h.db == nil {
		return dbUnchecked
	}
	if err := h.db.Ping(); err != nil {
		logger.FromContext(c.Request.Context()).Warn("Health check failed", zap.Error(err))
		return dbError
	}
	return dbOK
}
