package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RoleConfig holds configuration for role middleware
type RoleConfig struct {
	// Logger for denied requests, optional
	Logger *zap.Logger
}

// RequireRoles creates middleware that admits callers holding any of roles
func RequireRoles(roles ...string) gin.HandlerFunc {
	return RequireRolesWithConfig(RoleConfig{}, roles...)
}

// RequireRolesWithConfig creates role middleware with custom config
func RequireRolesWithConfig(cfg RoleConfig, roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetJWTClaims(c)
		if claims == nil {
			denyRole(c, cfg, roles, "No authentication claims found")
			return
		}
		if !claims.HasAnyRole(roles...) {
			denyRole(c, cfg, roles, "Role not allowed")
			return
		}
		c.Next()
	}
}

func denyRole(c *gin.Context, cfg RoleConfig, roles []string, reason string) {
	if cfg.Logger != nil {
		fields := []zap.Field{
			zap.String("reason", reason),
			zap.Strings("required_roles", roles),
			zap.String("path", c.Request.URL.Path),
			zap.String("method", c.Request.Method),
		}
		if claims := GetJWTClaims(c); claims != nil {
			fields = append(fields, zap.Uint64("user_id", claims.UserID), zap.String("role", claims.Role))
		}
		cfg.Logger.Warn("Role check failed", fields...)
	}

	abortWithError(c, http.StatusForbidden, "FORBIDDEN", "Access denied: role not allowed")
}
