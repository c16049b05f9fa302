package middleware

import (
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/printshop/backend/internal/domain/shared"
	"github.com/printshop/backend/internal/infrastructure/auth"
	"github.com/printshop/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// JWT context keys
const (
	JWTClaimsKey  = "jwt_claims"
	AuthHeaderKey = "Authorization"
	BearerPrefix  = "Bearer "
)

// TokenValidator verifies bearer tokens. *auth.JWTService implements it.
type TokenValidator interface {
	ValidateAccessToken(token string) (*auth.Claims, error)
}

// JWTMiddlewareConfig holds configuration for JWT middleware
type JWTMiddlewareConfig struct {
	Validator TokenValidator
	// SkipPaths are served without a token
	SkipPaths []string
	// Logger receives rejected attempts when set
	Logger *zap.Logger
}

// DefaultJWTConfig leaves the health and system info endpoints open
func DefaultJWTConfig(validator TokenValidator) JWTMiddlewareConfig {
	return JWTMiddlewareConfig{
		Validator: validator,
		SkipPaths: []string{"/health", "/api/v1/health", "/api/v1/system/info"},
	}
}

// JWTAuthMiddleware creates JWT authentication middleware
func JWTAuthMiddleware(validator TokenValidator) gin.HandlerFunc {
	return JWTAuthMiddlewareWithConfig(DefaultJWTConfig(validator))
}

// JWTAuthMiddlewareWithConfig verifies the bearer token and stores the caller
// in the gin context and, for logging, in the request context.
func JWTAuthMiddlewareWithConfig(cfg JWTMiddlewareConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if slices.Contains(cfg.SkipPaths, c.Request.URL.Path) {
			c.Next()
			return
		}

		token, reason := bearerToken(c.GetHeader(AuthHeaderKey))
		if reason != "" {
			rejectToken(c, cfg.Logger, auth.ErrInvalidToken, reason)
			return
		}
		claims, err := cfg.Validator.ValidateAccessToken(token)
		if err != nil {
			rejectToken(c, cfg.Logger, err, "Token validation failed")
			return
		}

		c.Set(JWTClaimsKey, claims)
		ctx := c.Request.Context()
		ctx, _ = logger.WithActor(ctx, logger.FromContext(ctx), logger.Actor{UserID: claims.UserID, Role: claims.Role})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// bearerToken extracts the token from an Authorization header. A non-empty
// reason explains why there is none.
func bearerToken(header string) (token, reason string) {
	switch {
	case header == "":
		return "", "Missing authorization header"
	case !strings.HasPrefix(header, BearerPrefix):
		return "", "Invalid authorization header format"
	}
	if token = strings.TrimSpace(header[len(BearerPrefix):]); token == "" {
		return "", "Missing token"
	}
	return token, ""
}

// authFailures maps validation errors to the code and message returned;
// anything unlisted is a plain UNAUTHORIZED.
var authFailures = []struct {
	errs    []error
	code    string
	message string
}{
	{[]error{auth.ErrExpiredToken}, "TOKEN_EXPIRED", "Token has expired"},
	{[]error{auth.ErrTokenNotYetValid}, "TOKEN_NOT_VALID", "Token is not yet valid"},
	{[]error{auth.ErrInvalidToken, auth.ErrInvalidClaims, auth.ErrMissingUserID, auth.ErrMissingRole}, "INVALID_TOKEN", "Invalid token"},
}

func rejectToken(c *gin.Context, log *zap.Logger, err error, reason string) {
	if log != nil {
		log.Warn("JWT authentication failed",
			zap.Error(err),
			zap.String("reason", reason),
			zap.String("path", c.Request.URL.Path),
		)
	}

	code, message := "UNAUTHORIZED", "Authentication required"
	for _, f := range authFailures {
		if slices.ContainsFunc(f.errs, func(target error) bool { return errors.Is(err, target) }) {
			code, message = f.code, f.message
			break
		}
	}
	abortWithError(c, http.StatusUnauthorized, code, message)
}

// GetJWTClaims returns the verified claims, or nil on an open route
func GetJWTClaims(c *gin.Context) *auth.Claims {
	v, _ := c.Get(JWTClaimsKey)
	claims, _ := v.(*auth.Claims)
	return claims
}

// GetActor returns the authenticated caller's user reference, or 0 without one.
func GetActor(c *gin.Context) shared.UserID {
	if claims := GetJWTClaims(c); claims != nil {
		return claims.Actor()
	}
	return 0
}

// GetRole returns the authenticated caller's role, or "" without one.
func GetRole(c *gin.Context) string {
	if claims := GetJWTClaims(c); claims != nil {
		return claims.Role
	}
	return ""
}
