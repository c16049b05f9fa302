package logger

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const ginLoggerKey = "logger"

// statusLevel picks the access log level: 5xx is an error, 4xx a warning
func statusLevel(status int) zapcore.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return zapcore.ErrorLevel
	case status >= http.StatusBadRequest:
		return zapcore.WarnLevel
	}
	return zapcore.InfoLevel
}

// GinMiddleware writes one access log line per request. Handlers get a
// logger already tagged with method, path and request id, both through
// GetGinLogger and through the request context.
func GinMiddleware(base *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		req := c.Request

		reqLogger := base.With(zap.String("method", req.Method), zap.String("path", req.URL.Path))
		if id := RequestIDFrom(req.Context()); id != "" {
			reqLogger = reqLogger.With(zap.String("request_id", id))
		}
		c.Set(ginLoggerKey, reqLogger)
		c.Request = req.WithContext(WithContext(req.Context(), reqLogger))

		c.Next()

		status := c.Writer.Status()
		fields := make([]zap.Field, 0, 7)
		fields = append(fields,
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.Int("body_size", c.Writer.Size()),
		)
		if q := req.URL.RawQuery; q != "" {
			fields = append(fields, zap.String("query", q))
		}
		// the actor is set by the JWT middleware further down the chain
		if actor, ok := ActorFrom(c.Request.Context()); ok {
			fields = append(fields, zap.Uint64("user_id", actor.UserID))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.Strings("errors", c.Errors.Errors()))
		}
		reqLogger.Log(statusLevel(status), "HTTP Request", fields...)
	}
}

// Recovery turns a handler panic into a logged 500 with the standard error
// envelope.
func Recovery(base *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			requestID := RequestIDFrom(c.Request.Context())
			base.Error("Panic recovered",
				zap.String("request_id", requestID),
				zap.String("method", c.Request.Method),
				zap.String("path", c.Request.URL.Path),
				zap.Any("error", rec),
				zap.Stack("stacktrace"),
			)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error": gin.H{
					"code":       "INTERNAL_ERROR",
					"message":    "An internal error occurred",
					"request_id": requestID,
				},
			})
		}()
		c.Next()
	}
}

// GetGinLogger returns the request logger, or a no-op logger outside
// GinMiddleware.
func GetGinLogger(c *gin.Context) *zap.Logger {
	v, _ := c.Get(ginLoggerKey)
	if l, ok := v.(*zap.Logger); ok {
		return l
	}
	return zap.NewNop()
}
