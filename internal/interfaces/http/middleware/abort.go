package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/printshop/backend/internal/infrastructure/logger"
	"github.com/printshop/backend/internal/interfaces/http/dto"
)

// abortWithError stops the chain with the standard error envelope
func abortWithError(c *gin.Context, status int, code, message string) {
	resp := dto.NewErrorResponse(code, message).
		WithRequestID(logger.RequestIDFrom(c.Request.Context()))
	c.AbortWithStatusJSON(status, resp)
}
