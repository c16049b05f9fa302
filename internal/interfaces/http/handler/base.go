package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/printshop/backend/internal/domain/shared"
	"github.com/printshop/backend/internal/infrastructure/logger"
	"github.com/printshop/backend/internal/interfaces/http/dto"
	"github.com/printshop/backend/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// getRequestID returns the id the request-id middleware assigned
func getRequestID(c *gin.Context) string {
	return logger.RequestIDFrom(c.Request.Context())
}

// actor returns the authenticated caller
func actor(c *gin.Context) shared.UserID {
	return middleware.GetActor(c)
}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// Accepted sends a 202 response, used when the request is parked for approval
func (h *BaseHandler) Accepted(c *gin.Context, data any) {
	c.JSON(http.StatusAccepted, dto.NewSuccessResponse(data))
}

// Error sends an error response with the appropriate status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponse(code, message).WithRequestID(getRequestID(c)))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// InternalError sends a 500 internal server error response
func (h *BaseHandler) InternalError(c *gin.Context, message string) {
	h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, message)
}

// HandleError converts service errors to HTTP responses. Domain errors keep
// their code and details; anything else is logged and answered with a 500.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)

	if domainErr, ok := shared.AsDomainError(err); ok {
		resp := dto.FromDomainError(domainErr).WithRequestID(getRequestID(c))
		c.JSON(dto.StatusForKind(domainErr.Kind), resp)
		return
	}

	logger.FromContext(c.Request.Context()).Error("Request failed",
		zap.String("handler", c.HandlerName()),
		zap.Error(err),
	)
	h.InternalError(c, "An unexpected error occurred")
}

// bindJSON decodes the request body into req, answering 400 on failure.
// Field rules are checked by the services.
func (h *BaseHandler) bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidJSON, "Invalid request body: "+err.Error())
		return false
	}
	return true
}

// parseID reads a positive integer path parameter, answering 400 on failure
func (h *BaseHandler) parseID(c *gin.Context, param string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(param), 10, 64)
	if err != nil || id == 0 {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidID, "Invalid "+param)
		return 0, false
	}
	return id, true
}
