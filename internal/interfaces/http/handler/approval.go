package handler

import (
	"github.com/gin-gonic/gin"
	appapproval "github.com/printshop/backend/internal/application/approval"
	"github.com/printshop/backend/internal/interfaces/http/middleware"
)

// ApprovalHandler handles approval request API endpoints
type ApprovalHandler struct {
	BaseHandler
	approvalService *appapproval.Service
}

// NewApprovalHandler creates a new ApprovalHandler
func NewApprovalHandler(approvalService *appapproval.Service) *ApprovalHandler {
	return &ApprovalHandler{approvalService: approvalService}
}

// Request godoc
// @Summary      Request an approval
// @Description  File a discount, credit override or cancel override request for a manager to resolve
// @Tags         approvals
// @Accept       json
// @Produce      json
// @Param        request body appapproval.RequestApprovalRequest true "Approval request"
// @Success      201 {object} dto.Response{data=appsales.ApprovalResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /approvals [post]
func (h *ApprovalHandler) Request(c *gin.Context) {
	var req appapproval.RequestApprovalRequest
	if !h.bindJSON(c, &req) {
		return
	}

	request, err := h.approvalService.RequestApproval(c.Request.Context(), actor(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, request)
}

// GetByID godoc
// @Summary      Get approval request by ID
// @Tags         approvals
// @Produce      json
// @Param        id path int true "Approval request ID"
// @Success      200 {object} dto.Response{data=appsales.ApprovalResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /approvals/{id} [get]
func (h *ApprovalHandler) GetByID(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	request, err := h.approvalService.GetApproval(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, request)
}

// Resolve godoc
// @Summary      Resolve an approval request
// @Description  Approve or reject a pending request. The caller's role must be an approver role and the caller must not be the requester.
// @Tags         approvals
// @Accept       json
// @Produce      json
// @Param        id path int true "Approval request ID"
// @Param        request body appapproval.ResolveApprovalRequest true "Decision"
// @Success      200 {object} dto.Response{data=appsales.ApprovalResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /approvals/{id}/resolve [post]
func (h *ApprovalHandler) Resolve(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	var req appapproval.ResolveApprovalRequest
	if !h.bindJSON(c, &req) {
		return
	}

	request, err := h.approvalService.ResolveApproval(c.Request.Context(), id, actor(c), middleware.GetRole(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, request)
}
