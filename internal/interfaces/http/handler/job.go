package handler

import (
	"github.com/gin-gonic/gin"
	appproduction "github.com/printshop/backend/internal/application/production"
)

// JobHandler handles service job API endpoints
type JobHandler struct {
	BaseHandler
	jobService *appproduction.JobService
}

// NewJobHandler creates a new JobHandler
func NewJobHandler(jobService *appproduction.JobService) *JobHandler {
	return &JobHandler{jobService: jobService}
}

// GetByID godoc
// @Summary      Get service job by ID
// @Description  Retrieve a service job with its status history and comments
// @Tags         jobs
// @Produce      json
// @Param        id path int true "Service job ID"
// @Success      200 {object} dto.Response{data=appproduction.JobResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /jobs/{id} [get]
func (h *JobHandler) GetByID(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	job, err := h.jobService.GetServiceJob(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, job)
}

// Assign godoc
// @Summary      Assign a service job
// @Description  Hand a job to a user. An ACCEPTED job becomes ASSIGNED; reassigning a started job leaves a comment.
// @Tags         jobs
// @Accept       json
// @Produce      json
// @Param        id path int true "Service job ID"
// @Param        request body appproduction.AssignJobRequest true "Assignee"
// @Success      200 {object} dto.Response{data=appproduction.JobResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /jobs/{id}/assign [post]
func (h *JobHandler) Assign(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	var req appproduction.AssignJobRequest
	if !h.bindJSON(c, &req) {
		return
	}

	job, err := h.jobService.AssignServiceJob(c.Request.Context(), id, actor(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, job)
}

// UpdateStatus godoc
// @Summary      Move a service job
// @Description  Request a job status transition. Completing the order's last open job moves the order to READY.
// @Tags         jobs
// @Accept       json
// @Produce      json
// @Param        id path int true "Service job ID"
// @Param        request body appproduction.UpdateJobStatusRequest true "Target status"
// @Success      200 {object} dto.Response{data=appproduction.JobResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /jobs/{id}/status [post]
func (h *JobHandler) UpdateStatus(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	var req appproduction.UpdateJobStatusRequest
	if !h.bindJSON(c, &req) {
		return
	}

	job, err := h.jobService.UpdateServiceJobStatus(c.Request.Context(), id, actor(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, job)
}

// AddComment godoc
// @Summary      Comment on a service job
// @Tags         jobs
// @Accept       json
// @Produce      json
// @Param        id path int true "Service job ID"
// @Param        request body appproduction.AddCommentRequest true "Comment"
// @Success      201 {object} dto.Response{data=appproduction.CommentResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /jobs/{id}/comments [post]
func (h *JobHandler) AddComment(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	var req appproduction.AddCommentRequest
	if !h.bindJSON(c, &req) {
		return
	}

	comment, err := h.jobService.AddComment(c.Request.Context(), id, actor(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, comment)
}
