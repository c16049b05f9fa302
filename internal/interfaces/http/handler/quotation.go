package handler

import (
	"github.com/gin-gonic/gin"
	appsales "github.com/printshop/backend/internal/application/sales"
)

// QuotationHandler handles quotation API endpoints
type QuotationHandler struct {
	BaseHandler
	quotationService *appsales.QuotationService
}

// NewQuotationHandler creates a new QuotationHandler
func NewQuotationHandler(quotationService *appsales.QuotationService) *QuotationHandler {
	return &QuotationHandler{quotationService: quotationService}
}

// Create godoc
// @Summary      Create a quotation
// @Description  Create a draft quotation priced by the catalog's pricing rules
// @Tags         quotations
// @Accept       json
// @Produce      json
// @Param        request body appsales.CreateQuotationRequest true "Quotation"
// @Success      201 {object} dto.Response{data=appsales.QuotationResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /quotations [post]
func (h *QuotationHandler) Create(c *gin.Context) {
	var req appsales.CreateQuotationRequest
	if !h.bindJSON(c, &req) {
		return
	}

	quotation, err := h.quotationService.CreateQuotation(c.Request.Context(), actor(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, quotation)
}

// GetByID godoc
// @Summary      Get quotation by ID
// @Tags         quotations
// @Produce      json
// @Param        id path int true "Quotation ID"
// @Success      200 {object} dto.Response{data=appsales.QuotationResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /quotations/{id} [get]
func (h *QuotationHandler) GetByID(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	quotation, err := h.quotationService.GetQuotation(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, quotation)
}

// UpdateStatus godoc
// @Summary      Move a quotation
// @Description  Send, accept, reject or expire a quotation
// @Tags         quotations
// @Accept       json
// @Produce      json
// @Param        id path int true "Quotation ID"
// @Param        request body appsales.UpdateQuotationStatusRequest true "Target status"
// @Success      200 {object} dto.Response{data=appsales.QuotationResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /quotations/{id}/status [post]
func (h *QuotationHandler) UpdateStatus(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	var req appsales.UpdateQuotationStatusRequest
	if !h.bindJSON(c, &req) {
		return
	}

	quotation, err := h.quotationService.UpdateStatus(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, quotation)
}

// Convert godoc
// @Summary      Convert a quotation into an order
// @Description  Create a DRAFT order from a convertible quotation, carrying its lines and discount
// @Tags         quotations
// @Accept       json
// @Produce      json
// @Param        id path int true "Quotation ID"
// @Param        request body appsales.ConvertQuotationRequest false "Conversion options"
// @Success      201 {object} dto.Response{data=appsales.OrderResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /quotations/{id}/convert [post]
func (h *QuotationHandler) Convert(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	var req appsales.ConvertQuotationRequest
	if c.Request.ContentLength != 0 && !h.bindJSON(c, &req) {
		return
	}

	order, err := h.quotationService.ConvertQuotation(c.Request.Context(), id, actor(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, order)
}
