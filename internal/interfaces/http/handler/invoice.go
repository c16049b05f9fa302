package handler

import (
	"github.com/gin-gonic/gin"
	appsales "github.com/printshop/backend/internal/application/sales"
)

// InvoiceHandler handles invoice API endpoints
type InvoiceHandler struct {
	BaseHandler
	invoiceService *appsales.InvoiceService
}

// NewInvoiceHandler creates a new InvoiceHandler
func NewInvoiceHandler(invoiceService *appsales.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{invoiceService: invoiceService}
}

// Create godoc
// @Summary      Invoice an order
// @Description  Create a draft invoice that snapshots the order's lines, optionally with per-line price overrides
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        request body appsales.CreateInvoiceRequest true "Invoice"
// @Success      201 {object} dto.Response{data=appsales.InvoiceResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /invoices [post]
func (h *InvoiceHandler) Create(c *gin.Context) {
	var req appsales.CreateInvoiceRequest
	if !h.bindJSON(c, &req) {
		return
	}

	invoice, err := h.invoiceService.CreateFromOrder(c.Request.Context(), actor(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, invoice)
}

// GetByID godoc
// @Summary      Get invoice by ID
// @Tags         invoices
// @Produce      json
// @Param        id path int true "Invoice ID"
// @Success      200 {object} dto.Response{data=appsales.InvoiceResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /invoices/{id} [get]
func (h *InvoiceHandler) GetByID(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	invoice, err := h.invoiceService.GetInvoice(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, invoice)
}

// OverrideItem godoc
// @Summary      Override an invoice line price
// @Description  Set a justified unit price for one line of a draft invoice
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        id path int true "Invoice ID"
// @Param        request body appsales.ItemOverrideInput true "Line override"
// @Success      200 {object} dto.Response{data=appsales.InvoiceResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /invoices/{id}/overrides [post]
func (h *InvoiceHandler) OverrideItem(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	var req appsales.ItemOverrideInput
	if !h.bindJSON(c, &req) {
		return
	}

	invoice, err := h.invoiceService.OverrideItem(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, invoice)
}

// Issue godoc
// @Summary      Issue an invoice
// @Description  Issue a draft invoice. The due date follows the customer's credit period.
// @Tags         invoices
// @Produce      json
// @Param        id path int true "Invoice ID"
// @Success      200 {object} dto.Response{data=appsales.InvoiceResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /invoices/{id}/issue [post]
func (h *InvoiceHandler) Issue(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	invoice, err := h.invoiceService.Issue(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, invoice)
}

// Dispute godoc
// @Summary      Dispute an invoice
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        id path int true "Invoice ID"
// @Param        request body appsales.DisputeInvoiceRequest true "Dispute reason"
// @Success      200 {object} dto.Response{data=appsales.InvoiceResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /invoices/{id}/dispute [post]
func (h *InvoiceHandler) Dispute(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	var req appsales.DisputeInvoiceRequest
	if !h.bindJSON(c, &req) {
		return
	}

	invoice, err := h.invoiceService.Dispute(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, invoice)
}

// MarkOverdue godoc
// @Summary      Run the overdue sweep
// @Description  Mark every issued or partially paid invoice past its due date as overdue. Managers and admins only.
// @Tags         invoices
// @Produce      json
// @Success      200 {object} dto.Response{data=CountData}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /invoices/mark-overdue [post]
func (h *InvoiceHandler) MarkOverdue(c *gin.Context) {
	n, err := h.invoiceService.MarkOverdue(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, CountData{Count: n})
}
