package handler

import (
	"github.com/gin-gonic/gin"
	appsales "github.com/printshop/backend/internal/application/sales"
)

// PaymentHandler handles payment API endpoints
type PaymentHandler struct {
	BaseHandler
	paymentService *appsales.PaymentService
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(paymentService *appsales.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

// Record godoc
// @Summary      Record a payment
// @Description  Record a payment or, with a negative amount, a refund against an order, an invoice or both. A reference may be used once.
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        request body appsales.RecordPaymentRequest true "Payment"
// @Success      201 {object} dto.Response{data=appsales.PaymentResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /payments [post]
func (h *PaymentHandler) Record(c *gin.Context) {
	var req appsales.RecordPaymentRequest
	if !h.bindJSON(c, &req) {
		return
	}

	payment, err := h.paymentService.RecordPayment(c.Request.Context(), actor(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, payment)
}
