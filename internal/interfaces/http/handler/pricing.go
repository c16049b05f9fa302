package handler

import (
	"github.com/gin-gonic/gin"
	apppricing "github.com/printshop/backend/internal/application/pricing"
)

// PricingHandler exposes the price calculator
type PricingHandler struct {
	BaseHandler
	pricingService *apppricing.Service
}

// NewPricingHandler creates a new PricingHandler
func NewPricingHandler(pricingService *apppricing.Service) *PricingHandler {
	return &PricingHandler{pricingService: pricingService}
}

// Calculate godoc
// @Summary      Price a line
// @Description  Quote one line for an optional customer without storing anything. The response names the rule that produced the price.
// @Tags         pricing
// @Accept       json
// @Produce      json
// @Param        request body apppricing.CalculatePriceRequest true "Line to price"
// @Success      200 {object} dto.Response{data=apppricing.PriceResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /pricing/calculate [post]
func (h *PricingHandler) Calculate(c *gin.Context) {
	var req apppricing.CalculatePriceRequest
	if !h.bindJSON(c, &req) {
		return
	}

	price, err := h.pricingService.CalculatePrice(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, price)
}
