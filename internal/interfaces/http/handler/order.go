package handler

import (
	"github.com/gin-gonic/gin"
	apppricing "github.com/printshop/backend/internal/application/pricing"
	appproduction "github.com/printshop/backend/internal/application/production"
	appsales "github.com/printshop/backend/internal/application/sales"
)

// OrderHandler handles order-related API endpoints
type OrderHandler struct {
	BaseHandler
	orderService *appsales.OrderService
	jobService   *appproduction.JobService
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(orderService *appsales.OrderService, jobService *appproduction.JobService) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
		jobService:   jobService,
	}
}

// Create godoc
// @Summary      Create an order
// @Description  Create a DRAFT order. Every line is priced by the catalog's pricing rules unless it carries a justified price override.
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        request body appsales.CreateOrderRequest true "Order creation request"
// @Success      201 {object} dto.Response{data=appsales.OrderResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /orders [post]
func (h *OrderHandler) Create(c *gin.Context) {
	var req appsales.CreateOrderRequest
	if !h.bindJSON(c, &req) {
		return
	}

	order, err := h.orderService.CreateOrder(c.Request.Context(), actor(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, order)
}

// GetByID godoc
// @Summary      Get order by ID
// @Description  Retrieve an order with its items and status history
// @Tags         orders
// @Produce      json
// @Param        id path int true "Order ID"
// @Success      200 {object} dto.Response{data=appsales.OrderResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /orders/{id} [get]
func (h *OrderHandler) GetByID(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	order, err := h.orderService.GetOrder(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, order)
}

// AddItem godoc
// @Summary      Add an item to an order
// @Description  Price a line and append it to a DRAFT or PENDING_PAYMENT order
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        id path int true "Order ID"
// @Param        request body apppricing.LineInput true "Line to add"
// @Success      200 {object} dto.Response{data=appsales.OrderResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /orders/{id}/items [post]
func (h *OrderHandler) AddItem(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	var line apppricing.LineInput
	if !h.bindJSON(c, &line) {
		return
	}

	order, err := h.orderService.AddItem(c.Request.Context(), id, line)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, order)
}

// UpdateItem godoc
// @Summary      Replace an order item
// @Description  Re-price an existing line with new content
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        id path int true "Order ID"
// @Param        item_id path int true "Order item ID"
// @Param        request body apppricing.LineInput true "New line content"
// @Success      200 {object} dto.Response{data=appsales.OrderResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /orders/{id}/items/{item_id} [put]
func (h *OrderHandler) UpdateItem(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	itemID, ok := h.parseID(c, "item_id")
	if !ok {
		return
	}
	var line apppricing.LineInput
	if !h.bindJSON(c, &line) {
		return
	}

	order, err := h.orderService.UpdateItem(c.Request.Context(), id, itemID, line)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, order)
}

// RemoveItem godoc
// @Summary      Remove an order item
// @Tags         orders
// @Produce      json
// @Param        id path int true "Order ID"
// @Param        item_id path int true "Order item ID"
// @Success      200 {object} dto.Response{data=appsales.OrderResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /orders/{id}/items/{item_id} [delete]
func (h *OrderHandler) RemoveItem(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	itemID, ok := h.parseID(c, "item_id")
	if !ok {
		return
	}

	order, err := h.orderService.RemoveItem(c.Request.Context(), id, itemID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, order)
}

// ApplyDiscount godoc
// @Summary      Discount an order
// @Description  Apply an amount or percent discount. Above the counter limit without an approved request, a pending discount approval is created and returned with status 202.
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        id path int true "Order ID"
// @Param        request body appsales.ApplyDiscountRequest true "Discount request"
// @Success      200 {object} dto.Response{data=appsales.DiscountResponse}
// @Success      202 {object} dto.Response{data=appsales.DiscountResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /orders/{id}/discount [post]
func (h *OrderHandler) ApplyDiscount(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	var req appsales.ApplyDiscountRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.orderService.ApplyDiscount(c.Request.Context(), id, actor(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if result.ApprovalRequired {
		h.Accepted(c, result)
		return
	}
	h.Success(c, result)
}

// UpdateStatus godoc
// @Summary      Move an order
// @Description  Request an order status transition. The transition's checks (payment, credit, production) run with it.
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        id path int true "Order ID"
// @Param        request body appsales.UpdateOrderStatusRequest true "Target status"
// @Success      200 {object} dto.Response{data=appsales.OrderResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /orders/{id}/status [post]
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	var req appsales.UpdateOrderStatusRequest
	if !h.bindJSON(c, &req) {
		return
	}

	order, err := h.orderService.UpdateOrderStatus(c.Request.Context(), id, actor(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, order)
}

// ListJobs godoc
// @Summary      List an order's service jobs
// @Tags         orders
// @Produce      json
// @Param        id path int true "Order ID"
// @Success      200 {object} dto.Response{data=[]appproduction.JobResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /orders/{id}/jobs [get]
func (h *OrderHandler) ListJobs(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	jobs, err := h.jobService.ListOrderJobs(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, jobs)
}
