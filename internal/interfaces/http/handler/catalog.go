package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	appcatalog "github.com/printshop/backend/internal/application/catalog"
	"github.com/printshop/backend/internal/interfaces/http/dto"
)

// CatalogHandler lists products and customers
type CatalogHandler struct {
	BaseHandler
	catalogService *appcatalog.Service
}

func NewCatalogHandler(catalogService *appcatalog.Service) *CatalogHandler {
	return &CatalogHandler{catalogService: catalogService}
}

// bindQuery decodes query parameters into req, answering 400 on failure
func (h *CatalogHandler) bindQuery(c *gin.Context, req any) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, "Invalid query: "+err.Error())
		return false
	}
	return true
}

// ListProducts godoc
// @Summary      List products
// @Tags         catalog
// @Produce      json
// @Param        type query string false "inventory, service or dimension"
// @Param        is_active query bool false "Active products only"
// @Param        sku query string false "Exact SKU"
// @Param        page query int false "Page, from 1"
// @Param        page_size query int false "Page size, at most 100"
// @Param        order_by query string false "sku, name, type or created_at"
// @Param        order_dir query string false "asc or desc"
// @Success      200 {object} dto.Response{data=shared.Page[appcatalog.ProductResponse]}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /products [get]
func (h *CatalogHandler) ListProducts(c *gin.Context) {
	var req appcatalog.ProductListFilter
	if !h.bindQuery(c, &req) {
		return
	}

	page, err := h.catalogService.ListProducts(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, page)
}

// ListCustomers godoc
// @Summary      List customers
// @Description  Customers with their credit limit, balance and period
// @Tags         catalog
// @Produce      json
// @Param        type query string false "walk_in, regular or credit"
// @Param        is_active query bool false "Active customers only"
// @Param        page query int false "Page, from 1"
// @Param        page_size query int false "Page size, at most 100"
// @Param        order_by query string false "name, type or created_at"
// @Param        order_dir query string false "asc or desc"
// @Success      200 {object} dto.Response{data=shared.Page[appcatalog.CustomerResponse]}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /customers [get]
func (h *CatalogHandler) ListCustomers(c *gin.Context) {
	var req appcatalog.CustomerListFilter
	if !h.bindQuery(c, &req) {
		return
	}

	page, err := h.catalogService.ListCustomers(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, page)
}
