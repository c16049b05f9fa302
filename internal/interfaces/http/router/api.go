package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	appapproval "github.com/printshop/backend/internal/application/approval"
	appcatalog "github.com/printshop/backend/internal/application/catalog"
	apppricing "github.com/printshop/backend/internal/application/pricing"
	appproduction "github.com/printshop/backend/internal/application/production"
	appsales "github.com/printshop/backend/internal/application/sales"
	"github.com/printshop/backend/internal/infrastructure/config"
	"github.com/printshop/backend/internal/infrastructure/logger"
	"github.com/printshop/backend/internal/interfaces/http/dto"
	"github.com/printshop/backend/internal/interfaces/http/handler"
	"github.com/printshop/backend/internal/interfaces/http/middleware"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// Services holds the application services the API exposes
type Services struct {
	Orders     *appsales.OrderService
	Payments   *appsales.PaymentService
	Invoices   *appsales.InvoiceService
	Quotations *appsales.QuotationService
	Jobs       *appproduction.JobService
	Pricing    *apppricing.Service
	Approvals  *appapproval.Service
	Catalog    *appcatalog.Service
}

// Handlers holds one HTTP handler per resource
type Handlers struct {
	Orders     *handler.OrderHandler
	Payments   *handler.PaymentHandler
	Invoices   *handler.InvoiceHandler
	Quotations *handler.QuotationHandler
	Jobs       *handler.JobHandler
	Pricing    *handler.PricingHandler
	Approvals  *handler.ApprovalHandler
	Catalog    *handler.CatalogHandler
	System     *handler.SystemHandler
}

// NewHandlers builds the resource handlers over services
func NewHandlers(s Services, system *handler.SystemHandler) Handlers {
	return Handlers{
		Orders:     handler.NewOrderHandler(s.Orders, s.Jobs),
		Payments:   handler.NewPaymentHandler(s.Payments),
		Invoices:   handler.NewInvoiceHandler(s.Invoices),
		Quotations: handler.NewQuotationHandler(s.Quotations),
		Jobs:       handler.NewJobHandler(s.Jobs),
		Pricing:    handler.NewPricingHandler(s.Pricing),
		Approvals:  handler.NewApprovalHandler(s.Approvals),
		Catalog:    handler.NewCatalogHandler(s.Catalog),
		System:     system,
	}
}

// EngineConfig configures NewEngine
type EngineConfig struct {
	HTTP        config.HTTPConfig
	Logger      *zap.Logger
	ServiceName string
	// Tracing enables the otelgin middleware
	Tracing bool
	// Meter records HTTP metrics; nil disables them
	Meter metric.Meter
	// Profiling attaches pyroscope labels to API requests
	Profiling bool
	Validator middleware.TokenValidator
	// OperatorRoles may run shop-wide operations such as the overdue sweep
	OperatorRoles []string
	Handlers      Handlers
}

// NewEngine builds the gin engine with the full middleware stack and every
// API route registered.
func NewEngine(cfg EngineConfig) *gin.Engine {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// RequestID runs first so every later middleware logs with the request id.
	engine.Use(middleware.RequestID(log))
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
		ServiceName: cfg.ServiceName,
		Enabled:     cfg.Tracing,
	}))
	engine.Use(middleware.HTTPMetrics(cfg.Meter, log))
	engine.Use(middleware.Secure())
	engine.Use(middleware.CORS(cfg.HTTP))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, dto.NewErrorResponse(dto.ErrCodeRouteNotFound, "Route not found").
			WithRequestID(logger.RequestIDFrom(c.Request.Context())))
	})

	h := cfg.Handlers
	engine.GET("/health", h.System.Health)

	r := NewRouter(engine, WithAPIVersion("v1"))
	r.Use(middleware.JWTAuthMiddlewareWithConfig(middleware.JWTMiddlewareConfig{
		Validator: cfg.Validator,
		SkipPaths: []string{"/api/v1/health", "/api/v1/system/info"},
		Logger:    log,
	}))
	r.Use(middleware.TracingAttributeInjector())
	if cfg.Profiling {
		r.Use(middleware.Profiling())
	}

	for _, group := range apiGroups(h, middleware.RequireRolesWithConfig(middleware.RoleConfig{Logger: log}, cfg.OperatorRoles...)) {
		r.Register(group)
		log.Debug("API routes declared", zap.String("group", group.Name()), zap.Strings("routes", group.Endpoints()))
	}
	r.Setup()

	return engine
}

func apiGroups(h Handlers, operatorOnly gin.HandlerFunc) []*DomainGroup {
	system := NewDomainGroup("system", "")
	system.GET("/health", h.System.Health).
		GET("/system/info", h.System.GetSystemInfo)

	orders := NewDomainGroup("orders", "/orders")
	orders.POST("", h.Orders.Create).
		GET("/:id", h.Orders.GetByID).
		POST("/:id/items", h.Orders.AddItem).
		PUT("/:id/items/:item_id", h.Orders.UpdateItem).
		DELETE("/:id/items/:item_id", h.Orders.RemoveItem).
		POST("/:id/discount", h.Orders.ApplyDiscount).
		POST("/:id/status", h.Orders.UpdateStatus).
		GET("/:id/jobs", h.Orders.ListJobs)

	payments := NewDomainGroup("payments", "/payments")
	payments.POST("", h.Payments.Record)

	invoices := NewDomainGroup("invoices", "/invoices")
	invoices.POST("", h.Invoices.Create).
		POST("/mark-overdue", operatorOnly, h.Invoices.MarkOverdue).
		GET("/:id", h.Invoices.GetByID).
		POST("/:id/overrides", h.Invoices.OverrideItem).
		POST("/:id/issue", h.Invoices.Issue).
		POST("/:id/dispute", h.Invoices.Dispute)

	quotations := NewDomainGroup("quotations", "/quotations")
	quotations.POST("", h.Quotations.Create).
		GET("/:id", h.Quotations.GetByID).
		POST("/:id/status", h.Quotations.UpdateStatus).
		POST("/:id/convert", h.Quotations.Convert)

	jobs := NewDomainGroup("jobs", "/jobs")
	jobs.GET("/:id", h.Jobs.GetByID).
		POST("/:id/assign", h.Jobs.Assign).
		POST("/:id/status", h.Jobs.UpdateStatus).
		POST("/:id/comments", h.Jobs.AddComment)

	pricing := NewDomainGroup("pricing", "/pricing")
	pricing.POST("/calculate", h.Pricing.Calculate)

	approvals := NewDomainGroup("approvals", "/approvals")
	approvals.POST("", h.Approvals.Request).
		GET("/:id", h.Approvals.GetByID).
		POST("/:id/resolve", h.Approvals.Resolve)

	catalog := NewDomainGroup("catalog", "")
	catalog.GET("/products", h.Catalog.ListProducts).
		GET("/customers", h.Catalog.ListCustomers)

	return []*DomainGroup{system, orders, payments, invoices, quotations, jobs, pricing, approvals, catalog}
}
