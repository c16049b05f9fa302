package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	appapproval "github.com/printshop/backend/internal/application/approval"
	appcatalog "github.com/printshop/backend/internal/application/catalog"
	apppricing "github.com/printshop/backend/internal/application/pricing"
	appproduction "github.com/printshop/backend/internal/application/production"
	appsales "github.com/printshop/backend/internal/application/sales"
	"github.com/printshop/backend/internal/application/transaction"
	"github.com/printshop/backend/internal/domain/credit"
	domainpricing "github.com/printshop/backend/internal/domain/pricing"
	"github.com/printshop/backend/internal/infrastructure/auth"
	"github.com/printshop/backend/internal/infrastructure/cache"
	"github.com/printshop/backend/internal/infrastructure/config"
	"github.com/printshop/backend/internal/infrastructure/event"
	"github.com/printshop/backend/internal/infrastructure/logger"
	"github.com/printshop/backend/internal/infrastructure/persistence"
	"github.com/printshop/backend/internal/infrastructure/scheduler"
	"github.com/printshop/backend/internal/infrastructure/telemetry"
	"github.com/printshop/backend/internal/interfaces/http/handler"
	"github.com/printshop/backend/internal/interfaces/http/router"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const logTimeFormat = "2006-01-02T15:04:05.000Z07:00"

func main() {
	// A missing .env is fine; real deployments set the environment directly
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	logCfg := &logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: logTimeFormat,
	}
	log, err := logger.New(logCfg)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	providers, err := telemetry.Setup(context.Background(), cfg.Telemetry, cfg.App.Env, log)
	if err != nil {
		log.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := providers.Shutdown(ctx); err != nil {
			log.Error("Error shutting down telemetry", zap.Error(err))
		}
	}()

	// Tee log entries to the collector once the OTEL log provider is up
	if providers.Logs.IsEnabled() {
		teed, err := logger.New(logCfg, providers.Logs.ZapCore(logger.ParseLevel(cfg.Log.Level)))
		if err != nil {
			log.Fatal("Failed to attach OTEL log core", zap.Error(err))
		}
		log = teed
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting print shop backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", telemetry.Version),
		zap.Bool("tracing", providers.Tracer.IsEnabled()),
		zap.Bool("metrics", providers.Meter.IsEnabled()),
		zap.Bool("profiling", providers.Profiler.IsEnabled()),
		zap.Bool("span_profiles", providers.Tracer.IsSpanProfilesEnabled()),
	)

	db := openDatabase(cfg, log)
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()

	meter := providers.Meter.Meter(cfg.Telemetry.ServiceName)
	if _, err := telemetry.RegisterDBPoolMetrics(meter, db.SQL()); err != nil {
		log.Warn("Failed to register database pool metrics", zap.Error(err))
	}
	businessMetrics, err := telemetry.NewBusinessMetrics(meter)
	if err != nil {
		log.Fatal("Failed to create business metrics", zap.Error(err))
	}

	// Redis backs locks and payment references when enabled; otherwise both
	// stay in process, which only suits a single instance.
	factory := cache.NewFactory(cfg.Redis, cfg.Sales,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(cfg.App.Env != "production"),
	)
	defer func() {
		if err := factory.Close(); err != nil {
			log.Error("Error closing cache factory", zap.Error(err))
		}
	}()
	locker, err := factory.CreateLocker()
	if err != nil {
		log.Fatal("Failed to create locker", zap.Error(err))
	}
	references, err := factory.CreateIdempotencyStore()
	if err != nil {
		log.Fatal("Failed to create payment reference store", zap.Error(err))
	}

	eventBus := event.NewInMemoryEventBus(log)
	eventBus.Subscribe(event.NewAuditLogHandler(log))
	eventBus.Subscribe(event.NewMetricsHandler(businessMetrics))
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := eventBus.Stop(ctx); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	runner := transaction.NewRunner(persistence.NewGormTransactionScope(db.DB), locker, eventBus, log)

	policy := appsales.Policy{
		TaxRate:                     decimal.NewFromFloat(cfg.Sales.TaxRate),
		CounterDiscountLimitPercent: decimal.NewFromFloat(cfg.Sales.CounterDiscountLimitPercent),
	}
	pricer := apppricing.NewService(runner, domainpricing.NewResolver())
	services := router.Services{
		Orders:     appsales.NewOrderService(runner, pricer, credit.NewGuard(), policy),
		Payments:   appsales.NewPaymentService(runner, references, cfg.Sales.IdempotencyTTL),
		Invoices:   appsales.NewInvoiceService(runner),
		Quotations: appsales.NewQuotationService(runner, pricer, policy),
		Jobs:       appproduction.NewJobService(runner),
		Pricing:    pricer,
		Approvals:  appapproval.NewService(runner, cfg.Sales.ApproverRoles),
		Catalog:    appcatalog.NewService(runner),
	}

	if sweeper := startOverdueSweep(cfg.Sales.OverdueSweepInterval, services.Invoices, businessMetrics, log); sweeper != nil {
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := sweeper.Stop(ctx); err != nil {
				log.Error("Error stopping overdue sweep", zap.Error(err))
			}
		}()
	}

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := router.NewEngine(router.EngineConfig{
		HTTP:          cfg.HTTP,
		Logger:        log,
		ServiceName:   cfg.Telemetry.ServiceName,
		Tracing:       providers.Tracer.IsEnabled(),
		Meter:         meter,
		Profiling:     providers.Profiler.IsEnabled(),
		Validator:     auth.NewJWTService(cfg.JWT),
		OperatorRoles: cfg.Sales.ApproverRoles,
		Handlers:      router.NewHandlers(services, handler.NewSystemHandler(cfg.App.Name, telemetry.Version, db)),
	})

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// openDatabase connects with a zap-backed GORM logger and, when enabled, the
// otelgorm tracing plugin.
func openDatabase(cfg *config.Config, log *zap.Logger) *persistence.Database {
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh))

	var plugins []gorm.Plugin
	if cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled {
		plugins = append(plugins, telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
			Enabled:         true,
			LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
			SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
			DBSystem:        "postgresql",
		}, log))
	}

	db, err := persistence.NewDatabase(&cfg.Database,
		persistence.WithLogger(gormLog),
		persistence.WithPlugins(plugins...),
	)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	log.Info("Database connected successfully")
	return db
}

// startOverdueSweep runs InvoiceService.MarkOverdue on interval. A zero
// interval leaves the sweep to operators calling the API.
func startOverdueSweep(interval time.Duration, invoices *appsales.InvoiceService, bm *telemetry.BusinessMetrics, log *zap.Logger) *scheduler.Scheduler {
	if interval <= 0 {
		log.Info("Overdue invoice sweep disabled")
		return nil
	}

	schedCfg := scheduler.DefaultConfig()
	schedCfg.Interval = interval
	if schedCfg.RunTimeout > interval {
		schedCfg.RunTimeout = interval
	}

	sweeper, err := scheduler.New(schedCfg, scheduler.TaskFunc{
		TaskName: "invoice_overdue_sweep",
		Fn:       invoices.MarkOverdue,
	}, log)
	if err != nil {
		log.Fatal("Failed to create overdue sweep", zap.Error(err))
	}
	sweeper.OnResult = func(ctx context.Context, r scheduler.RunResult) {
		if r.Err == nil {
			bm.RecordInvoicesOverdue(ctx, r.Count)
		}
	}
	if err := sweeper.Start(context.Background()); err != nil {
		log.Fatal("Failed to start overdue sweep", zap.Error(err))
	}
	log.Info("Overdue invoice sweep started", zap.Duration("interval", interval))
	return sweeper
}
