package persistence

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/printshop/backend/internal/domain/approval"
	"github.com/printshop/backend/internal/domain/catalog"
	"github.com/printshop/backend/internal/domain/numbering"
	"github.com/printshop/backend/internal/domain/partner"
	"github.com/printshop/backend/internal/domain/production"
	"github.com/printshop/backend/internal/domain/sales"
	"github.com/printshop/backend/internal/infrastructure/config"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Database is an open GORM connection together with its pool
type Database struct {
	DB  *gorm.DB
	sql *sql.DB
}

// Option customises how the connection is opened
type Option func(*gorm.Config, *[]gorm.Plugin)

// WithLogger sets the GORM logger
func WithLogger(l logger.Interface) Option {
	return func(c *gorm.Config, _ *[]gorm.Plugin) { c.Logger = l }
}

// WithPlugins registers GORM plugins, such as query tracing
func WithPlugins(plugins ...gorm.Plugin) Option {
	return func(_ *gorm.Config, p *[]gorm.Plugin) { *p = append(*p, plugins...) }
}

// driver knows how to open one database kind and size its pool
type driver struct {
	dialector func(dsn string) gorm.Dialector
	pool      func(db *sql.DB, cfg *config.DatabaseConfig)
	// schema is created from the model tags instead of SQL migrations
	autoMigrate bool
}

var drivers = map[string]driver{
	"postgres": {
		dialector: postgres.Open,
		pool: func(db *sql.DB, cfg *config.DatabaseConfig) {
			db.SetMaxOpenConns(cfg.MaxOpenConns)
			db.SetMaxIdleConns(cfg.MaxIdleConns)
			db.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Minute)
			db.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTime) * time.Minute)
		},
	},
	"sqlite": {
		dialector: sqlite.Open,
		// one writer at a time; an in-memory database also lives on a single connection
		pool:        func(db *sql.DB, _ *config.DatabaseConfig) { db.SetMaxOpenConns(1) },
		autoMigrate: true,
	},
}

// NewDatabase opens the configured database, sizes the pool and verifies
// the connection. SQLite databases get their schema on open.
func NewDatabase(cfg *config.DatabaseConfig, opts ...Option) (*Database, error) {
	name := cfg.Driver
	if name == "" {
		name = "postgres"
	}
	drv, ok := drivers[name]
	if !ok {
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	gormCfg := &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
		TranslateError:         true,
	}
	var plugins []gorm.Plugin
	for _, opt := range opts {
		opt(gormCfg, &plugins)
	}

	db, err := gorm.Open(drv.dialector(cfg.DSN()), gormCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	for _, p := range plugins {
		if err := db.Use(p); err != nil {
			return nil, fmt.Errorf("failed to register gorm plugin %s: %w", p.Name(), err)
		}
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	drv.pool(sqlDB, cfg)
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if drv.autoMigrate {
		if err := AutoMigrate(db); err != nil {
			_ = sqlDB.Close()
			return nil, err
		}
	}
	return &Database{DB: db, sql: sqlDB}, nil
}

// Models lists every persisted type
func Models() []any {
	return []any{
		&partner.Customer{},
		&catalog.Product{},
		&catalog.PricingRule{},
		&sales.Order{},
		&sales.OrderItem{},
		&sales.OrderStatusHistory{},
		&sales.Invoice{},
		&sales.Payment{},
		&sales.Quotation{},
		&sales.QuotationItem{},
		&production.ServiceJob{},
		&production.StatusHistory{},
		&production.Comment{},
		&approval.Request{},
		&numbering.Sequence{},
	}
}

// AutoMigrate creates the schema from the model tags. Postgres deployments
// use the SQL migrations instead.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// SQL exposes the connection pool, for pool metrics
func (d *Database) SQL() *sql.DB { return d.sql }

func (d *Database) Close() error { return d.sql.Close() }

// Ping checks the database is reachable. It satisfies the health check.
func (d *Database) Ping() error { return d.sql.Ping() }

// Stats reports the pool statistics
func (d *Database) Stats() sql.DBStats { return d.sql.Stats() }
