package config

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Log       LogConfig       `mapstructure:"log"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Sales     SalesConfig     `mapstructure:"sales"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, console
	Output string `mapstructure:"output"` // stdout, stderr, or file path
}

type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
	Port string `mapstructure:"port"`
}

// DatabaseConfig holds database connection settings. SQLitePath is only
// read when Driver is sqlite.
type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"` // postgres or sqlite
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"dbname"`
	SSLMode         string `mapstructure:"sslmode"`
	SQLitePath      string `mapstructure:"sqlite_path"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`  // minutes
	ConnMaxIdleTime int    `mapstructure:"conn_max_idle_time"` // minutes
	LogLevel        string `mapstructure:"log_level"`
}

// RedisConfig is used by the distributed lock and payment reference store
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns host:port
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type JWTConfig struct {
	Secret                string        `mapstructure:"secret"`
	AccessTokenExpiration time.Duration `mapstructure:"access_token_expiration"`
	Issuer                string        `mapstructure:"issuer"`
}

type HTTPConfig struct {
	ReadTimeout      time.Duration `mapstructure:"read_timeout"`
	WriteTimeout     time.Duration `mapstructure:"write_timeout"`
	IdleTimeout      time.Duration `mapstructure:"idle_timeout"`
	MaxHeaderBytes   int           `mapstructure:"max_header_bytes"`
	MaxBodySize      int64         `mapstructure:"max_body_size"`
	CORSAllowOrigins []string      `mapstructure:"cors_allow_origins"` // empty allows no cross-origin request
	CORSAllowMethods []string      `mapstructure:"cors_allow_methods"`
	CORSAllowHeaders []string      `mapstructure:"cors_allow_headers"`
	TrustedProxies   []string      `mapstructure:"trusted_proxies"`
}

// SalesConfig holds the shop's pricing and fulfillment policy
type SalesConfig struct {
	Currency                    string        `mapstructure:"currency"`
	TaxRate                     float64       `mapstructure:"tax_rate"`                       // fraction, e.g. 0.08
	CounterDiscountLimitPercent float64       `mapstructure:"counter_discount_limit_percent"` // largest unapproved discount
	ApproverRoles               []string      `mapstructure:"approver_roles"`
	LockBackend                 string        `mapstructure:"lock_backend"`           // memory or redis
	LockTTL                     time.Duration `mapstructure:"lock_ttl"`               // lifetime of a lock whose holder crashed
	LockWait                    time.Duration `mapstructure:"lock_wait"`              // how long a writer waits for a busy aggregate
	IdempotencyTTL              time.Duration `mapstructure:"idempotency_ttl"`        // how long a payment reference stays reserved
	OverdueSweepInterval        time.Duration `mapstructure:"overdue_sweep_interval"` // 0 disables the background sweep
}

// TelemetryConfig holds OpenTelemetry and Pyroscope settings. Empty service
// and profiling app names fall back to the application name.
type TelemetryConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	CollectorEndpoint string        `mapstructure:"collector_endpoint"` // OTLP gRPC, host:port
	SamplingRatio     float64       `mapstructure:"sampling_ratio"`
	ServiceName       string        `mapstructure:"service_name"`
	Insecure          bool          `mapstructure:"insecure"` // plaintext gRPC, development only
	MetricsEnabled    bool          `mapstructure:"metrics_enabled"`
	LogsEnabled       bool          `mapstructure:"logs_enabled"`
	DBTraceEnabled    bool          `mapstructure:"db_trace_enabled"`
	DBLogFullSQL      bool          `mapstructure:"db_log_full_sql"`
	DBSlowQueryThresh time.Duration `mapstructure:"db_slow_query_threshold"`
	ProfilingEnabled  bool          `mapstructure:"profiling_enabled"`
	ProfilingServer   string        `mapstructure:"profiling_server"`
	ProfilingAppName  string        `mapstructure:"profiling_app_name"`
}

// defaults registers every key with viper. A key must be listed here,
// even with a zero value, for its PRINTSHOP_ environment variable to be seen.
var defaults = map[string]any{
	"app.name": "printshop-backend",
	"app.env":  "development",
	"app.port": "8080",

	"database.driver":             "postgres",
	"database.host":               "localhost",
	"database.port":               5432,
	"database.user":               "postgres",
	"database.password":           "",
	"database.dbname":             "printshop",
	"database.sslmode":            "disable",
	"database.sqlite_path":        "printshop.db",
	"database.max_open_conns":     25,
	"database.max_idle_conns":     5,
	"database.conn_max_lifetime":  60,
	"database.conn_max_idle_time": 30,
	"database.log_level":          "warn",

	"redis.enabled":  false,
	"redis.host":     "localhost",
	"redis.port":     6379,
	"redis.password": "",
	"redis.db":       0,

	"jwt.secret":                  "",
	"jwt.access_token_expiration": 12 * time.Hour,
	"jwt.issuer":                  "printshop-backend",

	"log.level":  "info",
	"log.format": "console",
	"log.output": "stdout",

	"http.read_timeout":       15 * time.Second,
	"http.write_timeout":      15 * time.Second,
	"http.idle_timeout":       60 * time.Second,
	"http.max_header_bytes":   1 << 20,
	"http.max_body_size":      int64(1 << 20),
	"http.cors_allow_origins": []string{},
	"http.cors_allow_methods": []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
	"http.cors_allow_headers": []string{"Content-Type", "Authorization", "X-Request-ID"},
	"http.trusted_proxies":    []string{},

	"sales.currency":                       "USD",
	"sales.tax_rate":                       0.0,
	"sales.counter_discount_limit_percent": 10.0,
	"sales.approver_roles":                 []string{"manager", "admin"},
	"sales.lock_backend":                   "memory",
	"sales.lock_ttl":                       30 * time.Second,
	"sales.lock_wait":                      5 * time.Second,
	"sales.idempotency_ttl":                72 * time.Hour,
	"sales.overdue_sweep_interval":         time.Duration(0),

	"telemetry.enabled":                 false,
	"telemetry.collector_endpoint":      "localhost:4317",
	"telemetry.sampling_ratio":          1.0,
	"telemetry.service_name":            "",
	"telemetry.insecure":                false,
	"telemetry.metrics_enabled":         false,
	"telemetry.logs_enabled":            false,
	"telemetry.db_trace_enabled":        false,
	"telemetry.db_log_full_sql":         false,
	"telemetry.db_slow_query_threshold": 200 * time.Millisecond,
	"telemetry.profiling_enabled":       false,
	"telemetry.profiling_server":        "http://localhost:4040",
	"telemetry.profiling_app_name":      "",
}

// Load reads configuration. Later sources win:
//  1. built-in defaults
//  2. config.toml in ., ./config or /app
//  3. PRINTSHOP_ environment variables, e.g. PRINTSHOP_DATABASE_PASSWORD
func Load() (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/app")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("PRINTSHOP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error decoding config: %w", err)
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = cfg.App.Name
	}
	if cfg.Telemetry.ProfilingAppName == "" {
		cfg.Telemetry.ProfilingAppName = cfg.App.Name
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// validate reports every violated rule at once
func (c *Config) validate() error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	db := c.Database
	if db.Driver != "postgres" && db.Driver != "sqlite" {
		fail("database.driver must be postgres or sqlite, got %q", db.Driver)
	}
	switch {
	case db.MaxOpenConns <= 0:
		fail("database.max_open_conns must be positive")
	case db.MaxIdleConns < 0:
		fail("database.max_idle_conns cannot be negative")
	case db.MaxIdleConns > db.MaxOpenConns:
		fail("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)", db.MaxIdleConns, db.MaxOpenConns)
	}

	s := c.Sales
	if s.TaxRate < 0 || s.TaxRate >= 1 {
		fail("sales.tax_rate must be in [0, 1), got %f", s.TaxRate)
	}
	if s.CounterDiscountLimitPercent < 0 || s.CounterDiscountLimitPercent > 100 {
		fail("sales.counter_discount_limit_percent must be in [0, 100], got %f", s.CounterDiscountLimitPercent)
	}
	switch s.LockBackend {
	case "memory":
	case "redis":
		if !c.Redis.Enabled {
			fail("sales.lock_backend=redis requires redis.enabled")
		}
	default:
		fail("sales.lock_backend must be memory or redis, got %q", s.LockBackend)
	}
	if s.OverdueSweepInterval < 0 {
		fail("sales.overdue_sweep_interval cannot be negative")
	}

	if r := c.Telemetry.SamplingRatio; r < 0 || r > 1 {
		fail("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", r)
	}

	if c.App.Env == "production" {
		switch {
		case c.JWT.Secret == "":
			fail("jwt.secret is required in production")
		case len(c.JWT.Secret) < 32:
			fail("jwt.secret must be at least 32 characters in production")
		}
		if db.Driver == "postgres" {
			if db.Password == "" {
				fail("database.password is required in production")
			}
			if db.SSLMode == "disable" {
				fail("database.sslmode cannot be 'disable' in production")
			}
		}
		if slices.Contains(c.HTTP.CORSAllowOrigins, "*") {
			fail("http.cors_allow_origins cannot be '*' in production, list the origins")
		}
		if c.Telemetry.DBLogFullSQL {
			fail("telemetry.db_log_full_sql must be false in production")
		}
	}

	return errors.Join(errs...)
}

// DSN returns the connection string, with credentials escaped for postgres
func (d *DatabaseConfig) DSN() string {
	if d.Driver == "sqlite" {
		return d.SQLitePath
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:     d.DBName,
		RawQuery: url.Values{"sslmode": {d.SSLMode}}.Encode(),
	}
	return u.String()
}
