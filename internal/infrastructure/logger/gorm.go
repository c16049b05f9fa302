package logger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/gorm/utils"
)

const defaultSlowQuery = 200 * time.Millisecond

// GormLogger routes GORM output into zap. Every statement carries the
// request id and trace id found on its context, so a slow order query can
// be matched to the HTTP request that issued it.
type GormLogger struct {
	logger        *zap.Logger
	logLevel      gormlogger.LogLevel
	slowThreshold time.Duration
	logNotFound   bool
}

// GormLoggerOption configures a GormLogger
type GormLoggerOption func(*GormLogger)

// WithSlowThreshold sets the slow query threshold. Zero turns slow query
// warnings off.
func WithSlowThreshold(threshold time.Duration) GormLoggerOption {
	return func(l *GormLogger) { l.slowThreshold = threshold }
}

// WithIgnoreRecordNotFoundError controls whether gorm.ErrRecordNotFound is
// logged as a SQL error. Lookups of missing orders are routine, so it is
// ignored unless turned off here.
func WithIgnoreRecordNotFoundError(ignore bool) GormLoggerOption {
	return func(l *GormLogger) { l.logNotFound = !ignore }
}

func NewGormLogger(zapLogger *zap.Logger, level gormlogger.LogLevel, opts ...GormLoggerOption) *GormLogger {
	gl := &GormLogger{
		logger:        zapLogger.Named("gorm"),
		logLevel:      level,
		slowThreshold: defaultSlowQuery,
	}
	for _, opt := range opts {
		opt(gl)
	}
	return gl
}

func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.logLevel = level
	return &clone
}

func (l *GormLogger) Info(ctx context.Context, msg string, data ...any) {
	l.printf(ctx, gormlogger.Info, zapcore.InfoLevel, msg, data)
}

func (l *GormLogger) Warn(ctx context.Context, msg string, data ...any) {
	l.printf(ctx, gormlogger.Warn, zapcore.WarnLevel, msg, data)
}

func (l *GormLogger) Error(ctx context.Context, msg string, data ...any) {
	l.printf(ctx, gormlogger.Error, zapcore.ErrorLevel, msg, data)
}

func (l *GormLogger) printf(ctx context.Context, atLeast gormlogger.LogLevel, lvl zapcore.Level, msg string, data []any) {
	if l.logLevel < atLeast {
		return
	}
	l.logger.Log(lvl, fmt.Sprintf(msg, data...), contextFields(ctx)...)
}

// Trace logs one executed statement. Errors win over slowness, and plain
// queries are only written when the level is Info.
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if l.logLevel <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	var (
		msg   string
		lvl   zapcore.Level
		extra zap.Field
	)
	switch {
	case err != nil && l.logLevel >= gormlogger.Error:
		if errors.Is(err, gormlogger.ErrRecordNotFound) && !l.logNotFound {
			return
		}
		msg, lvl, extra = "SQL Error", zapcore.ErrorLevel, zap.Error(err)
	case l.slowThreshold > 0 && elapsed > l.slowThreshold && l.logLevel >= gormlogger.Warn:
		msg, lvl, extra = "Slow SQL", zapcore.WarnLevel, zap.Duration("threshold", l.slowThreshold)
	case l.logLevel >= gormlogger.Info:
		msg, lvl, extra = "SQL Query", zapcore.DebugLevel, zap.Skip()
	default:
		return
	}

	sql, rows := fc()
	fields := append(contextFields(ctx),
		zap.String("sql", sql),
		zap.Int64("rows", rows),
		zap.Duration("elapsed", elapsed),
		zap.String("source", utils.FileWithLineNum()),
		extra,
	)
	l.logger.Log(lvl, msg, fields...)
}

func contextFields(ctx context.Context) []zap.Field {
	fields := make([]zap.Field, 0, 8)
	if id := RequestIDFrom(ctx); id != "" {
		fields = append(fields, zap.String("request_id", id))
	}
	if id := TraceID(ctx); id != "" {
		fields = append(fields, zap.String("trace_id", id))
	}
	return fields
}

// MapGormLogLevel translates the application log level. Debug and info both
// print every statement; unknown names fall back to warnings only.
func MapGormLogLevel(level string) gormlogger.LogLevel {
	levels := map[string]gormlogger.LogLevel{
		"silent": gormlogger.Silent,
		"error":  gormlogger.Error,
		"warn":   gormlogger.Warn,
		"info":   gormlogger.Info,
		"debug":  gormlogger.Info,
	}
	if lvl, ok := levels[level]; ok {
		return lvl
	}
	return gormlogger.Warn
}
