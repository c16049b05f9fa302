package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func TestGormLogger_LogMode(t *testing.T) {
	gl := NewGormLogger(zap.NewNop(), gormlogger.Info)
	changed, ok := gl.LogMode(gormlogger.Warn).(*GormLogger)

	require.True(t, ok)
	assert.Equal(t, gormlogger.Info, gl.logLevel)
	assert.Equal(t, gormlogger.Warn, changed.logLevel)
}

func TestGormLogger_Trace(t *testing.T) {
	sql := func() (string, int64) { return "SELECT * FROM orders", 3 }

	tests := []struct {
		name    string
		level   gormlogger.LogLevel
		opts    []GormLoggerOption
		begin   time.Duration
		err     error
		wantMsg string
		wantLvl zapcore.Level
	}{
		{"error is logged", gormlogger.Error, nil, 0, errors.New("boom"), "SQL Error", zapcore.ErrorLevel},
		{"record not found is ignored", gormlogger.Error, nil, 0, gormlogger.ErrRecordNotFound, "", 0},
		{"record not found logged when asked", gormlogger.Error, []GormLoggerOption{WithIgnoreRecordNotFoundError(false)}, 0, gormlogger.ErrRecordNotFound, "SQL Error", zapcore.ErrorLevel},
		{"slow query warns", gormlogger.Warn, []GormLoggerOption{WithSlowThreshold(time.Millisecond)}, time.Second, nil, "Slow SQL", zapcore.WarnLevel},
		{"zero threshold disables slow warnings", gormlogger.Warn, []GormLoggerOption{WithSlowThreshold(0)}, time.Second, nil, "", 0},
		{"info level logs queries at debug", gormlogger.Info, nil, 0, nil, "SQL Query", zapcore.DebugLevel},
		{"silent logs nothing", gormlogger.Silent, nil, 0, errors.New("boom"), "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, recorded := observer.New(zapcore.DebugLevel)
			gl := NewGormLogger(zap.New(core), tt.level, tt.opts...)
			ctx, _ := WithRequestID(context.Background(), zap.NewNop(), "req-9")

			gl.Trace(ctx, time.Now().Add(-tt.begin), sql, tt.err)

			if tt.wantMsg == "" {
				assert.Zero(t, recorded.Len())
				return
			}
			entries := recorded.All()
			require.Len(t, entries, 1)
			assert.Equal(t, tt.wantMsg, entries[0].Message)
			assert.Equal(t, tt.wantLvl, entries[0].Level)
			fields := entries[0].ContextMap()
			assert.Equal(t, "SELECT * FROM orders", fields["sql"])
			assert.Equal(t, int64(3), fields["rows"])
			assert.Equal(t, "req-9", fields["request_id"])
		})
	}
}

func TestMapGormLogLevel(t *testing.T) {
	assert.Equal(t, gormlogger.Silent, MapGormLogLevel("silent"))
	assert.Equal(t, gormlogger.Error, MapGormLogLevel("error"))
	assert.Equal(t, gormlogger.Info, MapGormLogLevel("debug"))
	assert.Equal(t, gormlogger.Warn, MapGormLogLevel("anything"))
}
