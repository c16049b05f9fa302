package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type tracedRow struct {
	ID   uint64 `gorm:"primaryKey"`
	Name string
}

func openTracedDB(t *testing.T, plugin *DBTracingPlugin) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.Use(plugin))
	require.NoError(t, db.AutoMigrate(&tracedRow{}))
	return db
}

func TestNewDBTracingPlugin_Defaults(t *testing.T) {
	p := NewDBTracingPlugin(DBTracingConfig{}, zap.NewNop())
	assert.Equal(t, 200*time.Millisecond, p.config.SlowQueryThresh)
	assert.Equal(t, "postgresql", p.config.DBSystem)
	assert.Equal(t, "printshop:db_tracing", p.Name())
}

func TestDBTracingPlugin_Disabled(t *testing.T) {
	recorder := useRecorder(t)
	db := openTracedDB(t, NewDBTracingPlugin(DBTracingConfig{Enabled: false}, zap.NewNop()))

	require.NoError(t, db.WithContext(context.Background()).Create(&tracedRow{Name: "a"}).Error)
	assert.Empty(t, recorder.Ended())
}

func TestDBTracingPlugin_RecordsQuerySpans(t *testing.T) {
	recorder := useRecorder(t)
	db := openTracedDB(t, NewDBTracingPlugin(DBTracingConfig{
		Enabled:  true,
		DBSystem: "sqlite",
	}, zap.NewNop()))

	ctx := context.Background()
	require.NoError(t, db.WithContext(ctx).Create(&tracedRow{Name: "business cards"}).Error)
	var rows []tracedRow
	require.NoError(t, db.WithContext(ctx).Find(&rows).Error)
	require.Len(t, rows, 1)

	assert.NotEmpty(t, recorder.Ended())
}
