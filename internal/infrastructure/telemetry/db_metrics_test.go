package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestRegisterDBPoolMetrics(t *testing.T) {
	reader, provider := newTestMeter(t)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(4)
	t.Cleanup(func() { _ = sqlDB.Close() })

	reg, err := RegisterDBPoolMetrics(provider.Meter("test"), sqlDB)
	require.NoError(t, err)
	defer func() { assert.NoError(t, reg.Unregister()) }()

	rm := collect(t, reader)

	m, ok := findMetric(rm, "db_pool_connections_max")
	require.True(t, ok)
	gauge, ok := m.Data.(metricdata.Gauge[int64])
	require.True(t, ok)
	require.Len(t, gauge.DataPoints, 1)
	assert.Equal(t, int64(4), gauge.DataPoints[0].Value)

	m, ok = findMetric(rm, "db_pool_connections")
	require.True(t, ok)
	gauge, ok = m.Data.(metricdata.Gauge[int64])
	require.True(t, ok)
	assert.Len(t, gauge.DataPoints, 2, "one point per pool state")
}

func TestRegisterDBPoolMetrics_NilMeter(t *testing.T) {
	_, err := RegisterDBPoolMetrics(nil, nil)
	assert.ErrorIs(t, err, ErrMeterNil)
}
