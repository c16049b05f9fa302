package persistence

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/printshop/backend/internal/domain/catalog"
	"github.com/printshop/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// newMockPostgres opens GORM over sqlmock with the postgres dialect.
func newMockPostgres(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB, DriverName: "postgres"}), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	return db, mock
}

func storedProduct(t *testing.T) *catalog.Product {
	t.Helper()
	p, err := catalog.NewProduct("FLY-A5", "A5 flyer", catalog.ProductTypeInventory, decimal.Zero)
	require.NoError(t, err)
	p.ID = 5
	p.Version = 3
	return p
}

func TestUpdateVersioned_Postgres(t *testing.T) {
	t.Run("no row at the expected version", func(t *testing.T) {
		db, mock := newMockPostgres(t)
		mock.ExpectExec(`UPDATE "products" SET .*id = \$\d+ AND version = \$\d+`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		p := storedProduct(t)
		err := NewGormProductRepository(db).Save(context.Background(), p)

		var de *shared.DomainError
		require.True(t, errors.As(err, &de), "got %v", err)
		assert.Equal(t, shared.KindConcurrencyConflict, de.Kind)
		assert.Equal(t, 3, de.Details["expected_version"])
		assert.Equal(t, 3, p.Version)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("version is bumped on success", func(t *testing.T) {
		db, mock := newMockPostgres(t)
		mock.ExpectExec(`UPDATE "products" SET .*"version"=\$\d+.*id = \$\d+ AND version = \$\d+`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		p := storedProduct(t)
		require.NoError(t, NewGormProductRepository(db).Save(context.Background(), p))
		assert.Equal(t, 4, p.Version)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("driver errors pass through", func(t *testing.T) {
		db, mock := newMockPostgres(t)
		boom := errors.New("connection reset by peer")
		mock.ExpectExec(`UPDATE "products"`).WillReturnError(boom)

		p := storedProduct(t)
		err := NewGormProductRepository(db).Save(context.Background(), p)
		assert.ErrorIs(t, err, boom)
		assert.False(t, shared.IsRetryable(err))
		assert.Equal(t, 3, p.Version)
	})
}

func TestForUpdate_Postgres(t *testing.T) {
	db, mock := newMockPostgres(t)
	mock.ExpectQuery(`SELECT \* FROM "service_jobs" WHERE id = \$1 .*FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "job_number", "status", "version"}).
			AddRow(8, "JOB-2025-0001", "PENDING", 1))

	job, err := NewGormServiceJobRepository(db).FindForUpdate(context.Background(), 8)
	require.NoError(t, err)
	assert.Equal(t, "JOB-2025-0001", job.JobNumber)
	assert.NoError(t, mock.ExpectationsWereMet())
}
