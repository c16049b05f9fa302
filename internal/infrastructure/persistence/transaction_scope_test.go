package persistence

import (
	"context"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/printshop/backend/internal/application/transaction"
	"github.com/printshop/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormTransactionScope_LockContention(t *testing.T) {
	scope := NewGormTransactionScope(newTestDatabase(t).DB)

	tests := []struct {
		name     string
		err      error
		conflict bool
		state    string
	}{
		{"deadlock", fmt.Errorf("lock order: %w", &pgconn.PgError{Code: "40P01", Message: "deadlock detected"}), true, "40P01"},
		{"lock timeout", &pgconn.PgError{Code: "55P03", Message: "could not obtain lock"}, true, "55P03"},
		{"deadlock as text", fmt.Errorf("ERROR: deadlock detected (SQLSTATE 40P01)"), true, "40P01"},
		{"sqlite busy", fmt.Errorf("database is locked"), true, "SQLITE_BUSY"},
		{"unique violation", &pgconn.PgError{Code: "23505"}, false, ""},
		{"domain error", shared.NewValidationError("X", "bad input"), false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := scope.Execute(context.Background(), func(transaction.TransactionalRepositories) error {
				return tt.err
			})
			require.Error(t, err)
			if !tt.conflict {
				assert.NotErrorIs(t, err, shared.ErrConcurrencyConflict)
				assert.ErrorIs(t, err, tt.err)
				return
			}
			assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
			assert.True(t, shared.IsRetryable(err))
			de, ok := shared.AsDomainError(err)
			require.True(t, ok)
			assert.Equal(t, "LOCK_CONFLICT", de.Code)
			assert.Equal(t, tt.state, de.Details["sqlstate"])
		})
	}

	t.Run("success is untouched", func(t *testing.T) {
		assert.NoError(t, scope.Execute(context.Background(), func(transaction.TransactionalRepositories) error {
			return nil
		}))
	})
}
