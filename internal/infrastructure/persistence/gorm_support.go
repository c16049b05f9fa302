package persistence

import (
	"errors"
	"slices"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/printshop/backend/internal/domain/shared"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// notFound maps gorm's missing-row error onto the domain's.
func notFound(err error, entity string, id uint64) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return shared.NewNotFoundError(entity, id)
	}
	return err
}

// Postgres aborts one side of a lock cycle with 40P01 and a NOWAIT or
// lock_timeout miss with 55P03.
var lockFailureStates = []string{"40P01", "55P03"}

// lockContention turns a transaction lost to row lock contention into a
// retryable concurrency conflict. Other errors pass through.
func lockContention(err error) error {
	if err == nil {
		return nil
	}
	state := ""
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		state = pgErr.Code
	} else {
		msg := err.Error()
		for _, code := range lockFailureStates {
			if strings.Contains(msg, "SQLSTATE "+code) {
				state = code
			}
		}
		if strings.Contains(msg, "database is locked") {
			state = "SQLITE_BUSY"
		}
	}
	if state != "SQLITE_BUSY" && !slices.Contains(lockFailureStates, state) {
		return err
	}
	return shared.NewDomainError(shared.KindConcurrencyConflict, "LOCK_CONFLICT",
		"the transaction lost a lock race with another request, retry it").
		WithDetail("sqlstate", state)
}

// forUpdate adds a row lock on databases that support one. SQLite serialises
// writers on its own.
func forUpdate(db *gorm.DB) *gorm.DB {
	if db.Dialector.Name() == "postgres" {
		return db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return db
}

// updateVersioned writes every column of an existing aggregate row, guarded by
// the version it was loaded with. On success the in-memory version is bumped.
// Associations are left to the caller.
func updateVersioned(tx *gorm.DB, model any, root *shared.BaseAggregateRoot, entity string) error {
	expected := root.BeginVersionedWrite()
	result := tx.Model(model).
		Where("id = ? AND version = ?", root.ID, expected).
		Select("*").
		Omit(clause.Associations, "id", "created_at").
		Updates(model)
	if result.Error != nil {
		root.AbortVersionedWrite(expected)
		return result.Error
	}
	if result.RowsAffected == 0 {
		root.AbortVersionedWrite(expected)
		return shared.NewConcurrencyConflictError(entity, root.ID).
			WithDetail("expected_version", expected)
	}
	return nil
}

// findPage runs a filtered listing. columns maps the accepted filter and
// sort keys to column names; anything else is ignored. The total counts every
// matching row, not just the page.
func findPage[T any](query *gorm.DB, filter shared.Filter, columns map[string]string, defaultOrder string) ([]T, int64, error) {
	for key, value := range filter.Filters {
		if column, ok := columns[key]; ok {
			query = query.Where(column+" = ?", value)
		}
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	order := defaultOrder
	if column, ok := columns[filter.OrderBy]; ok {
		order = column + " ASC"
		if strings.EqualFold(filter.OrderDir, "desc") {
			order = column + " DESC"
		}
	}
	query = query.Order(order)
	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}

	var items []T
	if err := query.Find(&items).Error; err != nil {
		return nil, 0, err
	}
	return items, total, nil
}
