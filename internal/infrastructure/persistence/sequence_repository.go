package persistence

import (
	"context"
	"time"

	"github.com/printshop/backend/internal/domain/numbering"
	"gorm.io/gorm"
)

// nextSequenceSQL advances a counter in one statement. Postgres and SQLite
// both support the upsert and RETURNING forms used here.
const nextSequenceSQL = `INSERT INTO number_sequences (kind, year, last_number, updated_at)
VALUES (?, ?, 1, ?)
ON CONFLICT (kind, year) DO UPDATE
SET last_number = number_sequences.last_number + 1, updated_at = excluded.updated_at
RETURNING last_number`

// GormSequenceRepository implements numbering.Sequencer on the number_sequences table
type GormSequenceRepository struct {
	db *gorm.DB
}

// NewGormSequenceRepository creates a new GormSequenceRepository
func NewGormSequenceRepository(db *gorm.DB) *GormSequenceRepository {
	return &GormSequenceRepository{db: db}
}

// Next returns the next number for kind in year. The row stays locked until
// the surrounding transaction ends.
func (r *GormSequenceRepository) Next(ctx context.Context, kind numbering.Kind, year int) (int64, error) {
	var next int64
	if err := r.db.WithContext(ctx).
		Raw(nextSequenceSQL, string(kind), year, time.Now().UTC()).
		Scan(&next).Error; err != nil {
		return 0, err
	}
	return next, nil
}

var _ numbering.Sequencer = (*GormSequenceRepository)(nil)
