// Package numbering issues human-readable document numbers of the form
// PREFIX-YYYY-NNNN from a per-(kind, year) counter.
package numbering

import (
	"context"
	"fmt"
	"time"

	"github.com/printshop/backend/internal/domain/shared"
)

// Kind is the document family a number belongs to; its value is the prefix.
type Kind string

const (
	KindOrder     Kind = "ORD"
	KindInvoice   Kind = "INV"
	KindPayment   Kind = "PAY"
	KindQuotation Kind = "QUO"
	KindJob       Kind = "JOB"
)

// IsValid checks if the kind is known
func (k Kind) IsValid() bool {
	switch k {
	case KindOrder, KindInvoice, KindPayment, KindQuotation, KindJob:
		return true
	}
	return false
}

// Sequence is the counter row for one kind and year.
type Sequence struct {
	Kind       Kind `gorm:"type:varchar(10);primaryKey"`
	Year       int  `gorm:"primaryKey;autoIncrement:false"`
	LastNumber int64
	UpdatedAt  time.Time
}

// TableName returns the table name for GORM
func (Sequence) TableName() string {
	return "number_sequences"
}

// Sequencer atomically advances a counter and returns the new value. It runs in
// the caller's transaction so an aborted caller leaves a gap, never a duplicate.
type Sequencer interface {
	Next(ctx context.Context, kind Kind, year int) (int64, error)
}

// Format renders a number. The sequence is zero-padded to four digits and
// widens past 9999.
func Format(kind Kind, year int, seq int64) string {
	return fmt.Sprintf("%s-%04d-%04d", kind, year, seq)
}

// Issue takes the next number for kind in the year of at.
func Issue(ctx context.Context, seq Sequencer, kind Kind, at time.Time) (string, error) {
	if !kind.IsValid() {
		return "", shared.NewValidationError("INVALID_NUMBER_KIND", fmt.Sprintf("unknown number kind %q", kind))
	}
	year := at.Year()
	n, err := seq.Next(ctx, kind, year)
	if err != nil {
		return "", fmt.Errorf("issue %s number: %w", kind, err)
	}
	return Format(kind, year, n), nil
}
