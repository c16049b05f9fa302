package partner

import (
	"context"

	"github.com/printshop/backend/internal/domain/shared"
)

// CustomerRepository stores customers and their credit terms
type CustomerRepository interface {
	FindByID(ctx context.Context, id uint64) (*Customer, error)
	// FindForUpdate row-locks the customer so that credit decisions for the
	// same customer run one at a time
	FindForUpdate(ctx context.Context, id uint64) (*Customer, error)
	// FindAll lists one page of customers and the total matching filter.
	// Filter keys are type, is_active and name.
	FindAll(ctx context.Context, filter shared.Filter) ([]Customer, int64, error)
	Save(ctx context.Context, customer *Customer) error
}
