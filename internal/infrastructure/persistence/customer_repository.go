package persistence

import (
	"context"

	"github.com/printshop/backend/internal/domain/partner"
	"github.com/printshop/backend/internal/domain/shared"
	"gorm.io/gorm"
)

var customerColumns = map[string]string{
	"type":       "type",
	"is_active":  "is_active",
	"name":       "name",
	"created_at": "created_at",
}

// GormCustomerRepository implements CustomerRepository using GORM
type GormCustomerRepository struct {
	db *gorm.DB
}

// NewGormCustomerRepository creates a new GormCustomerRepository
func NewGormCustomerRepository(db *gorm.DB) *GormCustomerRepository {
	return &GormCustomerRepository{db: db}
}

// FindByID finds a customer by its ID
func (r *GormCustomerRepository) FindByID(ctx context.Context, id uint64) (*partner.Customer, error) {
	return r.find(r.db.WithContext(ctx), id)
}

// FindForUpdate finds a customer and holds its row lock until the transaction ends
func (r *GormCustomerRepository) FindForUpdate(ctx context.Context, id uint64) (*partner.Customer, error) {
	return r.find(forUpdate(r.db.WithContext(ctx)), id)
}

func (r *GormCustomerRepository) find(db *gorm.DB, id uint64) (*partner.Customer, error) {
	var customer partner.Customer
	if err := db.First(&customer, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "Customer", id)
	}
	return &customer, nil
}

// FindAll returns one page of customers and the number matching the filter
func (r *GormCustomerRepository) FindAll(ctx context.Context, filter shared.Filter) ([]partner.Customer, int64, error) {
	return findPage[partner.Customer](r.db.WithContext(ctx).Model(&partner.Customer{}), filter, customerColumns, "name ASC")
}

// Save creates or updates a customer. Updates are guarded by the version.
func (r *GormCustomerRepository) Save(ctx context.Context, customer *partner.Customer) error {
	db := r.db.WithContext(ctx)
	if customer.ID == 0 {
		return db.Create(customer).Error
	}
	return updateVersioned(db, customer, &customer.BaseAggregateRoot, "Customer")
}

var _ partner.CustomerRepository = (*GormCustomerRepository)(nil)
