package persistence

import (
	"context"
	"strings"

	"github.com/printshop/backend/internal/domain/catalog"
	"github.com/printshop/backend/internal/domain/shared"
	"gorm.io/gorm"
)

var productColumns = map[string]string{
	"type":       "type",
	"is_active":  "is_active",
	"sku":        "sku",
	"name":       "name",
	"created_at": "created_at",
}

// GormProductRepository implements ProductRepository using GORM
type GormProductRepository struct {
	db *gorm.DB
}

// NewGormProductRepository creates a new GormProductRepository
func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

// FindByID finds a product by its ID
func (r *GormProductRepository) FindByID(ctx context.Context, id uint64) (*catalog.Product, error) {
	var product catalog.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "Product", id)
	}
	return &product, nil
}

// FindBySKU finds a product by its SKU
func (r *GormProductRepository) FindBySKU(ctx context.Context, sku string) (*catalog.Product, error) {
	var product catalog.Product
	if err := r.db.WithContext(ctx).
		Where("sku = ?", strings.ToUpper(strings.TrimSpace(sku))).
		First(&product).Error; err != nil {
		return nil, notFound(err, "Product", 0)
	}
	return &product, nil
}

// FindByIDs finds multiple products by their IDs
func (r *GormProductRepository) FindByIDs(ctx context.Context, ids []uint64) ([]catalog.Product, error) {
	if len(ids) == 0 {
		return []catalog.Product{}, nil
	}
	var products []catalog.Product
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("id").Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

// FindAll returns one page of products and the number matching the filter
func (r *GormProductRepository) FindAll(ctx context.Context, filter shared.Filter) ([]catalog.Product, int64, error) {
	return findPage[catalog.Product](r.db.WithContext(ctx).Model(&catalog.Product{}), filter, productColumns, "sku ASC")
}

// Save creates or updates a product. Updates are guarded by the version.
func (r *GormProductRepository) Save(ctx context.Context, product *catalog.Product) error {
	db := r.db.WithContext(ctx)
	if product.ID == 0 {
		return db.Create(product).Error
	}
	return updateVersioned(db, product, &product.BaseAggregateRoot, "Product")
}

// Ensure GormProductRepository implements ProductRepository
var _ catalog.ProductRepository = (*GormProductRepository)(nil)
