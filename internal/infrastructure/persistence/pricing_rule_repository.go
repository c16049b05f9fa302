package persistence

import (
	"context"

	"github.com/printshop/backend/internal/domain/catalog"
	"gorm.io/gorm"
)

// GormPricingRuleRepository implements PricingRuleRepository using GORM
type GormPricingRuleRepository struct {
	db *gorm.DB
}

// NewGormPricingRuleRepository creates a new GormPricingRuleRepository
func NewGormPricingRuleRepository(db *gorm.DB) *GormPricingRuleRepository {
	return &GormPricingRuleRepository{db: db}
}

// FindByID finds a rule by its ID
func (r *GormPricingRuleRepository) FindByID(ctx context.Context, id uint64) (*catalog.PricingRule, error) {
	var rule catalog.PricingRule
	if err := r.db.WithContext(ctx).First(&rule, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "PricingRule", id)
	}
	return &rule, nil
}

// FindByProduct returns every rule of a product, active or not
func (r *GormPricingRuleRepository) FindByProduct(ctx context.Context, productID uint64) ([]catalog.PricingRule, error) {
	var rules []catalog.PricingRule
	if err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("priority DESC, id").
		Find(&rules).Error; err != nil {
		return nil, err
	}
	return rules, nil
}

// Save validates the rule against its product type and writes it
func (r *GormPricingRuleRepository) Save(ctx context.Context, rule *catalog.PricingRule) error {
	db := r.db.WithContext(ctx)
	var product catalog.Product
	if err := db.First(&product, "id = ?", rule.ProductID).Error; err != nil {
		return notFound(err, "Product", rule.ProductID)
	}
	if err := rule.ValidateFor(product.Type); err != nil {
		return err
	}
	return db.Save(rule).Error
}

// Ensure GormPricingRuleRepository implements PricingRuleRepository
var _ catalog.PricingRuleRepository = (*GormPricingRuleRepository)(nil)
