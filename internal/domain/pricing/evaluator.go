package pricing

import (
	"fmt"

	"github.com/printshop/backend/internal/domain/catalog"
	"github.com/printshop/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Input is what a rule shape needs to produce an unrounded unit price.
type Input struct {
	Quantity   int64
	Dimensions *Dimensions
}

// RuleEvaluator computes the unit price for one rule shape.
type RuleEvaluator interface {
	RuleType() catalog.RuleType
	UnitPrice(config catalog.RuleConfig, in Input) (decimal.Decimal, error)
}

// QuantityTierEvaluator prices by the band containing the quantity.
type QuantityTierEvaluator struct{}

func (QuantityTierEvaluator) RuleType() catalog.RuleType { return catalog.RuleTypeQuantityTier }

func (QuantityTierEvaluator) UnitPrice(config catalog.RuleConfig, in Input) (decimal.Decimal, error) {
	if config.QuantityTier == nil {
		return decimal.Zero, shared.NewConfigurationError("INVALID_RULE_CONFIG", "quantity_tier rule has no bands")
	}
	for _, band := range config.QuantityTier.Bands {
		if band.Contains(in.Quantity) {
			return band.Price, nil
		}
	}
	return decimal.Zero, shared.NewConfigurationError("NO_MATCHING_TIER",
		fmt.Sprintf("no tier band contains quantity %d", in.Quantity)).
		WithDetail("quantity", in.Quantity)
}

// DimensionEvaluator prices by area, never below the configured minimum size.
type DimensionEvaluator struct{}

func (DimensionEvaluator) RuleType() catalog.RuleType { return catalog.RuleTypeDimension }

func (DimensionEvaluator) UnitPrice(config catalog.RuleConfig, in Input) (decimal.Decimal, error) {
	cfg := config.Dimension
	if cfg == nil {
		return decimal.Zero, shared.NewConfigurationError("INVALID_RULE_CONFIG", "dimension rule has no config")
	}
	if in.Dimensions == nil {
		return decimal.Zero, shared.NewValidationError("DIMENSIONS_REQUIRED", "Dimension items need width, height and unit")
	}
	size, err := in.Dimensions.AreaIn(cfg.Unit)
	if err != nil {
		return decimal.Zero, err
	}
	if cfg.MaxSize != nil && size.GreaterThan(*cfg.MaxSize) {
		return decimal.Zero, shared.NewValidationError("SIZE_OUT_OF_RANGE",
			fmt.Sprintf("size %s %s exceeds maximum %s", size, cfg.Unit, cfg.MaxSize)).
			WithDetail("size", size.String()).
			WithDetail("max_size", cfg.MaxSize.String()).
			WithDetail("unit", string(cfg.Unit))
	}
	if size.LessThan(cfg.MinSize) {
		size = cfg.MinSize
	}
	return cfg.BasePrice.Mul(size), nil
}

// FixedEvaluator charges the configured price per unit.
type FixedEvaluator struct{}

func (FixedEvaluator) RuleType() catalog.RuleType { return catalog.RuleTypeFixed }

func (FixedEvaluator) UnitPrice(config catalog.RuleConfig, _ Input) (decimal.Decimal, error) {
	if config.Fixed == nil {
		return decimal.Zero, shared.NewConfigurationError("INVALID_RULE_CONFIG", "fixed rule has no price")
	}
	return config.Fixed.Price, nil
}
