package catalog

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/printshop/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// RuleType identifies the shape of a pricing rule's config.
type RuleType string

const (
	RuleTypeQuantityTier     RuleType = "quantity_tier"
	RuleTypeDimension        RuleType = "dimension"
	RuleTypeFixed            RuleType = "fixed"
	RuleTypeCustomerSpecific RuleType = "customer_specific"
)

// IsValid checks if the rule type is valid
func (t RuleType) IsValid() bool {
	switch t {
	case RuleTypeQuantityTier, RuleTypeDimension, RuleTypeFixed, RuleTypeCustomerSpecific:
		return true
	}
	return false
}

// AreaUnit is the unit a dimension rule prices in.
type AreaUnit string

const (
	AreaUnitSqFt AreaUnit = "sqft"
	AreaUnitSqM  AreaUnit = "sqm"
	AreaUnitSqIn AreaUnit = "sqin"
)

// TierBand is one quantity range of a quantity_tier rule. MaxQty nil means unbounded.
type TierBand struct {
	MinQty int64           `json:"min_qty" validate:"gte=1"`
	MaxQty *int64          `json:"max_qty,omitempty" validate:"omitempty,gte=1"`
	Price  decimal.Decimal `json:"price" validate:"gt=0"`
}

// Contains reports whether quantity falls inside the band (both ends inclusive).
func (b TierBand) Contains(quantity int64) bool {
	if quantity < b.MinQty {
		return false
	}
	return b.MaxQty == nil || quantity <= *b.MaxQty
}

// QuantityTierConfig prices by the band containing the ordered quantity.
type QuantityTierConfig struct {
	Bands []TierBand `json:"bands" validate:"required,min=1,dive"`
}

func (c *QuantityTierConfig) checkBands() error {
	for i, band := range c.Bands {
		if band.MaxQty != nil && *band.MaxQty < band.MinQty {
			return shared.NewValidationError("INVALID_TIER_BAND",
				fmt.Sprintf("band %d has max_qty %d below min_qty %d", i, *band.MaxQty, band.MinQty))
		}
		if i == 0 {
			continue
		}
		prev := c.Bands[i-1]
		if prev.MaxQty == nil {
			return shared.NewValidationError("INVALID_TIER_BAND",
				fmt.Sprintf("band %d follows an unbounded band", i))
		}
		if band.MinQty != *prev.MaxQty+1 {
			return shared.NewValidationError("INVALID_TIER_BAND",
				fmt.Sprintf("band %d starts at %d, expected %d (bands must be sorted, contiguous and non-overlapping)",
					i, band.MinQty, *prev.MaxQty+1))
		}
	}
	return nil
}

// DimensionConfig prices by area: base_price × max(size, min_size).
type DimensionConfig struct {
	Unit      AreaUnit         `json:"unit" validate:"required,oneof=sqft sqm sqin"`
	BasePrice decimal.Decimal  `json:"base_price" validate:"gt=0"`
	MinSize   decimal.Decimal  `json:"min_size" validate:"gte=0"`
	MaxSize   *decimal.Decimal `json:"max_size,omitempty" validate:"omitempty,gt=0"`
}

// FixedConfig charges one price per unit.
type FixedConfig struct {
	Price decimal.Decimal `json:"price" validate:"gte=0"`
}

// CustomerSpecificConfig applies an inner rule only to a matching customer,
// either one customer by id or every customer of a type.
type CustomerSpecificConfig struct {
	CustomerID   *uint64             `json:"customer_id,omitempty" validate:"required_without=CustomerType"`
	CustomerType string              `json:"customer_type,omitempty" validate:"omitempty,oneof=walk_in regular credit"`
	RuleType     RuleType            `json:"rule_type" validate:"required,oneof=quantity_tier dimension fixed"`
	QuantityTier *QuantityTierConfig `json:"quantity_tier,omitempty"`
	Dimension    *DimensionConfig    `json:"dimension,omitempty"`
	Fixed        *FixedConfig        `json:"fixed,omitempty"`
}

// Matches reports whether the rule targets the given customer.
func (c *CustomerSpecificConfig) Matches(customerID uint64, customerType string) bool {
	if c.CustomerID != nil {
		return *c.CustomerID == customerID
	}
	return c.CustomerType != "" && c.CustomerType == customerType
}

// Inner returns the wrapped rule as a plain config.
func (c *CustomerSpecificConfig) Inner() RuleConfig {
	return RuleConfig{
		QuantityTier: c.QuantityTier,
		Dimension:    c.Dimension,
		Fixed:        c.Fixed,
	}
}

// RuleConfig is the tagged union of rule payloads. Exactly one member is set
// and it must agree with the owning rule's RuleType.
type RuleConfig struct {
	QuantityTier     *QuantityTierConfig     `json:"quantity_tier,omitempty"`
	Dimension        *DimensionConfig        `json:"dimension,omitempty"`
	Fixed            *FixedConfig            `json:"fixed,omitempty"`
	CustomerSpecific *CustomerSpecificConfig `json:"customer_specific,omitempty"`
}

// Type returns the rule type of the populated member, or "" when zero or several are set.
func (c RuleConfig) Type() RuleType {
	var found RuleType
	count := 0
	if c.QuantityTier != nil {
		found, count = RuleTypeQuantityTier, count+1
	}
	if c.Dimension != nil {
		found, count = RuleTypeDimension, count+1
	}
	if c.Fixed != nil {
		found, count = RuleTypeFixed, count+1
	}
	if c.CustomerSpecific != nil {
		found, count = RuleTypeCustomerSpecific, count+1
	}
	if count != 1 {
		return ""
	}
	return found
}

var configValidator = shared.NewValidator()

// Validate checks the populated member's fields and cross-field invariants.
func (c RuleConfig) Validate() error {
	switch c.Type() {
	case RuleTypeQuantityTier:
		if err := configValidator.Struct(c.QuantityTier); err != nil {
			return shared.ValidationErrorFrom("INVALID_RULE_CONFIG", err)
		}
		return c.QuantityTier.checkBands()
	case RuleTypeDimension:
		if err := configValidator.Struct(c.Dimension); err != nil {
			return shared.ValidationErrorFrom("INVALID_RULE_CONFIG", err)
		}
		if c.Dimension.MaxSize != nil && c.Dimension.MaxSize.LessThan(c.Dimension.MinSize) {
			return shared.NewValidationError("INVALID_RULE_CONFIG", "max_size cannot be below min_size")
		}
		return nil
	case RuleTypeFixed:
		if err := configValidator.Struct(c.Fixed); err != nil {
			return shared.ValidationErrorFrom("INVALID_RULE_CONFIG", err)
		}
		return nil
	case RuleTypeCustomerSpecific:
		cs := c.CustomerSpecific
		if err := configValidator.Struct(cs); err != nil {
			return shared.ValidationErrorFrom("INVALID_RULE_CONFIG", err)
		}
		if cs.CustomerID != nil && cs.CustomerType != "" {
			return shared.NewValidationError("INVALID_RULE_CONFIG", "customer_specific rule targets either customer_id or customer_type, not both")
		}
		inner := cs.Inner()
		if inner.Type() != cs.RuleType {
			return shared.NewValidationError("INVALID_RULE_CONFIG",
				fmt.Sprintf("customer_specific rule_type %s does not match its config", cs.RuleType))
		}
		return inner.Validate()
	}
	return shared.NewValidationError("INVALID_RULE_CONFIG", "rule config must set exactly one rule shape")
}

// Value implements driver.Valuer for the JSONB column
func (c RuleConfig) Value() (driver.Value, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner for the JSONB column
func (c *RuleConfig) Scan(value interface{}) error {
	if value == nil {
		*c = RuleConfig{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("failed to scan RuleConfig: unsupported type")
	}

	if len(bytes) == 0 {
		*c = RuleConfig{}
		return nil
	}
	return json.Unmarshal(bytes, c)
}

// PricingRule belongs to one product and is applicable inside its validity window.
type PricingRule struct {
	shared.BaseEntity
	ProductID  uint64     `gorm:"not null;index"`
	RuleType   RuleType   `gorm:"type:varchar(30);not null"`
	Config     RuleConfig `gorm:"type:jsonb;not null"`
	Priority   int        `gorm:"not null;default:0"`
	ValidFrom  *time.Time
	ValidUntil *time.Time
	IsActive   bool `gorm:"not null"`
}

// TableName returns the table name for GORM
func (PricingRule) TableName() string {
	return "pricing_rules"
}

// NewPricingRule creates a validated rule. The rule type is taken from the config.
func NewPricingRule(productID uint64, config RuleConfig, priority int) (*PricingRule, error) {
	if productID == 0 {
		return nil, shared.NewValidationError("INVALID_PRODUCT", "Pricing rule must belong to a product")
	}
	rule := &PricingRule{
		BaseEntity: shared.NewBaseEntity(),
		ProductID:  productID,
		RuleType:   config.Type(),
		Config:     config,
		Priority:   priority,
		IsActive:   true,
	}
	if err := rule.Validate(); err != nil {
		return nil, err
	}
	return rule, nil
}

// SetValidity sets the inclusive validity window. Nil leaves that side unbounded.
func (r *PricingRule) SetValidity(from, until *time.Time) error {
	if from != nil && until != nil && until.Before(*from) {
		return shared.NewValidationError("INVALID_VALIDITY_WINDOW", "valid_until cannot be before valid_from")
	}
	r.ValidFrom = from
	r.ValidUntil = until
	r.Touch(time.Now())
	return nil
}

// IsApplicableAt reports whether the rule is active and valid_from ≤ at ≤ valid_until.
func (r *PricingRule) IsApplicableAt(at time.Time) bool {
	if !r.IsActive {
		return false
	}
	if r.ValidFrom != nil && at.Before(*r.ValidFrom) {
		return false
	}
	if r.ValidUntil != nil && at.After(*r.ValidUntil) {
		return false
	}
	return true
}

// Validate checks the rule before it is written.
func (r *PricingRule) Validate() error {
	if !r.RuleType.IsValid() {
		return shared.NewValidationError("INVALID_RULE_TYPE", fmt.Sprintf("unknown rule type %q", r.RuleType))
	}
	if r.Config.Type() != r.RuleType {
		return shared.NewValidationError("INVALID_RULE_CONFIG",
			fmt.Sprintf("config does not match rule type %s", r.RuleType))
	}
	return r.Config.Validate()
}

// ValidateFor additionally checks that the rule can price the given product type.
func (r *PricingRule) ValidateFor(productType ProductType) error {
	if err := r.Validate(); err != nil {
		return err
	}
	shape := r.RuleType
	if shape == RuleTypeCustomerSpecific {
		shape = r.Config.CustomerSpecific.RuleType
	}
	if !productType.Allows(shape) {
		return shared.NewValidationError("RULE_NOT_ALLOWED_FOR_PRODUCT",
			fmt.Sprintf("%s rules cannot price %s products", shape, productType))
	}
	return nil
}
