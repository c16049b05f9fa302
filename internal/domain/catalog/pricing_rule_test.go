package catalog

import (
	"errors"
	"testing"
	"time"

	"github.com/printshop/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func int64Ptr(v int64) *int64 { return &v }

func businessCardTiers() *QuantityTierConfig {
	return &QuantityTierConfig{Bands: []TierBand{
		{MinQty: 1, MaxQty: int64Ptr(100), Price: decimal.RequireFromString("1.00")},
		{MinQty: 101, MaxQty: int64Ptr(500), Price: decimal.RequireFromString("0.75")},
		{MinQty: 501, MaxQty: int64Ptr(1000), Price: decimal.RequireFromString("0.60")},
		{MinQty: 1001, Price: decimal.RequireFromString("0.50")},
	}}
}

// ===== Quantity Tier Validation Tests =====

func TestQuantityTierConfig_Validate(t *testing.T) {
	t.Run("accepts contiguous bands with open last band", func(t *testing.T) {
		cfg := RuleConfig{QuantityTier: businessCardTiers()}
		assert.NoError(t, cfg.Validate())
	})

	tests := []struct {
		name  string
		bands []TierBand
	}{
		{"empty bands", nil},
		{"gap between bands", []TierBand{
			{MinQty: 1, MaxQty: int64Ptr(100), Price: decimal.NewFromInt(1)},
			{MinQty: 150, Price: decimal.NewFromInt(1)},
		}},
		{"overlapping bands", []TierBand{
			{MinQty: 1, MaxQty: int64Ptr(100), Price: decimal.NewFromInt(1)},
			{MinQty: 90, Price: decimal.NewFromInt(1)},
		}},
		{"unbounded band not last", []TierBand{
			{MinQty: 1, Price: decimal.NewFromInt(1)},
			{MinQty: 101, Price: decimal.NewFromInt(1)},
		}},
		{"max below min", []TierBand{
			{MinQty: 10, MaxQty: int64Ptr(5), Price: decimal.NewFromInt(1)},
		}},
		{"zero price", []TierBand{
			{MinQty: 1, Price: decimal.Zero},
		}},
		{"zero min quantity", []TierBand{
			{MinQty: 0, Price: decimal.NewFromInt(1)},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := RuleConfig{QuantityTier: &QuantityTierConfig{Bands: tt.bands}}
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, shared.ErrValidation))
		})
	}
}

func TestTierBand_Contains(t *testing.T) {
	bands := businessCardTiers().Bands
	assert.True(t, bands[0].Contains(1))
	assert.True(t, bands[0].Contains(100))
	assert.False(t, bands[0].Contains(101))
	assert.True(t, bands[3].Contains(1001))
	assert.True(t, bands[3].Contains(1_000_000))
}

// ===== Rule Config Union Tests =====

func TestRuleConfig_Type(t *testing.T) {
	assert.Equal(t, RuleTypeFixed, RuleConfig{Fixed: &FixedConfig{Price: decimal.NewFromInt(5)}}.Type())
	assert.Equal(t, RuleType(""), RuleConfig{}.Type())
	assert.Equal(t, RuleType(""), RuleConfig{
		Fixed:        &FixedConfig{Price: decimal.NewFromInt(5)},
		QuantityTier: businessCardTiers(),
	}.Type())
}

func TestDimensionConfig_Validate(t *testing.T) {
	maxSize := decimal.NewFromInt(50)
	valid := RuleConfig{Dimension: &DimensionConfig{
		Unit: AreaUnitSqFt, BasePrice: decimal.NewFromInt(4), MinSize: decimal.NewFromInt(1), MaxSize: &maxSize,
	}}
	assert.NoError(t, valid.Validate())

	badUnit := RuleConfig{Dimension: &DimensionConfig{Unit: "acre", BasePrice: decimal.NewFromInt(4)}}
	assert.Error(t, badUnit.Validate())

	small := decimal.NewFromInt(1)
	inverted := RuleConfig{Dimension: &DimensionConfig{
		Unit: AreaUnitSqM, BasePrice: decimal.NewFromInt(4), MinSize: decimal.NewFromInt(2), MaxSize: &small,
	}}
	assert.Error(t, inverted.Validate())
}

func TestCustomerSpecificConfig_Validate(t *testing.T) {
	customerID := uint64(42)

	t.Run("valid customer id target", func(t *testing.T) {
		cfg := RuleConfig{CustomerSpecific: &CustomerSpecificConfig{
			CustomerID: &customerID,
			RuleType:   RuleTypeFixed,
			Fixed:      &FixedConfig{Price: decimal.NewFromInt(2)},
		}}
		assert.NoError(t, cfg.Validate())
	})

	t.Run("valid customer type target", func(t *testing.T) {
		cfg := RuleConfig{CustomerSpecific: &CustomerSpecificConfig{
			CustomerType: "credit",
			RuleType:     RuleTypeQuantityTier,
			QuantityTier: businessCardTiers(),
		}}
		assert.NoError(t, cfg.Validate())
	})

	t.Run("missing target", func(t *testing.T) {
		cfg := RuleConfig{CustomerSpecific: &CustomerSpecificConfig{
			RuleType: RuleTypeFixed,
			Fixed:    &FixedConfig{Price: decimal.NewFromInt(2)},
		}}
		assert.Error(t, cfg.Validate())
	})

	t.Run("inner config disagrees with rule type", func(t *testing.T) {
		cfg := RuleConfig{CustomerSpecific: &CustomerSpecificConfig{
			CustomerType: "regular",
			RuleType:     RuleTypeQuantityTier,
			Fixed:        &FixedConfig{Price: decimal.NewFromInt(2)},
		}}
		assert.Error(t, cfg.Validate())
	})

	t.Run("matches by id or type", func(t *testing.T) {
		byID := &CustomerSpecificConfig{CustomerID: &customerID}
		assert.True(t, byID.Matches(42, "regular"))
		assert.False(t, byID.Matches(7, "regular"))

		byType := &CustomerSpecificConfig{CustomerType: "credit"}
		assert.True(t, byType.Matches(7, "credit"))
		assert.False(t, byType.Matches(7, "walk_in"))
	})
}

func TestRuleConfig_ScanValue(t *testing.T) {
	cfg := RuleConfig{QuantityTier: businessCardTiers()}
	raw, err := cfg.Value()
	require.NoError(t, err)

	var scanned RuleConfig
	require.NoError(t, scanned.Scan(raw))
	require.Equal(t, RuleTypeQuantityTier, scanned.Type())
	require.Len(t, scanned.QuantityTier.Bands, 4)
	assert.True(t, scanned.QuantityTier.Bands[1].Price.Equal(decimal.RequireFromString("0.75")))
	assert.Nil(t, scanned.QuantityTier.Bands[3].MaxQty)
}

// ===== Pricing Rule Tests =====

func TestNewPricingRule(t *testing.T) {
	rule, err := NewPricingRule(1, RuleConfig{QuantityTier: businessCardTiers()}, 10)
	require.NoError(t, err)
	assert.Equal(t, RuleTypeQuantityTier, rule.RuleType)
	assert.True(t, rule.IsActive)
	assert.Equal(t, 10, rule.Priority)

	_, err = NewPricingRule(0, RuleConfig{Fixed: &FixedConfig{Price: decimal.NewFromInt(1)}}, 0)
	assert.Error(t, err)

	_, err = NewPricingRule(1, RuleConfig{}, 0)
	assert.Error(t, err)
}

func TestPricingRule_IsApplicableAt(t *testing.T) {
	rule, err := NewPricingRule(1, RuleConfig{Fixed: &FixedConfig{Price: decimal.NewFromInt(1)}}, 0)
	require.NoError(t, err)

	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	until := time.Date(2026, 3, 31, 23, 59, 59, 0, time.UTC)
	require.NoError(t, rule.SetValidity(&from, &until))

	assert.False(t, rule.IsApplicableAt(from.Add(-time.Second)))
	assert.True(t, rule.IsApplicableAt(from))
	assert.True(t, rule.IsApplicableAt(until))
	assert.False(t, rule.IsApplicableAt(until.Add(time.Second)))

	require.NoError(t, rule.SetValidity(&from, nil))
	assert.True(t, rule.IsApplicableAt(from.AddDate(10, 0, 0)))

	rule.IsActive = false
	assert.False(t, rule.IsApplicableAt(from))

	assert.Error(t, rule.SetValidity(&until, &from))
}

func TestPricingRule_ValidateFor(t *testing.T) {
	tier, err := NewPricingRule(1, RuleConfig{QuantityTier: businessCardTiers()}, 0)
	require.NoError(t, err)
	assert.NoError(t, tier.ValidateFor(ProductTypeService))
	assert.Error(t, tier.ValidateFor(ProductTypeDimension))

	customerID := uint64(3)
	wrapped, err := NewPricingRule(1, RuleConfig{CustomerSpecific: &CustomerSpecificConfig{
		CustomerID: &customerID,
		RuleType:   RuleTypeFixed,
		Fixed:      &FixedConfig{Price: decimal.NewFromInt(1)},
	}}, 0)
	require.NoError(t, err)
	assert.NoError(t, wrapped.ValidateFor(ProductTypeInventory))
	assert.Error(t, wrapped.ValidateFor(ProductTypeDimension))
}
