// Package pricing resolves a unit price for a line item from a product's
// pricing rules.
//
// Rule selection works in two groups. Customer-specific rules that match the
// customer outrank generic rules; inside the winning group the highest priority
// wins and a tie at the top is reported as an ambiguous configuration instead of
// being broken arbitrarily. Prices are computed with decimal arithmetic and
// rounded once, on the unit price and on the line total.
package pricing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/printshop/backend/internal/domain/catalog"
	"github.com/printshop/backend/internal/domain/partner"
	"github.com/printshop/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Override is a manual unit price entered by a person.
type Override struct {
	UnitPrice decimal.Decimal
	Reason    string
}

// Request describes one line to price.
type Request struct {
	Product    *catalog.Product
	Rules      []catalog.PricingRule
	Quantity   int64
	Dimensions *Dimensions
	Customer   *partner.Customer
	At         time.Time
	Override   *Override
}

// Result is the priced line with its provenance.
type Result struct {
	UnitPrice      decimal.Decimal
	LineTotal      decimal.Decimal
	AppliedRuleID  *uint64
	RuleType       catalog.RuleType
	Overridden     bool
	OverrideReason string
}

// Resolver evaluates pricing rules. The zero value is not usable; use NewResolver.
type Resolver struct {
	evaluators map[catalog.RuleType]RuleEvaluator
}

// NewResolver creates a resolver with the quantity_tier, dimension and fixed shapes registered.
func NewResolver() *Resolver {
	r := &Resolver{evaluators: make(map[catalog.RuleType]RuleEvaluator)}
	r.Register(QuantityTierEvaluator{})
	r.Register(DimensionEvaluator{})
	r.Register(FixedEvaluator{})
	return r
}

// Register adds or replaces the evaluator for its rule type.
func (r *Resolver) Register(e RuleEvaluator) {
	r.evaluators[e.RuleType()] = e
}

// Resolve prices the request. With an override the rule lookup is skipped but
// the rule that would have applied is still reported for audit.
func (r *Resolver) Resolve(_ context.Context, req Request) (Result, error) {
	if req.Product == nil {
		return Result{}, shared.NewValidationError("PRODUCT_REQUIRED", "A product is required to resolve a price")
	}
	if !req.Product.IsActive {
		return Result{}, shared.NewValidationError("PRODUCT_INACTIVE",
			fmt.Sprintf("product %s is inactive", req.Product.SKU)).
			WithDetail("product_id", req.Product.ID)
	}
	if req.Quantity < 1 {
		return Result{}, shared.NewValidationError("INVALID_QUANTITY", "Quantity must be at least 1").
			WithDetail("quantity", req.Quantity)
	}
	if req.Product.Type == catalog.ProductTypeDimension && req.Dimensions == nil {
		return Result{}, shared.NewValidationError("DIMENSIONS_REQUIRED", "Dimension items need width, height and unit")
	}
	if req.Dimensions != nil {
		if err := req.Dimensions.Validate(); err != nil {
			return Result{}, err
		}
	}

	if req.Override != nil {
		return r.resolveOverride(req)
	}

	rule, err := r.selectRule(req)
	if err != nil {
		return Result{}, err
	}
	unit, shape, err := r.evaluate(rule, req)
	if err != nil {
		return Result{}, err
	}
	return r.result(unit, req.Quantity, &rule.ID, shape), nil
}

func (r *Resolver) resolveOverride(req Request) (Result, error) {
	if strings.TrimSpace(req.Override.Reason) == "" {
		return Result{}, shared.NewValidationError("OVERRIDE_REASON_REQUIRED", "A manual price needs a reason")
	}
	if req.Override.UnitPrice.IsNegative() {
		return Result{}, shared.NewValidationError("INVALID_UNIT_PRICE", "Unit price cannot be negative")
	}

	res := r.result(req.Override.UnitPrice, req.Quantity, nil, "")
	res.Overridden = true
	res.OverrideReason = strings.TrimSpace(req.Override.Reason)
	if rule, err := r.selectRule(req); err == nil {
		res.AppliedRuleID = &rule.ID
		res.RuleType = rule.RuleType
	}
	return res, nil
}

func (r *Resolver) result(unit decimal.Decimal, quantity int64, ruleID *uint64, shape catalog.RuleType) Result {
	unitPrice := shared.RoundMoney(unit)
	var id *uint64
	if ruleID != nil {
		v := *ruleID
		id = &v
	}
	return Result{
		UnitPrice:     unitPrice,
		LineTotal:     shared.RoundMoney(unitPrice.Mul(decimal.NewFromInt(quantity))),
		AppliedRuleID: id,
		RuleType:      shape,
	}
}

// selectRule returns the single winning rule or a configuration error.
func (r *Resolver) selectRule(req Request) (*catalog.PricingRule, error) {
	var specific, generic []*catalog.PricingRule
	for i := range req.Rules {
		rule := &req.Rules[i]
		if rule.ProductID != req.Product.ID || !rule.IsApplicableAt(req.At) {
			continue
		}
		if rule.ValidateFor(req.Product.Type) != nil {
			continue
		}
		if rule.RuleType == catalog.RuleTypeCustomerSpecific {
			if req.Customer == nil ||
				!rule.Config.CustomerSpecific.Matches(req.Customer.ID, string(req.Customer.Type)) {
				continue
			}
			specific = append(specific, rule)
			continue
		}
		generic = append(generic, rule)
	}

	candidates := generic
	if len(specific) > 0 {
		candidates = specific
	}
	if len(candidates) == 0 {
		return nil, shared.NewConfigurationError("NO_PRICING_RULE",
			fmt.Sprintf("no applicable pricing rule for product %s", req.Product.SKU)).
			WithDetail("product_id", req.Product.ID)
	}

	best := candidates[0]
	tied := []uint64{best.ID}
	for _, rule := range candidates[1:] {
		switch {
		case rule.Priority > best.Priority:
			best = rule
			tied = []uint64{rule.ID}
		case rule.Priority == best.Priority:
			tied = append(tied, rule.ID)
		}
	}
	if len(tied) > 1 {
		return nil, shared.NewConfigurationError("AMBIGUOUS_PRICING_RULE",
			fmt.Sprintf("%d pricing rules share priority %d for product %s", len(tied), best.Priority, req.Product.SKU)).
			WithDetail("product_id", req.Product.ID).
			WithDetail("rule_ids", tied).
			WithDetail("priority", best.Priority)
	}
	return best, nil
}

func (r *Resolver) evaluate(rule *catalog.PricingRule, req Request) (decimal.Decimal, catalog.RuleType, error) {
	config := rule.Config
	shape := rule.RuleType
	if shape == catalog.RuleTypeCustomerSpecific {
		config = rule.Config.CustomerSpecific.Inner()
		shape = rule.Config.CustomerSpecific.RuleType
	}
	evaluator, ok := r.evaluators[shape]
	if !ok {
		return decimal.Zero, "", shared.NewConfigurationError("UNSUPPORTED_RULE_TYPE",
			fmt.Sprintf("no evaluator registered for %s", shape))
	}
	unit, err := evaluator.UnitPrice(config, Input{Quantity: req.Quantity, Dimensions: req.Dimensions})
	if err != nil {
		if de, ok := shared.AsDomainError(err); ok {
			return decimal.Zero, "", de.WithDetail("rule_id", rule.ID)
		}
		return decimal.Zero, "", err
	}
	return unit, rule.RuleType, nil
}
