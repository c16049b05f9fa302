// Package ledger derives the financial figures of orders, quotations and
// invoices. Every function is pure: the same inputs always produce the same
// figures, so callers recompute from line items instead of trusting stored totals.
package ledger

import (
	"fmt"
	"strings"

	"github.com/printshop/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Discount is either a flat amount or a percentage of the subtotal. The zero value is no discount.
type Discount struct {
	Amount  decimal.Decimal
	Percent *decimal.Decimal
	Reason  string
}

// FlatDiscount returns a flat amount discount
func FlatDiscount(amount decimal.Decimal, reason string) Discount {
	return Discount{Amount: amount, Reason: reason}
}

// PercentDiscount returns a percentage discount
func PercentDiscount(percent decimal.Decimal, reason string) Discount {
	return Discount{Percent: &percent, Reason: reason}
}

// IsZero reports whether the discount takes nothing off.
func (d Discount) IsZero() bool {
	if d.Percent != nil {
		return d.Percent.IsZero()
	}
	return d.Amount.IsZero()
}

// AmountOf resolves the discount against subtotal, rounded to cents.
func (d Discount) AmountOf(subtotal decimal.Decimal) (decimal.Decimal, error) {
	var amount decimal.Decimal
	if d.Percent != nil {
		if d.Percent.IsNegative() || d.Percent.GreaterThan(hundred) {
			return decimal.Zero, shared.NewValidationError("INVALID_DISCOUNT_PERCENT", "Discount percent must be between 0 and 100").
				WithDetail("percent", d.Percent.String())
		}
		amount = shared.RoundMoney(subtotal.Mul(*d.Percent).Div(hundred))
	} else {
		if d.Amount.IsNegative() {
			return decimal.Zero, shared.NewValidationError("NEGATIVE_DISCOUNT", "Discount cannot be negative").
				WithDetail("amount", d.Amount.String())
		}
		amount = shared.RoundMoney(d.Amount)
	}
	if amount.GreaterThan(subtotal) {
		return decimal.Zero, shared.NewValidationError("DISCOUNT_EXCEEDS_SUBTOTAL",
			fmt.Sprintf("discount %s exceeds subtotal %s", amount, subtotal)).
			WithDetail("discount", amount.String()).
			WithDetail("subtotal", subtotal.String())
	}
	return amount, nil
}

// Totals are the figures derived from line items, discount and tax.
type Totals struct {
	Subtotal decimal.Decimal
	Discount decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

// Recompute derives totals from line totals. tax = round2((subtotal - discount) × taxRate).
func Recompute(lineTotals []decimal.Decimal, discount Discount, taxRate decimal.Decimal) (Totals, error) {
	if taxRate.IsNegative() {
		return Totals{}, shared.NewConfigurationError("INVALID_TAX_RATE", "Tax rate cannot be negative")
	}
	subtotal := decimal.Zero
	for _, lt := range lineTotals {
		subtotal = subtotal.Add(lt)
	}
	discountAmount, err := discount.AmountOf(subtotal)
	if err != nil {
		return Totals{}, err
	}
	taxable := subtotal.Sub(discountAmount)
	tax := shared.RoundMoney(taxable.Mul(taxRate))
	return Totals{
		Subtotal: subtotal,
		Discount: discountAmount,
		Tax:      tax,
		Total:    taxable.Add(tax),
	}, nil
}

// Settlement is the paid side of the ledger.
type Settlement struct {
	PaidAmount decimal.Decimal
	Balance    decimal.Decimal
}

// ApplyPayment returns total - paid as a signed balance. A negative balance is
// an overpayment and is reported as such.
func ApplyPayment(total, paid decimal.Decimal) Settlement {
	return Settlement{PaidAmount: paid, Balance: total.Sub(paid)}
}

// Figures is the stored snapshot of a document's ledger. It is embedded in
// orders, quotations and invoices.
type Figures struct {
	Subtotal        decimal.Decimal  `gorm:"type:decimal(18,2);not null;default:0" json:"subtotal"`
	DiscountAmount  decimal.Decimal  `gorm:"column:discount;type:decimal(18,2);not null;default:0" json:"discount"`
	DiscountPercent *decimal.Decimal `gorm:"type:decimal(5,2)" json:"discount_percent,omitempty"`
	DiscountReason  string           `gorm:"type:varchar(500)" json:"discount_reason,omitempty"`
	Tax             decimal.Decimal  `gorm:"type:decimal(18,2);not null;default:0" json:"tax"`
	TaxRate         decimal.Decimal  `gorm:"type:decimal(7,4);not null;default:0" json:"tax_rate"`
	Total           decimal.Decimal  `gorm:"type:decimal(18,2);not null;default:0" json:"total"`
	PaidAmount      decimal.Decimal  `gorm:"type:decimal(18,2);not null;default:0" json:"paid_amount"`
	Balance         decimal.Decimal  `gorm:"type:decimal(18,2);not null;default:0" json:"balance"`
}

// NewFigures returns zeroed figures using taxRate for future recomputes.
func NewFigures(taxRate decimal.Decimal) Figures {
	return Figures{
		Subtotal:       decimal.Zero,
		DiscountAmount: decimal.Zero,
		Tax:            decimal.Zero,
		TaxRate:        taxRate,
		Total:          decimal.Zero,
		PaidAmount:     decimal.Zero,
		Balance:        decimal.Zero,
	}
}

// Discount returns the stored discount as a Discount value.
func (f Figures) Discount() Discount {
	if f.DiscountPercent != nil {
		return PercentDiscount(*f.DiscountPercent, f.DiscountReason)
	}
	return FlatDiscount(f.DiscountAmount, f.DiscountReason)
}

// Recomputed returns a copy of f with totals derived from lineTotals under
// discount. Paid amount is kept and the balance follows. f is untouched on error.
func (f Figures) Recomputed(lineTotals []decimal.Decimal, discount Discount) (Figures, error) {
	totals, err := Recompute(lineTotals, discount, f.TaxRate)
	if err != nil {
		return f, err
	}
	next := f
	next.Subtotal = totals.Subtotal
	next.DiscountAmount = totals.Discount
	next.DiscountPercent = nil
	if discount.Percent != nil {
		p := *discount.Percent
		next.DiscountPercent = &p
	}
	next.DiscountReason = strings.TrimSpace(discount.Reason)
	next.Tax = totals.Tax
	next.Total = totals.Total
	next.Balance = ApplyPayment(next.Total, next.PaidAmount).Balance
	return next, nil
}

// WithPayment returns a copy of f with amount added to the paid side.
func (f Figures) WithPayment(amount decimal.Decimal) Figures {
	next := f
	s := ApplyPayment(f.Total, f.PaidAmount.Add(amount))
	next.PaidAmount = s.PaidAmount
	next.Balance = s.Balance
	return next
}

// IsSettled reports whether nothing is left to pay.
func (f Figures) IsSettled() bool {
	return !f.Balance.IsPositive()
}

// Consistent reports whether the stored figures satisfy the ledger invariants for lineTotals.
func (f Figures) Consistent(lineTotals []decimal.Decimal) bool {
	sum := decimal.Zero
	for _, lt := range lineTotals {
		sum = sum.Add(lt)
	}
	return f.Subtotal.Equal(sum) &&
		f.Balance.Equal(f.Total.Sub(f.PaidAmount)) &&
		f.Total.Equal(f.Subtotal.Sub(f.DiscountAmount).Add(f.Tax))
}
