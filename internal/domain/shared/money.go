package shared

import "github.com/shopspring/decimal"

// MoneyPlaces is the number of decimal places kept for stored amounts.
const MoneyPlaces = 2

// RoundMoney rounds half away from zero to two places (half-up for the positive
// amounts prices are made of).
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}

// DecimalPtr returns a pointer to d.
func DecimalPtr(d decimal.Decimal) *decimal.Decimal {
	return &d
}
