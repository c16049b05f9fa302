package partner

import (
	"strings"
	"time"

	"github.com/printshop/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// CustomerType represents the type of customer
type CustomerType string

const (
	CustomerTypeWalkIn  CustomerType = "walk_in"
	CustomerTypeRegular CustomerType = "regular"
	CustomerTypeCredit  CustomerType = "credit" // Subject to credit limit and overdue checks
)

// IsValid checks if the customer type is valid
func (t CustomerType) IsValid() bool {
	switch t {
	case CustomerTypeWalkIn, CustomerTypeRegular, CustomerTypeCredit:
		return true
	}
	return false
}

// Customer is the credit profile consulted by pricing and the credit guard.
// CreditBalance is owned by the payment-recording side and is never written by
// the order flow.
type Customer struct {
	shared.BaseAggregateRoot
	Name             string          `gorm:"type:varchar(200);not null"`
	Type             CustomerType    `gorm:"type:varchar(20);not null"`
	Phone            string          `gorm:"type:varchar(50);index"`
	Email            string          `gorm:"type:varchar(200)"`
	CreditLimit      decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	CreditBalance    decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	CreditPeriodDays int             `gorm:"not null;default:0"`
	IsActive         bool            `gorm:"not null"`
}

// TableName returns the table name for GORM
func (Customer) TableName() string {
	return "customers"
}

// NewCustomer creates a new active customer
func NewCustomer(name string, customerType CustomerType) (*Customer, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > 200 {
		return nil, shared.NewValidationError("INVALID_CUSTOMER_NAME", "Customer name must be 1-200 characters")
	}
	if !customerType.IsValid() {
		return nil, shared.NewValidationError("INVALID_CUSTOMER_TYPE", "Customer type must be walk_in, regular or credit")
	}

	return &Customer{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Name:              name,
		Type:              customerType,
		CreditLimit:       decimal.Zero,
		CreditBalance:     decimal.Zero,
		IsActive:          true,
	}, nil
}

// NewCreditCustomer creates a credit customer with its limit and settlement period
func NewCreditCustomer(name string, limit decimal.Decimal, periodDays int) (*Customer, error) {
	c, err := NewCustomer(name, CustomerTypeCredit)
	if err != nil {
		return nil, err
	}
	if err := c.SetCreditTerms(limit, periodDays); err != nil {
		return nil, err
	}
	return c, nil
}

// IsCredit reports whether the customer is subject to credit checks
func (c *Customer) IsCredit() bool {
	return c.Type == CustomerTypeCredit
}

// SetCreditTerms updates the credit limit and settlement period
func (c *Customer) SetCreditTerms(limit decimal.Decimal, periodDays int) error {
	if limit.IsNegative() {
		return shared.NewValidationError("INVALID_CREDIT_LIMIT", "Credit limit cannot be negative")
	}
	if periodDays < 0 {
		return shared.NewValidationError("INVALID_CREDIT_PERIOD", "Credit period cannot be negative")
	}
	c.CreditLimit = limit
	c.CreditPeriodDays = periodDays
	c.Touch(time.Now())
	return nil
}

// AvailableCredit returns limit minus balance; negative when already over the limit.
func (c *Customer) AvailableCredit() decimal.Decimal {
	return c.CreditLimit.Sub(c.CreditBalance)
}

// DueDateFrom returns the settlement due date for an invoice issued at issuedAt.
func (c *Customer) DueDateFrom(issuedAt time.Time) time.Time {
	return issuedAt.AddDate(0, 0, c.CreditPeriodDays)
}
