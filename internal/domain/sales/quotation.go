package sales

import (
	"fmt"
	"strings"
	"time"

	"github.com/printshop/backend/internal/domain/ledger"
	"github.com/printshop/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// QuotationStatus represents the status of a quotation
type QuotationStatus string

const (
	QuotationStatusDraft     QuotationStatus = "draft"
	QuotationStatusSent      QuotationStatus = "sent"
	QuotationStatusAccepted  QuotationStatus = "accepted"
	QuotationStatusRejected  QuotationStatus = "rejected"
	QuotationStatusExpired   QuotationStatus = "expired"
	QuotationStatusConverted QuotationStatus = "converted"
)

// CanTransitionTo checks if the status can transition to the target status.
// Conversion goes through MarkConverted, not through this edge set.
func (s QuotationStatus) CanTransitionTo(target QuotationStatus) bool {
	switch s {
	case QuotationStatusDraft:
		return target == QuotationStatusSent || target == QuotationStatusRejected || target == QuotationStatusExpired
	case QuotationStatusSent:
		return target == QuotationStatusAccepted || target == QuotationStatusRejected || target == QuotationStatusExpired
	case QuotationStatusAccepted:
		return target == QuotationStatusExpired
	}
	return false
}

// QuotationItem is one priced line of a quotation
type QuotationItem struct {
	shared.BaseEntity
	QuotationID uint64 `gorm:"not null;index"`
	ItemDetails
}

// TableName returns the table name for GORM
func (QuotationItem) TableName() string {
	return "quotation_items"
}

func (i QuotationItem) lineTotal() decimal.Decimal { return i.LineTotal }

// Quotation is a priced offer that can be promoted into an order.
type Quotation struct {
	shared.BaseAggregateRoot
	QuotationNumber  string          `gorm:"type:varchar(30);not null;uniqueIndex"`
	CustomerID       *uint64         `gorm:"index"`
	Status           QuotationStatus `gorm:"type:varchar(20);not null;index"`
	PaymentTerms     PaymentTerms    `gorm:"type:varchar(20);not null"`
	ValidUntil       *time.Time
	ConvertedOrderID *uint64
	ledger.Figures
	CreatedBy shared.UserID   `gorm:"not null"`
	Notes     string          `gorm:"type:text"`
	Items     []QuotationItem `gorm:"foreignKey:QuotationID;references:ID"`
}

// TableName returns the table name for GORM
func (Quotation) TableName() string {
	return "quotations"
}

// NewQuotation creates a draft quotation
func NewQuotation(number string, customerID *uint64, terms PaymentTerms, validUntil *time.Time,
	taxRate decimal.Decimal, createdBy shared.UserID, notes string, now time.Time) (*Quotation, error) {
	if strings.TrimSpace(number) == "" {
		return nil, shared.NewValidationError("INVALID_QUOTATION_NUMBER", "Quotation number cannot be empty")
	}
	if !terms.IsValid() {
		return nil, shared.NewValidationError("INVALID_PAYMENT_TERMS", "Payment terms must be immediate, credit_30 or credit_60")
	}
	if terms.IsDeferred() && customerID == nil {
		return nil, shared.NewValidationError("CUSTOMER_REQUIRED", "Credit terms need a customer")
	}
	if validUntil != nil && validUntil.Before(now) {
		return nil, shared.NewValidationError("INVALID_VALID_UNTIL", "valid_until cannot be in the past")
	}
	if createdBy == 0 {
		return nil, shared.NewValidationError("ACTOR_REQUIRED", "A quotation needs the user who created it")
	}
	q := &Quotation{
		BaseAggregateRoot: shared.NewBaseAggregateRootAt(now),
		QuotationNumber:   number,
		CustomerID:        customerID,
		Status:            QuotationStatusDraft,
		PaymentTerms:      terms,
		ValidUntil:        validUntil,
		Figures:           ledger.NewFigures(taxRate),
		CreatedBy:         createdBy,
		Notes:             notes,
		Items:             make([]QuotationItem, 0),
	}
	return q, nil
}

// ItemLineTotals returns the line totals the ledger sums
func (q *Quotation) ItemLineTotals() []decimal.Decimal {
	return lineTotals(q.Items)
}

// AddItem appends a priced line to a draft quotation
func (q *Quotation) AddItem(details ItemDetails, now time.Time) error {
	if q.Status != QuotationStatusDraft {
		return shared.NewDomainError(shared.KindInvalidTransition, "QUOTATION_NOT_EDITABLE",
			"Only draft quotations can be changed").WithDetail("quotation_id", q.ID)
	}
	if err := details.Validate(); err != nil {
		return err
	}
	previous := append([]QuotationItem(nil), q.Items...)
	item := QuotationItem{BaseEntity: shared.NewBaseEntityAt(now), QuotationID: q.ID, ItemDetails: details}
	q.Items = append(q.Items, item)
	next, err := q.Figures.Recomputed(q.ItemLineTotals(), q.Figures.Discount())
	if err != nil {
		q.Items = previous
		return err
	}
	q.Figures = next
	q.Touch(now)
	return nil
}

// ApplyDiscount sets the quotation discount
func (q *Quotation) ApplyDiscount(discount ledger.Discount, now time.Time) error {
	if q.Status != QuotationStatusDraft {
		return shared.NewDomainError(shared.KindInvalidTransition, "QUOTATION_NOT_EDITABLE",
			"Only draft quotations can be changed").WithDetail("quotation_id", q.ID)
	}
	next, err := q.Figures.Recomputed(q.ItemLineTotals(), discount)
	if err != nil {
		return err
	}
	q.Figures = next
	q.Touch(now)
	return nil
}

// TransitionTo moves the quotation along its lifecycle
func (q *Quotation) TransitionTo(target QuotationStatus, now time.Time) error {
	if !q.Status.CanTransitionTo(target) {
		return shared.NewInvalidTransitionError(AggregateTypeQuotation, q.ID, string(q.Status), string(target))
	}
	if target == QuotationStatusSent && len(q.Items) == 0 {
		return shared.NewValidationError("QUOTATION_HAS_NO_ITEMS", "A quotation needs at least one item before it is sent")
	}
	if target == QuotationStatusAccepted && q.isPastValidity(now) {
		return shared.NewDomainError(shared.KindInvalidTransition, "QUOTATION_EXPIRED",
			fmt.Sprintf("quotation %s expired on %s", q.QuotationNumber, q.ValidUntil.Format(time.DateOnly)))
	}
	q.Status = target
	q.Touch(now)
	return nil
}

func (q *Quotation) isPastValidity(now time.Time) bool {
	return q.ValidUntil != nil && now.After(*q.ValidUntil)
}

// CanConvert reports why the quotation cannot become an order, or nil.
func (q *Quotation) CanConvert(now time.Time) error {
	switch q.Status {
	case QuotationStatusDraft, QuotationStatusSent, QuotationStatusAccepted:
	default:
		return shared.NewInvalidTransitionError(AggregateTypeQuotation, q.ID, string(q.Status), string(QuotationStatusConverted))
	}
	if q.isPastValidity(now) {
		return shared.NewDomainError(shared.KindInvalidTransition, "QUOTATION_EXPIRED",
			fmt.Sprintf("quotation %s expired on %s", q.QuotationNumber, q.ValidUntil.Format(time.DateOnly))).
			WithDetail("quotation_id", q.ID)
	}
	if len(q.Items) == 0 {
		return shared.NewValidationError("QUOTATION_HAS_NO_ITEMS", "A quotation without items cannot be converted").
			WithDetail("quotation_id", q.ID)
	}
	return nil
}

// MarkConverted links the quotation to the order created from it
func (q *Quotation) MarkConverted(orderID uint64, now time.Time) error {
	if err := q.CanConvert(now); err != nil {
		return err
	}
	q.Status = QuotationStatusConverted
	q.ConvertedOrderID = &orderID
	q.Touch(now)
	return nil
}
