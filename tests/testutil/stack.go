package testutil

import (
	"context"
	"testing"
	"time"

	appapproval "github.com/printshop/backend/internal/application/approval"
	appcatalog "github.com/printshop/backend/internal/application/catalog"
	apppricing "github.com/printshop/backend/internal/application/pricing"
	appproduction "github.com/printshop/backend/internal/application/production"
	appsales "github.com/printshop/backend/internal/application/sales"
	"github.com/printshop/backend/internal/application/transaction"
	"github.com/printshop/backend/internal/domain/catalog"
	"github.com/printshop/backend/internal/domain/credit"
	"github.com/printshop/backend/internal/domain/partner"
	domainpricing "github.com/printshop/backend/internal/domain/pricing"
	"github.com/printshop/backend/internal/domain/sales"
	"github.com/printshop/backend/internal/domain/shared"
	"github.com/printshop/backend/internal/infrastructure/cache"
	"github.com/printshop/backend/internal/infrastructure/persistence"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// DefaultNow is where every Stack clock starts.
var DefaultNow = time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)

// DefaultPolicy is 10% tax and a 10% counter discount limit.
var DefaultPolicy = appsales.Policy{
	TaxRate:                     decimal.RequireFromString("0.10"),
	CounterDiscountLimitPercent: decimal.NewFromInt(10),
}

// ApproverRoles holds the roles allowed to resolve approvals in tests.
var ApproverRoles = []string{"manager", "admin"}

// Stack is every application service wired over one in-memory database.
type Stack struct {
	DB         *persistence.Database
	Clock      *Clock
	Events     *RecordingPublisher
	References *cache.InMemoryIdempotencyStore
	Runner     *transaction.Runner

	Pricing    *apppricing.Service
	Orders     *appsales.OrderService
	Payments   *appsales.PaymentService
	Invoices   *appsales.InvoiceService
	Quotations *appsales.QuotationService
	Jobs       *appproduction.JobService
	Approvals  *appapproval.Service
	Catalog    *appcatalog.Service
}

// NewStack builds a Stack with DefaultPolicy
func NewStack(t *testing.T) *Stack {
	t.Helper()
	return NewStackWithPolicy(t, DefaultPolicy)
}

// NewStackWithPolicy builds a Stack with the given sales policy
func NewStackWithPolicy(t *testing.T, policy appsales.Policy) *Stack {
	t.Helper()

	db := NewSQLiteDB(t)
	clock := NewClock(DefaultNow)
	events := NewRecordingPublisher()
	runner := NewRunner(db.DB, events, clock)
	references := NewReferenceStore(t)
	pricer := apppricing.NewService(runner, domainpricing.NewResolver())

	return &Stack{
		DB:         db,
		Clock:      clock,
		Events:     events,
		References: references,
		Runner:     runner,
		Pricing:    pricer,
		Orders:     appsales.NewOrderService(runner, pricer, credit.NewGuard(), policy),
		Payments:   appsales.NewPaymentService(runner, references, time.Hour),
		Invoices:   appsales.NewInvoiceService(runner),
		Quotations: appsales.NewQuotationService(runner, pricer, policy),
		Jobs:       appproduction.NewJobService(runner),
		Approvals:  appapproval.NewService(runner, ApproverRoles),
		Catalog:    appcatalog.NewService(runner),
	}
}

// SeedProduct stores an active product with a zero unit cost.
func (s *Stack) SeedProduct(t *testing.T, sku string, productType catalog.ProductType) *catalog.Product {
	t.Helper()
	p, err := catalog.NewProduct(sku, "Product "+sku, productType, decimal.Zero)
	require.NoError(t, err)
	require.NoError(t, persistence.NewGormProductRepository(s.DB.DB).Save(context.Background(), p))
	return p
}

// SeedRule stores a pricing rule for productID
func (s *Stack) SeedRule(t *testing.T, productID uint64, cfg catalog.RuleConfig, priority int) *catalog.PricingRule {
	t.Helper()
	rule, err := catalog.NewPricingRule(productID, cfg, priority)
	require.NoError(t, err)
	require.NoError(t, persistence.NewGormPricingRuleRepository(s.DB.DB).Save(context.Background(), rule))
	return rule
}

// SeedFixedProduct stores a product priced at a fixed unit price.
func (s *Stack) SeedFixedProduct(t *testing.T, sku string, productType catalog.ProductType, price string) *catalog.Product {
	t.Helper()
	p := s.SeedProduct(t, sku, productType)
	s.SeedRule(t, p.ID, catalog.RuleConfig{Fixed: &catalog.FixedConfig{Price: decimal.RequireFromString(price)}}, 0)
	return p
}

// SeedCustomer stores an active customer of the given type.
func (s *Stack) SeedCustomer(t *testing.T, name string, customerType partner.CustomerType) *partner.Customer {
	t.Helper()
	c, err := partner.NewCustomer(name, customerType)
	require.NoError(t, err)
	require.NoError(t, persistence.NewGormCustomerRepository(s.DB.DB).Save(context.Background(), c))
	return c
}

// SeedCreditCustomer stores a credit customer with limit and settlement period.
func (s *Stack) SeedCreditCustomer(t *testing.T, name, limit string, periodDays int) *partner.Customer {
	t.Helper()
	c, err := partner.NewCreditCustomer(name, decimal.RequireFromString(limit), periodDays)
	require.NoError(t, err)
	require.NoError(t, persistence.NewGormCustomerRepository(s.DB.DB).Save(context.Background(), c))
	return c
}

// Line builds a priced-by-rule order line
func Line(productID uint64, quantity int64) apppricing.LineInput {
	return apppricing.LineInput{ProductID: productID, Quantity: quantity}
}

// CreateOrder creates a DRAFT order with lines as the clerk
func (s *Stack) CreateOrder(t *testing.T, customerID *uint64, terms string, lines ...apppricing.LineInput) *appsales.OrderResponse {
	t.Helper()
	req := appsales.CreateOrderRequest{
		CustomerID:   customerID,
		OrderType:    sales.OrderTypeCounter,
		PaymentTerms: sales.PaymentTerms(terms),
		Items:        lines,
	}
	order, err := s.Orders.CreateOrder(context.Background(), ClerkID, req)
	require.NoError(t, err)
	return order
}

// SubmitOrder moves an order to PENDING_PAYMENT
func (s *Stack) SubmitOrder(t *testing.T, orderID uint64) *appsales.OrderResponse {
	t.Helper()
	order, err := s.Orders.UpdateOrderStatus(context.Background(), orderID, ClerkID,
		appsales.UpdateOrderStatusRequest{Status: "PENDING_PAYMENT"})
	require.NoError(t, err)
	return order
}

// Pay records a cash payment of amount against orderID
func (s *Stack) Pay(t *testing.T, orderID uint64, amount string) *appsales.PaymentResponse {
	t.Helper()
	payment, err := s.Payments.RecordPayment(context.Background(), ClerkID, appsales.RecordPaymentRequest{
		OrderID: &orderID,
		Amount:  decimal.RequireFromString(amount),
		Method:  "cash",
	})
	require.NoError(t, err)
	return payment
}

// MoveOrder moves an order to status as the clerk
func (s *Stack) MoveOrder(t *testing.T, orderID uint64, status string) *appsales.OrderResponse {
	t.Helper()
	order, err := s.Orders.UpdateOrderStatus(context.Background(), orderID, ClerkID,
		appsales.UpdateOrderStatusRequest{Status: sales.OrderStatus(status)})
	require.NoError(t, err)
	return order
}

// ApproveAs files and approves a request on behalf of the manager.
func (s *Stack) ApproveAs(t *testing.T, req appapproval.RequestApprovalRequest) *appsales.ApprovalResponse {
	t.Helper()
	ctx := context.Background()
	pending, err := s.Approvals.RequestApproval(ctx, ClerkID, req)
	require.NoError(t, err)
	resolved, err := s.Approvals.ResolveApproval(ctx, pending.ID, ManagerID, "manager",
		appapproval.ResolveApprovalRequest{Decision: "approve"})
	require.NoError(t, err)
	return resolved
}

// Ptr returns a pointer to v
func Ptr[T any](v T) *T {
	return &v
}

// Dec parses a decimal literal
func Dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// DecPtr parses a decimal literal into a pointer
func DecPtr(s string) *decimal.Decimal {
	return shared.DecimalPtr(decimal.RequireFromString(s))
}
