package persistence

import (
	"context"

	"github.com/printshop/backend/internal/application/transaction"
	"github.com/printshop/backend/internal/domain/approval"
	"github.com/printshop/backend/internal/domain/catalog"
	"github.com/printshop/backend/internal/domain/numbering"
	"github.com/printshop/backend/internal/domain/partner"
	"github.com/printshop/backend/internal/domain/production"
	"github.com/printshop/backend/internal/domain/sales"
	"gorm.io/gorm"
)

// GormTransactionScope implements transaction.Scope using GORM transactions.
// It provides atomic execution of multiple repository operations.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
// If the function succeeds, the transaction is committed. Deadlocks and lock
// timeouts come back as retryable concurrency conflicts.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos transaction.TransactionalRepositories) error) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx})
	})
	return lockContention(err)
}

// gormTransactionalRepositories provides access to all repositories within a transaction.
type gormTransactionalRepositories struct {
	tx *gorm.DB
}

func (r *gormTransactionalRepositories) Orders() sales.OrderRepository {
	return NewGormOrderRepository(r.tx)
}

func (r *gormTransactionalRepositories) Invoices() sales.InvoiceRepository {
	return NewGormInvoiceRepository(r.tx)
}

func (r *gormTransactionalRepositories) Payments() sales.PaymentRepository {
	return NewGormPaymentRepository(r.tx)
}

func (r *gormTransactionalRepositories) Quotations() sales.QuotationRepository {
	return NewGormQuotationRepository(r.tx)
}

func (r *gormTransactionalRepositories) Jobs() production.ServiceJobRepository {
	return NewGormServiceJobRepository(r.tx)
}

func (r *gormTransactionalRepositories) Approvals() approval.Repository {
	return NewGormApprovalRepository(r.tx)
}

func (r *gormTransactionalRepositories) Customers() partner.CustomerRepository {
	return NewGormCustomerRepository(r.tx)
}

func (r *gormTransactionalRepositories) Products() catalog.ProductRepository {
	return NewGormProductRepository(r.tx)
}

func (r *gormTransactionalRepositories) PricingRules() catalog.PricingRuleRepository {
	return NewGormPricingRuleRepository(r.tx)
}

func (r *gormTransactionalRepositories) Sequences() numbering.Sequencer {
	return NewGormSequenceRepository(r.tx)
}

// Ensure GormTransactionScope implements Scope
var _ transaction.Scope = (*GormTransactionScope)(nil)

// Ensure gormTransactionalRepositories implements TransactionalRepositories
var _ transaction.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
