// Package transaction runs application use cases as one unit of work: the
// aggregate locks are held, every repository call shares one database
// transaction and domain events are published only after commit.
package transaction

import (
	"context"

	"github.com/printshop/backend/internal/domain/approval"
	"github.com/printshop/backend/internal/domain/catalog"
	"github.com/printshop/backend/internal/domain/numbering"
	"github.com/printshop/backend/internal/domain/partner"
	"github.com/printshop/backend/internal/domain/production"
	"github.com/printshop/backend/internal/domain/sales"
)

// Scope provides transactional access to the repositories.
// If fn returns an error the transaction is rolled back, otherwise it is committed.
type Scope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories gives access to every repository inside one
// transaction. All repositories returned share the same underlying transaction.
type TransactionalRepositories interface {
	Orders() sales.OrderRepository
	Invoices() sales.InvoiceRepository
	Payments() sales.PaymentRepository
	Quotations() sales.QuotationRepository
	Jobs() production.ServiceJobRepository
	Approvals() approval.Repository
	Customers() partner.CustomerRepository
	Products() catalog.ProductRepository
	PricingRules() catalog.PricingRuleRepository

	// Sequences issues document numbers; an aborted transaction leaves a gap.
	Sequences() numbering.Sequencer
}
