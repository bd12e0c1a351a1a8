package inventory

import (
	"context"

	"github.com/manuerp/backend/internal/domain/inventory"
	"github.com/manuerp/backend/internal/domain/order"
	"github.com/manuerp/backend/internal/domain/product"
	"github.com/manuerp/backend/internal/domain/production"
)

// TransactionScope provides transactional access to the repositories a stock
// movement touches. Everything executed within one scope commits or rolls
// back atomically; the balance update and its ledger insert are never split
// across transactions.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to all repositories within a
// transaction. All repositories returned share the same underlying database
// transaction.
//
// The StockStore is the only writer of stock columns; orchestrators go
// through movement operations rather than reaching for it directly.
type TransactionalRepositories interface {
	// Stock returns the stock store scoped to the current transaction
	Stock() inventory.StockStore
	// Ledger returns the append-only ledger repository
	Ledger() inventory.LedgerRepository
	// MasterProducts returns the master product repository
	MasterProducts() product.MasterProductRepository
	// Products returns the SKU repository
	Products() product.ProductRepository
	// Orders returns the order repository
	Orders() order.OrderRepository
	// Dispatches returns the dispatch repository
	Dispatches() order.DispatchRepository
	// Batches returns the production batch repository
	Batches() production.BatchRepository
}

// NoOpTransactionScope runs functions without a real transaction. Useful for
// tests backed by in-memory repositories that have no rollback semantics.
type NoOpTransactionScope struct {
	Repos TransactionalRepositories
}

// Execute runs the function directly against the configured repositories
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s.Repos)
}

var _ TransactionScope = (*NoOpTransactionScope)(nil)
