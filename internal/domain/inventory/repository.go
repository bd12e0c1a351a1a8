package inventory

import (
	"context"
	"time"

	"github.com/manuerp/backend/internal/domain/product"
	"github.com/manuerp/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// StockField selects which counter a stock adjustment targets
type StockField string

const (
	FieldAvailable StockField = "available"
	FieldReserved  StockField = "reserved"
)

// Adjustment is the outcome of a single stock counter mutation
type Adjustment struct {
	Before decimal.Decimal
	After  decimal.Decimal
}

// Delta returns the applied change, which may be smaller in magnitude than
// the requested delta when the zero floor clamped the update.
func (a Adjustment) Delta() decimal.Decimal {
	return a.After.Sub(a.Before)
}

// StockStore is the only component permitted to write stock columns. It
// provides atomic read-modify-write with a floor at zero, executed under a
// per-row lock inside the ambient transaction. Business logic depends on this
// interface, never on direct table access, so the locking strategy can change
// without touching callers.
type StockStore interface {
	// Adjust applies delta to the chosen field of the referenced product and
	// returns the before/after values. Negative results are clamped to zero;
	// callers that must refuse rather than truncate pre-check via Peek.
	Adjust(ctx context.Context, ref product.ProductRef, field StockField, delta decimal.Decimal) (Adjustment, error)

	// AdjustWeight applies delta to the weight column paired with the field.
	// Material masters track a single available weight; SKUs track available
	// and reserved weight separately.
	AdjustWeight(ctx context.Context, ref product.ProductRef, field StockField, deltaKg decimal.Decimal) (Adjustment, error)

	// Peek reads the current value of the chosen field under the same row
	// lock the subsequent Adjust will take.
	Peek(ctx context.Context, ref product.ProductRef, field StockField) (decimal.Decimal, error)
}

// LedgerRepository is the append-only store for inventory transactions.
// There is deliberately no update or delete operation.
type LedgerRepository interface {
	// Append inserts a new ledger row
	Append(ctx context.Context, tx *InventoryTransaction) error

	// FindByID finds a ledger row by id
	FindByID(ctx context.Context, id int64) (*InventoryTransaction, error)

	// FindByProduct lists ledger rows for a product reference, newest first
	FindByProduct(ctx context.Context, ref product.ProductRef, filter shared.Filter) ([]InventoryTransaction, int64, error)

	// FindByReference lists ledger rows caused by a business document. A zero
	// refID lists every row of the reference type.
	FindByReference(ctx context.Context, refType ReferenceType, refID int64) ([]InventoryTransaction, error)

	// FindByDateRange lists ledger rows in [start, end), newest first
	FindByDateRange(ctx context.Context, start, end time.Time, filter shared.Filter) ([]InventoryTransaction, int64, error)
}
