package inventory

import (
	"github.com/shopspring/decimal"
)

// Policy holds the configurable strictness knobs of the reservation
// coordinator and movement operations.
type Policy struct {
	// StrictReservation makes Reserve fail when it would push reserved past
	// available by more than OversoldTolerance. When false (the default), the
	// oversold state is tolerated and surfaced as a warning for staff to
	// reconcile.
	StrictReservation bool

	// OversoldTolerance is how far reserved may exceed available before a
	// strict reservation refuses.
	OversoldTolerance decimal.Decimal
}

// DefaultPolicy tolerates overselling, matching the historical behavior
func DefaultPolicy() Policy {
	return Policy{
		StrictReservation: false,
		OversoldTolerance: decimal.Zero,
	}
}

// RecordInwardInput records received material or goods
type RecordInwardInput struct {
	ProductID int64
	Quantity  decimal.Decimal
	WeightKg  decimal.Decimal
	InwardID  int64
	UnitPrice *decimal.Decimal
	CreatedBy string
	Notes     string
}

// RecordProductionConsumptionInput records raw material consumed by a batch
type RecordProductionConsumptionInput struct {
	ProductID int64
	Quantity  decimal.Decimal
	WeightKg  decimal.Decimal
	BatchID   int64
	CreatedBy string
	Notes     string
}

// RecordProductionOutputInput records finished goods produced by a batch
type RecordProductionOutputInput struct {
	ProductID int64
	Quantity  decimal.Decimal
	WeightKg  decimal.Decimal
	BatchID   int64
	CreatedBy string
	Notes     string
}

// RecordDispatchInput records stock leaving for an order
type RecordDispatchInput struct {
	ProductID int64
	Quantity  decimal.Decimal
	WeightKg  decimal.Decimal
	OrderID   int64
	CreatedBy string
	Notes     string
}

// RecordDiscardInput records damaged or expired stock written off
type RecordDiscardInput struct {
	ProductID int64
	Quantity  decimal.Decimal
	DiscardID int64
	CreatedBy string
	Notes     string
}

// RecordAdjustmentInput records a manual correction, signed
type RecordAdjustmentInput struct {
	ProductID int64
	Quantity  decimal.Decimal
	WeightKg  decimal.Decimal
	CreatedBy string
	Notes     string
}

// RecordReturnInput records stock coming back from a dispatch or order
type RecordReturnInput struct {
	ProductID int64
	Quantity  decimal.Decimal
	WeightKg  decimal.Decimal
	OrderID   int64
	CreatedBy string
	Notes     string
}
