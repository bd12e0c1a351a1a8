package order

import (
	"time"

	"github.com/manuerp/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// DispatchStatus tracks the lifecycle of a dispatch record
type DispatchStatus string

const (
	DispatchStatusDispatched DispatchStatus = "DISPATCHED"
	DispatchStatusDelivered  DispatchStatus = "DELIVERED"
	DispatchStatusReversed   DispatchStatus = "REVERSED" // undispatch: stock returned via a Return movement
)

// Dispatch records one physical dispatch of an order. The ledger rows created
// by the Consume movement reference this record, so reversing a dispatch
// never rewrites history; it creates Return rows instead.
type Dispatch struct {
	shared.BaseEntity
	OrderID       int64           `gorm:"not null;index"`
	VehicleNumber string          `gorm:"type:varchar(30)"`
	TotalQuantity decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	TotalWeightKg decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Status        DispatchStatus  `gorm:"type:varchar(20);not null;default:'DISPATCHED'"`
	DispatchedBy  string          `gorm:"type:varchar(100);not null"`
	DispatchedAt  time.Time       `gorm:"type:timestamptz;not null"`
}

// TableName returns the table name for GORM
func (Dispatch) TableName() string {
	return "dispatches"
}

// NewDispatch creates a dispatch record for an order
func NewDispatch(orderID int64, totalQty, totalWeightKg decimal.Decimal, dispatchedBy string) (*Dispatch, error) {
	if orderID <= 0 {
		return nil, shared.NewValidationError("order id is required")
	}
	if totalQty.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewValidationError("dispatch quantity must be positive")
	}
	if dispatchedBy == "" {
		return nil, shared.NewValidationError("dispatchedBy is required")
	}

	return &Dispatch{
		BaseEntity:    shared.NewBaseEntity(),
		OrderID:       orderID,
		TotalQuantity: totalQty,
		TotalWeightKg: totalWeightKg,
		Status:        DispatchStatusDispatched,
		DispatchedBy:  dispatchedBy,
		DispatchedAt:  time.Now(),
	}, nil
}

// MarkDelivered completes the dispatch
func (d *Dispatch) MarkDelivered() error {
	if d.Status != DispatchStatusDispatched {
		return shared.NewDomainError("INVALID_STATE", "only active dispatches can be delivered")
	}
	d.Status = DispatchStatusDelivered
	d.Touch()
	return nil
}

// MarkReversed records an undispatch
func (d *Dispatch) MarkReversed() error {
	if d.Status != DispatchStatusDispatched {
		return shared.NewDomainError("INVALID_STATE", "only active dispatches can be reversed")
	}
	d.Status = DispatchStatusReversed
	d.Touch()
	return nil
}
