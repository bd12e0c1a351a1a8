package order

import (
	"github.com/manuerp/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// ReservationState tracks the reservation lifecycle of one order line.
// Consumed and Released are terminal: reservations and releases must net to
// zero once a line reaches either.
type ReservationState string

const (
	ReservationUnreserved ReservationState = "UNRESERVED"
	ReservationReserved   ReservationState = "RESERVED"
	ReservationConsumed   ReservationState = "CONSUMED"
	ReservationReleased   ReservationState = "RELEASED"
)

// IsTerminal reports whether the line's reservation lifecycle has finished
func (s ReservationState) IsTerminal() bool {
	return s == ReservationConsumed || s == ReservationReleased
}

// String returns the string representation of ReservationState
func (s ReservationState) String() string {
	return string(s)
}

// OrderDetail is one line of an order: a SKU and a quantity, plus the
// reservation bookkeeping for that quantity. ReservedFG mirrors whether this
// line currently contributes to the SKU's reserved counter.
type OrderDetail struct {
	shared.BaseEntity
	OrderID          int64            `gorm:"not null;index"`
	ProductID        int64            `gorm:"not null;index"` // FG SKU id
	Quantity         decimal.Decimal  `gorm:"type:decimal(18,4);not null"`
	WeightKg         decimal.Decimal  `gorm:"type:decimal(18,4);not null;default:0"`
	ReservedFG       bool             `gorm:"not null;default:false"`
	ReservationState ReservationState `gorm:"type:varchar(20);not null;default:'UNRESERVED'"`
}

// TableName returns the table name for GORM
func (OrderDetail) TableName() string {
	return "order_details"
}

// NewOrderDetail creates a new unreserved order line
func NewOrderDetail(productID int64, quantity, weightKg decimal.Decimal) (*OrderDetail, error) {
	if productID <= 0 {
		return nil, shared.NewValidationError("product id is required")
	}
	if quantity.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewValidationError("line quantity must be positive")
	}
	if weightKg.IsNegative() {
		return nil, shared.NewValidationError("line weight cannot be negative")
	}

	return &OrderDetail{
		BaseEntity:       shared.NewBaseEntity(),
		ProductID:        productID,
		Quantity:         quantity,
		WeightKg:         weightKg,
		ReservationState: ReservationUnreserved,
	}, nil
}

// MarkReserved records that the line's quantity has been added to the SKU's
// reserved counter.
func (d *OrderDetail) MarkReserved() error {
	if d.ReservationState != ReservationUnreserved {
		return shared.NewDomainError("INVALID_STATE",
			"line is "+d.ReservationState.String()+", only unreserved lines can be reserved")
	}
	d.ReservationState = ReservationReserved
	d.ReservedFG = true
	d.Touch()
	return nil
}

// MarkReleased records that the reservation was given back (cancellation,
// return, or removal during a split). Terminal.
func (d *OrderDetail) MarkReleased() error {
	if d.ReservationState != ReservationReserved {
		return shared.NewDomainError("INVALID_STATE",
			"line is "+d.ReservationState.String()+", only reserved lines can be released")
	}
	d.ReservationState = ReservationReleased
	d.ReservedFG = false
	d.Touch()
	return nil
}

// MarkConsumed records that the reservation was converted into a real stock
// deduction at dispatch. Terminal.
func (d *OrderDetail) MarkConsumed() error {
	if d.ReservationState != ReservationReserved {
		return shared.NewDomainError("INVALID_STATE",
			"line is "+d.ReservationState.String()+", only reserved lines can be consumed")
	}
	d.ReservationState = ReservationConsumed
	d.ReservedFG = false
	d.Touch()
	return nil
}

// Reopen resets a terminal line back to Unreserved for the undispatch flow,
// where availability has already been restored by an explicit Return movement
// and the line must be re-reserved as a separate step.
func (d *OrderDetail) Reopen() error {
	if !d.ReservationState.IsTerminal() {
		return shared.NewDomainError("INVALID_STATE", "only terminal lines can be reopened")
	}
	d.ReservationState = ReservationUnreserved
	d.ReservedFG = false
	d.Touch()
	return nil
}
