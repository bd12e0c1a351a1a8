package order

import (
	"github.com/shopspring/decimal"
)

// OrderLineInput is one requested line of a new order
type OrderLineInput struct {
	ProductID int64
	Quantity  decimal.Decimal
	WeightKg  decimal.Decimal
}

// CreateOrderInput creates a pending order. OrderNumber may be empty, in
// which case one is generated.
type CreateOrderInput struct {
	OrderNumber  string
	CustomerName string
	Lines        []OrderLineInput
}

// DispatchOrderInput dispatches a ready order
type DispatchOrderInput struct {
	OrderID       int64
	VehicleNumber string
	DispatchedBy  string
}

// SplitOrderInput splits an order's lines into replacement orders. Each
// element of Assignments lists the detail ids of one replacement order; every
// non-terminal line of the original must appear in exactly one group.
type SplitOrderInput struct {
	OrderID     int64
	Assignments [][]int64
	RequestedBy string
}
