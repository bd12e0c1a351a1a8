package order

import (
	"time"

	"github.com/manuerp/backend/internal/domain/shared"
)

// OrderStatus represents the workflow status of a sales order
type OrderStatus string

const (
	OrderStatusPending          OrderStatus = "PENDING"
	OrderStatusAccepted         OrderStatus = "ACCEPTED"
	OrderStatusScheduled        OrderStatus = "SCHEDULED_FOR_PRODUCTION"
	OrderStatusReadyForDispatch OrderStatus = "READY_FOR_DISPATCH"
	OrderStatusDispatched       OrderStatus = "DISPATCHED"
	OrderStatusDelivered        OrderStatus = "DELIVERED"
	OrderStatusCancelled        OrderStatus = "CANCELLED"
	OrderStatusReturned         OrderStatus = "RETURNED"
)

// IsValid checks if the status is a valid OrderStatus
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending, OrderStatusAccepted, OrderStatusScheduled,
		OrderStatusReadyForDispatch, OrderStatusDispatched,
		OrderStatusDelivered, OrderStatusCancelled, OrderStatusReturned:
		return true
	}
	return false
}

// String returns the string representation of OrderStatus
func (s OrderStatus) String() string {
	return string(s)
}

// IsTerminal reports whether no further transitions are allowed
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled || s == OrderStatusReturned
}

// CanTransitionTo checks if the status can transition to the target status.
// Cancellation is reachable from every pre-dispatch state; Returned is
// reachable once goods have left.
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	switch s {
	case OrderStatusPending:
		return target == OrderStatusAccepted || target == OrderStatusCancelled
	case OrderStatusAccepted:
		return target == OrderStatusScheduled || target == OrderStatusReadyForDispatch || target == OrderStatusCancelled
	case OrderStatusScheduled:
		return target == OrderStatusReadyForDispatch || target == OrderStatusCancelled
	case OrderStatusReadyForDispatch:
		return target == OrderStatusDispatched || target == OrderStatusCancelled
	case OrderStatusDispatched:
		// ReadyForDispatch covers the undispatch/re-queue flow.
		return target == OrderStatusDelivered || target == OrderStatusReturned || target == OrderStatusReadyForDispatch
	}
	return false
}

// Order is the aggregate root for a customer order. It owns its detail lines;
// all stock effects of status transitions go through movement operations, the
// order itself never touches stock columns.
type Order struct {
	shared.BaseAggregateRoot
	OrderNumber  string      `gorm:"type:varchar(50);not null;uniqueIndex"`
	CustomerName string      `gorm:"type:varchar(200);not null"`
	Status       OrderStatus `gorm:"type:varchar(30);not null;index"`
	Remark       string      `gorm:"type:varchar(500)"`
	SplitFromID  *int64      `gorm:"index"` // set on replacement orders created by a split
	AcceptedAt   *time.Time  `gorm:"type:timestamptz"`
	DispatchedAt *time.Time  `gorm:"type:timestamptz"`

	Details []OrderDetail `gorm:"foreignKey:OrderID"`
}

// TableName returns the table name for GORM
func (Order) TableName() string {
	return "orders"
}

// NewOrder creates a new order in Pending state
func NewOrder(orderNumber, customerName string) (*Order, error) {
	if orderNumber == "" {
		return nil, shared.NewValidationError("order number cannot be empty")
	}
	if customerName == "" {
		return nil, shared.NewValidationError("customer name cannot be empty")
	}

	return &Order{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		OrderNumber:       orderNumber,
		CustomerName:      customerName,
		Status:            OrderStatusPending,
		Details:           make([]OrderDetail, 0),
	}, nil
}

// AddDetail appends a line to a pending order
func (o *Order) AddDetail(detail OrderDetail) error {
	if o.Status != OrderStatusPending {
		return shared.NewDomainError("INVALID_STATE", "lines can only be added while the order is pending")
	}
	o.Details = append(o.Details, detail)
	o.Touch()
	return nil
}

// TransitionTo moves the order to the target status, enforcing the state
// machine. Stock side effects are the orchestrator's responsibility.
func (o *Order) TransitionTo(target OrderStatus) error {
	if !target.IsValid() {
		return shared.NewValidationError("unknown order status: " + target.String())
	}
	if !o.Status.CanTransitionTo(target) {
		return shared.NewDomainError("INVALID_STATE",
			"order cannot move from "+o.Status.String()+" to "+target.String())
	}

	o.Status = target
	now := time.Now()
	switch target {
	case OrderStatusAccepted:
		o.AcceptedAt = &now
	case OrderStatusDispatched:
		o.DispatchedAt = &now
	}
	o.Touch()
	o.IncrementVersion()
	return nil
}

// MarkSplit cancels the order with a split remark. A split is recorded as a
// remark on the cancelled original, not as a distinct status.
func (o *Order) MarkSplit(remark string) error {
	if err := o.TransitionTo(OrderStatusCancelled); err != nil {
		return err
	}
	o.Remark = remark
	return nil
}

// ActiveDetails returns lines that are not yet terminal
func (o *Order) ActiveDetails() []OrderDetail {
	active := make([]OrderDetail, 0, len(o.Details))
	for _, d := range o.Details {
		if !d.ReservationState.IsTerminal() {
			active = append(active, d)
		}
	}
	return active
}
