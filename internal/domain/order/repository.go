package order

import (
	"context"

	"github.com/manuerp/backend/internal/domain/shared"
)

// OrderRepository defines persistence for orders and their lines
type OrderRepository interface {
	// FindByID finds an order by id, preloading its detail lines
	FindByID(ctx context.Context, id int64) (*Order, error)

	// FindByNumber finds an order by its order number
	FindByNumber(ctx context.Context, orderNumber string) (*Order, error)

	// FindByStatus lists orders with the given status
	FindByStatus(ctx context.Context, status OrderStatus, filter shared.Filter) ([]Order, int64, error)

	// Save creates or updates an order together with its lines
	Save(ctx context.Context, o *Order) error

	// SaveDetail persists a single line's state change
	SaveDetail(ctx context.Context, d *OrderDetail) error
}

// DispatchRepository defines persistence for dispatch records
type DispatchRepository interface {
	// FindByID finds a dispatch by id
	FindByID(ctx context.Context, id int64) (*Dispatch, error)

	// FindByOrder lists dispatches for an order
	FindByOrder(ctx context.Context, orderID int64) ([]Dispatch, error)

	// Save creates or updates a dispatch record
	Save(ctx context.Context, d *Dispatch) error
}
