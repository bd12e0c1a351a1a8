package persistence

import (
	"context"
	"errors"

	"github.com/manuerp/backend/internal/domain/order"
	"github.com/manuerp/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormOrderRepository implements OrderRepository using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// FindByID finds an order by id, preloading its detail lines
func (r *GormOrderRepository) FindByID(ctx context.Context, id int64) (*order.Order, error) {
	var o order.Order
	err := r.db.WithContext(ctx).
		Preload("Details").
		First(&o, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("order", id)
		}
		return nil, err
	}
	return &o, nil
}

// FindByNumber finds an order by its order number
func (r *GormOrderRepository) FindByNumber(ctx context.Context, orderNumber string) (*order.Order, error) {
	var o order.Order
	err := r.db.WithContext(ctx).
		Preload("Details").
		Where("order_number = ?", orderNumber).
		First(&o).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("order "+orderNumber, 0)
		}
		return nil, err
	}
	return &o, nil
}

// FindByStatus lists orders with the given status
func (r *GormOrderRepository) FindByStatus(ctx context.Context, status order.OrderStatus, filter shared.Filter) ([]order.Order, int64, error) {
	query := r.db.WithContext(ctx).Model(&order.Order{}).
		Where("status = ?", status)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var orders []order.Order
	err := query.
		Preload("Details").
		Order("created_at DESC, id DESC").
		Offset(filter.Offset()).
		Limit(filter.Limit()).
		Find(&orders).Error
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// Save creates or updates an order together with its lines
func (r *GormOrderRepository) Save(ctx context.Context, o *order.Order) error {
	return r.db.WithContext(ctx).
		Session(&gorm.Session{FullSaveAssociations: true}).
		Save(o).Error
}

// SaveDetail persists a single line's state change
func (r *GormOrderRepository) SaveDetail(ctx context.Context, d *order.OrderDetail) error {
	return r.db.WithContext(ctx).Save(d).Error
}

// GormDispatchRepository implements DispatchRepository using GORM
type GormDispatchRepository struct {
	db *gorm.DB
}

// NewGormDispatchRepository creates a new GormDispatchRepository
func NewGormDispatchRepository(db *gorm.DB) *GormDispatchRepository {
	return &GormDispatchRepository{db: db}
}

// FindByID finds a dispatch by id
func (r *GormDispatchRepository) FindByID(ctx context.Context, id int64) (*order.Dispatch, error) {
	var d order.Dispatch
	if err := r.db.WithContext(ctx).First(&d, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("dispatch", id)
		}
		return nil, err
	}
	return &d, nil
}

// FindByOrder lists dispatches for an order, oldest first
func (r *GormDispatchRepository) FindByOrder(ctx context.Context, orderID int64) ([]order.Dispatch, error) {
	var dispatches []order.Dispatch
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("dispatched_at ASC, id ASC").
		Find(&dispatches).Error
	if err != nil {
		return nil, err
	}
	return dispatches, nil
}

// Save creates or updates a dispatch record
func (r *GormDispatchRepository) Save(ctx context.Context, d *order.Dispatch) error {
	return r.db.WithContext(ctx).Save(d).Error
}

var _ order.OrderRepository = (*GormOrderRepository)(nil)
var _ order.DispatchRepository = (*GormDispatchRepository)(nil)
