package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/manuerp/backend/internal/domain/inventory"
	"github.com/manuerp/backend/internal/domain/product"
	"github.com/manuerp/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormLedgerRepository implements LedgerRepository using GORM. It only ever
// inserts; there is no code path that updates or deletes a ledger row.
type GormLedgerRepository struct {
	db *gorm.DB
}

// NewGormLedgerRepository creates a new GormLedgerRepository
func NewGormLedgerRepository(db *gorm.DB) *GormLedgerRepository {
	return &GormLedgerRepository{db: db}
}

// Append inserts a new ledger row
func (r *GormLedgerRepository) Append(ctx context.Context, tx *inventory.InventoryTransaction) error {
	return r.db.WithContext(ctx).Create(tx).Error
}

// FindByID finds a ledger row by id
func (r *GormLedgerRepository) FindByID(ctx context.Context, id int64) (*inventory.InventoryTransaction, error) {
	var row inventory.InventoryTransaction
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("inventory transaction", id)
		}
		return nil, err
	}
	return &row, nil
}

// FindByProduct lists ledger rows for a product reference, newest first
func (r *GormLedgerRepository) FindByProduct(ctx context.Context, ref product.ProductRef, filter shared.Filter) ([]inventory.InventoryTransaction, int64, error) {
	query := r.db.WithContext(ctx).Model(&inventory.InventoryTransaction{})
	if ref.IsFG() {
		query = query.Where("product_id = ?", ref.ID)
	} else {
		query = query.Where("master_product_id = ?", ref.ID)
	}
	return r.paginate(query, filter)
}

// FindByReference lists ledger rows caused by a business document, oldest
// first so callers see the document's movements in the order they happened.
// A zero refID matches every row of the reference type, which is how rows
// without a backing document (manual adjustments) are listed.
func (r *GormLedgerRepository) FindByReference(ctx context.Context, refType inventory.ReferenceType, refID int64) ([]inventory.InventoryTransaction, error) {
	query := r.db.WithContext(ctx).Where("reference_type = ?", refType)
	if refID > 0 {
		query = query.Where("reference_id = ?", refID)
	}
	var rows []inventory.InventoryTransaction
	err := query.Order("id ASC").Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// FindByDateRange lists ledger rows in [start, end), newest first
func (r *GormLedgerRepository) FindByDateRange(ctx context.Context, start, end time.Time, filter shared.Filter) ([]inventory.InventoryTransaction, int64, error) {
	query := r.db.WithContext(ctx).Model(&inventory.InventoryTransaction{}).
		Where("created_at >= ? AND created_at < ?", start, end)
	return r.paginate(query, filter)
}

func (r *GormLedgerRepository) paginate(query *gorm.DB, filter shared.Filter) ([]inventory.InventoryTransaction, int64, error) {
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []inventory.InventoryTransaction
	err := query.
		Order("created_at DESC, id DESC").
		Offset(filter.Offset()).
		Limit(filter.Limit()).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

var _ inventory.LedgerRepository = (*GormLedgerRepository)(nil)
