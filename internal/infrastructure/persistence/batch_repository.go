package persistence

import (
	"context"
	"errors"

	"github.com/manuerp/backend/internal/domain/production"
	"github.com/manuerp/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormBatchRepository implements BatchRepository using GORM
type GormBatchRepository struct {
	db *gorm.DB
}

// NewGormBatchRepository creates a new GormBatchRepository
func NewGormBatchRepository(db *gorm.DB) *GormBatchRepository {
	return &GormBatchRepository{db: db}
}

// FindByID finds a batch by id, preloading its materials
func (r *GormBatchRepository) FindByID(ctx context.Context, id int64) (*production.Batch, error) {
	var b production.Batch
	err := r.db.WithContext(ctx).
		Preload("Materials").
		First(&b, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("production batch", id)
		}
		return nil, err
	}
	return &b, nil
}

// FindByNumber finds a batch by its batch number
func (r *GormBatchRepository) FindByNumber(ctx context.Context, batchNumber string) (*production.Batch, error) {
	var b production.Batch
	err := r.db.WithContext(ctx).
		Preload("Materials").
		Where("batch_number = ?", batchNumber).
		First(&b).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("production batch "+batchNumber, 0)
		}
		return nil, err
	}
	return &b, nil
}

// FindByStatus lists batches with the given status
func (r *GormBatchRepository) FindByStatus(ctx context.Context, status production.BatchStatus, filter shared.Filter) ([]production.Batch, int64, error) {
	query := r.db.WithContext(ctx).Model(&production.Batch{}).
		Where("status = ?", status)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var batches []production.Batch
	err := query.
		Preload("Materials").
		Order("created_at DESC, id DESC").
		Offset(filter.Offset()).
		Limit(filter.Limit()).
		Find(&batches).Error
	if err != nil {
		return nil, 0, err
	}
	return batches, total, nil
}

// Save creates or updates a batch together with its materials
func (r *GormBatchRepository) Save(ctx context.Context, b *production.Batch) error {
	return r.db.WithContext(ctx).
		Session(&gorm.Session{FullSaveAssociations: true}).
		Save(b).Error
}

var _ production.BatchRepository = (*GormBatchRepository)(nil)
