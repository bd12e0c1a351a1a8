package persistence

import (
	"context"
	"errors"

	"github.com/manuerp/backend/internal/domain/product"
	"github.com/manuerp/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormMasterProductRepository implements MasterProductRepository using GORM
type GormMasterProductRepository struct {
	db *gorm.DB
}

// NewGormMasterProductRepository creates a new GormMasterProductRepository
func NewGormMasterProductRepository(db *gorm.DB) *GormMasterProductRepository {
	return &GormMasterProductRepository{db: db}
}

// FindByID finds a master product by id, preloading the material detail
func (r *GormMasterProductRepository) FindByID(ctx context.Context, id int64) (*product.MasterProduct, error) {
	var mp product.MasterProduct
	err := r.db.WithContext(ctx).
		Preload("Material").
		First(&mp, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("master product", id)
		}
		return nil, err
	}
	return &mp, nil
}

// FindAll lists master products matching the filter
func (r *GormMasterProductRepository) FindAll(ctx context.Context, filter shared.Filter) ([]product.MasterProduct, int64, error) {
	query := r.db.WithContext(ctx).Model(&product.MasterProduct{})
	if filter.Search != "" {
		query = query.Where("name ILIKE ?", "%"+filter.Search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var mps []product.MasterProduct
	err := query.
		Preload("Material").
		Order("id ASC").
		Offset(filter.Offset()).
		Limit(filter.Limit()).
		Find(&mps).Error
	if err != nil {
		return nil, 0, err
	}
	return mps, total, nil
}

// Save creates or updates a master product and its material detail
func (r *GormMasterProductRepository) Save(ctx context.Context, mp *product.MasterProduct) error {
	return r.db.WithContext(ctx).
		Session(&gorm.Session{FullSaveAssociations: true}).
		Save(mp).Error
}

// SaveMaterialDetail persists just the material detail row
func (r *GormMasterProductRepository) SaveMaterialDetail(ctx context.Context, detail *product.MaterialDetail) error {
	return r.db.WithContext(ctx).Save(detail).Error
}

// GormProductRepository implements ProductRepository using GORM
type GormProductRepository struct {
	db *gorm.DB
}

// NewGormProductRepository creates a new GormProductRepository
func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

// FindByID finds a SKU by id
func (r *GormProductRepository) FindByID(ctx context.Context, id int64) (*product.Product, error) {
	var p product.Product
	if err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("product", id)
		}
		return nil, err
	}
	return &p, nil
}

// FindByMaster lists SKUs under a master product
func (r *GormProductRepository) FindByMaster(ctx context.Context, masterProductID int64) ([]product.Product, error) {
	var products []product.Product
	err := r.db.WithContext(ctx).
		Where("master_product_id = ?", masterProductID).
		Order("id ASC").
		Find(&products).Error
	if err != nil {
		return nil, err
	}
	return products, nil
}

// FindPlaceholderForMaster finds the ledger placeholder SKU for a material master
func (r *GormProductRepository) FindPlaceholderForMaster(ctx context.Context, masterProductID int64) (*product.Product, error) {
	var p product.Product
	err := r.db.WithContext(ctx).
		Where("master_product_id = ? AND is_placeholder = ?", masterProductID, true).
		First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("placeholder product for master", masterProductID)
		}
		return nil, err
	}
	return &p, nil
}

// Save creates or updates a SKU
func (r *GormProductRepository) Save(ctx context.Context, p *product.Product) error {
	return r.db.WithContext(ctx).Save(p).Error
}

var _ product.MasterProductRepository = (*GormMasterProductRepository)(nil)
var _ product.ProductRepository = (*GormProductRepository)(nil)
