package product

import (
	"context"

	"github.com/manuerp/backend/internal/domain/shared"
)

// MasterProductRepository defines persistence for master products and their
// material detail rows.
type MasterProductRepository interface {
	// FindByID finds a master product by id, preloading the material detail
	// for RM/PM masters. Returns shared.ErrNotFound-coded errors when absent.
	FindByID(ctx context.Context, id int64) (*MasterProduct, error)

	// FindAll lists master products matching the filter
	FindAll(ctx context.Context, filter shared.Filter) ([]MasterProduct, int64, error)

	// Save creates or updates a master product (and its material detail)
	Save(ctx context.Context, mp *MasterProduct) error

	// SaveMaterialDetail persists just the material detail row
	SaveMaterialDetail(ctx context.Context, detail *MaterialDetail) error
}

// ProductRepository defines persistence for SKUs
type ProductRepository interface {
	// FindByID finds a SKU by id
	FindByID(ctx context.Context, id int64) (*Product, error)

	// FindByMaster lists SKUs under a master product
	FindByMaster(ctx context.Context, masterProductID int64) ([]Product, error)

	// FindPlaceholderForMaster finds the ledger placeholder SKU for an RM/PM
	// master, or returns a not-found error when none has been synthesized yet.
	FindPlaceholderForMaster(ctx context.Context, masterProductID int64) (*Product, error)

	// Save creates or updates a SKU
	Save(ctx context.Context, p *Product) error
}
