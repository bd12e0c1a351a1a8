package catalog

import (
	"context"

	appinv "github.com/manuerp/backend/internal/application/inventory"
	"github.com/manuerp/backend/internal/domain/product"
	"github.com/manuerp/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CreateMasterProductInput creates a product family. RM/PM masters get their
// material stock row created alongside; FG masters hold no stock themselves.
type CreateMasterProductInput struct {
	Name          string
	ProductType   product.ProductType
	MinStockLevel decimal.Decimal
	UnitOfMeasure string
}

// CreateSKUInput creates a sellable package size under an FG master
type CreateSKUInput struct {
	MasterProductID   int64
	Name              string
	PackageCapacityKg decimal.Decimal
}

// Service manages the product catalog: master products, material detail rows
// and SKUs.
type Service struct {
	scope appinv.TransactionScope
	log   *zap.Logger
}

// NewService creates the catalog application service
func NewService(scope appinv.TransactionScope, log *zap.Logger) *Service {
	return &Service{scope: scope, log: log}
}

// CreateMasterProduct creates a master product, with a material detail row
// for RM/PM types
func (s *Service) CreateMasterProduct(ctx context.Context, in CreateMasterProductInput) (*product.MasterProduct, error) {
	mp, err := product.NewMasterProduct(in.Name, in.ProductType, in.MinStockLevel)
	if err != nil {
		return nil, err
	}

	err = s.scope.Execute(ctx, func(repos appinv.TransactionalRepositories) error {
		if err := repos.MasterProducts().Save(ctx, mp); err != nil {
			return err
		}
		if mp.ProductType.IsMaterial() {
			unit := in.UnitOfMeasure
			if unit == "" {
				unit = "kg"
			}
			detail := product.NewMaterialDetail(mp.ID, unit)
			if err := repos.MasterProducts().SaveMaterialDetail(ctx, detail); err != nil {
				return err
			}
			mp.Material = detail
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("master product created",
		zap.Int64("master_product_id", mp.ID),
		zap.String("type", string(mp.ProductType)))
	return mp, nil
}

// CreateSKU creates a sellable SKU under an FG master product
func (s *Service) CreateSKU(ctx context.Context, in CreateSKUInput) (*product.Product, error) {
	sku, err := product.NewProduct(in.MasterProductID, in.Name, in.PackageCapacityKg)
	if err != nil {
		return nil, err
	}

	err = s.scope.Execute(ctx, func(repos appinv.TransactionalRepositories) error {
		mp, err := repos.MasterProducts().FindByID(ctx, in.MasterProductID)
		if err != nil {
			return err
		}
		if mp.ProductType != product.ProductTypeFG {
			return shared.NewValidationError("SKUs can only be created under a finished-good master")
		}
		if !mp.IsActive {
			return shared.NewValidationError("master product is inactive")
		}
		return repos.Products().Save(ctx, sku)
	})
	if err != nil {
		return nil, err
	}
	return sku, nil
}

// GetMasterProduct returns a master product with its material detail
func (s *Service) GetMasterProduct(ctx context.Context, id int64) (*product.MasterProduct, error) {
	var mp *product.MasterProduct
	err := s.scope.Execute(ctx, func(repos appinv.TransactionalRepositories) error {
		var ferr error
		mp, ferr = repos.MasterProducts().FindByID(ctx, id)
		return ferr
	})
	return mp, err
}

// ListMasterProducts lists master products matching the filter
func (s *Service) ListMasterProducts(ctx context.Context, filter shared.Filter) (shared.Paginated[product.MasterProduct], error) {
	var (
		mps   []product.MasterProduct
		total int64
	)
	err := s.scope.Execute(ctx, func(repos appinv.TransactionalRepositories) error {
		var ferr error
		mps, total, ferr = repos.MasterProducts().FindAll(ctx, filter)
		return ferr
	})
	if err != nil {
		return shared.Paginated[product.MasterProduct]{}, err
	}
	return shared.NewPaginated(mps, total, filter.Page, filter.Limit()), nil
}

// GetSKU returns a SKU by id
func (s *Service) GetSKU(ctx context.Context, id int64) (*product.Product, error) {
	var sku *product.Product
	err := s.scope.Execute(ctx, func(repos appinv.TransactionalRepositories) error {
		var ferr error
		sku, ferr = repos.Products().FindByID(ctx, id)
		return ferr
	})
	return sku, err
}

// ListSKUsByMaster lists the SKUs of a master product
func (s *Service) ListSKUsByMaster(ctx context.Context, masterProductID int64) ([]product.Product, error) {
	var skus []product.Product
	err := s.scope.Execute(ctx, func(repos appinv.TransactionalRepositories) error {
		if _, ferr := repos.MasterProducts().FindByID(ctx, masterProductID); ferr != nil {
			return ferr
		}
		var ferr error
		skus, ferr = repos.Products().FindByMaster(ctx, masterProductID)
		return ferr
	})
	return skus, err
}

// DeactivateMasterProduct stops new activity against a master product
func (s *Service) DeactivateMasterProduct(ctx context.Context, id int64) (*product.MasterProduct, error) {
	var mp *product.MasterProduct
	err := s.scope.Execute(ctx, func(repos appinv.TransactionalRepositories) error {
		var ferr error
		mp, ferr = repos.MasterProducts().FindByID(ctx, id)
		if ferr != nil {
			return ferr
		}
		mp.Deactivate()
		return repos.MasterProducts().Save(ctx, mp)
	})
	return mp, err
}
