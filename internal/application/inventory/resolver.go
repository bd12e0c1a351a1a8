package inventory

import (
	"context"

	"github.com/manuerp/backend/internal/domain/product"
	"github.com/manuerp/backend/internal/domain/shared"
)

// ResolveProductRef determines whether a numeric product identifier denotes a
// sellable SKU (Finished Good) or a master-level Raw/Packaging Material.
//
// The master product table is checked first: a hit with type RM or PM means
// the id is a master id. Anything else falls through to the SKU table. The
// two id spaces are independent, so the same integer may exist in both; the
// master lookup winning for materials is what keeps lookups table-scoped and
// collision-proof. An id found in neither table is fatal and non-retryable
// for every movement operation.
func ResolveProductRef(ctx context.Context, repos TransactionalRepositories, productID int64) (product.ProductRef, error) {
	if productID <= 0 {
		return product.ProductRef{}, shared.NewValidationError("product id must be positive")
	}

	mp, err := repos.MasterProducts().FindByID(ctx, productID)
	if err == nil && mp != nil && mp.ProductType.IsMaterial() {
		kind := product.KindRM
		if mp.ProductType == product.ProductTypePM {
			kind = product.KindPM
		}
		return product.MaterialRef(kind, mp.ID), nil
	}
	if err != nil && !shared.IsDomainError(err, shared.CodeNotFound) {
		return product.ProductRef{}, err
	}

	sku, err := repos.Products().FindByID(ctx, productID)
	if err == nil && sku != nil {
		return product.FGRef(sku.ID), nil
	}
	if err != nil && !shared.IsDomainError(err, shared.CodeNotFound) {
		return product.ProductRef{}, err
	}

	return product.ProductRef{}, shared.NewNotFoundError("product", productID)
}

// ResolverService exposes product type resolution as a standalone operation,
// for callers outside a movement's unit of work.
type ResolverService struct {
	scope TransactionScope
}

// NewResolverService creates a new ResolverService
func NewResolverService(scope TransactionScope) *ResolverService {
	return &ResolverService{scope: scope}
}

// Resolve resolves a product id to its kind and table-scoped id
func (s *ResolverService) Resolve(ctx context.Context, productID int64) (product.ProductRef, error) {
	var ref product.ProductRef
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var rerr error
		ref, rerr = ResolveProductRef(ctx, repos, productID)
		return rerr
	})
	return ref, err
}
