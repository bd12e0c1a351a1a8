package inventory_test

import (
	"context"
	"testing"

	"github.com/manuerp/backend/internal/application/apptest"
	appinv "github.com/manuerp/backend/internal/application/inventory"
	"github.com/manuerp/backend/internal/domain/product"
	"github.com/manuerp/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newResolverService(repos *apptest.Repos) *appinv.ResolverService {
	return appinv.NewResolverService(&apptest.Scope{R: repos})
}

func TestResolveProductRef(t *testing.T) {
	ctx := context.Background()
	repos := apptest.NewRepos()
	svc := newResolverService(repos)

	repos.SeedMaster(1, "Bottle Family", product.ProductTypeFG, decimal.Zero)
	repos.SeedMaster(7, "Sugar", product.ProductTypeRM, decimal.Zero)
	repos.SeedMaster(8, "Carton", product.ProductTypePM, decimal.Zero)
	// SKU id 7 deliberately collides with the Sugar master id.
	repos.SeedSKU(7, 1, "Bottle 1L x12", decimal.Zero)
	repos.SeedSKU(42, 1, "Bottle 0.5L x24", decimal.Zero)

	t.Run("material master wins an id collision", func(t *testing.T) {
		ref, err := svc.Resolve(ctx, 7)
		require.NoError(t, err)
		assert.Equal(t, product.MaterialRef(product.KindRM, 7), ref)
	})

	t.Run("packaging material resolves to PM", func(t *testing.T) {
		ref, err := svc.Resolve(ctx, 8)
		require.NoError(t, err)
		assert.Equal(t, product.MaterialRef(product.KindPM, 8), ref)
	})

	t.Run("plain SKU id resolves to FG", func(t *testing.T) {
		ref, err := svc.Resolve(ctx, 42)
		require.NoError(t, err)
		assert.Equal(t, product.FGRef(42), ref)
	})

	t.Run("FG master id without a matching SKU is not found", func(t *testing.T) {
		_, err := svc.Resolve(ctx, 1)
		require.Error(t, err)
		assert.True(t, shared.IsDomainError(err, shared.CodeNotFound))
	})

	t.Run("unknown id is not found", func(t *testing.T) {
		_, err := svc.Resolve(ctx, 404)
		require.Error(t, err)
		assert.True(t, shared.IsDomainError(err, shared.CodeNotFound))
	})

	t.Run("non-positive id is rejected", func(t *testing.T) {
		_, err := svc.Resolve(ctx, 0)
		require.Error(t, err)
		assert.True(t, shared.IsDomainError(err, shared.CodeValidation))
	})
}
