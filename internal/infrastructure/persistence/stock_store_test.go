package persistence

import (
	"context"
	"testing"

	"github.com/manuerp/backend/internal/domain/inventory"
	"github.com/manuerp/backend/internal/domain/product"
	"github.com/manuerp/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// newTestDB opens a fresh in-memory database with the schema migrated
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := NewSQLiteDatabase()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db.DB
}

// seedSKU persists an FG master with one SKU and returns the SKU reference
func seedSKU(t *testing.T, db *gorm.DB, available decimal.Decimal) product.ProductRef {
	t.Helper()
	ctx := context.Background()
	masters := NewGormMasterProductRepository(db)
	products := NewGormProductRepository(db)

	mp, err := product.NewMasterProduct("Bottle", product.ProductTypeFG, decimal.Zero)
	require.NoError(t, err)
	require.NoError(t, masters.Save(ctx, mp))

	sku, err := product.NewProduct(mp.ID, "Bottle 1L x12", decimal.NewFromInt(12))
	require.NoError(t, err)
	sku.AvailableQuantity = available
	require.NoError(t, products.Save(ctx, sku))
	return product.FGRef(sku.ID)
}

// seedMaterial persists an RM master with its detail row and returns the ref
func seedMaterial(t *testing.T, db *gorm.DB, available decimal.Decimal) product.ProductRef {
	t.Helper()
	ctx := context.Background()
	masters := NewGormMasterProductRepository(db)

	mp, err := product.NewMasterProduct("Resin", product.ProductTypeRM, decimal.Zero)
	require.NoError(t, err)
	require.NoError(t, masters.Save(ctx, mp))

	detail := product.NewMaterialDetail(mp.ID, "kg")
	detail.AvailableQty = available
	require.NoError(t, masters.SaveMaterialDetail(ctx, detail))
	return product.MaterialRef(product.KindRM, mp.ID)
}

func TestGormStockStore_Adjust(t *testing.T) {
	ctx := context.Background()

	t.Run("adds and subtracts on a SKU row", func(t *testing.T) {
		db := newTestDB(t)
		ref := seedSKU(t, db, decimal.NewFromInt(10))
		store := NewGormStockStore(db)

		adj, err := store.Adjust(ctx, ref, inventory.FieldAvailable, decimal.NewFromInt(5))
		require.NoError(t, err)
		assert.True(t, adj.Before.Equal(decimal.NewFromInt(10)))
		assert.True(t, adj.After.Equal(decimal.NewFromInt(15)))

		adj, err = store.Adjust(ctx, ref, inventory.FieldAvailable, decimal.NewFromInt(-6))
		require.NoError(t, err)
		assert.True(t, adj.After.Equal(decimal.NewFromInt(9)))

		got, err := store.Peek(ctx, ref, inventory.FieldAvailable)
		require.NoError(t, err)
		assert.True(t, got.Equal(decimal.NewFromInt(9)))
	})

	t.Run("clamps at zero instead of going negative", func(t *testing.T) {
		db := newTestDB(t)
		ref := seedSKU(t, db, decimal.NewFromInt(3))
		store := NewGormStockStore(db)

		adj, err := store.Adjust(ctx, ref, inventory.FieldAvailable, decimal.NewFromInt(-50))
		require.NoError(t, err)
		assert.True(t, adj.Before.Equal(decimal.NewFromInt(3)))
		assert.True(t, adj.After.IsZero())
		assert.True(t, adj.Delta().Equal(decimal.NewFromInt(-3)))
	})

	t.Run("tracks reserved separately from available", func(t *testing.T) {
		db := newTestDB(t)
		ref := seedSKU(t, db, decimal.NewFromInt(10))
		store := NewGormStockStore(db)

		_, err := store.Adjust(ctx, ref, inventory.FieldReserved, decimal.NewFromInt(4))
		require.NoError(t, err)

		available, err := store.Peek(ctx, ref, inventory.FieldAvailable)
		require.NoError(t, err)
		assert.True(t, available.Equal(decimal.NewFromInt(10)))

		reserved, err := store.Peek(ctx, ref, inventory.FieldReserved)
		require.NoError(t, err)
		assert.True(t, reserved.Equal(decimal.NewFromInt(4)))
	})

	t.Run("writes material stock on the detail row", func(t *testing.T) {
		db := newTestDB(t)
		ref := seedMaterial(t, db, decimal.NewFromInt(100))
		store := NewGormStockStore(db)

		adj, err := store.Adjust(ctx, ref, inventory.FieldAvailable, decimal.NewFromInt(-40))
		require.NoError(t, err)
		assert.True(t, adj.After.Equal(decimal.NewFromInt(60)))

		adj, err = store.AdjustWeight(ctx, ref, inventory.FieldAvailable, decimal.NewFromInt(25))
		require.NoError(t, err)
		assert.True(t, adj.After.Equal(decimal.NewFromInt(25)))
	})

	t.Run("rejects reserved field on materials", func(t *testing.T) {
		db := newTestDB(t)
		ref := seedMaterial(t, db, decimal.NewFromInt(100))
		store := NewGormStockStore(db)

		_, err := store.Adjust(ctx, ref, inventory.FieldReserved, decimal.NewFromInt(1))
		assert.True(t, shared.IsDomainError(err, shared.CodeValidation))
	})

	t.Run("returns not found for a missing row", func(t *testing.T) {
		db := newTestDB(t)
		store := NewGormStockStore(db)

		_, err := store.Peek(ctx, product.FGRef(999), inventory.FieldAvailable)
		assert.True(t, shared.IsDomainError(err, shared.CodeNotFound))
	})
}

func TestGormStockStore_AdjustWeight(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	ref := seedSKU(t, db, decimal.NewFromInt(10))
	store := NewGormStockStore(db)

	adj, err := store.AdjustWeight(ctx, ref, inventory.FieldAvailable, decimal.NewFromInt(120))
	require.NoError(t, err)
	assert.True(t, adj.After.Equal(decimal.NewFromInt(120)))

	adj, err = store.AdjustWeight(ctx, ref, inventory.FieldReserved, decimal.NewFromInt(48))
	require.NoError(t, err)
	assert.True(t, adj.After.Equal(decimal.NewFromInt(48)))

	// weight clamps at zero like quantity does
	adj, err = store.AdjustWeight(ctx, ref, inventory.FieldReserved, decimal.NewFromInt(-100))
	require.NoError(t, err)
	assert.True(t, adj.After.IsZero())
}
