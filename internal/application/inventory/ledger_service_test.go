package inventory_test

import (
	"context"
	"testing"

	"github.com/manuerp/backend/internal/application/apptest"
	appinv "github.com/manuerp/backend/internal/application/inventory"
	"github.com/manuerp/backend/internal/domain/inventory"
	"github.com/manuerp/backend/internal/domain/product"
	"github.com/manuerp/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newLedgerService(repos *apptest.Repos) *appinv.LedgerService {
	scope := &apptest.Scope{R: repos}
	return appinv.NewLedgerService(scope, nil, zap.NewNop(), appinv.DefaultPolicy())
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestRecordInwardThenDispatch(t *testing.T) {
	repos := apptest.NewRepos()
	svc := newLedgerService(repos)
	ctx := context.Background()

	repos.SeedMaster(1, "Bottle Family", product.ProductTypeFG, decimal.Zero)
	sku := repos.SeedSKU(10, 1, "Bottle 1L x12", dec("2"))
	ref := product.FGRef(sku.ID)

	tx1, err := svc.RecordInward(ctx, appinv.RecordInwardInput{
		ProductID: sku.ID,
		Quantity:  dec("10"),
		WeightKg:  dec("20"),
		InwardID:  501,
		CreatedBy: "alice",
	})
	require.NoError(t, err)
	assert.Equal(t, dec("0").String(), tx1.BalanceBefore.String())
	assert.Equal(t, dec("10").String(), tx1.BalanceAfter.String())
	assert.Equal(t, dec("10").String(), repos.StockAt(ref, inventory.FieldAvailable).String())
	assert.Equal(t, dec("20").String(), repos.WeightAt(ref, inventory.FieldAvailable).String())

	tx2, err := svc.RecordDispatch(ctx, appinv.RecordDispatchInput{
		ProductID: sku.ID,
		Quantity:  dec("4"),
		WeightKg:  dec("8"),
		OrderID:   42,
		CreatedBy: "bob",
	})
	require.NoError(t, err)
	assert.Equal(t, dec("-4").String(), tx2.Quantity.String())
	assert.Equal(t, dec("6").String(), repos.StockAt(ref, inventory.FieldAvailable).String())
	assert.Equal(t, dec("12").String(), repos.WeightAt(ref, inventory.FieldAvailable).String())

	t.Run("ledger rows chain balance to balance", func(t *testing.T) {
		require.Len(t, repos.LedgerRows, 2)
		for _, row := range repos.LedgerRows {
			assert.True(t, row.BalancesConsistent())
		}
		assert.Equal(t, tx1.BalanceAfter.String(), tx2.BalanceBefore.String())
	})

	t.Run("dispatch beyond stock is refused and leaves no trace", func(t *testing.T) {
		_, err := svc.RecordDispatch(ctx, appinv.RecordDispatchInput{
			ProductID: sku.ID,
			Quantity:  dec("100"),
			OrderID:   43,
			CreatedBy: "bob",
		})
		require.Error(t, err)
		assert.True(t, shared.IsDomainError(err, shared.CodeInsufficientStock))
		assert.Contains(t, err.Error(), "Bottle 1L x12")
		assert.Contains(t, err.Error(), "requested 100")
		assert.Contains(t, err.Error(), "available 6")
		assert.Equal(t, dec("6").String(), repos.StockAt(ref, inventory.FieldAvailable).String())
		assert.Len(t, repos.LedgerRows, 2)
	})

	t.Run("dispatch rows carry the order reference", func(t *testing.T) {
		rows, err := svc.ListTransactionsByReference(ctx, inventory.ReferenceTypeOrder, 42)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, inventory.TransactionTypeDispatch, rows[0].TransactionType)
	})
}

func TestRecordMaterialMovements(t *testing.T) {
	repos := apptest.NewRepos()
	svc := newLedgerService(repos)
	ctx := context.Background()

	mp := repos.SeedMaster(5, "HDPE Resin", product.ProductTypeRM, dec("50"))
	ref := product.MaterialRef(product.KindRM, mp.ID)

	_, err := svc.RecordInward(ctx, appinv.RecordInwardInput{
		ProductID: mp.ID,
		Quantity:  dec("100"),
		InwardID:  601,
		CreatedBy: "alice",
	})
	require.NoError(t, err)

	tx, err := svc.RecordProductionConsumption(ctx, appinv.RecordProductionConsumptionInput{
		ProductID: mp.ID,
		Quantity:  dec("30"),
		BatchID:   77,
		CreatedBy: "alice",
	})
	require.NoError(t, err)

	assert.Equal(t, dec("70").String(), repos.StockAt(ref, inventory.FieldAvailable).String())
	require.NotNil(t, tx.MasterProductID)
	assert.Equal(t, mp.ID, *tx.MasterProductID)
	assert.Nil(t, tx.ProductID)

	t.Run("consuming more than on hand is refused", func(t *testing.T) {
		_, err := svc.RecordProductionConsumption(ctx, appinv.RecordProductionConsumptionInput{
			ProductID: mp.ID,
			Quantity:  dec("500"),
			BatchID:   77,
			CreatedBy: "alice",
		})
		require.Error(t, err)
		assert.True(t, shared.IsDomainError(err, shared.CodeInsufficientStock))
		assert.Equal(t, dec("70").String(), repos.StockAt(ref, inventory.FieldAvailable).String())
	})
}

func TestRecordAdjustment(t *testing.T) {
	repos := apptest.NewRepos()
	svc := newLedgerService(repos)
	ctx := context.Background()

	repos.SeedMaster(1, "Bottle Family", product.ProductTypeFG, decimal.Zero)
	sku := repos.SeedSKU(10, 1, "Bottle 1L x12", decimal.Zero)
	ref := product.FGRef(sku.ID)
	repos.SetStock(ref, inventory.FieldAvailable, dec("5"))

	t.Run("positive correction", func(t *testing.T) {
		tx, err := svc.RecordAdjustment(ctx, appinv.RecordAdjustmentInput{
			ProductID: sku.ID,
			Quantity:  dec("3"),
			CreatedBy: "carol",
			Notes:     "cycle count surplus",
		})
		require.NoError(t, err)
		assert.Equal(t, dec("8").String(), tx.BalanceAfter.String())
		require.NotNil(t, tx.ReferenceType)
		assert.Equal(t, inventory.ReferenceTypeManualAdjustment, *tx.ReferenceType)
		assert.Nil(t, tx.ReferenceID)

		rows, err := svc.ListTransactionsByReference(ctx, inventory.ReferenceTypeManualAdjustment, 0)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, tx.ID, rows[0].ID)
	})

	t.Run("negative correction past zero is refused", func(t *testing.T) {
		_, err := svc.RecordAdjustment(ctx, appinv.RecordAdjustmentInput{
			ProductID: sku.ID,
			Quantity:  dec("-20"),
			CreatedBy: "carol",
		})
		require.Error(t, err)
		assert.True(t, shared.IsDomainError(err, shared.CodeInsufficientStock))
		assert.Equal(t, dec("8").String(), repos.StockAt(ref, inventory.FieldAvailable).String())
	})

	t.Run("zero quantity is rejected", func(t *testing.T) {
		_, err := svc.RecordAdjustment(ctx, appinv.RecordAdjustmentInput{
			ProductID: sku.ID,
			Quantity:  decimal.Zero,
			CreatedBy: "carol",
		})
		require.Error(t, err)
		assert.True(t, shared.IsDomainError(err, shared.CodeValidation))
	})

	t.Run("positive correction from zero becomes initial stock", func(t *testing.T) {
		fresh := repos.SeedSKU(11, 1, "Bottle 0.5L x24", decimal.Zero)
		tx, err := svc.RecordAdjustment(ctx, appinv.RecordAdjustmentInput{
			ProductID: fresh.ID,
			Quantity:  dec("40"),
			CreatedBy: "carol",
			Notes:     "opening balance",
		})
		require.NoError(t, err)
		assert.Equal(t, inventory.TransactionTypeInitialStock, tx.TransactionType)
		assert.True(t, tx.BalanceBefore.IsZero())
	})
}

func TestRecordDiscard(t *testing.T) {
	ctx := context.Background()

	t.Run("material discard synthesizes a placeholder SKU", func(t *testing.T) {
		repos := apptest.NewRepos()
		svc := newLedgerService(repos)
		mp := repos.SeedMaster(5, "HDPE Resin", product.ProductTypeRM, decimal.Zero)
		ref := product.MaterialRef(product.KindRM, mp.ID)
		repos.SetStock(ref, inventory.FieldAvailable, dec("50"))

		tx, err := svc.RecordDiscard(ctx, appinv.RecordDiscardInput{
			ProductID: mp.ID,
			Quantity:  dec("10"),
			DiscardID: 901,
			CreatedBy: "dave",
			Notes:     "water damage",
		})
		require.NoError(t, err)
		require.NotNil(t, tx)
		assert.Equal(t, dec("40").String(), repos.StockAt(ref, inventory.FieldAvailable).String())

		placeholder, err := repos.Products().FindPlaceholderForMaster(ctx, mp.ID)
		require.NoError(t, err)
		assert.True(t, placeholder.IsPlaceholder)
		require.NotNil(t, tx.ProductID)
		assert.Equal(t, placeholder.ID, *tx.ProductID)

		require.NotNil(t, mp.Material.LedgerSKUID)
		assert.Equal(t, placeholder.ID, *mp.Material.LedgerSKUID)

		_, err = svc.RecordDiscard(ctx, appinv.RecordDiscardInput{
			ProductID: mp.ID,
			Quantity:  dec("5"),
			DiscardID: 902,
			CreatedBy: "dave",
		})
		require.NoError(t, err)
		count := 0
		for _, sku := range repos.SKUs {
			if sku.IsPlaceholder {
				count++
			}
		}
		assert.Equal(t, 1, count, "placeholder must be reused, not duplicated")
	})

	t.Run("discard beyond on-hand is refused before any write", func(t *testing.T) {
		repos := apptest.NewRepos()
		svc := newLedgerService(repos)
		mp := repos.SeedMaster(5, "HDPE Resin", product.ProductTypeRM, decimal.Zero)
		ref := product.MaterialRef(product.KindRM, mp.ID)
		repos.SetStock(ref, inventory.FieldAvailable, dec("3"))

		_, err := svc.RecordDiscard(ctx, appinv.RecordDiscardInput{
			ProductID: mp.ID,
			Quantity:  dec("10"),
			DiscardID: 903,
			CreatedBy: "dave",
		})
		require.Error(t, err)
		assert.True(t, shared.IsDomainError(err, shared.CodeInsufficientStock))
		assert.Equal(t, dec("3").String(), repos.StockAt(ref, inventory.FieldAvailable).String())
		assert.Empty(t, repos.LedgerRows)
		assert.Empty(t, repos.SKUs, "no placeholder on a refused discard")
	})

	t.Run("ledger linkage failure does not undo the write-off", func(t *testing.T) {
		repos := apptest.NewRepos()
		svc := newLedgerService(repos)
		mp := repos.SeedMaster(5, "HDPE Resin", product.ProductTypeRM, decimal.Zero)
		ref := product.MaterialRef(product.KindRM, mp.ID)
		repos.SetStock(ref, inventory.FieldAvailable, dec("50"))
		repos.LedgerFailures = 1

		tx, err := svc.RecordDiscard(ctx, appinv.RecordDiscardInput{
			ProductID: mp.ID,
			Quantity:  dec("10"),
			DiscardID: 904,
			CreatedBy: "dave",
		})
		require.NoError(t, err)
		assert.Nil(t, tx)
		assert.Equal(t, dec("40").String(), repos.StockAt(ref, inventory.FieldAvailable).String())
		assert.Empty(t, repos.LedgerRows)
	})

	t.Run("finished-good discard is one atomic movement", func(t *testing.T) {
		repos := apptest.NewRepos()
		svc := newLedgerService(repos)
		repos.SeedMaster(1, "Bottle Family", product.ProductTypeFG, decimal.Zero)
		sku := repos.SeedSKU(10, 1, "Bottle 1L x12", decimal.Zero)
		ref := product.FGRef(sku.ID)
		repos.SetStock(ref, inventory.FieldAvailable, dec("5"))

		tx, err := svc.RecordDiscard(ctx, appinv.RecordDiscardInput{
			ProductID: sku.ID,
			Quantity:  dec("2"),
			DiscardID: 905,
			CreatedBy: "dave",
		})
		require.NoError(t, err)
		require.NotNil(t, tx)
		assert.Equal(t, inventory.TransactionTypeDiscard, tx.TransactionType)
		assert.Equal(t, dec("3").String(), repos.StockAt(ref, inventory.FieldAvailable).String())

		repos.LedgerFailures = 2
		_, err = svc.RecordDiscard(ctx, appinv.RecordDiscardInput{
			ProductID: sku.ID,
			Quantity:  dec("1"),
			DiscardID: 906,
			CreatedBy: "dave",
		})
		require.Error(t, err)
		assert.True(t, shared.IsDomainError(err, shared.CodeLedgerWrite))
		assert.Equal(t, dec("3").String(), repos.StockAt(ref, inventory.FieldAvailable).String(),
			"failed movement must roll back the balance change")
	})
}

func TestLedgerRetry(t *testing.T) {
	ctx := context.Background()

	t.Run("single insert failure recovers on retry", func(t *testing.T) {
		repos := apptest.NewRepos()
		svc := newLedgerService(repos)
		repos.SeedMaster(1, "Bottle Family", product.ProductTypeFG, decimal.Zero)
		sku := repos.SeedSKU(10, 1, "Bottle 1L x12", decimal.Zero)
		repos.LedgerFailures = 1

		tx, err := svc.RecordInward(ctx, appinv.RecordInwardInput{
			ProductID: sku.ID,
			Quantity:  dec("10"),
			InwardID:  601,
			CreatedBy: "alice",
		})
		require.NoError(t, err)
		require.NotNil(t, tx)
		assert.Len(t, repos.LedgerRows, 1)
		assert.Equal(t, dec("10").String(), repos.StockAt(product.FGRef(sku.ID), inventory.FieldAvailable).String())
	})

	t.Run("retry exhaustion aborts the whole movement", func(t *testing.T) {
		repos := apptest.NewRepos()
		svc := newLedgerService(repos)
		repos.SeedMaster(1, "Bottle Family", product.ProductTypeFG, decimal.Zero)
		sku := repos.SeedSKU(10, 1, "Bottle 1L x12", decimal.Zero)
		repos.LedgerFailures = 2

		_, err := svc.RecordInward(ctx, appinv.RecordInwardInput{
			ProductID: sku.ID,
			Quantity:  dec("10"),
			InwardID:  602,
			CreatedBy: "alice",
		})
		require.Error(t, err)
		assert.True(t, shared.IsDomainError(err, shared.CodeLedgerWrite))
		assert.Empty(t, repos.LedgerRows)
		assert.True(t, repos.StockAt(product.FGRef(sku.ID), inventory.FieldAvailable).IsZero(),
			"no balance change may survive without its audit row")
	})
}

func TestLedgerQueries(t *testing.T) {
	repos := apptest.NewRepos()
	svc := newLedgerService(repos)
	ctx := context.Background()

	repos.SeedMaster(1, "Bottle Family", product.ProductTypeFG, decimal.Zero)
	sku := repos.SeedSKU(10, 1, "Bottle 1L x12", decimal.Zero)

	for i := 0; i < 5; i++ {
		_, err := svc.RecordInward(ctx, appinv.RecordInwardInput{
			ProductID: sku.ID,
			Quantity:  dec("10"),
			InwardID:  int64(700 + i),
			CreatedBy: "alice",
		})
		require.NoError(t, err)
	}

	t.Run("by product, newest first, paginated", func(t *testing.T) {
		page, err := svc.ListTransactionsByProduct(ctx, sku.ID, shared.Filter{Page: 1, PageSize: 2})
		require.NoError(t, err)
		assert.Equal(t, int64(5), page.Total)
		require.Len(t, page.Items, 2)
		assert.Greater(t, page.Items[0].ID, page.Items[1].ID)
		assert.Equal(t, 3, page.TotalPages)
	})

	t.Run("by id", func(t *testing.T) {
		tx, err := svc.GetTransaction(ctx, repos.LedgerRows[0].ID)
		require.NoError(t, err)
		assert.Equal(t, repos.LedgerRows[0].ID, tx.ID)

		_, err = svc.GetTransaction(ctx, 9999)
		require.Error(t, err)
		assert.True(t, shared.IsDomainError(err, shared.CodeNotFound))
	})

	t.Run("unknown reference type is rejected", func(t *testing.T) {
		_, err := svc.ListTransactionsByReference(ctx, inventory.ReferenceType("BOGUS"), 1)
		require.Error(t, err)
		assert.True(t, shared.IsDomainError(err, shared.CodeValidation))
	})
}
