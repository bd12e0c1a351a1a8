package persistence

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/manuerp/backend/internal/domain/inventory"
	"github.com/manuerp/backend/internal/domain/product"
	"github.com/manuerp/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// newMockLedgerRepository creates a GormLedgerRepository with a mocked SQL connection
func newMockLedgerRepository(t *testing.T) (*GormLedgerRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return NewGormLedgerRepository(gormDB), mock, mockDB
}

func ledgerColumns() []string {
	return []string{
		"id", "product_id", "master_product_id", "transaction_type",
		"quantity", "weight_kg", "balance_before", "balance_after",
		"reference_type", "reference_id", "unit_price", "total_value",
		"notes", "created_by", "created_at",
	}
}

func TestGormLedgerRepository_Append(t *testing.T) {
	t.Run("inserts a new ledger row", func(t *testing.T) {
		repo, mock, mockDB := newMockLedgerRepository(t)
		defer mockDB.Close()

		row, err := inventory.NewInventoryTransaction(
			product.FGRef(42), inventory.TransactionTypeInward,
			decimal.NewFromInt(10), decimal.Zero, decimal.NewFromInt(10), "tester")
		require.NoError(t, err)

		mock.ExpectQuery(`INSERT INTO "inventory_transactions"`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))

		err = repo.Append(context.Background(), row)
		require.NoError(t, err)
		assert.EqualValues(t, 7, row.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormLedgerRepository_FindByID(t *testing.T) {
	t.Run("finds an existing row", func(t *testing.T) {
		repo, mock, mockDB := newMockLedgerRepository(t)
		defer mockDB.Close()

		productID := int64(42)
		rows := sqlmock.NewRows(ledgerColumns()).AddRow(
			int64(7), productID, nil, "INWARD",
			decimal.NewFromInt(10), decimal.NewFromInt(120), decimal.Zero, decimal.NewFromInt(10),
			nil, nil, nil, nil,
			"", "tester", time.Now(),
		)

		mock.ExpectQuery(`SELECT \* FROM "inventory_transactions" WHERE id = \$1`).
			WithArgs(int64(7), 1).
			WillReturnRows(rows)

		got, err := repo.FindByID(context.Background(), 7)
		require.NoError(t, err)
		assert.EqualValues(t, 7, got.ID)
		require.NotNil(t, got.ProductID)
		assert.Equal(t, productID, *got.ProductID)
		assert.Equal(t, inventory.TransactionTypeInward, got.TransactionType)
	})

	t.Run("maps missing rows to not found", func(t *testing.T) {
		repo, mock, mockDB := newMockLedgerRepository(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT \* FROM "inventory_transactions" WHERE id = \$1`).
			WithArgs(int64(99), 1).
			WillReturnRows(sqlmock.NewRows(ledgerColumns()))

		_, err := repo.FindByID(context.Background(), 99)
		assert.True(t, shared.IsDomainError(err, shared.CodeNotFound))
	})
}

func TestGormLedgerRepository_FindByReference(t *testing.T) {
	t.Run("filters by reference type and id", func(t *testing.T) {
		repo, mock, mockDB := newMockLedgerRepository(t)
		defer mockDB.Close()

		refType := "ORDER"
		refID := int64(5)
		rows := sqlmock.NewRows(ledgerColumns()).
			AddRow(int64(1), int64(42), nil, "DISPATCH",
				decimal.NewFromInt(-3), decimal.Zero, decimal.NewFromInt(10), decimal.NewFromInt(7),
				refType, refID, nil, nil, "", "tester", time.Now()).
			AddRow(int64(2), int64(43), nil, "DISPATCH",
				decimal.NewFromInt(-1), decimal.Zero, decimal.NewFromInt(4), decimal.NewFromInt(3),
				refType, refID, nil, nil, "", "tester", time.Now())

		mock.ExpectQuery(`SELECT \* FROM "inventory_transactions" WHERE reference_type = \$1 AND reference_id = \$2 ORDER BY id ASC`).
			WithArgs("ORDER", refID).
			WillReturnRows(rows)

		got, err := repo.FindByReference(context.Background(), inventory.ReferenceTypeOrder, refID)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.True(t, got[0].Quantity.Equal(decimal.NewFromInt(-3)))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
