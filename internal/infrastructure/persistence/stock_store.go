package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/manuerp/backend/internal/domain/inventory"
	"github.com/manuerp/backend/internal/domain/product"
	"github.com/manuerp/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStockStore implements StockStore using GORM. Every read-modify-write
// runs under a SELECT ... FOR UPDATE row lock so concurrent movements against
// the same product serialize on the database rather than racing in memory.
type GormStockStore struct {
	db *gorm.DB
}

// NewGormStockStore creates a new GormStockStore
func NewGormStockStore(db *gorm.DB) *GormStockStore {
	return &GormStockStore{db: db}
}

// stockTarget names the table, key column and value column a (ref, field)
// pair maps onto. FG stock lives on the SKU row; material stock lives on the
// 1:1 material detail row keyed by the master product id.
type stockTarget struct {
	model  any
	key    string
	column string
}

func quantityTarget(ref product.ProductRef, field inventory.StockField) (stockTarget, error) {
	if ref.IsFG() {
		t := stockTarget{model: &product.Product{}, key: "id"}
		switch field {
		case inventory.FieldAvailable:
			t.column = "available_quantity"
		case inventory.FieldReserved:
			t.column = "reserved_quantity"
		default:
			return stockTarget{}, shared.NewValidationError(fmt.Sprintf("unknown stock field %q", field))
		}
		return t, nil
	}
	if field == inventory.FieldReserved {
		return stockTarget{}, shared.NewValidationError("materials track no reserved stock")
	}
	return stockTarget{model: &product.MaterialDetail{}, key: "master_product_id", column: "available_qty"}, nil
}

func weightTarget(ref product.ProductRef, field inventory.StockField) (stockTarget, error) {
	if ref.IsFG() {
		t := stockTarget{model: &product.Product{}, key: "id"}
		switch field {
		case inventory.FieldAvailable:
			t.column = "available_weight_kg"
		case inventory.FieldReserved:
			t.column = "reserved_weight_kg"
		default:
			return stockTarget{}, shared.NewValidationError(fmt.Sprintf("unknown stock field %q", field))
		}
		return t, nil
	}
	if field == inventory.FieldReserved {
		return stockTarget{}, shared.NewValidationError("materials track no reserved stock")
	}
	return stockTarget{model: &product.MaterialDetail{}, key: "master_product_id", column: "available_weight_kg"}, nil
}

// Adjust applies delta to the quantity column for the field, clamped at zero
func (s *GormStockStore) Adjust(ctx context.Context, ref product.ProductRef, field inventory.StockField, delta decimal.Decimal) (inventory.Adjustment, error) {
	target, err := quantityTarget(ref, field)
	if err != nil {
		return inventory.Adjustment{}, err
	}
	return s.adjustColumn(ctx, ref, target, delta)
}

// AdjustWeight applies delta to the weight column paired with the field
func (s *GormStockStore) AdjustWeight(ctx context.Context, ref product.ProductRef, field inventory.StockField, deltaKg decimal.Decimal) (inventory.Adjustment, error) {
	target, err := weightTarget(ref, field)
	if err != nil {
		return inventory.Adjustment{}, err
	}
	return s.adjustColumn(ctx, ref, target, deltaKg)
}

// Peek reads the current quantity value under the same row lock Adjust takes
func (s *GormStockStore) Peek(ctx context.Context, ref product.ProductRef, field inventory.StockField) (decimal.Decimal, error) {
	target, err := quantityTarget(ref, field)
	if err != nil {
		return decimal.Zero, err
	}
	return s.lockedRead(ctx, ref, target)
}

func (s *GormStockStore) adjustColumn(ctx context.Context, ref product.ProductRef, target stockTarget, delta decimal.Decimal) (inventory.Adjustment, error) {
	before, err := s.lockedRead(ctx, ref, target)
	if err != nil {
		return inventory.Adjustment{}, err
	}

	after := before.Add(delta)
	if after.IsNegative() {
		after = decimal.Zero
	}

	res := s.db.WithContext(ctx).Model(target.model).
		Where(target.key+" = ?", ref.ID).
		Update(target.column, after)
	if res.Error != nil {
		return inventory.Adjustment{}, res.Error
	}
	return inventory.Adjustment{Before: before, After: after}, nil
}

func (s *GormStockStore) lockedRead(ctx context.Context, ref product.ProductRef, target stockTarget) (decimal.Decimal, error) {
	var row struct {
		Value decimal.Decimal
	}
	query := s.db.WithContext(ctx).Model(target.model).
		Select(target.column + " AS value").
		Where(target.key+" = ?", ref.ID)
	if s.db.Dialector.Name() != "sqlite" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	if err := query.Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, shared.NewNotFoundError("stock row for "+ref.String(), ref.ID)
		}
		return decimal.Zero, err
	}
	return row.Value, nil
}

var _ inventory.StockStore = (*GormStockStore)(nil)
