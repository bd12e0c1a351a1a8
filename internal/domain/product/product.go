package product

import (
	"github.com/manuerp/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Product is a sellable SKU under a Finished Good master product: one package
// size of the family. SKU ids form their own id space, independent of master
// product ids, so a SKU id and a material master id may share the same integer
// value without referring to the same thing.
//
// AvailableQuantity and ReservedQuantity are updated by independent operations
// and may transiently diverge under concurrency; the ledger is the
// reconciliation source of truth. The invariant target is
// ReservedQuantity <= AvailableQuantity.
type Product struct {
	shared.BaseAggregateRoot
	MasterProductID   int64           `gorm:"not null;index"`
	Name              string          `gorm:"type:varchar(200);not null"`
	AvailableQuantity decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	ReservedQuantity  decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	AvailableWeightKg decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	ReservedWeightKg  decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	PackageCapacityKg decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"` // weight per package: packaging capacity x product density
	IsPlaceholder     bool            `gorm:"not null;default:false"`                // synthesized for RM/PM ledger linkage, never sold
	IsActive          bool            `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (Product) TableName() string {
	return "products"
}

// NewProduct creates a new SKU under an FG master product
func NewProduct(masterProductID int64, name string, packageCapacityKg decimal.Decimal) (*Product, error) {
	if masterProductID <= 0 {
		return nil, shared.NewValidationError("master product id is required")
	}
	if name == "" {
		return nil, shared.NewValidationError("SKU name cannot be empty")
	}
	if packageCapacityKg.IsNegative() {
		return nil, shared.NewValidationError("package capacity cannot be negative")
	}

	return &Product{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		MasterProductID:   masterProductID,
		Name:              name,
		AvailableQuantity: decimal.Zero,
		ReservedQuantity:  decimal.Zero,
		AvailableWeightKg: decimal.Zero,
		ReservedWeightKg:  decimal.Zero,
		PackageCapacityKg: packageCapacityKg,
		IsActive:          true,
	}, nil
}

// NewPlaceholderProduct creates a non-sellable SKU that anchors ledger rows
// for an RM/PM master product in the SKU id space.
func NewPlaceholderProduct(masterProductID int64, name string) *Product {
	return &Product{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		MasterProductID:   masterProductID,
		Name:              name,
		AvailableQuantity: decimal.Zero,
		ReservedQuantity:  decimal.Zero,
		AvailableWeightKg: decimal.Zero,
		ReservedWeightKg:  decimal.Zero,
		PackageCapacityKg: decimal.Zero,
		IsPlaceholder:     true,
		IsActive:          true,
	}
}

// WeightFor converts a package quantity to weight using the SKU's package
// capacity. Zero capacity yields zero weight.
func (p *Product) WeightFor(quantity decimal.Decimal) decimal.Decimal {
	return quantity.Mul(p.PackageCapacityKg)
}

// CanFulfill reports whether available quantity covers the requested quantity
func (p *Product) CanFulfill(quantity decimal.Decimal) bool {
	return p.AvailableQuantity.GreaterThanOrEqual(quantity)
}

// IsOversold reports whether reservations exceed availability
func (p *Product) IsOversold() bool {
	return p.ReservedQuantity.GreaterThan(p.AvailableQuantity)
}

// Unreserved returns the quantity available and not yet reserved. The result
// can be negative when the SKU is oversold.
func (p *Product) Unreserved() decimal.Decimal {
	return p.AvailableQuantity.Sub(p.ReservedQuantity)
}
