package product

import (
	"time"

	"github.com/manuerp/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// ProductType classifies a master product family. The type is immutable once
// the master product is created because it determines where stock for the
// family is kept: RM/PM stock lives on the material detail row, FG stock lives
// on the SKUs underneath the family.
type ProductType string

const (
	ProductTypeFG ProductType = "FG" // Finished Good
	ProductTypeRM ProductType = "RM" // Raw Material
	ProductTypePM ProductType = "PM" // Packaging Material
)

// IsValid returns true if the product type is one of FG, RM, PM
func (t ProductType) IsValid() bool {
	switch t {
	case ProductTypeFG, ProductTypeRM, ProductTypePM:
		return true
	}
	return false
}

// String returns the string representation of ProductType
func (t ProductType) String() string {
	return string(t)
}

// IsMaterial returns true for types whose stock is held at master level
func (t ProductType) IsMaterial() bool {
	return t == ProductTypeRM || t == ProductTypePM
}

// MasterProduct is a logical product family. FG families hold no stock
// themselves; their sellable package sizes are separate SKU rows. RM/PM
// families hold stock directly through a 1:1 MaterialDetail row keyed by the
// master product id.
type MasterProduct struct {
	shared.BaseAggregateRoot
	Name          string          `gorm:"type:varchar(200);not null"`
	ProductType   ProductType     `gorm:"type:varchar(2);not null;index"`
	MinStockLevel decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	IsActive      bool            `gorm:"not null;default:true"`

	// Loaded for RM/PM masters only
	Material *MaterialDetail `gorm:"foreignKey:MasterProductID"`
}

// TableName returns the table name for GORM
func (MasterProduct) TableName() string {
	return "master_products"
}

// NewMasterProduct creates a new master product
func NewMasterProduct(name string, productType ProductType, minStockLevel decimal.Decimal) (*MasterProduct, error) {
	if name == "" {
		return nil, shared.NewValidationError("product name cannot be empty")
	}
	if !productType.IsValid() {
		return nil, shared.NewValidationError("product type must be one of FG, RM, PM")
	}
	if minStockLevel.IsNegative() {
		return nil, shared.NewValidationError("minimum stock level cannot be negative")
	}

	mp := &MasterProduct{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Name:              name,
		ProductType:       productType,
		MinStockLevel:     minStockLevel,
		IsActive:          true,
	}
	return mp, nil
}

// Deactivate marks the master product as inactive. Stock already on hand is
// unaffected; only new inward movements are expected to stop.
func (m *MasterProduct) Deactivate() {
	m.IsActive = false
	m.Touch()
	m.IncrementVersion()
}

// IsBelowMinimum reports whether the given on-hand quantity is under the
// configured minimum stock level (zero minimum disables the check).
func (m *MasterProduct) IsBelowMinimum(onHand decimal.Decimal) bool {
	return m.MinStockLevel.GreaterThan(decimal.Zero) && onHand.LessThan(m.MinStockLevel)
}

// MaterialDetail holds the stock columns for an RM or PM master product.
// Exactly one row exists per material master, keyed by the master product id.
type MaterialDetail struct {
	MasterProductID   int64           `gorm:"primaryKey"`
	AvailableQty      decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	AvailableWeightKg decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	UnitOfMeasure     string          `gorm:"type:varchar(20);not null;default:'kg'"`
	LedgerSKUID       *int64          `gorm:"index"` // placeholder SKU synthesized for ledger linkage, lazily created
	CreatedAt         time.Time       `gorm:"type:timestamptz;not null"`
	UpdatedAt         time.Time       `gorm:"type:timestamptz;not null"`
}

// TableName returns the table name for GORM
func (MaterialDetail) TableName() string {
	return "material_details"
}

// NewMaterialDetail creates the 1:1 stock row for a material master
func NewMaterialDetail(masterProductID int64, unit string) *MaterialDetail {
	if unit == "" {
		unit = "kg"
	}
	now := time.Now()
	return &MaterialDetail{
		MasterProductID:   masterProductID,
		AvailableQty:      decimal.Zero,
		AvailableWeightKg: decimal.Zero,
		UnitOfMeasure:     unit,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}
