package production

import (
	"github.com/manuerp/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// BatchMaterial is one raw-material requirement of a production batch: the
// quantity of an RM master product the batch consumes on completion. There is
// no variance tracking; the required quantity is what gets consumed.
type BatchMaterial struct {
	shared.BaseEntity
	BatchID          int64           `gorm:"not null;index"`
	MasterProductID  int64           `gorm:"not null;index"` // RM master id
	RequiredQty      decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	RequiredWeightKg decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
}

// TableName returns the table name for GORM
func (BatchMaterial) TableName() string {
	return "batch_materials"
}

// NewBatchMaterial creates a material requirement for a batch
func NewBatchMaterial(masterProductID int64, requiredQty, requiredWeightKg decimal.Decimal) (*BatchMaterial, error) {
	if masterProductID <= 0 {
		return nil, shared.NewValidationError("material master product id is required")
	}
	if requiredQty.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewValidationError("required quantity must be positive")
	}
	if requiredWeightKg.IsNegative() {
		return nil, shared.NewValidationError("required weight cannot be negative")
	}

	return &BatchMaterial{
		BaseEntity:       shared.NewBaseEntity(),
		MasterProductID:  masterProductID,
		RequiredQty:      requiredQty,
		RequiredWeightKg: requiredWeightKg,
	}, nil
}
