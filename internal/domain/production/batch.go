package production

import (
	"time"

	"github.com/manuerp/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// BatchStatus tracks the lifecycle of a production batch
type BatchStatus string

const (
	BatchStatusPlanned    BatchStatus = "PLANNED"
	BatchStatusInProgress BatchStatus = "IN_PROGRESS"
	BatchStatusCompleted  BatchStatus = "COMPLETED"
	BatchStatusCancelled  BatchStatus = "CANCELLED"
)

// IsValid checks if the status is a valid BatchStatus
func (s BatchStatus) IsValid() bool {
	switch s {
	case BatchStatusPlanned, BatchStatusInProgress, BatchStatusCompleted, BatchStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of BatchStatus
func (s BatchStatus) String() string {
	return string(s)
}

// Batch is a production run that consumes raw materials and produces a
// finished-good SKU. Completing a batch triggers one Production Consumption
// movement per material and one Production Output movement for the output
// SKU; insufficient raw material aborts the whole completion, never a part
// of it.
type Batch struct {
	shared.BaseAggregateRoot
	BatchNumber    string          `gorm:"type:varchar(50);not null;uniqueIndex"`
	OutputSKUID    int64           `gorm:"not null;index"`
	PlannedQty     decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	ProducedQty    decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	OutputWeightKg decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Status         BatchStatus     `gorm:"type:varchar(20);not null;index"`
	ScheduledFor   *time.Time      `gorm:"type:timestamptz"`
	CompletedAt    *time.Time      `gorm:"type:timestamptz"`
	OrderID        *int64          `gorm:"index"` // order this batch was scheduled against, if any

	Materials []BatchMaterial `gorm:"foreignKey:BatchID"`
}

// TableName returns the table name for GORM
func (Batch) TableName() string {
	return "production_batches"
}

// NewBatch creates a planned production batch
func NewBatch(batchNumber string, outputSKUID int64, plannedQty decimal.Decimal) (*Batch, error) {
	if batchNumber == "" {
		return nil, shared.NewValidationError("batch number cannot be empty")
	}
	if outputSKUID <= 0 {
		return nil, shared.NewValidationError("output SKU id is required")
	}
	if plannedQty.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewValidationError("planned quantity must be positive")
	}

	return &Batch{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		BatchNumber:       batchNumber,
		OutputSKUID:       outputSKUID,
		PlannedQty:        plannedQty,
		ProducedQty:       decimal.Zero,
		Status:            BatchStatusPlanned,
		Materials:         make([]BatchMaterial, 0),
	}, nil
}

// AddMaterial adds a required raw material to a planned batch
func (b *Batch) AddMaterial(m BatchMaterial) error {
	if b.Status != BatchStatusPlanned {
		return shared.NewDomainError("INVALID_STATE", "materials can only be added to a planned batch")
	}
	b.Materials = append(b.Materials, m)
	b.Touch()
	return nil
}

// Start moves the batch into progress
func (b *Batch) Start() error {
	if b.Status != BatchStatusPlanned {
		return shared.NewDomainError("INVALID_STATE", "only planned batches can be started")
	}
	b.Status = BatchStatusInProgress
	b.Touch()
	b.IncrementVersion()
	return nil
}

// Complete records the produced quantity and closes the batch. The stock
// movements for materials and output are the orchestrator's responsibility
// and run in the same unit of work as this state change.
func (b *Batch) Complete(producedQty, outputWeightKg decimal.Decimal) error {
	if b.Status != BatchStatusInProgress && b.Status != BatchStatusPlanned {
		return shared.NewDomainError("INVALID_STATE", "batch is "+b.Status.String()+", cannot complete")
	}
	if producedQty.LessThanOrEqual(decimal.Zero) {
		return shared.NewValidationError("produced quantity must be positive")
	}

	now := time.Now()
	b.ProducedQty = producedQty
	b.OutputWeightKg = outputWeightKg
	b.Status = BatchStatusCompleted
	b.CompletedAt = &now
	b.Touch()
	b.IncrementVersion()
	return nil
}

// Cancel abandons a batch that has not completed
func (b *Batch) Cancel() error {
	if b.Status == BatchStatusCompleted || b.Status == BatchStatusCancelled {
		return shared.NewDomainError("INVALID_STATE", "batch is "+b.Status.String()+", cannot cancel")
	}
	b.Status = BatchStatusCancelled
	b.Touch()
	b.IncrementVersion()
	return nil
}
