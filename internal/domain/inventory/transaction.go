package inventory

import (
	"time"

	"github.com/manuerp/backend/internal/domain/product"
	"github.com/manuerp/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// TransactionType names the business event behind a stock mutation. It is an
// open string enumeration: new movement types are expected over time, so the
// known set is validated at the boundary but the column stays a plain string.
type TransactionType string

const (
	TransactionTypeInward                TransactionType = "INWARD"
	TransactionTypeProductionConsumption TransactionType = "PRODUCTION_CONSUMPTION"
	TransactionTypeProductionOutput      TransactionType = "PRODUCTION_OUTPUT"
	TransactionTypeDispatch              TransactionType = "DISPATCH"
	TransactionTypeAdjustment            TransactionType = "ADJUSTMENT"
	TransactionTypeReturn                TransactionType = "RETURN"
	TransactionTypeDiscard               TransactionType = "DISCARD"
	TransactionTypeInitialStock          TransactionType = "INITIAL_STOCK"
)

// String returns the string representation of TransactionType
func (t TransactionType) String() string {
	return string(t)
}

// IsKnown returns true if the type belongs to the currently known set
func (t TransactionType) IsKnown() bool {
	switch t {
	case TransactionTypeInward,
		TransactionTypeProductionConsumption,
		TransactionTypeProductionOutput,
		TransactionTypeDispatch,
		TransactionTypeAdjustment,
		TransactionTypeReturn,
		TransactionTypeDiscard,
		TransactionTypeInitialStock:
		return true
	}
	return false
}

// ReferenceType names the kind of business document that caused a movement.
// Open enumeration, same policy as TransactionType.
type ReferenceType string

const (
	ReferenceTypeBatch            ReferenceType = "BATCH"
	ReferenceTypeOrder            ReferenceType = "ORDER"
	ReferenceTypeInward           ReferenceType = "INWARD"
	ReferenceTypeDispatch         ReferenceType = "DISPATCH"
	ReferenceTypeManualAdjustment ReferenceType = "MANUAL_ADJUSTMENT"
	ReferenceTypeDiscard          ReferenceType = "DISCARD"
)

// String returns the string representation of ReferenceType
func (r ReferenceType) String() string {
	return string(r)
}

// IsKnown returns true if the reference type belongs to the known set
func (r ReferenceType) IsKnown() bool {
	switch r {
	case ReferenceTypeBatch,
		ReferenceTypeOrder,
		ReferenceTypeInward,
		ReferenceTypeDispatch,
		ReferenceTypeManualAdjustment,
		ReferenceTypeDiscard:
		return true
	}
	return false
}

// Reference is a polymorphic pointer to the business document that caused a
// stock movement.
type Reference struct {
	Type ReferenceType
	ID   int64
}

// InventoryTransaction is one immutable row of the stock ledger: the audit
// source of truth for "why did stock change". Rows are append-only; a
// correction is a new row, never an update or delete.
//
// Exactly one of ProductID (FG SKU) and MasterProductID (RM/PM) is set.
// Quantity is signed; BalanceAfter = BalanceBefore + Quantity always holds.
type InventoryTransaction struct {
	ID              int64           `gorm:"primaryKey;autoIncrement"`
	ProductID       *int64          `gorm:"index:idx_inv_tx_product"`
	MasterProductID *int64          `gorm:"index:idx_inv_tx_master"`
	TransactionType TransactionType `gorm:"type:varchar(30);not null;index:idx_inv_tx_type"`
	Quantity        decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	WeightKg        decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	BalanceBefore   decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	BalanceAfter    decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	ReferenceType   *ReferenceType  `gorm:"type:varchar(30);index:idx_inv_tx_ref"`
	ReferenceID     *int64          `gorm:"index:idx_inv_tx_ref"`
	UnitPrice       *decimal.Decimal `gorm:"type:decimal(18,4)"`
	TotalValue      *decimal.Decimal `gorm:"type:decimal(18,4)"`
	Notes           string          `gorm:"type:varchar(500)"`
	CreatedBy       string          `gorm:"type:varchar(100);not null"`
	CreatedAt       time.Time       `gorm:"type:timestamptz;not null;index"`
}

// TableName returns the table name for GORM
func (InventoryTransaction) TableName() string {
	return "inventory_transactions"
}

// NewInventoryTransaction creates a ledger row for the given product
// reference. Validation here guards the append-only table: a row that fails
// these checks would poison the audit trail.
func NewInventoryTransaction(
	ref product.ProductRef,
	txType TransactionType,
	signedQty decimal.Decimal,
	balanceBefore decimal.Decimal,
	balanceAfter decimal.Decimal,
	createdBy string,
) (*InventoryTransaction, error) {
	if ref.ID <= 0 {
		return nil, shared.NewValidationError("product reference id is required")
	}
	if !txType.IsKnown() {
		return nil, shared.NewValidationError("unknown transaction type: " + txType.String())
	}
	if signedQty.IsZero() {
		return nil, shared.NewValidationError("transaction quantity cannot be zero")
	}
	if !balanceAfter.Equal(balanceBefore.Add(signedQty)) {
		return nil, shared.NewValidationError("balance after must equal balance before plus quantity")
	}
	if createdBy == "" {
		return nil, shared.NewValidationError("createdBy is required")
	}

	tx := &InventoryTransaction{
		TransactionType: txType,
		Quantity:        signedQty,
		WeightKg:        decimal.Zero,
		BalanceBefore:   balanceBefore,
		BalanceAfter:    balanceAfter,
		CreatedBy:       createdBy,
		CreatedAt:       time.Now(),
	}
	id := ref.ID
	if ref.IsFG() {
		tx.ProductID = &id
	} else {
		tx.MasterProductID = &id
	}
	return tx, nil
}

// WithReference attaches the causing business document. When a workflow
// document exists (batch, order, inward, dispatch, discard) it must be set so
// the ledger stays queryable by source.
func (t *InventoryTransaction) WithReference(refType ReferenceType, refID int64) *InventoryTransaction {
	t.ReferenceType = &refType
	t.ReferenceID = &refID
	return t
}

// WithReferenceType attaches the causing operation kind alone, for movements
// like manual adjustments that have no backing document row.
func (t *InventoryTransaction) WithReferenceType(refType ReferenceType) *InventoryTransaction {
	t.ReferenceType = &refType
	return t
}

// WithWeight records the weight moved alongside the package quantity
func (t *InventoryTransaction) WithWeight(weightKg decimal.Decimal) *InventoryTransaction {
	t.WeightKg = weightKg
	return t
}

// WithUnitPrice records the unit price and derived total value
func (t *InventoryTransaction) WithUnitPrice(unitPrice decimal.Decimal) *InventoryTransaction {
	total := t.Quantity.Abs().Mul(unitPrice)
	t.UnitPrice = &unitPrice
	t.TotalValue = &total
	return t
}

// WithNotes attaches free-form operator notes
func (t *InventoryTransaction) WithNotes(notes string) *InventoryTransaction {
	t.Notes = notes
	return t
}

// IsIncrease reports whether the row added stock
func (t *InventoryTransaction) IsIncrease() bool {
	return t.Quantity.IsPositive()
}

// BalancesConsistent verifies the append-only invariant for this row
func (t *InventoryTransaction) BalancesConsistent() bool {
	return t.BalanceAfter.Equal(t.BalanceBefore.Add(t.Quantity))
}

// ProductRefOf reconstructs the product reference recorded on the row. The
// kind for master-product rows cannot be recovered from the row alone, so RM
// is reported for any material row; callers needing the exact material kind
// must resolve the master product.
func (t *InventoryTransaction) ProductRefOf() product.ProductRef {
	if t.ProductID != nil {
		return product.FGRef(*t.ProductID)
	}
	if t.MasterProductID != nil {
		return product.MaterialRef(product.KindRM, *t.MasterProductID)
	}
	return product.ProductRef{}
}
