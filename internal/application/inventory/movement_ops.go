package inventory

import (
	"context"

	"github.com/manuerp/backend/internal/domain/inventory"
	"github.com/manuerp/backend/internal/domain/product"
	"github.com/manuerp/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// MovementOps is the set of named movement operations bound to one unit of
// work. Each operation composes the stock store and the ledger with the sign
// and floor rule of its business event, so a balance change and its audit row
// commit or roll back together.
//
// Orchestrators obtain a MovementOps inside their own TransactionScope when
// several movements must be atomic (batch completion, dispatch), or use the
// LedgerService wrappers for single movements.
type MovementOps struct {
	repos  TransactionalRepositories
	log    *zap.Logger
	policy Policy
	events []shared.DomainEvent
}

// NewMovementOps binds movement operations to transactional repositories
func NewMovementOps(repos TransactionalRepositories, log *zap.Logger, policy Policy) *MovementOps {
	return &MovementOps{
		repos:  repos,
		log:    log,
		policy: policy,
	}
}

// Events returns the domain events collected by operations in this unit of
// work. Publish them only after the transaction commits.
func (m *MovementOps) Events() []shared.DomainEvent {
	return m.events
}

// movement carries everything apply needs to run one ledger-backed mutation
type movement struct {
	ref          product.ProductRef
	txType       inventory.TransactionType
	signedQty    decimal.Decimal
	weightKg     decimal.Decimal
	enforceFloor bool
	refType      inventory.ReferenceType
	refID        int64
	unitPrice    *decimal.Decimal
	createdBy    string
	notes        string
	eventType    string
}

// apply runs the read-lock, floor check, clamped adjust and ledger append for
// one movement. The floor check happens before any write so a refusal leaves
// no partial mutation behind.
func (m *MovementOps) apply(ctx context.Context, mv movement) (*inventory.InventoryTransaction, error) {
	stock := m.repos.Stock()

	before, err := stock.Peek(ctx, mv.ref, inventory.FieldAvailable)
	if err != nil {
		return nil, err
	}

	if mv.enforceFloor && before.Add(mv.signedQty).IsNegative() {
		name := m.productName(ctx, mv.ref)
		return nil, shared.NewInsufficientStockError(name, mv.signedQty.Abs(), before)
	}

	adj, err := stock.Adjust(ctx, mv.ref, inventory.FieldAvailable, mv.signedQty)
	if err != nil {
		return nil, err
	}

	if !mv.weightKg.IsZero() {
		weightDelta := mv.weightKg
		if mv.signedQty.IsNegative() {
			weightDelta = weightDelta.Neg()
		}
		if _, err := stock.AdjustWeight(ctx, mv.ref, inventory.FieldAvailable, weightDelta); err != nil {
			return nil, err
		}
	}

	txType := mv.txType
	if txType == inventory.TransactionTypeAdjustment && adj.Before.IsZero() && mv.signedQty.IsPositive() {
		// A positive correction from a zero balance is the stock take that
		// first seeds a product.
		txType = inventory.TransactionTypeInitialStock
	}

	ledgerRow, err := inventory.NewInventoryTransaction(mv.ref, txType, mv.signedQty, adj.Before, adj.After, mv.createdBy)
	if err != nil {
		return nil, err
	}
	ledgerRow.WithWeight(mv.weightKg).WithNotes(mv.notes)
	if mv.refID > 0 {
		ledgerRow.WithReference(mv.refType, mv.refID)
	} else if mv.refType != "" {
		ledgerRow.WithReferenceType(mv.refType)
	}
	if mv.unitPrice != nil {
		ledgerRow.WithUnitPrice(*mv.unitPrice)
	}

	if err := m.appendWithRetry(ctx, ledgerRow); err != nil {
		return nil, err
	}

	m.events = append(m.events, inventory.NewStockMovedEvent(mv.eventType, ledgerRow))
	if mv.signedQty.IsNegative() {
		m.checkLowStock(ctx, mv.ref, adj.After)
	}

	return ledgerRow, nil
}

// appendWithRetry inserts the ledger row and, if the insert fails, retries
// once with the already-computed before/after values. A stock change without
// an audit row is the worst failure mode this subsystem has, so the first
// failure is logged at error severity even when the retry recovers.
func (m *MovementOps) appendWithRetry(ctx context.Context, row *inventory.InventoryTransaction) error {
	err := m.repos.Ledger().Append(ctx, row)
	if err == nil {
		return nil
	}

	m.log.Error("ledger insert failed, retrying with known balances",
		zap.String("transaction_type", row.TransactionType.String()),
		zap.String("quantity", row.Quantity.String()),
		zap.Error(err),
	)

	if retryErr := m.repos.Ledger().Append(ctx, row); retryErr != nil {
		m.log.Error("ledger insert retry failed, aborting movement",
			zap.String("transaction_type", row.TransactionType.String()),
			zap.Error(retryErr),
		)
		return shared.ErrLedgerWriteFailed
	}

	m.events = append(m.events, inventory.NewStockMovedEvent(inventory.EventTypeLedgerWriteRecovered, row))
	return nil
}

// productName looks up a display name for error messages; falls back to the
// ref string when the lookup itself fails.
func (m *MovementOps) productName(ctx context.Context, ref product.ProductRef) string {
	if ref.IsFG() {
		if sku, err := m.repos.Products().FindByID(ctx, ref.ID); err == nil {
			return sku.Name
		}
	} else {
		if mp, err := m.repos.MasterProducts().FindByID(ctx, ref.ID); err == nil {
			return mp.Name
		}
	}
	return ref.String()
}

// checkLowStock emits a warning event when a destructive movement leaves the
// product family under its minimum stock level.
func (m *MovementOps) checkLowStock(ctx context.Context, ref product.ProductRef, onHand decimal.Decimal) {
	var mp *product.MasterProduct
	var err error
	if ref.IsFG() {
		sku, serr := m.repos.Products().FindByID(ctx, ref.ID)
		if serr != nil {
			return
		}
		mp, err = m.repos.MasterProducts().FindByID(ctx, sku.MasterProductID)
	} else {
		mp, err = m.repos.MasterProducts().FindByID(ctx, ref.ID)
	}
	if err != nil || mp == nil {
		return
	}
	if mp.IsBelowMinimum(onHand) {
		m.log.Warn("stock below minimum level",
			zap.Int64("master_product_id", mp.ID),
			zap.String("product", mp.Name),
			zap.String("on_hand", onHand.String()),
			zap.String("min_stock_level", mp.MinStockLevel.String()),
		)
		m.events = append(m.events, inventory.NewStockBelowMinimumEvent(mp, onHand))
	}
}

// Inward records received stock. No floor: inward always increases.
func (m *MovementOps) Inward(ctx context.Context, ref product.ProductRef, in RecordInwardInput) (*inventory.InventoryTransaction, error) {
	return m.apply(ctx, movement{
		ref:       ref,
		txType:    inventory.TransactionTypeInward,
		signedQty: in.Quantity,
		weightKg:  in.WeightKg,
		refType:   inventory.ReferenceTypeInward,
		refID:     in.InwardID,
		unitPrice: in.UnitPrice,
		createdBy: in.CreatedBy,
		notes:     in.Notes,
		eventType: inventory.EventTypeStockReceived,
	})
}

// ProductionConsumption records raw material consumed by a batch. Floored:
// insufficient material refuses the movement outright.
func (m *MovementOps) ProductionConsumption(ctx context.Context, ref product.ProductRef, in RecordProductionConsumptionInput) (*inventory.InventoryTransaction, error) {
	return m.apply(ctx, movement{
		ref:          ref,
		txType:       inventory.TransactionTypeProductionConsumption,
		signedQty:    in.Quantity.Neg(),
		weightKg:     in.WeightKg,
		enforceFloor: true,
		refType:      inventory.ReferenceTypeBatch,
		refID:        in.BatchID,
		createdBy:    in.CreatedBy,
		notes:        in.Notes,
		eventType:    inventory.EventTypeStockDispatched,
	})
}

// ProductionOutput records finished goods produced by a batch
func (m *MovementOps) ProductionOutput(ctx context.Context, ref product.ProductRef, in RecordProductionOutputInput) (*inventory.InventoryTransaction, error) {
	return m.apply(ctx, movement{
		ref:       ref,
		txType:    inventory.TransactionTypeProductionOutput,
		signedQty: in.Quantity,
		weightKg:  in.WeightKg,
		refType:   inventory.ReferenceTypeBatch,
		refID:     in.BatchID,
		createdBy: in.CreatedBy,
		notes:     in.Notes,
		eventType: inventory.EventTypeStockReceived,
	})
}

// Dispatch records stock leaving for an order. Floored: a dispatch never
// truncates to a partial quantity.
func (m *MovementOps) Dispatch(ctx context.Context, ref product.ProductRef, in RecordDispatchInput) (*inventory.InventoryTransaction, error) {
	return m.apply(ctx, movement{
		ref:          ref,
		txType:       inventory.TransactionTypeDispatch,
		signedQty:    in.Quantity.Neg(),
		weightKg:     in.WeightKg,
		enforceFloor: true,
		refType:      inventory.ReferenceTypeOrder,
		refID:        in.OrderID,
		createdBy:    in.CreatedBy,
		notes:        in.Notes,
		eventType:    inventory.EventTypeStockDispatched,
	})
}

// Adjustment records a signed manual correction. Negative adjustments are
// floored like any other destructive movement.
func (m *MovementOps) Adjustment(ctx context.Context, ref product.ProductRef, in RecordAdjustmentInput) (*inventory.InventoryTransaction, error) {
	return m.apply(ctx, movement{
		ref:          ref,
		txType:       inventory.TransactionTypeAdjustment,
		signedQty:    in.Quantity,
		weightKg:     in.WeightKg,
		enforceFloor: in.Quantity.IsNegative(),
		refType:      inventory.ReferenceTypeManualAdjustment,
		refID:        0,
		createdBy:    in.CreatedBy,
		notes:        in.Notes,
		eventType:    inventory.EventTypeStockReceived,
	})
}

// Discard writes off finished-good stock. Material discards need placeholder
// SKU linkage and go through the ledger service instead.
func (m *MovementOps) Discard(ctx context.Context, ref product.ProductRef, in RecordDiscardInput) (*inventory.InventoryTransaction, error) {
	return m.apply(ctx, movement{
		ref:          ref,
		txType:       inventory.TransactionTypeDiscard,
		signedQty:    in.Quantity.Neg(),
		enforceFloor: true,
		refType:      inventory.ReferenceTypeDiscard,
		refID:        in.DiscardID,
		createdBy:    in.CreatedBy,
		notes:        in.Notes,
		eventType:    inventory.EventTypeStockDiscarded,
	})
}

// Return records stock coming back from a dispatch or cancelled order
func (m *MovementOps) Return(ctx context.Context, ref product.ProductRef, in RecordReturnInput) (*inventory.InventoryTransaction, error) {
	return m.apply(ctx, movement{
		ref:       ref,
		txType:    inventory.TransactionTypeReturn,
		signedQty: in.Quantity,
		weightKg:  in.WeightKg,
		refType:   inventory.ReferenceTypeOrder,
		refID:     in.OrderID,
		createdBy: in.CreatedBy,
		notes:     in.Notes,
		eventType: inventory.EventTypeStockReceived,
	})
}
