package inventory

import (
	"context"
	"time"

	"github.com/manuerp/backend/internal/domain/inventory"
	"github.com/manuerp/backend/internal/domain/product"
	"github.com/manuerp/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// LedgerService exposes the movement operations as application use cases.
// Each Record method resolves the caller's numeric product id, runs the
// movement inside one transaction scope and publishes the collected events
// after commit.
type LedgerService struct {
	scope     TransactionScope
	publisher shared.EventPublisher
	log       *zap.Logger
	policy    Policy
}

// NewLedgerService creates the ledger application service
func NewLedgerService(scope TransactionScope, publisher shared.EventPublisher, log *zap.Logger, policy Policy) *LedgerService {
	return &LedgerService{
		scope:     scope,
		publisher: publisher,
		log:       log,
		policy:    policy,
	}
}

// Movements binds the movement operations to an externally managed unit of
// work. Orchestrators that must run several movements atomically (batch
// completion, multi-line dispatch) call this inside their own scope.
func (s *LedgerService) Movements(repos TransactionalRepositories) *MovementOps {
	return NewMovementOps(repos, s.log, s.policy)
}

func (s *LedgerService) publish(ctx context.Context, events []shared.DomainEvent) {
	if s.publisher == nil || len(events) == 0 {
		return
	}
	if err := s.publisher.Publish(ctx, events...); err != nil {
		s.log.Warn("failed to publish inventory events", zap.Error(err))
	}
}

// runMovement resolves the product id and executes one movement atomically
func (s *LedgerService) runMovement(
	ctx context.Context,
	productID int64,
	fn func(ops *MovementOps, ref product.ProductRef) (*inventory.InventoryTransaction, error),
) (*inventory.InventoryTransaction, error) {
	var tx *inventory.InventoryTransaction
	var events []shared.DomainEvent

	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		ref, err := ResolveProductRef(ctx, repos, productID)
		if err != nil {
			return err
		}
		ops := s.Movements(repos)
		tx, err = fn(ops, ref)
		if err != nil {
			return err
		}
		events = ops.Events()
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events)
	return tx, nil
}

// RecordInward records received stock against a SKU or material
func (s *LedgerService) RecordInward(ctx context.Context, in RecordInwardInput) (*inventory.InventoryTransaction, error) {
	if err := validatePositiveQty(in.Quantity); err != nil {
		return nil, err
	}
	return s.runMovement(ctx, in.ProductID, func(ops *MovementOps, ref product.ProductRef) (*inventory.InventoryTransaction, error) {
		return ops.Inward(ctx, ref, in)
	})
}

// RecordProductionConsumption records raw material consumed by a batch
func (s *LedgerService) RecordProductionConsumption(ctx context.Context, in RecordProductionConsumptionInput) (*inventory.InventoryTransaction, error) {
	if err := validatePositiveQty(in.Quantity); err != nil {
		return nil, err
	}
	return s.runMovement(ctx, in.ProductID, func(ops *MovementOps, ref product.ProductRef) (*inventory.InventoryTransaction, error) {
		return ops.ProductionConsumption(ctx, ref, in)
	})
}

// RecordProductionOutput records finished goods produced by a batch
func (s *LedgerService) RecordProductionOutput(ctx context.Context, in RecordProductionOutputInput) (*inventory.InventoryTransaction, error) {
	if err := validatePositiveQty(in.Quantity); err != nil {
		return nil, err
	}
	return s.runMovement(ctx, in.ProductID, func(ops *MovementOps, ref product.ProductRef) (*inventory.InventoryTransaction, error) {
		return ops.ProductionOutput(ctx, ref, in)
	})
}

// RecordDispatch records stock leaving for an order
func (s *LedgerService) RecordDispatch(ctx context.Context, in RecordDispatchInput) (*inventory.InventoryTransaction, error) {
	if err := validatePositiveQty(in.Quantity); err != nil {
		return nil, err
	}
	return s.runMovement(ctx, in.ProductID, func(ops *MovementOps, ref product.ProductRef) (*inventory.InventoryTransaction, error) {
		return ops.Dispatch(ctx, ref, in)
	})
}

// RecordAdjustment records a signed manual correction
func (s *LedgerService) RecordAdjustment(ctx context.Context, in RecordAdjustmentInput) (*inventory.InventoryTransaction, error) {
	if in.Quantity.IsZero() {
		return nil, shared.NewValidationError("adjustment quantity cannot be zero")
	}
	return s.runMovement(ctx, in.ProductID, func(ops *MovementOps, ref product.ProductRef) (*inventory.InventoryTransaction, error) {
		return ops.Adjustment(ctx, ref, in)
	})
}

// RecordReturn records stock coming back from a dispatch or cancelled order
func (s *LedgerService) RecordReturn(ctx context.Context, in RecordReturnInput) (*inventory.InventoryTransaction, error) {
	if err := validatePositiveQty(in.Quantity); err != nil {
		return nil, err
	}
	return s.runMovement(ctx, in.ProductID, func(ops *MovementOps, ref product.ProductRef) (*inventory.InventoryTransaction, error) {
		return ops.Return(ctx, ref, in)
	})
}

// RecordDiscard writes off damaged or expired stock. A finished-good discard
// is one atomic movement. A material discard commits the stock write-off
// first, then links the ledger row through a lazily created placeholder SKU;
// a linkage failure does not undo the write-off, because physically destroyed
// material must never reappear as on-hand stock.
//
// When the ledger linkage fails the returned transaction is nil and the error
// is nil as well. Callers treat that as a degraded success.
func (s *LedgerService) RecordDiscard(ctx context.Context, in RecordDiscardInput) (*inventory.InventoryTransaction, error) {
	if err := validatePositiveQty(in.Quantity); err != nil {
		return nil, err
	}

	var ref product.ProductRef
	var adj inventory.Adjustment
	var events []shared.DomainEvent

	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		ref, err = ResolveProductRef(ctx, repos, in.ProductID)
		if err != nil {
			return err
		}

		if ref.IsFG() {
			return nil
		}

		stock := repos.Stock()
		before, err := stock.Peek(ctx, ref, inventory.FieldAvailable)
		if err != nil {
			return err
		}
		if before.Sub(in.Quantity).IsNegative() {
			name := ref.String()
			if mp, merr := repos.MasterProducts().FindByID(ctx, ref.ID); merr == nil {
				name = mp.Name
			}
			return shared.NewInsufficientStockError(name, in.Quantity, before)
		}
		adj, err = stock.Adjust(ctx, ref, inventory.FieldAvailable, in.Quantity.Neg())
		return err
	})
	if err != nil {
		return nil, err
	}

	if ref.IsFG() {
		return s.runMovement(ctx, in.ProductID, func(ops *MovementOps, ref product.ProductRef) (*inventory.InventoryTransaction, error) {
			return ops.Discard(ctx, ref, in)
		})
	}

	// The write-off is committed. Everything below is linkage only.
	var tx *inventory.InventoryTransaction
	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		placeholder, err := s.placeholderFor(ctx, repos, ref.ID)
		if err != nil {
			return err
		}

		row, err := inventory.NewInventoryTransaction(
			product.FGRef(placeholder.ID),
			inventory.TransactionTypeDiscard,
			in.Quantity.Neg(),
			adj.Before,
			adj.After,
			in.CreatedBy,
		)
		if err != nil {
			return err
		}
		row.WithReference(inventory.ReferenceTypeDiscard, in.DiscardID).WithNotes(in.Notes)
		if err := repos.Ledger().Append(ctx, row); err != nil {
			return err
		}

		tx = row
		events = append(events, inventory.NewStockMovedEvent(inventory.EventTypeStockDiscarded, row))
		return nil
	})
	if err != nil {
		s.log.Error("material discard committed but ledger linkage failed; audit row is missing",
			zap.Int64("master_product_id", ref.ID),
			zap.Int64("discard_id", in.DiscardID),
			zap.String("quantity", in.Quantity.String()),
			zap.String("balance_before", adj.Before.String()),
			zap.String("balance_after", adj.After.String()),
			zap.Error(err),
		)
		return nil, nil
	}

	s.publish(ctx, events)
	return tx, nil
}

// placeholderFor finds or creates the ledger placeholder SKU for a material.
// The detail row caches the placeholder id so lookup is a point read after
// the first discard.
func (s *LedgerService) placeholderFor(ctx context.Context, repos TransactionalRepositories, masterProductID int64) (*product.Product, error) {
	mp, err := repos.MasterProducts().FindByID(ctx, masterProductID)
	if err != nil {
		return nil, err
	}
	if mp.Material != nil && mp.Material.LedgerSKUID != nil {
		return repos.Products().FindByID(ctx, *mp.Material.LedgerSKUID)
	}

	placeholder, err := repos.Products().FindPlaceholderForMaster(ctx, masterProductID)
	if err != nil && !shared.IsDomainError(err, shared.CodeNotFound) {
		return nil, err
	}
	if placeholder == nil {
		placeholder = product.NewPlaceholderProduct(masterProductID, mp.Name)
		if err := repos.Products().Save(ctx, placeholder); err != nil {
			return nil, err
		}
		s.log.Info("created placeholder SKU for material ledger linkage",
			zap.Int64("master_product_id", masterProductID),
			zap.Int64("placeholder_sku_id", placeholder.ID),
		)
	}

	if mp.Material != nil {
		mp.Material.LedgerSKUID = &placeholder.ID
		mp.Material.UpdatedAt = time.Now()
		if err := repos.MasterProducts().SaveMaterialDetail(ctx, mp.Material); err != nil {
			return nil, err
		}
	}
	return placeholder, nil
}

// GetTransaction returns one ledger row by id
func (s *LedgerService) GetTransaction(ctx context.Context, id int64) (*inventory.InventoryTransaction, error) {
	var tx *inventory.InventoryTransaction
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		tx, err = repos.Ledger().FindByID(ctx, id)
		return err
	})
	return tx, err
}

// ListTransactionsByProduct returns the ledger rows for a product, newest
// first, paginated
func (s *LedgerService) ListTransactionsByProduct(ctx context.Context, productID int64, filter shared.Filter) (shared.Paginated[inventory.InventoryTransaction], error) {
	var page shared.Paginated[inventory.InventoryTransaction]
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		ref, err := ResolveProductRef(ctx, repos, productID)
		if err != nil {
			return err
		}
		rows, total, err := repos.Ledger().FindByProduct(ctx, ref, filter)
		if err != nil {
			return err
		}
		page = shared.NewPaginated(rows, total, filter.Page, filter.Limit())
		return nil
	})
	return page, err
}

// ListTransactionsByReference returns the ledger rows caused by one business
// document
func (s *LedgerService) ListTransactionsByReference(ctx context.Context, refType inventory.ReferenceType, refID int64) ([]inventory.InventoryTransaction, error) {
	if !refType.IsKnown() {
		return nil, shared.NewValidationError("unknown reference type: " + refType.String())
	}
	var rows []inventory.InventoryTransaction
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		rows, err = repos.Ledger().FindByReference(ctx, refType, refID)
		return err
	})
	return rows, err
}

// ListTransactionsByDateRange returns ledger rows in [from, to), paginated
func (s *LedgerService) ListTransactionsByDateRange(ctx context.Context, from, to time.Time, filter shared.Filter) (shared.Paginated[inventory.InventoryTransaction], error) {
	var page shared.Paginated[inventory.InventoryTransaction]
	if !to.After(from) {
		return page, shared.NewValidationError("date range end must be after start")
	}
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		rows, total, err := repos.Ledger().FindByDateRange(ctx, from, to, filter)
		if err != nil {
			return err
		}
		page = shared.NewPaginated(rows, total, filter.Page, filter.Limit())
		return nil
	})
	return page, err
}

func validatePositiveQty(qty decimal.Decimal) error {
	if !qty.IsPositive() {
		return shared.NewValidationError("quantity must be positive")
	}
	return nil
}
