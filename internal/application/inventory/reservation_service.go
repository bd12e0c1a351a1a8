package inventory

import (
	"context"

	"github.com/manuerp/backend/internal/domain/inventory"
	"github.com/manuerp/backend/internal/domain/product"
	"github.com/manuerp/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ReservationOps adjusts the reserved counter of finished-good SKUs inside
// one unit of work. Reservations are bookkeeping only: they never touch the
// available counter and never write ledger rows. The available counter moves
// when the reservation resolves into a dispatch movement.
//
// Only SKUs can be reserved. Materials are committed to production through
// batches, not reservations.
type ReservationOps struct {
	repos  TransactionalRepositories
	log    *zap.Logger
	policy Policy
	events []shared.DomainEvent
}

// NewReservationOps binds reservation operations to transactional repositories
func NewReservationOps(repos TransactionalRepositories, log *zap.Logger, policy Policy) *ReservationOps {
	return &ReservationOps{
		repos:  repos,
		log:    log,
		policy: policy,
	}
}

// Events returns the domain events collected in this unit of work
func (r *ReservationOps) Events() []shared.DomainEvent {
	return r.events
}

func (r *ReservationOps) sku(ctx context.Context, skuID int64) (*product.Product, error) {
	sku, err := r.repos.Products().FindByID(ctx, skuID)
	if err != nil {
		return nil, err
	}
	if !sku.IsActive {
		return nil, shared.NewValidationError("product is inactive")
	}
	return sku, nil
}

// Reserve earmarks quantity of a SKU for an order. Under the strict policy a
// reservation that would push reserved past available by more than the
// configured tolerance is refused with an insufficient-stock error. Under the
// lenient policy the oversold state is allowed and reported, because sales
// historically book orders ahead of production.
func (r *ReservationOps) Reserve(ctx context.Context, skuID int64, quantity decimal.Decimal) error {
	if !quantity.IsPositive() {
		return shared.NewValidationError("reservation quantity must be positive")
	}
	sku, err := r.sku(ctx, skuID)
	if err != nil {
		return err
	}

	ref := product.FGRef(skuID)
	stock := r.repos.Stock()

	available, err := stock.Peek(ctx, ref, inventory.FieldAvailable)
	if err != nil {
		return err
	}
	adj, err := stock.Adjust(ctx, ref, inventory.FieldReserved, quantity)
	if err != nil {
		return err
	}

	if oversold := adj.After.Sub(available); oversold.IsPositive() {
		if r.policy.StrictReservation && oversold.GreaterThan(r.policy.OversoldTolerance) {
			return shared.NewInsufficientStockError(sku.Name, quantity, available.Sub(adj.Before))
		}
		r.log.Warn("reservation exceeds available stock",
			zap.Int64("product_id", skuID),
			zap.String("product", sku.Name),
			zap.String("available", available.String()),
			zap.String("reserved", adj.After.String()),
		)
		r.events = append(r.events, inventory.NewStockOversoldEvent(skuID, available, adj.After))
	}

	if !sku.PackageCapacityKg.IsZero() {
		if _, err := stock.AdjustWeight(ctx, ref, inventory.FieldReserved, sku.WeightFor(quantity)); err != nil {
			return err
		}
	}
	r.events = append(r.events, inventory.NewStockReservationEvent(inventory.EventTypeStockReserved, skuID, quantity, adj.After))
	return nil
}

// Release returns earmarked quantity to the unreserved pool, for cancelled
// orders and released lines. Releasing more than is reserved clamps at zero
// rather than failing, so cleanup paths cannot get stuck on drifted counters.
func (r *ReservationOps) Release(ctx context.Context, skuID int64, quantity decimal.Decimal) error {
	return r.unreserve(ctx, skuID, quantity, true)
}

// Consume retires earmarked quantity when its dispatch movement is recorded.
// The caller records the dispatch through the movement operations in the same
// unit of work.
func (r *ReservationOps) Consume(ctx context.Context, skuID int64, quantity decimal.Decimal) error {
	// No release event here: the dispatch movement recorded alongside the
	// consume already reports the stock leaving.
	return r.unreserve(ctx, skuID, quantity, false)
}

func (r *ReservationOps) unreserve(ctx context.Context, skuID int64, quantity decimal.Decimal, emitRelease bool) error {
	if !quantity.IsPositive() {
		return shared.NewValidationError("reservation quantity must be positive")
	}
	sku, err := r.sku(ctx, skuID)
	if err != nil {
		return err
	}

	ref := product.FGRef(skuID)
	stock := r.repos.Stock()

	adj, err := stock.Adjust(ctx, ref, inventory.FieldReserved, quantity.Neg())
	if err != nil {
		return err
	}
	if adj.Delta().Abs().LessThan(quantity) {
		r.log.Warn("unreserve clamped at zero, reserved counter had drifted",
			zap.Int64("product_id", skuID),
			zap.String("requested", quantity.String()),
			zap.String("reserved_before", adj.Before.String()),
		)
	}

	if !sku.PackageCapacityKg.IsZero() {
		if _, err := stock.AdjustWeight(ctx, ref, inventory.FieldReserved, sku.WeightFor(quantity).Neg()); err != nil {
			return err
		}
	}
	if emitRelease {
		r.events = append(r.events, inventory.NewStockReservationEvent(inventory.EventTypeStockReleased, skuID, quantity, adj.After))
	}
	return nil
}

// ReservationService exposes the reservation operations as standalone use
// cases. Order workflows use the repos-bound ReservationOps inside their own
// scope instead, so line-state changes and counter changes stay atomic.
type ReservationService struct {
	scope     TransactionScope
	publisher shared.EventPublisher
	log       *zap.Logger
	policy    Policy
}

// NewReservationService creates the reservation application service
func NewReservationService(scope TransactionScope, publisher shared.EventPublisher, log *zap.Logger, policy Policy) *ReservationService {
	return &ReservationService{
		scope:     scope,
		publisher: publisher,
		log:       log,
		policy:    policy,
	}
}

// Ops binds reservation operations to an externally managed unit of work
func (s *ReservationService) Ops(repos TransactionalRepositories) *ReservationOps {
	return NewReservationOps(repos, s.log, s.policy)
}

func (s *ReservationService) run(ctx context.Context, fn func(ops *ReservationOps) error) error {
	var events []shared.DomainEvent
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		ops := s.Ops(repos)
		if err := fn(ops); err != nil {
			return err
		}
		events = ops.Events()
		return nil
	})
	if err != nil {
		return err
	}
	if s.publisher != nil && len(events) > 0 {
		if perr := s.publisher.Publish(ctx, events...); perr != nil {
			s.log.Warn("failed to publish reservation events", zap.Error(perr))
		}
	}
	return nil
}

// Reserve earmarks quantity of a SKU
func (s *ReservationService) Reserve(ctx context.Context, skuID int64, quantity decimal.Decimal) error {
	return s.run(ctx, func(ops *ReservationOps) error {
		return ops.Reserve(ctx, skuID, quantity)
	})
}

// Release returns earmarked quantity to the unreserved pool
func (s *ReservationService) Release(ctx context.Context, skuID int64, quantity decimal.Decimal) error {
	return s.run(ctx, func(ops *ReservationOps) error {
		return ops.Release(ctx, skuID, quantity)
	})
}

// Consume retires earmarked quantity after its stock left the building
func (s *ReservationService) Consume(ctx context.Context, skuID int64, quantity decimal.Decimal) error {
	return s.run(ctx, func(ops *ReservationOps) error {
		return ops.Consume(ctx, skuID, quantity)
	})
}
