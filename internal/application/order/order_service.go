package order

import (
	"context"
	"fmt"
	"strings"

	appinv "github.com/manuerp/backend/internal/application/inventory"
	"github.com/manuerp/backend/internal/domain/order"
	"github.com/manuerp/backend/internal/domain/product"
	"github.com/manuerp/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Service orchestrates the order workflow. Status transitions live on the
// aggregate; this service sequences them with their stock side effects so an
// order state and the counters it implies never diverge: accepting reserves,
// cancelling releases, dispatching consumes reservations and moves stock.
type Service struct {
	scope        appinv.TransactionScope
	ledger       *appinv.LedgerService
	reservations *appinv.ReservationService
	publisher    shared.EventPublisher
	log          *zap.Logger
}

// NewService creates the order application service
func NewService(scope appinv.TransactionScope, ledger *appinv.LedgerService, reservations *appinv.ReservationService, publisher shared.EventPublisher, log *zap.Logger) *Service {
	return &Service{
		scope:        scope,
		ledger:       ledger,
		reservations: reservations,
		publisher:    publisher,
		log:          log,
	}
}

func (s *Service) publish(ctx context.Context, events []shared.DomainEvent) {
	if s.publisher == nil || len(events) == 0 {
		return
	}
	if err := s.publisher.Publish(ctx, events...); err != nil {
		s.log.Warn("failed to publish order events", zap.Error(err))
	}
}

func generateOrderNumber() string {
	return "SO-" + strings.ToUpper(uuid.NewString()[:8])
}

// Create creates a pending order. Every line must name an active finished
// good SKU; material ids are rejected here, materials are never sold
// directly.
func (s *Service) Create(ctx context.Context, in CreateOrderInput) (*order.Order, error) {
	if len(in.Lines) == 0 {
		return nil, shared.NewValidationError("order needs at least one line")
	}
	number := in.OrderNumber
	if number == "" {
		number = generateOrderNumber()
	}

	ord, err := order.NewOrder(number, in.CustomerName)
	if err != nil {
		return nil, err
	}

	err = s.scope.Execute(ctx, func(repos appinv.TransactionalRepositories) error {
		if existing, ferr := repos.Orders().FindByNumber(ctx, number); ferr == nil && existing != nil {
			return shared.NewDomainError("ALREADY_EXISTS", "order number "+number+" already exists")
		}

		for _, line := range in.Lines {
			ref, rerr := appinv.ResolveProductRef(ctx, repos, line.ProductID)
			if rerr != nil {
				return rerr
			}
			if !ref.IsFG() {
				return shared.NewValidationError(
					fmt.Sprintf("product %d is a material and cannot be ordered", line.ProductID))
			}
			sku, serr := repos.Products().FindByID(ctx, ref.ID)
			if serr != nil {
				return serr
			}
			if !sku.IsActive || sku.IsPlaceholder {
				return shared.NewValidationError(fmt.Sprintf("product %d is not sellable", line.ProductID))
			}

			weight := line.WeightKg
			if weight.IsZero() {
				weight = sku.WeightFor(line.Quantity)
			}
			detail, derr := order.NewOrderDetail(sku.ID, line.Quantity, weight)
			if derr != nil {
				return derr
			}
			if aerr := ord.AddDetail(*detail); aerr != nil {
				return aerr
			}
		}
		return repos.Orders().Save(ctx, ord)
	})
	if err != nil {
		return nil, err
	}
	return ord, nil
}

// Accept moves a pending order to Accepted and reserves every line. The
// transition and the reservations are one unit of work, so a refused
// reservation under the strict policy leaves the order pending and nothing
// reserved.
func (s *Service) Accept(ctx context.Context, orderID int64) (*order.Order, error) {
	var ord *order.Order
	var events []shared.DomainEvent

	err := s.scope.Execute(ctx, func(repos appinv.TransactionalRepositories) error {
		var err error
		ord, err = repos.Orders().FindByID(ctx, orderID)
		if err != nil {
			return err
		}
		if err := ord.TransitionTo(order.OrderStatusAccepted); err != nil {
			return err
		}

		resOps := s.reservations.Ops(repos)
		for i := range ord.Details {
			d := &ord.Details[i]
			if err := resOps.Reserve(ctx, d.ProductID, d.Quantity); err != nil {
				return err
			}
			if err := d.MarkReserved(); err != nil {
				return err
			}
		}
		events = resOps.Events()
		return repos.Orders().Save(ctx, ord)
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events)
	return ord, nil
}

// Schedule marks an accepted order as waiting on production
func (s *Service) Schedule(ctx context.Context, orderID int64) (*order.Order, error) {
	return s.transition(ctx, orderID, order.OrderStatusScheduled)
}

// MarkReadyForDispatch marks an order's goods as on hand and packable
func (s *Service) MarkReadyForDispatch(ctx context.Context, orderID int64) (*order.Order, error) {
	return s.transition(ctx, orderID, order.OrderStatusReadyForDispatch)
}

func (s *Service) transition(ctx context.Context, orderID int64, target order.OrderStatus) (*order.Order, error) {
	var ord *order.Order
	err := s.scope.Execute(ctx, func(repos appinv.TransactionalRepositories) error {
		var err error
		ord, err = repos.Orders().FindByID(ctx, orderID)
		if err != nil {
			return err
		}
		if err := ord.TransitionTo(target); err != nil {
			return err
		}
		return repos.Orders().Save(ctx, ord)
	})
	if err != nil {
		return nil, err
	}
	return ord, nil
}

// Dispatch records the physical departure of a ready order. For every
// reserved line it writes a dispatch movement, retires the reservation and
// marks the line consumed, then creates the dispatch record and moves the
// order to Dispatched. The quantity on the dispatch record equals the sum of
// the dispatch movements by construction.
func (s *Service) Dispatch(ctx context.Context, in DispatchOrderInput) (*order.Dispatch, error) {
	if in.DispatchedBy == "" {
		return nil, shared.NewValidationError("dispatchedBy is required")
	}

	var dispatch *order.Dispatch
	var events []shared.DomainEvent

	err := s.scope.Execute(ctx, func(repos appinv.TransactionalRepositories) error {
		ord, err := repos.Orders().FindByID(ctx, in.OrderID)
		if err != nil {
			return err
		}
		if ord.Status != order.OrderStatusReadyForDispatch {
			return shared.NewDomainError("INVALID_STATE",
				"order is "+ord.Status.String()+", only ready orders can be dispatched")
		}

		movOps := s.ledger.Movements(repos)
		resOps := s.reservations.Ops(repos)

		totalQty := decimal.Zero
		totalWeight := decimal.Zero
		for i := range ord.Details {
			d := &ord.Details[i]
			if d.ReservationState != order.ReservationReserved {
				continue
			}

			if _, err := movOps.Dispatch(ctx, product.FGRef(d.ProductID), appinv.RecordDispatchInput{
				ProductID: d.ProductID,
				Quantity:  d.Quantity,
				WeightKg:  d.WeightKg,
				OrderID:   ord.ID,
				CreatedBy: in.DispatchedBy,
			}); err != nil {
				return err
			}
			if err := resOps.Consume(ctx, d.ProductID, d.Quantity); err != nil {
				return err
			}
			if err := d.MarkConsumed(); err != nil {
				return err
			}
			totalQty = totalQty.Add(d.Quantity)
			totalWeight = totalWeight.Add(d.WeightKg)
		}
		if totalQty.IsZero() {
			return shared.NewValidationError("order has no reserved lines to dispatch")
		}

		dispatch, err = order.NewDispatch(ord.ID, totalQty, totalWeight, in.DispatchedBy)
		if err != nil {
			return err
		}
		dispatch.VehicleNumber = in.VehicleNumber
		if err := repos.Dispatches().Save(ctx, dispatch); err != nil {
			return err
		}
		if err := ord.TransitionTo(order.OrderStatusDispatched); err != nil {
			return err
		}
		events = append(movOps.Events(), resOps.Events()...)
		return repos.Orders().Save(ctx, ord)
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events)
	return dispatch, nil
}

// Deliver confirms the customer received the goods
func (s *Service) Deliver(ctx context.Context, orderID int64) (*order.Order, error) {
	var ord *order.Order
	err := s.scope.Execute(ctx, func(repos appinv.TransactionalRepositories) error {
		var err error
		ord, err = repos.Orders().FindByID(ctx, orderID)
		if err != nil {
			return err
		}
		if err := ord.TransitionTo(order.OrderStatusDelivered); err != nil {
			return err
		}

		dispatches, err := repos.Dispatches().FindByOrder(ctx, orderID)
		if err != nil {
			return err
		}
		for i := range dispatches {
			d := &dispatches[i]
			if d.Status != order.DispatchStatusDispatched {
				continue
			}
			if err := d.MarkDelivered(); err != nil {
				return err
			}
			if err := repos.Dispatches().Save(ctx, d); err != nil {
				return err
			}
		}
		return repos.Orders().Save(ctx, ord)
	})
	if err != nil {
		return nil, err
	}
	return ord, nil
}

// Undispatch reverses a dispatch that never left, for vehicle breakdowns and
// rejected loads. Stock is restored with an explicit Return movement and then
// re-reserved as a second, separate step. The two steps keep the ledger
// truthful: the goods really did leave and come back.
func (s *Service) Undispatch(ctx context.Context, orderID int64, requestedBy string) (*order.Order, error) {
	if requestedBy == "" {
		return nil, shared.NewValidationError("requestedBy is required")
	}

	var ord *order.Order
	var events []shared.DomainEvent

	err := s.scope.Execute(ctx, func(repos appinv.TransactionalRepositories) error {
		var err error
		ord, err = repos.Orders().FindByID(ctx, orderID)
		if err != nil {
			return err
		}
		if err := ord.TransitionTo(order.OrderStatusReadyForDispatch); err != nil {
			return err
		}

		movOps := s.ledger.Movements(repos)
		resOps := s.reservations.Ops(repos)

		for i := range ord.Details {
			d := &ord.Details[i]
			if d.ReservationState != order.ReservationConsumed {
				continue
			}

			if _, err := movOps.Return(ctx, product.FGRef(d.ProductID), appinv.RecordReturnInput{
				ProductID: d.ProductID,
				Quantity:  d.Quantity,
				WeightKg:  d.WeightKg,
				OrderID:   ord.ID,
				CreatedBy: requestedBy,
			}); err != nil {
				return err
			}
			if err := d.Reopen(); err != nil {
				return err
			}
			if err := resOps.Reserve(ctx, d.ProductID, d.Quantity); err != nil {
				return err
			}
			if err := d.MarkReserved(); err != nil {
				return err
			}
		}

		dispatches, err := repos.Dispatches().FindByOrder(ctx, orderID)
		if err != nil {
			return err
		}
		for i := range dispatches {
			d := &dispatches[i]
			if d.Status != order.DispatchStatusDispatched {
				continue
			}
			if err := d.MarkReversed(); err != nil {
				return err
			}
			if err := repos.Dispatches().Save(ctx, d); err != nil {
				return err
			}
		}
		events = append(movOps.Events(), resOps.Events()...)
		return repos.Orders().Save(ctx, ord)
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events)
	return ord, nil
}

// Cancel cancels an order and releases whatever it had reserved
func (s *Service) Cancel(ctx context.Context, orderID int64, remark string) (*order.Order, error) {
	var ord *order.Order
	var events []shared.DomainEvent

	err := s.scope.Execute(ctx, func(repos appinv.TransactionalRepositories) error {
		var err error
		ord, err = repos.Orders().FindByID(ctx, orderID)
		if err != nil {
			return err
		}
		if err := ord.TransitionTo(order.OrderStatusCancelled); err != nil {
			return err
		}
		if remark != "" {
			ord.Remark = remark
		}

		resOps := s.reservations.Ops(repos)
		if err := s.releaseReservedLines(ctx, ord, resOps); err != nil {
			return err
		}
		events = resOps.Events()
		return repos.Orders().Save(ctx, ord)
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events)
	return ord, nil
}

// Return takes a dispatched order back into stock. Lines stay consumed; the
// stock comes back through Return movements, not by rewinding reservations.
func (s *Service) Return(ctx context.Context, orderID int64, requestedBy string) (*order.Order, error) {
	if requestedBy == "" {
		return nil, shared.NewValidationError("requestedBy is required")
	}

	var ord *order.Order
	var events []shared.DomainEvent

	err := s.scope.Execute(ctx, func(repos appinv.TransactionalRepositories) error {
		var err error
		ord, err = repos.Orders().FindByID(ctx, orderID)
		if err != nil {
			return err
		}
		if err := ord.TransitionTo(order.OrderStatusReturned); err != nil {
			return err
		}

		movOps := s.ledger.Movements(repos)
		for i := range ord.Details {
			d := &ord.Details[i]
			if d.ReservationState != order.ReservationConsumed {
				continue
			}
			if _, err := movOps.Return(ctx, product.FGRef(d.ProductID), appinv.RecordReturnInput{
				ProductID: d.ProductID,
				Quantity:  d.Quantity,
				WeightKg:  d.WeightKg,
				OrderID:   ord.ID,
				CreatedBy: requestedBy,
			}); err != nil {
				return err
			}
		}
		events = movOps.Events()
		return repos.Orders().Save(ctx, ord)
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events)
	return ord, nil
}

// Split divides an order's open lines into replacement orders, for partial
// fulfilment. The original is cancelled with a split remark, its reservations
// are released, and each replacement starts over as a fresh pending order
// that reserves on acceptance. Replacements carry SplitFromID so the audit
// trail survives the cancellation.
func (s *Service) Split(ctx context.Context, in SplitOrderInput) ([]*order.Order, error) {
	if len(in.Assignments) < 2 {
		return nil, shared.NewValidationError("a split needs at least two groups")
	}

	var replacements []*order.Order
	var events []shared.DomainEvent

	err := s.scope.Execute(ctx, func(repos appinv.TransactionalRepositories) error {
		ord, err := repos.Orders().FindByID(ctx, in.OrderID)
		if err != nil {
			return err
		}

		open := make(map[int64]*order.OrderDetail, len(ord.Details))
		for i := range ord.Details {
			d := &ord.Details[i]
			if !d.ReservationState.IsTerminal() {
				open[d.ID] = d
			}
		}
		assigned := make(map[int64]bool, len(open))
		for _, group := range in.Assignments {
			if len(group) == 0 {
				return shared.NewValidationError("split groups cannot be empty")
			}
			for _, id := range group {
				if _, ok := open[id]; !ok {
					return shared.NewValidationError(fmt.Sprintf("line %d is not an open line of order %d", id, ord.ID))
				}
				if assigned[id] {
					return shared.NewValidationError(fmt.Sprintf("line %d assigned to more than one group", id))
				}
				assigned[id] = true
			}
		}
		if len(assigned) != len(open) {
			return shared.NewValidationError("every open line must be assigned to a group")
		}

		resOps := s.reservations.Ops(repos)
		if err := s.releaseReservedLines(ctx, ord, resOps); err != nil {
			return err
		}
		if err := ord.MarkSplit(fmt.Sprintf("split into %d orders by %s", len(in.Assignments), in.RequestedBy)); err != nil {
			return err
		}
		if err := repos.Orders().Save(ctx, ord); err != nil {
			return err
		}

		for n, group := range in.Assignments {
			repl, err := order.NewOrder(fmt.Sprintf("%s-%d", ord.OrderNumber, n+1), ord.CustomerName)
			if err != nil {
				return err
			}
			repl.SplitFromID = &ord.ID
			for _, id := range group {
				src := open[id]
				detail, derr := order.NewOrderDetail(src.ProductID, src.Quantity, src.WeightKg)
				if derr != nil {
					return derr
				}
				if aerr := repl.AddDetail(*detail); aerr != nil {
					return aerr
				}
			}
			if err := repos.Orders().Save(ctx, repl); err != nil {
				return err
			}
			replacements = append(replacements, repl)
		}
		events = resOps.Events()
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events)
	return replacements, nil
}

func (s *Service) releaseReservedLines(ctx context.Context, ord *order.Order, resOps *appinv.ReservationOps) error {
	for i := range ord.Details {
		d := &ord.Details[i]
		if d.ReservationState != order.ReservationReserved {
			continue
		}
		if err := resOps.Release(ctx, d.ProductID, d.Quantity); err != nil {
			return err
		}
		if err := d.MarkReleased(); err != nil {
			return err
		}
	}
	return nil
}

// Get returns one order with its lines
func (s *Service) Get(ctx context.Context, orderID int64) (*order.Order, error) {
	var ord *order.Order
	err := s.scope.Execute(ctx, func(repos appinv.TransactionalRepositories) error {
		var err error
		ord, err = repos.Orders().FindByID(ctx, orderID)
		return err
	})
	return ord, err
}

// ListByStatus returns orders in the given status, paginated
func (s *Service) ListByStatus(ctx context.Context, status order.OrderStatus, filter shared.Filter) (shared.Paginated[order.Order], error) {
	var page shared.Paginated[order.Order]
	if !status.IsValid() {
		return page, shared.NewValidationError("unknown order status: " + status.String())
	}
	err := s.scope.Execute(ctx, func(repos appinv.TransactionalRepositories) error {
		rows, total, err := repos.Orders().FindByStatus(ctx, status, filter)
		if err != nil {
			return err
		}
		page = shared.NewPaginated(rows, total, filter.Page, filter.Limit())
		return nil
	})
	return page, err
}
