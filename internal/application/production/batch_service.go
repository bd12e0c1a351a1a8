package production

import (
	"context"
	"fmt"
	"strings"

	appinv "github.com/manuerp/backend/internal/application/inventory"
	"github.com/manuerp/backend/internal/domain/product"
	"github.com/manuerp/backend/internal/domain/production"
	"github.com/manuerp/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// BatchMaterialInput is one raw material requirement of a batch
type BatchMaterialInput struct {
	MasterProductID  int64
	RequiredQty      decimal.Decimal
	RequiredWeightKg decimal.Decimal
}

// ScheduleBatchInput plans a production batch. BatchNumber may be empty, in
// which case one is generated. OrderID links the batch to the sales order it
// produces for, if any.
type ScheduleBatchInput struct {
	BatchNumber string
	OutputSKUID int64
	PlannedQty  decimal.Decimal
	OrderID     *int64
	Materials   []BatchMaterialInput
}

// CompleteBatchInput closes a batch with its actual figures
type CompleteBatchInput struct {
	BatchID        int64
	ProducedQty    decimal.Decimal
	OutputWeightKg decimal.Decimal
	CompletedBy    string
}

// Service orchestrates production batches. Completing a batch is
// all-or-nothing: every material consumption and the output movement run in
// one unit of work, so a material shortfall leaves the batch open and every
// counter untouched.
type Service struct {
	scope     appinv.TransactionScope
	ledger    *appinv.LedgerService
	publisher shared.EventPublisher
	log       *zap.Logger
}

// NewService creates the production application service
func NewService(scope appinv.TransactionScope, ledger *appinv.LedgerService, publisher shared.EventPublisher, log *zap.Logger) *Service {
	return &Service{
		scope:     scope,
		ledger:    ledger,
		publisher: publisher,
		log:       log,
	}
}

func generateBatchNumber() string {
	return "PB-" + strings.ToUpper(uuid.NewString()[:8])
}

// Schedule plans a batch. The output must be a real finished-good SKU and
// every listed material must be an RM master; stock is not checked here, the
// shop floor commits material only at completion.
func (s *Service) Schedule(ctx context.Context, in ScheduleBatchInput) (*production.Batch, error) {
	number := in.BatchNumber
	if number == "" {
		number = generateBatchNumber()
	}
	if len(in.Materials) == 0 {
		return nil, shared.NewValidationError("batch needs at least one material requirement")
	}

	batch, err := production.NewBatch(number, in.OutputSKUID, in.PlannedQty)
	if err != nil {
		return nil, err
	}
	batch.OrderID = in.OrderID

	err = s.scope.Execute(ctx, func(repos appinv.TransactionalRepositories) error {
		if existing, ferr := repos.Batches().FindByNumber(ctx, number); ferr == nil && existing != nil {
			return shared.NewDomainError("ALREADY_EXISTS", "batch number "+number+" already exists")
		}

		sku, err := repos.Products().FindByID(ctx, in.OutputSKUID)
		if err != nil {
			return err
		}
		if sku.IsPlaceholder || !sku.IsActive {
			return shared.NewValidationError(fmt.Sprintf("SKU %d cannot be produced", in.OutputSKUID))
		}

		for _, m := range in.Materials {
			mp, err := repos.MasterProducts().FindByID(ctx, m.MasterProductID)
			if err != nil {
				return err
			}
			if !mp.ProductType.IsMaterial() {
				return shared.NewValidationError(
					fmt.Sprintf("product %d is not a raw or packaging material", m.MasterProductID))
			}
			mat, err := production.NewBatchMaterial(m.MasterProductID, m.RequiredQty, m.RequiredWeightKg)
			if err != nil {
				return err
			}
			if err := batch.AddMaterial(*mat); err != nil {
				return err
			}
		}

		if in.OrderID != nil {
			if _, err := repos.Orders().FindByID(ctx, *in.OrderID); err != nil {
				return err
			}
		}
		return repos.Batches().Save(ctx, batch)
	})
	if err != nil {
		return nil, err
	}
	return batch, nil
}

// Start moves a planned batch onto the shop floor
func (s *Service) Start(ctx context.Context, batchID int64) (*production.Batch, error) {
	var batch *production.Batch
	err := s.scope.Execute(ctx, func(repos appinv.TransactionalRepositories) error {
		var err error
		batch, err = repos.Batches().FindByID(ctx, batchID)
		if err != nil {
			return err
		}
		if err := batch.Start(); err != nil {
			return err
		}
		return repos.Batches().Save(ctx, batch)
	})
	if err != nil {
		return nil, err
	}
	return batch, nil
}

// Complete closes a batch: consumes every required material, records the
// produced output and marks the batch completed, atomically. A shortfall in
// any single material fails the whole completion.
func (s *Service) Complete(ctx context.Context, in CompleteBatchInput) (*production.Batch, error) {
	if in.CompletedBy == "" {
		return nil, shared.NewValidationError("completedBy is required")
	}

	var batch *production.Batch
	var events []shared.DomainEvent

	err := s.scope.Execute(ctx, func(repos appinv.TransactionalRepositories) error {
		var err error
		batch, err = repos.Batches().FindByID(ctx, in.BatchID)
		if err != nil {
			return err
		}
		if err := batch.Complete(in.ProducedQty, in.OutputWeightKg); err != nil {
			return err
		}

		movOps := s.ledger.Movements(repos)
		for _, m := range batch.Materials {
			mp, err := repos.MasterProducts().FindByID(ctx, m.MasterProductID)
			if err != nil {
				return err
			}
			kind := product.KindRM
			if mp.ProductType == product.ProductTypePM {
				kind = product.KindPM
			}
			if _, err := movOps.ProductionConsumption(ctx, product.MaterialRef(kind, m.MasterProductID), appinv.RecordProductionConsumptionInput{
				ProductID: m.MasterProductID,
				Quantity:  m.RequiredQty,
				WeightKg:  m.RequiredWeightKg,
				BatchID:   batch.ID,
				CreatedBy: in.CompletedBy,
			}); err != nil {
				return err
			}
		}

		if _, err := movOps.ProductionOutput(ctx, product.FGRef(batch.OutputSKUID), appinv.RecordProductionOutputInput{
			ProductID: batch.OutputSKUID,
			Quantity:  in.ProducedQty,
			WeightKg:  in.OutputWeightKg,
			BatchID:   batch.ID,
			CreatedBy: in.CompletedBy,
		}); err != nil {
			return err
		}

		events = movOps.Events()
		return repos.Batches().Save(ctx, batch)
	})
	if err != nil {
		return nil, err
	}

	if s.publisher != nil && len(events) > 0 {
		if perr := s.publisher.Publish(ctx, events...); perr != nil {
			s.log.Warn("failed to publish production events", zap.Error(perr))
		}
	}
	return batch, nil
}

// Cancel abandons a batch before completion. No stock has moved yet, so
// there is nothing to unwind.
func (s *Service) Cancel(ctx context.Context, batchID int64) (*production.Batch, error) {
	var batch *production.Batch
	err := s.scope.Execute(ctx, func(repos appinv.TransactionalRepositories) error {
		var err error
		batch, err = repos.Batches().FindByID(ctx, batchID)
		if err != nil {
			return err
		}
		if err := batch.Cancel(); err != nil {
			return err
		}
		return repos.Batches().Save(ctx, batch)
	})
	if err != nil {
		return nil, err
	}
	return batch, nil
}

// Get returns one batch with its material requirements
func (s *Service) Get(ctx context.Context, batchID int64) (*production.Batch, error) {
	var batch *production.Batch
	err := s.scope.Execute(ctx, func(repos appinv.TransactionalRepositories) error {
		var err error
		batch, err = repos.Batches().FindByID(ctx, batchID)
		return err
	})
	return batch, err
}

// ListByStatus returns batches in the given status, paginated
func (s *Service) ListByStatus(ctx context.Context, status production.BatchStatus, filter shared.Filter) (shared.Paginated[production.Batch], error) {
	var page shared.Paginated[production.Batch]
	if !status.IsValid() {
		return page, shared.NewValidationError("unknown batch status: " + status.String())
	}
	err := s.scope.Execute(ctx, func(repos appinv.TransactionalRepositories) error {
		rows, total, err := repos.Batches().FindByStatus(ctx, status, filter)
		if err != nil {
			return err
		}
		page = shared.NewPaginated(rows, total, filter.Page, filter.Limit())
		return nil
	})
	return page, err
}
