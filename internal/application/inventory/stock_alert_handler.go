package inventory

import (
	"context"

	"github.com/manuerp/backend/internal/domain/inventory"
	"github.com/manuerp/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// StockAlertHandler surfaces stock warning events in the application log so
// operations staff can reconcile them. Movements and reservations never block
// on these conditions, the warnings are the only trace.
type StockAlertHandler struct {
	log *zap.Logger
}

func NewStockAlertHandler(log *zap.Logger) *StockAlertHandler {
	return &StockAlertHandler{log: log}
}

// EventTypes returns the warning events this handler subscribes to
func (h *StockAlertHandler) EventTypes() []string {
	return []string{
		inventory.EventTypeStockBelowMinimum,
		inventory.EventTypeStockOversold,
	}
}

// Handle logs the warning. It never returns an error: a failed alert must
// not affect the movement that raised it.
func (h *StockAlertHandler) Handle(_ context.Context, event shared.DomainEvent) error {
	switch e := event.(type) {
	case *inventory.StockBelowMinimumEvent:
		h.log.Warn("stock below minimum level",
			zap.Int64("master_product_id", e.MasterProductID),
			zap.String("product_name", e.ProductName),
			zap.String("on_hand", e.OnHand.String()),
			zap.String("min_stock_level", e.MinStockLevel.String()),
		)
	case *inventory.StockOversoldEvent:
		h.log.Warn("reserved quantity exceeds available stock",
			zap.Int64("product_id", e.ProductID),
			zap.String("available", e.Available.String()),
			zap.String("reserved", e.Reserved.String()),
		)
	default:
		h.log.Warn("stock alert received", zap.String("event_type", event.EventType()))
	}
	return nil
}

var _ shared.EventHandler = (*StockAlertHandler)(nil)
