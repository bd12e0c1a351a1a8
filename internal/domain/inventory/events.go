package inventory

import (
	"github.com/manuerp/backend/internal/domain/product"
	"github.com/manuerp/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Event type constants for the inventory ledger
const (
	EventTypeStockReceived        = "inventory.stock_received"
	EventTypeStockDispatched      = "inventory.stock_dispatched"
	EventTypeStockDiscarded       = "inventory.stock_discarded"
	EventTypeStockReserved        = "inventory.stock_reserved"
	EventTypeStockReleased        = "inventory.stock_released"
	EventTypeStockBelowMinimum    = "inventory.stock_below_minimum"
	EventTypeStockOversold        = "inventory.stock_oversold"
	EventTypeLedgerWriteRecovered = "inventory.ledger_write_recovered"
)

// StockMovedEvent is emitted after a movement operation commits. It carries
// the ledger row id so downstream consumers can re-read the audit record.
type StockMovedEvent struct {
	shared.BaseDomainEvent
	Ref             product.ProductRef `json:"product_ref"`
	TransactionID   int64              `json:"transaction_id"`
	TransactionType TransactionType    `json:"transaction_type"`
	Quantity        decimal.Decimal    `json:"quantity"`
	BalanceAfter    decimal.Decimal    `json:"balance_after"`
}

// NewStockMovedEvent creates a movement event of the given event type
func NewStockMovedEvent(eventType string, tx *InventoryTransaction) *StockMovedEvent {
	ref := tx.ProductRefOf()
	return &StockMovedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, "InventoryTransaction", tx.ID),
		Ref:             ref,
		TransactionID:   tx.ID,
		TransactionType: tx.TransactionType,
		Quantity:        tx.Quantity,
		BalanceAfter:    tx.BalanceAfter,
	}
}

// StockBelowMinimumEvent is emitted when a destructive movement leaves a
// product family under its configured minimum stock level.
type StockBelowMinimumEvent struct {
	shared.BaseDomainEvent
	MasterProductID int64           `json:"master_product_id"`
	ProductName     string          `json:"product_name"`
	OnHand          decimal.Decimal `json:"on_hand"`
	MinStockLevel   decimal.Decimal `json:"min_stock_level"`
}

// NewStockBelowMinimumEvent creates a below-minimum warning event
func NewStockBelowMinimumEvent(mp *product.MasterProduct, onHand decimal.Decimal) *StockBelowMinimumEvent {
	return &StockBelowMinimumEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockBelowMinimum, "MasterProduct", mp.ID),
		MasterProductID: mp.ID,
		ProductName:     mp.Name,
		OnHand:          onHand,
		MinStockLevel:   mp.MinStockLevel,
	}
}

// StockReservationEvent is emitted when a SKU's reserved counter moves
// without a ledger row: an order line reserving stock or giving it back.
type StockReservationEvent struct {
	shared.BaseDomainEvent
	ProductID     int64           `json:"product_id"`
	Quantity      decimal.Decimal `json:"quantity"`
	ReservedAfter decimal.Decimal `json:"reserved_after"`
}

// NewStockReservationEvent creates a reserve or release event
func NewStockReservationEvent(eventType string, skuID int64, quantity, reservedAfter decimal.Decimal) *StockReservationEvent {
	return &StockReservationEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, "Product", skuID),
		ProductID:       skuID,
		Quantity:        quantity,
		ReservedAfter:   reservedAfter,
	}
}

// StockOversoldEvent is emitted when a reservation pushes reserved quantity
// past available quantity while strict reservation is disabled.
type StockOversoldEvent struct {
	shared.BaseDomainEvent
	ProductID int64           `json:"product_id"`
	Available decimal.Decimal `json:"available"`
	Reserved  decimal.Decimal `json:"reserved"`
}

// NewStockOversoldEvent creates an oversold warning event
func NewStockOversoldEvent(skuID int64, available, reserved decimal.Decimal) *StockOversoldEvent {
	return &StockOversoldEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockOversold, "Product", skuID),
		ProductID:       skuID,
		Available:       available,
		Reserved:        reserved,
	}
}
