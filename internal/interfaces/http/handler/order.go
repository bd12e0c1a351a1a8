package handler

import (
	"context"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	apporder "github.com/manuerp/backend/internal/application/order"
	"github.com/manuerp/backend/internal/domain/order"
	"github.com/shopspring/decimal"
)

// OrderHandler exposes the order lifecycle
type OrderHandler struct {
	BaseHandler
	orders *apporder.Service
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(orders *apporder.Service) *OrderHandler {
	return &OrderHandler{orders: orders}
}

// OrderLineRequest is one requested line of a new order
type OrderLineRequest struct {
	ProductID int64           `json:"product_id" binding:"required,gt=0"`
	Quantity  decimal.Decimal `json:"quantity" binding:"required"`
	WeightKg  decimal.Decimal `json:"weight_kg"`
}

// CreateOrderRequest creates a pending order
type CreateOrderRequest struct {
	OrderNumber  string             `json:"order_number" binding:"max=50"`
	CustomerName string             `json:"customer_name" binding:"required,max=200"`
	Lines        []OrderLineRequest `json:"lines" binding:"required,min=1,dive"`
}

// DispatchOrderRequest dispatches a ready order
type DispatchOrderRequest struct {
	VehicleNumber string `json:"vehicle_number" binding:"max=30"`
}

// CancelOrderRequest cancels an order with an optional remark
type CancelOrderRequest struct {
	Remark string `json:"remark" binding:"max=500"`
}

// SplitOrderRequest splits an order's open lines into replacement orders
type SplitOrderRequest struct {
	Assignments [][]int64 `json:"assignments" binding:"required,min=2"`
}

// Create handles POST /orders
func (h *OrderHandler) Create(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	lines := make([]apporder.OrderLineInput, 0, len(req.Lines))
	for _, l := range req.Lines {
		lines = append(lines, apporder.OrderLineInput{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			WeightKg:  l.WeightKg,
		})
	}

	ord, err := h.orders.Create(c.Request.Context(), apporder.CreateOrderInput{
		OrderNumber:  req.OrderNumber,
		CustomerName: req.CustomerName,
		Lines:        lines,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, ord)
}

// Get handles GET /orders/:id
func (h *OrderHandler) Get(c *gin.Context) {
	id, ok := h.orderID(c)
	if !ok {
		return
	}

	ord, err := h.orders.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, ord)
}

// List handles GET /orders?status=
func (h *OrderHandler) List(c *gin.Context) {
	status := order.OrderStatus(strings.ToUpper(c.Query("status")))
	if !status.IsValid() {
		h.BadRequest(c, "unknown order status")
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	result, err := h.orders.ListByStatus(c.Request.Context(), status, listFilter(page, pageSize))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, result.Items, result.Total, result.Page, result.PageSize)
}

// Accept handles POST /orders/:id/accept, reserving stock for every line
func (h *OrderHandler) Accept(c *gin.Context) {
	h.runTransition(c, h.orders.Accept)
}

// Schedule handles POST /orders/:id/schedule
func (h *OrderHandler) Schedule(c *gin.Context) {
	h.runTransition(c, h.orders.Schedule)
}

// MarkReady handles POST /orders/:id/ready
func (h *OrderHandler) MarkReady(c *gin.Context) {
	h.runTransition(c, h.orders.MarkReadyForDispatch)
}

// Deliver handles POST /orders/:id/deliver
func (h *OrderHandler) Deliver(c *gin.Context) {
	h.runTransition(c, h.orders.Deliver)
}

// Dispatch handles POST /orders/:id/dispatch
func (h *OrderHandler) Dispatch(c *gin.Context) {
	id, ok := h.orderID(c)
	if !ok {
		return
	}

	var req DispatchOrderRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.BindError(c, err)
			return
		}
	}

	d, err := h.orders.Dispatch(c.Request.Context(), apporder.DispatchOrderInput{
		OrderID:       id,
		VehicleNumber: req.VehicleNumber,
		DispatchedBy:  actor(c),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, d)
}

// Undispatch handles POST /orders/:id/undispatch: stock returns, the order
// reopens at ready-for-dispatch and every line is reserved again.
func (h *OrderHandler) Undispatch(c *gin.Context) {
	id, ok := h.orderID(c)
	if !ok {
		return
	}

	ord, err := h.orders.Undispatch(c.Request.Context(), id, actor(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, ord)
}

// Cancel handles POST /orders/:id/cancel
func (h *OrderHandler) Cancel(c *gin.Context) {
	id, ok := h.orderID(c)
	if !ok {
		return
	}

	var req CancelOrderRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.BindError(c, err)
			return
		}
	}

	ord, err := h.orders.Cancel(c.Request.Context(), id, req.Remark)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, ord)
}

// Return handles POST /orders/:id/return
func (h *OrderHandler) Return(c *gin.Context) {
	id, ok := h.orderID(c)
	if !ok {
		return
	}

	ord, err := h.orders.Return(c.Request.Context(), id, actor(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, ord)
}

// Split handles POST /orders/:id/split
func (h *OrderHandler) Split(c *gin.Context) {
	id, ok := h.orderID(c)
	if !ok {
		return
	}

	var req SplitOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	replacements, err := h.orders.Split(c.Request.Context(), apporder.SplitOrderInput{
		OrderID:     id,
		Assignments: req.Assignments,
		RequestedBy: actor(c),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, replacements)
}

func (h *OrderHandler) orderID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		h.BadRequest(c, "invalid order id")
		return 0, false
	}
	return id, true
}

func (h *OrderHandler) runTransition(c *gin.Context, fn func(ctx context.Context, orderID int64) (*order.Order, error)) {
	id, ok := h.orderID(c)
	if !ok {
		return
	}

	ord, err := fn(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, ord)
}
