package handler

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	appinv "github.com/manuerp/backend/internal/application/inventory"
	"github.com/manuerp/backend/internal/domain/inventory"
	"github.com/shopspring/decimal"
)

// InventoryHandler exposes stock movements and the ledger query API
type InventoryHandler struct {
	BaseHandler
	ledger   *appinv.LedgerService
	resolver *appinv.ResolverService
}

// NewInventoryHandler creates a new InventoryHandler
func NewInventoryHandler(ledger *appinv.LedgerService, resolver *appinv.ResolverService) *InventoryHandler {
	return &InventoryHandler{ledger: ledger, resolver: resolver}
}

// InwardRequest records received stock
type InwardRequest struct {
	ProductID int64            `json:"product_id" binding:"required,gt=0"`
	Quantity  decimal.Decimal  `json:"quantity" binding:"required"`
	WeightKg  decimal.Decimal  `json:"weight_kg"`
	InwardID  int64            `json:"inward_id" binding:"required,gt=0"`
	UnitPrice *decimal.Decimal `json:"unit_price"`
	Notes     string           `json:"notes" binding:"max=500"`
}

// AdjustmentRequest records a signed manual correction
type AdjustmentRequest struct {
	ProductID int64           `json:"product_id" binding:"required,gt=0"`
	Quantity  decimal.Decimal `json:"quantity" binding:"required"`
	WeightKg  decimal.Decimal `json:"weight_kg"`
	Notes     string          `json:"notes" binding:"max=500"`
}

// DiscardRequest writes off damaged or expired stock
type DiscardRequest struct {
	ProductID int64           `json:"product_id" binding:"required,gt=0"`
	Quantity  decimal.Decimal `json:"quantity" binding:"required"`
	DiscardID int64           `json:"discard_id" binding:"required,gt=0"`
	Notes     string          `json:"notes" binding:"max=500"`
}

// RecordInward handles POST /inventory/inward
func (h *InventoryHandler) RecordInward(c *gin.Context) {
	var req InwardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	row, err := h.ledger.RecordInward(c.Request.Context(), appinv.RecordInwardInput{
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
		WeightKg:  req.WeightKg,
		InwardID:  req.InwardID,
		UnitPrice: req.UnitPrice,
		CreatedBy: actor(c),
		Notes:     req.Notes,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, row)
}

// RecordAdjustment handles POST /inventory/adjustments
func (h *InventoryHandler) RecordAdjustment(c *gin.Context) {
	var req AdjustmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	row, err := h.ledger.RecordAdjustment(c.Request.Context(), appinv.RecordAdjustmentInput{
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
		WeightKg:  req.WeightKg,
		CreatedBy: actor(c),
		Notes:     req.Notes,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, row)
}

// RecordDiscard handles POST /inventory/discards
func (h *InventoryHandler) RecordDiscard(c *gin.Context) {
	var req DiscardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	row, err := h.ledger.RecordDiscard(c.Request.Context(), appinv.RecordDiscardInput{
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
		DiscardID: req.DiscardID,
		CreatedBy: actor(c),
		Notes:     req.Notes,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	// A material discard can commit its stock write-off and still miss the
	// ledger linkage; that degraded outcome has no row to return.
	if row == nil {
		h.Created(c, gin.H{"ledger_linked": false})
		return
	}
	h.Created(c, row)
}

// GetTransaction handles GET /inventory/transactions/:id
func (h *InventoryHandler) GetTransaction(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		h.BadRequest(c, "invalid transaction id")
		return
	}

	row, err := h.ledger.GetTransaction(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, row)
}

// ListTransactionsQuery selects which ledger slice to list
type ListTransactionsQuery struct {
	ReferenceType string `form:"reference_type"`
	ReferenceID   int64  `form:"reference_id" binding:"omitempty,gt=0"`
	From          string `form:"from" binding:"omitempty,datetime=2006-01-02"`
	To            string `form:"to" binding:"omitempty,datetime=2006-01-02"`
	Page          int    `form:"page" binding:"omitempty,min=1"`
	PageSize      int    `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// ListTransactions handles GET /inventory/transactions, either by source
// document (reference_type, optionally narrowed by reference_id) or by date
// range (from + to).
func (h *InventoryHandler) ListTransactions(c *gin.Context) {
	var q ListTransactionsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BindError(c, err)
		return
	}

	switch {
	case q.ReferenceType != "":
		refType := inventory.ReferenceType(strings.ToUpper(q.ReferenceType))
		rows, err := h.ledger.ListTransactionsByReference(c.Request.Context(), refType, q.ReferenceID)
		if err != nil {
			h.HandleError(c, err)
			return
		}
		h.Success(c, rows)

	case q.From != "" && q.To != "":
		from, _ := time.Parse("2006-01-02", q.From)
		to, _ := time.Parse("2006-01-02", q.To)
		filter := listFilter(q.Page, q.PageSize)
		page, err := h.ledger.ListTransactionsByDateRange(c.Request.Context(), from, to.AddDate(0, 0, 1), filter)
		if err != nil {
			h.HandleError(c, err)
			return
		}
		h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)

	default:
		h.BadRequest(c, "provide reference_type and reference_id, or from and to dates")
	}
}

// ListProductTransactions handles GET /products/:id/transactions
func (h *InventoryHandler) ListProductTransactions(c *gin.Context) {
	productID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		h.BadRequest(c, "invalid product id")
		return
	}

	var q ListTransactionsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BindError(c, err)
		return
	}

	page, err := h.ledger.ListTransactionsByProduct(c.Request.Context(), productID, listFilter(q.Page, q.PageSize))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// ResolveProduct handles GET /products/:id/type. Material master ids win over
// SKU ids when the integer collides; this endpoint lets clients see which
// table an id landed in.
func (h *InventoryHandler) ResolveProduct(c *gin.Context) {
	productID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		h.BadRequest(c, "invalid product id")
		return
	}

	ref, err := h.resolver.Resolve(c.Request.Context(), productID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"kind": ref.Kind, "id": ref.ID})
}
