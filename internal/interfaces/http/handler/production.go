package handler

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	appprod "github.com/manuerp/backend/internal/application/production"
	"github.com/manuerp/backend/internal/domain/production"
	"github.com/shopspring/decimal"
)

// ProductionHandler exposes the production batch lifecycle
type ProductionHandler struct {
	BaseHandler
	batches *appprod.Service
}

// NewProductionHandler creates a new ProductionHandler
func NewProductionHandler(batches *appprod.Service) *ProductionHandler {
	return &ProductionHandler{batches: batches}
}

// BatchMaterialRequest is one raw material requirement of a batch
type BatchMaterialRequest struct {
	MasterProductID  int64           `json:"master_product_id" binding:"required,gt=0"`
	RequiredQty      decimal.Decimal `json:"required_qty" binding:"required"`
	RequiredWeightKg decimal.Decimal `json:"required_weight_kg"`
}

// ScheduleBatchRequest plans a production batch
type ScheduleBatchRequest struct {
	BatchNumber string                 `json:"batch_number" binding:"max=50"`
	OutputSKUID int64                  `json:"output_sku_id" binding:"required,gt=0"`
	PlannedQty  decimal.Decimal        `json:"planned_qty" binding:"required"`
	OrderID     *int64                 `json:"order_id" binding:"omitempty,gt=0"`
	Materials   []BatchMaterialRequest `json:"materials" binding:"required,min=1,dive"`
}

// CompleteBatchRequest closes a batch with actual produced figures
type CompleteBatchRequest struct {
	ProducedQty    decimal.Decimal `json:"produced_qty" binding:"required"`
	OutputWeightKg decimal.Decimal `json:"output_weight_kg"`
}

// Schedule handles POST /batches
func (h *ProductionHandler) Schedule(c *gin.Context) {
	var req ScheduleBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	materials := make([]appprod.BatchMaterialInput, 0, len(req.Materials))
	for _, m := range req.Materials {
		materials = append(materials, appprod.BatchMaterialInput{
			MasterProductID:  m.MasterProductID,
			RequiredQty:      m.RequiredQty,
			RequiredWeightKg: m.RequiredWeightKg,
		})
	}

	batch, err := h.batches.Schedule(c.Request.Context(), appprod.ScheduleBatchInput{
		BatchNumber: req.BatchNumber,
		OutputSKUID: req.OutputSKUID,
		PlannedQty:  req.PlannedQty,
		OrderID:     req.OrderID,
		Materials:   materials,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, batch)
}

// Get handles GET /batches/:id
func (h *ProductionHandler) Get(c *gin.Context) {
	id, ok := h.batchID(c)
	if !ok {
		return
	}

	batch, err := h.batches.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, batch)
}

// List handles GET /batches?status=
func (h *ProductionHandler) List(c *gin.Context) {
	status := production.BatchStatus(strings.ToUpper(c.Query("status")))
	if !status.IsValid() {
		h.BadRequest(c, "unknown batch status")
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	result, err := h.batches.ListByStatus(c.Request.Context(), status, listFilter(page, pageSize))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, result.Items, result.Total, result.Page, result.PageSize)
}

// Start handles POST /batches/:id/start
func (h *ProductionHandler) Start(c *gin.Context) {
	id, ok := h.batchID(c)
	if !ok {
		return
	}

	batch, err := h.batches.Start(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, batch)
}

// Complete handles POST /batches/:id/complete. Consumption of every batch
// material and the output movement commit together or not at all.
func (h *ProductionHandler) Complete(c *gin.Context) {
	id, ok := h.batchID(c)
	if !ok {
		return
	}

	var req CompleteBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	batch, err := h.batches.Complete(c.Request.Context(), appprod.CompleteBatchInput{
		BatchID:        id,
		ProducedQty:    req.ProducedQty,
		OutputWeightKg: req.OutputWeightKg,
		CompletedBy:    actor(c),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, batch)
}

// Cancel handles POST /batches/:id/cancel
func (h *ProductionHandler) Cancel(c *gin.Context) {
	id, ok := h.batchID(c)
	if !ok {
		return
	}

	batch, err := h.batches.Cancel(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, batch)
}

func (h *ProductionHandler) batchID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		h.BadRequest(c, "invalid batch id")
		return 0, false
	}
	return id, true
}
