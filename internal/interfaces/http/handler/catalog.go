package handler

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	appcatalog "github.com/manuerp/backend/internal/application/catalog"
	"github.com/manuerp/backend/internal/domain/product"
	"github.com/manuerp/backend/internal/interfaces/http/dto"
	"github.com/shopspring/decimal"
)

// CatalogHandler exposes master product and SKU management
type CatalogHandler struct {
	BaseHandler
	catalog *appcatalog.Service
}

// NewCatalogHandler creates a new CatalogHandler
func NewCatalogHandler(catalog *appcatalog.Service) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

// CreateMasterProductRequest creates a product family
type CreateMasterProductRequest struct {
	Name          string          `json:"name" binding:"required,max=200"`
	ProductType   string          `json:"product_type" binding:"required,oneof=FG RM PM fg rm pm"`
	MinStockLevel decimal.Decimal `json:"min_stock_level"`
	UnitOfMeasure string          `json:"unit_of_measure" binding:"max=20"`
}

// CreateSKURequest creates a package size under an FG master
type CreateSKURequest struct {
	MasterProductID   int64           `json:"master_product_id" binding:"required,gt=0"`
	Name              string          `json:"name" binding:"required,max=200"`
	PackageCapacityKg decimal.Decimal `json:"package_capacity_kg"`
}

// CreateMasterProduct handles POST /master-products
func (h *CatalogHandler) CreateMasterProduct(c *gin.Context) {
	var req CreateMasterProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	mp, err := h.catalog.CreateMasterProduct(c.Request.Context(), appcatalog.CreateMasterProductInput{
		Name:          req.Name,
		ProductType:   product.ProductType(strings.ToUpper(req.ProductType)),
		MinStockLevel: req.MinStockLevel,
		UnitOfMeasure: req.UnitOfMeasure,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, mp)
}

// GetMasterProduct handles GET /master-products/:id
func (h *CatalogHandler) GetMasterProduct(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	mp, err := h.catalog.GetMasterProduct(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, mp)
}

// ListMasterProducts handles GET /master-products
func (h *CatalogHandler) ListMasterProducts(c *gin.Context) {
	var req dto.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BindError(c, err)
		return
	}

	filter := req.ToFilter()
	page, err := h.catalog.ListMasterProducts(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// DeactivateMasterProduct handles POST /master-products/:id/deactivate
func (h *CatalogHandler) DeactivateMasterProduct(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	mp, err := h.catalog.DeactivateMasterProduct(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, mp)
}

// CreateSKU handles POST /products
func (h *CatalogHandler) CreateSKU(c *gin.Context) {
	var req CreateSKURequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	sku, err := h.catalog.CreateSKU(c.Request.Context(), appcatalog.CreateSKUInput{
		MasterProductID:   req.MasterProductID,
		Name:              req.Name,
		PackageCapacityKg: req.PackageCapacityKg,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, sku)
}

// GetSKU handles GET /products/:id
func (h *CatalogHandler) GetSKU(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	sku, err := h.catalog.GetSKU(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, sku)
}

// ListSKUsByMaster handles GET /master-products/:id/products
func (h *CatalogHandler) ListSKUsByMaster(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	skus, err := h.catalog.ListSKUsByMaster(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, skus)
}

func (h *CatalogHandler) pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		h.BadRequest(c, "invalid id")
		return 0, false
	}
	return id, true
}
