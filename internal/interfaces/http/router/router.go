package router

import (
	"github.com/gin-gonic/gin"
	"github.com/manuerp/backend/internal/domain/shared"
	"github.com/manuerp/backend/internal/infrastructure/config"
	"github.com/manuerp/backend/internal/infrastructure/logger"
	"github.com/manuerp/backend/internal/interfaces/http/handler"
	"github.com/manuerp/backend/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// Handlers bundles every handler the router mounts
type Handlers struct {
	System     *handler.SystemHandler
	Catalog    *handler.CatalogHandler
	Inventory  *handler.InventoryHandler
	Orders     *handler.OrderHandler
	Production *handler.ProductionHandler
}

// New builds the gin engine with all middleware and routes mounted. Write
// endpoints sit behind the idempotency middleware when a store is configured.
func New(cfg *config.Config, log *zap.Logger, h Handlers, idempotency shared.IdempotencyStore) *gin.Engine {
	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	engine.Use(middleware.RequestID())
	engine.Use(logger.GinMiddleware(log))
	engine.Use(logger.Recovery(log))

	engine.GET("/health", h.System.Health)

	api := engine.Group("/api/v1")
	if cfg.Idempotency.Enabled && idempotency != nil {
		api.Use(middleware.Idempotency(idempotency, cfg.Idempotency.TTL, log))
	}

	masters := api.Group("/master-products")
	{
		masters.POST("", h.Catalog.CreateMasterProduct)
		masters.GET("", h.Catalog.ListMasterProducts)
		masters.GET("/:id", h.Catalog.GetMasterProduct)
		masters.POST("/:id/deactivate", h.Catalog.DeactivateMasterProduct)
		masters.GET("/:id/products", h.Catalog.ListSKUsByMaster)
	}

	products := api.Group("/products")
	{
		products.POST("", h.Catalog.CreateSKU)
		products.GET("/:id", h.Catalog.GetSKU)
		products.GET("/:id/type", h.Inventory.ResolveProduct)
		products.GET("/:id/transactions", h.Inventory.ListProductTransactions)
	}

	inv := api.Group("/inventory")
	{
		inv.POST("/inward", h.Inventory.RecordInward)
		inv.POST("/adjustments", h.Inventory.RecordAdjustment)
		inv.POST("/discards", h.Inventory.RecordDiscard)
		inv.GET("/transactions", h.Inventory.ListTransactions)
		inv.GET("/transactions/:id", h.Inventory.GetTransaction)
	}

	orders := api.Group("/orders")
	{
		orders.POST("", h.Orders.Create)
		orders.GET("", h.Orders.List)
		orders.GET("/:id", h.Orders.Get)
		orders.POST("/:id/accept", h.Orders.Accept)
		orders.POST("/:id/schedule", h.Orders.Schedule)
		orders.POST("/:id/ready", h.Orders.MarkReady)
		orders.POST("/:id/dispatch", h.Orders.Dispatch)
		orders.POST("/:id/deliver", h.Orders.Deliver)
		orders.POST("/:id/undispatch", h.Orders.Undispatch)
		orders.POST("/:id/cancel", h.Orders.Cancel)
		orders.POST("/:id/return", h.Orders.Return)
		orders.POST("/:id/split", h.Orders.Split)
	}

	batches := api.Group("/batches")
	{
		batches.POST("", h.Production.Schedule)
		batches.GET("", h.Production.List)
		batches.GET("/:id", h.Production.Get)
		batches.POST("/:id/start", h.Production.Start)
		batches.POST("/:id/complete", h.Production.Complete)
		batches.POST("/:id/cancel", h.Production.Cancel)
	}

	return engine
}
