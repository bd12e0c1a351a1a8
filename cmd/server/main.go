package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	appcatalog "github.com/manuerp/backend/internal/application/catalog"
	appinv "github.com/manuerp/backend/internal/application/inventory"
	apporder "github.com/manuerp/backend/internal/application/order"
	appprod "github.com/manuerp/backend/internal/application/production"
	"github.com/manuerp/backend/internal/infrastructure/cache"
	"github.com/manuerp/backend/internal/infrastructure/config"
	"github.com/manuerp/backend/internal/infrastructure/event"
	"github.com/manuerp/backend/internal/infrastructure/logger"
	"github.com/manuerp/backend/internal/infrastructure/persistence"
	"github.com/manuerp/backend/internal/interfaces/http/handler"
	"github.com/manuerp/backend/internal/interfaces/http/router"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting inventory backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	gormLog := logger.NewGorm(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	scope := persistence.NewGormTransactionScope(db.DB)

	eventBus := event.NewInMemoryEventBus(log)
	eventBus.Subscribe(appinv.NewStockAlertHandler(log))

	policy := appinv.Policy{
		StrictReservation: cfg.Inventory.StrictReservation,
		OversoldTolerance: cfg.Inventory.OversoldTolerance,
	}
	log.Info("Reservation policy configured",
		zap.Bool("strict", policy.StrictReservation),
		zap.String("oversold_tolerance", policy.OversoldTolerance.String()),
	)

	ledgerService := appinv.NewLedgerService(scope, eventBus, log, policy)
	reservationService := appinv.NewReservationService(scope, eventBus, log, policy)
	resolverService := appinv.NewResolverService(scope)
	orderService := apporder.NewService(scope, ledgerService, reservationService, eventBus, log)
	productionService := appprod.NewService(scope, ledgerService, eventBus, log)
	catalogService := appcatalog.NewService(scope, log)

	idempotencyStore, err := cache.NewIdempotencyStore(cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize idempotency store", zap.Error(err))
	}
	defer func() {
		if err := idempotencyStore.Close(); err != nil {
			log.Error("Error closing idempotency store", zap.Error(err))
		}
	}()

	handlers := router.Handlers{
		System:     handler.NewSystemHandler(db),
		Catalog:    handler.NewCatalogHandler(catalogService),
		Inventory:  handler.NewInventoryHandler(ledgerService, resolverService),
		Orders:     handler.NewOrderHandler(orderService),
		Production: handler.NewProductionHandler(productionService),
	}

	engine := router.New(cfg, log, handlers, idempotencyStore)
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
