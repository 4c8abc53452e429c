package main

import (
	"context"
	"os"

	"salestrack-backend/internal/audit"
	"salestrack-backend/internal/auth"
	"salestrack-backend/internal/config"
	"salestrack-backend/internal/dashboard"
	"salestrack-backend/internal/database"
	"salestrack-backend/internal/inventory"
	"salestrack-backend/internal/models"
	"salestrack-backend/internal/sales"
	"salestrack-backend/internal/server"
	"salestrack-backend/internal/stock"
	"salestrack-backend/internal/store"
	"salestrack-backend/internal/viewstate"

	"github.com/bsm/redislock"
	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/gofiber/fiber/v2"
)

func main() {
	cfg := config.Load()
	config.SetLogLevel(cfg.LogLevel)
	logg := config.GetLogger()

	database.Init(cfg)
	db := database.DB

	rdb, err := config.NewRedisClient(context.Background(), cfg)
	if err != nil {
		logg.Fatalf("could not connect to redis: %v", err)
	}

	cal := stock.NewCalendar(cfg.Location)
	products := store.NewProductStore(db)
	ledger := store.NewSaleStore(db)
	auditSvc := audit.NewService(db)

	var (
		locker    sales.Locker
		viewState viewstate.Store
	)
	if rdb != nil {
		locker = redislock.New(rdb)
		viewState = viewstate.NewRedisStore(rdb, cfg.ViewStateTTL)
	} else {
		logg.Warn("REDIS_ADDRESS is not set, view state is kept in memory and imports are not locked")
		viewState = viewstate.NewMemoryStore(cfg.ViewStateTTL)
	}

	inventorySvc := inventory.NewService(products, ledger, auditSvc, cal)
	salesSvc := sales.NewService(ledger, auditSvc, locker, cal)
	salesSvc.OnLedgerChanged = func(ctx context.Context) error {
		_, err := inventorySvc.Refresh(ctx)
		return err
	}
	auditSvc.OnProductRestored = inventorySvc.RefreshProduct

	app := server.NewApp(logg, cfg.CORSOrigins)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api")
	api.Use(auth.JWTMiddleware(cfg.JWTSecret))

	api.Get("/auth/me", auth.MeHandler())

	// Products; fixed paths go before :id
	api.Get("/products", inventory.ListProductsHandler(inventorySvc))
	api.Get("/products/stats", inventory.ProductStatsHandler(inventorySvc))
	api.Get("/products/export", inventory.ExportProductsHandler(inventorySvc))
	api.Post("/products/refresh", inventory.RefreshProductsHandler(inventorySvc))
	api.Post("/products/bulk-delete", auth.RequireRole(models.RoleAdmin), inventory.BulkDeleteProductsHandler(inventorySvc))
	api.Post("/products", inventory.CreateProductHandler(inventorySvc))
	api.Get("/products/:id", inventory.GetProductHandler(inventorySvc))
	api.Get("/products/:id/reconciliation", inventory.ProductReconciliationHandler(inventorySvc))
	api.Put("/products/:id", inventory.UpdateProductHandler(inventorySvc))
	api.Delete("/products/:id", auth.RequireRole(models.RoleAdmin), inventory.DeleteProductHandler(inventorySvc))
	api.Get("/categories", inventory.ListCategoriesHandler(inventorySvc))

	// Sales ledger
	api.Get("/sales", sales.ListSalesHandler(salesSvc))
	api.Post("/sales", sales.CreateSaleHandler(salesSvc))
	api.Post("/sales/import", sales.ImportSalesHandler(salesSvc))
	api.Get("/sales/export", sales.ExportSalesHandler(salesSvc))

	// Dashboard
	api.Get("/dashboard/sales-chart", dashboard.SalesChartHandler(ledger, cal))

	// Saved list views
	api.Get("/view-state/:screen", viewstate.GetViewStateHandler(viewState))
	api.Put("/view-state/:screen", viewstate.SaveViewStateHandler(viewState))
	api.Delete("/view-state/:screen", viewstate.ClearViewStateHandler(viewState))

	// Audit logs
	api.Get("/audit-logs", audit.ListAuditLogsHandler(auditSvc))
	api.Post("/audit-logs/:id/undo", audit.UndoAuditLogHandler(auditSvc))

	go func() {
		logg.WithField("port", cfg.HTTPPort).Info("server listening")
		if err := app.Listen(":" + cfg.HTTPPort); err != nil {
			logg.Fatalf("server stopped: %v", err)
		}
	}()

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		cfg.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			// Stores close only after fiber has drained in-flight requests.
			"http": func(ctx context.Context) error {
				if err := app.ShutdownWithContext(ctx); err != nil {
					return err
				}
				if rdb != nil {
					if err := rdb.Close(); err != nil {
						logg.WithError(err).Warn("could not close redis client")
					}
				}
				sqlDB, err := db.DB()
				if err != nil {
					return err
				}
				return sqlDB.Close()
			},
		},
	)

	code := <-wait
	logg.WithField("code", code).Info("server exited")
	os.Exit(code)
}
