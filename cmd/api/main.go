package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mercatohq/stockroom-backend/api/controllers"
	"github.com/mercatohq/stockroom-backend/api/routes"
	"github.com/mercatohq/stockroom-backend/internal/inventory"
	"github.com/mercatohq/stockroom-backend/internal/movements"
	"github.com/mercatohq/stockroom-backend/internal/notifications"
	"github.com/mercatohq/stockroom-backend/internal/orders"
	"github.com/mercatohq/stockroom-backend/internal/products"
	"github.com/mercatohq/stockroom-backend/internal/purchaseorders"
	"github.com/mercatohq/stockroom-backend/internal/suppliers"
	"github.com/mercatohq/stockroom-backend/pkg/config"
	"github.com/mercatohq/stockroom-backend/pkg/db"
	"github.com/mercatohq/stockroom-backend/pkg/logger"
	"github.com/mercatohq/stockroom-backend/pkg/metrics"
	"github.com/mercatohq/stockroom-backend/pkg/migrate"
	"github.com/mercatohq/stockroom-backend/pkg/outbox"
	"github.com/mercatohq/stockroom-backend/pkg/redis"
	"github.com/mercatohq/stockroom-backend/pkg/storage/gcs"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	readyChecks := map[string]controllers.Pinger{
		"db":    dbClient,
		"redis": redisClient,
	}

	// The label store is optional; without a bucket orders are created
	// without shipping label artifacts.
	var labelStore orders.LabelStore
	if cfg.Orders.LabelBucket != "" {
		gcsClient, err := gcs.NewClient(context.Background(), cfg.GCS, cfg.GCP, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap gcs", err)
			os.Exit(1)
		}
		labelStore = gcsClient.BucketHandle(cfg.Orders.LabelBucket)
		readyChecks["gcs"] = gcsClient
	}

	gormDB := dbClient.DB()
	inventoryRepo := inventory.NewRepository(gormDB)
	productsRepo := products.NewRepository(gormDB)
	movementsRepo := movements.NewRepository(gormDB)
	suppliersRepo := suppliers.NewRepository(gormDB)
	outboxService := outbox.NewService(outbox.NewRepository(gormDB), logg)
	notifier := notifications.New(redisClient, cfg.Notifications, logg)

	inventoryService, err := inventory.NewService(inventoryRepo, dbClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create inventory service", err)
		os.Exit(1)
	}
	productService, err := products.NewService(productsRepo, inventoryRepo, dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create product service", err)
		os.Exit(1)
	}
	orderService, err := orders.NewService(
		orders.NewRepository(gormDB),
		dbClient,
		inventoryService,
		productsRepo,
		movementsRepo,
		outboxService,
		labelStore,
		notifier,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create order service", err)
		os.Exit(1)
	}
	purchaseOrderService, err := purchaseorders.NewService(
		purchaseorders.NewRepository(gormDB),
		dbClient,
		inventoryService,
		productsRepo,
		suppliersRepo,
		movementsRepo,
		outboxService,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create purchase order service", err)
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	httpMetrics := metrics.NewHTTPMetrics(reg)

	handler := routes.NewRouter(
		cfg,
		logg,
		reg,
		httpMetrics,
		redisClient,
		readyChecks,
		productService,
		inventoryService,
		movementsRepo,
		orderService,
		purchaseOrderService,
		suppliersRepo,
	)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		stop()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
			os.Exit(1)
		}
		logg.Info(ctx, "api server shut down gracefully")
	}
}
