package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mercatohq/stockroom-backend/api/controllers"
	"github.com/mercatohq/stockroom-backend/api/middleware"
	"github.com/mercatohq/stockroom-backend/internal/inventory"
	"github.com/mercatohq/stockroom-backend/internal/movements"
	"github.com/mercatohq/stockroom-backend/internal/orders"
	"github.com/mercatohq/stockroom-backend/internal/products"
	"github.com/mercatohq/stockroom-backend/internal/purchaseorders"
	"github.com/mercatohq/stockroom-backend/internal/suppliers"
	"github.com/mercatohq/stockroom-backend/pkg/config"
	"github.com/mercatohq/stockroom-backend/pkg/logger"
	"github.com/mercatohq/stockroom-backend/pkg/metrics"
	"github.com/mercatohq/stockroom-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	reg *prometheus.Registry,
	httpMetrics *metrics.HTTPMetrics,
	redisClient *redis.Client,
	readyChecks map[string]controllers.Pinger,
	productService products.Service,
	inventoryService inventory.Service,
	movementsRepo movements.Repository,
	orderService orders.Service,
	purchaseOrderService purchaseorders.Service,
	suppliersRepo suppliers.Repository,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg, httpMetrics),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readyChecks))
	})

	if reg != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(reg))
	}

	// Supplier confirmation links arrive from email clients without a token,
	// so these two routes stay outside the authenticated tree.
	r.Route("/api/public/purchase-orders/{orderID}", func(r chi.Router) {
		r.Use(middleware.PublicRateLimit(redisClient, "po-link", cfg.RateLimit.LinkIPLimit, cfg.RateLimit.LinkWindow, logg))
		r.Post("/confirm", controllers.PublicPurchaseOrderConfirm(purchaseOrderService, logg))
		r.Post("/cancel", controllers.PublicPurchaseOrderCancel(purchaseOrderService, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ProductList(productService, logg))
			r.Get("/{productID}", controllers.ProductDetail(productService, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireStockManager(logg))
				r.Post("/", controllers.ProductCreate(productService, logg))
				r.Patch("/{productID}/status", controllers.ProductUpdateStatus(productService, logg))
			})
		})

		r.Route("/inventory", func(r chi.Router) {
			r.Get("/", controllers.InventoryList(inventoryService, logg))
			r.Get("/{productID}", controllers.InventoryDetail(inventoryService, logg))
			r.Get("/{productID}/movements", controllers.InventoryMovements(movementsRepo, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireStockManager(logg))
				r.Patch("/{productID}", controllers.InventoryUpdateLevels(inventoryService, logg))
				r.Delete("/{productID}", controllers.InventoryDelete(inventoryService, logg))
			})
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.OrderList(orderService, logg))
			r.Post("/", controllers.OrderCreate(orderService, logg))
			r.Get("/{orderID}", controllers.OrderDetail(orderService, logg))
			r.Post("/{orderID}/cancel", controllers.OrderCancel(orderService, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireStockManager(logg))
				r.Post("/{orderID}/stock-out", controllers.OrderStockOut(orderService, logg))
				r.Post("/{orderID}/items", controllers.OrderAddItem(orderService, logg))
				r.Delete("/{orderID}/items/{itemID}", controllers.OrderRemoveItem(orderService, logg))
			})
		})

		r.Route("/suppliers", func(r chi.Router) {
			r.Use(middleware.RequireStockManager(logg))
			r.Get("/", controllers.SupplierList(suppliersRepo, logg))
			r.Post("/", controllers.SupplierCreate(suppliersRepo, logg))
		})

		r.Route("/purchase-orders", func(r chi.Router) {
			r.Use(middleware.RequireStockManager(logg))
			r.Get("/", controllers.PurchaseOrderList(purchaseOrderService, logg))
			r.Post("/", controllers.PurchaseOrderCreate(purchaseOrderService, logg))
			r.Get("/{orderID}", controllers.PurchaseOrderDetail(purchaseOrderService, logg))
			r.Post("/{orderID}/receive", controllers.PurchaseOrderReceive(purchaseOrderService, logg))
			r.Post("/{orderID}/cancel", controllers.PurchaseOrderCancel(purchaseOrderService, logg))
		})
	})

	return r
}
