// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"pheezes/internal/core/idempotency"
	"pheezes/internal/domain/cash"
	"pheezes/internal/domain/catalog"
	"pheezes/internal/domain/orders"
	"pheezes/internal/infrastructure/cache"
	"pheezes/internal/infrastructure/http/v1/handlers"
	"pheezes/internal/infrastructure/http/v1/middleware"
	"pheezes/pkg/logger"
)

// RouterConfig holds router dependencies.
type RouterConfig struct {
	Catalog *catalog.Service
	Orders  *orders.Engine
	Cash    *cash.Service

	// Storage backs /health/ready.
	Storage handlers.Pinger

	// Views caches GET responses. Nil disables caching.
	Views *cache.Cache

	// Idempotency backs Idempotency-Key on create endpoints. Nil disables it.
	Idempotency idempotency.Store

	Logger     *logger.Logger
	Production bool
}

// NewRouter creates and configures the gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Order matters: Recovery must wrap everything so a panic still
	// produces an envelope.
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.Secure(cfg.Production))
	router.Use(middleware.ErrorHandler())

	health := handlers.NewHealthHandler(cfg.Storage)
	router.GET("/health/live", health.Live)
	router.GET("/health/ready", health.Ready)

	base := handlers.NewBaseHandler(cfg.Views)
	v1 := router.Group("/api/v1")

	registerProductRoutes(v1, handlers.NewProductHandler(base, cfg.Catalog), cfg.Views)
	idem := middleware.Idempotency(cfg.Idempotency)
	registerOrderRoutes(v1, handlers.NewOrderHandler(base, cfg.Orders), cfg.Views, idem)
	registerCashRoutes(v1, handlers.NewCashHandler(base, cfg.Cash), cfg.Views, idem)

	return router
}

func registerProductRoutes(v1 *gin.RouterGroup, h *handlers.ProductHandler, views *cache.Cache) {
	products := v1.Group("/products", middleware.InvalidateOnWrite(views, cache.TagProducts))
	products.GET("", h.List)
	products.POST("", h.Create)
	products.GET("/:id", h.Get)
	products.PATCH("/:id", h.Update)
	products.DELETE("/:id", h.Delete)

	variations := v1.Group("/variations", middleware.InvalidateOnWrite(views, cache.TagProducts))
	variations.PUT("/:id/stock", h.SetStock)
	variations.GET("/:id/movements", h.Movements)
}

func registerOrderRoutes(v1 *gin.RouterGroup, h *handlers.OrderHandler, views *cache.Cache, idem gin.HandlerFunc) {
	// Order mutations move stock, so product views go stale too.
	ordersGroup := v1.Group("/orders", middleware.InvalidateOnWrite(views, cache.TagOrders, cache.TagProducts))
	ordersGroup.GET("", h.List)
	ordersGroup.POST("", idem, h.Create)
	ordersGroup.GET("/:id", h.Get)
	ordersGroup.DELETE("/:id", h.Delete)
	ordersGroup.GET("/:id/history", h.History)
	ordersGroup.POST("/:id/process", h.Process)
	ordersGroup.POST("/:id/dispatch", h.Dispatch)
	ordersGroup.POST("/:id/return", h.Return)
}

func registerCashRoutes(v1 *gin.RouterGroup, h *handlers.CashHandler, views *cache.Cache, idem gin.HandlerFunc) {
	cashGroup := v1.Group("/cash", middleware.InvalidateOnWrite(views, cache.TagCash))
	cashGroup.GET("/transactions", h.List)
	cashGroup.POST("/transactions", idem, h.Create)
	cashGroup.PUT("/transactions/:id", h.Update)
	cashGroup.DELETE("/transactions/:id", h.Delete)
	cashGroup.GET("/summary", h.Summary)
}
