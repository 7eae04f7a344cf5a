package api

import (
	"net/http"
	"strconv"
	"time"

	"inventory-service/internal/auth"
	"inventory-service/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler contains HTTP handlers
type Handler struct {
	authService    *service.AuthService
	catalogService *service.CatalogService
	stockService   *service.StockService
	orderService   *service.OrderService
	tokens         *auth.TokenManager
}

// NewHandler creates a new HTTP handler
func NewHandler(
	authService *service.AuthService,
	catalogService *service.CatalogService,
	stockService *service.StockService,
	orderService *service.OrderService,
	tokens *auth.TokenManager,
) *Handler {
	return &Handler{
		authService:    authService,
		catalogService: catalogService,
		stockService:   stockService,
		orderService:   orderService,
		tokens:         tokens,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	{
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/register", h.register)
			authGroup.POST("/login", h.login)
		}

		products := api.Group("/products")
		{
			products.GET("", h.listProducts)
			products.GET("/:id", h.getProduct)
			products.POST("", h.Authenticate(), RequireAdmin(), h.createProduct)
			products.PUT("/:id", h.Authenticate(), RequireAdmin(), h.updateProduct)
			products.DELETE("/:id", h.Authenticate(), RequireAdmin(), h.deleteProduct)
		}

		warehouses := api.Group("/warehouses")
		{
			warehouses.GET("", h.listWarehouses)
			warehouses.GET("/:id", h.getWarehouse)
			warehouses.POST("", h.Authenticate(), RequireAdmin(), h.createWarehouse)
			warehouses.PUT("/:id", h.Authenticate(), RequireAdmin(), h.updateWarehouse)
			warehouses.DELETE("/:id", h.Authenticate(), RequireAdmin(), h.deleteWarehouse)
		}

		// The first wildcard segment is :id on every stock route because
		// gin requires matching wildcard names at the same position; for
		// the two-segment lookup it carries the product ID.
		stocks := api.Group("/stocks")
		{
			stocks.GET("/:id/:warehouseId", h.getStock)
			stocks.POST("", h.Authenticate(), RequireAdmin(), h.addStock)
			stocks.PUT("/:id", h.Authenticate(), RequireAdmin(), h.updateStock)
			stocks.DELETE("/:id", h.Authenticate(), RequireAdmin(), h.deleteStock)
		}

		orders := api.Group("/orders", h.Authenticate())
		{
			orders.POST("", h.placeOrder)
			orders.GET("", RequireAdmin(), h.listOrders)
			orders.GET("/my-orders", h.listMyOrders)
			orders.PUT("/:id", RequireAdmin(), h.updateOrderStatus)
			orders.DELETE("/:id", h.cancelOrder)
		}
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// writeError maps a service error to its HTTP status, keeping the stable
// kind visible to clients.
func writeError(c *gin.Context, err error) {
	kind := service.KindOf(err)
	c.JSON(statusForKind(kind), gin.H{
		"error":   string(kind),
		"message": err.Error(),
	})
}

func statusForKind(kind service.ErrorKind) int {
	switch kind {
	case service.KindValidation, service.KindInsufficientStock, service.KindInvalidState:
		return http.StatusBadRequest
	case service.KindNotFound:
		return http.StatusNotFound
	case service.KindForbidden:
		return http.StatusForbidden
	case service.KindUnavailable:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func bindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   string(service.KindValidation),
		"message": "Invalid request body",
		"details": err.Error(),
	})
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   string(service.KindValidation),
			"message": "Invalid " + name + " parameter",
		})
		return 0, false
	}
	return id, true
}
