package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"pos-service/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pinger reports whether a backing dependency is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler contains HTTP handlers
type Handler struct {
	catalog   *service.CatalogService
	customers *service.CustomerService
	sales     *service.SaleService
	db        Pinger
}

// NewHandler creates a new HTTP handler
func NewHandler(
	catalog *service.CatalogService,
	customers *service.CustomerService,
	sales *service.SaleService,
	db Pinger,
) *Handler {
	return &Handler{
		catalog:   catalog,
		customers: customers,
		sales:     sales,
		db:        db,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(tracingMiddleware())
	router.Use(prometheusMiddleware())
	router.Use(loggingMiddleware())

	router.GET("/", h.root)
	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api")
	{
		products := v1.Group("/products")
		products.GET("", h.listProducts)
		products.GET("/search/:query", h.searchProducts)
		products.GET("/:id", h.getProduct)
		products.POST("", h.createProduct)
		products.PUT("/:id", h.updateProduct)
		products.DELETE("/:id", h.deleteProduct)

		customers := v1.Group("/customers")
		customers.GET("", h.listCustomers)
		customers.GET("/search/:query", h.searchCustomers)
		customers.GET("/:id", h.getCustomer)
		customers.POST("", h.createCustomer)
		customers.PUT("/:id", h.updateCustomer)
		customers.PUT("/:id/loyalty", h.adjustLoyalty)
		customers.DELETE("/:id", h.deleteCustomer)

		sales := v1.Group("/sales")
		sales.POST("", h.processSale)
		sales.GET("/search/:query", h.quickSearch)
		sales.GET("/receipt/:receipt", h.getSaleByReceipt)
		sales.GET("/:id", h.getSale)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Route not found"})
	})
}

func (h *Handler) root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "POS System API"})
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "OK",
		"message": "POS API is running",
		"time":    time.Now().Unix(),
	})
}

// readinessCheck reports ready only while the database answers
func (h *Handler) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unavailable",
			"error":  "database unreachable",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// parseID reads a positive numeric path parameter; it writes the 400
// response itself and returns false when the value is malformed
func parseID(c *gin.Context, name, label string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + label + " ID"})
		return 0, false
	}
	return id, true
}
