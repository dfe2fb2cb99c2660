package api

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"upgrade-service/internal/models"
	"upgrade-service/internal/service"
	"upgrade-service/internal/upgrade"
	"upgrade-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Configurator is the customer-facing configuration API
type Configurator interface {
	ListUpgrades(ctx context.Context, productID int64) (*service.UpgradeListing, error)
	Quote(ctx context.Context, productID int64, req *service.QuoteRequest) (*service.QuoteResponse, error)
	StartSession(ctx context.Context, productID int64) (*service.SessionView, error)
	GetSession(ctx context.Context, id string) (*service.SessionView, error)
	Select(ctx context.Context, id string, kind upgrade.Kind, optionID int64) (*service.SessionView, error)
	ResetSession(ctx context.Context, id string) (*service.SessionView, error)
	Finalize(ctx context.Context, id string, req *service.FinalizeRequest) (*service.FinalizeResponse, error)
	GetOrder(ctx context.Context, orderID int64) (*models.Order, []models.OrderItem, error)
}

// CatalogAdmin manages the upgrade catalog
type CatalogAdmin interface {
	ImportCSV(ctx context.Context, r io.Reader) (*service.ImportResult, error)
	ExportXLSX(ctx context.Context) (*bytes.Buffer, error)
	DeactivateOption(ctx context.Context, id int64) error
}

// ProductAdmin manages products and their price overrides
type ProductAdmin interface {
	ListProducts(ctx context.Context) ([]models.Product, error)
	SetPriceOverrides(ctx context.Context, productID int64, overrides models.PriceOverrides) error
}

// Pinger reports whether a dependency is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler contains HTTP handlers
type Handler struct {
	configurator Configurator
	catalog      CatalogAdmin
	products     ProductAdmin
	deps         map[string]Pinger
	logger       *zap.Logger
}

// NewHandler creates a new HTTP handler. deps are checked by /ready.
func NewHandler(configurator Configurator, catalog CatalogAdmin, products ProductAdmin, deps map[string]Pinger) *Handler {
	return &Handler{
		configurator: configurator,
		catalog:      catalog,
		products:     products,
		deps:         deps,
		logger:       util.GetLogger(),
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/products/:id/upgrades", h.listUpgrades)
		v1.POST("/products/:id/quote", h.quote)

		v1.POST("/configurations", h.startSession)
		v1.GET("/configurations/:id", h.getSession)
		v1.PUT("/configurations/:id/:kind", h.selectOption)
		v1.DELETE("/configurations/:id/selections", h.resetSession)
		v1.POST("/configurations/:id/finalize", h.finalize)

		v1.GET("/orders/:id", h.getOrder)
	}

	admin := router.Group("/api/v1/admin")
	{
		admin.GET("/products", h.listProducts)
		admin.PUT("/products/:id/price-overrides", h.setPriceOverrides)
		admin.POST("/catalog/import", h.importCatalog)
		admin.GET("/catalog/export", h.exportCatalog)
		admin.DELETE("/catalog/options/:id", h.deactivateOption)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck pings every dependency
func (h *Handler) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	failed := gin.H{}
	for name, dep := range h.deps {
		if err := dep.Ping(ctx); err != nil {
			failed[name] = err.Error()
		}
	}

	if len(failed) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "not ready",
			"details": failed,
			"time":    time.Now().Unix(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

func (h *Handler) listUpgrades(c *gin.Context) {
	productID, ok := int64Param(c, "id", "Invalid product ID")
	if !ok {
		return
	}

	listing, err := h.configurator.ListUpgrades(c.Request.Context(), productID)
	if err != nil {
		h.fail(c, "Failed to list upgrades", err)
		return
	}

	c.JSON(http.StatusOK, listing)
}

func (h *Handler) quote(c *gin.Context) {
	productID, ok := int64Param(c, "id", "Invalid product ID")
	if !ok {
		return
	}

	var req service.QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	resp, err := h.configurator.Quote(c.Request.Context(), productID, &req)
	if err != nil {
		h.fail(c, "Failed to quote configuration", err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

type startSessionRequest struct {
	ProductID int64 `json:"product_id" binding:"required"`
}

func (h *Handler) startSession(c *gin.Context) {
	var req startSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	view, err := h.configurator.StartSession(c.Request.Context(), req.ProductID)
	if err != nil {
		h.fail(c, "Failed to start configuration", err)
		return
	}

	c.JSON(http.StatusCreated, view)
}

func (h *Handler) getSession(c *gin.Context) {
	view, err := h.configurator.GetSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, "Failed to get configuration", err)
		return
	}

	c.JSON(http.StatusOK, view)
}

type selectRequest struct {
	OptionID int64 `json:"option_id" binding:"required"`
}

// selectOption toggles a RAM or storage upgrade; kind is "ram" or "storage"
func (h *Handler) selectOption(c *gin.Context) {
	kind, ok := upgrade.ParseKind(c.Param("kind"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid upgrade kind",
		})
		return
	}

	var req selectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	view, err := h.configurator.Select(c.Request.Context(), c.Param("id"), kind, req.OptionID)
	if err != nil {
		h.fail(c, "Failed to update configuration", err)
		return
	}

	c.JSON(http.StatusOK, view)
}

func (h *Handler) resetSession(c *gin.Context) {
	view, err := h.configurator.ResetSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, "Failed to reset configuration", err)
		return
	}

	c.JSON(http.StatusOK, view)
}

func (h *Handler) finalize(c *gin.Context) {
	var req service.FinalizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	if req.IdempotencyKey == "" {
		req.IdempotencyKey = c.GetHeader("Idempotency-Key")
	}

	resp, err := h.configurator.Finalize(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		h.fail(c, "Failed to finalize configuration", err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// getOrder handles get order by ID
func (h *Handler) getOrder(c *gin.Context) {
	orderID, ok := int64Param(c, "id", "Invalid order ID")
	if !ok {
		return
	}

	order, items, err := h.configurator.GetOrder(c.Request.Context(), orderID)
	if err != nil {
		h.fail(c, "Failed to get order", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"order": order,
		"items": items,
	})
}

func (h *Handler) listProducts(c *gin.Context) {
	products, err := h.products.ListProducts(c.Request.Context())
	if err != nil {
		h.fail(c, "Failed to list products", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"products": products})
}

func (h *Handler) setPriceOverrides(c *gin.Context) {
	productID, ok := int64Param(c, "id", "Invalid product ID")
	if !ok {
		return
	}

	var overrides models.PriceOverrides
	if err := c.ShouldBindJSON(&overrides); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	if err := h.products.SetPriceOverrides(c.Request.Context(), productID, overrides); err != nil {
		h.fail(c, "Failed to update price overrides", err)
		return
	}

	c.Status(http.StatusNoContent)
}

// importCatalog accepts a CSV body or a multipart "file" field
func (h *Handler) importCatalog(c *gin.Context) {
	body := io.Reader(c.Request.Body)

	if file, err := c.FormFile("file"); err == nil {
		f, err := file.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Invalid upload",
				"details": err.Error(),
			})
			return
		}
		defer f.Close()
		body = f
	}

	result, err := h.catalog.ImportCSV(c.Request.Context(), body)
	if err != nil {
		h.fail(c, "Failed to import catalog", err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *Handler) exportCatalog(c *gin.Context) {
	buf, err := h.catalog.ExportXLSX(c.Request.Context())
	if err != nil {
		h.fail(c, "Failed to export catalog", err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="upgrades.xlsx"`)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

func (h *Handler) deactivateOption(c *gin.Context) {
	optionID, ok := int64Param(c, "id", "Invalid option ID")
	if !ok {
		return
	}

	if err := h.catalog.DeactivateOption(c.Request.Context(), optionID); err != nil {
		h.fail(c, "Failed to deactivate option", err)
		return
	}

	c.Status(http.StatusNoContent)
}

// fail maps service errors to HTTP statuses
func (h *Handler) fail(c *gin.Context, msg string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrProductNotFound),
		errors.Is(err, service.ErrSessionNotFound),
		errors.Is(err, service.ErrOrderNotFound),
		errors.Is(err, service.ErrOptionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrInvalidQuantity),
		errors.Is(err, service.ErrInvalidOverrides),
		errors.Is(err, service.ErrInvalidImport):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrFinalizeInProgress):
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		h.logger.Error(msg, zap.String("path", c.FullPath()), zap.Error(err))
	}

	c.JSON(status, gin.H{
		"error":   msg,
		"details": err.Error(),
	})
}

func int64Param(c *gin.Context, name, msg string) (int64, bool) {
	v, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": msg,
		})
		return 0, false
	}
	return v, true
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
