package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"pheezes/internal/domain/catalog"
	"pheezes/internal/domain/stock"
	"pheezes/internal/infrastructure/cache"
	"pheezes/internal/infrastructure/http/v1/dto"
)

// ProductHandler serves the catalog and stock endpoints.
type ProductHandler struct {
	*BaseHandler
	service *catalog.Service
}

// NewProductHandler creates a new product handler.
func NewProductHandler(base *BaseHandler, service *catalog.Service) *ProductHandler {
	return &ProductHandler{BaseHandler: base, service: service}
}

var productTags = []string{cache.TagProducts}

// List handles GET /products.
func (h *ProductHandler) List(c *gin.Context) {
	h.View(c, productTags, []string{"products"}, func(ctx context.Context) (any, error) {
		return h.service.ListProducts(ctx)
	})
}

// Get handles GET /products/:id.
func (h *ProductHandler) Get(c *gin.Context) {
	productID, ok := h.ParseID(c)
	if !ok {
		return
	}
	h.View(c, productTags, []string{"products", productID.String()}, func(ctx context.Context) (any, error) {
		return h.service.GetProduct(ctx, productID)
	})
}

// Create handles POST /products.
func (h *ProductHandler) Create(c *gin.Context) {
	var req dto.CreateProductRequest
	if !h.BindJSON(c, &req) {
		return
	}

	product, err := h.service.CreateProduct(c.Request.Context(), req.ToInput())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, product)
}

// Update handles PATCH /products/:id.
func (h *ProductHandler) Update(c *gin.Context) {
	productID, ok := h.ParseID(c)
	if !ok {
		return
	}
	var req dto.UpdateProductRequest
	if !h.BindJSON(c, &req) {
		return
	}

	product, err := h.service.UpdateProduct(c.Request.Context(), productID, req.ToInput())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, product)
}

// Delete handles DELETE /products/:id.
func (h *ProductHandler) Delete(c *gin.Context) {
	productID, ok := h.ParseID(c)
	if !ok {
		return
	}

	if err := h.service.DeleteProduct(c.Request.Context(), productID); err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.IDResponse{ID: productID.String()})
}

// SetStock handles PUT /variations/:id/stock.
func (h *ProductHandler) SetStock(c *gin.Context) {
	variationID, ok := h.ParseID(c)
	if !ok {
		return
	}
	var req dto.SetStockRequest
	if !h.BindJSON(c, &req) {
		return
	}

	variation, err := h.service.UpdateVariationStock(c.Request.Context(), variationID, *req.Quantity)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, variation)
}

// Movements handles GET /variations/:id/movements.
func (h *ProductHandler) Movements(c *gin.Context) {
	variationID, ok := h.ParseID(c)
	if !ok {
		return
	}
	var q struct {
		Limit int `form:"limit" binding:"gte=0,lte=1000"`
	}
	if !h.BindQuery(c, &q) {
		return
	}
	if q.Limit == 0 {
		q.Limit = stock.DefaultHistoryLimit
	}

	movements, err := h.service.StockHistory(c.Request.Context(), variationID, q.Limit)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, movements)
}
