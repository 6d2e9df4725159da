package handlers

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"

	"pheezes/internal/core/id"
	"pheezes/internal/domain/orders"
	"pheezes/internal/infrastructure/cache"
	"pheezes/internal/infrastructure/http/v1/dto"
)

// OrderHandler serves the order workflow endpoints.
type OrderHandler struct {
	*BaseHandler
	engine *orders.Engine
}

// NewOrderHandler creates a new order handler.
func NewOrderHandler(base *BaseHandler, engine *orders.Engine) *OrderHandler {
	return &OrderHandler{BaseHandler: base, engine: engine}
}

// Item display names come from the catalog, so product edits invalidate too.
var orderTags = []string{cache.TagOrders, cache.TagProducts}

// List handles GET /orders?status=&limit=&offset=.
func (h *OrderHandler) List(c *gin.Context) {
	var q dto.ListOrdersQuery
	if !h.BindQuery(c, &q) {
		return
	}
	filter := q.ToFilter()

	parts := []string{"orders", "list", q.Status, strconv.Itoa(q.Limit), strconv.Itoa(q.Offset)}
	h.View(c, orderTags, parts, func(ctx context.Context) (any, error) {
		return h.engine.List(ctx, filter)
	})
}

// Get handles GET /orders/:id.
func (h *OrderHandler) Get(c *gin.Context) {
	orderID, ok := h.ParseID(c)
	if !ok {
		return
	}
	h.View(c, orderTags, []string{"orders", orderID.String()}, func(ctx context.Context) (any, error) {
		return h.engine.Get(ctx, orderID)
	})
}

// Create handles POST /orders.
func (h *OrderHandler) Create(c *gin.Context) {
	var req dto.CreateOrderRequest
	if !h.BindJSON(c, &req) {
		return
	}
	in, err := req.ToInput()
	if err != nil {
		h.Error(c, err)
		return
	}

	order, err := h.engine.Create(c.Request.Context(), in)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, order)
}

// Process handles POST /orders/:id/process.
func (h *OrderHandler) Process(c *gin.Context) {
	h.transition(c, h.engine.Process)
}

// Dispatch handles POST /orders/:id/dispatch.
func (h *OrderHandler) Dispatch(c *gin.Context) {
	h.transition(c, h.engine.Dispatch)
}

// Return handles POST /orders/:id/return.
func (h *OrderHandler) Return(c *gin.Context) {
	h.transition(c, h.engine.Return)
}

// Delete handles DELETE /orders/:id.
func (h *OrderHandler) Delete(c *gin.Context) {
	orderID, ok := h.ParseID(c)
	if !ok {
		return
	}

	if err := h.engine.Delete(c.Request.Context(), orderID); err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.IDResponse{ID: orderID.String()})
}

// History handles GET /orders/:id/history.
func (h *OrderHandler) History(c *gin.Context) {
	orderID, ok := h.ParseID(c)
	if !ok {
		return
	}

	entries, err := h.engine.History(c.Request.Context(), orderID, h.limitQuery(c))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, entries)
}

func (h *OrderHandler) transition(c *gin.Context, fn func(ctx context.Context, orderID id.ID) (*orders.Order, error)) {
	orderID, ok := h.ParseID(c)
	if !ok {
		return
	}

	order, err := fn(c.Request.Context(), orderID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, order)
}

func (h *OrderHandler) limitQuery(c *gin.Context) int {
	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil {
		return 0
	}
	return limit
}
