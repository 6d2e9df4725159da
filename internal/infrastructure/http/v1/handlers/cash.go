package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"pheezes/internal/domain/cash"
	"pheezes/internal/infrastructure/cache"
	"pheezes/internal/infrastructure/http/v1/dto"
)

// CashHandler serves the cash ledger endpoints.
type CashHandler struct {
	*BaseHandler
	service *cash.Service
}

// NewCashHandler creates a new cash handler.
func NewCashHandler(base *BaseHandler, service *cash.Service) *CashHandler {
	return &CashHandler{BaseHandler: base, service: service}
}

var cashTags = []string{cache.TagCash}

// List handles GET /cash/transactions.
func (h *CashHandler) List(c *gin.Context) {
	h.View(c, cashTags, []string{"cash", "transactions"}, func(ctx context.Context) (any, error) {
		return h.service.List(ctx)
	})
}

// Summary handles GET /cash/summary.
func (h *CashHandler) Summary(c *gin.Context) {
	h.View(c, cashTags, []string{"cash", "summary"}, func(ctx context.Context) (any, error) {
		return h.service.Summary(ctx)
	})
}

// Create handles POST /cash/transactions.
func (h *CashHandler) Create(c *gin.Context) {
	var req dto.TransactionRequest
	if !h.BindJSON(c, &req) {
		return
	}

	t, err := h.service.Create(c.Request.Context(), req.ToInput())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, t)
}

// Update handles PUT /cash/transactions/:id.
func (h *CashHandler) Update(c *gin.Context) {
	txID, ok := h.ParseID(c)
	if !ok {
		return
	}
	var req dto.TransactionRequest
	if !h.BindJSON(c, &req) {
		return
	}

	t, err := h.service.Update(c.Request.Context(), txID, req.ToInput())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, t)
}

// Delete handles DELETE /cash/transactions/:id.
func (h *CashHandler) Delete(c *gin.Context) {
	txID, ok := h.ParseID(c)
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), txID); err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.IDResponse{ID: txID.String()})
}
