// Package handlers provides HTTP request handlers.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"pheezes/internal/core/apperror"
	"pheezes/internal/core/id"
	"pheezes/internal/infrastructure/cache"
	"pheezes/internal/infrastructure/http/v1/dto"
	"pheezes/internal/infrastructure/http/v1/middleware"
)

// BaseHandler provides common handler utilities.
type BaseHandler struct {
	views *cache.Cache
}

// NewBaseHandler creates a new base handler. views may be nil.
func NewBaseHandler(views *cache.Cache) *BaseHandler {
	return &BaseHandler{views: views}
}

// BindJSON binds and validates the JSON request body.
func (h *BaseHandler) BindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		h.Error(c, apperror.NewValidation("invalid request body").WithDetail("error", err.Error()))
		return false
	}
	return true
}

// BindQuery binds and validates query parameters.
func (h *BaseHandler) BindQuery(c *gin.Context, obj any) bool {
	if err := c.ShouldBindQuery(obj); err != nil {
		h.Error(c, apperror.NewValidation("invalid query parameters").WithDetail("error", err.Error()))
		return false
	}
	return true
}

// ParseID parses the :id path parameter.
func (h *BaseHandler) ParseID(c *gin.Context) (id.ID, bool) {
	parsed, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewFieldValidation("id", "invalid id format"))
		return id.Nil(), false
	}
	return parsed, true
}

// Error registers err on the gin context and aborts the request.
// The response is produced by middleware.ErrorHandler.
func (h *BaseHandler) Error(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// OK sends 200 with data.
func (h *BaseHandler) OK(c *gin.Context, data any) {
	middleware.JSON(c, http.StatusOK, dto.OK(data))
}

// Created sends 201 with data.
func (h *BaseHandler) Created(c *gin.Context, data any) {
	middleware.JSON(c, http.StatusCreated, dto.OK(data))
}

// View serves a read through the view cache, keyed by parts and the versions
// of tags.
func (h *BaseHandler) View(c *gin.Context, tags []string, parts []string, load func(ctx context.Context) (any, error)) {
	raw, err := h.views.View(c.Request.Context(), tags, parts, load)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, raw)
}
