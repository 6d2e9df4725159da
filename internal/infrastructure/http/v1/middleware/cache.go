package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"pheezes/internal/infrastructure/cache"
)

// InvalidateOnWrite bumps tags after a successful non-GET request.
func InvalidateOnWrite(views *cache.Cache, tags ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			return
		}
		if len(c.Errors) > 0 || c.Writer.Status() >= http.StatusBadRequest {
			return
		}
		views.Invalidate(c.Request.Context(), tags...)
	}
}
