// Package middleware provides HTTP middleware components.
package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"pheezes/internal/core/apperror"
	"pheezes/internal/infrastructure/http/v1/dto"
	"pheezes/pkg/logger"
)

const contentTypeJSON = "application/json; charset=utf-8"

var internalErrorBody = []byte(`{"success":false,"error":{"code":"INTERNAL_ERROR","message":"internal error"}}`)

// ErrorHandler renders the last error registered by a handler as the failure
// envelope. Internal causes are logged, never returned.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		WriteError(c, c.Errors.Last().Err)
	}
}

// WriteError writes err as the failure envelope.
func WriteError(c *gin.Context, err error) {
	appErr := apperror.Normalize(err)

	if appErr.Code == apperror.CodeInternal {
		logger.Error(c.Request.Context(), "unhandled error", "error", err)
		appErr = appErr.WithDetail("request_id", c.GetString("request_id"))
	} else if appErr.Err != nil {
		logger.Error(c.Request.Context(), "request error",
			"code", appErr.Code,
			"cause", appErr.Err,
		)
	}

	JSON(c, appErr.HTTPStatus, dto.Fail(appErr))
	c.Abort()
}

// JSON writes v as the response body and settles the request's idempotency
// key with it.
func JSON(c *gin.Context, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		logger.Error(c.Request.Context(), "encode response", "error", err)
		status, body = http.StatusInternalServerError, internalErrorBody
	}
	RecordResponse(c, status, contentTypeJSON, body)
	c.Data(status, contentTypeJSON, body)
}
