package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"pheezes/internal/core/apperror"
	"pheezes/internal/core/idempotency"
	"pheezes/pkg/logger"
)

// HeaderIdempotencyKey carries the client-chosen idempotency key.
const HeaderIdempotencyKey = "Idempotency-Key"

const (
	maxIdempotencyBodyBytes = 1 << 20 // 1 MiB
	maxIdempotencyKeyLength = 255

	ctxIdempotencyKey   = "idempotency_key"
	ctxIdempotencyStore = "idempotency_store"
)

// Idempotency guards the route it is attached to: a request repeating a
// settled key gets the stored response instead of running again. Requests
// without the header pass through. A nil store disables the middleware.
func Idempotency(store idempotency.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(HeaderIdempotencyKey)
		if store == nil || key == "" {
			c.Next()
			return
		}
		if len(key) > maxIdempotencyKeyLength {
			_ = c.Error(apperror.NewFieldValidation(HeaderIdempotencyKey, "idempotency key is too long").
				WithDetail("max_length", maxIdempotencyKeyLength))
			c.Abort()
			return
		}

		limited := io.LimitReader(c.Request.Body, maxIdempotencyBodyBytes+1)
		body, err := io.ReadAll(limited)
		if err != nil {
			_ = c.Error(apperror.NewValidation("cannot read request body").WithCause(err))
			c.Abort()
			return
		}
		if len(body) > maxIdempotencyBodyBytes {
			appErr := apperror.NewValidation("request body too large for idempotency")
			appErr.HTTPStatus = http.StatusRequestEntityTooLarge
			_ = c.Error(appErr.WithDetail("max_bytes", maxIdempotencyBodyBytes))
			c.Abort()
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))
		hash := sha256.Sum256(body)
		requestHash := hex.EncodeToString(hash[:])

		operation := c.Request.Method + " " + c.FullPath()

		replay, err := store.Acquire(c.Request.Context(), key, operation, requestHash)
		if err != nil {
			_ = c.Error(err)
			c.Abort()
			return
		}
		if replay != nil {
			logger.Debug(c.Request.Context(), "idempotent replay", "key", key, "operation", operation)
			c.Header("Idempotent-Replayed", "true")
			c.Data(replay.StatusCode, replay.ContentType, replay.Body)
			c.Abort()
			return
		}

		c.Set(ctxIdempotencyKey, key)
		c.Set(ctxIdempotencyStore, store)

		c.Next()
	}
}

// RecordResponse settles the idempotency key of the request, if any, with the
// response about to be written. 2xx and 4xx responses are stored for replay;
// 5xx responses release the key so the client can retry.
func RecordResponse(c *gin.Context, status int, contentType string, body []byte) {
	key := c.GetString(ctxIdempotencyKey)
	if key == "" {
		return
	}
	stored, ok := c.Get(ctxIdempotencyStore)
	if !ok {
		return
	}
	store := stored.(idempotency.Store)
	ctx := c.Request.Context()
	resp := idempotency.Replay{StatusCode: status, ContentType: contentType, Body: body}

	var err error
	switch {
	case status >= http.StatusInternalServerError:
		err = store.Release(ctx, key)
	case status >= http.StatusBadRequest:
		err = store.Fail(ctx, key, resp)
	default:
		err = store.Complete(ctx, key, resp)
	}
	if err != nil {
		logger.Warn(ctx, "idempotency key not settled", "key", key, "status", status, "error", err)
	}
}
