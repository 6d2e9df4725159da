// Package idempotency defines the key store behind the Idempotency-Key
// header. A key is acquired before the request runs and settled with the
// response afterwards, so a retried request replays the first response
// instead of running twice.
package idempotency

import (
	"context"
	"time"
)

// Status is the state of a key.
type Status string

const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// DefaultTTL is how long a settled key is replayed.
const DefaultTTL = 24 * time.Hour

// StaleAfter is how long a pending key is held before another request may
// reclaim it. Pending keys outlive a request only if its process died.
const StaleAfter = time.Minute

// Replay is a stored HTTP response.
type Replay struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// Store keeps idempotency keys.
//
// Acquire returns (nil, nil) when the caller now owns key, a Replay when the
// key is settled, IDEMPOTENCY_CONFLICT while another request holds it and a
// mismatch error when key was used for a different operation or body.
type Store interface {
	Acquire(ctx context.Context, key, operation, requestHash string) (*Replay, error)
	// Complete stores a successful response.
	Complete(ctx context.Context, key string, resp Replay) error
	// Fail stores a rejected request's response; it is replayed like a success.
	Fail(ctx context.Context, key string, resp Replay) error
	// Release drops a pending key so the request can be retried.
	Release(ctx context.Context, key string) error
}

// Normalize fills defaults for replays stored without status or type.
func (r Replay) Normalize() Replay {
	if r.StatusCode == 0 {
		r.StatusCode = 200
	}
	if r.ContentType == "" {
		r.ContentType = "application/json; charset=utf-8"
	}
	return r
}
