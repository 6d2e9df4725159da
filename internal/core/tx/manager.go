// Package tx provides transaction management abstractions.
// Domain services depend on these interfaces; the PostgreSQL and in-memory
// stores provide the implementations.
package tx

import (
	"context"
)

// Manager runs a function atomically.
//
// If fn returns an error, every write made through ctx is rolled back.
// If fn succeeds, the writes are committed. Nested calls reuse the
// transaction already carried by ctx.
type Manager interface {
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
