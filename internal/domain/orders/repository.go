package orders

import (
	"context"
	"time"

	"pheezes/internal/core/id"
	"pheezes/internal/domain/stock"
)

// Writer is the order side of a unit of work.
type Writer interface {
	// GetForUpdate loads an order with its items and locks the order row.
	// Returns NOT_FOUND for unknown ids.
	GetForUpdate(ctx context.Context, orderID id.ID) (*Order, error)

	// Insert stores a new order together with its items.
	Insert(ctx context.Context, order *Order) error

	// UpdateStatus changes the status of an existing order.
	UpdateStatus(ctx context.Context, orderID id.ID, status Status, updatedAt time.Time) error

	// Delete removes an order and its items.
	Delete(ctx context.Context, orderID id.ID) error
}

// Reader serves order queries outside of a unit of work.
type Reader interface {
	GetByID(ctx context.Context, orderID id.ID) (*Order, error)
	List(ctx context.Context, filter ListFilter) ([]*Order, error)
}

// Tx is a unit of work spanning orders and stock.
// Everything done through it commits or rolls back together.
type Tx interface {
	Orders() Writer
	Stock() stock.Writer
}

// Store opens units of work.
type Store interface {
	Reader

	// WithTx runs fn in one transaction. If fn returns an error every
	// change made through tx is rolled back.
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Numberer issues human-readable order numbers.
// It is called inside the unit of work so a rolled back order does not
// consume a number.
type Numberer interface {
	Next(ctx context.Context) (string, error)
}

// AuditEvent describes one lifecycle change of an order.
type AuditEvent struct {
	OrderID id.ID
	Action  string
	Changes map[string]any
}

// AuditEntry is a recorded lifecycle change.
type AuditEntry struct {
	Action    string         `json:"action"`
	Changes   map[string]any `json:"changes"`
	CreatedAt time.Time      `json:"createdAt"`
}

// Auditor records lifecycle changes. Record is called inside the unit of work.
type Auditor interface {
	Record(ctx context.Context, event AuditEvent) error
	// History returns the newest entries of an order first.
	History(ctx context.Context, orderID id.ID, limit int) ([]AuditEntry, error)
}
