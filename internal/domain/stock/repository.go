// Package stock provides the stock ledger: the only code allowed to change a
// variation's quantity. Every change is journaled as a Movement.
package stock

import (
	"context"
	"time"

	"pheezes/internal/core/id"
	"pheezes/internal/core/types"
)

// Reason explains why a movement happened.
type Reason string

const (
	ReasonOrderCreated  Reason = "ORDER_CREATED"
	ReasonOrderReturned Reason = "ORDER_RETURNED"
	ReasonOrderDeleted  Reason = "ORDER_DELETED"
	ReasonManualSet     Reason = "MANUAL_SET"
)

// Level is a variation's stock row as seen under lock.
type Level struct {
	VariationID   id.ID       `db:"variation_id"`
	ProductID     id.ID       `db:"product_id"`
	ProductName   string      `db:"product_name"`
	VariationName string      `db:"variation_name"`
	Quantity      int         `db:"quantity"`
	Price         types.Money `db:"price"`
}

// Movement is one journal line of the stock ledger.
type Movement struct {
	ID          id.ID     `db:"id" json:"id"`
	VariationID id.ID     `db:"variation_id" json:"variationId"`
	Delta       int       `db:"delta" json:"delta"`
	Balance     int       `db:"balance" json:"balance"`
	Reason      Reason    `db:"reason" json:"reason"`
	OrderID     *id.ID    `db:"order_id" json:"orderId,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
}

// Ref ties a movement to its cause.
type Ref struct {
	Reason  Reason
	OrderID *id.ID
}

// Writer is the stock side of a unit of work. Implementations must only be
// used inside the transaction that handed them out.
type Writer interface {
	// GetForUpdate returns the variation's stock row and locks it until the
	// enclosing transaction ends. Returns NOT_FOUND for unknown variations.
	GetForUpdate(ctx context.Context, variationID id.ID) (Level, error)

	// SetQuantity overwrites the stored quantity.
	SetQuantity(ctx context.Context, variationID id.ID, quantity int) error

	// AppendMovement journals a movement.
	AppendMovement(ctx context.Context, m Movement) error
}

// Reader serves movement history.
type Reader interface {
	// ListMovements returns the newest movements of a variation first.
	ListMovements(ctx context.Context, variationID id.ID, limit int) ([]Movement, error)
}
