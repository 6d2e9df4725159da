package cash

import (
	"context"

	"pheezes/internal/core/id"
)

// Repository persists cash transactions.
type Repository interface {
	Create(ctx context.Context, t *Transaction) error
	GetByID(ctx context.Context, txID id.ID) (*Transaction, error)
	// Update overwrites a stored transaction or returns NOT_FOUND.
	Update(ctx context.Context, t *Transaction) error
	// Delete removes a transaction or returns NOT_FOUND.
	Delete(ctx context.Context, txID id.ID) error
	// List returns all transactions, newest date first.
	List(ctx context.Context) ([]Transaction, error)
}
