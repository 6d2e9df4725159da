package catalog

import (
	"context"

	"pheezes/internal/core/id"
)

// Repository persists products together with their variations.
type Repository interface {
	// Create stores a product and all of its variations.
	Create(ctx context.Context, p *Product) error

	// GetByID returns a product with variations or NOT_FOUND.
	GetByID(ctx context.Context, productID id.ID) (*Product, error)

	// List returns all products newest first, with variations.
	List(ctx context.Context) ([]*Product, error)

	// Update saves name and description.
	Update(ctx context.Context, p *Product) error

	// Delete removes a product and its variations.
	Delete(ctx context.Context, productID id.ID) error

	// HasOrderReferences reports whether any order item points at one of
	// the product's variations.
	HasOrderReferences(ctx context.Context, productID id.ID) (bool, error)
}
