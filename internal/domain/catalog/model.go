// Package catalog manages products and their sellable variations.
package catalog

import (
	"strings"
	"time"

	"pheezes/internal/core/apperror"
	"pheezes/internal/core/id"
	"pheezes/internal/core/types"
)

// Product groups variations under a common name.
type Product struct {
	ID          id.ID     `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description *string   `db:"description" json:"description,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`

	Variations []Variation `db:"-" json:"variations"`
}

// Variation is a sellable unit (size, color, ...) with its own stock and price.
type Variation struct {
	ID        id.ID       `db:"id" json:"id"`
	ProductID id.ID       `db:"product_id" json:"productId"`
	Name      string      `db:"name" json:"name"`
	Quantity  int         `db:"quantity" json:"quantity"`
	Price     types.Money `db:"price" json:"price"`
}

// VariationInput describes a variation to create.
type VariationInput struct {
	Name     string
	Quantity int
	Price    types.Money
}

// CreateInput describes a product to create.
type CreateInput struct {
	Name        string
	Description *string
	Variations  []VariationInput
}

// Validate normalizes and checks the input.
func (in *CreateInput) Validate() error {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return apperror.NewFieldValidation("name", "product name is required")
	}

	for i := range in.Variations {
		v := &in.Variations[i]
		v.Name = strings.TrimSpace(v.Name)
		if v.Name == "" {
			return apperror.NewFieldValidation("variations", "variation name is required").
				WithDetail("index", i)
		}
		if !types.ValidQuantity(v.Quantity) {
			return apperror.NewFieldValidation("variations", "quantity must be between 0 and 2147483647").
				WithDetail("index", i)
		}
		if types.IsNegative(v.Price) {
			return apperror.NewFieldValidation("variations", "price must not be negative").
				WithDetail("index", i)
		}
		if !types.HasMoneyScale(v.Price) {
			return apperror.NewFieldValidation("variations", "price must have at most 2 decimal places").
				WithDetail("index", i)
		}
	}

	return nil
}

// UpdateInput carries a partial product update. Nil fields are left as is.
type UpdateInput struct {
	Name        *string
	Description *string
}

// Apply copies the set fields onto p.
func (in UpdateInput) Apply(p *Product) error {
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return apperror.NewFieldValidation("name", "product name is required")
		}
		p.Name = name
	}
	if in.Description != nil {
		desc := strings.TrimSpace(*in.Description)
		if desc == "" {
			p.Description = nil
		} else {
			p.Description = &desc
		}
	}
	return nil
}
