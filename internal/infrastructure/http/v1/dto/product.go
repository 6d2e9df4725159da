package dto

import (
	"github.com/shopspring/decimal"

	"pheezes/internal/domain/catalog"
)

// VariationRequest is one variation of a new product.
type VariationRequest struct {
	Name     string          `json:"name" binding:"required"`
	Quantity int             `json:"quantity" binding:"gte=0,lte=2147483647"`
	Price    decimal.Decimal `json:"price" binding:"dgte0,dscale"`
}

// CreateProductRequest is the request body for creating a product.
type CreateProductRequest struct {
	Name        string             `json:"name" binding:"required"`
	Description *string            `json:"description"`
	Variations  []VariationRequest `json:"variations" binding:"dive"`
}

// ToInput converts the request to the catalog input.
func (r *CreateProductRequest) ToInput() catalog.CreateInput {
	in := catalog.CreateInput{
		Name:        r.Name,
		Description: r.Description,
		Variations:  make([]catalog.VariationInput, 0, len(r.Variations)),
	}
	for _, v := range r.Variations {
		in.Variations = append(in.Variations, catalog.VariationInput{
			Name:     v.Name,
			Quantity: v.Quantity,
			Price:    v.Price,
		})
	}
	return in
}

// UpdateProductRequest is a partial product update.
type UpdateProductRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

// ToInput converts the request to the catalog input.
func (r *UpdateProductRequest) ToInput() catalog.UpdateInput {
	return catalog.UpdateInput{Name: r.Name, Description: r.Description}
}

// SetStockRequest sets the absolute stock of a variation.
type SetStockRequest struct {
	Quantity *int `json:"quantity" binding:"required,gte=0,lte=2147483647"`
}
