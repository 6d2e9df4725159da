package dto

import (
	"github.com/shopspring/decimal"

	"pheezes/internal/core/apperror"
	"pheezes/internal/core/id"
	"pheezes/internal/domain/orders"
)

// OrderItemRequest is one requested order line.
type OrderItemRequest struct {
	ProductVariationID string           `json:"productVariationId" binding:"required,uuid"`
	Quantity           int              `json:"quantity" binding:"required,gt=0,lte=2147483647"`
	Price              *decimal.Decimal `json:"price" binding:"omitempty,dgte0,dscale"`
}

// CreateOrderRequest is the request body for placing an order.
type CreateOrderRequest struct {
	CustomerName    string             `json:"customerName" binding:"required"`
	CustomerContact *string            `json:"customerContact"`
	CustomerAddress *string            `json:"customerAddress"`
	Details         *string            `json:"details"`
	Advance         decimal.Decimal    `json:"advance" binding:"dgte0,dscale"`
	TotalAmount     *decimal.Decimal   `json:"totalAmount" binding:"omitempty,dgte0,dscale"`
	Items           []OrderItemRequest `json:"items" binding:"dive"`
}

// ToInput converts the request to the order input.
func (r *CreateOrderRequest) ToInput() (orders.CreateInput, error) {
	in := orders.CreateInput{
		CustomerName:    r.CustomerName,
		CustomerContact: r.CustomerContact,
		CustomerAddress: r.CustomerAddress,
		Details:         r.Details,
		Advance:         r.Advance,
		TotalAmount:     r.TotalAmount,
		Items:           make([]orders.ItemInput, 0, len(r.Items)),
	}
	for i, it := range r.Items {
		vid, err := id.Parse(it.ProductVariationID)
		if err != nil {
			return orders.CreateInput{}, apperror.NewFieldValidation("items", "invalid productVariationId").
				WithDetail("index", i)
		}
		in.Items = append(in.Items, orders.ItemInput{
			ProductVariationID: vid,
			Quantity:           it.Quantity,
			Price:              it.Price,
		})
	}
	return in, nil
}

// ListOrdersQuery holds the order list query parameters.
type ListOrdersQuery struct {
	Status string `form:"status"`
	Limit  int    `form:"limit" binding:"gte=0,lte=500"`
	Offset int    `form:"offset" binding:"gte=0"`
}

// ToFilter converts the query to the order filter.
func (q *ListOrdersQuery) ToFilter() orders.ListFilter {
	f := orders.ListFilter{Limit: q.Limit, Offset: q.Offset}
	if q.Status != "" {
		s := orders.Status(q.Status)
		f.Status = &s
	}
	return f
}
