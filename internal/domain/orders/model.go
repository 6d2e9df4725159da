// Package orders implements the order workflow engine: order creation with
// stock reservation, status transitions and stock restoration.
package orders

import (
	"strings"
	"time"

	"pheezes/internal/core/apperror"
	"pheezes/internal/core/id"
	"pheezes/internal/core/types"
)

// Status is the lifecycle state of an order.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusDispatched Status = "DISPATCHED"
	StatusReturned   Status = "RETURNED"
)

// transitions lists the allowed target states per source state.
// RETURNED is terminal.
var transitions = map[Status][]Status{
	StatusPending:    {StatusProcessing, StatusReturned},
	StatusProcessing: {StatusDispatched, StatusReturned},
	StatusDispatched: {StatusReturned},
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusDispatched, StatusReturned:
		return true
	}
	return false
}

// CanTransitionTo reports whether moving from s to next is allowed.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// HoldsStock reports whether an order in this state still has its items
// taken out of stock.
func (s Status) HoldsStock() bool {
	return s != StatusReturned
}

// Order is a customer order.
type Order struct {
	ID              id.ID       `db:"id" json:"id"`
	Number          string      `db:"number" json:"number"`
	CustomerName    string      `db:"customer_name" json:"customerName"`
	CustomerContact *string     `db:"customer_contact" json:"customerContact,omitempty"`
	CustomerAddress *string     `db:"customer_address" json:"customerAddress,omitempty"`
	Details         *string     `db:"details" json:"details,omitempty"`
	Status          Status      `db:"status" json:"status"`
	TotalAmount     types.Money `db:"total_amount" json:"totalAmount"`
	Advance         types.Money `db:"advance" json:"advance"`
	CreatedAt       time.Time   `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time   `db:"updated_at" json:"updatedAt"`

	Items []Item `db:"-" json:"items"`
}

// Due is the amount still owed by the customer.
func (o *Order) Due() types.Money {
	return o.TotalAmount.Sub(o.Advance)
}

// IsManual reports whether the order has no line items.
func (o *Order) IsManual() bool {
	return len(o.Items) == 0
}

// Item is an order line. Price is a snapshot taken at order time.
type Item struct {
	ID                 id.ID       `db:"id" json:"id"`
	OrderID            id.ID       `db:"order_id" json:"orderId"`
	ProductVariationID id.ID       `db:"product_variation_id" json:"productVariationId"`
	Quantity           int         `db:"quantity" json:"quantity"`
	Price              types.Money `db:"price" json:"price"`
	ProductName        string      `db:"product_name" json:"productName"`
	VariationName      string      `db:"variation_name" json:"variationName"`
}

// Amount is price times quantity.
func (i Item) Amount() types.Money {
	return types.LineTotal(i.Price, i.Quantity)
}

// ItemInput is a requested order line.
type ItemInput struct {
	ProductVariationID id.ID
	Quantity           int
	// Price overrides the variation's current price when set.
	Price *types.Money
}

// CreateInput carries everything needed to place an order.
type CreateInput struct {
	CustomerName    string
	CustomerContact *string
	CustomerAddress *string
	Details         *string
	Advance         types.Money
	// TotalAmount is only used for orders without items.
	TotalAmount *types.Money
	Items       []ItemInput
}

// Validate checks the input before any stock is touched.
func (in *CreateInput) Validate() error {
	in.CustomerName = strings.TrimSpace(in.CustomerName)
	if in.CustomerName == "" {
		return apperror.NewFieldValidation("customerName", "customer name is required")
	}

	if types.IsNegative(in.Advance) {
		return apperror.NewFieldValidation("advance", "advance must not be negative")
	}
	if !types.HasMoneyScale(in.Advance) {
		return apperror.NewFieldValidation("advance", "advance must have at most 2 decimal places")
	}

	if len(in.Items) == 0 {
		if in.TotalAmount == nil {
			return apperror.NewFieldValidation("totalAmount", "total amount is required for orders without items")
		}
		if types.IsNegative(*in.TotalAmount) {
			return apperror.NewFieldValidation("totalAmount", "total amount must not be negative")
		}
		if !types.HasMoneyScale(*in.TotalAmount) {
			return apperror.NewFieldValidation("totalAmount", "total amount must have at most 2 decimal places")
		}
		return nil
	}

	for i, item := range in.Items {
		if id.IsNil(item.ProductVariationID) {
			return apperror.NewFieldValidation("items", "product variation is required").
				WithDetail("index", i)
		}
		if item.Quantity <= 0 || item.Quantity > types.MaxQuantity {
			return apperror.NewFieldValidation("items", "quantity must be between 1 and 2147483647").
				WithDetail("index", i)
		}
		if item.Price == nil {
			continue
		}
		if types.IsNegative(*item.Price) {
			return apperror.NewFieldValidation("items", "price must not be negative").
				WithDetail("index", i)
		}
		if !types.HasMoneyScale(*item.Price) {
			return apperror.NewFieldValidation("items", "price must have at most 2 decimal places").
				WithDetail("index", i)
		}
	}

	return nil
}

// ListFilter narrows order listings.
type ListFilter struct {
	Status *Status
	Limit  int
	Offset int
}

// DefaultListLimit caps listings without an explicit limit.
const DefaultListLimit = 50

// Normalize applies defaults and bounds.
func (f ListFilter) Normalize() ListFilter {
	if f.Limit <= 0 || f.Limit > 500 {
		f.Limit = DefaultListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}
