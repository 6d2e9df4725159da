package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"pheezes/internal/domain/cash"
)

// TransactionRequest is the body for creating or updating a cash transaction.
type TransactionRequest struct {
	Amount      decimal.Decimal `json:"amount" binding:"dgte0,dscale"`
	Description string          `json:"description" binding:"required"`
	Type        string          `json:"type" binding:"required,oneof=INCOME EXPENSE"`
	Account     string          `json:"account" binding:"omitempty,oneof=BKASH MISC"`
	Date        *time.Time      `json:"date"`
}

// ToInput converts the request to the cash input.
func (r *TransactionRequest) ToInput() cash.Input {
	return cash.Input{
		Amount:      r.Amount,
		Description: r.Description,
		Type:        cash.Type(r.Type),
		Account:     cash.Account(r.Account),
		Date:        r.Date,
	}
}
