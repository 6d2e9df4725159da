// Package cash keeps the business cash book and derives balances and the
// per-shareholder equity split from it.
package cash

import (
	"strings"
	"time"

	"pheezes/internal/core/apperror"
	"pheezes/internal/core/id"
	"pheezes/internal/core/types"
)

// Type is the direction of a transaction.
type Type string

const (
	TypeIncome  Type = "INCOME"
	TypeExpense Type = "EXPENSE"
)

// Account is where the money sits.
type Account string

const (
	AccountBkash Account = "BKASH"
	AccountMisc  Account = "MISC"
)

// Transaction is one cash book entry. Amount is always positive; Type gives
// the sign.
type Transaction struct {
	ID          id.ID       `db:"id" json:"id"`
	Amount      types.Money `db:"amount" json:"amount"`
	Description string      `db:"description" json:"description"`
	Type        Type        `db:"type" json:"type"`
	Account     Account     `db:"account" json:"account"`
	Date        time.Time   `db:"date" json:"date"`
}

// Signed returns the amount with expenses negated.
func (t Transaction) Signed() types.Money {
	if t.Type == TypeExpense {
		return t.Amount.Neg()
	}
	return t.Amount
}

// Input carries the editable fields of a transaction.
type Input struct {
	Amount      types.Money
	Description string
	Type        Type
	Account     Account
	// Date defaults to now on create and to the stored date on update.
	Date *time.Time
}

// Validate normalizes and checks the input.
func (in *Input) Validate() error {
	if !in.Amount.IsPositive() {
		return apperror.NewFieldValidation("amount", "amount must be positive")
	}
	if !types.HasMoneyScale(in.Amount) {
		return apperror.NewFieldValidation("amount", "amount must have at most 2 decimal places")
	}

	in.Description = strings.TrimSpace(in.Description)
	if in.Description == "" {
		return apperror.NewFieldValidation("description", "description is required")
	}

	switch in.Type {
	case TypeIncome, TypeExpense:
	default:
		return apperror.NewFieldValidation("type", "type must be INCOME or EXPENSE")
	}

	switch in.Account {
	case "":
		in.Account = AccountMisc
	case AccountBkash, AccountMisc:
	default:
		return apperror.NewFieldValidation("account", "account must be BKASH or MISC")
	}

	return nil
}

// Config holds the equity parameters of the business.
type Config struct {
	InitialCapital   types.Money
	ShareholderCount int
}

// DefaultConfig is 8000 of initial capital split between four shareholders.
func DefaultConfig() Config {
	return Config{
		InitialCapital:   types.NewMoneyFromInt(8000),
		ShareholderCount: 4,
	}
}

// Validate checks the config.
func (c Config) Validate() error {
	if c.ShareholderCount <= 0 {
		return apperror.NewFieldValidation("shareholderCount", "shareholder count must be positive")
	}
	if types.IsNegative(c.InitialCapital) {
		return apperror.NewFieldValidation("initialCapital", "initial capital must not be negative")
	}
	return nil
}

// Summary is the derived state of the cash book.
type Summary struct {
	BkashBalance     types.Money `json:"bkashBalance"`
	MiscBalance      types.Money `json:"miscBalance"`
	GrandTotal       types.Money `json:"grandTotal"`
	SharePerPerson   types.Money `json:"sharePerPerson"`
	InitialCapital   types.Money `json:"initialCapital"`
	ShareholderCount int         `json:"shareholderCount"`
}

// Summarize derives balances from the transactions.
// The MISC account starts with the initial capital.
func Summarize(txs []Transaction, cfg Config) Summary {
	bkash := types.Zero()
	misc := cfg.InitialCapital

	for _, t := range txs {
		switch t.Account {
		case AccountBkash:
			bkash = bkash.Add(t.Signed())
		default:
			misc = misc.Add(t.Signed())
		}
	}

	grand := bkash.Add(misc)
	share := types.Zero()
	if cfg.ShareholderCount > 0 {
		share = grand.Div(types.NewMoneyFromInt(int64(cfg.ShareholderCount)))
	}

	return Summary{
		BkashBalance:     types.Round(bkash),
		MiscBalance:      types.Round(misc),
		GrandTotal:       types.Round(grand),
		SharePerPerson:   types.Round(share),
		InitialCapital:   cfg.InitialCapital,
		ShareholderCount: cfg.ShareholderCount,
	}
}
