// Package dto provides Data Transfer Objects for API requests/responses.
package dto

import (
	"reflect"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"pheezes/internal/core/apperror"
	"pheezes/internal/core/types"
)

// Response is the envelope of every API response.
type Response struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorBody `json:"error,omitempty"`
}

// ErrorBody is the error part of a failed response.
type ErrorBody struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// OK wraps data in a success envelope.
func OK(data any) Response {
	return Response{Success: true, Data: data}
}

// Fail wraps err in a failure envelope.
func Fail(err *apperror.AppError) Response {
	return Response{
		Success: false,
		Error: &ErrorBody{
			Code:    err.Code,
			Message: err.Message,
			Details: err.Details,
		},
	}
}

// IDResponse is returned by deletes.
type IDResponse struct {
	ID string `json:"id"`
}

// RegisterValidators installs the custom binding rules on gin's validator:
//
//	dgte0  - decimal greater than or equal to zero
//	dscale - decimal with at most types.MoneyScale fractional digits
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}
	return registerDecimal(v)
}

func registerDecimal(v *validator.Validate) error {
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.String()
		}
		return nil
	}, decimal.Decimal{})

	if err := v.RegisterValidation("dgte0", func(fl validator.FieldLevel) bool {
		d, ok := decimalField(fl)
		return ok && !d.IsNegative()
	}); err != nil {
		return err
	}

	return v.RegisterValidation("dscale", func(fl validator.FieldLevel) bool {
		d, ok := decimalField(fl)
		return ok && types.HasMoneyScale(d)
	})
}

func decimalField(fl validator.FieldLevel) (decimal.Decimal, bool) {
	s, ok := fl.Field().Interface().(string)
	if !ok {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(s)
	return d, err == nil
}
