package aggregate

import (
	"errors"

	"github.com/shopspring/decimal"
)

// ErrDivisionUndefined is returned when the current price is zero.
var ErrDivisionUndefined = errors.New("change undefined for zero current price")

var hundred = decimal.NewFromInt(100)

// PercentChange returns (current - historical) / current * 100.
//
// The result is normalized by the current price, not by the historical
// baseline; existing users compare against numbers computed this way.
func PercentChange(current, historical decimal.Decimal) (decimal.Decimal, error) {
	if current.IsZero() {
		return decimal.Zero, ErrDivisionUndefined
	}
	return current.Sub(historical).Div(current).Mul(hundred), nil
}
