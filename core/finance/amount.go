package finance

import (
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/xerrors"
)

// amountScale is the number of decimal places of the smallest currency unit.
// Quantities are counts of that unit (e.g. cents for USD).
const amountScale = 2

// Amount is a quantity of a currency, counted in the smallest unit of the
// currency. It is a value type: two amounts are the same when both the
// quantity and the currency match.
type Amount struct {
	Quantity int64
	Currency string
}

// NewAmount creates an amount from a quantity of the smallest currency unit.
func NewAmount(quantity int64, currency string) Amount {
	return Amount{Quantity: quantity, Currency: currency}
}

// Zero returns the zero amount of the given currency.
func Zero(currency string) Amount {
	return Amount{Currency: currency}
}

// AmountFromDecimal converts a decimal number of currency units into an
// amount. It returns an error when the value does not fit the smallest unit
// exactly, so that reference data can never be silently rounded.
func AmountFromDecimal(value decimal.Decimal, currency string) (Amount, error) {
	scaled := value.Shift(amountScale)
	if !scaled.IsInteger() {
		return Amount{}, xerrors.Errorf(
			"value '%s' has more than %d decimal places", value, amountScale)
	}

	return Amount{Quantity: scaled.IntPart(), Currency: currency}, nil
}

// SameCurrency returns true when the other amount is denominated in the same
// currency.
func (a Amount) SameCurrency(other Amount) bool {
	return a.Currency == other.Currency
}

// IsZero returns true for a zero quantity.
func (a Amount) IsZero() bool {
	return a.Quantity == 0
}

// IsPositive returns true for a strictly positive quantity.
func (a Amount) IsPositive() bool {
	return a.Quantity > 0
}

// Add returns the sum of both amounts. The amounts must share the currency,
// which the contract rules check before doing any arithmetic.
func (a Amount) Add(other Amount) Amount {
	a.requireSameCurrency(other)

	return Amount{Quantity: a.Quantity + other.Quantity, Currency: a.Currency}
}

// Sub returns the difference of both amounts.
func (a Amount) Sub(other Amount) Amount {
	a.requireSameCurrency(other)

	return Amount{Quantity: a.Quantity - other.Quantity, Currency: a.Currency}
}

// Cmp returns -1, 0 or 1 when the amount is smaller, equal or bigger than
// the other one.
func (a Amount) Cmp(other Amount) int {
	a.requireSameCurrency(other)

	switch {
	case a.Quantity < other.Quantity:
		return -1
	case a.Quantity > other.Quantity:
		return 1
	default:
		return 0
	}
}

// AsUnits returns the amount as a floating point number of currency units.
// Only the toy premium calculation uses it.
func (a Amount) AsUnits() float64 {
	f, _ := decimal.New(a.Quantity, -amountScale).Float64()
	return f
}

// String implements fmt.Stringer. It prints the amount in currency units.
func (a Amount) String() string {
	return fmt.Sprintf("%s %s",
		decimal.New(a.Quantity, -amountScale).StringFixed(amountScale), a.Currency)
}

func (a Amount) requireSameCurrency(other Amount) {
	if a.Currency != other.Currency {
		panic(xerrors.Errorf("currency mismatch: '%s' != '%s'",
			a.Currency, other.Currency))
	}
}
