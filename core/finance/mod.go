// Package finance defines the market value types shared by the contracts,
// the oracle and the flows: monetary amounts, stock references, observed
// market data and the option payoff and premium calculations.
package finance

import (
	"fmt"
	"time"
)

// OptionType defines the side of an option contract.
type OptionType byte

const (
	// Call is an option to buy the underlying at the strike price.
	Call OptionType = iota

	// Put is an option to sell the underlying at the strike price.
	Put
)

// String implements fmt.Stringer. It returns the common name of the option
// type.
func (t OptionType) String() string {
	switch t {
	case Call:
		return "CALL"
	case Put:
		return "PUT"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", t)
	}
}

// Stock identifies a market quantity at a specific reference instant. It is
// the lookup key of the oracle datasets.
type Stock struct {
	Name   string
	AtTime time.Time
}

// NewStock returns a stock reference for the name at the given instant.
func NewStock(name string, at time.Time) Stock {
	return Stock{Name: name, AtTime: at}
}

// Equal returns true when both references point to the same stock at the
// same instant.
func (s Stock) Equal(other Stock) bool {
	return s.Name == other.Name && s.AtTime.Equal(other.AtTime)
}

// String implements fmt.Stringer. It returns the name and the reference
// instant.
func (s Stock) String() string {
	return fmt.Sprintf("%s@%s", s.Name, s.AtTime.Format(time.RFC3339))
}

// SpotPrice is the observed price of a stock at its reference instant.
type SpotPrice struct {
	Stock Stock
	Value Amount
}

// Equal returns true when both observations carry the same stock and value.
func (s SpotPrice) Equal(other SpotPrice) bool {
	return s.Stock.Equal(other.Stock) && s.Value == other.Value
}

// Volatility is the observed annualized historic volatility of a stock at
// its reference instant.
type Volatility struct {
	Stock Stock
	Value float64
}
