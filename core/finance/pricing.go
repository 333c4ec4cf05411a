package finance

import (
	"math"

	gaussian "github.com/chobie/go-gaussian"
)

// Moneyness returns the in-the-money payoff of an option: for a call the
// excess of the spot over the strike, for a put the excess of the strike over
// the spot, floored at zero. The result carries the currency of the spot.
// Both amounts are expected in the same currency.
func Moneyness(strike, spot Amount, optionType OptionType) Amount {
	zero := Zero(spot.Currency)

	if optionType == Call {
		if strike.Cmp(spot) >= 0 {
			return zero
		}

		return spot.Sub(strike)
	}

	if spot.Cmp(strike) >= 0 {
		return zero
	}

	return strike.Sub(spot)
}

// PricingParams holds the constants of the premium calculation. The values
// are illustrative placeholders, not market parameters.
type PricingParams struct {
	// RiskFreeRate is the annualized risk-free rate used for discounting.
	RiskFreeRate float64

	// TimeToExpiry is the time to expiry in years.
	TimeToExpiry float64
}

// DefaultPricingParams returns the parameters used by the demo.
func DefaultPricingParams() PricingParams {
	return PricingParams{
		RiskFreeRate: 0.01,
		TimeToExpiry: 1.0,
	}
}

// BlackScholes prices an European option with the Black-Scholes formula. The
// premium it produces is a toy value used to illustrate an option purchase,
// not a financially authoritative price.
type BlackScholes struct {
	Spot       float64
	Strike     float64
	RiskFree   float64
	TimeLeft   float64
	Volatility float64
}

func (bs BlackScholes) d1() float64 {
	return (math.Log(bs.Spot/bs.Strike) +
		(bs.RiskFree+math.Pow(bs.Volatility, 2)/2)*bs.TimeLeft) /
		(bs.Volatility * math.Sqrt(bs.TimeLeft))
}

func (bs BlackScholes) d2() float64 {
	return bs.d1() - bs.Volatility*math.Sqrt(bs.TimeLeft)
}

// Call returns the premium of the call option.
func (bs BlackScholes) Call() float64 {
	norm := gaussian.NewGaussian(0, 1)
	d1 := bs.d1()
	d2 := bs.d2()

	return bs.Spot*norm.Cdf(d1) -
		bs.Strike*math.Exp(-bs.RiskFree*bs.TimeLeft)*norm.Cdf(d2)
}

// Put returns the premium of the put option.
func (bs BlackScholes) Put() float64 {
	norm := gaussian.NewGaussian(0, 1)
	d1 := bs.d1()
	d2 := bs.d2()

	return bs.Strike*math.Exp(-bs.RiskFree*bs.TimeLeft)*norm.Cdf(-d2) -
		bs.Spot*norm.Cdf(-d1)
}

// Premium returns the toy premium of an option given the observed spot, the
// strike and the volatility of the underlying.
func Premium(optionType OptionType, spot, strike Amount, volatility float64,
	params PricingParams) float64 {

	bs := BlackScholes{
		Spot:       spot.AsUnits(),
		Strike:     strike.AsUnits(),
		RiskFree:   params.RiskFreeRate,
		TimeLeft:   params.TimeToExpiry,
		Volatility: volatility,
	}

	if optionType == Call {
		return bs.Call()
	}

	return bs.Put()
}
