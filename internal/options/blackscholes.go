package options

import (
	"math"
	"time"

	"github.com/naveenvino/breezepython/internal/contracts"
)

// Pricing model constants. IV is estimated from moneyness around a flat
// base; the skew multipliers widen OTM wings the way NIFTY weeklies
// actually trade.
const (
	RiskFreeRate = 0.065
	BaseIV       = 0.15

	itmIVFactor = 0.8
	otmIVFactor = 1.2

	yearSeconds = 365 * 24 * 3600
)

// Intrinsic returns the option's intrinsic value at the given spot
func Intrinsic(optionType contracts.OptionType, spot float64, strike int) float64 {
	k := float64(strike)
	if optionType == contracts.OptionCall {
		return math.Max(0, spot-k)
	}
	return math.Max(0, k-spot)
}

// YearsToExpiry converts the timestamp/expiry gap to year fractions
func YearsToExpiry(timestamp, expiry time.Time) float64 {
	return expiry.Sub(timestamp).Seconds() / yearSeconds
}

// EstimateIV picks an implied volatility from moneyness. Near-ATM
// options get the base IV; ITM options trade tighter and OTM wider.
func EstimateIV(spot float64, strike int, optionType contracts.OptionType) float64 {
	moneyness := spot / float64(strike)

	switch {
	case moneyness >= 0.95 && moneyness <= 1.05:
		return BaseIV
	case moneyness > 1.05:
		if optionType == contracts.OptionCall {
			return BaseIV * itmIVFactor
		}
		return BaseIV * otmIVFactor
	default:
		if optionType == contracts.OptionCall {
			return BaseIV * otmIVFactor
		}
		return BaseIV * itmIVFactor
	}
}

// BlackScholes prices a European option. T is years to expiry; at or
// past expiry the intrinsic value is returned.
func BlackScholes(spot float64, strike int, T, r, sigma float64, optionType contracts.OptionType) float64 {
	if T <= 0 {
		return Intrinsic(optionType, spot, strike)
	}

	k := float64(strike)
	sqrtT := math.Sqrt(T)

	d1 := (math.Log(spot/k) + (r+0.5*sigma*sigma)*T) / (sigma * sqrtT)
	d2 := d1 - sigma*sqrtT

	var price float64
	if optionType == contracts.OptionCall {
		price = spot*normCDF(d1) - k*math.Exp(-r*T)*normCDF(d2)
	} else {
		price = k*math.Exp(-r*T)*normCDF(-d2) - spot*normCDF(-d1)
	}

	return math.Max(0, price)
}

// normCDF is the standard normal cumulative distribution function
func normCDF(x float64) float64 {
	return 0.5 * math.Erfc(-x/math.Sqrt2)
}
