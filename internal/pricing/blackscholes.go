// Package pricing implements the closed-form Black-Scholes model for
// European options.
package pricing

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	apperrors "optionsim/internal/errors"
)

const (
	daysPerYear = 365.0

	// MinVolTime is the smallest sigma*sqrt(T) the closed form accepts.
	// Below it d1/d2 blow up and callers must use the intrinsic branch.
	MinVolTime = 1e-10
)

// Inputs are the five model inputs plus the contract right.
type Inputs struct {
	Spot         float64
	Strike       float64
	TimeToExpiry float64 // years
	RiskFreeRate float64
	Volatility   float64
	IsCall       bool
}

// Result is a model price with its Greeks.
// Theta is per calendar day, vega and rho per one percentage point.
type Result struct {
	Price float64
	Delta float64
	Gamma float64
	Theta float64
	Vega  float64
	Rho   float64
	D1    float64
	D2    float64
}

// Degenerate reports whether the inputs sit outside the closed form's domain
// (expired, or zero volatility-time) and must be valued at intrinsic.
func (in Inputs) Degenerate() bool {
	if in.TimeToExpiry <= 0 {
		return true
	}
	return in.Volatility*math.Sqrt(in.TimeToExpiry) < MinVolTime
}

// Price returns the Black-Scholes price and Greeks.
// Callers must branch to Intrinsic when Degenerate() is true; Price
// reports ErrDegenerateInputs rather than dividing by zero.
func Price(in Inputs) (Result, error) {
	if in.Spot <= 0 || in.Strike <= 0 || in.Volatility < 0 ||
		math.IsNaN(in.Spot) || math.IsNaN(in.Strike) || math.IsNaN(in.Volatility) ||
		math.IsNaN(in.TimeToExpiry) || math.IsNaN(in.RiskFreeRate) {
		return Result{}, apperrors.NewPricingError("price", in.Spot, in.Strike, in.TimeToExpiry, in.Volatility, apperrors.ErrInvalidInput)
	}
	if in.Degenerate() {
		return Result{}, apperrors.NewPricingError("price", in.Spot, in.Strike, in.TimeToExpiry, in.Volatility, apperrors.ErrDegenerateInputs)
	}

	S, K, T, r, sigma := in.Spot, in.Strike, in.TimeToExpiry, in.RiskFreeRate, in.Volatility
	sqrtT := math.Sqrt(T)
	volTime := sigma * sqrtT

	d1 := (math.Log(S/K) + (r+0.5*sigma*sigma)*T) / volTime
	d2 := d1 - volTime

	discount := math.Exp(-r * T)
	pdfD1 := distuv.UnitNormal.Prob(d1)

	var res Result
	res.D1, res.D2 = d1, d2
	res.Gamma = pdfD1 / (S * volTime)
	res.Vega = S * pdfD1 * sqrtT / 100

	nd1 := distuv.UnitNormal.CDF(d1)
	nd2 := distuv.UnitNormal.CDF(d2)
	call := S*nd1 - K*discount*nd2
	decay := -S * pdfD1 * sigma / (2 * sqrtT)
	if in.IsCall {
		res.Price = call
		res.Delta = nd1
		res.Theta = (decay - r*K*discount*nd2) / daysPerYear
		res.Rho = K * T * discount * nd2 / 100
	} else {
		// put-call parity: P = C - S + K e^{-rT}
		res.Price = call - S + K*discount
		res.Delta = nd1 - 1
		nMinusD2 := distuv.UnitNormal.CDF(-d2)
		res.Theta = (decay + r*K*discount*nMinusD2) / daysPerYear
		res.Rho = -K * T * discount * nMinusD2 / 100
	}

	// Deep out-of-the-money parity can leave a tiny negative residue.
	if res.Price < 0 && res.Price > -1e-9 {
		res.Price = 0
	}

	if !finite(res.Price, res.Delta, res.Gamma, res.Theta, res.Vega, res.Rho) {
		return Result{}, apperrors.NewPricingError("price", S, K, T, sigma, apperrors.ErrNumericFailure)
	}
	return res, nil
}

// Intrinsic values an option at expiry (or with zero volatility-time).
// Delta is 1/0 for calls and -1/0 for puts; all other Greeks are zero.
func Intrinsic(spot, strike float64, isCall bool) Result {
	if isCall {
		if spot > strike {
			return Result{Price: spot - strike, Delta: 1}
		}
		return Result{}
	}
	if strike > spot {
		return Result{Price: strike - spot, Delta: -1}
	}
	return Result{}
}

// Evaluate prices through the closed form, or at intrinsic when the inputs
// are degenerate.
func Evaluate(in Inputs) (Result, error) {
	if in.Degenerate() {
		if in.Spot < 0 || in.Strike <= 0 || math.IsNaN(in.Spot) {
			return Result{}, apperrors.NewPricingError("intrinsic", in.Spot, in.Strike, in.TimeToExpiry, in.Volatility, apperrors.ErrInvalidInput)
		}
		return Intrinsic(in.Spot, in.Strike, in.IsCall), nil
	}
	return Price(in)
}

// NormCDF is the standard normal cumulative distribution.
func NormCDF(x float64) float64 {
	return distuv.UnitNormal.CDF(x)
}

func finite(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
