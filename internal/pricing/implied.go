package pricing

import (
	"math"

	apperrors "optionsim/internal/errors"
)

const (
	ivLower         = 1e-4
	ivUpper         = 5.0
	ivTolerance     = 1e-8
	ivMaxIterations = 100
)

// ImpliedVolatility solves for the volatility that reproduces marketPrice.
// Newton-Raphson on vega is tried first; bisection takes over whenever a
// step leaves the bracket or vega vanishes. The Volatility field of in is
// used as the starting guess when positive.
func ImpliedVolatility(in Inputs, marketPrice float64) (float64, error) {
	if in.Spot <= 0 || in.Strike <= 0 || in.TimeToExpiry <= 0 || marketPrice <= 0 {
		return 0, apperrors.NewPricingError("implied_volatility", in.Spot, in.Strike, in.TimeToExpiry, marketPrice, apperrors.ErrInvalidInput)
	}

	discount := math.Exp(-in.RiskFreeRate * in.TimeToExpiry)
	var lowerBound, upperBound float64
	if in.IsCall {
		lowerBound = math.Max(0, in.Spot-in.Strike*discount)
		upperBound = in.Spot
	} else {
		lowerBound = math.Max(0, in.Strike*discount-in.Spot)
		upperBound = in.Strike * discount
	}
	if marketPrice < lowerBound || marketPrice >= upperBound {
		return 0, apperrors.NewPricingError("implied_volatility", in.Spot, in.Strike, in.TimeToExpiry, marketPrice, apperrors.ErrInvalidInput)
	}

	lo, hi := ivLower, ivUpper
	sigma := in.Volatility
	if sigma <= lo || sigma >= hi {
		sigma = 0.3
	}

	for i := 0; i < ivMaxIterations; i++ {
		trial := in
		trial.Volatility = sigma
		res, err := Price(trial)
		if err != nil {
			return 0, err
		}
		diff := res.Price - marketPrice
		if math.Abs(diff) < ivTolerance {
			return sigma, nil
		}
		if diff > 0 {
			hi = sigma
		} else {
			lo = sigma
		}

		// Vega is quoted per percentage point.
		vega := res.Vega * 100
		next := sigma - diff/vega
		if vega < 1e-12 || next <= lo || next >= hi || math.IsNaN(next) {
			next = 0.5 * (lo + hi)
		}
		if math.Abs(next-sigma) < ivTolerance {
			return next, nil
		}
		sigma = next
	}
	return 0, apperrors.NewPricingError("implied_volatility", in.Spot, in.Strike, in.TimeToExpiry, sigma, apperrors.ErrNoConvergence)
}
