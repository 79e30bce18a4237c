package pricing

import (
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	apperrors "optionsim/internal/errors"
)

// referencePrice is an independent Black-Scholes implementation built on
// math.Erfc, used to cross-check the gonum-backed pricer.
func referencePrice(S, K, T, r, sigma float64, isCall bool) float64 {
	n := func(x float64) float64 { return 0.5 * math.Erfc(-x/math.Sqrt2) }
	d1 := (math.Log(S/K) + (r+sigma*sigma/2)*T) / (sigma * math.Sqrt(T))
	d2 := d1 - sigma*math.Sqrt(T)
	call := S*n(d1) - K*math.Exp(-r*T)*n(d2)
	if isCall {
		return call
	}
	return K*math.Exp(-r*T)*n(-d2) - S*n(-d1)
}

func approxEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestPrice_ReferenceValues(t *testing.T) {
	tests := []struct {
		name  string
		in    Inputs
		price float64
		delta float64
		gamma float64
		vega  float64
		theta float64
		rho   float64
	}{
		{
			name:  "ATM one-year call",
			in:    Inputs{Spot: 100, Strike: 100, TimeToExpiry: 1, RiskFreeRate: 0.05, Volatility: 0.2, IsCall: true},
			price: 10.450584, delta: 0.636831, gamma: 0.018762, vega: 0.375240, theta: -0.017573, rho: 0.532325,
		},
		{
			name:  "ATM one-year put",
			in:    Inputs{Spot: 100, Strike: 100, TimeToExpiry: 1, RiskFreeRate: 0.05, Volatility: 0.2, IsCall: false},
			price: 5.573526, delta: -0.363169, gamma: 0.018762, vega: 0.375240,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Price(tt.in)
			if err != nil {
				t.Fatalf("Price returned error: %v", err)
			}
			if !approxEqual(res.Price, tt.price, 1e-5) {
				t.Errorf("price = %v, want %v", res.Price, tt.price)
			}
			if !approxEqual(res.Delta, tt.delta, 1e-5) {
				t.Errorf("delta = %v, want %v", res.Delta, tt.delta)
			}
			if !approxEqual(res.Gamma, tt.gamma, 1e-5) {
				t.Errorf("gamma = %v, want %v", res.Gamma, tt.gamma)
			}
			if !approxEqual(res.Vega, tt.vega, 1e-5) {
				t.Errorf("vega = %v, want %v", res.Vega, tt.vega)
			}
			if tt.in.IsCall {
				if !approxEqual(res.Theta, tt.theta, 1e-5) {
					t.Errorf("theta = %v, want %v", res.Theta, tt.theta)
				}
				if !approxEqual(res.Rho, tt.rho, 1e-5) {
					t.Errorf("rho = %v, want %v", res.Rho, tt.rho)
				}
			}
		})
	}
}

func TestPrice_PutGreeksFromParity(t *testing.T) {
	in := Inputs{Spot: 100, Strike: 100, TimeToExpiry: 1, RiskFreeRate: 0.05, Volatility: 0.2}
	callIn := in
	callIn.IsCall = true

	call, err := Price(callIn)
	if err != nil {
		t.Fatal(err)
	}
	put, err := Price(in)
	if err != nil {
		t.Fatal(err)
	}

	// dP/dt = dC/dt + rK e^{-rT}, per day
	wantTheta := call.Theta + 0.05*100*math.Exp(-0.05)/365
	if !approxEqual(put.Theta, wantTheta, 1e-9) {
		t.Errorf("put theta = %v, want %v", put.Theta, wantTheta)
	}
	// dP/dr = dC/dr - T K e^{-rT}, per point
	wantRho := call.Rho - 100*math.Exp(-0.05)/100
	if !approxEqual(put.Rho, wantRho, 1e-9) {
		t.Errorf("put rho = %v, want %v", put.Rho, wantRho)
	}
	if !approxEqual(put.Delta, call.Delta-1, 1e-12) {
		t.Errorf("put delta = %v, want %v", put.Delta, call.Delta-1)
	}
}

func TestPrice_ThirtyDayATMCall(t *testing.T) {
	in := Inputs{Spot: 100, Strike: 100, TimeToExpiry: 30.0 / 365.0, RiskFreeRate: 0.05, Volatility: 0.30, IsCall: true}
	res, err := Price(in)
	if err != nil {
		t.Fatalf("Price returned error: %v", err)
	}
	want := referencePrice(in.Spot, in.Strike, in.TimeToExpiry, in.RiskFreeRate, in.Volatility, true)
	if !approxEqual(res.Price, want, 1e-6) {
		t.Errorf("price = %v, reference %v", res.Price, want)
	}
	if res.Delta < 0.52 || res.Delta > 0.56 {
		t.Errorf("delta = %v, want within [0.52, 0.56]", res.Delta)
	}
}

func TestPrice_Degenerate(t *testing.T) {
	tests := []struct {
		name string
		in   Inputs
		want error
	}{
		{"zero volatility", Inputs{Spot: 100, Strike: 90, TimeToExpiry: 0.5, Volatility: 0, IsCall: true}, apperrors.ErrDegenerateInputs},
		{"expired", Inputs{Spot: 100, Strike: 90, TimeToExpiry: 0, Volatility: 0.3, IsCall: true}, apperrors.ErrDegenerateInputs},
		{"negative spot", Inputs{Spot: -1, Strike: 90, TimeToExpiry: 0.5, Volatility: 0.3}, apperrors.ErrInvalidInput},
		{"zero strike", Inputs{Spot: 100, Strike: 0, TimeToExpiry: 0.5, Volatility: 0.3}, apperrors.ErrInvalidInput},
		{"NaN vol", Inputs{Spot: 100, Strike: 100, TimeToExpiry: 0.5, Volatility: math.NaN()}, apperrors.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Price(tt.in)
			if !apperrors.Is(err, tt.want) {
				t.Errorf("Price error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestEvaluate_IntrinsicBranch(t *testing.T) {
	tests := []struct {
		name      string
		in        Inputs
		wantPrice float64
		wantDelta float64
	}{
		{"expired ITM call", Inputs{Spot: 110, Strike: 100, IsCall: true}, 10, 1},
		{"expired OTM call", Inputs{Spot: 90, Strike: 100, IsCall: true}, 0, 0},
		{"expired ITM put", Inputs{Spot: 90, Strike: 100}, 10, -1},
		{"expired OTM put", Inputs{Spot: 110, Strike: 100}, 0, 0},
		{"zero vol ITM call", Inputs{Spot: 105, Strike: 100, TimeToExpiry: 0.25, Volatility: 0, IsCall: true}, 5, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Evaluate(tt.in)
			if err != nil {
				t.Fatalf("Evaluate returned error: %v", err)
			}
			if res.Price != tt.wantPrice || res.Delta != tt.wantDelta {
				t.Errorf("got price=%v delta=%v, want price=%v delta=%v", res.Price, res.Delta, tt.wantPrice, tt.wantDelta)
			}
			if res.Gamma != 0 || res.Theta != 0 || res.Vega != 0 || res.Rho != 0 {
				t.Errorf("expected zero higher-order Greeks, got %+v", res)
			}
		})
	}
}

// Property: for any valid inputs the CDF terms stay in [0,1] and the call
// respects the no-arbitrage lower bound max(0, S - K e^{-rT}).
func TestProperty_NoArbitrageBounds(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("call price >= max(0, S - K e^{-rT}) and CDF terms in [0,1]", prop.ForAll(
		func(spot, strike, T, r, sigma float64) bool {
			in := Inputs{Spot: spot, Strike: strike, TimeToExpiry: T, RiskFreeRate: r, Volatility: sigma, IsCall: true}
			res, err := Price(in)
			if err != nil {
				t.Logf("unexpected error: %v", err)
				return false
			}
			nd1, nd2 := NormCDF(res.D1), NormCDF(res.D2)
			if nd1 < 0 || nd1 > 1 || nd2 < 0 || nd2 > 1 {
				return false
			}
			lower := math.Max(0, spot-strike*math.Exp(-r*T))
			return res.Price >= lower-1e-9
		},
		gen.Float64Range(10, 500),
		gen.Float64Range(10, 500),
		gen.Float64Range(1.0/365, 3),
		gen.Float64Range(0, 0.1),
		gen.Float64Range(0.05, 1.5),
	))

	properties.Property("put-call parity holds", prop.ForAll(
		func(spot, strike, T, sigma float64) bool {
			r := 0.03
			call, err1 := Price(Inputs{Spot: spot, Strike: strike, TimeToExpiry: T, RiskFreeRate: r, Volatility: sigma, IsCall: true})
			put, err2 := Price(Inputs{Spot: spot, Strike: strike, TimeToExpiry: T, RiskFreeRate: r, Volatility: sigma})
			if err1 != nil || err2 != nil {
				return false
			}
			return approxEqual(call.Price-put.Price, spot-strike*math.Exp(-r*T), 1e-8)
		},
		gen.Float64Range(10, 500),
		gen.Float64Range(10, 500),
		gen.Float64Range(1.0/365, 3),
		gen.Float64Range(0.05, 1.5),
	))

	properties.Property("matches reference implementation", prop.ForAll(
		func(spot, strike, T, sigma float64) bool {
			in := Inputs{Spot: spot, Strike: strike, TimeToExpiry: T, RiskFreeRate: 0.05, Volatility: sigma, IsCall: false}
			res, err := Price(in)
			if err != nil {
				return false
			}
			return approxEqual(res.Price, referencePrice(spot, strike, T, 0.05, sigma, false), 1e-7)
		},
		gen.Float64Range(50, 150),
		gen.Float64Range(50, 150),
		gen.Float64Range(7.0/365, 2),
		gen.Float64Range(0.1, 0.8),
	))

	properties.TestingRun(t)
}
