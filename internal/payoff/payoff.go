// Package payoff samples expiry profit and loss for arbitrary leg sets.
package payoff

import (
	"math"
	"sort"

	"github.com/rs/zerolog"

	apperrors "optionsim/internal/errors"
	"optionsim/internal/logging"
	"optionsim/internal/models"
)

// GridSpec is an inclusive price range sampled at Steps+1 points.
type GridSpec struct {
	Min   float64
	Max   float64
	Steps int
}

// IsZero reports an unset grid.
func (g GridSpec) IsZero() bool {
	return g == GridSpec{}
}

func (g GridSpec) validate() error {
	if g.Steps < 1 || g.Min < 0 || g.Max <= g.Min || math.IsNaN(g.Min) || math.IsInf(g.Max, 0) {
		return apperrors.Wrapf(apperrors.ErrInvalidGrid, "grid [%g, %g] with %d steps", g.Min, g.Max, g.Steps)
	}
	return nil
}

// Config controls the default grid, expressed as fractions of spot.
type Config struct {
	GridLow   float64
	GridHigh  float64
	GridSteps int
}

// DefaultConfig samples 70% to 130% of spot in 100 steps.
func DefaultConfig() Config {
	return Config{GridLow: 0.7, GridHigh: 1.3, GridSteps: 100}
}

// Engine computes payoff curves.
type Engine struct {
	cfg    Config
	logger zerolog.Logger
}

// NewEngine creates a payoff engine.
func NewEngine(cfg Config, logger zerolog.Logger) *Engine {
	return &Engine{cfg: cfg, logger: logging.WithOperation(logger, "payoff")}
}

// DefaultGrid centres the configured band on spot.
func (e *Engine) DefaultGrid(spot float64) GridSpec {
	return GridSpec{Min: spot * e.cfg.GridLow, Max: spot * e.cfg.GridHigh, Steps: e.cfg.GridSteps}
}

// leg is the per-leg data the sampler needs, flattened once per call.
type leg struct {
	strike float64
	call   bool
	// weight is sign * quantity * multiplier.
	weight  float64
	premium float64
}

func (l leg) pnl(price float64) float64 {
	var intrinsic float64
	if l.call {
		intrinsic = math.Max(0, price-l.strike)
	} else {
		intrinsic = math.Max(0, l.strike-price)
	}
	return l.weight * (intrinsic - l.premium)
}

func flatten(legs []models.StrategyLeg) ([]leg, error) {
	if len(legs) == 0 {
		return nil, apperrors.ErrNoLegs
	}
	out := make([]leg, len(legs))
	for i, l := range legs {
		if l.Quantity <= 0 {
			return nil, apperrors.NewValidationError("quantity", l.Quantity, "must be positive")
		}
		if l.Contract.Strike <= 0 {
			return nil, apperrors.NewValidationError("strike", l.Contract.Strike, "must be positive")
		}
		out[i] = leg{
			strike:  l.Contract.Strike,
			call:    l.Contract.IsCall(),
			weight:  l.Sign() * float64(l.Quantity) * models.SharesPerContract,
			premium: l.Contract.LastPrice,
		}
	}
	return out, nil
}

func total(legs []leg, price float64) float64 {
	var sum float64
	for _, l := range legs {
		sum += l.pnl(price)
	}
	return sum
}

// Calculate samples the expiry P&L of legs over grid. A zero grid uses
// DefaultGrid(spot).
//
// The curve is piecewise linear with kinks at the strikes, so the reported
// extremes are exact: they are taken over the grid, every strike and a zero
// underlying. Beyond the highest strike the slope is set by the net call
// position, which decides whether profit or loss is unbounded.
func (e *Engine) Calculate(name string, legs []models.StrategyLeg, spot float64, grid GridSpec) (models.StrategyPayoff, error) {
	flat, err := flatten(legs)
	if err != nil {
		return models.StrategyPayoff{}, err
	}
	if grid.IsZero() {
		if spot <= 0 || math.IsNaN(spot) {
			return models.StrategyPayoff{}, apperrors.NewValidationError("spot", spot, "must be positive to derive a grid")
		}
		grid = e.DefaultGrid(spot)
	}
	if err := grid.validate(); err != nil {
		return models.StrategyPayoff{}, err
	}

	points := sample(flat, grid)
	result := models.StrategyPayoff{
		StrategyName:    name,
		Points:          points,
		BreakEvenPoints: breakEvens(flat, grid, points),
	}

	maxP, minP := math.Inf(-1), math.Inf(1)
	consider := func(v float64) {
		maxP = math.Max(maxP, v)
		minP = math.Min(minP, v)
	}
	for _, p := range points {
		consider(p.Profit)
	}
	consider(total(flat, 0))
	for _, l := range flat {
		consider(total(flat, l.strike))
	}

	var slope float64
	for _, l := range flat {
		if l.call {
			slope += l.weight
		}
	}
	switch {
	case slope > 0:
		result.MaxProfit = models.Unlimited()
		result.MaxLoss = models.Bounded(-minP)
	case slope < 0:
		result.MaxProfit = models.Bounded(maxP)
		result.MaxLoss = models.Unlimited()
	default:
		result.MaxProfit = models.Bounded(maxP)
		result.MaxLoss = models.Bounded(-minP)
	}

	e.logger.Debug().
		Str("strategy", name).
		Int("legs", len(legs)).
		Int("points", len(points)).
		Int("break_evens", len(result.BreakEvenPoints)).
		Msg("Payoff calculated")
	return result, nil
}

// sample evaluates P&L at Steps+1 evenly spaced prices. The last point is
// pinned to grid.Max so floating-point drift cannot shorten the range.
func sample(legs []leg, grid GridSpec) []models.PayoffPoint {
	points := make([]models.PayoffPoint, grid.Steps+1)
	step := (grid.Max - grid.Min) / float64(grid.Steps)
	for i := range points {
		price := grid.Min + float64(i)*step
		if i == grid.Steps {
			price = grid.Max
		}
		points[i] = models.PayoffPoint{Price: price, Profit: total(legs, price)}
	}
	return points
}

// BreakEvens finds the prices where P&L changes sign, interpolating
// linearly between samples. A run of samples at exactly zero counts once, at
// its first sample, and only when the samples either side of the run have
// opposite signs. Touching zero without crossing is not a break-even.
func BreakEvens(points []models.PayoffPoint) []float64 {
	out := make([]float64, 0, 2)
	prev := -1 // last sample with non-zero P&L
	for i, b := range points {
		if b.Profit == 0 {
			continue
		}
		if prev >= 0 && (points[prev].Profit < 0) != (b.Profit < 0) {
			a := points[prev]
			if i == prev+1 {
				x := a.Price + (0-a.Profit)*(b.Price-a.Price)/(b.Profit-a.Profit)
				out = append(out, math.Min(math.Max(x, a.Price), b.Price))
			} else {
				out = append(out, points[prev+1].Price)
			}
		}
		prev = i
	}
	sort.Float64s(out)
	return out
}

// breakEvens runs BreakEvens with one extra sample beyond each grid edge so
// that a zero landing exactly on Min or Max is judged like any other, then
// keeps only prices inside the grid.
func breakEvens(legs []leg, grid GridSpec, points []models.PayoffPoint) []float64 {
	step := (grid.Max - grid.Min) / float64(grid.Steps)
	padded := make([]models.PayoffPoint, 0, len(points)+2)
	if below := grid.Min - step; below >= 0 {
		padded = append(padded, models.PayoffPoint{Price: below, Profit: total(legs, below)})
	}
	padded = append(padded, points...)
	above := grid.Max + step
	padded = append(padded, models.PayoffPoint{Price: above, Profit: total(legs, above)})

	all := BreakEvens(padded)
	out := all[:0]
	for _, x := range all {
		if x >= grid.Min && x <= grid.Max {
			out = append(out, x)
		}
	}
	return out
}
