// Package greeks computes per-contract and per-position Greeks on top of the
// Black-Scholes pricer, including scenario shocks and spot sensitivity sweeps.
package greeks

import (
	"math"
	"time"

	"github.com/rs/zerolog"

	apperrors "optionsim/internal/errors"
	"optionsim/internal/logging"
	"optionsim/internal/models"
	"optionsim/internal/pricing"
)

const daysPerYear = 365.0

// Status tells callers whether Greeks came from the model or the cache.
type Status int

const (
	// Ok means the values were priced fresh.
	Ok Status = iota
	// Fallback means pricing failed and the contract's cached Greeks were used.
	Fallback
)

func (s Status) String() string {
	if s == Fallback {
		return "fallback"
	}
	return "ok"
}

// Outcome is a Greeks computation result. Reason and Err are set only for
// Fallback outcomes.
type Outcome struct {
	Data   models.GreeksData
	Status Status
	Reason string
	Err    error
}

// Degraded reports whether the outcome came from cached values.
func (o Outcome) Degraded() bool {
	return o.Status == Fallback
}

// Config holds engine defaults.
type Config struct {
	RiskFreeRate      float64
	DefaultVolatility float64
	// SolveMissingIV backs out volatility from LastPrice when a contract
	// carries no implied volatility. Off, such contracts use DefaultVolatility.
	SolveMissingIV bool
	SweepLow       float64 // fraction of spot
	SweepHigh      float64
	SweepSteps     int
}

// DefaultConfig returns the stock engine settings.
func DefaultConfig() Config {
	return Config{
		RiskFreeRate:      0.05,
		DefaultVolatility: 0.30,
		SweepLow:          0.8,
		SweepHigh:         1.2,
		SweepSteps:        40,
	}
}

// Engine evaluates Greeks. It holds configuration only and is safe for
// concurrent use.
type Engine struct {
	cfg    Config
	logger zerolog.Logger
	now    func() time.Time
}

// NewEngine creates a Greeks engine.
func NewEngine(cfg Config, logger zerolog.Logger) *Engine {
	if cfg.DefaultVolatility <= 0 {
		cfg.DefaultVolatility = DefaultConfig().DefaultVolatility
	}
	return &Engine{
		cfg:    cfg,
		logger: logging.WithOperation(logger, "greeks"),
		now:    time.Now,
	}
}

// WithClock returns a copy of the engine that reads the current time from now.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	cp := *e
	cp.now = now
	return &cp
}

// RiskFreeRate returns the rate the engine prices with.
func (e *Engine) RiskFreeRate() float64 {
	return e.cfg.RiskFreeRate
}

// TimeToExpiry returns the years between now and expiration, floored at 0.
func TimeToExpiry(expiration, now time.Time) float64 {
	years := expiration.Sub(now).Hours() / 24 / daysPerYear
	if years < 0 {
		return 0
	}
	return years
}

// TimeToExpiry returns years to expiration using the engine clock.
func (e *Engine) TimeToExpiry(expiration time.Time) float64 {
	return TimeToExpiry(expiration, e.now())
}

// Greeks prices a single contract at the given underlying price.
func (e *Engine) Greeks(c models.OptionContract, spot float64) Outcome {
	years := e.TimeToExpiry(c.Expiration)
	return e.evaluate(c, spot, years, e.volatility(c, spot, years))
}

// volatility picks the contract's IV, else the configured default. With
// SolveMissingIV it first tries to solve IV from the last price.
func (e *Engine) volatility(c models.OptionContract, spot, years float64) float64 {
	if c.ImpliedVolatility > 0 {
		return c.ImpliedVolatility
	}
	if e.cfg.SolveMissingIV && c.LastPrice > 0 && years > 0 && spot > 0 {
		iv, err := pricing.ImpliedVolatility(pricing.Inputs{
			Spot:         spot,
			Strike:       c.Strike,
			TimeToExpiry: years,
			RiskFreeRate: e.cfg.RiskFreeRate,
			IsCall:       c.IsCall(),
		}, c.LastPrice)
		if err == nil {
			return iv
		}
		log := logging.WithContract(e.logger, c.Label(), c.Strike, string(c.Type))
		log.Debug().Err(err).Float64("last_price", c.LastPrice).Msg("Could not solve IV from last price, using default")
	}
	return e.cfg.DefaultVolatility
}

func (e *Engine) evaluate(c models.OptionContract, spot, years, vol float64) Outcome {
	res, err := pricing.Evaluate(pricing.Inputs{
		Spot:         spot,
		Strike:       c.Strike,
		TimeToExpiry: years,
		RiskFreeRate: e.cfg.RiskFreeRate,
		Volatility:   vol,
		IsCall:       c.IsCall(),
	})
	if err != nil {
		reason := "pricer failed"
		if apperrors.Is(err, apperrors.ErrInvalidInput) {
			reason = "invalid pricing inputs"
		} else if apperrors.Is(err, apperrors.ErrNumericFailure) {
			reason = "non-finite pricer output"
		}
		logging.LogFallback(e.logger, c.Label(), reason, spot, years, vol, err)
		return Outcome{
			Data:   models.GreeksFromCache(c),
			Status: Fallback,
			Reason: reason,
			Err:    err,
		}
	}
	return Outcome{
		Data: models.GreeksData{
			Delta:             res.Delta,
			Gamma:             res.Gamma,
			Theta:             res.Theta,
			Vega:              res.Vega,
			Rho:               res.Rho,
			TheoreticalPrice:  res.Price,
			ImpliedVolatility: vol,
		},
		Status: Ok,
	}
}

// Scenario is a what-if shock. Percentages are relative, so
// PriceChangePct=10 moves spot from 100 to 110.
type Scenario struct {
	PriceChangePct float64 `json:"price_change_pct"`
	VolChangePct   float64 `json:"vol_change_pct"`
	DaysPassed     float64 `json:"days_passed"`
}

// ScenarioGreeks re-prices the contract under a shocked spot, volatility
// and clock. Time decay past expiry lands on the intrinsic branch.
func (e *Engine) ScenarioGreeks(c models.OptionContract, spot float64, s Scenario) Outcome {
	years := e.TimeToExpiry(c.Expiration)
	vol := e.volatility(c, spot, years)

	shockedSpot := spot * (1 + s.PriceChangePct/100)
	shockedVol := math.Max(0, vol*(1+s.VolChangePct/100))
	shockedYears := math.Max(0, years-s.DaysPassed/daysPerYear)

	return e.evaluate(c, shockedSpot, shockedYears, shockedVol)
}

// LegGreeks is one leg's contribution to a position.
type LegGreeks struct {
	Leg     models.StrategyLeg
	Outcome Outcome
}

// PositionGreeks are net Greeks for a set of legs. CashFlow is the premium
// exchanged to open the position at theoretical prices: negative for a net
// debit, positive for a net credit.
type PositionGreeks struct {
	Delta     float64     `json:"delta"`
	Gamma     float64     `json:"gamma"`
	Theta     float64     `json:"theta"`
	Vega      float64     `json:"vega"`
	Rho       float64     `json:"rho"`
	CashFlow  float64     `json:"cash_flow"`
	Fallbacks int         `json:"fallbacks"`
	Legs      []LegGreeks `json:"-"`
}

// StrategyGreeks sums signed, quantity-weighted Greeks across legs.
func (e *Engine) StrategyGreeks(legs []models.StrategyLeg, spot float64) PositionGreeks {
	pos := PositionGreeks{Legs: make([]LegGreeks, 0, len(legs))}
	for _, leg := range legs {
		out := e.Greeks(leg.Contract, spot)
		w := leg.Sign() * float64(leg.Quantity)

		pos.Delta += w * out.Data.Delta
		pos.Gamma += w * out.Data.Gamma
		pos.Theta += w * out.Data.Theta
		pos.Vega += w * out.Data.Vega
		pos.Rho += w * out.Data.Rho
		pos.CashFlow -= w * out.Data.TheoreticalPrice * models.SharesPerContract
		if out.Degraded() {
			pos.Fallbacks++
		}
		pos.Legs = append(pos.Legs, LegGreeks{Leg: leg, Outcome: out})
	}
	return pos
}

// SweepRange is an inclusive spot range sampled at Steps+1 points.
type SweepRange struct {
	Min   float64
	Max   float64
	Steps int
}

// SweepPoint is the contract's Greeks at one spot price.
type SweepPoint struct {
	Price float64 `json:"price" csv:"price"`
	Delta float64 `json:"delta" csv:"delta"`
	Gamma float64 `json:"gamma" csv:"gamma"`
	Theta float64 `json:"theta" csv:"theta"`
	Vega  float64 `json:"vega" csv:"vega"`
}

// DefaultSweepRange centres the configured sweep band on spot.
func (e *Engine) DefaultSweepRange(spot float64) SweepRange {
	return SweepRange{
		Min:   spot * e.cfg.SweepLow,
		Max:   spot * e.cfg.SweepHigh,
		Steps: e.cfg.SweepSteps,
	}
}

// SensitivitySweep evaluates the contract across r with time to expiry
// measured from asOf, so identical arguments give identical curves.
// Volatility is resolved once at the current spot so the curve isolates the
// spot dependence. A zero range uses DefaultSweepRange.
func (e *Engine) SensitivitySweep(c models.OptionContract, spot float64, r SweepRange, asOf time.Time) ([]SweepPoint, error) {
	if r == (SweepRange{}) {
		r = e.DefaultSweepRange(spot)
	}
	if r.Steps < 1 || r.Min <= 0 || r.Max <= r.Min || math.IsNaN(r.Min) || math.IsInf(r.Max, 0) {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidGrid, "sweep range [%g, %g] with %d steps", r.Min, r.Max, r.Steps)
	}

	years := TimeToExpiry(c.Expiration, asOf)
	vol := e.volatility(c, spot, years)
	step := (r.Max - r.Min) / float64(r.Steps)

	points := make([]SweepPoint, r.Steps+1)
	for i := range points {
		price := r.Min + float64(i)*step
		if i == r.Steps {
			price = r.Max
		}
		out := e.evaluate(c, price, years, vol)
		points[i] = SweepPoint{
			Price: price,
			Delta: out.Data.Delta,
			Gamma: out.Data.Gamma,
			Theta: out.Data.Theta,
			Vega:  out.Data.Vega,
		}
	}
	return points, nil
}
