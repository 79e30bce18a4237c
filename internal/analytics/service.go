// Package analytics exposes the pricing, Greeks, validation, payoff and
// sizing engines behind one stateless service.
package analytics

import (
	"time"

	"github.com/rs/zerolog"

	"optionsim/internal/greeks"
	"optionsim/internal/models"
	"optionsim/internal/payoff"
	"optionsim/internal/pricing"
	"optionsim/internal/sizing"
	"optionsim/internal/strategy"
)

// Config bundles the engine settings.
type Config struct {
	Greeks greeks.Config
	Payoff payoff.Config
	Sizing sizing.Config
}

// DefaultConfig returns the stock settings for every engine.
func DefaultConfig() Config {
	return Config{
		Greeks: greeks.DefaultConfig(),
		Payoff: payoff.DefaultConfig(),
		Sizing: sizing.DefaultConfig(),
	}
}

// Service is the query surface of the engine. It holds configuration only;
// every call is independent.
type Service struct {
	greeks    *greeks.Engine
	validator *strategy.Validator
	payoff    *payoff.Engine
	sizer     *sizing.Sizer
	logger    zerolog.Logger
}

// NewService wires the engines together.
func NewService(cfg Config, logger zerolog.Logger) *Service {
	return &Service{
		greeks:    greeks.NewEngine(cfg.Greeks, logger),
		validator: strategy.NewValidator(logger),
		payoff:    payoff.NewEngine(cfg.Payoff, logger),
		sizer:     sizing.NewSizer(cfg.Sizing, logger),
		logger:    logger,
	}
}

// Greeks returns the underlying Greeks engine.
func (s *Service) Greeks() *greeks.Engine {
	return s.greeks
}

// Price values one option, at intrinsic when the inputs are degenerate.
func (s *Service) Price(in pricing.Inputs) (pricing.Result, error) {
	return pricing.Evaluate(in)
}

// ContractGreeks prices one contract at spot.
func (s *Service) ContractGreeks(c models.OptionContract, spot float64) greeks.Outcome {
	return s.greeks.Greeks(c, spot)
}

// ScenarioGreeks prices one contract under a what-if shock.
func (s *Service) ScenarioGreeks(c models.OptionContract, spot float64, sc greeks.Scenario) greeks.Outcome {
	return s.greeks.ScenarioGreeks(c, spot, sc)
}

// StrategyGreeks nets Greeks across legs.
func (s *Service) StrategyGreeks(legs []models.StrategyLeg, spot float64) greeks.PositionGreeks {
	return s.greeks.StrategyGreeks(legs, spot)
}

// SensitivitySweep samples a contract's Greeks across spot, valued at asOf.
func (s *Service) SensitivitySweep(c models.OptionContract, spot float64, r greeks.SweepRange, asOf time.Time) ([]greeks.SweepPoint, error) {
	return s.greeks.SensitivitySweep(c, spot, r, asOf)
}

// ValidateStrategy runs the structural checks for a named shape.
func (s *Service) ValidateStrategy(name string, legs []models.StrategyLeg) models.ValidationResult {
	return s.validator.Validate(name, legs)
}

// Payoff samples the expiry P&L of legs.
func (s *Service) Payoff(name string, legs []models.StrategyLeg, spot float64, grid payoff.GridSpec) (models.StrategyPayoff, error) {
	return s.payoff.Calculate(name, legs, spot, grid)
}

// SizePosition runs the Kelly sizer.
func (s *Service) SizePosition(in sizing.Input) (models.KellyCalculationResult, error) {
	return s.sizer.Size(in)
}

// Source names where an analysis took its summary figures from.
type Source string

const (
	ClosedForm Source = "closed_form"
	Sampled    Source = "sampled"
)

// Analysis is the combined view of a leg set.
type Analysis struct {
	StrategyName    string                   `json:"strategy_name"`
	Source          Source                   `json:"source"`
	Validation      *models.ValidationResult `json:"validation,omitempty"`
	Payoff          models.StrategyPayoff    `json:"payoff"`
	Position        greeks.PositionGreeks    `json:"position"`
	MaxProfit       models.Bound             `json:"max_profit"`
	MaxLoss         models.Bound             `json:"max_loss"`
	BreakEvenPoints []float64                `json:"break_even_points"`
}

// Analyze validates a named strategy and attaches the sampled payoff curve
// and net Greeks. Summary figures come from the closed form when the shape
// is known, valid and has one; otherwise from the sampler. Custom and
// unknown names go straight to the sampler.
func (s *Service) Analyze(name string, legs []models.StrategyLeg, spot float64, grid payoff.GridSpec) (Analysis, error) {
	curve, err := s.payoff.Calculate(name, legs, spot, grid)
	if err != nil {
		return Analysis{}, err
	}

	a := Analysis{
		StrategyName:    name,
		Source:          Sampled,
		Payoff:          curve,
		Position:        s.greeks.StrategyGreeks(legs, spot),
		MaxProfit:       curve.MaxProfit,
		MaxLoss:         curve.MaxLoss,
		BreakEvenPoints: curve.BreakEvenPoints,
	}
	if strategy.IsCustom(name) {
		a.StrategyName = strategy.Custom
		return a, nil
	}
	if _, ok := strategy.Lookup(name); !ok {
		s.logger.Debug().Str("strategy", name).Msg("Unknown strategy, using sampled payoff")
		return a, nil
	}

	v := s.validator.Validate(name, legs)
	a.Validation = &v
	a.StrategyName = v.StrategyName
	if v.IsValid && v.MaxProfit != nil && v.MaxLoss != nil {
		a.Source = ClosedForm
		a.MaxProfit = *v.MaxProfit
		a.MaxLoss = *v.MaxLoss
		if len(v.BreakEvenPoints) > 0 {
			a.BreakEvenPoints = v.BreakEvenPoints
		}
	}
	return a, nil
}

// SizeStrategy sizes a leg set, deriving capital per contract from the
// validated max loss when one exists.
func (s *Service) SizeStrategy(name string, legs []models.StrategyLeg, st models.TradeStats, balance float64, requested int) (models.KellyCalculationResult, error) {
	var validation *models.ValidationResult
	if _, ok := strategy.Lookup(name); ok {
		v := s.validator.Validate(name, legs)
		validation = &v
	}
	return s.sizer.Size(sizing.Input{
		Stats:              st,
		AccountBalance:     balance,
		CapitalPerContract: sizing.CapitalPerContract(legs, validation),
		RequestedContracts: requested,
	})
}
