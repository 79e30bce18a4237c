// Package strategy validates multi-leg option strategies and computes
// closed-form profit, loss and break-even figures for known shapes.
package strategy

import (
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"optionsim/internal/logging"
	"optionsim/internal/models"
)

// Strategy names accepted by Validate.
const (
	LongCall       = "Long Call"
	LongPut        = "Long Put"
	CoveredCall    = "Covered Call"
	CashSecuredPut = "Cash-Secured Put"
	BullCallSpread = "Bull Call Spread"
	BearPutSpread  = "Bear Put Spread"
	BearCallSpread = "Bear Call Spread"
	BullPutSpread  = "Bull Put Spread"
	Straddle       = "Straddle"
	Strangle       = "Strangle"
	IronCondor     = "Iron Condor"
	Butterfly      = "Butterfly Spread"
	Custom         = "Custom"
)

// Definition describes one supported strategy shape.
type Definition struct {
	Name        string `json:"name"`
	MinLegs     int    `json:"min_legs"`
	MaxLegs     int    `json:"max_legs"`
	Description string `json:"description"`

	rule func(*check)
	// repeats allows the same contract on more than one leg.
	repeats bool
}

// LegCount renders the accepted leg count, e.g. "2" or "3-4".
func (d Definition) LegCount() string {
	if d.MinLegs == d.MaxLegs {
		return strconv.Itoa(d.MinLegs)
	}
	return strconv.Itoa(d.MinLegs) + "-" + strconv.Itoa(d.MaxLegs)
}

var catalogue = []Definition{
	{Name: LongCall, MinLegs: 1, MaxLegs: 1, Description: "Buy a call; unlimited upside, premium at risk", rule: longCall},
	{Name: LongPut, MinLegs: 1, MaxLegs: 1, Description: "Buy a put; profits as the underlying falls", rule: longPut},
	{Name: CoveredCall, MinLegs: 1, MaxLegs: 1, Description: "Sell a call against owned shares", rule: coveredCall},
	{Name: CashSecuredPut, MinLegs: 1, MaxLegs: 1, Description: "Sell a put with cash reserved for assignment", rule: cashSecuredPut},
	{Name: BullCallSpread, MinLegs: 2, MaxLegs: 2, Description: "Buy lower call, sell higher call for a debit", rule: bullCallSpread},
	{Name: BearPutSpread, MinLegs: 2, MaxLegs: 2, Description: "Buy higher put, sell lower put for a debit", rule: bearPutSpread},
	{Name: BearCallSpread, MinLegs: 2, MaxLegs: 2, Description: "Sell lower call, buy higher call for a credit", rule: bearCallSpread},
	{Name: BullPutSpread, MinLegs: 2, MaxLegs: 2, Description: "Sell higher put, buy lower put for a credit", rule: bullPutSpread},
	{Name: Straddle, MinLegs: 2, MaxLegs: 2, Description: "Buy a call and a put at the same strike", rule: straddle},
	{Name: Strangle, MinLegs: 2, MaxLegs: 2, Description: "Buy an OTM call and an OTM put", rule: strangle},
	{Name: IronCondor, MinLegs: 4, MaxLegs: 4, Description: "Short put spread below a short call spread for a credit", rule: ironCondor},
	{Name: Butterfly, MinLegs: 3, MaxLegs: 4, Description: "Three strikes of one option type", rule: butterfly, repeats: true},
}

var byKey = func() map[string]Definition {
	m := make(map[string]Definition, len(catalogue))
	for _, d := range catalogue {
		m[normalize(d.Name)] = d
	}
	return m
}()

// normalize folds case and separators so "bull-call-spread" and
// "Bull Call Spread" resolve to the same shape.
func normalize(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch r {
		case ' ', '-', '_':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Supported returns the strategy catalogue in display order.
func Supported() []Definition {
	out := make([]Definition, len(catalogue))
	copy(out, catalogue)
	return out
}

// Lookup finds a strategy definition by name.
func Lookup(name string) (Definition, bool) {
	d, ok := byKey[normalize(name)]
	return d, ok
}

// IsCustom reports whether name asks for freeform payoff analysis.
func IsCustom(name string) bool {
	return normalize(name) == normalize(Custom) || strings.TrimSpace(name) == ""
}

// Validator checks leg sets against the strategy catalogue.
type Validator struct {
	logger zerolog.Logger
}

// NewValidator creates a validator.
func NewValidator(logger zerolog.Logger) *Validator {
	return &Validator{logger: logging.WithOperation(logger, "validate")}
}

// Validate runs the structural checks for the named strategy and, when they
// pass, fills in the closed-form economics. Legs are never modified.
func (v *Validator) Validate(name string, legs []models.StrategyLeg) models.ValidationResult {
	res := models.ValidationResult{StrategyName: name, Errors: []string{}, Warnings: []string{}}

	def, ok := Lookup(name)
	if !ok {
		res.AddError("unknown strategy %q", name)
		logging.LogValidation(v.logger, name, false, len(res.Errors), 0)
		return res
	}
	res.StrategyName = def.Name

	c := &check{res: &res, legs: sortedLegs(legs)}
	if c.structure(def) {
		def.rule(c)
	}
	if len(res.Errors) > 0 {
		// Structural failures never carry economics.
		res.MaxProfit, res.MaxLoss, res.BreakEvenPoints = nil, nil, nil
		res.NetDebit, res.NetCredit = 0, 0
	}
	res.IsValid = len(res.Errors) == 0
	sort.Float64s(res.BreakEvenPoints)

	logging.LogValidation(v.logger, def.Name, res.IsValid, len(res.Errors), len(res.Warnings))
	return res
}

// sortedLegs copies legs ordered by strike, calls before puts at a tie.
func sortedLegs(legs []models.StrategyLeg) []models.StrategyLeg {
	out := make([]models.StrategyLeg, len(legs))
	copy(out, legs)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Contract.Strike != out[j].Contract.Strike {
			return out[i].Contract.Strike < out[j].Contract.Strike
		}
		return out[i].Contract.Type < out[j].Contract.Type
	})
	return out
}
