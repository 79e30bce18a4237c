// Package models provides the value types shared by the analytics engine.
package models

import (
	"encoding/json"
	"fmt"
	"math"
)

// SharesPerContract is the standard equity option multiplier.
const SharesPerContract = 100.0

// Bound is a profit or loss figure that may be unlimited.
// Loss bounds are stored as positive magnitudes.
type Bound struct {
	Value     float64
	Unbounded bool
}

// Bounded returns a finite bound.
func Bounded(v float64) Bound {
	return Bound{Value: v}
}

// Unlimited returns an unbounded bound.
func Unlimited() Bound {
	return Bound{Unbounded: true}
}

// Float64 returns the bound as a float, +Inf when unbounded.
func (b Bound) Float64() float64 {
	if b.Unbounded {
		return math.Inf(1)
	}
	return b.Value
}

func (b Bound) String() string {
	if b.Unbounded {
		return "unlimited"
	}
	return fmt.Sprintf("%.2f", b.Value)
}

// MarshalJSON encodes unbounded values as the string "unlimited".
func (b Bound) MarshalJSON() ([]byte, error) {
	if b.Unbounded {
		return json.Marshal("unlimited")
	}
	return json.Marshal(b.Value)
}

// ValidationResult is the outcome of a structural strategy check.
// Profit and loss fields are only populated when IsValid is true, and
// MaxProfit/MaxLoss stay nil when the shape has no closed form.
type ValidationResult struct {
	StrategyName    string    `json:"strategy_name"`
	IsValid         bool      `json:"is_valid"`
	Errors          []string  `json:"errors"`
	Warnings        []string  `json:"warnings"`
	MaxProfit       *Bound    `json:"max_profit,omitempty"`
	MaxLoss         *Bound    `json:"max_loss,omitempty"`
	BreakEvenPoints []float64 `json:"break_even_points,omitempty"`
	NetDebit        float64   `json:"net_debit,omitempty"`
	NetCredit       float64   `json:"net_credit,omitempty"`
}

// AddError records a blocking error.
func (r *ValidationResult) AddError(format string, args ...interface{}) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// AddWarning records a non-blocking advisory.
func (r *ValidationResult) AddWarning(format string, args ...interface{}) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// PayoffPoint is one sample of a payoff curve.
type PayoffPoint struct {
	Price  float64 `json:"price" csv:"price"`
	Profit float64 `json:"profit" csv:"profit"`
}

// StrategyPayoff is a sampled expiry payoff curve.
type StrategyPayoff struct {
	StrategyName    string        `json:"strategy_name"`
	Points          []PayoffPoint `json:"points"`
	MaxProfit       Bound         `json:"max_profit"`
	MaxLoss         Bound         `json:"max_loss"`
	BreakEvenPoints []float64     `json:"break_even_points"`
}

// RiskLevel classifies the share of the account a sizing commits.
type RiskLevel string

const (
	RiskSafe      RiskLevel = "SAFE"
	RiskModerate  RiskLevel = "MODERATE"
	RiskHigh      RiskLevel = "HIGH"
	RiskExcessive RiskLevel = "EXCESSIVE"
)

// ContractRecommendation holds contract counts at each Kelly fraction.
type ContractRecommendation struct {
	Full    int `json:"full"`
	Half    int `json:"half"`
	Quarter int `json:"quarter"`
}

// KellyCalculationResult is the output of the position sizer.
type KellyCalculationResult struct {
	KellyPercentage      float64                `json:"kelly_percentage"`
	RecommendedContracts ContractRecommendation `json:"recommended_contracts"`
	RiskLevel            RiskLevel              `json:"risk_level"`
	Warnings             []string               `json:"warnings"`
	WinRate              float64                `json:"win_rate"`
	AverageWin           float64                `json:"average_win"`
	AverageLoss          float64                `json:"average_loss"`
	CapitalPerContract   float64                `json:"capital_per_contract"`
	DefaultsUsed         bool                   `json:"defaults_used"`
}
