// Package sizing recommends position sizes with the Kelly criterion.
package sizing

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"

	apperrors "optionsim/internal/errors"
	"optionsim/internal/logging"
	"optionsim/internal/models"
)

// Config holds sizing thresholds and the fallback statistics used when
// the trade history is too short to trust.
type Config struct {
	MinTrades      int
	DefaultWinRate float64
	DefaultAvgWin  float64
	DefaultAvgLoss float64
	SafePct        float64
	ModeratePct    float64
	HighPct        float64
}

// DefaultConfig returns conservative sizing defaults.
func DefaultConfig() Config {
	return Config{
		MinTrades:      10,
		DefaultWinRate: 0.55,
		DefaultAvgWin:  150,
		DefaultAvgLoss: 100,
		SafePct:        10,
		ModeratePct:    25,
		HighPct:        50,
	}
}

// Input is one sizing request.
type Input struct {
	Stats              models.TradeStats
	AccountBalance     float64
	CapitalPerContract float64
	// RequestedContracts is optional; when set it is checked against the
	// full-Kelly recommendation.
	RequestedContracts int
}

// Sizer computes Kelly recommendations.
type Sizer struct {
	cfg    Config
	logger zerolog.Logger
}

// NewSizer creates a position sizer.
func NewSizer(cfg Config, logger zerolog.Logger) *Sizer {
	return &Sizer{cfg: cfg, logger: logging.WithOperation(logger, "size")}
}

// KellyFraction returns f* = p - (1-p)/(avgWin/avgLoss) clamped to [0, 1].
// A negative edge reports 0 and a history without losses reports 1.
func KellyFraction(winRate, avgWin, avgLoss float64) float64 {
	switch {
	case winRate >= 1 && avgWin > 0:
		return 1
	case winRate <= 0 || avgWin <= 0 || avgLoss <= 0:
		return 0
	}
	f := winRate - (1-winRate)/(avgWin/avgLoss)
	if math.IsNaN(f) {
		return 0
	}
	return math.Max(0, math.Min(1, f))
}

// Size returns contract counts at full, half and quarter Kelly.
func (s *Sizer) Size(in Input) (models.KellyCalculationResult, error) {
	if in.AccountBalance <= 0 || math.IsNaN(in.AccountBalance) {
		return models.KellyCalculationResult{}, apperrors.NewValidationError("account_balance", in.AccountBalance, "must be positive")
	}
	if in.CapitalPerContract <= 0 || math.IsNaN(in.CapitalPerContract) || math.IsInf(in.CapitalPerContract, 0) {
		return models.KellyCalculationResult{}, apperrors.NewValidationError("capital_per_contract", in.CapitalPerContract, "must be positive and finite")
	}

	res := models.KellyCalculationResult{Warnings: []string{}, CapitalPerContract: in.CapitalPerContract}
	st := in.Stats
	if st.TradeCount < s.cfg.MinTrades {
		res.DefaultsUsed = true
		res.Warnings = append(res.Warnings, fmt.Sprintf(
			"only %d trades in history (need %d); using default win rate %.0f%%, average win %.2f, average loss %.2f",
			st.TradeCount, s.cfg.MinTrades, s.cfg.DefaultWinRate*100, s.cfg.DefaultAvgWin, s.cfg.DefaultAvgLoss))
		st.WinRate, st.AverageWin, st.AverageLoss = s.cfg.DefaultWinRate, s.cfg.DefaultAvgWin, s.cfg.DefaultAvgLoss
	} else if invalidStats(st) {
		return models.KellyCalculationResult{}, apperrors.Wrapf(apperrors.ErrInvalidStats,
			"win rate %.4f, average win %.2f, average loss %.2f", st.WinRate, st.AverageWin, st.AverageLoss)
	}
	res.WinRate, res.AverageWin, res.AverageLoss = st.WinRate, st.AverageWin, st.AverageLoss

	f := KellyFraction(st.WinRate, st.AverageWin, st.AverageLoss)
	res.KellyPercentage = f

	full := int(math.Floor(f * in.AccountBalance / in.CapitalPerContract))
	res.RecommendedContracts = models.ContractRecommendation{
		Full:    full,
		Half:    full / 2,
		Quarter: full / 4,
	}

	committed := float64(full) * in.CapitalPerContract / in.AccountBalance * 100
	res.RiskLevel = s.classify(committed)

	switch {
	case f == 0:
		res.Warnings = append(res.Warnings, "no positive edge: Kelly fraction is zero, do not trade this setup")
	case full == 0:
		res.Warnings = append(res.Warnings, fmt.Sprintf(
			"capital per contract %.2f exceeds the Kelly allocation of %.2f", in.CapitalPerContract, f*in.AccountBalance))
	}
	if w := s.riskWarning(res.RiskLevel, committed); w != "" {
		res.Warnings = append(res.Warnings, w)
	}
	if in.RequestedContracts > full {
		res.Warnings = append(res.Warnings, fmt.Sprintf(
			"requested %d contracts exceeds the full-Kelly recommendation of %d", in.RequestedContracts, full))
	}

	logging.LogSizing(s.logger, f, full, string(res.RiskLevel), res.DefaultsUsed)
	return res, nil
}

func invalidStats(st models.TradeStats) bool {
	if st.WinRate < 0 || st.WinRate > 1 || math.IsNaN(st.WinRate) || st.AverageWin < 0 || st.AverageLoss < 0 {
		return true
	}
	// Averages may only be zero when the history has no trades of that kind.
	return (st.AverageWin == 0 && st.WinRate > 0) || (st.AverageLoss == 0 && st.WinRate < 1)
}

func (s *Sizer) classify(pct float64) models.RiskLevel {
	switch {
	case pct <= s.cfg.SafePct:
		return models.RiskSafe
	case pct <= s.cfg.ModeratePct:
		return models.RiskModerate
	case pct <= s.cfg.HighPct:
		return models.RiskHigh
	default:
		return models.RiskExcessive
	}
}

func (s *Sizer) riskWarning(level models.RiskLevel, pct float64) string {
	switch level {
	case models.RiskModerate:
		return fmt.Sprintf("full Kelly commits %.1f%% of the account; consider half Kelly", pct)
	case models.RiskHigh:
		return fmt.Sprintf("full Kelly commits %.1f%% of the account; half or quarter Kelly recommended", pct)
	case models.RiskExcessive:
		return fmt.Sprintf("full Kelly commits %.1f%% of the account; this is excessive, use quarter Kelly at most", pct)
	}
	return ""
}

// CapitalPerContract is the cash one unit of the strategy puts at risk.
// A bounded max loss from validation is preferred; otherwise the absolute
// net premium is used. Both are divided by the smallest leg quantity so
// the figure is per unit of the position.
func CapitalPerContract(legs []models.StrategyLeg, validation *models.ValidationResult) float64 {
	if len(legs) == 0 {
		return 0
	}
	unit := legs[0].Quantity
	for _, l := range legs[1:] {
		if l.Quantity < unit {
			unit = l.Quantity
		}
	}
	if unit <= 0 {
		return 0
	}

	if validation != nil && validation.IsValid && validation.MaxLoss != nil &&
		!validation.MaxLoss.Unbounded && validation.MaxLoss.Value > 0 {
		return validation.MaxLoss.Value / float64(unit)
	}

	var net float64
	for _, l := range legs {
		net += l.Sign() * l.Contract.LastPrice * float64(l.Quantity)
	}
	return math.Abs(net) * models.SharesPerContract / float64(unit)
}
