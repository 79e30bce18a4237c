package cli

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	apperrors "optionsim/internal/errors"
	"optionsim/internal/models"
	"optionsim/internal/strategy"
)

// legFile is the YAML layout accepted by --legs:
//
//	strategy: Bull Call Spread
//	underlying: SPY
//	expiration: 2026-12-18
//	spot: 100
//	legs:
//	  - {action: buy, type: call, strike: 95, premium: 6}
//	  - {action: sell, type: call, strike: 105, premium: 2}
type legFile struct {
	Strategy   string    `yaml:"strategy"`
	Underlying string    `yaml:"underlying"`
	Expiration string    `yaml:"expiration"`
	Spot       float64   `yaml:"spot"`
	Legs       []legSpec `yaml:"legs"`
}

type legSpec struct {
	Action       string      `yaml:"action"`
	Type         string      `yaml:"type"`
	Strike       float64     `yaml:"strike"`
	Premium      float64     `yaml:"premium"`
	Quantity     *int        `yaml:"quantity"`
	IV           float64     `yaml:"iv"`
	Expiration   string      `yaml:"expiration"`
	Ticker       string      `yaml:"ticker"`
	Volume       int64       `yaml:"volume"`
	OpenInterest int64       `yaml:"open_interest"`
	Greeks       *greeksSpec `yaml:"greeks"`
}

type greeksSpec struct {
	Delta float64 `yaml:"delta"`
	Gamma float64 `yaml:"gamma"`
	Theta float64 `yaml:"theta"`
	Vega  float64 `yaml:"vega"`
	Rho   float64 `yaml:"rho"`
}

// legSet is a parsed strategy input.
type legSet struct {
	Strategy string
	Spot     float64
	Legs     []models.StrategyLeg
}

func (s legSpec) toLeg(underlying string, expiration time.Time) (models.StrategyLeg, error) {
	action, err := models.ParseAction(s.Action)
	if err != nil {
		return models.StrategyLeg{}, err
	}
	typ, err := models.ParseContractType(s.Type)
	if err != nil {
		return models.StrategyLeg{}, err
	}
	if s.Expiration != "" {
		if expiration, err = models.ParseExpiration(s.Expiration); err != nil {
			return models.StrategyLeg{}, err
		}
	}
	qty := 1
	if s.Quantity != nil {
		if *s.Quantity <= 0 {
			return models.StrategyLeg{}, apperrors.NewValidationError("quantity", *s.Quantity, "must be a positive whole number")
		}
		qty = *s.Quantity
	}

	c := models.OptionContract{
		UnderlyingTicker:  strings.ToUpper(underlying),
		Ticker:            s.Ticker,
		Strike:            s.Strike,
		Expiration:        expiration,
		Type:              typ,
		LastPrice:         s.Premium,
		ImpliedVolatility: s.IV,
		Volume:            s.Volume,
		OpenInterest:      s.OpenInterest,
	}
	if s.Greeks != nil {
		c.CachedGreeks = models.OptionGreeks(*s.Greeks)
	}
	return models.StrategyLeg{Contract: c, Action: action, Quantity: qty}, nil
}

// parseLegFile decodes a YAML leg set. Legs without their own expiration
// use the file's, then fallback.
func parseLegFile(data []byte, fallback time.Time) (legSet, error) {
	var f legFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return legSet{}, apperrors.NewValidationError("legs", "yaml", err.Error())
	}

	expiration := fallback
	if f.Expiration != "" {
		var err error
		if expiration, err = models.ParseExpiration(f.Expiration); err != nil {
			return legSet{}, apperrors.NewValidationError("expiration", f.Expiration, err.Error())
		}
	}

	set := legSet{Strategy: f.Strategy, Spot: f.Spot}
	for i, s := range f.Legs {
		leg, err := s.toLeg(f.Underlying, expiration)
		if err != nil {
			return legSet{}, apperrors.NewValidationError(fmt.Sprintf("legs[%d]", i), s, err.Error())
		}
		set.Legs = append(set.Legs, leg)
	}
	return set, nil
}

// parseLegSpec reads an inline leg: "action:type:strike:premium[:qty[:iv]]".
// Spaces work as separators too.
func parseLegSpec(spec, underlying string, expiration time.Time) (models.StrategyLeg, error) {
	fields := strings.FieldsFunc(spec, func(r rune) bool { return r == ':' || r == ' ' })
	if len(fields) < 4 || len(fields) > 6 {
		return models.StrategyLeg{}, apperrors.NewValidationError("leg", spec, "want action:type:strike:premium[:qty[:iv]]")
	}

	nums := make([]float64, len(fields)-2)
	for i, f := range fields[2:] {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return models.StrategyLeg{}, apperrors.NewValidationError("leg", spec, fmt.Sprintf("%q is not a number", f))
		}
		nums[i] = v
	}

	s := legSpec{Action: fields[0], Type: fields[1], Strike: nums[0], Premium: nums[1]}
	if len(nums) > 2 {
		if nums[2] != math.Trunc(nums[2]) || nums[2] <= 0 || nums[2] > math.MaxInt32 {
			return models.StrategyLeg{}, apperrors.NewValidationError("leg", spec, fmt.Sprintf("quantity %s must be a positive whole number", fields[4]))
		}
		qty := int(nums[2])
		s.Quantity = &qty
	}
	if len(nums) > 3 {
		s.IV = nums[3]
	}
	leg, err := s.toLeg(underlying, expiration)
	if err != nil {
		return models.StrategyLeg{}, apperrors.NewValidationError("leg", spec, err.Error())
	}
	return leg, nil
}

func addLegFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("legs", "l", "", "YAML file describing the legs")
	cmd.Flags().StringArray("leg", nil, "inline leg action:type:strike:premium[:qty[:iv]] (repeatable)")
	addExpiryFlags(cmd)
}

func addExpiryFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("underlying", "u", "XYZ", "underlying ticker")
	cmd.Flags().StringP("expiration", "e", "", "expiration date YYYY-MM-DD")
	cmd.Flags().Int("days", 30, "days to expiration when --expiration is not given")
}

// expirationFromFlags resolves --expiration, else today plus --days.
func expirationFromFlags(cmd *cobra.Command) (time.Time, error) {
	if s, _ := cmd.Flags().GetString("expiration"); s != "" {
		t, err := models.ParseExpiration(s)
		if err != nil {
			return time.Time{}, apperrors.NewValidationError("expiration", s, err.Error())
		}
		return t, nil
	}
	days, _ := cmd.Flags().GetInt("days")
	today := time.Now().UTC().Truncate(24 * time.Hour)
	return today.AddDate(0, 0, days), nil
}

// legsFromFlags loads legs from --legs or the repeated --leg flag.
func legsFromFlags(cmd *cobra.Command) (legSet, error) {
	expiration, err := expirationFromFlags(cmd)
	if err != nil {
		return legSet{}, err
	}
	underlying, _ := cmd.Flags().GetString("underlying")

	if path, _ := cmd.Flags().GetString("legs"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return legSet{}, apperrors.Wrapf(apperrors.ErrInvalidInput, "reading %s: %v", path, err)
		}
		return parseLegFile(data, expiration)
	}

	specs, _ := cmd.Flags().GetStringArray("leg")
	if len(specs) == 0 {
		return legSet{}, apperrors.Wrap(apperrors.ErrNoLegs, "use --legs <file> or --leg")
	}
	var set legSet
	for _, spec := range specs {
		leg, err := parseLegSpec(spec, underlying, expiration)
		if err != nil {
			return legSet{}, err
		}
		set.Legs = append(set.Legs, leg)
	}
	return set, nil
}

// strategyName picks the positional name, then the file's, then Custom.
func strategyName(args []string, set legSet) string {
	if len(args) > 0 && args[0] != "" {
		return strings.Join(args, " ")
	}
	if set.Strategy != "" {
		return set.Strategy
	}
	return strategy.Custom
}
