package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	apperrors "optionsim/internal/errors"
	"optionsim/internal/greeks"
	"optionsim/internal/models"
	"optionsim/internal/payoff"
	"optionsim/internal/pricing"
)

// addPricingCommands adds single-contract pricing and Greeks commands.
func addPricingCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newPriceCmd(app))
	rootCmd.AddCommand(newGreeksCmd(app))
	rootCmd.AddCommand(newScenarioCmd(app))
	rootCmd.AddCommand(newSweepCmd(app))
}

func addContractFlags(cmd *cobra.Command) {
	cmd.Flags().Float64P("spot", "s", 0, "underlying price (required)")
	cmd.Flags().Float64P("strike", "k", 0, "strike price (required)")
	cmd.Flags().StringP("type", "t", "call", "contract type: call or put")
	cmd.Flags().Float64("premium", 0, "last traded option price")
	cmd.Flags().Float64("iv", 0, "implied volatility as a decimal (0.25 = 25%)")
	addExpiryFlags(cmd)
	cmd.MarkFlagRequired("spot")
	cmd.MarkFlagRequired("strike")
}

// contractFromFlags builds the contract and spot shared by the Greeks commands.
func contractFromFlags(cmd *cobra.Command) (models.OptionContract, float64, error) {
	spot, _ := cmd.Flags().GetFloat64("spot")
	strike, _ := cmd.Flags().GetFloat64("strike")
	typeStr, _ := cmd.Flags().GetString("type")
	premium, _ := cmd.Flags().GetFloat64("premium")
	iv, _ := cmd.Flags().GetFloat64("iv")
	underlying, _ := cmd.Flags().GetString("underlying")

	if spot <= 0 {
		return models.OptionContract{}, 0, apperrors.NewValidationError("spot", spot, "must be positive")
	}
	typ, err := models.ParseContractType(typeStr)
	if err != nil {
		return models.OptionContract{}, 0, apperrors.NewValidationError("type", typeStr, err.Error())
	}
	expiration, err := expirationFromFlags(cmd)
	if err != nil {
		return models.OptionContract{}, 0, err
	}

	c := models.OptionContract{
		UnderlyingTicker:  underlying,
		Strike:            strike,
		Expiration:        expiration,
		Type:              typ,
		LastPrice:         premium,
		ImpliedVolatility: iv,
	}
	if err := c.Validate(); err != nil {
		return models.OptionContract{}, 0, apperrors.NewValidationError("contract", c.Label(), err.Error())
	}
	return c, spot, nil
}

func newPriceCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "price",
		Short: "Black-Scholes price and Greeks for raw inputs",
		Long: `Price a European option from the five model inputs.

With --market the implied volatility is solved from the quoted price and used
for the Greeks. Expired or zero-volatility inputs are valued at intrinsic.`,
		Example: `  optionsim price --spot 100 --strike 100 --years 1 --vol 0.2
  optionsim price -s 100 -k 105 -t put --days 45 --market 7.10`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			spot, _ := cmd.Flags().GetFloat64("spot")
			strike, _ := cmd.Flags().GetFloat64("strike")
			typeStr, _ := cmd.Flags().GetString("type")
			years, _ := cmd.Flags().GetFloat64("years")
			vol, _ := cmd.Flags().GetFloat64("vol")
			market, _ := cmd.Flags().GetFloat64("market")

			typ, err := models.ParseContractType(typeStr)
			if err != nil {
				return apperrors.NewValidationError("type", typeStr, err.Error())
			}
			if !cmd.Flags().Changed("years") {
				expiration, err := expirationFromFlags(cmd)
				if err != nil {
					return err
				}
				years = app.Service.Greeks().TimeToExpiry(expiration)
			}
			rate := app.Config.Pricing.RiskFreeRate
			if cmd.Flags().Changed("rate") {
				rate, _ = cmd.Flags().GetFloat64("rate")
			}

			in := pricing.Inputs{
				Spot:         spot,
				Strike:       strike,
				TimeToExpiry: years,
				RiskFreeRate: rate,
				Volatility:   vol,
				IsCall:       typ == models.Call,
			}

			solved := false
			switch {
			case market > 0:
				iv, err := pricing.ImpliedVolatility(in, market)
				if err != nil {
					return err
				}
				in.Volatility = iv
				solved = true
			case vol == 0:
				in.Volatility = app.Config.Pricing.DefaultVolatility
			}

			res, err := app.Service.Price(in)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"spot":           in.Spot,
					"strike":         in.Strike,
					"type":           typ,
					"years":          in.TimeToExpiry,
					"rate":           in.RiskFreeRate,
					"volatility":     in.Volatility,
					"iv_from_market": solved,
					"intrinsic":      in.Degenerate(),
					"price":          res.Price,
					"delta":          res.Delta,
					"gamma":          res.Gamma,
					"theta":          res.Theta,
					"vega":           res.Vega,
					"rho":            res.Rho,
				})
			}

			output.Bold("%s %s, spot %s", FormatPrice(strike), typ, FormatPrice(spot))
			output.Field("Time to expiry", fmt.Sprintf("%.4f years", in.TimeToExpiry))
			output.Field("Rate", FormatIV(in.RiskFreeRate))
			if solved {
				output.Field("Implied vol", FormatIV(in.Volatility)+" (from market "+FormatPrice(market)+")")
			} else {
				output.Field("Volatility", FormatIV(in.Volatility))
			}
			output.Println()
			printResult(output, res)
			if in.Degenerate() {
				output.Dim("Degenerate inputs: valued at intrinsic")
			}
			return nil
		},
	}

	cmd.Flags().Float64P("spot", "s", 0, "underlying price (required)")
	cmd.Flags().Float64P("strike", "k", 0, "strike price (required)")
	cmd.Flags().StringP("type", "t", "call", "contract type: call or put")
	cmd.Flags().Float64("years", 0, "time to expiry in years (overrides --expiration/--days)")
	cmd.Flags().Float64("vol", 0, "volatility as a decimal (default from config)")
	cmd.Flags().Float64("rate", 0, "risk-free rate (default from config)")
	cmd.Flags().Float64("market", 0, "market price; solve implied volatility from it")
	addExpiryFlags(cmd)
	cmd.MarkFlagRequired("spot")
	cmd.MarkFlagRequired("strike")
	return cmd
}

func printResult(output *Output, r pricing.Result) {
	output.Field("Price", FormatPrice(r.Price))
	output.Field("Delta", fmt.Sprintf("%.4f", r.Delta))
	output.Field("Gamma", fmt.Sprintf("%.4f", r.Gamma))
	output.Field("Theta (per day)", fmt.Sprintf("%.4f", r.Theta))
	output.Field("Vega (per 1%)", fmt.Sprintf("%.4f", r.Vega))
	output.Field("Rho (per 1%)", fmt.Sprintf("%.4f", r.Rho))
}

func printGreeks(output *Output, out greeks.Outcome) {
	d := out.Data
	output.Field("Theoretical price", FormatPrice(d.TheoreticalPrice))
	output.Field("Implied vol", FormatIV(d.ImpliedVolatility))
	output.Field("Delta", fmt.Sprintf("%.4f", d.Delta))
	output.Field("Gamma", fmt.Sprintf("%.4f", d.Gamma))
	output.Field("Theta (per day)", fmt.Sprintf("%.4f", d.Theta))
	output.Field("Vega (per 1%)", fmt.Sprintf("%.4f", d.Vega))
	output.Field("Rho (per 1%)", fmt.Sprintf("%.4f", d.Rho))
	if out.Degraded() {
		output.Warning("  ! pricing failed (%s); showing cached Greeks", out.Reason)
	}
}

// outcomeJSON is the wire form of a Greeks outcome.
type outcomeJSON struct {
	Contract string            `json:"contract"`
	Spot     float64           `json:"spot"`
	Status   string            `json:"status"`
	Reason   string            `json:"reason,omitempty"`
	Greeks   models.GreeksData `json:"greeks"`
}

func toOutcomeJSON(c models.OptionContract, spot float64, out greeks.Outcome) outcomeJSON {
	return outcomeJSON{
		Contract: c.Label(),
		Spot:     spot,
		Status:   out.Status.String(),
		Reason:   out.Reason,
		Greeks:   out.Data,
	}
}

func newGreeksCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "greeks",
		Short: "Greeks for one contract",
		Long: `Compute Greeks for one contract at the given spot.

Volatility comes from --iv, else the configured default is used. With
solve_missing_iv set in the config it is solved from --premium first.`,
		Example: `  optionsim greeks -s 100 -k 100 --days 30 --iv 0.25
  optionsim greeks -s 100 -k 95 -t put -e 2026-12-18 --premium 3.40`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			c, spot, err := contractFromFlags(cmd)
			if err != nil {
				return err
			}

			out := app.Service.ContractGreeks(c, spot)
			if output.IsJSON() {
				return output.JSON(toOutcomeJSON(c, spot, out))
			}

			output.Bold("%s at %s", c.Label(), FormatPrice(spot))
			output.Field("Days to expiry", fmt.Sprintf("%.1f", app.Service.Greeks().TimeToExpiry(c.Expiration)*365))
			printGreeks(output, out)
			return nil
		},
	}
	addContractFlags(cmd)
	return cmd
}

func newScenarioCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "scenario",
		Short:   "What-if Greeks under a price, volatility and time shock",
		Example: `  optionsim scenario -s 100 -k 100 --iv 0.3 --price-change 5 --vol-change -10 --days-passed 7`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			c, spot, err := contractFromFlags(cmd)
			if err != nil {
				return err
			}

			var sc greeks.Scenario
			sc.PriceChangePct, _ = cmd.Flags().GetFloat64("price-change")
			sc.VolChangePct, _ = cmd.Flags().GetFloat64("vol-change")
			sc.DaysPassed, _ = cmd.Flags().GetFloat64("days-passed")

			base := app.Service.ContractGreeks(c, spot)
			shocked := app.Service.ScenarioGreeks(c, spot, sc)

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"scenario": sc,
					"base":     toOutcomeJSON(c, spot, base),
					"shocked":  toOutcomeJSON(c, spot*(1+sc.PriceChangePct/100), shocked),
				})
			}

			output.Bold("%s: spot %+.1f%%, vol %+.1f%%, %g days later", c.Label(), sc.PriceChangePct, sc.VolChangePct, sc.DaysPassed)
			table := NewTable(output, "", "Base", "Scenario", "Change")
			row := func(name string, a, b float64, format string) {
				table.AddRow(name, fmt.Sprintf(format, a), fmt.Sprintf(format, b), fmt.Sprintf("%+"+format[1:], b-a))
			}
			row("Price", base.Data.TheoreticalPrice, shocked.Data.TheoreticalPrice, "%.2f")
			row("Delta", base.Data.Delta, shocked.Data.Delta, "%.4f")
			row("Gamma", base.Data.Gamma, shocked.Data.Gamma, "%.4f")
			row("Theta", base.Data.Theta, shocked.Data.Theta, "%.4f")
			row("Vega", base.Data.Vega, shocked.Data.Vega, "%.4f")
			row("Rho", base.Data.Rho, shocked.Data.Rho, "%.4f")
			table.Render()

			if base.Degraded() || shocked.Degraded() {
				output.Warning("! pricing fell back to cached Greeks")
			}
			return nil
		},
	}
	addContractFlags(cmd)
	cmd.Flags().Float64("price-change", 0, "spot change in percent")
	cmd.Flags().Float64("vol-change", 0, "relative volatility change in percent")
	cmd.Flags().Float64("days-passed", 0, "calendar days of time decay")
	return cmd
}

func newSweepCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Greeks across a range of spot prices",
		Example: `  optionsim sweep -s 100 -k 100 --iv 0.25
  optionsim sweep -s 100 -k 100 --min 80 --max 120 --steps 8 --csv sweep.csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			c, spot, err := contractFromFlags(cmd)
			if err != nil {
				return err
			}

			var r greeks.SweepRange
			r.Min, _ = cmd.Flags().GetFloat64("min")
			r.Max, _ = cmd.Flags().GetFloat64("max")
			r.Steps, _ = cmd.Flags().GetInt("steps")
			if r.Min == 0 && r.Max == 0 {
				def := app.Service.Greeks().DefaultSweepRange(spot)
				r.Min, r.Max = def.Min, def.Max
				if r.Steps == 0 {
					r.Steps = def.Steps
				}
			}

			points, err := app.Service.SensitivitySweep(c, spot, r, time.Now())
			if err != nil {
				return err
			}

			if path, _ := cmd.Flags().GetString("csv"); path != "" {
				if err := payoff.ExportCSV(path, &points); err != nil {
					return err
				}
				if !output.IsJSON() {
					output.Success("Wrote %d rows to %s", len(points), path)
				}
			}
			if output.IsJSON() {
				return output.JSON(points)
			}

			output.Bold("%s sensitivity", c.Label())
			table := NewTable(output, "Spot", "Delta", "Gamma", "Theta", "Vega")
			for _, p := range points {
				table.AddRow(
					FormatPrice(p.Price),
					strconv.FormatFloat(p.Delta, 'f', 4, 64),
					strconv.FormatFloat(p.Gamma, 'f', 4, 64),
					strconv.FormatFloat(p.Theta, 'f', 4, 64),
					strconv.FormatFloat(p.Vega, 'f', 4, 64),
				)
			}
			table.Render()
			return nil
		},
	}
	addContractFlags(cmd)
	cmd.Flags().Float64("min", 0, "lowest spot (default from config)")
	cmd.Flags().Float64("max", 0, "highest spot (default from config)")
	cmd.Flags().Int("steps", 0, "intervals between min and max (default from config)")
	cmd.Flags().String("csv", "", "also write the sweep to a CSV file")
	return cmd
}
