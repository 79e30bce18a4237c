package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"optionsim/internal/analytics"
	apperrors "optionsim/internal/errors"
	"optionsim/internal/models"
	"optionsim/internal/payoff"
	"optionsim/internal/strategy"
)

// addStrategyCommands adds strategy validation, payoff and analysis commands.
func addStrategyCommands(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:   "strategy",
		Short: "Named strategy catalogue and validation",
	}
	cmd.AddCommand(newStrategyListCmd())
	cmd.AddCommand(newStrategyValidateCmd(app))

	rootCmd.AddCommand(cmd)
	rootCmd.AddCommand(newPayoffCmd(app))
	rootCmd.AddCommand(newAnalyzeCmd(app))
}

func newStrategyListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List supported strategies",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			defs := strategy.Supported()
			if output.IsJSON() {
				output.JSON(defs)
				return
			}

			output.Bold("Supported strategies")
			table := NewTable(output, "Name", "Legs", "Description")
			for _, d := range defs {
				table.AddRow(d.Name, d.LegCount(), TruncateString(d.Description, 70))
			}
			table.Render()
			output.Dim("Any other name is analysed as %q by sampling the payoff.", strategy.Custom)
		},
	}
}

func newStrategyValidateCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <name>",
		Short: "Check a leg set against a named strategy",
		Example: `  optionsim strategy validate "Bull Call Spread" --leg buy:call:95:6 --leg sell:call:105:2
  optionsim strategy validate --legs condor.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			set, err := legsFromFlags(cmd)
			if err != nil {
				return err
			}
			name := strategyName(args, set)
			if _, ok := strategy.Lookup(name); !ok {
				return apperrors.Wrapf(apperrors.ErrUnknownStrategy, "%q (see 'optionsim strategy list')", name)
			}

			res := app.Service.ValidateStrategy(name, set.Legs)
			if output.IsJSON() {
				return output.JSON(res)
			}

			printLegs(output, set.Legs)
			printValidation(output, res)
			if !res.IsValid {
				return fmt.Errorf("%s: %d validation error(s)", res.StrategyName, len(res.Errors))
			}
			return nil
		},
	}
	addLegFlags(cmd)
	return cmd
}

func printLegs(output *Output, legs []models.StrategyLeg) {
	output.Bold("Legs")
	for _, l := range legs {
		output.Printf("  %s\n", FormatLeg(l))
	}
	output.Println()
}

func printValidation(output *Output, res models.ValidationResult) {
	if res.IsValid {
		output.Success("%s: valid", res.StrategyName)
	} else {
		output.Error("%s: invalid", res.StrategyName)
		for _, e := range res.Errors {
			output.Error("  x %s", e)
		}
	}

	if res.IsValid {
		switch {
		case res.NetDebit != 0:
			output.Field("Net debit", FormatPrice(res.NetDebit))
		case res.NetCredit != 0:
			output.Field("Net credit", FormatPrice(res.NetCredit))
		}
		output.Field("Max profit", FormatBound(res.MaxProfit))
		output.Field("Max loss", FormatBound(res.MaxLoss))
		output.Field("Break-even", FormatBreakEvens(res.BreakEvenPoints))
	}
	output.Warnings(res.Warnings)
}

// gridFromFlags reads --min/--max/--steps; all zero means the configured grid.
func gridFromFlags(cmd *cobra.Command) payoff.GridSpec {
	var g payoff.GridSpec
	g.Min, _ = cmd.Flags().GetFloat64("min")
	g.Max, _ = cmd.Flags().GetFloat64("max")
	g.Steps, _ = cmd.Flags().GetInt("steps")
	return g
}

func addGridFlags(cmd *cobra.Command) {
	cmd.Flags().Float64P("spot", "s", 0, "current underlying price")
	cmd.Flags().Float64("min", 0, "lowest price on the grid (default from config)")
	cmd.Flags().Float64("max", 0, "highest price on the grid (default from config)")
	cmd.Flags().Int("steps", 0, "grid intervals (default from config)")
}

func spotFromFlags(cmd *cobra.Command, set legSet) float64 {
	if cmd.Flags().Changed("spot") {
		spot, _ := cmd.Flags().GetFloat64("spot")
		return spot
	}
	return set.Spot
}

func newPayoffCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "payoff [name]",
		Short: "Sample the expiry P&L of a leg set",
		Example: `  optionsim payoff --spot 100 --leg buy:call:100:3 --leg buy:put:100:2.5
  optionsim payoff --legs condor.yaml --min 80 --max 120 --steps 40 --csv condor.csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			set, err := legsFromFlags(cmd)
			if err != nil {
				return err
			}

			curve, err := app.Service.Payoff(strategyName(args, set), set.Legs, spotFromFlags(cmd, set), gridFromFlags(cmd))
			if err != nil {
				return err
			}

			if path, _ := cmd.Flags().GetString("csv"); path != "" {
				if err := payoff.ExportCSV(path, &curve.Points); err != nil {
					return err
				}
				if !output.IsJSON() {
					output.Success("Wrote %d rows to %s", len(curve.Points), path)
				}
			}
			if output.IsJSON() {
				return output.JSON(curve)
			}

			output.Bold("%s payoff at expiry", curve.StrategyName)
			every, _ := cmd.Flags().GetInt("every")
			printCurve(output, curve.Points, every)
			output.Println()
			output.Field("Max profit", FormatBound(&curve.MaxProfit))
			output.Field("Max loss", FormatBound(&curve.MaxLoss))
			output.Field("Break-even", FormatBreakEvens(curve.BreakEvenPoints))
			return nil
		},
	}
	addLegFlags(cmd)
	addGridFlags(cmd)
	cmd.Flags().Int("every", 10, "print every Nth grid point")
	cmd.Flags().String("csv", "", "also write the curve to a CSV file")
	return cmd
}

func printCurve(output *Output, points []models.PayoffPoint, every int) {
	if every < 1 {
		every = 1
	}
	table := NewTable(output, "Price", "P&L")
	for i, p := range points {
		if i%every != 0 && i != len(points)-1 {
			continue
		}
		table.AddRow(FormatPrice(p.Price), output.FormatPnL(p.Profit))
	}
	table.Render()
}

func newAnalyzeCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze [name]",
		Short: "Validate, price and sample a strategy in one pass",
		Long: `Analyze validates a named strategy, nets its Greeks and samples its payoff.

Summary figures come from the closed form when the strategy is known and
valid; custom or invalid leg sets use the sampled curve.`,
		Example: `  optionsim analyze "Iron Condor" --spot 100 --legs condor.yaml
  optionsim analyze --spot 100 --leg buy:call:100:4 --leg sell:put:90:1`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			set, err := legsFromFlags(cmd)
			if err != nil {
				return err
			}

			a, err := app.Service.Analyze(strategyName(args, set), set.Legs, spotFromFlags(cmd, set), gridFromFlags(cmd))
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(a)
			}

			output.Bold("%s", a.StrategyName)
			printLegs(output, set.Legs)
			if a.Validation != nil {
				printValidation(output, *a.Validation)
				output.Println()
			}

			source := "closed form"
			if a.Source == analytics.Sampled {
				source = "sampled payoff"
			}
			output.Bold("Summary (%s)", source)
			output.Field("Max profit", FormatBound(&a.MaxProfit))
			output.Field("Max loss", FormatBound(&a.MaxLoss))
			output.Field("Break-even", FormatBreakEvens(a.BreakEvenPoints))
			output.Println()

			p := a.Position
			output.Bold("Position Greeks")
			output.Field("Delta", fmt.Sprintf("%.4f", p.Delta))
			output.Field("Gamma", fmt.Sprintf("%.4f", p.Gamma))
			output.Field("Theta (per day)", fmt.Sprintf("%.4f", p.Theta))
			output.Field("Vega (per 1%)", fmt.Sprintf("%.4f", p.Vega))
			output.Field("Rho (per 1%)", fmt.Sprintf("%.4f", p.Rho))
			output.Field("Theoretical cash", output.FormatPnL(p.CashFlow))
			if p.Fallbacks > 0 {
				output.Warning("  ! %d leg(s) used cached Greeks", p.Fallbacks)
			}
			return nil
		},
	}
	addLegFlags(cmd)
	addGridFlags(cmd)
	return cmd
}
