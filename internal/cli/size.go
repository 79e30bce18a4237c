package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	apperrors "optionsim/internal/errors"
	"optionsim/internal/models"
	"optionsim/internal/sizing"
	"optionsim/internal/store"
	"optionsim/pkg/utils"
)

// addSizingCommands adds the Kelly position sizing command.
func addSizingCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newSizeCmd(app))
}

func newSizeCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "size [name]",
		Short: "Kelly position size for a strategy",
		Long: `Recommend a contract count with the Kelly criterion.

Win rate and average win/loss come from the trade journal unless given with
--win-rate, --avg-win and --avg-loss. Capital per contract is the validated
max loss of the legs, else their net premium, else --capital.`,
		Example: `  optionsim size "Bull Call Spread" --balance 10000 --leg buy:call:95:6 --leg sell:call:105:2
  optionsim size --balance 25000 --capital 500 --win-rate 0.6 --avg-win 150 --avg-loss 100
  optionsim size --balance 10000 --capital 400 --history-strategy "Iron Condor" --contracts 5`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			balance, _ := cmd.Flags().GetFloat64("balance")
			requested, _ := cmd.Flags().GetInt("contracts")

			stats, source, err := statsForSizing(cmd, app)
			if err != nil {
				return err
			}

			var res models.KellyCalculationResult
			var name string
			if hasLegs(cmd) {
				set, err := legsFromFlags(cmd)
				if err != nil {
					return err
				}
				name = strategyName(args, set)
				res, err = app.Service.SizeStrategy(name, set.Legs, stats, balance, requested)
				if err != nil {
					return err
				}
			} else {
				capital, _ := cmd.Flags().GetFloat64("capital")
				if capital <= 0 {
					return apperrors.NewValidationError("capital", capital, "give --capital or legs to derive it from")
				}
				res, err = app.Service.SizePosition(sizing.Input{
					Stats:              stats,
					AccountBalance:     balance,
					CapitalPerContract: capital,
					RequestedContracts: requested,
				})
				if err != nil {
					return err
				}
			}

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"strategy":       name,
					"stats_source":   source,
					"trade_count":    stats.TradeCount,
					"recommendation": res,
				})
			}

			if name != "" {
				output.Bold("Kelly sizing: %s", name)
			} else {
				output.Bold("Kelly sizing")
			}
			output.Field("Statistics", fmt.Sprintf("%s (%d trades)", source, stats.TradeCount))
			output.Field("Win rate", FormatIV(res.WinRate))
			output.Field("Average win", utils.FormatUSD(res.AverageWin))
			output.Field("Average loss", utils.FormatUSD(res.AverageLoss))
			output.Field("Kelly fraction", FormatIV(res.KellyPercentage))
			output.Field("Capital/contract", utils.FormatUSD(res.CapitalPerContract))
			output.Println()

			rc := res.RecommendedContracts
			table := NewTable(output, "Fraction", "Contracts", "Capital")
			table.AddRow("Full", fmt.Sprintf("%d", rc.Full), utils.FormatUSD(float64(rc.Full)*res.CapitalPerContract))
			table.AddRow("Half", fmt.Sprintf("%d", rc.Half), utils.FormatUSD(float64(rc.Half)*res.CapitalPerContract))
			table.AddRow("Quarter", fmt.Sprintf("%d", rc.Quarter), utils.FormatUSD(float64(rc.Quarter)*res.CapitalPerContract))
			table.Render()
			output.Println()
			output.Field("Risk level", riskText(output, res.RiskLevel))
			output.Warnings(res.Warnings)
			return nil
		},
	}

	addLegFlags(cmd)
	cmd.Flags().Float64("balance", 0, "account balance (required)")
	cmd.Flags().Float64("capital", 0, "capital at risk per contract when no legs are given")
	cmd.Flags().Int("contracts", 0, "contracts you intend to trade; warns when above full Kelly")
	cmd.Flags().Float64("win-rate", 0, "historical win rate (0-1)")
	cmd.Flags().Float64("avg-win", 0, "average winning trade")
	cmd.Flags().Float64("avg-loss", 0, "average losing trade, as a positive number")
	cmd.Flags().Int("trades", 0, "trade count behind the explicit statistics")
	cmd.Flags().String("history-strategy", "", "only use journal trades for this strategy")
	cmd.MarkFlagRequired("balance")
	return cmd
}

func hasLegs(cmd *cobra.Command) bool {
	return cmd.Flags().Changed("legs") || cmd.Flags().Changed("leg")
}

// statsForSizing returns explicit statistics when any were given on the
// command line, otherwise it aggregates the journal.
func statsForSizing(cmd *cobra.Command, app *App) (models.TradeStats, string, error) {
	f := cmd.Flags()
	if f.Changed("win-rate") || f.Changed("avg-win") || f.Changed("avg-loss") {
		var st models.TradeStats
		st.WinRate, _ = f.GetFloat64("win-rate")
		st.AverageWin, _ = f.GetFloat64("avg-win")
		st.AverageLoss, _ = f.GetFloat64("avg-loss")
		st.TradeCount, _ = f.GetInt("trades")
		if !f.Changed("trades") {
			st.TradeCount = app.Config.Sizing.MinTrades
		}
		return st, "command line", nil
	}

	journal, err := app.Journal()
	if err != nil {
		return models.TradeStats{}, "", err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	strategyFilter, _ := f.GetString("history-strategy")
	trades, err := journal.GetTrades(ctx, store.TradeFilter{Strategy: strategyFilter})
	if err != nil {
		return models.TradeStats{}, "", err
	}
	st, err := sizing.StatsFromTrades(trades)
	if err != nil {
		return models.TradeStats{}, "", err
	}
	return st, "journal", nil
}

func riskText(output *Output, level models.RiskLevel) string {
	switch level {
	case models.RiskSafe:
		return output.Green(string(level))
	case models.RiskModerate:
		return output.Yellow(string(level))
	}
	return output.Red(string(level))
}
