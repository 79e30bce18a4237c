package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	apperrors "optionsim/internal/errors"
	"optionsim/internal/logging"
	"optionsim/internal/models"
	"optionsim/internal/sizing"
	"optionsim/internal/store"
	"optionsim/pkg/utils"
)

// addJournalCommands adds trade journal commands.
func addJournalCommands(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Simulated trade journal",
		Long:  "Record closed simulated trades. The journal feeds win rate and average win/loss to 'size'.",
	}

	cmd.AddCommand(newJournalAddCmd(app))
	cmd.AddCommand(newJournalListCmd(app))
	cmd.AddCommand(newJournalStatsCmd(app))
	cmd.AddCommand(newJournalRemoveCmd(app))

	rootCmd.AddCommand(cmd)
}

func addFilterFlags(cmd *cobra.Command) {
	cmd.Flags().String("underlying", "", "only trades on this underlying")
	cmd.Flags().String("strategy", "", "only trades of this strategy")
	cmd.Flags().String("since", "", "only trades on or after YYYY-MM-DD")
	cmd.Flags().String("until", "", "only trades before the end of YYYY-MM-DD")
}

func filterFromFlags(cmd *cobra.Command) (store.TradeFilter, error) {
	var f store.TradeFilter
	f.Underlying, _ = cmd.Flags().GetString("underlying")
	f.Strategy, _ = cmd.Flags().GetString("strategy")

	if s, _ := cmd.Flags().GetString("since"); s != "" {
		t, err := models.ParseExpiration(s)
		if err != nil {
			return f, apperrors.NewValidationError("since", s, err.Error())
		}
		f.StartDate = t
	}
	if s, _ := cmd.Flags().GetString("until"); s != "" {
		t, err := models.ParseExpiration(s)
		if err != nil {
			return f, apperrors.NewValidationError("until", s, err.Error())
		}
		f.EndDate = t.Add(24*time.Hour - time.Nanosecond)
	}
	return f, nil
}

func newJournalAddCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a closed trade",
		Long: `Record a closed simulated trade.

Entry and exit are total position values in dollars: positive for a debit
paid, negative for a credit received. P&L is exit minus entry unless --pnl
is given.`,
		Example: `  optionsim journal add --underlying SPY --strategy "Bull Call Spread" --entry 400 --exit 1000
  optionsim journal add -u QQQ --strategy "Iron Condor" --entry -150 --exit -40 --date 2026-03-20`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			underlying, _ := cmd.Flags().GetString("underlying")
			strategyName, _ := cmd.Flags().GetString("strategy")
			qty, _ := cmd.Flags().GetInt("quantity")
			entry, _ := cmd.Flags().GetFloat64("entry")
			exit, _ := cmd.Flags().GetFloat64("exit")
			notes, _ := cmd.Flags().GetString("notes")

			trade := &models.Trade{
				ID:         uuid.New().String(),
				Timestamp:  time.Now().UTC(),
				Underlying: underlying,
				Strategy:   strategyName,
				Quantity:   qty,
				EntryCost:  entry,
				ExitValue:  exit,
				PnL:        exit - entry,
				Notes:      notes,
			}
			if cmd.Flags().Changed("pnl") {
				trade.PnL, _ = cmd.Flags().GetFloat64("pnl")
			}
			if d, _ := cmd.Flags().GetString("date"); d != "" {
				t, err := models.ParseExpiration(d)
				if err != nil {
					return apperrors.NewValidationError("date", d, err.Error())
				}
				trade.Timestamp = t
			}

			journal, err := app.Journal()
			if err != nil {
				return err
			}
			if err := journal.LogTrade(ctx, trade); err != nil {
				return err
			}
			log := logging.FromContext(ctx)
			log.Info().
				Str("id", trade.ID).
				Str("strategy", trade.Strategy).
				Float64("pnl", trade.PnL).
				Msg("Trade recorded")

			if output.IsJSON() {
				return output.JSON(trade)
			}
			output.Success("Recorded %s trade on %s: %s", trade.Strategy, trade.Underlying, output.FormatPnL(trade.PnL))
			output.Dim("ID: %s", trade.ID)
			return nil
		},
	}

	cmd.Flags().StringP("underlying", "u", "", "underlying ticker (required)")
	cmd.Flags().String("strategy", "", "strategy name (required)")
	cmd.Flags().IntP("quantity", "q", 1, "position units")
	cmd.Flags().Float64("entry", 0, "total entry cost; negative for a credit")
	cmd.Flags().Float64("exit", 0, "total exit value; negative for a buy-back")
	cmd.Flags().Float64("pnl", 0, "realised P&L (default exit - entry)")
	cmd.Flags().String("date", "", "close date YYYY-MM-DD (default now)")
	cmd.Flags().String("notes", "", "free-form notes")
	cmd.MarkFlagRequired("underlying")
	cmd.MarkFlagRequired("strategy")
	return cmd
}

func newJournalListCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded trades, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			filter, err := filterFromFlags(cmd)
			if err != nil {
				return err
			}
			filter.Limit, _ = cmd.Flags().GetInt("limit")

			journal, err := app.Journal()
			if err != nil {
				return err
			}
			trades, err := journal.GetTrades(ctx, filter)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(trades)
			}
			if len(trades) == 0 {
				output.Info("No trades recorded.")
				output.Dim("Tip: use 'optionsim journal add' after closing a simulated trade.")
				return nil
			}

			table := NewTable(output, "Date", "ID", "Underlying", "Strategy", "Qty", "Entry", "Exit", "P&L")
			for _, t := range trades {
				table.AddRow(
					FormatDateTime(t.Timestamp),
					t.ID,
					t.Underlying,
					TruncateString(t.Strategy, 20),
					fmt.Sprintf("%d", t.Quantity),
					utils.FormatUSD(t.EntryCost),
					utils.FormatUSD(t.ExitValue),
					output.FormatPnL(t.PnL),
				)
			}
			table.Render()
			return nil
		},
	}
	addFilterFlags(cmd)
	cmd.Flags().Int("limit", 50, "maximum trades to show (0 for all)")
	return cmd
}

func newJournalStatsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Win rate and average win/loss from the journal",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			filter, err := filterFromFlags(cmd)
			if err != nil {
				return err
			}
			journal, err := app.Journal()
			if err != nil {
				return err
			}
			trades, err := journal.GetTrades(ctx, filter)
			if err != nil {
				return err
			}
			st, err := sizing.StatsFromTrades(trades)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(st)
			}

			output.Bold("Journal statistics")
			output.Field("Trades", st.TradeCount)
			output.Field("Wins/Losses", fmt.Sprintf("%d/%d", st.Wins, st.Losses))
			output.Field("Win rate", FormatIV(st.WinRate))
			output.Field("Average win", utils.FormatUSD(st.AverageWin))
			output.Field("Average loss", utils.FormatUSD(st.AverageLoss))
			output.Field("Total P&L", output.FormatPnL(st.TotalPnL))
			if st.TradeCount < app.Config.Sizing.MinTrades {
				output.Warning("! fewer than %d trades: 'size' will use default statistics", app.Config.Sizing.MinTrades)
			}
			return nil
		},
	}
	addFilterFlags(cmd)
	return cmd
}

func newJournalRemoveCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <trade-id>",
		Short: "Delete a recorded trade",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			journal, err := app.Journal()
			if err != nil {
				return err
			}
			if err := journal.DeleteTrade(ctx, args[0]); err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]string{"deleted": args[0]})
			}
			output.Success("Deleted %s", args[0])
			return nil
		},
	}
}
