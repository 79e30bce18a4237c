package cli

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"optionsim/internal/analytics"
	"optionsim/internal/config"
	"optionsim/internal/logging"
	"optionsim/internal/store"
)

// Version information
const (
	Version   = "0.3.0"
	BuildDate = "2026-10-01"
)

// App holds the application dependencies.
type App struct {
	Config    *config.Config
	ConfigDir string
	Logger    zerolog.Logger
	Service   *analytics.Service

	journal store.TradeJournal
}

// Journal opens the trade journal on first use.
func (a *App) Journal() (store.TradeJournal, error) {
	if a.journal != nil {
		return a.journal, nil
	}
	j, err := store.NewSQLiteStore(a.Config.Store.Path)
	if err != nil {
		return nil, err
	}
	a.Logger.Debug().Str("path", a.Config.Store.Path).Msg("Trade journal opened")
	a.journal = j
	return j, nil
}

// Close releases the journal if it was opened.
func (a *App) Close() error {
	if a.journal == nil {
		return nil
	}
	err := a.journal.Close()
	a.journal = nil
	return err
}

// NewRootCmd creates the root command for the CLI. Configuration is loaded
// once the --config flag has been parsed.
func NewRootCmd() *cobra.Command {
	app := &App{Logger: zerolog.Nop()}

	rootCmd := &cobra.Command{
		Use:   "optionsim",
		Short: "Options analytics: pricing, Greeks, strategy checks, payoffs and Kelly sizing",
		Long: `optionsim prices European options with Black-Scholes, computes Greeks for
single contracts and multi-leg positions, validates named strategies, samples
expiry payoff curves and sizes positions with the Kelly criterion.

Legs are given inline with --leg action:type:strike:premium[:qty[:iv]] or in a
YAML file with --legs. Use 'optionsim strategy list' for the supported shapes.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("config")
			if dir == "" {
				dir = config.DefaultConfigDir()
			}
			cfg, err := config.Load(dir)
			if err != nil {
				return err
			}

			logger := logging.NewLoggerWithConfig(cfg.LogConfig())
			if debug, _ := cmd.Flags().GetBool("debug"); debug {
				logger = logger.Level(zerolog.DebugLevel)
			}

			app.Config = cfg
			app.ConfigDir = dir
			app.Logger = logger
			app.Service = analytics.NewService(cfg.Analytics(), logger)
			cmd.SetContext(logging.WithLogger(cmd.Context(), logger))
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return app.Close()
		},
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/optionsim)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	rootCmd.PersistentFlags().Bool("no-color", false, "disable colored output")

	addCoreCommands(rootCmd, app)
	addPricingCommands(rootCmd, app)
	addStrategyCommands(rootCmd, app)
	addSizingCommands(rootCmd, app)
	addJournalCommands(rootCmd, app)

	return rootCmd
}

// addCoreCommands adds core utility commands.
func addCoreCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			} else {
				output.Printf("optionsim v%s\n", Version)
				output.Dim("Build date: %s", BuildDate)
			}
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and validate application configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(app.Config)
			}
			showConfig(output, app.Config)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			path := config.TemplatePath(app.ConfigDir)
			if output.IsJSON() {
				output.JSON(map[string]string{"path": path})
			} else {
				output.Println(path)
			}
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Config.Validate(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]bool{"valid": true})
			}
			output.Success("Configuration is valid")
			return nil
		},
	})

	return cmd
}

func showConfig(output *Output, cfg *config.Config) {
	output.Bold("Pricing")
	output.Field("Risk-free rate", FormatIV(cfg.Pricing.RiskFreeRate))
	output.Field("Default volatility", FormatIV(cfg.Pricing.DefaultVolatility))
	output.Field("Solve missing IV", cfg.Pricing.SolveMissingIV)
	output.Println()

	output.Bold("Payoff grid")
	output.Field("Range", fmtRange(cfg.Payoff.GridLow, cfg.Payoff.GridHigh))
	output.Field("Steps", cfg.Payoff.GridSteps)
	output.Println()

	output.Bold("Sensitivity sweep")
	output.Field("Range", fmtRange(cfg.Sweep.RangeLow, cfg.Sweep.RangeHigh))
	output.Field("Steps", cfg.Sweep.Steps)
	output.Println()

	output.Bold("Sizing")
	output.Field("Min trades", cfg.Sizing.MinTrades)
	output.Field("Default win rate", FormatIV(cfg.Sizing.DefaultWinRate))
	output.Field("Default avg win", FormatPrice(cfg.Sizing.DefaultAvgWin))
	output.Field("Default avg loss", FormatPrice(cfg.Sizing.DefaultAvgLoss))
	output.Field("Risk thresholds", fmtThresholds(cfg.Sizing))
	output.Println()

	output.Bold("Storage and logging")
	output.Field("Journal", cfg.Store.Path)
	output.Field("Log level", cfg.Logging.Level)
	output.Field("Log file", cfg.Logging.File)
}
