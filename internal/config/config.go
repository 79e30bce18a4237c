// Package config provides configuration management for the options engine.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/viper"

	"optionsim/internal/analytics"
	apperrors "optionsim/internal/errors"
	"optionsim/internal/greeks"
	"optionsim/internal/logging"
	"optionsim/internal/payoff"
	"optionsim/internal/sizing"
)

// Config holds all application configuration.
type Config struct {
	Pricing PricingConfig `mapstructure:"pricing"`
	Payoff  PayoffConfig  `mapstructure:"payoff"`
	Sweep   SweepConfig   `mapstructure:"sweep"`
	Sizing  SizingConfig  `mapstructure:"sizing"`
	Store   StoreConfig   `mapstructure:"store"`
	Logging LoggingConfig `mapstructure:"logging"`
	UI      UIConfig      `mapstructure:"ui"`
}

// PricingConfig holds Black-Scholes inputs that are not per contract.
type PricingConfig struct {
	RiskFreeRate      float64 `mapstructure:"risk_free_rate"`
	DefaultVolatility float64 `mapstructure:"default_volatility"`
	SolveMissingIV    bool    `mapstructure:"solve_missing_iv"`
}

// PayoffConfig sets the default payoff grid as fractions of spot.
type PayoffConfig struct {
	GridLow   float64 `mapstructure:"grid_low"`
	GridHigh  float64 `mapstructure:"grid_high"`
	GridSteps int     `mapstructure:"grid_steps"`
}

// SweepConfig sets the default sensitivity sweep range.
type SweepConfig struct {
	RangeLow  float64 `mapstructure:"range_low"`
	RangeHigh float64 `mapstructure:"range_high"`
	Steps     int     `mapstructure:"steps"`
}

// SizingConfig holds Kelly thresholds and fallback statistics.
type SizingConfig struct {
	MinTrades      int     `mapstructure:"min_trades"`
	DefaultWinRate float64 `mapstructure:"default_win_rate"`
	DefaultAvgWin  float64 `mapstructure:"default_avg_win"`
	DefaultAvgLoss float64 `mapstructure:"default_avg_loss"`
	SafePct        float64 `mapstructure:"safe_pct"`
	ModeratePct    float64 `mapstructure:"moderate_pct"`
	HighPct        float64 `mapstructure:"high_pct"`
}

// StoreConfig locates the trade journal.
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig mirrors logging.LogConfig.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	File       bool   `mapstructure:"file"`
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
}

// UIConfig holds UI-related configuration.
type UIConfig struct {
	ColorEnabled bool `mapstructure:"color_enabled"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/optionsim"
	}
	return filepath.Join(home, ".config", "optionsim")
}

// Load reads config.toml from configDir, writing a commented template on
// first run. If configDir is empty, the default config directory is used.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)
	setDefaults(v, configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, apperrors.Wrapf(apperrors.ErrConfigInvalid, "reading config.toml: %v", err)
		}
		if err := createTemplateConfig(configDir); err != nil {
			return nil, err
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrConfigInvalid, "decoding config.toml: %v", err)
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	v := viper.New()
	setDefaults(v, DefaultConfigDir())
	cfg := &Config{}
	_ = v.Unmarshal(cfg)
	return cfg
}

func setDefaults(v *viper.Viper, configDir string) {
	v.SetDefault("pricing.risk_free_rate", 0.05)
	v.SetDefault("pricing.default_volatility", 0.30)
	v.SetDefault("pricing.solve_missing_iv", false)

	v.SetDefault("payoff.grid_low", 0.7)
	v.SetDefault("payoff.grid_high", 1.3)
	v.SetDefault("payoff.grid_steps", 100)

	v.SetDefault("sweep.range_low", 0.8)
	v.SetDefault("sweep.range_high", 1.2)
	v.SetDefault("sweep.steps", 40)

	v.SetDefault("sizing.min_trades", 10)
	v.SetDefault("sizing.default_win_rate", 0.55)
	v.SetDefault("sizing.default_avg_win", 150.0)
	v.SetDefault("sizing.default_avg_loss", 100.0)
	v.SetDefault("sizing.safe_pct", 10.0)
	v.SetDefault("sizing.moderate_pct", 25.0)
	v.SetDefault("sizing.high_pct", 50.0)

	v.SetDefault("store.path", filepath.Join(configDir, "journal.db"))

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.file", false)
	v.SetDefault("logging.file_path", filepath.Join(configDir, "logs", "optionsim.log"))
	v.SetDefault("logging.max_size", 50)
	v.SetDefault("logging.max_backups", 5)
	v.SetDefault("logging.max_age", 30)

	v.SetDefault("ui.color_enabled", true)
}

func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("OPTIONSIM_RISK_FREE_RATE"); v != "" {
		rate, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return apperrors.Wrapf(apperrors.ErrConfigInvalid, "OPTIONSIM_RISK_FREE_RATE=%q", v)
		}
		cfg.Pricing.RiskFreeRate = rate
	}
	if v := os.Getenv("OPTIONSIM_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("OPTIONSIM_DB_PATH"); v != "" {
		cfg.Store.Path = v
	}
	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	invalid := func(format string, args ...interface{}) error {
		return apperrors.Wrap(apperrors.ErrConfigInvalid, fmt.Sprintf(format, args...))
	}

	if c.Pricing.RiskFreeRate < -0.1 || c.Pricing.RiskFreeRate > 1 {
		return invalid("risk_free_rate must be between -0.1 and 1, got %v", c.Pricing.RiskFreeRate)
	}
	if c.Pricing.DefaultVolatility <= 0 || c.Pricing.DefaultVolatility > 5 {
		return invalid("default_volatility must be in (0, 5], got %v", c.Pricing.DefaultVolatility)
	}

	if c.Payoff.GridLow < 0 || c.Payoff.GridLow >= c.Payoff.GridHigh {
		return invalid("payoff grid_low must be non-negative and below grid_high")
	}
	if c.Payoff.GridSteps < 2 {
		return invalid("payoff grid_steps must be at least 2")
	}
	if c.Sweep.RangeLow < 0 || c.Sweep.RangeLow >= c.Sweep.RangeHigh {
		return invalid("sweep range_low must be non-negative and below range_high")
	}
	if c.Sweep.Steps < 2 {
		return invalid("sweep steps must be at least 2")
	}

	s := c.Sizing
	if s.DefaultWinRate < 0 || s.DefaultWinRate > 1 {
		return invalid("default_win_rate must be between 0 and 1")
	}
	if s.DefaultAvgWin <= 0 || s.DefaultAvgLoss <= 0 {
		return invalid("default_avg_win and default_avg_loss must be positive")
	}
	if s.MinTrades < 0 {
		return invalid("min_trades must be non-negative")
	}
	if !(s.SafePct > 0 && s.SafePct < s.ModeratePct && s.ModeratePct < s.HighPct) {
		return invalid("risk thresholds must be positive and ascending (safe < moderate < high)")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return invalid("unknown log level %q", c.Logging.Level)
	}
	if c.Store.Path == "" {
		return invalid("store path must be set")
	}

	return nil
}

// Analytics converts the file settings into engine configuration.
func (c *Config) Analytics() analytics.Config {
	return analytics.Config{
		Greeks: greeks.Config{
			RiskFreeRate:      c.Pricing.RiskFreeRate,
			DefaultVolatility: c.Pricing.DefaultVolatility,
			SolveMissingIV:    c.Pricing.SolveMissingIV,
			SweepLow:          c.Sweep.RangeLow,
			SweepHigh:         c.Sweep.RangeHigh,
			SweepSteps:        c.Sweep.Steps,
		},
		Payoff: payoff.Config{
			GridLow:   c.Payoff.GridLow,
			GridHigh:  c.Payoff.GridHigh,
			GridSteps: c.Payoff.GridSteps,
		},
		Sizing: sizing.Config{
			MinTrades:      c.Sizing.MinTrades,
			DefaultWinRate: c.Sizing.DefaultWinRate,
			DefaultAvgWin:  c.Sizing.DefaultAvgWin,
			DefaultAvgLoss: c.Sizing.DefaultAvgLoss,
			SafePct:        c.Sizing.SafePct,
			ModeratePct:    c.Sizing.ModeratePct,
			HighPct:        c.Sizing.HighPct,
		},
	}
}

// LogConfig converts the logging section for logging.NewLoggerWithConfig.
func (c *Config) LogConfig() logging.LogConfig {
	return logging.LogConfig{
		Level:      c.Logging.Level,
		Console:    true,
		File:       c.Logging.File,
		FilePath:   c.Logging.FilePath,
		MaxSize:    c.Logging.MaxSize,
		MaxBackups: c.Logging.MaxBackups,
		MaxAge:     c.Logging.MaxAge,
		Color:      c.UI.ColorEnabled,
	}
}
