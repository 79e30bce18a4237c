package config

import (
	"os"
	"path/filepath"

	apperrors "optionsim/internal/errors"
)

const configTemplate = `# optionsim configuration

[pricing]
# Annual risk-free rate used by Black-Scholes (0.05 = 5%)
risk_free_rate = 0.05
# Volatility used when a contract has no implied volatility
default_volatility = 0.30
# Solve missing implied volatility from the contract's premium instead of
# using default_volatility
solve_missing_iv = false

[payoff]
# Default payoff grid as fractions of spot
grid_low = 0.7
grid_high = 1.3
grid_steps = 100

[sweep]
# Default sensitivity sweep range as fractions of spot
range_low = 0.8
range_high = 1.2
steps = 40

[sizing]
# Trades required before journal statistics replace the defaults
min_trades = 10
default_win_rate = 0.55
default_avg_win = 150.0
default_avg_loss = 100.0
# Percent of account committed by full Kelly at each risk level
safe_pct = 10.0
moderate_pct = 25.0
high_pct = 50.0

[store]
# SQLite trade journal; defaults to journal.db next to this file
# path = ""

[logging]
# debug, info, warn, error
level = "info"
# Also write rotating logs to file_path
file = false
# file_path = ""
max_size = 50
max_backups = 5
max_age = 30

[ui]
# Enable colored output
color_enabled = true
`

// TemplatePath returns where the config file lives for configDir.
func TemplatePath(configDir string) string {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}
	return filepath.Join(configDir, "config.toml")
}

// createTemplateConfig writes the commented template. Loading continues with
// the built-in defaults, which match the template.
func createTemplateConfig(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return apperrors.Wrapf(apperrors.ErrConfigInvalid, "creating config directory: %v", err)
	}

	path := TemplatePath(configDir)
	if err := os.WriteFile(path, []byte(configTemplate), 0644); err != nil {
		return apperrors.Wrapf(apperrors.ErrConfigInvalid, "writing config template: %v", err)
	}

	return nil
}
