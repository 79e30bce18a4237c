package cli

import (
	"fmt"
	"strings"
	"time"

	"optionsim/internal/config"
	"optionsim/internal/models"
	"optionsim/pkg/utils"
)

// FormatBound renders a profit or loss bound in dollars.
func FormatBound(b *models.Bound) string {
	switch {
	case b == nil:
		return "n/a"
	case b.Unbounded:
		return "unlimited"
	}
	return utils.FormatUSD(b.Value)
}

// FormatPrice formats an option or underlying price.
func FormatPrice(price float64) string {
	if price != 0 && price < 1 && price > -1 {
		return fmt.Sprintf("%.4f", price)
	}
	return fmt.Sprintf("%.2f", price)
}

// FormatBreakEvens joins break-even prices, or "none".
func FormatBreakEvens(points []float64) string {
	if len(points) == 0 {
		return "none"
	}
	parts := make([]string, len(points))
	for i, p := range points {
		parts[i] = FormatPrice(p)
	}
	return strings.Join(parts, ", ")
}

// FormatIV formats implied volatility.
func FormatIV(iv float64) string {
	return fmt.Sprintf("%.2f%%", iv*100)
}

// FormatDate formats a calendar date.
func FormatDate(t time.Time) string {
	return t.UTC().Format(models.ExpirationLayout)
}

// FormatDateTime formats a timestamp.
func FormatDateTime(t time.Time) string {
	return t.Local().Format("2006-01-02 15:04")
}

// FormatLeg renders a leg as "+1 SPY 2026-12-18 100.00 CALL @ 4.25".
func FormatLeg(l models.StrategyLeg) string {
	sign := "+"
	if l.Action == models.Sell {
		sign = "-"
	}
	return fmt.Sprintf("%s%d %s @ %s", sign, l.Quantity, l.Contract.Label(), FormatPrice(l.Contract.LastPrice))
}

// TruncateString truncates a string to max length with ellipsis.
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

func fmtRange(low, high float64) string {
	return fmt.Sprintf("%.0f%% - %.0f%% of spot", low*100, high*100)
}

func fmtThresholds(s config.SizingConfig) string {
	return fmt.Sprintf("safe <= %.0f%%, moderate <= %.0f%%, high <= %.0f%%", s.SafePct, s.ModeratePct, s.HighPct)
}
