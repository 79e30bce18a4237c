package utils

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestFormatUSD(t *testing.T) {
	tests := []struct {
		amount float64
		want   string
	}{
		{0, "$0.00"},
		{999.5, "$999.50"},
		{1000, "$1,000.00"},
		{1234567.891, "$1,234,567.89"},
		{-400, "-$400.00"},
		{-12345.6, "-$12,345.60"},
	}
	for _, tt := range tests {
		if got := FormatUSD(tt.amount); got != tt.want {
			t.Errorf("FormatUSD(%v) = %q, want %q", tt.amount, got, tt.want)
		}
	}
}

func TestFormatHelpers(t *testing.T) {
	if got := FormatPercent(12.5); got != "+12.50%" {
		t.Errorf("FormatPercent = %q", got)
	}
	if got := FormatPercent(-3); got != "-3.00%" {
		t.Errorf("FormatPercent = %q", got)
	}
	if got := FormatPnL(600); got != "+$600.00" {
		t.Errorf("FormatPnL = %q", got)
	}
	if got := FormatPnL(-400); got != "-$400.00" {
		t.Errorf("FormatPnL = %q", got)
	}
	if got := FormatQuantity(-1234567); got != "-1,234,567" {
		t.Errorf("FormatQuantity = %q", got)
	}
	if got := FormatCompact(2500000); got != "$2.50M" {
		t.Errorf("FormatCompact = %q", got)
	}
	if got := FormatCompact(950); got != "$950.00" {
		t.Errorf("FormatCompact = %q", got)
	}
}

// Property: FormatUSD groups digits in threes and parses back to the
// rounded amount.
func TestProperty_USDFormatting(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	grouping := regexp.MustCompile(`^\d{1,3}(,\d{3})*$`)

	properties.Property("grouped and value preserving", prop.ForAll(
		func(amount float64) bool {
			formatted := FormatUSD(amount)
			body := strings.TrimPrefix(formatted, "-")
			if !strings.HasPrefix(body, "$") {
				return false
			}
			body = strings.TrimPrefix(body, "$")
			parts := strings.Split(body, ".")
			if len(parts) != 2 || len(parts[1]) != 2 || !grouping.MatchString(parts[0]) {
				return false
			}
			parsed, err := strconv.ParseFloat(strings.ReplaceAll(body, ",", ""), 64)
			if err != nil {
				return false
			}
			return math.Abs(parsed-math.Abs(amount)) <= 0.005+1e-9
		},
		gen.Float64Range(-1e9, 1e9),
	))

	properties.TestingRun(t)
}
