package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "optionsim/internal/errors"
	"optionsim/internal/models"
)

// run executes the CLI against an isolated config directory.
func run(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetArgs(append(args, "--config", dir))
	err := root.Execute()
	return buf.String(), err
}

func runJSON(t *testing.T, dir string, target interface{}, args ...string) {
	t.Helper()
	out, err := run(t, dir, append(args, "--json")...)
	require.NoError(t, err, out)
	require.NoError(t, json.Unmarshal([]byte(out), target), out)
}

var bullCallLegs = []string{"--leg", "buy:call:95:6", "--leg", "sell:call:105:2"}

func TestVersionAndConfig(t *testing.T) {
	dir := t.TempDir()

	out, err := run(t, dir, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "optionsim v"+Version)

	var path map[string]string
	runJSON(t, dir, &path, "config", "path")
	assert.Equal(t, filepath.Join(dir, "config.toml"), path["path"])

	out, err = run(t, dir, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "Risk-free rate")
	assert.Contains(t, out, "5.00%")

	out, err = run(t, dir, "config", "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration is valid")
}

func TestStrategyList(t *testing.T) {
	var defs []map[string]interface{}
	runJSON(t, t.TempDir(), &defs, "strategy", "list")
	require.Len(t, defs, 12)
	assert.Equal(t, "Long Call", defs[0]["name"])

	out, err := run(t, t.TempDir(), "strategy", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Iron Condor")
}

func TestPrice(t *testing.T) {
	dir := t.TempDir()

	var res map[string]interface{}
	runJSON(t, dir, &res, "price", "--spot", "100", "--strike", "100", "--years", "1", "--vol", "0.2", "--rate", "0.05")
	assert.InDelta(t, 10.450583572185565, res["price"].(float64), 1e-9)
	assert.InDelta(t, 0.6368, res["delta"].(float64), 1e-3)
	assert.Equal(t, false, res["intrinsic"])

	runJSON(t, dir, &res, "price", "--spot", "100", "--strike", "100", "--years", "1", "--rate", "0.05", "--market", "10.450583572185565")
	assert.InDelta(t, 0.2, res["volatility"].(float64), 1e-6)
	assert.Equal(t, true, res["iv_from_market"])

	runJSON(t, dir, &res, "price", "--spot", "110", "--strike", "100", "--years", "0", "--vol", "0.2")
	assert.Equal(t, true, res["intrinsic"])
	assert.InDelta(t, 10, res["price"].(float64), 1e-12)

	_, err := run(t, dir, "price", "--spot", "100", "--strike", "100", "--years", "1", "--market", "150")
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidInput), "err = %v", err)
}

func TestGreeksScenarioSweep(t *testing.T) {
	dir := t.TempDir()
	contract := []string{"--spot", "100", "--strike", "100", "--days", "30", "--iv", "0.25"}

	var greeks outcomeJSON
	runJSON(t, dir, &greeks, append([]string{"greeks"}, contract...)...)
	assert.Equal(t, "ok", greeks.Status)
	assert.InDelta(t, 0.5, greeks.Greeks.Delta, 0.1)
	assert.Less(t, greeks.Greeks.Theta, 0.0)

	var sc map[string]outcomeJSON
	runJSON(t, dir, &sc, append([]string{"scenario", "--price-change", "10"}, contract...)...)
	assert.Greater(t, sc["shocked"].Greeks.Delta, sc["base"].Greeks.Delta)
	assert.InDelta(t, 110, sc["shocked"].Spot, 1e-9)

	csvPath := filepath.Join(dir, "sweep.csv")
	var points []map[string]float64
	runJSON(t, dir, &points, append([]string{"sweep", "--min", "80", "--max", "120", "--steps", "8", "--csv", csvPath}, contract...)...)
	require.Len(t, points, 9)
	assert.InDelta(t, 80, points[0]["price"], 1e-9)
	assert.InDelta(t, 120, points[8]["price"], 1e-9)

	data, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "price,delta,gamma,theta,vega"), string(data))

	out, err := run(t, dir, append([]string{"sweep"}, contract...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "Delta")
}

func TestStrategyValidate(t *testing.T) {
	dir := t.TempDir()

	var res map[string]interface{}
	runJSON(t, dir, &res, append([]string{"strategy", "validate", "Bull Call Spread"}, bullCallLegs...)...)
	assert.Equal(t, true, res["is_valid"])
	assert.InDelta(t, 600, res["max_profit"].(float64), 1e-9)
	assert.InDelta(t, 400, res["max_loss"].(float64), 1e-9)
	assert.Equal(t, []interface{}{99.0}, res["break_even_points"])

	out, err := run(t, dir, "strategy", "validate", "bull-call-spread", "--leg", "buy:call:105:2", "--leg", "sell:call:95:6")
	assert.Error(t, err)
	assert.Contains(t, out, "invalid")

	_, err = run(t, dir, append([]string{"strategy", "validate", "Jade Lizard"}, bullCallLegs...)...)
	assert.True(t, apperrors.Is(err, apperrors.ErrUnknownStrategy), "err = %v", err)

	_, err = run(t, dir, "strategy", "validate", "Straddle")
	assert.True(t, apperrors.Is(err, apperrors.ErrNoLegs), "err = %v", err)
}

func TestPayoffAndAnalyze(t *testing.T) {
	dir := t.TempDir()

	csvPath := filepath.Join(dir, "payoff.csv")
	var curve map[string]interface{}
	runJSON(t, dir, &curve, append([]string{"payoff", "--spot", "100", "--csv", csvPath}, bullCallLegs...)...)
	assert.Len(t, curve["points"], 101)
	assert.InDelta(t, 600, curve["max_profit"].(float64), 1e-9)

	data, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "price,profit"))

	condor := []string{
		"--spot", "100",
		"--leg", "buy:put:90:1", "--leg", "sell:put:95:2",
		"--leg", "sell:call:105:1.5", "--leg", "buy:call:110:1",
	}
	var a map[string]interface{}
	runJSON(t, dir, &a, append([]string{"analyze", "Iron Condor"}, condor...)...)
	assert.Equal(t, "closed_form", a["source"])
	assert.InDelta(t, 150, a["max_profit"].(float64), 1e-9)
	assert.InDelta(t, 350, a["max_loss"].(float64), 1e-9)
	bes := a["break_even_points"].([]interface{})
	require.Len(t, bes, 2)
	assert.InDelta(t, 93.5, bes[0].(float64), 1e-9)
	assert.InDelta(t, 106.5, bes[1].(float64), 1e-9)

	runJSON(t, dir, &a, "analyze", "--spot", "100", "--leg", "buy:call:100:4", "--leg", "sell:put:90:1")
	assert.Equal(t, "sampled", a["source"])
	assert.Equal(t, "unlimited", a["max_profit"])

	out, err := run(t, dir, append([]string{"analyze", "Iron Condor"}, condor...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "Summary (closed form)")
	assert.Contains(t, out, "Position Greeks")
}

func TestSizeWithExplicitStats(t *testing.T) {
	dir := t.TempDir()

	var res struct {
		StatsSource    string                        `json:"stats_source"`
		Recommendation models.KellyCalculationResult `json:"recommendation"`
	}
	args := append([]string{"size", "Bull Call Spread", "--balance", "10000", "--contracts", "20",
		"--win-rate", "0.6", "--avg-win", "150", "--avg-loss", "100"}, bullCallLegs...)
	runJSON(t, dir, &res, args...)

	assert.Equal(t, "command line", res.StatsSource)
	assert.Equal(t, 8, res.Recommendation.RecommendedContracts.Full)
	assert.Equal(t, models.RiskHigh, res.Recommendation.RiskLevel)
	assert.InDelta(t, 400, res.Recommendation.CapitalPerContract, 1e-9)
	assert.Contains(t, strings.Join(res.Recommendation.Warnings, "\n"), "requested 20 contracts")

	_, err := run(t, dir, "size", "--balance", "10000", "--win-rate", "0.6", "--avg-win", "150", "--avg-loss", "100")
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidInput), "err = %v", err)
}

func TestJournalFeedsSizing(t *testing.T) {
	dir := t.TempDir()

	var trade models.Trade
	runJSON(t, dir, &trade, "journal", "add", "-u", "spy", "--strategy", "Bull Call Spread", "--entry", "400", "--exit", "1000")
	assert.NotEmpty(t, trade.ID)
	assert.InDelta(t, 600, trade.PnL, 1e-9)

	runJSON(t, dir, &trade, "journal", "add", "-u", "QQQ", "--strategy", "Iron Condor", "--entry", "500", "--exit", "150", "--date", "2026-03-20")
	assert.InDelta(t, -350, trade.PnL, 1e-9)
	assert.True(t, trade.Timestamp.Equal(time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)))
	lossID := trade.ID

	var trades []models.Trade
	runJSON(t, dir, &trades, "journal", "list")
	require.Len(t, trades, 2)
	assert.Equal(t, "SPY", trades[0].Underlying)

	runJSON(t, dir, &trades, "journal", "list", "--strategy", "Iron Condor")
	require.Len(t, trades, 1)

	var st models.TradeStats
	runJSON(t, dir, &st, "journal", "stats")
	assert.Equal(t, 2, st.TradeCount)
	assert.InDelta(t, 0.5, st.WinRate, 1e-12)
	assert.InDelta(t, 350, st.AverageLoss, 1e-9)

	var sized struct {
		StatsSource    string                        `json:"stats_source"`
		TradeCount     int                           `json:"trade_count"`
		Recommendation models.KellyCalculationResult `json:"recommendation"`
	}
	runJSON(t, dir, &sized, "size", "--balance", "10000", "--capital", "400")
	assert.Equal(t, "journal", sized.StatsSource)
	assert.Equal(t, 2, sized.TradeCount)
	assert.True(t, sized.Recommendation.DefaultsUsed)

	_, err := run(t, dir, "journal", "rm", lossID)
	require.NoError(t, err)
	_, err = run(t, dir, "journal", "rm", lossID)
	assert.True(t, apperrors.Is(err, apperrors.ErrDataNotFound), "err = %v", err)

	out, err := run(t, dir, "journal", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Bull Call Spread")
}

func TestParseLegFile(t *testing.T) {
	data := []byte(`
strategy: Iron Condor
underlying: spy
expiration: 2026-12-18
spot: 100
legs:
  - {action: buy, type: put, strike: 90, premium: 1}
  - {action: sell, type: put, strike: 95, premium: 2, volume: 120}
  - {action: sell, type: call, strike: 105, premium: 1.5, quantity: 2}
  - action: buy
    type: call
    strike: 110
    premium: 1
    expiration: 2027-01-15
    greeks: {delta: 0.2, gamma: 0.01}
`)
	fallback := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	set, err := parseLegFile(data, fallback)
	require.NoError(t, err)
	assert.Equal(t, "Iron Condor", set.Strategy)
	assert.InDelta(t, 100, set.Spot, 1e-12)
	require.Len(t, set.Legs, 4)

	assert.Equal(t, "SPY", set.Legs[0].Contract.UnderlyingTicker)
	assert.Equal(t, models.Buy, set.Legs[0].Action)
	assert.Equal(t, models.Put, set.Legs[0].Contract.Type)
	assert.Equal(t, 1, set.Legs[0].Quantity)
	assert.Equal(t, "2026-12-18", FormatDate(set.Legs[0].Contract.Expiration))
	assert.Equal(t, int64(120), set.Legs[1].Contract.Volume)
	assert.Equal(t, 2, set.Legs[2].Quantity)
	assert.Equal(t, "2027-01-15", FormatDate(set.Legs[3].Contract.Expiration))
	assert.InDelta(t, 0.2, set.Legs[3].Contract.CachedGreeks.Delta, 1e-12)

	_, err = parseLegFile([]byte("legs:\n  - {action: hold, type: call, strike: 1}\n"), fallback)
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidInput), "err = %v", err)

	_, err = parseLegFile([]byte("legs: [oops"), fallback)
	assert.Error(t, err)

	for _, qty := range []string{"0", "-2"} {
		_, err = parseLegFile([]byte("legs:\n  - {action: buy, type: call, strike: 100, premium: 4, quantity: "+qty+"}\n"), fallback)
		assert.True(t, apperrors.Is(err, apperrors.ErrInvalidInput), "quantity %s: err = %v", qty, err)
	}
}

func TestParseLegSpec(t *testing.T) {
	exp := time.Date(2026, 6, 19, 0, 0, 0, 0, time.UTC)

	leg, err := parseLegSpec("sell:put:95:2.5:3:0.28", "iwm", exp)
	require.NoError(t, err)
	assert.Equal(t, models.Sell, leg.Action)
	assert.Equal(t, models.Put, leg.Contract.Type)
	assert.InDelta(t, 95, leg.Contract.Strike, 1e-12)
	assert.InDelta(t, 2.5, leg.Contract.LastPrice, 1e-12)
	assert.Equal(t, 3, leg.Quantity)
	assert.InDelta(t, 0.28, leg.Contract.ImpliedVolatility, 1e-12)
	assert.Equal(t, "IWM", leg.Contract.UnderlyingTicker)
	assert.True(t, leg.Contract.Expiration.Equal(exp))

	leg, err = parseLegSpec("buy call 100 4", "XYZ", exp)
	require.NoError(t, err)
	assert.Equal(t, 1, leg.Quantity)

	for _, bad := range []string{"buy:call:100", "buy:call:abc:4", "hold:call:100:4", "buy:fwd:100:4", "buy:call:1:2:3:4:5",
		"buy:call:100:4:1.5", "buy:call:100:4:0", "buy:call:100:4:-1"} {
		_, err := parseLegSpec(bad, "XYZ", exp)
		assert.True(t, apperrors.Is(err, apperrors.ErrInvalidInput), "%q: err = %v", bad, err)
	}
}

func TestFormatting(t *testing.T) {
	profit := models.Bounded(600)
	loss := models.Unlimited()
	assert.Equal(t, "$600.00", FormatBound(&profit))
	assert.Equal(t, "unlimited", FormatBound(&loss))
	assert.Equal(t, "n/a", FormatBound(nil))

	assert.Equal(t, "none", FormatBreakEvens(nil))
	assert.Equal(t, "93.50, 106.50", FormatBreakEvens([]float64{93.5, 106.5}))
	assert.Equal(t, "0.4500", FormatPrice(0.45))

	leg := models.StrategyLeg{
		Contract: models.OptionContract{
			UnderlyingTicker: "SPY",
			Strike:           100,
			Expiration:       time.Date(2026, 12, 18, 0, 0, 0, 0, time.UTC),
			Type:             models.Call,
			LastPrice:        4.25,
		},
		Action:   models.Sell,
		Quantity: 2,
	}
	assert.Equal(t, "-2 SPY 2026-12-18 100.00 CALL @ 4.25", FormatLeg(leg))
	assert.Equal(t, "Bull Ca...", TruncateString("Bull Call Spread", 10))
}
