package store

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "optionsim/internal/errors"
	"optionsim/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func trade(id, underlying, strategy string, ts time.Time, pnl float64) *models.Trade {
	return &models.Trade{
		ID:         id,
		Timestamp:  ts,
		Underlying: underlying,
		Strategy:   strategy,
		Quantity:   1,
		EntryCost:  400,
		ExitValue:  400 + pnl,
		PnL:        pnl,
	}
}

func TestLogAndGetTrade(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	ts := time.Date(2026, 3, 2, 15, 30, 0, 0, time.UTC)

	in := trade("t-1", "spy", "Bull Call Spread", ts, 250)
	in.Notes = "closed at target"
	require.NoError(t, s.LogTrade(ctx, in))

	got, err := s.GetTrade(ctx, "t-1")
	require.NoError(t, err)
	assert.Equal(t, "SPY", got.Underlying)
	assert.Equal(t, "Bull Call Spread", got.Strategy)
	assert.True(t, ts.Equal(got.Timestamp), "timestamp %v", got.Timestamp)
	assert.InDelta(t, 250, got.PnL, 1e-9)
	assert.Equal(t, "closed at target", got.Notes)

	_, err = s.GetTrade(ctx, "missing")
	assert.True(t, apperrors.Is(err, apperrors.ErrDataNotFound), "err = %v", err)

	// Duplicate IDs are rejected by the primary key.
	err = s.LogTrade(ctx, in)
	assert.True(t, apperrors.Is(err, apperrors.ErrDatabaseError), "err = %v", err)
}

func TestLogTrade_Validation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	assert.Error(t, s.LogTrade(ctx, nil))
	assert.Error(t, s.LogTrade(ctx, &models.Trade{Quantity: 1}))

	bad := trade("t-2", "SPY", "Long Call", time.Now(), 10)
	bad.Quantity = 0
	assert.True(t, apperrors.Is(s.LogTrade(ctx, bad), apperrors.ErrInvalidInput))
}

func TestGetTrades_Filters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.LogTrade(ctx, trade("a", "SPY", "Long Call", base, 100)))
	require.NoError(t, s.LogTrade(ctx, trade("b", "SPY", "Iron Condor", base.AddDate(0, 0, 1), -50)))
	require.NoError(t, s.LogTrade(ctx, trade("c", "QQQ", "Long Call", base.AddDate(0, 0, 2), 75)))
	require.NoError(t, s.LogTrade(ctx, trade("d", "QQQ", "Straddle", base.AddDate(0, 0, 3), -20)))

	all, err := s.GetTrades(ctx, TradeFilter{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "d", all[0].ID, "newest first")
	assert.Equal(t, "a", all[3].ID)

	spy, err := s.GetTrades(ctx, TradeFilter{Underlying: "spy"})
	require.NoError(t, err)
	assert.Len(t, spy, 2)

	calls, err := s.GetTrades(ctx, TradeFilter{Strategy: "Long Call"})
	require.NoError(t, err)
	assert.Len(t, calls, 2)

	window, err := s.GetTrades(ctx, TradeFilter{StartDate: base.AddDate(0, 0, 1), EndDate: base.AddDate(0, 0, 2)})
	require.NoError(t, err)
	require.Len(t, window, 2)
	assert.Equal(t, "c", window[0].ID)
	assert.Equal(t, "b", window[1].ID)

	limited, err := s.GetTrades(ctx, TradeFilter{Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "d", limited[0].ID)

	none, err := s.GetTrades(ctx, TradeFilter{Underlying: "IWM"})
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestDeleteTrade(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.LogTrade(ctx, trade("x", "SPY", "Long Put", time.Now(), -30)))
	require.NoError(t, s.DeleteTrade(ctx, "x"))

	err := s.DeleteTrade(ctx, "x")
	assert.True(t, apperrors.Is(err, apperrors.ErrDataNotFound), "err = %v", err)
}

// Property: a logged trade reads back with the same economics.
func TestProperty_TradeRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	seq := 0
	properties.Property("log then get preserves trade fields", prop.ForAll(
		func(qty int, entry, pnl float64, offsetMin int) bool {
			seq++
			in := &models.Trade{
				ID:         fmt.Sprintf("prop-%d", seq),
				Timestamp:  time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(offsetMin) * time.Minute),
				Underlying: "SPY",
				Strategy:   "Strangle",
				Quantity:   qty,
				EntryCost:  entry,
				ExitValue:  entry + pnl,
				PnL:        pnl,
			}
			if err := s.LogTrade(ctx, in); err != nil {
				return false
			}
			out, err := s.GetTrade(ctx, in.ID)
			if err != nil {
				return false
			}
			return out.Quantity == in.Quantity &&
				math.Abs(out.EntryCost-in.EntryCost) < 1e-9 &&
				math.Abs(out.PnL-in.PnL) < 1e-9 &&
				out.Timestamp.Equal(in.Timestamp)
		},
		gen.IntRange(1, 50),
		gen.Float64Range(-2000, 2000),
		gen.Float64Range(-5000, 5000),
		gen.IntRange(0, 500000),
	))

	properties.TestingRun(t)
}
