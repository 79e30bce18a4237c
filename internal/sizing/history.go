package sizing

import (
	"math"

	"github.com/montanaflynn/stats"

	"optionsim/internal/models"
)

// StatsFromTrades aggregates a trade history into sizing statistics.
// Trades that closed flat count as losses of zero.
func StatsFromTrades(trades []models.Trade) (models.TradeStats, error) {
	st := models.TradeStats{TradeCount: len(trades)}
	if len(trades) == 0 {
		return st, nil
	}

	var wins, losses, all stats.Float64Data
	for _, t := range trades {
		all = append(all, t.PnL)
		if t.IsWin() {
			wins = append(wins, t.PnL)
		} else {
			losses = append(losses, math.Abs(t.PnL))
		}
	}

	st.Wins, st.Losses = len(wins), len(losses)
	st.WinRate = float64(st.Wins) / float64(st.TradeCount)

	var err error
	if st.TotalPnL, err = stats.Sum(all); err != nil {
		return st, err
	}
	if len(wins) > 0 {
		if st.AverageWin, err = stats.Mean(wins); err != nil {
			return st, err
		}
	}
	if len(losses) > 0 {
		if st.AverageLoss, err = stats.Mean(losses); err != nil {
			return st, err
		}
	}
	return st, nil
}
