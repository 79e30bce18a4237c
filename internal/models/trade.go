package models

import "time"

// Trade represents a closed simulated options trade in the journal.
type Trade struct {
	ID         string    `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	Underlying string    `json:"underlying"`
	Strategy   string    `json:"strategy"`
	Quantity   int       `json:"quantity"`
	EntryCost  float64   `json:"entry_cost"` // signed: positive debit paid, negative credit received
	ExitValue  float64   `json:"exit_value"`
	PnL        float64   `json:"pnl"`
	Notes      string    `json:"notes,omitempty"`
}

// IsWin reports whether the trade closed with a profit.
func (t Trade) IsWin() bool {
	return t.PnL > 0
}

// TradeStats summarises a trade history for position sizing.
type TradeStats struct {
	TradeCount  int     `json:"trade_count"`
	Wins        int     `json:"wins"`
	Losses      int     `json:"losses"`
	WinRate     float64 `json:"win_rate"`
	AverageWin  float64 `json:"average_win"`
	AverageLoss float64 `json:"average_loss"` // positive magnitude
	TotalPnL    float64 `json:"total_pnl"`
}
