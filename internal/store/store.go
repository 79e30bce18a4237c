// Package store provides persistence for the simulated trade journal.
package store

import (
	"context"
	"time"

	"optionsim/internal/models"
)

// TradeJournal records closed simulated trades and serves them back as the
// history used for position sizing.
type TradeJournal interface {
	LogTrade(ctx context.Context, trade *models.Trade) error
	GetTrade(ctx context.Context, id string) (*models.Trade, error)
	GetTrades(ctx context.Context, filter TradeFilter) ([]models.Trade, error)
	DeleteTrade(ctx context.Context, id string) error
	Close() error
}

// TradeFilter narrows journal queries. Zero values match everything.
type TradeFilter struct {
	Underlying string
	Strategy   string
	StartDate  time.Time
	EndDate    time.Time
	Limit      int
}
