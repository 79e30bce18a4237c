package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	apperrors "optionsim/internal/errors"
	"optionsim/internal/models"
)

// SQLiteStore implements TradeJournal using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the journal database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, apperrors.NewDataError("journal", dbPath, "failed to open database", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, apperrors.NewDataError("journal", dbPath, "failed to initialize schema", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS trades (
		id TEXT PRIMARY KEY,
		timestamp DATETIME NOT NULL,
		underlying TEXT NOT NULL,
		strategy TEXT NOT NULL,
		quantity INTEGER NOT NULL,
		entry_cost REAL NOT NULL,
		exit_value REAL NOT NULL,
		pnl REAL NOT NULL,
		notes TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_trades_timestamp ON trades(timestamp);
	CREATE INDEX IF NOT EXISTS idx_trades_underlying ON trades(underlying);
	CREATE INDEX IF NOT EXISTS idx_trades_strategy ON trades(strategy);
	`

	_, err := s.db.Exec(schema)
	return err
}

// LogTrade saves a closed trade. The ID and timestamp must already be set.
func (s *SQLiteStore) LogTrade(ctx context.Context, trade *models.Trade) error {
	if trade == nil || trade.ID == "" {
		return apperrors.NewValidationError("id", "", "trade id is required")
	}
	if trade.Quantity <= 0 {
		return apperrors.NewValidationError("quantity", trade.Quantity, "must be positive")
	}

	query := `
	INSERT INTO trades (id, timestamp, underlying, strategy, quantity, entry_cost, exit_value, pnl, notes)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		trade.ID, trade.Timestamp.UTC(), strings.ToUpper(trade.Underlying), trade.Strategy,
		trade.Quantity, trade.EntryCost, trade.ExitValue, trade.PnL, trade.Notes,
	)
	if err != nil {
		return apperrors.NewDataError("trade", trade.ID, "failed to log trade", fmt.Errorf("%w: %v", apperrors.ErrDatabaseError, err))
	}
	return nil
}

// GetTrade returns one trade by ID.
func (s *SQLiteStore) GetTrade(ctx context.Context, id string) (*models.Trade, error) {
	query := `
	SELECT id, timestamp, underlying, strategy, quantity, entry_cost, exit_value, pnl, notes
	FROM trades WHERE id = ?
	`

	t, err := scanTrade(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, apperrors.NewDataError("trade", id, "not found", apperrors.ErrDataNotFound)
	}
	if err != nil {
		return nil, apperrors.NewDataError("trade", id, "failed to read trade", fmt.Errorf("%w: %v", apperrors.ErrDatabaseError, err))
	}
	return &t, nil
}

// GetTrades retrieves trades matching the filter, newest first.
func (s *SQLiteStore) GetTrades(ctx context.Context, filter TradeFilter) ([]models.Trade, error) {
	query := `
	SELECT id, timestamp, underlying, strategy, quantity, entry_cost, exit_value, pnl, notes
	FROM trades WHERE 1=1
	`
	var args []interface{}

	if filter.Underlying != "" {
		query += " AND underlying = ?"
		args = append(args, strings.ToUpper(filter.Underlying))
	}
	if filter.Strategy != "" {
		query += " AND strategy = ?"
		args = append(args, filter.Strategy)
	}
	if !filter.StartDate.IsZero() {
		query += " AND timestamp >= ?"
		args = append(args, filter.StartDate.UTC())
	}
	if !filter.EndDate.IsZero() {
		query += " AND timestamp <= ?"
		args = append(args, filter.EndDate.UTC())
	}

	query += " ORDER BY timestamp DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewDataError("trades", filter.Underlying, "failed to query trades", fmt.Errorf("%w: %v", apperrors.ErrDatabaseError, err))
	}
	defer rows.Close()

	trades := []models.Trade{}
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, apperrors.NewDataError("trades", filter.Underlying, "failed to scan trade", fmt.Errorf("%w: %v", apperrors.ErrDatabaseError, err))
		}
		trades = append(trades, t)
	}

	return trades, rows.Err()
}

// DeleteTrade removes a trade from the journal.
func (s *SQLiteStore) DeleteTrade(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM trades WHERE id = ?", id)
	if err != nil {
		return apperrors.NewDataError("trade", id, "failed to delete trade", fmt.Errorf("%w: %v", apperrors.ErrDatabaseError, err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return apperrors.NewDataError("trade", id, "failed to delete trade", fmt.Errorf("%w: %v", apperrors.ErrDatabaseError, err))
	}
	if n == 0 {
		return apperrors.NewDataError("trade", id, "not found", apperrors.ErrDataNotFound)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanTrade(row scanner) (models.Trade, error) {
	var t models.Trade
	var notes sql.NullString
	err := row.Scan(&t.ID, &t.Timestamp, &t.Underlying, &t.Strategy, &t.Quantity,
		&t.EntryCost, &t.ExitValue, &t.PnL, &notes)
	if err != nil {
		return models.Trade{}, err
	}
	t.Notes = notes.String
	return t, nil
}
