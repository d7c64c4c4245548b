package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"cryptoProbTrader/internal/domain"
	"cryptoProbTrader/internal/ports"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Repository implements ports.OrderJournal using SQLite.
type Repository struct {
	db     *sql.DB
	logger ports.Logger
}

var _ ports.OrderJournal = (*Repository)(nil)

// Config holds configuration for the SQLite repository.
type Config struct {
	DBPath string
	Logger ports.Logger
}

// NewRepository creates a new SQLite repository instance.
func NewRepository(cfg Config) (*Repository, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for SQLite repository")
	}
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = "./data/order_journal.db" // Default path
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		err = fmt.Errorf("failed to create data directory '%s': %w", filepath.Dir(dbPath), err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		err = fmt.Errorf("failed to open database at '%s': %w", dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		err = fmt.Errorf("failed to ping database at '%s': %w", dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	// A single connection keeps writes serialized.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cfg.Logger.Info(context.Background(), "SQLite database connection established", map[string]interface{}{"path": dbPath})

	repo := &Repository{db: db, logger: cfg.Logger}
	if err := repo.initializeSchema(context.Background()); err != nil {
		db.Close()
		err = fmt.Errorf("failed to initialize database schema: %w", err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}
	return repo, nil
}

// initializeSchema creates tables if they don't exist.
// Times are stored as Unix milliseconds so ordering never depends on the
// driver's timestamp text format.
func (r *Repository) initializeSchema(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS order_intents (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		client_order_id TEXT NOT NULL,
		symbol TEXT NOT NULL,
		side TEXT NOT NULL,
		notional REAL NOT NULL,
		bar_open_ms INTEGER NOT NULL,
		created_ms INTEGER NOT NULL,
		paper INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		exchange_order_id INTEGER DEFAULT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_order_intents_symbol_bar ON order_intents (symbol, bar_open_ms);
	`
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to execute schema initialization: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	if r.db != nil {
		r.logger.Info(context.Background(), "Closing SQLite database connection")
		return r.db.Close()
	}
	return nil
}

// SaveIntent stores an emitted order intent and returns its assigned ID.
func (r *Repository) SaveIntent(ctx context.Context, intent *domain.OrderIntent) (int64, error) {
	if intent == nil {
		return 0, fmt.Errorf("save intent: %w: nil intent", ports.ErrInvalidRequest)
	}
	const query = `
	INSERT INTO order_intents (client_order_id, symbol, side, notional, bar_open_ms, created_ms, paper, status, exchange_order_id)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	var exchangeID sql.NullInt64
	if intent.ExchangeID != 0 {
		exchangeID = sql.NullInt64{Int64: intent.ExchangeID, Valid: true}
	}

	result, err := r.db.ExecContext(ctx, query,
		intent.ClientOrderID, intent.Symbol, string(intent.Side), intent.NotionalAmount,
		intent.BarOpenTime.UnixMilli(), intent.CreatedAt.UnixMilli(), intent.Paper, intent.Status, exchangeID)
	if err != nil {
		return 0, fmt.Errorf("failed to insert order intent for symbol %s: %w", intent.Symbol, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for order intent %s: %w", intent.Symbol, err)
	}
	intent.ID = id
	r.logger.Debug(ctx, "Order intent journaled", map[string]interface{}{
		"intentID":      id,
		"symbol":        intent.Symbol,
		"clientOrderID": intent.ClientOrderID,
		"status":        intent.Status,
	})
	return id, nil
}

// FindBySymbol retrieves the most recent intents for a symbol, newest bar first.
func (r *Repository) FindBySymbol(ctx context.Context, symbol string, limit int) ([]*domain.OrderIntent, error) {
	const query = `
	SELECT id, client_order_id, symbol, side, notional, bar_open_ms, created_ms, paper, status, exchange_order_id
	FROM order_intents
	WHERE symbol = ? ORDER BY bar_open_ms DESC, id DESC LIMIT ?`

	if limit <= 0 {
		limit = -1 // SQLite treats a negative LIMIT as unbounded
	}
	rows, err := r.db.QueryContext(ctx, query, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query order intents for symbol %s: %w", symbol, err)
	}
	defer rows.Close()

	intents := make([]*domain.OrderIntent, 0)
	for rows.Next() {
		intent, err := scanIntent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order intent during FindBySymbol: %w", err)
		}
		intents = append(intents, intent)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating order intent rows: %w", err)
	}
	return intents, nil
}

// LastBarOpenTime returns the bar open time of the latest journaled intent
// for a symbol, or the zero time when none exists.
func (r *Repository) LastBarOpenTime(ctx context.Context, symbol string) (time.Time, error) {
	const query = `SELECT bar_open_ms FROM order_intents WHERE symbol = ? ORDER BY bar_open_ms DESC LIMIT 1`

	var ms int64
	err := r.db.QueryRowContext(ctx, query, symbol).Scan(&ms)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, nil
		}
		return time.Time{}, fmt.Errorf("failed to query last bar open time for symbol %s: %w", symbol, err)
	}
	return time.UnixMilli(ms).UTC(), nil
}

// scanner defines an interface compatible with *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanIntent(s scanner) (*domain.OrderIntent, error) {
	in := &domain.OrderIntent{}
	var side string
	var barMs, createdMs int64
	var exchangeID sql.NullInt64
	err := s.Scan(&in.ID, &in.ClientOrderID, &in.Symbol, &side, &in.NotionalAmount,
		&barMs, &createdMs, &in.Paper, &in.Status, &exchangeID)
	if err != nil {
		return nil, err
	}
	in.Side = domain.OrderSide(side)
	in.BarOpenTime = time.UnixMilli(barMs).UTC()
	in.CreatedAt = time.UnixMilli(createdMs).UTC()
	if exchangeID.Valid {
		in.ExchangeID = exchangeID.Int64
	}
	return in, nil
}
