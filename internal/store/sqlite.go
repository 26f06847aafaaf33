package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"tradebot/internal/models"
)

// SQLiteStore implements DataStore using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite-based data store. dbPath must be a
// file path: the connection pool opens several connections, and a plain
// ":memory:" database is private to each of them. Tests use a file under
// t.TempDir.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS candles (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol TEXT NOT NULL,
		timeframe TEXT NOT NULL,
		timestamp DATETIME NOT NULL,
		open REAL NOT NULL,
		high REAL NOT NULL,
		low REAL NOT NULL,
		close REAL NOT NULL,
		volume INTEGER NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(symbol, timeframe, timestamp)
	);

	CREATE TABLE IF NOT EXISTS signals (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol TEXT NOT NULL,
		timestamp DATETIME NOT NULL,
		score REAL NOT NULL,
		sector TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(symbol, timestamp)
	);

	CREATE TABLE IF NOT EXISTS trades (
		id TEXT PRIMARY KEY,
		run_id TEXT,
		symbol TEXT NOT NULL,
		side TEXT NOT NULL,
		shares INTEGER NOT NULL,
		entry_price REAL NOT NULL,
		exit_price REAL NOT NULL,
		entry_time DATETIME NOT NULL,
		exit_time DATETIME NOT NULL,
		pnl REAL NOT NULL,
		pnl_pct REAL NOT NULL,
		exit_reason TEXT NOT NULL,
		hold_minutes INTEGER NOT NULL,
		technical_score REAL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS backtest_runs (
		id TEXT PRIMARY KEY,
		created_at DATETIME NOT NULL,
		symbols TEXT NOT NULL,
		start_date DATETIME NOT NULL,
		end_date DATETIME NOT NULL,
		initial_capital REAL NOT NULL,
		final_equity REAL NOT NULL,
		total_trades INTEGER NOT NULL,
		win_rate REAL NOT NULL,
		total_return_pct REAL NOT NULL,
		max_drawdown_pct REAL NOT NULL,
		config_json TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_candles_symbol_timeframe ON candles(symbol, timeframe);
	CREATE INDEX IF NOT EXISTS idx_candles_timestamp ON candles(timestamp);
	CREATE INDEX IF NOT EXISTS idx_signals_symbol ON signals(symbol);
	CREATE INDEX IF NOT EXISTS idx_signals_timestamp ON signals(timestamp);
	CREATE INDEX IF NOT EXISTS idx_trades_symbol ON trades(symbol);
	CREATE INDEX IF NOT EXISTS idx_trades_run ON trades(run_id);
	CREATE INDEX IF NOT EXISTS idx_trades_exit_time ON trades(exit_time);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ============================================================================
// Candles Methods
// ============================================================================

// SaveCandles saves candles to the database.
func (s *SQLiteStore) SaveCandles(ctx context.Context, symbol, timeframe string, candles []models.Candle) error {
	if len(candles) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO candles (symbol, timeframe, timestamp, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, c := range candles {
		_, err := stmt.ExecContext(ctx, symbol, timeframe, c.Timestamp, c.Open, c.High, c.Low, c.Close, c.Volume)
		if err != nil {
			return fmt.Errorf("failed to insert candle: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetCandles retrieves candles ordered by timestamp ascending.
func (s *SQLiteStore) GetCandles(ctx context.Context, symbol, timeframe string, from, to time.Time) ([]models.Candle, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT timestamp, open, high, low, close, volume
		FROM candles
		WHERE symbol = ? AND timeframe = ? AND timestamp >= ? AND timestamp <= ?
		ORDER BY timestamp ASC
	`, symbol, timeframe, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query candles: %w", err)
	}
	defer rows.Close()

	var candles []models.Candle
	for rows.Next() {
		var c models.Candle
		if err := rows.Scan(&c.Timestamp, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, fmt.Errorf("failed to scan candle: %w", err)
		}
		candles = append(candles, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating candles: %w", err)
	}

	return candles, nil
}

// GetCandlesFreshness returns the timestamp of the most recent candle.
func (s *SQLiteStore) GetCandlesFreshness(ctx context.Context, symbol, timeframe string) (time.Time, error) {
	var timestamp sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT MAX(timestamp) FROM candles WHERE symbol = ? AND timeframe = ?
	`, symbol, timeframe).Scan(&timestamp)
	if err != nil && err != sql.ErrNoRows {
		return time.Time{}, fmt.Errorf("failed to get candles freshness: %w", err)
	}
	if !timestamp.Valid {
		return time.Time{}, nil
	}
	return timestamp.Time, nil
}

// ============================================================================
// Signals Methods
// ============================================================================

// SaveSignals saves entry signals to the database.
func (s *SQLiteStore) SaveSignals(ctx context.Context, signals []models.Signal) error {
	if len(signals) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO signals (symbol, timestamp, score, sector)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, sig := range signals {
		_, err := stmt.ExecContext(ctx, sig.Symbol, sig.Timestamp, sig.Score, sig.Sector)
		if err != nil {
			return fmt.Errorf("failed to insert signal: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetSignals retrieves signals for a symbol ordered by timestamp ascending.
func (s *SQLiteStore) GetSignals(ctx context.Context, symbol string, from, to time.Time) ([]models.Signal, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT symbol, timestamp, score, COALESCE(sector, '')
		FROM signals
		WHERE symbol = ? AND timestamp >= ? AND timestamp <= ?
		ORDER BY timestamp ASC
	`, symbol, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query signals: %w", err)
	}
	defer rows.Close()

	var signals []models.Signal
	for rows.Next() {
		var sig models.Signal
		if err := rows.Scan(&sig.Symbol, &sig.Timestamp, &sig.Score, &sig.Sector); err != nil {
			return nil, fmt.Errorf("failed to scan signal: %w", err)
		}
		signals = append(signals, sig)
	}

	return signals, rows.Err()
}

// ============================================================================
// Trades Methods
// ============================================================================

// LogTrade saves a completed trade to the database.
func (s *SQLiteStore) LogTrade(ctx context.Context, trade *models.Trade) error {
	return s.insertTrade(ctx, s.db, "", trade)
}

// LogBacktestTrades saves the trades from a backtest run in one transaction.
func (s *SQLiteStore) LogBacktestTrades(ctx context.Context, runID string, trades []models.Trade) error {
	if len(trades) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for i := range trades {
		if err := s.insertTrade(ctx, tx, runID, &trades[i]); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func (s *SQLiteStore) insertTrade(ctx context.Context, ex execer, runID string, trade *models.Trade) error {
	_, err := ex.ExecContext(ctx, `
		INSERT OR REPLACE INTO trades (id, run_id, symbol, side, shares, entry_price, exit_price, entry_time, exit_time, pnl, pnl_pct, exit_reason, hold_minutes, technical_score)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, trade.ID, runID, trade.Symbol, trade.Side, trade.Shares, trade.EntryPrice, trade.ExitPrice, trade.EntryTime, trade.ExitTime, trade.PnL, trade.PnLPct, trade.ExitReason, trade.HoldMinutes, trade.TechnicalScore)
	if err != nil {
		return fmt.Errorf("failed to log trade: %w", err)
	}
	return nil
}

// GetTrades retrieves trades matching the filter, newest first.
func (s *SQLiteStore) GetTrades(ctx context.Context, filter TradeFilter) ([]models.Trade, error) {
	query := "SELECT id, symbol, side, shares, entry_price, exit_price, entry_time, exit_time, pnl, pnl_pct, exit_reason, hold_minutes, COALESCE(technical_score, 0) FROM trades WHERE 1=1"
	args := []interface{}{}

	if filter.Symbol != "" {
		query += " AND symbol = ?"
		args = append(args, filter.Symbol)
	}
	if filter.RunID != "" {
		query += " AND run_id = ?"
		args = append(args, filter.RunID)
	}
	if !filter.StartDate.IsZero() {
		query += " AND exit_time >= ?"
		args = append(args, filter.StartDate)
	}
	if !filter.EndDate.IsZero() {
		query += " AND exit_time <= ?"
		args = append(args, filter.EndDate)
	}
	if filter.Side != "" {
		query += " AND side = ?"
		args = append(args, filter.Side)
	}
	if filter.ExitReason != "" {
		query += " AND exit_reason = ?"
		args = append(args, filter.ExitReason)
	}

	query += " ORDER BY exit_time DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades: %w", err)
	}
	defer rows.Close()

	var trades []models.Trade
	for rows.Next() {
		var t models.Trade
		if err := rows.Scan(&t.ID, &t.Symbol, &t.Side, &t.Shares, &t.EntryPrice, &t.ExitPrice, &t.EntryTime, &t.ExitTime, &t.PnL, &t.PnLPct, &t.ExitReason, &t.HoldMinutes, &t.TechnicalScore); err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}
		trades = append(trades, t)
	}

	return trades, rows.Err()
}

// ============================================================================
// Backtest Runs Methods
// ============================================================================

// SaveBacktestRun persists a backtest run record.
func (s *SQLiteStore) SaveBacktestRun(ctx context.Context, run *BacktestRun) error {
	symbols, _ := json.Marshal(run.Symbols)

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO backtest_runs (id, created_at, symbols, start_date, end_date, initial_capital, final_equity, total_trades, win_rate, total_return_pct, max_drawdown_pct, config_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.CreatedAt, string(symbols), run.StartDate, run.EndDate, run.InitialCapital, run.FinalEquity, run.TotalTrades, run.WinRate, run.TotalReturnPct, run.MaxDrawdownPct, run.ConfigJSON)
	if err != nil {
		return fmt.Errorf("failed to save backtest run: %w", err)
	}
	return nil
}

// GetBacktestRuns retrieves recent backtest runs, newest first.
func (s *SQLiteStore) GetBacktestRuns(ctx context.Context, limit int) ([]BacktestRun, error) {
	query := `
		SELECT id, created_at, symbols, start_date, end_date, initial_capital, final_equity, total_trades, win_rate, total_return_pct, max_drawdown_pct, COALESCE(config_json, '')
		FROM backtest_runs ORDER BY created_at DESC
	`
	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query backtest runs: %w", err)
	}
	defer rows.Close()

	var runs []BacktestRun
	for rows.Next() {
		var r BacktestRun
		var symbolsJSON string
		if err := rows.Scan(&r.ID, &r.CreatedAt, &symbolsJSON, &r.StartDate, &r.EndDate, &r.InitialCapital, &r.FinalEquity, &r.TotalTrades, &r.WinRate, &r.TotalReturnPct, &r.MaxDrawdownPct, &r.ConfigJSON); err != nil {
			return nil, fmt.Errorf("failed to scan backtest run: %w", err)
		}
		json.Unmarshal([]byte(symbolsJSON), &r.Symbols)
		runs = append(runs, r)
	}

	return runs, rows.Err()
}
