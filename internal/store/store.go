// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"tradebot/internal/models"
)

// DataStore defines the interface for data persistence.
type DataStore interface {
	// Candles
	SaveCandles(ctx context.Context, symbol, timeframe string, candles []models.Candle) error
	GetCandles(ctx context.Context, symbol, timeframe string, from, to time.Time) ([]models.Candle, error)
	GetCandlesFreshness(ctx context.Context, symbol, timeframe string) (time.Time, error)

	// Signals
	SaveSignals(ctx context.Context, signals []models.Signal) error
	GetSignals(ctx context.Context, symbol string, from, to time.Time) ([]models.Signal, error)

	// Trades
	LogTrade(ctx context.Context, trade *models.Trade) error
	GetTrades(ctx context.Context, filter TradeFilter) ([]models.Trade, error)

	// Backtest runs
	SaveBacktestRun(ctx context.Context, run *BacktestRun) error
	LogBacktestTrades(ctx context.Context, runID string, trades []models.Trade) error
	GetBacktestRuns(ctx context.Context, limit int) ([]BacktestRun, error)

	// Lifecycle
	Close() error
}

// TradeFilter represents filters for querying trades.
type TradeFilter struct {
	Symbol     string
	StartDate  time.Time
	EndDate    time.Time
	Side       string
	ExitReason string
	RunID      string
	Limit      int
}

// BacktestRun is a persisted record of a single backtest execution: its
// configuration snapshot and headline results, keyed by run ID.
type BacktestRun struct {
	ID             string
	CreatedAt      time.Time
	Symbols        []string
	StartDate      time.Time
	EndDate        time.Time
	InitialCapital float64
	FinalEquity    float64
	TotalTrades    int
	WinRate        float64
	TotalReturnPct float64
	MaxDrawdownPct float64
	ConfigJSON     string
}
