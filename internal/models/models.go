// Package models provides domain models for the trading engine.
package models

import "time"

// Side represents the direction of a trade.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Sign returns +1 for a long trade and -1 for a short trade.
func (s Side) Sign() float64 {
	if s == SideSell {
		return -1
	}
	return 1
}

// OrderType represents the type of an order.
type OrderType string

const (
	OrderTypeMarket OrderType = "MARKET"
	OrderTypeLimit  OrderType = "LIMIT"
)

// OrderStatus represents the lifecycle status of an order.
type OrderStatus string

const (
	OrderStatusPlaced   OrderStatus = "PLACED"
	OrderStatusFilled   OrderStatus = "FILLED"
	OrderStatusRejected OrderStatus = "REJECTED"
	OrderStatusFailed   OrderStatus = "FAILED"
)

// OrderTag distinguishes entry orders from exit orders.
type OrderTag string

const (
	OrderTagEntry OrderTag = "entry"
	OrderTagExit  OrderTag = "exit"
)

// PositionState represents the state of a trade attempt in the
// PROPOSED -> ORDER_PLACED -> OPEN -> CLOSING -> CLOSED machine.
type PositionState string

const (
	StateProposed    PositionState = "PROPOSED"
	StateOrderPlaced PositionState = "ORDER_PLACED"
	StateOpen        PositionState = "OPEN"
	StateClosing     PositionState = "CLOSING"
	StateClosed      PositionState = "CLOSED"
	StateRejected    PositionState = "REJECTED"
	StateFailed      PositionState = "FAILED"
)

// ExitReason records why a position was closed.
type ExitReason string

const (
	ExitReasonStopLoss      ExitReason = "stop_loss"
	ExitReasonTrailingStop  ExitReason = "trailing_stop"
	ExitReasonTakeProfit    ExitReason = "take_profit"
	ExitReasonROI           ExitReason = "roi"
	ExitReasonSignal        ExitReason = "signal"
	ExitReasonEndOfBacktest ExitReason = "end_of_backtest"
)

// Candle represents OHLCV data for a time period.
type Candle struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    int64
}

// TickCandle builds a degenerate candle from a single live price,
// so the live monitoring path and the bar replay path share one code path.
func TickCandle(price float64, ts time.Time) Candle {
	return Candle{Timestamp: ts, Open: price, High: price, Low: price, Close: price}
}

// Signal is a scored entry opportunity for a symbol at a point in time,
// supplied by the scoring collaborator (stored for backtests, live otherwise).
type Signal struct {
	Symbol    string
	Timestamp time.Time
	Score     float64
	Sector    string
}

// EquityPoint represents one point on an equity curve.
type EquityPoint struct {
	Date   time.Time
	Equity float64
}
