package models

import "time"

// Order is a unit of execution intent tied to a position.
// Terminal statuses (FILLED, REJECTED, FAILED) are immutable.
type Order struct {
	ID           string
	Symbol       string
	Side         Side
	Type         OrderType
	Tag          OrderTag
	Shares       int
	Price        float64
	Status       OrderStatus
	FilledPrice  float64
	PositionID   string
	PlacedAt     time.Time
	CompletedAt  time.Time
	StatusReason string
}

// Position is an open holding. HighWaterMark tracks the most favorable
// price seen since entry and only ever moves in the position's favor.
type Position struct {
	ID              string
	Symbol          string
	Side            Side
	Shares          int
	EntryPrice      float64
	EntryTime       time.Time
	StopLoss        float64 // absolute price level
	TrailingStopPct float64 // fraction; 0 disables trailing
	TrailingStop    float64 // current trailing level, 0 until armed
	TakeProfit      float64 // absolute price level; 0 disables
	HighWaterMark   float64
	TechnicalScore  float64
	State           PositionState
	Sector          string
}

// EffectiveStop returns the stop level currently in force: the tighter of
// the fixed stop and the trailing stop.
func (p *Position) EffectiveStop() float64 {
	if p.TrailingStop == 0 {
		return p.StopLoss
	}
	if p.Side == SideSell {
		if p.TrailingStop < p.StopLoss || p.StopLoss == 0 {
			return p.TrailingStop
		}
		return p.StopLoss
	}
	if p.TrailingStop > p.StopLoss {
		return p.TrailingStop
	}
	return p.StopLoss
}
