package models

import "time"

// TradeProposal is a candidate trade awaiting admission. It is created by
// the decision layer, consumed once by the risk guard, and never mutated.
//
// All *Pct fields are fractions: 0.05 means 5%.
type TradeProposal struct {
	Symbol          string
	Side            Side
	Shares          int
	Price           float64
	StopLossPct     float64
	PositionSizePct float64
	TakeProfitPct   float64
	TrailingStopPct float64
	Sector          string
	Score           float64 // technical score at proposal time
}

// Value returns the notional value of the proposal.
func (p TradeProposal) Value() float64 {
	return float64(p.Shares) * p.Price
}

// Trade is a completed round-trip. It is created exactly once, when a
// position closes, and is immutable thereafter.
type Trade struct {
	ID             string
	Symbol         string
	Side           Side
	Shares         int
	EntryPrice     float64
	ExitPrice      float64
	EntryTime      time.Time
	ExitTime       time.Time
	PnL            float64
	PnLPct         float64 // fraction of entry value, net of commission
	ExitReason     ExitReason
	HoldMinutes    float64
	TechnicalScore float64
}
