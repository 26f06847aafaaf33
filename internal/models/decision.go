package models

import "time"

// Action is a directional call from the decision layer.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionHold Action = "HOLD"
)

// Decision is a proposed action from the decision layer (AI or rule based).
// The engine only validates and executes decisions; it never generates them.
// A malformed or missing decision is treated upstream as "no trade".
type Decision struct {
	Symbol                   string
	Timestamp                time.Time
	Action                   Action
	Confidence               float64 // 0-100
	SuggestedStopLossPct     float64 // fraction
	SuggestedPositionSizePct float64 // fraction
	SuggestedTakeProfitPct   float64 // fraction
	ExitConditions           []string
	Reasoning                string
}

// Tradable reports whether the decision proposes an entry.
func (d *Decision) Tradable() bool {
	return d != nil && (d.Action == ActionBuy || d.Action == ActionSell)
}
