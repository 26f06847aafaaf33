// Package agents provides decision sources that turn market context into
// trade decisions. A DecisionSource only proposes; the risk layer decides
// whether a proposal is admitted.
package agents

import (
	"context"

	"tradebot/internal/models"
)

// MarketContext is the input a decision source evaluates: the latest
// signal for a symbol plus recent price history.
type MarketContext struct {
	Signal  models.Signal
	Price   float64
	Candles []models.Candle
}

// DecisionSource produces a trade decision for a market context.
type DecisionSource interface {
	Decide(ctx context.Context, mc MarketContext) (*models.Decision, error)
}

// RuleSource is a deterministic decision source driven by signal score
// thresholds. It is the source the backtest engine uses, so its output
// depends only on its inputs.
type RuleSource struct {
	EntryThreshold  float64
	StopLossPct     float64 // fraction of entry price
	PositionSizePct float64 // fraction of equity
	TakeProfitPct   float64 // fraction of entry price, 0 disables
}

// Decide maps a signal score to BUY above the threshold, HOLD otherwise.
func (r *RuleSource) Decide(_ context.Context, mc MarketContext) (*models.Decision, error) {
	d := &models.Decision{
		Symbol:    mc.Signal.Symbol,
		Timestamp: mc.Signal.Timestamp,
		Action:    models.ActionHold,
	}
	if mc.Signal.Score >= r.EntryThreshold {
		d.Action = models.ActionBuy
		d.Confidence = mc.Signal.Score
		d.SuggestedStopLossPct = r.StopLossPct
		d.SuggestedPositionSizePct = r.PositionSizePct
		d.SuggestedTakeProfitPct = r.TakeProfitPct
	}
	return d, nil
}
