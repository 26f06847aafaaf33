package trading

import (
	"fmt"
	"time"

	apperrors "tradebot/internal/errors"
	"tradebot/internal/models"
)

// validTransitions defines the position/order state machine:
// PROPOSED -> ORDER_PLACED -> OPEN -> CLOSING -> CLOSED, with REJECTED
// terminal from PROPOSED and FAILED terminal from ORDER_PLACED (live path
// execution failures). OPEN self-loops on each price update or bar.
var validTransitions = map[models.PositionState][]models.PositionState{
	models.StateProposed:    {models.StateOrderPlaced, models.StateRejected},
	models.StateOrderPlaced: {models.StateOpen, models.StateFailed},
	models.StateOpen:        {models.StateOpen, models.StateClosing},
	models.StateClosing:     {models.StateClosed},
}

// CanTransition reports whether from -> to is a legal transition.
func CanTransition(from, to models.PositionState) bool {
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// transition moves the position to a new state or surfaces a StateError.
// An illegal transition indicates state-machine corruption and is never
// swallowed.
func transition(pos *models.Position, to models.PositionState) error {
	if !CanTransition(pos.State, to) {
		return apperrors.NewStateError("position:"+pos.Symbol, string(pos.State), string(to))
	}
	pos.State = to
	return nil
}

// ExitEvent describes a fired exit condition.
type ExitEvent struct {
	Reason models.ExitReason
	Price  float64
	Time   time.Time
}

// NewEntryOrder builds the entry order for an admitted proposal.
func NewEntryOrder(id string, proposal models.TradeProposal, at time.Time) *models.Order {
	return &models.Order{
		ID:       id,
		Symbol:   proposal.Symbol,
		Side:     proposal.Side,
		Type:     models.OrderTypeMarket,
		Tag:      models.OrderTagEntry,
		Shares:   proposal.Shares,
		Price:    proposal.Price,
		Status:   models.OrderStatusPlaced,
		PlacedAt: at,
	}
}

// NewExitOrder builds the exit order for a closing position.
func NewExitOrder(id string, pos *models.Position, event ExitEvent) *models.Order {
	side := models.SideSell
	if pos.Side == models.SideSell {
		side = models.SideBuy
	}
	return &models.Order{
		ID:         id,
		Symbol:     pos.Symbol,
		Side:       side,
		Type:       models.OrderTypeMarket,
		Tag:        models.OrderTagExit,
		Shares:     pos.Shares,
		Price:      event.Price,
		Status:     models.OrderStatusPlaced,
		PositionID: pos.ID,
		PlacedAt:   event.Time,
	}
}

// OpenPosition creates an OPEN position from an admitted proposal and its
// entry fill. The high-water mark starts at the entry price; the stop and
// take-profit levels are derived from the proposal's fractions.
func OpenPosition(id string, proposal models.TradeProposal, fillPrice float64, fillTime time.Time) *models.Position {
	pos := &models.Position{
		ID:              id,
		Symbol:          proposal.Symbol,
		Side:            proposal.Side,
		Shares:          proposal.Shares,
		EntryPrice:      fillPrice,
		EntryTime:       fillTime,
		TrailingStopPct: proposal.TrailingStopPct,
		HighWaterMark:   fillPrice,
		TechnicalScore:  proposal.Score,
		State:           models.StateOpen,
		Sector:          proposal.Sector,
	}
	if proposal.Side == models.SideSell {
		pos.StopLoss = fillPrice * (1 + proposal.StopLossPct)
		if proposal.TakeProfitPct > 0 {
			pos.TakeProfit = fillPrice * (1 - proposal.TakeProfitPct)
		}
	} else {
		pos.StopLoss = fillPrice * (1 - proposal.StopLossPct)
		if proposal.TakeProfitPct > 0 {
			pos.TakeProfit = fillPrice * (1 + proposal.TakeProfitPct)
		}
	}
	return pos
}

// Advance performs the OPEN self-loop for one price update or bar: it
// evaluates the exit conditions in order (stop/trailing breach, take
// profit, ROI table, external exit signal), refreshing the high-water
// mark and trailing stop for the next update. The first match wins. A
// nil event means the position stays open. externalExit marks a fresh
// exit signal from the decision layer, valid only while OPEN.
func Advance(pos *models.Position, bar models.Candle, roi ROITable, externalExit bool) (*ExitEvent, error) {
	if pos.State != models.StateOpen {
		return nil, apperrors.NewStateError("position:"+pos.Symbol, string(pos.State), string(models.StateOpen))
	}

	// 1. Stop loss / trailing stop breach, against the level in force
	// entering this bar. The trailing level derived from this bar's
	// close arms below; applying it to the same bar's range would be
	// intra-bar lookahead.
	if event := checkStop(pos, bar); event != nil {
		return event, nil
	}

	updateWaterMark(pos, bar.Close)

	// 2. Take-profit target
	if event := checkTakeProfit(pos, bar); event != nil {
		return event, nil
	}

	// 3. ROI table: exit once the held-duration threshold is met
	if len(roi) > 0 {
		ret := pos.Side.Sign() * (bar.Close - pos.EntryPrice) / pos.EntryPrice
		if min, ok := roi.MinReturn(bar.Timestamp.Sub(pos.EntryTime)); ok && ret >= min {
			return &ExitEvent{Reason: models.ExitReasonROI, Price: bar.Close, Time: bar.Timestamp}, nil
		}
	}

	// 4. External exit signal from the decision layer
	if externalExit {
		return &ExitEvent{Reason: models.ExitReasonSignal, Price: bar.Close, Time: bar.Timestamp}, nil
	}

	return nil, nil
}

// updateWaterMark moves the high-water mark in the position's favor only,
// and tightens the trailing stop toward price, never loosening it.
func updateWaterMark(pos *models.Position, price float64) {
	if pos.Side == models.SideSell {
		if price < pos.HighWaterMark {
			pos.HighWaterMark = price
		}
		if pos.TrailingStopPct > 0 {
			level := pos.HighWaterMark * (1 + pos.TrailingStopPct)
			if pos.TrailingStop == 0 || level < pos.TrailingStop {
				pos.TrailingStop = level
			}
		}
		return
	}
	if price > pos.HighWaterMark {
		pos.HighWaterMark = price
	}
	if pos.TrailingStopPct > 0 {
		level := pos.HighWaterMark * (1 - pos.TrailingStopPct)
		if level > pos.TrailingStop {
			pos.TrailingStop = level
		}
	}
}

func checkStop(pos *models.Position, bar models.Candle) *ExitEvent {
	stop := pos.EffectiveStop()
	if stop == 0 {
		return nil
	}
	reason := models.ExitReasonStopLoss
	if pos.TrailingStop != 0 && stop == pos.TrailingStop && stop != pos.StopLoss {
		reason = models.ExitReasonTrailingStop
	}

	if pos.Side == models.SideSell {
		if bar.High >= stop {
			price := stop
			if bar.Open >= stop {
				price = bar.Open // gapped through the stop
			}
			return &ExitEvent{Reason: reason, Price: price, Time: bar.Timestamp}
		}
		return nil
	}
	if bar.Low <= stop {
		price := stop
		if bar.Open <= stop {
			price = bar.Open
		}
		return &ExitEvent{Reason: reason, Price: price, Time: bar.Timestamp}
	}
	return nil
}

func checkTakeProfit(pos *models.Position, bar models.Candle) *ExitEvent {
	if pos.TakeProfit == 0 {
		return nil
	}
	if pos.Side == models.SideSell {
		if bar.Low <= pos.TakeProfit {
			price := pos.TakeProfit
			if bar.Open <= pos.TakeProfit {
				price = bar.Open
			}
			return &ExitEvent{Reason: models.ExitReasonTakeProfit, Price: price, Time: bar.Timestamp}
		}
		return nil
	}
	if bar.High >= pos.TakeProfit {
		price := pos.TakeProfit
		if bar.Open >= pos.TakeProfit {
			price = bar.Open
		}
		return &ExitEvent{Reason: models.ExitReasonTakeProfit, Price: price, Time: bar.Timestamp}
	}
	return nil
}

// BeginClose transitions OPEN -> CLOSING when an exit condition fires.
func BeginClose(pos *models.Position) error {
	return transition(pos, models.StateClosing)
}

// Close converts a CLOSING position into an immutable Trade record once
// the exit fill is confirmed. commission is the total commission across
// entry and exit fills and is deducted from PnL.
func Close(pos *models.Position, event ExitEvent, commission float64) (*models.Trade, error) {
	if err := transition(pos, models.StateClosed); err != nil {
		return nil, err
	}

	entryValue := pos.EntryPrice * float64(pos.Shares)
	pnl := (event.Price-pos.EntryPrice)*float64(pos.Shares)*pos.Side.Sign() - commission

	trade := &models.Trade{
		ID:             fmt.Sprintf("%s-%d", pos.Symbol, event.Time.UnixNano()),
		Symbol:         pos.Symbol,
		Side:           pos.Side,
		Shares:         pos.Shares,
		EntryPrice:     pos.EntryPrice,
		ExitPrice:      event.Price,
		EntryTime:      pos.EntryTime,
		ExitTime:       event.Time,
		PnL:            pnl,
		PnLPct:         pnl / entryValue,
		ExitReason:     event.Reason,
		HoldMinutes:    event.Time.Sub(pos.EntryTime).Minutes(),
		TechnicalScore: pos.TechnicalScore,
	}
	return trade, nil
}
