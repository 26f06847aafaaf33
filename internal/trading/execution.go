package trading

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"tradebot/internal/broker"
	apperrors "tradebot/internal/errors"
	"tradebot/internal/models"
	"tradebot/internal/risk"
	"tradebot/internal/stream"
)

// Executor drives the live-path lifecycle: admission, entry fill, open
// position, and exit. It never retries a failed execution; the failure is
// reported upward and retry policy belongs to the caller. Lifecycle
// events are published fire-and-forget.
type Executor struct {
	log       zerolog.Logger
	admitter  *risk.Admitter
	portfolio *Portfolio
	broker    broker.Broker
	hub       *stream.Hub
	orderSeq  atomic.Uint64
}

// NewExecutor creates a live-path executor.
func NewExecutor(log zerolog.Logger, admitter *risk.Admitter, portfolio *Portfolio, b broker.Broker, hub *stream.Hub) *Executor {
	return &Executor{
		log:       log,
		admitter:  admitter,
		portfolio: portfolio,
		broker:    b,
		hub:       hub,
	}
}

func (e *Executor) nextOrderID(symbol string) string {
	return fmt.Sprintf("%s-%d", symbol, e.orderSeq.Add(1))
}

// SubmitProposal runs a proposal through PROPOSED -> ORDER_PLACED -> OPEN.
// A risk rejection is a normal outcome returned in the decision, not an
// error. An execution failure after admission releases the reservation
// and returns an OrderError.
func (e *Executor) SubmitProposal(ctx context.Context, proposal models.TradeProposal) (*models.Position, risk.Decision, error) {
	decision := e.admitter.Admit(proposal)
	if !decision.Allowed {
		e.log.Info().
			Str("symbol", proposal.Symbol).
			Str("reason", decision.Reason).
			Msg("proposal rejected")
		e.publish(stream.Event{
			Type:      stream.EventProposalRejected,
			Symbol:    proposal.Symbol,
			Reason:    decision.Reason,
			Timestamp: time.Now(),
		})
		return nil, decision, nil
	}

	order := NewEntryOrder(e.nextOrderID(proposal.Symbol), proposal, time.Now())
	result, err := e.broker.PlaceOrder(ctx, order)
	if err != nil || result.Status != models.OrderStatusFilled {
		e.portfolio.Release(proposal)
		reason := "broker error"
		if result != nil && result.Message != "" {
			reason = result.Message
		}
		e.publish(stream.Event{
			Type:      stream.EventOrderFailed,
			Symbol:    proposal.Symbol,
			Reason:    reason,
			Timestamp: time.Now(),
		})
		return nil, decision, apperrors.NewOrderError(order.ID, proposal.Symbol, "entry", reason, err)
	}

	pos := OpenPosition(result.OrderID, proposal, result.FilledPrice, time.Now())
	if err := e.portfolio.Confirm(pos); err != nil {
		// Duplicate position for a symbol is state-machine corruption.
		return nil, decision, err
	}

	e.log.Info().
		Str("symbol", pos.Symbol).
		Int("shares", pos.Shares).
		Float64("entry", pos.EntryPrice).
		Float64("stop", pos.StopLoss).
		Msg("position opened")
	e.publish(stream.Event{
		Type:      stream.EventPositionOpened,
		Symbol:    pos.Symbol,
		Position:  pos,
		Timestamp: time.Now(),
	})
	return pos, decision, nil
}

// MonitorTick performs one OPEN self-loop against a live price and, if an
// exit condition fires, drives the position through CLOSING -> CLOSED.
// It may be called concurrently for different symbols; each position is
// independently owned.
func (e *Executor) MonitorTick(ctx context.Context, pos *models.Position, price float64, roi ROITable, externalExit bool) (*models.Trade, error) {
	event, err := Advance(pos, models.TickCandle(price, time.Now()), roi, externalExit)
	if err != nil {
		return nil, err
	}
	if event == nil {
		return nil, nil
	}
	return e.ClosePosition(ctx, pos, *event)
}

// ClosePosition executes an exit order and settles the resulting trade.
// A position left in CLOSING by a failed exit fill may be passed back in
// to retry the exit.
func (e *Executor) ClosePosition(ctx context.Context, pos *models.Position, event ExitEvent) (*models.Trade, error) {
	if pos.State != models.StateClosing {
		if err := BeginClose(pos); err != nil {
			return nil, err
		}
	}

	order := NewExitOrder(e.nextOrderID(pos.Symbol), pos, event)
	result, err := e.broker.PlaceOrder(ctx, order)
	if err != nil || result.Status != models.OrderStatusFilled {
		reason := "broker error"
		if result != nil && result.Message != "" {
			reason = result.Message
		}
		return nil, apperrors.NewOrderError(order.ID, pos.Symbol, "exit", reason, err)
	}

	event.Price = result.FilledPrice
	trade, err := Close(pos, event, 0)
	if err != nil {
		return nil, err
	}
	proceeds := trade.EntryPrice*float64(trade.Shares) + trade.PnL
	if err := e.portfolio.Settle(trade, proceeds); err != nil {
		return nil, err
	}

	e.log.Info().
		Str("symbol", trade.Symbol).
		Str("reason", string(trade.ExitReason)).
		Float64("pnl", trade.PnL).
		Msg("position closed")
	e.publish(stream.Event{
		Type:      stream.EventPositionClosed,
		Symbol:    trade.Symbol,
		Reason:    string(trade.ExitReason),
		Trade:     trade,
		Timestamp: time.Now(),
	})
	return trade, nil
}

func (e *Executor) publish(event stream.Event) {
	if e.hub != nil {
		e.hub.Publish(event)
	}
}
