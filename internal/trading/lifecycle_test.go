package trading

import (
	"math"
	"testing"
	"time"

	apperrors "tradebot/internal/errors"
	"tradebot/internal/models"
)

var t0 = time.Date(2024, 6, 3, 9, 30, 0, 0, time.UTC)

func bar(open, high, low, close float64, at time.Time) models.Candle {
	return models.Candle{Timestamp: at, Open: open, High: high, Low: low, Close: close, Volume: 1000}
}

func longProposal() models.TradeProposal {
	return models.TradeProposal{
		Symbol:          "AAPL",
		Side:            models.SideBuy,
		Shares:          100,
		Price:           100,
		StopLossPct:     0.05,
		PositionSizePct: 0.10,
	}
}

func TestOpenPositionLevels(t *testing.T) {
	proposal := longProposal()
	proposal.TakeProfitPct = 0.10

	pos := OpenPosition("p1", proposal, 100, t0)
	if pos.State != models.StateOpen {
		t.Fatalf("state = %s, want OPEN", pos.State)
	}
	if pos.StopLoss != 95 {
		t.Fatalf("stop = %.2f, want 95", pos.StopLoss)
	}
	if pos.TakeProfit != 110 {
		t.Fatalf("take profit = %.2f, want 110", pos.TakeProfit)
	}
	if pos.HighWaterMark != 100 {
		t.Fatalf("hwm = %.2f, want entry price", pos.HighWaterMark)
	}

	short := proposal
	short.Side = models.SideSell
	spos := OpenPosition("p2", short, 100, t0)
	if spos.StopLoss != 105 {
		t.Fatalf("short stop = %.2f, want 105", spos.StopLoss)
	}
	if spos.TakeProfit != 90 {
		t.Fatalf("short take profit = %.2f, want 90", spos.TakeProfit)
	}
}

func TestStopLossFillsAtStopLevel(t *testing.T) {
	pos := OpenPosition("p1", longProposal(), 100, t0)

	// Day trades above the stop: no exit.
	event, err := Advance(pos, bar(100, 102, 96, 101, t0.Add(24*time.Hour)), nil, false)
	if err != nil || event != nil {
		t.Fatalf("unexpected exit %v, err %v", event, err)
	}

	// Low pierces the stop intrabar: fill at the stop level.
	event, err = Advance(pos, bar(99, 100, 94, 94.5, t0.Add(48*time.Hour)), nil, false)
	if err != nil {
		t.Fatal(err)
	}
	if event == nil || event.Reason != models.ExitReasonStopLoss {
		t.Fatalf("event = %+v, want stop_loss", event)
	}
	if event.Price != 95 {
		t.Fatalf("fill = %.2f, want stop level 95", event.Price)
	}
}

func TestStopLossGapThroughFillsAtOpen(t *testing.T) {
	pos := OpenPosition("p1", longProposal(), 100, t0)

	event, err := Advance(pos, bar(92, 93, 90, 91, t0.Add(24*time.Hour)), nil, false)
	if err != nil {
		t.Fatal(err)
	}
	if event == nil || event.Price != 92 {
		t.Fatalf("gap-through should fill at open 92, got %+v", event)
	}
}

func TestTrailingStopTightensOnly(t *testing.T) {
	proposal := longProposal()
	proposal.TrailingStopPct = 0.04

	pos := OpenPosition("p1", proposal, 100, t0)

	// Rally to 110: trailing stop arms at 110 * 0.96 = 105.6.
	if event, _ := Advance(pos, bar(100, 111, 100, 110, t0.Add(time.Hour)), nil, false); event != nil {
		t.Fatalf("unexpected exit %+v", event)
	}
	if math.Abs(pos.TrailingStop-105.6) > 1e-9 {
		t.Fatalf("trailing = %.4f, want 105.6", pos.TrailingStop)
	}

	// Pullback to 107: water mark and trailing stop must not loosen.
	if event, _ := Advance(pos, bar(110, 110, 106, 107, t0.Add(2*time.Hour)), nil, false); event != nil {
		t.Fatalf("unexpected exit %+v", event)
	}
	if pos.HighWaterMark != 110 {
		t.Fatalf("hwm = %.2f, want 110", pos.HighWaterMark)
	}
	if math.Abs(pos.TrailingStop-105.6) > 1e-9 {
		t.Fatalf("trailing loosened to %.4f", pos.TrailingStop)
	}

	// Drop through the trailing stop: exit tagged trailing_stop, not stop_loss.
	event, err := Advance(pos, bar(106, 106, 104, 104.5, t0.Add(3*time.Hour)), nil, false)
	if err != nil {
		t.Fatal(err)
	}
	if event == nil || event.Reason != models.ExitReasonTrailingStop {
		t.Fatalf("event = %+v, want trailing_stop", event)
	}
	if math.Abs(event.Price-105.6) > 1e-9 {
		t.Fatalf("fill = %.4f, want trailing level", event.Price)
	}
}

func TestTrailingStopArmsForNextBarOnly(t *testing.T) {
	proposal := longProposal()
	proposal.TrailingStopPct = 0.05

	pos := OpenPosition("p1", proposal, 100, t0)

	// Up bar that dips to 96 before closing at 110. The trailing level
	// 104.5 only exists once the close is known, so this bar must not
	// exit even though its low and open sit below that level.
	event, err := Advance(pos, bar(100, 111, 96, 110, t0.Add(time.Hour)), nil, false)
	if err != nil {
		t.Fatal(err)
	}
	if event != nil {
		t.Fatalf("exited on the arming bar: %+v", event)
	}
	if math.Abs(pos.TrailingStop-104.5) > 1e-9 {
		t.Fatalf("trailing = %.4f, want 104.5", pos.TrailingStop)
	}

	// The level holds from the following bar on.
	event, err = Advance(pos, bar(108, 108, 104, 105, t0.Add(2*time.Hour)), nil, false)
	if err != nil {
		t.Fatal(err)
	}
	if event == nil || event.Reason != models.ExitReasonTrailingStop {
		t.Fatalf("event = %+v, want trailing_stop", event)
	}
	if math.Abs(event.Price-104.5) > 1e-9 {
		t.Fatalf("fill = %.4f, want trailing level", event.Price)
	}
}

func TestROITableExit(t *testing.T) {
	roi := ROITable{
		{After: 0, MinReturn: 0.10},
		{After: 48 * time.Hour, MinReturn: 0.02},
	}.Normalize()

	pos := OpenPosition("p1", longProposal(), 100, t0)

	// +3% after one day: threshold is still 10%.
	if event, _ := Advance(pos, bar(100, 104, 100, 103, t0.Add(24*time.Hour)), roi, false); event != nil {
		t.Fatalf("unexpected exit %+v", event)
	}

	// +3% after three days: the 48h step (2%) now applies.
	event, err := Advance(pos, bar(103, 104, 102, 103, t0.Add(72*time.Hour)), roi, false)
	if err != nil {
		t.Fatal(err)
	}
	if event == nil || event.Reason != models.ExitReasonROI {
		t.Fatalf("event = %+v, want roi", event)
	}
	if event.Price != 103 {
		t.Fatalf("roi exits at close, got %.2f", event.Price)
	}
}

func TestExternalSignalIsLowestPriority(t *testing.T) {
	pos := OpenPosition("p1", longProposal(), 100, t0)

	// Stop breach and external signal on the same bar: stop wins.
	event, err := Advance(pos, bar(99, 100, 94, 96, t0.Add(time.Hour)), nil, true)
	if err != nil {
		t.Fatal(err)
	}
	if event.Reason != models.ExitReasonStopLoss {
		t.Fatalf("reason = %s, want stop_loss", event.Reason)
	}

	pos2 := OpenPosition("p2", longProposal(), 100, t0)
	event, err = Advance(pos2, bar(100, 101, 99, 100.5, t0.Add(time.Hour)), nil, true)
	if err != nil {
		t.Fatal(err)
	}
	if event == nil || event.Reason != models.ExitReasonSignal {
		t.Fatalf("event = %+v, want signal", event)
	}
}

func TestCloseProducesTradeWithNetPnL(t *testing.T) {
	pos := OpenPosition("p1", longProposal(), 100, t0)
	exitAt := t0.Add(90 * time.Minute)

	if err := BeginClose(pos); err != nil {
		t.Fatal(err)
	}
	trade, err := Close(pos, ExitEvent{Reason: models.ExitReasonTakeProfit, Price: 110, Time: exitAt}, 21)
	if err != nil {
		t.Fatal(err)
	}

	// Gross = (110-100)*100 = 1000; net of 21 commission = 979.
	if math.Abs(trade.PnL-979) > 1e-9 {
		t.Fatalf("pnl = %.2f, want 979", trade.PnL)
	}
	if math.Abs(trade.PnLPct-0.0979) > 1e-9 {
		t.Fatalf("pnlPct = %.4f, want 0.0979", trade.PnLPct)
	}
	if trade.HoldMinutes != 90 {
		t.Fatalf("holdMinutes = %.1f, want 90", trade.HoldMinutes)
	}
	if pos.State != models.StateClosed {
		t.Fatalf("state = %s, want CLOSED", pos.State)
	}
}

func TestShortTradePnLSign(t *testing.T) {
	proposal := longProposal()
	proposal.Side = models.SideSell

	pos := OpenPosition("p1", proposal, 100, t0)
	if err := BeginClose(pos); err != nil {
		t.Fatal(err)
	}
	trade, err := Close(pos, ExitEvent{Reason: models.ExitReasonSignal, Price: 90, Time: t0.Add(time.Hour)}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if trade.PnL != 1000 {
		t.Fatalf("short pnl = %.2f, want +1000 on a 10-point drop", trade.PnL)
	}
}

func TestIllegalTransitionsSurfaceStateError(t *testing.T) {
	pos := OpenPosition("p1", longProposal(), 100, t0)
	if err := BeginClose(pos); err != nil {
		t.Fatal(err)
	}

	// Advancing a CLOSING position is a programming error.
	if _, err := Advance(pos, bar(100, 101, 99, 100, t0.Add(time.Hour)), nil, false); err == nil {
		t.Fatal("expected StateError")
	} else {
		var stateErr *apperrors.StateError
		if !apperrors.As(err, &stateErr) {
			t.Fatalf("err = %T, want *StateError", err)
		}
	}

	// Double close.
	if _, err := Close(pos, ExitEvent{Price: 100, Time: t0}, 0); err != nil {
		t.Fatal(err)
	}
	if _, err := Close(pos, ExitEvent{Price: 100, Time: t0}, 0); err == nil {
		t.Fatal("closing a CLOSED position must fail loudly")
	}

	if CanTransition(models.StateClosed, models.StateOpen) {
		t.Fatal("CLOSED is terminal")
	}
	if !CanTransition(models.StateOpen, models.StateOpen) {
		t.Fatal("OPEN must self-loop")
	}
}
