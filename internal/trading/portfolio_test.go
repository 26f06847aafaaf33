package trading

import (
	"math"
	"testing"
	"time"

	"tradebot/internal/models"
)

func TestPortfolioReserveConfirmSettle(t *testing.T) {
	pf := NewPortfolio(100000)
	proposal := longProposal() // 100 shares @ 100

	if err := pf.Reserve(proposal); err != nil {
		t.Fatal(err)
	}
	if pf.Cash() != 90000 {
		t.Fatalf("cash = %.2f, want 90000", pf.Cash())
	}

	snap := pf.Snapshot()
	if snap.OpenPositions != 1 {
		t.Fatalf("pending reservation must count toward open positions, got %d", snap.OpenPositions)
	}

	pos := OpenPosition("p1", proposal, 100, t0)
	pos.Sector = "tech"
	if err := pf.Confirm(pos); err != nil {
		t.Fatal(err)
	}

	snap = pf.Snapshot()
	if snap.OpenPositions != 1 {
		t.Fatalf("open positions = %d, want 1", snap.OpenPositions)
	}
	if snap.SectorExposureValue["tech"] != 10000 {
		t.Fatalf("sector exposure = %.2f, want 10000", snap.SectorExposureValue["tech"])
	}

	if err := BeginClose(pos); err != nil {
		t.Fatal(err)
	}
	trade, err := Close(pos, ExitEvent{Reason: models.ExitReasonTakeProfit, Price: 110, Time: t0.Add(time.Hour)}, 0)
	if err != nil {
		t.Fatal(err)
	}
	proceeds := trade.EntryPrice*float64(trade.Shares) + trade.PnL
	if err := pf.Settle(trade, proceeds); err != nil {
		t.Fatal(err)
	}

	if pf.Cash() != 101000 {
		t.Fatalf("cash = %.2f, want 101000", pf.Cash())
	}
	snap = pf.Snapshot()
	if snap.OpenPositions != 0 {
		t.Fatalf("open positions = %d, want 0", snap.OpenPositions)
	}
	if len(snap.SectorExposureValue) != 0 {
		t.Fatalf("sector exposure not released: %+v", snap.SectorExposureValue)
	}
	if snap.TodayPnL != 1000 {
		t.Fatalf("today pnl = %.2f, want 1000", snap.TodayPnL)
	}
}

func TestPortfolioReleaseRefundsReservation(t *testing.T) {
	pf := NewPortfolio(50000)
	proposal := longProposal()

	if err := pf.Reserve(proposal); err != nil {
		t.Fatal(err)
	}
	pf.Release(proposal)

	if pf.Cash() != 50000 {
		t.Fatalf("cash = %.2f, want full refund", pf.Cash())
	}
	if snap := pf.Snapshot(); snap.OpenPositions != 0 {
		t.Fatalf("open positions = %d, want 0", snap.OpenPositions)
	}
}

func TestPortfolioOnePositionPerSymbol(t *testing.T) {
	pf := NewPortfolio(100000)
	proposal := longProposal()

	if err := pf.Reserve(proposal); err != nil {
		t.Fatal(err)
	}
	if err := pf.Confirm(OpenPosition("p1", proposal, 100, t0)); err != nil {
		t.Fatal(err)
	}

	if err := pf.Reserve(proposal); err == nil {
		t.Fatal("second reservation on the same symbol must fail")
	}
	if err := pf.Confirm(OpenPosition("p2", proposal, 100, t0)); err == nil {
		t.Fatal("second confirm on the same symbol must surface a StateError")
	}
}

func TestPortfolioEquityMarksToMarket(t *testing.T) {
	pf := NewPortfolio(100000)

	long := longProposal()
	if err := pf.Reserve(long); err != nil {
		t.Fatal(err)
	}
	pf.Confirm(OpenPosition("p1", long, 100, t0))

	short := longProposal()
	short.Symbol = "TSLA"
	short.Side = models.SideSell
	if err := pf.Reserve(short); err != nil {
		t.Fatal(err)
	}
	pf.Confirm(OpenPosition("p2", short, 100, t0))

	// Long gains 5/share, short loses 5/share: equity is flat.
	equity := pf.Equity(map[string]float64{"AAPL": 105, "TSLA": 105})
	if math.Abs(equity-100000) > 1e-9 {
		t.Fatalf("equity = %.2f, want 100000", equity)
	}

	// Both move in the long's favor.
	equity = pf.Equity(map[string]float64{"AAPL": 105, "TSLA": 95})
	if math.Abs(equity-101000) > 1e-9 {
		t.Fatalf("equity = %.2f, want 101000", equity)
	}
}

func TestPortfolioRollDayResetsDailyPnL(t *testing.T) {
	pf := NewPortfolio(100000)
	proposal := longProposal()
	pf.Reserve(proposal)
	pos := OpenPosition("p1", proposal, 100, t0)
	pf.Confirm(pos)
	BeginClose(pos)
	trade, _ := Close(pos, ExitEvent{Reason: models.ExitReasonStopLoss, Price: 95, Time: t0.Add(time.Hour)}, 0)
	pf.Settle(trade, trade.EntryPrice*float64(trade.Shares)+trade.PnL)

	if snap := pf.Snapshot(); snap.TodayPnL != -500 {
		t.Fatalf("today pnl = %.2f, want -500", snap.TodayPnL)
	}

	pf.RollDay(t0.Add(24*time.Hour), 99500)
	if snap := pf.Snapshot(); snap.TodayPnL != 0 {
		t.Fatalf("day roll must reset daily pnl, got %.2f", snap.TodayPnL)
	}
}
