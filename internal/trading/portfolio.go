// Package trading implements the position/order lifecycle and the shared
// portfolio ledger used by both the live path and the backtest simulator.
package trading

import (
	"fmt"
	"sync"
	"time"

	apperrors "tradebot/internal/errors"
	"tradebot/internal/models"
)

// Portfolio is the process-wide mutable account state: cash, open
// positions, sector exposure, and day P&L. It is explicitly constructed
// and injected (never a package global) so tests can reset it between
// runs. All methods are safe for concurrent use; admission-time
// evaluate-then-reserve atomicity is layered on top by risk.Admitter.
type Portfolio struct {
	mu sync.RWMutex

	cash        float64
	initial     float64
	peak        float64
	dayPnL      float64
	dayStart    float64
	currentDay  time.Time
	pending     int // admitted proposals awaiting fill confirmation
	positions   map[string]*models.Position
	sectorValue map[string]float64
}

// NewPortfolio creates a portfolio ledger with the given starting cash.
func NewPortfolio(initialCash float64) *Portfolio {
	return &Portfolio{
		cash:        initialCash,
		initial:     initialCash,
		peak:        initialCash,
		dayStart:    initialCash,
		positions:   make(map[string]*models.Position),
		sectorValue: make(map[string]float64),
	}
}

// Snapshot returns a read-only view for risk evaluation. Map fields are
// copies; the caller may hold them without racing the ledger.
func (pf *Portfolio) Snapshot() models.PortfolioState {
	pf.mu.RLock()
	defer pf.mu.RUnlock()

	value := pf.valueLocked()
	sectorPct := make(map[string]float64, len(pf.sectorValue))
	sectorVal := make(map[string]float64, len(pf.sectorValue))
	for sector, v := range pf.sectorValue {
		sectorVal[sector] = v
		if value > 0 {
			sectorPct[sector] = v / value
		}
	}

	pnlPct := 0.0
	if pf.dayStart > 0 {
		pnlPct = pf.dayPnL / pf.dayStart
	}

	return models.PortfolioState{
		CashAvailable:       pf.cash,
		PortfolioValue:      value,
		OpenPositions:       len(pf.positions) + pf.pending,
		TodayPnL:            pf.dayPnL,
		TodayPnLPct:         pnlPct,
		PeakValue:           pf.peak,
		SectorExposurePct:   sectorPct,
		SectorExposureValue: sectorVal,
	}
}

// valueLocked marks positions at entry price; callers needing
// mark-to-market use Equity with current prices.
func (pf *Portfolio) valueLocked() float64 {
	value := pf.cash
	for _, pos := range pf.positions {
		value += pos.EntryPrice * float64(pos.Shares)
	}
	return value
}

// Reserve debits cash and claims position capacity for an admitted
// proposal. It enforces the same limits the guard checked so the
// admission boundary cannot overdraw even if misused.
func (pf *Portfolio) Reserve(proposal models.TradeProposal) error {
	pf.mu.Lock()
	defer pf.mu.Unlock()

	value := proposal.Value()
	if value > pf.cash {
		return fmt.Errorf("insufficient cash: need %.2f, available %.2f", value, pf.cash)
	}
	if _, exists := pf.positions[proposal.Symbol]; exists {
		return fmt.Errorf("position already open for %s", proposal.Symbol)
	}
	pf.cash -= value
	pf.pending++
	return nil
}

// Confirm installs a filled position, converting a reservation into an
// open holding. At most one position per symbol may exist at any time.
func (pf *Portfolio) Confirm(pos *models.Position) error {
	pf.mu.Lock()
	defer pf.mu.Unlock()

	if _, exists := pf.positions[pos.Symbol]; exists {
		return apperrors.NewStateError("portfolio", "open:"+pos.Symbol, "open:"+pos.Symbol)
	}
	if pf.pending > 0 {
		pf.pending--
	}
	pf.positions[pos.Symbol] = pos
	if pos.Sector != "" {
		pf.sectorValue[pos.Sector] += pos.EntryPrice * float64(pos.Shares)
	}
	return nil
}

// Debit reduces cash directly, e.g. for commission on an entry fill.
func (pf *Portfolio) Debit(amount float64) {
	pf.mu.Lock()
	defer pf.mu.Unlock()
	pf.cash -= amount
}

// Release refunds a reservation after a failed fill.
func (pf *Portfolio) Release(proposal models.TradeProposal) {
	pf.mu.Lock()
	defer pf.mu.Unlock()
	pf.cash += proposal.Value()
	if pf.pending > 0 {
		pf.pending--
	}
}

// Settle removes a closed position and credits the exit proceeds.
func (pf *Portfolio) Settle(trade *models.Trade, proceeds float64) error {
	pf.mu.Lock()
	defer pf.mu.Unlock()

	pos, ok := pf.positions[trade.Symbol]
	if !ok {
		return apperrors.ErrPositionNotFound
	}
	delete(pf.positions, trade.Symbol)
	if pos.Sector != "" {
		pf.sectorValue[pos.Sector] -= pos.EntryPrice * float64(pos.Shares)
		if pf.sectorValue[pos.Sector] <= 0 {
			delete(pf.sectorValue, pos.Sector)
		}
	}
	pf.cash += proceeds
	pf.dayPnL += trade.PnL
	if v := pf.valueLocked(); v > pf.peak {
		pf.peak = v
	}
	return nil
}

// Position returns the open position for a symbol, if any.
func (pf *Portfolio) Position(symbol string) (*models.Position, bool) {
	pf.mu.RLock()
	defer pf.mu.RUnlock()
	pos, ok := pf.positions[symbol]
	return pos, ok
}

// OpenSymbols returns the symbols with open positions.
func (pf *Portfolio) OpenSymbols() []string {
	pf.mu.RLock()
	defer pf.mu.RUnlock()
	symbols := make([]string, 0, len(pf.positions))
	for symbol := range pf.positions {
		symbols = append(symbols, symbol)
	}
	return symbols
}

// Cash returns available cash.
func (pf *Portfolio) Cash() float64 {
	pf.mu.RLock()
	defer pf.mu.RUnlock()
	return pf.cash
}

// Equity marks the portfolio to market using the supplied prices. Symbols
// without a quote fall back to entry price.
func (pf *Portfolio) Equity(prices map[string]float64) float64 {
	pf.mu.RLock()
	defer pf.mu.RUnlock()

	equity := pf.cash
	for symbol, pos := range pf.positions {
		price, ok := prices[symbol]
		if !ok {
			price = pos.EntryPrice
		}
		if pos.Side == models.SideSell {
			equity += (2*pos.EntryPrice - price) * float64(pos.Shares)
		} else {
			equity += price * float64(pos.Shares)
		}
	}
	return equity
}

// RollDay resets day P&L tracking at a new calendar day boundary.
func (pf *Portfolio) RollDay(day time.Time, equity float64) {
	pf.mu.Lock()
	defer pf.mu.Unlock()
	day = day.Truncate(24 * time.Hour)
	if !day.After(pf.currentDay) {
		return
	}
	pf.currentDay = day
	pf.dayPnL = 0
	pf.dayStart = equity
	if equity > pf.peak {
		pf.peak = equity
	}
}
