package risk

import (
	"fmt"

	"tradebot/internal/config"
	"tradebot/internal/models"
)

// Decision is the outcome of a risk evaluation. A rejection is a normal,
// expected result carrying a reason; it is never an error.
type Decision struct {
	Allowed bool
	Reason  string
}

func reject(format string, args ...interface{}) Decision {
	return Decision{Allowed: false, Reason: fmt.Sprintf(format, args...)}
}

// Guard is the single admission gate for any trade proposal, live or
// simulated. It is a pure function of (proposal, portfolio, constraints)
// plus a read of the pair-lock registry; it performs no mutation. Cash
// reservation and position creation are the caller's responsibility
// (see Admitter).
type Guard struct {
	constraints config.RiskConstraints
	locks       *PairLockManager
}

// NewGuard creates a risk guard over the given constraints and lock
// registry.
func NewGuard(constraints config.RiskConstraints, locks *PairLockManager) *Guard {
	return &Guard{constraints: constraints, locks: locks}
}

// Validate evaluates the checks in a fixed order; the first failing check
// short-circuits and supplies the reason. Cheaper, more common failures
// come first.
func (g *Guard) Validate(proposal models.TradeProposal, portfolio models.PortfolioState) Decision {
	// 1. Pair lock
	if g.locks != nil && g.locks.IsLocked(proposal.Symbol) {
		reason, _ := g.locks.Reason(proposal.Symbol)
		return reject("pair locked: %s (%s)", proposal.Symbol, reason)
	}

	// 2. Max positions (entries only; exits never pass through the guard)
	if portfolio.OpenPositions >= g.constraints.MaxPositions {
		return reject("max positions reached: %d (max: %d)",
			portfolio.OpenPositions, g.constraints.MaxPositions)
	}

	// 3. Position sizing
	if proposal.PositionSizePct > g.constraints.MaxPositionSizePct {
		return reject("position size %.2f%% exceeds max %.2f%%",
			proposal.PositionSizePct*100, g.constraints.MaxPositionSizePct*100)
	}

	// 4. Stop-loss bounds
	if proposal.StopLossPct < g.constraints.MinStopLossPct ||
		proposal.StopLossPct > g.constraints.MaxStopLossPct {
		return reject("stop loss %.2f%% outside bounds [%.2f%%, %.2f%%]",
			proposal.StopLossPct*100,
			g.constraints.MinStopLossPct*100, g.constraints.MaxStopLossPct*100)
	}

	// 4b. Risk per trade: capital at risk if the stop fires
	riskPct := proposal.PositionSizePct * proposal.StopLossPct
	if riskPct > g.constraints.MaxRiskPerTradePct {
		return reject("risk per trade %.3f%% exceeds max %.3f%%",
			riskPct*100, g.constraints.MaxRiskPerTradePct*100)
	}

	// 5. Sufficient cash
	if value := proposal.Value(); value > portfolio.CashAvailable {
		return reject("insufficient cash: need %.2f, available %.2f",
			value, portfolio.CashAvailable)
	}

	// 6. Daily loss limit: circuit breaker, no new entries once breached
	if portfolio.TodayPnLPct <= -g.constraints.DailyLossLimitPct {
		return reject("daily loss limit breached: %.2f%% (limit: %.2f%%)",
			portfolio.TodayPnLPct*100, g.constraints.DailyLossLimitPct*100)
	}

	// 7. Sector concentration, when configured and sector data available
	if g.constraints.MaxSectorExposurePct > 0 && proposal.Sector != "" &&
		portfolio.PortfolioValue > 0 && portfolio.SectorExposureValue != nil {
		projected := (portfolio.SectorExposureValue[proposal.Sector] + proposal.Value()) /
			portfolio.PortfolioValue
		if projected > g.constraints.MaxSectorExposurePct {
			return reject("sector exposure for %s would reach %.2f%% (max: %.2f%%)",
				proposal.Sector, projected*100, g.constraints.MaxSectorExposurePct*100)
		}
	}

	return Decision{Allowed: true}
}
