package risk

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"tradebot/internal/config"
	"tradebot/internal/models"
)

// Property: a symbol with an unexpired pair lock is rejected no matter how
// healthy the proposal or the portfolio looks.
func TestProperty_LockedSymbolAlwaysRejected(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("locked symbol is always rejected", prop.ForAll(
		func(shares int, price, cash float64) bool {
			now := time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC)
			locks := NewPairLockManagerWithClock(func() time.Time { return now })
			locks.Lock("AAPL", time.Hour, "stop_loss")

			guard := NewGuard(testConstraints(), locks)
			proposal := validProposal()
			proposal.Shares = shares
			proposal.Price = price

			portfolio := cleanPortfolio()
			portfolio.CashAvailable = cash
			portfolio.PortfolioValue = cash

			return !guard.Validate(proposal, portfolio).Allowed
		},
		gen.IntRange(1, 10000),
		gen.Float64Range(0.01, 5000),
		gen.Float64Range(1, 1e9),
	))

	properties.TestingRun(t)
}

// Property: once the portfolio holds MaxPositions or more, every new
// proposal is rejected regardless of its parameters.
func TestProperty_MaxPositionsRejectsAllEntries(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("full book rejects every entry", prop.ForAll(
		func(maxPositions, extra int, sizePct, stopPct float64) bool {
			constraints := testConstraints()
			constraints.MaxPositions = maxPositions

			guard := NewGuard(constraints, NewPairLockManager())
			proposal := validProposal()
			proposal.PositionSizePct = sizePct
			proposal.StopLossPct = stopPct

			portfolio := cleanPortfolio()
			portfolio.OpenPositions = maxPositions + extra

			return !guard.Validate(proposal, portfolio).Allowed
		},
		gen.IntRange(1, 20),
		gen.IntRange(0, 5),
		gen.Float64Range(0.01, 0.20),
		gen.Float64Range(0.01, 0.10),
	))

	properties.TestingRun(t)
}

// Property: a proposal whose notional value exceeds available cash is
// rejected.
func TestProperty_InsufficientCashRejected(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("proposal over cash is rejected", prop.ForAll(
		func(shares int, price, cashFraction float64) bool {
			proposal := validProposal()
			proposal.Shares = shares
			proposal.Price = price
			proposal.PositionSizePct = 0.10
			proposal.StopLossPct = 0.02

			portfolio := cleanPortfolio()
			portfolio.CashAvailable = proposal.Value() * cashFraction
			portfolio.PortfolioValue = portfolio.CashAvailable

			return !NewGuard(testConstraints(), NewPairLockManager()).
				Validate(proposal, portfolio).Allowed
		},
		gen.IntRange(1, 10000),
		gen.Float64Range(1, 5000),
		gen.Float64Range(0, 0.99),
	))

	properties.TestingRun(t)
}

// Property: a proposal satisfying every constraint against a clean
// portfolio is admitted, and the admitter reserves exactly its value.
func TestProperty_CleanProposalAdmittedAndReserved(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("clean proposal is admitted", prop.ForAll(
		func(shares int, price, sizePct, stopPct float64) bool {
			constraints := config.RiskConstraints{
				MaxPositions:       10,
				MaxPositionSizePct: 0.25,
				MinStopLossPct:     0.01,
				MaxStopLossPct:     0.10,
				MaxRiskPerTradePct: 0.25 * 0.10, // never the binding constraint here
				DailyLossLimitPct:  0.05,
			}

			proposal := models.TradeProposal{
				Symbol:          "MSFT",
				Side:            models.SideBuy,
				Shares:          shares,
				Price:           price,
				StopLossPct:     stopPct,
				PositionSizePct: sizePct,
			}

			portfolio := models.PortfolioState{
				CashAvailable:  proposal.Value() + 1,
				PortfolioValue: proposal.Value() + 1,
			}

			return NewGuard(constraints, NewPairLockManager()).
				Validate(proposal, portfolio).Allowed
		},
		gen.IntRange(1, 1000),
		gen.Float64Range(1, 1000),
		gen.Float64Range(0.01, 0.25),
		gen.Float64Range(0.01, 0.10),
	))

	properties.TestingRun(t)
}
