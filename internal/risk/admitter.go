package risk

import (
	"sync"

	"tradebot/internal/models"
)

// Ledger is the mutable portfolio view the admitter reserves against.
// Implementations must be internally consistent, but the admitter still
// serializes evaluate-then-reserve so two concurrent proposals cannot both
// pass the cash check against the same stale snapshot.
type Ledger interface {
	Snapshot() models.PortfolioState
	Reserve(proposal models.TradeProposal) error
}

// Admitter couples risk validation with portfolio reservation as one
// atomic unit. Trade admission is serialized globally per portfolio;
// position monitoring stays concurrent because each symbol's position is
// independently owned.
type Admitter struct {
	mu     sync.Mutex
	guard  *Guard
	ledger Ledger
}

// NewAdmitter creates an admitter over a guard and a portfolio ledger.
func NewAdmitter(guard *Guard, ledger Ledger) *Admitter {
	return &Admitter{guard: guard, ledger: ledger}
}

// Admit validates the proposal against a fresh snapshot and, if admitted,
// reserves cash and position capacity before releasing the admission
// boundary. A reservation failure surfaces as a rejection value since the
// ledger enforces the same limits the snapshot was taken under.
func (a *Admitter) Admit(proposal models.TradeProposal) Decision {
	a.mu.Lock()
	defer a.mu.Unlock()

	decision := a.guard.Validate(proposal, a.ledger.Snapshot())
	if !decision.Allowed {
		return decision
	}
	if err := a.ledger.Reserve(proposal); err != nil {
		return Decision{Allowed: false, Reason: err.Error()}
	}
	return decision
}
