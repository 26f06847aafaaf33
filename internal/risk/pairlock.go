// Package risk provides the admission gate for trade proposals: pair
// locks, the rule-based risk guard, and the serialized admit-and-reserve
// boundary shared by the live and backtest paths.
package risk

import (
	"sync"
	"time"
)

// PairLock is an exclusivity marker preventing new entries on a symbol
// until it expires or is explicitly released.
type PairLock struct {
	Symbol    string
	ExpiresAt time.Time
	Reason    string
}

// PairLockManager is an in-memory registry of temporary per-symbol locks.
// Expiry is lazy: a lock whose expiry has passed is treated as absent on
// read. Prune may be called for memory hygiene without changing observable
// behavior. The registry is safe for concurrent use.
type PairLockManager struct {
	mu    sync.RWMutex
	locks map[string]PairLock
	now   func() time.Time
}

// NewPairLockManager creates an empty lock registry using wall-clock time.
func NewPairLockManager() *PairLockManager {
	return NewPairLockManagerWithClock(time.Now)
}

// NewPairLockManagerWithClock creates a registry with an injected clock.
// The backtest engine drives this with simulated bar time so runs stay
// deterministic.
func NewPairLockManagerWithClock(now func() time.Time) *PairLockManager {
	return &PairLockManager{
		locks: make(map[string]PairLock),
		now:   now,
	}
}

// Lock installs or overwrites a lock on the symbol. The latest call wins,
// whether it extends or shortens the window.
func (m *PairLockManager) Lock(symbol string, duration time.Duration, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locks[symbol] = PairLock{
		Symbol:    symbol,
		ExpiresAt: m.now().Add(duration),
		Reason:    reason,
	}
}

// IsLocked reports whether the symbol has an unexpired lock.
func (m *PairLockManager) IsLocked(symbol string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	lock, ok := m.locks[symbol]
	return ok && m.now().Before(lock.ExpiresAt)
}

// Unlock removes any lock on the symbol. No-op if absent.
func (m *PairLockManager) Unlock(symbol string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locks, symbol)
}

// Reason returns the lock reason for diagnostics, and whether an
// unexpired lock exists.
func (m *PairLockManager) Reason(symbol string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	lock, ok := m.locks[symbol]
	if !ok || !m.now().Before(lock.ExpiresAt) {
		return "", false
	}
	return lock.Reason, true
}

// Prune removes expired entries and returns how many were dropped.
func (m *PairLockManager) Prune() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	dropped := 0
	for symbol, lock := range m.locks {
		if !now.Before(lock.ExpiresAt) {
			delete(m.locks, symbol)
			dropped++
		}
	}
	return dropped
}

// Active returns a snapshot of unexpired locks, for UI/diagnostics.
func (m *PairLockManager) Active() []PairLock {
	m.mu.RLock()
	defer m.mu.RUnlock()
	now := m.now()
	var active []PairLock
	for _, lock := range m.locks {
		if now.Before(lock.ExpiresAt) {
			active = append(active, lock)
		}
	}
	return active
}
