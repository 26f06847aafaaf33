package models

// PortfolioState is a read-only snapshot of account risk exposure at
// evaluation time. It is supplied by the caller per evaluation; the risk
// guard never mutates it.
type PortfolioState struct {
	CashAvailable  float64
	PortfolioValue float64
	OpenPositions  int
	TodayPnL       float64
	TodayPnLPct    float64 // fraction
	PeakValue      float64

	// Sector exposure keyed by sector name. Pct values are fractions of
	// portfolio value; Value entries are absolute notional amounts.
	SectorExposurePct   map[string]float64
	SectorExposureValue map[string]float64
}
