// Package metrics provides pure performance-statistics functions over an
// ordered trade list and an equity curve. Every ratio metric is a
// *float64 whose nil value means "undefined" (zero samples or zero
// variance); callers must handle absence explicitly and never coerce it
// to zero.
package metrics

import (
	"math"

	"tradebot/internal/models"
)

// Metrics is the full set of risk-adjusted performance statistics.
type Metrics struct {
	TotalTrades   int
	WinningTrades int
	LosingTrades  int
	WinRate       float64 // fraction

	AvgWin  *float64
	AvgLoss *float64

	TotalReturnPct      float64 // fraction
	AnnualizedReturnPct float64 // fraction
	MaxDrawdownPct      float64 // fraction

	SharpeRatio  *float64
	SortinoRatio *float64
	CalmarRatio  *float64
	SQN          *float64
	ProfitFactor *float64
	Expectancy   float64

	BestTrade  *models.Trade
	WorstTrade *models.Trade
}

func ptr(v float64) *float64 { return &v }

// Compute derives all metrics from a trade list and an equity curve of
// ordered (date, equity) points. periodsPerYear annualizes per-period
// return statistics (252 for daily equity points).
func Compute(trades []models.Trade, curve []models.EquityPoint, periodsPerYear float64) Metrics {
	m := Metrics{}

	var wins, losses []float64
	var totalPnL float64
	for i := range trades {
		t := &trades[i]
		totalPnL += t.PnL
		// Breakeven trades count toward the total and expectancy only.
		if t.PnL > 0 {
			wins = append(wins, t.PnL)
		} else if t.PnL < 0 {
			losses = append(losses, t.PnL)
		}
		if m.BestTrade == nil || betterThan(t, m.BestTrade) {
			m.BestTrade = t
		}
		if m.WorstTrade == nil || worseThan(t, m.WorstTrade) {
			m.WorstTrade = t
		}
	}

	m.TotalTrades = len(trades)
	m.WinningTrades = len(wins)
	m.LosingTrades = len(losses)
	if m.TotalTrades > 0 {
		m.WinRate = float64(m.WinningTrades) / float64(m.TotalTrades)
		m.Expectancy = totalPnL / float64(m.TotalTrades)
	}
	if len(wins) > 0 {
		m.AvgWin = ptr(mean(wins))
	}
	if len(losses) > 0 {
		m.AvgLoss = ptr(mean(losses))
	}
	if sumLoss := sum(losses); sumLoss != 0 {
		m.ProfitFactor = ptr(sum(wins) / math.Abs(sumLoss))
	}

	m.SQN = sqn(trades)
	m.MaxDrawdownPct = MaxDrawdown(curve)

	returns := PeriodReturns(curve)
	m.SharpeRatio = sharpe(returns, periodsPerYear)
	m.SortinoRatio = sortino(returns, periodsPerYear)

	if len(curve) > 1 && curve[0].Equity > 0 {
		m.TotalReturnPct = curve[len(curve)-1].Equity/curve[0].Equity - 1
		m.AnnualizedReturnPct = annualize(curve)
		if m.MaxDrawdownPct > 0 {
			m.CalmarRatio = ptr(m.AnnualizedReturnPct / m.MaxDrawdownPct)
		}
	}

	return m
}

// betterThan ranks by PnLPct descending, ties broken by earliest exit.
func betterThan(a, b *models.Trade) bool {
	if a.PnLPct != b.PnLPct {
		return a.PnLPct > b.PnLPct
	}
	return a.ExitTime.Before(b.ExitTime)
}

func worseThan(a, b *models.Trade) bool {
	if a.PnLPct != b.PnLPct {
		return a.PnLPct < b.PnLPct
	}
	return a.ExitTime.Before(b.ExitTime)
}

// MaxDrawdown returns the largest peak-to-trough decline of the equity
// curve as a fraction of the running (non-decreasing) peak.
func MaxDrawdown(curve []models.EquityPoint) float64 {
	var peak, maxDD float64
	for _, point := range curve {
		if point.Equity > peak {
			peak = point.Equity
		}
		if peak > 0 {
			if dd := (peak - point.Equity) / peak; dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}

// PeriodReturns converts an equity curve into simple per-period returns.
func PeriodReturns(curve []models.EquityPoint) []float64 {
	if len(curve) < 2 {
		return nil
	}
	returns := make([]float64, 0, len(curve)-1)
	for i := 1; i < len(curve); i++ {
		prev := curve[i-1].Equity
		if prev == 0 {
			returns = append(returns, 0)
			continue
		}
		returns = append(returns, curve[i].Equity/prev-1)
	}
	return returns
}

// sharpe is mean return over sample standard deviation, annualized.
// Undefined (nil) when there are fewer than two returns or zero variance.
func sharpe(returns []float64, periodsPerYear float64) *float64 {
	if len(returns) < 2 {
		return nil
	}
	sd := stdDev(returns)
	if sd == 0 {
		return nil
	}
	return ptr(mean(returns) / sd * math.Sqrt(periodsPerYear))
}

// sortino replaces the denominator with downside deviation: the root mean
// square of returns clamped above at zero. Undefined when no downside.
func sortino(returns []float64, periodsPerYear float64) *float64 {
	if len(returns) < 2 {
		return nil
	}
	var sumSq float64
	for _, r := range returns {
		if r < 0 {
			sumSq += r * r
		}
	}
	dd := math.Sqrt(sumSq / float64(len(returns)))
	if dd == 0 {
		return nil
	}
	return ptr(mean(returns) / dd * math.Sqrt(periodsPerYear))
}

// sqn is the System Quality Number: mean(pnlPct)/stdDev(pnlPct)*sqrt(n).
func sqn(trades []models.Trade) *float64 {
	if len(trades) < 2 {
		return nil
	}
	pcts := make([]float64, len(trades))
	for i, t := range trades {
		pcts[i] = t.PnLPct
	}
	sd := stdDev(pcts)
	if sd == 0 {
		return nil
	}
	return ptr(mean(pcts) / sd * math.Sqrt(float64(len(trades))))
}

// annualize computes the compound annual growth rate from the curve's
// endpoints using calendar time.
func annualize(curve []models.EquityPoint) float64 {
	first, last := curve[0], curve[len(curve)-1]
	days := last.Date.Sub(first.Date).Hours() / 24
	if days <= 0 || first.Equity <= 0 {
		return 0
	}
	years := days / 365
	return math.Pow(last.Equity/first.Equity, 1/years) - 1
}

func sum(values []float64) float64 {
	var s float64
	for _, v := range values {
		s += v
	}
	return s
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return sum(values) / float64(len(values))
}

// stdDev is the sample standard deviation (n-1 denominator).
func stdDev(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}
	mu := mean(values)
	var variance float64
	for _, v := range values {
		variance += (v - mu) * (v - mu)
	}
	return math.Sqrt(variance / float64(n-1))
}
