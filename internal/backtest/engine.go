// Package backtest replays historical candles and signals through the
// same risk gate and position lifecycle as the live path. Runs are
// deterministic: identical inputs produce identical results, with no
// wall-clock reads or map-ordered iteration on the simulation path.
package backtest

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"tradebot/internal/config"
	apperrors "tradebot/internal/errors"
	"tradebot/internal/metrics"
	"tradebot/internal/models"
	"tradebot/internal/risk"
	"tradebot/internal/store"
	"tradebot/internal/trading"
)

// Config holds the parameters for a single backtest run. All *Pct fields
// are fractions (0.05 means 5%).
type Config struct {
	Symbols        []string
	Timeframe      string
	StartDate      time.Time
	EndDate        time.Time
	InitialCapital float64

	Risk config.RiskConstraints

	// Entry rule
	EntryThreshold  float64
	PositionSizePct float64 // fraction of current equity per entry

	// Exit rules
	StopLossPct     float64
	TakeProfitPct   float64 // 0 disables
	TrailingStop    bool
	TrailingStopPct float64
	ROITable        trading.ROITable

	CommissionRate  float64 // fraction per fill, charged on both sides
	ReentryCooldown time.Duration
	PeriodsPerYear  float64
}

// Validate fails closed on undefined or nonsensical parameters.
func (c *Config) Validate() error {
	if err := c.Risk.Validate(); err != nil {
		return err
	}
	if len(c.Symbols) == 0 {
		return fmt.Errorf("%w: backtest requires at least one symbol", apperrors.ErrConfigInvalid)
	}
	if c.InitialCapital <= 0 {
		return fmt.Errorf("%w: initial capital must be positive", apperrors.ErrConfigInvalid)
	}
	if !c.EndDate.After(c.StartDate) {
		return fmt.Errorf("%w: end date must be after start date", apperrors.ErrConfigInvalid)
	}
	if c.CommissionRate < 0 {
		return fmt.Errorf("%w: commission rate cannot be negative", apperrors.ErrConfigInvalid)
	}
	if c.StopLossPct <= 0 {
		return fmt.Errorf("%w: stop loss must be positive", apperrors.ErrConfigInvalid)
	}
	if c.PositionSizePct <= 0 || c.PositionSizePct > 1 {
		return fmt.Errorf("%w: position size must be in (0,1]", apperrors.ErrConfigInvalid)
	}
	return nil
}

// Result is the full outcome of a backtest run.
type Result struct {
	Config            Config
	Trades            []models.Trade
	Metrics           metrics.Metrics
	EquityCurve       []models.EquityPoint
	DailyReturns      []float64
	FinalEquity       float64
	RejectedProposals int
}

// Engine runs backtests against a data store.
type Engine struct {
	store store.DataStore
	log   zerolog.Logger
}

// NewEngine creates a backtest engine.
func NewEngine(ds store.DataStore, log zerolog.Logger) *Engine {
	return &Engine{
		store: ds,
		log:   log.With().Str("component", "backtest").Logger(),
	}
}

// series is the per-symbol candle cursor during replay.
type series struct {
	candles []models.Candle
	idx     int
}

// barAt returns the candle at t and advances the cursor, or false if the
// symbol has no bar at t.
func (s *series) barAt(t time.Time) (models.Candle, bool) {
	if s.idx < len(s.candles) && s.candles[s.idx].Timestamp.Equal(t) {
		bar := s.candles[s.idx]
		s.idx++
		return bar, true
	}
	return models.Candle{}, false
}

// Run executes a backtest. Candles and signals are loaded from the store,
// merged onto a global timeline, and replayed bar by bar: exits are
// evaluated before new entries, and entries pass through the same
// admission gate as live trading.
func (e *Engine) Run(ctx context.Context, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	roi := cfg.ROITable.Normalize()
	timeframe := cfg.Timeframe
	if timeframe == "" {
		timeframe = "day"
	}

	symbols := append([]string(nil), cfg.Symbols...)
	sort.Strings(symbols)

	data, signals, timeline, err := e.loadData(ctx, symbols, timeframe, cfg.StartDate, cfg.EndDate)
	if err != nil {
		return nil, err
	}
	if len(timeline) == 0 {
		return nil, apperrors.NewDataError("candles", "", "no candles in range", apperrors.ErrInsufficientData)
	}

	// The simulation clock drives pair-lock expiry so cooldowns follow
	// bar time, not wall time.
	simNow := cfg.StartDate
	locks := risk.NewPairLockManagerWithClock(func() time.Time { return simNow })
	portfolio := trading.NewPortfolio(cfg.InitialCapital)
	admitter := risk.NewAdmitter(risk.NewGuard(cfg.Risk, locks), portfolio)

	var (
		trades   []models.Trade
		curve    []models.EquityPoint
		rejected int
		prices   = make(map[string]float64, len(symbols))
		lastBars = make(map[string]models.Candle, len(symbols))
		lastDay  = cfg.StartDate.Truncate(24 * time.Hour)
		posSeq   int
	)
	curve = append(curve, models.EquityPoint{Date: lastDay, Equity: cfg.InitialCapital})

	for _, t := range timeline {
		simNow = t
		day := t.Truncate(24 * time.Hour)
		if day.After(lastDay) {
			portfolio.RollDay(day, curve[len(curve)-1].Equity)
		}

		// Exits before entries: a symbol freed this bar may not be
		// re-entered until at least the next bar.
		for _, symbol := range symbols {
			bar, ok := data[symbol].barAt(t)
			if !ok {
				continue
			}
			prices[symbol] = bar.Close
			lastBars[symbol] = bar

			pos, open := portfolio.Position(symbol)
			if !open {
				continue
			}
			event, err := trading.Advance(pos, bar, roi, false)
			if err != nil {
				return nil, err
			}
			if event == nil {
				continue
			}
			trade, err := e.closePosition(portfolio, pos, *event, cfg.CommissionRate)
			if err != nil {
				return nil, err
			}
			trades = append(trades, *trade)
			if cfg.ReentryCooldown > 0 &&
				(event.Reason == models.ExitReasonStopLoss || event.Reason == models.ExitReasonTrailingStop) {
				locks.Lock(symbol, cfg.ReentryCooldown, string(event.Reason))
			}
		}

		// Entries
		for _, symbol := range symbols {
			bar, ok := lastBars[symbol]
			if !ok || !bar.Timestamp.Equal(t) {
				continue
			}
			if _, open := portfolio.Position(symbol); open {
				continue
			}
			sig, ok := signals[symbol][t.UnixNano()]
			if !ok || sig.Score < cfg.EntryThreshold {
				continue
			}

			equity := portfolio.Equity(prices)
			shares := int(equity * cfg.PositionSizePct / bar.Close)
			if shares <= 0 {
				continue
			}
			proposal := models.TradeProposal{
				Symbol:          symbol,
				Side:            models.SideBuy,
				Shares:          shares,
				Price:           bar.Close,
				StopLossPct:     cfg.StopLossPct,
				PositionSizePct: cfg.PositionSizePct,
				TakeProfitPct:   cfg.TakeProfitPct,
				Sector:          sig.Sector,
				Score:           sig.Score,
			}
			if cfg.TrailingStop {
				proposal.TrailingStopPct = cfg.TrailingStopPct
			}

			decision := admitter.Admit(proposal)
			if !decision.Allowed {
				rejected++
				e.log.Debug().Str("symbol", symbol).Time("bar", t).
					Str("reason", decision.Reason).Msg("proposal rejected")
				continue
			}

			posSeq++
			pos := trading.OpenPosition(fmt.Sprintf("bt-%d", posSeq), proposal, bar.Close, t)
			if err := portfolio.Confirm(pos); err != nil {
				return nil, err
			}
			portfolio.Debit(proposal.Value() * cfg.CommissionRate)
		}

		equity := portfolio.Equity(prices)
		if day.After(lastDay) {
			curve = append(curve, models.EquityPoint{Date: day, Equity: equity})
			lastDay = day
		} else {
			curve[len(curve)-1].Equity = equity
		}
	}

	// Force-close whatever is still open at the last seen bar so every
	// entry produces a trade record.
	for _, symbol := range symbols {
		pos, open := portfolio.Position(symbol)
		if !open {
			continue
		}
		bar := lastBars[symbol]
		event := trading.ExitEvent{
			Reason: models.ExitReasonEndOfBacktest,
			Price:  bar.Close,
			Time:   bar.Timestamp,
		}
		trade, err := e.closePosition(portfolio, pos, event, cfg.CommissionRate)
		if err != nil {
			return nil, err
		}
		trades = append(trades, *trade)
	}
	curve[len(curve)-1].Equity = portfolio.Equity(prices)

	result := &Result{
		Config:            cfg,
		Trades:            trades,
		EquityCurve:       curve,
		DailyReturns:      metrics.PeriodReturns(curve),
		FinalEquity:       curve[len(curve)-1].Equity,
		RejectedProposals: rejected,
	}
	result.Metrics = metrics.Compute(trades, curve, cfg.PeriodsPerYear)

	e.log.Info().
		Int("trades", len(trades)).
		Int("rejected", rejected).
		Float64("final_equity", result.FinalEquity).
		Msg("backtest complete")

	return result, nil
}

// closePosition runs the CLOSING -> CLOSED path and settles the ledger.
// Entry commission was debited at fill; the exit fill's commission is
// deducted from the proceeds, and the trade's PnL is net of both sides.
func (e *Engine) closePosition(portfolio *trading.Portfolio, pos *models.Position, event trading.ExitEvent, commissionRate float64) (*models.Trade, error) {
	if err := trading.BeginClose(pos); err != nil {
		return nil, err
	}
	entryValue := pos.EntryPrice * float64(pos.Shares)
	entryCom := entryValue * commissionRate
	exitCom := event.Price * float64(pos.Shares) * commissionRate

	trade, err := trading.Close(pos, event, entryCom+exitCom)
	if err != nil {
		return nil, err
	}
	// Entry commission already left the ledger at fill time, so it is
	// added back here to avoid charging it twice.
	proceeds := entryValue + trade.PnL + entryCom
	if err := portfolio.Settle(trade, proceeds); err != nil {
		return nil, err
	}
	return trade, nil
}

// loadData fetches candles and signals for every symbol and builds the
// merged, ascending global timeline of bar timestamps.
func (e *Engine) loadData(ctx context.Context, symbols []string, timeframe string, from, to time.Time) (map[string]*series, map[string]map[int64]models.Signal, []time.Time, error) {
	data := make(map[string]*series, len(symbols))
	signals := make(map[string]map[int64]models.Signal, len(symbols))
	seen := make(map[int64]struct{})
	var timeline []time.Time

	for _, symbol := range symbols {
		candles, err := e.store.GetCandles(ctx, symbol, timeframe, from, to)
		if err != nil {
			return nil, nil, nil, apperrors.NewDataError("candles", symbol, "loading candles", err)
		}
		data[symbol] = &series{candles: candles}
		for _, c := range candles {
			key := c.Timestamp.UnixNano()
			if _, ok := seen[key]; !ok {
				seen[key] = struct{}{}
				timeline = append(timeline, c.Timestamp)
			}
		}

		sigs, err := e.store.GetSignals(ctx, symbol, from, to)
		if err != nil {
			return nil, nil, nil, apperrors.NewDataError("signals", symbol, "loading signals", err)
		}
		bySym := make(map[int64]models.Signal, len(sigs))
		for _, s := range sigs {
			bySym[s.Timestamp.UnixNano()] = s
		}
		signals[symbol] = bySym
	}

	sort.Slice(timeline, func(i, j int) bool { return timeline[i].Before(timeline[j]) })
	return data, signals, timeline, nil
}

// Persist stores the run record and its trades under a run ID.
func (e *Engine) Persist(ctx context.Context, runID string, result *Result) error {
	cfgJSON, _ := json.Marshal(map[string]interface{}{
		"symbols":           result.Config.Symbols,
		"entry_threshold":   result.Config.EntryThreshold,
		"position_size_pct": result.Config.PositionSizePct,
		"stop_loss_pct":     result.Config.StopLossPct,
		"take_profit_pct":   result.Config.TakeProfitPct,
		"trailing_stop":     result.Config.TrailingStop,
		"commission_rate":   result.Config.CommissionRate,
		"reentry_cooldown":  result.Config.ReentryCooldown.String(),
	})

	run := &store.BacktestRun{
		ID:             runID,
		CreatedAt:      time.Now(),
		Symbols:        result.Config.Symbols,
		StartDate:      result.Config.StartDate,
		EndDate:        result.Config.EndDate,
		InitialCapital: result.Config.InitialCapital,
		FinalEquity:    result.FinalEquity,
		TotalTrades:    result.Metrics.TotalTrades,
		WinRate:        result.Metrics.WinRate,
		TotalReturnPct: result.Metrics.TotalReturnPct,
		MaxDrawdownPct: result.Metrics.MaxDrawdownPct,
		ConfigJSON:     string(cfgJSON),
	}
	if err := e.store.SaveBacktestRun(ctx, run); err != nil {
		return err
	}
	return e.store.LogBacktestTrades(ctx, runID, result.Trades)
}
