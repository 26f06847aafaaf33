package cli

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"tradebot/internal/metrics"
	"tradebot/internal/store"
)

func newMetricsCmd(app *App) *cobra.Command {
	var (
		runID   string
		symbol  string
		fromStr string
		toStr   string
		limit   int
	)

	cmd := &cobra.Command{
		Use:   "metrics",
		Short: "Compute performance statistics over recorded trades",
		Long: `Computes win rate, expectancy, profit factor, SQN and related
statistics over the trade log. Filter by backtest run, symbol, or exit-time
window. Equity-curve metrics (drawdown, Sharpe, Sortino, Calmar) need the
curve from a backtest run and are reported as n/a here.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Store == nil {
				return fmt.Errorf("data store unavailable")
			}

			filter := store.TradeFilter{RunID: runID, Symbol: symbol, Limit: limit}
			if fromStr != "" {
				from, err := time.Parse("2006-01-02", fromStr)
				if err != nil {
					return fmt.Errorf("invalid --from date: %w", err)
				}
				filter.StartDate = from
			}
			if toStr != "" {
				to, err := time.Parse("2006-01-02", toStr)
				if err != nil {
					return fmt.Errorf("invalid --to date: %w", err)
				}
				filter.EndDate = to.Add(24*time.Hour - time.Nanosecond)
			}

			trades, err := app.Store.GetTrades(cmd.Context(), filter)
			if err != nil {
				return err
			}
			if len(trades) == 0 {
				output.Warning("No trades match the filter")
				return nil
			}

			m := metrics.Compute(trades, nil, 252)
			if output.IsJSON() {
				return output.JSON(m)
			}

			color.Cyan("📈 Trade Statistics")
			output.Printf("  Trades:        %d (%d wins, %d losses)\n", m.TotalTrades, m.WinningTrades, m.LosingTrades)
			output.Printf("  Win rate:      %.1f%%\n", m.WinRate*100)
			output.Printf("  Expectancy:    %s\n", output.FormatPnL(m.Expectancy))
			if m.AvgWin != nil {
				output.Printf("  Avg win:       %s\n", output.FormatPnL(*m.AvgWin))
			}
			if m.AvgLoss != nil {
				output.Printf("  Avg loss:      %s\n", output.FormatPnL(*m.AvgLoss))
			}
			output.Printf("  Profit factor: %s\n", FormatRatio(m.ProfitFactor))
			output.Printf("  SQN:           %s\n", FormatRatio(m.SQN))
			if m.BestTrade != nil {
				output.Printf("  Best:          %s %s\n", m.BestTrade.Symbol, output.FormatPercent(m.BestTrade.PnLPct))
			}
			if m.WorstTrade != nil {
				output.Printf("  Worst:         %s %s\n", m.WorstTrade.Symbol, output.FormatPercent(m.WorstTrade.PnLPct))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&runID, "run", "", "restrict to one backtest run ID")
	cmd.Flags().StringVar(&symbol, "symbol", "", "restrict to one symbol")
	cmd.Flags().StringVar(&fromStr, "from", "", "earliest exit date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&toStr, "to", "", "latest exit date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&limit, "limit", 0, "cap the number of trades considered")
	return cmd
}
