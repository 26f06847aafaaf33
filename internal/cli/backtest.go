package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"tradebot/internal/backtest"
)

func newBacktestCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backtest",
		Short: "Run and inspect backtests",
	}

	cmd.AddCommand(newBacktestRunCmd(app))
	cmd.AddCommand(newBacktestListCmd(app))
	return cmd
}

func newBacktestRunCmd(app *App) *cobra.Command {
	var (
		symbols   []string
		fromStr   string
		toStr     string
		capital   float64
		threshold float64
		sizePct   float64
		stopPct   float64
		tpPct     float64
		trailing  float64
		comm      float64
		cooldown  time.Duration
		noPersist bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a backtest over stored candles and signals",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Store == nil {
				return fmt.Errorf("data store unavailable")
			}

			from, err := time.Parse("2006-01-02", fromStr)
			if err != nil {
				return fmt.Errorf("invalid --from date: %w", err)
			}
			to, err := time.Parse("2006-01-02", toStr)
			if err != nil {
				return fmt.Errorf("invalid --to date: %w", err)
			}

			cfg := backtest.Config{
				Symbols:         symbols,
				StartDate:       from,
				EndDate:         to.Add(24*time.Hour - time.Nanosecond),
				InitialCapital:  capital,
				Risk:            app.Config.Risk,
				EntryThreshold:  threshold,
				PositionSizePct: sizePct,
				StopLossPct:     stopPct,
				TakeProfitPct:   tpPct,
				TrailingStop:    trailing > 0,
				TrailingStopPct: trailing,
				CommissionRate:  comm,
				ReentryCooldown: cooldown,
				PeriodsPerYear:  app.Config.Backtest.PeriodsPerYear,
			}

			engine := backtest.NewEngine(app.Store, app.Logger)
			result, err := engine.Run(cmd.Context(), cfg)
			if err != nil {
				return err
			}

			if !noPersist {
				runID := fmt.Sprintf("bt-%d", time.Now().UnixNano())
				if err := engine.Persist(cmd.Context(), runID, result); err != nil {
					output.Warning("failed to persist run: %v", err)
				} else {
					output.Dim("run saved as %s", runID)
				}
			}

			if output.IsJSON() {
				return output.JSON(result)
			}
			printResult(output, result)
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&symbols, "symbols", nil, "symbols to trade (required)")
	cmd.Flags().StringVar(&fromStr, "from", "", "start date YYYY-MM-DD (required)")
	cmd.Flags().StringVar(&toStr, "to", "", "end date YYYY-MM-DD (required)")
	cmd.Flags().Float64Var(&capital, "capital", 100000, "initial capital")
	cmd.Flags().Float64Var(&threshold, "threshold", 70, "minimum signal score to enter")
	cmd.Flags().Float64Var(&sizePct, "size", 0.10, "position size as a fraction of equity")
	cmd.Flags().Float64Var(&stopPct, "stop", 0.05, "stop loss as a fraction of entry price")
	cmd.Flags().Float64Var(&tpPct, "take-profit", 0, "take profit fraction, 0 disables")
	cmd.Flags().Float64Var(&trailing, "trailing", 0, "trailing stop fraction, 0 disables")
	cmd.Flags().Float64Var(&comm, "commission", 0.001, "commission rate per fill")
	cmd.Flags().DurationVar(&cooldown, "cooldown", 24*time.Hour, "re-entry cooldown after a stop-out")
	cmd.Flags().BoolVar(&noPersist, "no-persist", false, "do not save the run to the database")
	cmd.MarkFlagRequired("symbols")
	cmd.MarkFlagRequired("from")
	cmd.MarkFlagRequired("to")

	return cmd
}

func printResult(output *Output, result *backtest.Result) {
	m := result.Metrics

	color.Cyan("📊 Backtest Results")
	output.Println()

	output.Printf("  %-22s %s\n", "Period:", fmt.Sprintf("%s → %s",
		result.Config.StartDate.Format("2006-01-02"), result.Config.EndDate.Format("2006-01-02")))
	output.Printf("  %-22s %s\n", "Symbols:", strings.Join(result.Config.Symbols, ", "))
	output.Printf("  %-22s %.2f\n", "Initial capital:", result.Config.InitialCapital)
	output.Printf("  %-22s %.2f\n", "Final equity:", result.FinalEquity)
	output.Printf("  %-22s %s\n", "Total return:", output.FormatPercent(m.TotalReturnPct))
	output.Printf("  %-22s %s\n", "Annualized return:", output.FormatPercent(m.AnnualizedReturnPct))
	output.Printf("  %-22s %.2f%%\n", "Max drawdown:", m.MaxDrawdownPct*100)
	output.Println()

	output.Printf("  %-22s %d (%d rejected)\n", "Trades:", m.TotalTrades, result.RejectedProposals)
	output.Printf("  %-22s %.1f%% (%dW / %dL)\n", "Win rate:", m.WinRate*100, m.WinningTrades, m.LosingTrades)
	output.Printf("  %-22s %s\n", "Expectancy:", output.FormatPnL(m.Expectancy))
	output.Printf("  %-22s %s\n", "Sharpe:", FormatRatio(m.SharpeRatio))
	output.Printf("  %-22s %s\n", "Sortino:", FormatRatio(m.SortinoRatio))
	output.Printf("  %-22s %s\n", "Calmar:", FormatRatio(m.CalmarRatio))
	output.Printf("  %-22s %s\n", "SQN:", FormatRatio(m.SQN))
	output.Printf("  %-22s %s\n", "Profit factor:", FormatRatio(m.ProfitFactor))
	output.Println()

	if m.BestTrade != nil {
		output.Success("  🏆 Best:  %s %s %s", m.BestTrade.Symbol,
			output.FormatPercent(m.BestTrade.PnLPct), m.BestTrade.ExitReason)
	}
	if m.WorstTrade != nil {
		output.Error("  📉 Worst: %s %s %s", m.WorstTrade.Symbol,
			output.FormatPercent(m.WorstTrade.PnLPct), m.WorstTrade.ExitReason)
	}

	if len(result.EquityCurve) > 1 {
		output.Println()
		color.Cyan("📈 Equity Curve")
		RenderEquityCurve(output, result.EquityCurve, 10)
	}

	if len(result.Trades) > 0 {
		output.Println()
		table := NewTable(output, "SYMBOL", "SIDE", "SHARES", "ENTRY", "EXIT", "PNL", "PNL%", "REASON")
		for _, t := range result.Trades {
			table.AddRow(
				t.Symbol,
				string(t.Side),
				fmt.Sprintf("%d", t.Shares),
				fmt.Sprintf("%.2f", t.EntryPrice),
				fmt.Sprintf("%.2f", t.ExitPrice),
				output.FormatPnL(t.PnL),
				output.FormatPercent(t.PnLPct),
				string(t.ExitReason),
			)
		}
		table.Render()
	}
}

func newBacktestListCmd(app *App) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent backtest runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Store == nil {
				return fmt.Errorf("data store unavailable")
			}

			runs, err := app.Store.GetBacktestRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(runs)
			}
			if len(runs) == 0 {
				output.Dim("no backtest runs recorded")
				return nil
			}

			table := NewTable(output, "RUN", "DATE", "SYMBOLS", "TRADES", "WIN%", "RETURN", "MAXDD")
			for _, r := range runs {
				table.AddRow(
					r.ID,
					r.CreatedAt.Format("2006-01-02 15:04"),
					strings.Join(r.Symbols, ","),
					fmt.Sprintf("%d", r.TotalTrades),
					fmt.Sprintf("%.1f", r.WinRate*100),
					output.FormatPercent(r.TotalReturnPct),
					fmt.Sprintf("%.1f%%", r.MaxDrawdownPct*100),
				)
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum runs to list")
	return cmd
}
