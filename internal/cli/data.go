package cli

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"tradebot/internal/models"
)

func newDataCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "data",
		Short: "Import and inspect market data",
	}

	cmd.AddCommand(newImportCandlesCmd(app))
	cmd.AddCommand(newImportSignalsCmd(app))
	return cmd
}

func newImportCandlesCmd(app *App) *cobra.Command {
	var timeframe string

	cmd := &cobra.Command{
		Use:   "import-candles <symbol> <csv-file>",
		Short: "Import OHLCV candles from a CSV file",
		Long: `Import candles from a CSV file with columns:
timestamp,open,high,low,close,volume (RFC3339 or YYYY-MM-DD timestamps).
A header row is detected and skipped.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Store == nil {
				return fmt.Errorf("data store unavailable")
			}
			symbol, path := args[0], args[1]

			rows, err := readCSV(path)
			if err != nil {
				return err
			}

			var candles []models.Candle
			for i, row := range rows {
				if len(row) < 6 {
					return fmt.Errorf("row %d: expected 6 columns, got %d", i+1, len(row))
				}
				ts, err := parseTimestamp(row[0])
				if err != nil {
					if i == 0 {
						continue // header row
					}
					return fmt.Errorf("row %d: %w", i+1, err)
				}
				c := models.Candle{Timestamp: ts}
				if c.Open, err = strconv.ParseFloat(row[1], 64); err != nil {
					return fmt.Errorf("row %d: open: %w", i+1, err)
				}
				if c.High, err = strconv.ParseFloat(row[2], 64); err != nil {
					return fmt.Errorf("row %d: high: %w", i+1, err)
				}
				if c.Low, err = strconv.ParseFloat(row[3], 64); err != nil {
					return fmt.Errorf("row %d: low: %w", i+1, err)
				}
				if c.Close, err = strconv.ParseFloat(row[4], 64); err != nil {
					return fmt.Errorf("row %d: close: %w", i+1, err)
				}
				if c.Volume, err = strconv.ParseInt(row[5], 10, 64); err != nil {
					return fmt.Errorf("row %d: volume: %w", i+1, err)
				}
				candles = append(candles, c)
			}

			if err := app.Store.SaveCandles(cmd.Context(), symbol, timeframe, candles); err != nil {
				return err
			}
			output.Success("✓ imported %d candles for %s (%s)", len(candles), symbol, timeframe)
			return nil
		},
	}

	cmd.Flags().StringVar(&timeframe, "timeframe", "day", "candle timeframe")
	return cmd
}

func newImportSignalsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import-signals <csv-file>",
		Short: "Import entry signals from a CSV file",
		Long: `Import signals from a CSV file with columns:
symbol,timestamp,score[,sector]. A header row is detected and skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Store == nil {
				return fmt.Errorf("data store unavailable")
			}

			rows, err := readCSV(args[0])
			if err != nil {
				return err
			}

			var signals []models.Signal
			for i, row := range rows {
				if len(row) < 3 {
					return fmt.Errorf("row %d: expected at least 3 columns, got %d", i+1, len(row))
				}
				ts, err := parseTimestamp(row[1])
				if err != nil {
					if i == 0 {
						continue
					}
					return fmt.Errorf("row %d: %w", i+1, err)
				}
				score, err := strconv.ParseFloat(row[2], 64)
				if err != nil {
					return fmt.Errorf("row %d: score: %w", i+1, err)
				}
				sig := models.Signal{Symbol: row[0], Timestamp: ts, Score: score}
				if len(row) > 3 {
					sig.Sector = row[3]
				}
				signals = append(signals, sig)
			}

			if err := app.Store.SaveSignals(cmd.Context(), signals); err != nil {
				return err
			}
			output.Success("✓ imported %d signals", len(signals))
			return nil
		},
	}

	return cmd
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return rows, nil
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", s)
}
