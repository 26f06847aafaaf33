// Package cli provides the command-line interface for the trading engine.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"tradebot/internal/models"
)

// Color codes for terminal output
const (
	ColorReset  = "\033[0m"
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorCyan   = "\033[36m"
	ColorWhite  = "\033[37m"
	ColorBold   = "\033[1m"
	ColorDim    = "\033[2m"
)

// Output handles formatted output for the CLI.
type Output struct {
	writer       io.Writer
	jsonMode     bool
	colorEnabled bool
}

// NewOutput creates a new Output instance.
func NewOutput(cmd *cobra.Command) *Output {
	jsonMode, _ := cmd.Flags().GetBool("json")
	return &Output{
		writer:       cmd.OutOrStdout(),
		jsonMode:     jsonMode,
		colorEnabled: !jsonMode && isTerminal(),
	}
}

func isTerminal() bool {
	fileInfo, _ := os.Stdout.Stat()
	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}

// IsJSON returns true if JSON output mode is enabled.
func (o *Output) IsJSON() bool {
	return o.jsonMode
}

// JSON outputs data as JSON.
func (o *Output) JSON(data interface{}) error {
	encoder := json.NewEncoder(o.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// Printf prints a formatted message.
func (o *Output) Printf(format string, args ...interface{}) {
	fmt.Fprintf(o.writer, format, args...)
}

// Println prints a message with newline.
func (o *Output) Println(args ...interface{}) {
	fmt.Fprintln(o.writer, args...)
}

// Success prints a success message in green.
func (o *Output) Success(format string, args ...interface{}) {
	o.colored(ColorGreen, format, args...)
}

// Error prints an error message in red.
func (o *Output) Error(format string, args ...interface{}) {
	o.colored(ColorRed, format, args...)
}

// Warning prints a warning message in yellow.
func (o *Output) Warning(format string, args ...interface{}) {
	o.colored(ColorYellow, format, args...)
}

// Info prints an info message in cyan.
func (o *Output) Info(format string, args ...interface{}) {
	o.colored(ColorCyan, format, args...)
}

// Dim prints a dimmed message.
func (o *Output) Dim(format string, args ...interface{}) {
	o.colored(ColorDim, format, args...)
}

func (o *Output) colored(color, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if o.colorEnabled {
		fmt.Fprintf(o.writer, "%s%s%s\n", color, msg, ColorReset)
	} else {
		fmt.Fprintln(o.writer, msg)
	}
}

// ColoredString wraps s in the color code when colors are enabled.
func (o *Output) ColoredString(color, s string) string {
	if o.colorEnabled {
		return color + s + ColorReset
	}
	return s
}

// PnLColor returns the appropriate color for a P&L value.
func (o *Output) PnLColor(pnl float64) string {
	if pnl > 0 {
		return ColorGreen
	} else if pnl < 0 {
		return ColorRed
	}
	return ColorWhite
}

// FormatPnL formats a P&L amount with sign and color.
func (o *Output) FormatPnL(pnl float64) string {
	formatted := fmt.Sprintf("%.2f", pnl)
	if pnl > 0 {
		formatted = "+" + formatted
	}
	return o.ColoredString(o.PnLColor(pnl), formatted)
}

// FormatPercent formats a fraction as a signed colored percentage.
func (o *Output) FormatPercent(frac float64) string {
	sign := ""
	if frac > 0 {
		sign = "+"
	}
	formatted := fmt.Sprintf("%s%.2f%%", sign, frac*100)
	return o.ColoredString(o.PnLColor(frac), formatted)
}

// FormatRatio renders an optional ratio metric, printing n/a when the
// metric is undefined.
func FormatRatio(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", *v)
}

// Table renders simple aligned columnar output.
type Table struct {
	headers []string
	rows    [][]string
	output  *Output
}

// NewTable creates a new table.
func NewTable(output *Output, headers ...string) *Table {
	return &Table{headers: headers, output: output}
}

// AddRow adds a row to the table.
func (t *Table) AddRow(cells ...string) {
	t.rows = append(t.rows, cells)
}

// Render renders the table.
func (t *Table) Render() {
	if len(t.headers) == 0 {
		return
	}
	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = visibleLen(h)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if i < len(widths) && visibleLen(cell) > widths[i] {
				widths[i] = visibleLen(cell)
			}
		}
	}

	var header strings.Builder
	for i, h := range t.headers {
		header.WriteString(pad(h, widths[i]))
		header.WriteString("  ")
	}
	t.output.colored(ColorBold, "%s", strings.TrimRight(header.String(), " "))

	for _, row := range t.rows {
		var line strings.Builder
		for i, cell := range row {
			if i < len(widths) {
				line.WriteString(pad(cell, widths[i]))
				line.WriteString("  ")
			}
		}
		t.output.Println(strings.TrimRight(line.String(), " "))
	}
}

// visibleLen ignores ANSI color codes when measuring cell width.
func visibleLen(s string) int {
	n := 0
	inEscape := false
	for _, r := range s {
		switch {
		case inEscape:
			if r == 'm' {
				inEscape = false
			}
		case r == '\033':
			inEscape = true
		default:
			n++
		}
	}
	return n
}

func pad(s string, width int) string {
	if diff := width - visibleLen(s); diff > 0 {
		return s + strings.Repeat(" ", diff)
	}
	return s
}

// RenderEquityCurve draws an ASCII chart of the equity curve.
func RenderEquityCurve(o *Output, curve []models.EquityPoint, height int) {
	if len(curve) < 2 || height < 2 {
		return
	}

	min, max := curve[0].Equity, curve[0].Equity
	for _, p := range curve {
		if p.Equity < min {
			min = p.Equity
		}
		if p.Equity > max {
			max = p.Equity
		}
	}
	if max == min {
		max = min + 1
	}

	width := len(curve)
	grid := make([][]rune, height)
	for i := range grid {
		grid[i] = make([]rune, width)
		for j := range grid[i] {
			grid[i][j] = ' '
		}
	}

	for x, p := range curve {
		y := int(math.Round((p.Equity - min) / (max - min) * float64(height-1)))
		grid[height-1-y][x] = '*'
	}

	o.Printf("%10.2f ┤\n", max)
	for _, row := range grid {
		o.Printf("%10s │%s\n", "", string(row))
	}
	o.Printf("%10.2f ┤%s\n", min, strings.Repeat("─", width))
	o.Printf("%10s  %s%s%s\n", "",
		curve[0].Date.Format("2006-01-02"),
		strings.Repeat(" ", maxInt(1, width-21)),
		curve[len(curve)-1].Date.Format("2006-01-02"))
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
