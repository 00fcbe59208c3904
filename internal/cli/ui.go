package cli

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/sldview/pkg/color"
	"github.com/matzehuels/sldview/pkg/style"
)

// statusOut receives status lines. Documents go to the command's output,
// so status stays off stdout and `sldview compile x.sld | jq` works.
var statusOut io.Writer = os.Stderr

// =============================================================================
// Color Palette
// =============================================================================

var (
	colorCyan   = lipgloss.Color("36")  // Teal - primary actions
	colorGreen  = lipgloss.Color("35")  // Green - success
	colorYellow = lipgloss.Color("220") // Amber - warnings
	colorRed    = lipgloss.Color("167") // Soft red - errors
	colorWhite  = lipgloss.Color("255") // Bright white - values
	colorGray   = lipgloss.Color("245") // Gray - secondary text
	colorDim    = lipgloss.Color("240") // Dim gray - muted text
)

// =============================================================================
// Public Styles
// =============================================================================

var (
	// StyleTitle for main headings.
	StyleTitle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)

	// StyleDim for secondary/muted text.
	StyleDim = lipgloss.NewStyle().Foreground(colorDim)

	// StyleValue for data values.
	StyleValue = lipgloss.NewStyle().Foreground(colorWhite)

	// StyleWarning for warning messages.
	StyleWarning = lipgloss.NewStyle().Foreground(colorYellow)
)

// =============================================================================
// Internal Styles
// =============================================================================

var (
	styleIconSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleIconError   = lipgloss.NewStyle().Foreground(colorRed)
	styleIconWarning = lipgloss.NewStyle().Foreground(colorYellow)
	styleIconInfo    = lipgloss.NewStyle().Foreground(colorGray)
	styleIconSpinner = lipgloss.NewStyle().Foreground(colorCyan)

	styleCached   = lipgloss.NewStyle().Foreground(colorGreen)
	styleComputed = lipgloss.NewStyle().Foreground(colorGray)

	styleHeader = lipgloss.NewStyle().Foreground(colorGray).Bold(true)
)

// =============================================================================
// Icons
// =============================================================================

const (
	iconSuccess = "✓"
	iconError   = "✗"
	iconWarning = "!"
	iconInfo    = "›"
	iconArrow   = "→"
	iconCached  = "cached"
	iconFresh   = "fresh"
	iconSwatch  = "██"

	// headerRow is the row index lipgloss tables pass for the header.
	headerRow = -1
)

// =============================================================================
// Status Output
// =============================================================================

func printSuccess(format string, args ...any) {
	fmt.Fprintln(statusOut, styleIconSuccess.Render(iconSuccess)+" "+fmt.Sprintf(format, args...))
}

func printError(format string, args ...any) {
	fmt.Fprintln(statusOut, styleIconError.Render(iconError)+" "+fmt.Sprintf(format, args...))
}

func printWarning(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(statusOut, styleIconWarning.Render(iconWarning)+" "+StyleWarning.Render(msg))
}

func printInfo(format string, args ...any) {
	fmt.Fprintln(statusOut, styleIconInfo.Render(iconInfo)+" "+fmt.Sprintf(format, args...))
}

// printDetail prints an indented, dimmed line.
func printDetail(format string, args ...any) {
	fmt.Fprintln(statusOut, "  "+StyleDim.Render(fmt.Sprintf(format, args...)))
}

// printFile prints a file output line.
func printFile(path string) {
	fmt.Fprintln(statusOut, "  "+StyleDim.Render(iconArrow)+" "+StyleValue.Render(path))
}

// printKeyValue prints a labeled value.
func printKeyValue(w io.Writer, key, value string) {
	keyStyle := lipgloss.NewStyle().Foreground(colorGray).Width(12)
	fmt.Fprintln(w, keyStyle.Render(key)+" "+StyleValue.Render(value))
}

// =============================================================================
// Style Summaries
// =============================================================================

// printStyleStats prints a one-line summary of a compiled style.
func printStyleStats(res style.Result, cached bool) {
	fmt.Fprintln(statusOut, styleStatsLine(res, cached))
}

func styleStatsLine(res style.Result, cached bool) string {
	var parts []string
	parts = append(parts, rendererSummary(res))
	if n := len(res.Legend); n > 0 {
		parts = append(parts, fmt.Sprintf("%d legend items", n))
	}

	status := iconFresh
	statusStyle := styleComputed
	if cached {
		status = iconCached
		statusStyle = styleCached
	}

	line := "  "
	for i, part := range parts {
		if i > 0 {
			line += StyleDim.Render(" · ")
		}
		line += StyleDim.Render(part)
	}
	return line + StyleDim.Render(" · ") + statusStyle.Render(status)
}

// rendererSummary describes the renderer in a few words, e.g.
// "bin on LSS (5 bins)".
func rendererSummary(res style.Result) string {
	switch r := res.Renderer.(type) {
	case nil:
		if res.Empty() {
			return "empty style"
		}
		return "legend only"
	case style.SingleSymbol:
		return "single symbol " + r.Color.String()
	case style.BinClassification:
		return fmt.Sprintf("bin on %s (%d bins)", orUnnamed(r.PropertyName), len(r.BinMaximums))
	case style.EnumClassification:
		return fmt.Sprintf("enum on %s (%d values)", orUnnamed(r.PropertyName), len(r.Values))
	case style.ContinuousRamp:
		return fmt.Sprintf("continuous ramp (%d stops)", len(r.Stops))
	}
	return string(res.Renderer.Kind())
}

func orUnnamed(prop string) string {
	if prop == "" {
		return "(unnamed)"
	}
	return prop
}

// swatch renders a colored block for c. Alpha is not representable in a
// terminal and is ignored.
func swatch(c color.Color) string {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(c.Hex())).Render(iconSwatch)
}

// legendTable renders items as a bordered table numbered from first+1. The
// row at highlight (relative to items) is emphasized; pass -1 for none.
func legendTable(items []style.LegendItem, first, highlight int) string {
	rows := make([][]string, len(items))
	for i, item := range items {
		rows[i] = []string{strconv.Itoa(first + i + 1), swatch(item.Color), item.Color.String(), item.Title}
	}

	selected := lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("#", "", "Color", "Title").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == headerRow:
				return styleHeader
			case row == highlight && col != 1:
				return selected
			case col == 0 || col == 2:
				return StyleDim
			}
			return lipgloss.NewStyle()
		}).
		Render()
}

// classTable renders the renderer's classes: bins with their maximums,
// enum values or ramp stops. It returns "" for renderers without classes.
func classTable(r style.Renderer) string {
	var (
		header string
		rows   [][]string
	)
	switch r := r.(type) {
	case style.BinClassification:
		header = "≤ Max"
		for i, upper := range r.BinMaximums {
			rows = append(rows, []string{strconv.FormatFloat(upper, 'g', -1, 64), swatch(r.BinColors[i]), r.BinColors[i].String()})
		}
	case style.EnumClassification:
		header = "Value"
		for _, v := range r.Values {
			rows = append(rows, []string{v.Value, swatch(v.Color), v.Color.String()})
		}
	case style.ContinuousRamp:
		header = "Stop"
		for _, s := range r.Stops {
			rows = append(rows, []string{strconv.FormatFloat(s.Value, 'g', -1, 64), swatch(s.Color), s.Color.String()})
		}
	default:
		return ""
	}

	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers(header, "", "Color").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == headerRow {
				return styleHeader
			}
			if col == 2 {
				return StyleDim
			}
			return lipgloss.NewStyle()
		}).
		Render()
}

// indent prefixes every line of s with two spaces.
func indent(s string) string {
	return "  " + strings.ReplaceAll(s, "\n", "\n  ")
}
