// Package console renders validator output for terminals: styled messages,
// diagnostic lines, and plain tables. Styling switches off automatically
// when stdout is not a TTY.
package console

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/trussci/truss/pkg/engine"
)

// Adaptive colors hold up on both light and dark backgrounds.
var (
	ColorError   = lipgloss.AdaptiveColor{Light: "#D70000", Dark: "#FF5F5F"}
	ColorWarning = lipgloss.AdaptiveColor{Light: "#AF8700", Dark: "#FFD700"}
	ColorInfo    = lipgloss.AdaptiveColor{Light: "#005FAF", Dark: "#5FAFFF"}
	ColorSuccess = lipgloss.AdaptiveColor{Light: "#008700", Dark: "#5FD75F"}
	ColorMuted   = lipgloss.AdaptiveColor{Light: "#6C6C6C", Dark: "#8A8A8A"}
)

var (
	errorStyle   = lipgloss.NewStyle().Foreground(ColorError).Bold(true)
	warningStyle = lipgloss.NewStyle().Foreground(ColorWarning).Bold(true)
	infoStyle    = lipgloss.NewStyle().Foreground(ColorInfo)
	successStyle = lipgloss.NewStyle().Foreground(ColorSuccess).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(ColorMuted)
	pathStyle    = lipgloss.NewStyle().Bold(true)
	headerStyle  = lipgloss.NewStyle().Bold(true).Underline(true)
)

var colorsEnabled = term.IsTerminal(int(os.Stdout.Fd())) && os.Getenv("NO_COLOR") == ""

// SetColorsEnabled overrides TTY detection, for --no-color and tests.
func SetColorsEnabled(enabled bool) {
	colorsEnabled = enabled
}

func render(style lipgloss.Style, s string) string {
	if !colorsEnabled {
		return s
	}
	return style.Render(s)
}

// FormatErrorMessage formats a fatal or per-file error for stderr.
func FormatErrorMessage(msg string) string {
	return render(errorStyle, "✗ "+msg)
}

// FormatWarningMessage formats a non-fatal notice for stderr.
func FormatWarningMessage(msg string) string {
	return render(warningStyle, "⚠ "+msg)
}

// FormatInfoMessage formats a progress or status line.
func FormatInfoMessage(msg string) string {
	return render(infoStyle, "ℹ "+msg)
}

// FormatSuccessMessage formats an all-clear line.
func FormatSuccessMessage(msg string) string {
	return render(successStyle, "✓ "+msg)
}

func severityStyle(severity string) lipgloss.Style {
	switch severity {
	case "error":
		return errorStyle
	case "warning":
		return warningStyle
	}
	return infoStyle
}

// FormatDiagnostic renders one diagnostic as a single grep-style line:
// path:line:col: severity: message (rule).
func FormatDiagnostic(path string, d engine.Diagnostic) string {
	var b strings.Builder
	b.WriteString(render(pathStyle, fmt.Sprintf("%s:%d:%d:", path, d.Line, d.Column)))
	b.WriteString(" ")
	b.WriteString(render(severityStyle(d.Severity), d.Severity))
	b.WriteString(": ")
	b.WriteString(d.Message)
	b.WriteString(" ")
	b.WriteString(render(mutedStyle, "("+d.Rule+")"))
	return b.String()
}

// FormatSummary renders the end-of-run line for text output.
func FormatSummary(files, errors, warnings int) string {
	plural := func(n int, word string) string {
		if n == 1 {
			return fmt.Sprintf("%d %s", n, word)
		}
		return fmt.Sprintf("%d %ss", n, word)
	}
	summary := fmt.Sprintf("%s checked, %s, %s",
		plural(files, "file"), plural(errors, "error"), plural(warnings, "warning"))
	if errors > 0 {
		return FormatErrorMessage(summary)
	}
	if warnings > 0 {
		return FormatWarningMessage(summary)
	}
	return FormatSuccessMessage(summary)
}

// RenderTable renders headers and rows as aligned plain-text columns.
func RenderTable(headers []string, rows [][]string) string {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	var b strings.Builder
	writeRow := func(cells []string, style *lipgloss.Style) {
		parts := make([]string, 0, len(cells))
		for i, cell := range cells {
			if i < len(widths) {
				cell = fmt.Sprintf("%-*s", widths[i], cell)
			}
			if style != nil {
				cell = render(*style, cell)
			}
			parts = append(parts, cell)
		}
		b.WriteString(strings.TrimRight(strings.Join(parts, "  "), " "))
		b.WriteString("\n")
	}
	writeRow(headers, &headerStyle)
	for _, row := range rows {
		writeRow(row, nil)
	}
	return b.String()
}
