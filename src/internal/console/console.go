// FILE: src/internal/console/console.go
// Styled console output for CLI summaries. lipgloss degrades to plain
// text when stdout is not a terminal, so callers never branch on TTY.
package console

import (
	"github.com/charmbracelet/lipgloss"

	"logsieve/src/internal/core"
)

var (
	colorRed    = lipgloss.Color("#FF5555")
	colorYellow = lipgloss.Color("#F1FA8C")
	colorGreen  = lipgloss.Color("#50FA7B")
	colorCyan   = lipgloss.Color("#8BE9FD")
	colorGray   = lipgloss.Color("#6272A4")

	infoStyle  = lipgloss.NewStyle().Foreground(colorCyan)
	warnStyle  = lipgloss.NewStyle().Foreground(colorYellow).Bold(true)
	errorStyle = lipgloss.NewStyle().Foreground(colorRed).Bold(true)
	okStyle    = lipgloss.NewStyle().Foreground(colorGreen)
	labelStyle = lipgloss.NewStyle().Foreground(colorGray)
)

// Info renders s in the informational color.
func Info(s string) string { return infoStyle.Render(s) }

// Warn renders s highlighted as a warning.
func Warn(s string) string { return warnStyle.Render(s) }

// Error renders s highlighted as an error.
func Error(s string) string { return errorStyle.Render(s) }

// OK renders s in the success color.
func OK(s string) string { return okStyle.Render(s) }

// Label renders s dimmed, for counter labels and captions.
func Label(s string) string { return labelStyle.Render(s) }

// Level renders a severity name in its conventional color.
func Level(l core.Level) string {
	switch l {
	case core.LevelDebug:
		return labelStyle.Render(string(l))
	case core.LevelInfo:
		return infoStyle.Render(string(l))
	case core.LevelWarning:
		return warnStyle.Render(string(l))
	case core.LevelError, core.LevelCritical:
		return errorStyle.Render(string(l))
	default:
		return string(l)
	}
}
