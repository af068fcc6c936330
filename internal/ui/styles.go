package ui

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

var (
	accent = lipgloss.Color("#4285F4")

	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(accent)

	DimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#828282"))

	HighlightStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#34A853")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#34A853"))

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FBBC05"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EA4335")).
			Bold(true)
)

// Level selects the style of a notification.
type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelWarning
	LevelError
)

// Notify writes a one-line notification.
func Notify(w io.Writer, level Level, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	switch level {
	case LevelSuccess:
		msg = successStyle.Render("✓ " + msg)
	case LevelWarning:
		msg = warningStyle.Render("! " + msg)
	case LevelError:
		msg = errorStyle.Render("✗ " + msg)
	}
	fmt.Fprintln(w, msg)
}
