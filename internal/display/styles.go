package display

import "github.com/charmbracelet/lipgloss"

// Semantic colors shared by every style set.
var (
	successColor = lipgloss.Color("#8BC34A")
	errorColor   = lipgloss.Color("#e53935")
	warningColor = lipgloss.Color("#FFC107")
	infoColor    = lipgloss.Color("#2196F3")
	mutedColor   = lipgloss.Color("#9E9E9E")
	hunkColor    = lipgloss.Color("#4db6ac")
)

// Styles holds the styled components used by the display.
type Styles struct {
	Title      lipgloss.Style
	Bold       lipgloss.Style
	Muted      lipgloss.Style
	Success    lipgloss.Style
	Error      lipgloss.Style
	Warning    lipgloss.Style
	Info       lipgloss.Style
	DiffAdd    lipgloss.Style
	DiffRemove lipgloss.Style
	DiffHunk   lipgloss.Style
}

// DefaultStyles returns the colored style set.
func DefaultStyles() Styles {
	return Styles{
		Title:      lipgloss.NewStyle().Bold(true),
		Bold:       lipgloss.NewStyle().Bold(true),
		Muted:      lipgloss.NewStyle().Foreground(mutedColor),
		Success:    lipgloss.NewStyle().Foreground(successColor).Bold(true),
		Error:      lipgloss.NewStyle().Foreground(errorColor).Bold(true),
		Warning:    lipgloss.NewStyle().Foreground(warningColor).Bold(true),
		Info:       lipgloss.NewStyle().Foreground(infoColor),
		DiffAdd:    lipgloss.NewStyle().Foreground(successColor),
		DiffRemove: lipgloss.NewStyle().Foreground(errorColor),
		DiffHunk:   lipgloss.NewStyle().Foreground(hunkColor),
	}
}

// PlainStyles returns an unstyled set for pipes and tests.
func PlainStyles() Styles {
	return Styles{}
}
