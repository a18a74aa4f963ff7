package tui

import "github.com/charmbracelet/lipgloss"

// Theme is the statement viewer's palette and derived styles.
type Theme struct {
	Title         lipgloss.Style
	Subtitle      lipgloss.Style
	Selected      lipgloss.Style
	StatusBar     lipgloss.Style
	StatusWarning lipgloss.Style
	StatusSuccess lipgloss.Style
	BorderedBox   lipgloss.Style
	Border        lipgloss.Color
	Muted         lipgloss.Color
}

// DefaultTheme uses the ledger green accent shared with the console output.
var DefaultTheme = NewTheme(lipgloss.Color("#2E7D32"))

// NewTheme derives a theme from a highlight color for the selected row.
func NewTheme(accent lipgloss.Color) Theme {
	var (
		text    = lipgloss.Color("#F5F5F5")
		dim     = lipgloss.Color("#9E9E9E")
		border  = lipgloss.Color("#424242")
		muted   = lipgloss.Color("#757575")
		warning = lipgloss.Color("#F9A825")
		ok      = lipgloss.Color("#43A047")
	)
	bold := lipgloss.NewStyle().Bold(true)

	return Theme{
		Border:        border,
		Muted:         muted,
		Title:         bold.Foreground(text),
		Subtitle:      lipgloss.NewStyle().Foreground(dim),
		Selected:      bold.Foreground(text).Background(accent),
		StatusBar:     lipgloss.NewStyle().Foreground(dim).Padding(0, 1),
		StatusWarning: bold.Foreground(warning),
		StatusSuccess: bold.Foreground(ok),
		BorderedBox:   lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(border),
	}
}
