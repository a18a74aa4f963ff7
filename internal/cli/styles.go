// Package cli provides styled terminal output using lipgloss.
package cli

import (
	"github.com/Veraticus/the-books-must-balance/internal/model"
	"github.com/charmbracelet/lipgloss"
)

// Palette. Sections of the balance sheet each get their own hue so the
// category column reads at a glance.
var (
	ledgerGreen  = lipgloss.Color("#2E8B57")
	assetColor   = lipgloss.Color("#4ECDC4")
	liabColor    = lipgloss.Color("#F4A261")
	equityColor  = lipgloss.Color("#7DA7D9")
	warningColor = lipgloss.Color("#FFE66D")
	errorColor   = lipgloss.Color("#FF6B6B")
	infoColor    = lipgloss.Color("#95E1D3")
	subtleColor  = lipgloss.Color("#666666")
)

var (
	// TitleStyle is used for section titles.
	TitleStyle = lipgloss.NewStyle().Bold(true).Foreground(ledgerGreen).MarginBottom(1)

	// SubtleStyle formats less prominent text.
	SubtleStyle = lipgloss.NewStyle().Foreground(subtleColor)

	// BoldStyle makes text bold.
	BoldStyle = lipgloss.NewStyle().Bold(true)

	// TableHeaderStyle is used for table headers.
	TableHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(ledgerGreen).Padding(0, 1)

	// TableCellStyle formats table cells.
	TableCellStyle = lipgloss.NewStyle().Padding(0, 1)

	// UnknownCellStyle highlights rows that still need a category.
	UnknownCellStyle = TableCellStyle.Foreground(warningColor)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#333")).
			Padding(1, 2)

	promptStyle = lipgloss.NewStyle().Bold(true).Foreground(ledgerGreen)

	sectionColors = map[model.SectionKind]lipgloss.Color{
		model.SectionAssets:      assetColor,
		model.SectionLiabilities: liabColor,
		model.SectionEquity:      equityColor,
	}
)

// Icons.
const (
	SuccessIcon = "✓"
	ErrorIcon   = "✗"
	WarningIcon = "⚠️"
	InfoIcon    = "ℹ️"
	BalanceIcon = "⚖️"
	ChartIcon   = "📊"
	RuleIcon    = "📐"
)

// CategoryStyle returns the cell style for a row filed under c: the section
// hue for taxonomy categories, subtle for totals, the warning color for unknown.
func CategoryStyle(c model.CategoryName) lipgloss.Style {
	switch {
	case c == model.Unknown:
		return UnknownCellStyle
	case c == model.Totals:
		return TableCellStyle.Foreground(subtleColor)
	}
	if color, ok := sectionColors[c.Section()]; ok {
		return TableCellStyle.Foreground(color)
	}
	return TableCellStyle
}

func iconLine(color lipgloss.Color, icon, message string) string {
	return lipgloss.NewStyle().Foreground(color).Render(icon + " " + message)
}

// FormatSuccess formats a success message with icon.
func FormatSuccess(message string) string {
	return iconLine(assetColor, SuccessIcon, message)
}

// FormatError formats an error message with icon.
func FormatError(message string) string {
	return iconLine(errorColor, ErrorIcon, message)
}

// FormatWarning formats a warning message with icon.
func FormatWarning(message string) string {
	return iconLine(warningColor, WarningIcon, message)
}

// FormatInfo formats an info message with icon.
func FormatInfo(message string) string {
	return iconLine(infoColor, InfoIcon, message)
}

// FormatPrompt formats a prompt message.
func FormatPrompt(prompt string) string {
	return promptStyle.Render(prompt + " → ")
}

// RenderBox renders content under a title in a rounded box.
func RenderBox(title, content string) string {
	return boxStyle.Render(lipgloss.JoinVertical(
		lipgloss.Left,
		TitleStyle.UnsetMargins().Render(title),
		content,
	))
}
