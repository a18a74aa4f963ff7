package tui

import (
	"fmt"

	"github.com/Veraticus/the-books-must-balance/internal/model"
	"github.com/Veraticus/the-books-must-balance/internal/statement"
	"github.com/charmbracelet/lipgloss"
)

// View renders the viewer.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		m.renderHeader(),
		m.renderBody(),
		m.renderStatusBar(),
		m.help.View(m.keymap),
	)
}

func (m Model) renderHeader() string {
	title := "Balance Sheet Line Items"
	if m.statement.Origin != "" {
		title = fmt.Sprintf("%s (%s)", title, m.statement.Origin)
	}

	subtitle := "no periods"
	if periods := m.statement.Periods(); len(periods) > 0 {
		subtitle = fmt.Sprintf("period %s (%d of %d)", m.Period(), m.period+1, len(periods))
	}
	if m.unknownOnly {
		subtitle += " · unknown rows only"
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		m.theme.Title.Render(title),
		m.theme.Subtitle.Render(subtitle),
	)
}

func (m Model) renderBody() string {
	if len(m.visible) == 0 {
		msg := "No line items"
		if m.unknownOnly {
			msg = "No unknown rows"
		}
		return m.theme.BorderedBox.
			Width(max(m.width-2, 20)).
			Render(lipgloss.NewStyle().Foreground(m.theme.Muted).Render(msg))
	}
	return m.theme.BorderedBox.Render(m.grid.View())
}

func (m Model) renderStatusBar() string {
	counts := m.statement.CountByCategory()
	unknown := counts[model.Unknown]
	classified := m.statement.Len() - unknown

	status := m.theme.StatusSuccess.Render(fmt.Sprintf("%d classified", classified))
	if unknown > 0 {
		status += "  " + m.theme.StatusWarning.Render(fmt.Sprintf("%d unknown", unknown))
	}
	if i, ok := m.Selected(); ok {
		status += "  " + m.theme.Subtitle.Render(selectionDetail(m.statement.Row(i)))
	}
	return m.theme.StatusBar.Render(status)
}

// selectionDetail shows the matching key of the highlighted row and what
// classified it.
func selectionDetail(row statement.Row) string {
	detail := row.Normalized
	switch {
	case row.Pattern != "":
		detail += " ← " + row.Pattern
	case row.Source != "":
		detail += " ← " + string(row.Source)
	}
	return detail
}
