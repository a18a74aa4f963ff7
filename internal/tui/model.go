// Package tui provides a read-only terminal viewer for classified statements.
package tui

import (
	"strconv"

	"github.com/Veraticus/the-books-must-balance/internal/statement"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	defaultWidth  = 100
	defaultHeight = 24

	// title, subtitle, status bar and help line
	chromeHeight = 6
)

// Model holds the viewer state.
type Model struct {
	theme       Theme
	statement   *statement.Table
	keymap      KeyMap
	help        help.Model
	visible     []int
	grid        table.Model
	period      int
	width       int
	height      int
	unknownOnly bool
	quitting    bool
}

// New creates a viewer model for st. The table is only read, never modified.
func New(st *statement.Table) Model {
	if st == nil {
		st = statement.New(nil)
	}

	grid := table.New(
		table.WithFocused(true),
		table.WithHeight(defaultHeight-chromeHeight),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(DefaultTheme.Border).
		BorderBottom(true).
		Bold(false)
	s.Selected = DefaultTheme.Selected
	grid.SetStyles(s)

	m := Model{
		theme:     DefaultTheme,
		statement: st,
		keymap:    DefaultKeyMap(),
		help:      help.New(),
		grid:      grid,
		width:     defaultWidth,
		height:    defaultHeight,
	}
	m.refresh()
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keymap.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keymap.ToggleUnknown):
			m.unknownOnly = !m.unknownOnly
			m.refresh()
			m.grid.SetCursor(0)
			return m, nil
		case key.Matches(msg, m.keymap.NextPeriod):
			m.shiftPeriod(1)
			return m, nil
		case key.Matches(msg, m.keymap.PrevPeriod):
			m.shiftPeriod(-1)
			return m, nil
		case key.Matches(msg, m.keymap.ToggleHelp):
			m.help.ShowAll = !m.help.ShowAll
			m.refresh()
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.grid, cmd = m.grid.Update(msg)
	return m, cmd
}

// Selected returns the statement index of the highlighted row.
func (m Model) Selected() (int, bool) {
	cursor := m.grid.Cursor()
	if cursor < 0 || cursor >= len(m.visible) {
		return 0, false
	}
	return m.visible[cursor], true
}

// Period returns the period whose values are on screen, or "" for a table
// without periods.
func (m Model) Period() string {
	periods := m.statement.Periods()
	if len(periods) == 0 {
		return ""
	}
	return periods[m.period]
}

// UnknownOnly reports whether the unknown-row filter is on.
func (m Model) UnknownOnly() bool {
	return m.unknownOnly
}

// Visible returns the statement indices currently listed.
func (m Model) Visible() []int {
	out := make([]int, len(m.visible))
	copy(out, m.visible)
	return out
}

func (m *Model) shiftPeriod(delta int) {
	n := len(m.statement.Periods())
	if n == 0 {
		return
	}
	m.period = (m.period + delta + n) % n
	m.refresh()
}

// refresh rebuilds the grid from the statement, the filter and the window size.
func (m *Model) refresh() {
	visible := make([]int, 0, m.statement.Len())
	for i, row := range m.statement.Rows() {
		if m.unknownOnly && !row.IsUnknown() {
			continue
		}
		visible = append(visible, i)
	}
	m.visible = visible

	m.grid.SetColumns(m.columns())
	m.grid.SetRows(m.rows())

	height := m.height - chromeHeight
	if m.help.ShowAll {
		height -= len(m.keymap.FullHelp()[0]) - 1
	}
	m.grid.SetHeight(max(height, 3))

	if m.grid.Cursor() >= len(m.visible) {
		m.grid.SetCursor(max(len(m.visible)-1, 0))
	}
}

func (m Model) columns() []table.Column {
	const (
		indexWidth    = 4
		categoryWidth = 24
		sourceWidth   = 9
		valueWidth    = 18
	)
	labelWidth := m.width - indexWidth - categoryWidth - sourceWidth - valueWidth - 12
	labelWidth = max(labelWidth, 20)

	valueTitle := "Value"
	if p := m.Period(); p != "" {
		valueTitle = p
	}

	return []table.Column{
		{Title: "#", Width: indexWidth},
		{Title: "Label", Width: labelWidth},
		{Title: "Category", Width: categoryWidth},
		{Title: "Source", Width: sourceWidth},
		{Title: valueTitle, Width: valueWidth},
	}
}

func (m Model) rows() []table.Row {
	rows := make([]table.Row, 0, len(m.visible))
	period := m.Period()
	for _, i := range m.visible {
		row := m.statement.Row(i)

		value := ""
		if v, ok := m.statement.Value(i, period); ok {
			value = v.StringFixed(2)
		}

		source := string(row.Source)
		if source == "" {
			source = "-"
		}

		rows = append(rows, table.Row{
			strconv.Itoa(i + 1),
			row.RawLabel,
			row.Category.Title(),
			source,
			value,
		})
	}
	return rows
}
