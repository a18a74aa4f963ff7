package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Veraticus/the-books-must-balance/internal/model"
	"github.com/Veraticus/the-books-must-balance/internal/pattern"
	"github.com/Veraticus/the-books-must-balance/internal/statement"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// RenderStatement renders the classified statement as a table. Unknown rows
// are highlighted.
func RenderStatement(st *statement.Table) string {
	periods := st.Periods()
	headers := append([]string{"Label", "Category", "Source"}, periods...)

	rows := st.Rows()
	data := make([][]string, 0, len(rows))
	for _, r := range rows {
		cells := []string{r.RawLabel, string(r.Category), sourceLabel(r)}
		for _, v := range r.Values {
			if v.Valid {
				cells = append(cells, v.Decimal.StringFixed(0))
			} else {
				cells = append(cells, "-")
			}
		}
		data = append(data, cells)
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(SubtleStyle).
		Headers(headers...).
		Rows(data...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return TableHeaderStyle
			}
			style := TableCellStyle
			switch {
			case row < 0 || row >= len(rows):
			case rows[row].IsUnknown():
				style = UnknownCellStyle
			case col == 1:
				style = CategoryStyle(rows[row].Category)
			}
			if col >= 3 {
				style = style.Align(lipgloss.Right)
			}
			return style
		})

	return t.String()
}

// RenderRules renders a rule table snapshot in match order.
func RenderRules(snapshot []pattern.CategoryPatterns) string {
	var b strings.Builder
	for _, entry := range snapshot {
		b.WriteString(BoldStyle.Render(fmt.Sprintf("%s (%s)", entry.Category.Title(), entry.Category)) + "\n")
		if len(entry.Patterns) == 0 {
			b.WriteString(SubtleStyle.Render("  (no patterns)") + "\n")
			continue
		}
		for i, p := range entry.Patterns {
			fmt.Fprintf(&b, "  %2d. %s\n", i+1, p)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// RenderRepairActions renders an audit trail, one action per line.
func RenderRepairActions(actions []model.RepairAction) string {
	data := make([][]string, 0, len(actions))
	for _, a := range actions {
		data = append(data, []string{
			a.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			a.SessionID,
			a.RawLabel,
			string(a.Kind),
			string(a.Category),
			a.Pattern,
			strconv.Itoa(a.Resolved),
		})
	}

	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(SubtleStyle).
		Headers("Time", "Session", "Label", "Action", "Category", "Pattern", "Resolved").
		Rows(data...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return TableHeaderStyle
			}
			return TableCellStyle
		}).
		String()
}

func sourceLabel(r statement.Row) string {
	switch r.Source {
	case statement.SourceRule:
		return "rule " + r.Pattern
	case statement.SourceOverride:
		return "override"
	default:
		return ""
	}
}
