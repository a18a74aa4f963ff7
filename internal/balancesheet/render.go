package balancesheet

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
)

var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#2E8B57"))
	sectionStyle = lipgloss.NewStyle().Bold(true)
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#4ECDC4"))
	badStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
)

// Render returns the printed balance sheet.
func (b *BalanceSheet) Render() string {
	rule := strings.Repeat("-", 40)

	var sb strings.Builder
	sb.WriteString(headingStyle.Render("BALANCE SHEET as of "+b.Date) + "\n")
	sb.WriteString(rule + "\n")
	for i, s := range []*Section{b.Assets, b.Liabilities, b.Equity} {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(s.render())
	}
	sb.WriteString(rule + "\n")
	fmt.Fprintf(&sb, "Assets: %s\n", money(b.Assets.Total()))
	fmt.Fprintf(&sb, "Liab + Eq: %s\n", money(b.LiabilitiesAndEquity()))

	verdict := okStyle.Render("Yes")
	if !b.IsBalanced() {
		verdict = badStyle.Render("No") + fmt.Sprintf(" (difference %s)", money(b.Difference()))
	}
	fmt.Fprintf(&sb, "Balanced? %s", verdict)

	if len(b.Skipped) > 0 {
		fmt.Fprintf(&sb, "\n\nSkipped %d rows:", len(b.Skipped))
		for _, s := range b.Skipped {
			fmt.Fprintf(&sb, "\n  %s (%s)", s.Label, s.Reason)
		}
	}

	return sb.String()
}

func (s *Section) render() string {
	var sb strings.Builder
	sb.WriteString(sectionStyle.Render(string(s.Name)+":") + "\n")
	for _, c := range s.Categories {
		fmt.Fprintf(&sb, "    %s:\n", c.Name.Title())
		for _, item := range c.Items {
			fmt.Fprintf(&sb, "      %s: %s\n", item.Name, money(item.Amount))
		}
		fmt.Fprintf(&sb, "    Total %s: %s\n", c.Name.Title(), money(c.Total()))
	}
	fmt.Fprintf(&sb, "  Total %s: %s\n", s.Name, money(s.Total()))
	return sb.String()
}

// money formats an amount with thousands separators and two decimals.
func money(d decimal.Decimal) string {
	s := d.StringFixed(2)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}

	whole, frac, _ := strings.Cut(s, ".")
	var out strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			out.WriteByte(',')
		}
		out.WriteRune(r)
	}
	return sign + out.String() + "." + frac
}
