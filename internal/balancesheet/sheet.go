// Package balancesheet aggregates classified line items into a balance sheet
// of sections, categories and items.
package balancesheet

import (
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/the-books-must-balance/internal/model"
	"github.com/Veraticus/the-books-must-balance/internal/statement"
	"github.com/shopspring/decimal"
)

// tolerance is the largest difference still treated as balanced.
var tolerance = decimal.New(1, -6)

// LineItem is a named amount.
type LineItem struct {
	Name   string
	Amount decimal.Decimal
}

// Category groups line items under one taxonomy category.
type Category struct {
	Name  model.CategoryName
	Items []LineItem
}

// Add appends an item.
func (c *Category) Add(name string, amount decimal.Decimal) {
	c.Items = append(c.Items, LineItem{Name: name, Amount: amount})
}

// Total sums the category's items.
func (c *Category) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.Amount)
	}
	return total
}

// Section is one side of the balance equation.
type Section struct {
	Name       model.SectionKind
	Categories []*Category
}

// Category returns the section's category by name, creating it if needed.
func (s *Section) Category(name model.CategoryName) *Category {
	for _, c := range s.Categories {
		if c.Name == name {
			return c
		}
	}
	c := &Category{Name: name}
	s.Categories = append(s.Categories, c)
	return c
}

// Total sums the section's categories.
func (s *Section) Total() decimal.Decimal {
	total := decimal.Zero
	for _, c := range s.Categories {
		total = total.Add(c.Total())
	}
	return total
}

// SkippedRow is a statement row left out of the sheet.
type SkippedRow struct {
	Label  string
	Reason string
}

// BalanceSheet is a dated set of assets, liabilities and equity.
type BalanceSheet struct {
	Date        string
	Assets      *Section
	Liabilities *Section
	Equity      *Section
	Skipped     []SkippedRow
}

// New creates an empty balance sheet.
func New(date string) *BalanceSheet {
	return &BalanceSheet{
		Date:        date,
		Assets:      &Section{Name: model.SectionAssets},
		Liabilities: &Section{Name: model.SectionLiabilities},
		Equity:      &Section{Name: model.SectionEquity},
	}
}

// Section returns the section a category rolls into, or nil for categories
// that do not aggregate.
func (b *BalanceSheet) Section(category model.CategoryName) *Section {
	switch category.Section() {
	case model.SectionAssets:
		return b.Assets
	case model.SectionLiabilities:
		return b.Liabilities
	case model.SectionEquity:
		return b.Equity
	default:
		return nil
	}
}

// Add files an amount under category. Totals and unknown categories are rejected.
func (b *BalanceSheet) Add(category model.CategoryName, name string, amount decimal.Decimal) error {
	section := b.Section(category)
	if section == nil {
		return fmt.Errorf("category %q does not belong to a balance sheet section", category)
	}
	section.Category(category).Add(name, amount)
	return nil
}

// LiabilitiesAndEquity sums liabilities and equity.
func (b *BalanceSheet) LiabilitiesAndEquity() decimal.Decimal {
	return b.Liabilities.Total().Add(b.Equity.Total())
}

// Difference is assets minus liabilities and equity.
func (b *BalanceSheet) Difference() decimal.Decimal {
	return b.Assets.Total().Sub(b.LiabilitiesAndEquity())
}

// IsBalanced reports whether assets equal liabilities plus equity.
func (b *BalanceSheet) IsBalanced() bool {
	return b.Difference().Abs().LessThan(tolerance)
}

// FromStatement builds a balance sheet from one period of a classified
// statement. Rows that are unknown, filed under totals, labelled as a subtotal
// (normalized label starting with "total_") or missing a value for the period
// are skipped and listed in Skipped.
func FromStatement(st *statement.Table, period string) (*BalanceSheet, error) {
	col, ok := st.PeriodIndex(period)
	if !ok {
		return nil, fmt.Errorf("period %q not in statement (have %s)", period, strings.Join(st.Periods(), ", "))
	}

	sheet := New(period)
	for _, row := range st.Rows() {
		switch {
		case row.IsUnknown():
			sheet.skip(row.RawLabel, "unknown category")
			continue
		case row.Category == model.Totals:
			sheet.skip(row.RawLabel, "total row")
			continue
		case strings.HasPrefix(row.Normalized, "total_"):
			sheet.skip(row.RawLabel, "subtotal row")
			continue
		case !row.Values[col].Valid:
			sheet.skip(row.RawLabel, "no value for period")
			continue
		}

		if err := sheet.Add(row.Category, row.RawLabel, row.Values[col].Decimal); err != nil {
			return nil, fmt.Errorf("row %q: %w", row.RawLabel, err)
		}
	}

	return sheet, nil
}

func (b *BalanceSheet) skip(label, reason string) {
	b.Skipped = append(b.Skipped, SkippedRow{Label: label, Reason: reason})
}

// Sample returns the small demonstration sheet printed by `balance sheet`.
func Sample() *BalanceSheet {
	sheet := New(time.Date(2025, time.October, 8, 0, 0, 0, 0, time.UTC).Format(time.DateOnly))

	add := func(c model.CategoryName, name string, amount int64) {
		// Categories are fixed here, so Add cannot fail.
		_ = sheet.Add(c, name, decimal.NewFromInt(amount))
	}

	add(model.CurrentAssets, "Cash", 10_000)
	add(model.CurrentAssets, "Accounts Receivable", 5_000)
	add(model.CurrentAssets, "Inventory", 8_000)
	add(model.NoncurrentAssets, "Equipment", 20_000)
	add(model.NoncurrentAssets, "Land", 15_000)
	add(model.CurrentLiabilities, "Accounts Payable", 6_000)
	add(model.CurrentLiabilities, "Short-term Loan", 4_000)
	add(model.Equity, "Owner’s Capital", 48_000)

	return sheet
}
