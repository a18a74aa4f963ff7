// Package statement holds a tabular balance-sheet statement (rows are line
// items, columns are reporting periods) joined with each row's category.
package statement

import (
	"errors"
	"fmt"

	"github.com/Veraticus/the-books-must-balance/internal/label"
	"github.com/Veraticus/the-books-must-balance/internal/model"
	"github.com/Veraticus/the-books-must-balance/internal/pattern"
	"github.com/shopspring/decimal"
)

var (
	// ErrDuplicateLabel is returned when two rows share a raw label.
	ErrDuplicateLabel = errors.New("duplicate raw label")
	// ErrValueCount is returned when a row's values do not line up with the periods.
	ErrValueCount = errors.New("value count does not match period count")
	// ErrRowOutOfRange is returned for a row index outside the table.
	ErrRowOutOfRange = errors.New("row index out of range")
	// ErrDuplicatePeriod is returned when a period heads two columns.
	ErrDuplicatePeriod = errors.New("duplicate period")
)

// Source records how a row got its category.
type Source string

const (
	// SourceNone marks a row no rule has matched yet.
	SourceNone Source = ""
	// SourceRule marks a row classified by the rule table.
	SourceRule Source = "rule"
	// SourceOverride marks a row whose category was set by hand.
	SourceOverride Source = "override"
)

// Row is one line item. Rows handed out by Table are copies; only the table
// changes a row's category, and never its labels.
type Row struct {
	Values     []decimal.NullDecimal
	RawLabel   string
	Normalized string
	Category   model.CategoryName
	Pattern    string
	Source     Source
}

// IsUnknown reports whether the row still needs a category.
func (r Row) IsUnknown() bool {
	return r.Category == model.Unknown
}

// Overridden reports whether the row's category was set by hand.
func (r Row) Overridden() bool {
	return r.Source == SourceOverride
}

// Table is an ordered set of rows sharing the same period columns.
type Table struct {
	index   map[string]int
	Origin  string
	periods []string
	rows    []Row
}

// New creates an empty table with the given period headers.
func New(periods []string) *Table {
	p := make([]string, len(periods))
	copy(p, periods)
	return &Table{
		periods: p,
		index:   make(map[string]int),
	}
}

// ValidatePeriods rejects a period list that names the same period twice.
// Periods key values by position, so a repeat would hide one column's data.
func ValidatePeriods(periods []string) error {
	seen := make(map[string]int, len(periods))
	for i, p := range periods {
		if first, ok := seen[p]; ok {
			return fmt.Errorf("%w %q in columns %d and %d", ErrDuplicatePeriod, p, first+1, i+1)
		}
		seen[p] = i
	}
	return nil
}

// AddRow appends a line item. Its category starts as unknown until the table
// is classified. values must have one entry per period.
func (t *Table) AddRow(raw string, values []decimal.NullDecimal) error {
	if _, exists := t.index[raw]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateLabel, raw)
	}
	if len(values) != len(t.periods) {
		return fmt.Errorf("row %q has %d values for %d periods: %w", raw, len(values), len(t.periods), ErrValueCount)
	}

	v := make([]decimal.NullDecimal, len(values))
	copy(v, values)

	t.index[raw] = len(t.rows)
	t.rows = append(t.rows, Row{
		RawLabel:   raw,
		Normalized: label.Normalize(raw),
		Category:   model.Unknown,
		Values:     v,
	})
	return nil
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// Periods returns a copy of the period headers.
func (t *Table) Periods() []string {
	out := make([]string, len(t.periods))
	copy(out, t.periods)
	return out
}

// PeriodIndex returns the column of period.
func (t *Table) PeriodIndex(period string) (int, bool) {
	for i, p := range t.periods {
		if p == period {
			return i, true
		}
	}
	return -1, false
}

// Row returns a copy of row i. It panics when i is out of range, like a slice.
func (t *Table) Row(i int) Row {
	return copyRow(t.rows[i])
}

// Rows returns copies of every row in table order.
func (t *Table) Rows() []Row {
	out := make([]Row, len(t.rows))
	for i, r := range t.rows {
		out[i] = copyRow(r)
	}
	return out
}

// Index returns the position of the row with the given raw label.
func (t *Table) Index(raw string) (int, bool) {
	i, ok := t.index[raw]
	return i, ok
}

// Value returns row i's amount for period, if present.
func (t *Table) Value(i int, period string) (decimal.Decimal, bool) {
	col, ok := t.PeriodIndex(period)
	if !ok || i < 0 || i >= len(t.rows) {
		return decimal.Zero, false
	}
	v := t.rows[i].Values[col]
	return v.Decimal, v.Valid
}

// Classify runs every row that was not overridden through c.
func (t *Table) Classify(c pattern.Classifier) {
	for i := range t.rows {
		t.apply(i, c)
	}
}

// ClassifyRow runs row i through c, unless it was overridden, and returns its
// resulting category.
func (t *Table) ClassifyRow(i int, c pattern.Classifier) (model.CategoryName, error) {
	if err := t.checkIndex(i); err != nil {
		return "", err
	}
	t.apply(i, c)
	return t.rows[i].Category, nil
}

// ReclassifyUnknown runs only the rows still unknown through c and returns how
// many of them now have a category.
func (t *Table) ReclassifyUnknown(c pattern.Classifier) int {
	resolved := 0
	for i := range t.rows {
		if !t.rows[i].IsUnknown() {
			continue
		}
		t.apply(i, c)
		if !t.rows[i].IsUnknown() {
			resolved++
		}
	}
	return resolved
}

// Override files row i under category by hand. No other row and no rule is
// affected, and later classification passes leave the row alone.
func (t *Table) Override(i int, category model.CategoryName) error {
	if err := t.checkIndex(i); err != nil {
		return err
	}
	if !category.IsValid() {
		return fmt.Errorf("override %q: %w", t.rows[i].RawLabel, pattern.ErrUnknownCategory)
	}

	r := &t.rows[i]
	r.Category = category
	r.Pattern = ""
	r.Source = SourceOverride
	return nil
}

// Unknown returns the indices of rows still unknown, in table order.
func (t *Table) Unknown() []int {
	var out []int
	for i, r := range t.rows {
		if r.IsUnknown() {
			out = append(out, i)
		}
	}
	return out
}

// FirstUnknown returns the first unknown row in table order.
func (t *Table) FirstUnknown() (int, bool) {
	for i, r := range t.rows {
		if r.IsUnknown() {
			return i, true
		}
	}
	return -1, false
}

// CountByCategory tallies rows per category, unknown included.
func (t *Table) CountByCategory() map[model.CategoryName]int {
	counts := make(map[model.CategoryName]int)
	for _, r := range t.rows {
		counts[r.Category]++
	}
	return counts
}

func (t *Table) apply(i int, c pattern.Classifier) {
	r := &t.rows[i]
	if r.Overridden() {
		return
	}
	if m, ok := c.Lookup(r.Normalized); ok {
		r.Category = m.Category
		r.Pattern = m.Pattern
		r.Source = SourceRule
		return
	}
	r.Category = model.Unknown
	r.Pattern = ""
	r.Source = SourceNone
}

func (t *Table) checkIndex(i int) error {
	if i < 0 || i >= len(t.rows) {
		return fmt.Errorf("%w: %d of %d", ErrRowOutOfRange, i, len(t.rows))
	}
	return nil
}

func copyRow(r Row) Row {
	v := make([]decimal.NullDecimal, len(r.Values))
	copy(v, r.Values)
	r.Values = v
	return r
}
