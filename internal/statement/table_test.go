package statement

import (
	"testing"

	"github.com/Veraticus/the-books-must-balance/internal/model"
	"github.com/Veraticus/the-books-must-balance/internal/pattern"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func amounts(vals ...string) []decimal.NullDecimal {
	out := make([]decimal.NullDecimal, len(vals))
	for i, v := range vals {
		if v == "" {
			continue
		}
		out[i] = decimal.NewNullDecimal(decimal.RequireFromString(v))
	}
	return out
}

func newTable(t *testing.T, labels ...string) *Table {
	t.Helper()
	table := New([]string{"2024-12-31"})
	for i, l := range labels {
		require.NoError(t, table.AddRow(l, amounts(decimal.NewFromInt(int64(i+1)).String())))
	}
	return table
}

func TestAddRow(t *testing.T) {
	table := New([]string{"2024-12-31", "2023-12-31"})

	require.NoError(t, table.AddRow("Cash And Cash Equivalents", amounts("100", "")))

	row := table.Row(0)
	assert.Equal(t, "Cash And Cash Equivalents", row.RawLabel)
	assert.Equal(t, "cash_and_cash_equivalents", row.Normalized)
	assert.Equal(t, model.Unknown, row.Category)
	assert.Equal(t, SourceNone, row.Source)

	v, ok := table.Value(0, "2024-12-31")
	assert.True(t, ok)
	assert.True(t, v.Equal(decimal.NewFromInt(100)))

	_, ok = table.Value(0, "2023-12-31")
	assert.False(t, ok, "missing cells stay absent")

	_, ok = table.Value(0, "1999-12-31")
	assert.False(t, ok)
}

func TestAddRow_Errors(t *testing.T) {
	table := New([]string{"2024"})
	require.NoError(t, table.AddRow("Cash", amounts("1")))

	err := table.AddRow("Cash", amounts("2"))
	require.ErrorIs(t, err, ErrDuplicateLabel)
	assert.Contains(t, err.Error(), "Cash")

	err = table.AddRow("Inventory", amounts("1", "2"))
	require.ErrorIs(t, err, ErrValueCount)

	assert.Equal(t, 1, table.Len())
}

func TestRow_ReturnsCopy(t *testing.T) {
	table := newTable(t, "Cash")
	row := table.Row(0)
	row.RawLabel = "changed"
	row.Values[0] = decimal.NullDecimal{}

	fresh := table.Row(0)
	assert.Equal(t, "Cash", fresh.RawLabel)
	assert.True(t, fresh.Values[0].Valid)
}

func TestClassify(t *testing.T) {
	table := newTable(t, "Cash", "Goodwill", "Goodwill Impairment Reserve", "Total Assets")
	table.Classify(pattern.MustDefault())

	rows := table.Rows()
	assert.Equal(t, model.CurrentAssets, rows[0].Category)
	assert.Equal(t, SourceRule, rows[0].Source)
	assert.Equal(t, `^cash(_and)?(_cash_equivalents)?$`, rows[0].Pattern)
	assert.Equal(t, model.NoncurrentAssets, rows[1].Category)
	assert.Equal(t, model.Unknown, rows[2].Category)
	assert.Equal(t, SourceNone, rows[2].Source)
	assert.Equal(t, model.Totals, rows[3].Category)

	assert.Equal(t, []int{2}, table.Unknown())
	i, ok := table.FirstUnknown()
	assert.True(t, ok)
	assert.Equal(t, 2, i)
}

func TestClassify_StaleUntilRerun(t *testing.T) {
	rules := pattern.MustDefault()
	table := newTable(t, "Goodwill Impairment Reserve", "Minority Interest")
	table.Classify(rules)

	require.NoError(t, rules.AddPattern(model.Equity, "^goodwill_impairment_reserve$"))

	// Nothing recomputed yet.
	assert.Equal(t, model.Unknown, table.Row(0).Category)

	got, err := table.ClassifyRow(0, rules)
	require.NoError(t, err)
	assert.Equal(t, model.Equity, got)
	assert.Equal(t, model.Equity, table.Row(0).Category)
	assert.Equal(t, model.Unknown, table.Row(1).Category)
}

func TestReclassifyUnknown(t *testing.T) {
	rules := pattern.MustDefault()
	table := newTable(t, "Cash", "Minority Interest", "Minority Interest Other", "Deferred Charges")
	table.Classify(rules)
	require.Len(t, table.Unknown(), 3)

	require.NoError(t, rules.AddPattern(model.Equity, "^minority_interest"))
	resolved := table.ReclassifyUnknown(rules)

	assert.Equal(t, 2, resolved)
	assert.Equal(t, []int{3}, table.Unknown())
	assert.Equal(t, model.CurrentAssets, table.Row(0).Category)
}

func TestOverride_Isolation(t *testing.T) {
	rules := pattern.MustDefault()
	table := New([]string{"2024"})
	require.NoError(t, table.AddRow("Goodwill Impairment Reserve", amounts("5")))
	require.NoError(t, table.AddRow("goodwill impairment-reserve", amounts("6")))
	table.Classify(rules)
	before := rules.Snapshot()

	require.NoError(t, table.Override(0, model.Equity))

	assert.Equal(t, model.Equity, table.Row(0).Category)
	assert.Equal(t, SourceOverride, table.Row(0).Source)
	assert.True(t, table.Row(0).Overridden())

	// Same normalized label, different row: untouched.
	assert.Equal(t, table.Row(0).Normalized, table.Row(1).Normalized)
	assert.Equal(t, model.Unknown, table.Row(1).Category)

	assert.Equal(t, before, rules.Snapshot())
	assert.Equal(t, model.Unknown, rules.Classify(table.Row(0).Normalized))

	// Later passes leave the override alone.
	table.Classify(rules)
	assert.Equal(t, model.Equity, table.Row(0).Category)
	got, err := table.ClassifyRow(0, rules)
	require.NoError(t, err)
	assert.Equal(t, model.Equity, got)
}

func TestOverride_Errors(t *testing.T) {
	table := newTable(t, "Cash")

	err := table.Override(0, "bogus_category")
	require.ErrorIs(t, err, pattern.ErrUnknownCategory)

	err = table.Override(0, model.Unknown)
	require.ErrorIs(t, err, pattern.ErrUnknownCategory)

	err = table.Override(5, model.Equity)
	require.ErrorIs(t, err, ErrRowOutOfRange)

	_, err = table.ClassifyRow(-1, pattern.MustDefault())
	require.ErrorIs(t, err, ErrRowOutOfRange)

	assert.Equal(t, model.Unknown, table.Row(0).Category)
}

func TestLabelsNeverChange(t *testing.T) {
	rules := pattern.MustDefault()
	table := newTable(t, "Accounts Receivable, Net", "Mystery Line")
	table.Classify(rules)
	require.NoError(t, rules.AddPattern(model.Equity, "^mystery"))
	table.ReclassifyUnknown(rules)
	require.NoError(t, table.Override(0, model.Equity))

	assert.Equal(t, "Accounts Receivable, Net", table.Row(0).RawLabel)
	assert.Equal(t, "accounts_receivable_net", table.Row(0).Normalized)
	assert.Equal(t, "Mystery Line", table.Row(1).RawLabel)
	assert.Equal(t, "mystery_line", table.Row(1).Normalized)
}

func TestCountByCategory(t *testing.T) {
	table := newTable(t, "Cash", "Inventory", "Goodwill", "Mystery")
	table.Classify(pattern.MustDefault())

	counts := table.CountByCategory()
	assert.Equal(t, 2, counts[model.CurrentAssets])
	assert.Equal(t, 1, counts[model.NoncurrentAssets])
	assert.Equal(t, 1, counts[model.Unknown])
}
