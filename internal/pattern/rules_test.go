package pattern

import (
	"testing"

	"github.com/Veraticus/the-books-must-balance/internal/label"
	"github.com/Veraticus/the-books-must-balance/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRuleTable_DefaultSeed(t *testing.T) {
	table, err := NewRuleTable(DefaultSeed())
	require.NoError(t, err)

	assert.Equal(t, model.Categories(), table.Categories())
	assert.Equal(t, 30, table.Len())
	assert.Empty(t, table.Added())
}

func TestNewRuleTable_Errors(t *testing.T) {
	tests := []struct {
		wantErr error
		name    string
		seed    []CategoryPatterns
	}{
		{
			name:    "unknown category",
			seed:    []CategoryPatterns{{Category: "bogus_category", Patterns: []string{"^x$"}}},
			wantErr: ErrUnknownCategory,
		},
		{
			name:    "unknown sentinel is not a category",
			seed:    []CategoryPatterns{{Category: model.Unknown, Patterns: []string{"^x$"}}},
			wantErr: ErrUnknownCategory,
		},
		{
			name: "duplicate category",
			seed: []CategoryPatterns{
				{Category: model.Equity, Patterns: []string{"^a$"}},
				{Category: model.Equity, Patterns: []string{"^b$"}},
			},
			wantErr: ErrDuplicateCategory,
		},
		{
			name:    "bad regex",
			seed:    []CategoryPatterns{{Category: model.Equity, Patterns: []string{"^retained_(earnings$"}}},
			wantErr: ErrInvalidPattern,
		},
		{
			name:    "empty pattern",
			seed:    []CategoryPatterns{{Category: model.Totals, Patterns: []string{""}}},
			wantErr: ErrInvalidPattern,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := NewRuleTable(tt.seed)
			require.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, table)
		})
	}
}

func TestNewRuleTable_SeedOrderAndMissingCategories(t *testing.T) {
	table, err := NewRuleTable([]CategoryPatterns{
		{Category: model.Totals, Patterns: []string{"^total_.*"}},
		{Category: model.CurrentAssets, Patterns: []string{"^total_current_assets$"}},
	})
	require.NoError(t, err)

	assert.Equal(t, []model.CategoryName{
		model.Totals,
		model.CurrentAssets,
		model.NoncurrentAssets,
		model.CurrentLiabilities,
		model.NoncurrentLiabilities,
		model.Equity,
	}, table.Categories())

	// Totals is declared first here, so it wins.
	assert.Equal(t, model.Totals, table.Classify("total_current_assets"))
	assert.Empty(t, table.Patterns(model.Equity))
}

func TestClassify_FirstMatchWithinCategory(t *testing.T) {
	table, err := NewRuleTable([]CategoryPatterns{
		{Category: model.CurrentAssets, Patterns: []string{"^cash$", "^cash_and.*"}},
	})
	require.NoError(t, err)

	m, ok := table.Lookup("cash_and_equivalents")
	require.True(t, ok)
	assert.Equal(t, model.CurrentAssets, m.Category)
	assert.Equal(t, "^cash_and.*", m.Pattern)
	assert.Equal(t, 1, m.Index)

	m, ok = table.Lookup("cash")
	require.True(t, ok)
	assert.Equal(t, "^cash$", m.Pattern)
	assert.Equal(t, 0, m.Index)
}

func TestClassify_FirstMatchUsesDeclaredPatternOrder(t *testing.T) {
	table, err := NewRuleTable([]CategoryPatterns{
		{Category: model.CurrentAssets, Patterns: []string{"^cash.*", "^cash$"}},
	})
	require.NoError(t, err)

	m, ok := table.Lookup("cash")
	require.True(t, ok)
	assert.Equal(t, 0, m.Index)
}

func TestClassify_CrossCategoryPrecedence(t *testing.T) {
	table, err := NewRuleTable([]CategoryPatterns{
		{Category: model.CurrentAssets, Patterns: []string{"^total_current_assets$"}},
		{Category: model.Totals, Patterns: []string{"^total_.*"}},
	})
	require.NoError(t, err)

	assert.Equal(t, model.CurrentAssets, table.Classify("total_current_assets"))
	assert.Equal(t, model.Totals, table.Classify("total_assets"))

	// The default seed declares the same precedence.
	assert.Equal(t, model.CurrentAssets, MustDefault().Classify("total_current_assets"))
}

func TestClassify_AnchoredAtStart(t *testing.T) {
	table, err := NewRuleTable([]CategoryPatterns{
		{Category: model.Equity, Patterns: []string{"common_stock"}},
		{Category: model.Totals, Patterns: []string{"total|sum_of"}},
	})
	require.NoError(t, err)

	tests := []struct {
		input string
		want  model.CategoryName
	}{
		{input: "common_stock", want: model.Equity},
		{input: "common_stock_equity", want: model.Equity}, // prefix match need not consume
		{input: "preferred_and_common_stock", want: model.Unknown},
		{input: "total_assets", want: model.Totals},
		{input: "sum_of_parts", want: model.Totals}, // alternation anchored as a whole
		{input: "grand_total", want: model.Unknown},
		{input: "", want: model.Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, table.Classify(tt.input))
		})
	}
}

func TestClassify_EmptyLabelNeverMatches(t *testing.T) {
	table, err := NewRuleTable([]CategoryPatterns{
		{Category: model.Equity, Patterns: []string{".*"}},
	})
	require.NoError(t, err)

	assert.Equal(t, model.Unknown, table.Classify(""))
	assert.Equal(t, model.Equity, table.Classify("anything"))
}

func TestClassify_DefaultSeed(t *testing.T) {
	table := MustDefault()

	tests := []struct {
		raw  string
		want model.CategoryName
	}{
		{raw: "Cash And Cash Equivalents", want: model.CurrentAssets},
		{raw: "Cash", want: model.CurrentAssets},
		{raw: "Accounts Receivable, Net", want: model.CurrentAssets},
		{raw: "Inventory", want: model.CurrentAssets},
		{raw: "Goodwill", want: model.NoncurrentAssets},
		{raw: "Property Plant Equipment Net", want: model.NoncurrentAssets},
		{raw: "Accounts Payable", want: model.CurrentLiabilities},
		{raw: "Accrued Liabilities", want: model.CurrentLiabilities},
		{raw: "Long Term Debt", want: model.NoncurrentLiabilities},
		{raw: "Retained Earnings", want: model.Equity},
		{raw: "Total Equity Gross Minority Interest", want: model.Equity},
		{raw: "Total Assets", want: model.Totals},
		{raw: "Total Liabilities Net Minority Interest", want: model.Totals},
		{raw: "Goodwill Impairment Reserve", want: model.Unknown},
		{raw: "PP&E", want: model.Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, table.Classify(label.Normalize(tt.raw)))
		})
	}
}

func TestClassify_Deterministic(t *testing.T) {
	table := MustDefault()
	first := table.Classify("short_term_debt")
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, table.Classify("short_term_debt"))
	}
}

func TestAddPattern(t *testing.T) {
	table := MustDefault()
	key := label.Normalize("Goodwill Impairment Reserve")
	require.Equal(t, model.Unknown, table.Classify(key))

	require.NoError(t, table.AddPattern(model.Equity, "^goodwill_impairment_reserve$"))

	assert.Equal(t, model.Equity, table.Classify(key))
	patterns := table.Patterns(model.Equity)
	assert.Equal(t, "^goodwill_impairment_reserve$", patterns[len(patterns)-1])

	added := table.Added()
	require.Len(t, added, 1)
	assert.Equal(t, model.Equity, added[0].Category)
	assert.Equal(t, "^goodwill_impairment_reserve$", added[0].Expr)
}

func TestAddPattern_AppendsAfterExisting(t *testing.T) {
	table, err := NewRuleTable([]CategoryPatterns{
		{Category: model.Equity, Patterns: []string{"^retained.*"}},
	})
	require.NoError(t, err)

	require.NoError(t, table.AddPattern(model.Equity, "^retained_earnings$"))

	// The earlier, broader pattern still wins.
	m, ok := table.Lookup("retained_earnings")
	require.True(t, ok)
	assert.Equal(t, "^retained.*", m.Pattern)
	assert.Equal(t, []string{"^retained.*", "^retained_earnings$"}, table.Patterns(model.Equity))
}

func TestAddPattern_RejectsUnknownCategory(t *testing.T) {
	table := MustDefault()
	before := table.Snapshot()

	err := table.AddPattern("bogus_category", "^x$")
	require.ErrorIs(t, err, ErrUnknownCategory)

	err = table.AddPattern(model.Unknown, "^x$")
	require.ErrorIs(t, err, ErrUnknownCategory)

	assert.Equal(t, before, table.Snapshot())
	assert.Empty(t, table.Added())
	assert.Equal(t, model.Unknown, table.Classify("x"))
}

func TestAddPattern_RejectsInvalidPattern(t *testing.T) {
	table := MustDefault()
	before := table.Snapshot()

	for _, expr := range []string{"", "^goodwill_(", "[z-a]", "(?=lookahead)"} {
		err := table.AddPattern(model.Equity, expr)
		require.ErrorIs(t, err, ErrInvalidPattern, "expr %q", expr)
	}

	assert.Equal(t, before, table.Snapshot())
	assert.Empty(t, table.Added())
}

func TestSnapshot_IsACopy(t *testing.T) {
	table := MustDefault()
	snap := table.Snapshot()
	snap[0].Patterns[0] = "mutated"
	snap[0].Category = "mutated"

	fresh := table.Snapshot()
	assert.Equal(t, model.CurrentAssets, fresh[0].Category)
	assert.Equal(t, `^cash(_and)?(_cash_equivalents)?$`, fresh[0].Patterns[0])
}

func TestDefaultSeed_FreshCopy(t *testing.T) {
	a := DefaultSeed()
	a[0].Patterns = nil
	assert.NotEmpty(t, DefaultSeed()[0].Patterns)
}

func TestCompile(t *testing.T) {
	rule, err := Compile(model.Totals, "total_assets$")
	require.NoError(t, err)
	assert.True(t, rule.Matches("total_assets"))
	assert.False(t, rule.Matches("net_total_assets"))
	assert.False(t, rule.Matches(""))

	_, err = Compile("bogus", "x")
	require.ErrorIs(t, err, ErrUnknownCategory)
}
