package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/Veraticus/the-books-must-balance/internal/model"
	"github.com/Veraticus/the-books-must-balance/internal/pattern"
	"github.com/Veraticus/the-books-must-balance/internal/repair"
	"github.com/Veraticus/the-books-must-balance/internal/statement"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPrompt() repair.Prompt {
	return repair.Prompt{
		Row: statement.Row{
			RawLabel:   "Goodwill Impairment Reserve",
			Normalized: "goodwill_impairment_reserve",
			Category:   model.Unknown,
			Values:     []decimal.NullDecimal{decimal.NewNullDecimal(decimal.NewFromInt(1200))},
		},
		Unresolved: 2,
		Total:      3,
	}
}

func TestPrompter_ChooseAction(t *testing.T) {
	tests := []struct {
		name         string
		input        string
		want         repair.Action
		wantInvalid  int
		expectClosed bool
	}{
		{name: "extend rules", input: "1\n", want: repair.ActionExtendRules},
		{name: "override row", input: "2\n", want: repair.ActionOverrideRow},
		{name: "abort", input: "3\n", want: repair.ActionAbort},
		{name: "surrounding whitespace", input: "  2  \n", want: repair.ActionOverrideRow},
		{name: "invalid then valid", input: "x\n9\n\n1\n", want: repair.ActionExtendRules, wantInvalid: 3},
		{name: "last line without newline", input: "3", want: repair.ActionAbort},
		{name: "input closed", input: "", expectClosed: true},
		{name: "invalid then input closed", input: "4\n", wantInvalid: 1, expectClosed: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			p := NewCLIPrompter(strings.NewReader(tt.input), &out)

			got, err := p.ChooseAction(context.Background(), testPrompt())
			if tt.expectClosed {
				require.ErrorIs(t, err, repair.ErrInputClosed)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}

			output := out.String()
			assert.Contains(t, output, "Goodwill Impairment Reserve")
			assert.Contains(t, output, "goodwill_impairment_reserve")
			assert.Equal(t, tt.wantInvalid, strings.Count(output, "invalid selection"))
		})
	}
}

func TestPrompter_ChooseCategory(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   model.CategoryName
		wantOK bool
	}{
		{name: "current assets", input: "1\n", want: model.CurrentAssets, wantOK: true},
		{name: "noncurrent assets", input: "2\n", want: model.NoncurrentAssets, wantOK: true},
		{name: "current liabilities", input: "3\n", want: model.CurrentLiabilities, wantOK: true},
		{name: "noncurrent liabilities", input: "4\n", want: model.NoncurrentLiabilities, wantOK: true},
		{name: "equity", input: "5\n", want: model.Equity, wantOK: true},
		{name: "totals", input: "6\n", want: model.Totals, wantOK: true},
		{name: "back", input: "7\n", wantOK: false},
		{name: "invalid then equity", input: "0\nequity\n5\n", want: model.Equity, wantOK: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			p := NewCLIPrompter(strings.NewReader(tt.input), &out)

			got, ok, err := p.ChooseCategory(context.Background(), testPrompt(), repair.PurposeOverrideRow)
			require.NoError(t, err)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
			assert.Contains(t, out.String(), "Non-current Liabilities")
			assert.Contains(t, out.String(), "[7] Back")
		})
	}
}

func TestPrompter_ChooseCategory_PurposeWording(t *testing.T) {
	var out bytes.Buffer
	p := NewCLIPrompter(strings.NewReader("5\n"), &out)

	_, _, err := p.ChooseCategory(context.Background(), testPrompt(), repair.PurposeExtendRules)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "new pattern")
}

func TestPrompter_EnterPattern(t *testing.T) {
	var out bytes.Buffer
	p := NewCLIPrompter(strings.NewReader("\n   \n^goodwill_.*\n"), &out)

	got, err := p.EnterPattern(context.Background(), testPrompt(), model.Equity)
	require.NoError(t, err)
	assert.Equal(t, "^goodwill_.*", got)

	output := out.String()
	assert.Equal(t, 2, strings.Count(output, "Pattern cannot be empty"))
	assert.Contains(t, output, "^goodwill_impairment_reserve$")
}

func TestPrompter_EnterPattern_HintOncePerRow(t *testing.T) {
	var out bytes.Buffer
	p := NewCLIPrompter(strings.NewReader("^goodwill_(\n^goodwill_.*\n1\n^goodwill_impairment_reserve$\n"), &out)
	ctx := context.Background()

	_, err := p.EnterPattern(ctx, testPrompt(), model.Equity)
	require.NoError(t, err)
	_, err = p.EnterPattern(ctx, testPrompt(), model.Equity)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(out.String(), "Patterns match"), "retries for the same row skip the hint")

	_, err = p.ChooseAction(ctx, testPrompt())
	require.NoError(t, err)
	out.Reset()
	_, err = p.EnterPattern(ctx, testPrompt(), model.Equity)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(out.String(), "Patterns match"), "a new row shows the hint again")
}

func TestPrompter_EnterPattern_InputClosed(t *testing.T) {
	p := NewCLIPrompter(strings.NewReader(""), &bytes.Buffer{})

	_, err := p.EnterPattern(context.Background(), testPrompt(), model.Equity)
	require.ErrorIs(t, err, repair.ErrInputClosed)
}

func TestPrompter_ContextCanceled(t *testing.T) {
	p := NewCLIPrompter(strings.NewReader("1\n"), &bytes.Buffer{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.ChooseAction(ctx, testPrompt())
	require.ErrorIs(t, err, context.Canceled)

	_, _, err = p.ChooseCategory(ctx, testPrompt(), repair.PurposeExtendRules)
	require.ErrorIs(t, err, context.Canceled)

	_, err = p.EnterPattern(ctx, testPrompt(), model.Equity)
	require.ErrorIs(t, err, context.Canceled)
}

func TestPrompter_ReportError(t *testing.T) {
	var out bytes.Buffer
	p := NewCLIPrompter(strings.NewReader(""), &out)

	_, err := pattern.Compile(model.Equity, "^goodwill_(")
	require.Error(t, err)
	p.ReportError(context.Background(), err)
	assert.Contains(t, out.String(), "invalid pattern")
	assert.Contains(t, out.String(), "Please try again.")

	out.Reset()
	p.ReportError(context.Background(), repair.ErrPatternMissedRow)
	assert.Contains(t, out.String(), "pattern does not match the row")
	assert.NotContains(t, out.String(), "Please try again.")
}

func TestPrompter_ShowSummary(t *testing.T) {
	var out bytes.Buffer
	p := NewCLIPrompter(strings.NewReader(""), &out)
	p.Progress(1, 3)

	p.ShowSummary(repair.Result{
		Outcome:   repair.StateAborted,
		Total:     3,
		Remaining: 1,
		Overrides: 1,
		PatternsAdded: []repair.AddedPattern{
			{Category: model.Equity, Expr: "^minority_interest", Resolved: 1},
		},
	})

	output := out.String()
	assert.Contains(t, output, "Repair Stopped")
	assert.Contains(t, output, "Resolved: 2")
	assert.Contains(t, output, "Still unknown: 1")
	assert.Contains(t, output, "^minority_interest")
	assert.Contains(t, output, "not saved")
}

func TestPrompter_DrivesRepairLoop(t *testing.T) {
	rules := pattern.MustDefault()
	st := statement.New([]string{"2024"})
	one := []decimal.NullDecimal{decimal.NewNullDecimal(decimal.NewFromInt(1))}
	require.NoError(t, st.AddRow("Minority Interest", one))
	require.NoError(t, st.AddRow("Cash", one))
	require.NoError(t, st.AddRow("Deferred Charges", one))
	st.Classify(rules)

	// Extend equity with a bad pattern first, then a good one, then override
	// the remaining row as a non-current asset.
	input := strings.Join([]string{
		"1", "5", "^minority_(", "^minority_interest$",
		"8", "2", "7",
		"2", "2",
	}, "\n") + "\n"

	var out bytes.Buffer
	p := NewCLIPrompter(strings.NewReader(input), &out)

	result, err := repair.New(rules, st, p, repair.DefaultOptions()).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, repair.StateDone, result.Outcome)
	assert.Equal(t, model.Equity, st.Row(0).Category)
	assert.Equal(t, model.NoncurrentAssets, st.Row(2).Category)
	assert.Equal(t, 1, result.Overrides)
	assert.Contains(t, out.String(), "invalid pattern")
	assert.Equal(t, 1, strings.Count(out.String(), "Patterns match"), "hint is not repeated after the bad pattern")
}

func TestSuggestPattern(t *testing.T) {
	assert.Equal(t, "^total_assets$", SuggestPattern("total_assets"))
	assert.Equal(t, `^a\.b$`, SuggestPattern("a.b"))
}

func TestRenderStatement(t *testing.T) {
	st, err := statement.ReadCSV(strings.NewReader("label,2024\nCash,100\nMystery,\n"))
	require.NoError(t, err)
	st.Classify(pattern.MustDefault())

	out := RenderStatement(st)
	assert.Contains(t, out, "Cash")
	assert.Contains(t, out, "current_assets")
	assert.Contains(t, out, "unknown")
	assert.Contains(t, out, "2024")
}

func TestRenderRules(t *testing.T) {
	table, err := pattern.NewRuleTable([]pattern.CategoryPatterns{
		{Category: model.Equity, Patterns: []string{"^retained_earnings$"}},
	})
	require.NoError(t, err)

	out := RenderRules(table.Snapshot())
	assert.Contains(t, out, "Equity (equity)")
	assert.Contains(t, out, "^retained_earnings$")
	assert.Contains(t, out, "(no patterns)")
}

func TestRenderRepairActions(t *testing.T) {
	out := RenderRepairActions([]model.RepairAction{
		{
			CreatedAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
			SessionID: "s1",
			RawLabel:  "Mystery Reserve",
			Kind:      model.RepairAddPattern,
			Category:  model.NoncurrentLiabilities,
			Pattern:   "^mystery",
			Resolved:  2,
		},
		{
			SessionID: "s1",
			RawLabel:  "Other",
			Kind:      model.RepairAbort,
		},
	})

	assert.Contains(t, out, "Mystery Reserve")
	assert.Contains(t, out, "add_pattern")
	assert.Contains(t, out, "noncurrent_liabilities")
	assert.Contains(t, out, "^mystery")
	assert.Contains(t, out, "abort")
	assert.Contains(t, out, "Resolved")
}
