package balancesheet

import (
	"strings"
	"testing"

	"github.com/Veraticus/the-books-must-balance/internal/model"
	"github.com/Veraticus/the-books-must-balance/internal/pattern"
	"github.com/Veraticus/the-books-must-balance/internal/statement"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSample(t *testing.T) {
	sheet := Sample()

	assert.Equal(t, "2025-10-08", sheet.Date)
	assert.True(t, sheet.Assets.Total().Equal(decimal.NewFromInt(58_000)))
	assert.True(t, sheet.Liabilities.Total().Equal(decimal.NewFromInt(10_000)))
	assert.True(t, sheet.Equity.Total().Equal(decimal.NewFromInt(48_000)))
	assert.True(t, sheet.IsBalanced())

	require.Len(t, sheet.Assets.Categories, 2)
	assert.Equal(t, model.CurrentAssets, sheet.Assets.Categories[0].Name)
	assert.True(t, sheet.Assets.Categories[0].Total().Equal(decimal.NewFromInt(23_000)))
}

func TestIsBalanced_Tolerance(t *testing.T) {
	sheet := New("2024-12-31")
	require.NoError(t, sheet.Add(model.CurrentAssets, "Cash", decimal.RequireFromString("100.0000001")))
	require.NoError(t, sheet.Add(model.Equity, "Capital", decimal.NewFromInt(100)))
	assert.True(t, sheet.IsBalanced())

	require.NoError(t, sheet.Add(model.CurrentLiabilities, "Payable", decimal.RequireFromString("0.01")))
	assert.False(t, sheet.IsBalanced())
	assert.Equal(t, "-0.0099999", sheet.Difference().String())
}

func TestAdd_RejectsNonAggregatingCategories(t *testing.T) {
	sheet := New("2024")
	assert.Error(t, sheet.Add(model.Totals, "Total Assets", decimal.NewFromInt(1)))
	assert.Error(t, sheet.Add(model.Unknown, "Mystery", decimal.NewFromInt(1)))
}

func TestFromStatement(t *testing.T) {
	csv := "label,2024-12-31,2023-12-31\n" +
		"Cash,100,90\n" +
		"Inventory,50,\n" +
		"Total Current Assets,150,90\n" +
		"Goodwill,25,25\n" +
		"Accounts Payable,40,30\n" +
		"Long Term Debt,35,35\n" +
		"Retained Earnings,100,50\n" +
		"Total Assets,175,115\n" +
		"Mystery Item,9,9\n"
	st, err := statement.ReadCSV(strings.NewReader(csv))
	require.NoError(t, err)
	st.Classify(pattern.MustDefault())

	sheet, err := FromStatement(st, "2024-12-31")
	require.NoError(t, err)

	assert.True(t, sheet.Assets.Total().Equal(decimal.NewFromInt(175)))
	assert.True(t, sheet.Liabilities.Total().Equal(decimal.NewFromInt(75)))
	assert.True(t, sheet.Equity.Total().Equal(decimal.NewFromInt(100)))
	assert.True(t, sheet.IsBalanced())

	skipped := map[string]string{}
	for _, s := range sheet.Skipped {
		skipped[s.Label] = s.Reason
	}
	assert.Equal(t, map[string]string{
		"Total Current Assets": "subtotal row",
		"Total Assets":         "total row",
		"Mystery Item":         "unknown category",
	}, skipped)

	prior, err := FromStatement(st, "2023-12-31")
	require.NoError(t, err)
	assert.True(t, prior.Assets.Total().Equal(decimal.NewFromInt(115)))
	assert.Contains(t, prior.Skipped, SkippedRow{Label: "Inventory", Reason: "no value for period"})
}

func TestFromStatement_UnknownPeriod(t *testing.T) {
	st := statement.New([]string{"2024"})
	_, err := FromStatement(st, "1999")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2024")
}

func TestRender(t *testing.T) {
	out := Sample().Render()

	assert.Contains(t, out, "BALANCE SHEET as of 2025-10-08")
	assert.Contains(t, out, "Cash: 10,000.00")
	assert.Contains(t, out, "Total Current Assets: 23,000.00")
	assert.Contains(t, out, "Total Assets: 58,000.00")
	assert.Contains(t, out, "Liab + Eq: 58,000.00")
	assert.Contains(t, out, "Balanced? Yes")
}

func TestMoney(t *testing.T) {
	tests := map[string]string{
		"0":          "0.00",
		"999":        "999.00",
		"1000":       "1,000.00",
		"-1234567.5": "-1,234,567.50",
		"100000":     "100,000.00",
	}
	for in, want := range tests {
		assert.Equal(t, want, money(decimal.RequireFromString(in)), in)
	}
}
