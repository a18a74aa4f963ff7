package ofx

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/Veraticus/the-books-must-balance/internal/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ofxFile wraps message sets in an SGML OFX 1.02 envelope with a signon
// block. The severity is written as given so tests can feed mixed case.
func ofxFile(severity string, msgSets ...string) string {
	var b strings.Builder
	for _, h := range []string{
		"OFXHEADER:100", "DATA:OFXSGML", "VERSION:102", "SECURITY:NONE",
		"ENCODING:USASCII", "CHARSET:1252", "COMPRESSION:NONE",
		"OLDFILEUID:NONE", "NEWFILEUID:NONE",
	} {
		b.WriteString(h + "\n")
	}
	fmt.Fprintf(&b, "\n<OFX>\n<SIGNONMSGSRSV1><SONRS>\n<STATUS><CODE>0\n<SEVERITY>%s\n</STATUS>\n"+
		"<DTSERVER>20240305120000[0:GMT]\n<LANGUAGE>ENG\n</SONRS></SIGNONMSGSRSV1>\n", severity)
	for _, m := range msgSets {
		b.WriteString(m)
	}
	b.WriteString("</OFX>")
	return b.String()
}

// ledgerDate renders an OFX timestamp at noon GMT.
func ledgerDate(day string) string {
	return day + "120000[0:GMT]"
}

func bankMsgs(stmts ...string) string {
	return "<BANKMSGSRSV1>\n" + strings.Join(stmts, "") + "</BANKMSGSRSV1>\n"
}

func cardMsgs(stmts ...string) string {
	return "<CREDITCARDMSGSRSV1>\n" + strings.Join(stmts, "") + "</CREDITCARDMSGSRSV1>\n"
}

func bankStmt(uid int, acctID, acctType, balance, asOf string) string {
	return fmt.Sprintf(`<STMTTRNRS><TRNUID>%d
<STATUS><CODE>0
<SEVERITY>INFO
</STATUS>
<STMTRS><CURDEF>USD
<BANKACCTFROM><BANKID>021000021
<ACCTID>%s
<ACCTTYPE>%s
</BANKACCTFROM>
<LEDGERBAL><BALAMT>%s
<DTASOF>%s
</LEDGERBAL>
</STMTRS></STMTTRNRS>
`, uid, acctID, acctType, balance, ledgerDate(asOf))
}

func cardStmt(uid int, acctID, balance, asOf string) string {
	return fmt.Sprintf(`<CCSTMTTRNRS><TRNUID>%d
<STATUS><CODE>0
<SEVERITY>INFO
</STATUS>
<CCSTMTRS><CURDEF>USD
<CCACCTFROM><ACCTID>%s
</CCACCTFROM>
<LEDGERBAL><BALAMT>%s
<DTASOF>%s
</LEDGERBAL>
</CCSTMTRS></CCSTMTTRNRS>
`, uid, acctID, balance, ledgerDate(asOf))
}

// householdOFX holds two months of checking, one savings account and a card.
func householdOFX() string {
	return ofxFile("Info</SEVERITY>",
		bankMsgs(
			bankStmt(1, "1234567890", "CHECKING", "1000.00", "20240131"),
			bankStmt(2, "1234567890", "CHECKING", "1250.75", "20240229"),
			bankStmt(3, "9876543210", "SAVINGS", "5000.00", "20240229"),
		),
		cardMsgs(cardStmt(4, "4111111111111111", "-320.10", "20240229")),
	)
}

func requireAmount(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.True(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got)
}

func TestParseBalances(t *testing.T) {
	tests := []struct {
		name      string
		file      string
		wantLabel string
		wantValue string
		wantErr   bool
	}{
		{
			name:      "checking account",
			file:      ofxFile("INFO", bankMsgs(bankStmt(1, "1234567890", "CHECKING", "1000.00", "20240131"))),
			wantLabel: "Checking Account 7890",
			wantValue: "1000",
		},
		{
			name:      "credit line is filed like any bank account",
			file:      ofxFile("INFO", bankMsgs(bankStmt(1, "55", "CREDITLINE", "-75.25", "20240131"))),
			wantLabel: "Credit Line 55",
			wantValue: "-75.25",
		},
		{
			name:      "card balance owed comes out positive",
			file:      ofxFile("INFO", cardMsgs(cardStmt(1, "4111111111111111", "-500.00", "20240131"))),
			wantLabel: "Credit Card 1111",
			wantValue: "500",
		},
		{
			name:    "garbage",
			file:    "not valid OFX",
			wantErr: true,
		},
		{
			name:    "empty file",
			file:    "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := NewParser().ParseBalances(context.Background(), strings.NewReader(tt.file))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, 1, table.Len())
			assert.Equal(t, []string{"2024-01-31"}, table.Periods())

			row := table.Row(0)
			assert.Equal(t, tt.wantLabel, row.RawLabel)
			assert.True(t, row.IsUnknown(), "parsed rows start unclassified")

			got, ok := table.Value(0, "2024-01-31")
			require.True(t, ok)
			requireAmount(t, tt.wantValue, got)
		})
	}
}

func TestParseBalances_MultipleAccountsAndDates(t *testing.T) {
	table, err := NewParser().ParseBalances(context.Background(), strings.NewReader(householdOFX()))
	require.NoError(t, err)

	assert.Equal(t, []string{"2024-02-29", "2024-01-31"}, table.Periods(), "periods are newest first")
	require.Equal(t, 3, table.Len())

	checking, ok := table.Index("Checking Account 7890")
	require.True(t, ok)
	for period, want := range map[string]string{"2024-01-31": "1000", "2024-02-29": "1250.75"} {
		got, ok := table.Value(checking, period)
		require.True(t, ok, period)
		requireAmount(t, want, got)
	}

	savings, ok := table.Index("Savings Account 3210")
	require.True(t, ok)
	_, ok = table.Value(savings, "2024-01-31")
	assert.False(t, ok, "savings has no January balance")

	card, ok := table.Index("Credit Card 1111")
	require.True(t, ok)
	owed, ok := table.Value(card, "2024-02-29")
	require.True(t, ok)
	requireAmount(t, "320.10", owed)
}

func TestBalances(t *testing.T) {
	balances, err := NewParser().Balances(context.Background(), strings.NewReader(householdOFX()))
	require.NoError(t, err)
	require.Len(t, balances, 4)

	first := balances[0]
	assert.Equal(t, "1234567890", first.AccountID)
	assert.False(t, first.Liability)
	assert.Equal(t, time.Date(2024, 1, 31, 12, 0, 0, 0, time.UTC), first.AsOf.UTC())

	card := balances[3]
	assert.Equal(t, "4111111111111111", card.AccountID)
	assert.True(t, card.Liability)
}

func TestBalances_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewParser().Balances(ctx, strings.NewReader(householdOFX()))
	require.ErrorIs(t, err, context.Canceled)
}

func TestParseBalances_NoStatements(t *testing.T) {
	_, err := NewParser().ParseBalances(context.Background(), strings.NewReader(ofxFile("INFO")))
	require.ErrorIs(t, err, common.ErrEmptyStatement)
}

func TestPreprocessOFX(t *testing.T) {
	out := NewParser().preprocessOFX("\n\n  <OFX>\n<SEVERITY>Warn</SEVERITY>\n<CODE\n</OFX>")

	assert.True(t, strings.HasPrefix(out, "<OFX>"))
	assert.Contains(t, out, "<SEVERITY>WARN</SEVERITY>")
	assert.Contains(t, out, "<CODE>\n")
}

func TestAccountLabel(t *testing.T) {
	tests := []struct {
		title, id, want string
	}{
		{"Checking Account", "1234567890", "Checking Account 7890"},
		{"Savings Account", "12", "Savings Account 12"},
		{"Credit Card", "", "Credit Card"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, accountLabel(tt.title, tt.id))
	}

	assert.Equal(t, "Bank Account", bankTitle("SOMETHINGNEW"))
	assert.Equal(t, "Money Market Account", bankTitle("MONEYMRKT"))
}
