// Package ofx reads account balances out of OFX/QFX statement downloads.
package ofx

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/Veraticus/the-books-must-balance/internal/common"
	"github.com/Veraticus/the-books-must-balance/internal/statement"
	"github.com/aclindsa/ofxgo"
	"github.com/shopspring/decimal"
)

// PeriodLayout formats DTASOF dates into statement periods.
const PeriodLayout = "2006-01-02"

var (
	severityRegex = regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)
	// Opening tags at end of line with no closing bracket, as some SGML exports emit.
	tagFixRegex = regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)
)

var accountTypeTitles = map[string]string{
	"CHECKING":   "Checking Account",
	"SAVINGS":    "Savings Account",
	"MONEYMRKT":  "Money Market Account",
	"CREDITLINE": "Credit Line",
	"CD":         "Certificate of Deposit",
}

// Balance is the ledger balance of one account on one date.
type Balance struct {
	AsOf      time.Time
	Amount    decimal.Decimal
	AccountID string
	Label     string
	Liability bool
}

// Parser turns OFX/QFX files into balance statements.
type Parser struct {
	logger *slog.Logger
}

// NewParser creates a new OFX parser.
func NewParser() *Parser {
	return &Parser{logger: slog.Default().With("component", "ofx")}
}

// preprocessOFX fixes common formatting issues in OFX files.
func (p *Parser) preprocessOFX(content string) string {
	content = strings.TrimLeft(content, " \t\r\n")
	content = severityRegex.ReplaceAllStringFunc(content, strings.ToUpper)
	return tagFixRegex.ReplaceAllString(content, "$1>")
}

// Balances extracts the ledger balance of every bank and credit-card
// statement in the file. Credit-card balances are reported as positive
// amounts owed.
func (p *Parser) Balances(ctx context.Context, reader io.Reader) ([]Balance, error) {
	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read OFX file: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	resp, err := ofxgo.ParseResponse(strings.NewReader(p.preprocessOFX(string(content))))
	if err != nil {
		return nil, fmt.Errorf("failed to parse OFX file: %w", err)
	}

	var balances []Balance
	for _, msg := range resp.Bank {
		stmt, ok := msg.(*ofxgo.StatementResponse)
		if !ok {
			continue
		}
		amount, err := toDecimal(stmt.BalAmt)
		if err != nil {
			p.logger.Warn("Skipping bank statement with unreadable balance",
				"account", stmt.BankAcctFrom.AcctID,
				"error", err)
			continue
		}
		id := string(stmt.BankAcctFrom.AcctID)
		balances = append(balances, Balance{
			AccountID: id,
			Label:     accountLabel(bankTitle(stmt.BankAcctFrom.AcctType.String()), id),
			Amount:    amount,
			AsOf:      stmt.DtAsOf.Time,
			Liability: stmt.BankAcctFrom.AcctType.String() == "CREDITLINE",
		})
	}

	for _, msg := range resp.CreditCard {
		stmt, ok := msg.(*ofxgo.CCStatementResponse)
		if !ok {
			continue
		}
		amount, err := toDecimal(stmt.BalAmt)
		if err != nil {
			p.logger.Warn("Skipping credit card statement with unreadable balance",
				"account", stmt.CCAcctFrom.AcctID,
				"error", err)
			continue
		}
		id := string(stmt.CCAcctFrom.AcctID)
		balances = append(balances, Balance{
			AccountID: id,
			Label:     accountLabel("Credit Card", id),
			Amount:    amount.Neg(),
			AsOf:      stmt.DtAsOf.Time,
			Liability: true,
		})
	}

	p.logger.Info("Parsed OFX balances", "accounts", len(balances))
	return balances, nil
}

// ParseBalances reads an OFX file into an unclassified statement with one
// row per account and one period per distinct balance date, newest first.
func (p *Parser) ParseBalances(ctx context.Context, reader io.Reader) (*statement.Table, error) {
	balances, err := p.Balances(ctx, reader)
	if err != nil {
		return nil, err
	}
	if len(balances) == 0 {
		return nil, common.ErrEmptyStatement
	}

	var (
		periods []string
		labels  []string
		values  = make(map[string]map[string]decimal.NullDecimal)
	)
	for _, b := range balances {
		period := b.AsOf.Format(PeriodLayout)
		if !slices.Contains(periods, period) {
			periods = append(periods, period)
		}
		if _, ok := values[b.Label]; !ok {
			labels = append(labels, b.Label)
			values[b.Label] = make(map[string]decimal.NullDecimal)
		}
		values[b.Label][period] = decimal.NewNullDecimal(b.Amount)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(periods)))

	table := statement.New(periods)
	for _, label := range labels {
		row := make([]decimal.NullDecimal, len(periods))
		for i, period := range periods {
			row[i] = values[label][period]
		}
		if err := table.AddRow(label, row); err != nil {
			return nil, fmt.Errorf("account %s: %w", label, err)
		}
	}
	return table, nil
}

func toDecimal(amount ofxgo.Amount) (decimal.Decimal, error) {
	return decimal.NewFromString(amount.FloatString(2))
}

func bankTitle(acctType string) string {
	if title, ok := accountTypeTitles[acctType]; ok {
		return title
	}
	return "Bank Account"
}

// accountLabel appends the last four digits of the account number.
func accountLabel(title, accountID string) string {
	if len(accountID) > 4 {
		accountID = accountID[len(accountID)-4:]
	}
	if accountID == "" {
		return title
	}
	return title + " " + accountID
}
