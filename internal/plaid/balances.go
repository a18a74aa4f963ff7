package plaid

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/the-books-must-balance/internal/common"
	"github.com/Veraticus/the-books-must-balance/internal/source"
	"github.com/Veraticus/the-books-must-balance/internal/statement"
	"github.com/plaid/plaid-go/v20/plaid"
	"github.com/shopspring/decimal"
)

// Account is the part of a Plaid account the balance source needs.
type Account struct {
	Current decimal.NullDecimal
	ID      string
	Name    string
	Mask    string
	Type    string
	Subtype string
}

func fromPlaid(acct plaid.AccountBase) Account {
	out := Account{
		ID:      acct.GetAccountId(),
		Name:    acct.GetName(),
		Mask:    acct.GetMask(),
		Type:    string(acct.GetType()),
		Subtype: string(acct.GetSubtype()),
	}
	balances := acct.GetBalances()
	if current, ok := balances.GetCurrentOk(); ok && current != nil {
		out.Current = decimal.NewNullDecimal(decimal.NewFromFloat(*current))
	}
	return out
}

// Label names the account by subtype and mask, e.g. "Credit Card 3333".
// Accounts without a subtype fall back to their display name.
func (a Account) Label() string {
	title := titleWords(a.Subtype)
	if title == "" {
		title = strings.TrimSpace(a.Name)
	}
	if title == "" {
		title = titleWords(a.Type)
	}
	if title == "" {
		title = "Account"
	}
	if a.Mask != "" {
		title += " " + a.Mask
	}
	return title
}

func titleWords(s string) string {
	words := strings.Fields(strings.ReplaceAll(s, "_", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}

// AccountsTable builds a single-period statement from account balances.
// Colliding labels get the account name appended, then a counter.
func AccountsTable(accounts []Account, period string) (*statement.Table, error) {
	if len(accounts) == 0 {
		return nil, common.ErrEmptyStatement
	}

	table := statement.New([]string{period})
	for _, acct := range accounts {
		label := acct.Label()
		if _, taken := table.Index(label); taken && acct.Name != "" {
			label = fmt.Sprintf("%s (%s)", label, acct.Name)
		}
		base := label
		for n := 2; ; n++ {
			if _, taken := table.Index(label); !taken {
				break
			}
			label = fmt.Sprintf("%s #%d", base, n)
		}
		if err := table.AddRow(label, []decimal.NullDecimal{acct.Current}); err != nil {
			return nil, fmt.Errorf("account %s: %w", acct.ID, err)
		}
	}
	return table, nil
}

// BalanceSource turns a Plaid item into a statement dated today.
type BalanceSource struct {
	lister AccountLister
	now    func() time.Time
}

// NewBalanceSource wraps an AccountLister as a source.Fetcher.
func NewBalanceSource(lister AccountLister) *BalanceSource {
	return &BalanceSource{lister: lister, now: time.Now}
}

// Name implements source.Fetcher.
func (b *BalanceSource) Name() string {
	return "plaid"
}

// Fetch implements source.Fetcher. The request symbol is only used for the
// statement origin; Plaid items are selected by access token.
func (b *BalanceSource) Fetch(ctx context.Context, req source.Request) (*statement.Table, error) {
	accounts, err := b.lister.GetAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("plaid: %w", err)
	}
	table, err := AccountsTable(accounts, b.now().Format("2006-01-02"))
	if err != nil {
		return nil, fmt.Errorf("plaid: %w", err)
	}
	table.Origin = source.Key(b.Name(), req)
	return table, nil
}

var _ source.Fetcher = (*BalanceSource)(nil)
