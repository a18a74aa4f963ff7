// Package simplefin reads account balances from a SimpleFIN Bridge.
package simplefin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/Veraticus/the-books-must-balance/internal/common"
	"github.com/Veraticus/the-books-must-balance/internal/source"
	"github.com/Veraticus/the-books-must-balance/internal/statement"
	"github.com/shopspring/decimal"
)

// PeriodLayout formats balance dates as statement periods.
const PeriodLayout = "2006-01-02"

var (
	// ErrNotConfigured is returned when there is neither an access URL nor a
	// setup token to claim one with.
	ErrNotConfigured = errors.New("simplefin is not configured")
	// ErrAccessDenied is returned when the bridge rejects the access URL.
	ErrAccessDenied = errors.New("simplefin access denied")
)

// Config holds the SimpleFIN client configuration.
type Config struct {
	AccessURL string
	Timeout   time.Duration
	Retry     common.RetryOptions
}

// Client implements source.Fetcher against a SimpleFIN access URL.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	base       *url.URL
	cfg        Config
}

// Account is one account's balance as reported by the bridge.
type Account struct {
	BalanceDate time.Time
	Balance     decimal.NullDecimal
	ID          string
	Name        string
	Org         string
	Currency    string
}

// Label names the row for the account; the display name when there is one.
func (a Account) Label() string {
	if name := strings.TrimSpace(a.Name); name != "" {
		return name
	}
	return "Account " + a.ID
}

type accountSet struct {
	Errors   []string      `json:"errors"`
	Accounts []wireAccount `json:"accounts"`
}

type wireAccount struct {
	Org struct {
		Name   string `json:"name"`
		Domain string `json:"domain"`
	} `json:"org"`
	ID          string `json:"id"`
	Name        string `json:"name"`
	Currency    string `json:"currency"`
	Balance     string `json:"balance"`
	BalanceDate int64  `json:"balance-date"`
}

// NewClient creates a client for cfg.AccessURL. The URL's user info is sent
// as basic auth and kept out of log lines.
func NewClient(cfg Config) (*Client, error) {
	if !isHTTPURL(cfg.AccessURL) {
		return nil, fmt.Errorf("access URL is required: %w", ErrNotConfigured)
	}
	base, err := url.Parse(strings.TrimRight(cfg.AccessURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid access URL: %w", common.ErrInvalidConfig)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = common.DefaultRetryOptions()
	}

	return &Client{
		cfg:        cfg,
		base:       base,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     slog.Default().With("component", "simplefin"),
	}, nil
}

// Name implements source.Fetcher.
func (c *Client) Name() string {
	return "simplefin"
}

// Accounts lists every account's current balance.
func (c *Client) Accounts(ctx context.Context) ([]Account, error) {
	var body []byte
	err := common.WithRetry(ctx, func() error {
		var getErr error
		body, getErr = c.get(ctx)
		return getErr
	}, c.cfg.Retry)
	if err != nil {
		return nil, fmt.Errorf("simplefin: %w", err)
	}

	var set accountSet
	if err := json.Unmarshal(body, &set); err != nil {
		return nil, fmt.Errorf("simplefin: failed to decode accounts: %w", err)
	}
	for _, msg := range set.Errors {
		c.logger.Warn("SimpleFIN bridge reported a problem", "message", msg)
	}

	accounts := make([]Account, 0, len(set.Accounts))
	for _, w := range set.Accounts {
		acct := Account{
			ID:          w.ID,
			Name:        w.Name,
			Org:         w.Org.Name,
			Currency:    w.Currency,
			BalanceDate: time.Unix(w.BalanceDate, 0).UTC(),
		}
		if strings.TrimSpace(w.Balance) != "" {
			amount, err := decimal.NewFromString(strings.TrimSpace(w.Balance))
			if err != nil {
				return nil, fmt.Errorf("simplefin: account %s balance %q: %w", w.ID, w.Balance, err)
			}
			acct.Balance = decimal.NewNullDecimal(amount)
		}
		accounts = append(accounts, acct)
	}

	c.logger.Info("Fetched SimpleFIN balances", "accounts", len(accounts))
	return accounts, nil
}

// Fetch implements source.Fetcher. The request symbol is only used for the
// statement origin.
func (c *Client) Fetch(ctx context.Context, req source.Request) (*statement.Table, error) {
	accounts, err := c.Accounts(ctx)
	if err != nil {
		return nil, err
	}
	table, err := AccountsTable(accounts)
	if err != nil {
		return nil, fmt.Errorf("simplefin: %w", err)
	}
	table.Origin = source.Key(c.Name(), req)
	return table, nil
}

func (c *Client) get(ctx context.Context) ([]byte, error) {
	endpoint := *c.base
	endpoint.User = nil
	endpoint.Path += "/accounts"
	endpoint.RawQuery = url.Values{"balances-only": {"1"}}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, common.Permanent(fmt.Errorf("failed to create request: %w", err))
	}
	if user := c.base.User; user != nil {
		password, _ := user.Password()
		req.SetBasicAuth(user.Username(), password)
	}
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("Requesting SimpleFIN accounts", "url", endpoint.String())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, common.Transient(fmt.Errorf("%w: %w", common.ErrSourceUnavailable, err))
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, common.Transient(fmt.Errorf("failed to read response: %w", err))
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, nil
	case resp.StatusCode == http.StatusForbidden, resp.StatusCode == http.StatusUnauthorized:
		return nil, common.Permanent(ErrAccessDenied)
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, common.Throttled(common.ParseRetryAfter(resp.Header.Get("Retry-After"), time.Now()))
	case resp.StatusCode >= 500:
		return nil, common.Transient(fmt.Errorf("%w: HTTP %d", common.ErrSourceUnavailable, resp.StatusCode))
	default:
		return nil, common.Permanent(fmt.Errorf("SimpleFIN API error: HTTP %d", resp.StatusCode))
	}
}

// AccountsTable builds a statement with one row per account and one period
// per distinct balance date, newest first. Colliding labels get the
// institution appended, then a counter.
func AccountsTable(accounts []Account) (*statement.Table, error) {
	if len(accounts) == 0 {
		return nil, common.ErrEmptyStatement
	}

	var periods []string
	for _, acct := range accounts {
		period := acct.BalanceDate.Format(PeriodLayout)
		if !slices.Contains(periods, period) {
			periods = append(periods, period)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(periods)))

	table := statement.New(periods)
	for _, acct := range accounts {
		label := acct.Label()
		if _, taken := table.Index(label); taken && acct.Org != "" {
			label = fmt.Sprintf("%s (%s)", label, acct.Org)
		}
		base := label
		for n := 2; ; n++ {
			if _, taken := table.Index(label); !taken {
				break
			}
			label = fmt.Sprintf("%s #%d", base, n)
		}

		values := make([]decimal.NullDecimal, len(periods))
		col, _ := table.PeriodIndex(acct.BalanceDate.Format(PeriodLayout))
		values[col] = acct.Balance

		if err := table.AddRow(label, values); err != nil {
			return nil, fmt.Errorf("account %s: %w", acct.ID, err)
		}
	}
	return table, nil
}

var _ source.Fetcher = (*Client)(nil)
