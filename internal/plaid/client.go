// Package plaid reads current account balances from the Plaid API.
package plaid

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Veraticus/the-books-must-balance/internal/common"
	"github.com/plaid/plaid-go/v20/plaid"
)

// ErrItemLoginRequired is returned when the institution needs the user to
// re-authenticate the item through Plaid Link.
var ErrItemLoginRequired = errors.New("plaid item needs re-authentication")

var environments = map[string]plaid.Environment{
	"sandbox":    plaid.Sandbox,
	"production": plaid.Production,
}

// Config holds Plaid API configuration. AccountIDs optionally limits the
// statement to a subset of the item's accounts.
type Config struct {
	ClientID    string
	Secret      string
	Environment string
	AccessToken string
	AccountIDs  []string
}

// Validate reports every missing field at once.
func (c *Config) Validate() error {
	var missing []string
	for _, f := range []struct{ name, value string }{
		{"client ID", c.ClientID},
		{"secret", c.Secret},
		{"access token", c.AccessToken},
		{"environment", c.Environment},
	} {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("plaid %s required", strings.Join(missing, ", "))
	}
	if _, ok := environments[c.Environment]; !ok {
		return fmt.Errorf("invalid Plaid environment %q: must be sandbox or production", c.Environment)
	}
	return nil
}

// Client lists accounts and their real-time balances for one Plaid item.
type Client struct {
	client      *plaid.APIClient
	logger      *slog.Logger
	accountIDs  []string
	retryOpts   common.RetryOptions
	accessToken string
}

// NewClient validates cfg and builds an API client for its environment.
func NewClient(cfg *Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrInvalidConfig, err)
	}

	configuration := plaid.NewConfiguration()
	configuration.AddDefaultHeader("PLAID-CLIENT-ID", cfg.ClientID)
	configuration.AddDefaultHeader("PLAID-SECRET", cfg.Secret)
	configuration.UseEnvironment(environments[cfg.Environment])

	return &Client{
		client:      plaid.NewAPIClient(configuration),
		accessToken: cfg.AccessToken,
		accountIDs:  append([]string(nil), cfg.AccountIDs...),
		logger:      slog.Default().With("component", "plaid"),
		retryOpts: common.RetryOptions{
			MaxAttempts:  3,
			InitialDelay: time.Second,
			MaxDelay:     30 * time.Second,
			Multiplier:   2.0,
		},
	}, nil
}

func (c *Client) balanceRequest() plaid.AccountsBalanceGetRequest {
	request := plaid.NewAccountsBalanceGetRequest(c.accessToken)
	if len(c.accountIDs) > 0 {
		options := plaid.NewAccountsBalanceGetRequestOptions()
		options.SetAccountIds(c.accountIDs)
		request.SetOptions(*options)
	}
	return *request
}

// GetAccounts fetches the item's accounts with balances refreshed from the
// institution rather than Plaid's cached values.
func (c *Client) GetAccounts(ctx context.Context) ([]Account, error) {
	c.logger.Info("Fetching balances from Plaid", "accounts", len(c.accountIDs))

	var accounts []plaid.AccountBase
	err := common.WithRetry(ctx, func() error {
		resp, _, err := c.client.PlaidApi.AccountsBalanceGet(ctx).AccountsBalanceGetRequest(c.balanceRequest()).Execute()
		if err != nil {
			return c.classify(err)
		}
		accounts = resp.GetAccounts()
		return nil
	}, c.retryOpts)
	if err != nil {
		return nil, err
	}

	c.logger.Info("Fetched balances", "count", len(accounts))

	out := make([]Account, 0, len(accounts))
	for _, acct := range accounts {
		out = append(out, fromPlaid(acct))
	}
	return out, nil
}

// classify maps an API failure onto the retry classes.
func (c *Client) classify(err error) error {
	plaidErr, convErr := plaid.ToPlaidError(err)
	if convErr != nil {
		return fmt.Errorf("failed to fetch balances: %w", err)
	}
	classified := classifyPlaidError(plaidErr)
	if common.IsRetryable(classified) {
		c.logger.Warn("Plaid request failed, will retry", "type", plaidErr.ErrorType, "code", plaidErr.ErrorCode)
	}
	return classified
}

func classifyPlaidError(pe plaid.PlaidError) error {
	detail := fmt.Sprintf("%s - %s", pe.ErrorCode, pe.ErrorMessage)
	switch {
	case pe.ErrorType == "RATE_LIMIT_EXCEEDED" || pe.ErrorCode == "RATE_LIMIT_EXCEEDED":
		return common.Transient(fmt.Errorf("%w: %s", common.ErrRateLimit, detail))
	case pe.ErrorCode == "ITEM_LOGIN_REQUIRED":
		return common.Permanent(fmt.Errorf("%w: %s", ErrItemLoginRequired, detail))
	case pe.ErrorType == "INSTITUTION_ERROR" || pe.ErrorType == "API_ERROR":
		return common.Transient(fmt.Errorf("%w: %s", common.ErrSourceUnavailable, detail))
	default:
		return common.Permanent(fmt.Errorf("plaid API error: %s", detail))
	}
}

var _ AccountLister = (*Client)(nil)
