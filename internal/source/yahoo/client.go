// Package yahoo fetches balance-sheet statements from the Yahoo Finance
// quoteSummary endpoint.
package yahoo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode"

	"github.com/Veraticus/the-books-must-balance/internal/common"
	"github.com/Veraticus/the-books-must-balance/internal/source"
	"github.com/Veraticus/the-books-must-balance/internal/statement"
	"github.com/shopspring/decimal"
)

// DefaultBaseURL is the public quoteSummary host.
const DefaultBaseURL = "https://query2.finance.yahoo.com"

const (
	annualModule    = "balanceSheetHistory"
	quarterlyModule = "balanceSheetHistoryQuarterly"
	defaultAgent    = "Mozilla/5.0 (compatible; balance/1.0)"
)

// ErrSymbolNotFound is returned when Yahoo has no statements for a symbol.
var ErrSymbolNotFound = errors.New("symbol not found")

// Config holds the Yahoo client configuration.
type Config struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
	Retry     common.RetryOptions
}

// Client implements source.Fetcher against quoteSummary.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	cfg        Config
}

// NewClient creates a Yahoo client, filling in defaults for empty fields.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = common.DefaultRetryOptions()
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     slog.Default().With("component", "yahoo"),
	}
}

// Name implements source.Fetcher.
func (c *Client) Name() string {
	return "yahoo"
}

// Fetch downloads and decodes the balance-sheet history for req.Symbol.
func (c *Client) Fetch(ctx context.Context, req source.Request) (*statement.Table, error) {
	symbol := strings.TrimSpace(req.Symbol)
	if symbol == "" {
		return nil, fmt.Errorf("yahoo: symbol is required")
	}

	module := annualModule
	if req.Frequency == source.Quarterly {
		module = quarterlyModule
	}

	var body []byte
	err := common.WithRetry(ctx, func() error {
		var fetchErr error
		body, fetchErr = c.get(ctx, symbol, module)
		return fetchErr
	}, c.cfg.Retry)
	if err != nil {
		return nil, fmt.Errorf("yahoo %s: %w", symbol, err)
	}

	table, err := decodeQuoteSummary(body, module)
	if err != nil {
		return nil, fmt.Errorf("yahoo %s: %w", symbol, err)
	}
	table.Origin = source.Key(c.Name(), req)

	c.logger.Info("Fetched balance sheet",
		"symbol", symbol,
		"module", module,
		"rows", table.Len(),
		"periods", len(table.Periods()))
	return table, nil
}

func (c *Client) get(ctx context.Context, symbol, module string) ([]byte, error) {
	endpoint := fmt.Sprintf("%s/v10/finance/quoteSummary/%s?modules=%s",
		strings.TrimRight(c.cfg.BaseURL, "/"), url.PathEscape(symbol), url.QueryEscape(module))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, common.Permanent(fmt.Errorf("failed to build request: %w", err))
	}
	httpReq.Header.Set("User-Agent", c.cfg.UserAgent)
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, common.Transient(fmt.Errorf("%w: %w", common.ErrSourceUnavailable, err))
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Warn("Failed to close response body", "error", closeErr)
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, common.Transient(fmt.Errorf("failed to read response: %w", err))
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, common.Permanent(ErrSymbolNotFound)
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, common.Throttled(common.ParseRetryAfter(resp.Header.Get("Retry-After"), time.Now()))
	case resp.StatusCode >= 500:
		return nil, common.Transient(fmt.Errorf("%w: HTTP %d", common.ErrSourceUnavailable, resp.StatusCode))
	default:
		return nil, common.Permanent(fmt.Errorf("unexpected HTTP %d: %s", resp.StatusCode, truncate(body, 200)))
	}
}

type quoteSummaryResponse struct {
	QuoteSummary struct {
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
		Result []map[string]struct {
			Statements []json.RawMessage `json:"balanceSheetStatements"`
		} `json:"result"`
	} `json:"quoteSummary"`
}

type fieldValue struct {
	Raw json.Number `json:"raw"`
	Fmt string      `json:"fmt"`
}

// decodeQuoteSummary turns one quoteSummary module into a statement table.
// Fields keep the order Yahoo sends them in; fields first seen in a later
// period are appended.
func decodeQuoteSummary(body []byte, module string) (*statement.Table, error) {
	var resp quoteSummaryResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode quoteSummary: %w", err)
	}
	if e := resp.QuoteSummary.Error; e != nil {
		if strings.EqualFold(e.Code, "Not Found") {
			return nil, ErrSymbolNotFound
		}
		return nil, fmt.Errorf("quoteSummary error %s: %s", e.Code, e.Description)
	}
	if len(resp.QuoteSummary.Result) == 0 {
		return nil, ErrSymbolNotFound
	}

	statements := resp.QuoteSummary.Result[0][module].Statements
	if len(statements) == 0 {
		return nil, common.ErrEmptyStatement
	}

	var (
		periods []string
		order   []string
		seen    = make(map[string]bool)
		dated   = make(map[string]bool)
		byField = make(map[string]map[string]decimal.NullDecimal)
	)

	for i, raw := range statements {
		keys, fields, err := orderedFields(raw)
		if err != nil {
			return nil, fmt.Errorf("statement %d: %w", i, err)
		}

		var end fieldValue
		if endRaw, ok := fields["endDate"]; ok {
			if err := json.Unmarshal(endRaw, &end); err != nil {
				return nil, fmt.Errorf("statement %d: bad endDate: %w", i, err)
			}
		}
		period := end.Fmt
		if period == "" {
			period = fmt.Sprintf("period_%d", i+1)
		}
		if dated[period] {
			return nil, fmt.Errorf("statement %d: duplicate period %q: %w", i, period, statement.ErrDuplicatePeriod)
		}
		dated[period] = true
		periods = append(periods, period)

		for _, key := range keys {
			if key == "endDate" || key == "maxAge" {
				continue
			}
			var v fieldValue
			if err := json.Unmarshal(fields[key], &v); err != nil {
				// Not a {raw, fmt} value; Yahoo occasionally mixes these in.
				continue
			}
			if !seen[key] {
				seen[key] = true
				order = append(order, key)
				byField[key] = make(map[string]decimal.NullDecimal)
			}
			if v.Raw == "" {
				continue
			}
			d, err := decimal.NewFromString(v.Raw.String())
			if err != nil {
				return nil, fmt.Errorf("field %s: bad value %q: %w", key, v.Raw, err)
			}
			byField[key][period] = decimal.NewNullDecimal(d)
		}
	}

	table := statement.New(periods)
	for _, key := range order {
		values := make([]decimal.NullDecimal, len(periods))
		for j, p := range periods {
			values[j] = byField[key][p]
		}
		if err := table.AddRow(FieldLabel(key), values); err != nil {
			return nil, fmt.Errorf("field %s: %w", key, err)
		}
	}
	return table, nil
}

// orderedFields returns the keys of a JSON object in document order along
// with their raw values.
func orderedFields(raw json.RawMessage) ([]string, map[string]json.RawMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, nil, fmt.Errorf("expected object, got %v", tok)
	}

	var keys []string
	fields := make(map[string]json.RawMessage)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, nil, fmt.Errorf("expected key, got %v", tok)
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, nil, fmt.Errorf("field %s: %w", key, err)
		}
		if _, dup := fields[key]; !dup {
			keys = append(keys, key)
		}
		fields[key] = value
	}
	return keys, fields, nil
}

// FieldLabel turns a camelCase field name into a display label:
// "cashAndCashEquivalents" becomes "Cash And Cash Equivalents".
func FieldLabel(field string) string {
	runes := []rune(field)
	var b strings.Builder
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				b.WriteRune(' ')
			}
		}
		if i == 0 {
			r = unicode.ToUpper(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
