package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/Veraticus/the-books-must-balance/internal/common"
	"github.com/Veraticus/the-books-must-balance/internal/config"
	"github.com/Veraticus/the-books-must-balance/internal/ofx"
	"github.com/Veraticus/the-books-must-balance/internal/plaid"
	"github.com/Veraticus/the-books-must-balance/internal/simplefin"
	"github.com/Veraticus/the-books-must-balance/internal/source"
	"github.com/Veraticus/the-books-must-balance/internal/source/yahoo"
	"github.com/Veraticus/the-books-must-balance/internal/statement"
	"github.com/spf13/cobra"
)

var errNoSource = errors.New("choose one of --csv, --ofx, --plaid, --simplefin or --yahoo")

// sourceFlags selects where a statement comes from.
type sourceFlags struct {
	csvPath   string
	ofxPath   string
	yahoo     string
	plaid     bool
	simplefin bool
	quarterly bool
}

func addSourceFlags(cmd *cobra.Command, f *sourceFlags) {
	cmd.Flags().StringVar(&f.csvPath, "csv", "", "wide statement CSV (label column, then one column per period)")
	cmd.Flags().StringVar(&f.ofxPath, "ofx", "", "OFX/QFX file; each account's ledger balance becomes a row")
	cmd.Flags().BoolVar(&f.plaid, "plaid", false, "current balances of the configured Plaid item")
	cmd.Flags().BoolVar(&f.simplefin, "simplefin", false, "current balances from the configured SimpleFIN bridge")
	cmd.Flags().StringVar(&f.yahoo, "yahoo", "", "ticker symbol to fetch from Yahoo Finance")
	cmd.Flags().BoolVar(&f.quarterly, "quarterly", false, "fetch quarterly instead of annual statements")
}

func (f sourceFlags) validate() error {
	chosen := 0
	for _, set := range []bool{f.csvPath != "", f.ofxPath != "", f.plaid, f.simplefin, f.yahoo != ""} {
		if set {
			chosen++
		}
	}
	switch chosen {
	case 0:
		return errNoSource
	case 1:
		return nil
	default:
		return fmt.Errorf("only one statement source may be given: %w", errNoSource)
	}
}

func (f sourceFlags) request(symbol string) source.Request {
	req := source.Request{Symbol: symbol, Frequency: source.Annual}
	if f.quarterly {
		req.Frequency = source.Quarterly
	}
	return req
}

// loadStatement reads or fetches the raw statement selected by f. cache may
// be nil, in which case remote statements are always fetched.
func loadStatement(ctx context.Context, f sourceFlags, cache source.Cache) (*statement.Table, error) {
	if err := f.validate(); err != nil {
		return nil, err
	}

	switch {
	case f.csvPath != "":
		return readCSVFile(f.csvPath)

	case f.ofxPath != "":
		return readOFXFile(ctx, f.ofxPath)

	case f.plaid:
		client, err := plaid.NewClient(config.LoadPlaidConfig())
		if err != nil {
			return nil, common.NewUserError("Plaid is not set up: set plaid.client_id, plaid.secret and plaid.access_token", err)
		}
		return plaid.NewBalanceSource(client).Fetch(ctx, f.request("household"))

	case f.simplefin:
		client, err := newSimpleFINClient(ctx)
		if err != nil {
			return nil, err
		}
		return client.Fetch(ctx, f.request("household"))

	default:
		var fetcher source.Fetcher = yahoo.NewClient(config.LoadYahooConfig())
		if cache != nil {
			fetcher = source.WithCache(fetcher, cache, config.CacheMaxAge())
		}
		return fetcher.Fetch(ctx, f.request(f.yahoo))
	}
}

// newSimpleFINClient uses simplefin.access_url when set, otherwise the saved
// or newly claimed access for simplefin.token.
func newSimpleFINClient(ctx context.Context) (*simplefin.Client, error) {
	settings := config.LoadSimpleFINSettings()

	accessURL := settings.AccessURL
	if accessURL == "" {
		auth, err := simplefin.LoadOrClaimAuth(ctx, &http.Client{Timeout: 30 * time.Second}, settings.Token, settings.StateFile)
		if errors.Is(err, simplefin.ErrNotConfigured) {
			return nil, common.NewUserError("SimpleFIN is not set up: set simplefin.token to a setup token or simplefin.access_url", err)
		}
		if err != nil {
			return nil, err
		}
		accessURL = auth.AccessURL
	}

	return simplefin.NewClient(simplefin.Config{AccessURL: accessURL})
}

func readCSVFile(path string) (*statement.Table, error) {
	path = config.ExpandPath(path)
	file, err := os.Open(path) //nolint:gosec // path comes from the command line
	if err != nil {
		return nil, fmt.Errorf("failed to open statement: %w", err)
	}
	defer func() { _ = file.Close() }()

	table, err := statement.ReadCSV(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	table.Origin = "csv:" + filepath.Base(path)
	return table, nil
}

func readOFXFile(ctx context.Context, path string) (*statement.Table, error) {
	path = config.ExpandPath(path)
	file, err := os.Open(path) //nolint:gosec // path comes from the command line
	if err != nil {
		return nil, fmt.Errorf("failed to open OFX file: %w", err)
	}
	defer func() { _ = file.Close() }()

	table, err := ofx.NewParser().ParseBalances(ctx, file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	table.Origin = "ofx:" + filepath.Base(path)
	return table, nil
}
