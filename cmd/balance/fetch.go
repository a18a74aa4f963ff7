package main

import (
	"fmt"
	"io"

	"github.com/Veraticus/the-books-must-balance/internal/cli"
	"github.com/Veraticus/the-books-must-balance/internal/config"
	"github.com/Veraticus/the-books-must-balance/internal/source"
	"github.com/Veraticus/the-books-must-balance/internal/source/yahoo"
	"github.com/Veraticus/the-books-must-balance/internal/storage"
	"github.com/spf13/cobra"
)

func fetchCmd() *cobra.Command {
	var (
		quarterly bool
		refresh   bool
		list      bool
	)

	cmd := &cobra.Command{
		Use:   "fetch [SYMBOL]",
		Short: "Fetch a statement from Yahoo Finance into the local cache",
		Long:  `Fetch a company's balance-sheet statement from Yahoo Finance and store it
in the local cache so later runs of classify --yahoo can reuse it.

Only the raw line items are cached; categories are worked out on every run.`,
		Example: `  balance fetch AAPL
  balance fetch BP.L --quarterly --refresh
  balance fetch --list`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if list {
				return listCached(cmd, store)
			}
			if len(args) == 0 {
				return fmt.Errorf("a ticker symbol is required")
			}

			maxAge := config.CacheMaxAge()
			if refresh {
				maxAge = 0
			}

			req := sourceFlags{quarterly: quarterly}.request(args[0])
			fetcher := source.WithCache(yahoo.NewClient(config.LoadYahooConfig()), store, maxAge)

			table, err := fetcher.Fetch(ctx, req)
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintln(out, cli.RenderStatement(table))
			_, err = fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Cached %d line items as %s", table.Len(), table.Origin)))
			return err
		},
	}

	cmd.Flags().BoolVar(&quarterly, "quarterly", false, "fetch quarterly instead of annual statements")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "ignore a cached copy and fetch again")
	cmd.Flags().BoolVar(&list, "list", false, "list cached statements instead of fetching")

	return cmd
}

func listCached(cmd *cobra.Command, store *storage.SQLiteStorage) error {
	cached, err := store.ListStatements(cmd.Context())
	if err != nil {
		return err
	}
	return printCached(cmd.OutOrStdout(), cached)
}

func printCached(out io.Writer, cached []storage.CachedStatement) error {
	if len(cached) == 0 {
		_, err := fmt.Fprintln(out, cli.FormatInfo("No cached statements"))
		return err
	}
	for _, c := range cached {
		if _, err := fmt.Fprintf(out, "%-32s %4d rows  fetched %s\n",
			c.Key, c.Rows, c.FetchedAt.Local().Format("2006-01-02 15:04")); err != nil {
			return err
		}
	}
	return nil
}
