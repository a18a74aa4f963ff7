package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/Veraticus/the-books-must-balance/internal/balancesheet"
	"github.com/Veraticus/the-books-must-balance/internal/cli"
	"github.com/Veraticus/the-books-must-balance/internal/common"
	"github.com/Veraticus/the-books-must-balance/internal/config"
	"github.com/Veraticus/the-books-must-balance/internal/model"
	"github.com/Veraticus/the-books-must-balance/internal/pattern"
	"github.com/Veraticus/the-books-must-balance/internal/repair"
	"github.com/Veraticus/the-books-must-balance/internal/sheets"
	"github.com/Veraticus/the-books-must-balance/internal/source"
	"github.com/Veraticus/the-books-must-balance/internal/statement"
	"github.com/Veraticus/the-books-must-balance/internal/storage"
	"github.com/Veraticus/the-books-must-balance/internal/tui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type classifyOptions struct {
	rulesPath   string
	outPath     string
	period      string
	source      sourceFlags
	noRepair    bool
	currentOnly bool
	toSheets    bool
	view        bool
}

func classifyCmd() *cobra.Command {
	var opts classifyOptions

	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Classify a statement's line items and repair the unknown ones",
		Long:  `Load a balance-sheet statement, file every line item under a category
using the rule table, and walk through the rows no rule matched.

For each unknown row you can add a pattern to the rule table (which can also
resolve other unknown rows), override the row's category, or stop. Patterns
added here last for this run only; copy them into your rules file to keep them.`,
		Example: `  balance classify --csv statement.csv
  balance classify --yahoo BP.L --quarterly --out classified.csv
  balance classify --ofx checking.qfx --no-repair --view`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runClassify(cmd, opts)
		},
	}

	addSourceFlags(cmd, &opts.source)
	cmd.Flags().StringVar(&opts.rulesPath, "rules", "", "YAML rules file (default: rules.file setting, then built-in rules)")
	cmd.Flags().BoolVar(&opts.noRepair, "no-repair", false, "leave unknown rows unknown instead of asking")
	cmd.Flags().BoolVar(&opts.currentOnly, "reclassify-current-only", false, "after adding a pattern, only re-check the row being repaired")
	cmd.Flags().StringVar(&opts.outPath, "out", "", "write the classified statement to this CSV file")
	cmd.Flags().BoolVar(&opts.toSheets, "sheets", false, "export the classified statement to Google Sheets")
	cmd.Flags().BoolVar(&opts.view, "view", false, "browse the classified statement in a terminal viewer")
	cmd.Flags().StringVar(&opts.period, "period", "", "period for the balance sheet (default: first period)")

	return cmd
}

func runClassify(cmd *cobra.Command, opts classifyOptions) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	rules, err := loadRules(opts.rulesPath)
	if err != nil {
		return err
	}

	store, err := initStorage(ctx)
	if err != nil {
		slog.Warn("Storage unavailable, continuing without cache or audit log", "error", err)
	}
	if store != nil {
		defer func() {
			if closeErr := store.Close(); closeErr != nil {
				slog.Warn("Failed to close storage", "error", closeErr)
			}
		}()
	}

	var cache source.Cache
	if store != nil {
		cache = store
	}

	table, err := loadStatement(ctx, opts.source, cache)
	if err != nil {
		return err
	}

	table.Classify(rules)
	slog.Info("Classified statement",
		"origin", table.Origin,
		"rows", table.Len(),
		"unknown", len(table.Unknown()))

	if len(table.Unknown()) > 0 && !opts.noRepair {
		if err := runRepair(ctx, cmd.InOrStdin(), out, rules, table, store, opts); err != nil {
			return err
		}
	}

	if _, err := fmt.Fprintln(out, cli.RenderStatement(table)); err != nil {
		return fmt.Errorf("failed to write statement: %w", err)
	}

	if err := printBalanceSheet(out, table, opts.period); err != nil {
		return err
	}

	if opts.outPath != "" {
		if err := writeCSVFile(opts.outPath, table); err != nil {
			return err
		}
		_, _ = fmt.Fprintln(out, cli.FormatSuccess("Wrote "+opts.outPath))
	}

	if opts.toSheets {
		if err := exportToSheets(ctx, table); err != nil {
			return err
		}
		_, _ = fmt.Fprintln(out, cli.FormatSuccess("Exported to Google Sheets"))
	}

	if opts.view {
		return tui.Run(ctx, table)
	}
	return nil
}

// runRepair drives the console repair session. An interrupt or closed input
// ends the session without failing the command; the rows still unknown stay
// unknown.
func runRepair(ctx context.Context, in io.Reader, out io.Writer, rules *pattern.RuleTable, table *statement.Table, store *storage.SQLiteStorage, opts classifyOptions) error {
	interrupts := cli.NewInterruptHandler(out)
	ctx = interrupts.HandleInterrupts(ctx)

	loopOpts := repair.DefaultOptions()
	loopOpts.SessionID = newSessionID(time.Now())
	loopOpts.ReclassifyAll = viper.GetBool("repair.reclassify_all") && !opts.currentOnly
	loopOpts.Progress = interrupts
	if store != nil {
		loopOpts.AuditLog = store
	}

	prompter := cli.NewCLIPrompter(in, out)
	result, err := repair.New(rules, table, prompter, loopOpts).Run(ctx)
	prompter.ShowSummary(result)

	switch {
	case err == nil:
	case interrupts.WasInterrupted(), errors.Is(err, repair.ErrInputClosed):
		slog.Info("Repair session ended early", "session", loopOpts.SessionID, "remaining", result.Remaining)
	default:
		return fmt.Errorf("repair failed: %w", err)
	}

	if store != nil {
		_, _ = fmt.Fprintln(out, cli.FormatInfo("Session "+loopOpts.SessionID+" (see `balance audit "+loopOpts.SessionID+"`)"))
	}
	return nil
}

// printBalanceSheet renders one period of the statement as a balance sheet.
// Rows left out of the sheet are listed after it.
func printBalanceSheet(out io.Writer, table *statement.Table, period string) error {
	periods := table.Periods()
	if len(periods) == 0 {
		return nil
	}
	if period == "" {
		period = periods[0]
	}

	sheet, err := balancesheet.FromStatement(table, period)
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintln(out, sheet.Render()); err != nil {
		return fmt.Errorf("failed to write balance sheet: %w", err)
	}

	unknown := 0
	for _, skipped := range sheet.Skipped {
		slog.Debug("Row left out of balance sheet", "label", skipped.Label, "reason", skipped.Reason)
		if skipped.Reason == "unknown category" {
			unknown++
		}
	}
	if unknown > 0 {
		_, _ = fmt.Fprintln(out, cli.FormatWarning(fmt.Sprintf("%d %s rows left out of the balance sheet", unknown, model.Unknown)))
	}
	return nil
}

func writeCSVFile(path string, table *statement.Table) error {
	path = config.ExpandPath(path)
	file, err := os.Create(path) //nolint:gosec // path comes from the command line
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	if err := table.WriteCSV(file); err != nil {
		_ = file.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return file.Close()
}

// newSheetsWriter is replaced in tests.
var newSheetsWriter = func(ctx context.Context, cfg sheets.Config) (sheets.StatementWriter, error) {
	return sheets.NewWriter(ctx, cfg, slog.Default())
}

func exportToSheets(ctx context.Context, table *statement.Table) error {
	cfg, err := config.LoadSheetsConfig()
	if errors.Is(err, common.ErrMissingConfig) {
		return common.NewUserError("Google Sheets is not set up: run `balance auth sheets` or set sheets.service_account_path", err)
	}
	if err != nil {
		return fmt.Errorf("google sheets not configured: %w", err)
	}

	writer, err := newSheetsWriter(ctx, *cfg)
	if err != nil {
		return fmt.Errorf("failed to create sheets writer: %w", err)
	}
	return writer.WriteStatement(ctx, table)
}
