package sheets

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/Veraticus/the-books-must-balance/internal/common"
	"github.com/Veraticus/the-books-must-balance/internal/model"
	"github.com/Veraticus/the-books-must-balance/internal/statement"
	"github.com/shopspring/decimal"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// headerRows is the number of rows above the line items: title, blank, column header.
const headerRows = 3

// StatementWriter exports a classified statement.
type StatementWriter interface {
	WriteStatement(ctx context.Context, table *statement.Table) error
}

// Writer implements StatementWriter for Google Sheets.
type Writer struct {
	service *sheets.Service
	logger  *slog.Logger
	config  Config
}

// NewWriter creates a new Google Sheets writer.
func NewWriter(ctx context.Context, config Config, logger *slog.Logger) (*Writer, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	service, err := createSheetsService(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return newWriterWithService(service, config, logger), nil
}

func newWriterWithService(service *sheets.Service, config Config, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{
		config:  config,
		service: service,
		logger:  logger.With("component", "sheets"),
	}
}

// WriteStatement replaces the configured tab with the statement's rows.
func (w *Writer) WriteStatement(ctx context.Context, table *statement.Table) error {
	if table == nil || table.Len() == 0 {
		return common.ErrEmptyStatement
	}

	w.logger.Info("starting statement export",
		"rows", table.Len(),
		"periods", len(table.Periods()),
		"origin", table.Origin)

	retryOpts := common.RetryOptions{
		MaxAttempts:  w.config.RetryAttempts,
		InitialDelay: w.config.RetryDelay,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}

	var (
		spreadsheetID string
		sheetID       int64
	)
	err := common.WithRetry(ctx, func() error {
		var getErr error
		spreadsheetID, sheetID, getErr = w.getOrCreateSpreadsheet(ctx)
		return getErr
	}, retryOpts)
	if err != nil {
		return fmt.Errorf("failed to get spreadsheet: %w", err)
	}

	err = common.WithRetry(ctx, func() error {
		return w.clearSheet(ctx, spreadsheetID)
	}, retryOpts)
	if err != nil {
		return fmt.Errorf("failed to clear sheet: %w", err)
	}

	values := append(StatementValues(table), summaryValues(table)...)

	err = common.WithRetry(ctx, func() error {
		return w.writeData(ctx, spreadsheetID, values)
	}, retryOpts)
	if err != nil {
		return fmt.Errorf("failed to write data: %w", err)
	}

	if w.config.EnableFormatting {
		requests := formatRequests(sheetID, len(values), len(table.Periods()), unknownRows(table))
		err = common.WithRetry(ctx, func() error {
			return w.applyFormatting(ctx, spreadsheetID, requests)
		}, retryOpts)
		if err != nil {
			// Formatting is cosmetic; the data is already written.
			w.logger.Warn("failed to apply formatting", "error", err)
		}
	}

	w.logger.Info("statement export completed",
		"spreadsheet_id", spreadsheetID,
		"rows_written", len(values))

	return nil
}

// StatementValues lays a statement out as sheet rows: a title row, a blank
// row, the column header, then one row per line item in statement order.
// Missing amounts are written as empty cells.
func StatementValues(table *statement.Table) [][]any {
	periods := table.Periods()
	values := make([][]any, 0, headerRows+table.Len())

	title := "Balance Sheet Line Items"
	if table.Origin != "" {
		title += " (" + table.Origin + ")"
	}
	header := []any{"Label", "Normalized", "Category", "Source"}
	for _, p := range periods {
		header = append(header, p)
	}
	values = append(values, []any{literalText(title)}, []any{}, header)

	for _, row := range table.Rows() {
		source := string(row.Source)
		if row.Pattern != "" {
			source += ": " + row.Pattern
		}
		line := []any{literalText(row.RawLabel), literalText(row.Normalized), string(row.Category), literalText(source)}
		for _, v := range row.Values {
			line = append(line, cellValue(v))
		}
		values = append(values, line)
	}

	return values
}

// literalText keeps USER_ENTERED input from parsing text as a formula. A
// leading apostrophe is hidden by Sheets and stores the rest verbatim.
func literalText(s string) string {
	if s != "" && strings.ContainsRune("=+-@", rune(s[0])) {
		return "'" + s
	}
	return s
}

// CategoryTotals sums each category's amounts per period, skipping rows that
// are still unknown. The result is keyed by category, then period.
func CategoryTotals(table *statement.Table) map[model.CategoryName]map[string]decimal.Decimal {
	totals := make(map[model.CategoryName]map[string]decimal.Decimal)
	periods := table.Periods()
	for _, row := range table.Rows() {
		if row.IsUnknown() {
			continue
		}
		if _, ok := totals[row.Category]; !ok {
			totals[row.Category] = make(map[string]decimal.Decimal)
		}
		for j, v := range row.Values {
			if !v.Valid {
				continue
			}
			totals[row.Category][periods[j]] = totals[row.Category][periods[j]].Add(v.Decimal)
		}
	}
	return totals
}

// summaryValues renders CategoryTotals in taxonomy order below the line items.
func summaryValues(table *statement.Table) [][]any {
	totals := CategoryTotals(table)
	periods := table.Periods()

	header := []any{"Category", "", "", ""}
	for _, p := range periods {
		header = append(header, p)
	}
	values := [][]any{{}, {"Category Totals"}, header}
	for _, cat := range model.Categories() {
		byPeriod, ok := totals[cat]
		if !ok {
			continue
		}
		line := []any{cat.Title(), "", string(cat), ""}
		for _, p := range periods {
			if d, ok := byPeriod[p]; ok {
				line = append(line, d.InexactFloat64())
			} else {
				line = append(line, "")
			}
		}
		values = append(values, line)
	}
	return values
}

func unknownRows(table *statement.Table) []int {
	var out []int
	for i, row := range table.Rows() {
		if row.IsUnknown() {
			out = append(out, i)
		}
	}
	return out
}

func cellValue(v decimal.NullDecimal) any {
	if !v.Valid {
		return ""
	}
	return v.Decimal.InexactFloat64()
}

// tokenSource authenticates as the service account when a key file is
// configured, otherwise with the stored OAuth refresh token.
func tokenSource(ctx context.Context, config Config) (oauth2.TokenSource, error) {
	if config.ServiceAccountPath == "" {
		client := &oauth2.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			Endpoint:     google.Endpoint,
			Scopes:       []string{sheets.SpreadsheetsScope},
		}
		return client.TokenSource(ctx, &oauth2.Token{RefreshToken: config.RefreshToken}), nil
	}

	key, err := os.ReadFile(config.ServiceAccountPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read service account key file: %w", err)
	}
	jwt, err := google.JWTConfigFromJSON(key, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse service account key: %w", err)
	}
	return jwt.TokenSource(ctx), nil
}

func createSheetsService(ctx context.Context, config Config) (*sheets.Service, error) {
	ts, err := tokenSource(ctx, config)
	if err != nil {
		return nil, err
	}
	return sheets.NewService(ctx, option.WithTokenSource(ts))
}

// getOrCreateSpreadsheet returns the spreadsheet and the ID of the configured
// tab, creating either when missing.
func (w *Writer) getOrCreateSpreadsheet(ctx context.Context) (string, int64, error) {
	if w.config.SpreadsheetID == "" {
		spreadsheet := &sheets.Spreadsheet{
			Properties: &sheets.SpreadsheetProperties{
				Title:    w.config.SpreadsheetName,
				TimeZone: w.config.TimeZone,
			},
			Sheets: []*sheets.Sheet{
				{Properties: &sheets.SheetProperties{Title: w.config.SheetName}},
			},
		}

		created, err := w.service.Spreadsheets.Create(spreadsheet).Context(ctx).Do()
		if err != nil {
			return "", 0, fmt.Errorf("unable to create spreadsheet: %w", err)
		}

		w.logger.Info("created new spreadsheet",
			"id", created.SpreadsheetId,
			"url", created.SpreadsheetUrl)

		// Later calls in this run reuse the new spreadsheet.
		w.config.SpreadsheetID = created.SpreadsheetId
		var sheetID int64
		if len(created.Sheets) > 0 && created.Sheets[0].Properties != nil {
			sheetID = created.Sheets[0].Properties.SheetId
		}
		return created.SpreadsheetId, sheetID, nil
	}

	existing, err := w.service.Spreadsheets.Get(w.config.SpreadsheetID).Context(ctx).Do()
	if err != nil {
		return "", 0, fmt.Errorf("unable to access spreadsheet %s: %w", w.config.SpreadsheetID, err)
	}

	for _, sheet := range existing.Sheets {
		if sheet.Properties != nil && sheet.Properties.Title == w.config.SheetName {
			return w.config.SpreadsheetID, sheet.Properties.SheetId, nil
		}
	}

	resp, err := w.service.Spreadsheets.BatchUpdate(w.config.SpreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{
			{AddSheet: &sheets.AddSheetRequest{Properties: &sheets.SheetProperties{Title: w.config.SheetName}}},
		},
	}).Context(ctx).Do()
	if err != nil {
		return "", 0, fmt.Errorf("unable to add sheet %q: %w", w.config.SheetName, err)
	}

	var sheetID int64
	if len(resp.Replies) > 0 && resp.Replies[0].AddSheet != nil && resp.Replies[0].AddSheet.Properties != nil {
		sheetID = resp.Replies[0].AddSheet.Properties.SheetId
	}
	w.logger.Info("added sheet", "title", w.config.SheetName, "sheet_id", sheetID)
	return w.config.SpreadsheetID, sheetID, nil
}

func (w *Writer) sheetRange(cells string) string {
	return fmt.Sprintf("'%s'!%s", w.config.SheetName, cells)
}

// clearSheet clears all data from the tab.
func (w *Writer) clearSheet(ctx context.Context, spreadsheetID string) error {
	_, err := w.service.Spreadsheets.Values.Clear(spreadsheetID, w.sheetRange("A:ZZ"), &sheets.ClearValuesRequest{}).Context(ctx).Do()
	return err
}

// writeData writes the values in batches to stay under API limits.
func (w *Writer) writeData(ctx context.Context, spreadsheetID string, values [][]any) error {
	for i := 0; i < len(values); i += w.config.BatchSize {
		end := min(i+w.config.BatchSize, len(values))

		batch := values[i:end]
		valueRange := &sheets.ValueRange{
			Values: batch,
		}

		_, err := w.service.Spreadsheets.Values.Update(spreadsheetID, w.sheetRange(fmt.Sprintf("A%d", i+1)), valueRange).
			ValueInputOption("USER_ENTERED").
			Context(ctx).
			Do()
		if err != nil {
			return fmt.Errorf("failed to write batch starting at row %d: %w", i+1, err)
		}

		w.logger.Debug("wrote batch", "start_row", i+1, "rows", len(batch))
	}

	return nil
}

// firstAmountColumn is the zero-based column of the first period.
const firstAmountColumn = 4

var unknownRowColor = &sheets.Color{Red: 1, Green: 0.95, Blue: 0.8}

func repeatCell(rng *sheets.GridRange, format *sheets.CellFormat, fields string) *sheets.Request {
	return &sheets.Request{RepeatCell: &sheets.RepeatCellRequest{
		Range:  rng,
		Cell:   &sheets.CellData{UserEnteredFormat: format},
		Fields: fields,
	}}
}

// formatRequests styles an exported statement: a large bold title, a bold
// header that stays frozen, accounting number format on every amount, and a
// highlight on each line item still unknown. unknownRows are zero-based
// statement row indexes.
func formatRequests(sheetID int64, totalRows, periods int, unknownRows []int) []*sheets.Request {
	lastColumn := int64(firstAmountColumn + periods)
	rows := func(start, end int64) *sheets.GridRange {
		return &sheets.GridRange{SheetId: sheetID, StartRowIndex: start, EndRowIndex: end, EndColumnIndex: lastColumn}
	}

	title := rows(0, 1)
	title.EndColumnIndex = 1
	amounts := rows(headerRows, int64(totalRows))
	amounts.StartColumnIndex = firstAmountColumn

	requests := []*sheets.Request{
		repeatCell(title, &sheets.CellFormat{TextFormat: &sheets.TextFormat{Bold: true, FontSize: 14}},
			"userEnteredFormat.textFormat"),
		repeatCell(rows(headerRows-1, headerRows), &sheets.CellFormat{TextFormat: &sheets.TextFormat{Bold: true}},
			"userEnteredFormat.textFormat"),
		repeatCell(amounts, &sheets.CellFormat{NumberFormat: &sheets.NumberFormat{Type: "NUMBER", Pattern: "#,##0.00;(#,##0.00)"}},
			"userEnteredFormat.numberFormat"),
	}
	for _, i := range unknownRows {
		row := int64(headerRows + i)
		requests = append(requests, repeatCell(rows(row, row+1),
			&sheets.CellFormat{BackgroundColor: unknownRowColor}, "userEnteredFormat.backgroundColor"))
	}

	return append(requests,
		&sheets.Request{AutoResizeDimensions: &sheets.AutoResizeDimensionsRequest{
			Dimensions: &sheets.DimensionRange{SheetId: sheetID, Dimension: "COLUMNS", EndIndex: lastColumn},
		}},
		&sheets.Request{UpdateSheetProperties: &sheets.UpdateSheetPropertiesRequest{
			Properties: &sheets.SheetProperties{
				SheetId:        sheetID,
				GridProperties: &sheets.GridProperties{FrozenRowCount: headerRows},
			},
			Fields: "gridProperties.frozenRowCount",
		}},
	)
}

func (w *Writer) applyFormatting(ctx context.Context, spreadsheetID string, requests []*sheets.Request) error {
	_, err := w.service.Spreadsheets.BatchUpdate(spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: requests,
	}).Context(ctx).Do()
	return err
}

var _ StatementWriter = (*Writer)(nil)
