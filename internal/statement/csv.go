package statement

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"
)

// ErrMalformedCSV is returned when a statement CSV cannot be read as a table.
var ErrMalformedCSV = errors.New("malformed statement csv")

// absentMarkers are cell values that mean "no figure for this period".
var absentMarkers = map[string]bool{
	"":    true,
	"-":   true,
	"—":   true,
	"nan": true,
	"n/a": true,
	"na":  true,
}

// LongRow is one (line item, period) pair of the long-form export.
type LongRow struct {
	Label      string `csv:"label"`
	Normalized string `csv:"normalized"`
	Category   string `csv:"category"`
	Source     string `csv:"source"`
	Period     string `csv:"period"`
	Value      string `csv:"value"`
}

// ReadCSV reads a wide statement: a header row whose first cell names the
// label column and whose remaining cells are periods, then one row per line
// item. Every row must have the same number of cells as the header.
func ReadCSV(r io.Reader) (*Table, error) {
	records, err := gocsv.DefaultCSVReader(r).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedCSV, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: missing header row", ErrMalformedCSV)
	}

	header := records[0]
	if len(header) < 1 {
		return nil, fmt.Errorf("%w: empty header row", ErrMalformedCSV)
	}

	periods := make([]string, 0, len(header)-1)
	for _, p := range header[1:] {
		periods = append(periods, strings.TrimSpace(p))
	}
	if err := ValidatePeriods(periods); err != nil {
		return nil, fmt.Errorf("%w: header: %w", ErrMalformedCSV, err)
	}
	table := New(periods)

	for n, record := range records[1:] {
		line := n + 2
		raw := strings.TrimSpace(record[0])
		if raw == "" {
			return nil, fmt.Errorf("%w: line %d has an empty label", ErrMalformedCSV, line)
		}

		values := make([]decimal.NullDecimal, len(periods))
		for col, cell := range record[1:] {
			v, err := ParseAmount(cell)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d %q period %q: %w", ErrMalformedCSV, line, raw, periods[col], err)
			}
			values[col] = v
		}

		if err := table.AddRow(raw, values); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
	}

	return table, nil
}

// ParseAmount reads a statement cell. Thousands separators and a leading
// currency symbol are ignored, a sign may come before or after the symbol,
// parentheses mean negative, and blank or placeholder cells are absent
// rather than zero.
func ParseAmount(cell string) (decimal.NullDecimal, error) {
	s := strings.TrimSpace(cell)
	if absentMarkers[strings.ToLower(s)] {
		return decimal.NullDecimal{}, nil
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	// The sign may sit outside the currency symbol, as in -$1,234.00.
	sign := ""
	if strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
		sign, s = s[:1], strings.TrimSpace(s[1:])
	}
	s = strings.TrimLeft(s, "$£€")
	s = strings.ReplaceAll(s, ",", "")

	signed := sign != "" && (strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+"))
	d, err := decimal.NewFromString(s)
	if err != nil || signed || (negative && sign != "") {
		return decimal.NullDecimal{}, fmt.Errorf("invalid amount %q", cell)
	}
	if negative || sign == "-" {
		d = d.Neg()
	}
	return decimal.NewNullDecimal(d), nil
}

// LongRows flattens the table into one record per row and period. A table
// without periods yields one record per row with no period or value.
func (t *Table) LongRows() []LongRow {
	out := make([]LongRow, 0, len(t.rows)*max(1, len(t.periods)))
	for _, r := range t.rows {
		base := LongRow{
			Label:      r.RawLabel,
			Normalized: r.Normalized,
			Category:   string(r.Category),
			Source:     string(r.Source),
		}
		if len(t.periods) == 0 {
			out = append(out, base)
			continue
		}
		for col, p := range t.periods {
			rec := base
			rec.Period = p
			if v := r.Values[col]; v.Valid {
				rec.Value = v.Decimal.String()
			}
			out = append(out, rec)
		}
	}
	return out
}

// WriteCSV writes the classified table in long form.
func (t *Table) WriteCSV(w io.Writer) error {
	rows := t.LongRows()
	if err := gocsv.MarshalCSV(&rows, gocsv.NewSafeCSVWriter(csv.NewWriter(w))); err != nil {
		return fmt.Errorf("failed to write statement csv: %w", err)
	}
	return nil
}
