package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Veraticus/the-books-must-balance/internal/common"
	"github.com/Veraticus/the-books-must-balance/internal/statement"
	"github.com/shopspring/decimal"
)

// SaveStatement caches the raw rows of a statement under key, replacing any
// earlier copy. Categories are not stored.
func (s *SQLiteStorage) SaveStatement(ctx context.Context, key string, table *statement.Table) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateKey(key); err != nil {
		return err
	}
	if err := validateTable(table); err != nil {
		return err
	}

	periods, err := json.Marshal(table.Periods())
	if err != nil {
		return fmt.Errorf("failed to encode periods: %w", err)
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM statements WHERE cache_key = ?`, key); err != nil {
			return fmt.Errorf("failed to clear cached statement: %w", err)
		}

		_, err := tx.ExecContext(ctx,
			`INSERT INTO statements (cache_key, origin, periods, fetched_at) VALUES (?, ?, ?, ?)`,
			key, table.Origin, string(periods), time.Now().UTC())
		if err != nil {
			return fmt.Errorf("failed to save statement: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO statement_rows (cache_key, position, raw_label, amounts) VALUES (?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare row insert: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		for i, row := range table.Rows() {
			amounts, err := json.Marshal(row.Values)
			if err != nil {
				return fmt.Errorf("failed to encode row %q: %w", row.RawLabel, err)
			}
			if _, err := stmt.ExecContext(ctx, key, i, row.RawLabel, string(amounts)); err != nil {
				return fmt.Errorf("failed to save row %q: %w", row.RawLabel, err)
			}
		}
		return nil
	})
}

// LoadStatement returns a cached statement, unclassified, and the time it was
// stored. A missing key returns common.ErrNotFound.
func (s *SQLiteStorage) LoadStatement(ctx context.Context, key string) (*statement.Table, time.Time, error) {
	if err := validateContext(ctx); err != nil {
		return nil, time.Time{}, err
	}
	if err := validateKey(key); err != nil {
		return nil, time.Time{}, err
	}

	var (
		origin     sql.NullString
		periodsRaw string
		fetchedAt  time.Time
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT origin, periods, fetched_at FROM statements WHERE cache_key = ?`, key,
	).Scan(&origin, &periodsRaw, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, time.Time{}, fmt.Errorf("statement %s: %w", key, common.ErrNotFound)
	}
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to load statement: %w", err)
	}

	var periods []string
	if err := json.Unmarshal([]byte(periodsRaw), &periods); err != nil {
		return nil, time.Time{}, fmt.Errorf("%w: statement %s periods: %w", common.ErrDatabaseCorrupted, key, err)
	}
	if err := statement.ValidatePeriods(periods); err != nil {
		return nil, time.Time{}, fmt.Errorf("%w: statement %s: %w", common.ErrDatabaseCorrupted, key, err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT raw_label, amounts FROM statement_rows WHERE cache_key = ? ORDER BY position`, key)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to load statement rows: %w", err)
	}
	defer func() { _ = rows.Close() }()

	table := statement.New(periods)
	table.Origin = origin.String
	for rows.Next() {
		var label, amountsRaw string
		if err := rows.Scan(&label, &amountsRaw); err != nil {
			return nil, time.Time{}, fmt.Errorf("failed to scan statement row: %w", err)
		}
		var values []decimal.NullDecimal
		if err := json.Unmarshal([]byte(amountsRaw), &values); err != nil {
			return nil, time.Time{}, fmt.Errorf("%w: row %q: %w", common.ErrDatabaseCorrupted, label, err)
		}
		if err := table.AddRow(label, values); err != nil {
			return nil, time.Time{}, fmt.Errorf("%w: row %q: %w", common.ErrDatabaseCorrupted, label, err)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, time.Time{}, fmt.Errorf("error iterating statement rows: %w", err)
	}

	return table, fetchedAt, nil
}

// CachedStatement describes one cache entry.
type CachedStatement struct {
	FetchedAt time.Time
	Key       string
	Rows      int
}

// ListStatements returns every cached statement, newest first.
func (s *SQLiteStorage) ListStatements(ctx context.Context) ([]CachedStatement, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT s.cache_key, s.fetched_at, COUNT(r.position)
		FROM statements s
		LEFT JOIN statement_rows r ON r.cache_key = s.cache_key
		GROUP BY s.cache_key, s.fetched_at
		ORDER BY s.fetched_at DESC, s.cache_key`)
	if err != nil {
		return nil, fmt.Errorf("failed to list statements: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []CachedStatement
	for rows.Next() {
		var c CachedStatement
		if err := rows.Scan(&c.Key, &c.FetchedAt, &c.Rows); err != nil {
			return nil, fmt.Errorf("failed to scan statement: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
