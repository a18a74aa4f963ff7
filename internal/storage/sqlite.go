package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// ErrUnsupportedSchema means the database was written by a newer build.
var ErrUnsupportedSchema = errors.New("unsupported database schema")

const memoryPath = ":memory:"

// SQLiteStorage persists cached statements and the repair audit trail.
type SQLiteStorage struct {
	db   *sql.DB
	path string
}

// dsn adds the driver options every connection needs: WAL journaling, a busy
// timeout for concurrent CLI runs and enforced foreign keys for row cascades.
func dsn(path string) string {
	opts := url.Values{}
	opts.Set("_journal_mode", "WAL")
	opts.Set("_busy_timeout", "5000")
	opts.Set("_foreign_keys", "on")
	return path + "?" + opts.Encode()
}

// NewSQLiteStorage opens (creating if needed) the database at path.
// Call Migrate before use.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	if err := validateString(path, "path"); err != nil {
		return nil, err
	}

	if path != memoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection: an in-memory database lives only as long as its
	// connection, and SQLite serializes writers anyway.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}

	return &SQLiteStorage{db: db, path: path}, nil
}

// Path returns the database file path.
func (s *SQLiteStorage) Path() string {
	return s.path
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// withTx runs fn in a transaction, rolling back on error.
func (s *SQLiteStorage) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
