package main

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/Veraticus/the-books-must-balance/internal/config"
	"github.com/Veraticus/the-books-must-balance/internal/pattern"
	"github.com/Veraticus/the-books-must-balance/internal/storage"
	"github.com/spf13/viper"
)

// initStorage opens the database at database.path and runs migrations.
func initStorage(ctx context.Context) (*storage.SQLiteStorage, error) {
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		dbPath = config.DefaultDatabasePath()
	}

	store, err := storage.NewSQLiteStorage(config.ExpandPath(dbPath))
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// loadRules builds the session rule table from path, or from the rules.file
// setting, or from the built-in seed when neither is set.
func loadRules(path string) (*pattern.RuleTable, error) {
	if path == "" {
		path = viper.GetString("rules.file")
	}
	if path == "" {
		return pattern.MustDefault(), nil
	}

	return pattern.LoadSeedFile(config.ExpandPath(path))
}

// newSessionID tags the audit records of one repair session.
func newSessionID(now time.Time) string {
	return fmt.Sprintf("%s-%04x", now.UTC().Format("20060102T150405"), rand.Intn(0x10000)) //nolint:gosec // not a secret
}
