// Package storage provides the SQLite persistence layer for the balance application.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/the-books-must-balance/internal/common"
	"github.com/Veraticus/the-books-must-balance/internal/model"
	"github.com/Veraticus/the-books-must-balance/internal/statement"
)

// Validation errors.
var (
	ErrNilContext         = errors.New("context cannot be nil")
	ErrEmptyString        = errors.New("string parameter cannot be empty")
	ErrNilParameter       = errors.New("parameter cannot be nil")
	ErrInvalidKey         = errors.New("cache key must be provider:symbol:frequency")
	ErrInvalidRepairEvent = errors.New("invalid repair action")
)

func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateKey accepts keys shaped like source.Key output, e.g. "yahoo:BP.L:annual".
func validateKey(key string) error {
	if err := validateString(key, "key"); err != nil {
		return err
	}
	parts := strings.Split(key, ":")
	if len(parts) != 3 {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	for _, p := range parts {
		if strings.TrimSpace(p) == "" {
			return fmt.Errorf("%w: %q", ErrInvalidKey, key)
		}
	}
	return nil
}

// validateTable refuses nil tables and tables without rows or periods.
func validateTable(table *statement.Table) error {
	switch {
	case table == nil:
		return fmt.Errorf("%w: table", ErrNilParameter)
	case table.Len() == 0 || len(table.Periods()) == 0:
		return common.ErrEmptyStatement
	}
	return statement.ValidatePeriods(table.Periods())
}

func validateRepairAction(action *model.RepairAction) error {
	if err := validateString(action.SessionID, "sessionID"); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRepairEvent, err)
	}
	switch action.Kind {
	case model.RepairAddPattern:
		if action.Pattern == "" {
			return fmt.Errorf("%w: add_pattern without pattern", ErrInvalidRepairEvent)
		}
		fallthrough
	case model.RepairOverride:
		if !action.Category.IsValid() {
			return fmt.Errorf("%w: invalid category %q", ErrInvalidRepairEvent, action.Category)
		}
	case model.RepairAbort:
		if action.Category != "" || action.Pattern != "" {
			return fmt.Errorf("%w: abort carries no category or pattern", ErrInvalidRepairEvent)
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidRepairEvent, action.Kind)
	}
	return nil
}
