package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Veraticus/the-books-must-balance/internal/model"
)

// RecordRepairAction appends one operator decision to the audit trail.
// The trail is write-once history; rules are never restored from it.
func (s *SQLiteStorage) RecordRepairAction(ctx context.Context, action model.RepairAction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRepairAction(&action); err != nil {
		return err
	}
	if action.CreatedAt.IsZero() {
		action.CreatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO repair_actions
			(session_id, raw_label, normalized_label, kind, category, pattern, resolved, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		action.SessionID,
		action.RawLabel,
		action.NormalizedLabel,
		string(action.Kind),
		nullString(string(action.Category)),
		nullString(action.Pattern),
		action.Resolved,
		action.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to record repair action: %w", err)
	}
	return nil
}

// ListRepairActions returns the audit trail in the order it was recorded.
// An empty sessionID lists every session.
func (s *SQLiteStorage) ListRepairActions(ctx context.Context, sessionID string) ([]model.RepairAction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `
		SELECT id, session_id, raw_label, normalized_label, kind, category, pattern, resolved, created_at
		FROM repair_actions`
	var args []any
	if sessionID != "" {
		query += ` WHERE session_id = ?`
		args = append(args, sessionID)
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query repair actions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var actions []model.RepairAction
	for rows.Next() {
		var (
			a        model.RepairAction
			kind     string
			category sql.NullString
			pattern  sql.NullString
		)
		if err := rows.Scan(&a.ID, &a.SessionID, &a.RawLabel, &a.NormalizedLabel,
			&kind, &category, &pattern, &a.Resolved, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan repair action: %w", err)
		}
		a.Kind = model.RepairActionKind(kind)
		a.Category = model.CategoryName(category.String)
		a.Pattern = pattern.String
		actions = append(actions, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating repair actions: %w", err)
	}
	return actions, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
