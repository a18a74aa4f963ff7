// Package repair drives a statement toward zero unknown rows with an operator
// supplying the missing categories, either by growing the rule table or by
// overriding single rows.
package repair

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/the-books-must-balance/internal/model"
	"github.com/Veraticus/the-books-must-balance/internal/pattern"
	"github.com/Veraticus/the-books-must-balance/internal/statement"
)

var (
	// ErrInvalidSelection is reported when a menu choice is outside the offered set.
	ErrInvalidSelection = errors.New("invalid selection")
	// ErrInputClosed means the operator's input ended before the session did.
	ErrInputClosed = errors.New("input closed")
	// ErrPatternMissedRow is reported when a newly added pattern does not
	// match the row it was written for. The pattern is kept.
	ErrPatternMissedRow = errors.New("pattern does not match the row")
)

// Action is a top-level menu choice.
type Action int

// Top-level actions, numbered as shown to the operator.
const (
	ActionExtendRules Action = iota + 1
	ActionOverrideRow
	ActionAbort
)

func (a Action) String() string {
	switch a {
	case ActionExtendRules:
		return "extend rules"
	case ActionOverrideRow:
		return "override row"
	case ActionAbort:
		return "abort"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// Purpose says which action opened the category menu.
type Purpose int

// Category menu purposes.
const (
	PurposeExtendRules Purpose = iota
	PurposeOverrideRow
)

// State is a repair session state.
type State int

// Session states. Done and Aborted are terminal.
const (
	StateScanning State = iota
	StatePrompting
	StateExtendingRules
	StateOverridingRow
	StateDone
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateScanning:
		return "scanning"
	case StatePrompting:
		return "prompting"
	case StateExtendingRules:
		return "extending rules"
	case StateOverridingRow:
		return "overriding row"
	case StateDone:
		return "done"
	case StateAborted:
		return "aborted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether the session has ended.
func (s State) Terminal() bool {
	return s == StateDone || s == StateAborted
}

// Options tune a repair session.
type Options struct {
	// AuditLog, when set, receives every operator decision.
	AuditLog AuditLog
	// SessionID tags audit records.
	SessionID string
	// Progress, when set, is told about resolved rows alongside the prompter.
	Progress ProgressReporter
	// ReclassifyAll reruns every unknown row after a pattern is added rather
	// than only the row being repaired.
	ReclassifyAll bool
}

// DefaultOptions returns the options used by the CLI.
func DefaultOptions() Options {
	return Options{ReclassifyAll: true}
}

// AddedPattern is a pattern the operator added during the session.
type AddedPattern struct {
	Category model.CategoryName
	Expr     string
	// Resolved is how many unknown rows the pattern classified when added.
	Resolved int
}

// Result summarizes a finished session.
type Result struct {
	PatternsAdded []AddedPattern
	Outcome       State
	Overrides     int
	Remaining     int
	Total         int
}

// Resolved returns the number of rows that left unknown during the session.
func (r Result) Resolved() int {
	return r.Total - r.Remaining
}

// Loop is a single repair session over one statement and one rule table.
type Loop struct {
	rules    pattern.Extender
	table    *statement.Table
	prompter Prompter
	logger   *slog.Logger
	opts     Options
	state    State
	current  int
	total    int
}

// New creates a repair session. The table should already be classified
// against rules.
func New(rules pattern.Extender, table *statement.Table, prompter Prompter, opts Options) *Loop {
	return &Loop{
		rules:    rules,
		table:    table,
		prompter: prompter,
		opts:     opts,
		state:    StateScanning,
		current:  -1,
		logger:   slog.Default().With("component", "repair"),
	}
}

// State returns the session's current state.
func (l *Loop) State() State {
	return l.state
}

// Run drives the session until no unknown rows remain or the operator
// aborts. If the context is canceled or the prompter fails, the session ends
// as aborted and the error is returned alongside the partial result.
func (l *Loop) Run(ctx context.Context) (Result, error) {
	l.total = len(l.table.Unknown())
	result := Result{Total: l.total}

	l.logger.Info("Starting repair session", "unknown", l.total, "session", l.opts.SessionID)

	for !l.state.Terminal() {
		if err := ctx.Err(); err != nil {
			l.state = StateAborted
			return l.finish(result), fmt.Errorf("repair interrupted: %w", err)
		}

		var err error
		switch l.state {
		case StateScanning:
			l.scan()
		case StatePrompting:
			err = l.promptAction(ctx)
		case StateExtendingRules:
			err = l.extendRules(ctx, &result)
		case StateOverridingRow:
			err = l.overrideRow(ctx, &result)
		}

		if err != nil {
			l.state = StateAborted
			return l.finish(result), err
		}
	}

	return l.finish(result), nil
}

func (l *Loop) scan() {
	i, ok := l.table.FirstUnknown()
	if !ok {
		l.state = StateDone
		return
	}
	l.current = i
	l.state = StatePrompting
}

func (l *Loop) promptAction(ctx context.Context) error {
	action, err := l.prompter.ChooseAction(ctx, l.prompt())
	if err != nil {
		return fmt.Errorf("failed to read action: %w", err)
	}

	switch action {
	case ActionExtendRules:
		l.state = StateExtendingRules
	case ActionOverrideRow:
		l.state = StateOverridingRow
	case ActionAbort:
		row := l.table.Row(l.current)
		l.audit(ctx, model.RepairAction{
			RawLabel:        row.RawLabel,
			NormalizedLabel: row.Normalized,
			Kind:            model.RepairAbort,
		})
		l.state = StateAborted
	default:
		l.prompter.ReportError(ctx, fmt.Errorf("%w: %s", ErrInvalidSelection, action))
	}
	return nil
}

func (l *Loop) extendRules(ctx context.Context, result *Result) error {
	category, ok, err := l.chooseCategory(ctx, PurposeExtendRules)
	if err != nil || !ok {
		return err
	}

	var expr string
	for {
		expr, err = l.prompter.EnterPattern(ctx, l.prompt(), category)
		if err != nil {
			return fmt.Errorf("failed to read pattern: %w", err)
		}
		err = l.rules.AddPattern(category, expr)
		if err == nil {
			break
		}
		if !errors.Is(err, pattern.ErrInvalidPattern) {
			return fmt.Errorf("failed to add pattern: %w", err)
		}
		l.prompter.ReportError(ctx, err)
	}

	before := len(l.table.Unknown())
	if l.opts.ReclassifyAll {
		l.table.ReclassifyUnknown(l.rules)
	} else if _, err := l.table.ClassifyRow(l.current, l.rules); err != nil {
		return err
	}
	resolved := before - len(l.table.Unknown())

	row := l.table.Row(l.current)
	if row.IsUnknown() {
		l.prompter.ReportError(ctx, fmt.Errorf("%w: %q vs %q", ErrPatternMissedRow, expr, row.Normalized))
	}

	l.logger.Info("Added pattern",
		"category", category,
		"pattern", expr,
		"resolved", resolved)

	result.PatternsAdded = append(result.PatternsAdded, AddedPattern{
		Category: category,
		Expr:     expr,
		Resolved: resolved,
	})
	l.audit(ctx, model.RepairAction{
		RawLabel:        row.RawLabel,
		NormalizedLabel: row.Normalized,
		Kind:            model.RepairAddPattern,
		Category:        category,
		Pattern:         expr,
		Resolved:        resolved,
	})
	l.progress()

	l.state = StateScanning
	return nil
}

func (l *Loop) overrideRow(ctx context.Context, result *Result) error {
	category, ok, err := l.chooseCategory(ctx, PurposeOverrideRow)
	if err != nil || !ok {
		return err
	}

	if err := l.table.Override(l.current, category); err != nil {
		return fmt.Errorf("failed to override row: %w", err)
	}

	row := l.table.Row(l.current)
	l.logger.Info("Overrode row", "label", row.RawLabel, "category", category)

	result.Overrides++
	l.audit(ctx, model.RepairAction{
		RawLabel:        row.RawLabel,
		NormalizedLabel: row.Normalized,
		Kind:            model.RepairOverride,
		Category:        category,
		Resolved:        1,
	})
	l.progress()

	l.state = StateScanning
	return nil
}

// chooseCategory asks until the prompter returns a taxonomy category or goes
// back. Going back returns ok=false and puts the session back to scanning.
func (l *Loop) chooseCategory(ctx context.Context, purpose Purpose) (model.CategoryName, bool, error) {
	for {
		category, ok, err := l.prompter.ChooseCategory(ctx, l.prompt(), purpose)
		if err != nil {
			return "", false, fmt.Errorf("failed to read category: %w", err)
		}
		if !ok {
			l.state = StateScanning
			return "", false, nil
		}
		if category.IsValid() {
			return category, true, nil
		}
		l.prompter.ReportError(ctx, fmt.Errorf("%w: category %q: %w", ErrInvalidSelection, category, pattern.ErrUnknownCategory))
	}
}

func (l *Loop) prompt() Prompt {
	return Prompt{
		Row:        l.table.Row(l.current),
		Index:      l.current,
		Unresolved: len(l.table.Unknown()),
		Total:      l.total,
	}
}

func (l *Loop) progress() {
	resolved := l.total - len(l.table.Unknown())
	if p, ok := l.prompter.(ProgressReporter); ok {
		p.Progress(resolved, l.total)
	}
	if l.opts.Progress != nil {
		l.opts.Progress.Progress(resolved, l.total)
	}
}

func (l *Loop) audit(ctx context.Context, action model.RepairAction) {
	if l.opts.AuditLog == nil {
		return
	}
	action.SessionID = l.opts.SessionID
	action.CreatedAt = time.Now()
	if err := l.opts.AuditLog.RecordRepairAction(ctx, action); err != nil {
		l.logger.Warn("Failed to record repair action", "error", err, "label", action.RawLabel)
	}
}

func (l *Loop) finish(result Result) Result {
	result.Outcome = l.state
	result.Remaining = len(l.table.Unknown())
	l.logger.Info("Repair session finished",
		"outcome", l.state,
		"patterns_added", len(result.PatternsAdded),
		"overrides", result.Overrides,
		"remaining", result.Remaining)
	return result
}
