package repair

import (
	"context"

	"github.com/Veraticus/the-books-must-balance/internal/model"
	"github.com/Veraticus/the-books-must-balance/internal/statement"
)

// Prompt is what the operator is shown for the row under repair.
type Prompt struct {
	Row statement.Row
	// Index is the row's position in the statement.
	Index int
	// Unresolved counts the rows still unknown, this one included.
	Unresolved int
	// Total is the number of unknown rows when the session started.
	Total int
}

// Prompter is the operator side of a repair session.
//
// Implementations handle malformed console input themselves and only return
// an error when input can no longer be read. They should return an error
// wrapping ErrInputClosed when the operator's input ends.
type Prompter interface {
	// ChooseAction asks what to do about an unknown row.
	ChooseAction(ctx context.Context, p Prompt) (Action, error)
	// ChooseCategory asks for a category. ok is false when the operator
	// chose to go back without picking one.
	ChooseCategory(ctx context.Context, p Prompt, purpose Purpose) (category model.CategoryName, ok bool, err error)
	// EnterPattern asks for a regular expression to file under category.
	EnterPattern(ctx context.Context, p Prompt, category model.CategoryName) (string, error)
	// ReportError tells the operator that their last input was rejected.
	ReportError(ctx context.Context, err error)
}

// ProgressReporter is implemented by prompters that can show how many
// unknown rows have been resolved.
type ProgressReporter interface {
	Progress(resolved, total int)
}

// AuditLog records operator decisions. It is an audit trail only; rules are
// never loaded back from it.
type AuditLog interface {
	RecordRepairAction(ctx context.Context, action model.RepairAction) error
}
