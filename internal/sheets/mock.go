package sheets

import (
	"context"
	"sync"

	"github.com/Veraticus/the-books-must-balance/internal/statement"
)

// RecordingWriter is a StatementWriter for tests. It remembers every
// exported statement and fails with Err when set.
type RecordingWriter struct {
	Err     error
	written []*statement.Table
	mu      sync.Mutex
}

// WriteStatement records table and returns Err.
func (w *RecordingWriter) WriteStatement(ctx context.Context, table *statement.Table) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.written = append(w.written, table)
	return w.Err
}

// Written returns the statements passed to WriteStatement, oldest first.
func (w *RecordingWriter) Written() []*statement.Table {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]*statement.Table(nil), w.written...)
}

var _ StatementWriter = (*RecordingWriter)(nil)
