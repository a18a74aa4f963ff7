package tui

import (
	"context"
	"errors"
	"fmt"

	"github.com/Veraticus/the-books-must-balance/internal/statement"
	tea "github.com/charmbracelet/bubbletea"
)

// Run shows st in a full-screen viewer until the user quits or ctx is done.
func Run(ctx context.Context, st *statement.Table, opts ...tea.ProgramOption) error {
	if st == nil {
		return fmt.Errorf("statement is required")
	}

	options := append([]tea.ProgramOption{
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	}, opts...)

	p := tea.NewProgram(New(st), options...)
	if _, err := p.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
