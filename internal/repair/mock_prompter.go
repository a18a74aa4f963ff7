package repair

import (
	"context"
	"fmt"
	"sync"

	"github.com/Veraticus/the-books-must-balance/internal/model"
)

// MockPrompter is a scripted Prompter for tests. Answers are consumed in
// order; when a script runs dry the prompter behaves like closed input.
type MockPrompter struct {
	actions    []Action
	categories []mockCategory
	patterns   []string

	// Recorded calls.
	ActionPrompts   []Prompt
	CategoryPrompts []Purpose
	PatternPrompts  []model.CategoryName
	Reported        []error
	ProgressCalls   [][2]int

	mu sync.Mutex
}

type mockCategory struct {
	category model.CategoryName
	back     bool
}

// NewMockPrompter creates an empty scripted prompter.
func NewMockPrompter() *MockPrompter {
	return &MockPrompter{}
}

// QueueActions appends top-level answers.
func (m *MockPrompter) QueueActions(actions ...Action) *MockPrompter {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.actions = append(m.actions, actions...)
	return m
}

// QueueCategories appends category menu answers.
func (m *MockPrompter) QueueCategories(categories ...model.CategoryName) *MockPrompter {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range categories {
		m.categories = append(m.categories, mockCategory{category: c})
	}
	return m
}

// QueueBack appends a "go back" answer to the category menu.
func (m *MockPrompter) QueueBack() *MockPrompter {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.categories = append(m.categories, mockCategory{back: true})
	return m
}

// QueuePatterns appends pattern answers.
func (m *MockPrompter) QueuePatterns(patterns ...string) *MockPrompter {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.patterns = append(m.patterns, patterns...)
	return m
}

// ChooseAction returns the next scripted action.
func (m *MockPrompter) ChooseAction(_ context.Context, p Prompt) (Action, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ActionPrompts = append(m.ActionPrompts, p)
	if len(m.actions) == 0 {
		return 0, fmt.Errorf("no scripted action: %w", ErrInputClosed)
	}
	a := m.actions[0]
	m.actions = m.actions[1:]
	return a, nil
}

// ChooseCategory returns the next scripted category or back.
func (m *MockPrompter) ChooseCategory(_ context.Context, _ Prompt, purpose Purpose) (model.CategoryName, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.CategoryPrompts = append(m.CategoryPrompts, purpose)
	if len(m.categories) == 0 {
		return "", false, fmt.Errorf("no scripted category: %w", ErrInputClosed)
	}
	c := m.categories[0]
	m.categories = m.categories[1:]
	if c.back {
		return "", false, nil
	}
	return c.category, true, nil
}

// EnterPattern returns the next scripted pattern.
func (m *MockPrompter) EnterPattern(_ context.Context, _ Prompt, category model.CategoryName) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.PatternPrompts = append(m.PatternPrompts, category)
	if len(m.patterns) == 0 {
		return "", fmt.Errorf("no scripted pattern: %w", ErrInputClosed)
	}
	p := m.patterns[0]
	m.patterns = m.patterns[1:]
	return p, nil
}

// ReportError records the rejected input.
func (m *MockPrompter) ReportError(_ context.Context, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Reported = append(m.Reported, err)
}

// Progress records progress updates.
func (m *MockPrompter) Progress(resolved, total int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ProgressCalls = append(m.ProgressCalls, [2]int{resolved, total})
}
