package source

import (
	"context"

	"github.com/Veraticus/the-books-must-balance/internal/statement"
)

// MockFetcher is a Fetcher for tests.
type MockFetcher struct {
	FetchFn func(ctx context.Context, req Request) (*statement.Table, error)

	// Call tracking
	FetchCalls []Request
	NameValue  string
}

// NewMockFetcher creates a mock fetcher named name.
func NewMockFetcher(name string) *MockFetcher {
	return &MockFetcher{NameValue: name}
}

// Name implements Fetcher.
func (m *MockFetcher) Name() string {
	return m.NameValue
}

// Fetch implements Fetcher.
func (m *MockFetcher) Fetch(ctx context.Context, req Request) (*statement.Table, error) {
	m.FetchCalls = append(m.FetchCalls, req)
	if m.FetchFn != nil {
		return m.FetchFn(ctx, req)
	}
	return statement.New(nil), nil
}
