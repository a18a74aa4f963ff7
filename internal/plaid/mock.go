package plaid

import (
	"context"
	"sync"
)

// MockClient is a mock implementation of AccountLister for testing.
type MockClient struct {
	Err      error
	Accounts []Account

	mu               sync.Mutex
	GetAccountsCalls int
}

// NewMockClient creates a new mock Plaid client.
func NewMockClient(accounts ...Account) *MockClient {
	return &MockClient{Accounts: accounts}
}

// GetAccounts returns the configured accounts.
func (m *MockClient) GetAccounts(_ context.Context) ([]Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.GetAccountsCalls++
	if m.Err != nil {
		return nil, m.Err
	}
	out := make([]Account, len(m.Accounts))
	copy(out, m.Accounts)
	return out, nil
}

var _ AccountLister = (*MockClient)(nil)
