package plaid

import (
	"context"
)

// AccountLister returns the accounts linked to a Plaid item.
// This interface allows the balance source to be tested without the API.
type AccountLister interface {
	GetAccounts(ctx context.Context) ([]Account, error)
}
