package driven

import (
	"context"

	"github.com/ericfisherdev/swastyasetu/internal/domain/model"
)

// AccountStore defines the driven port for locally owned accounts, used by
// the local identity provider.
type AccountStore interface {
	// Create inserts a new account. Returns model.ErrAccountExists on a
	// duplicate email.
	Create(ctx context.Context, account model.LocalAccount) error

	// GetByEmail returns the account, or (nil, nil) if none exists.
	GetByEmail(ctx context.Context, email string) (*model.LocalAccount, error)
}
