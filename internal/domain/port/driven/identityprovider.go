// Package driven defines secondary port interfaces for external adapters.
package driven

import (
	"context"

	"github.com/ericfisherdev/swastyasetu/internal/domain/model"
)

// IdentityProvider defines the driven port for the external authentication
// service. The provider owns account persistence and credential checks.
type IdentityProvider interface {
	// SignInWithPassword verifies the credentials. Returns
	// model.ErrInvalidCredentials when the provider rejects them.
	SignInWithPassword(ctx context.Context, email, password string) (*model.AuthResult, error)

	// SignUp creates an account and stores role as account metadata.
	// Returns model.ErrAccountExists when the email is already registered.
	SignUp(ctx context.Context, email, password string, role model.Role) (*model.Account, error)

	// SignOut revokes a provider token obtained from SignInWithPassword.
	SignOut(ctx context.Context, providerToken string) error
}
