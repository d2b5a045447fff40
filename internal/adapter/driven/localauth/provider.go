// Package localauth implements the IdentityProvider port on the app's own
// account store with bcrypt password hashes. It serves deployments that have
// no hosted identity service.
package localauth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/ericfisherdev/swastyasetu/internal/domain/model"
	"github.com/ericfisherdev/swastyasetu/internal/domain/port/driven"
)

// MinPasswordLength matches the hosted provider's default minimum.
const MinPasswordLength = 6

// Compile-time interface satisfaction check.
var _ driven.IdentityProvider = (*Provider)(nil)

// Provider verifies and registers accounts in an AccountStore.
type Provider struct {
	accounts driven.AccountStore
	cost     int
}

// NewProvider creates a Provider using bcrypt.DefaultCost.
func NewProvider(accounts driven.AccountStore) *Provider {
	return &Provider{accounts: accounts, cost: bcrypt.DefaultCost}
}

// SignInWithPassword checks password against the stored hash. Unknown email
// and wrong password are indistinguishable to the caller.
func (p *Provider) SignInWithPassword(ctx context.Context, email, password string) (*model.AuthResult, error) {
	acct, err := p.accounts.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, fmt.Errorf("local sign in: %w", err)
	}
	if acct == nil {
		return nil, model.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword(acct.PasswordHash, []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, model.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("local sign in: compare hash: %w", err)
	}

	return &model.AuthResult{
		Account: model.Account{ID: acct.ID, Email: acct.Email, Role: acct.Role},
	}, nil
}

// SignUp hashes password and stores a new account with role.
func (p *Provider) SignUp(ctx context.Context, email, password string, role model.Role) (*model.Account, error) {
	email = normalizeEmail(email)
	if !strings.Contains(email, "@") {
		return nil, fmt.Errorf("local sign up: invalid email %q", email)
	}
	if len(password) < MinPasswordLength {
		return nil, fmt.Errorf("local sign up: password must be at least %d characters", MinPasswordLength)
	}
	if !role.Valid() {
		return nil, fmt.Errorf("local sign up: %w: %q", model.ErrInvalidRole, string(role))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.cost)
	if err != nil {
		return nil, fmt.Errorf("local sign up: hash password: %w", err)
	}

	acct := model.LocalAccount{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    time.Now().UTC(),
	}
	if err := p.accounts.Create(ctx, acct); err != nil {
		return nil, fmt.Errorf("local sign up: %w", err)
	}

	return &model.Account{ID: acct.ID, Email: acct.Email, Role: acct.Role}, nil
}

// SignOut is a no-op: local sign-ins issue no provider token.
func (p *Provider) SignOut(context.Context, string) error {
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
