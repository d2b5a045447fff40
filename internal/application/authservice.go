// Package application contains use-case orchestration services.
package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ericfisherdev/swastyasetu/internal/domain/model"
	"github.com/ericfisherdev/swastyasetu/internal/domain/port/driven"
)

// AuthService owns the session lifecycle: a session is created only by a
// successful Login and removed by Logout, expiry, or the purge loop.
// A nil identity provider means the provider is not configured. Login and
// SignUp then fail with model.ErrMissingConfiguration; existing sessions keep
// working.
type AuthService struct {
	provider      driven.IdentityProvider
	sessions      driven.SessionStore
	tokens        driven.SessionTokenCodec
	ttl           time.Duration
	purgeInterval time.Duration
	now           func() time.Time
}

// NewAuthService creates an AuthService. provider may be nil.
func NewAuthService(
	provider driven.IdentityProvider,
	sessions driven.SessionStore,
	tokens driven.SessionTokenCodec,
	ttl time.Duration,
) *AuthService {
	return &AuthService{
		provider:      provider,
		sessions:      sessions,
		tokens:        tokens,
		ttl:           ttl,
		purgeInterval: 10 * time.Minute,
		now:           time.Now,
	}
}

// Configured reports whether an identity provider is available.
func (s *AuthService) Configured() bool {
	return s.provider != nil
}

// Login verifies the credentials with the identity provider and, only on
// success, persists a new session and returns it with its bearer token.
func (s *AuthService) Login(ctx context.Context, email, password string) (*model.Session, string, error) {
	if s.provider == nil {
		return nil, "", model.ErrMissingConfiguration
	}
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, "", model.ErrInvalidCredentials
	}

	res, err := s.provider.SignInWithPassword(ctx, email, password)
	if err != nil {
		return nil, "", err
	}

	now := s.now().UTC().Truncate(time.Millisecond)
	session := model.Session{
		ID:            uuid.NewString(),
		UserID:        res.Account.ID,
		Email:         res.Account.Email,
		Role:          res.Account.Role,
		ProviderToken: res.ProviderToken,
		CreatedAt:     now,
		ExpiresAt:     now.Add(s.ttl),
	}
	if session.Email == "" {
		session.Email = email
	}

	token, err := s.tokens.Encode(session)
	if err != nil {
		return nil, "", fmt.Errorf("encode session token: %w", err)
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, "", fmt.Errorf("store session: %w", err)
	}

	slog.Info("session created", "session_id", session.ID, "role", session.Role.String())
	return &session, token, nil
}

// SignUp validates the credential's role and registers the account with the
// identity provider. It does not log the new account in.
func (s *AuthService) SignUp(ctx context.Context, cred model.Credential) (*model.Account, error) {
	if s.provider == nil {
		return nil, model.ErrMissingConfiguration
	}
	if !cred.Role.Valid() {
		return nil, fmt.Errorf("%w: %q", model.ErrInvalidRole, string(cred.Role))
	}
	email := strings.TrimSpace(cred.Email)
	if email == "" || cred.Password == "" {
		return nil, errors.New("email and password are required")
	}

	return s.provider.SignUp(ctx, email, cred.Password, cred.Role)
}

// Authenticate resolves a bearer token to its live session. Expired sessions
// are deleted and reported as model.ErrSessionExpired.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*model.Session, error) {
	if token == "" {
		return nil, model.ErrSessionNotFound
	}
	id, err := s.tokens.Decode(token)
	if err != nil {
		return nil, err
	}

	session, err := s.sessions.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if session == nil {
		return nil, model.ErrSessionNotFound
	}
	if session.Expired(s.now()) {
		if err := s.sessions.Delete(ctx, id); err != nil {
			slog.Warn("failed to delete expired session", "session_id", id, "error", err)
		}
		return nil, model.ErrSessionExpired
	}
	return session, nil
}

// Logout tears down the session behind token and revokes the provider token
// on a best-effort basis. Logging out an unknown or expired token succeeds.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	id, err := s.tokens.Decode(token)
	if err != nil {
		return nil
	}

	session, err := s.sessions.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	if session == nil {
		return nil
	}

	if err := s.sessions.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}

	if s.provider != nil && session.ProviderToken != "" {
		if err := s.provider.SignOut(ctx, session.ProviderToken); err != nil {
			slog.Warn("provider sign out failed", "session_id", id, "error", err)
		}
	}

	slog.Info("session ended", "session_id", id)
	return nil
}

// PurgeExpired removes every expired session.
func (s *AuthService) PurgeExpired(ctx context.Context) (int64, error) {
	return s.sessions.DeleteExpired(ctx, s.now())
}

// Start runs the expired-session purge loop until ctx is canceled.
func (s *AuthService) Start(ctx context.Context) {
	ticker := time.NewTicker(s.purgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("session purge stopped")
			return
		case <-ticker.C:
			n, err := s.PurgeExpired(ctx)
			if err != nil {
				slog.Error("session purge failed", "error", err)
				continue
			}
			if n > 0 {
				slog.Info("expired sessions purged", "count", n)
			}
		}
	}
}
