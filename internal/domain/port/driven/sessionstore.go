package driven

import (
	"context"
	"time"

	"github.com/ericfisherdev/swastyasetu/internal/domain/model"
)

// SessionStore defines the driven port for session persistence.
// The adapter is responsible for protecting ProviderToken at rest.
type SessionStore interface {
	Create(ctx context.Context, session model.Session) error

	// Get returns the session, or (nil, nil) if it does not exist.
	Get(ctx context.Context, id string) (*model.Session, error)

	Delete(ctx context.Context, id string) error

	// DeleteExpired removes sessions that expired at or before now and
	// returns how many were removed.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// SessionTokenCodec turns session IDs into tamper-evident bearer tokens.
type SessionTokenCodec interface {
	Encode(session model.Session) (string, error)

	// Decode validates token and returns the session ID it carries.
	Decode(token string) (string, error)
}
