package model

import (
	"errors"
	"strings"
)

var (
	// ErrMissingConfiguration means a page's backing service is not configured.
	ErrMissingConfiguration = errors.New("missing configuration")
	// ErrInvalidCredentials means the identity provider rejected the login.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrEmptyQuery means the submitted SQL was empty or whitespace-only.
	ErrEmptyQuery = errors.New("empty query")
	// ErrInvalidRole means a role outside the enumeration was submitted.
	ErrInvalidRole = errors.New("invalid role")
	// ErrAccountExists means sign-up hit an already registered email.
	ErrAccountExists = errors.New("account already exists")
	// ErrQueryInFlight means the submitter already has an outstanding query.
	ErrQueryInFlight = errors.New("a query is already running")
	// ErrSessionNotFound means no live session matches the token.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionExpired means the session matched but is past its expiry.
	ErrSessionExpired = errors.New("session expired")
)

// DatabaseError is any failure reported while executing a console query.
// Message is always a single line.
type DatabaseError struct {
	Message string
	Err     error
}

// NewDatabaseError wraps err, flattening its message onto one line.
func NewDatabaseError(err error) *DatabaseError {
	return &DatabaseError{Message: SingleLine(err.Error()), Err: err}
}

func (e *DatabaseError) Error() string {
	return "database error: " + e.Message
}

func (e *DatabaseError) Unwrap() error {
	return e.Err
}

// SingleLine collapses all whitespace runs, including newlines, into single spaces.
func SingleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
