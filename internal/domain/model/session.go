package model

import "time"

// Session is the explicit logged-in state handed to page handlers. It is
// created only on a successful login and removed on logout or expiry.
type Session struct {
	ID            string
	UserID        string
	Email         string
	Role          Role
	ProviderToken string
	CreatedAt     time.Time
	ExpiresAt     time.Time
}

// Expired reports whether the session is past its expiry at now.
func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
