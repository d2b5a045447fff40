// Package model holds the domain types shared by the auth and query console flows.
package model

import "time"

// Credential is a single login or sign-up submission. It is never persisted
// as-is; the identity provider owns credential storage.
type Credential struct {
	Email    string
	Password string
	Role     Role
}

// Account is an identity as reported by the identity provider.
type Account struct {
	ID    string
	Email string
	Role  Role
}

// AuthResult is a successful password sign-in. ProviderToken is the
// provider-issued access token, kept only to revoke it on logout.
type AuthResult struct {
	Account       Account
	ProviderToken string
}

// LocalAccount is an account row owned by the local identity provider.
type LocalAccount struct {
	ID           string
	Email        string
	PasswordHash []byte
	Role         Role
	CreatedAt    time.Time
}
