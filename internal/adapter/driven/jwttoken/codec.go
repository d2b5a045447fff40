// Package jwttoken implements the SessionTokenCodec port with HS256 JWTs.
// The token carries only the session ID; the session store stays authoritative.
package jwttoken

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ericfisherdev/swastyasetu/internal/domain/model"
	"github.com/ericfisherdev/swastyasetu/internal/domain/port/driven"
)

const (
	issuer   = "swastyasetu"
	audience = "swastyasetu-web"
)

// Compile-time interface satisfaction check.
var _ driven.SessionTokenCodec = (*HS256)(nil)

// HS256 signs and verifies session tokens with a shared secret.
type HS256 struct {
	secret []byte
	now    func() time.Time
}

// NewHS256 creates a codec using secret as the HMAC key.
func NewHS256(secret []byte) *HS256 {
	return &HS256{secret: secret, now: time.Now}
}

type sessionClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// Encode returns a signed token whose subject is the session ID and whose
// expiry matches the session's.
func (h *HS256) Encode(s model.Session) (string, error) {
	claims := sessionClaims{
		Email: s.Email,
		Role:  string(s.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   s.ID,
			Issuer:    issuer,
			Audience:  jwt.ClaimStrings{audience},
			IssuedAt:  jwt.NewNumericDate(s.CreatedAt),
			ExpiresAt: jwt.NewNumericDate(s.ExpiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(h.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// Decode verifies signature, issuer, audience and expiry and returns the
// session ID. Expired tokens map to model.ErrSessionExpired; anything else
// invalid maps to model.ErrSessionNotFound.
func (h *HS256) Decode(token string) (string, error) {
	var claims sessionClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return h.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithAudience(audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(h.now),
	)
	if errors.Is(err, jwt.ErrTokenExpired) {
		return "", model.ErrSessionExpired
	}
	if err != nil {
		return "", fmt.Errorf("%w: %w", model.ErrSessionNotFound, err)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: token has no subject", model.ErrSessionNotFound)
	}
	return claims.Subject, nil
}
