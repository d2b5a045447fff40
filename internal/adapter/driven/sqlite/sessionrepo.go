package sqlite

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/ericfisherdev/swastyasetu/internal/domain/model"
	"github.com/ericfisherdev/swastyasetu/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.SessionStore = (*SessionRepo)(nil)

// SessionRepo is the SQLite implementation of the SessionStore port interface.
// Provider tokens are encrypted with AES-256-GCM before write and decrypted after read.
type SessionRepo struct {
	db  *DB
	key []byte // 32-byte AES-256 key; nil disables provider token storage.
}

// NewSessionRepo creates a new SessionRepo. key must be 32 bytes for AES-256-GCM,
// or nil to drop provider tokens instead of storing them.
func NewSessionRepo(db *DB, key []byte) *SessionRepo {
	return &SessionRepo{db: db, key: key}
}

// Create stores a new session.
func (r *SessionRepo) Create(ctx context.Context, s model.Session) error {
	token, err := r.encrypt(s.ProviderToken)
	if err != nil {
		return fmt.Errorf("encrypt provider token for session %s: %w", s.ID, err)
	}

	const query = `INSERT INTO sessions (id, user_id, email, role, provider_token, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err = r.db.Writer.ExecContext(ctx, query,
		s.ID, s.UserID, s.Email, string(s.Role), token, s.CreatedAt.UnixMilli(), s.ExpiresAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("create session %s: %w", s.ID, err)
	}
	return nil
}

// Get returns the session with the given ID, or (nil, nil) if it does not exist.
// Expired sessions are returned as-is; expiry is the caller's decision.
func (r *SessionRepo) Get(ctx context.Context, id string) (*model.Session, error) {
	const query = `SELECT id, user_id, email, role, provider_token, created_at, expires_at FROM sessions WHERE id = ?`

	var (
		s                    model.Session
		role, token          string
		createdAt, expiresAt int64
	)
	err := r.db.Reader.QueryRowContext(ctx, query, id).Scan(&s.ID, &s.UserID, &s.Email, &role, &token, &createdAt, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session %s: %w", id, err)
	}

	s.ProviderToken, err = r.decrypt(token)
	if err != nil {
		return nil, fmt.Errorf("decrypt provider token for session %s: %w", id, err)
	}
	s.Role = model.Role(role)
	s.CreatedAt = time.UnixMilli(createdAt).UTC()
	s.ExpiresAt = time.UnixMilli(expiresAt).UTC()
	return &s, nil
}

// Delete removes the session. Deleting a missing session is not an error.
func (r *SessionRepo) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM sessions WHERE id = ?`
	if _, err := r.db.Writer.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	return nil
}

// DeleteExpired removes every session whose expiry is at or before now.
func (r *SessionRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	const query = `DELETE FROM sessions WHERE expires_at <= ?`
	result, err := r.db.Writer.ExecContext(ctx, query, now.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions rows affected: %w", err)
	}
	return n, nil
}

// encrypt encrypts plaintext using AES-256-GCM and returns a base64-encoded string
// containing the nonce (12 bytes) prepended to the ciphertext. Empty input, or a
// nil key, yields an empty string.
func (r *SessionRepo) encrypt(plaintext string) (string, error) {
	if r.key == nil || plaintext == "" {
		return "", nil
	}

	gcm, err := newGCM(r.key)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("rand nonce: %w", err)
	}

	// Seal appends the ciphertext to nonce, producing: nonce || ciphertext || tag.
	ciphertext := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// decrypt decrypts a base64-encoded AES-256-GCM ciphertext.
func (r *SessionRepo) decrypt(encoded string) (string, error) {
	if r.key == nil || encoded == "" {
		return "", nil
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("base64 decode: %w", err)
	}

	gcm, err := newGCM(r.key)
	if err != nil {
		return "", err
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return "", errors.New("ciphertext too short")
	}

	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("gcm.Open: %w", err)
	}

	return string(plaintext), nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("aes.NewCipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cipher.NewGCM: %w", err)
	}
	return gcm, nil
}
