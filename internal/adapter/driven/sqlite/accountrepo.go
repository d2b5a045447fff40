package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ericfisherdev/swastyasetu/internal/domain/model"
	"github.com/ericfisherdev/swastyasetu/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.AccountStore = (*AccountRepo)(nil)

// AccountRepo is the SQLite implementation of the AccountStore port interface.
type AccountRepo struct {
	db *DB
}

// NewAccountRepo creates a new AccountRepo backed by the given DB.
func NewAccountRepo(db *DB) *AccountRepo {
	return &AccountRepo{db: db}
}

// Create inserts a new account. Emails are unique case-insensitively.
func (r *AccountRepo) Create(ctx context.Context, account model.LocalAccount) error {
	const query = `INSERT INTO accounts (id, email, password_hash, role, created_at) VALUES (?, ?, ?, ?, ?)`

	createdAt := account.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := r.db.Writer.ExecContext(ctx, query,
		account.ID, account.Email, account.PasswordHash, string(account.Role), createdAt.UnixMilli())
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return fmt.Errorf("create account %s: %w", account.Email, model.ErrAccountExists)
		}
		return fmt.Errorf("create account %s: %w", account.Email, err)
	}

	return nil
}

// GetByEmail returns the account for email, or (nil, nil) if none exists.
func (r *AccountRepo) GetByEmail(ctx context.Context, email string) (*model.LocalAccount, error) {
	const query = `SELECT id, email, password_hash, role, created_at FROM accounts WHERE email = ?`

	var (
		acct      model.LocalAccount
		role      string
		createdAt int64
	)
	err := r.db.Reader.QueryRowContext(ctx, query, email).Scan(&acct.ID, &acct.Email, &acct.PasswordHash, &role, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get account %s: %w", email, err)
	}

	acct.Role = model.Role(role)
	acct.CreatedAt = time.UnixMilli(createdAt).UTC()
	return &acct, nil
}
