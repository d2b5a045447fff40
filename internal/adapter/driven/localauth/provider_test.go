package localauth

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/ericfisherdev/swastyasetu/internal/domain/model"
)

// memAccountStore is an in-memory driven.AccountStore.
type memAccountStore struct {
	byEmail map[string]model.LocalAccount
}

func newMemAccountStore() *memAccountStore {
	return &memAccountStore{byEmail: map[string]model.LocalAccount{}}
}

func (m *memAccountStore) Create(_ context.Context, a model.LocalAccount) error {
	key := strings.ToLower(a.Email)
	if _, ok := m.byEmail[key]; ok {
		return model.ErrAccountExists
	}
	m.byEmail[key] = a
	return nil
}

func (m *memAccountStore) GetByEmail(_ context.Context, email string) (*model.LocalAccount, error) {
	a, ok := m.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func newTestProvider() (*Provider, *memAccountStore) {
	store := newMemAccountStore()
	p := NewProvider(store)
	p.cost = bcrypt.MinCost
	return p, store
}

func TestSignUp_StoresRole(t *testing.T) {
	p, store := newTestProvider()

	acct, err := p.SignUp(context.Background(), " New.Doctor@Example.com ", "pw123456", model.RoleDoctor)

	require.NoError(t, err)
	assert.Equal(t, "new.doctor@example.com", acct.Email)
	assert.Equal(t, model.RoleDoctor, acct.Role)
	assert.NotEmpty(t, acct.ID)

	stored := store.byEmail["new.doctor@example.com"]
	assert.Equal(t, model.RoleDoctor, stored.Role)
	assert.NotEqual(t, []byte("pw123456"), stored.PasswordHash, "password is stored hashed")
}

func TestSignUp_Validation(t *testing.T) {
	p, _ := newTestProvider()
	ctx := context.Background()

	_, err := p.SignUp(ctx, "not-an-email", "pw123456", model.RoleAdmin)
	assert.Error(t, err)

	_, err = p.SignUp(ctx, "a@b.com", "short", model.RoleAdmin)
	assert.Error(t, err)

	_, err = p.SignUp(ctx, "a@b.com", "pw123456", model.Role("Nurse"))
	assert.ErrorIs(t, err, model.ErrInvalidRole)
}

func TestSignUp_Duplicate(t *testing.T) {
	p, _ := newTestProvider()
	ctx := context.Background()

	_, err := p.SignUp(ctx, "a@b.com", "pw123456", model.RoleAdmin)
	require.NoError(t, err)

	_, err = p.SignUp(ctx, "A@B.com", "pw123456", model.RoleAdmin)
	assert.ErrorIs(t, err, model.ErrAccountExists)
}

func TestSignInWithPassword(t *testing.T) {
	p, _ := newTestProvider()
	ctx := context.Background()
	_, err := p.SignUp(ctx, "a@b.com", "right-password", model.RoleGovernment)
	require.NoError(t, err)

	t.Run("correct password", func(t *testing.T) {
		res, err := p.SignInWithPassword(ctx, "A@b.com", "right-password")
		require.NoError(t, err)
		assert.Equal(t, "a@b.com", res.Account.Email)
		assert.Equal(t, model.RoleGovernment, res.Account.Role)
		assert.Empty(t, res.ProviderToken)
	})

	t.Run("wrong password", func(t *testing.T) {
		res, err := p.SignInWithPassword(ctx, "a@b.com", "wrong")
		assert.Nil(t, res)
		assert.ErrorIs(t, err, model.ErrInvalidCredentials)
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := p.SignInWithPassword(ctx, "ghost@b.com", "right-password")
		assert.ErrorIs(t, err, model.ErrInvalidCredentials)
	})
}
