package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/swastyasetu/internal/domain/model"
)

// --- Mock implementations ---

type mockIdentityProvider struct {
	signInResult *model.AuthResult
	signInErr    error
	signUpErr    error

	signUpRole    model.Role
	signOutTokens []string
}

func (m *mockIdentityProvider) SignInWithPassword(_ context.Context, _, _ string) (*model.AuthResult, error) {
	return m.signInResult, m.signInErr
}

func (m *mockIdentityProvider) SignUp(_ context.Context, email, _ string, role model.Role) (*model.Account, error) {
	if m.signUpErr != nil {
		return nil, m.signUpErr
	}
	m.signUpRole = role
	return &model.Account{ID: "new-id", Email: email, Role: role}, nil
}

func (m *mockIdentityProvider) SignOut(_ context.Context, token string) error {
	m.signOutTokens = append(m.signOutTokens, token)
	return nil
}

type memSessionStore struct {
	mu       sync.Mutex
	sessions map[string]model.Session
}

func newMemSessionStore() *memSessionStore {
	return &memSessionStore{sessions: map[string]model.Session{}}
}

func (m *memSessionStore) Create(_ context.Context, s model.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
	return nil
}

func (m *memSessionStore) Get(_ context.Context, id string) (*model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *memSessionStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

func (m *memSessionStore) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, s := range m.sessions {
		if s.Expired(now) {
			delete(m.sessions, id)
			n++
		}
	}
	return n, nil
}

func (m *memSessionStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// plainTokenCodec uses the session ID itself as the token.
type plainTokenCodec struct{}

func (plainTokenCodec) Encode(s model.Session) (string, error) { return "tok:" + s.ID, nil }
func (plainTokenCodec) Decode(token string) (string, error) {
	if len(token) < 4 || token[:4] != "tok:" {
		return "", model.ErrSessionNotFound
	}
	return token[4:], nil
}

var testNow = time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)

func newTestAuthService(provider *mockIdentityProvider) (*AuthService, *memSessionStore) {
	store := newMemSessionStore()
	svc := NewAuthService(nil, store, plainTokenCodec{}, time.Hour)
	if provider != nil {
		svc = NewAuthService(provider, store, plainTokenCodec{}, time.Hour)
	}
	svc.now = func() time.Time { return testNow }
	return svc, store
}

// --- Tests ---

func TestLogin_InvalidCredentialsCreatesNoSession(t *testing.T) {
	svc, store := newTestAuthService(&mockIdentityProvider{signInErr: model.ErrInvalidCredentials})

	session, token, err := svc.Login(context.Background(), "a@b.com", "wrong")

	assert.ErrorIs(t, err, model.ErrInvalidCredentials)
	assert.Nil(t, session)
	assert.Empty(t, token)
	assert.Equal(t, 0, store.count())
}

func TestLogin_EmptyEmailNeverReachesProvider(t *testing.T) {
	provider := &mockIdentityProvider{signInErr: errors.New("must not be called")}
	svc, store := newTestAuthService(provider)

	_, _, err := svc.Login(context.Background(), "   ", "pw")

	assert.ErrorIs(t, err, model.ErrInvalidCredentials)
	assert.Equal(t, 0, store.count())
}

func TestLogin_Success(t *testing.T) {
	svc, store := newTestAuthService(&mockIdentityProvider{signInResult: &model.AuthResult{
		Account:       model.Account{ID: "u-1", Email: "a@b.com", Role: model.RoleHospital},
		ProviderToken: "provider-jwt",
	}})

	session, token, err := svc.Login(context.Background(), "a@b.com", "pw")

	require.NoError(t, err)
	assert.Equal(t, "tok:"+session.ID, token)
	assert.Equal(t, model.RoleHospital, session.Role)
	assert.Equal(t, testNow.Add(time.Hour), session.ExpiresAt)
	assert.Equal(t, 1, store.count())

	got, err := svc.Authenticate(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", got.Email)
	assert.Equal(t, "provider-jwt", got.ProviderToken)
}

func TestLogin_MissingConfiguration(t *testing.T) {
	svc, _ := newTestAuthService(nil)

	_, _, err := svc.Login(context.Background(), "a@b.com", "pw")

	assert.ErrorIs(t, err, model.ErrMissingConfiguration)
	assert.False(t, svc.Configured())
}

func TestSignUp_ForwardsRole(t *testing.T) {
	provider := &mockIdentityProvider{}
	svc, store := newTestAuthService(provider)

	acct, err := svc.SignUp(context.Background(), model.Credential{Email: "d@b.com", Password: "pw123456", Role: model.RoleDoctor})

	require.NoError(t, err)
	assert.Equal(t, model.RoleDoctor, acct.Role)
	assert.Equal(t, model.RoleDoctor, provider.signUpRole)
	assert.Equal(t, 0, store.count(), "sign-up does not log in")
}

func TestSignUp_RejectsInvalidRole(t *testing.T) {
	provider := &mockIdentityProvider{}
	svc, _ := newTestAuthService(provider)

	_, err := svc.SignUp(context.Background(), model.Credential{Email: "d@b.com", Password: "pw123456", Role: "Nurse"})

	assert.ErrorIs(t, err, model.ErrInvalidRole)
	assert.Empty(t, provider.signUpRole, "provider must not be called")
}

func TestAuthenticate_ExpiredSessionIsDeleted(t *testing.T) {
	svc, store := newTestAuthService(&mockIdentityProvider{})
	require.NoError(t, store.Create(context.Background(), model.Session{ID: "old", ExpiresAt: testNow.Add(-time.Second)}))

	_, err := svc.Authenticate(context.Background(), "tok:old")

	assert.ErrorIs(t, err, model.ErrSessionExpired)
	assert.Equal(t, 0, store.count())
}

func TestAuthenticate_UnknownToken(t *testing.T) {
	svc, _ := newTestAuthService(&mockIdentityProvider{})

	_, err := svc.Authenticate(context.Background(), "tok:missing")
	assert.ErrorIs(t, err, model.ErrSessionNotFound)

	_, err = svc.Authenticate(context.Background(), "")
	assert.ErrorIs(t, err, model.ErrSessionNotFound)
}

func TestLogout_TearsDownSessionAndRevokesProviderToken(t *testing.T) {
	provider := &mockIdentityProvider{signInResult: &model.AuthResult{
		Account:       model.Account{ID: "u-1", Email: "a@b.com", Role: model.RoleAdmin},
		ProviderToken: "provider-jwt",
	}}
	svc, store := newTestAuthService(provider)
	ctx := context.Background()

	_, token, err := svc.Login(ctx, "a@b.com", "pw")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, token))

	assert.Equal(t, 0, store.count())
	assert.Equal(t, []string{"provider-jwt"}, provider.signOutTokens)

	_, err = svc.Authenticate(ctx, token)
	assert.ErrorIs(t, err, model.ErrSessionNotFound)

	assert.NoError(t, svc.Logout(ctx, token), "second logout is a no-op")
	assert.NoError(t, svc.Logout(ctx, "garbage"))
}

func TestPurgeExpired(t *testing.T) {
	svc, store := newTestAuthService(&mockIdentityProvider{})
	ctx := context.Background()
	require.NoError(t, store.Create(ctx, model.Session{ID: "old", ExpiresAt: testNow.Add(-time.Minute)}))
	require.NoError(t, store.Create(ctx, model.Session{ID: "live", ExpiresAt: testNow.Add(time.Minute)}))

	n, err := svc.PurgeExpired(ctx)

	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, 1, store.count())
}

func TestStart_StopsOnCancel(t *testing.T) {
	svc, _ := newTestAuthService(&mockIdentityProvider{})
	svc.purgeInterval = time.Millisecond
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		svc.Start(ctx)
		close(done)
	}()

	time.Sleep(5 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start did not return after cancel")
	}
}
