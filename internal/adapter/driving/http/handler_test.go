package httphandler_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httphandler "github.com/ericfisherdev/swastyasetu/internal/adapter/driving/http"
	"github.com/ericfisherdev/swastyasetu/internal/application"
	"github.com/ericfisherdev/swastyasetu/internal/domain/model"
)

// --- Mock implementations ---

type mockProvider struct {
	signUpErr error
	signedUp  []model.Role
}

func (m *mockProvider) SignInWithPassword(_ context.Context, email, password string) (*model.AuthResult, error) {
	if password != "correct" {
		return nil, model.ErrInvalidCredentials
	}
	return &model.AuthResult{Account: model.Account{ID: "u-1", Email: email, Role: model.RoleHospital}}, nil
}

func (m *mockProvider) SignUp(_ context.Context, email, _ string, role model.Role) (*model.Account, error) {
	if m.signUpErr != nil {
		return nil, m.signUpErr
	}
	m.signedUp = append(m.signedUp, role)
	return &model.Account{ID: "u-2", Email: email, Role: role}, nil
}

func (m *mockProvider) SignOut(context.Context, string) error { return nil }

type memSessions struct {
	mu sync.Mutex
	m  map[string]model.Session
}

func (s *memSessions) Create(_ context.Context, session model.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[session.ID] = session
	return nil
}

func (s *memSessions) Get(_ context.Context, id string) (*model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.m[id]
	if !ok {
		return nil, nil
	}
	return &session, nil
}

func (s *memSessions) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, id)
	return nil
}

func (s *memSessions) DeleteExpired(context.Context, time.Time) (int64, error) { return 0, nil }

type idCodec struct{}

func (idCodec) Encode(s model.Session) (string, error) { return s.ID, nil }
func (idCodec) Decode(token string) (string, error)    { return token, nil }

type mockExecutor struct {
	result   model.QueryResult
	err      error
	lastText string
}

func (m *mockExecutor) Execute(_ context.Context, text string) (model.QueryResult, error) {
	m.lastText = text
	return m.result, m.err
}

func (m *mockExecutor) Mode() model.ExecutionMode { return model.ExecutionModeTrusted }

type memHistory struct {
	principals []string
}

func (h *memHistory) Record(_ context.Context, e model.QueryHistoryEntry) error {
	h.principals = append(h.principals, e.Principal)
	return nil
}

func (h *memHistory) ListRecent(context.Context, string, int) ([]model.QueryHistoryEntry, error) {
	return []model.QueryHistoryEntry{}, nil
}

// --- Test helpers ---

type apiEnv struct {
	handler  http.Handler
	provider *mockProvider
	sessions *memSessions
	executor *mockExecutor
	history  *memHistory
}

func setupAPI(t *testing.T, withProvider, withDatabase bool) *apiEnv {
	t.Helper()
	env := &apiEnv{
		provider: &mockProvider{},
		sessions: &memSessions{m: map[string]model.Session{}},
		executor: &mockExecutor{},
		history:  &memHistory{},
	}

	authSvc := application.NewAuthService(nil, env.sessions, idCodec{}, time.Hour)
	if withProvider {
		authSvc = application.NewAuthService(env.provider, env.sessions, idCodec{}, time.Hour)
	}
	consoleSvc := application.NewConsoleService(nil, env.history, time.Minute, slog.Default())
	if withDatabase {
		consoleSvc = application.NewConsoleService(env.executor, env.history, time.Minute, slog.Default())
	}

	mux := http.NewServeMux()
	httphandler.RegisterAPIRoutes(mux, httphandler.NewHandler(authSvc, consoleSvc, slog.Default()))
	env.handler = httphandler.ApplyMiddleware(mux, slog.Default())
	return env
}

func (e *apiEnv) post(path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
	err := json.NewDecoder(rec.Body).Decode(v)
	require.NoError(t, err)
}

func (e *apiEnv) login(t *testing.T) string {
	t.Helper()
	rec := e.post("/api/v1/auth/login", `{"email":"ops@example.com","password":"correct"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp httphandler.LoginResponse
	decodeJSON(t, rec, &resp)
	return resp.Token
}

// --- Tests ---

func TestLogin(t *testing.T) {
	tests := []struct {
		name         string
		withProvider bool
		body         string
		wantStatus   int
		wantError    string
	}{
		{
			name:         "valid",
			withProvider: true,
			body:         `{"email":"ops@example.com","password":"correct"}`,
			wantStatus:   http.StatusOK,
		},
		{
			name:         "wrong password",
			withProvider: true,
			body:         `{"email":"ops@example.com","password":"nope"}`,
			wantStatus:   http.StatusUnauthorized,
			wantError:    "invalid credentials",
		},
		{
			name:         "missing configuration",
			withProvider: false,
			body:         `{"email":"ops@example.com","password":"correct"}`,
			wantStatus:   http.StatusServiceUnavailable,
			wantError:    "identity provider is not configured",
		},
		{
			name:         "invalid JSON",
			withProvider: true,
			body:         `not json`,
			wantStatus:   http.StatusBadRequest,
			wantError:    "invalid request body",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupAPI(t, tt.withProvider, true)

			rec := env.post("/api/v1/auth/login", tt.body, "")

			assert.Equal(t, tt.wantStatus, rec.Code)
			var resp map[string]any
			decodeJSON(t, rec, &resp)
			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, resp["error"])
				assert.Empty(t, env.sessions.m)
				return
			}
			assert.NotEmpty(t, resp["token"])
			assert.Equal(t, "ops@example.com", resp["email"])
			assert.Equal(t, "Hospital", resp["role"])
			assert.NotEmpty(t, resp["expires_at"])
		})
	}
}

func TestSignUp(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		signUpErr  error
		wantStatus int
		wantRole   string
	}{
		{"doctor", `{"email":"d@example.com","password":"secret1","role":"Doctor"}`, nil, http.StatusCreated, "Doctor"},
		{"case-insensitive role", `{"email":"g@example.com","password":"secret1","role":"government"}`, nil, http.StatusCreated, "Government"},
		{"unknown role", `{"email":"n@example.com","password":"secret1","role":"Nurse"}`, nil, http.StatusBadRequest, ""},
		{"duplicate", `{"email":"d@example.com","password":"secret1","role":"Admin"}`, model.ErrAccountExists, http.StatusConflict, ""},
		{"provider rejects", `{"email":"d@example.com","password":"x","role":"Admin"}`, errors.New("password too short"), http.StatusUnprocessableEntity, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupAPI(t, true, true)
			env.provider.signUpErr = tt.signUpErr

			rec := env.post("/api/v1/auth/signup", tt.body, "")

			assert.Equal(t, tt.wantStatus, rec.Code)
			var resp map[string]any
			decodeJSON(t, rec, &resp)
			if tt.wantRole != "" {
				assert.Equal(t, tt.wantRole, resp["role"])
				assert.Equal(t, []model.Role{model.Role(tt.wantRole)}, env.provider.signedUp)
			} else {
				assert.NotEmpty(t, resp["error"])
			}
			assert.Empty(t, env.sessions.m, "sign-up never creates a session")
		})
	}
}

func TestLogout(t *testing.T) {
	env := setupAPI(t, true, true)
	token := env.login(t)
	require.Len(t, env.sessions.m, 1)

	rec := env.post("/api/v1/auth/logout", "", token)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, env.sessions.m)

	rec = env.post("/api/v1/auth/logout", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestQuery_Rows(t *testing.T) {
	env := setupAPI(t, true, true)
	env.executor.result = model.QueryResult{
		Kind:     model.ResultKindRows,
		Columns:  []string{"id", "name"},
		Rows:     [][]any{{int64(1), "Asha"}, {int64(2), nil}},
		Duration: 2500 * time.Microsecond,
	}

	rec := env.post("/api/v1/query", `{"sql":"SELECT id, name FROM patients"}`, "")

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]any
	decodeJSON(t, rec, &resp)
	assert.Equal(t, "rows", resp["kind"])
	assert.Equal(t, []any{"id", "name"}, resp["columns"])
	assert.Equal(t, []any{[]any{float64(1), "Asha"}, []any{float64(2), nil}}, resp["rows"])
	assert.Equal(t, 2.5, resp["duration_ms"])
	assert.Equal(t, "SELECT id, name FROM patients", env.executor.lastText)
	assert.Equal(t, []string{model.AnonymousPrincipal}, env.history.principals)
}

func TestQuery_AffectedWithSession(t *testing.T) {
	env := setupAPI(t, true, true)
	env.executor.result = model.QueryResult{Kind: model.ResultKindAffected}
	token := env.login(t)

	rec := env.post("/api/v1/query", `{"sql":"DELETE FROM patients"}`, token)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]any
	decodeJSON(t, rec, &resp)
	assert.Equal(t, "affected", resp["kind"])
	assert.Equal(t, []any{}, resp["columns"])
	assert.Equal(t, []any{}, resp["rows"])
	assert.Equal(t, []string{"ops@example.com"}, env.history.principals)
}

func TestQuery_Errors(t *testing.T) {
	tests := []struct {
		name         string
		withDatabase bool
		body         string
		token        string
		execErr      error
		wantStatus   int
		wantError    string
	}{
		{"empty", true, `{"sql":"  "}`, "", nil, http.StatusBadRequest, "query is empty"},
		{"missing configuration", false, `{"sql":"SELECT 1"}`, "", nil, http.StatusServiceUnavailable, "database is not configured"},
		{"database error", true, `{"sql":"SELEC 1"}`, "", &model.DatabaseError{Message: "syntax error"}, http.StatusUnprocessableEntity, "syntax error"},
		{"unknown session", true, `{"sql":"SELECT 1"}`, "no-such-session", nil, http.StatusUnauthorized, "invalid or expired session"},
		{"unknown field", true, `{"query":"SELECT 1"}`, "", nil, http.StatusBadRequest, "invalid request body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupAPI(t, true, tt.withDatabase)
			env.executor.err = tt.execErr

			rec := env.post("/api/v1/query", tt.body, tt.token)

			assert.Equal(t, tt.wantStatus, rec.Code)
			var resp map[string]any
			decodeJSON(t, rec, &resp)
			assert.Equal(t, tt.wantError, resp["error"])
		})
	}
}

func TestQuery_RejectsNonJSONBody(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
	}{
		{"text plain form", "text/plain"},
		{"urlencoded form", "application/x-www-form-urlencoded"},
		{"missing", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupAPI(t, true, true)
			req := httptest.NewRequest(http.MethodPost, "/api/v1/query", strings.NewReader(`{"sql":"DROP TABLE users --="}`))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			rec := httptest.NewRecorder()

			env.handler.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
			assert.Empty(t, env.executor.lastText)
			assert.Empty(t, env.history.principals)
		})
	}
}

func TestQuery_AcceptsJSONWithCharset(t *testing.T) {
	env := setupAPI(t, true, true)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/query", strings.NewReader(`{"sql":"SELECT 1"}`))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	rec := httptest.NewRecorder()

	env.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "SELECT 1", env.executor.lastText)
}

func TestQuery_RejectsCrossOriginRequest(t *testing.T) {
	env := setupAPI(t, true, true)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/query", strings.NewReader(`{"sql":"DROP TABLE users"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Origin", "https://evil.example")
	rec := httptest.NewRecorder()

	env.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, env.executor.lastText)
}

func TestHealth(t *testing.T) {
	env := setupAPI(t, false, false)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	rec := httptest.NewRecorder()

	env.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	var resp map[string]any
	decodeJSON(t, rec, &resp)
	assert.Equal(t, "ok", resp["status"])
	assert.NotEmpty(t, resp["time"])
}

func TestMiddleware_RecoversPanics(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /boom", func(http.ResponseWriter, *http.Request) { panic("boom") })
	handler := httphandler.ApplyMiddleware(mux, slog.Default())

	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	req.Header.Set("X-Request-ID", "req-123")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "req-123", rec.Header().Get("X-Request-ID"))
}
