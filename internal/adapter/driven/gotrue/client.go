// Package gotrue implements the IdentityProvider port against a GoTrue
// (Supabase Auth) REST endpoint.
package gotrue

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ericfisherdev/swastyasetu/internal/domain/model"
	"github.com/ericfisherdev/swastyasetu/internal/domain/port/driven"
)

// maxErrorBody bounds how much of an error response is read for its message.
const maxErrorBody = 64 << 10

// Compile-time interface satisfaction check.
var _ driven.IdentityProvider = (*Client)(nil)

// Client implements driven.IdentityProvider over the GoTrue REST API.
type Client struct {
	http    *http.Client
	baseURL string // e.g. "https://xyz.supabase.co"; "/auth/v1" is appended per call.
	apiKey  string
}

// NewClient creates a Client for the project at baseURL authenticated with apiKey.
// Requests carry a 30-second timeout as a safety net alongside context cancellation.
func NewClient(baseURL, apiKey string) *Client {
	return NewClientWithHTTPClient(&http.Client{Timeout: 30 * time.Second}, baseURL, apiKey)
}

// NewClientWithHTTPClient creates a Client with a custom http.Client.
// This constructor is intended for testing, allowing injection of an httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL, apiKey string) *Client {
	return &Client{
		http:    httpClient,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
	}
}

type passwordRequest struct {
	Email    string         `json:"email"`
	Password string         `json:"password"`
	Data     map[string]any `json:"data,omitempty"`
}

type userPayload struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	UserMetadata map[string]any `json:"user_metadata"`
}

// sessionPayload is the token endpoint response. The signup endpoint returns
// the same shape when autoconfirm is on, and a bare user otherwise.
type sessionPayload struct {
	AccessToken string       `json:"access_token"`
	User        *userPayload `json:"user"`
}

// errorPayload covers both the current ({code, error_code, msg}) and the
// legacy ({error, error_description}) GoTrue error shapes.
type errorPayload struct {
	Code             int    `json:"code"`
	ErrorCode        string `json:"error_code"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func (e errorPayload) message() string {
	for _, m := range []string{e.Msg, e.ErrorDescription, e.Message, e.Error} {
		if m != "" {
			return m
		}
	}
	return ""
}

// SignInWithPassword exchanges email and password for a session via the
// password grant.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*model.AuthResult, error) {
	body, status, err := c.post(ctx, "/token?grant_type=password", "", passwordRequest{Email: email, Password: password})
	if err != nil {
		return nil, fmt.Errorf("gotrue sign in: %w", err)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("gotrue sign in: %w", classifyError(status, body))
	}

	var payload sessionPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("gotrue sign in: decode response: %w", err)
	}
	if payload.User == nil || payload.User.ID == "" {
		// A 200 without a user is how a provider says "no": treat as rejected.
		return nil, fmt.Errorf("gotrue sign in: %w", model.ErrInvalidCredentials)
	}

	return &model.AuthResult{
		Account:       toAccount(*payload.User),
		ProviderToken: payload.AccessToken,
	}, nil
}

// SignUp registers a new account with role stored under user_metadata.role.
func (c *Client) SignUp(ctx context.Context, email, password string, role model.Role) (*model.Account, error) {
	req := passwordRequest{
		Email:    email,
		Password: password,
		Data:     map[string]any{"role": string(role)},
	}
	body, status, err := c.post(ctx, "/signup", "", req)
	if err != nil {
		return nil, fmt.Errorf("gotrue sign up: %w", err)
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return nil, fmt.Errorf("gotrue sign up: %w", classifyError(status, body))
	}

	var payload sessionPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("gotrue sign up: decode response: %w", err)
	}
	user := payload.User
	if user == nil {
		var bare userPayload
		if err := json.Unmarshal(body, &bare); err != nil {
			return nil, fmt.Errorf("gotrue sign up: decode user: %w", err)
		}
		user = &bare
	}
	if user.ID == "" {
		return nil, errors.New("gotrue sign up: could not create account")
	}

	acct := toAccount(*user)
	return &acct, nil
}

// SignOut revokes the access token. An empty token is a no-op.
func (c *Client) SignOut(ctx context.Context, providerToken string) error {
	if providerToken == "" {
		return nil
	}
	body, status, err := c.post(ctx, "/logout", providerToken, nil)
	if err != nil {
		return fmt.Errorf("gotrue sign out: %w", err)
	}
	// 401 means the token already expired upstream, which is the goal anyway.
	if status == http.StatusNoContent || status == http.StatusOK || status == http.StatusUnauthorized {
		return nil
	}
	return fmt.Errorf("gotrue sign out: %w", classifyError(status, body))
}

// post sends a JSON POST to /auth/v1{path}. bearer overrides the API key in
// the Authorization header when set.
func (c *Client) post(ctx context.Context, path, bearer string, payload any) ([]byte, int, error) {
	var reqBody io.Reader = http.NoBody
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, 0, fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/v1"+path, reqBody)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	if bearer == "" {
		bearer = c.apiKey
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+bearer)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read response: %w", err)
	}

	slog.Debug("gotrue request", "path", path, "status", resp.StatusCode)
	return body, resp.StatusCode, nil
}

// classifyError maps a non-success response onto the domain error taxonomy.
func classifyError(status int, body []byte) error {
	var payload errorPayload
	_ = json.Unmarshal(body, &payload)
	msg := payload.message()
	lower := strings.ToLower(msg)

	switch {
	case payload.ErrorCode == "invalid_credentials" || payload.Error == "invalid_grant" ||
		strings.Contains(lower, "invalid login credentials"):
		return model.ErrInvalidCredentials
	case payload.ErrorCode == "user_already_exists" || payload.ErrorCode == "email_exists" ||
		strings.Contains(lower, "already registered"):
		return model.ErrAccountExists
	}

	if msg == "" {
		msg = http.StatusText(status)
	}
	return fmt.Errorf("identity provider returned %d: %s", status, model.SingleLine(msg))
}

func toAccount(u userPayload) model.Account {
	return model.Account{
		ID:    u.ID,
		Email: u.Email,
		Role:  model.RoleFromMetadata(u.UserMetadata["role"]),
	}
}
