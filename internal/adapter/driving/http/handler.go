package httphandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"mime"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/ericfisherdev/swastyasetu/internal/application"
	"github.com/ericfisherdev/swastyasetu/internal/domain/model"
)

const maxBodyBytes = 1 << 20

// Handler is the HTTP driving adapter that serves the REST API.
type Handler struct {
	authSvc    *application.AuthService
	consoleSvc *application.ConsoleService
	logger     *slog.Logger
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(
	authSvc *application.AuthService,
	consoleSvc *application.ConsoleService,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		authSvc:    authSvc,
		consoleSvc: consoleSvc,
		logger:     logger,
	}
}

// RegisterAPIRoutes registers the JSON API routes on mux. State-changing
// routes reject cross-origin browser requests.
func RegisterAPIRoutes(mux *http.ServeMux, h *Handler) {
	cop := http.NewCrossOriginProtection()
	mux.Handle("POST /api/v1/auth/login", cop.Handler(http.HandlerFunc(h.Login)))
	mux.Handle("POST /api/v1/auth/signup", cop.Handler(http.HandlerFunc(h.SignUp)))
	mux.Handle("POST /api/v1/auth/logout", cop.Handler(http.HandlerFunc(h.Logout)))
	mux.Handle("POST /api/v1/query", cop.Handler(http.HandlerFunc(h.Query)))
	mux.HandleFunc("GET /api/v1/health", h.Health)
}

// ApplyMiddleware wraps next with recovery and request logging.
func ApplyMiddleware(next http.Handler, logger *slog.Logger) http.Handler {
	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, next)
	return loggingMiddleware(logger, wrapped)
}

// Login exchanges credentials for a session bearer token.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	session, token, err := h.authSvc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrMissingConfiguration):
			writeError(w, http.StatusServiceUnavailable, "identity provider is not configured")
		case errors.Is(err, model.ErrInvalidCredentials):
			writeError(w, http.StatusUnauthorized, "invalid credentials")
		default:
			h.logger.Error("login failed", "error", err)
			writeError(w, http.StatusBadGateway, "identity provider error")
		}
		return
	}

	writeJSON(w, http.StatusOK, LoginResponse{
		Token:     token,
		Email:     session.Email,
		Role:      session.Role.String(),
		ExpiresAt: session.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

// SignUp registers a new account. It does not return a session.
func (h *Handler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req SignUpRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	role, err := model.ParseRole(req.Role)
	if err != nil {
		writeError(w, http.StatusBadRequest, "role must be one of Hospital, Doctor, Government, Admin")
		return
	}

	acct, err := h.authSvc.SignUp(r.Context(), model.Credential{Email: req.Email, Password: req.Password, Role: role})
	if err != nil {
		switch {
		case errors.Is(err, model.ErrMissingConfiguration):
			writeError(w, http.StatusServiceUnavailable, "identity provider is not configured")
		case errors.Is(err, model.ErrAccountExists):
			writeError(w, http.StatusConflict, "account already exists")
		default:
			h.logger.Warn("sign up failed", "error", err)
			writeError(w, http.StatusUnprocessableEntity, model.SingleLine(err.Error()))
		}
		return
	}

	writeJSON(w, http.StatusCreated, AccountResponse{ID: acct.ID, Email: acct.Email, Role: acct.Role.String()})
}

// Logout ends the session named by the bearer token.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "missing bearer token")
		return
	}

	if err := h.authSvc.Logout(r.Context(), token); err != nil {
		h.logger.Error("logout failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Query runs a console statement. The bearer token is optional; without one
// the statement runs as the anonymous principal keyed by client address.
func (h *Handler) Query(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	principal := model.AnonymousPrincipal
	key := "addr:" + clientHost(r)
	if token := bearerToken(r); token != "" {
		session, err := h.authSvc.Authenticate(r.Context(), token)
		if err != nil {
			if errors.Is(err, model.ErrSessionNotFound) || errors.Is(err, model.ErrSessionExpired) {
				writeError(w, http.StatusUnauthorized, "invalid or expired session")
				return
			}
			h.logger.Error("failed to resolve session", "error", err)
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		principal = session.Email
		key = "session:" + session.ID
	}

	res, err := h.consoleSvc.Execute(r.Context(), model.QueryRequest{Text: req.SQL, Principal: principal, Key: key})
	if err != nil {
		var dbErr *model.DatabaseError
		switch {
		case errors.Is(err, model.ErrEmptyQuery):
			writeError(w, http.StatusBadRequest, "query is empty")
		case errors.Is(err, model.ErrMissingConfiguration):
			writeError(w, http.StatusServiceUnavailable, "database is not configured")
		case errors.Is(err, model.ErrQueryInFlight):
			writeError(w, http.StatusConflict, "a query from this client is still running")
		case errors.As(err, &dbErr):
			writeError(w, http.StatusUnprocessableEntity, dbErr.Message)
		default:
			h.logger.Error("query failed", "error", err)
			writeError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	writeJSON(w, http.StatusOK, toQueryResponse(res))
}

// Health returns a simple health check response.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}

// decodeJSON only accepts application/json bodies. Browsers cannot send that
// media type cross-site without a CORS preflight, which this API never grants.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "application/json" {
		writeError(w, http.StatusUnsupportedMediaType, "content type must be application/json")
		return false
	}

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(auth, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func clientHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
