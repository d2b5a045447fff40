// Package web implements the HTML GUI driving adapter using templ components.
package web

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/a-h/templ"

	"github.com/ericfisherdev/swastyasetu/internal/adapter/driving/web/templates"
	"github.com/ericfisherdev/swastyasetu/internal/adapter/driving/web/templates/pages"
	vm "github.com/ericfisherdev/swastyasetu/internal/adapter/driving/web/viewmodel"
	"github.com/ericfisherdev/swastyasetu/internal/application"
	"github.com/ericfisherdev/swastyasetu/internal/domain/model"
)

const (
	sessionCookieName = "swastyasetu_session"
	historyLimit      = 20

	missingIdentityConfig = "Missing identity provider credentials. Please set SUPABASE_URL and SUPABASE_KEY."
	missingDatabaseConfig = "Missing database configuration. Please set DB_HOST, DB_NAME, DB_USER and DB_PASSWORD."
)

// Handler is the web GUI driving adapter that serves HTML via templ components.
type Handler struct {
	authSvc    *application.AuthService
	consoleSvc *application.ConsoleService
	noticeHTML string
	logger     *slog.Logger
}

// NewHandler creates a Handler. notice is the console operator notice in markdown.
func NewHandler(
	authSvc *application.AuthService,
	consoleSvc *application.ConsoleService,
	notice string,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		authSvc:    authSvc,
		consoleSvc: consoleSvc,
		noticeHTML: RenderMarkdown(notice),
		logger:     logger,
	}
}

// AuthPage renders the login / create account page.
func (h *Handler) AuthPage(w http.ResponseWriter, r *http.Request) {
	data := h.authPageData(w, r)
	if r.URL.Query().Get("tab") == vm.TabSignUp {
		data.ActiveTab = vm.TabSignUp
	}

	status := http.StatusOK
	if data.ConfigError != "" {
		status = http.StatusServiceUnavailable
	}
	h.render(w, r, status, "SwastyaSetu", "/", pages.Auth(data))
}

// Login verifies the submitted credentials and, on success, sets the session
// cookie and redirects back to the auth page.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if !validateCSRF(r) {
		http.Error(w, "invalid CSRF token", http.StatusForbidden)
		return
	}

	email := r.FormValue("email")
	session, token, err := h.authSvc.Login(r.Context(), email, r.FormValue("password"))
	if err != nil {
		data := h.authPageData(w, r)
		data.ActiveTab = vm.TabLogin
		data.LoginEmail = email

		var status int
		switch {
		case errors.Is(err, model.ErrMissingConfiguration):
			status = http.StatusServiceUnavailable
		case errors.Is(err, model.ErrInvalidCredentials):
			status = http.StatusUnauthorized
			data.Flash = errorFlash("Invalid credentials")
		default:
			h.logger.Error("login failed", "error", err)
			status = http.StatusBadGateway
			data.Flash = errorFlash("Error: " + model.SingleLine(err.Error()))
		}
		h.render(w, r, status, "SwastyaSetu", "/", pages.Auth(data))
		return
	}

	setSessionCookie(w, r, token, session.ExpiresAt)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// SignUp registers a new account with the chosen role. It does not log in.
func (h *Handler) SignUp(w http.ResponseWriter, r *http.Request) {
	if !validateCSRF(r) {
		http.Error(w, "invalid CSRF token", http.StatusForbidden)
		return
	}

	email := r.FormValue("email")
	data := h.authPageData(w, r)
	data.ActiveTab = vm.TabSignUp
	data.SignUpEmail = email
	data.SignUpRole = r.FormValue("role")
	if data.ConfigError != "" {
		h.render(w, r, http.StatusServiceUnavailable, "SwastyaSetu", "/", pages.Auth(data))
		return
	}

	role, err := model.ParseRole(r.FormValue("role"))
	if err != nil {
		data.Flash = errorFlash("Please choose one of the listed roles.")
		h.render(w, r, http.StatusBadRequest, "SwastyaSetu", "/", pages.Auth(data))
		return
	}

	acct, err := h.authSvc.SignUp(r.Context(), model.Credential{
		Email:    email,
		Password: r.FormValue("password"),
		Role:     role,
	})
	if err != nil {
		status := http.StatusUnprocessableEntity
		switch {
		case errors.Is(err, model.ErrMissingConfiguration):
			status = http.StatusServiceUnavailable
		case errors.Is(err, model.ErrAccountExists):
			status = http.StatusConflict
			data.Flash = errorFlash("An account with this email already exists.")
		default:
			h.logger.Warn("sign up failed", "error", err)
			data.Flash = errorFlash("Could not create account: " + model.SingleLine(err.Error()))
		}
		h.render(w, r, status, "SwastyaSetu", "/", pages.Auth(data))
		return
	}

	data.SignUpEmail = ""
	data.Flash = &vm.Flash{Kind: "success", Message: "Account created for " + acct.Email + " as " + string(role)}
	h.render(w, r, http.StatusOK, "SwastyaSetu", "/", pages.Auth(data))
}

// Logout ends the current session and clears the session cookie.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if !validateCSRF(r) {
		http.Error(w, "invalid CSRF token", http.StatusForbidden)
		return
	}

	if cookie, err := r.Cookie(sessionCookieName); err == nil && cookie.Value != "" {
		if err := h.authSvc.Logout(r.Context(), cookie.Value); err != nil {
			h.logger.Error("logout failed", "error", err)
		}
	}
	clearSessionCookie(w, r)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// ConsolePage renders the query console with an empty editor.
func (h *Handler) ConsolePage(w http.ResponseWriter, r *http.Request) {
	data, _ := h.consolePageData(w, r)

	status := http.StatusOK
	if data.ConfigError != "" {
		status = http.StatusServiceUnavailable
	} else {
		data.History = h.history(r, data.Principal)
	}
	h.render(w, r, status, "Query Console - SwastyaSetu", "/console", pages.Console(data))
}

// RunQuery executes the submitted SQL and renders its result or status.
func (h *Handler) RunQuery(w http.ResponseWriter, r *http.Request) {
	if !validateCSRF(r) {
		http.Error(w, "invalid CSRF token", http.StatusForbidden)
		return
	}

	data, session := h.consolePageData(w, r)
	data.SQL = r.FormValue("sql")

	key := "csrf:" + data.CSRFToken
	if session != nil {
		key = "session:" + session.ID
	}

	res, err := h.consoleSvc.Execute(r.Context(), model.QueryRequest{
		Text:      data.SQL,
		Principal: data.Principal,
		Key:       key,
	})

	status := http.StatusOK
	var dbErr *model.DatabaseError
	switch {
	case errors.Is(err, model.ErrMissingConfiguration):
		status = http.StatusServiceUnavailable
		data.ConfigError = missingDatabaseConfig
	case errors.Is(err, model.ErrEmptyQuery):
		status = http.StatusBadRequest
		data.Flash = errorFlash("Please enter a SQL query.")
	case errors.Is(err, model.ErrQueryInFlight):
		status = http.StatusConflict
		data.Flash = errorFlash("A query from this session is still running. Wait for it to finish.")
	case errors.As(err, &dbErr):
		status = http.StatusUnprocessableEntity
		data.Flash = errorFlash("Error: " + dbErr.Message)
	case err != nil:
		h.logger.Error("console query failed", "error", err)
		status = http.StatusInternalServerError
		data.Flash = errorFlash("The query could not be executed.")
	case res.HasRows():
		data.Result = toResultViewModel(res)
	default:
		data.Flash = &vm.Flash{Kind: "success", Message: "Query executed successfully in " + formatDuration(res.Duration) + "."}
	}

	if data.ConfigError == "" {
		data.History = h.history(r, data.Principal)
	}
	h.render(w, r, status, "Query Console - SwastyaSetu", "/console", pages.Console(data))
}

func (h *Handler) authPageData(w http.ResponseWriter, r *http.Request) vm.AuthPageViewModel {
	data := vm.AuthPageViewModel{
		CSRFToken: csrfToken(w, r),
		ActiveTab: vm.TabLogin,
		Roles:     roleNames(),
	}
	if !h.authSvc.Configured() {
		data.ConfigError = missingIdentityConfig
		return data
	}
	if session := h.currentSession(w, r); session != nil {
		data.SignedIn = &vm.SignedInViewModel{Email: session.Email, Role: session.Role.String()}
	}
	return data
}

func (h *Handler) consolePageData(w http.ResponseWriter, r *http.Request) (vm.ConsolePageViewModel, *model.Session) {
	mode := h.consoleSvc.Mode()
	data := vm.ConsolePageViewModel{
		CSRFToken:  csrfToken(w, r),
		NoticeHTML: h.noticeHTML,
		Mode:       string(mode),
		ReadOnly:   mode == model.ExecutionModeReadOnly,
		Principal:  model.AnonymousPrincipal,
	}
	if !h.consoleSvc.Configured() {
		data.ConfigError = missingDatabaseConfig
	}

	session := h.currentSession(w, r)
	if session != nil {
		data.Principal = session.Email
		data.SignedIn = true
	}
	return data, session
}

func (h *Handler) history(r *http.Request, principal string) []vm.HistoryRowViewModel {
	entries, err := h.consoleSvc.RecentHistory(r.Context(), principal, historyLimit)
	if err != nil {
		h.logger.Error("failed to load query history", "principal", principal, "error", err)
		return nil
	}
	return toHistoryViewModels(entries)
}

// currentSession resolves the session cookie. Stale cookies are cleared.
func (h *Handler) currentSession(w http.ResponseWriter, r *http.Request) *model.Session {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}

	session, err := h.authSvc.Authenticate(r.Context(), cookie.Value)
	if err != nil {
		if !errors.Is(err, model.ErrSessionNotFound) && !errors.Is(err, model.ErrSessionExpired) {
			h.logger.Error("failed to resolve session", "error", err)
		}
		clearSessionCookie(w, r)
		return nil
	}
	return session
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, title, activePath string, body templ.Component) {
	nav := []templates.NavLink{
		{Label: "Account", Href: "/", Active: activePath == "/"},
		{Label: "Query Console", Href: "/console", Active: activePath == "/console"},
	}

	var buf bytes.Buffer
	if err := templates.Layout(title, nav, body).Render(r.Context(), &buf); err != nil {
		h.logger.Error("failed to render page", "path", r.URL.Path, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func errorFlash(msg string) *vm.Flash {
	return &vm.Flash{Kind: "error", Message: msg}
}

func setSessionCookie(w http.ResponseWriter, r *http.Request, token string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   r.TLS != nil,
	})
}

func clearSessionCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   r.TLS != nil,
	})
}
