package httphandler

import (
	"encoding/json"
	"net/http"

	"github.com/ericfisherdev/swastyasetu/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// LoginRequest is the expected JSON body for POST /api/v1/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse carries the session bearer token.
type LoginResponse struct {
	Token     string `json:"token"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	ExpiresAt string `json:"expires_at"`
}

// SignUpRequest is the expected JSON body for POST /api/v1/auth/signup.
type SignUpRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// AccountResponse is the JSON representation of a created account.
type AccountResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// QueryRequest is the expected JSON body for POST /api/v1/query.
type QueryRequest struct {
	SQL string `json:"sql"`
}

// QueryResponse is the JSON representation of a QueryResult. Columns and
// rows are empty for the affected variant.
type QueryResponse struct {
	Kind       string   `json:"kind"`
	Columns    []string `json:"columns"`
	Rows       [][]any  `json:"rows"`
	DurationMS float64  `json:"duration_ms"`
}

// HealthResponse is the JSON representation of a health check.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

func toQueryResponse(res model.QueryResult) QueryResponse {
	columns := res.Columns
	if columns == nil {
		columns = []string{}
	}
	rows := res.Rows
	if rows == nil {
		rows = [][]any{}
	}
	return QueryResponse{
		Kind:       string(res.Kind),
		Columns:    columns,
		Rows:       rows,
		DurationMS: float64(res.Duration.Microseconds()) / 1000,
	}
}
