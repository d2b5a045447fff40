package model

import (
	"fmt"
	"time"
)

// ExecutionMode controls how far the console trusts the operator.
type ExecutionMode string

const (
	// ExecutionModeTrusted runs statements as-is and commits them.
	ExecutionModeTrusted ExecutionMode = "trusted"
	// ExecutionModeReadOnly runs statements in a read-only transaction that
	// is always rolled back.
	ExecutionModeReadOnly ExecutionMode = "read_only"
)

// ParseExecutionMode validates a configured execution mode.
func ParseExecutionMode(s string) (ExecutionMode, error) {
	switch ExecutionMode(s) {
	case ExecutionModeTrusted, ExecutionModeReadOnly:
		return ExecutionMode(s), nil
	default:
		return "", fmt.Errorf("unknown execution mode %q (want %q or %q)", s, ExecutionModeTrusted, ExecutionModeReadOnly)
	}
}

// AnonymousPrincipal is recorded for console submissions without a session.
const AnonymousPrincipal = "anonymous"

// QueryRequest is one console submission.
type QueryRequest struct {
	Text      string
	Principal string
	// Key identifies the submitter for the in-flight guard.
	Key string
}

// ResultKind discriminates QueryResult.
type ResultKind string

const (
	ResultKindRows     ResultKind = "rows"
	ResultKindAffected ResultKind = "affected"
)

// QueryResult is either a materialized result set (ResultKindRows) or a
// commit acknowledgment (ResultKindAffected). Columns and Rows keep the
// order the database returned them in.
type QueryResult struct {
	Kind     ResultKind
	Columns  []string
	Rows     [][]any
	Duration time.Duration
}

// HasRows reports whether the result is the result-set variant.
func (r QueryResult) HasRows() bool {
	return r.Kind == ResultKindRows
}

// HistoryStatus is the recorded outcome of an execution.
type HistoryStatus string

const (
	HistoryStatusRows     HistoryStatus = "rows"
	HistoryStatusAffected HistoryStatus = "affected"
	HistoryStatusFailed   HistoryStatus = "failed"
)

// QueryHistoryEntry records one execution that reached the database.
type QueryHistoryEntry struct {
	ID           int64
	Principal    string
	SQL          string
	Status       HistoryStatus
	ErrorMessage string
	RowCount     int
	Duration     time.Duration
	CreatedAt    time.Time
}
