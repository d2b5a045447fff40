package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/ericfisherdev/swastyasetu/internal/domain/model"
	"github.com/ericfisherdev/swastyasetu/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.QueryHistoryStore = (*HistoryRepo)(nil)

// HistoryRepo is the SQLite implementation of the QueryHistoryStore port interface.
type HistoryRepo struct {
	db *DB
}

// NewHistoryRepo creates a new HistoryRepo backed by the given DB.
func NewHistoryRepo(db *DB) *HistoryRepo {
	return &HistoryRepo{db: db}
}

// Record appends one execution to the history.
func (r *HistoryRepo) Record(ctx context.Context, e model.QueryHistoryEntry) error {
	const query = `INSERT INTO query_history
		(principal, sql_text, status, error_message, row_count, duration_us, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	createdAt := e.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := r.db.Writer.ExecContext(ctx, query,
		e.Principal, e.SQL, string(e.Status), e.ErrorMessage, e.RowCount, e.Duration.Microseconds(), createdAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("record query history for %s: %w", e.Principal, err)
	}
	return nil
}

// ListRecent returns up to limit entries for principal, newest first.
func (r *HistoryRepo) ListRecent(ctx context.Context, principal string, limit int) ([]model.QueryHistoryEntry, error) {
	const query = `SELECT id, principal, sql_text, status, error_message, row_count, duration_us, created_at
		FROM query_history WHERE principal = ? ORDER BY id DESC LIMIT ?`

	rows, err := r.db.Reader.QueryContext(ctx, query, principal, limit)
	if err != nil {
		return nil, fmt.Errorf("list query history for %s: %w", principal, err)
	}
	defer rows.Close()

	entries := []model.QueryHistoryEntry{}
	for rows.Next() {
		var (
			e                     model.QueryHistoryEntry
			status                string
			durationUS, createdAt int64
		)
		if err := rows.Scan(&e.ID, &e.Principal, &e.SQL, &status, &e.ErrorMessage, &e.RowCount, &durationUS, &createdAt); err != nil {
			return nil, fmt.Errorf("scan query history: %w", err)
		}
		e.Status = model.HistoryStatus(status)
		e.Duration = time.Duration(durationUS) * time.Microsecond
		e.CreatedAt = time.UnixMilli(createdAt).UTC()
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate query history: %w", err)
	}

	return entries, nil
}
