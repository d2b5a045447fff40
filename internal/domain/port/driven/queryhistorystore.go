package driven

import (
	"context"

	"github.com/ericfisherdev/swastyasetu/internal/domain/model"
)

// QueryHistoryStore defines the driven port for the console audit trail.
type QueryHistoryStore interface {
	Record(ctx context.Context, entry model.QueryHistoryEntry) error

	// ListRecent returns up to limit entries for principal, newest first.
	ListRecent(ctx context.Context, principal string, limit int) ([]model.QueryHistoryEntry, error)
}
