package driven

import (
	"context"

	"github.com/ericfisherdev/swastyasetu/internal/domain/model"
)

// QueryExecutor defines the driven port for running one console statement
// against the configured database. Implementations open and close their own
// connection per call and never alter the statement text.
type QueryExecutor interface {
	// Execute runs text and classifies the outcome. Database failures are
	// returned as *model.DatabaseError.
	Execute(ctx context.Context, text string) (model.QueryResult, error)

	// Mode reports the execution mode the executor enforces.
	Mode() model.ExecutionMode
}
