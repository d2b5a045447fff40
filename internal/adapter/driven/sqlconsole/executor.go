// Package sqlconsole implements the QueryExecutor port: it runs one operator
// statement per call over a freshly opened database/sql connection and
// classifies the outcome as a result set or a commit acknowledgment.
package sqlconsole

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"github.com/ericfisherdev/swastyasetu/internal/domain/model"
	"github.com/ericfisherdev/swastyasetu/internal/domain/port/driven"
)

// DriverPostgres is the database/sql driver name registered by lib/pq.
const DriverPostgres = "postgres"

// Compile-time interface satisfaction check.
var _ driven.QueryExecutor = (*Executor)(nil)

// OpenFunc opens a scoped database handle. The executor closes it before returning.
type OpenFunc func() (*sql.DB, error)

// Executor runs console statements. It holds no connection between calls.
type Executor struct {
	open   OpenFunc
	mode   model.ExecutionMode
	logger *slog.Logger
}

// NewExecutor creates an Executor for driverName/dsn. No connection is made
// until Execute is called.
func NewExecutor(driverName, dsn string, mode model.ExecutionMode, logger *slog.Logger) *Executor {
	return NewExecutorWithOpener(func() (*sql.DB, error) {
		return sql.Open(driverName, dsn)
	}, mode, logger)
}

// NewExecutorWithOpener creates an Executor around a custom opener.
// This constructor is intended for testing.
func NewExecutorWithOpener(open OpenFunc, mode model.ExecutionMode, logger *slog.Logger) *Executor {
	return &Executor{open: open, mode: mode, logger: logger}
}

// Mode reports the execution mode this executor enforces.
func (e *Executor) Mode() model.ExecutionMode {
	return e.mode
}

// Execute runs text as-is inside one transaction on a dedicated connection.
// A statement that reports result columns yields the rows variant; anything
// else yields the affected variant. In trusted mode the transaction is
// committed once on success; in read-only mode it is always rolled back.
// The connection is closed on every return path.
func (e *Executor) Execute(ctx context.Context, text string) (model.QueryResult, error) {
	start := time.Now()

	db, err := e.open()
	if err != nil {
		return model.QueryResult{}, databaseError(ctx, err)
	}
	db.SetMaxOpenConns(1)
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			e.logger.Error("error closing console connection", "error", closeErr)
		}
	}()

	readOnly := e.mode == model.ExecutionModeReadOnly
	tx, err := db.BeginTx(ctx, &sql.TxOptions{ReadOnly: readOnly})
	if err != nil {
		return model.QueryResult{}, databaseError(ctx, err)
	}
	committed := false
	defer func() {
		if committed {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			e.logger.Warn("error rolling back console transaction", "error", rbErr)
		}
	}()

	result, err := runStatement(ctx, tx, text)
	if err != nil {
		return model.QueryResult{}, databaseError(ctx, err)
	}

	if !readOnly {
		if err := tx.Commit(); err != nil {
			return model.QueryResult{}, databaseError(ctx, err)
		}
		committed = true
	}

	result.Duration = time.Since(start)
	return result, nil
}

// runStatement executes text and materializes whatever the driver reports.
// Rows are always drained so drivers that step lazily still run the statement.
func runStatement(ctx context.Context, tx *sql.Tx, text string) (model.QueryResult, error) {
	rows, err := tx.QueryContext(ctx, text)
	if err != nil {
		return model.QueryResult{}, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return model.QueryResult{}, fmt.Errorf("read columns: %w", err)
	}

	if len(columns) == 0 {
		for rows.Next() {
			// drain
		}
		if err := rows.Err(); err != nil {
			return model.QueryResult{}, err
		}
		return model.QueryResult{Kind: model.ResultKindAffected}, nil
	}

	data := [][]any{}
	for rows.Next() {
		values := make([]any, len(columns))
		pointers := make([]any, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return model.QueryResult{}, fmt.Errorf("scan row %d: %w", len(data)+1, err)
		}
		for i, v := range values {
			// Drivers hand back text-encoded values as []byte.
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		data = append(data, values)
	}
	if err := rows.Err(); err != nil {
		return model.QueryResult{}, err
	}

	return model.QueryResult{
		Kind:    model.ResultKindRows,
		Columns: columns,
		Rows:    data,
	}, nil
}

// databaseError converts any driver failure into a single-line
// *model.DatabaseError. PostgreSQL errors keep their SQLSTATE. An expired
// ctx wins over the driver error because lib/pq reports a deadline as a
// server-side cancel (SQLSTATE 57014).
func databaseError(ctx context.Context, err error) *model.DatabaseError {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return &model.DatabaseError{Message: "query timed out", Err: err}
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		msg := pqErr.Message
		if pqErr.Detail != "" {
			msg += ": " + pqErr.Detail
		}
		return &model.DatabaseError{
			Message: model.SingleLine(fmt.Sprintf("%s (SQLSTATE %s)", msg, pqErr.Code)),
			Err:     err,
		}
	}
	return model.NewDatabaseError(err)
}
