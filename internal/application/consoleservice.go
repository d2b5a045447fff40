package application

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ericfisherdev/swastyasetu/internal/domain/model"
	"github.com/ericfisherdev/swastyasetu/internal/domain/port/driven"
)

// ConsoleService fronts the query executor: it rejects empty input before
// any database contact, allows one outstanding submission per key, bounds
// execution time, and records the outcome in the query history.
// A nil executor means the console database is not configured.
type ConsoleService struct {
	executor driven.QueryExecutor
	history  driven.QueryHistoryStore
	timeout  time.Duration
	guard    *inFlightGuard
	logger   *slog.Logger
}

// NewConsoleService creates a ConsoleService. executor may be nil.
func NewConsoleService(
	executor driven.QueryExecutor,
	history driven.QueryHistoryStore,
	timeout time.Duration,
	logger *slog.Logger,
) *ConsoleService {
	return &ConsoleService{
		executor: executor,
		history:  history,
		timeout:  timeout,
		guard:    newInFlightGuard(),
		logger:   logger,
	}
}

// Configured reports whether a console database is available.
func (s *ConsoleService) Configured() bool {
	return s.executor != nil
}

// Mode returns the executor's execution mode, or trusted when unconfigured.
func (s *ConsoleService) Mode() model.ExecutionMode {
	if s.executor == nil {
		return model.ExecutionModeTrusted
	}
	return s.executor.Mode()
}

// Execute runs req.Text. Errors are model.ErrEmptyQuery,
// model.ErrMissingConfiguration, model.ErrQueryInFlight, or *model.DatabaseError.
func (s *ConsoleService) Execute(ctx context.Context, req model.QueryRequest) (model.QueryResult, error) {
	if strings.TrimSpace(req.Text) == "" {
		return model.QueryResult{}, model.ErrEmptyQuery
	}
	if s.executor == nil {
		return model.QueryResult{}, model.ErrMissingConfiguration
	}

	release, ok := s.guard.acquire(req.Key)
	if !ok {
		return model.QueryResult{}, model.ErrQueryInFlight
	}
	defer release()

	principal := req.Principal
	if principal == "" {
		principal = model.AnonymousPrincipal
	}

	execCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	result, err := s.executor.Execute(execCtx, req.Text)
	elapsed := time.Since(start)

	entry := model.QueryHistoryEntry{
		Principal: principal,
		SQL:       req.Text,
		Duration:  elapsed,
		CreatedAt: start.UTC(),
	}
	switch {
	case err != nil:
		entry.Status = model.HistoryStatusFailed
		var dbErr *model.DatabaseError
		if errors.As(err, &dbErr) {
			entry.ErrorMessage = dbErr.Message
		} else {
			entry.ErrorMessage = model.SingleLine(err.Error())
		}
	case result.HasRows():
		entry.Status = model.HistoryStatusRows
		entry.RowCount = len(result.Rows)
	default:
		entry.Status = model.HistoryStatusAffected
	}
	s.record(ctx, entry)

	if err != nil {
		s.logger.Info("console query failed", "principal", principal, "duration", elapsed, "error", entry.ErrorMessage)
		return model.QueryResult{}, err
	}
	s.logger.Info("console query executed", "principal", principal, "kind", result.Kind, "rows", entry.RowCount, "duration", elapsed)
	return result, nil
}

// RecentHistory returns up to limit history entries for principal, newest first.
func (s *ConsoleService) RecentHistory(ctx context.Context, principal string, limit int) ([]model.QueryHistoryEntry, error) {
	if principal == "" {
		principal = model.AnonymousPrincipal
	}
	if s.history == nil {
		return nil, nil
	}
	return s.history.ListRecent(ctx, principal, limit)
}

// record stores entry without letting a history failure mask the query outcome.
func (s *ConsoleService) record(ctx context.Context, entry model.QueryHistoryEntry) {
	if s.history == nil {
		return
	}
	if err := s.history.Record(context.WithoutCancel(ctx), entry); err != nil {
		s.logger.Error("failed to record query history", "principal", entry.Principal, "error", err)
	}
}

// inFlightGuard admits at most one holder per key.
type inFlightGuard struct {
	mu   sync.Mutex
	keys map[string]struct{}
}

func newInFlightGuard() *inFlightGuard {
	return &inFlightGuard{keys: make(map[string]struct{})}
}

// acquire claims key. It returns false when key is already held; otherwise
// the returned func releases it.
func (g *inFlightGuard) acquire(key string) (func(), bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, busy := g.keys[key]; busy {
		return nil, false
	}
	g.keys[key] = struct{}{}

	return func() {
		g.mu.Lock()
		delete(g.keys, key)
		g.mu.Unlock()
	}, true
}
