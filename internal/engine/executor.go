package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/membercare/memberboard/internal/query"
	"github.com/membercare/memberboard/internal/warehouse"
)

// DefaultRequestTimeout is the wall-clock budget for one statement when no
// timeout is configured.
const DefaultRequestTimeout = 30 * time.Second

// Executor runs one logical query and classifies failures.
// Implementations make exactly one network call per invocation and never
// retry; retry policy lives in the Coordinator so retry counting stays
// visible and testable independently of transport.
type Executor interface {
	Execute(ctx context.Context, id query.Identity) (*warehouse.ResultSet, error)
}

// StatementExecutor resolves an identity through the view catalog and runs
// the resulting SQL against the warehouse under a hard timeout.
type StatementExecutor struct {
	client  warehouse.Client
	scope   query.Scope
	timeout time.Duration
	logger  zerolog.Logger
}

// NewStatementExecutor creates an executor for the given warehouse client
// and catalog/schema scope. timeout of 0 means DefaultRequestTimeout.
func NewStatementExecutor(
	client warehouse.Client,
	scope query.Scope,
	timeout time.Duration,
	logger zerolog.Logger,
) *StatementExecutor {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return &StatementExecutor{
		client:  client,
		scope:   scope,
		timeout: timeout,
		logger:  logger,
	}
}

// Execute runs the identity's query once.
// On timeout the underlying call is abandoned client-side; the warehouse is
// not guaranteed to cancel the statement remotely. Errors are returned as
// *QueryError with Attempts set to 1.
func (e *StatementExecutor) Execute(ctx context.Context, id query.Identity) (*warehouse.ResultSet, error) {
	view, ok := query.Lookup(id.Name())
	if !ok {
		return nil, &QueryError{
			Class:    FailRemote,
			Identity: id,
			Attempts: 1,
			Err:      fmt.Errorf("unknown view %q", id.Name()),
		}
	}

	statement := view.SQL(e.scope, id.Params())

	reqCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := time.Now()
	result, err := e.client.Execute(reqCtx, statement)
	if err != nil {
		class := Classify(ctx, err)
		e.logger.Warn().
			Stringer("query", id).
			Stringer("class", class).
			Dur("duration", time.Since(start)).
			Err(err).
			Msg("query execution failed")
		return nil, &QueryError{Class: class, Identity: id, Attempts: 1, Err: err}
	}

	e.logger.Debug().
		Stringer("query", id).
		Int("rows", result.RowCount()).
		Dur("duration", time.Since(start)).
		Msg("query executed")
	return result, nil
}
