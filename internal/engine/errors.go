package engine

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/membercare/memberboard/internal/query"
	"github.com/membercare/memberboard/internal/warehouse"
)

// FailureClass classifies a query failure for retry policy.
type FailureClass int

const (
	// FailTimeout means the request exceeded its wall-clock budget. Transient.
	FailTimeout FailureClass = iota

	// FailNetwork means the warehouse could not be reached or answered with
	// a transport-level error. Transient.
	FailNetwork

	// FailRemote means the warehouse executed the statement and rejected it
	// (bad SQL, missing view, permissions). Terminal; retrying cannot help.
	FailRemote

	// FailCancelled means the caller abandoned the request. Internal
	// bookkeeping only, never surfaced to a panel.
	FailCancelled
)

// String returns the class name for logs.
func (c FailureClass) String() string {
	switch c {
	case FailTimeout:
		return "timeout"
	case FailNetwork:
		return "network"
	case FailRemote:
		return "remote"
	case FailCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Transient reports whether failures of this class are worth retrying.
func (c FailureClass) Transient() bool {
	return c == FailTimeout || c == FailNetwork
}

// QueryError is a classified query failure.
type QueryError struct {
	// Class drives retry policy.
	Class FailureClass

	// Identity is the query that failed.
	Identity query.Identity

	// Attempts is how many executor calls were made before giving up.
	Attempts int

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *QueryError) Error() string {
	return fmt.Sprintf("query %s failed (%s, %d attempt(s)): %v",
		e.Identity, e.Class, e.Attempts, e.Err)
}

// Unwrap exposes the underlying cause for errors.Is/As.
func (e *QueryError) Unwrap() error {
	return e.Err
}

// Transient reports whether the failure is retryable.
func (e *QueryError) Transient() bool {
	return e.Class.Transient()
}

// Classify maps an executor-level error onto a failure class.
// parent is the caller's context; a context error caused by the caller
// rather than the per-request deadline is classified as cancellation.
func Classify(parent context.Context, err error) FailureClass {
	if errors.Is(err, context.Canceled) || parent.Err() != nil {
		return FailCancelled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return FailTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return FailTimeout
	}

	var stmtErr *warehouse.StatementError
	if errors.As(err, &stmtErr) {
		return FailRemote
	}

	var transErr *warehouse.TransportError
	if errors.As(err, &transErr) && terminalStatus(transErr.StatusCode) {
		return FailRemote
	}

	return FailNetwork
}

// terminalStatus reports whether an HTTP status means the warehouse will
// keep rejecting the request (bad auth, bad request). 408 and 429 stay
// transient: the same request can succeed later.
func terminalStatus(code int) bool {
	if code == http.StatusRequestTimeout || code == http.StatusTooManyRequests {
		return false
	}
	return code >= 400 && code < 500
}
