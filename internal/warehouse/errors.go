package warehouse

import "fmt"

// StatementError reports a statement the warehouse accepted but could not
// execute (bad SQL, missing view, permission denied). It is a terminal
// failure: re-sending the same statement will fail the same way.
type StatementError struct {
	// State is the terminal statement state (FAILED, CANCELED, CLOSED).
	State string

	// Code is the warehouse error code, when reported.
	Code string

	// Message is the human-readable failure reason.
	Message string
}

// Error implements the error interface.
func (e *StatementError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("statement %s", e.State)
	}
	return fmt.Sprintf("statement %s: %s", e.State, e.Message)
}

// TransportError reports a failure to get a statement result over HTTP
// (connection refused, DNS failure, non-200 status). StatusCode lets the
// caller separate retryable transport trouble from requests the warehouse
// will keep rejecting, such as bad credentials.
type TransportError struct {
	// StatusCode is the HTTP status, or 0 when no response was received.
	StatusCode int

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("warehouse returned HTTP %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("warehouse unreachable: %v", e.Err)
}

// Unwrap exposes the underlying cause for errors.Is/As.
func (e *TransportError) Unwrap() error {
	return e.Err
}
