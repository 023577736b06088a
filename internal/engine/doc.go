// Package engine is the client-side query execution engine behind the
// dashboard.
//
// The Executor turns one query identity into one statement execution under
// a hard timeout and classifies failures as transient (timeout, network) or
// terminal (remote query error). The Coordinator sits above it: it serves
// fresh cache hits without a network call, coalesces concurrent requests
// for the same identity into a single flight, retries transient failures
// with capped exponential backoff inside that flight, applies completions
// in order so a slow stale fetch never clobbers fresher data, falls back to
// flagged stale results when a refresh fails, and fans settled outcomes out
// to per-identity watchers. Each identity settles independently; that
// independence is what lets every dashboard panel render as soon as its own
// data is ready.
package engine
