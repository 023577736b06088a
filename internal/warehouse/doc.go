// Package warehouse is the dashboard's client for the remote SQL
// warehouse's statement-execution REST API.
//
// The client is a thin collaborator: it sends one statement per call,
// scoped to the configured catalog and schema, and decodes the positional
// data_array response into named rows. It performs no caching, no retries
// and no timeout policy of its own; those concerns belong to the query
// engine, which drives this client through a context.
package warehouse
