// Package query defines the dashboard's named query catalog and the
// canonical identity used to key caching and request coalescing.
//
// An Identity is a view name plus its canonicalized parameters; it is the
// single currency passed between the coordinator, the cache, the panel
// registry and the refresh scheduler. The catalog maps each logical view
// (membership KPIs, product mix, age distribution, region summary, chronic
// conditions) to the SQL statement that computes it within a configured
// warehouse catalog and schema.
package query
