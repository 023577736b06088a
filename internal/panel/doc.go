// Package panel binds dashboard regions to the queries they depend on.
//
// Each region subscribes to one or more query identities and receives a
// reactive RegionState: Loading while its queries are unsettled, Ready once
// they all resolve, Failed when a required query fails with no data to fall
// back on. Regions are independent by construction; a region whose data
// arrives first renders first, regardless of how slow or broken a sibling
// region's queries are. This is what turns N latency-variable warehouse
// queries into a progressively loading dashboard.
package panel
