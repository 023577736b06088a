package query

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Scope names the catalog and schema every view query is resolved against.
type Scope struct {
	Catalog string
	Schema  string
}

// qualify returns the fully qualified name of a view or table in the scope.
func (s Scope) qualify(object string) string {
	return fmt.Sprintf("%s.%s.%s", s.Catalog, s.Schema, object)
}

// View describes one named dashboard query.
type View struct {
	// Name is the logical view key (e.g. "membership_kpis").
	Name string

	// Title is the human-readable panel heading.
	Title string

	// Description is a one-line summary shown in `memberboard views`.
	Description string

	// TTL overrides the default cache TTL for this view (0 = use default).
	TTL time.Duration

	// build renders the SQL statement for the view within a scope.
	build func(s Scope, params map[string]string) string
}

// SQL renders the view's SQL statement for the given scope and parameters.
func (v View) SQL(s Scope, params map[string]string) string {
	return v.build(s, params)
}

// Identity returns the cache identity for this view with the given parameters.
func (v View) Identity(params map[string]string) Identity {
	return NewIdentity(v.Name, params)
}

// Known view names.
const (
	ViewMembershipKPIs    = "membership_kpis"
	ViewProductMix        = "product_mix"
	ViewAgeDistribution   = "age_distribution"
	ViewRegionSummary     = "region_summary"
	ViewChronicConditions = "chronic_conditions"
)

// defaultKPIMonths is the number of trailing months shown on the KPI panel.
const defaultKPIMonths = 12

// ageRangeOrder sorts age buckets in ascending demographic order rather than
// lexically (so "5-17" never sorts after "50-64").
const ageRangeOrder = `CASE WHEN age_range = '0-17' THEN 1
  WHEN age_range = '18-34' THEN 2
  WHEN age_range = '35-50' THEN 3
  WHEN age_range = '50-64' THEN 4
  WHEN age_range = '65+' THEN 5 END`

// catalog holds every view the dashboard knows about, keyed by name.
//
//nolint:gochecknoglobals // The view catalog is a fixed, read-only lookup table.
var catalog = map[string]View{
	ViewMembershipKPIs: {
		Name:        ViewMembershipKPIs,
		Title:       "Membership KPIs",
		Description: "Monthly membership totals, enrollments, terminations and risk",
		build: func(s Scope, params map[string]string) string {
			limit := defaultKPIMonths
			if m, ok := params["months"]; ok {
				if n, err := strconv.Atoi(m); err == nil && n > 0 {
					limit = n
				}
			}
			return fmt.Sprintf(
				"SELECT * FROM %s ORDER BY month_start DESC LIMIT %d",
				s.qualify("v_membership_kpis"), limit)
		},
	},
	ViewProductMix: {
		Name:        ViewProductMix,
		Title:       "Product Mix",
		Description: "Members, average age and risk per product line",
		build: func(s Scope, _ map[string]string) string {
			return fmt.Sprintf(
				"SELECT * FROM %s ORDER BY members DESC",
				s.qualify("v_product_mix"))
		},
	},
	ViewAgeDistribution: {
		Name:        ViewAgeDistribution,
		Title:       "Age Distribution",
		Description: "Members and risk profile per age bucket",
		build: func(s Scope, _ map[string]string) string {
			return fmt.Sprintf(
				"SELECT * FROM %s ORDER BY %s",
				s.qualify("v_age_distribution"), ageRangeOrder)
		},
	},
	ViewRegionSummary: {
		Name:        ViewRegionSummary,
		Title:       "Region Summary",
		Description: "Members, average age and risk per region",
		build: func(s Scope, _ map[string]string) string {
			return fmt.Sprintf(
				"SELECT * FROM %s ORDER BY members DESC",
				s.qualify("v_region_summary"))
		},
	},
	ViewChronicConditions: {
		Name:        ViewChronicConditions,
		Title:       "Chronic Conditions",
		Description: "Condition prevalence, affected members and average cost",
		build: func(s Scope, _ map[string]string) string {
			return fmt.Sprintf(
				"SELECT * FROM %s ORDER BY prevalence DESC",
				s.qualify("v_chronic_conditions"))
		},
	},
}

// Lookup returns the view with the given name.
// Names are matched case-insensitively after trimming, mirroring identity
// canonicalization.
func Lookup(name string) (View, bool) {
	v, ok := catalog[strings.ToLower(strings.TrimSpace(name))]
	return v, ok
}

// Views returns all known views sorted by name.
func Views() []View {
	out := make([]View, 0, len(catalog))
	for _, v := range catalog {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
