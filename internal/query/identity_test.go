package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIdentity_Canonicalization(t *testing.T) {
	a := NewIdentity("membership_kpis", map[string]string{"months": "12", "region": "west"})
	b := NewIdentity(" MEMBERSHIP_KPIS ", map[string]string{"region": "west ", "months": " 12"})

	// Case, whitespace and parameter order must not produce distinct identities.
	assert.Equal(t, a, b)
	assert.Equal(t, a.Key(), b.Key())
	assert.True(t, a == b)
}

func TestNewIdentity_DistinctParams(t *testing.T) {
	a := NewIdentity("membership_kpis", map[string]string{"months": "12"})
	b := NewIdentity("membership_kpis", map[string]string{"months": "24"})
	c := NewIdentity("product_mix", map[string]string{"months": "12"})

	assert.NotEqual(t, a, b)
	assert.NotEqual(t, a.Key(), b.Key())
	assert.NotEqual(t, a.Key(), c.Key())
}

func TestIdentity_Accessors(t *testing.T) {
	id := NewIdentity("Region_Summary", map[string]string{"Year": "2026"})

	assert.Equal(t, "region_summary", id.Name())
	assert.Equal(t, map[string]string{"year": "2026"}, id.Params())
	assert.Contains(t, id.Key(), "region_summary-")
	assert.Equal(t, "region_summary{year=2026}", id.String())
	assert.False(t, id.IsZero())
	assert.True(t, Identity{}.IsZero())
}

func TestIdentity_ParamsCopy(t *testing.T) {
	id := NewIdentity("product_mix", map[string]string{"line": "hmo"})
	p := id.Params()
	p["line"] = "ppo"

	assert.Equal(t, "hmo", id.Params()["line"])
}

func TestLookup(t *testing.T) {
	v, ok := Lookup(" Membership_KPIs ")
	require.True(t, ok)
	assert.Equal(t, ViewMembershipKPIs, v.Name)

	_, ok = Lookup("no_such_view")
	assert.False(t, ok)
}

func TestViews_SortedAndComplete(t *testing.T) {
	views := Views()
	require.Len(t, views, 5)

	names := make([]string, len(views))
	for i, v := range views {
		names[i] = v.Name
	}
	assert.Equal(t, []string{
		ViewAgeDistribution,
		ViewChronicConditions,
		ViewMembershipKPIs,
		ViewProductMix,
		ViewRegionSummary,
	}, names)
}

func TestView_SQL(t *testing.T) {
	scope := Scope{Catalog: "mv_catalog", Schema: "demo_health"}

	t.Run("membership kpis default limit", func(t *testing.T) {
		v, _ := Lookup(ViewMembershipKPIs)
		sql := v.SQL(scope, nil)
		assert.Equal(t,
			"SELECT * FROM mv_catalog.demo_health.v_membership_kpis ORDER BY month_start DESC LIMIT 12",
			sql)
	})

	t.Run("membership kpis custom months", func(t *testing.T) {
		v, _ := Lookup(ViewMembershipKPIs)
		sql := v.SQL(scope, map[string]string{"months": "24"})
		assert.Contains(t, sql, "LIMIT 24")
	})

	t.Run("membership kpis rejects malformed months", func(t *testing.T) {
		v, _ := Lookup(ViewMembershipKPIs)
		for _, months := range []string{"6x", "-5", "0", "many"} {
			assert.Contains(t, v.SQL(scope, map[string]string{"months": months}), "LIMIT 12",
				"months=%q must fall back to the default limit", months)
		}
	})

	t.Run("age distribution bucket ordering", func(t *testing.T) {
		v, _ := Lookup(ViewAgeDistribution)
		sql := v.SQL(scope, nil)
		assert.Contains(t, sql, "v_age_distribution")
		assert.Contains(t, sql, "WHEN age_range = '65+' THEN 5")
	})

	t.Run("chronic conditions prevalence ordering", func(t *testing.T) {
		v, _ := Lookup(ViewChronicConditions)
		assert.Contains(t, v.SQL(scope, nil), "ORDER BY prevalence DESC")
	})
}
