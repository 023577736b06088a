package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/membercare/memberboard/internal/query"
	"github.com/membercare/memberboard/internal/warehouse"
)

func testResult(rows int) *warehouse.ResultSet {
	rs := &warehouse.ResultSet{Columns: []string{"members"}}
	for i := 0; i < rows; i++ {
		rs.Rows = append(rs.Rows, warehouse.Row{"members": i})
	}
	return rs
}

func TestEntry_Freshness(t *testing.T) {
	now := time.Now()
	entry := &Entry{FetchedAt: now, TTL: 5 * time.Minute}

	assert.True(t, entry.Fresh(now))
	assert.True(t, entry.Fresh(now.Add(5*time.Minute-time.Second)))
	assert.False(t, entry.Fresh(now.Add(5*time.Minute)))

	assert.Equal(t, time.Minute, entry.Age(now.Add(time.Minute)))
	assert.Equal(t, 4*time.Minute, entry.TimeUntilStale(now.Add(time.Minute)))
	assert.Equal(t, time.Duration(0), entry.TimeUntilStale(now.Add(time.Hour)))
}

func TestStore_PutGet(t *testing.T) {
	store := NewStore(true, 5*time.Minute)
	id := query.NewIdentity("membership_kpis", nil)

	_, err := store.Get(id)
	assert.ErrorIs(t, err, ErrNotFound)

	entry := store.Put(id, testResult(3), 0)
	require.NotNil(t, entry)
	assert.Equal(t, 5*time.Minute, entry.TTL)
	assert.Equal(t, id, entry.Identity)

	got, err := store.Get(id)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Result.RowCount())
	assert.Equal(t, 1, store.Len())
}

func TestStore_TTLOverride(t *testing.T) {
	store := NewStore(true, 5*time.Minute)
	id := query.NewIdentity("chronic_conditions", nil)

	entry := store.Put(id, testResult(1), time.Hour)
	assert.Equal(t, time.Hour, entry.TTL)
}

func TestStore_GetFresh(t *testing.T) {
	store := NewStore(true, 5*time.Minute)
	id := query.NewIdentity("product_mix", nil)
	store.Put(id, testResult(2), 0)

	base := time.Now()
	store.now = func() time.Time { return base.Add(4 * time.Minute) }
	fresh, err := store.GetFresh(id)
	require.NoError(t, err)
	assert.Equal(t, 2, fresh.Result.RowCount())

	store.now = func() time.Time { return base.Add(6 * time.Minute) }
	_, err = store.GetFresh(id)
	assert.ErrorIs(t, err, ErrNotFound)

	// The stale entry must survive as fallback material.
	stale, err := store.Get(id)
	require.NoError(t, err)
	assert.False(t, stale.Fresh(store.now()))
}

func TestStore_FetchedAtMonotonic(t *testing.T) {
	store := NewStore(true, 5*time.Minute)
	id := query.NewIdentity("region_summary", nil)

	base := time.Now()
	store.now = func() time.Time { return base.Add(time.Minute) }
	first := store.Put(id, testResult(1), 0)

	// A put stamped earlier than the existing entry must not rewind it.
	store.now = func() time.Time { return base }
	retained := store.Put(id, testResult(9), 0)

	assert.Equal(t, first.FetchedAt, retained.FetchedAt)
	got, err := store.Get(id)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Result.RowCount())
}

func TestStore_Invalidate(t *testing.T) {
	store := NewStore(true, 5*time.Minute)
	kpis := query.NewIdentity("membership_kpis", nil)
	mix := query.NewIdentity("product_mix", nil)
	store.Put(kpis, testResult(1), 0)
	store.Put(mix, testResult(1), 0)

	store.Invalidate(kpis)
	_, err := store.Get(kpis)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.Get(mix)
	assert.NoError(t, err)

	// Idempotent.
	store.Invalidate(kpis)

	store.InvalidateAll()
	assert.Equal(t, 0, store.Len())
}

func TestStore_Prune(t *testing.T) {
	store := NewStore(true, 5*time.Minute)
	kpis := query.NewIdentity("membership_kpis", nil)
	mix := query.NewIdentity("product_mix", nil)
	ages := query.NewIdentity("age_distribution", nil)
	store.Put(kpis, testResult(1), 0)
	store.Put(mix, testResult(1), 0)
	store.Put(ages, testResult(1), 0)

	removed := store.Prune(map[query.Identity]struct{}{kpis: {}})
	assert.Equal(t, 2, removed)
	assert.Equal(t, 1, store.Len())

	_, err := store.Get(kpis)
	assert.NoError(t, err)
}

func TestStore_Disabled(t *testing.T) {
	store := NewStore(false, 5*time.Minute)
	id := query.NewIdentity("membership_kpis", nil)

	assert.Nil(t, store.Put(id, testResult(1), 0))
	_, err := store.Get(id)
	assert.ErrorIs(t, err, ErrDisabled)
	_, err = store.GetFresh(id)
	assert.ErrorIs(t, err, ErrDisabled)
	assert.False(t, store.Enabled())
}
