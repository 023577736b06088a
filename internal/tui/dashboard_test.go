package tui

import (
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/membercare/memberboard/internal/panel"
	"github.com/membercare/memberboard/internal/query"
	"github.com/membercare/memberboard/internal/refresh"
	"github.com/membercare/memberboard/internal/warehouse"
)

// nopRefresher counts manual refreshes.
type nopRefresher struct{ all int }

func (r *nopRefresher) Refresh(query.Identity) {}
func (r *nopRefresher) RefreshAll()            { r.all++ }

func newTestDashboard(refresher *nopRefresher) *Dashboard {
	sched := refresh.NewScheduler(refresher, time.Hour, zerolog.Nop())
	return NewDashboard(nil, sched, DefaultPanels(), zerolog.Nop())
}

func kpiState(status panel.Status) panel.RegionState {
	id := query.NewIdentity(query.ViewMembershipKPIs, nil)
	state := panel.RegionState{
		Region:  query.ViewMembershipKPIs,
		Status:  status,
		Results: map[query.Identity]panel.QueryResult{},
	}
	if status == panel.StatusReady {
		state.Results[id] = panel.QueryResult{
			Result: &warehouse.ResultSet{
				Columns: []string{"month_start", "total_members", "new_enrollments", "terminations", "avg_risk_score"},
				Rows: []warehouse.Row{{
					"month_start":     "2026-08-01",
					"total_members":   float64(125000),
					"new_enrollments": float64(1800),
					"terminations":    float64(950),
					"avg_risk_score":  1.37,
				}},
			},
			FetchedAt: time.Now(),
		}
	}
	if status == panel.StatusFailed {
		state.Err = errors.New("permission denied on v_membership_kpis")
	}
	return state
}

func TestDefaultPanels(t *testing.T) {
	panels := DefaultPanels()
	require.Len(t, panels, 5)
	assert.Equal(t, query.ViewAgeDistribution, panels[0].Region)
	assert.Equal(t, panels[0].View.Identity(nil), panels[0].Identity)
}

func TestDashboard_LoadingThenReady(t *testing.T) {
	m := newTestDashboard(&nopRefresher{})

	view := m.View()
	assert.Contains(t, view, "Membership KPIs")
	assert.Contains(t, view, "loading")

	updated, cmd := m.Update(regionUpdateMsg(kpiState(panel.StatusReady)))
	dash := updated.(Dashboard)
	assert.NotNil(t, cmd, "the update pump must be re-armed")

	view = dash.View()
	assert.Contains(t, view, "Total members")
	assert.Contains(t, view, "125,000")
	assert.Contains(t, view, "1.37")
	// Sibling panels are still loading, independently.
	assert.Contains(t, view, "loading")
}

func TestDashboard_FailedPanelShowsRetryHint(t *testing.T) {
	m := newTestDashboard(&nopRefresher{})

	updated, _ := m.Update(regionUpdateMsg(kpiState(panel.StatusFailed)))
	view := updated.(Dashboard).View()

	assert.Contains(t, view, "query failed")
	assert.Contains(t, view, "permission denied")
	assert.Contains(t, view, "press r to retry")
}

func TestDashboard_StaleDataIsFlagged(t *testing.T) {
	m := newTestDashboard(&nopRefresher{})

	state := kpiState(panel.StatusReady)
	id := query.NewIdentity(query.ViewMembershipKPIs, nil)
	result := state.Results[id]
	result.Stale = true
	result.Err = errors.New("network blip")
	state.Results[id] = result

	updated, _ := m.Update(regionUpdateMsg(state))
	view := updated.(Dashboard).View()

	assert.Contains(t, view, "stale data")
	assert.Contains(t, view, "Total members", "stale data still renders")
}

func TestDashboard_Keys(t *testing.T) {
	refresher := &nopRefresher{}
	m := newTestDashboard(refresher)

	t.Run("r triggers manual refresh", func(t *testing.T) {
		_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'r'}})
		assert.Nil(t, cmd)
		assert.Equal(t, 1, refresher.all)
	})

	t.Run("q quits", func(t *testing.T) {
		updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
		require.NotNil(t, cmd)
		assert.Equal(t, tea.Quit(), cmd())
		assert.Empty(t, updated.(Dashboard).View())
	})
}

func TestDashboard_WindowResize(t *testing.T) {
	m := newTestDashboard(&nopRefresher{})
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 200, Height: 50})
	assert.Equal(t, 200, updated.(Dashboard).width)
}

func TestRenderTable(t *testing.T) {
	rs := &warehouse.ResultSet{
		Columns: []string{"region", "members"},
		Rows: []warehouse.Row{
			{"region": "West", "members": float64(54000)},
			{"region": "East", "members": float64(61000)},
		},
	}

	out := renderTable(rs)
	assert.Contains(t, out, "region")
	assert.Contains(t, out, "West")
	assert.Contains(t, out, "61,000")
}

func TestRenderTable_TruncatesLongResults(t *testing.T) {
	rs := &warehouse.ResultSet{Columns: []string{"condition_name"}}
	for i := 0; i < maxPanelRows+4; i++ {
		rs.Rows = append(rs.Rows, warehouse.Row{"condition_name": "condition"})
	}

	out := renderTable(rs)
	assert.Contains(t, out, "4 more rows")
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "1,250,000", formatValue(float64(1250000)))
	assert.Equal(t, "1.37", formatValue(1.37))
	assert.Equal(t, "42", formatValue(42))
	assert.Equal(t, "hmo", formatValue("hmo"))
	assert.Equal(t, "", formatValue(nil))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "last-wo...", truncate("last-word-wins", 10))
}
