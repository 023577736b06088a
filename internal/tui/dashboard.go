package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/membercare/memberboard/internal/panel"
	"github.com/membercare/memberboard/internal/query"
	"github.com/membercare/memberboard/internal/refresh"
)

// Default dimensions used before the first WindowSizeMsg arrives.
const (
	defaultWidth  = 120
	defaultHeight = 40
)

// updateBuffer bounds the region-update channel. Panel callbacks never
// block; a full buffer drops the oldest pending update, because a newer
// snapshot for the same region supersedes it anyway.
const updateBuffer = 64

// regionUpdateMsg carries a region state change into the Bubble Tea loop.
type regionUpdateMsg panel.RegionState

// PanelSpec binds one dashboard panel to its view and region ID.
type PanelSpec struct {
	Region   string
	View     query.View
	Identity query.Identity
}

// DefaultPanels returns one panel per catalog view, in catalog order.
func DefaultPanels() []PanelSpec {
	views := query.Views()
	specs := make([]PanelSpec, 0, len(views))
	for _, v := range views {
		specs = append(specs, PanelSpec{
			Region:   v.Name,
			View:     v,
			Identity: v.Identity(nil),
		})
	}
	return specs
}

// Dashboard is the Bubble Tea model for the analytics dashboard.
// Each panel renders independently from its region's reactive state, so a
// slow or failing query never holds up its siblings.
//
//nolint:recvcheck // Bubble Tea requires value receivers for Init/Update/View.
type Dashboard struct {
	registry  *panel.Registry
	scheduler *refresh.Scheduler
	logger    zerolog.Logger

	panels  []PanelSpec
	states  map[string]panel.RegionState
	subs    []*panel.Subscription
	updates chan panel.RegionState

	spinner  spinner.Model
	width    int
	height   int
	quitting bool
	err      error
}

// NewDashboard creates the dashboard model for the given panels.
func NewDashboard(
	registry *panel.Registry,
	scheduler *refresh.Scheduler,
	panels []PanelSpec,
	logger zerolog.Logger,
) *Dashboard {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return &Dashboard{
		registry:  registry,
		scheduler: scheduler,
		logger:    logger,
		panels:    panels,
		states:    make(map[string]panel.RegionState, len(panels)),
		updates:   make(chan panel.RegionState, updateBuffer),
		spinner:   sp,
		width:     defaultWidth,
		height:    defaultHeight,
	}
}

// Subscribe binds every panel to its queries and starts the scheduler.
// Call it once before running the program; Close undoes it.
func (m *Dashboard) Subscribe(opts ...panel.Option) error {
	for _, spec := range m.panels {
		sub, err := m.registry.Subscribe(spec.Region, []query.Identity{spec.Identity}, m.push, opts...)
		if err != nil {
			m.Close()
			return fmt.Errorf("failed to subscribe panel %s: %w", spec.Region, err)
		}
		m.subs = append(m.subs, sub)
	}
	m.scheduler.Start()
	return nil
}

// Close cancels all panel subscriptions and stops the scheduler.
func (m *Dashboard) Close() {
	for _, sub := range m.subs {
		sub.Cancel()
	}
	m.subs = nil
	m.scheduler.Stop()
}

// push delivers a region update without ever blocking the settling
// goroutine. When the buffer is full the oldest update is discarded.
func (m *Dashboard) push(state panel.RegionState) {
	for {
		select {
		case m.updates <- state:
			return
		default:
			select {
			case <-m.updates:
			default:
			}
		}
	}
}

// Init starts the spinner and the update pump (Bubble Tea interface).
func (m Dashboard) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.waitForUpdate())
}

// waitForUpdate blocks on the next region update as a Bubble Tea command.
func (m Dashboard) waitForUpdate() tea.Cmd {
	return func() tea.Msg {
		return regionUpdateMsg(<-m.updates)
	}
}

// Update handles messages (Bubble Tea interface).
func (m Dashboard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case regionUpdateMsg:
		state := panel.RegionState(msg)
		m.states[state.Region] = state
		return m, m.waitForUpdate()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		case "r":
			m.logger.Debug().Msg("manual refresh requested")
			m.scheduler.RefreshNow()
			return m, nil
		}
	}

	return m, nil
}

// View renders the dashboard (Bubble Tea interface).
func (m Dashboard) View() string {
	if m.quitting {
		return ""
	}
	return m.render()
}
