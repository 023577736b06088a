package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/membercare/memberboard/internal/panel"
	"github.com/membercare/memberboard/internal/query"
	"github.com/membercare/memberboard/internal/warehouse"
)

// Rendering limits.
const (
	maxPanelRows     = 8
	maxCellWidth     = 22
	panelsPerRow     = 2
	panelBorderSlack = 4
)

//nolint:gochecknoglobals // Global printer is idiomatic for x/text/message usage.
var printer = message.NewPrinter(language.English)

//nolint:gochecknoglobals // Styles are immutable render-time constants.
var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	staleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1)
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
)

// render lays the panels out in a two-column grid under a header.
func (m Dashboard) render() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("memberboard: membership analytics"))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("r refresh · q quit"))
	b.WriteString("\n\n")

	panelWidth := m.width/panelsPerRow - panelBorderSlack
	if panelWidth < 30 {
		panelWidth = 30
	}

	var row []string
	for _, spec := range m.panels {
		box := panelStyle.Width(panelWidth).Render(m.renderPanel(spec))
		row = append(row, box)
		if len(row) == panelsPerRow {
			b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, row...))
			b.WriteString("\n")
			row = nil
		}
	}
	if len(row) > 0 {
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, row...))
		b.WriteString("\n")
	}

	return b.String()
}

// renderPanel renders one panel from its region's current state.
func (m Dashboard) renderPanel(spec PanelSpec) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(spec.View.Title))
	b.WriteString("\n")

	state, ok := m.states[spec.Region]
	if !ok || state.Status == panel.StatusIdle || state.Status == panel.StatusLoading {
		b.WriteString(m.spinner.View())
		b.WriteString(dimStyle.Render(" loading…"))
		return b.String()
	}

	result := state.Results[spec.Identity]

	if state.Status == panel.StatusFailed {
		b.WriteString(errorStyle.Render("query failed: " + errorSummary(state.Err)))
		b.WriteString("\n")
		b.WriteString(dimStyle.Render("press r to retry"))
		return b.String()
	}

	if result.Stale {
		b.WriteString(staleStyle.Render("⚠ showing stale data (refresh failed)"))
		b.WriteString("\n")
	}

	if result.Result == nil || result.Result.Empty() {
		b.WriteString(dimStyle.Render("no data"))
		return b.String()
	}

	if spec.View.Name == query.ViewMembershipKPIs {
		b.WriteString(renderKPIs(result.Result))
	} else {
		b.WriteString(renderTable(result.Result))
	}
	return b.String()
}

// renderKPIs shows the latest month's headline numbers.
func renderKPIs(rs *warehouse.ResultSet) string {
	latest := rs.Rows[0]
	lines := []struct {
		label string
		key   string
	}{
		{"Total members", "total_members"},
		{"New enrollments", "new_enrollments"},
		{"Terminations", "terminations"},
		{"Avg risk score", "avg_risk_score"},
	}

	var b strings.Builder
	if month, ok := latest["month_start"]; ok {
		b.WriteString(dimStyle.Render(fmt.Sprintf("month of %v", month)))
		b.WriteString("\n")
	}
	for _, line := range lines {
		value, ok := latest[line.key]
		if !ok {
			continue
		}
		b.WriteString(fmt.Sprintf("%-18s %s\n", line.label, formatValue(value)))
	}
	return strings.TrimRight(b.String(), "\n")
}

// renderTable shows the result set as an aligned column table.
func renderTable(rs *warehouse.ResultSet) string {
	cols := rs.Columns
	if len(cols) == 0 && len(rs.Rows) > 0 {
		for k := range rs.Rows[0] {
			cols = append(cols, k)
		}
	}

	widths := make([]int, len(cols))
	for i, c := range cols {
		widths[i] = len(c)
	}

	limit := len(rs.Rows)
	if limit > maxPanelRows {
		limit = maxPanelRows
	}

	cells := make([][]string, limit)
	for r := 0; r < limit; r++ {
		cells[r] = make([]string, len(cols))
		for i, c := range cols {
			cell := truncate(formatValue(rs.Rows[r][c]), maxCellWidth)
			cells[r][i] = cell
			if len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	var b strings.Builder
	for i, c := range cols {
		b.WriteString(dimStyle.Render(pad(c, widths[i])))
		if i < len(cols)-1 {
			b.WriteString("  ")
		}
	}
	b.WriteString("\n")
	for _, row := range cells {
		for i, cell := range row {
			b.WriteString(pad(cell, widths[i]))
			if i < len(row)-1 {
				b.WriteString("  ")
			}
		}
		b.WriteString("\n")
	}
	if len(rs.Rows) > limit {
		b.WriteString(dimStyle.Render(fmt.Sprintf("… %d more rows", len(rs.Rows)-limit)))
	}
	return strings.TrimRight(b.String(), "\n")
}

// formatValue renders a cell value, grouping digits in large numbers.
func formatValue(v any) string {
	switch n := v.(type) {
	case nil:
		return ""
	case float64:
		if n == float64(int64(n)) {
			return printer.Sprintf("%d", int64(n))
		}
		return printer.Sprintf("%.2f", n)
	case int:
		return printer.Sprintf("%d", n)
	case int64:
		return printer.Sprintf("%d", n)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit-3] + "..."
}

func pad(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

// errorSummary keeps panel error text to a single readable line.
func errorSummary(err error) string {
	if err == nil {
		return "unknown error"
	}
	msg := err.Error()
	if idx := strings.IndexByte(msg, '\n'); idx > 0 {
		msg = msg[:idx]
	}
	return truncate(msg, 80)
}
