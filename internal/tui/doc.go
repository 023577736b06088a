// Package tui renders the membership analytics dashboard in the terminal.
//
// The dashboard is a Bubble Tea program with one panel per catalog view.
// Panels are bound to regions in the panel registry; region state changes
// are pumped into the program as messages, so each panel re-renders the
// moment its own query settles. A panel whose refresh failed keeps showing
// its last-good data with a staleness marker instead of blanking.
package tui
