package cli

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/membercare/memberboard/internal/logging"
	"github.com/membercare/memberboard/internal/panel"
	"github.com/membercare/memberboard/internal/refresh"
	"github.com/membercare/memberboard/internal/tui"
)

// defaultDashboardLog receives logs while the TUI owns the terminal.
const defaultDashboardLog = "memberboard.log"

// newDashboardCmd creates the "dashboard" command that runs the live TUI.
func newDashboardCmd() *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Launch the live analytics dashboard",
		Long: "Launch the terminal dashboard. Each panel loads, refreshes and " +
			"fails independently; results are cached and refreshed on an interval.",
		Example: `  # Launch with the configured refresh interval
  memberboard dashboard

  # Hold each panel back until every one of its queries has settled
  memberboard dashboard --strict`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !isTerminal(os.Stdout) {
				return fmt.Errorf("dashboard requires a terminal; use 'memberboard query' for scripted output")
			}
			return runDashboard(cmd, strict)
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false,
		"wait for all of a panel's queries before rendering it")

	return cmd
}

func runDashboard(cmd *cobra.Command, strict bool) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}

	registry := panel.NewRegistry(a.coord, logging.ComponentLogger(a.logger, "panel"))
	scheduler := refresh.NewScheduler(
		a.coord,
		a.cfg.Refresh.Interval(),
		logging.ComponentLogger(a.logger, "refresh"),
	)

	var opts []panel.Option
	if !strict {
		opts = append(opts, panel.WithPartialResults())
	}

	model := tui.NewDashboard(
		registry,
		scheduler,
		tui.DefaultPanels(),
		logging.ComponentLogger(a.logger, "tui"),
	)
	if err := model.Subscribe(opts...); err != nil {
		return err
	}
	defer model.Close()

	program := tea.NewProgram(*model, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("dashboard exited with error: %w", err)
	}
	return nil
}
