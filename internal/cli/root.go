package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/membercare/memberboard/internal/config"
)

// isTerminal checks if the given file is a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// logger is the package-level logger for CLI operations.
var logger zerolog.Logger //nolint:gochecknoglobals // Required for zerolog context integration

// configKey is the context key the loaded configuration is stored under.
type configKey struct{}

// configFromContext returns the configuration loaded by the root command.
func configFromContext(ctx context.Context) (config.Config, error) {
	cfg, ok := ctx.Value(configKey{}).(config.Config)
	if !ok {
		return config.Config{}, fmt.Errorf("configuration not loaded")
	}
	return cfg, nil
}

// NewRootCmd creates the root Cobra command for the memberboard CLI.
func NewRootCmd(ver string) *cobra.Command {
	return NewRootCmdWithEnv(ver, os.LookupEnv)
}

// NewRootCmdWithEnv creates the root command with an explicit environment
// lookup for testability. Tests inject their own lookup instead of mutating
// the process environment.
func NewRootCmdWithEnv(ver string, lookupEnv func(string) (string, bool)) *cobra.Command {
	var logCleanup func() error

	cmd := &cobra.Command{
		Use:     "memberboard",
		Short:   "Membership analytics dashboard",
		Long:    "memberboard: terminal analytics dashboard over a SQL warehouse",
		Version: ver,
		Example: rootCmdExample,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Negative TTLs cause undefined cache expiry behavior.
			cacheTTL, _ := cmd.Flags().GetInt("cache-ttl")
			if cacheTTL < 0 {
				return fmt.Errorf("cache-ttl must be >= 0, got %d", cacheTTL)
			}

			configPath, _ := cmd.Flags().GetString("config")
			cfg, err := config.Load(configPath, lookupEnv)
			if err != nil {
				return err
			}

			if noCache, _ := cmd.Flags().GetBool("no-cache"); noCache {
				cfg.Cache.Enabled = false
			}
			if cacheTTL > 0 {
				cfg.Cache.TimeoutMS = cacheTTL * 1000
			}

			cleanup, err := setupLogging(cmd, &cfg)
			if err != nil {
				return err
			}
			logCleanup = cleanup

			cmd.SetContext(context.WithValue(cmd.Context(), configKey{}, cfg))
			return nil
		},
		PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
			if logCleanup != nil {
				return logCleanup()
			}
			return nil
		},
	}

	cmd.PersistentFlags().Bool("debug", false, "enable debug logging to the console")
	cmd.PersistentFlags().String("config", "", "path to config file (default memberboard.yaml if present)")
	cmd.PersistentFlags().Bool("no-cache", false, "bypass the result cache for this run")
	cmd.PersistentFlags().
		Int("cache-ttl", 0, "cache TTL in seconds (0 = use config default, overrides config file and env var)")

	cmd.AddCommand(newDashboardCmd(), newQueryCmd(), newViewsCmd(), newPingCmd(), newVersionCmd(ver))

	return cmd
}

const rootCmdExample = `  # Launch the live dashboard
  memberboard dashboard

  # Run a single catalog view and print the rows
  memberboard query membership_kpis

  # Pass a query parameter and emit JSON
  memberboard query membership_kpis --param months=6 --json

  # List the views the dashboard knows about
  memberboard views

  # Check warehouse connectivity
  memberboard ping`
