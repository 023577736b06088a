package cli

import (
	"github.com/spf13/cobra"

	"github.com/membercare/memberboard/internal/config"
	"github.com/membercare/memberboard/internal/logging"
)

// setupLogging configures logging from the config file and CLI flags,
// installs the package logger, and threads a trace ID through the command
// context. The returned cleanup closes the log file, if any.
func setupLogging(cmd *cobra.Command, cfg *config.Config) (func() error, error) {
	logCfg := logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		File:   cfg.Logging.File,
	}

	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		logCfg.Level = "debug"
		logCfg.Format = "console"
		logCfg.File = ""
	}

	root, closer, err := logging.NewLogger(logCfg)
	if err != nil {
		return nil, err
	}
	logger = logging.ComponentLogger(root, "cli")

	ctx := cmd.Context()
	traceID := logging.GetOrGenerateTraceID(ctx)
	ctx = logging.ContextWithTraceID(ctx, traceID)
	ctx = logger.WithContext(ctx)
	cmd.SetContext(ctx)

	logger.Debug().Str("command", cmd.Name()).Str("trace_id", traceID).Msg("command started")

	return closer.Close, nil
}
