package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/me/nanokern/internal/logging"
)

var (
	flagDebug     bool
	flagLogLevel  string
	flagLogFormat string

	logger *slog.Logger
)

// NewRootCmd creates the root cobra command for the nanokern CLI.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "nanokern",
		Short: "nanokern is a preemptive thread scheduler playground",
		Long: "nanokern runs declarative scheduling scenarios on a round-robin\n" +
			"preemptive kernel, records the resulting event traces, and serves\n" +
			"a live view of the thread table.",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if flagDebug {
				flagLogLevel = "debug"
			}
			logger = logging.NewLogger(logging.ParseLevel(flagLogLevel), flagLogFormat)
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&flagLogFormat, "log-format", "auto", "Log format (text, json, auto)")

	root.AddCommand(
		newRunCmd(),
		newTraceCmd(),
		newVersionCmd(),
	)

	return root
}
