package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"

	"github.com/xkilldash9x/formpilot/internal/logview"
)

// newLogsCmd creates the `logs` command, which prints entries from the
// rotating JSON log file.
func newLogsCmd() *cobra.Command {
	var (
		follow bool
		runID  string
		level  string
	)

	logsCmd := &cobra.Command{
		Use:   "logs",
		Short: "Prints entries from the log file, optionally for one run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := getConfigFromContext(cmd.Context())
			if err != nil {
				return err
			}
			path := cfg.Logger().LogFile
			if path == "" {
				return fmt.Errorf("logger.log_file is not configured")
			}

			var minLevel zapcore.Level
			if err := minLevel.UnmarshalText([]byte(level)); err != nil {
				return fmt.Errorf("invalid --level: %w", err)
			}

			out := cmd.OutOrStdout()
			return logview.Stream(cmd.Context(), logview.Options{
				Path:   path,
				Follow: follow,
				Filter: logview.Filter{RunID: runID, MinLevel: minLevel},
			}, func(e logview.Entry) {
				fmt.Fprintln(out, logview.Format(e))
			})
		},
	}
	lenient(logsCmd)

	logsCmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep reading as the log grows.")
	logsCmd.Flags().StringVar(&runID, "run", "", "Only show entries of this run id.")
	logsCmd.Flags().StringVar(&level, "level", "info", "Minimum level to show.")
	return logsCmd
}
