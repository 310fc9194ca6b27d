package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/formpilot/internal/observability"
	"github.com/xkilldash9x/formpilot/internal/report"
	"github.com/xkilldash9x/formpilot/internal/store"
)

// historyStore is the part of the attempt store the history commands use.
type historyStore interface {
	RecentRuns(ctx context.Context, limit int) ([]store.RunSummary, error)
	ImportRun(ctx context.Context, run *report.Run) error
}

// openHistoryStore connects to the attempt store. Tests replace it.
var openHistoryStore = func(ctx context.Context, url string, logger *zap.Logger) (historyStore, func(), error) {
	st, pool, err := store.Connect(ctx, url, logger)
	if err != nil {
		return nil, nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return st, pool.Close, nil
}

var errNoDatabase = errors.New("database url is not configured (FORMPILOT_DATABASE_URL)")

// newHistoryCmd creates the `history` command and its `import` subcommand.
func newHistoryCmd() *cobra.Command {
	var limit int

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Lists recent runs from the attempt store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistoryStore(cmd, func(ctx context.Context, st historyStore) error {
				runs, err := st.RecentRuns(ctx, limit)
				if err != nil {
					return err
				}
				return renderHistory(cmd.OutOrStdout(), runs)
			})
		},
	}
	lenient(historyCmd)
	historyCmd.Flags().IntVarP(&limit, "limit", "l", 20, "Number of runs to list.")

	importCmd := &cobra.Command{
		Use:   "import <report.json>",
		Short: "Stores a JSON run report written by submit --output",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("could not open report: %w", err)
			}
			defer f.Close()
			run, err := report.Decode(f)
			if err != nil {
				return err
			}

			return withHistoryStore(cmd, func(ctx context.Context, st historyStore) error {
				if err := st.ImportRun(ctx, run); err != nil {
					return err
				}
				t := run.Totals()
				fmt.Fprintf(cmd.OutOrStdout(), "Imported run %s (%d attempts, %d confirmed).\n", run.ID, t.Attempted, t.Confirmed)
				return nil
			})
		},
	}
	historyCmd.AddCommand(importCmd)
	return historyCmd
}

func withHistoryStore(cmd *cobra.Command, fn func(ctx context.Context, st historyStore) error) error {
	ctx := cmd.Context()
	cfg, err := getConfigFromContext(ctx)
	if err != nil {
		return err
	}
	if cfg.Database().URL == "" {
		return errNoDatabase
	}

	st, closeFn, err := openHistoryStore(ctx, cfg.Database().URL, observability.GetLogger())
	if err != nil {
		return fmt.Errorf("failed to open attempt store: %w", err)
	}
	defer closeFn()
	return fn(ctx, st)
}

func renderHistory(w io.Writer, runs []store.RunSummary) error {
	if len(runs) == 0 {
		_, err := fmt.Fprintln(w, "No runs recorded.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tSTARTED\tSURVEY\tMODE\tCONFIRMED\tUNCONFIRMED\tABORTED")
	for _, r := range runs {
		confirmed := fmt.Sprintf("%d/%d", r.Confirmed, r.Requested)
		if r.Cancelled {
			confirmed += " (cancelled)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%d\n",
			r.ID, r.StartedAt.Local().Format(time.DateTime), r.Survey, r.Mode, confirmed, r.Unconfirmed, r.Aborted)
	}
	return tw.Flush()
}
