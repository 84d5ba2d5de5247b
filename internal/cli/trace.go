package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/me/nanokern/internal/store"
)

func newTraceCmd() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Inspect recorded scheduler traces",
	}
	cmd.PersistentFlags().StringVar(&dbPath, "db", "nanokern.db", "SQLite trace database path")

	cmd.AddCommand(
		newTraceListCmd(&dbPath),
		newTraceShowCmd(&dbPath),
		newTraceEventsCmd(&dbPath),
	)
	return cmd
}

func openStore(dbPath string) (store.Store, error) {
	if _, err := os.Stat(dbPath); err != nil {
		return nil, fmt.Errorf("trace database %s: %w", dbPath, err)
	}
	return store.NewSQLiteStore(dbPath, logger)
}

func newTraceListCmd(dbPath *string) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(*dbPath)
			if err != nil {
				return err
			}
			defer st.Close()

			runs, err := st.ListRuns(context.Background(), limit)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "RUN\tSCENARIO\tSTARTED\tTICKS\tSWITCHES")
			for _, run := range runs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n",
					run.ID, run.Scenario, humanize.Time(run.StartedAt),
					humanize.Comma(run.Stats.Ticks), run.Stats.Switches)
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum runs to list")
	return cmd
}

func newTraceShowCmd(dbPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one run's summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(*dbPath)
			if err != nil {
				return err
			}
			defer st.Close()

			run, err := st.GetRun(context.Background(), args[0])
			if err != nil {
				return err
			}
			if run == nil {
				return fmt.Errorf("run %s not found", args[0])
			}
			fmt.Printf("run:       %s\n", run.ID)
			fmt.Printf("scenario:  %s\n", run.Scenario)
			fmt.Printf("started:   %s (%s)\n", run.StartedAt.Format("2006-01-02 15:04:05"), humanize.Time(run.StartedAt))
			if run.FinishedAt != nil {
				fmt.Printf("finished:  %s\n", run.FinishedAt.Format("2006-01-02 15:04:05"))
			} else {
				fmt.Printf("finished:  (still running or aborted)\n")
			}
			s := run.Stats
			fmt.Printf("ticks:     %s (%s idle, %s busy)\n",
				humanize.Comma(s.Ticks), humanize.Comma(s.IdleTicks), humanize.Comma(s.KernelTicks))
			fmt.Printf("switches:  %d\n", s.Switches)
			fmt.Printf("threads:   %d created, %d exited\n", s.Created, s.Exited)
			return nil
		},
	}
}

func newTraceEventsCmd(dbPath *string) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "events <run-id>",
		Short: "Dump one run's event stream",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(*dbPath)
			if err != nil {
				return err
			}
			defer st.Close()

			events, err := st.ListEvents(context.Background(), args[0], limit)
			if err != nil {
				return err
			}
			if len(events) == 0 {
				return fmt.Errorf("no events for run %s", args[0])
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "SEQ\tTICK\tKIND\tTHREAD\tDETAIL")
			for _, ev := range events {
				fmt.Fprintf(w, "%d\t%d\t%s\t%s(%d)\t%s\n",
					ev.Seq, ev.Tick, ev.Kind, ev.Thread, ev.ThreadID, ev.Detail)
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 1000, "Maximum events to dump")
	return cmd
}
