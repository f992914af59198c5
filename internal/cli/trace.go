package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/pipetree/internal/runctx"
	"github.com/roach88/pipetree/internal/store"
)

// TraceOptions holds flags shared by the trace subcommands.
type TraceOptions struct {
	*RootOptions
	Database string
	Name     string
	Limit    int
	Path     string
	Keep     int
}

// PruneResult reports how many runs trace prune deleted.
type PruneResult struct {
	Removed int64 `json:"removed"`
	Kept    int   `json:"kept"`
}

// Text prints the count.
func (r PruneResult) Text(w io.Writer) error {
	_, err := fmt.Fprintf(w, "removed %d runs, kept at most %d\n", r.Removed, r.Kept)
	return err
}

// RunList is the output of trace list.
type RunList struct {
	Runs []store.RunRecord `json:"runs"`
}

// Text prints one run per line: id, root type, status.
func (l RunList) Text(w io.Writer) error {
	if len(l.Runs) == 0 {
		_, err := fmt.Fprintln(w, "No runs recorded.")
		return err
	}
	for _, r := range l.Runs {
		if _, err := fmt.Fprintf(w, "%s\t%s\t%s\n", r.ID, r.Name, r.Status); err != nil {
			return err
		}
	}
	return nil
}

// RunTrace is the output of trace show.
type RunTrace struct {
	Run     store.RunRecord `json:"run"`
	Entries []runctx.Entry  `json:"entries"`
}

// Text prints the run header and its entries.
func (t RunTrace) Text(w io.Writer) error {
	fmt.Fprintf(w, "run %s (%s, %s)\n", t.Run.ID, t.Run.Name, t.Run.Status)
	if t.Run.DefinitionHash != "" {
		fmt.Fprintf(w, "definition %s\n", t.Run.DefinitionHash)
	}
	return writeEntries(w, t.Entries)
}

// NewTraceCommand creates the trace command and its subcommands.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Inspect persisted runs",
		Long: `Inspect runs persisted by "pipetree run --db".

Examples:
  pipetree trace list --db runs.db --name sample.Plus
  pipetree trace show --db runs.db <run-id> --path .m`,
	}
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to SQLite trace database (defaults to trace.database from settings)")

	list := &cobra.Command{
		Use:           "list",
		Short:         "List runs, most recent first",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTraceList(opts, cmd)
		},
	}
	list.Flags().StringVar(&opts.Name, "name", "", "only runs of this root type")
	list.Flags().IntVar(&opts.Limit, "limit", 20, "maximum runs to list (0 for all)")

	show := &cobra.Command{
		Use:           "show <run-id>",
		Short:         "Show the entries of one run",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTraceShow(opts, args[0], cmd)
		},
	}
	show.Flags().StringVar(&opts.Path, "path", runctx.RootPath, "only the subtree rooted at this path")

	prune := &cobra.Command{
		Use:           "prune",
		Short:         "Delete all but the most recent runs",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTracePrune(opts, cmd)
		},
	}
	prune.Flags().IntVar(&opts.Keep, "keep", 100, "number of recent runs to keep")

	cmd.AddCommand(list, show, prune)
	return cmd
}

func openTraceStore(opts *TraceOptions) (*store.Store, error) {
	db := opts.Database
	if db == "" {
		db = opts.Settings.Trace.Database
	}
	if db == "" {
		return nil, NewExitError(ExitCommandError, "no trace database: pass --db or set trace.database")
	}
	st, err := store.Open(db)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

func runTraceList(opts *TraceOptions, cmd *cobra.Command) error {
	st, err := openTraceStore(opts)
	if err != nil {
		return err
	}
	defer st.Close()

	runs, err := st.ListRuns(commandContext(cmd), opts.Name, opts.Limit)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list runs", err)
	}
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	return formatter.Success(RunList{Runs: runs})
}

func runTraceShow(opts *TraceOptions, id string, cmd *cobra.Command) error {
	st, err := openTraceStore(opts)
	if err != nil {
		return err
	}
	defer st.Close()

	rec, entries, err := st.ReadRun(commandContext(cmd), id)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}
	filtered := entries[:0]
	for _, e := range entries {
		if runctx.InSubtree(opts.Path, e.Path) {
			filtered = append(filtered, e)
		}
	}
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	return formatter.SuccessRun(rec.ID, RunTrace{Run: rec, Entries: filtered})
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func runTracePrune(opts *TraceOptions, cmd *cobra.Command) error {
	if opts.Keep < 0 {
		return NewExitError(ExitCommandError, "--keep must be >= 0")
	}
	st, err := openTraceStore(opts)
	if err != nil {
		return err
	}
	defer st.Close()

	n, err := st.PruneRuns(commandContext(cmd), opts.Keep)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to prune runs", err)
	}
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	return formatter.Success(PruneResult{Removed: n, Kept: opts.Keep})
}
