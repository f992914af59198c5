package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/pipetree/internal/compose"
	"github.com/roach88/pipetree/internal/runctx"
	"github.com/roach88/pipetree/internal/sample"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database  string
	Args      string
	Kwargs    string
	Set       []string
	Overrides []string
	From      string
	To        string
	Previous  string

	// IDGenerator overrides run id generation (for testing). Nil uses
	// UUIDv7.
	IDGenerator runctx.IDGenerator
}

// RunResult is the output of one run.
type RunResult struct {
	RunID   string         `json:"run_id"`
	Type    string         `json:"type"`
	Output  any            `json:"output,omitempty"`
	Error   string         `json:"error,omitempty"`
	Entries []runctx.Entry `json:"entries"`
}

// Text prints the output followed by one trace line per entry.
func (r RunResult) Text(w io.Writer) error {
	if r.Error != "" {
		fmt.Fprintf(w, "error: %s\n", r.Error)
	} else {
		fmt.Fprintf(w, "output: %v\n", r.Output)
	}
	return writeEntries(w, r.Entries)
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <tree.yaml>",
		Short: "Load a pipeline tree and invoke it",
		Long: `Load a dumped pipeline tree and invoke its root.

Only the built-in sample types may appear in the tree. Each call in the
tree is traced; with --db the finished run is persisted for "trace show"
and as a --previous run for partial re-execution.

Examples:
  pipetree run tree.yaml --args '[1, 2]'
  pipetree run tree.yaml --set x.a=3 --override a=50
  pipetree run tree.yaml --db runs.db --from .m --previous <run-id>`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTree(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite trace database")
	cmd.Flags().StringVar(&opts.Args, "args", "[]", "positional arguments as a JSON list")
	cmd.Flags().StringVar(&opts.Kwargs, "kwargs", "{}", "keyword arguments as a JSON object")
	cmd.Flags().StringArrayVar(&opts.Set, "set", nil, "set a slot before running (path=value, repeatable)")
	cmd.Flags().StringArrayVar(&opts.Overrides, "override", nil, "override a slot for this run only (path=value, repeatable)")
	cmd.Flags().StringVar(&opts.From, "from", "", "first step to execute (path pattern)")
	cmd.Flags().StringVar(&opts.To, "to", "", "last step to execute (path pattern)")
	cmd.Flags().StringVar(&opts.Previous, "previous", "", "run id whose outputs stand in for skipped steps (needs a database)")

	return cmd
}

func runTree(opts *RunOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	in, err := parseInput(opts.Args, opts.Kwargs)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid arguments", err)
	}
	overrides, err := parseAssignments(opts.Overrides)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --override", err)
	}

	sess, err := openSession(opts.RootOptions, opts.Database, opts.IDGenerator)
	if err != nil {
		return err
	}
	defer sess.Close()

	root, err := loadTree(path, sess.env)
	if err != nil {
		return err
	}
	formatter.VerboseLog("loaded %s from %s", root.TypeName(), path)

	sets, err := parseAssignments(opts.Set)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --set", err)
	}
	for _, k := range slices.Sorted(maps.Keys(sets)) {
		if err := root.SetPath(k, sets[k]); err != nil {
			return WrapExitError(ExitCommandError, "failed to set "+k, err)
		}
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	invokeOpts := []compose.InvokeOption{compose.WithOverrides(overrides)}
	if opts.From != "" || opts.To != "" || opts.Previous != "" {
		plan := runctx.SkipPlan{From: opts.From, To: opts.To}
		if opts.Previous != "" {
			if sess.traces == nil {
				return NewExitError(ExitCommandError, "--previous needs a trace database")
			}
			prev, err := sess.traces.LoadRun(ctx, opts.Previous, runctx.NewStore())
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to load previous run", err)
			}
			plan.Previous = runctx.PreviousFrom(prev)
		}
		invokeOpts = append(invokeOpts, compose.WithSkip(plan))
	}

	slog.Debug("invoking", "type", root.TypeName(), "args", len(in.Args), "kwargs", len(in.Kwargs))
	out, runErr := root.Invoke(ctx, in, invokeOpts...)

	result := RunResult{Type: root.TypeName(), Output: out}
	if run := root.LastRun(); run != nil {
		result.RunID = run.ID
		result.Entries = orderedEntries(run)
	}
	if runErr != nil {
		result.Output = nil
		result.Error = runErr.Error()
		if opts.Format == "json" {
			if err := formatter.Error(ErrorCode(runErr), runErr.Error(), result); err != nil {
				return err
			}
		} else if err := result.Text(formatter.Writer); err != nil {
			return err
		}
		return WrapExitError(ExitFailure, "run failed", runErr)
	}
	return formatter.SuccessRun(result.RunID, result)
}

// loadTree reads a YAML dump and loads it against the sample allow-list.
func loadTree(path string, env *compose.Env) (*compose.Composable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to read tree", err)
	}
	root, err := compose.UnmarshalYAML(data, sample.AllowList(), compose.WithEnv(env))
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load tree", err)
	}
	return root, nil
}

func parseInput(args, kwargs string) (runctx.Input, error) {
	var in runctx.Input
	if err := json.Unmarshal([]byte(args), &in.Args); err != nil {
		return in, fmt.Errorf("args: %w", err)
	}
	if err := json.Unmarshal([]byte(kwargs), &in.Kwargs); err != nil {
		return in, fmt.Errorf("kwargs: %w", err)
	}
	return in, nil
}

// parseAssignments turns "path=value" pairs into a map. Values are parsed
// as YAML scalars, so "3" is an int and "x" a string.
func parseAssignments(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]any, len(pairs))
	for _, p := range pairs {
		k, raw, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("%q: want path=value", p)
		}
		var v any
		if err := yaml.Unmarshal([]byte(raw), &v); err != nil {
			return nil, fmt.Errorf("%q: %w", p, err)
		}
		out[k] = v
	}
	return out, nil
}

// signalContext cancels on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func orderedEntries(run *runctx.Run) []runctx.Entry {
	entries := run.Entries()
	out := make([]runctx.Entry, 0, len(entries))
	for _, p := range run.Paths() {
		out = append(out, entries[p])
	}
	return out
}

// writeEntries prints one tab-separated line per entry: path, type,
// status, then output or error, then flags.
func writeEntries(w io.Writer, entries []runctx.Entry) error {
	for _, e := range entries {
		line := fmt.Sprintf("%s\t%s\t%s", e.Path, e.Type, e.Status)
		switch e.Status {
		case runctx.StatusDone:
			line += fmt.Sprintf("\t%v", e.Output)
		case runctx.StatusError:
			line += "\t" + e.Error
		}
		if len(e.Flags) > 0 {
			line += "\t[" + strings.Join(e.Flags, ",") + "]"
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
