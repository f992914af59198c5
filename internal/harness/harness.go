package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"slices"

	"github.com/roach88/pipetree/internal/cache"
	"github.com/roach88/pipetree/internal/compose"
	"github.com/roach88/pipetree/internal/middleware"
	"github.com/roach88/pipetree/internal/runctx"
	"github.com/roach88/pipetree/internal/sample"
	"github.com/roach88/pipetree/internal/store"
	"github.com/roach88/pipetree/internal/testutil"
)

// Harness executes the flow of one scenario.
type Harness struct {
	tree   *compose.Composable
	traces *store.Store
	env    *compose.Env
	runIDs []string
	logger *slog.Logger
}

// Run executes a scenario against the sample types and returns the
// result.
//
// Each scenario gets a fresh in-memory trace database, memory cache,
// deterministic clock and run ids run-1, run-2, ...
func Run(scenario *Scenario) (*Result, error) {
	return RunWith(scenario, sample.AllowList())
}

// RunWith is Run with a caller-supplied resolver for the tree's types.
func RunWith(scenario *Scenario, resolver compose.Resolver) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	env := compose.NewEnv(middleware.Deps{Cache: cache.NewMemory(), Logger: logger})
	env.Runs = runctx.NewStore(
		runctx.WithClock(testutil.NewDeterministicClock()),
		runctx.WithIDGenerator(testutil.NewSequentialIDs("run")),
	)
	env.Persister = st

	tree, err := compose.Load(&scenario.Tree, resolver, compose.WithEnv(env))
	if err != nil {
		return nil, fmt.Errorf("failed to load tree: %w", err)
	}

	h := &Harness{tree: tree, traces: st, env: env, logger: logger}

	ctx := context.Background()
	result := NewResult()
	if err := h.executeFlow(ctx, scenario.Flow, result); err != nil {
		return nil, fmt.Errorf("failed to execute flow: %w", err)
	}

	actx := &AssertionContext{Tree: tree, Ctx: ctx}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}
	return result, nil
}

// executeFlow runs the flow steps in order. A step whose invocation fails
// is recorded, not returned: errors are an expected outcome.
func (h *Harness) executeFlow(ctx context.Context, flow []FlowStep, result *Result) error {
	for i, step := range flow {
		for _, path := range slices.Sorted(maps.Keys(step.Set)) {
			if err := h.tree.SetPath(path, step.Set[path]); err != nil {
				return fmt.Errorf("flow step %d: set %s: %w", i, path, err)
			}
		}

		opts, err := h.invokeOptions(ctx, i, step)
		if err != nil {
			return err
		}

		in := runctx.Input{Args: step.Args, Kwargs: step.Kwargs}
		out, callErr := h.tree.Invoke(ctx, in, opts...)

		run := h.tree.LastRun()
		if run == nil {
			return fmt.Errorf("flow step %d: invocation produced no run", i)
		}
		h.runIDs = append(h.runIDs, run.ID)
		h.logger.Debug("flow step finished", "step", i, "run", run.ID, "status", run.Status())

		sr := StepResult{RunID: run.ID, Output: out, Entries: orderedEntries(run)}
		if callErr != nil {
			sr.Output = nil
			sr.Error = callErr.Error()
		}
		result.Steps = append(result.Steps, sr)

		for _, msg := range checkExpect(i, step.Expect, sr) {
			result.AddError(msg)
		}
	}
	return nil
}

func (h *Harness) invokeOptions(ctx context.Context, i int, step FlowStep) ([]compose.InvokeOption, error) {
	var opts []compose.InvokeOption
	if len(step.Overrides) > 0 {
		opts = append(opts, compose.WithOverrides(step.Overrides))
	}
	if step.From == "" && step.To == "" && step.Previous == nil {
		return opts, nil
	}

	plan := runctx.SkipPlan{From: step.From, To: step.To}
	if step.Previous != nil {
		id := h.runIDs[*step.Previous]
		prev, err := h.traces.LoadRun(ctx, id, runctx.NewStore())
		if err != nil {
			return nil, fmt.Errorf("flow step %d: load previous run %s: %w", i, id, err)
		}
		plan.Previous = runctx.PreviousFrom(prev)
	}
	return append(opts, compose.WithSkip(plan)), nil
}

func checkExpect(i int, expect *Expect, sr StepResult) []string {
	if expect == nil {
		return nil
	}
	var errs []string
	if expect.Error != "" {
		if sr.Error == "" {
			errs = append(errs, fmt.Sprintf("flow step %d: expected error containing %q, got output %v", i, expect.Error, sr.Output))
		} else if !containsFold(sr.Error, expect.Error) {
			errs = append(errs, fmt.Sprintf("flow step %d: expected error containing %q, got %q", i, expect.Error, sr.Error))
		}
		return errs
	}
	if sr.Error != "" {
		return append(errs, fmt.Sprintf("flow step %d: unexpected error: %s", i, sr.Error))
	}
	if expect.Output != nil && !sameValue(expect.Output, sr.Output) {
		errs = append(errs, fmt.Sprintf("flow step %d: expected output %v, got %v", i, expect.Output, sr.Output))
	}
	return errs
}

func orderedEntries(run *runctx.Run) []runctx.Entry {
	entries := run.Entries()
	out := make([]runctx.Entry, 0, len(entries))
	for _, p := range run.Paths() {
		out = append(out, entries[p])
	}
	return out
}
