package compose

import (
	"context"
	"fmt"
	"maps"
	"strings"

	"github.com/roach88/pipetree/internal/runctx"
	"github.com/roach88/pipetree/internal/slot"
)

// InvokeOption configures one invocation.
type InvokeOption func(*invocation)

type invocation struct {
	overrides map[string]any
	skip      *runctx.SkipPlan
}

// WithOverrides sets slot values, by dotted path, for this call only. They
// take precedence over values persisted with SetRun.
func WithOverrides(overrides map[string]any) InvokeOption {
	return func(inv *invocation) {
		inv.overrides = mergeOverrides(inv.overrides, overrides)
	}
}

// WithSkip installs a skip plan on the run. Only honored by a root
// invocation.
func WithSkip(plan runctx.SkipPlan) InvokeOption {
	return func(inv *invocation) {
		inv.skip = &plan
	}
}

// SetRun persists overrides, by dotted path, replayed on every future
// invocation of c until replaced. Keys already persisted are updated.
func (c *Composable) SetRun(overrides map[string]any) {
	c.runOverrides = mergeOverrides(c.runOverrides, overrides)
}

// RunOverrides returns the persisted overrides.
func (c *Composable) RunOverrides() map[string]any {
	return maps.Clone(c.runOverrides)
}

func mergeOverrides(base, over map[string]any) map[string]any {
	out := maps.Clone(base)
	if out == nil {
		out = make(map[string]any, len(over))
	}
	maps.Copy(out, over)
	return out
}

type activeKey struct{}

func withActive(ctx context.Context, c *Composable) context.Context {
	return context.WithValue(ctx, activeKey{}, c)
}

func activeFrom(ctx context.Context) (*Composable, bool) {
	c, ok := ctx.Value(activeKey{}).(*Composable)
	return c, ok
}

// Invoke runs c. Called outside any run logic, c becomes the root of a new
// run. Inside a parent's run logic, c is traced under the edge through which
// the parent holds it; a composable the parent does not hold runs
// untraced.
func (c *Composable) Invoke(ctx context.Context, in runctx.Input, opts ...InvokeOption) (any, error) {
	inv := newInvocation(opts)

	parent, nested := activeFrom(ctx)
	if !nested {
		return c.invokeRoot(ctx, in, inv)
	}
	if frame, ok := runctx.FromContext(ctx); ok {
		if edge, ok := parent.edgeOf(c); ok {
			path := frame.Run.Allocate(frame.Path, edge)
			return c.execute(runctx.WithFrame(ctx, frame.Run, path), in, inv)
		}
	}
	return c.execute(runctx.WithFrame(ctx, nil, ""), in, inv)
}

// Call invokes the child held under edge with positional arguments.
func (c *Composable) Call(ctx context.Context, edge string, args ...any) (any, error) {
	return c.CallInput(ctx, edge, runctx.Input{Args: args})
}

// CallInput invokes the child held under edge. The child is recorded at
// the next free path for edge under c's path. Without an active run the
// child runs untraced.
func (c *Composable) CallInput(ctx context.Context, edge string, in runctx.Input, opts ...InvokeOption) (any, error) {
	child, err := c.Node(edge)
	if err != nil {
		return nil, err
	}
	inv := newInvocation(opts)
	frame, ok := runctx.FromContext(ctx)
	if !ok {
		return child.execute(ctx, in, inv)
	}
	path := frame.Run.Allocate(frame.Path, edge)
	return child.execute(runctx.WithFrame(ctx, frame.Run, path), in, inv)
}

func newInvocation(opts []InvokeOption) *invocation {
	inv := &invocation{}
	for _, opt := range opts {
		opt(inv)
	}
	return inv
}

func (c *Composable) invokeRoot(ctx context.Context, in runctx.Input, inv *invocation) (any, error) {
	env := c.Env()
	run := env.Runs.Begin(c.typ.name)
	if inv.skip != nil {
		run.SetSkipPlan(*inv.skip)
	}
	c.setLast(run, runctx.RootPath)

	out, err := c.execute(runctx.WithFrame(ctx, run, runctx.RootPath), in, inv)

	if env.Persister != nil {
		var def any
		if d, derr := c.Dump(); derr == nil {
			def = d
		}
		if perr := env.Persister.PersistRun(ctx, run, def); perr != nil {
			env.logger().Warn("run not persisted", "run", run.Key(), "error", perr)
		}
	}
	return out, err
}

// execute runs the middleware chain around the run logic at the frame
// carried by ctx.
func (c *Composable) execute(ctx context.Context, in runctx.Input, inv *invocation) (any, error) {
	if frame, ok := runctx.FromContext(ctx); ok {
		c.setLast(frame.Run, frame.Path)
	}

	overrides := mergeOverrides(c.runOverrides, inv.overrides)
	restore, err := c.applyOverrides(overrides)
	if err != nil {
		return nil, err
	}
	defer restore()

	env := c.Env()
	names, err := env.Middleware.Resolve(c.typ.section, c.typ.switches)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.typ.name, err)
	}
	chain, err := env.Middleware.Build(names, c, c.runLogic)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.typ.name, err)
	}
	return chain(withActive(ctx, c), in)
}

func (c *Composable) runLogic(ctx context.Context, in runctx.Input) (any, error) {
	if c.typ.run == nil {
		return nil, fmt.Errorf("%s: %w", c.typ.name, ErrNoRunLogic)
	}
	return c.typ.run(ctx, c, in)
}

type saved struct {
	owner *Composable
	name  string
	cell  slot.Cell
}

// applyOverrides sets each override and returns a function restoring the
// previous cells, cached defaults included.
func (c *Composable) applyOverrides(overrides map[string]any) (func(), error) {
	if len(overrides) == 0 {
		return func() {}, nil
	}
	var undo []saved
	restore := func() {
		for i := len(undo) - 1; i >= 0; i-- {
			s := undo[i]
			_ = s.owner.table.Restore(s.name, s.cell)
		}
	}
	for _, path := range sortedKeys(overrides) {
		owner, name, err := c.walk(path)
		if err != nil {
			restore()
			return nil, fmt.Errorf("override %s: %w", path, err)
		}
		prev := owner.table.Snapshot(name)
		if err := owner.setLocal(name, overrides[path], false); err != nil {
			restore()
			return nil, fmt.Errorf("override %s: %w", path, err)
		}
		undo = append(undo, saved{owner: owner, name: name, cell: prev})
	}
	return restore, nil
}

func (c *Composable) setLast(run *runctx.Run, path string) {
	c.lastMu.Lock()
	defer c.lastMu.Unlock()
	c.lastRun = run
	c.lastPath = path
}

func (c *Composable) last() (*runctx.Run, string) {
	c.lastMu.Lock()
	defer c.lastMu.Unlock()
	return c.lastRun, c.lastPath
}

// LastRun returns the most recent run c took part in.
func (c *Composable) LastRun() *runctx.Run {
	run, _ := c.last()
	return run
}

// Logs returns the entries of the most recent run for the subtree at
// path, relative to c.
//
// The result is flat: one entry per invoked node, keyed by its absolute
// run path ("." for the root, ".a.b" below it). LogTree nests the same
// entries by path segment.
func (c *Composable) Logs(path string) map[string]runctx.Entry {
	run, base := c.last()
	if run == nil {
		return map[string]runctx.Entry{}
	}
	return run.Logs(relativePath(base, path))
}

// LogNode is one entry of a LogTree with its child calls keyed by edge
// name, including any "[k]" repeat suffix.
type LogNode struct {
	Path     string
	Entry    runctx.Entry
	Children map[string]*LogNode
}

// LogTree returns the entries of Logs(path) nested under the entry at
// path. It returns nil when that entry was not recorded.
func (c *Composable) LogTree(path string) *LogNode {
	run, base := c.last()
	if run == nil {
		return nil
	}
	root := relativePath(base, path)
	logs := run.Logs(root)
	nodes := make(map[string]*LogNode, len(logs))
	for p, e := range logs {
		nodes[p] = &LogNode{Path: p, Entry: e, Children: map[string]*LogNode{}}
	}
	for p, n := range nodes {
		if p == root {
			continue
		}
		for anc := runctx.Parent(p); anc != ""; anc = runctx.Parent(anc) {
			if parent, ok := nodes[anc]; ok {
				parent.Children[runctx.Edge(p)] = n
				break
			}
		}
	}
	return nodes[root]
}

func relativePath(base, rel string) string {
	if rel == "" || rel == runctx.RootPath {
		return base
	}
	if base == runctx.RootPath || base == "" {
		return runctx.RootPath + strings.TrimPrefix(rel, ".")
	}
	return base + "." + strings.TrimPrefix(rel, ".")
}
