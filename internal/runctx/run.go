package runctx

import (
	"fmt"
	"maps"
	"slices"
	"sync"
)

// Run is one top-level invocation and every entry of its call tree.
//
// A Run is safe for concurrent use. Forked views (see Fork) share the id
// and name but keep their own entries until merged.
type Run struct {
	ID   string
	Name string

	mu      sync.Mutex
	clock   Sequencer
	entries map[string]*Entry
	calls   map[string]int

	skip *skipState
}

func newRun(id, name string, clock Sequencer) *Run {
	return &Run{
		ID:      id,
		Name:    name,
		clock:   clock,
		entries: make(map[string]*Entry),
		calls:   make(map[string]int),
	}
}

// Key returns "name|id", the run's key in the store.
func (r *Run) Key() string {
	return r.Name + "|" + r.ID
}

// Allocate reserves the next path for edge under parent: edge on the
// first call, edge[k] on the k-th repeat.
func (r *Run) Allocate(parent, edge string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.allocate(parent, edge)
}

func (r *Run) allocate(parent, edge string) string {
	key := parent + "\x00" + edge
	k := r.calls[key]
	r.calls[key] = k + 1
	return Indexed(parent, edge, k)
}

// Reserve allocates n consecutive paths for edge under parent in order.
// Fan-out uses it so indices follow submission order, not completion order.
func (r *Run) Reserve(parent, edge string, n int) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, n)
	for i := range out {
		out[i] = r.allocate(parent, edge)
	}
	return out
}

// Begin records a running entry at path.
func (r *Run) Begin(path, typeName string, in Input) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[path]; ok {
		return fmt.Errorf("begin %s: %w", path, ErrEntryExists)
	}
	r.entries[path] = &Entry{
		Path:   path,
		Type:   typeName,
		Status: StatusRunning,
		Input:  in.Clone(),
		Seq:    r.clock.Next(),
	}
	return nil
}

// Enter allocates the next path for edge under parent and begins it.
func (r *Run) Enter(parent, edge, typeName string, in Input) (string, error) {
	path := r.Allocate(parent, edge)
	return path, r.Begin(path, typeName, in)
}

// Complete finalizes path as done with output.
func (r *Run) Complete(path string, output any) error {
	return r.finalize(path, func(e *Entry) {
		e.Status = StatusDone
		e.Output = output
	})
}

// Fail finalizes path as errored with err's message.
func (r *Run) Fail(path string, err error) error {
	return r.finalize(path, func(e *Entry) {
		e.Status = StatusError
		if err != nil {
			e.Error = err.Error()
		}
	})
}

func (r *Run) finalize(path string, apply func(*Entry)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[path]
	if !ok {
		return fmt.Errorf("finalize %s: %w", path, ErrUnknownEntry)
	}
	if e.Status != StatusRunning {
		return fmt.Errorf("finalize %s: %w", path, ErrEntryFinalized)
	}
	apply(e)
	return nil
}

// Annotate adds a flag to a running entry.
func (r *Run) Annotate(path, flag string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[path]
	if !ok {
		return fmt.Errorf("annotate %s: %w", path, ErrUnknownEntry)
	}
	if e.Status != StatusRunning {
		return fmt.Errorf("annotate %s: %w", path, ErrEntryFinalized)
	}
	if !slices.Contains(e.Flags, flag) {
		e.Flags = append(e.Flags, flag)
	}
	return nil
}

// Entry returns a copy of the entry at path.
func (r *Run) Entry(path string) (Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[path]
	if !ok {
		return Entry{}, false
	}
	return copyEntry(e), true
}

// Entries returns copies of all entries keyed by path.
func (r *Run) Entries() map[string]Entry {
	return r.Logs(RootPath)
}

// Logs returns copies of the entries of the subtree rooted at path.
func (r *Run) Logs(path string) map[string]Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]Entry)
	for p, e := range r.entries {
		if InSubtree(path, p) {
			out[p] = copyEntry(e)
		}
	}
	return out
}

// Paths returns entry paths ordered by Seq.
func (r *Run) Paths() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	paths := slices.Collect(maps.Keys(r.entries))
	slices.SortFunc(paths, func(a, b string) int {
		return int(r.entries[a].Seq - r.entries[b].Seq)
	})
	return paths
}

// Output returns the recorded output of a finished entry.
func (r *Run) Output(path string) (any, bool) {
	e, ok := r.Entry(path)
	if !ok || e.Status != StatusDone {
		return nil, false
	}
	return e.Output, true
}

// Status returns the root entry status, or running if it has not begun.
func (r *Run) Status() Status {
	if e, ok := r.Entry(RootPath); ok {
		return e.Status
	}
	return StatusRunning
}

// Fork returns an isolated view that writes to its own entries. Call
// counters are copied so numbering below already-allocated paths stays
// consistent. The skip state is shared.
func (r *Run) Fork() *Run {
	r.mu.Lock()
	defer r.mu.Unlock()
	return &Run{
		ID:      r.ID,
		Name:    r.Name,
		clock:   r.clock,
		entries: make(map[string]*Entry),
		calls:   maps.Clone(r.calls),
		skip:    r.skip,
	}
}

// Merge copies a fork's entries and call counters into r. Entries already
// present in r are kept.
func (r *Run) Merge(view *Run) {
	view.mu.Lock()
	entries := make(map[string]Entry, len(view.entries))
	for p, e := range view.entries {
		entries[p] = copyEntry(e)
	}
	calls := maps.Clone(view.calls)
	view.mu.Unlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	for p, e := range entries {
		if _, ok := r.entries[p]; ok {
			continue
		}
		r.entries[p] = &e
	}
	for k, n := range calls {
		if n > r.calls[k] {
			r.calls[k] = n
		}
	}
}

// restore inserts finished entries, used when loading a persisted run.
func (r *Run) restore(entries []Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range entries {
		cp := copyEntry(&e)
		r.entries[cp.Path] = &cp
	}
}

func copyEntry(e *Entry) Entry {
	out := *e
	out.Input = e.Input.Clone()
	out.Flags = slices.Clone(e.Flags)
	return out
}
