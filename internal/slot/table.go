package slot

import (
	"maps"
	"reflect"
)

// State is the resolution state of one slot on one instance.
type State int

const (
	// Unset means nothing has been stored; resolution falls back to the Spec.
	Unset State = iota
	// Explicit means the value was set from outside and wins over everything.
	Explicit
	// Cached means the value came from a default or callback.
	Cached
)

func (s State) String() string {
	switch s {
	case Explicit:
		return "explicit"
	case Cached:
		return "cached"
	}
	return "unset"
}

type cell struct {
	state State
	value any

	// stamp is the dependency fingerprint at computation time.
	stamp uint64
}

// Table is the per-instance slot store.
type Table struct {
	reg      *Registry
	cells    map[string]*cell
	versions map[string]uint64
	revision uint64

	resolving map[string]bool
}

// NewTable creates an empty table for reg.
func NewTable(reg *Registry) *Table {
	return &Table{
		reg:       reg,
		cells:     make(map[string]*cell),
		versions:  make(map[string]uint64),
		resolving: make(map[string]bool),
	}
}

// Registry returns the registry the table resolves against.
func (t *Table) Registry() *Registry {
	return t.reg
}

// Resolve returns the current value of name for owner.
func (t *Table) Resolve(owner Owner, name string) (any, error) {
	spec, ok := t.reg.Lookup(name)
	if !ok {
		return nil, NewUnknownSlotError(t.reg.typeName, name)
	}
	c := t.cells[name]

	if c != nil && c.state == Explicit {
		return c.value, nil
	}

	if spec.AutoFunc != nil {
		stamp := t.stamp(spec, nil)
		if c == nil || c.state != Cached || spec.NoCache || c.stamp != stamp {
			return t.compute(owner, spec, spec.AutoFunc, stamp)
		}
		return c.value, nil
	}

	if c != nil && c.state == Cached {
		if spec.DefaultFunc == nil || spec.DependsOn == nil {
			return c.value, nil
		}
		stamp := t.stamp(spec, nil)
		if c.stamp == stamp {
			return c.value, nil
		}
		return t.compute(owner, spec, spec.DefaultFunc, stamp)
	}

	if spec.HasLiteralDefault() {
		v := spec.Default
		if f, ok := v.(Factory); ok && spec.Kind == KindNode {
			built, err := f.Instantiate()
			if err != nil {
				return nil, err
			}
			v = built
		}
		t.cells[name] = &cell{state: Cached, value: v}
		return v, nil
	}

	if spec.DefaultFunc != nil {
		var stamp uint64
		if spec.DependsOn != nil {
			stamp = t.stamp(spec, nil)
		}
		return t.compute(owner, spec, spec.DefaultFunc, stamp)
	}

	return nil, NewMissingValueError(t.reg.typeName, name)
}

func (t *Table) compute(owner Owner, spec *Spec, fn Func, stamp uint64) (any, error) {
	if t.resolving[spec.Name] {
		return nil, &Error{
			Code:    ErrCodeResolutionCycle,
			Slot:    spec.Name,
			Owner:   t.reg.typeName,
			Message: "callback reads its own slot",
		}
	}
	t.resolving[spec.Name] = true
	defer delete(t.resolving, spec.Name)

	v, err := fn(owner)
	if err != nil {
		return nil, err
	}
	t.cells[spec.Name] = &cell{state: Cached, value: v, stamp: stamp}
	return v, nil
}

// stamp is the effective version of everything spec watches. For a plain
// slot it is the slot's own version; for a callback slot it is the sum of
// the effective versions of its dependencies, or the table revision when
// DependsOn is nil. Versions only grow, so the sum changes whenever any
// watched version does.
func (t *Table) stamp(spec *Spec, visiting map[string]bool) uint64 {
	if spec.AutoFunc == nil && (spec.DefaultFunc == nil || spec.DependsOn == nil) {
		return t.versions[spec.Name]
	}
	if spec.DependsOn == nil {
		return t.revision
	}
	if visiting == nil {
		visiting = make(map[string]bool)
	}
	if visiting[spec.Name] {
		return 0
	}
	visiting[spec.Name] = true
	defer delete(visiting, spec.Name)

	var sum uint64
	for _, dep := range spec.DependsOn {
		ds, ok := t.reg.Lookup(dep)
		if !ok {
			continue
		}
		sum += t.versions[dep]
		if ds.AutoFunc != nil || (ds.DefaultFunc != nil && ds.DependsOn != nil) {
			sum += t.stamp(ds, visiting)
		}
	}
	return sum
}

// Set stores an explicit value.
func (t *Table) Set(name string, value any) error {
	spec, ok := t.reg.Lookup(name)
	if !ok {
		return NewUnknownSlotError(t.reg.typeName, name)
	}
	if spec.AutoFunc != nil {
		return NewImmutableSlotError(t.reg.typeName, name)
	}
	if !spec.accepts(value) {
		return NewIncompatibleTypeError(t.reg.typeName, name, spec.Type, reflect.TypeOf(value))
	}
	t.cells[name] = &cell{state: Explicit, value: value}
	t.bump(name)
	return nil
}

// Unset returns a slot to its declared default. Auto slots cannot be unset.
func (t *Table) Unset(name string) error {
	spec, ok := t.reg.Lookup(name)
	if !ok {
		return NewUnknownSlotError(t.reg.typeName, name)
	}
	if spec.AutoFunc != nil {
		return NewImmutableSlotError(t.reg.typeName, name)
	}
	if _, ok := t.cells[name]; !ok {
		return nil
	}
	delete(t.cells, name)
	t.bump(name)
	return nil
}

// Cell is a saved copy of one stored slot, taken by Snapshot.
type Cell struct {
	present bool
	state   State
	value   any
	stamp   uint64
}

// State returns the saved state.
func (c Cell) State() State {
	if !c.present {
		return Unset
	}
	return c.state
}

// Value returns the saved value.
func (c Cell) Value() any {
	return c.value
}

// Snapshot saves the stored state of name, including cached defaults.
func (t *Table) Snapshot(name string) Cell {
	c, ok := t.cells[name]
	if !ok {
		return Cell{}
	}
	return Cell{present: true, state: c.state, value: c.value, stamp: c.stamp}
}

// Restore puts back a cell saved by Snapshot. The slot version is bumped
// so that callbacks watching name recompute.
func (t *Table) Restore(name string, saved Cell) error {
	if _, ok := t.reg.Lookup(name); !ok {
		return NewUnknownSlotError(t.reg.typeName, name)
	}
	if saved.present {
		t.cells[name] = &cell{state: saved.state, value: saved.value, stamp: saved.stamp}
	} else {
		delete(t.cells, name)
	}
	t.bump(name)
	return nil
}

func (t *Table) bump(name string) {
	t.versions[name]++
	t.revision++
}

// State returns the stored state of name without resolving it.
func (t *Table) State(name string) State {
	if c, ok := t.cells[name]; ok {
		return c.state
	}
	return Unset
}

// Peek returns the stored value of name without resolving it.
func (t *Table) Peek(name string) (any, State) {
	if c, ok := t.cells[name]; ok {
		return c.value, c.state
	}
	return nil, Unset
}

// Version returns how many times name has been explicitly set or unset.
func (t *Table) Version(name string) uint64 {
	return t.versions[name]
}

// Revision returns how many explicit sets and unsets the table has seen.
func (t *Table) Revision() uint64 {
	return t.revision
}

// IsMissing reports whether resolving name would fail with MISSING_VALUE.
// It has no side effects.
func (t *Table) IsMissing(name string) bool {
	spec, ok := t.reg.Lookup(name)
	if !ok {
		return false
	}
	if t.State(name) != Unset {
		return false
	}
	return !spec.HasDefault()
}

// Missing returns the names of each kind that would fail resolution, in
// declaration order.
func (t *Table) Missing() (params, nodes []string) {
	for _, name := range t.reg.order {
		if !t.IsMissing(name) {
			continue
		}
		if t.reg.specs[name].Kind == KindNode {
			nodes = append(nodes, name)
		} else {
			params = append(params, name)
		}
	}
	return params, nodes
}

// Clone copies states and versions. Stored values are shared; callers that
// need deep copies of node values replace them after cloning.
func (t *Table) Clone() *Table {
	c := &Table{
		reg:       t.reg,
		cells:     make(map[string]*cell, len(t.cells)),
		versions:  maps.Clone(t.versions),
		revision:  t.revision,
		resolving: make(map[string]bool),
	}
	for name, cl := range t.cells {
		cp := *cl
		c.cells[name] = &cp
	}
	return c
}

// Replace overwrites a stored value in place, keeping its state and
// version. Used after Clone to swap shared node values for copies.
func (t *Table) Replace(name string, value any) {
	if c, ok := t.cells[name]; ok {
		c.value = value
	}
}
