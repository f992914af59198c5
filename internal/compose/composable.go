package compose

import (
	"errors"
	"fmt"
	"maps"
	"reflect"
	"slices"
	"strings"
	"sync"

	"github.com/roach88/pipetree/internal/runctx"
	"github.com/roach88/pipetree/internal/slot"
)

// Composable is one configured instance of a Type.
//
// Configuring a Composable is not safe for concurrent use. Once its
// defaults have resolved, concurrent invocations without overrides are
// allowed. FanOut gives each worker its own Clone.
type Composable struct {
	typ   *Type
	table *slot.Table
	env   *Env

	// runOverrides are replayed on every invocation until replaced.
	runOverrides map[string]any

	// registered holds children reached through containers rather than
	// declared Node slots.
	registered map[string]*Composable

	lastMu   sync.Mutex
	lastRun  *runctx.Run
	lastPath string
}

// New builds an instance, applies kwargs (dotted paths allowed) and runs
// the Init hook.
func (t *Type) New(kwargs map[string]any, opts ...InstanceOption) (*Composable, error) {
	c := &Composable{typ: t, table: slot.NewTable(t.reg)}
	for _, opt := range opts {
		opt(c)
	}
	for _, path := range sortedKeys(kwargs) {
		if err := c.setPath(path, kwargs[path], false); err != nil {
			return nil, err
		}
	}
	if err := c.refresh(); err != nil {
		return nil, err
	}
	return c, nil
}

// MustNew is like New but panics on error.
func (t *Type) MustNew(kwargs map[string]any, opts ...InstanceOption) *Composable {
	c, err := t.New(kwargs, opts...)
	if err != nil {
		panic(err)
	}
	return c
}

// InstanceOption configures a new instance.
type InstanceOption func(*Composable)

// WithEnv sets the environment of the instance and the children it
// creates.
func WithEnv(env *Env) InstanceOption {
	return func(c *Composable) { c.env = env }
}

// Type returns the instance's type.
func (c *Composable) Type() *Type { return c.typ }

// TypeName returns the qualified type name.
func (c *Composable) TypeName() string { return c.typ.name }

// Env returns the environment the instance runs in.
func (c *Composable) Env() *Env {
	if c.env == nil {
		return DefaultEnv()
	}
	return c.env
}

// SetEnv replaces the environment.
func (c *Composable) SetEnv(env *Env) { c.env = env }

func (c *Composable) refresh() error {
	if c.typ.init == nil {
		return nil
	}
	if err := c.typ.init(c); err != nil {
		return fmt.Errorf("%s init: %w", c.typ.name, err)
	}
	return nil
}

// Get resolves a slot.
func (c *Composable) Get(name string) (any, error) {
	v, err := c.table.Resolve(c, name)
	if err != nil {
		return nil, err
	}
	if child, ok := v.(*Composable); ok {
		c.adopt(child)
	}
	return v, nil
}

// adopt hands the parent's environment to a child that has none.
func (c *Composable) adopt(child *Composable) {
	if child.env == nil {
		child.env = c.env
	}
}

// Node resolves a Node slot or a registered child.
func (c *Composable) Node(name string) (*Composable, error) {
	spec, declared := c.typ.reg.Lookup(name)
	if !declared {
		if child, ok := c.registered[name]; ok {
			return child, nil
		}
		return nil, slot.NewUnknownSlotError(c.typ.name, name)
	}
	if spec.Kind != slot.KindNode {
		return nil, fmt.Errorf("%s.%s: %w", c.typ.name, name, ErrNotANode)
	}
	v, err := c.Get(name)
	if err != nil {
		return nil, err
	}
	child, ok := v.(*Composable)
	if !ok || child == nil {
		return nil, fmt.Errorf("%s.%s holds %T: %w", c.typ.name, name, v, ErrNotANode)
	}
	return child, nil
}

// As resolves a slot and converts it to T. Numeric values convert between
// numeric types.
func As[T any](c *Composable, name string) (T, error) {
	var zero T
	v, err := c.GetPath(name)
	if err != nil {
		return zero, err
	}
	if t, ok := v.(T); ok {
		return t, nil
	}
	want := reflect.TypeFor[T]()
	rv := reflect.ValueOf(v)
	if v != nil && isNumeric(rv.Kind()) && isNumeric(want.Kind()) {
		return rv.Convert(want).Interface().(T), nil
	}
	return zero, slot.NewIncompatibleTypeError(c.typ.name, name, want, reflect.TypeOf(v))
}

func isNumeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// Set stores an explicit value. A Node slot accepts a *Composable, a
// *Type or a Partial; types are instantiated immediately.
func (c *Composable) Set(name string, value any) error {
	return c.setPath(name, value, true)
}

// SetPath is Set for a dotted path through Node values.
func (c *Composable) SetPath(path string, value any) error {
	return c.setPath(path, value, true)
}

func (c *Composable) setPath(path string, value any, refresh bool) error {
	owner, name, err := c.walk(path)
	if err != nil {
		return err
	}
	return owner.setLocal(name, value, refresh)
}

func (c *Composable) setLocal(name string, value any, refresh bool) error {
	spec, ok := c.typ.reg.Lookup(name)
	if !ok {
		return slot.NewUnknownSlotError(c.typ.name, name)
	}
	if spec.Kind == slot.KindNode && value != nil {
		child, err := asChild(value)
		if err != nil {
			return slot.NewIncompatibleTypeError(c.typ.name, name, composableType, reflect.TypeOf(value))
		}
		c.adopt(child)
		value = child
	}
	if err := c.table.Set(name, value); err != nil {
		return err
	}
	if refresh && spec.RefreshOnSet {
		return c.refresh()
	}
	return nil
}

func asChild(v any) (*Composable, error) {
	switch val := v.(type) {
	case *Composable:
		return val, nil
	case slot.Factory:
		built, err := val.Instantiate()
		if err != nil {
			return nil, err
		}
		if child, ok := built.(*Composable); ok {
			return child, nil
		}
	}
	return nil, ErrNotANode
}

// Unset returns a slot to its declared default.
func (c *Composable) Unset(name string) error {
	owner, local, err := c.walk(name)
	if err != nil {
		return err
	}
	return owner.table.Unset(local)
}

// GetPath resolves a dotted path through Node values.
func (c *Composable) GetPath(path string) (any, error) {
	owner, name, err := c.walk(path)
	if err != nil {
		return nil, err
	}
	return owner.Get(name)
}

// walk resolves every segment but the last and returns the owner of the
// last segment.
func (c *Composable) walk(path string) (*Composable, string, error) {
	segs := strings.Split(strings.TrimPrefix(path, "."), ".")
	cur := c
	for _, seg := range segs[:len(segs)-1] {
		next, err := cur.Node(seg)
		if err != nil {
			return nil, "", fmt.Errorf("walk %s: %w", path, err)
		}
		cur = next
	}
	return cur, segs[len(segs)-1], nil
}

// Params returns the Param slot names in declaration order.
func (c *Composable) Params() []string { return c.typ.reg.NamesOf(slot.KindParam) }

// Nodes returns the Node slot names in declaration order.
func (c *Composable) Nodes() []string { return c.typ.reg.NamesOf(slot.KindNode) }

// State returns the stored state of a slot without resolving it.
func (c *Composable) State(name string) slot.State { return c.table.State(name) }

// Register records a child reached through a container under an edge
// name, so Call can reach it and its invocations are traced.
func (c *Composable) Register(edge string, child *Composable) error {
	if _, ok := c.typ.reg.Lookup(edge); ok {
		return fmt.Errorf("register %s: edge names a declared slot", edge)
	}
	if c.registered == nil {
		c.registered = make(map[string]*Composable)
	}
	c.adopt(child)
	c.registered[edge] = child
	return nil
}

// Children returns the registered children by edge.
func (c *Composable) Children() map[string]*Composable {
	return maps.Clone(c.registered)
}

// edgeOf returns the edge under which child is held by c, without
// resolving anything.
func (c *Composable) edgeOf(child *Composable) (string, bool) {
	for _, name := range c.typ.reg.NamesOf(slot.KindNode) {
		if v, st := c.table.Peek(name); st != slot.Unset && v == child {
			return name, true
		}
	}
	for edge, reg := range c.registered {
		if reg == child {
			return edge, true
		}
	}
	return "", false
}

// Missing lists dotted slot paths that would fail to resolve. Nothing is
// resolved or instantiated.
type Missing struct {
	Params []string `json:"params" yaml:"params"`
	Nodes  []string `json:"nodes" yaml:"nodes"`
}

// Missing returns the slots of the tree that have no resolvable value.
func (c *Composable) Missing() Missing {
	var m Missing
	c.collectMissing("", &m)
	return m
}

func (c *Composable) collectMissing(prefix string, m *Missing) {
	params, nodes := c.table.Missing()
	for _, p := range params {
		m.Params = append(m.Params, prefix+p)
	}
	for _, n := range nodes {
		m.Nodes = append(m.Nodes, prefix+n)
	}
	for _, name := range c.typ.reg.NamesOf(slot.KindNode) {
		v, st := c.table.Peek(name)
		if st != slot.Unset {
			if child, ok := v.(*Composable); ok && child != nil {
				child.collectMissing(prefix+name+".", m)
			}
			continue
		}
		spec, _ := c.typ.reg.Lookup(name)
		switch d := spec.Default.(type) {
		case *Type:
			typeMissing(d, nil, prefix+name+".", m)
		case Partial:
			typeMissing(d.Type, d.Kwargs, prefix+name+".", m)
		}
	}
}

// typeMissing reports what a not yet instantiated default would miss.
// Dotted keys in provided bind slots of the named child.
func typeMissing(t *Type, provided map[string]any, prefix string, m *Missing) {
	for _, name := range t.reg.Names() {
		spec, _ := t.reg.Lookup(name)
		if _, ok := provided[name]; ok {
			continue
		}
		if !spec.HasDefault() {
			if spec.Kind == slot.KindNode {
				m.Nodes = append(m.Nodes, prefix+name)
			} else {
				m.Params = append(m.Params, prefix+name)
			}
			continue
		}
		if spec.Kind != slot.KindNode {
			continue
		}
		nested := childKwargs(provided, name)
		switch d := spec.Default.(type) {
		case *Type:
			typeMissing(d, nested, prefix+name+".", m)
		case Partial:
			merged := maps.Clone(d.Kwargs)
			if merged == nil {
				merged = make(map[string]any, len(nested))
			}
			maps.Copy(merged, nested)
			typeMissing(d.Type, merged, prefix+name+".", m)
		}
	}
}

// childKwargs returns the entries of kwargs addressed to child through a
// "child." prefix, with the prefix removed.
func childKwargs(kwargs map[string]any, child string) map[string]any {
	var out map[string]any
	for k, v := range kwargs {
		rest, ok := strings.CutPrefix(k, child+".")
		if !ok || rest == "" {
			continue
		}
		if out == nil {
			out = make(map[string]any)
		}
		out[rest] = v
	}
	return out
}

// Spec returns a copy of the declaration at a dotted path, walking
// through Node values. A Partial default keeps its bound arguments.
func (c *Composable) Spec(path string) (slot.Spec, error) {
	owner, name, err := c.walk(path)
	if err != nil {
		return slot.Spec{}, err
	}
	spec, ok := owner.typ.reg.Lookup(name)
	if !ok {
		return slot.Spec{}, slot.NewUnknownSlotError(owner.typ.name, name)
	}
	return *spec.Clone(), nil
}

// Apply calls fn on c and every resolvable descendant, depth first in
// declaration order. Paths are relative to c. Unresolvable nodes are
// skipped.
func (c *Composable) Apply(fn func(path string, node *Composable) error) error {
	return c.apply(runctx.RootPath, fn)
}

func (c *Composable) apply(path string, fn func(string, *Composable) error) error {
	if err := fn(path, c); err != nil {
		return err
	}
	for _, name := range c.typ.reg.NamesOf(slot.KindNode) {
		child, err := c.Node(name)
		if slot.IsMissingValue(err) || errors.Is(err, ErrNotANode) {
			continue
		}
		if err != nil {
			return err
		}
		if err := child.apply(runctx.Join(path, name), fn); err != nil {
			return err
		}
	}
	for _, edge := range sortedKeys(c.registered) {
		if err := c.registered[edge].apply(runctx.Join(path, edge), fn); err != nil {
			return err
		}
	}
	return nil
}

// Clone returns a deep copy: slot states, versions, persisted overrides
// and every materialized child. The copy has no run history.
func (c *Composable) Clone() *Composable {
	cp := &Composable{
		typ:          c.typ,
		table:        c.table.Clone(),
		env:          c.env,
		runOverrides: maps.Clone(c.runOverrides),
	}
	for _, name := range c.typ.reg.NamesOf(slot.KindNode) {
		if v, st := c.table.Peek(name); st != slot.Unset {
			if child, ok := v.(*Composable); ok && child != nil {
				cp.table.Replace(name, child.Clone())
			}
		}
	}
	if c.registered != nil {
		cp.registered = make(map[string]*Composable, len(c.registered))
		for edge, child := range c.registered {
			cp.registered[edge] = child.Clone()
		}
	}
	return cp
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}
