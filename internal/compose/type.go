package compose

import (
	"context"
	"fmt"
	"maps"
	"reflect"
	"slices"
	"sync"

	"github.com/roach88/pipetree/internal/middleware"
	"github.com/roach88/pipetree/internal/runctx"
	"github.com/roach88/pipetree/internal/slot"
)

// RunFunc is the run logic of a type.
type RunFunc func(ctx context.Context, c *Composable, in runctx.Input) (any, error)

// InitFunc runs after construction and, for RefreshOnSet slots, after
// every Set.
type InitFunc func(c *Composable) error

// Type is a defined composable type. Types are immutable once defined.
type Type struct {
	name    string
	help    string
	parents []*Type
	reg     *slot.Registry

	run       RunFunc
	init      InitFunc
	signature *slot.Signature

	section  string
	switches map[string]bool
}

// Name returns the qualified type name.
func (t *Type) Name() string { return t.name }

// Help returns the type's description.
func (t *Type) Help() string { return t.help }

// Registry returns the merged slot registry.
func (t *Type) Registry() *slot.Registry { return t.reg }

// Signature returns the run-logic descriptor, or nil when undeclared.
func (t *Type) Signature() *slot.Signature { return t.signature }

// Section returns the middleware section and the merged switches.
func (t *Type) Section() (string, map[string]bool) {
	return t.section, maps.Clone(t.switches)
}

// Parents returns the direct ancestors in precedence order.
func (t *Type) Parents() []*Type { return slices.Clone(t.parents) }

// IsA reports whether t is other or inherits from it.
func (t *Type) IsA(other *Type) bool {
	if t == other {
		return true
	}
	for _, p := range t.parents {
		if p.IsA(other) {
			return true
		}
	}
	return false
}

// Instantiate builds a default-configured instance. It lets a *Type be a
// Node default that is only constructed on first access.
func (t *Type) Instantiate() (any, error) {
	return t.New(nil)
}

// With pre-binds construction arguments, applied when the partial is
// instantiated.
func (t *Type) With(kwargs map[string]any) Partial {
	return Partial{Type: t, Kwargs: maps.Clone(kwargs)}
}

// Partial is a type with pre-bound construction arguments.
type Partial struct {
	Type   *Type
	Kwargs map[string]any
}

// Instantiate builds an instance with the bound arguments.
func (p Partial) Instantiate() (any, error) {
	return p.Type.New(p.Kwargs)
}

// Option configures a type under definition.
type Option func(*definition) error

type definition struct {
	name      string
	help      string
	parents   []*Type
	specs     []slot.Spec
	keywords  []string
	run       RunFunc
	init      InitFunc
	signature *slot.Signature
	section   string
	switches  map[string]bool
}

// Extends lists the types to inherit from, in precedence order.
func Extends(parents ...*Type) Option {
	return func(d *definition) error {
		for _, p := range parents {
			if p == nil {
				return fmt.Errorf("extends: nil parent")
			}
		}
		d.parents = append(d.parents, parents...)
		return nil
	}
}

// Keywords protects names from being declared as slots by this type and
// every descendant.
func Keywords(names ...string) Option {
	return func(d *definition) error {
		d.keywords = append(d.keywords, names...)
		return nil
	}
}

// Middleware selects the middleware section and updates the inherited
// on/off switches.
func Middleware(section string, switches map[string]bool) Option {
	return func(d *definition) error {
		d.section = section
		d.switches = middleware.MergeSwitches(d.switches, switches)
		return nil
	}
}

// Switch turns one middleware of the inherited section on or off.
func Switch(name string, on bool) Option {
	return func(d *definition) error {
		d.switches = middleware.MergeSwitches(d.switches, map[string]bool{name: on})
		return nil
	}
}

// Run sets the run logic.
func Run(fn RunFunc) Option {
	return func(d *definition) error {
		d.run = fn
		return nil
	}
}

// Init sets the post-construction hook.
func Init(fn InitFunc) Option {
	return func(d *definition) error {
		d.init = fn
		return nil
	}
}

// Signature declares the run-logic descriptor used by IsCompatible.
func Signature(sig *slot.Signature) Option {
	return func(d *definition) error {
		d.signature = sig
		return nil
	}
}

// Help sets the type description.
func Help(text string) Option {
	return func(d *definition) error {
		d.help = text
		return nil
	}
}

// Param declares a value slot.
func Param(name string, opts ...SlotOption) Option {
	return declare(name, func(s *slot.Spec) { s.Kind = slot.KindParam }, opts)
}

// Node declares a child composable slot.
func Node(name string, opts ...SlotOption) Option {
	return declare(name, func(s *slot.Spec) {
		s.Kind = slot.KindNode
		if s.Type == nil {
			s.Type = composableType
		}
	}, opts)
}

// Attr declares a slot and classifies it: a Node when its default is a
// *Type or Partial or its declared type is *Composable, a Param otherwise.
func Attr(name string, opts ...SlotOption) Option {
	return declare(name, func(s *slot.Spec) {
		if isNodeSpec(s) {
			s.Kind = slot.KindNode
			if s.Type == nil {
				s.Type = composableType
			}
		}
	}, opts)
}

var composableType = reflect.TypeFor[*Composable]()

func isNodeSpec(s *slot.Spec) bool {
	switch s.Default.(type) {
	case *Type, Partial:
		return true
	}
	return s.Type == composableType
}

func declare(name string, classify func(*slot.Spec), opts []SlotOption) Option {
	return func(d *definition) error {
		s := slot.Spec{Name: name}
		for _, opt := range opts {
			opt(&s)
		}
		classify(&s)
		d.specs = append(d.specs, s)
		return nil
	}
}

var (
	typesMu sync.RWMutex
	types   = make(map[string]*Type)
)

// Define builds and registers a type. A type without Extends inherits from
// Base. Redefining a name replaces the registered type.
func Define(name string, opts ...Option) (*Type, error) {
	d, err := newDefinition(name, opts)
	if err != nil {
		return nil, err
	}
	if len(d.parents) == 0 {
		d.parents = []*Type{Base}
	}
	return define(d)
}

func newDefinition(name string, opts []Option) (*definition, error) {
	d := &definition{name: name}
	for _, opt := range opts {
		if err := opt(d); err != nil {
			return nil, fmt.Errorf("define %s: %w", name, err)
		}
	}
	return d, nil
}

func define(d *definition) (*Type, error) {
	name := d.name
	parentRegs := make([]*slot.Registry, len(d.parents))
	for i, p := range d.parents {
		parentRegs[i] = p.reg
	}
	reg, err := slot.NewRegistry(name, parentRegs, d.specs, d.keywords)
	if err != nil {
		return nil, err
	}

	t := &Type{
		name:      name,
		help:      d.help,
		parents:   d.parents,
		reg:       reg,
		run:       d.run,
		init:      d.init,
		signature: d.signature,
		section:   d.section,
	}

	// First parent wins for everything not set at this level; switches
	// accumulate with the first parent applied last.
	var inherited map[string]bool
	for i := len(d.parents) - 1; i >= 0; i-- {
		inherited = middleware.MergeSwitches(inherited, d.parents[i].switches)
	}
	t.switches = middleware.MergeSwitches(inherited, d.switches)
	for _, p := range d.parents {
		if t.run == nil {
			t.run = p.run
		}
		if t.init == nil {
			t.init = p.init
		}
		if t.signature == nil {
			t.signature = p.signature
		}
		if t.section == "" {
			t.section = p.section
		}
	}
	if t.section == "" {
		t.section = middleware.SectionDefault
	}

	typesMu.Lock()
	types[name] = t
	typesMu.Unlock()
	return t, nil
}

// MustDefine is like Define but panics on error. For package-level type
// declarations.
func MustDefine(name string, opts ...Option) *Type {
	t, err := Define(name, opts...)
	if err != nil {
		panic(err)
	}
	return t
}

// Lookup returns the registered type with the given name.
func Lookup(name string) (*Type, bool) {
	typesMu.RLock()
	defer typesMu.RUnlock()
	t, ok := types[name]
	return t, ok
}

// TypeNames returns every registered type name in sorted order.
func TypeNames() []string {
	typesMu.RLock()
	defer typesMu.RUnlock()
	return slices.Sorted(maps.Keys(types))
}

// BaseKeywords are the names every composable reserves for its own API.
var BaseKeywords = []string{
	"apply", "call", "clone", "describe", "dump", "get", "invoke",
	"last_run", "logs", "missing", "nodes", "params", "run", "set",
	"set_run", "spec", "unset",
}

// Base is the root of every type hierarchy.
var Base = defineBase()

func defineBase() *Type {
	d, err := newDefinition("pipetree.Composable", []Option{
		Keywords(BaseKeywords...),
		Middleware(middleware.SectionDefault, nil),
	})
	if err != nil {
		panic(err)
	}
	t, err := define(d)
	if err != nil {
		panic(err)
	}
	return t
}
