package middleware

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/roach88/pipetree/internal/ir"
	"github.com/roach88/pipetree/internal/runctx"
)

// Next is one layer of the chain, down to the node's run logic.
type Next func(ctx context.Context, in runctx.Input) (any, error)

// Owner is the node a chain is built for.
type Owner interface {
	TypeName() string
	ir.Fingerprinter
}

// Factory wraps next for one invocation of owner.
type Factory func(owner Owner, next Next) Next

// ErrUnknownSection is returned when a type names a section that was never
// registered.
var ErrUnknownSection = errors.New("unknown middleware section")

// ErrUnknownMiddleware is returned when a section lists a name with no
// registered factory.
var ErrUnknownMiddleware = errors.New("unknown middleware")

// Registry holds middleware factories and named sections. Safe for
// concurrent use.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	sections  map[string][]string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
		sections:  make(map[string][]string),
	}
}

// Register adds or replaces the factory for name.
func (r *Registry) Register(name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

// SetSection adds or replaces a section.
func (r *Registry) SetSection(name string, members []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sections[name] = slices.Clone(members)
}

// Section returns the members of a section.
func (r *Registry) Section(name string) ([]string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.sections[name]
	return slices.Clone(m), ok
}

// Sections returns section names in sorted order.
func (r *Registry) Sections() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.sections))
}

// Resolve returns the members of section that are switched on. Names
// absent from switches are on; switches naming non-members are ignored.
func (r *Registry) Resolve(section string, switches map[string]bool) ([]string, error) {
	members, ok := r.Section(section)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSection, section)
	}
	out := members[:0]
	for _, name := range members {
		if on, ok := switches[name]; ok && !on {
			continue
		}
		out = append(out, name)
	}
	return out, nil
}

// Build wraps base with the named middleware for owner. The first name
// becomes the outermost layer.
func (r *Registry) Build(names []string, owner Owner, base Next) (Next, error) {
	r.mu.RLock()
	factories := make([]Factory, len(names))
	for i, name := range names {
		f, ok := r.factories[name]
		if !ok {
			r.mu.RUnlock()
			return nil, fmt.Errorf("%w: %q", ErrUnknownMiddleware, name)
		}
		factories[i] = f
	}
	r.mu.RUnlock()

	next := base
	for i := len(factories) - 1; i >= 0; i-- {
		next = factories[i](owner, next)
	}
	return next, nil
}

// MergeSwitches layers child switches over parent switches.
func MergeSwitches(parent, child map[string]bool) map[string]bool {
	out := maps.Clone(parent)
	if out == nil {
		out = make(map[string]bool, len(child))
	}
	maps.Copy(out, child)
	return out
}
