package slot

import (
	"maps"
	"reflect"
	"slices"
	"strings"
)

// ReservedPrefix marks names that are never valid slot names.
const ReservedPrefix = "_"

// Kind distinguishes value slots from sub-composable slots.
type Kind int

const (
	// KindParam is a plain value slot.
	KindParam Kind = iota
	// KindNode is a slot whose value is itself a composable.
	KindNode
)

func (k Kind) String() string {
	if k == KindNode {
		return "node"
	}
	return "param"
}

// Owner is the instance a callback resolves against.
type Owner interface {
	TypeName() string
	Get(name string) (any, error)
}

// Func computes a slot value from its owning instance.
type Func func(owner Owner) (any, error)

// Factory is a default that builds a fresh value when first resolved.
// Composable types and partials implement it so that expensive children are
// constructed per parent and only on first access.
type Factory interface {
	Instantiate() (any, error)
}

// Spec declares one slot.
type Spec struct {
	Name string
	Kind Kind

	// At most one of Default, DefaultFunc and AutoFunc is set.
	Default     any
	DefaultFunc Func
	AutoFunc    Func

	// HasDefaultValue marks Default as declared even when it is nil.
	HasDefaultValue bool

	// NoCache makes an AutoFunc recompute on every access.
	NoCache bool

	// DependsOn lists the slots whose change invalidates a computed value.
	// nil watches every explicit set on the instance; an empty, non-nil
	// slice never invalidates.
	DependsOn []string

	// Type is the declared value type. Checked on Set only when StrictType.
	Type       reflect.Type
	StrictType bool

	// RefreshOnSet re-runs the owning type's init hook after each Set.
	RefreshOnSet bool

	// Signature describes the expected run-logic of a Node slot's value.
	Signature *Signature

	Help   string
	Extras map[string]any

	// DeclaredBy is the qualified name of the type that declared the slot.
	// Filled in by NewRegistry.
	DeclaredBy string
}

// HasDefault reports whether the slot can resolve without an explicit set.
func (s *Spec) HasDefault() bool {
	return s.HasLiteralDefault() || s.DefaultFunc != nil || s.AutoFunc != nil
}

// HasLiteralDefault reports whether a plain Default was declared, nil
// included.
func (s *Spec) HasLiteralDefault() bool {
	return s.Default != nil || s.HasDefaultValue
}

// IsAuto reports whether the slot is computed by an AutoFunc.
func (s *Spec) IsAuto() bool {
	return s.AutoFunc != nil
}

// Clone returns a copy safe to modify. Functions and the default value are
// shared.
func (s *Spec) Clone() *Spec {
	c := *s
	if s.DependsOn != nil {
		c.DependsOn = slices.Clone(s.DependsOn)
	}
	if s.Extras != nil {
		c.Extras = maps.Clone(s.Extras)
	}
	return &c
}

// Validate checks the declaration invariants that do not depend on the
// type hierarchy.
func (s *Spec) Validate(owner string) error {
	if s.Name == "" {
		return newInvalidSpecError(owner, s.Name, "slot name is empty")
	}
	if strings.HasPrefix(s.Name, ReservedPrefix) {
		return newInvalidSpecError(owner, s.Name, "slot names must not start with %q", ReservedPrefix)
	}
	sources := 0
	if s.HasLiteralDefault() {
		sources++
	}
	if s.DefaultFunc != nil {
		sources++
	}
	if s.AutoFunc != nil {
		sources++
	}
	if sources > 1 {
		return newInvalidSpecError(owner, s.Name, "at most one of default, default callback and auto callback may be set")
	}
	if s.DependsOn != nil {
		if s.NoCache {
			return newInvalidSpecError(owner, s.Name, "depends_on requires caching")
		}
		if s.AutoFunc == nil && s.DefaultFunc == nil {
			return newInvalidSpecError(owner, s.Name, "depends_on requires a callback")
		}
		if slices.Contains(s.DependsOn, s.Name) {
			return newInvalidSpecError(owner, s.Name, "slot cannot depend on itself")
		}
	}
	if s.NoCache && s.AutoFunc == nil {
		return newInvalidSpecError(owner, s.Name, "only auto callbacks can disable caching")
	}
	return nil
}

// accepts reports whether v may be stored in a strict-typed slot.
func (s *Spec) accepts(v any) bool {
	if !s.StrictType || s.Type == nil {
		return true
	}
	if v == nil {
		switch s.Type.Kind() {
		case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
			return true
		}
		return false
	}
	return reflect.TypeOf(v).AssignableTo(s.Type)
}
