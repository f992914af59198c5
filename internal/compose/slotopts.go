package compose

import (
	"reflect"

	"github.com/roach88/pipetree/internal/slot"
)

// SlotOption configures one slot declaration.
type SlotOption func(*slot.Spec)

// Callback computes a slot value from its instance.
type Callback func(c *Composable) (any, error)

func (cb Callback) slotFunc() slot.Func {
	return func(owner slot.Owner) (any, error) {
		return cb(owner.(*Composable))
	}
}

// Default sets a literal default. For a Node, a *Type or Partial default
// is instantiated on first access, once per parent.
func Default(v any) SlotOption {
	return func(s *slot.Spec) {
		s.Default = v
		s.HasDefaultValue = true
	}
}

// DefaultFunc computes the default on first access and caches it.
func DefaultFunc(cb Callback) SlotOption {
	return func(s *slot.Spec) { s.DefaultFunc = cb.slotFunc() }
}

// Auto computes the value on access. Auto slots cannot be set.
func Auto(cb Callback) SlotOption {
	return func(s *slot.Spec) { s.AutoFunc = cb.slotFunc() }
}

// NoCache makes an Auto slot recompute on every access.
func NoCache() SlotOption {
	return func(s *slot.Spec) { s.NoCache = true }
}

// DependsOn restricts invalidation of a callback value to the named slots.
// With no names the value is computed once and never invalidated.
func DependsOn(names ...string) SlotOption {
	return func(s *slot.Spec) {
		s.DependsOn = append([]string{}, names...)
	}
}

// TypeOf declares the slot's value type from a sample value.
func TypeOf(sample any) SlotOption {
	return func(s *slot.Spec) { s.Type = reflect.TypeOf(sample) }
}

// Typed declares the slot's value type.
func Typed(t reflect.Type) SlotOption {
	return func(s *slot.Spec) { s.Type = t }
}

// Strict rejects values not assignable to the declared type.
func Strict() SlotOption {
	return func(s *slot.Spec) { s.StrictType = true }
}

// RefreshOnSet re-runs the type's Init hook after every Set of the slot.
func RefreshOnSet() SlotOption {
	return func(s *slot.Spec) { s.RefreshOnSet = true }
}

// Expect declares the run-logic signature a Node's value should have.
func Expect(sig *slot.Signature) SlotOption {
	return func(s *slot.Spec) { s.Signature = sig }
}

// Doc sets the slot's help text.
func Doc(text string) SlotOption {
	return func(s *slot.Spec) { s.Help = text }
}

// Extra attaches an opaque key-value pair to the slot.
func Extra(key string, value any) SlotOption {
	return func(s *slot.Spec) {
		if s.Extras == nil {
			s.Extras = make(map[string]any)
		}
		s.Extras[key] = value
	}
}
