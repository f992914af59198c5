package slot

import (
	"fmt"
	"reflect"
	"strings"
)

// Field is one parameter of a run-logic signature. A nil Type is a
// wildcard.
type Field struct {
	Name string
	Type reflect.Type
}

// Signature is an explicit descriptor of a composable's run-logic: ordered
// positional parameters, an optional variadic tail and a return type.
// It is declared with the type and compared structurally.
type Signature struct {
	Params   []Field
	Variadic *Field
	Returns  reflect.Type
}

// Compatible reports whether a candidate run-logic can stand in where want
// is expected. Nil signatures and nil types are wildcards. The candidate
// must accept every expected parameter in order; extra candidate
// parameters are accepted only as a variadic tail.
func Compatible(want, candidate *Signature) bool {
	if want == nil || candidate == nil {
		return true
	}
	for i, p := range want.Params {
		var got Field
		switch {
		case i < len(candidate.Params):
			got = candidate.Params[i]
		case candidate.Variadic != nil:
			got = *candidate.Variadic
			got.Name = ""
		default:
			return false
		}
		if p.Name != "" && got.Name != "" && p.Name != got.Name {
			return false
		}
		if !typeAccepts(got.Type, p.Type) {
			return false
		}
	}
	if len(candidate.Params) > len(want.Params) {
		return false
	}
	if want.Variadic != nil {
		if candidate.Variadic == nil || !typeAccepts(candidate.Variadic.Type, want.Variadic.Type) {
			return false
		}
	}
	if want.Returns != nil && candidate.Returns != nil && !candidate.Returns.AssignableTo(want.Returns) {
		return false
	}
	return true
}

// typeAccepts reports whether a parameter of type param accepts an argument
// of type arg.
func typeAccepts(param, arg reflect.Type) bool {
	if param == nil || arg == nil {
		return true
	}
	return arg.AssignableTo(param)
}

// String renders the signature as "(a int, b, rest ...string) int".
func (s *Signature) String() string {
	if s == nil {
		return "(...)"
	}
	parts := make([]string, 0, len(s.Params)+1)
	for _, p := range s.Params {
		parts = append(parts, fieldString(p, false))
	}
	if s.Variadic != nil {
		parts = append(parts, fieldString(*s.Variadic, true))
	}
	out := "(" + strings.Join(parts, ", ") + ")"
	if s.Returns != nil {
		out += " " + s.Returns.String()
	}
	return out
}

func fieldString(f Field, variadic bool) string {
	typ := "any"
	if f.Type != nil {
		typ = f.Type.String()
	}
	if variadic {
		typ = "..." + typ
	}
	if f.Name == "" {
		return typ
	}
	return fmt.Sprintf("%s %s", f.Name, typ)
}
