package slot

import (
	"slices"
)

// Registry is the merged slot set of one composable type.
type Registry struct {
	typeName string
	order    []string
	specs    map[string]*Spec

	// keywords maps each protected name to the type that declared it.
	keywords map[string]string
}

// NewRegistry merges parent registries with the type's own declarations.
//
// Parents are listed in precedence order: when two parents declare the same
// slot, the first one wins. Own specs shadow every parent. Keywords are the
// union across all parents plus own. Own specs are validated and checked
// against the accumulated keywords, and a keyword introduced at this level
// must not name an inherited slot.
func NewRegistry(typeName string, parents []*Registry, own []Spec, keywords []string) (*Registry, error) {
	r := &Registry{
		typeName: typeName,
		specs:    make(map[string]*Spec),
		keywords: make(map[string]string),
	}

	for i := len(parents) - 1; i >= 0; i-- {
		p := parents[i]
		for _, name := range p.order {
			r.put(p.specs[name].Clone())
		}
	}
	for _, p := range parents {
		for kw, by := range p.keywords {
			if _, ok := r.keywords[kw]; !ok {
				r.keywords[kw] = by
			}
		}
	}

	for _, kw := range keywords {
		if _, ok := r.keywords[kw]; ok {
			continue
		}
		r.keywords[kw] = typeName
	}

	seen := make(map[string]bool, len(own))
	for i := range own {
		s := own[i].Clone()
		if err := s.Validate(typeName); err != nil {
			return nil, err
		}
		if seen[s.Name] {
			return nil, newInvalidSpecError(typeName, s.Name, "slot declared twice")
		}
		seen[s.Name] = true
		if by, ok := r.keywords[s.Name]; ok {
			return nil, NewDuplicateKeywordError(typeName, s.Name, by)
		}
		s.DeclaredBy = typeName
		r.put(s)
	}

	for _, kw := range keywords {
		if s, ok := r.specs[kw]; ok && s.DeclaredBy != typeName {
			return nil, NewDuplicateKeywordError(typeName, kw, typeName)
		}
	}

	for _, name := range r.order {
		s := r.specs[name]
		for _, dep := range s.DependsOn {
			if _, ok := r.specs[dep]; !ok {
				return nil, newInvalidSpecError(typeName, name, "depends on undeclared slot %q", dep)
			}
		}
	}

	return r, nil
}

func (r *Registry) put(s *Spec) {
	if _, ok := r.specs[s.Name]; !ok {
		r.order = append(r.order, s.Name)
	}
	r.specs[s.Name] = s
}

// TypeName returns the qualified name of the registry's type.
func (r *Registry) TypeName() string {
	return r.typeName
}

// Lookup returns the Spec for name.
func (r *Registry) Lookup(name string) (*Spec, bool) {
	s, ok := r.specs[name]
	return s, ok
}

// Names returns slot names in declaration order, ancestors first.
func (r *Registry) Names() []string {
	return slices.Clone(r.order)
}

// NamesOf returns slot names of one kind in declaration order.
func (r *Registry) NamesOf(kind Kind) []string {
	var out []string
	for _, name := range r.order {
		if r.specs[name].Kind == kind {
			out = append(out, name)
		}
	}
	return out
}

// Keywords returns the protected keywords in sorted order.
func (r *Registry) Keywords() []string {
	out := make([]string, 0, len(r.keywords))
	for kw := range r.keywords {
		out = append(out, kw)
	}
	slices.Sort(out)
	return out
}

// IsKeyword reports whether name is protected anywhere in the hierarchy.
func (r *Registry) IsKeyword(name string) bool {
	_, ok := r.keywords[name]
	return ok
}
