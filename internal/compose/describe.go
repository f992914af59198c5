package compose

import (
	"fmt"

	"github.com/roach88/pipetree/internal/slot"
)

// Description is a read-only summary of a type.
type Description struct {
	Type       string          `json:"type" yaml:"type"`
	Help       string          `json:"help,omitempty" yaml:"help,omitempty"`
	Parents    []string        `json:"parents,omitempty" yaml:"parents,omitempty"`
	Signature  string          `json:"signature" yaml:"signature"`
	Section    string          `json:"section" yaml:"section"`
	Middleware []string        `json:"middleware" yaml:"middleware"`
	Params     []SlotInfo      `json:"params,omitempty" yaml:"params,omitempty"`
	Nodes      []SlotInfo      `json:"nodes,omitempty" yaml:"nodes,omitempty"`
	Keywords   []string        `json:"keywords,omitempty" yaml:"keywords,omitempty"`
	Switches   map[string]bool `json:"switches,omitempty" yaml:"switches,omitempty"`
}

// SlotInfo summarizes one slot.
type SlotInfo struct {
	Name       string   `json:"name" yaml:"name"`
	Default    string   `json:"default,omitempty" yaml:"default,omitempty"`
	Computed   string   `json:"computed,omitempty" yaml:"computed,omitempty"`
	DependsOn  []string `json:"depends_on,omitempty" yaml:"depends_on,omitempty"`
	Type       string   `json:"type,omitempty" yaml:"type,omitempty"`
	Strict     bool     `json:"strict,omitempty" yaml:"strict,omitempty"`
	Help       string   `json:"help,omitempty" yaml:"help,omitempty"`
	DeclaredBy string   `json:"declared_by" yaml:"declared_by"`
}

// Describe summarizes the type. Middleware lists the section members
// switched on, resolved against env's registry; a nil env uses the
// default environment.
func (t *Type) Describe(env *Env) Description {
	if env == nil {
		env = DefaultEnv()
	}
	d := Description{
		Type:      t.name,
		Help:      t.help,
		Signature: t.signature.String(),
		Section:   t.section,
		Keywords:  t.reg.Keywords(),
	}
	if len(t.switches) > 0 {
		d.Switches = t.switches
	}
	for _, p := range t.parents {
		d.Parents = append(d.Parents, p.name)
	}
	if names, err := env.Middleware.Resolve(t.section, t.switches); err == nil {
		d.Middleware = names
	}
	for _, name := range t.reg.Names() {
		spec, _ := t.reg.Lookup(name)
		info := slotInfo(spec)
		if spec.Kind == slot.KindNode {
			d.Nodes = append(d.Nodes, info)
		} else {
			d.Params = append(d.Params, info)
		}
	}
	return d
}

func slotInfo(spec *slot.Spec) SlotInfo {
	info := SlotInfo{
		Name:       spec.Name,
		DependsOn:  spec.DependsOn,
		Strict:     spec.StrictType,
		Help:       spec.Help,
		DeclaredBy: spec.DeclaredBy,
	}
	if spec.Type != nil {
		info.Type = spec.Type.String()
	}
	switch {
	case spec.AutoFunc != nil && spec.NoCache:
		info.Computed = "auto, uncached"
	case spec.AutoFunc != nil:
		info.Computed = "auto"
	case spec.DefaultFunc != nil:
		info.Computed = "default callback"
	}
	switch d := spec.Default.(type) {
	case nil:
		if spec.HasDefaultValue {
			info.Default = "nil"
		}
	case *Type:
		info.Default = d.name
	case Partial:
		info.Default = fmt.Sprintf("%s%v", d.Type.name, d.Kwargs)
	default:
		info.Default = fmt.Sprintf("%v", d)
	}
	return info
}
