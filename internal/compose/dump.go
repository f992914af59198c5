package compose

import (
	"fmt"
	"reflect"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/roach88/pipetree/internal/ir"
	"github.com/roach88/pipetree/internal/slot"
)

// Dump is the structural description of a tree.
type Dump struct {
	Type   string           `json:"type" yaml:"type"`
	Params map[string]any   `json:"params,omitempty" yaml:"params,omitempty"`
	Nodes  map[string]*Dump `json:"nodes,omitempty" yaml:"nodes,omitempty"`
}

// Fingerprint lowers the dump for hashing.
func (d *Dump) Fingerprint() (ir.Value, error) {
	obj := ir.Object{"type": ir.String(d.Type)}
	if len(d.Params) > 0 {
		params, err := ir.FromGo(d.Params)
		if err != nil {
			return nil, err
		}
		obj["params"] = params
	}
	if len(d.Nodes) > 0 {
		nodes := make(ir.Object, len(d.Nodes))
		for name, nd := range d.Nodes {
			v, err := nd.Fingerprint()
			if err != nil {
				return nil, err
			}
			nodes[name] = v
		}
		obj["nodes"] = nodes
	}
	return obj, nil
}

// DumpOption configures Dump.
type DumpOption func(*dumpConfig)

type dumpConfig struct {
	includeAuto bool
	strict      bool
}

// IncludeDepends adds the current values of auto-computed params. Load
// ignores them.
func IncludeDepends() DumpOption {
	return func(cfg *dumpConfig) { cfg.includeAuto = true }
}

// placeholder stands in for a value with no structural representation.
func placeholder(v any) string {
	return fmt.Sprintf("<unserializable: %T>", v)
}

// Dump describes c: its type, explicitly set params and every resolvable
// child. Values with no structural representation are replaced by a
// placeholder and logged.
func (c *Composable) Dump(opts ...DumpOption) (*Dump, error) {
	cfg := dumpConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	return c.dump("", cfg)
}

// Fingerprint identifies c's configuration for caching. Unlike Dump it
// fails on unrepresentable values.
func (c *Composable) Fingerprint() (ir.Value, error) {
	d, err := c.dump("", dumpConfig{strict: true})
	if err != nil {
		return nil, err
	}
	return d.Fingerprint()
}

func (c *Composable) dump(prefix string, cfg dumpConfig) (*Dump, error) {
	d := &Dump{Type: c.typ.name}

	for _, name := range c.typ.reg.NamesOf(slot.KindParam) {
		spec, _ := c.typ.reg.Lookup(name)
		var v any
		switch {
		case spec.IsAuto():
			if !cfg.includeAuto {
				continue
			}
			got, err := c.Get(name)
			if err != nil {
				continue
			}
			v = got
		case c.table.State(name) == slot.Explicit:
			v, _ = c.table.Peek(name)
		default:
			continue
		}
		if _, err := ir.FromGo(v); err != nil {
			if cfg.strict {
				return nil, &LoadError{
					Code:    ErrCodeUnserializableValue,
					Type:    c.typ.name,
					Field:   prefix + name,
					Message: err.Error(),
				}
			}
			c.Env().logger().Warn("unserializable value in dump", "type", c.typ.name, "field", prefix+name, "value_type", fmt.Sprintf("%T", v))
			v = placeholder(v)
		}
		if d.Params == nil {
			d.Params = make(map[string]any)
		}
		d.Params[name] = v
	}

	for _, name := range c.typ.reg.NamesOf(slot.KindNode) {
		spec, _ := c.typ.reg.Lookup(name)
		if spec.IsAuto() && !cfg.includeAuto {
			continue
		}
		child, err := c.Node(name)
		if err != nil {
			if slot.IsMissingValue(err) {
				continue
			}
			return nil, err
		}
		cd, err := child.dump(prefix+name+".", cfg)
		if err != nil {
			return nil, err
		}
		if d.Nodes == nil {
			d.Nodes = make(map[string]*Dump)
		}
		d.Nodes[name] = cd
	}
	return d, nil
}

// Resolver maps type names from a dump to types.
type Resolver interface {
	Resolve(name string) (*Type, error)
}

// AllowList resolves only the listed types. Anything else fails with
// MODULE_NOT_ALLOWED.
type AllowList map[string]*Type

// Allow builds an AllowList from types.
func Allow(types ...*Type) AllowList {
	al := make(AllowList, len(types))
	for _, t := range types {
		al[t.name] = t
	}
	return al
}

// AllowNames builds an AllowList from registered type names. Unregistered
// names fail with UNKNOWN_TYPE.
func AllowNames(names ...string) (AllowList, error) {
	al := make(AllowList, len(names))
	for _, name := range names {
		t, ok := Lookup(name)
		if !ok {
			return nil, &LoadError{Code: ErrCodeUnknownType, Type: name, Message: "type is not registered"}
		}
		al[name] = t
	}
	return al, nil
}

func (al AllowList) Resolve(name string) (*Type, error) {
	if t, ok := al[name]; ok {
		return t, nil
	}
	return nil, &LoadError{Code: ErrCodeModuleNotAllowed, Type: name, Message: "type is not in the allow-list"}
}

// Names returns the allowed type names in sorted order.
func (al AllowList) Names() []string {
	return sortedKeys(al)
}

// OpenResolver resolves any registered type. Only use it with trusted
// dumps.
type OpenResolver struct{}

func (OpenResolver) Resolve(name string) (*Type, error) {
	if t, ok := Lookup(name); ok {
		return t, nil
	}
	return nil, &LoadError{Code: ErrCodeUnknownType, Type: name, Message: "type is not registered"}
}

// Load rebuilds a tree from d. Params and nodes both go through Set, so
// their relative order does not matter. Auto-computed params present in
// the dump are ignored.
func Load(d *Dump, r Resolver, opts ...InstanceOption) (*Composable, error) {
	t, err := r.Resolve(d.Type)
	if err != nil {
		return nil, err
	}
	c := &Composable{typ: t, table: slot.NewTable(t.reg)}
	for _, opt := range opts {
		opt(c)
	}

	for _, name := range sortedKeys(d.Params) {
		spec, ok := t.reg.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("load %s: %w", t.name, slot.NewUnknownSlotError(t.name, name))
		}
		if spec.IsAuto() {
			continue
		}
		if err := c.setLocal(name, coerce(spec, d.Params[name]), false); err != nil {
			return nil, fmt.Errorf("load %s: %w", t.name, err)
		}
	}
	for _, name := range sortedKeys(d.Nodes) {
		spec, ok := t.reg.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("load %s: %w", t.name, slot.NewUnknownSlotError(t.name, name))
		}
		if spec.IsAuto() {
			continue
		}
		child, err := Load(d.Nodes[name], r, opts...)
		if err != nil {
			return nil, err
		}
		if err := c.setLocal(name, child, false); err != nil {
			return nil, fmt.Errorf("load %s: %w", t.name, err)
		}
	}

	if err := c.refresh(); err != nil {
		return nil, err
	}
	return c, nil
}

// coerce converts decoded scalars and lists to the declared slot type
// when they differ only in representation, such as an int decoded into a
// float64 slot.
func coerce(spec *slot.Spec, v any) any {
	if spec.Type == nil || v == nil {
		return v
	}
	rv := reflect.ValueOf(v)
	if rv.Type().AssignableTo(spec.Type) {
		return v
	}
	if isNumeric(rv.Kind()) && isNumeric(spec.Type.Kind()) {
		return rv.Convert(spec.Type).Interface()
	}
	if rv.Kind() == reflect.Slice && spec.Type.Kind() == reflect.Slice {
		out := reflect.MakeSlice(spec.Type, rv.Len(), rv.Len())
		elem := &slot.Spec{Type: spec.Type.Elem()}
		for i := range rv.Len() {
			ev := reflect.ValueOf(coerce(elem, rv.Index(i).Interface()))
			if !ev.IsValid() || !ev.Type().AssignableTo(spec.Type.Elem()) {
				return v
			}
			out.Index(i).Set(ev)
		}
		return out.Interface()
	}
	return v
}

// MarshalYAML encodes c's dump as YAML.
func MarshalYAML(c *Composable, opts ...DumpOption) ([]byte, error) {
	d, err := c.Dump(opts...)
	if err != nil {
		return nil, err
	}
	return yaml.Marshal(d)
}

// UnmarshalYAML decodes a YAML dump and loads it through r.
func UnmarshalYAML(data []byte, r Resolver, opts ...InstanceOption) (*Composable, error) {
	var d Dump
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("decode dump: %w", err)
	}
	if d.Type == "" {
		return nil, fmt.Errorf("decode dump: missing type")
	}
	return Load(&d, r, opts...)
}

// Equal reports whether two dumps describe the same tree.
func (d *Dump) Equal(other *Dump) bool {
	a, err := ir.MarshalCanonical(d)
	if err != nil {
		return false
	}
	b, err := ir.MarshalCanonical(other)
	if err != nil {
		return false
	}
	return slices.Equal(a, b)
}
