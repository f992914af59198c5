package compose

import (
	"github.com/roach88/pipetree/internal/slot"
)

// IsCompatible reports whether candidate's run logic fits the Node slot
// edge. The expected signature is the slot's declared one, else the
// signature of the child it currently holds, else that of its default
// type. Missing descriptors and missing parameter types are wildcards.
func (c *Composable) IsCompatible(edge string, candidate *Type) (bool, error) {
	spec, ok := c.typ.reg.Lookup(edge)
	if !ok {
		return false, slot.NewUnknownSlotError(c.typ.name, edge)
	}
	if spec.Kind != slot.KindNode {
		return false, nil
	}
	return slot.Compatible(c.expectedSignature(spec), candidate.signature), nil
}

func (c *Composable) expectedSignature(spec *slot.Spec) *slot.Signature {
	if spec.Signature != nil {
		return spec.Signature
	}
	if v, st := c.table.Peek(spec.Name); st != slot.Unset {
		if child, ok := v.(*Composable); ok && child != nil {
			return child.typ.signature
		}
	}
	switch d := spec.Default.(type) {
	case *Type:
		return d.signature
	case Partial:
		return d.Type.signature
	}
	return nil
}
