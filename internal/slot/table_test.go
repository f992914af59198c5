package slot

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// owner is a minimal Owner over a bare table.
type owner struct {
	table *Table
}

func (o *owner) TypeName() string { return o.table.Registry().TypeName() }

func (o *owner) Get(name string) (any, error) { return o.table.Resolve(o, name) }

func newOwner(t *testing.T, specs ...Spec) *owner {
	t.Helper()
	reg, err := NewRegistry("test.T", nil, specs, nil)
	require.NoError(t, err)
	return &owner{table: NewTable(reg)}
}

func mustGet(t *testing.T, o *owner, name string) any {
	t.Helper()
	v, err := o.Get(name)
	require.NoError(t, err)
	return v
}

func TestResolve_ExplicitWinsOverDefault(t *testing.T) {
	o := newOwner(t, Spec{Name: "a", Default: 1})

	assert.Equal(t, 1, mustGet(t, o, "a"))
	require.NoError(t, o.table.Set("a", 5))
	assert.Equal(t, 5, mustGet(t, o, "a"))
	assert.Equal(t, Explicit, o.table.State("a"))
}

func TestResolve_DefaultFuncCalledOnce(t *testing.T) {
	calls := 0
	o := newOwner(t, Spec{Name: "a", DefaultFunc: func(Owner) (any, error) {
		calls++
		return []int{calls}, nil
	}})

	v1 := mustGet(t, o, "a")
	v2 := mustGet(t, o, "a")

	assert.Equal(t, 1, calls)
	assert.Equal(t, v1, v2)
	assert.Equal(t, Cached, o.table.State("a"))
}

func TestResolve_AutoRecomputesOnWatchedChangeOnly(t *testing.T) {
	calls := 0
	o := newOwner(t,
		Spec{Name: "b", Default: 10},
		Spec{Name: "other", Default: 0},
		Spec{
			Name:      "d",
			DependsOn: []string{"b"},
			AutoFunc: func(o Owner) (any, error) {
				calls++
				b, err := o.Get("b")
				if err != nil {
					return nil, err
				}
				return b.(int) * 2, nil
			},
		},
	)

	assert.Equal(t, 20, mustGet(t, o, "d"))
	assert.Equal(t, 20, mustGet(t, o, "d"))
	assert.Equal(t, 1, calls)

	require.NoError(t, o.table.Set("other", 99))
	assert.Equal(t, 20, mustGet(t, o, "d"))
	assert.Equal(t, 1, calls, "unrelated slot must not invalidate")

	require.NoError(t, o.table.Set("b", 7))
	assert.Equal(t, 14, mustGet(t, o, "d"))
	assert.Equal(t, 14, mustGet(t, o, "d"))
	assert.Equal(t, 2, calls, "exactly one recomputation per watched change")
}

func TestResolve_AutoChainInvalidatesTransitively(t *testing.T) {
	double := func(dep string) Func {
		return func(o Owner) (any, error) {
			v, err := o.Get(dep)
			if err != nil {
				return nil, err
			}
			return v.(int) * 2, nil
		}
	}
	o := newOwner(t,
		Spec{Name: "a", Default: 1},
		Spec{Name: "b", DependsOn: []string{"a"}, AutoFunc: double("a")},
		Spec{Name: "c", DependsOn: []string{"b"}, AutoFunc: double("b")},
	)

	assert.Equal(t, 4, mustGet(t, o, "c"))
	require.NoError(t, o.table.Set("a", 3))
	assert.Equal(t, 12, mustGet(t, o, "c"))
}

func TestResolve_NilDependsOnWatchesEverySet(t *testing.T) {
	calls := 0
	o := newOwner(t,
		Spec{Name: "x", Default: 1},
		Spec{Name: "y", Default: 1},
		Spec{Name: "total", AutoFunc: func(o Owner) (any, error) {
			calls++
			x, _ := o.Get("x")
			return x, nil
		}},
	)

	mustGet(t, o, "total")
	mustGet(t, o, "total")
	assert.Equal(t, 1, calls)

	// y is never read by the callback but still invalidates.
	require.NoError(t, o.table.Set("y", 2))
	mustGet(t, o, "total")
	assert.Equal(t, 2, calls)
}

func TestResolve_NoCacheRecomputesEveryAccess(t *testing.T) {
	calls := 0
	o := newOwner(t, Spec{Name: "n", NoCache: true, AutoFunc: func(Owner) (any, error) {
		calls++
		return calls, nil
	}})

	assert.Equal(t, 1, mustGet(t, o, "n"))
	assert.Equal(t, 2, mustGet(t, o, "n"))
}

func TestResolve_DefaultFuncWithDependsOn(t *testing.T) {
	o := newOwner(t,
		Spec{Name: "base", Default: "a"},
		Spec{Name: "label", DependsOn: []string{"base"}, DefaultFunc: func(o Owner) (any, error) {
			b, _ := o.Get("base")
			return b.(string) + "!", nil
		}},
	)

	assert.Equal(t, "a!", mustGet(t, o, "label"))
	require.NoError(t, o.table.Set("base", "b"))
	assert.Equal(t, "b!", mustGet(t, o, "label"))

	require.NoError(t, o.table.Set("label", "fixed"))
	require.NoError(t, o.table.Set("base", "c"))
	assert.Equal(t, "fixed", mustGet(t, o, "label"), "explicit value is never recomputed")
}

type counterFactory struct{ built *int }

func (f counterFactory) Instantiate() (any, error) {
	*f.built++
	return &struct{ n int }{n: *f.built}, nil
}

func TestResolve_FactoryDefaultInstantiatedLazilyOnce(t *testing.T) {
	built := 0
	o := newOwner(t, Spec{Name: "child", Kind: KindNode, Default: counterFactory{built: &built}})

	assert.Equal(t, 0, built, "declaring must not instantiate")
	v1 := mustGet(t, o, "child")
	v2 := mustGet(t, o, "child")
	assert.Equal(t, 1, built)
	assert.Same(t, v1, v2)

	other := &owner{table: NewTable(o.table.Registry())}
	v3 := mustGet(t, other, "child")
	assert.NotSame(t, v1, v3, "each instance gets its own child")
}

func TestResolve_MissingValue(t *testing.T) {
	o := newOwner(t, Spec{Name: "a"})

	_, err := o.Get("a")
	require.Error(t, err)
	assert.True(t, IsMissingValue(err))
	assert.Contains(t, err.Error(), "slot=a")
}

func TestResolve_UnknownSlot(t *testing.T) {
	o := newOwner(t)
	_, err := o.Get("nope")
	assert.True(t, IsUnknownSlot(err))
	assert.True(t, IsUnknownSlot(o.table.Set("nope", 1)))
}

func TestResolve_CycleDetected(t *testing.T) {
	o := newOwner(t, Spec{Name: "a", AutoFunc: func(o Owner) (any, error) {
		return o.Get("a")
	}})

	_, err := o.Get("a")
	require.Error(t, err)
	assert.Contains(t, err.Error(), string(ErrCodeResolutionCycle))
}

func TestSet_ImmutableAutoSlot(t *testing.T) {
	o := newOwner(t, Spec{Name: "a", AutoFunc: func(Owner) (any, error) { return 1, nil }})

	for _, v := range []any{nil, 1, "x", []int{}} {
		err := o.table.Set("a", v)
		assert.True(t, IsImmutableSlot(err), "value %v", v)
	}
	assert.True(t, IsImmutableSlot(o.table.Unset("a")))
}

func TestSet_StrictType(t *testing.T) {
	o := newOwner(t,
		Spec{Name: "n", Type: reflect.TypeFor[int](), StrictType: true},
		Spec{Name: "loose", Type: reflect.TypeFor[int]()},
		Spec{Name: "ptr", Type: reflect.TypeFor[*int](), StrictType: true},
	)

	assert.True(t, IsIncompatibleType(o.table.Set("n", "seven")))
	assert.True(t, IsIncompatibleType(o.table.Set("n", nil)))
	assert.NoError(t, o.table.Set("n", 7))
	assert.NoError(t, o.table.Set("loose", "anything"))
	assert.NoError(t, o.table.Set("ptr", nil))
}

func TestSet_BumpsVersionAndRevision(t *testing.T) {
	o := newOwner(t, Spec{Name: "a"}, Spec{Name: "b"})

	require.NoError(t, o.table.Set("a", 1))
	require.NoError(t, o.table.Set("a", 2))
	require.NoError(t, o.table.Set("b", 1))

	assert.Equal(t, uint64(2), o.table.Version("a"))
	assert.Equal(t, uint64(1), o.table.Version("b"))
	assert.Equal(t, uint64(3), o.table.Revision())
}

func TestUnset_FallsBackToDefault(t *testing.T) {
	o := newOwner(t, Spec{Name: "a", Default: 1})
	require.NoError(t, o.table.Set("a", 2))
	require.NoError(t, o.table.Unset("a"))
	assert.Equal(t, Unset, o.table.State("a"))
	assert.Equal(t, 1, mustGet(t, o, "a"))
}

func TestMissing_NeverNamesResolvableSlots(t *testing.T) {
	o := newOwner(t,
		Spec{Name: "req"},
		Spec{Name: "def", Default: 1},
		Spec{Name: "cb", DefaultFunc: func(Owner) (any, error) { return 1, nil }},
		Spec{Name: "auto", AutoFunc: func(Owner) (any, error) { return 1, nil }},
		Spec{Name: "set"},
		Spec{Name: "child", Kind: KindNode},
	)
	require.NoError(t, o.table.Set("set", 1))

	params, nodes := o.table.Missing()
	assert.Equal(t, []string{"req"}, params)
	assert.Equal(t, []string{"child"}, nodes)
	assert.Equal(t, Unset, o.table.State("cb"), "missing must not resolve anything")
}

func TestClone_IsolatesState(t *testing.T) {
	o := newOwner(t, Spec{Name: "a", Default: 1})
	require.NoError(t, o.table.Set("a", 2))

	c := &owner{table: o.table.Clone()}
	require.NoError(t, c.table.Set("a", 3))

	assert.Equal(t, 2, mustGet(t, o, "a"))
	assert.Equal(t, 3, mustGet(t, c, "a"))
	assert.Equal(t, uint64(1), o.table.Version("a"))
}

func TestResolve_DeclaredNilDefault(t *testing.T) {
	o := newOwner(t,
		Spec{Name: "opt", Default: nil, HasDefaultValue: true},
		Spec{Name: "req"},
	)

	v, err := o.Get("opt")
	require.NoError(t, err)
	assert.Nil(t, v)
	assert.Equal(t, Cached, o.table.State("opt"))

	params, _ := o.table.Missing()
	assert.Equal(t, []string{"req"}, params)
}

func TestValidate_NilDefaultCountsAsSource(t *testing.T) {
	s := Spec{
		Name:            "a",
		HasDefaultValue: true,
		DefaultFunc:     func(Owner) (any, error) { return 1, nil },
	}
	assert.Error(t, s.Validate("test.T"))
}

func TestResolve_ParamFactoryDefaultIsReturnedAsIs(t *testing.T) {
	built := 0
	f := counterFactory{built: &built}
	o := newOwner(t, Spec{Name: "maker", Default: f})

	assert.Equal(t, f, mustGet(t, o, "maker"))
	assert.Equal(t, 0, built)
}

func TestRestore_PutsBackCachedDefault(t *testing.T) {
	built := 0
	o := newOwner(t, Spec{Name: "child", Kind: KindNode, Default: counterFactory{built: &built}})
	first := mustGet(t, o, "child")

	saved := o.table.Snapshot("child")
	assert.Equal(t, Cached, saved.State())
	require.NoError(t, o.table.Set("child", "replacement"))
	require.NoError(t, o.table.Restore("child", saved))

	assert.Equal(t, Cached, o.table.State("child"))
	assert.Same(t, first, mustGet(t, o, "child"))
	assert.Equal(t, 1, built, "restoring must not instantiate again")
}

func TestRestore_EmptySnapshotUnsets(t *testing.T) {
	o := newOwner(t, Spec{Name: "a", Default: 1})

	saved := o.table.Snapshot("a")
	assert.Equal(t, Unset, saved.State())
	require.NoError(t, o.table.Set("a", 2))
	require.NoError(t, o.table.Restore("a", saved))

	assert.Equal(t, Unset, o.table.State("a"))
	assert.Equal(t, 1, mustGet(t, o, "a"))
	assert.True(t, IsUnknownSlot(o.table.Restore("nope", saved)))
}
