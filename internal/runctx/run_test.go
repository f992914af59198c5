package runctx

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRun(t *testing.T) *Run {
	t.Helper()
	s := NewStore(WithIDGenerator(NewFixedGenerator("run-1", "run-2", "run-3")))
	return s.Begin("sample.Root")
}

func TestRun_RepeatedEdgesAreSuffixed(t *testing.T) {
	r := newTestRun(t)
	require.NoError(t, r.Begin(RootPath, "sample.Root", Input{}))

	var paths []string
	for range 3 {
		p, err := r.Enter(RootPath, "x", "sample.X", Input{})
		require.NoError(t, err)
		paths = append(paths, p)
	}
	other, err := r.Enter(RootPath, "y", "sample.Y", Input{})
	require.NoError(t, err)

	assert.Equal(t, []string{".x", ".x[1]", ".x[2]"}, paths)
	assert.Equal(t, ".y", other)
}

func TestRun_CountersArePerParent(t *testing.T) {
	r := newTestRun(t)

	a := r.Allocate(".x", "z")
	b := r.Allocate(".x[1]", "z")
	c := r.Allocate(".x", "z")

	assert.Equal(t, ".x.z", a)
	assert.Equal(t, ".x[1].z", b)
	assert.Equal(t, ".x.z[1]", c)
}

func TestRun_CompleteAndFail(t *testing.T) {
	r := newTestRun(t)
	in := Input{Args: []any{1}, Kwargs: map[string]any{"k": "v"}}
	require.NoError(t, r.Begin(".x", "sample.X", in))
	require.NoError(t, r.Begin(".y", "sample.Y", Input{}))

	require.NoError(t, r.Complete(".x", 40))
	require.NoError(t, r.Fail(".y", errors.New("boom")))

	x, ok := r.Entry(".x")
	require.True(t, ok)
	assert.Equal(t, StatusDone, x.Status)
	assert.Equal(t, 40, x.Output)
	assert.Equal(t, in.Args, x.Input.Args, "input preserved")

	y, _ := r.Entry(".y")
	assert.Equal(t, StatusError, y.Status)
	assert.Equal(t, "boom", y.Error)
}

func TestRun_EntriesImmutableAfterFinalize(t *testing.T) {
	r := newTestRun(t)
	require.NoError(t, r.Begin(".x", "sample.X", Input{}))
	require.NoError(t, r.Complete(".x", 1))

	assert.ErrorIs(t, r.Complete(".x", 2), ErrEntryFinalized)
	assert.ErrorIs(t, r.Fail(".x", errors.New("late")), ErrEntryFinalized)
	assert.ErrorIs(t, r.Annotate(".x", "cached"), ErrEntryFinalized)
	assert.ErrorIs(t, r.Complete(".missing", 1), ErrUnknownEntry)
	assert.ErrorIs(t, r.Begin(".x", "sample.X", Input{}), ErrEntryExists)

	x, _ := r.Entry(".x")
	assert.Equal(t, 1, x.Output)
}

func TestRun_EntryCopiesDoNotAlias(t *testing.T) {
	r := newTestRun(t)
	require.NoError(t, r.Begin(".x", "sample.X", Input{Kwargs: map[string]any{"a": 1}}))

	e, _ := r.Entry(".x")
	e.Input.Kwargs["a"] = 2

	again, _ := r.Entry(".x")
	assert.Equal(t, 1, again.Input.Kwargs["a"])
}

func TestRun_LogsSubtree(t *testing.T) {
	r := newTestRun(t)
	for _, p := range []string{".", ".x", ".x.a", ".x[1]", ".xy", ".y"} {
		require.NoError(t, r.Begin(p, "T", Input{}))
	}

	logs := r.Logs(".x")
	assert.Len(t, logs, 2)
	assert.Contains(t, logs, ".x")
	assert.Contains(t, logs, ".x.a")

	assert.Len(t, r.Logs(RootPath), 6)
}

func TestRun_PathsOrderedBySeq(t *testing.T) {
	r := newTestRun(t)
	for _, p := range []string{".", ".b", ".a"} {
		require.NoError(t, r.Begin(p, "T", Input{}))
	}
	assert.Equal(t, []string{".", ".b", ".a"}, r.Paths())
}

func TestRun_ForkAndMerge(t *testing.T) {
	r := newTestRun(t)
	require.NoError(t, r.Begin(RootPath, "Root", Input{}))
	paths := r.Reserve(RootPath, "m", 3)
	assert.Equal(t, []string{".m", ".m[1]", ".m[2]"}, paths)

	var wg sync.WaitGroup
	views := make([]*Run, len(paths))
	for i, p := range paths {
		views[i] = r.Fork()
		wg.Add(1)
		go func(v *Run, p string, i int) {
			defer wg.Done()
			assert.NoError(t, v.Begin(p, "M", Input{Args: []any{i}}))
			_, err := v.Enter(p, "inner", "I", Input{})
			assert.NoError(t, err)
			assert.NoError(t, v.Complete(p, i))
		}(views[i], p, i)
	}
	wg.Wait()

	_, visible := r.Entry(".m")
	assert.False(t, visible, "fork writes are invisible until merged")

	for _, v := range views {
		r.Merge(v)
	}
	for i, p := range paths {
		out, ok := r.Output(p)
		require.True(t, ok, p)
		assert.Equal(t, i, out)
		_, ok = r.Entry(p + ".inner")
		assert.True(t, ok)
	}

	next := r.Allocate(RootPath, "m")
	assert.Equal(t, ".m[3]", next)
}

func TestStore_AllContexts(t *testing.T) {
	s := NewStore(WithIDGenerator(NewFixedGenerator("id-1", "id-2")))
	r1 := s.Begin("sample.Root")
	require.NoError(t, r1.Begin(RootPath, "sample.Root", Input{}))
	require.NoError(t, r1.Begin(".x", "sample.X", Input{}))
	r2 := s.Begin("sample.Other")
	require.NoError(t, r2.Begin(RootPath, "sample.Other", Input{}))

	assert.Equal(t, []string{
		"sample.Root|id-1",
		"sample.Root|id-1|.",
		"sample.Root|id-1|.x",
		"sample.Other|id-2",
		"sample.Other|id-2|.",
	}, s.AllContextKeys())

	all := s.AllContexts()
	assert.Len(t, all, 2)
	assert.Len(t, all["sample.Root|id-1"], 2)

	got, ok := s.Run("sample.Other|id-2")
	require.True(t, ok)
	assert.Same(t, r2, got)

	s.Reset()
	assert.Equal(t, 0, s.Len())
}

func TestStore_Restore(t *testing.T) {
	s := NewStore()
	r := s.Restore("old", "sample.Root", []Entry{
		{Path: RootPath, Status: StatusDone, Output: 160, Seq: 1},
	})
	out, ok := r.Output(RootPath)
	require.True(t, ok)
	assert.Equal(t, 160, out)
	assert.Equal(t, StatusDone, r.Status())
}

func TestUUIDv7Generator(t *testing.T) {
	g := UUIDv7Generator{}
	a, b := g.Generate(), g.Generate()
	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
	assert.Less(t, a, b, "UUIDv7 ids sort by creation time")
}

func TestFixedGenerator_PanicsWhenExhausted(t *testing.T) {
	g := NewFixedGenerator("only")
	assert.Equal(t, "only", g.Generate())
	assert.Panics(t, func() { g.Generate() })
}
