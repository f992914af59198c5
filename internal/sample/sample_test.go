package sample

import (
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pipetree/internal/compose"
	"github.com/roach88/pipetree/internal/runctx"
	"github.com/roach88/pipetree/internal/testutil"
)

func newEnv(t *testing.T) *compose.Env {
	return testutil.NewEnv(t).Env
}

func newPlus(t *testing.T, env *compose.Env) *compose.Composable {
	t.Helper()
	p, err := Plus.New(map[string]any{
		"a": 20,
		"e": 20,
		"x": Sum1.With(map[string]any{"a": 20}),
	}, compose.WithEnv(env))
	require.NoError(t, err)
	return p
}

func TestPlus_Invoke(t *testing.T) {
	p := newPlus(t, newEnv(t))

	out, err := p.Invoke(context.Background(), runctx.Input{Args: []any{1, 2}})
	require.NoError(t, err)
	// x=40, y=120, m=100+1+10*2
	assert.Equal(t, 281, out)

	logs := p.Logs(".")
	for path, want := range map[string]any{".x": 40, ".y": 120, ".m": 121, ".m.mult": 20} {
		e, ok := logs[path]
		require.True(t, ok, path)
		assert.Equal(t, want, e.Output, path)
	}
}

func TestPlus_TraceGolden(t *testing.T) {
	env := testutil.NewEnv(t)
	p := newPlus(t, env.Env)

	_, err := p.Invoke(context.Background(), runctx.Input{Args: []any{1, 2}})
	require.NoError(t, err)
	// A second invocation with the same arguments is a new run; only the
	// cached Multiply is served from the cache.
	_, err = p.Invoke(context.Background(), runctx.Input{Args: []any{1, 2}})
	require.NoError(t, err)
	assert.Equal(t, "run-2", p.LastRun().ID)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "plus_trace", []byte(testutil.FormatTrace(p.LastRun())))
}

func TestPlus_AutoValues(t *testing.T) {
	p := newPlus(t, newEnv(t))

	f, err := compose.As[int](p, "f")
	require.NoError(t, err)
	assert.Equal(t, 40, f)

	za, err := compose.As[int](p, "z.a")
	require.NoError(t, err)
	assert.Equal(t, 200, za)

	require.NoError(t, p.Set("x", Sum1.MustNew(map[string]any{"a": 3})))
	za, err = compose.As[int](p, "z.a")
	require.NoError(t, err)
	assert.Equal(t, 30, za, "z follows x")

	require.NoError(t, p.Set("e", 1))
	f, err = compose.As[int](p, "f")
	require.NoError(t, err)
	assert.Equal(t, 21, f)
}

func TestPlus_MissingArgs(t *testing.T) {
	p := newPlus(t, newEnv(t))

	_, err := p.Invoke(context.Background(), runctx.Input{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing argument a")
	assert.Equal(t, runctx.StatusError, p.LastRun().Status())
}

func TestSum1_DependsOnB(t *testing.T) {
	s := Sum1.MustNew(map[string]any{"a": 1})
	d, err := compose.As[int](s, "d")
	require.NoError(t, err)
	assert.Equal(t, 20, d)

	require.NoError(t, s.Set("b", 4))
	d, err = compose.As[int](s, "d")
	require.NoError(t, err)
	assert.Equal(t, 8, d)
}

func TestPipeline_RegisteredSteps(t *testing.T) {
	env := newEnv(t)
	p, err := Pipeline.New(map[string]any{"steps": []string{"double", "triple"}}, compose.WithEnv(env))
	require.NoError(t, err)
	require.NoError(t, p.Register("double", Multiply.MustNew(map[string]any{"a": 2})))
	require.NoError(t, p.Register("triple", Multiply.MustNew(map[string]any{"a": 3})))

	out, err := p.Invoke(context.Background(), runctx.Input{Args: []any{5}})
	require.NoError(t, err)
	assert.Equal(t, 30, out)

	logs := p.Logs(".")
	assert.Equal(t, 10, logs[".double"].Output)
	assert.Equal(t, 30, logs[".triple"].Output)
}

func TestPipeline_UnregisteredStep(t *testing.T) {
	p, err := Pipeline.New(map[string]any{"steps": []string{"ghost"}}, compose.WithEnv(newEnv(t)))
	require.NoError(t, err)

	_, err = p.Invoke(context.Background(), runctx.Input{Args: []any{1}})
	assert.ErrorContains(t, err, `"ghost" is not registered`)
}

func TestAllowList_LoadsDump(t *testing.T) {
	env := newEnv(t)
	p := newPlus(t, env)

	data, err := compose.MarshalYAML(p)
	require.NoError(t, err)

	loaded, err := compose.UnmarshalYAML(data, AllowList(), compose.WithEnv(env))
	require.NoError(t, err)
	out, err := loaded.Invoke(context.Background(), runctx.Input{Args: []any{1, 2}})
	require.NoError(t, err)
	assert.Equal(t, 281, out)

	_, err = compose.UnmarshalYAML([]byte("type: other.Thing\n"), AllowList())
	assert.True(t, compose.IsModuleNotAllowed(err))
}

func TestIntArg(t *testing.T) {
	in := runctx.Input{Args: []any{1, float64(2), 2.5}, Kwargs: map[string]any{"k": int64(7)}}

	v, err := IntArg(in, 0, "a")
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	v, err = IntArg(in, 1, "b")
	require.NoError(t, err)
	assert.Equal(t, 2, v)

	_, err = IntArg(in, 2, "c")
	assert.ErrorContains(t, err, "not an integer")

	v, err = IntArg(in, 5, "k")
	require.NoError(t, err)
	assert.Equal(t, 7, v)

	_, err = IntArg(in, 5, "nope")
	assert.ErrorContains(t, err, "missing argument nope")
}
