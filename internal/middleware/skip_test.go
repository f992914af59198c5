package middleware

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pipetree/internal/runctx"
)

func TestSkip_ReusesPreviousOutput(t *testing.T) {
	store := runctx.NewStore()
	run := store.Begin("test.T")
	run.SetSkipPlan(runctx.SkipPlan{
		From: ".b",
		Previous: map[string]runctx.Entry{
			".a": {Path: ".a", Status: runctx.StatusDone, Output: 5},
		},
	})

	owner := fakeOwner{name: "test.T"}
	var ran []string
	step := func(path string) (any, error) {
		ctx := runctx.WithFrame(context.Background(), run, path)
		return Tracing(owner, Skip(owner, func(context.Context, runctx.Input) (any, error) {
			ran = append(ran, path)
			return path, nil
		}))(ctx, runctx.Input{})
	}

	// The root is the parent of the From step and always runs.
	root := runctx.WithFrame(context.Background(), run, runctx.RootPath)
	_, err := Tracing(owner, Skip(owner, func(context.Context, runctx.Input) (any, error) {
		a, err := step(".a")
		require.NoError(t, err)
		assert.Equal(t, 5, a)

		b, err := step(".b")
		require.NoError(t, err)
		assert.Equal(t, ".b", b)
		return nil, nil
	}))(root, runctx.Input{})
	require.NoError(t, err)

	assert.Equal(t, []string{".b"}, ran)
	e, _ := run.Entry(".a")
	assert.True(t, e.HasFlag(FlagSkipped))
	assert.Equal(t, 5, e.Output)
}

func TestSkip_HaltsAfterTo(t *testing.T) {
	run := runctx.NewStore().Begin("test.T")
	run.SetSkipPlan(runctx.SkipPlan{To: ".a"})

	owner := fakeOwner{name: "test.T"}
	calls := 0
	body := func(context.Context, runctx.Input) (any, error) {
		calls++
		return calls, nil
	}

	out, err := Skip(owner, body)(runctx.WithFrame(context.Background(), run, ".a"), runctx.Input{})
	require.NoError(t, err)
	assert.Equal(t, 1, out)

	ctx := runctx.WithFrame(context.Background(), run, ".b")
	out, err = Tracing(owner, Skip(owner, body))(ctx, runctx.Input{})
	require.NoError(t, err)
	assert.True(t, IsSkipped(out))
	assert.Equal(t, 1, calls)

	e, _ := run.Entry(".b")
	assert.Nil(t, e.Output)
	assert.True(t, e.HasFlag(FlagSkipped))
}

func TestSkip_NoPlanRuns(t *testing.T) {
	run := runctx.NewStore().Begin("test.T")
	ctx := runctx.WithFrame(context.Background(), run, ".x")
	out, err := Skip(fakeOwner{}, func(context.Context, runctx.Input) (any, error) { return 1, nil })(ctx, runctx.Input{})
	require.NoError(t, err)
	assert.Equal(t, 1, out)
}
