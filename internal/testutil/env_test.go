package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pipetree/internal/compose"
	"github.com/roach88/pipetree/internal/runctx"
)

var echo = compose.MustDefine("testutil.Echo",
	compose.Param("v", compose.Default("hi")),
	compose.Run(func(_ context.Context, c *compose.Composable, _ runctx.Input) (any, error) {
		return c.Get("v")
	}),
)

func TestSequentialIDs(t *testing.T) {
	g := NewSequentialIDs("")
	assert.Equal(t, "run-1", g.Generate())
	assert.Equal(t, "run-2", g.Generate())
	assert.Equal(t, "x-1", NewSequentialIDs("x").Generate())
}

func TestNewEnv_IsDeterministic(t *testing.T) {
	env := NewEnv(t)
	c, err := echo.New(nil, compose.WithEnv(env.Env))
	require.NoError(t, err)

	_, err = c.Invoke(context.Background(), runctx.Input{})
	require.NoError(t, err)
	run := c.LastRun()
	assert.Equal(t, "run-1", run.ID)
	assert.Equal(t, "testutil.Echo|run-1", run.Key())
	assert.Equal(t, int64(1), env.Clock.Current())
	assert.Equal(t, ".\ttestutil.Echo\tdone\thi\n", FormatTrace(run))
}
