package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pipetree/internal/ir"
)

func TestRunWithGolden_PlusBasic(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/plus_basic.yaml")
	require.NoError(t, err)

	result, err := RunWithGolden(t, s)
	require.NoError(t, err)
	assert.True(t, result.Pass, result.Errors)
}

func TestSnapshot_Deterministic(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/plus_reuse.yaml")
	require.NoError(t, err)

	first, err := Run(s)
	require.NoError(t, err)
	second, err := Run(s)
	require.NoError(t, err)

	a, err := ir.MarshalCanonical(snapshot(s.Name, first))
	require.NoError(t, err)
	b, err := ir.MarshalCanonical(snapshot(s.Name, second))
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestSnapshot_OmitsEmptyFields(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/plus_failure.yaml")
	require.NoError(t, err)
	result, err := Run(s)
	require.NoError(t, err)

	snap := snapshot(s.Name, result)
	steps := snap["steps"].([]any)
	require.Len(t, steps, 1)
	step := steps[0].(map[string]any)
	assert.NotContains(t, step, "output")
	assert.Contains(t, step["error"], "missing argument a")
}
