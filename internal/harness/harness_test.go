package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pipetree/internal/compose"
)

func plusTree() compose.Dump {
	return compose.Dump{
		Type:   "sample.Plus",
		Params: map[string]any{"a": 20, "e": 20},
		Nodes: map[string]*compose.Dump{
			"x": {Type: "sample.Sum1", Params: map[string]any{"a": 20}},
		},
	}
}

func intp(i int) *int { return &i }

func TestRun_SingleStep(t *testing.T) {
	scenario := &Scenario{
		Name: "single",
		Tree: plusTree(),
		Flow: []FlowStep{
			{Args: []any{1, 2}, Expect: &Expect{Output: 281}},
		},
		Assertions: []Assertion{
			{Type: AssertTraceContains, Path: ".m.mult", Output: 20},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, result.Errors)
	require.Len(t, result.Steps, 1)
	assert.Equal(t, "run-1", result.Steps[0].RunID)
	assert.Equal(t, 281, result.Steps[0].Output)
	assert.Len(t, result.Steps[0].Entries, 5)
}

func TestRun_ExpectMismatch(t *testing.T) {
	scenario := &Scenario{
		Name: "mismatch",
		Tree: plusTree(),
		Flow: []FlowStep{
			{Args: []any{1, 2}, Expect: &Expect{Output: 280}},
			{Args: []any{1, 2}, Expect: &Expect{Error: "boom"}},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], "expected output 280, got 281")
	assert.Contains(t, result.Errors[1], `expected error containing "boom"`)
}

func TestRun_UnexpectedError(t *testing.T) {
	scenario := &Scenario{
		Name: "unexpected",
		Tree: plusTree(),
		Flow: []FlowStep{{Expect: &Expect{Output: 281}}},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "unexpected error")
	assert.Contains(t, result.Steps[0].Error, "missing argument a")
}

func TestRun_PreviousReusesPersistedOutputs(t *testing.T) {
	scenario := &Scenario{
		Name: "reuse",
		Tree: plusTree(),
		Flow: []FlowStep{
			{Args: []any{1, 2}},
			{Args: []any{1, 2}, Set: map[string]any{"x.a": 1}, From: ".m", Previous: intp(0)},
			{Args: []any{1, 2}},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	require.True(t, result.Pass, result.Errors)

	assert.Equal(t, 281, result.Steps[1].Output, "x comes from the first run")
	assert.Equal(t, 262, result.Steps[2].Output, "x.a=1 makes x 21")

	ids := []string{result.Steps[0].RunID, result.Steps[1].RunID, result.Steps[2].RunID}
	assert.Equal(t, []string{"run-1", "run-2", "run-3"}, ids)
}

func TestRun_UnknownTypeRejected(t *testing.T) {
	scenario := &Scenario{
		Name: "forbidden",
		Tree: compose.Dump{Type: "os.Exec"},
		Flow: []FlowStep{{}},
	}

	_, err := Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load tree")
}

func TestRun_SetUnknownPath(t *testing.T) {
	scenario := &Scenario{
		Name: "bad set",
		Tree: plusTree(),
		Flow: []FlowStep{{Set: map[string]any{"nope": 1}}},
	}

	_, err := Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "set nope")
}

func TestRun_ScenarioFiles(t *testing.T) {
	paths, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, p := range paths {
		t.Run(filepath.Base(p), func(t *testing.T) {
			s, err := LoadScenario(p)
			require.NoError(t, err)
			result, err := Run(s)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestResult_Step(t *testing.T) {
	r := NewResult()
	r.Steps = []StepResult{{RunID: "a"}, {RunID: "b"}}

	s, ok := r.Step(-1)
	require.True(t, ok)
	assert.Equal(t, "b", s.RunID)

	s, ok = r.Step(0)
	require.True(t, ok)
	assert.Equal(t, "a", s.RunID)

	_, ok = r.Step(2)
	assert.False(t, ok)
	_, ok = r.Step(-3)
	assert.False(t, ok)
}
