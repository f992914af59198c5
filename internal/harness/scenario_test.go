package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenario(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestLoadScenario_Valid(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/plus_reuse.yaml")
	require.NoError(t, err)

	assert.Equal(t, "plus_reuse", s.Name)
	assert.Equal(t, "sample.Plus", s.Tree.Type)
	assert.Equal(t, 20, s.Tree.Params["a"])
	require.Contains(t, s.Tree.Nodes, "x")
	assert.Equal(t, "sample.Sum1", s.Tree.Nodes["x"].Type)

	require.Len(t, s.Flow, 2)
	assert.Equal(t, []any{1, 2}, s.Flow[0].Args)
	assert.Equal(t, ".m", s.Flow[1].From)
	require.NotNil(t, s.Flow[1].Previous)
	assert.Equal(t, 0, *s.Flow[1].Previous)
	assert.Equal(t, map[string]any{"x.a": 1}, s.Flow[1].Set)

	require.Len(t, s.Assertions, 4)
	assert.Equal(t, AssertTraceContains, s.Assertions[0].Type)
	assert.Equal(t, "skipped", s.Assertions[0].Flag)
}

func TestLoadScenario_UnknownField(t *testing.T) {
	p := writeScenario(t, `
name: typo
tree: { type: sample.Plus }
flow: [{ argz: [1] }]
`)
	_, err := LoadScenario(p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "argz")
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario("testdata/nope.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read scenario file")
}

func TestLoadScenario_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errMsg  string
	}{
		{
			name:    "no name",
			content: "tree: { type: sample.Plus }\nflow: [{}]\n",
			errMsg:  "name is required",
		},
		{
			name:    "no tree type",
			content: "name: x\nflow: [{}]\n",
			errMsg:  "tree.type is required",
		},
		{
			name:    "empty flow",
			content: "name: x\ntree: { type: sample.Plus }\nflow: []\n",
			errMsg:  "at least one step",
		},
		{
			name:    "previous not earlier",
			content: "name: x\ntree: { type: sample.Plus }\nflow: [{ previous: 0 }]\n",
			errMsg:  "previous must name an earlier step",
		},
		{
			name:    "assertion step out of range",
			content: "name: x\ntree: { type: sample.Plus }\nflow: [{}]\nassertions: [{ type: trace_contains, path: ., step: 3 }]\n",
			errMsg:  "step 3 out of range",
		},
		{
			name:    "trace_order with one path",
			content: "name: x\ntree: { type: sample.Plus }\nflow: [{}]\nassertions: [{ type: trace_order, paths: [.x] }]\n",
			errMsg:  "at least 2 paths",
		},
		{
			name:    "trace_count without path",
			content: "name: x\ntree: { type: sample.Plus }\nflow: [{}]\nassertions: [{ type: trace_count, count: 1 }]\n",
			errMsg:  "trace_count requires path",
		},
		{
			name:    "final_param without path",
			content: "name: x\ntree: { type: sample.Plus }\nflow: [{}]\nassertions: [{ type: final_param, value: 1 }]\n",
			errMsg:  "final_param requires path",
		},
		{
			name:    "missing assertion type",
			content: "name: x\ntree: { type: sample.Plus }\nflow: [{}]\nassertions: [{ path: . }]\n",
			errMsg:  "type is required",
		},
		{
			name:    "unknown assertion type",
			content: "name: x\ntree: { type: sample.Plus }\nflow: [{}]\nassertions: [{ type: final_state }]\n",
			errMsg:  `unknown type "final_state"`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScenario(writeScenario(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}
