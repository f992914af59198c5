package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescribe_ListsTypes(t *testing.T) {
	out, _, err := execute(t, "describe")
	require.NoError(t, err)
	assert.Equal(t, "sample.Multiply\nsample.Pipeline\nsample.Plus\nsample.Sum1\nsample.Sum2\n", out)
}

func TestDescribe_Text(t *testing.T) {
	out, _, err := execute(t, "describe", "sample.Plus")
	require.NoError(t, err)

	assert.Contains(t, out, "sample.Plus(ma int, mb int) int")
	assert.Contains(t, out, "middleware: default [tracing, skip]")
	assert.Contains(t, out, "  e int (required)")
	assert.Contains(t, out, "on a, e)")
	assert.Contains(t, out, "nodes:\n")
	assert.Contains(t, out, "# any int producer")
}

func TestDescribe_JSONUsesSettingsSections(t *testing.T) {
	out, _, err := execute(t, "describe", "sample.Multiply", "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Data TypeDescription `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "sample.Multiply", resp.Data.Type)
	assert.Equal(t, "cached", resp.Data.Section)
	assert.Equal(t, []string{"tracing", "caching", "skip"}, resp.Data.Middleware)
}

func TestDescribe_UnknownType(t *testing.T) {
	_, _, err := execute(t, "describe", "sample.Nope")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
