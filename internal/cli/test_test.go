package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTestCommand_Passing(t *testing.T) {
	out, _, err := execute(t, "test", "testdata/scenarios/plus_ok.yaml")
	require.NoError(t, err)
	assert.Equal(t, "1 passed, 0 failed, 1 total\n", out)
}

func TestTestCommand_Failing(t *testing.T) {
	out, _, err := execute(t, "test", "testdata/scenarios")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "FAIL plus_wrong")
	assert.Contains(t, out, "expected output 1, got 281")
	assert.Contains(t, out, "1 passed, 1 failed, 2 total")
}

func TestTestCommand_Filter(t *testing.T) {
	out, _, err := execute(t, "test", "testdata/scenarios", "--filter", "*_ok", "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Status string `json:"status"`
		Data   struct {
			Total  int `json:"total"`
			Passed int `json:"passed"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 1, resp.Data.Total)
	assert.Equal(t, 1, resp.Data.Passed)
}

func TestTestCommand_Errors(t *testing.T) {
	_, _, err := execute(t, "test", "testdata/nope")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, _, err = execute(t, "test", "testdata/scenarios", "--filter", "[")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	out, _, err := execute(t, "test", "testdata/scenarios", "--filter", "zzz*")
	require.NoError(t, err)
	assert.Equal(t, "No scenarios found.\n", out)
}
