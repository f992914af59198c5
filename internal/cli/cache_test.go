package cli

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pipetree/internal/cache"
)

func TestCacheClear_SQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	st, closer, err := cache.Open(cache.Config{Backend: cache.BackendSQLite, Path: path})
	require.NoError(t, err)
	require.NoError(t, st.Set(context.Background(), "k1", 1))
	require.NoError(t, st.Set(context.Background(), "k2", 2))
	require.NoError(t, closer.Close())

	out, _, err := execute(t, "cache", "clear", "--backend", "sqlite", "--path", path)
	require.NoError(t, err)
	assert.Equal(t, "removed 2 cached outputs from sqlite\n", out)

	out, _, err = execute(t, "cache", "clear", "--backend", "sqlite", "--path", path)
	require.NoError(t, err)
	assert.Contains(t, out, "removed 0")
}

func TestCacheClear_DefaultMemory(t *testing.T) {
	out, _, err := execute(t, "cache", "clear", "--format", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"backend":"memory"`)
	assert.Contains(t, out, `"removed":0`)
}

func TestCacheClear_UnknownBackend(t *testing.T) {
	_, _, err := execute(t, "cache", "clear", "--backend", "redis")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
