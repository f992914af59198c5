package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheKeyDeterminism(t *testing.T) {
	def := map[string]any{"a": 20, "b": 10}
	input := map[string]any{"args": []any{1, "x"}, "kwargs": map[string]any{}}

	k1, err := CacheKey("sample.Sum1", def, input)
	require.NoError(t, err)
	k2, err := CacheKey("sample.Sum1", map[string]any{"b": 10, "a": 20}, input)
	require.NoError(t, err)

	assert.Equal(t, k1, k2, "key order must not affect the fingerprint")
	assert.Len(t, k1, 64, "SHA-256 hex is 64 characters")
}

func TestCacheKeyChangesWithEachPart(t *testing.T) {
	def := map[string]any{"a": 1}
	input := []any{1}

	base := MustCacheKey("sample.Sum1", def, input)

	assert.NotEqual(t, base, MustCacheKey("sample.Sum2", def, input), "type name")
	assert.NotEqual(t, base, MustCacheKey("sample.Sum1", map[string]any{"a": 2}, input), "definition")
	assert.NotEqual(t, base, MustCacheKey("sample.Sum1", def, []any{2}), "input")
	assert.NotEqual(t, base, MustCacheKey("sample.Sum1", def, []any{1.0}), "int vs float")
}

func TestDomainSeparation(t *testing.T) {
	data := []byte(`{"a":1}`)
	assert.NotEqual(t, hashWithDomain(DomainCache, data), hashWithDomain(DomainDefinition, data))
}

func TestDefinitionHash(t *testing.T) {
	h1, err := DefinitionHash(map[string]any{"type": "sample.Root", "params": map[string]any{"a": 20}})
	require.NoError(t, err)
	h2, err := DefinitionHash(map[string]any{"params": map[string]any{"a": 20}, "type": "sample.Root"})
	require.NoError(t, err)
	assert.Equal(t, h1, h2)

	_, err = DefinitionHash(map[string]any{"bad": make(chan int)})
	assert.Error(t, err)
}

func TestCacheKeyRejectsUnsupportedInput(t *testing.T) {
	_, err := CacheKey("x", nil, []any{make(chan int)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "input")
}
