package runctx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJoinAndParent(t *testing.T) {
	assert.Equal(t, ".x", Join(RootPath, "x"))
	assert.Equal(t, ".x.y", Join(".x", "y"))
	assert.Equal(t, ".x[2]", Indexed(RootPath, "x", 2))

	assert.Equal(t, RootPath, Parent(".x"))
	assert.Equal(t, ".x[1]", Parent(".x[1].y"))
	assert.Equal(t, "", Parent(RootPath))

	assert.Equal(t, "x[1]", Edge(".a.x[1]"))
	assert.Equal(t, "", Edge(RootPath))
}

func TestIsAncestor(t *testing.T) {
	assert.True(t, IsAncestor(RootPath, ".x"))
	assert.True(t, IsAncestor(".x", ".x.y"))
	assert.False(t, IsAncestor(".x", ".xy"))
	assert.False(t, IsAncestor(".x", ".x"))
	assert.True(t, InSubtree(".x", ".x"))
}

func TestMatch(t *testing.T) {
	tests := []struct {
		pattern, path string
		want          bool
	}{
		{".a.*.b", ".a.c.b", true},
		{".a.*.b", ".a.b.c.b", false},
		{".*", ".x", true},
		{".*", ".x.y", false},
		{".x", ".x", true},
		{".x", ".x[1]", false},
		{".x*", ".x[1]", true},
		{"", ".x", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Match(tt.pattern, tt.path), "%s ~ %s", tt.pattern, tt.path)
	}
}

func TestIsParentOf(t *testing.T) {
	assert.True(t, IsParentOf(".main.a1", ".main.a1.*"))
	assert.True(t, IsParentOf(".main.a1", ".main.a1.b1"))
	assert.False(t, IsParentOf(".main.a1", ".main.a2"))
	assert.True(t, IsParentOf(RootPath, ".b"))
}
