package ir

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromGoScalars(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  Value
	}{
		{"nil", nil, Null{}},
		{"string", "s", String("s")},
		{"int32", int32(3), Int(3)},
		{"uint", uint(9), Int(9)},
		{"float32", float32(0.5), Float(0.5)},
		{"bool", true, Bool(true)},
		{"nil pointer", (*int)(nil), Null{}},
		{"already lowered", Int(4), Int(4)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromGo(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFromGoNested(t *testing.T) {
	got, err := FromGo(map[string][]any{"xs": {1, "a", nil}})
	require.NoError(t, err)
	assert.Equal(t, Object{"xs": List{Int(1), String("a"), Null{}}}, got)
}

func TestFromGoRejectsNonFinite(t *testing.T) {
	_, err := FromGo(math.NaN())
	assert.Error(t, err)
	_, err = FromGo(math.Inf(1))
	assert.Error(t, err)
}

func TestFromGoRejectsOverflow(t *testing.T) {
	_, err := FromGo(uint64(math.MaxUint64))
	assert.Error(t, err)
}

func TestToGoRoundTrip(t *testing.T) {
	v := Object{"a": List{Int(1), Float(2.5)}, "b": Null{}, "c": Bool(false)}
	got := ToGo(v)
	assert.Equal(t, map[string]any{
		"a": []any{int64(1), 2.5},
		"b": nil,
		"c": false,
	}, got)
}

func TestSortedKeys(t *testing.T) {
	obj := Object{"b": Int(1), "a": Int(2), "c": Int(3)}
	assert.Equal(t, []string{"a", "b", "c"}, obj.SortedKeys())
}

func TestKeys(t *testing.T) {
	assert.Equal(t, []string{"x", "y"}, Keys(map[string]int{"y": 1, "x": 2}))
}
