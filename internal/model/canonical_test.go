package model

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonicalBasic(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected string
	}{
		{"string", "hello", `"hello"`},
		{"empty string", "", `""`},
		{"int", int64(42), "42"},
		{"negative int", -100, "-100"},
		{"bool true", true, "true"},
		{"empty array", []any{}, "[]"},
		{"empty object", map[string]any{}, "{}"},
		{"integral float", 10.0, "10"},
		{"fraction", 0.1, "0.1"},
		{"negative zero", math.Copysign(0, -1), "0"},
		{"large", 1e21, "1e+21"},
		{"small", 1e-7, "1e-7"},
		{"boundary small", 0.000001, "0.000001"},
		{"no html escape", "a<b&c>", `"a<b&c>"`},
		{"control escape", "a\nb\x01", `"a\nb\u0001"`},
		{"line separator kept", "a\u2028b", "\"a\u2028b\""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := MarshalCanonical(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(result))
		})
	}
}

func TestMarshalCanonicalSortedKeys(t *testing.T) {
	obj := map[string]any{
		"zebra": int64(1),
		"alpha": int64(2),
		"beta":  map[string]any{"b": 1, "a": 2},
	}

	result, err := MarshalCanonical(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"alpha":2,"beta":{"a":2,"b":1},"zebra":1}`, string(result))
}

func TestMarshalCanonicalUTF16Order(t *testing.T) {
	// U+E000 sorts before U+1F600 in UTF-8 byte order but after it in UTF-16.
	obj := map[string]any{"\U0001F600": 1, "\uE000": 2}

	result, err := MarshalCanonical(obj)
	require.NoError(t, err)
	assert.Equal(t, "{\"\U0001F600\":1,\"\uE000\":2}", string(result))
}

func TestMarshalCanonicalNFC(t *testing.T) {
	decomposed := "e\u0301"
	composed := "\u00e9"

	a, err := MarshalCanonical(decomposed)
	require.NoError(t, err)
	b, err := MarshalCanonical(composed)
	require.NoError(t, err)
	assert.Equal(t, b, a)
}

func TestMarshalCanonicalRejects(t *testing.T) {
	for name, v := range map[string]any{
		"nil":      nil,
		"nan":      math.NaN(),
		"inf":      math.Inf(1),
		"float32":  float32(1),
		"nested":   map[string]any{"a": []any{math.Inf(-1)}},
		"struct":   struct{}{},
		"null key": map[string]any{"a": nil},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := MarshalCanonical(v)
			assert.Error(t, err)
		})
	}
}
