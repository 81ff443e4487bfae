package expand

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExpandDisabledYieldsOnePair(t *testing.T) {
	pairs := Expand("room/temp", []byte(`{"a":1,"b":2}`), false)
	require.Len(t, pairs, 1)
	require.Equal(t, "room/temp", pairs[0].Topic)
	require.Equal(t, `{"a":1,"b":2}`, pairs[0].Value)
}

func TestExpandEmptyObjectYieldsNoPairs(t *testing.T) {
	pairs := Expand("room/temp", []byte(`{}`), true)
	require.Empty(t, pairs)
}

func TestExpandFlattensNestedObjectsAndArrays(t *testing.T) {
	payload := []byte(`{"outer":{"inner":"x"},"list":[10,20,"z"]}`)
	pairs := Expand("t", payload, true)

	got := make(map[string]string, len(pairs))
	var order []string
	for _, p := range pairs {
		got[p.Topic] = p.Value
		order = append(order, p.Topic)
	}

	require.Equal(t, "x", got["t/outer/inner"])
	require.Equal(t, "10", got["t/list/0"])
	require.Equal(t, "20", got["t/list/1"])
	require.Equal(t, "z", got["t/list/2"])
	// Document order must be preserved: "outer" (and its descendant) before "list".
	require.Equal(t, []string{"t/outer/inner", "t/list/0", "t/list/1", "t/list/2"}, order)
}

func TestExpandNonJSONFirstByteShortCircuits(t *testing.T) {
	pairs := Expand("t", []byte("not json at all"), true)
	require.Len(t, pairs, 1)
	require.Equal(t, "not json at all", pairs[0].Value)
}

func TestExpandMalformedJSONFallsBackToOnePair(t *testing.T) {
	pairs := Expand("t", []byte(`{"a": invalid}`), true)
	require.Len(t, pairs, 1)
	require.Equal(t, `{"a": invalid}`, pairs[0].Value)
}

func TestExpandArrayAtRootIsNotUnwrapped(t *testing.T) {
	pairs := Expand("t", []byte(`[1,2,3]`), true)
	require.Len(t, pairs, 1)
	require.Equal(t, "[1,2,3]", pairs[0].Value)
}

func TestExpandBinaryPayloadIsBase64Encoded(t *testing.T) {
	payload := []byte{0xff, 0xfe, 0x00, 0x01}
	pairs := Expand("t", payload, true)
	require.Len(t, pairs, 1)
	require.Regexp(t, "^base64:", pairs[0].Value)
}

func TestExpandNullAndBooleanLeaves(t *testing.T) {
	pairs := Expand("t", []byte(`{"a":null,"b":true,"c":false}`), true)
	got := make(map[string]string, len(pairs))
	for _, p := range pairs {
		got[p.Topic] = p.Value
	}
	require.Equal(t, "null", got["t/a"])
	require.Equal(t, "true", got["t/b"])
	require.Equal(t, "false", got["t/c"])
}
