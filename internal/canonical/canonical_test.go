package canonical

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCanonicalizeKnownTokens(t *testing.T) {
	require.Equal(t, "1", Canonicalize("TRUE"))
	require.Equal(t, "1", Canonicalize(" yes "))
	require.Equal(t, "0", Canonicalize("off"))
	require.Equal(t, "maybe", Canonicalize("maybe"))
	require.Equal(t, "", Canonicalize(""))
}

func TestCanonicalizeIsIdempotent(t *testing.T) {
	for _, v := range []string{"TRUE", "off", "maybe", "", "selected", "0"} {
		once := Canonicalize(v)
		twice := Canonicalize(once)
		require.Equal(t, once, twice, "canonicalize(%q) not idempotent", v)
	}
}
