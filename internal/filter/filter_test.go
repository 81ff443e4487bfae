package filter

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/user/loxrelay/internal/logging"
)

func TestCompileEmptyNeverMatches(t *testing.T) {
	m := Compile(nil, logging.Nop{})
	require.False(t, m.Matches("anything"))
}

func TestCompileDropsInvalidSourcesButKeepsValid(t *testing.T) {
	m := Compile([]string{"(unclosed", "^ignore/.*"}, logging.Nop{})
	require.True(t, m.Matches("ignore/something"))
	require.False(t, m.Matches("keep/this"))
}

func TestCompileAllInvalidNeverMatches(t *testing.T) {
	m := Compile([]string{"(unclosed", "[bad"}, logging.Nop{})
	require.False(t, m.Matches("anything"))
}

func TestMatchesIsUnanchoredSubstringSearch(t *testing.T) {
	m := Compile([]string{"ignore/.*"}, logging.Nop{})
	require.True(t, m.Matches("original/topic/ignore/nested"))
}

func TestNilMatcherNeverMatches(t *testing.T) {
	var m *Matcher
	require.False(t, m.Matches("x"))
}
