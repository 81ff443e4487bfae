// Package filter implements C1, the Filter Engine: compiling a set of
// regex source strings into a single alternation matcher, the way the
// original's MiniserverDataProcessor._compile_filters does, generalized
// into a standalone, immutable component per spec §4.1 and the redesign
// note in spec §9 ("decorator-style cache" -> explicit owned structures).
package filter

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/user/loxrelay"
)

// Matcher is a compiled, immutable alternation of regex sources, built with
// Compile. The zero value (and a nil *Matcher) matches nothing.
type Matcher struct {
	sources []string
	re      *regexp.Regexp // nil means "matches nothing"
}

// Compile validates each source by compiling it alone; invalid sources are
// dropped and logged at error severity, never aborting the whole set
// (spec §4.1 invariant a). Valid sources are joined as (r1|r2|...|rn) and
// compiled once. Empty or all-invalid input yields a Matcher whose Matches
// is always false, in O(1) (invariant b).
func Compile(srcs []string, log loxrelay.Logger) *Matcher {
	valid := make([]string, 0, len(srcs))
	for _, s := range srcs {
		if _, err := regexp.Compile(s); err != nil {
			if log != nil {
				log.Error("filter: invalid regex source dropped", "source", s, "error", err)
			}
			continue
		}
		valid = append(valid, s)
	}
	if len(valid) == 0 {
		return &Matcher{}
	}
	pattern := fmt.Sprintf("(%s)", strings.Join(valid, "|"))
	re, err := regexp.Compile(pattern)
	if err != nil {
		// Each source compiled alone; a failure joining them would mean a
		// source poisons the alternation in a way single-compilation can't
		// catch (e.g. mismatched group numbering never actually occurs for
		// plain unions, but stay defensive rather than panic).
		if log != nil {
			log.Error("filter: combined pattern failed to compile", "error", err)
		}
		return &Matcher{sources: valid}
	}
	return &Matcher{sources: valid, re: re}
}

// Matches reports whether s contains an unanchored match anywhere in the
// combined pattern. Callers wanting anchored matching must anchor each
// source themselves (spec §4.1).
func (m *Matcher) Matches(s string) bool {
	if m == nil || m.re == nil {
		return false
	}
	return m.re.MatchString(s)
}

// Sources returns the valid source strings the matcher was built from, for
// diagnostics.
func (m *Matcher) Sources() []string {
	if m == nil {
		return nil
	}
	return m.sources
}
