// Package canonical implements C3, the Value Canonicalizer: mapping known
// truthy/falsy tokens to "1"/"0", passing everything else through
// unchanged. Grounded on the original's BOOLEAN_MAPPING table in
// miniserver_data_processor.py, generalized into a standalone pure function
// per spec §4.3.
package canonical

import "strings"

// booleanMapping is the fixed, case-insensitive lookup table from spec §4.3.
var booleanMapping = map[string]string{
	"true":     "1",
	"yes":      "1",
	"on":       "1",
	"enabled":  "1",
	"enable":   "1",
	"1":        "1",
	"check":    "1",
	"checked":  "1",
	"select":   "1",
	"selected": "1",

	"false":    "0",
	"no":       "0",
	"off":      "0",
	"disabled": "0",
	"disable":  "0",
	"0":        "0",
}

// Canonicalize maps value to "1" or "0" when it is a known truthy/falsy
// token (after trimming and lowercasing); any other value, including the
// empty string, is returned unchanged. The function is pure and cacheable.
func Canonicalize(value string) string {
	if value == "" {
		return value
	}
	key := strings.ToLower(strings.TrimSpace(value))
	if mapped, ok := booleanMapping[key]; ok {
		return mapped
	}
	return value
}
