// Package expand implements C2, the Payload Expander: parsing a raw MQTT
// payload as JSON and flattening nested objects/arrays into path/value
// pairs, the way the original's MiniserverDataProcessor.expand_json and
// flatten_dict do. Generalized per spec §4.2 into a pure function with no
// package-level state.
package expand

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/user/loxrelay"
)

// Expand runs C2 over one (topic, payload) message. When expandJSON is
// false, it yields exactly one pair and stops (spec §4.2 first bullet).
func Expand(topic string, payload []byte, expandJSON bool) []loxrelay.Pair {
	raw := decodePayload(payload)

	if !expandJSON {
		return []loxrelay.Pair{{Topic: topic, Value: raw}}
	}

	trimmed := strings.TrimLeft(raw, " \t\r\n")
	if trimmed == "" || (trimmed[0] != '{' && trimmed[0] != '[') {
		return []loxrelay.Pair{{Topic: topic, Value: raw}}
	}

	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return []loxrelay.Pair{{Topic: topic, Value: raw}}
	}

	delim, ok := tok.(json.Delim)
	if !ok || delim != '{' {
		// Root is an array or a bare scalar: arrays are only unwrapped when
		// they appear inside an object (spec §4.2 last bullet).
		return []loxrelay.Pair{{Topic: topic, Value: raw}}
	}

	var out []loxrelay.Pair
	add := func(path, value string) {
		out = append(out, loxrelay.Pair{Topic: path, Value: value})
	}
	// The leading '{' has already been consumed above; reuse the same
	// object-body loop flattenValue uses for nested objects.
	if err := objectBody(dec, topic, add); err != nil {
		return []loxrelay.Pair{{Topic: topic, Value: raw}}
	}
	return out
}

// objectBody consumes the key/value pairs of an already-opened JSON object
// (its leading '{' has already been read) and emits one pair per leaf, in
// document order, with a path of prefix + "/" + key chain.
func objectBody(dec *json.Decoder, prefix string, add func(path, value string)) error {
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("expand: non-string object key %v", keyTok)
		}
		if err := flattenValue(dec, prefix+"/"+key, add); err != nil {
			return err
		}
	}
	_, err := dec.Token() // consume closing '}'
	return err
}

// flattenValue consumes one JSON value (whatever comes next in dec) and
// emits leaf pairs under prefix, recursing into objects and arrays.
func flattenValue(dec *json.Decoder, prefix string, add func(path, value string)) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			return objectBody(dec, prefix, add)
		case '[':
			i := 0
			for dec.More() {
				if err := flattenValue(dec, fmt.Sprintf("%s/%d", prefix, i), add); err != nil {
					return err
				}
				i++
			}
			_, err := dec.Token() // ']'
			return err
		}
		return nil
	case nil:
		add(prefix, "null")
	case bool:
		add(prefix, strconv.FormatBool(t))
	case json.Number:
		add(prefix, t.String())
	case string:
		add(prefix, t)
	}
	return nil
}

// decodePayload is the safe-surrogate representation required by spec §7:
// valid UTF-8 payloads decode as-is; anything else — including the
// binary/compressed-looking payloads C9 and C8 never see but C6 must still
// tolerate — is base64-encoded with a recognizable prefix so it can never
// corrupt a downstream URL path segment or WebSocket command frame.
func decodePayload(payload []byte) string {
	if utf8.Valid(payload) {
		return string(payload)
	}
	return "base64:" + base64.StdEncoding.EncodeToString(payload)
}
