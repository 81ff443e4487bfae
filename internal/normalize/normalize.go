// Package normalize implements C4, the Topic Normalizer: replacing every
// "/" and "%" with "_" so a topic is safe to use as a controller-addressable
// name (URL path segment, WebSocket command, or whitelist entry).
// Grounded on the original's normalize_topic in miniserver_data_processor.py.
package normalize

import "strings"

// Topic replaces every '/' and '%' in topic with '_'. If topic contains
// neither character it is returned unchanged (fast path), avoiding an
// allocation on the hot path for already-normalized names (spec §4.4).
func Topic(topic string) string {
	if !strings.ContainsAny(topic, "/%") {
		return topic
	}
	b := strings.Builder{}
	b.Grow(len(topic))
	for _, r := range topic {
		if r == '/' || r == '%' {
			b.WriteByte('_')
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}
