// Package udpin implements C8, the UDP Parser: turning one UDP datagram's
// text into a (command, topic, payload) triple, or rejecting it. JSON
// bodies are split at the first '{'; other bodies with more than two
// whitespace tokens use a greedy topic-extension rule so multi-word topic
// segments stay in the topic.
package udpin

import (
	"strings"
	"unicode"
)

// Command is the MQTT retain behavior requested by a datagram.
type Command int

const (
	Publish Command = iota
	Retain
)

// Message is the parsed result of one UDP datagram.
type Message struct {
	Command Command
	Topic   string
	Payload string
}

// Parse runs C8 over one datagram's decoded text. ok is false when the
// datagram is rejected (empty, no command-qualifying split point, or a
// split that would leave either side empty).
func Parse(raw string) (msg Message, ok bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Message{}, false
	}

	command, body := splitCommand(trimmed)

	if idx := strings.IndexByte(body, '{'); idx >= 0 {
		topic := strings.TrimRight(body[:idx], " \t\r\n\v\f")
		payload := body[idx:]
		if topic == "" || payload == "" {
			return Message{}, false
		}
		return Message{Command: command, Topic: topic, Payload: payload}, true
	}

	tokens := strings.Fields(body)
	switch {
	case len(tokens) < 2:
		return Message{}, false
	case len(tokens) == 2:
		return Message{Command: command, Topic: tokens[0], Payload: tokens[1]}, true
	}

	stop := greedyTopicExtent(tokens)
	topic := strings.Join(tokens[:stop], " ")
	payload := strings.Join(tokens[stop:], " ")
	if topic == "" || payload == "" {
		return Message{}, false
	}
	return Message{Command: command, Topic: topic, Payload: payload}, true
}

// splitCommand splits off the first whitespace-delimited token of trimmed.
// If it is "publish" or "retain" (case-insensitively), that is the command
// and body is the remainder; otherwise the command defaults to Publish and
// body is the entire input unchanged.
func splitCommand(trimmed string) (Command, string) {
	idx := strings.IndexFunc(trimmed, unicode.IsSpace)
	var first, rest string
	if idx < 0 {
		first, rest = trimmed, ""
	} else {
		first, rest = trimmed[:idx], strings.TrimLeftFunc(trimmed[idx:], unicode.IsSpace)
	}
	switch strings.ToLower(first) {
	case "publish":
		return Publish, rest
	case "retain":
		return Retain, rest
	default:
		return Publish, trimmed
	}
}

// greedyTopicExtent returns the index at which the payload begins, given
// more than two whitespace tokens. tokens[0] always starts the topic; each
// following token up to (but never including) the last is folded into the
// topic if it contains a '/', or if it sits between two slash-containing
// tokens — the original tokens[i-1] in the topic list and tokens[i+1] ahead
// of it. The first token that qualifies for neither stops the extension.
func greedyTopicExtent(tokens []string) int {
	stop := 1
	for stop < len(tokens)-1 {
		tok := tokens[stop]
		flanked := strings.Contains(tokens[stop-1], "/") && strings.Contains(tokens[stop+1], "/")
		if strings.Contains(tok, "/") || flanked {
			stop++
			continue
		}
		break
	}
	return stop
}
