package openai

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// shapeMatcher inspects one known upstream payload shape and reports whether
// it yielded the assistant text.
type shapeMatcher func(payload interface{}) (string, bool)

// Ordered by precedence; the first matcher to succeed wins.
var shapeMatchers = []shapeMatcher{
	matchString,
	matchChoices,
	matchNestedMessage,
	matchContent,
	matchText,
}

// Extract normalizes an arbitrary upstream payload into a single plain-text
// string. It never fails: unrecognized shapes degrade to a JSON
// stringification of the payload, and an internal fault degrades to "".
func Extract(payload interface{}) (text string) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
		}
	}()
	if payload == nil {
		return ""
	}
	for _, match := range shapeMatchers {
		if s, ok := match(payload); ok {
			return s
		}
	}
	return stringify(payload)
}

func matchString(payload interface{}) (string, bool) {
	s, ok := payload.(string)
	return s, ok
}

// matchChoices handles OpenAI-shaped payloads: choices[0].message.content,
// then choices[0].text, then choices[0].delta.content for chunk-shaped input.
// A choices list whose first element carries none of these falls through to
// the remaining matchers.
func matchChoices(payload interface{}) (string, bool) {
	m, ok := payload.(map[string]interface{})
	if !ok {
		return "", false
	}
	choices, ok := m["choices"].([]interface{})
	if !ok || len(choices) == 0 {
		return "", false
	}
	first, ok := choices[0].(map[string]interface{})
	if !ok {
		return "", false
	}
	if msg, ok := first["message"].(map[string]interface{}); ok {
		if s, ok := msg["content"].(string); ok {
			return s, true
		}
	}
	if s, ok := first["text"].(string); ok {
		return s, true
	}
	if delta, ok := first["delta"].(map[string]interface{}); ok {
		if s, ok := delta["content"].(string); ok {
			return s, true
		}
	}
	return "", false
}

func matchNestedMessage(payload interface{}) (string, bool) {
	m, ok := payload.(map[string]interface{})
	if !ok {
		return "", false
	}
	msg, ok := m["message"].(map[string]interface{})
	if !ok {
		return "", false
	}
	s, ok := msg["content"].(string)
	return s, ok
}

func matchContent(payload interface{}) (string, bool) {
	m, ok := payload.(map[string]interface{})
	if !ok {
		return "", false
	}
	s, ok := m["content"].(string)
	return s, ok
}

func matchText(payload interface{}) (string, bool) {
	m, ok := payload.(map[string]interface{})
	if !ok {
		return "", false
	}
	s, ok := m["text"].(string)
	return s, ok
}

func stringify(payload interface{}) string {
	buf := bytes.Buffer{}
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(payload); err != nil {
		return fmt.Sprint(payload)
	}
	return strings.TrimSpace(buf.String())
}
