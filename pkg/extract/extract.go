// Package extract recovers JSON values from free-form model output.
//
// Models wrap JSON in prose, code fences or both. Extract tries, in order:
// a ```json fenced block, the greedy outermost {...} or [...] span, and the
// whole trimmed text. The first candidate that parses wins. Callers treat a
// nil result as "no data" and fall back; nothing here returns an error.
package extract

import (
	"encoding/json"
	"regexp"
	"strings"
)

var (
	fencedJSON = regexp.MustCompile("(?s)```(?i:json)[ \\t]*\\r?\\n(.*?)\\r?\\n?[ \\t]*```")
	outerSpan  = regexp.MustCompile(`(?s)(\{.*\}|\[.*\])`)
)

// Extract returns the first JSON value recoverable from text, or nil.
// Objects decode to map[string]any, arrays to []any and numbers to
// json.Number.
func Extract(text string) any {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	if m := fencedJSON.FindStringSubmatch(text); m != nil {
		if v, ok := parse(m[1]); ok {
			return v
		}
	}

	if m := outerSpan.FindString(text); m != "" {
		if v, ok := parse(m); ok {
			return v
		}
	}

	if v, ok := parse(text); ok {
		return v
	}
	return nil
}

// Object extracts a JSON object from text.
func Object(text string) (map[string]any, bool) {
	obj, ok := Extract(text).(map[string]any)
	return obj, ok
}

// Array extracts a JSON array from text.
func Array(text string) ([]any, bool) {
	arr, ok := Extract(text).([]any)
	return arr, ok
}

// Into extracts a JSON value from text and decodes it into v.
// It reports false when nothing was found or the value does not fit v.
func Into(text string, v any) bool {
	val := Extract(text)
	if val == nil {
		return false
	}
	data, err := json.Marshal(val)
	if err != nil {
		return false
	}
	return json.Unmarshal(data, v) == nil
}

// parse decodes s as exactly one JSON value.
func parse(s string) (any, bool) {
	s = strings.TrimSpace(s)
	if s == "" || !json.Valid([]byte(s)) {
		return nil, false
	}
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, false
	}
	return v, true
}
