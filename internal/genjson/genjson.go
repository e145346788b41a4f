// Package genjson recovers structured data from unreliable model output.
//
// Model replies are supposed to be JSON but frequently arrive wrapped in
// markdown fences, padded with prose, dotted with trailing commas, or
// truncated mid-value. The functions here make a best-faith extraction
// attempt with a hard ceiling of one repair pass, and they never return an
// error: every failure mode degrades to an empty result that the caller
// decides how to surface.
package genjson

import (
	"encoding/json"
	"regexp"
	"strings"
)

var (
	openFenceRE     = regexp.MustCompile("(?i)^```(?:json)?[ \t]*\r?\n?")
	trailingCommaRE = regexp.MustCompile(`,\s*([}\]])`)
)

// StripFences removes a leading ```json or ``` fence and a trailing ```
// fence if present.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if loc := openFenceRE.FindStringIndex(s); loc != nil {
		s = s[loc[1]:]
		if end := strings.LastIndex(s, "```"); end >= 0 {
			s = s[:end]
		}
	}
	return strings.TrimSpace(s)
}

// ExtractObject slices raw to the span between the first '{' and the last
// '}', discarding any commentary the model added around the object. Returns
// "" when no such pair exists.
func ExtractObject(raw string) string {
	return extractSpan(StripFences(raw), '{', '}')
}

// ExtractArray slices raw to the span between the first '[' and the last ']'.
func ExtractArray(raw string) string {
	return extractSpan(StripFences(raw), '[', ']')
}

func extractSpan(s string, open, closer byte) string {
	start := strings.IndexByte(s, open)
	end := strings.LastIndexByte(s, closer)
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}

// Object extracts and decodes an object-shaped reply into v. Returns false
// when nothing decodable could be recovered; v is untouched in that case.
func Object(raw string, v any) bool {
	return decode(ExtractObject(raw), v)
}

// Strings extracts an array-shaped reply and returns its string elements,
// dropping anything else, capped at max. A reply with no recoverable array
// yields an empty (non-nil) slice.
func Strings(raw string, max int) []string {
	var items []any
	if !decode(ExtractArray(raw), &items) {
		return []string{}
	}
	return StringItems(items, max)
}

// StringItems filters a decoded []any down to its non-empty string elements,
// capped at max.
func StringItems(items []any, max int) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		s, ok := it.(string)
		if !ok {
			continue
		}
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		out = append(out, s)
		if len(out) >= max {
			break
		}
	}
	return out
}

// decode attempts a strict parse after trailing-comma cleanup, then applies
// the single repair pass and retries once.
func decode(s string, v any) bool {
	if s == "" {
		return false
	}
	s = trailingCommaRE.ReplaceAllString(s, "$1")
	if json.Unmarshal([]byte(s), v) == nil {
		return true
	}
	repaired := Repair(s)
	if repaired == s {
		return false
	}
	return json.Unmarshal([]byte(repaired), v) == nil
}

// Repair applies a generic cleanup to almost-JSON text: it closes an
// unterminated string, drops a dangling escape, balances unclosed brackets
// and braces, discards unmatched closers, and removes trailing commas. It
// makes no attempt at semantic reconstruction; the goal is to salvage output
// truncated by a token budget or mangled by a small model.
func Repair(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 8)
	var stack []byte
	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			b.WriteByte(c)
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
			b.WriteByte(c)
		case '{', '[':
			stack = append(stack, c)
			b.WriteByte(c)
		case '}', ']':
			want := byte('{')
			if c == ']' {
				want = '['
			}
			if len(stack) == 0 || stack[len(stack)-1] != want {
				continue // unmatched closer, drop it
			}
			stack = stack[:len(stack)-1]
			b.WriteByte(c)
		default:
			b.WriteByte(c)
		}
	}

	out := b.String()
	if escaped {
		out = out[:len(out)-1]
	}
	if inString {
		out += `"`
	}
	out = strings.TrimRight(out, " \t\r\n")
	out = strings.TrimSuffix(out, ",")
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i] == '{' {
			out += "}"
		} else {
			out += "]"
		}
	}
	return trailingCommaRE.ReplaceAllString(out, "$1")
}
