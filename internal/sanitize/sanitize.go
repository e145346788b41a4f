// Package sanitize neutralizes user-supplied free text before it is
// interpolated into a model prompt or written to storage. All functions are
// pure and total: they never fail, and pathological input yields "".
package sanitize

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// TagMaxLen is the rune cap applied to a single interest tag.
const TagMaxLen = 40

// ForPrompt collapses all whitespace (including newlines) to single spaces,
// strips ASCII control characters, trims, and truncates to maxLen runes.
// Embedded newlines would let a user forge prompt section delimiters, so
// none survive.
func ForPrompt(text string, maxLen int) string {
	var b strings.Builder
	b.Grow(len(text))
	space := false
	for _, r := range text {
		switch {
		case r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\v' || r == '\f':
			space = true
		case r < 0x20 || r == 0x7f:
			// drop other control characters
		default:
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
		}
	}
	return truncate(b.String(), maxLen)
}

// ForStorage strips control characters (replacing each with a space) but
// preserves the inner whitespace structure, NFC-normalizes, and truncates to
// maxLen runes. Newlines and tabs survive so stored text stays close to what
// the user typed.
func ForStorage(text string, maxLen int) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		switch {
		case r == '\n' || r == '\t':
			b.WriteRune(r)
		case r < 0x20 || r == 0x7f:
			b.WriteByte(' ')
		default:
			b.WriteRune(r)
		}
	}
	return truncate(strings.TrimSpace(norm.NFC.String(b.String())), maxLen)
}

// Tag truncates to TagMaxLen runes and keeps only letters, digits,
// whitespace, hyphen, underscore, comma, period, and apostrophe. Disallowed
// runes are stripped rather than rejecting the whole tag.
func Tag(tag string) string {
	tag = truncate(tag, TagMaxLen)
	var b strings.Builder
	b.Grow(len(tag))
	for _, r := range tag {
		if allowedTagRune(r) {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

func allowedTagRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == ' ' || r == '\t':
		return true
	case r == '-' || r == '_' || r == ',' || r == '.' || r == '\'':
		return true
	}
	return false
}

func truncate(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return strings.TrimSpace(string(runes[:maxLen]))
}
