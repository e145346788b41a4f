package sanitize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestForPrompt(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		maxLen int
		want   string
	}{
		{"plain text unchanged", "quantum computing", 100, "quantum computing"},
		{"newlines collapse to spaces", "line one\nline two\r\nline three", 100, "line one line two line three"},
		{"runs of whitespace collapse", "a \t\t  b\n\n\nc", 100, "a b c"},
		{"control characters dropped", "he\x00llo\x1bworld", 100, "helloworld"},
		{"leading and trailing trimmed", "  \n topic \t ", 100, "topic"},
		{"truncates at rune boundary", "héllo wörld", 7, "héllo w"},
		{"whitespace only yields empty", " \n\t\r ", 100, ""},
		{"empty input", "", 100, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ForPrompt(tt.in, tt.maxLen))
		})
	}
}

func TestForPromptNeverContainsNewlines(t *testing.T) {
	out := ForPrompt("a\nb\rc\r\nd\ve\ff", 100)
	assert.NotContains(t, out, "\n")
	assert.NotContains(t, out, "\r")
}

func TestForStorage(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		maxLen int
		want   string
	}{
		{"newlines survive", "line one\nline two", 100, "line one\nline two"},
		{"tabs survive", "col1\tcol2", 100, "col1\tcol2"},
		{"other controls become spaces", "a\x00b\x1bc", 100, "a b c"},
		{"trimmed", "  text  ", 100, "text"},
		{"empty", "", 100, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ForStorage(tt.in, tt.maxLen))
		})
	}
}

func TestForStorageNormalizesNFC(t *testing.T) {
	// e + combining acute accent normalizes to the precomposed form
	decomposed := "é"
	assert.Equal(t, "é", ForStorage(decomposed, 100))
}

func TestForStorageTruncatesRunes(t *testing.T) {
	in := strings.Repeat("ü", 600)
	out := ForStorage(in, 500)
	assert.Equal(t, 500, len([]rune(out)))
}

func TestTag(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"simple tag", "machine learning", "machine learning"},
		{"allowed punctuation kept", "sci-fi, o'neill_1.0", "sci-fi, o'neill_1.0"},
		{"disallowed runes stripped", "rust{}lang<script>", "rustlangscript"},
		{"emoji stripped", "space 🚀 travel", "space  travel"},
		{"trimmed after filtering", "  !!  ", ""},
		{"truncated to cap", strings.Repeat("a", TagMaxLen+10), strings.Repeat("a", TagMaxLen)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Tag(tt.in))
		})
	}
}
