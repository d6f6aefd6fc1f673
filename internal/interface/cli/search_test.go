package cli

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestIndexFold(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		query      string
		start, end int
	}{
		{"exact", "hello world", "world", 6, 11},
		{"case insensitive", "Hello World", "world", 6, 11},
		{"multibyte before match", "héllo world", "WORLD", 7, 12},
		// U+0130 shrinks under strings.ToLower, so lowered-string offsets
		// would not map back onto the original bytes.
		{"dotted capital I", "see İstanbul today", "istanbul", 4, 13},
		{"no match", "hello", "bye", -1, -1},
		{"empty query", "hello", "", -1, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := indexFold(tt.text, tt.query)
			if start != tt.start || end != tt.end {
				t.Errorf("indexFold(%q, %q) = %d, %d, want %d, %d",
					tt.text, tt.query, start, end, tt.start, tt.end)
			}
			if start >= 0 && !utf8.ValidString(tt.text[start:end]) {
				t.Errorf("match %q is not valid UTF-8", tt.text[start:end])
			}
		})
	}
}

func TestHighlightMatchKeepsRuneBoundaries(t *testing.T) {
	got := highlightMatch("see İstanbul today", "istanbul")
	if !utf8.ValidString(got) {
		t.Errorf("result is not valid UTF-8: %q", got)
	}
	if !strings.Contains(got, "İstanbul") {
		t.Errorf("matched segment was split: %q", got)
	}

	if got := highlightMatch("hello", "zzz"); got != "hello" {
		t.Errorf("no-match should return text unchanged, got %q", got)
	}
}
