package filtergraph

import (
	"strings"
	"testing"
)

func TestEscapeText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "Plain", in: "Intro", want: "Intro"},
		{name: "Colon", in: "Part 1: Setup", want: `Part 1\: Setup`},
		{name: "Single quote", in: "it's", want: `it'\''s`},
		{name: "Comma", in: "a, b", want: `a\, b`},
		{name: "Semicolon", in: "a;b", want: `a\;b`},
		{name: "Backslash", in: `a\b`, want: `a\\b`},
		{name: "Brackets", in: "[ch 1]", want: `\[ch 1\]`},
		{name: "Percent", in: "100% done", want: `100\% done`},
		{name: "Colon and quote together", in: "Chapter 1: Bob's intro", want: `Chapter 1\: Bob'\''s intro`},
		{name: "Backslash before colon", in: `\:`, want: `\\\:`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EscapeText(tt.in); got != tt.want {
				t.Errorf("EscapeText(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

// unescapeQuoted simulates how ffmpeg's filter parser reads a single-quoted
// drawtext value back into a literal string.
func unescapeQuoted(s string) string {
	// The '\'' sequence closes the quote, emits a literal quote, reopens.
	s = strings.ReplaceAll(s, `'\''`, "'")
	var b strings.Builder
	escaped := false
	for _, r := range s {
		if escaped {
			b.WriteRune(r)
			escaped = false
			continue
		}
		if r == '\\' {
			escaped = true
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func TestEscapeTextRoundTrip(t *testing.T) {
	inputs := []string{
		"Chapter 1: Bob's intro",
		`specials \ : , ; [ ] % '`,
		"plain title",
		"第一章：介绍",
	}

	for _, in := range inputs {
		if got := unescapeQuoted(EscapeText(in)); got != in {
			t.Errorf("round trip %q -> %q", in, got)
		}
	}
}

func TestEscapeFontPath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"/Library/Fonts/Arial Unicode.ttf", "/Library/Fonts/Arial Unicode.ttf"},
		{`C:\Windows\Fonts\arial.ttf`, `C\:/Windows/Fonts/arial.ttf`},
	}

	for _, tt := range tests {
		if got := EscapeFontPath(tt.in); got != tt.want {
			t.Errorf("EscapeFontPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
