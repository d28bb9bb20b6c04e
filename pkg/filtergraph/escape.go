package filtergraph

import "strings"

// textEscaper handles every character the filter-graph mini-language assigns
// meaning to inside a quoted drawtext value. Backslash must come first so the
// escapes added for the other characters are not themselves re-escaped.
// Single quotes cannot be backslash-escaped inside a quoted section; the
// quoted section is closed, the literal quote emitted escaped, and the
// section reopened, mirroring shell quoting.
var textEscaper = strings.NewReplacer(
	`\`, `\\`,
	`'`, `'\''`,
	`:`, `\:`,
	`,`, `\,`,
	`;`, `\;`,
	`[`, `\[`,
	`]`, `\]`,
	`%`, `\%`,
)

// EscapeText escapes a chapter title (or any literal string) for embedding
// inside a single-quoted drawtext text value so ffmpeg parses it back as one
// literal token equal to the input.
func EscapeText(text string) string {
	return textEscaper.Replace(text)
}

// EscapeFontPath escapes a font file path for a drawtext fontfile value.
// Windows separators are normalized to forward slashes and drive-letter
// colons escaped, matching what ffmpeg accepts on every platform.
func EscapeFontPath(path string) string {
	path = strings.ReplaceAll(path, `\`, `/`)
	return strings.ReplaceAll(path, `:`, `\:`)
}
