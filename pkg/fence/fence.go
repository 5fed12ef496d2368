// Package fence finds fenced "nix repl" blocks in markdown text and replaces
// them with rendered widgets.
//
// The scanner is line-oriented and deliberately much simpler than a markdown
// parser: a block starts at a line beginning with the start marker and ends
// at the next line beginning with the end marker, ignoring leading
// whitespace in both cases. Blocks don't nest; a start marker inside a block
// is part of its body. Text outside blocks is copied through unchanged.
package fence

import (
	"strings"
	"unicode"

	"src.nixrepl.dev/pkg/widget"
)

// Markers recognized by Rewrite.
const (
	StartMarker = "```nix repl"
	EndMarker   = "```"
)

// Scanner holds the markers and the renderer used to rewrite blocks.
type Scanner struct {
	// Start and End are matched as prefixes of a line with leading whitespace
	// removed, so trailing annotations after a marker are allowed.
	Start, End string
	// Render converts the body of a block to its replacement text.
	Render func(body string) string
}

// Default is the Scanner used by Rewrite.
var Default = Scanner{StartMarker, EndMarker, widget.Render}

// Rewrite replaces each "nix repl" block in text with an interactive widget,
// using the Default scanner.
func Rewrite(text string) string { return Default.Rewrite(text) }

// Blocks returns the bodies of all terminated blocks in text, using the
// Default scanner.
func Blocks(text string) []string { return Default.Blocks(text) }

// Rewrite replaces each block in text with the result of s.Render. Every line
// of the result is terminated by "\n". The body of a block that is still open
// at the end of text is written out unrendered, without its start marker.
func (s Scanner) Rewrite(text string) string {
	var sb strings.Builder
	s.scan(text, handler{
		text: func(line string) {
			sb.WriteString(line)
			sb.WriteByte('\n')
		},
		block:        func(body string) { sb.WriteString(s.Render(body)) },
		unterminated: func(body string) { sb.WriteString(body) },
	})
	return sb.String()
}

// Blocks returns the bodies of all terminated blocks in text. Each line of a
// body is terminated by "\n".
func (s Scanner) Blocks(text string) []string {
	var bodies []string
	s.scan(text, handler{
		text:         func(string) {},
		block:        func(body string) { bodies = append(bodies, body) },
		unterminated: func(string) {},
	})
	return bodies
}

type handler struct {
	text         func(line string)
	block        func(body string)
	unterminated func(body string)
}

type state uint8

const (
	outside state = iota
	inside
)

func (s Scanner) scan(text string, h handler) {
	st := outside
	var body strings.Builder
	eachLine(text, func(line string) {
		trimmed := strings.TrimLeftFunc(line, unicode.IsSpace)
		switch st {
		case outside:
			if strings.HasPrefix(trimmed, s.Start) {
				st = inside
				body.Reset()
			} else {
				h.text(line)
			}
		case inside:
			if strings.HasPrefix(trimmed, s.End) {
				h.block(body.String())
				st = outside
			} else {
				body.WriteString(line)
				body.WriteByte('\n')
			}
		}
	})
	if st == inside {
		h.unterminated(body.String())
	}
}

// Calls f with each line of text, without the line terminator. Lines are
// terminated by "\n" or "\r\n"; a final line terminator doesn't start an
// empty line.
func eachLine(text string, f func(line string)) {
	for text != "" {
		i := strings.IndexByte(text, '\n')
		if i == -1 {
			f(text)
			return
		}
		f(strings.TrimSuffix(text[:i], "\r"))
		text = text[i+1:]
	}
}
