package testutil

import "strings"

// Dedent removes any common leading whitespace from every line in text. An
// initial newline is removed, and lines consisting only of whitespace become
// empty.
//
// This can be used to make multiline (usually raw) strings to line up with the
// left edge of the display, while still presenting them in the source code in
// indented form.
func Dedent(text string) string {
	text = strings.TrimPrefix(text, "\n")
	lines := strings.Split(text, "\n")

	margin, haveMargin := "", false
	for i, line := range lines {
		if strings.TrimLeft(line, " \t") == "" {
			lines[i] = ""
			continue
		}
		indent := line[:len(line)-len(strings.TrimLeft(line, " \t"))]
		if !haveMargin {
			margin, haveMargin = indent, true
			continue
		}
		margin = commonPrefix(margin, indent)
	}

	for i, line := range lines {
		lines[i] = strings.TrimPrefix(line, margin)
	}
	return strings.Join(lines, "\n")
}

func commonPrefix(a, b string) string {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return a[:i]
		}
	}
	return a[:n]
}
