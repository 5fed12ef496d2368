package scaffold

import (
	"fmt"
	"io"
	"strings"
)

const (
	green  = "\033[32m"
	yellow = "\033[33m"
	reset  = "\033[m"
)

// Writes progress lines, with colored status glyphs when color is enabled.
type printer struct {
	w     io.Writer
	color bool
}

func (p *printer) line(s string) { fmt.Fprintln(p.w, s) }

func (p *printer) ok(s string) { p.status("✓", green, s) }

func (p *printer) warn(s string) { p.status("!", yellow, s) }

func (p *printer) status(glyph, color, s string) {
	if p.color {
		glyph = color + glyph + reset
	}
	fmt.Fprintf(p.w, "%s %s\n", glyph, s)
}

// Writes text indented by four spaces.
func (p *printer) block(text string) {
	for _, line := range strings.SplitAfter(text, "\n") {
		if line != "" {
			io.WriteString(p.w, "    "+line)
		}
	}
}
