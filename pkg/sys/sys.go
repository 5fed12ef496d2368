// Package sys provides system utilities with the same API across OSes.
package sys

import (
	"os"

	"github.com/mattn/go-isatty"
	"src.nixrepl.dev/pkg/env"
)

// IsATTY determines whether the given file is a terminal.
func IsATTY(fd uintptr) bool {
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// UseColor reports whether output written to f may contain color escape
// sequences: f must be a terminal, and neither $NO_COLOR nor TERM=dumb may
// be set.
func UseColor(f *os.File) bool {
	if os.Getenv(env.NO_COLOR) != "" || os.Getenv(env.TERM) == "dumb" {
		return false
	}
	return IsATTY(f.Fd())
}
