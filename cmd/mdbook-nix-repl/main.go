// Mdbook-nix-repl is an mdbook preprocessor that turns code blocks fenced
// with "```nix repl" into widgets that evaluate their code on a
// nix-repl-server when the reader presses Run.
//
// Add it to book.toml with:
//
//	[preprocessor.nix-repl]
//
// and run "mdbook-nix-repl init" in the book directory to install the
// client script.
package main

import (
	"os"

	"src.nixrepl.dev/pkg/buildinfo"
	"src.nixrepl.dev/pkg/preprocessor"
	"src.nixrepl.dev/pkg/prog"
	"src.nixrepl.dev/pkg/scaffold"
)

func main() {
	os.Exit(prog.Run(
		[3]*os.File{os.Stdin, os.Stdout, os.Stderr}, os.Args,
		prog.Composite(
			&buildinfo.Program{}, scaffold.Program{},
			preprocessor.Supports{}, preprocessor.Program{})))
}
