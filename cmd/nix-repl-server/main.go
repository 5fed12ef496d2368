// Nix-repl-server evaluates Nix code for the widgets produced by
// mdbook-nix-repl. It serves HTTP by default, or JSON-RPC on stdin and
// stdout with -stdio.
package main

import (
	"os"

	"src.nixrepl.dev/pkg/buildinfo"
	"src.nixrepl.dev/pkg/logutil"
	"src.nixrepl.dev/pkg/pprof"
	"src.nixrepl.dev/pkg/prog"
	"src.nixrepl.dev/pkg/server"
)

func main() {
	// Overridden by -log.
	logutil.SetOutput(os.Stderr)
	os.Exit(prog.Run(
		[3]*os.File{os.Stdin, os.Stdout, os.Stderr}, os.Args,
		prog.Composite(&buildinfo.Program{}, &pprof.Program{}, &server.Program{})))
}
