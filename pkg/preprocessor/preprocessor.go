// Package preprocessor implements the mdbook preprocessor subprograms.
//
// mdbook first runs "mdbook-nix-repl supports <renderer>" to ask whether the
// preprocessor should run for a renderer, then runs "mdbook-nix-repl" with
// the book on stdin and reads the rewritten book from stdout.
package preprocessor

import (
	"encoding/json"
	"fmt"
	"os"

	"src.nixrepl.dev/pkg/book"
	"src.nixrepl.dev/pkg/logutil"
	"src.nixrepl.dev/pkg/prog"
)

var logger = logutil.GetLogger("[preprocessor] ")

// Name is the name of the preprocessor, as used in book.toml.
const Name = "nix-repl"

// SupportsRenderer reports whether the preprocessor works with the given
// renderer. The widgets are raw HTML, so only the html renderer is supported.
func SupportsRenderer(renderer string) bool {
	return renderer == "html"
}

// Supports is the "supports" subprogram.
type Supports struct{}

func (Supports) RegisterFlags(*prog.FlagSet) {}

func (Supports) Run(fds [3]*os.File, args []string) error {
	if len(args) == 0 || args[0] != "supports" {
		return prog.ErrNextProgram
	}
	if len(args) != 2 {
		return prog.BadUsage("supports takes exactly one argument, the renderer name")
	}
	if !SupportsRenderer(args[1]) {
		return prog.Exit(1)
	}
	fmt.Fprintln(fds[1], "true")
	return nil
}

// Program is the subprogram that rewrites the book. It runs when there are
// no arguments.
type Program struct{}

func (Program) RegisterFlags(*prog.FlagSet) {}

func (Program) Run(fds [3]*os.File, args []string) error {
	if len(args) > 0 {
		return prog.BadUsage(fmt.Sprintf("unknown command %q", args[0]))
	}
	ctx, b, err := book.ParseInput(fds[0])
	if err != nil {
		return err
	}
	if !SupportsRenderer(ctx.Renderer) {
		logger.Printf("renderer %q is not supported; widgets will be emitted as raw HTML anyway",
			ctx.Renderer)
	}
	n := 0
	b.ForEachChapter(func(*book.Chapter) { n++ })
	logger.Printf("rewriting %d chapters for mdbook %s", n, ctx.MdbookVersion)

	book.Rewrite(b)

	enc := json.NewEncoder(fds[1])
	enc.SetEscapeHTML(false)
	if err := enc.Encode(b); err != nil {
		return fmt.Errorf("write book: %w", err)
	}
	return nil
}
