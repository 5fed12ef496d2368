package book

import "src.nixrepl.dev/pkg/fence"

// Rewrite replaces "nix repl" blocks in the content of every chapter of b
// with interactive widgets. Everything else in b is left untouched.
func Rewrite(b *Book) {
	b.ForEachChapter(func(ch *Chapter) {
		ch.Content = fence.Rewrite(ch.Content)
	})
}
