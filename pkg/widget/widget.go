// Package widget renders the HTML fragment that replaces a "nix repl" block in
// a rendered book.
//
// The class names are a contract with the client-side script that finds the
// blocks, sends their code to the evaluation service and fills in the
// output:
//
//   - nix-repl-block: the container of one interactive block
//   - nix-repl-editor: the code display area
//   - nix-repl-run: the trigger control
//   - nix-repl-status: the status indicator
//   - nix-repl-output: the output area, initially empty
package widget

import (
	"html"
	"strings"
)

// Render renders code as an interactive widget. The code is escaped for use
// as HTML text content.
func Render(code string) string {
	var sb strings.Builder
	sb.WriteString("<div class=\"nix-repl-block\">\n")
	sb.WriteString("  <div class=\"nix-repl-editor\">\n")
	sb.WriteString("    <pre><code class=\"language-nix\">")
	sb.WriteString(html.EscapeString(code))
	sb.WriteString("</code></pre>\n")
	sb.WriteString("  </div>\n")
	sb.WriteString("  <div class=\"nix-repl-controls\">\n")
	sb.WriteString("    <button class=\"nix-repl-run\">Run</button>\n")
	sb.WriteString("    <span class=\"nix-repl-status\"></span>\n")
	sb.WriteString("  </div>\n")
	sb.WriteString("  <pre class=\"nix-repl-output\"></pre>\n")
	sb.WriteString("</div>\n")
	return sb.String()
}
