// Package scaffold implements the "init" subprogram, which prepares an
// mdbook project for nix-repl blocks.
//
// It writes the client script into the theme directory, checks book.toml
// for the settings the preprocessor and the script need, and prints the
// snippet that configures the script. It never edits book.toml or
// theme/index.hbs.
package scaffold

import (
	"bufio"
	"bytes"
	"crypto/rand"
	_ "embed"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"src.nixrepl.dev/pkg/logutil"
	"src.nixrepl.dev/pkg/preprocessor"
	"src.nixrepl.dev/pkg/prog"
	"src.nixrepl.dev/pkg/sys"
)

var logger = logutil.GetLogger("[scaffold] ")

//go:embed nix_http.js
var clientJS []byte

// ClientJSPath is the path of the client script, relative to the root of
// the book.
const ClientJSPath = "theme/nix_http.js"

// DefaultEndpoint is the endpoint in the printed configuration snippet.
const DefaultEndpoint = "http://127.0.0.1:8080/"

var osReleasePath = "/etc/os-release"

// Program is the "init" subprogram.
type Program struct{}

func (Program) RegisterFlags(*prog.FlagSet) {}

func (Program) Run(fds [3]*os.File, args []string) error {
	if len(args) == 0 || args[0] != "init" {
		return prog.ErrNextProgram
	}
	flags := flag.NewFlagSet("init", flag.ContinueOnError)
	flags.SetOutput(io.Discard)
	auto := flags.Bool("auto", false, "detect the system and print how to run the server")
	if err := flags.Parse(args[1:]); err != nil {
		return prog.BadUsage(err.Error())
	}
	if flags.NArg() > 0 {
		return prog.BadUsage("init takes no arguments")
	}

	token, err := NewToken()
	if err != nil {
		return err
	}
	p := &printer{w: fds[1], color: sys.UseColor(fds[1])}
	return initBook(p, ".", token, *auto)
}

// NewToken returns a random 128-bit token in hex.
func NewToken() (string, error) {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(b[:]), nil
}

// Prepares the book rooted at dir, reporting progress to p.
func initBook(p *printer, dir, token string, auto bool) error {
	p.line("Initializing mdbook-nix-repl...")

	jsPath := filepath.Join(dir, filepath.FromSlash(ClientJSPath))
	if err := os.MkdirAll(filepath.Dir(jsPath), 0755); err != nil {
		return fmt.Errorf("create theme directory: %w", err)
	}
	if err := os.WriteFile(jsPath, clientJS, 0644); err != nil {
		return fmt.Errorf("write %s: %w", ClientJSPath, err)
	}
	p.ok("Created " + ClientJSPath)

	checkBookTOML(p, filepath.Join(dir, "book.toml"))

	p.line("")
	p.line("Add this to theme/index.hbs before </body> (run \"mdbook theme\" to get a copy):")
	p.block(ConfigSnippet(DefaultEndpoint, token))

	if auto {
		p.line("")
		advise(p, token, isNixOS(osReleasePath))
	} else {
		p.line("")
		p.line("Setup complete. Token generated: " + token)
	}
	return nil
}

// ConfigSnippet returns the HTML snippet that configures the client script.
func ConfigSnippet(endpoint, token string) string {
	return fmt.Sprintf(`<!-- mdbook-nix-repl config -->
<script>
  window.NIX_REPL_ENDPOINT = %q;
  window.NIX_REPL_TOKEN = %q;
</script>
`, endpoint, token)
}

// The parts of book.toml that matter here.
type bookTOML struct {
	Preprocessor map[string]any `toml:"preprocessor"`
	Output       struct {
		HTML struct {
			AdditionalJS []string `toml:"additional-js"`
		} `toml:"html"`
	} `toml:"output"`
}

// BookStatus is the result of checking book.toml.
type BookStatus struct {
	HasPreprocessor bool
	LoadsClientJS   bool
}

// CheckBook reads the book.toml file at path.
func CheckBook(path string) (BookStatus, error) {
	var cfg bookTOML
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return BookStatus{}, err
	}
	var st BookStatus
	_, st.HasPreprocessor = cfg.Preprocessor[preprocessor.Name]
	for _, js := range cfg.Output.HTML.AdditionalJS {
		if strings.TrimPrefix(filepath.ToSlash(js), "./") == ClientJSPath {
			st.LoadsClientJS = true
		}
	}
	return st, nil
}

func checkBookTOML(p *printer, path string) {
	st, err := CheckBook(path)
	if errors.Is(err, fs.ErrNotExist) {
		p.warn("book.toml not found; run \"mdbook init\" first")
		return
	} else if err != nil {
		logger.Println("cannot read book.toml:", err)
		p.warn(fmt.Sprintf("cannot read book.toml: %v", err))
		return
	}
	if st.HasPreprocessor {
		p.ok("book.toml declares [preprocessor." + preprocessor.Name + "]")
	} else {
		p.warn("book.toml does not declare the preprocessor; add:")
		p.block("[preprocessor." + preprocessor.Name + "]\n")
	}
	if st.LoadsClientJS {
		p.ok("book.toml loads " + ClientJSPath)
	} else {
		p.warn("book.toml does not load the client script; add:")
		p.block(fmt.Sprintf("[output.html]\nadditional-js = [%q]\n", ClientJSPath))
	}
}

func isNixOS(osRelease string) bool {
	data, err := os.ReadFile(osRelease)
	if err != nil {
		logger.Println("cannot read os-release:", err)
		return false
	}
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		key, value, ok := strings.Cut(strings.TrimSpace(sc.Text()), "=")
		if ok && key == "ID" {
			return strings.EqualFold(strings.Trim(value, `"'`), "nixos")
		}
	}
	return false
}

func advise(p *printer, token string, nixos bool) {
	p.line("System detection:")
	if nixos {
		p.ok("NixOS detected; run the server natively:")
		p.block(fmt.Sprintf("$ NIX_REPL_TOKEN=%s nix-repl-server -addr 127.0.0.1\n", token))
		return
	}
	p.warn("Not NixOS; run the server in a container that has Nix:")
	p.block(fmt.Sprintf(`$ podman run --rm -p 127.0.0.1:8080:8080 \
    -e NIX_REPL_TOKEN=%s \
    -e NIX_CONFIG="experimental-features = nix-command" \
    -v "$(command -v nix-repl-server)":/usr/local/bin/nix-repl-server:ro \
    --cap-drop=ALL --security-opt=no-new-privileges \
    docker.io/nixos/nix nix-repl-server
`, token))
}
