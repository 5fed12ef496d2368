package scaffold

import (
	"bytes"
	"encoding/hex"
	"path/filepath"
	"strings"
	"testing"

	"src.nixrepl.dev/pkg/must"
	"src.nixrepl.dev/pkg/prog/progtest"
	"src.nixrepl.dev/pkg/testutil"
)

const completeBookTOML = `
[book]
title = "Nix notes"

[preprocessor.nix-repl]

[output.html]
additional-js = ["./theme/nix_http.js"]
`

func TestProgram_Init(t *testing.T) {
	testutil.InTempDir(t)
	testutil.Set(t, &osReleasePath, "nonexistent")
	testutil.ApplyDir(testutil.Dir{"book.toml": completeBookTOML})

	exit, stdout, stderr := progtest.Run(Program{}, "", "mdbook-nix-repl", "init")
	if exit != 0 {
		t.Fatalf("got exit %d, stderr %q", exit, stderr)
	}
	if got := must.ReadFileString(filepath.FromSlash(ClientJSPath)); got != string(clientJS) {
		t.Errorf("theme/nix_http.js has unexpected content")
	}
	for _, want := range []string{
		"✓ Created theme/nix_http.js\n",
		"✓ book.toml declares [preprocessor.nix-repl]\n",
		"✓ book.toml loads theme/nix_http.js\n",
		`    window.NIX_REPL_ENDPOINT = "http://127.0.0.1:8080/";` + "\n",
		"Setup complete. Token generated: ",
	} {
		if !strings.Contains(stdout, want) {
			t.Errorf("stdout %q doesn't contain %q", stdout, want)
		}
	}
	if strings.Contains(stdout, "\033[") {
		t.Errorf("stdout contains color escapes when not writing to a terminal")
	}
}

func TestProgram_InitReportsMissingSettings(t *testing.T) {
	testutil.InTempDir(t)
	testutil.ApplyDir(testutil.Dir{"book.toml": "[book]\ntitle = \"x\"\n"})

	progtest.Test(t, Program{},
		progtest.ThatCommand("init").WritesStdoutContaining(
			"! book.toml does not declare the preprocessor; add:\n"+
				"    [preprocessor.nix-repl]\n"+
				"! book.toml does not load the client script; add:\n"+
				"    [output.html]\n"+
				"    additional-js = [\"theme/nix_http.js\"]\n"),
	)
}

func TestProgram_InitWithoutBook(t *testing.T) {
	testutil.InTempDir(t)
	progtest.Test(t, Program{},
		progtest.ThatCommand("init").
			WritesStdoutContaining(`! book.toml not found; run "mdbook init" first`),
	)
}

func TestProgram_InitWithBadBook(t *testing.T) {
	testutil.InTempDir(t)
	testutil.ApplyDir(testutil.Dir{"book.toml": "[book\n"})
	progtest.Test(t, Program{},
		progtest.ThatCommand("init").WritesStdoutContaining("! cannot read book.toml: "),
	)
}

func TestProgram_InitAuto(t *testing.T) {
	dir := testutil.InTempDir(t)
	testutil.ApplyDir(testutil.Dir{
		"os-release-nixos":  "NAME=NixOS\nID=nixos\nVERSION_ID=\"24.05\"\n",
		"os-release-debian": "NAME=\"Debian GNU/Linux\"\nID=debian\n",
	})

	testutil.Set(t, &osReleasePath, filepath.Join(dir, "os-release-nixos"))
	progtest.Test(t, Program{},
		progtest.ThatCommand("init", "-auto").
			WritesStdoutContaining("✓ NixOS detected; run the server natively:\n    $ NIX_REPL_TOKEN="),
	)

	testutil.Set(t, &osReleasePath, filepath.Join(dir, "os-release-debian"))
	progtest.Test(t, Program{},
		progtest.ThatCommand("init", "--auto").
			WritesStdoutContaining("! Not NixOS; run the server in a container that has Nix:\n    $ podman run"),
	)
}

func TestProgram_NotInit(t *testing.T) {
	progtest.Test(t, Program{},
		progtest.ThatCommand().ExitsWith(2).WritesStderr("internal error: no suitable subprogram\n"),
		progtest.ThatCommand("supports", "html").
			ExitsWith(2).WritesStderr("internal error: no suitable subprogram\n"),
	)
}

func TestProgram_BadUsage(t *testing.T) {
	progtest.Test(t, Program{},
		progtest.ThatCommand("init", "-bogus").
			ExitsWith(2).WritesStderrContaining("flag provided but not defined: -bogus"),
		progtest.ThatCommand("init", "extra").
			ExitsWith(2).WritesStderrContaining("init takes no arguments"),
	)
}

func TestNewToken(t *testing.T) {
	a := must.OK1(NewToken())
	b := must.OK1(NewToken())
	if len(a) != 32 {
		t.Errorf("got token of length %d, want 32", len(a))
	}
	if _, err := hex.DecodeString(a); err != nil {
		t.Errorf("token %q is not hex", a)
	}
	if a == b {
		t.Errorf("two tokens are equal: %q", a)
	}
}

func TestConfigSnippet(t *testing.T) {
	want := testutil.Dedent(`
		<!-- mdbook-nix-repl config -->
		<script>
		  window.NIX_REPL_ENDPOINT = "http://localhost:9000/";
		  window.NIX_REPL_TOKEN = "abc";
		</script>
		`)
	if got := ConfigSnippet("http://localhost:9000/", "abc"); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestPrinter_Color(t *testing.T) {
	var buf bytes.Buffer
	p := &printer{w: &buf, color: true}
	p.ok("fine")
	p.warn("careful")
	want := green + "✓" + reset + " fine\n" + yellow + "!" + reset + " careful\n"
	if got := buf.String(); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestClientJSMatchesWidget(t *testing.T) {
	for _, class := range []string{
		"nix-repl-block", "nix-repl-editor", "nix-repl-run", "nix-repl-status", "nix-repl-output",
		"X-Nix-Repl-Token", "NIX_REPL_ENDPOINT", "NIX_REPL_TOKEN",
	} {
		if !bytes.Contains(clientJS, []byte(class)) {
			t.Errorf("client script doesn't mention %q", class)
		}
	}
}
