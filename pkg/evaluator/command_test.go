//go:build unix

package evaluator

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"
	"time"

	"src.nixrepl.dev/pkg/testutil"
)

// A fake evaluator: "sh -c SCRIPT CODE" runs SCRIPT with $0 set to the code.
func shell(script string) *Command {
	return &Command{Path: "sh", Args: []string{"-c", script}}
}

const fakeNix = `
case "$0" in
  1+1) printf 2 ;;
  empty) ;;
  bogus) printf 'error: undefined variable' >&2; exit 1 ;;
  silent-fail) exit 3 ;;
  invalid-utf8) printf 'a\377b' ;;
  *) printf '%s' "$0" ;;
esac
`

func requireShell(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestCommand_Success(t *testing.T) {
	requireShell(t)
	out, err := shell(fakeNix).Evaluate(context.Background(), "1+1")
	if out != "2" || err != nil {
		t.Errorf("got (%q, %v), want (\"2\", nil)", out, err)
	}
}

func TestCommand_EmptyOutputIsSuccess(t *testing.T) {
	requireShell(t)
	out, err := shell(fakeNix).Evaluate(context.Background(), "empty")
	if out != "" || err != nil {
		t.Errorf("got (%q, %v), want (\"\", nil)", out, err)
	}
}

func TestCommand_CodeIsSingleArgument(t *testing.T) {
	requireShell(t)
	code := `let x = "a b"; in x; $(touch pwned)`
	out, err := shell(fakeNix).Evaluate(context.Background(), code)
	if out != code || err != nil {
		t.Errorf("got (%q, %v), want (%q, nil)", out, err, code)
	}
}

func TestCommand_NonZeroExit(t *testing.T) {
	requireShell(t)
	_, err := shell(fakeNix).Evaluate(context.Background(), "bogus")
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("got error %v, want *ExitError", err)
	}
	if exitErr.Code != 1 || err.Error() != "error: undefined variable" {
		t.Errorf("got code %d message %q", exitErr.Code, err.Error())
	}
	if !IsEvaluationFailure(err) {
		t.Errorf("IsEvaluationFailure -> false, want true")
	}
}

func TestCommand_NonZeroExitWithoutStderr(t *testing.T) {
	requireShell(t)
	_, err := shell(fakeNix).Evaluate(context.Background(), "silent-fail")
	if err == nil || err.Error() != "exit status 3" {
		t.Errorf("got error %v, want exit status 3", err)
	}
}

func TestCommand_LaunchFailure(t *testing.T) {
	c := &Command{Path: "/nonexistent/nix", Args: DefaultArgs}
	_, err := c.Evaluate(context.Background(), "1+1")
	var launchErr *LaunchError
	if !errors.As(err, &launchErr) {
		t.Fatalf("got error %v, want *LaunchError", err)
	}
	if !strings.HasPrefix(err.Error(), "failed to run nix: ") {
		t.Errorf("got message %q", err.Error())
	}
}

func TestCommand_Timeout(t *testing.T) {
	requireShell(t)
	c := &Command{Path: "sh", Args: []string{"-c", "sleep 10"},
		Timeout: testutil.Scaled(50 * time.Millisecond)}
	start := time.Now()
	_, err := c.Evaluate(context.Background(), "x")
	var timeoutErr *TimeoutError
	if !errors.As(err, &timeoutErr) {
		t.Fatalf("got error %v, want *TimeoutError", err)
	}
	if elapsed := time.Since(start); elapsed > testutil.Scaled(5*time.Second) {
		t.Errorf("evaluation took %v after timeout", elapsed)
	}
	if !strings.HasPrefix(err.Error(), "execution timed out (") {
		t.Errorf("got message %q", err.Error())
	}
}

func TestCommand_Canceled(t *testing.T) {
	requireShell(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := &Command{Path: "sh", Args: []string{"-c", "sleep 10"}}
	_, err := c.Evaluate(ctx, "x")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("got error %v, want context.Canceled", err)
	}
	if IsEvaluationFailure(err) {
		t.Errorf("IsEvaluationFailure -> true, want false")
	}
}

func TestCommand_LossyDecoding(t *testing.T) {
	requireShell(t)
	out, err := shell(fakeNix).Evaluate(context.Background(), "invalid-utf8")
	if out != "a�b" || err != nil {
		t.Errorf("got (%q, %v), want (\"a\\uFFFDb\", nil)", out, err)
	}
}

func TestCommand_MaxOutput(t *testing.T) {
	requireShell(t)
	c := shell(fakeNix)
	// λ is two bytes; 7 bytes hold three of them and half of a fourth.
	c.MaxOutput = 7
	out, err := c.Evaluate(context.Background(), "λλλλλ")
	if out != "λλλ" || err != nil {
		t.Errorf("got (%q, %v), want (\"λλλ\", nil)", out, err)
	}
}

var truncateTests = []struct {
	s    string
	max  int
	want string
}{
	{"abc", 0, "abc"},
	{"abc", 5, "abc"},
	{"abc", 3, "abc"},
	{"abcd", 2, "ab"},
	{"αβγ", 1, ""},
	{"αβγ", 2, "α"},
	{"αβγ", 3, "α"},
	{"αβγ", 4, "αβ"},
	{"a€b", 3, "a"},
	{"a€b", 4, "a€"},
}

func TestTruncate(t *testing.T) {
	for _, test := range truncateTests {
		if got := truncate(test.s, test.max); got != test.want {
			t.Errorf("truncate(%q, %d) -> %q, want %q", test.s, test.max, got, test.want)
		}
	}
}

func TestNewCommand(t *testing.T) {
	c := NewCommand()
	if c.Path != "nix" || strings.Join(c.Args, " ") != "eval --raw --expr" {
		t.Errorf("got %q %q", c.Path, c.Args)
	}
	c.Args[0] = "changed"
	if DefaultArgs[0] != "eval" {
		t.Errorf("NewCommand shares DefaultArgs")
	}
}
