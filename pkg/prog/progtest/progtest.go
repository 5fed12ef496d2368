// Package progtest provides a framework for testing subprograms.
//
// A test case is built with ThatCommand and refined with chained methods:
//
//	progtest.Test(t, p,
//		progtest.ThatCommand("supports", "html").WritesStdout("true\n"),
//		progtest.ThatCommand("supports", "pdf").ExitsWith(1),
//	)
package progtest

import (
	"io"
	"os"
	"strings"
	"sync"
	"testing"

	"src.nixrepl.dev/pkg/must"
	"src.nixrepl.dev/pkg/prog"
)

// Case is a test case for Test.
type Case struct {
	args  []string
	stdin string
	want  result
}

type result struct {
	exitCode int
	stdout   output
	stderr   output
}

type output struct {
	content string
	partial bool
}

func (o output) String() string {
	if o.partial {
		return "text containing " + quote(o.content)
	}
	return quote(o.content)
}

// ThatCommand returns a new Case with the specified command-line arguments.
// The program name is prepended automatically.
//
// The new Case expects the program to exit with 0 and write nothing.
func ThatCommand(args ...string) Case {
	return Case{args: append([]string{"nixrepl"}, args...)}
}

// WithStdin returns an altered Case that feeds the given text to the program's
// stdin.
func (c Case) WithStdin(s string) Case {
	c.stdin = s
	return c
}

// DoesNothing returns c itself. It is useful to mark tests that otherwise
// don't have any expectations.
func (c Case) DoesNothing() Case {
	return c
}

// ExitsWith returns an altered Case that requires the program to exit with
// the given code.
func (c Case) ExitsWith(code int) Case {
	c.want.exitCode = code
	return c
}

// WritesStdout returns an altered Case that requires the program to write
// exactly the given text to stdout.
func (c Case) WritesStdout(s string) Case {
	c.want.stdout = output{s, false}
	return c
}

// WritesStdoutContaining returns an altered Case that requires the program to
// write output to stdout that contains the given text as a substring.
func (c Case) WritesStdoutContaining(s string) Case {
	c.want.stdout = output{s, true}
	return c
}

// WritesStderr returns an altered Case that requires the program to write
// exactly the given text to stderr.
func (c Case) WritesStderr(s string) Case {
	c.want.stderr = output{s, false}
	return c
}

// WritesStderrContaining returns an altered Case that requires the program to
// write output to stderr that contains the given text as a substring.
func (c Case) WritesStderrContaining(s string) Case {
	c.want.stderr = output{s, true}
	return c
}

// Test runs test cases against a given program.
func Test(t *testing.T, p prog.Program, cases ...Case) {
	t.Helper()
	for _, c := range cases {
		t.Run(strings.Join(c.args[1:], " "), func(t *testing.T) {
			t.Helper()
			exit, stdout, stderr := Run(p, c.stdin, c.args...)
			if exit != c.want.exitCode {
				t.Errorf("got exit code %v, want %v", exit, c.want.exitCode)
			}
			if !matchOutput(stdout, c.want.stdout) {
				t.Errorf("got stdout %q, want %s", stdout, c.want.stdout)
			}
			if !matchOutput(stderr, c.want.stderr) {
				t.Errorf("got stderr %q, want %s", stderr, c.want.stderr)
			}
		})
	}
}

// Run runs a Program with the given stdin and arguments, and returns its exit
// code and the contents of stdout and stderr. Output is collected
// concurrently, so programs writing more than a pipe buffer don't deadlock.
func Run(p prog.Program, stdin string, args ...string) (int, string, string) {
	r0, w0 := must.Pipe()
	r1, w1 := must.Pipe()
	r2, w2 := must.Pipe()

	var wg sync.WaitGroup
	var stdout, stderr []byte
	wg.Add(3)
	go func() {
		io.WriteString(w0, stdin)
		w0.Close()
		wg.Done()
	}()
	go func() {
		stdout = must.ReadAllAndClose(r1)
		wg.Done()
	}()
	go func() {
		stderr = must.ReadAllAndClose(r2)
		wg.Done()
	}()

	exit := prog.Run([3]*os.File{r0, w1, w2}, args, p)
	w1.Close()
	w2.Close()
	wg.Wait()
	r0.Close()
	return exit, string(stdout), string(stderr)
}

func matchOutput(got string, want output) bool {
	if want.partial {
		return strings.Contains(got, want.content)
	}
	return got == want.content
}

func quote(s string) string {
	if s == "" {
		return "empty"
	}
	return `"` + strings.ReplaceAll(s, "\n", `\n`) + `"`
}
