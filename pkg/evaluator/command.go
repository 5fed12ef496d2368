package evaluator

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"path/filepath"
	"time"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"src.nixrepl.dev/pkg/logutil"
)

var logger = logutil.GetLogger("[evaluator] ")

// DefaultPath and DefaultArgs make up the default evaluator command line. The
// code is appended as the last argument.
var (
	DefaultPath = "nix"
	DefaultArgs = []string{"eval", "--raw", "--expr"}
)

// Command is an Evaluator that runs an external program for each
// evaluation, passing the code as its last argument. Its stdin is empty; its
// stdout and stderr are captured separately.
type Command struct {
	// Path of the program; looked up in PATH if it contains no slashes.
	Path string
	// Arguments passed before the code.
	Args []string
	// Environment of the program; nil means the environment of the current
	// process.
	Env []string
	// If positive, the program is killed after running for this long.
	Timeout time.Duration
	// If positive, stdout and stderr are truncated to at most this many
	// bytes, without splitting a character.
	MaxOutput int
}

// NewCommand returns a Command running "nix eval --raw --expr <code>".
func NewCommand() *Command {
	return &Command{Path: DefaultPath, Args: append([]string(nil), DefaultArgs...)}
}

// Evaluate implements Evaluator.
func (c *Command) Evaluate(ctx context.Context, code string) (string, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	args := append(append([]string(nil), c.Args...), code)
	cmd := exec.Command(c.Path, args...)
	cmd.Env = c.Env
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	// Put the evaluator into its own process group so that it can be killed
	// together with anything it spawns.
	setProcessGroup(cmd)

	name := filepath.Base(c.Path)
	if err := cmd.Start(); err != nil {
		return "", &LaunchError{name, err}
	}
	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	var err error
	select {
	case <-ctx.Done():
		if killErr := killProcessGroup(cmd); killErr != nil {
			logger.Printf("kill %s (pid %d): %v", name, cmd.Process.Pid, killErr)
		}
		<-done
		if errors.Is(ctx.Err(), context.DeadlineExceeded) && c.Timeout > 0 {
			return "", &TimeoutError{c.Timeout}
		}
		return "", ctx.Err()
	case err = <-done:
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", &ExitError{exitErr.ExitCode(), c.decode(stderr.Bytes())}
		}
		return "", &LaunchError{name, err}
	}
	return c.decode(stdout.Bytes()), nil
}

// Decodes output as UTF-8, replacing invalid sequences with U+FFFD, and
// truncates it to at most c.MaxOutput bytes.
func (c *Command) decode(p []byte) string {
	s, err := unicode.UTF8.NewDecoder().Bytes(p)
	if err != nil {
		// The UTF-8 decoder replaces invalid input instead of failing.
		s = p
	}
	return truncate(string(s), c.MaxOutput)
}

func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	i := max
	for i > 0 && !utf8.RuneStart(s[i]) {
		i--
	}
	return s[:i]
}
