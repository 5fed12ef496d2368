// Package evaluator runs snippets of Nix code.
//
// The Evaluator interface is the only thing the evaluation service knows
// about; Command implements it by running an external program once per
// evaluation.
package evaluator

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Evaluator evaluates code. On success it returns the output of the
// evaluation. Otherwise it returns an error whose message is suitable to be
// shown to the user: an *ExitError, a *LaunchError, a *TimeoutError, or the
// error of a canceled context.
type Evaluator interface {
	Evaluate(ctx context.Context, code string) (string, error)
}

// Func adapts an ordinary function to an Evaluator.
type Func func(ctx context.Context, code string) (string, error)

// Evaluate calls f(ctx, code).
func (f Func) Evaluate(ctx context.Context, code string) (string, error) {
	return f(ctx, code)
}

// ExitError is returned when the evaluator exits with a non-zero status.
type ExitError struct {
	Code   int
	Stderr string
}

// Error returns the diagnostic output of the evaluator, or a message with the
// exit status if there was none.
func (e *ExitError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Stderr
}

// LaunchError is returned when the evaluator can't be run at all.
type LaunchError struct {
	Name string
	Err  error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("failed to run %s: %v", e.Name, e.Err)
}

func (e *LaunchError) Unwrap() error { return e.Err }

// TimeoutError is returned when the evaluator runs longer than allowed.
type TimeoutError struct {
	Limit time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("execution timed out (%v limit)", e.Limit)
}

// IsEvaluationFailure reports whether err describes a failure of the
// evaluated code or its evaluator, as opposed to a canceled request.
func IsEvaluationFailure(err error) bool {
	var (
		exitErr    *ExitError
		launchErr  *LaunchError
		timeoutErr *TimeoutError
	)
	return errors.As(err, &exitErr) || errors.As(err, &launchErr) ||
		errors.As(err, &timeoutErr)
}
