// Package storedefs contains definitions of the store API.
//
// It is a separate package so that packages that only depend on the store API
// does not need to depend on the concrete implementation.
package storedefs

import (
	"errors"
	"time"
)

// ErrNoMatchingEval is the error returned when a query for an evaluation
// completes with no result.
var ErrNoMatchingEval = errors.New("no matching evaluation")

// Store is an interface satisfied by the storage service.
type Store interface {
	NextEvalSeq() (int, error)
	AddEval(e Eval) (int, error)
	Eval(seq int) (Eval, error)
	Evals(from, upto int) ([]Eval, error)
}

// Eval is an entry in the evaluation history. Exactly one of Stdout and
// Error is non-nil.
type Eval struct {
	Seq      int           `json:"-"`
	Time     time.Time     `json:"time"`
	Code     string        `json:"code"`
	Stdout   *string       `json:"stdout,omitempty"`
	Error    *string       `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}
