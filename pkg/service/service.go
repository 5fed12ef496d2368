// Package service implements the evaluation service independently of any
// transport.
//
// A Request carries a snippet of code; a Response carries either the output
// of evaluating it or an error message, never both. Evaluation failures are
// ordinary responses: only transports decide what counts as a malformed
// request.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"src.nixrepl.dev/pkg/evaluator"
	"src.nixrepl.dev/pkg/logutil"
	"src.nixrepl.dev/pkg/store/storedefs"
)

var logger = logutil.GetLogger("[service] ")

// Request is an evaluation request.
type Request struct {
	Code string `json:"code"`
}

// Response is an evaluation response. Exactly one of Stdout and Error is
// non-nil; an empty Stdout is a successful evaluation with no output.
type Response struct {
	Stdout *string `json:"stdout,omitempty"`
	Error  *string `json:"error,omitempty"`
}

// FallbackJSON is written in place of a Response that can't be serialized.
const FallbackJSON = `{"error":"internal serialization error"}`

// ErrInvalidRequest is returned by DecodeRequest for malformed requests.
var ErrInvalidRequest = errors.New("invalid request")

// DecodeRequest decodes a JSON-encoded Request. The "code" field must be
// present and be a string; other fields are ignored.
func DecodeRequest(data []byte) (Request, error) {
	var raw struct {
		Code *string `json:"code"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return Request{}, ErrInvalidRequest
	}
	if raw.Code == nil {
		return Request{}, ErrInvalidRequest
	}
	return Request{Code: *raw.Code}, nil
}

var marshal = json.Marshal

// JSON returns the JSON encoding of r, or FallbackJSON if r can't be
// encoded.
func (r Response) JSON() []byte {
	data, err := marshal(r)
	if err != nil {
		logger.Println("cannot marshal response:", err)
		return []byte(FallbackJSON)
	}
	return data
}

// Service evaluates requests.
type Service struct {
	Evaluator evaluator.Evaluator
	// If not nil, every evaluation is recorded.
	Store storedefs.Store
}

// Eval evaluates the code in req. It always returns a valid Response.
func (s *Service) Eval(ctx context.Context, req Request) Response {
	start := time.Now()
	out, err := s.Evaluator.Evaluate(ctx, req.Code)
	duration := time.Since(start)

	var resp Response
	if err != nil {
		msg := err.Error()
		resp.Error = &msg
		logger.Printf("evaluation of %d bytes failed after %v: %v",
			len(req.Code), duration, firstLine(msg))
	} else {
		resp.Stdout = &out
		logger.Printf("evaluation of %d bytes succeeded after %v", len(req.Code), duration)
	}

	if s.Store != nil {
		seq, err := s.Store.AddEval(storedefs.Eval{
			Time: start, Code: req.Code,
			Stdout: resp.Stdout, Error: resp.Error, Duration: duration})
		if err != nil {
			logger.Println("cannot record evaluation:", err)
		} else {
			logger.Println("recorded evaluation", seq)
		}
	}
	return resp
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
