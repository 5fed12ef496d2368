// Package storetest keeps test suites against storedefs.Store.
package storetest

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"src.nixrepl.dev/pkg/store/storedefs"
)

func strPtr(s string) *string { return &s }

var evals = []storedefs.Eval{
	{Time: time.Unix(100, 0).UTC(), Code: "1+1", Stdout: strPtr("2"), Duration: time.Millisecond},
	{Time: time.Unix(200, 0).UTC(), Code: "bogus", Error: strPtr("error: undefined variable")},
	{Time: time.Unix(300, 0).UTC(), Code: `""`, Stdout: strPtr("")},
}

// TestEval tests the evaluation history functionality of a Store.
func TestEval(t *testing.T, store storedefs.Store) {
	startSeq, err := store.NextEvalSeq()
	if startSeq != 1 || err != nil {
		t.Errorf("store.NextEvalSeq() -> %v, %v, want 1, nil", startSeq, err)
	}

	// AddEval
	for i, e := range evals {
		wantSeq := startSeq + i
		seq, err := store.AddEval(e)
		if seq != wantSeq || err != nil {
			t.Errorf("store.AddEval(%q) -> %v, %v, want %v, nil",
				e.Code, seq, err, wantSeq)
		}
	}

	endSeq, err := store.NextEvalSeq()
	wantEndSeq := startSeq + len(evals)
	if endSeq != wantEndSeq || err != nil {
		t.Errorf("store.NextEvalSeq() -> %v, %v, want %v, nil",
			endSeq, err, wantEndSeq)
	}

	// Eval
	for i, want := range evals {
		want.Seq = startSeq + i
		got, err := store.Eval(want.Seq)
		if err != nil {
			t.Errorf("store.Eval(%v) -> error %v", want.Seq, err)
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("store.Eval(%v) diff (-want +got):\n%s", want.Seq, diff)
		}
	}
	if _, err := store.Eval(endSeq); err != storedefs.ErrNoMatchingEval {
		t.Errorf("store.Eval(%v) -> error %v, want ErrNoMatchingEval", endSeq, err)
	}

	// Evals
	got, err := store.Evals(startSeq+1, endSeq)
	if err != nil {
		t.Errorf("store.Evals -> error %v", err)
	}
	if len(got) != 2 || got[0].Code != "bogus" || got[1].Code != `""` {
		t.Errorf("store.Evals(%v, %v) -> %+v", startSeq+1, endSeq, got)
	}
	if got[1].Stdout == nil || *got[1].Stdout != "" || got[1].Error != nil {
		t.Errorf("empty stdout not preserved: %+v", got[1])
	}
}
