package store

import (
	"os"
	"path/filepath"

	"src.nixrepl.dev/pkg/testutil"
)

// MustTempStore returns a Store backed by a temporary file. The Store is
// closed and the file removed when the test finishes.
func MustTempStore(c testutil.Cleanuper) DBStore {
	dir, err := os.MkdirTemp("", "nixrepl.test")
	if err != nil {
		panic(err)
	}
	st, err := NewStore(filepath.Join(dir, "db"))
	if err != nil {
		panic(err)
	}
	c.Cleanup(func() {
		st.Close()
		os.RemoveAll(dir)
	})
	return st
}
