// Package env keeps names of environment variables with special significance
// to nix-repl programs.
package env

// Environment variables with special significance to nix-repl programs.
//
// Note that some of these env vars may be significant only in special
// circumstances, such as when running unit tests.
const (
	NIX_REPL_TOKEN          = "NIX_REPL_TOKEN"
	NIXREPL_TEST_TIME_SCALE = "NIXREPL_TEST_TIME_SCALE"
	NO_COLOR                = "NO_COLOR"
	TERM                    = "TERM"
)
