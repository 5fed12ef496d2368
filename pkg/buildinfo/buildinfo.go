// Package buildinfo contains build information.
//
// Build information should be set during compilation by passing
// -ldflags "-X src.nixrepl.dev/pkg/buildinfo.VersionSuffix=value" to "go
// build" or "go get".
package buildinfo

import (
	"encoding/json"
	"fmt"
	"os"
	"runtime"
	"runtime/debug"
	"strings"

	"src.nixrepl.dev/pkg/prog"
)

// VersionBase identifies the version of the tools. On development commits,
// it identifies the next release.
const VersionBase = "0.3.0"

// VersionSuffix is appended to VersionBase to build the full version string.
// It can be overridden when building; when empty, it is derived from the
// module information embedded by the Go toolchain.
var VersionSuffix = ""

// Type contains all the build information fields.
type Type struct {
	Version   string `json:"version"`
	GoVersion string `json:"goversion"`
}

// Value contains the full build information.
var Value = Type{
	Version:   VersionBase + versionSuffix(VersionSuffix, readBuildInfo()),
	GoVersion: runtime.Version(),
}

func readBuildInfo() *debug.BuildInfo {
	bi, _ := debug.ReadBuildInfo()
	return bi
}

func versionSuffix(override string, bi *debug.BuildInfo) string {
	if override != "" {
		return override
	}
	if bi == nil || bi.Main.Version == "" || bi.Main.Version == "(devel)" {
		return "-dev.unknown"
	}
	// Module versions look like "v0.3.0-dev.abcdef"; keep the part after
	// the base version.
	if _, suffix, ok := strings.Cut(bi.Main.Version, VersionBase); ok {
		return suffix
	}
	return "-dev.unknown"
}

// Program is the buildinfo subprogram.
type Program struct {
	version, buildinfo bool
	json               *bool
}

func (p *Program) RegisterFlags(fs *prog.FlagSet) {
	fs.BoolVar(&p.version, "version", false, "show version and quit")
	fs.BoolVar(&p.buildinfo, "buildinfo", false, "show build info and quit")
	p.json = fs.JSON()
}

func (p *Program) Run(fds [3]*os.File, _ []string) error {
	switch {
	case p.buildinfo:
		if *p.json {
			fmt.Fprintln(fds[1], mustToJSON(Value))
		} else {
			fmt.Fprintln(fds[1], "Version:", Value.Version)
			fmt.Fprintln(fds[1], "Go version:", Value.GoVersion)
		}
	case p.version:
		if *p.json {
			fmt.Fprintln(fds[1], mustToJSON(Value.Version))
		} else {
			fmt.Fprintln(fds[1], Value.Version)
		}
	default:
		return prog.ErrNextProgram
	}
	return nil
}

func mustToJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(b)
}
