// Package pprof adds profiling support to the evaluation server.
package pprof

import (
	"fmt"
	"net"
	"net/http"
	httppprof "net/http/pprof"
	"os"
	"runtime/pprof"

	"src.nixrepl.dev/pkg/logutil"
	"src.nixrepl.dev/pkg/prog"
)

var logger = logutil.GetLogger("[pprof] ")

// Program adds support for the -cpuprofile, -allocsprofile and -pprof
// flags. It never runs by itself; the profiles are written when the
// subprogram that does run finishes.
type Program struct {
	cpuProfile    string
	allocsProfile string
	debugAddr     string
}

func (p *Program) RegisterFlags(f *prog.FlagSet) {
	f.StringVar(&p.cpuProfile, "cpuprofile", "", "write CPU profile to file")
	f.StringVar(&p.allocsProfile, "allocsprofile", "", "write memory allocation profile to file")
	f.StringVar(&p.debugAddr, "pprof", "", "serve live profiles under /debug/pprof/ on this address")
}

func (p *Program) Run(fds [3]*os.File, _ []string) error {
	var cleanups []func([3]*os.File)
	if p.cpuProfile != "" {
		f, err := os.Create(p.cpuProfile)
		if err != nil {
			fmt.Fprintln(fds[2], "Warning: cannot create CPU profile:", err)
			fmt.Fprintln(fds[2], "Continuing without CPU profiling.")
		} else {
			pprof.StartCPUProfile(f)
			cleanups = append(cleanups, func([3]*os.File) {
				pprof.StopCPUProfile()
				f.Close()
			})
		}
	}
	if p.allocsProfile != "" {
		f, err := os.Create(p.allocsProfile)
		if err != nil {
			fmt.Fprintln(fds[2], "Warning: cannot create memory allocation profile:", err)
			fmt.Fprintln(fds[2], "Continuing without memory allocation profiling.")
		} else {
			cleanups = append(cleanups, func([3]*os.File) {
				pprof.Lookup("allocs").WriteTo(f, 0)
				f.Close()
			})
		}
	}
	if p.debugAddr != "" {
		l, err := net.Listen("tcp", p.debugAddr)
		if err != nil {
			fmt.Fprintln(fds[2], "Warning: cannot serve live profiles:", err)
		} else {
			srv := &http.Server{Handler: DebugMux()}
			logger.Println("serving live profiles on", l.Addr())
			go srv.Serve(l)
			cleanups = append(cleanups, func([3]*os.File) { srv.Close() })
		}
	}
	return prog.NextProgram(cleanups...)
}

// The handlers net/http/pprof registers on http.DefaultServeMux, on a mux
// of their own.
func DebugMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", httppprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", httppprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", httppprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", httppprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", httppprof.Trace)
	return mux
}
