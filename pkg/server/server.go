// Package server implements the HTTP evaluation service used by the widgets
// in a built book, and the subprogram that runs it.
//
// The service accepts POST requests with a JSON body {"code": "..."} on any
// path and replies with {"stdout": "..."} or {"error": "..."}. Requests that
// can't be evaluated at all are answered with a plain-text status.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"src.nixrepl.dev/pkg/logutil"
)

var logger = logutil.GetLogger("[server] ")

// ServeOpts keeps options that can be passed to Serve.
type ServeOpts struct {
	// If not nil, used instead of listening on the configured address.
	Listener net.Listener
	// If not nil, receives the address being listened on when the server
	// is ready to serve requests.
	Ready chan<- net.Addr
	// Causes the server to shut down if closed or sent any data. If nil,
	// Serve will set up its own signal channel by listening to SIGINT and
	// SIGTERM.
	Signals <-chan os.Signal
}

const shutdownTimeout = 5 * time.Second

// Serve serves evaluation requests with the given handler until a signal
// is received, then waits for in-flight requests to finish.
func Serve(cfg Config, h http.Handler, opts ServeOpts) error {
	listener := opts.Listener
	if listener == nil {
		var err error
		listener, err = net.Listen("tcp", cfg.ListenAddr())
		if err != nil {
			return err
		}
	}
	logger.Println("listening on", listener.Addr())

	srv := &http.Server{Handler: h, ReadHeaderTimeout: 10 * time.Second}
	serveErrCh := make(chan error, 1)
	go func() { serveErrCh <- srv.Serve(listener) }()

	sigCh := opts.Signals
	if sigCh == nil {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGTERM, syscall.SIGINT)
		defer signal.Stop(ch)
		sigCh = ch
	}
	if opts.Ready != nil {
		opts.Ready <- listener.Addr()
	}

	select {
	case sig := <-sigCh:
		logger.Printf("received signal %v, shutting down", sig)
	case err := <-serveErrCh:
		logger.Println("could not serve:", err)
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Println("failed to shut down gracefully:", err)
		return err
	}
	if err := <-serveErrCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
