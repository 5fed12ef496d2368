// Package rpc serves evaluation requests as JSON-RPC 2.0 calls, for editors
// and tools that would rather talk to a child process than to an HTTP
// server.
//
// Messages are framed with Content-Length headers. The only method is
// "eval", whose params and result are the same objects as the body of an
// HTTP request and response.
package rpc

import (
	"context"
	"encoding/json"
	"io"
	"os"

	"github.com/sourcegraph/jsonrpc2"
	"src.nixrepl.dev/pkg/errutil"
	"src.nixrepl.dev/pkg/logutil"
	"src.nixrepl.dev/pkg/service"
)

var logger = logutil.GetLogger("[rpc] ")

// MethodEval is the name of the evaluation method.
const MethodEval = "eval"

var (
	errMethodNotFound = &jsonrpc2.Error{
		Code: jsonrpc2.CodeMethodNotFound, Message: "method not found"}
	errInvalidParams = &jsonrpc2.Error{
		Code: jsonrpc2.CodeInvalidParams, Message: "invalid params"}
)

// ServeConn serves requests on rwc until the peer disconnects or ctx is
// canceled.
func ServeConn(ctx context.Context, rwc io.ReadWriteCloser, svc *service.Service) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	conn := jsonrpc2.NewConn(ctx,
		jsonrpc2.NewBufferedStream(rwc, jsonrpc2.VSCodeObjectCodec{}),
		Handler(svc))
	logger.Println("serving JSON-RPC")
	select {
	case <-conn.DisconnectNotify():
		logger.Println("peer disconnected")
	case <-ctx.Done():
		conn.Close()
	}
	return nil
}

// Handler returns a jsonrpc2.Handler that dispatches calls to svc. Calls
// are handled concurrently.
func Handler(svc *service.Service) jsonrpc2.Handler {
	return jsonrpc2.AsyncHandler(routingHandler(map[string]method{
		MethodEval: evalMethod(svc),
	}))
}

type method func(context.Context, json.RawMessage) (any, error)

func routingHandler(methods map[string]method) jsonrpc2.Handler {
	return jsonrpc2.HandlerWithError(func(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (any, error) {
		fn, ok := methods[req.Method]
		if !ok {
			return nil, errMethodNotFound
		}
		if req.Params == nil {
			return nil, errInvalidParams
		}
		return fn(ctx, *req.Params)
	})
}

func evalMethod(svc *service.Service) method {
	return func(ctx context.Context, rawParams json.RawMessage) (any, error) {
		req, err := service.DecodeRequest(rawParams)
		if err != nil {
			return nil, errInvalidParams
		}
		return svc.Eval(ctx, req), nil
	}
}

// NewTransport returns an io.ReadWriteCloser that reads from in and writes
// to out.
func NewTransport(in, out *os.File) io.ReadWriteCloser {
	return transport{in, out}
}

type transport struct{ in, out *os.File }

func (c transport) Read(p []byte) (int, error)  { return c.in.Read(p) }
func (c transport) Write(p []byte) (int, error) { return c.out.Write(p) }

func (c transport) Close() error {
	return errutil.Multi(c.in.Close(), c.out.Close())
}
