// Package remote exposes a Dispatcher over HTTP as a Connect service and
// provides the matching client, so a server object living on one Windows
// host can be driven from anywhere.
package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"connectrpc.com/connect"
	"github.com/tliron/commonlog"

	"github.com/chazu/oapi/bridge"
	"github.com/chazu/oapi/native"
	"github.com/chazu/oapi/wire"
)

// DispatchProcedure is the Connect procedure path of Dispatch.
const DispatchProcedure = "/oapi.v1.AutomationService/Dispatch"

// Server serves Dispatch for one target. It speaks the Connect, gRPC and
// gRPC-Web protocols on the same port.
type Server struct {
	target native.Dispatcher
	log    commonlog.Logger
	mux    *http.ServeMux
}

// NewServer creates a Server dispatching to target.
func NewServer(target native.Dispatcher) *Server {
	s := &Server{
		target: target,
		log:    commonlog.GetLogger("oapi.remote"),
		mux:    http.NewServeMux(),
	}
	path, handler := s.Handler()
	s.mux.Handle(path, handler)
	return s
}

// Handler returns the Dispatch procedure path and its handler, for mounting
// on another mux.
func (s *Server) Handler() (string, http.Handler) {
	return DispatchProcedure, connect.NewUnaryHandler(
		DispatchProcedure,
		s.dispatch,
		connect.WithCodec(cborCodec{}),
	)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is canceled. HTTP/2 is accepted
// without TLS so gRPC clients can connect.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	protocols := new(http.Protocols)
	protocols.SetHTTP1(true)
	protocols.SetUnencryptedHTTP2(true)
	srv := &http.Server{Addr: addr, Handler: s.mux, Protocols: protocols}

	go func() {
		<-ctx.Done()
		srv.Close()
	}()

	s.log.Noticef("listening on %s", addr)
	s.log.Infof("  Connect: http://%s%s", addr, DispatchProcedure)
	err := srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) dispatch(
	ctx context.Context,
	req *connect.Request[wire.Call],
) (*connect.Response[wire.Call], error) {
	call := req.Msg
	if call.Method == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("method is required"))
	}
	if err := wire.Normalize(call.In); err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, connect.NewError(connect.CodeCanceled, err)
	}

	slots := call.In
	code, err := s.target.Dispatch(call.Method, slots)
	if err != nil {
		s.log.Errorf("dispatch %s: %s", call.Method, err)
		if errors.Is(err, bridge.ErrNotLoaded) {
			return nil, connect.NewError(connect.CodeFailedPrecondition, err)
		}
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	s.log.Debugf("dispatch %s: %s", call.Method, code)
	return connect.NewResponse(&wire.Call{Method: call.Method, Code: code, Out: slots}), nil
}
