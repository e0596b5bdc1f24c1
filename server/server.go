// Package server wires the RESP3 framing core (resp3/wire, session) to a
// real net.Listener: a thin TCP accept loop assigning each connection its
// own session.Driver on its own goroutine, exactly the "external
// collaborator" role the framing core assumes rather than implements.
package server

import (
	"context"
	"net"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/ynachi/respcore/resp3"
	"github.com/ynachi/respcore/resp3/wire"
	"github.com/ynachi/respcore/session"
)

// Server accepts TCP connections on a net.Listener and assigns each a
// session.Driver running on its own goroutine.
type Server struct {
	listener net.Listener
	cfg      *Config
	trace    *Trace
}

// NewServer resolves cfg onto DefaultConfig, binds a listener on the
// resolved address, and starts the accept loop on its own goroutine. The
// Trace registered on ctx (NoOpTrace if none) instruments every connection
// the Server accepts.
func NewServer(ctx context.Context, cfg *Config) (*Server, error) {
	resolved, err := resolveConfig(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "resolve config")
	}

	listener, err := net.Listen("tcp", resolved.Address)
	if err != nil {
		return nil, errors.Wrap(err, "listen")
	}

	srv := &Server{listener: listener, cfg: resolved, trace: ContextTrace(ctx)}
	go srv.acceptConnections()
	return srv, nil
}

// Addr returns the address the Server is actually listening on, useful when
// Config.Address requested an ephemeral port.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Close stops accepting new connections. In-flight sessions drain
// independently: the core contract has no cancellation point inside a
// partially decoded frame.
func (s *Server) Close() error {
	return s.listener.Close()
}

func (s *Server) acceptConnections() {
	for {
		conn, err := s.listener.Accept()
		s.trace.Accepted(conn, err)
		if err != nil {
			return
		}
		go s.serve(conn)
	}
}

func (s *Server) serve(conn net.Conn) {
	defer conn.Close()

	id := uuid.New()
	s.trace.SessionStarted(id, conn)

	reader := wire.NewStreamReader(conn, wire.WithChunkSize(s.cfg.ChunkSize))
	decoder := wire.NewDecoder(reader)
	driver := session.NewDriver(reader, decoder)
	driver.SetMaxDepth(s.cfg.SessionMaxDepth)
	driver.TerminateOnInvalid = s.cfg.TerminateOnInvalid
	driver.OnError = func(err error) {
		s.trace.Error(id, "session", err)
	}
	driver.OnDecode = func(f resp3.Frame) {
		s.trace.FrameDecoded(id, f)
	}
	driver.OnEncode = func(f resp3.Frame) {
		s.trace.FrameEncoded(id, f)
	}

	err := driver.Run()
	s.trace.SessionEnded(id, err)
}
