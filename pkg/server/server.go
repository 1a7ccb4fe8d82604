// Package server answers Minecraft server list pings. Each status
// connection gets its own ping.Interceptor so registered listeners can rewrite
// the response before it reaches the client.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"

	mcnet "github.com/Tnze/go-mc/net"
	pk "github.com/Tnze/go-mc/net/packet"

	"github.com/go-mclib/pingapi/pkg/ping"
	"github.com/go-mclib/pingapi/pkg/reply"
	"github.com/go-mclib/pingapi/pkg/status"
)

// StatusFunc builds the response the host would send for a handshake,
// before any listener sees it.
type StatusFunc func(hs status.Handshake) *reply.Reply

// Stats is a snapshot of server counters.
type Stats struct {
	Active   int64
	Served   int64
	Rejected int64
}

type Server struct {
	Addr     string
	Registry *ping.Registry
	Status   StatusFunc

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Verbose      bool
	Logger       *log.Logger

	active   atomic.Int64
	served   atomic.Int64
	rejected atomic.Int64

	mu       sync.Mutex
	listener net.Listener
	conns    map[*Conn]struct{}
}

// New creates a server. Register listeners on registry before serving.
func New(addr string, registry *ping.Registry, statusFunc StatusFunc) *Server {
	return &Server{
		Addr:         addr,
		Registry:     registry,
		Status:       statusFunc,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 10 * time.Second,
		Logger:       log.New(os.Stdout, "", log.LstdFlags),
		conns:        make(map[*Conn]struct{}),
	}
}

// ListenAndServe listens on s.Addr and serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done. It always returns a
// non-nil error; context.Canceled after a normal shutdown.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()
	s.Logger.Printf("listening on %s", ln.Addr())

	go func() {
		<-ctx.Done()
		_ = ln.Close()
		s.closeAll()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}
			s.Logger.Printf("accept error: %v", err)
			continue
		}
		go s.ServeConn(conn)
	}
}

// ListenAddr returns the bound address, or the configured one before Serve.
func (s *Server) ListenAddr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.Addr
}

func (s *Server) Stats() Stats {
	return Stats{
		Active:   s.active.Load(),
		Served:   s.served.Load(),
		Rejected: s.rejected.Load(),
	}
}

// ServeConn runs the handshake and status exchange on socket and closes it
// when the client leaves.
func (s *Server) ServeConn(socket net.Conn) {
	defer socket.Close()
	mc := mcnet.WrapConn(socket)

	var p pk.Packet
	s.setReadDeadline(socket)
	if err := mc.ReadPacket(&p); err != nil {
		s.debugf("read handshake from %s: %v", socket.RemoteAddr(), err)
		return
	}
	hs, err := status.UnmarshalHandshake(p)
	if err != nil {
		s.debugf("bad handshake from %s: %v", socket.RemoteAddr(), err)
		s.rejected.Add(1)
		return
	}
	if hs.Intent != status.IntentStatus {
		s.debugf("rejecting intent %d from %s", hs.Intent, socket.RemoteAddr())
		s.rejected.Add(1)
		return
	}

	c := newConn(mc, socket, status.ForProtocol(int(hs.ProtocolVersion)), s)
	s.track(c)
	defer s.untrack(c)

	if err := s.statusLoop(c, mc, hs); err != nil && !errors.Is(err, io.EOF) {
		s.debugf("status connection %s: %v", socket.RemoteAddr(), err)
	}
}

func (s *Server) statusLoop(c *Conn, mc *mcnet.Conn, hs status.Handshake) error {
	var p pk.Packet
	for {
		s.setReadDeadline(c.socket)
		if err := mc.ReadPacket(&p); err != nil {
			return err
		}
		switch p.ID {
		case status.StatusRequestID:
			if err := s.writeStatus(c, hs); err != nil {
				return err
			}
		case status.PingRequestID:
			token, err := status.UnmarshalPingToken(p)
			if err != nil {
				return err
			}
			if err := c.WritePacket(status.MarshalPong(token)); err != nil {
				return err
			}
		default:
			return fmt.Errorf("%w: 0x%02x in status state", status.ErrUnexpectedPacket, p.ID)
		}
	}
}

func (s *Server) writeStatus(c *Conn, hs status.Handshake) error {
	var r *reply.Reply
	if s.Status != nil {
		r = s.Status(hs)
	}
	if r == nil {
		r = reply.New(c)
	}
	r.SetConn(c)

	p, err := c.Adapter().Encode(r)
	if err != nil {
		return err
	}
	if err := c.WritePacket(p); err != nil {
		return err
	}
	s.served.Add(1)
	return nil
}

func (s *Server) setReadDeadline(socket net.Conn) {
	if s.ReadTimeout > 0 {
		_ = socket.SetReadDeadline(time.Now().Add(s.ReadTimeout))
	}
}

func (s *Server) track(c *Conn) {
	s.mu.Lock()
	if s.conns == nil {
		s.conns = make(map[*Conn]struct{})
	}
	s.conns[c] = struct{}{}
	s.mu.Unlock()
	s.active.Add(1)
}

func (s *Server) untrack(c *Conn) {
	_ = c.Close()
	s.mu.Lock()
	delete(s.conns, c)
	s.mu.Unlock()
	s.active.Add(-1)
}

func (s *Server) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.conns {
		_ = c.Close()
	}
}

func (s *Server) debugf(format string, args ...any) {
	if s.Verbose {
		s.Logger.Printf(format, args...)
	}
}
