package server

import (
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"time"

	mcnet "github.com/Tnze/go-mc/net"
	pk "github.com/Tnze/go-mc/net/packet"

	"github.com/go-mclib/pingapi/pkg/ping"
	"github.com/go-mclib/pingapi/pkg/status"
)

var ErrConnClosed = errors.New("connection closed")

// Conn is one status-state client connection. WritePacket goes through the
// ping interceptor; SendPacket writes straight to the socket. Conn satisfies
// reply.Conn, so it outlives the socket: once closed every send fails with
// ErrConnClosed.
type Conn struct {
	mc     *mcnet.Conn
	socket net.Conn

	adapter     status.Adapter
	interceptor *ping.Interceptor

	// pairMu keeps a status response and its pong in order through the
	// interceptor; sockMu serialises the actual socket writes.
	pairMu sync.Mutex
	sockMu sync.Mutex

	open         atomic.Bool
	WriteTimeout time.Duration
}

func newConn(mc *mcnet.Conn, socket net.Conn, adapter status.Adapter, s *Server) *Conn {
	c := &Conn{
		mc:           mc,
		socket:       socket,
		adapter:      adapter,
		WriteTimeout: s.WriteTimeout,
	}
	c.open.Store(true)
	c.interceptor = ping.NewInterceptor(socketWriter{c}, c, adapter, s.Registry)
	c.interceptor.Logger = s.Logger
	return c
}

type socketWriter struct{ c *Conn }

func (w socketWriter) WritePacket(p pk.Packet) error { return w.c.writeSocket(p) }

// WritePacket writes p through the interception stage.
func (c *Conn) WritePacket(p pk.Packet) error {
	if !c.IsOpen() {
		return ErrConnClosed
	}
	c.pairMu.Lock()
	defer c.pairMu.Unlock()
	return c.interceptor.WritePacket(p)
}

// SendPacket writes p directly, bypassing interception.
func (c *Conn) SendPacket(p pk.Packet) error {
	if !c.IsOpen() {
		return ErrConnClosed
	}
	return c.writeSocket(p)
}

func (c *Conn) writeSocket(p pk.Packet) error {
	c.sockMu.Lock()
	defer c.sockMu.Unlock()
	if c.WriteTimeout > 0 {
		_ = c.socket.SetWriteDeadline(time.Now().Add(c.WriteTimeout))
	}
	if err := c.mc.WritePacket(p); err != nil {
		c.open.Store(false)
		return err
	}
	return nil
}

func (c *Conn) IsOpen() bool { return c.open.Load() }

func (c *Conn) RemoteAddr() net.Addr { return c.socket.RemoteAddr() }

// Adapter returns the adapter chosen from the handshake's protocol version.
func (c *Conn) Adapter() status.Adapter { return c.adapter }

// LastEvent returns the ping event of the latest status response, or nil.
func (c *Conn) LastEvent() *ping.Event { return c.interceptor.LastEvent() }

func (c *Conn) Close() error {
	c.open.Store(false)
	return c.socket.Close()
}
