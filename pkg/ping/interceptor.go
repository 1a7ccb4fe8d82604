package ping

import (
	"log"
	"os"
	"sync/atomic"

	pk "github.com/Tnze/go-mc/net/packet"

	"github.com/go-mclib/pingapi/pkg/reply"
	"github.com/go-mclib/pingapi/pkg/status"
)

// PacketWriter is one stage of a connection's outgoing path.
type PacketWriter interface {
	WritePacket(p pk.Packet) error
}

// Interceptor sits in front of a status-state connection's writer. Status
// responses are decoded, dispatched to the registry and re-encoded; pongs are
// dropped when the preceding event asked for it; anything else passes through.
//
// The connection must serialise calls to WritePacket so a pong is always
// judged against the event of the status response written before it.
type Interceptor struct {
	next     PacketWriter
	conn     reply.Conn
	adapter  status.Adapter
	registry *Registry

	Logger *log.Logger

	last atomic.Pointer[Event]
}

func NewInterceptor(next PacketWriter, conn reply.Conn, adapter status.Adapter, registry *Registry) *Interceptor {
	return &Interceptor{
		next:     next,
		conn:     conn,
		adapter:  adapter,
		registry: registry,
		Logger:   log.New(os.Stdout, "", log.LstdFlags),
	}
}

// LastEvent returns the event of the most recent status response, or nil.
func (i *Interceptor) LastEvent() *Event {
	return i.last.Load()
}

func (i *Interceptor) WritePacket(p pk.Packet) error {
	switch {
	case status.IsStatusResponse(p):
		return i.writeStatus(p)
	case status.IsPong(p):
		if e := i.last.Load(); e != nil && e.IsPongCancelled() {
			return nil
		}
	}
	return i.next.WritePacket(p)
}

func (i *Interceptor) writeStatus(p pk.Packet) error {
	r, err := i.adapter.Decode(p, i.conn)
	if err != nil {
		i.Logger.Printf("status adapter %s: decode: %v", i.adapter.Name(), err)
		return i.next.WritePacket(p)
	}

	e := NewEvent(r, i.adapter)
	if i.registry != nil {
		i.registry.Dispatch(e, i.Logger)
	}
	// stored even when cancelled: the pong decision reads its own flag
	i.last.Store(e)

	if e.IsCancelled() {
		return nil
	}
	out, err := i.adapter.Encode(r)
	if err != nil {
		i.Logger.Printf("status adapter %s: encode: %v", i.adapter.Name(), err)
		return i.next.WritePacket(p)
	}
	return i.next.WritePacket(out)
}
