// Package ping intercepts status responses on their way out of a connection
// and lets registered listeners inspect, rewrite or cancel them.
package ping

import (
	"sync/atomic"

	pk "github.com/Tnze/go-mc/net/packet"

	"github.com/go-mclib/pingapi/pkg/reply"
	"github.com/go-mclib/pingapi/pkg/status"
)

// Event is fired once per status response written on a connection.
// Both cancellation flags may be flipped by any listener; the interceptor
// reads them only after every listener has returned. The pong flag may also
// be changed later by an animation running on another goroutine.
type Event struct {
	reply   *reply.Reply
	adapter status.Adapter

	cancelled     atomic.Bool
	pongCancelled atomic.Bool
}

// NewEvent wraps r. The adapter is used by NewPacket to build follow-up
// responses for the same connection.
func NewEvent(r *reply.Reply, adapter status.Adapter) *Event {
	return &Event{reply: r, adapter: adapter}
}

// Reply returns the mutable reply that will be re-encoded unless the event is cancelled.
func (e *Event) Reply() *reply.Reply { return e.reply }

// Conn returns the connection the status response is being written to.
func (e *Event) Conn() reply.Conn { return e.reply.Conn() }

// Adapter returns the protocol adapter selected for the connection.
func (e *Event) Adapter() status.Adapter { return e.adapter }

// Cancel suppresses the status response for this write entirely.
func (e *Event) Cancel(cancel bool) { e.cancelled.Store(cancel) }

func (e *Event) IsCancelled() bool { return e.cancelled.Load() }

// CancelPong suppresses the pong that follows this status response.
func (e *Event) CancelPong(cancel bool) { e.pongCancelled.Store(cancel) }

func (e *Event) IsPongCancelled() bool { return e.pongCancelled.Load() }

// NewPacket encodes r with the connection's adapter. The packet is not sent.
func (e *Event) NewPacket(r *reply.Reply) (pk.Packet, error) {
	return e.adapter.Encode(r)
}
