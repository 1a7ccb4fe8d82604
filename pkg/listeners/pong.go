package listeners

import (
	"sync/atomic"

	"github.com/go-mclib/pingapi/pkg/ping"
)

// PongBlocker cancels the pong after every status response while enabled,
// leaving clients on "Pinging..." with the response shown.
type PongBlocker struct {
	enabled atomic.Bool
}

func NewPongBlocker(enabled bool) *PongBlocker {
	b := &PongBlocker{}
	b.enabled.Store(enabled)
	return b
}

func (b *PongBlocker) SetEnabled(on bool) { b.enabled.Store(on) }

func (b *PongBlocker) Enabled() bool { return b.enabled.Load() }

func (b *PongBlocker) OnPing(e *ping.Event) {
	if b.Enabled() {
		e.CancelPong(true)
	}
}
