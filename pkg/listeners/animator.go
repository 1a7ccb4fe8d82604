// Package listeners contains ready-made ping listeners used by pingapi-server.
package listeners

import (
	"log"
	"sync"
	"sync/atomic"

	"github.com/go-mclib/pingapi/pkg/animation"
	"github.com/go-mclib/pingapi/pkg/ping"
)

// Animator starts an animation on every ping while enabled. It should be
// registered after listeners that edit the reply, since frames are built
// from the reply as they leave it.
type Animator struct {
	Scheduler *animation.Scheduler
	Logger    *log.Logger

	enabled atomic.Bool

	mu             sync.RWMutex
	steps          int
	periodTicks    int
	motdFrames     []string
	protocolFrames []string
}

func NewAnimator(s *animation.Scheduler, steps, periodTicks int, motdFrames, protocolFrames []string) *Animator {
	a := &Animator{Scheduler: s, Logger: s.Logger}
	a.SetFrames(steps, periodTicks, motdFrames, protocolFrames)
	return a
}

func (a *Animator) SetEnabled(on bool) { a.enabled.Store(on) }

func (a *Animator) Enabled() bool { return a.enabled.Load() }

// SetFrames replaces the animation used for future pings.
func (a *Animator) SetFrames(steps, periodTicks int, motdFrames, protocolFrames []string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.steps = steps
	a.periodTicks = periodTicks
	a.motdFrames = append([]string(nil), motdFrames...)
	a.protocolFrames = append([]string(nil), protocolFrames...)
}

func (a *Animator) OnPing(e *ping.Event) {
	if !a.Enabled() {
		return
	}
	a.mu.RLock()
	anim, err := a.Scheduler.Create(nil, e, a.steps, a.periodTicks, a.motdFrames, a.protocolFrames)
	a.mu.RUnlock()
	if err != nil {
		a.logf("animator: create: %v", err)
		return
	}
	if err := anim.Start(); err != nil {
		a.logf("animator: start: %v", err)
	}
}

func (a *Animator) logf(format string, args ...any) {
	if a.Logger != nil {
		a.Logger.Printf(format, args...)
	}
}
