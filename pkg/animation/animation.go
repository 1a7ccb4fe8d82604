// Package animation resends a status response on a timer, cycling its MOTD
// (and optionally its version name) through a list of frames.
package animation

import (
	"errors"
	"log"
	"os"
	"sync"
	"time"

	pk "github.com/Tnze/go-mc/net/packet"

	"github.com/go-mclib/pingapi/pkg/ping"
	"github.com/go-mclib/pingapi/pkg/reply"
)

// DefaultTickDuration is the length of one server tick.
const DefaultTickDuration = 50 * time.Millisecond

// altColorChar is translated to § in frames before sending.
const altColorChar = '&'

var (
	ErrNoEvent        = errors.New("animation: nil event")
	ErrNoConn         = errors.New("animation: event has no connection")
	ErrEmptyFrames    = errors.New("animation: no motd frames")
	ErrInvalidSteps   = errors.New("animation: step limit must be positive")
	ErrInvalidPeriod  = errors.New("animation: period must be at least one tick")
	ErrAlreadyStarted = errors.New("animation: already started")
)

type State int32

const (
	Idle State = iota
	Running
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Stopped:
		return "stopped"
	}
	return "unknown"
}

// Scheduler creates animations and keeps track of the running ones.
type Scheduler struct {
	TickDuration time.Duration
	Logger       *log.Logger

	mu     sync.Mutex
	active map[*Animation]struct{}
}

func NewScheduler() *Scheduler {
	return &Scheduler{
		TickDuration: DefaultTickDuration,
		Logger:       log.New(os.Stdout, "", log.LstdFlags),
		active:       make(map[*Animation]struct{}),
	}
}

// Create prepares an animation of event's reply on conn (the event's own
// connection when conn is nil). steps bounds the number of sends;
// protocolFrames may be nil.
func (s *Scheduler) Create(conn reply.Conn, event *ping.Event, steps, periodTicks int, motdFrames, protocolFrames []string) (*Animation, error) {
	if event == nil {
		return nil, ErrNoEvent
	}
	if conn == nil {
		conn = event.Conn()
	}
	if conn == nil {
		return nil, ErrNoConn
	}
	if len(motdFrames) == 0 {
		return nil, ErrEmptyFrames
	}
	if steps <= 0 {
		return nil, ErrInvalidSteps
	}
	if periodTicks <= 0 {
		return nil, ErrInvalidPeriod
	}
	tick := s.TickDuration
	if tick <= 0 {
		tick = DefaultTickDuration
	}

	return &Animation{
		sched:    s,
		conn:     conn,
		event:    event,
		motd:     translateAll(motdFrames),
		protocol: translateAll(protocolFrames),
		steps:    steps,
		period:   time.Duration(periodTicks) * tick,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}, nil
}

func translateAll(frames []string) []string {
	if len(frames) == 0 {
		return nil
	}
	out := make([]string, len(frames))
	for i, f := range frames {
		out[i] = reply.TranslateColorCodes(altColorChar, f)
	}
	return out
}

// Running returns the number of animations currently running.
func (s *Scheduler) Running() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active)
}

// StopAll stops every running animation.
func (s *Scheduler) StopAll() {
	s.mu.Lock()
	running := make([]*Animation, 0, len(s.active))
	for a := range s.active {
		running = append(running, a)
	}
	s.mu.Unlock()

	for _, a := range running {
		a.Stop()
	}
}

func (s *Scheduler) track(a *Animation) {
	s.mu.Lock()
	s.active[a] = struct{}{}
	s.mu.Unlock()
}

func (s *Scheduler) untrack(a *Animation) {
	s.mu.Lock()
	delete(s.active, a)
	s.mu.Unlock()
}

func (s *Scheduler) logf(format string, args ...any) {
	if s.Logger != nil {
		s.Logger.Printf(format, args...)
	}
}

// Animation is a single Idle -> Running -> Stopped run. It keeps going when
// the client disconnects; only the step limit or Stop end it.
type Animation struct {
	sched    *Scheduler
	conn     reply.Conn
	event    *ping.Event
	motd     []string
	protocol []string
	steps    int
	period   time.Duration

	mu    sync.Mutex
	state State
	step  int

	stop chan struct{}
	done chan struct{}
}

// Start cancels the event's own response and pong, then sends the first
// frame immediately and one more every period.
func (a *Animation) Start() error {
	a.mu.Lock()
	if a.state != Idle {
		a.mu.Unlock()
		return ErrAlreadyStarted
	}
	a.event.Cancel(true)
	a.event.CancelPong(true)
	a.state = Running
	a.sched.track(a)
	a.mu.Unlock()

	go a.run()
	return nil
}

// Stop ends the animation without sending further frames. It does not wait
// for a send already in flight. Safe to call more than once.
func (a *Animation) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.finish()
}

// Done is closed once the animation is stopped.
func (a *Animation) Done() <-chan struct{} { return a.done }

func (a *Animation) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Step returns the number of frames sent so far.
func (a *Animation) Step() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.step
}

func (a *Animation) run() {
	ticker := time.NewTicker(a.period)
	defer ticker.Stop()

	for a.fire() {
		select {
		case <-a.stop:
			return
		case <-ticker.C:
		}
	}
}

// fire sends one frame and reports whether more remain. The send happens
// outside a.mu so Stop never waits on a stalled socket.
func (a *Animation) fire() bool {
	a.mu.Lock()
	if a.state != Running {
		a.mu.Unlock()
		return false
	}
	step := a.step
	p, err := a.frame(step)
	a.mu.Unlock()

	if err != nil {
		a.sched.logf("animation step %d: encode: %v", step, err)
	} else if err := a.conn.SendPacket(p); err != nil {
		a.sched.logf("animation step %d: send: %v", step, err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != Running {
		return false
	}
	a.step++
	if a.step >= a.steps {
		a.event.CancelPong(false)
		a.finish()
		return false
	}
	return true
}

func (a *Animation) frame(step int) (pk.Packet, error) {
	r := a.event.Reply().Clone()
	r.SetMOTD(a.motd[step%len(a.motd)])
	if len(a.protocol) > 0 {
		r.SetProtocolVersion(-1)
		r.SetProtocolName(a.protocol[step%len(a.protocol)])
	}
	return a.event.NewPacket(r)
}

// finish must be called with a.mu held.
func (a *Animation) finish() {
	if a.state == Stopped {
		return
	}
	wasRunning := a.state == Running
	a.state = Stopped
	close(a.stop)
	close(a.done)
	if wasRunning {
		a.sched.untrack(a)
	}
}
