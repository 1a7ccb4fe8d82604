package animation

import (
	"errors"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	pk "github.com/Tnze/go-mc/net/packet"

	"github.com/go-mclib/pingapi/pkg/ping"
	"github.com/go-mclib/pingapi/pkg/reply"
	"github.com/go-mclib/pingapi/pkg/status"
)

// fakeConn records every send together with the event's pong flag at that moment.
type fakeConn struct {
	mu        sync.Mutex
	event     *ping.Event
	sent      []pk.Packet
	pongFlags []bool
	attempts  int
	closeAt   int // sends from this attempt on fail; 0 disables
	notify    chan struct{}
}

func newFakeConn() *fakeConn {
	return &fakeConn{notify: make(chan struct{}, 64)}
}

func (c *fakeConn) SendPacket(p pk.Packet) error {
	c.mu.Lock()
	defer func() {
		c.mu.Unlock()
		c.notify <- struct{}{}
	}()
	c.attempts++
	if c.closeAt > 0 && c.attempts >= c.closeAt {
		return errors.New("use of closed network connection")
	}
	c.sent = append(c.sent, p)
	if c.event != nil {
		c.pongFlags = append(c.pongFlags, c.event.IsPongCancelled())
	}
	return nil
}

func (c *fakeConn) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeAt == 0 || c.attempts < c.closeAt
}

func (c *fakeConn) motds(t *testing.T) []string {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.sent))
	for i, p := range c.sent {
		r, err := status.Legacy.Decode(p, nil)
		if err != nil {
			t.Fatalf("decode sent packet %d: %v", i, err)
		}
		out[i] = r.MOTD()
	}
	return out
}

func newEvent(conn reply.Conn) *ping.Event {
	r := reply.New(conn)
	r.SetMOTD("base")
	r.SetOnlinePlayers(5)
	r.SetMaxPlayers(50)
	r.SetProtocolVersion(47)
	r.SetProtocolName("1.8.9")
	r.SetPlayerSample([]string{"steve"})
	return ping.NewEvent(r, status.Legacy)
}

func testScheduler() *Scheduler {
	s := NewScheduler()
	s.TickDuration = time.Millisecond
	s.Logger = log.New(io.Discard, "", 0)
	return s
}

func waitDone(t *testing.T, a *Animation) {
	t.Helper()
	select {
	case <-a.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("animation did not finish")
	}
}

func TestScenarioCyclesFrames(t *testing.T) {
	conn := newFakeConn()
	event := newEvent(conn)
	s := testScheduler()

	a, err := s.Create(nil, event, 4, 1, []string{"A", "B", "C"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := a.Start(); err != nil {
		t.Fatal(err)
	}
	waitDone(t, a)

	got := conn.motds(t)
	want := []string{"A", "B", "C", "A"}
	if len(got) != len(want) {
		t.Fatalf("sent %d frames, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("frame %d = %q, want %q", i, got[i], want[i])
		}
	}
	if a.State() != Stopped {
		t.Errorf("State() = %v, want stopped", a.State())
	}
}

func TestStepLimitAndPongFlag(t *testing.T) {
	conn := newFakeConn()
	event := newEvent(conn)
	conn.event = event
	s := testScheduler()

	a, err := s.Create(conn, event, 5, 1, []string{"x", "y"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := a.Start(); err != nil {
		t.Fatal(err)
	}
	if !event.IsCancelled() {
		t.Error("Start() did not cancel the event's own response")
	}
	waitDone(t, a)

	conn.mu.Lock()
	flags := append([]bool(nil), conn.pongFlags...)
	conn.mu.Unlock()
	if len(flags) != 5 {
		t.Fatalf("sent %d frames, want 5", len(flags))
	}
	for i, f := range flags {
		if !f {
			t.Errorf("pong flag during send %d = false, want true", i)
		}
	}
	if event.IsPongCancelled() {
		t.Error("pong flag still set after the last step")
	}
	if a.Step() != 5 {
		t.Errorf("Step() = %d, want 5", a.Step())
	}
	if s.Running() != 0 {
		t.Errorf("Running() = %d, want 0", s.Running())
	}
}

func TestProtocolFramesOverrideVersion(t *testing.T) {
	conn := newFakeConn()
	event := newEvent(conn)
	a, err := testScheduler().Create(conn, event, 3, 1, []string{"&aM"}, []string{"&cP1", "P2"})
	if err != nil {
		t.Fatal(err)
	}
	_ = a.Start()
	waitDone(t, a)

	conn.mu.Lock()
	sent := append([]pk.Packet(nil), conn.sent...)
	conn.mu.Unlock()

	wantNames := []string{"§cP1", "P2", "§cP1"}
	for i, p := range sent {
		r, err := status.Legacy.Decode(p, nil)
		if err != nil {
			t.Fatal(err)
		}
		if r.ProtocolVersion() != -1 {
			t.Errorf("frame %d protocol = %d, want -1", i, r.ProtocolVersion())
		}
		if r.ProtocolName() != wantNames[i] {
			t.Errorf("frame %d protocol name = %q, want %q", i, r.ProtocolName(), wantNames[i])
		}
		if r.MOTD() != "§aM" {
			t.Errorf("frame %d motd = %q, want %q", i, r.MOTD(), "§aM")
		}
		if r.OnlinePlayers() != 5 || len(r.PlayerSample()) != 1 {
			t.Errorf("frame %d lost base fields", i)
		}
	}
	if event.Reply().ProtocolVersion() != 47 || event.Reply().MOTD() != "base" {
		t.Error("animation mutated the event's reply instead of a copy")
	}
}

func TestContinuesAfterDisconnect(t *testing.T) {
	conn := newFakeConn()
	conn.closeAt = 3
	event := newEvent(conn)
	a, err := testScheduler().Create(conn, event, 6, 1, []string{"f"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	_ = a.Start()
	waitDone(t, a)

	conn.mu.Lock()
	defer conn.mu.Unlock()
	if conn.attempts != 6 {
		t.Errorf("send attempts = %d, want 6", conn.attempts)
	}
	if len(conn.sent) != 2 {
		t.Errorf("successful sends = %d, want 2", len(conn.sent))
	}
}

func TestStopEndsSchedule(t *testing.T) {
	conn := newFakeConn()
	event := newEvent(conn)
	s := testScheduler()
	s.TickDuration = time.Hour

	a, err := s.Create(conn, event, 10, 1, []string{"f"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	_ = a.Start()

	select {
	case <-conn.notify:
	case <-time.After(5 * time.Second):
		t.Fatal("first frame not sent immediately")
	}
	if s.Running() != 1 {
		t.Errorf("Running() = %d, want 1", s.Running())
	}
	deadline := time.Now().Add(5 * time.Second)
	for a.Step() < 1 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	a.Stop()
	a.Stop()
	waitDone(t, a)

	if a.Step() != 1 {
		t.Errorf("Step() = %d, want 1", a.Step())
	}
	if !event.IsPongCancelled() {
		t.Error("Stop() cleared the pong flag")
	}
	if s.Running() != 0 {
		t.Errorf("Running() = %d, want 0", s.Running())
	}
	if err := a.Start(); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("Start() after Stop() error = %v, want ErrAlreadyStarted", err)
	}
}

// stallConn blocks every send until release is closed.
type stallConn struct {
	entered chan struct{}
	release chan struct{}
}

func (c *stallConn) SendPacket(pk.Packet) error {
	c.entered <- struct{}{}
	<-c.release
	return nil
}

func (c *stallConn) IsOpen() bool { return true }

func TestStopDuringStalledSend(t *testing.T) {
	conn := &stallConn{entered: make(chan struct{}, 1), release: make(chan struct{})}
	event := newEvent(conn)
	a, err := testScheduler().Create(conn, event, 10, 1, []string{"f"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	_ = a.Start()

	select {
	case <-conn.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("first frame not sent")
	}

	stopped := make(chan struct{})
	go func() {
		a.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		close(conn.release)
		t.Fatal("Stop() blocked on an in-flight send")
	}
	if a.State() != Stopped {
		t.Errorf("State() = %v, want stopped", a.State())
	}

	close(conn.release)
	time.Sleep(20 * time.Millisecond)
	if a.Step() != 0 {
		t.Errorf("Step() = %d, want 0 after stop during send", a.Step())
	}
	select {
	case <-conn.entered:
		t.Error("frame sent after Stop()")
	default:
	}
	if !event.IsPongCancelled() {
		t.Error("Stop() cleared the pong flag")
	}
}

func TestStopAll(t *testing.T) {
	s := testScheduler()
	s.TickDuration = time.Hour
	var anims []*Animation
	for range 3 {
		conn := newFakeConn()
		a, err := s.Create(conn, newEvent(conn), 10, 1, []string{"f"}, nil)
		if err != nil {
			t.Fatal(err)
		}
		_ = a.Start()
		anims = append(anims, a)
	}
	s.StopAll()
	for _, a := range anims {
		waitDone(t, a)
	}
	if s.Running() != 0 {
		t.Errorf("Running() = %d, want 0", s.Running())
	}
}

func TestStopBeforeStart(t *testing.T) {
	conn := newFakeConn()
	a, err := testScheduler().Create(conn, newEvent(conn), 3, 1, []string{"f"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	a.Stop()
	waitDone(t, a)
	if err := a.Start(); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("Start() error = %v, want ErrAlreadyStarted", err)
	}
	if conn.attempts != 0 {
		t.Errorf("attempts = %d, want 0", conn.attempts)
	}
}

func TestCreateValidation(t *testing.T) {
	conn := newFakeConn()
	event := newEvent(conn)
	s := testScheduler()

	tests := []struct {
		name  string
		event *ping.Event
		steps int
		ticks int
		motd  []string
		want  error
	}{
		{"nil event", nil, 1, 1, []string{"a"}, ErrNoEvent},
		{"no conn", ping.NewEvent(reply.New(nil), status.Legacy), 1, 1, []string{"a"}, ErrNoConn},
		{"no frames", event, 1, 1, nil, ErrEmptyFrames},
		{"zero steps", event, 0, 1, []string{"a"}, ErrInvalidSteps},
		{"zero period", event, 1, 0, []string{"a"}, ErrInvalidPeriod},
	}
	for _, tt := range tests {
		if _, err := s.Create(nil, tt.event, tt.steps, tt.ticks, tt.motd, nil); !errors.Is(err, tt.want) {
			t.Errorf("%s: Create() error = %v, want %v", tt.name, err, tt.want)
		}
	}
}
