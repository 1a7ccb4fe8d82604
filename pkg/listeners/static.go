package listeners

import (
	"sync"

	"github.com/go-mclib/pingapi/pkg/ping"
	"github.com/go-mclib/pingapi/pkg/reply"
)

// Static applies operator overrides to every reply. Unset fields leave the
// reply alone.
type Static struct {
	mu   sync.RWMutex
	motd *string
	max  *int
}

func (s *Static) SetMOTD(motd string) {
	motd = reply.TranslateColorCodes('&', motd)
	s.mu.Lock()
	s.motd = &motd
	s.mu.Unlock()
}

func (s *Static) SetMaxPlayers(n int) {
	s.mu.Lock()
	s.max = &n
	s.mu.Unlock()
}

// Reset clears all overrides.
func (s *Static) Reset() {
	s.mu.Lock()
	s.motd, s.max = nil, nil
	s.mu.Unlock()
}

func (s *Static) OnPing(e *ping.Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.motd != nil {
		e.Reply().SetMOTD(*s.motd)
	}
	if s.max != nil {
		e.Reply().SetMaxPlayers(*s.max)
	}
}
