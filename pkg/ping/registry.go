package ping

import (
	"fmt"
	"log"
	"sync"
)

// Listener observes status responses. OnPing runs on the connection's write
// path: blocking in it stalls that connection's outgoing packets.
type Listener interface {
	OnPing(e *Event)
}

// ListenerFunc adapts a plain function to Listener.
type ListenerFunc func(e *Event)

func (f ListenerFunc) OnPing(e *Event) { f(e) }

// Registry is an ordered set of listeners shared by every connection of a
// server. It is created at startup and lives as long as the server.
type Registry struct {
	mu        sync.RWMutex
	listeners []Listener
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Register appends l. Listeners are invoked in registration order.
func (r *Registry) Register(l Listener) {
	if l == nil {
		panic("ping: nil listener")
	}
	r.mu.Lock()
	r.listeners = append(r.listeners, l)
	r.mu.Unlock()
}

// Listeners returns a snapshot of the registered listeners.
func (r *Registry) Listeners() []Listener {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Listener, len(r.listeners))
	copy(out, r.listeners)
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.listeners)
}

// Dispatch hands e to every listener of the current snapshot, in order.
// A panicking listener is logged and skipped; the rest still run and see the
// event as it was left.
func (r *Registry) Dispatch(e *Event, logger *log.Logger) {
	for i, l := range r.Listeners() {
		if err := invoke(l, e); err != nil && logger != nil {
			logger.Printf("ping listener %d (%T) failed: %v", i, l, err)
		}
	}
}

func invoke(l Listener, e *Event) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	l.OnPing(e)
	return nil
}
