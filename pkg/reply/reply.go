package reply

import (
	"slices"
	"sync"

	pk "github.com/Tnze/go-mc/net/packet"
)

// Conn is the transport handle a reply was produced on. Packets sent through
// it are written straight to the socket and are not intercepted again.
type Conn interface {
	SendPacket(p pk.Packet) error
	IsOpen() bool
}

// Icon is the favicon blob exactly as the transport sends it
// (a "data:image/png;base64,..." value). A nil Icon means no favicon.
type Icon []byte

// Reply is a mutable, connection-scoped view of a status response.
// All accessors are safe for concurrent use.
type Reply struct {
	mu sync.RWMutex

	conn            Conn
	motd            string
	online          int
	max             int
	protocolVersion int
	protocolName    string
	sample          []string
	icon            Icon
	chatFlags       ChatFlags
}

// ChatFlags are the chat capabilities advertised by 1.19+ servers.
// Older protocols do not carry them.
type ChatFlags struct {
	PreviewsChat       bool
	EnforcesSecureChat bool
}

// New creates a reply bound to conn. The sample is never nil.
func New(conn Conn) *Reply {
	return &Reply{conn: conn, sample: []string{}}
}

// Conn returns the connection the reply belongs to, or nil.
func (r *Reply) Conn() Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.conn
}

// SetConn rebinds the reply to another connection.
func (r *Reply) SetConn(c Conn) {
	r.mu.Lock()
	r.conn = c
	r.mu.Unlock()
}

func (r *Reply) MOTD() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.motd
}

// SetMOTD sets the message of the day. Legacy § formatting codes are kept as-is.
func (r *Reply) SetMOTD(motd string) {
	r.mu.Lock()
	r.motd = motd
	r.mu.Unlock()
}

func (r *Reply) OnlinePlayers() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.online
}

func (r *Reply) SetOnlinePlayers(n int) {
	r.mu.Lock()
	r.online = n
	r.mu.Unlock()
}

func (r *Reply) MaxPlayers() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.max
}

func (r *Reply) SetMaxPlayers(n int) {
	r.mu.Lock()
	r.max = n
	r.mu.Unlock()
}

func (r *Reply) ProtocolVersion() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.protocolVersion
}

// SetProtocolVersion sets the advertised protocol number. A value the client
// does not speak (e.g. -1) makes the client render ProtocolName instead of
// the player counts.
func (r *Reply) SetProtocolVersion(v int) {
	r.mu.Lock()
	r.protocolVersion = v
	r.mu.Unlock()
}

func (r *Reply) ProtocolName() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.protocolName
}

func (r *Reply) SetProtocolName(name string) {
	r.mu.Lock()
	r.protocolName = name
	r.mu.Unlock()
}

// PlayerSample returns a copy of the sample names in display order.
func (r *Reply) PlayerSample() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.sample)
}

// SetPlayerSample replaces the sample. A nil slice is stored as empty.
// The sample is independent of the online/max counts.
func (r *Reply) SetPlayerSample(names []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if names == nil {
		r.sample = []string{}
		return
	}
	r.sample = slices.Clone(names)
}

func (r *Reply) Icon() Icon {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.icon)
}

func (r *Reply) SetIcon(icon Icon) {
	r.mu.Lock()
	r.icon = slices.Clone(icon)
	r.mu.Unlock()
}

func (r *Reply) ChatFlags() ChatFlags {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.chatFlags
}

func (r *Reply) SetChatFlags(f ChatFlags) {
	r.mu.Lock()
	r.chatFlags = f
	r.mu.Unlock()
}

// Clone returns a deep copy bound to the same connection.
func (r *Reply) Clone() *Reply {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return &Reply{
		conn:            r.conn,
		motd:            r.motd,
		online:          r.online,
		max:             r.max,
		protocolVersion: r.protocolVersion,
		protocolName:    r.protocolName,
		sample:          slices.Clone(r.sample),
		icon:            slices.Clone(r.icon),
		chatFlags:       r.chatFlags,
	}
}

// Equal reports whether both replies carry the same status fields.
// The connection reference is not compared.
func (r *Reply) Equal(o *Reply) bool {
	if r == o {
		return true
	}
	if r == nil || o == nil {
		return false
	}
	a, b := r.Clone(), o.Clone()
	return a.motd == b.motd &&
		a.online == b.online &&
		a.max == b.max &&
		a.protocolVersion == b.protocolVersion &&
		a.protocolName == b.protocolName &&
		slices.Equal(a.sample, b.sample) &&
		slices.Equal(a.icon, b.icon) &&
		a.chatFlags == b.chatFlags
}
