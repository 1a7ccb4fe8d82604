package listeners

import (
	"encoding/json"
	"log"
	"net"
	"time"

	"github.com/go-mclib/pingapi/pkg/ping"
	"github.com/go-mclib/pingapi/pkg/reply"
)

// Publisher is the subset of *nats.Conn used by Notifier.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// Notice is published once per ping.
type Notice struct {
	Remote        string    `json:"remote,omitempty"`
	MOTD          string    `json:"motd"`
	Online        int       `json:"online"`
	Max           int       `json:"max"`
	Protocol      int       `json:"protocol"`
	Cancelled     bool      `json:"cancelled"`
	PongCancelled bool      `json:"pongCancelled"`
	Time          time.Time `json:"time"`
}

// Notifier publishes a Notice for every ping. Register it last so the notice
// reflects what the other listeners decided.
type Notifier struct {
	Publisher Publisher
	Subject   string
	Logger    *log.Logger

	now func() time.Time
}

func NewNotifier(p Publisher, subject string, logger *log.Logger) *Notifier {
	return &Notifier{Publisher: p, Subject: subject, Logger: logger, now: time.Now}
}

type remoteAddrer interface {
	RemoteAddr() net.Addr
}

func (n *Notifier) OnPing(e *ping.Event) {
	notice := NewNotice(e)
	if n.now != nil {
		notice.Time = n.now().UTC()
	}
	data, err := json.Marshal(notice)
	if err != nil {
		n.logf("notify: marshal: %v", err)
		return
	}
	if err := n.Publisher.Publish(n.Subject, data); err != nil {
		n.logf("notify: publish %s: %v", n.Subject, err)
	}
}

// NewNotice snapshots e.
func NewNotice(e *ping.Event) Notice {
	r := e.Reply()
	notice := Notice{
		MOTD:          reply.StripColorCodes(r.MOTD()),
		Online:        r.OnlinePlayers(),
		Max:           r.MaxPlayers(),
		Protocol:      r.ProtocolVersion(),
		Cancelled:     e.IsCancelled(),
		PongCancelled: e.IsPongCancelled(),
		Time:          time.Now().UTC(),
	}
	if ra, ok := e.Conn().(remoteAddrer); ok {
		notice.Remote = ra.RemoteAddr().String()
	}
	return notice
}

func (n *Notifier) logf(format string, args ...any) {
	if n.Logger != nil {
		n.Logger.Printf(format, args...)
	}
}
