// Package status holds the wire side of the server list ping: packet ids for
// the handshake and status states, the status response JSON document, and
// per-protocol adapters converting that document to and from reply.Reply.
package status

import (
	"errors"
	"fmt"

	pk "github.com/Tnze/go-mc/net/packet"
)

// handshake state, serverbound
const HandshakeID int32 = 0x00

// status state
const (
	StatusRequestID  int32 = 0x00 // serverbound
	PingRequestID    int32 = 0x01 // serverbound
	StatusResponseID int32 = 0x00 // clientbound
	PongResponseID   int32 = 0x01 // clientbound
)

// handshake intents
const (
	IntentStatus = 1
	IntentLogin  = 2
)

var ErrUnexpectedPacket = errors.New("unexpected packet")

type Handshake struct {
	ProtocolVersion int32
	ServerAddress   string
	ServerPort      uint16
	Intent          int32
}

func (h Handshake) Marshal() pk.Packet {
	return pk.Marshal(HandshakeID,
		pk.VarInt(h.ProtocolVersion),
		pk.String(h.ServerAddress),
		pk.UnsignedShort(h.ServerPort),
		pk.VarInt(h.Intent),
	)
}

func UnmarshalHandshake(p pk.Packet) (Handshake, error) {
	var (
		h       Handshake
		version pk.VarInt
		addr    pk.String
		port    pk.UnsignedShort
		intent  pk.VarInt
	)
	if p.ID != HandshakeID {
		return h, fmt.Errorf("%w: handshake id 0x%02x", ErrUnexpectedPacket, p.ID)
	}
	if err := p.Scan(&version, &addr, &port, &intent); err != nil {
		return h, fmt.Errorf("scan handshake: %w", err)
	}
	h.ProtocolVersion = int32(version)
	h.ServerAddress = string(addr)
	h.ServerPort = uint16(port)
	h.Intent = int32(intent)
	return h, nil
}

func MarshalStatusRequest() pk.Packet {
	return pk.Marshal(StatusRequestID)
}

func MarshalPing(token int64) pk.Packet {
	return pk.Marshal(PingRequestID, pk.Long(token))
}

// MarshalPong echoes the liveness token of a ping request.
func MarshalPong(token int64) pk.Packet {
	return pk.Marshal(PongResponseID, pk.Long(token))
}

// UnmarshalPingToken reads the token of a ping request or pong response;
// both share the same layout.
func UnmarshalPingToken(p pk.Packet) (int64, error) {
	var token pk.Long
	if err := p.Scan(&token); err != nil {
		return 0, fmt.Errorf("scan ping token: %w", err)
	}
	return int64(token), nil
}

// IsStatusResponse and IsPong only make sense for packets written while the
// connection is in the status state; the ids are reused by other states.
func IsStatusResponse(p pk.Packet) bool { return p.ID == StatusResponseID }

func IsPong(p pk.Packet) bool { return p.ID == PongResponseID }
